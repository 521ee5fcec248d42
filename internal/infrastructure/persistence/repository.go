package persistence

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/apibase/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// schemaCache is shared across repositories so each model is parsed once.
var schemaCache = &sync.Map{}

// Repository is a generic GORM-backed accessor providing the common CRUD
// operations for a model type. Filter and order fields accept either the
// Go field name or the database column name; unknown names are skipped in
// filters and ordering so a stray query parameter cannot break a listing.
type Repository[T any] struct {
	db     *gorm.DB
	schema *schema.Schema
	pk     string
}

// NewRepository creates a repository bound to the given database handle.
// Panics when persistence is disabled or T is not a valid GORM model.
func NewRepository[T any](db *Database) *Repository[T] {
	if !db.Enabled() {
		panic(ErrDisabled)
	}
	return newRepository[T](db.DB)
}

func newRepository[T any](db *gorm.DB) *Repository[T] {
	s, err := schema.Parse(new(T), schemaCache, db.NamingStrategy)
	if err != nil {
		panic(fmt.Sprintf("persistence: cannot parse schema for %T: %v", *new(T), err))
	}
	pk := "id"
	if s.PrioritizedPrimaryField != nil {
		pk = s.PrioritizedPrimaryField.DBName
	}
	return &Repository[T]{db: db, schema: s, pk: pk}
}

// WithTx returns a repository that runs its operations on the given
// transaction handle.
func (r *Repository[T]) WithTx(tx *gorm.DB) *Repository[T] {
	return &Repository[T]{db: tx, schema: r.schema, pk: r.pk}
}

// Get finds a record by its primary key
func (r *Repository[T]) Get(ctx context.Context, id uuid.UUID) (*T, error) {
	var entity T
	if err := r.db.WithContext(ctx).First(&entity, r.pk+" = ?", id).Error; err != nil {
		return nil, r.translate(err)
	}
	return &entity, nil
}

// GetByField finds the first record where field equals value. The field
// must exist on the model; addressing a column by name is an explicit
// choice, so unlike filters an unknown name is an error here.
func (r *Repository[T]) GetByField(ctx context.Context, field string, value any) (*T, error) {
	col, ok := r.column(field)
	if !ok {
		return nil, shared.NewDomainError("INVALID_FIELD", fmt.Sprintf("Unknown field %q", field))
	}
	var entity T
	if err := r.db.WithContext(ctx).Where(col+" = ?", value).First(&entity).Error; err != nil {
		return nil, r.translate(err)
	}
	return &entity, nil
}

// List finds all records matching the options
func (r *Repository[T]) List(ctx context.Context, opts shared.ListOptions) ([]T, error) {
	var entities []T
	query := r.applyOptions(r.db.WithContext(ctx).Model(new(T)), opts)
	if err := query.Find(&entities).Error; err != nil {
		return nil, err
	}
	if entities == nil {
		entities = []T{}
	}
	return entities, nil
}

// ListByField finds all records where field matches any of the values
func (r *Repository[T]) ListByField(ctx context.Context, field string, values ...any) ([]T, error) {
	col, ok := r.column(field)
	if !ok {
		return nil, shared.NewDomainError("INVALID_FIELD", fmt.Sprintf("Unknown field %q", field))
	}
	if len(values) == 0 {
		return []T{}, nil
	}
	query := r.db.WithContext(ctx)
	if len(values) == 1 {
		query = query.Where(col+" = ?", values[0])
	} else {
		query = query.Where(col+" IN ?", values)
	}
	var entities []T
	if err := query.Find(&entities).Error; err != nil {
		return nil, err
	}
	if entities == nil {
		entities = []T{}
	}
	return entities, nil
}

// Count counts records matching the filters
func (r *Repository[T]) Count(ctx context.Context, filters map[string]any) (int64, error) {
	var count int64
	query := r.applyFilters(r.db.WithContext(ctx).Model(new(T)), filters)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks whether a record with the given primary key exists
func (r *Repository[T]) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(new(T)).Where(r.pk+" = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// ExistsBy checks whether any record matches the filters
func (r *Repository[T]) ExistsBy(ctx context.Context, filters map[string]any) (bool, error) {
	count, err := r.Count(ctx, filters)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Search finds records where any of the given fields contains the term,
// case-insensitively, then applies the options. Unknown fields are skipped;
// an empty term or field list degrades to a plain List.
func (r *Repository[T]) Search(ctx context.Context, term string, fields []string, opts shared.ListOptions) ([]T, error) {
	query := r.db.WithContext(ctx).Model(new(T))
	if term != "" {
		pattern := "%" + strings.ToLower(term) + "%"
		var conds []string
		var args []any
		for _, field := range fields {
			col, ok := r.column(field)
			if !ok {
				continue
			}
			conds = append(conds, "LOWER("+col+") LIKE ?")
			args = append(args, pattern)
		}
		if len(conds) > 0 {
			query = query.Where(strings.Join(conds, " OR "), args...)
		}
	}
	query = r.applyOptions(query, opts)
	var entities []T
	if err := query.Find(&entities).Error; err != nil {
		return nil, err
	}
	if entities == nil {
		entities = []T{}
	}
	return entities, nil
}

// Create inserts a new record
func (r *Repository[T]) Create(ctx context.Context, entity *T) error {
	return r.translate(r.db.WithContext(ctx).Create(entity).Error)
}

// Save creates or updates a record
func (r *Repository[T]) Save(ctx context.Context, entity *T) error {
	return r.translate(r.db.WithContext(ctx).Save(entity).Error)
}

// Update applies a partial update to the record with the given primary key.
// Changes whose field does not exist on the model are dropped; the primary
// key is never updated.
func (r *Repository[T]) Update(ctx context.Context, id uuid.UUID, changes map[string]any) error {
	resolved := r.resolveChanges(changes)
	if len(resolved) == 0 {
		return nil
	}
	result := r.db.WithContext(ctx).Model(new(T)).Where(r.pk+" = ?", id).Updates(resolved)
	if result.Error != nil {
		return r.translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Delete deletes the record with the given primary key
func (r *Repository[T]) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(new(T), r.pk+" = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// BulkCreate inserts all entities within a single transaction
func (r *Repository[T]) BulkCreate(ctx context.Context, entities []*T) error {
	if len(entities) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return r.translate(tx.Create(&entities).Error)
	})
}

// BulkUpdate applies each update within a single transaction. A missing
// record aborts and rolls back the whole batch.
func (r *Repository[T]) BulkUpdate(ctx context.Context, updates []shared.BulkUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, u := range updates {
			resolved := r.resolveChanges(u.Changes)
			if len(resolved) == 0 {
				continue
			}
			result := tx.Model(new(T)).Where(r.pk+" = ?", u.ID).Updates(resolved)
			if result.Error != nil {
				return r.translate(result.Error)
			}
			if result.RowsAffected == 0 {
				return shared.ErrNotFound
			}
		}
		return nil
	})
}

// BulkDelete deletes all records whose primary key is in ids and reports
// how many rows were actually removed.
func (r *Repository[T]) BulkDelete(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var deleted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Delete(new(T), r.pk+" IN ?", ids)
		if result.Error != nil {
			return result.Error
		}
		deleted = result.RowsAffected
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

// column resolves a field name to its database column. Both the Go field
// name and the column name itself are accepted.
func (r *Repository[T]) column(name string) (string, bool) {
	if f, ok := r.schema.FieldsByDBName[name]; ok {
		return f.DBName, true
	}
	if f, ok := r.schema.FieldsByName[name]; ok {
		return f.DBName, true
	}
	return "", false
}

// applyOptions applies filters, ordering and pagination to the query
func (r *Repository[T]) applyOptions(query *gorm.DB, opts shared.ListOptions) *gorm.DB {
	query = r.applyFilters(query, opts.Filters)

	if opts.OrderBy != "" {
		if col, ok := r.column(opts.OrderBy); ok {
			dir := "ASC"
			if opts.OrderDesc {
				dir = "DESC"
			}
			query = query.Order(col + " " + dir)
		}
	}

	if opts.Offset > 0 {
		query = query.Offset(opts.Offset)
	}
	if opts.Limit > 0 {
		query = query.Limit(opts.Limit)
	}
	return query
}

// applyFilters applies equality and IN filters without pagination
func (r *Repository[T]) applyFilters(query *gorm.DB, filters map[string]any) *gorm.DB {
	for field, value := range filters {
		col, ok := r.column(field)
		if !ok {
			continue
		}
		if isMultiValue(value) {
			query = query.Where(col+" IN ?", value)
		} else {
			query = query.Where(col+" = ?", value)
		}
	}
	return query
}

// resolveChanges maps change keys to columns, dropping unknown fields and
// the primary key.
func (r *Repository[T]) resolveChanges(changes map[string]any) map[string]any {
	resolved := make(map[string]any, len(changes))
	for field, value := range changes {
		col, ok := r.column(field)
		if !ok || col == r.pk {
			continue
		}
		resolved[col] = value
	}
	return resolved
}

// translate maps driver-level errors to domain errors
func (r *Repository[T]) translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return shared.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return shared.ErrAlreadyExists
	}
	return err
}

// isMultiValue reports whether a filter value should become an IN clause.
func isMultiValue(v any) bool {
	if v == nil {
		return false
	}
	if _, ok := v.([]byte); ok {
		return false
	}
	kind := reflect.ValueOf(v).Kind()
	return kind == reflect.Slice || kind == reflect.Array
}

// Ensure Repository satisfies the shared contract
var _ shared.Repository[struct{}] = (*Repository[struct{}])(nil)
