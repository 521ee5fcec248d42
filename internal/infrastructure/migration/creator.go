package migration

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"
)

const upTemplate = `-- Migration: {{.Name}}
-- Created: {{.Timestamp}}
-- Description: {{.Description}}

-- Write your UP migration SQL here

`

const downTemplate = `-- Migration: {{.Name}} (Rollback)
-- Created: {{.Timestamp}}
-- Description: Rollback for {{.Description}}

-- Write your DOWN migration SQL here

`

var (
	upTmpl   = template.Must(template.New("up").Parse(upTemplate))
	downTmpl = template.Must(template.New("down").Parse(downTemplate))
)

// File describes a created up/down migration pair.
type File struct {
	Version     string
	Name        string
	Description string
	Timestamp   string
	UpPath      string
	DownPath    string
}

// Create writes a new up/down migration pair into dir. The version
// prefix is the current timestamp so files sort in creation order.
func Create(dir, name, description string) (*File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create migrations directory: %w", err)
	}

	now := time.Now()
	version := now.Format("20060102150405")
	base := version + "_" + sanitizeName(name)

	mf := &File{
		Version:     version,
		Name:        name,
		Description: description,
		Timestamp:   now.Format(time.RFC3339),
		UpPath:      filepath.Join(dir, base+".up.sql"),
		DownPath:    filepath.Join(dir, base+".down.sql"),
	}

	if err := render(upTmpl, mf.UpPath, mf); err != nil {
		return nil, fmt.Errorf("write up migration: %w", err)
	}
	if err := render(downTmpl, mf.DownPath, mf); err != nil {
		// Remove the up file so a failed create leaves nothing behind.
		_ = os.Remove(mf.UpPath)
		return nil, fmt.Errorf("write down migration: %w", err)
	}

	return mf, nil
}

func render(tmpl *template.Template, path string, data *File) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := tmpl.Execute(f, data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// sanitizeName lowercases a migration name and collapses separators
// into single underscores, dropping everything else.
func sanitizeName(name string) string {
	var b strings.Builder
	b.Grow(len(name))

	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			b.WriteByte(c)
		case c >= 'A' && c <= 'Z':
			b.WriteByte(c + 'a' - 'A')
		case c == ' ' || c == '-' || c == '_':
			s := b.String()
			if len(s) > 0 && s[len(s)-1] != '_' {
				b.WriteByte('_')
			}
		}
	}

	return strings.TrimSuffix(b.String(), "_")
}

// List returns the base names of the migration pairs in dir, one entry
// per pair. A missing directory is treated as empty.
func List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("read migrations directory: %w", err)
	}

	names := make([]string, 0, len(entries)/2)
	seen := make(map[string]bool)

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		base, ok := strings.CutSuffix(entry.Name(), ".up.sql")
		if !ok || seen[base] {
			continue
		}
		seen[base] = true
		names = append(names, base)
	}

	return names, nil
}
