// Package models contains GORM-specific persistence models that map to
// database tables. Application models embed Base to pick up the UUID
// primary key and timestamp columns, and register themselves with
// persistence.RegisterModel so schema migration finds them.
package models
