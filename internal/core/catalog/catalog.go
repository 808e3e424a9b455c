// Package catalog defines the metastore domain model: databases, tables,
// partitions and their schemas. These types travel over the wire as JSON and
// are stored as-is in the catalog repository.
package catalog

import "time"

// Database is a namespace for tables.
type Database struct {
	Name        string            `json:"name" db:"name"`
	Description string            `json:"description,omitempty" db:"description"`
	LocationURI string            `json:"location_uri,omitempty" db:"location_uri"`
	Owner       string            `json:"owner,omitempty" db:"owner"`
	Parameters  map[string]string `json:"parameters,omitempty"`
	CreatedAt   time.Time         `json:"created_at" db:"created_at"`
}

// FieldSchema describes a single column.
type FieldSchema struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Comment string `json:"comment,omitempty"`
}

// Table is a catalog entry for a dataset.
type Table struct {
	DBName     string            `json:"db_name" db:"db_name"`
	Name       string            `json:"name" db:"name"`
	Owner      string            `json:"owner,omitempty" db:"owner"`
	TableType  string            `json:"table_type,omitempty" db:"table_type"`
	Location   string            `json:"location,omitempty" db:"location"`
	Columns    []FieldSchema     `json:"columns,omitempty"`
	PartKeys   []FieldSchema     `json:"partition_keys,omitempty"`
	Parameters map[string]string `json:"parameters,omitempty"`
	Retention  int               `json:"retention,omitempty" db:"retention"`
	CreatedAt  time.Time         `json:"created_at" db:"created_at"`
}

// Partition is one partition of a table, identified by the ordered values of
// the table's partition keys.
type Partition struct {
	DBName     string            `json:"db_name" db:"db_name"`
	TableName  string            `json:"table_name" db:"table_name"`
	Values     []string          `json:"values"`
	Location   string            `json:"location,omitempty" db:"location"`
	Parameters map[string]string `json:"parameters,omitempty"`
	CreatedAt  time.Time         `json:"created_at" db:"created_at"`
}
