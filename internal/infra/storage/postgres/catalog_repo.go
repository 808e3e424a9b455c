package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jbjoujoute/hive/internal/core/catalog"
	"github.com/jbjoujoute/hive/internal/infra/storage"
)

// Catalog implements storage.CatalogStore using PostgreSQL.
type Catalog struct {
	db *DB
}

// NewCatalog creates a new PostgreSQL catalog store.
func NewCatalog(db *DB) *Catalog {
	return &Catalog{db: db}
}

func (c *Catalog) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// PruneExpiredPartitions drops partitions past their table's retention
// (seconds). retention = 0 means keep forever.
func (c *Catalog) PruneExpiredPartitions(ctx context.Context) (int64, error) {
	res, err := c.db.ExecContext(ctx, `
		DELETE FROM partitions p
		USING tables t
		WHERE t.db_name = p.db_name
		  AND t.name = p.table_name
		  AND t.retention > 0
		  AND p.created_at < now() - make_interval(secs => t.retention)`)
	if err != nil {
		return 0, translate(err, "prune expired partitions")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune expired partitions: %w", err)
	}
	return n, nil
}

func (c *Catalog) Close() error {
	return c.db.Close()
}

// translate maps driver failures onto the storage sentinels. Anything it does
// not recognize passes through with its cause text intact.
func translate(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, storage.ErrNotFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("%s: %w", what, storage.ErrAlreadyExists)
		case "23503": // foreign_key_violation: the parent object is missing
			return fmt.Errorf("%s: %w", what, storage.ErrNotFound)
		}
	}
	return err
}

type dbRow struct {
	Name        string    `db:"name"`
	Description string    `db:"description"`
	LocationURI string    `db:"location_uri"`
	Owner       string    `db:"owner"`
	Parameters  []byte    `db:"parameters"`
	CreatedAt   time.Time `db:"created_at"`
}

func (c *Catalog) GetDatabase(ctx context.Context, name string) (*catalog.Database, error) {
	query := `
		SELECT name, description, location_uri, owner, parameters, created_at
		FROM databases WHERE name = $1
	`

	var row dbRow
	if err := c.db.GetContext(ctx, &row, query, name); err != nil {
		return nil, translate(err, fmt.Sprintf("database %q", name))
	}

	db := &catalog.Database{
		Name:        row.Name,
		Description: row.Description,
		LocationURI: row.LocationURI,
		Owner:       row.Owner,
		CreatedAt:   row.CreatedAt,
	}
	if err := unmarshalJSON(row.Parameters, &db.Parameters); err != nil {
		return nil, fmt.Errorf("failed to decode database %q parameters: %w", name, err)
	}
	return db, nil
}

func (c *Catalog) ListDatabases(ctx context.Context) ([]string, error) {
	var names []string
	err := c.db.SelectContext(ctx, &names, `SELECT name FROM databases ORDER BY name`)
	if err != nil {
		return nil, err
	}
	return names, nil
}

func (c *Catalog) CreateDatabase(ctx context.Context, db *catalog.Database) error {
	query := `
		INSERT INTO databases (name, description, location_uri, owner, parameters)
		VALUES ($1, $2, $3, $4, $5)
	`

	params, err := marshalJSON(db.Parameters)
	if err != nil {
		return err
	}
	_, err = c.db.ExecContext(ctx, query, db.Name, db.Description, db.LocationURI, db.Owner, params)
	if err != nil {
		return translate(err, fmt.Sprintf("database %q", db.Name))
	}
	return nil
}

func (c *Catalog) DropDatabase(ctx context.Context, name string) error {
	res, err := c.db.ExecContext(ctx, `DELETE FROM databases WHERE name = $1`, name)
	if err != nil {
		return err
	}
	return requireAffected(res, fmt.Sprintf("database %q", name))
}

type tableRow struct {
	DBName     string    `db:"db_name"`
	Name       string    `db:"name"`
	Owner      string    `db:"owner"`
	TableType  string    `db:"table_type"`
	Location   string    `db:"location"`
	Retention  int       `db:"retention"`
	Columns    []byte    `db:"columns"`
	PartKeys   []byte    `db:"partition_keys"`
	Parameters []byte    `db:"parameters"`
	CreatedAt  time.Time `db:"created_at"`
}

func (r *tableRow) toTable() (*catalog.Table, error) {
	tbl := &catalog.Table{
		DBName:    r.DBName,
		Name:      r.Name,
		Owner:     r.Owner,
		TableType: r.TableType,
		Location:  r.Location,
		Retention: r.Retention,
		CreatedAt: r.CreatedAt,
	}
	if err := unmarshalJSON(r.Columns, &tbl.Columns); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(r.PartKeys, &tbl.PartKeys); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(r.Parameters, &tbl.Parameters); err != nil {
		return nil, err
	}
	return tbl, nil
}

func (c *Catalog) GetTable(ctx context.Context, dbName, tableName string) (*catalog.Table, error) {
	query := `
		SELECT db_name, name, owner, table_type, location, retention,
		       columns, partition_keys, parameters, created_at
		FROM tables WHERE db_name = $1 AND name = $2
	`

	var row tableRow
	if err := c.db.GetContext(ctx, &row, query, dbName, tableName); err != nil {
		return nil, translate(err, fmt.Sprintf("table %s.%s", dbName, tableName))
	}

	tbl, err := row.toTable()
	if err != nil {
		return nil, fmt.Errorf("failed to decode table %s.%s: %w", dbName, tableName, err)
	}
	return tbl, nil
}

// ListTables returns table names in dbName matching pattern. The pattern uses
// '*' as the wildcard; an empty pattern matches everything.
func (c *Catalog) ListTables(ctx context.Context, dbName, pattern string) ([]string, error) {
	like := "%"
	if pattern != "" {
		like = strings.ReplaceAll(pattern, "*", "%")
	}

	var names []string
	err := c.db.SelectContext(ctx, &names,
		`SELECT name FROM tables WHERE db_name = $1 AND name LIKE $2 ORDER BY name`,
		dbName, like)
	if err != nil {
		return nil, err
	}
	return names, nil
}

func (c *Catalog) CreateTable(ctx context.Context, tbl *catalog.Table) error {
	query := `
		INSERT INTO tables (db_name, name, owner, table_type, location, retention,
		                    columns, partition_keys, parameters)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	cols, err := marshalJSON(tbl.Columns)
	if err != nil {
		return err
	}
	keys, err := marshalJSON(tbl.PartKeys)
	if err != nil {
		return err
	}
	params, err := marshalJSON(tbl.Parameters)
	if err != nil {
		return err
	}

	_, err = c.db.ExecContext(ctx, query,
		tbl.DBName, tbl.Name, tbl.Owner, tbl.TableType, tbl.Location, tbl.Retention,
		cols, keys, params)
	if err != nil {
		return translate(err, fmt.Sprintf("table %s.%s", tbl.DBName, tbl.Name))
	}
	return nil
}

func (c *Catalog) AlterTable(ctx context.Context, dbName, tableName string, tbl *catalog.Table) error {
	query := `
		UPDATE tables SET
			name = $3, owner = $4, table_type = $5, location = $6, retention = $7,
			columns = $8, partition_keys = $9, parameters = $10
		WHERE db_name = $1 AND name = $2
	`

	cols, err := marshalJSON(tbl.Columns)
	if err != nil {
		return err
	}
	keys, err := marshalJSON(tbl.PartKeys)
	if err != nil {
		return err
	}
	params, err := marshalJSON(tbl.Parameters)
	if err != nil {
		return err
	}

	res, err := c.db.ExecContext(ctx, query,
		dbName, tableName,
		tbl.Name, tbl.Owner, tbl.TableType, tbl.Location, tbl.Retention,
		cols, keys, params)
	if err != nil {
		return translate(err, fmt.Sprintf("table %s.%s", dbName, tableName))
	}
	return requireAffected(res, fmt.Sprintf("table %s.%s", dbName, tableName))
}

func (c *Catalog) DropTable(ctx context.Context, dbName, tableName string) error {
	res, err := c.db.ExecContext(ctx,
		`DELETE FROM tables WHERE db_name = $1 AND name = $2`, dbName, tableName)
	if err != nil {
		return err
	}
	return requireAffected(res, fmt.Sprintf("table %s.%s", dbName, tableName))
}

type partitionRow struct {
	DBName     string    `db:"db_name"`
	TableName  string    `db:"table_name"`
	PartValues string    `db:"part_values"`
	Location   string    `db:"location"`
	Parameters []byte    `db:"parameters"`
	CreatedAt  time.Time `db:"created_at"`
}

func (c *Catalog) AddPartition(ctx context.Context, part *catalog.Partition) error {
	query := `
		INSERT INTO partitions (db_name, table_name, part_values, location, parameters)
		VALUES ($1, $2, $3, $4, $5)
	`

	vals, err := encodeValues(part.Values)
	if err != nil {
		return err
	}
	params, err := marshalJSON(part.Parameters)
	if err != nil {
		return err
	}

	_, err = c.db.ExecContext(ctx, query, part.DBName, part.TableName, vals, part.Location, params)
	if err != nil {
		return translate(err, fmt.Sprintf("partition %s.%s %v", part.DBName, part.TableName, part.Values))
	}
	return nil
}

func (c *Catalog) GetPartition(ctx context.Context, dbName, tableName string, values []string) (*catalog.Partition, error) {
	query := `
		SELECT db_name, table_name, part_values, location, parameters, created_at
		FROM partitions WHERE db_name = $1 AND table_name = $2 AND part_values = $3
	`

	vals, err := encodeValues(values)
	if err != nil {
		return nil, err
	}

	var row partitionRow
	if err := c.db.GetContext(ctx, &row, query, dbName, tableName, vals); err != nil {
		return nil, translate(err, fmt.Sprintf("partition %s.%s %v", dbName, tableName, values))
	}

	part := &catalog.Partition{
		DBName:    row.DBName,
		TableName: row.TableName,
		Location:  row.Location,
		CreatedAt: row.CreatedAt,
	}
	if err := json.Unmarshal([]byte(row.PartValues), &part.Values); err != nil {
		return nil, fmt.Errorf("failed to decode partition values: %w", err)
	}
	if err := unmarshalJSON(row.Parameters, &part.Parameters); err != nil {
		return nil, fmt.Errorf("failed to decode partition parameters: %w", err)
	}
	return part, nil
}

func (c *Catalog) DropPartition(ctx context.Context, dbName, tableName string, values []string) error {
	vals, err := encodeValues(values)
	if err != nil {
		return err
	}
	res, err := c.db.ExecContext(ctx,
		`DELETE FROM partitions WHERE db_name = $1 AND table_name = $2 AND part_values = $3`,
		dbName, tableName, vals)
	if err != nil {
		return err
	}
	return requireAffected(res, fmt.Sprintf("partition %s.%s %v", dbName, tableName, values))
}

// encodeValues canonicalizes ordered partition values for the keyed lookup
// column.
func encodeValues(values []string) (string, error) {
	if values == nil {
		values = []string{}
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "", fmt.Errorf("failed to encode partition values: %w", err)
	}
	return string(data), nil
}

func marshalJSON(v any) ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode json column: %w", err)
	}
	return data, nil
}

func unmarshalJSON(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

func requireAffected(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, storage.ErrNotFound)
	}
	return nil
}
