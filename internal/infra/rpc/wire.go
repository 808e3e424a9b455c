// Package rpc implements the metastore wire protocol: a gRPC service using a
// JSON codec, so both ends exchange plain Go structs without generated stubs.
// The package provides the remote metastore.Client implementation; the server
// side registers the matching handlers against the same method names.
package rpc

import "github.com/jbjoujoute/hive/internal/core/catalog"

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "hive.Metastore"

// Method names, shared between client invocations and the server's service
// descriptor.
const (
	MethodGetDatabase     = "GetDatabase"
	MethodGetAllDatabases = "GetAllDatabases"
	MethodCreateDatabase  = "CreateDatabase"
	MethodDropDatabase    = "DropDatabase"
	MethodGetTable        = "GetTable"
	MethodGetTables       = "GetTables"
	MethodCreateTable     = "CreateTable"
	MethodAlterTable      = "AlterTable"
	MethodDropTable       = "DropTable"
	MethodAddPartition    = "AddPartition"
	MethodGetPartition    = "GetPartition"
	MethodDropPartition   = "DropPartition"
)

// FullMethod returns the gRPC path for a method name.
func FullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

type Empty struct{}

type GetDatabaseRequest struct {
	Name string `json:"name"`
}

type GetDatabaseResponse struct {
	Database *catalog.Database `json:"database"`
}

type GetAllDatabasesResponse struct {
	Names []string `json:"names"`
}

type CreateDatabaseRequest struct {
	Database *catalog.Database `json:"database"`
}

type DropDatabaseRequest struct {
	Name string `json:"name"`
}

type GetTableRequest struct {
	DBName    string `json:"db_name"`
	TableName string `json:"table_name"`
}

type GetTableResponse struct {
	Table *catalog.Table `json:"table"`
}

type GetTablesRequest struct {
	DBName  string `json:"db_name"`
	Pattern string `json:"pattern"`
}

type GetTablesResponse struct {
	Names []string `json:"names"`
}

type CreateTableRequest struct {
	Table *catalog.Table `json:"table"`
}

type AlterTableRequest struct {
	DBName    string         `json:"db_name"`
	TableName string         `json:"table_name"`
	Table     *catalog.Table `json:"table"`
}

type DropTableRequest struct {
	DBName    string `json:"db_name"`
	TableName string `json:"table_name"`
}

type AddPartitionRequest struct {
	Partition *catalog.Partition `json:"partition"`
}

type GetPartitionRequest struct {
	DBName    string   `json:"db_name"`
	TableName string   `json:"table_name"`
	Values    []string `json:"values"`
}

type GetPartitionResponse struct {
	Partition *catalog.Partition `json:"partition"`
}

type DropPartitionRequest struct {
	DBName    string   `json:"db_name"`
	TableName string   `json:"table_name"`
	Values    []string `json:"values"`
}
