package rpc

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/jbjoujoute/hive/internal/core/catalog"
	"github.com/jbjoujoute/hive/internal/metastore"
)

// ErrClosed is returned for calls made after Close.
var ErrClosed = errors.New("rpc: client is closed")

// Config holds remote client settings.
type Config struct {
	// URI is the metastore endpoint, host:port with an optional http(s)
	// scheme. https (or :443) selects TLS.
	URI string

	// DialTimeout bounds connection establishment. Zero means 10s.
	DialTimeout time.Duration

	// Creds optionally attaches per-RPC credentials (bearer tokens).
	Creds credentials.PerRPCCredentials
}

// Client is the remote metastore.Client over gRPC.
type Client struct {
	cfg Config

	mu     sync.Mutex
	conn   *grpc.ClientConn
	closed bool
}

var _ metastore.Client = (*Client)(nil)

// Dial connects to the metastore endpoint.
func Dial(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 10 * time.Second
	}
	c := &Client{cfg: cfg}

	conn, err := c.dial(ctx)
	if err != nil {
		return nil, err
	}
	c.conn = conn
	return c, nil
}

func (c *Client) dial(ctx context.Context) (*grpc.ClientConn, error) {
	// Parse endpoint to determine if TLS is needed
	target := c.cfg.URI
	var opts []grpc.DialOption

	if strings.HasPrefix(target, "https://") || strings.HasSuffix(target, ":443") {
		creds := credentials.NewTLS(&tls.Config{})
		opts = append(opts, grpc.WithTransportCredentials(creds))
		target = strings.TrimPrefix(target, "https://")
	} else {
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
		target = strings.TrimPrefix(target, "http://")
	}

	if c.cfg.Creds != nil {
		opts = append(opts, grpc.WithPerRPCCredentials(c.cfg.Creds))
	}
	opts = append(opts,
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(CodecName)),
		grpc.WithUnaryInterceptor(requestIDInterceptor),
		grpc.WithBlock(), // Wait for connection
	)

	dialCtx, cancel := context.WithTimeout(ctx, c.cfg.DialTimeout)
	defer cancel()

	conn, err := grpc.DialContext(dialCtx, target, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to dial metastore %s: %w", target, err)
	}
	return conn, nil
}

// requestIDInterceptor tags every outgoing call with a request id, echoed
// into the server's logs for correlation.
func requestIDInterceptor(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
	ctx = metadata.AppendToOutgoingContext(ctx, "x-request-id", uuid.NewString())
	return invoker(ctx, method, req, reply, cc, opts...)
}

// invoke performs one unary call. Server failures delivered as code Internal
// are the generic service-error channel; they are rehydrated into
// *metastore.ServiceError so the message text survives the wire.
func (c *Client) invoke(ctx context.Context, method string, in, out any) error {
	c.mu.Lock()
	conn := c.conn
	closed := c.closed
	c.mu.Unlock()
	if closed || conn == nil {
		return ErrClosed
	}

	err := conn.Invoke(ctx, FullMethod(method), in, out)
	if err == nil {
		return nil
	}
	if st, ok := status.FromError(err); ok && st.Code() == codes.Internal {
		return &metastore.ServiceError{Message: st.Message()}
	}
	return err
}

func (c *Client) GetDatabase(ctx context.Context, name string) (*catalog.Database, error) {
	var resp GetDatabaseResponse
	if err := c.invoke(ctx, MethodGetDatabase, &GetDatabaseRequest{Name: name}, &resp); err != nil {
		return nil, err
	}
	return resp.Database, nil
}

func (c *Client) GetAllDatabases(ctx context.Context) ([]string, error) {
	var resp GetAllDatabasesResponse
	if err := c.invoke(ctx, MethodGetAllDatabases, &Empty{}, &resp); err != nil {
		return nil, err
	}
	return resp.Names, nil
}

func (c *Client) CreateDatabase(ctx context.Context, db *catalog.Database) error {
	return c.invoke(ctx, MethodCreateDatabase, &CreateDatabaseRequest{Database: db}, &Empty{})
}

func (c *Client) DropDatabase(ctx context.Context, name string) error {
	return c.invoke(ctx, MethodDropDatabase, &DropDatabaseRequest{Name: name}, &Empty{})
}

func (c *Client) GetTable(ctx context.Context, dbName, tableName string) (*catalog.Table, error) {
	var resp GetTableResponse
	req := &GetTableRequest{DBName: dbName, TableName: tableName}
	if err := c.invoke(ctx, MethodGetTable, req, &resp); err != nil {
		return nil, err
	}
	return resp.Table, nil
}

func (c *Client) GetTables(ctx context.Context, dbName, pattern string) ([]string, error) {
	var resp GetTablesResponse
	req := &GetTablesRequest{DBName: dbName, Pattern: pattern}
	if err := c.invoke(ctx, MethodGetTables, req, &resp); err != nil {
		return nil, err
	}
	return resp.Names, nil
}

func (c *Client) CreateTable(ctx context.Context, tbl *catalog.Table) error {
	return c.invoke(ctx, MethodCreateTable, &CreateTableRequest{Table: tbl}, &Empty{})
}

func (c *Client) AlterTable(ctx context.Context, dbName, tableName string, tbl *catalog.Table) error {
	req := &AlterTableRequest{DBName: dbName, TableName: tableName, Table: tbl}
	return c.invoke(ctx, MethodAlterTable, req, &Empty{})
}

func (c *Client) DropTable(ctx context.Context, dbName, tableName string) error {
	return c.invoke(ctx, MethodDropTable, &DropTableRequest{DBName: dbName, TableName: tableName}, &Empty{})
}

func (c *Client) AddPartition(ctx context.Context, part *catalog.Partition) error {
	return c.invoke(ctx, MethodAddPartition, &AddPartitionRequest{Partition: part}, &Empty{})
}

func (c *Client) GetPartition(ctx context.Context, dbName, tableName string, values []string) (*catalog.Partition, error) {
	var resp GetPartitionResponse
	req := &GetPartitionRequest{DBName: dbName, TableName: tableName, Values: values}
	if err := c.invoke(ctx, MethodGetPartition, req, &resp); err != nil {
		return nil, err
	}
	return resp.Partition, nil
}

func (c *Client) DropPartition(ctx context.Context, dbName, tableName string, values []string) error {
	req := &DropPartitionRequest{DBName: dbName, TableName: tableName, Values: values}
	return c.invoke(ctx, MethodDropPartition, req, &Empty{})
}

// Reconnect tears down the current connection and dials a fresh one. Safe to
// race from concurrent retry loops; the slower winner's connection sticks.
func (c *Client) Reconnect() error {
	conn, err := c.dial(context.Background())
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		_ = conn.Close()
		return ErrClosed
	}
	old := c.conn
	c.conn = conn
	c.mu.Unlock()

	if old != nil {
		_ = old.Close()
	}
	return nil
}

func (c *Client) IsLocal() bool { return false }

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}
