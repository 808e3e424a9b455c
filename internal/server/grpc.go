package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/jbjoujoute/hive/internal/infra/rpc"
	"github.com/jbjoujoute/hive/internal/metastore"
	"github.com/jbjoujoute/hive/internal/metrics"
)

// toStatus converts a service failure into its wire form. The generic
// ServiceError channel travels as code Internal with the message intact; the
// remote client rehydrates it on the other side.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if se, ok := err.(*metastore.ServiceError); ok {
		return status.Error(codes.Internal, se.Message)
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	return status.Error(codes.Internal, err.Error())
}

// method builds a MethodDesc that decodes Req, runs handle, and maps the
// error onto the wire.
func method[Req any](name string, handle func(ctx context.Context, s *Service, in *Req) (any, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, status.Error(codes.InvalidArgument, err.Error())
			}
			h := func(ctx context.Context, req any) (any, error) {
				out, err := handle(ctx, srv.(*Service), req.(*Req))
				if err != nil {
					return nil, toStatus(err)
				}
				return out, nil
			}
			if interceptor == nil {
				return h(ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: rpc.FullMethod(name)}
			return interceptor(ctx, in, info, h)
		},
	}
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: rpc.ServiceName,
	HandlerType: (*Service)(nil),
	Methods: []grpc.MethodDesc{
		method(rpc.MethodGetDatabase, func(ctx context.Context, s *Service, in *rpc.GetDatabaseRequest) (any, error) {
			db, err := s.GetDatabase(ctx, in.Name)
			if err != nil {
				return nil, err
			}
			return &rpc.GetDatabaseResponse{Database: db}, nil
		}),
		method(rpc.MethodGetAllDatabases, func(ctx context.Context, s *Service, in *rpc.Empty) (any, error) {
			names, err := s.GetAllDatabases(ctx)
			if err != nil {
				return nil, err
			}
			return &rpc.GetAllDatabasesResponse{Names: names}, nil
		}),
		method(rpc.MethodCreateDatabase, func(ctx context.Context, s *Service, in *rpc.CreateDatabaseRequest) (any, error) {
			return &rpc.Empty{}, s.CreateDatabase(ctx, in.Database)
		}),
		method(rpc.MethodDropDatabase, func(ctx context.Context, s *Service, in *rpc.DropDatabaseRequest) (any, error) {
			return &rpc.Empty{}, s.DropDatabase(ctx, in.Name)
		}),
		method(rpc.MethodGetTable, func(ctx context.Context, s *Service, in *rpc.GetTableRequest) (any, error) {
			tbl, err := s.GetTable(ctx, in.DBName, in.TableName)
			if err != nil {
				return nil, err
			}
			return &rpc.GetTableResponse{Table: tbl}, nil
		}),
		method(rpc.MethodGetTables, func(ctx context.Context, s *Service, in *rpc.GetTablesRequest) (any, error) {
			names, err := s.GetTables(ctx, in.DBName, in.Pattern)
			if err != nil {
				return nil, err
			}
			return &rpc.GetTablesResponse{Names: names}, nil
		}),
		method(rpc.MethodCreateTable, func(ctx context.Context, s *Service, in *rpc.CreateTableRequest) (any, error) {
			return &rpc.Empty{}, s.CreateTable(ctx, in.Table)
		}),
		method(rpc.MethodAlterTable, func(ctx context.Context, s *Service, in *rpc.AlterTableRequest) (any, error) {
			return &rpc.Empty{}, s.AlterTable(ctx, in.DBName, in.TableName, in.Table)
		}),
		method(rpc.MethodDropTable, func(ctx context.Context, s *Service, in *rpc.DropTableRequest) (any, error) {
			return &rpc.Empty{}, s.DropTable(ctx, in.DBName, in.TableName)
		}),
		method(rpc.MethodAddPartition, func(ctx context.Context, s *Service, in *rpc.AddPartitionRequest) (any, error) {
			return &rpc.Empty{}, s.AddPartition(ctx, in.Partition)
		}),
		method(rpc.MethodGetPartition, func(ctx context.Context, s *Service, in *rpc.GetPartitionRequest) (any, error) {
			part, err := s.GetPartition(ctx, in.DBName, in.TableName, in.Values)
			if err != nil {
				return nil, err
			}
			return &rpc.GetPartitionResponse{Partition: part}, nil
		}),
		method(rpc.MethodDropPartition, func(ctx context.Context, s *Service, in *rpc.DropPartitionRequest) (any, error) {
			return &rpc.Empty{}, s.DropPartition(ctx, in.DBName, in.TableName, in.Values)
		}),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "hive/metastore",
}

// GRPCServer serves the metastore over gRPC.
type GRPCServer struct {
	grpc *grpc.Server
	port int
	log  *slog.Logger
}

// NewGRPCServer registers the service and its logging interceptor.
func NewGRPCServer(svc *Service, port int, log *slog.Logger) *GRPCServer {
	if log == nil {
		log = slog.Default()
	}
	s := grpc.NewServer(grpc.UnaryInterceptor(loggingInterceptor(log)))
	s.RegisterService(&serviceDesc, svc)
	return &GRPCServer{grpc: s, port: port, log: log}
}

// Start listens and serves. Blocks until Stop.
func (s *GRPCServer) Start() error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", s.port))
	if err != nil {
		return fmt.Errorf("failed to listen on :%d: %w", s.port, err)
	}
	s.log.Info("Metastore listening", "port", s.port)
	return s.grpc.Serve(lis)
}

// Stop drains in-flight requests and shuts down.
func (s *GRPCServer) Stop() {
	s.grpc.GracefulStop()
}

// loggingInterceptor logs every request with its client-supplied request id
// and records the served-request metric.
func loggingInterceptor(log *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		requestID := ""
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if ids := md.Get("x-request-id"); len(ids) > 0 {
				requestID = ids[0]
			}
		}

		resp, err := handler(ctx, req)

		code := status.Code(err)
		metrics.ServerRequests.WithLabelValues(info.FullMethod, code.String()).Inc()
		if err != nil {
			log.Warn("Request failed", "method", info.FullMethod, "request_id", requestID, "code", code.String(), "error", err)
		} else {
			log.Debug("Request served", "method", info.FullMethod, "request_id", requestID)
		}
		return resp, err
	}
}
