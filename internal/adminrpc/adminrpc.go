// Package adminrpc is an administrative gRPC side-channel, separate from
// the BSON data path: pool stats, live config reload, and on-demand index
// reconciliation. Grounded on the teacher's internal/grpc server (Start/Stop
// lifecycle, method-per-RPC shape), using well-known protobuf message types
// (structpb.Struct, emptypb.Empty) rather than a bespoke generated package.
package adminrpc

import (
	"context"
	"fmt"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oriys/mongosvc/client/pool"
	"github.com/oriys/mongosvc/client/transport"
	"github.com/oriys/mongosvc/internal/config"
	"github.com/oriys/mongosvc/internal/logging"
	"github.com/oriys/mongosvc/internal/storage"
)

// Server implements the administrative service: PoolStats, Reindex,
// ReloadConfig.
type Server struct {
	connPool *pool.Pool[*transport.Connection]
	db       *storage.DBPool
	server   *grpc.Server
}

// NewServer builds an admin RPC server wired to the listener's connection
// pool and the service-side database pool (for reindex).
func NewServer(connPool *pool.Pool[*transport.Connection], db *storage.DBPool) *Server {
	return &Server{connPool: connPool, db: db}
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: "mongosvc.admin.v1.AdminService",
	HandlerType: (*adminService)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "PoolStats", Handler: poolStatsHandler},
		{MethodName: "Reindex", Handler: reindexHandler},
		{MethodName: "ReloadConfig", Handler: reloadConfigHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "internal/adminrpc/adminrpc.go",
}

// adminService is the handler-type marker grpc.ServiceDesc binds methods
// against; Server implements it structurally.
type adminService interface {
	PoolStats(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Reindex(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ReloadConfig(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

var _ adminService = (*Server)(nil)

// PoolStats reports the embedding client-facing connection pool's current
// occupancy.
func (s *Server) PoolStats(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	stats := s.connPool.Stats()
	return structpb.NewStruct(map[string]any{
		"idle":   float64(stats.Idle),
		"leased": float64(stats.Leased),
		"total":  float64(stats.Total),
		"leases": float64(stats.Leases),
	})
}

// Reindex rebuilds the version-history indexes on demand — the operational
// escape hatch for when EnsureHistoryIndexes failed at startup (NewDBPool
// logs that failure and carries on).
func (s *Server) Reindex(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	if err := s.db.EnsureHistoryIndexes(ctx); err != nil {
		return nil, fmt.Errorf("reindex: %w", err)
	}
	return structpb.NewStruct(map[string]any{"reindexed": true})
}

// ReloadConfig re-applies the log level/format held in the process-wide
// config (config.Global) to the logger without a restart. It does not
// re-read the config file or the environment.
func (s *Server) ReloadConfig(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	cfg := config.Global()
	logging.InitStructured(cfg.Logging.Format, cfg.Logging.Level)
	return structpb.NewStruct(map[string]any{"reloaded": true})
}

func poolStatsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(adminService).PoolStats(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/mongosvc.admin.v1.AdminService/PoolStats"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(adminService).PoolStats(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func reindexHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(adminService).Reindex(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/mongosvc.admin.v1.AdminService/Reindex"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(adminService).Reindex(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func reloadConfigHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(adminService).ReloadConfig(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/mongosvc.admin.v1.AdminService/ReloadConfig"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(adminService).ReloadConfig(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

// Start binds and serves the admin gRPC service in the background.
func (s *Server) Start(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}

	s.server = grpc.NewServer()
	s.server.RegisterService(&serviceDesc, s)

	logging.Op().Info("admin rpc server started", "addr", addr)
	go func() {
		if err := s.server.Serve(lis); err != nil {
			logging.Op().Error("admin rpc server error", "err", err)
		}
	}()
	return nil
}

// Stop gracefully stops the admin gRPC service.
func (s *Server) Stop() {
	if s.server != nil {
		s.server.GracefulStop()
	}
}
