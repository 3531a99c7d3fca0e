package main

import (
	"context"
	"encoding/json"

	"google.golang.org/grpc"

	"github.com/shmslab/shmslab/internal/poolstats"
	"github.com/shmslab/shmslab/internal/shm"
)

// jsonCodec swaps gRPC's default protobuf codec for plain JSON, so the
// admin service needs no .proto file or generated stubs: every message
// is just a Go struct with json tags.
type jsonCodec struct{}

func (jsonCodec) Name() string                      { return "json" }
func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

type statsRequest struct{}

type statsResponse struct {
	PagesTotal int    `json:"pages_total"`
	PagesFree  int    `json:"pages_free"`
	PagesUsed  int    `json:"pages_used"`
	OOMCount   uint64 `json:"oom_count"`
	Report     string `json:"report"`
}

type forceUnlockRequest struct {
	Owner uint32 `json:"owner"`
}

type forceUnlockResponse struct {
	Unlocked bool `json:"unlocked"`
}

type lockOwnerRequest struct{}

type lockOwnerResponse struct {
	Owner uint32 `json:"owner"`
	Held  bool   `json:"held"`
}

// PoolAdminServer is the RPC surface a running proxy's supervisor exposes
// over the pool it owns: read its utilization, inspect who holds its
// mutex, and force-clear that mutex once the supervisor has independently
// confirmed the holder is dead.
type PoolAdminServer interface {
	Stats(context.Context, *statsRequest) (*statsResponse, error)
	LockOwner(context.Context, *lockOwnerRequest) (*lockOwnerResponse, error)
	ForceUnlock(context.Context, *forceUnlockRequest) (*forceUnlockResponse, error)
}

func registerPoolAdminServer(s *grpc.Server, srv PoolAdminServer) {
	s.RegisterService(&grpc.ServiceDesc{
		ServiceName: "pooladmin.PoolAdmin",
		HandlerType: (*PoolAdminServer)(nil),
		Methods: []grpc.MethodDesc{
			{MethodName: "Stats", Handler: _PoolAdmin_Stats_Handler},
			{MethodName: "LockOwner", Handler: _PoolAdmin_LockOwner_Handler},
			{MethodName: "ForceUnlock", Handler: _PoolAdmin_ForceUnlock_Handler},
		},
		Streams: []grpc.StreamDesc{},
	}, srv)
}

func _PoolAdmin_Stats_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(statsRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PoolAdminServer).Stats(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/pooladmin.PoolAdmin/Stats"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(PoolAdminServer).Stats(ctx, req.(*statsRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _PoolAdmin_LockOwner_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(lockOwnerRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PoolAdminServer).LockOwner(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/pooladmin.PoolAdmin/LockOwner"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(PoolAdminServer).LockOwner(ctx, req.(*lockOwnerRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _PoolAdmin_ForceUnlock_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(forceUnlockRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PoolAdminServer).ForceUnlock(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/pooladmin.PoolAdmin/ForceUnlock"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(PoolAdminServer).ForceUnlock(ctx, req.(*forceUnlockRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// adminServer implements PoolAdminServer over a single attached pool.
type adminServer struct {
	handle *shm.Handle
}

func (a *adminServer) Stats(ctx context.Context, _ *statsRequest) (*statsResponse, error) {
	st := a.handle.Pool().Stats()
	return &statsResponse{
		PagesTotal: st.PagesTotal,
		PagesFree:  st.PagesFree,
		PagesUsed:  st.PagesUsed,
		OOMCount:   st.OOMCount,
		Report:     poolstats.Format(a.handle.Pool().PageSize(), st),
	}, nil
}

func (a *adminServer) LockOwner(ctx context.Context, _ *lockOwnerRequest) (*lockOwnerResponse, error) {
	owner, held := a.handle.Pool().LockOwner()
	return &lockOwnerResponse{Owner: owner, Held: held}, nil
}

func (a *adminServer) ForceUnlock(ctx context.Context, req *forceUnlockRequest) (*forceUnlockResponse, error) {
	ok := a.handle.Pool().ForceUnlock(req.Owner)
	return &forceUnlockResponse{Unlocked: ok}, nil
}
