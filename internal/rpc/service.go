// Package rpc exposes the decision engine as the gRPC service
// signalcore.Decider. Requests and replies are JSON documents carried in
// google.protobuf.BytesValue, the same shapes the HTTP API uses.
package rpc

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"signal-core/internal/engine"
	"signal-core/internal/market"
	"signal-core/pkg/auth"
)

const (
	ServiceName   = "signalcore.Decider"
	runMethod     = "/" + ServiceName + "/Run"
	authHeaderKey = "authorization"
)

// DeciderServer is the server API for signalcore.Decider.
type DeciderServer interface {
	Run(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)
}

func runHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DeciderServer).Run(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: runMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(DeciderServer).Run(ctx, req.(*wrapperspb.BytesValue))
	}
	return interceptor(ctx, in, info, handler)
}

// ServiceDesc describes signalcore.Decider for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*DeciderServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Run", Handler: runHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "signalcore/decider.proto",
}

// Service implements DeciderServer on top of an Engine.
type Service struct {
	engine *engine.Engine
}

// NewService wraps eng.
func NewService(eng *engine.Engine) *Service {
	return &Service{engine: eng}
}

func (s *Service) Run(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	var ts market.TradingState
	if err := json.Unmarshal(in.GetValue(), &ts); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid trading state: %v", err)
	}
	res := s.engine.Run(ctx, ts)
	out, err := json.Marshal(res)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode result: %v", err)
	}
	return wrapperspb.Bytes(out), nil
}

// NewServer builds a grpc.Server with logging and, when secret is set,
// bearer-token auth, and registers the Decider service on it.
func NewServer(eng *engine.Engine, secret string, logger *zap.Logger) *grpc.Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("component", "rpc"))

	interceptors := []grpc.UnaryServerInterceptor{loggingInterceptor(logger)}
	if secret != "" {
		interceptors = append(interceptors, authInterceptor(secret))
	}
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(interceptors...))
	srv.RegisterService(&ServiceDesc, NewService(eng))
	return srv
}

func loggingInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		logger.Debug("rpc",
			zap.String("method", info.FullMethod),
			zap.String("code", status.Code(err).String()),
			zap.Duration("latency", time.Since(start)))
		return resp, err
	}
}

func authInterceptor(secret string) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		md, _ := metadata.FromIncomingContext(ctx)
		values := md.Get(authHeaderKey)
		if len(values) == 0 {
			return nil, status.Error(codes.Unauthenticated, "missing authorization metadata")
		}
		token, ok := strings.CutPrefix(values[0], "Bearer ")
		if !ok {
			return nil, status.Error(codes.Unauthenticated, "invalid authorization metadata")
		}
		if _, err := auth.ParseToken(secret, token); err != nil {
			return nil, status.Error(codes.Unauthenticated, "invalid or expired token")
		}
		return handler(ctx, req)
	}
}
