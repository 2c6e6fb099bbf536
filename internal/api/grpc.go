package api

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"spacehub/internal/config"
	"spacehub/internal/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
)

const (
	grpcRequestIDKey    = "x-request-id"
	defaultProbeEvery   = 15 * time.Second
	probeTimeout        = 3 * time.Second
	grpcForceStopWindow = 10 * time.Second
)

// Probe reports whether one backing dependency is usable.
type Probe func(ctx context.Context) error

// GRPCServer serves grpc.health.v1. The overall status ("") is SERVING only
// while every registered probe passes; each probe is also exposed under its own name.
type GRPCServer struct {
	server   *grpc.Server
	health   *health.Server
	listener net.Listener
	log      zerolog.Logger

	mu     sync.Mutex
	probes map[string]Probe
}

func NewGRPCServer(cfg config.APIGRPCConfig, logger *zerolog.Logger) (*GRPCServer, error) {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Port))
	if err != nil {
		return nil, fmt.Errorf("grpc listen on port %d: %w", cfg.Port, err)
	}
	return newGRPCServer(lis, cfg.Reflection, logger), nil
}

func newGRPCServer(lis net.Listener, withReflection bool, logger *zerolog.Logger) *GRPCServer {
	log := zerolog.Nop()
	if logger != nil {
		log = logger.With().Str("component", "grpc").Logger()
	}

	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(
		accessLogInterceptor(log),
		panicInterceptor(log),
	))
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	if withReflection {
		reflection.Register(srv)
	}

	return &GRPCServer{
		server:   srv,
		health:   hs,
		listener: lis,
		log:      log,
		probes:   make(map[string]Probe),
	}
}

// AddProbe registers a named dependency check. Call before Serve.
func (s *GRPCServer) AddProbe(name string, p Probe) {
	s.mu.Lock()
	s.probes[name] = p
	s.mu.Unlock()
}

// CheckNow runs every probe once and publishes the results.
func (s *GRPCServer) CheckNow(ctx context.Context) {
	s.mu.Lock()
	probes := make(map[string]Probe, len(s.probes))
	for name, p := range s.probes {
		probes[name] = p
	}
	s.mu.Unlock()

	overall := healthpb.HealthCheckResponse_SERVING
	for name, p := range probes {
		pctx, cancel := context.WithTimeout(ctx, probeTimeout)
		err := p(pctx)
		cancel()

		st := healthpb.HealthCheckResponse_SERVING
		if err != nil {
			st = healthpb.HealthCheckResponse_NOT_SERVING
			overall = st
			s.log.Warn().Err(err).Str("dependency", name).Msg("health probe failed")
		}
		s.health.SetServingStatus(name, st)
	}
	s.health.SetServingStatus("", overall)
}

// Watch re-runs the probes every interval until ctx ends.
func (s *GRPCServer) Watch(ctx context.Context, every time.Duration) {
	if every <= 0 {
		every = defaultProbeEvery
	}
	s.CheckNow(ctx)
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.CheckNow(ctx)
		}
	}
}

func (s *GRPCServer) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *GRPCServer) Serve() error {
	s.log.Info().Str("addr", s.Addr()).Msg("gRPC health listening")
	return s.server.Serve(s.listener)
}

// Shutdown flips every status to NOT_SERVING before draining connections.
func (s *GRPCServer) Shutdown(ctx context.Context) {
	s.health.Shutdown()

	stopped := make(chan struct{})
	go func() {
		s.server.GracefulStop()
		close(stopped)
	}()

	force := time.NewTimer(grpcForceStopWindow)
	defer force.Stop()
	select {
	case <-stopped:
		return
	case <-ctx.Done():
	case <-force.C:
	}
	s.log.Warn().Msg("gRPC drain took too long, stopping")
	s.server.Stop()
}

func accessLogInterceptor(log zerolog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
		id := incomingRequestID(ctx)
		_ = grpc.SetHeader(ctx, metadata.Pairs(grpcRequestIDKey, id))

		started := time.Now()
		resp, err := next(ctx, req)
		code := status.Code(err)
		metrics.ObserveGRPC(info.FullMethod, code.String())

		ev := log.Debug()
		if code != codes.OK {
			ev = log.Warn()
		}
		ev.Str("request_id", id).
			Str("method", info.FullMethod).
			Str("code", code.String()).
			Dur("took", time.Since(started)).
			Msg("grpc call")
		return resp, err
	}
}

func panicInterceptor(log zerolog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Str("method", info.FullMethod).Msg("recovered grpc panic")
				resp, err = nil, status.Error(codes.Internal, "internal error")
			}
		}()
		return next(ctx, req)
	}
}

func incomingRequestID(ctx context.Context) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		for _, v := range md.Get(grpcRequestIDKey) {
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		}
	}
	return uuid.NewString()
}
