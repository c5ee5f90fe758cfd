package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	gatev1 "github.com/ppiankov/agentgate/api/agentgate/v1"
	"github.com/ppiankov/agentgate/internal/approval"
	"github.com/ppiankov/agentgate/internal/model"
	"github.com/ppiankov/agentgate/internal/service"
)

// Config holds gRPC server configuration.
type Config struct {
	Port   int
	Logger *slog.Logger
}

// Server implements the agentgate.v1.GateService gRPC server.
type Server struct {
	svc        *service.Service
	log        *slog.Logger
	cfg        Config
	grpcServer *grpc.Server
}

// New registers the gate service backed by svc.
func New(cfg Config, svc *service.Service) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	s := &Server{
		svc: svc,
		log: cfg.Logger,
		cfg: cfg,
	}
	s.grpcServer = grpc.NewServer(grpc.ChainUnaryInterceptor(s.logCalls))
	gatev1.RegisterGateServiceServer(s.grpcServer, s)
	return s
}

// Serve starts the gRPC server on the configured port. Blocks until stopped.
func (s *Server) Serve() error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", s.cfg.Port))
	if err != nil {
		return fmt.Errorf("failed to listen on port %d: %w", s.cfg.Port, err)
	}
	return s.ServeOn(lis)
}

// ServeOn starts the gRPC server on the given listener.
func (s *Server) ServeOn(lis net.Listener) error {
	s.log.Info("gate listening", "addr", lis.Addr().String())
	return s.grpcServer.Serve(lis)
}

// GracefulStop drains in-flight calls and stops the server.
func (s *Server) GracefulStop() {
	s.grpcServer.GracefulStop()
}

// Close releases the underlying service.
func (s *Server) Close() error {
	return s.svc.Close()
}

func (s *Server) logCalls(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	if err != nil {
		s.log.Warn("rpc failed", "method", info.FullMethod, "code", status.Code(err).String(), "error", err)
	} else {
		s.log.Debug("rpc", "method", info.FullMethod, "elapsed", time.Since(start))
	}
	return resp, err
}

// Evaluate implements the Evaluate RPC.
func (s *Server) Evaluate(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req gatev1.EvaluateRequest
	if err := gatev1.Decode(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if req.Tool == "" {
		return nil, status.Error(codes.InvalidArgument, "tool is required")
	}

	r, err := s.svc.Evaluate(ctx, service.EvalInput{
		Tool:       req.Tool,
		Args:       model.ArgsFromMap(req.Args),
		Context:    model.ContextFromMap(req.Context),
		Policies:   req.Policies,
		KillSwitch: req.KillSwitch,
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(r)
}

// ValidateOutput implements the ValidateOutput RPC.
func (s *Server) ValidateOutput(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req gatev1.ValidateOutputRequest
	if err := gatev1.Decode(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	out := service.OutputInput{
		Text:            req.Text,
		Context:         req.Context,
		ActionReceiptID: req.ActionReceiptID,
	}
	if req.ActionDecision != "" {
		out.ActionDecision = model.ParseVerdict(req.ActionDecision)
	}
	r, err := s.svc.ValidateOutput(ctx, out)
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(r)
}

// SetDegraded implements the SetDegraded RPC.
func (s *Server) SetDegraded(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req gatev1.SetDegradedRequest
	if err := gatev1.Decode(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	prev := s.svc.SetDegraded(req.On)
	return encode(gatev1.Ack{OK: true, Previous: prev})
}

// SetKillSwitch implements the SetKillSwitch RPC.
func (s *Server) SetKillSwitch(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req gatev1.SetKillSwitchRequest
	if err := gatev1.Decode(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	s.svc.SetKillSwitch(req.AgentID, req.On)
	return encode(gatev1.Ack{OK: true})
}

// ListPending implements the ListPending RPC.
func (s *Server) ListPending(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	items, err := s.svc.Pending()
	if err != nil {
		return nil, toStatus(err)
	}
	if items == nil {
		items = []approval.Item{}
	}
	return encode(gatev1.PendingResponse{Items: items})
}

// Resolve implements the Resolve RPC.
func (s *Server) Resolve(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req gatev1.ResolveRequest
	if err := gatev1.Decode(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if req.ID == "" {
		return nil, status.Error(codes.InvalidArgument, "id is required")
	}
	it, err := s.svc.Resolve(req.ID, req.Approve, req.Reviewer, req.Note)
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(it)
}

// Status implements the Status RPC.
func (s *Server) Status(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	return encode(s.svc.Status())
}

// Reload implements the Reload RPC.
func (s *Server) Reload(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	if err := s.svc.Reload(); err != nil {
		return nil, status.Error(codes.FailedPrecondition, err.Error())
	}
	return encode(s.svc.Status())
}

func encode(v any) (*structpb.Struct, error) {
	out, err := gatev1.Encode(v)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, approval.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, approval.ErrResolved):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, service.ErrNoReviewQueue):
		return status.Error(codes.Unimplemented, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
