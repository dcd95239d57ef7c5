// Package grpcserver exposes the profile API over gRPC.
package grpcserver

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/and161185/profiled/internal/convert"
	"github.com/and161185/profiled/internal/errs"
	"github.com/and161185/profiled/internal/service"
)

// Server wires the profile service into gRPC handlers.
type Server struct {
	profiles service.ProfileService
	log      *zap.Logger
}

var _ ProfileServer = (*Server)(nil)

// New constructs a gRPC server with injected services.
func New(profiles service.ProfileService, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{profiles: profiles, log: log}
}

// UpdateMe mutates the caller's own profile. Broadcasting continues after the reply.
func (s *Server) UpdateMe(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	userID, ok := UserIDFromCtx(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "no auth")
	}
	m, err := convert.MutationFromStruct(req)
	if err != nil {
		return nil, toStatus(err)
	}
	if err := m.ValidateRequest(); err != nil {
		return nil, toStatus(err)
	}
	if _, err := s.profiles.Update(ctx, userID, m); err != nil {
		return nil, s.fail("update", err)
	}
	return &emptypb.Empty{}, nil
}

// GetMe returns the caller's own profile.
func (s *Server) GetMe(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	userID, ok := UserIDFromCtx(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "no auth")
	}
	p, err := s.profiles.Get(ctx, userID)
	if err != nil {
		return nil, s.fail("get", err)
	}
	out, err := convert.ProfileToStruct(p)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode profile: %v", err)
	}
	return out, nil
}

func (s *Server) fail(op string, err error) error {
	st := toStatus(err)
	if status.Code(st) == codes.Internal {
		s.log.Error("profile "+op, zap.Error(err))
	}
	return st
}

// toStatus maps domain errors to gRPC status codes.
func toStatus(err error) error {
	switch {
	case errors.Is(err, errs.ErrValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	case errs.UserVisible(err):
		return status.Error(codes.InvalidArgument, userMessage(err))
	case errors.Is(err, errs.ErrUnauthorized):
		return status.Error(codes.Unauthenticated, "unauthorized")
	case errors.Is(err, errs.ErrNotFound):
		return status.Error(codes.NotFound, "not found")
	default:
		return status.Error(codes.Internal, "internal")
	}
}

func userMessage(err error) string {
	switch {
	case errors.Is(err, errs.ErrAlreadyExists):
		return errs.ErrAlreadyExists.Error()
	case errors.Is(err, errs.ErrInvalidPassword):
		return errs.ErrInvalidPassword.Error()
	case errors.Is(err, errs.ErrIncompleteRotation):
		return errs.ErrIncompleteRotation.Error()
	}
	return err.Error()
}
