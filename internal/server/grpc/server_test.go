package grpcserver

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/and161185/profiled/internal/auth"
	"github.com/and161185/profiled/internal/errs"
	"github.com/and161185/profiled/internal/model"
	"github.com/and161185/profiled/internal/service"
)

type fakeProfiles struct {
	lastActor uuid.UUID
	lastMut   model.ProfileMutation
	updateErr error
	profile   *model.Profile
}

var _ service.ProfileService = (*fakeProfiles)(nil)

func (f *fakeProfiles) Update(_ context.Context, actor uuid.UUID, m model.ProfileMutation) (*service.Delivery, error) {
	f.lastActor, f.lastMut = actor, m
	return nil, f.updateErr
}

func (f *fakeProfiles) Get(_ context.Context, actor uuid.UUID) (*model.Profile, error) {
	if f.profile == nil {
		return nil, errs.ErrNotFound
	}
	p := *f.profile
	p.ID = actor
	return &p, nil
}

const bufSize = 1 << 20

func startBufGRPC(t *testing.T, srv *Server, key []byte) (*grpc.ClientConn, func()) {
	t.Helper()
	lis := bufconn.Listen(bufSize)
	gs := grpc.NewServer(grpc.ChainUnaryInterceptor(
		RecoverUnary(zaptest.NewLogger(t)),
		AuthUnary(auth.NewVerifier(key)),
	))
	RegisterProfileServer(gs, srv)
	go func() { _ = gs.Serve(lis) }()
	dialer := func(context.Context, string) (net.Conn, error) { return lis.Dial() }
	cc, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(dialer), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	stop := func() { _ = cc.Close(); gs.Stop(); _ = lis.Close() }
	return cc, stop
}

func ctxAuth(t *testing.T, key []byte, id uuid.UUID) context.Context {
	t.Helper()
	tok, _, err := auth.Issue(key, id, time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	return metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer "+tok)
}

func mustStruct(t *testing.T, m map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	if err != nil {
		t.Fatalf("struct: %v", err)
	}
	return s
}

func TestServer_UpdateMe(t *testing.T) {
	t.Parallel()

	key := []byte("test-secret")
	fp := &fakeProfiles{}
	cc, stop := startBufGRPC(t, New(fp, zaptest.NewLogger(t)), key)
	defer stop()
	cl := NewProfileClient(cc)
	me := uuid.Must(uuid.NewV4())

	err := cl.UpdateMe(ctxAuth(t, key, me), mustStruct(t, map[string]any{"name": "Ann", "accentColor": "red"}))
	if err != nil {
		t.Fatalf("UpdateMe: %v", err)
	}
	if fp.lastActor != me || *fp.lastMut.Name != "Ann" || *fp.lastMut.AccentColor != model.AccentRed {
		t.Fatalf("service got actor=%s mut=%+v", fp.lastActor, fp.lastMut)
	}

	// accentColor is required on the wire
	err = cl.UpdateMe(ctxAuth(t, key, me), mustStruct(t, map[string]any{"name": "Ann"}))
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("want InvalidArgument, got %v", err)
	}

	err = cl.UpdateMe(context.Background(), mustStruct(t, map[string]any{"accentColor": "red"}))
	if status.Code(err) != codes.Unauthenticated {
		t.Fatalf("want Unauthenticated, got %v", err)
	}
}

func TestServer_UpdateMe_ErrorMapping(t *testing.T) {
	t.Parallel()

	key := []byte("k")
	fp := &fakeProfiles{}
	cc, stop := startBufGRPC(t, New(fp, nil), key)
	defer stop()
	cl := NewProfileClient(cc)
	ctx := ctxAuth(t, key, uuid.Must(uuid.NewV4()))
	req := mustStruct(t, map[string]any{"accentColor": "blue"})

	cases := []struct {
		err  error
		code codes.Code
		msg  string
	}{
		{errs.ErrAlreadyExists, codes.InvalidArgument, "handle already in use"},
		{errs.ErrInvalidPassword, codes.InvalidArgument, "invalid password"},
		{errs.ErrIncompleteRotation, codes.InvalidArgument, "invalid data for setting password"},
		{context.DeadlineExceeded, codes.Internal, "internal"},
	}
	for _, c := range cases {
		fp.updateErr = c.err
		err := cl.UpdateMe(ctx, req)
		st, _ := status.FromError(err)
		if st.Code() != c.code || st.Message() != c.msg {
			t.Fatalf("%v: got %v", c.err, err)
		}
	}
}

func TestServer_GetMe(t *testing.T) {
	t.Parallel()

	key := []byte("k")
	fp := &fakeProfiles{}
	cc, stop := startBufGRPC(t, New(fp, nil), key)
	defer stop()
	cl := NewProfileClient(cc)
	me := uuid.Must(uuid.NewV4())

	if _, err := cl.GetMe(ctxAuth(t, key, me)); status.Code(err) != codes.NotFound {
		t.Fatalf("want NotFound, got %v", err)
	}

	fp.profile = &model.Profile{Name: "Ann", Handle: "ann", AccentColor: model.AccentIndigo, AuthKey: []byte("secret")}
	got, err := cl.GetMe(ctxAuth(t, key, me))
	if err != nil {
		t.Fatalf("GetMe: %v", err)
	}
	m := got.AsMap()
	if m["id"] != me.String() || m["handle"] != "ann" || m["accentColor"] != "indigo" {
		t.Fatalf("unexpected profile: %v", m)
	}
	if _, ok := m["authKey"]; ok {
		t.Fatalf("authKey must never leave the server")
	}
}

func TestServer_DirectCallWithoutIdentity(t *testing.T) {
	t.Parallel()

	s := New(&fakeProfiles{}, nil)
	if _, err := s.UpdateMe(context.Background(), &structpb.Struct{}); status.Code(err) != codes.Unauthenticated {
		t.Fatalf("want Unauthenticated, got %v", err)
	}
	if _, err := s.GetMe(context.Background(), nil); status.Code(err) != codes.Unauthenticated {
		t.Fatalf("want Unauthenticated, got %v", err)
	}
}
