package client

import (
	"context"
	"net"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/alfredjeanlab/foundry/internal/model"
	"github.com/alfredjeanlab/foundry/internal/server"
)

// fakeReference answers every call by echoing what it received, so tests
// can check how the client encodes requests.
type fakeReference struct {
	last *structpb.Struct
}

func (f *fakeReference) echo(req *structpb.Struct) (*wrapperspb.BytesValue, error) {
	f.last = req
	rec := req.GetFields()["record"].GetStructValue()
	if rec == nil {
		return wrapperspb.Bytes([]byte(`{"id":1}`)), nil
	}
	data, err := rec.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return wrapperspb.Bytes(data), nil
}

func (f *fakeReference) ListRecords(_ context.Context, req *structpb.Struct) (*wrapperspb.BytesValue, error) {
	f.last = req
	if req.GetFields()["resource"].GetStringValue() == "campaign" {
		return wrapperspb.Bytes([]byte(`{"id":1,"title":"Chalnath"}`)), nil
	}
	return wrapperspb.Bytes([]byte(`[{"id":1},{"id":2}]`)), nil
}

func (f *fakeReference) GetRecord(_ context.Context, req *structpb.Struct) (*wrapperspb.BytesValue, error) {
	f.last = req
	return nil, status.Error(codes.NotFound, "Talent not found")
}

func (f *fakeReference) CreateRecord(_ context.Context, req *structpb.Struct) (*wrapperspb.BytesValue, error) {
	return f.echo(req)
}

func (f *fakeReference) UpdateRecord(_ context.Context, req *structpb.Struct) (*wrapperspb.BytesValue, error) {
	return f.echo(req)
}

func (f *fakeReference) PatchRecord(_ context.Context, req *structpb.Struct) (*wrapperspb.BytesValue, error) {
	return f.echo(req)
}

func (f *fakeReference) DeleteRecord(_ context.Context, req *structpb.Struct) (*wrapperspb.BytesValue, error) {
	f.last = req
	return wrapperspb.Bytes([]byte(`{"message":"Talent deleted"}`)), nil
}

func (f *fakeReference) AddChild(_ context.Context, req *structpb.Struct) (*wrapperspb.BytesValue, error) {
	return f.echo(req)
}

func (f *fakeReference) Health(context.Context, *structpb.Struct) (*wrapperspb.BytesValue, error) {
	return wrapperspb.Bytes([]byte(`{"status":"ok"}`)), nil
}

// newTestGRPCClient serves fake over an in-memory listener.
func newTestGRPCClient(t *testing.T, fake *fakeReference) *GRPCClient {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	gs := grpc.NewServer()
	gs.RegisterService(&server.ReferenceServiceDesc, fake)
	go func() { _ = gs.Serve(lis) }()
	t.Cleanup(gs.Stop)

	c, err := NewGRPCClient("passthrough:///bufnet", grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	}))
	if err != nil {
		t.Fatalf("NewGRPCClient() error = %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestGRPCClient_ListRecords(t *testing.T) {
	fake := &fakeReference{}
	c := newTestGRPCClient(t, fake)

	recs, err := c.ListRecords(context.Background(), "talents")
	if err != nil {
		t.Fatalf("ListRecords() error = %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("len(recs) = %d, want 2", len(recs))
	}
	if got := fake.last.GetFields()["resource"].GetStringValue(); got != "talents" {
		t.Errorf("resource = %q", got)
	}

	recs, err = c.ListRecords(context.Background(), "campaign")
	if err != nil || len(recs) != 1 {
		t.Fatalf("singleton ListRecords() = %v, %v", recs, err)
	}
}

func TestGRPCClient_CreateRecord(t *testing.T) {
	fake := &fakeReference{}
	c := newTestGRPCClient(t, fake)

	in := model.NewRecord(
		model.F("name", model.Text("Ambush")),
		model.F("xp_cost", model.Int(20)),
		model.F("effect", model.Null),
	)
	rec, err := c.CreateRecord(context.Background(), "talents", in)
	if err != nil {
		t.Fatalf("CreateRecord() error = %v", err)
	}
	if rec.Get("name").Str() != "Ambush" || rec.Get("xp_cost").Num() != 20 {
		t.Errorf("echoed record = %s", rec)
	}
	if !rec.Has("effect") || !rec.Get("effect").IsNull() {
		t.Errorf("null member should survive the round trip, got %s", rec)
	}
}

func TestGRPCClient_AddChild(t *testing.T) {
	fake := &fakeReference{}
	c := newTestGRPCClient(t, fake)

	in := model.NewRecord(model.F("title", model.Text("Rally")))
	if _, err := c.AddChild(context.Background(), "regroupActions", 3, "options", in); err != nil {
		t.Fatalf("AddChild() error = %v", err)
	}
	f := fake.last.GetFields()
	if f["id"].GetNumberValue() != 3 || f["kind"].GetStringValue() != "options" {
		t.Errorf("request = %v", fake.last)
	}
}

func TestGRPCClient_GetRecord_NotFound(t *testing.T) {
	c := newTestGRPCClient(t, &fakeReference{})

	_, err := c.GetRecord(context.Background(), "talents", 99)
	if !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestGRPCClient_DeleteAndHealth(t *testing.T) {
	c := newTestGRPCClient(t, &fakeReference{})

	msg, err := c.DeleteRecord(context.Background(), "talents", 1)
	if err != nil || msg != "Talent deleted" {
		t.Fatalf("DeleteRecord() = %q, %v", msg, err)
	}
	st, err := c.Health(context.Background())
	if err != nil || st != "ok" {
		t.Fatalf("Health() = %q, %v", st, err)
	}
}
