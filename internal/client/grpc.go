package client

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/alfredjeanlab/foundry/internal/model"
)

// ServiceName is the gRPC service the client calls.
const ServiceName = "foundry.v1.ReferenceService"

// GRPCClient implements FoundryClient using the gRPC transport.
type GRPCClient struct {
	conn *grpc.ClientConn
}

var _ FoundryClient = (*GRPCClient)(nil)

// NewGRPCClient connects to the given gRPC address and returns a client.
// Extra dial options are appended after the insecure transport default.
func NewGRPCClient(addr string, opts ...grpc.DialOption) (*GRPCClient, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("grpc dial: %w", err)
	}
	return &GRPCClient{conn: conn}, nil
}

func (c *GRPCClient) Close() error {
	return c.conn.Close()
}

// --- Records ---

func (c *GRPCClient) ListRecords(ctx context.Context, resource string) ([]model.Record, error) {
	data, err := c.call(ctx, "ListRecords", request{resource: resource})
	if err != nil {
		return nil, err
	}
	recs, err := recordsFromPayload(data)
	if err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return recs, nil
}

func (c *GRPCClient) GetRecord(ctx context.Context, resource string, id int64) (model.Record, error) {
	return c.callRecord(ctx, "GetRecord", request{resource: resource, id: id})
}

func (c *GRPCClient) CreateRecord(ctx context.Context, resource string, rec model.Record) (model.Record, error) {
	return c.callRecord(ctx, "CreateRecord", request{resource: resource, record: &rec})
}

func (c *GRPCClient) UpdateRecord(ctx context.Context, resource string, id int64, rec model.Record) (model.Record, error) {
	return c.callRecord(ctx, "UpdateRecord", request{resource: resource, id: id, record: &rec})
}

func (c *GRPCClient) PatchRecord(ctx context.Context, resource string, id int64, patch model.Record) (model.Record, error) {
	return c.callRecord(ctx, "PatchRecord", request{resource: resource, id: id, record: &patch})
}

func (c *GRPCClient) DeleteRecord(ctx context.Context, resource string, id int64) (string, error) {
	data, err := c.call(ctx, "DeleteRecord", request{resource: resource, id: id})
	if err != nil {
		return "", err
	}
	rec, err := model.ParseRecord(data)
	if err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	return rec.Get("message").Str(), nil
}

func (c *GRPCClient) AddChild(ctx context.Context, resource string, id int64, kind string, rec model.Record) (model.Record, error) {
	return c.callRecord(ctx, "AddChild", request{resource: resource, id: id, kind: kind, record: &rec})
}

// --- Health ---

func (c *GRPCClient) Health(ctx context.Context) (string, error) {
	data, err := c.call(ctx, "Health", request{})
	if err != nil {
		return "", err
	}
	rec, err := model.ParseRecord(data)
	if err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	return rec.Get("status").Str(), nil
}

// --- internal helpers ---

type request struct {
	resource string
	id       int64
	kind     string
	record   *model.Record
}

func (r request) toStruct() (*structpb.Struct, error) {
	fields := map[string]*structpb.Value{}
	if r.resource != "" {
		fields["resource"] = structpb.NewStringValue(r.resource)
	}
	if r.id != 0 {
		fields["id"] = structpb.NewNumberValue(float64(r.id))
	}
	if r.kind != "" {
		fields["kind"] = structpb.NewStringValue(r.kind)
	}
	if r.record != nil {
		data, err := r.record.MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("marshaling record: %w", err)
		}
		st := &structpb.Struct{}
		if err := protojson.Unmarshal(data, st); err != nil {
			return nil, fmt.Errorf("converting record: %w", err)
		}
		fields["record"] = structpb.NewStructValue(st)
	}
	return &structpb.Struct{Fields: fields}, nil
}

func (c *GRPCClient) call(ctx context.Context, method string, r request) ([]byte, error) {
	in, err := r.toStruct()
	if err != nil {
		return nil, err
	}
	out := new(wrapperspb.BytesValue)
	if err := c.conn.Invoke(ctx, "/"+ServiceName+"/"+method, in, out); err != nil {
		return nil, err
	}
	return out.GetValue(), nil
}

func (c *GRPCClient) callRecord(ctx context.Context, method string, r request) (model.Record, error) {
	data, err := c.call(ctx, method, r)
	if err != nil {
		return model.Record{}, err
	}
	rec, err := model.ParseRecord(data)
	if err != nil {
		return model.Record{}, fmt.Errorf("decoding response: %w", err)
	}
	return rec, nil
}
