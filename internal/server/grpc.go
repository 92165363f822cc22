package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"strconv"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/alfredjeanlab/foundry/internal/model"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "foundry.v1.ReferenceService"

// ReferenceServiceServer is the gRPC surface of the record API. Requests
// carry "resource", "id", "kind" and "record" fields; responses hold the
// same JSON document the HTTP API returns.
type ReferenceServiceServer interface {
	ListRecords(context.Context, *structpb.Struct) (*wrapperspb.BytesValue, error)
	GetRecord(context.Context, *structpb.Struct) (*wrapperspb.BytesValue, error)
	CreateRecord(context.Context, *structpb.Struct) (*wrapperspb.BytesValue, error)
	UpdateRecord(context.Context, *structpb.Struct) (*wrapperspb.BytesValue, error)
	PatchRecord(context.Context, *structpb.Struct) (*wrapperspb.BytesValue, error)
	DeleteRecord(context.Context, *structpb.Struct) (*wrapperspb.BytesValue, error)
	AddChild(context.Context, *structpb.Struct) (*wrapperspb.BytesValue, error)
	Health(context.Context, *structpb.Struct) (*wrapperspb.BytesValue, error)
}

var _ ReferenceServiceServer = (*FoundryServer)(nil)

type referenceCall func(ReferenceServiceServer, context.Context, *structpb.Struct) (*wrapperspb.BytesValue, error)

func unaryMethod(name string, call referenceCall) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(ReferenceServiceServer), ctx, req.(*structpb.Struct))
			}
			if interceptor == nil {
				return handler(ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + name}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// ReferenceServiceDesc describes the service for grpc.Server.RegisterService.
var ReferenceServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ReferenceServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod("ListRecords", ReferenceServiceServer.ListRecords),
		unaryMethod("GetRecord", ReferenceServiceServer.GetRecord),
		unaryMethod("CreateRecord", ReferenceServiceServer.CreateRecord),
		unaryMethod("UpdateRecord", ReferenceServiceServer.UpdateRecord),
		unaryMethod("PatchRecord", ReferenceServiceServer.PatchRecord),
		unaryMethod("DeleteRecord", ReferenceServiceServer.DeleteRecord),
		unaryMethod("AddChild", ReferenceServiceServer.AddChild),
		unaryMethod("Health", ReferenceServiceServer.Health),
	},
	Streams: []grpc.StreamDesc{},
}

// NewGRPCServer creates a gRPC server with standard interceptors,
// registers the ReferenceService, and returns the server ready to serve.
func NewGRPCServer(foundryServer *FoundryServer) *grpc.Server {
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			RecoveryInterceptor,
			LoggingInterceptor,
		),
	)

	srv.RegisterService(&ReferenceServiceDesc, foundryServer)

	return srv
}

func (s *FoundryServer) ListRecords(ctx context.Context, req *structpb.Struct) (*wrapperspb.BytesValue, error) {
	res, err := s.requestResource(req)
	if err != nil {
		return nil, err
	}
	if res.Singleton {
		rec, err := s.firstRecord(ctx, res)
		if err != nil {
			return nil, grpcError(err)
		}
		return jsonReply(rec)
	}
	recs, err := s.listRecords(ctx, res)
	if err != nil {
		return nil, grpcError(err)
	}
	return jsonReply(recs)
}

func (s *FoundryServer) GetRecord(ctx context.Context, req *structpb.Struct) (*wrapperspb.BytesValue, error) {
	res, id, err := s.requestTarget(req)
	if err != nil {
		return nil, err
	}
	rec, err := s.getRecord(ctx, res, id)
	if err != nil {
		return nil, grpcError(err)
	}
	return jsonReply(rec)
}

func (s *FoundryServer) CreateRecord(ctx context.Context, req *structpb.Struct) (*wrapperspb.BytesValue, error) {
	res, err := s.requestResource(req)
	if err != nil {
		return nil, err
	}
	body, err := requestRecord(req)
	if err != nil {
		return nil, err
	}
	rec, err := s.createRecord(ctx, res, body)
	if err != nil {
		return nil, grpcError(err)
	}
	return jsonReply(rec)
}

func (s *FoundryServer) UpdateRecord(ctx context.Context, req *structpb.Struct) (*wrapperspb.BytesValue, error) {
	res, id, err := s.requestTarget(req)
	if err != nil {
		return nil, err
	}
	body, err := requestRecord(req)
	if err != nil {
		return nil, err
	}
	rec, err := s.replaceRecord(ctx, res, id, body)
	if err != nil {
		return nil, grpcError(err)
	}
	return jsonReply(rec)
}

func (s *FoundryServer) PatchRecord(ctx context.Context, req *structpb.Struct) (*wrapperspb.BytesValue, error) {
	res, id, err := s.requestTarget(req)
	if err != nil {
		return nil, err
	}
	st := req.GetFields()["record"].GetStructValue()
	if st == nil {
		return nil, status.Error(codes.InvalidArgument, "record is required")
	}
	patch, err := protojson.Marshal(st)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid record: %v", err)
	}
	rec, err := s.patchRecord(ctx, res, id, patch)
	if err != nil {
		return nil, grpcError(err)
	}
	return jsonReply(rec)
}

func (s *FoundryServer) DeleteRecord(ctx context.Context, req *structpb.Struct) (*wrapperspb.BytesValue, error) {
	res, id, err := s.requestTarget(req)
	if err != nil {
		return nil, err
	}
	if err := s.deleteRecord(ctx, res, id); err != nil {
		return nil, grpcError(err)
	}
	return jsonReply(map[string]string{"message": res.DeletedMessage()})
}

func (s *FoundryServer) AddChild(ctx context.Context, req *structpb.Struct) (*wrapperspb.BytesValue, error) {
	res, id, err := s.requestTarget(req)
	if err != nil {
		return nil, err
	}
	kind := req.GetFields()["kind"].GetStringValue()
	if kind == "" {
		return nil, status.Error(codes.InvalidArgument, "kind is required")
	}
	body, err := requestRecord(req)
	if err != nil {
		return nil, err
	}
	rec, err := s.addChild(ctx, res, kind, id, body)
	if err != nil {
		return nil, grpcError(err)
	}
	return jsonReply(rec)
}

func (s *FoundryServer) Health(ctx context.Context, _ *structpb.Struct) (*wrapperspb.BytesValue, error) {
	if err := s.store.Ping(ctx); err != nil {
		slog.Warn("health check failed", "error", err)
		return nil, status.Error(codes.Unavailable, "database unavailable")
	}
	return jsonReply(map[string]string{"status": "ok"})
}

func (s *FoundryServer) requestResource(req *structpb.Struct) (model.Resource, error) {
	name := req.GetFields()["resource"].GetStringValue()
	if name == "" {
		return model.Resource{}, status.Error(codes.InvalidArgument, "resource is required")
	}
	res, err := s.resource(name)
	if err != nil {
		return model.Resource{}, status.Error(codes.NotFound, err.Error())
	}
	return res, nil
}

// requestTarget resolves the resource and record id of a request. The id
// may be sent as a number or a decimal string.
func (s *FoundryServer) requestTarget(req *structpb.Struct) (model.Resource, int64, error) {
	res, err := s.requestResource(req)
	if err != nil {
		return model.Resource{}, 0, err
	}
	var id int64
	switch v := req.GetFields()["id"].GetKind().(type) {
	case *structpb.Value_NumberValue:
		if v.NumberValue == math.Trunc(v.NumberValue) {
			id = int64(v.NumberValue)
		}
	case *structpb.Value_StringValue:
		id, _ = strconv.ParseInt(v.StringValue, 10, 64)
	}
	if id <= 0 {
		return model.Resource{}, 0, status.Error(codes.InvalidArgument, "invalid id")
	}
	return res, id, nil
}

func requestRecord(req *structpb.Struct) (model.Record, error) {
	st := req.GetFields()["record"].GetStructValue()
	if st == nil {
		return model.Record{}, status.Error(codes.InvalidArgument, "record is required")
	}
	data, err := protojson.Marshal(st)
	if err != nil {
		return model.Record{}, status.Errorf(codes.InvalidArgument, "invalid record: %v", err)
	}
	rec, err := model.ParseRecord(data)
	if err != nil {
		return model.Record{}, status.Errorf(codes.InvalidArgument, "invalid record: %v", err)
	}
	return rec, nil
}

func jsonReply(v any) (*wrapperspb.BytesValue, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return wrapperspb.Bytes(bytes.TrimSuffix(buf.Bytes(), []byte("\n"))), nil
}

// grpcError maps an operation error onto a gRPC status.
func grpcError(err error) error {
	var nf notFoundError
	var ie inputError
	switch {
	case errors.As(err, &nf):
		return status.Error(codes.NotFound, nf.Error())
	case errors.As(err, &ie):
		return status.Error(codes.InvalidArgument, ie.Error())
	}
	slog.Error("rpc failed", "error", err)
	return status.Error(codes.Internal, "internal server error")
}
