// Package client provides a transport-agnostic interface for the foundry
// reference service, with HTTP/JSON and gRPC implementations.
package client

import (
	"context"
	"errors"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/alfredjeanlab/foundry/internal/model"
)

// FoundryClient is the interface that all foundry CLI commands use to talk to
// the server. Resources are addressed by catalog name or alias, e.g.
// "talents" or "campaign/planets".
type FoundryClient interface {
	// ListRecords returns every record of a resource in id order. Singleton
	// resources come back as a one-element slice.
	ListRecords(ctx context.Context, resource string) ([]model.Record, error)
	GetRecord(ctx context.Context, resource string, id int64) (model.Record, error)
	CreateRecord(ctx context.Context, resource string, rec model.Record) (model.Record, error)
	// UpdateRecord replaces every writable column of the record.
	UpdateRecord(ctx context.Context, resource string, id int64, rec model.Record) (model.Record, error)
	// PatchRecord applies patch as a JSON merge patch.
	PatchRecord(ctx context.Context, resource string, id int64, patch model.Record) (model.Record, error)
	// DeleteRecord returns the server's confirmation message.
	DeleteRecord(ctx context.Context, resource string, id int64) (string, error)
	AddChild(ctx context.Context, resource string, id int64, kind string, rec model.Record) (model.Record, error)

	// Health
	Health(ctx context.Context) (string, error)

	// Lifecycle
	Close() error
}

// IsNotFound reports whether err is a not-found answer from either
// transport.
func IsNotFound(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusNotFound
	}
	if st, ok := status.FromError(err); ok {
		return st.Code() == codes.NotFound
	}
	return false
}

// recordsFromPayload accepts either a JSON array of records or a single
// record object (singleton resources).
func recordsFromPayload(data []byte) ([]model.Record, error) {
	v, err := model.ParseValue(data)
	if err != nil {
		return nil, err
	}
	if v.Kind() == model.KindObject {
		return []model.Record{v.Record()}, nil
	}
	return model.ParseRecords(data)
}
