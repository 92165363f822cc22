package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	jsonpatch "github.com/evanphx/json-patch/v5"

	"github.com/alfredjeanlab/foundry/internal/events"
	"github.com/alfredjeanlab/foundry/internal/metrics"
	"github.com/alfredjeanlab/foundry/internal/model"
	"github.com/alfredjeanlab/foundry/internal/store"
)

// FoundryServer holds the transport-independent record operations shared by
// the HTTP and gRPC front ends.
type FoundryServer struct {
	store     store.Store
	publisher events.Publisher
	sseHub    *sseHub
	resources []model.Resource
}

// NewFoundryServer returns a new FoundryServer backed by the given store and publisher.
func NewFoundryServer(s store.Store, p events.Publisher) *FoundryServer {
	return &FoundryServer{
		store:     s,
		publisher: p,
		sseHub:    newSSEHub(),
		resources: model.Catalog(),
	}
}

// inputError indicates invalid user input.
// Transport layers map this to 400 / InvalidArgument.
type inputError string

func (e inputError) Error() string { return string(e) }

// notFoundError carries the client-facing message for a missing record.
// Transport layers map this to 404 / NotFound.
type notFoundError string

func (e notFoundError) Error() string { return string(e) }

// resource resolves a resource path or alias.
func (s *FoundryServer) resource(name string) (model.Resource, error) {
	for _, r := range s.resources {
		for _, p := range r.Paths() {
			if p == name {
				return r, nil
			}
		}
	}
	return model.Resource{}, notFoundError(fmt.Sprintf("unknown resource %q", name))
}

// recordAndPublish publishes a record change to NATS and the SSE hub.
// Both are best-effort; failures are logged but do not fail the request.
func (s *FoundryServer) recordAndPublish(ctx context.Context, res model.Resource, action events.Action, id int64, rec *model.Record) {
	topic := events.Topic(res, action)
	event := events.RecordChanged{Resource: res.Name, ID: id, Record: rec}
	if err := s.publisher.Publish(ctx, topic, event); err != nil {
		slog.Warn("failed to publish event", "topic", topic, "id", id, "error", err)
	}
	metrics.RecordEventsTotal.WithLabelValues(res.Name, string(action)).Inc()
	s.broadcastEvent(topic, event)
}

// translate turns store sentinels into transport-mapped errors for res.
func translate(res model.Resource, err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return notFoundError(res.NotFoundMessage())
	case errors.Is(err, store.ErrInvalidInput):
		return inputError(err.Error())
	}
	return err
}

func (s *FoundryServer) listRecords(ctx context.Context, res model.Resource) ([]model.Record, error) {
	recs, err := s.store.List(ctx, res)
	if err != nil {
		return nil, err
	}
	if recs == nil {
		recs = []model.Record{}
	}
	return recs, nil
}

func (s *FoundryServer) firstRecord(ctx context.Context, res model.Resource) (model.Record, error) {
	rec, err := s.store.First(ctx, res)
	if err != nil {
		return model.Record{}, translate(res, err)
	}
	return rec, nil
}

func (s *FoundryServer) getRecord(ctx context.Context, res model.Resource, id int64) (model.Record, error) {
	rec, err := s.store.Get(ctx, res, id)
	if err != nil {
		return model.Record{}, translate(res, err)
	}
	return rec, nil
}

func writableInput(res model.Resource, body model.Record) (model.Record, error) {
	if res.ReadOnly {
		return model.Record{}, inputError(res.Name + " is read-only")
	}
	in := res.Input(body)
	if err := model.ValidateInput(in); err != nil {
		return model.Record{}, inputError(err.Error())
	}
	return in, nil
}

func (s *FoundryServer) createRecord(ctx context.Context, res model.Resource, body model.Record) (model.Record, error) {
	in, err := writableInput(res, body)
	if err != nil {
		return model.Record{}, err
	}
	rec, err := s.store.Create(ctx, res, in)
	if err != nil {
		return model.Record{}, translate(res, err)
	}
	id, _ := rec.ID()
	s.recordAndPublish(ctx, res, events.ActionCreated, id, &rec)
	return rec, nil
}

func (s *FoundryServer) replaceRecord(ctx context.Context, res model.Resource, id int64, body model.Record) (model.Record, error) {
	in, err := writableInput(res, body)
	if err != nil {
		return model.Record{}, err
	}
	rec, err := s.store.Update(ctx, res, id, in)
	if err != nil {
		return model.Record{}, translate(res, err)
	}
	s.recordAndPublish(ctx, res, events.ActionUpdated, id, &rec)
	return rec, nil
}

// patchRecord applies an RFC 7386 merge patch to the current record and
// writes the result. Read and write share one transaction.
func (s *FoundryServer) patchRecord(ctx context.Context, res model.Resource, id int64, patch []byte) (model.Record, error) {
	if res.ReadOnly {
		return model.Record{}, inputError(res.Name + " is read-only")
	}
	if v, err := model.ParseValue(patch); err != nil || v.Kind() != model.KindObject {
		return model.Record{}, inputError("merge patch must be a JSON object")
	}

	var rec model.Record
	err := s.store.RunInTransaction(ctx, func(tx store.Store) error {
		current, err := tx.Get(ctx, res, id)
		if err != nil {
			return err
		}
		doc, err := current.MarshalJSON()
		if err != nil {
			return fmt.Errorf("encode current: %w", err)
		}
		merged, err := jsonpatch.MergePatch(doc, patch)
		if err != nil {
			return inputError("apply merge patch: " + err.Error())
		}
		body, err := model.ParseRecord(merged)
		if err != nil {
			return fmt.Errorf("decode merged: %w", err)
		}
		in := res.Input(body)
		if err := model.ValidateInput(in); err != nil {
			return inputError(err.Error())
		}
		rec, err = tx.Update(ctx, res, id, in)
		return err
	})
	if err != nil {
		return model.Record{}, translate(res, err)
	}
	s.recordAndPublish(ctx, res, events.ActionUpdated, id, &rec)
	return rec, nil
}

func (s *FoundryServer) deleteRecord(ctx context.Context, res model.Resource, id int64) error {
	if res.ReadOnly {
		return inputError(res.Name + " is read-only")
	}
	if err := s.store.Delete(ctx, res, id); err != nil {
		return translate(res, err)
	}
	s.recordAndPublish(ctx, res, events.ActionDeleted, id, nil)
	return nil
}

func (s *FoundryServer) addChild(ctx context.Context, res model.Resource, kindName string, parentID int64, body model.Record) (model.Record, error) {
	kind, ok := res.Child(kindName)
	if !ok {
		return model.Record{}, inputError(fmt.Sprintf("%s has no child kind %q", res.Name, kindName))
	}
	in := kind.Input(body)
	if err := model.ValidateInput(in); err != nil {
		return model.Record{}, inputError(err.Error())
	}
	rec, err := s.store.AddChild(ctx, res, kind, parentID, in)
	if err != nil {
		return model.Record{}, translate(res, err)
	}
	s.recordAndPublish(ctx, res, events.ActionChildAdded, parentID, &rec)
	return rec, nil
}

// resourceInfo summarizes a catalog entry for GET /api/resources.
type resourceInfo struct {
	Name      string   `json:"name"`
	Aliases   []string `json:"aliases,omitempty"`
	Singular  string   `json:"singular"`
	Columns   []string `json:"columns"`
	Children  []string `json:"children,omitempty"`
	Summary   []string `json:"summary,omitempty"`
	ReadOnly  bool     `json:"read_only,omitempty"`
	Singleton bool     `json:"singleton,omitempty"`
}

func (s *FoundryServer) resourceInfos() []resourceInfo {
	out := make([]resourceInfo, 0, len(s.resources))
	for _, r := range s.resources {
		info := resourceInfo{
			Name:      r.Name,
			Aliases:   r.Aliases,
			Singular:  r.Singular,
			Columns:   r.Columns,
			Summary:   r.Summary,
			ReadOnly:  r.ReadOnly,
			Singleton: r.Singleton,
		}
		for _, c := range r.Children {
			info.Children = append(info.Children, c.Name)
		}
		out = append(out, info)
	}
	return out
}
