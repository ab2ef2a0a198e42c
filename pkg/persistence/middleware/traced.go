package middleware

import (
	"context"
	"errors"

	"github.com/aretw0/stageflow/pkg/domain"
	"github.com/aretw0/stageflow/pkg/ports"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/aretw0/stageflow/pkg/persistence/middleware"

// TracedOption configures Traced.
type TracedOption func(*tracedStore)

// WithTracerProvider overrides the global tracer provider.
func WithTracerProvider(tp trace.TracerProvider) TracedOption {
	return func(s *tracedStore) {
		s.tracer = tp.Tracer(tracerName)
	}
}

// Traced opens one span per store call. A missing session is not an error span.
func Traced(opts ...TracedOption) Middleware {
	return func(next ports.StateStore) ports.StateStore {
		s := &tracedStore{next: next, tracer: otel.Tracer(tracerName)}
		for _, opt := range opts {
			opt(s)
		}
		return s
	}
}

type tracedStore struct {
	next   ports.StateStore
	tracer trace.Tracer
}

func (s *tracedStore) start(ctx context.Context, op, sessionID string) (context.Context, trace.Span) {
	ctx, span := s.tracer.Start(ctx, "store."+op, trace.WithSpanKind(trace.SpanKindClient))
	if sessionID != "" {
		span.SetAttributes(attribute.String("stageflow.session_id", sessionID))
	}
	return ctx, span
}

func end(span trace.Span, err error) {
	if err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (s *tracedStore) Save(ctx context.Context, sessionID string, state *domain.State) error {
	ctx, span := s.start(ctx, "save", sessionID)
	if state != nil {
		span.SetAttributes(attribute.String("stageflow.stage", state.CurrentStageID))
	}
	err := s.next.Save(ctx, sessionID, state)
	end(span, err)
	return err
}

func (s *tracedStore) Load(ctx context.Context, sessionID string) (*domain.State, error) {
	ctx, span := s.start(ctx, "load", sessionID)
	state, err := s.next.Load(ctx, sessionID)
	end(span, err)
	return state, err
}

func (s *tracedStore) Delete(ctx context.Context, sessionID string) error {
	ctx, span := s.start(ctx, "delete", sessionID)
	err := s.next.Delete(ctx, sessionID)
	end(span, err)
	return err
}

func (s *tracedStore) List(ctx context.Context) ([]string, error) {
	ctx, span := s.start(ctx, "list", "")
	ids, err := s.next.List(ctx)
	span.SetAttributes(attribute.Int("stageflow.sessions", len(ids)))
	end(span, err)
	return ids, err
}
