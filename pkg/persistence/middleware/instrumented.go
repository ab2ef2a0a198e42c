package middleware

import (
	"context"
	"errors"
	"time"

	"github.com/aretw0/stageflow/pkg/domain"
	"github.com/aretw0/stageflow/pkg/ports"
	"github.com/prometheus/client_golang/prometheus"
)

// Result labels of stageflow_store_operation_duration_seconds.
const (
	ResultOK       = "ok"
	ResultNotFound = "not_found"
	ResultError    = "error"
)

// Instrumented records the latency of every store call in a histogram
// labelled by operation and result. Registering twice on the same registry
// reuses the existing histogram.
func Instrumented(reg prometheus.Registerer) (Middleware, error) {
	hist := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "stageflow",
		Subsystem: "store",
		Name:      "operation_duration_seconds",
		Help:      "Latency of session store operations.",
		Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
	}, []string{"op", "result"})

	if err := reg.Register(hist); err != nil {
		var already prometheus.AlreadyRegisteredError
		if !errors.As(err, &already) {
			return nil, err
		}
		existing, ok := already.ExistingCollector.(*prometheus.HistogramVec)
		if !ok {
			return nil, err
		}
		hist = existing
	}

	return func(next ports.StateStore) ports.StateStore {
		return &instrumentedStore{next: next, hist: hist}
	}, nil
}

type instrumentedStore struct {
	next ports.StateStore
	hist *prometheus.HistogramVec
}

func (s *instrumentedStore) observe(op string, start time.Time, err error) {
	result := ResultOK
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		result = ResultNotFound
	case err != nil:
		result = ResultError
	}
	s.hist.WithLabelValues(op, result).Observe(time.Since(start).Seconds())
}

func (s *instrumentedStore) Save(ctx context.Context, sessionID string, state *domain.State) error {
	start := time.Now()
	err := s.next.Save(ctx, sessionID, state)
	s.observe("save", start, err)
	return err
}

func (s *instrumentedStore) Load(ctx context.Context, sessionID string) (*domain.State, error) {
	start := time.Now()
	state, err := s.next.Load(ctx, sessionID)
	s.observe("load", start, err)
	return state, err
}

func (s *instrumentedStore) Delete(ctx context.Context, sessionID string) error {
	start := time.Now()
	err := s.next.Delete(ctx, sessionID)
	s.observe("delete", start, err)
	return err
}

func (s *instrumentedStore) List(ctx context.Context) ([]string, error) {
	start := time.Now()
	ids, err := s.next.List(ctx)
	s.observe("list", start, err)
	return ids, err
}
