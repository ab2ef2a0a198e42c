package stageflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/stageflow/internal/logging"
	"github.com/aretw0/stageflow/pkg/adapters/memory"
	"github.com/aretw0/stageflow/pkg/domain"
	"github.com/aretw0/stageflow/pkg/navigation"
	"github.com/aretw0/stageflow/pkg/policy"
	"github.com/aretw0/stageflow/pkg/ports"
	"github.com/aretw0/stageflow/pkg/registry"
	"github.com/aretw0/stageflow/pkg/session"
	"github.com/aretw0/stageflow/pkg/workflow"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/aretw0/stageflow"

// Engine is the high-level entry point for the Stageflow library.
// It hosts many sessions over one stage registry, running every mutation
// as load -> controller -> commit -> navigate under the session lock.
type Engine struct {
	stages    *registry.Registry
	loader    ports.StageLoader
	policy    policy.Policy
	navigator ports.Navigator
	store     ports.StateStore
	locker    ports.DistributedLocker
	lockTTL   time.Duration
	hooks     domain.LifecycleHooks
	logger    *slog.Logger
	tracer    trace.Tracer
	sessions  *session.Manager
	Name      string
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithRegistry sets the stage catalog. Without it (and without WithLoader) the
// default evaluation pipeline is used.
func WithRegistry(r *registry.Registry) Option {
	return func(e *Engine) {
		e.stages = r
	}
}

// WithLoader reads the stage catalog from a loader (e.g. a Loam directory) during New.
func WithLoader(l ports.StageLoader) Option {
	return func(e *Engine) {
		e.loader = l
	}
}

// WithPolicy sets the access policy. Default: policy.Permissive.
func WithPolicy(p policy.Policy) Option {
	return func(e *Engine) {
		e.policy = p
	}
}

// WithNavigator sets the view collaborator invoked after each committed transition.
func WithNavigator(n ports.Navigator) Option {
	return func(e *Engine) {
		e.navigator = n
	}
}

// WithStore sets where live sessions are kept. Default: in-memory.
func WithStore(s ports.StateStore) Option {
	return func(e *Engine) {
		e.store = s
	}
}

// WithLocker enables cross-replica locking for shared stores.
func WithLocker(l ports.DistributedLocker, ttl time.Duration) Option {
	return func(e *Engine) {
		e.locker = l
		e.lockTTL = ttl
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithTracerProvider sets the OpenTelemetry provider. Default: the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(e *Engine) {
		e.tracer = tp.Tracer(tracerName)
	}
}

// WithName labels the engine in logs (e.g. the stage directory name).
func WithName(name string) Option {
	return func(e *Engine) {
		e.Name = name
	}
}

// New initializes a new Stageflow Engine.
func New(opts ...Option) (*Engine, error) {
	eng := &Engine{}
	for _, opt := range opts {
		opt(eng)
	}

	if eng.logger == nil {
		eng.logger = logging.NewNop()
	}
	if eng.Name != "" {
		eng.logger = eng.logger.With("registry", eng.Name)
	}

	if eng.stages == nil {
		if eng.loader != nil {
			stages, err := registry.FromLoader(context.Background(), eng.loader)
			if err != nil {
				return nil, fmt.Errorf("failed to load stages: %w", err)
			}
			eng.stages = stages
		} else {
			eng.stages = registry.Default()
		}
	}
	if eng.policy == nil {
		eng.policy = policy.Permissive{}
	}
	if eng.navigator == nil {
		eng.navigator = navigation.Nop{}
	}
	if eng.store == nil {
		eng.store = memory.NewStore()
	}
	if eng.tracer == nil {
		eng.tracer = otel.GetTracerProvider().Tracer(tracerName)
	}

	managerOpts := []session.Option{
		session.WithLogger(eng.logger),
		session.WithLockTTL(eng.lockTTL),
	}
	if eng.locker != nil {
		managerOpts = append(managerOpts, session.WithLocker(eng.locker))
	}
	eng.sessions = session.NewManager(eng.store, managerOpts...)

	return eng, nil
}

// Result describes the outcome of a mutating call.
type Result struct {
	// Stage is the stage the operation targeted.
	Stage domain.Stage
	// State is the committed session state.
	State *domain.State
	// Diff is nil when nothing changed (e.g. re-marking a completed stage).
	Diff *domain.StateDiff
}

// Stages returns the registry in pipeline order.
func (e *Engine) Stages() []domain.Stage {
	return e.stages.Stages()
}

// Registry returns the stage catalog.
func (e *Engine) Registry() *registry.Registry {
	return e.stages
}

// Policy returns the access policy in use.
func (e *Engine) Policy() policy.Policy {
	return e.policy
}

// Store returns the session store.
func (e *Engine) Store() ports.StateStore {
	return e.store
}

// Start opens a session at the first stage, or resumes it if it already exists.
// An empty sessionID generates a new one.
func (e *Engine) Start(ctx context.Context, sessionID string) (*domain.State, error) {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	ctx, span := e.startSpan(ctx, "stageflow.Start", sessionID)
	defer span.End()

	state, created, err := e.sessions.LoadOrStart(ctx, sessionID, e.stages.First().ID)
	if err != nil {
		return nil, e.fail(span, err)
	}
	if err := e.stages.Validate(state); err != nil {
		return nil, e.fail(span, fmt.Errorf("session %q does not match the registry: %w", sessionID, err))
	}

	if created {
		e.logger.Info("session started", "session_id", sessionID, "stage", state.CurrentStageID)
	} else {
		e.logger.Debug("session resumed", "session_id", sessionID, "stage", state.CurrentStageID)
	}
	return state, nil
}

// Load returns a snapshot of the session.
func (e *Engine) Load(ctx context.Context, sessionID string) (*domain.State, error) {
	state, err := e.sessions.Load(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("session %q: %w", sessionID, err)
	}
	return state, nil
}

// End discards the session. Progress is not kept across sessions.
func (e *Engine) End(ctx context.Context, sessionID string) error {
	ctx, span := e.startSpan(ctx, "stageflow.End", sessionID)
	defer span.End()

	if err := e.sessions.Delete(ctx, sessionID); err != nil {
		return e.fail(span, fmt.Errorf("session %q: %w", sessionID, err))
	}
	e.logger.Info("session ended", "session_id", sessionID)
	return nil
}

// Sessions lists the live session ids.
func (e *Engine) Sessions(ctx context.Context) ([]string, error) {
	return e.sessions.List(ctx)
}

// MarkCompleted records the stage as done for the session. It never navigates.
func (e *Engine) MarkCompleted(ctx context.Context, sessionID, stageID string) (*Result, error) {
	ctx, span := e.startSpan(ctx, "stageflow.MarkCompleted", sessionID, attribute.String("stage.id", stageID))
	defer span.End()

	var res *Result
	err := e.sessions.WithLock(ctx, sessionID, func(ctx context.Context) error {
		ctrl, before, err := e.controller(ctx, sessionID)
		if err != nil {
			return err
		}
		if err := ctrl.MarkCompleted(ctx, stageID); err != nil {
			return err
		}
		res = e.result(ctrl, before, stageID)
		return nil
	})
	if err != nil {
		return nil, e.fail(span, err)
	}
	return res, nil
}

// RequestTransition moves the session to stageID and navigates to its target.
//
// When only navigation fails, the transition is still committed: the returned
// Result is non-nil and the error satisfies errors.Is(err, domain.ErrNavigationFailed).
func (e *Engine) RequestTransition(ctx context.Context, sessionID, stageID string) (*Result, error) {
	ctx, span := e.startSpan(ctx, "stageflow.RequestTransition", sessionID, attribute.String("stage.id", stageID))
	defer span.End()

	var (
		res    *Result
		navErr error
	)
	err := e.sessions.WithLock(ctx, sessionID, func(ctx context.Context) error {
		ctrl, before, err := e.controller(ctx, sessionID)
		if err != nil {
			return err
		}
		if _, err := ctrl.RequestTransition(ctx, stageID); err != nil {
			if !errors.Is(err, domain.ErrNavigationFailed) {
				return err
			}
			navErr = err
		}
		res = e.result(ctrl, before, stageID)
		return nil
	})
	if err != nil {
		return nil, e.fail(span, err)
	}
	if navErr != nil {
		span.RecordError(navErr)
		span.SetAttributes(attribute.Bool("navigation.failed", true))
		return res, navErr
	}
	return res, nil
}

// CurrentStage returns the session's active stage.
func (e *Engine) CurrentStage(ctx context.Context, sessionID string) (domain.Stage, error) {
	ctrl, err := e.view(ctx, sessionID)
	if err != nil {
		return domain.Stage{}, err
	}
	return ctrl.CurrentStage(), nil
}

// IsCompleted reports whether the session completed the stage.
func (e *Engine) IsCompleted(ctx context.Context, sessionID, stageID string) (bool, error) {
	ctrl, err := e.view(ctx, sessionID)
	if err != nil {
		return false, err
	}
	return ctrl.IsCompleted(stageID)
}

// ReachableStages returns the stages the policy permits for the session, in pipeline order.
func (e *Engine) ReachableStages(ctx context.Context, sessionID string) ([]domain.Stage, error) {
	ctrl, err := e.view(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return ctrl.ReachableStages(), nil
}

// Steps returns the per-stage status of the session from one consistent snapshot.
func (e *Engine) Steps(ctx context.Context, sessionID string) ([]domain.StageStatus, error) {
	ctrl, err := e.view(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return ctrl.Steps(), nil
}

// Watch returns a channel that signals when the underlying stage source changes.
// Returns error if the loader does not support watching.
func (e *Engine) Watch(ctx context.Context) (<-chan string, error) {
	if w, ok := e.loader.(ports.Watchable); ok {
		return w.Watch(ctx)
	}
	return nil, fmt.Errorf("current stage source does not support watching")
}

// controller restores a workflow controller from the store. Callers hold the session lock.
func (e *Engine) controller(ctx context.Context, sessionID string) (*workflow.Controller, *domain.State, error) {
	state, err := e.store.Load(ctx, sessionID)
	if err != nil {
		return nil, nil, fmt.Errorf("session %q: %w", sessionID, err)
	}
	ctrl, err := workflow.New(e.stages,
		workflow.WithState(state),
		workflow.WithPolicy(e.policy),
		workflow.WithNavigator(e.navigator),
		workflow.WithLifecycleHooks(e.hooks),
		workflow.WithLogger(e.logger),
		workflow.WithCommitter(func(ctx context.Context, s *domain.State) error {
			return e.store.Save(ctx, sessionID, s)
		}),
	)
	if err != nil {
		return nil, nil, err
	}
	return ctrl, state, nil
}

// view restores a read-only controller from one store snapshot.
func (e *Engine) view(ctx context.Context, sessionID string) (*workflow.Controller, error) {
	state, err := e.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return workflow.New(e.stages, workflow.WithState(state), workflow.WithPolicy(e.policy))
}

func (e *Engine) result(ctrl *workflow.Controller, before *domain.State, stageID string) *Result {
	after := ctrl.Snapshot()
	stage, _ := e.stages.Get(stageID)
	return &Result{
		Stage: stage,
		State: after,
		Diff:  domain.Diff(before, after),
	}
}

func (e *Engine) startSpan(ctx context.Context, name, sessionID string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, attribute.String("session.id", sessionID))
	return e.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func (e *Engine) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
