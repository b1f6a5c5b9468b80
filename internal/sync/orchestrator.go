package sync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"

	"github.com/voyagedesk/inventory-sync/internal/connector"
	"github.com/voyagedesk/inventory-sync/internal/inventory"
	"github.com/voyagedesk/inventory-sync/internal/lock"
	"github.com/voyagedesk/inventory-sync/internal/logger"
	"github.com/voyagedesk/inventory-sync/internal/otel"
	"github.com/voyagedesk/inventory-sync/internal/store"
	"github.com/voyagedesk/inventory-sync/internal/telemetry"
)

const (
	// DefaultRunTimeout bounds the processing of one run
	DefaultRunTimeout = 10 * time.Minute

	// DefaultQueueTimeout bounds how long a run waits for a processing slot
	DefaultQueueTimeout = 30 * time.Minute

	// DefaultItemTimeout bounds one write-through
	DefaultItemTimeout = 10 * time.Second

	// DefaultMaxConcurrentRuns caps runs in the running state
	DefaultMaxConcurrentRuns = 4

	// DefaultFetchAttempts is the number of fetch attempts per run
	DefaultFetchAttempts = 3

	finalizeTimeout = 30 * time.Second
)

// ErrShuttingDown is returned by Start once Shutdown has been called
var ErrShuttingDown = errors.New("sync orchestrator is shutting down")

// ConflictResolver applies a resolution strategy to a pending conflict
type ConflictResolver interface {
	Resolve(
		ctx context.Context,
		conflictID string,
		resolution inventory.Resolution,
		override inventory.Fields,
		resolvedBy string,
	) (*inventory.SyncConflict, error)
}

// ErrorRecorder persists operational failures as SyncErrors
type ErrorRecorder interface {
	Record(ctx context.Context, syncErr *inventory.SyncError) (*inventory.SyncError, error)
}

// SupplierStatus is the live view of one supplier's synchronization
type SupplierStatus struct {
	SupplierID string             `json:"supplierId"`
	Enabled    bool               `json:"enabled"`
	IsSyncing  bool               `json:"isSyncing"`
	Progress   int                `json:"progress"`
	Run        *inventory.SyncRun `json:"run,omitempty"`
}

// FetchRetry is the connector retry policy of a run
type FetchRetry struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// activeRun tracks a run goroutine of this process
type activeRun struct {
	supplierID string
	cancel     context.CancelFunc
	done       chan struct{}
}

// Orchestrator starts and executes sync runs
type Orchestrator struct {
	store      store.Store
	connectors connector.Provider
	locker     lock.Locker
	resolver   ConflictResolver
	recorder   ErrorRecorder

	tenant       string
	runTimeout   time.Duration
	queueTimeout time.Duration
	itemTimeout  time.Duration
	fetchRetry   FetchRetry
	slots        *semaphore.Weighted
	metrics      *telemetry.SyncMetrics
	tracer       trace.Tracer
	now          func() time.Time

	// Lifecycle management
	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	mu       sync.Mutex
	inflight map[string]*activeRun
	closed   bool
}

// Option configures the Orchestrator
type Option func(*Orchestrator)

// WithTenant stamps runs with the tenant name
func WithTenant(tenant string) Option {
	return func(o *Orchestrator) {
		o.tenant = tenant
	}
}

// WithRunTimeout bounds the processing of one run
func WithRunTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.runTimeout = d
		}
	}
}

// WithQueueTimeout bounds how long a queued run waits for a slot
func WithQueueTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.queueTimeout = d
		}
	}
}

// WithItemTimeout bounds one write-through
func WithItemTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.itemTimeout = d
		}
	}
}

// WithMaxConcurrentRuns caps how many runs process at once
func WithMaxConcurrentRuns(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.slots = semaphore.NewWeighted(int64(n))
		}
	}
}

// WithFetchRetry sets the connector retry policy
func WithFetchRetry(policy FetchRetry) Option {
	return func(o *Orchestrator) {
		o.fetchRetry = policy
	}
}

// WithMetrics records run, conflict and error metrics
func WithMetrics(metrics *telemetry.SyncMetrics) Option {
	return func(o *Orchestrator) {
		o.metrics = metrics
	}
}

// WithTracer enables tracing
func WithTracer(tracer trace.Tracer) Option {
	return func(o *Orchestrator) {
		o.tracer = tracer
	}
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		o.now = now
	}
}

// New creates an Orchestrator. Call Shutdown to stop in-flight runs.
func New(
	s store.Store,
	connectors connector.Provider,
	locker lock.Locker,
	resolver ConflictResolver,
	recorder ErrorRecorder,
	opts ...Option,
) *Orchestrator {
	ctx, cancel := context.WithCancel(context.Background())
	o := &Orchestrator{
		store:        s,
		connectors:   connectors,
		locker:       locker,
		resolver:     resolver,
		recorder:     recorder,
		runTimeout:   DefaultRunTimeout,
		queueTimeout: DefaultQueueTimeout,
		itemTimeout:  DefaultItemTimeout,
		fetchRetry: FetchRetry{
			MaxAttempts:  DefaultFetchAttempts,
			InitialDelay: time.Second,
			MaxDelay:     30 * time.Second,
		},
		slots:    semaphore.NewWeighted(DefaultMaxConcurrentRuns),
		now:      time.Now,
		baseCtx:  ctx,
		cancel:   cancel,
		inflight: make(map[string]*activeRun),
	}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

// Start creates a queued run for the supplier and processes it in the
// background. It returns as soon as the run is persisted.
func (o *Orchestrator) Start(
	ctx context.Context, supplierID string, trigger inventory.Trigger,
) (*inventory.SyncRun, error) {
	ctx, span := otel.StartSpan(ctx, o.tracer, "sync.Start",
		trace.WithAttributes(otel.AttrSupplierID.String(supplierID), otel.AttrTrigger.String(string(trigger))),
	)
	defer span.End()

	run, err := o.start(ctx, supplierID, trigger)
	if err != nil {
		otel.RecordError(span, err)
		return nil, err
	}
	span.SetAttributes(otel.AttrRunID.String(run.ID))
	return run, nil
}

func (o *Orchestrator) start(
	ctx context.Context, supplierID string, trigger inventory.Trigger,
) (*inventory.SyncRun, error) {
	profile, err := o.store.GetProfile(ctx, supplierID)
	if err != nil {
		return nil, fmt.Errorf("supplier %s: %w", supplierID, err)
	}
	if !profile.Enabled {
		return nil, fmt.Errorf("supplier %s: %w", supplierID, inventory.ErrSupplierDisabled)
	}
	conn, err := o.connectors.Connector(supplierID)
	if err != nil {
		return nil, fmt.Errorf("supplier %s has no connector: %w", supplierID, err)
	}

	release, err := o.locker.TryLock(ctx, supplierID)
	if err != nil {
		return nil, fmt.Errorf("supplier %s: %w", supplierID, err)
	}

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		release()
		return nil, ErrShuttingDown
	}

	run := &inventory.SyncRun{
		ID:         uuid.NewString(),
		SupplierID: supplierID,
		Tenant:     o.tenant,
		Status:     inventory.RunStatusQueued,
		Trigger:    trigger,
		StartedAt:  o.now().UTC(),
	}
	if err := o.store.CreateRun(ctx, run); err != nil {
		o.mu.Unlock()
		release()
		return nil, fmt.Errorf("failed to create run for supplier %s: %w", supplierID, err)
	}

	runCtx, cancel := context.WithCancel(o.baseCtx)
	active := &activeRun{supplierID: supplierID, cancel: cancel, done: make(chan struct{})}
	o.inflight[run.ID] = active
	o.wg.Add(1)
	o.mu.Unlock()

	logger.Infof("Supplier '%s': %s sync queued as run %s", supplierID, trigger, run.ID)

	st := &runState{
		run:     run.Clone(),
		profile: profile,
		conn:    conn,
		release: release,
	}
	go o.execute(runCtx, st, active)

	return run, nil
}

// Wait blocks until the run is terminal or ctx is done and returns the
// latest persisted state of the run
func (o *Orchestrator) Wait(ctx context.Context, runID string) (*inventory.SyncRun, error) {
	o.mu.Lock()
	active := o.inflight[runID]
	o.mu.Unlock()

	if active != nil {
		select {
		case <-active.done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return o.store.GetRun(ctx, runID)
}

// Status returns the current or most recent run of the supplier
func (o *Orchestrator) Status(ctx context.Context, supplierID string) (*SupplierStatus, error) {
	profile, err := o.store.GetProfile(ctx, supplierID)
	if err != nil {
		return nil, fmt.Errorf("supplier %s: %w", supplierID, err)
	}
	return o.statusOf(ctx, profile)
}

// StatusAll returns one status per known supplier
func (o *Orchestrator) StatusAll(ctx context.Context) ([]*SupplierStatus, error) {
	profiles, err := o.store.ListProfiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	out := make([]*SupplierStatus, 0, len(profiles))
	for _, p := range profiles {
		st, err := o.statusOf(ctx, p)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, nil
}

func (o *Orchestrator) statusOf(ctx context.Context, profile *inventory.Profile) (*SupplierStatus, error) {
	st := &SupplierStatus{SupplierID: profile.SupplierID, Enabled: profile.Enabled}

	run, err := o.store.LatestRun(ctx, profile.SupplierID)
	if errors.Is(err, inventory.ErrNotFound) {
		return st, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load latest run of supplier %s: %w", profile.SupplierID, err)
	}

	st.Run = run
	st.IsSyncing = run.Status.IsActive()
	st.Progress = run.ProgressPercent
	return st, nil
}

// Recover fails runs left queued or running by a previous process. Runs whose
// supplier lock is held elsewhere are left alone. Returns how many runs were
// failed.
func (o *Orchestrator) Recover(ctx context.Context) (int, error) {
	runs, err := o.store.ListActiveRuns(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list active runs: %w", err)
	}

	recovered := 0
	for _, run := range runs {
		o.mu.Lock()
		_, local := o.inflight[run.ID]
		o.mu.Unlock()
		if local {
			continue
		}

		release, err := o.locker.TryLock(ctx, run.SupplierID)
		if errors.Is(err, inventory.ErrAlreadyRunning) {
			logger.Infof("Supplier '%s': run %s is owned by another instance", run.SupplierID, run.ID)
			continue
		}
		if err != nil {
			return recovered, fmt.Errorf("failed to lock supplier %s: %w", run.SupplierID, err)
		}

		err = o.failInterrupted(ctx, run)
		release()
		if err != nil {
			return recovered, err
		}
		recovered++
	}

	if recovered > 0 {
		logger.Warnf("Marked %d interrupted run(s) as failed", recovered)
	}
	return recovered, nil
}

func (o *Orchestrator) failInterrupted(ctx context.Context, run *inventory.SyncRun) error {
	finished := o.now().UTC()
	run.Status = inventory.RunStatusFailed
	run.FinishedAt = &finished
	run.Message = "run interrupted by a restart"
	run.RecomputeProgress()

	if err := o.store.UpdateRun(ctx, run); err != nil {
		return fmt.Errorf("failed to update interrupted run %s: %w", run.ID, err)
	}
	entry, err := o.historyEntry(ctx, run)
	if err != nil {
		return err
	}
	if err := o.store.AppendHistory(ctx, entry); err != nil {
		return fmt.Errorf("failed to append history for run %s: %w", run.ID, err)
	}
	logger.Warnf("Supplier '%s': run %s was interrupted and is now failed", run.SupplierID, run.ID)
	return nil
}

// Shutdown refuses new runs, cancels in-flight ones and waits for their
// finalization or for ctx to end
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.mu.Lock()
	o.closed = true
	n := len(o.inflight)
	o.mu.Unlock()

	if n > 0 {
		logger.Infof("Cancelling %d in-flight sync run(s)", n)
	}
	o.cancel()

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for sync runs to finish: %w", ctx.Err())
	}
}

func (o *Orchestrator) forget(runID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.inflight, runID)
}

// historyEntry builds the ledger copy of a terminal run
func (o *Orchestrator) historyEntry(ctx context.Context, run *inventory.SyncRun) (*inventory.HistoryEntry, error) {
	conflicts, err := o.store.ListConflicts(ctx, inventory.ConflictFilter{RunID: run.ID})
	if err != nil {
		return nil, fmt.Errorf("failed to count conflicts of run %s: %w", run.ID, err)
	}
	syncErrs, err := o.store.ListErrors(ctx, inventory.ErrorFilter{RunID: run.ID})
	if err != nil {
		return nil, fmt.Errorf("failed to count errors of run %s: %w", run.ID, err)
	}

	entry := &inventory.HistoryEntry{
		SyncRun:       *run.Clone(),
		ConflictCount: len(conflicts),
		ErrorCount:    len(syncErrs),
	}
	for _, c := range conflicts {
		if c.Status == inventory.ConflictStatusPending {
			entry.PendingConflictCount++
		}
	}
	return entry, nil
}
