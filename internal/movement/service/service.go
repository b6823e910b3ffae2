// Package service implements the versioned waste-input record store: single
// and bulk create/update with append-only history, revision-based optimistic
// concurrency, batch idempotency, and best-effort audit emission.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"wastetrack/internal/movement/metrics"
	"wastetrack/internal/movement/models"
	"wastetrack/internal/movement/orgcode"
	"wastetrack/internal/movement/store"
	"wastetrack/internal/tracking"
	"wastetrack/pkg/platform/audit"
	"wastetrack/pkg/platform/backoff"
	dErrors "wastetrack/pkg/domain-errors"
)

// StoreTx provides the transactional boundary for record mutations. Every
// mutation (single or bulk) runs inside exactly one RunInTx call: either all
// of its writes commit or none do.
type StoreTx interface {
	RunInTx(ctx context.Context, fn func(s store.Store) error) error
}

// AuditDispatcher hands committed-mutation events to the async audit pipeline
// without blocking.
type AuditDispatcher interface {
	Dispatch(event audit.Event)
}

// AuditRetrier re-emits an audit event synchronously, surfacing failure.
// Backs the manual retry operation.
type AuditRetrier interface {
	EmitStrict(ctx context.Context, event audit.Event) error
}

// BulkCache is the optional non-authoritative fast path for batch idempotency
// pre-checks. A hit short-circuits duplicate batches before tracking ids are
// issued; a miss proves nothing and the authoritative in-transaction check
// still runs.
type BulkCache interface {
	Seen(ctx context.Context, bulkID string, generation models.BulkRevision) bool
	MarkSeen(ctx context.Context, bulkID string, generation models.BulkRevision) error
}

type Service struct {
	tx        StoreTx
	reader    store.Store
	validator *orgcode.Validator

	issuer  tracking.Issuer
	audit   AuditDispatcher
	retrier AuditRetrier
	cache   BulkCache
	metrics *metrics.Metrics
	logger  *slog.Logger

	createPolicy backoff.Policy
	mutatePolicy backoff.Policy
	batchSize    int
	now          func() time.Time
}

type Option func(*Service)

func WithIssuer(issuer tracking.Issuer) Option {
	return func(s *Service) { s.issuer = issuer }
}

func WithAuditDispatcher(dispatcher AuditDispatcher) Option {
	return func(s *Service) { s.audit = dispatcher }
}

func WithAuditRetrier(retrier AuditRetrier) Option {
	return func(s *Service) { s.retrier = retrier }
}

func WithBulkCache(cache BulkCache) Option {
	return func(s *Service) { s.cache = cache }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithBatchSize(n int) Option {
	return func(s *Service) { s.batchSize = n }
}

// WithClock fixes the service's notion of now for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithBackoff overrides both retry policies; tests and deploys shrink or
// stretch the delays.
func WithBackoff(initial, max time.Duration, attempts int) Option {
	return func(s *Service) {
		policy := backoff.NewPolicy(s.logger)
		policy.InitialDelay = initial
		policy.MaxDelay = max
		policy.MaxAttempts = attempts
		policy.Retryable = dErrors.Retryable
		s.mutatePolicy = policy
		create := policy
		create.MaxAttempts = min(attempts, backoff.CreateMaxAttempts)
		s.createPolicy = create
	}
}

func New(tx StoreTx, reader store.Store, validator *orgcode.Validator, logger *slog.Logger, opts ...Option) (*Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("store transaction runner is required")
	}
	if reader == nil {
		return nil, fmt.Errorf("store reader is required")
	}
	if validator == nil {
		return nil, fmt.Errorf("org code validator is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	svc := &Service{
		tx:        tx,
		reader:    reader,
		validator: validator,
		logger:    logger,
		batchSize: 10,
		now:       time.Now,
	}

	mutate := backoff.NewPolicy(logger)
	mutate.Retryable = dErrors.Retryable
	svc.mutatePolicy = mutate
	create := mutate
	create.MaxAttempts = backoff.CreateMaxAttempts
	svc.createPolicy = create

	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// retrying wraps op with the given policy and counts re-invocations.
func (s *Service) retrying(ctx context.Context, policy backoff.Policy, name string, op func(ctx context.Context) error) error {
	attempts := 0
	return policy.Do(ctx, name, func(ctx context.Context) error {
		attempts++
		if attempts > 1 {
			s.metrics.IncrementRetryAttempts()
		}
		return op(ctx)
	})
}

// dispatchAudit forwards a committed mutation to the audit pipeline. Absence
// of a dispatcher is a valid configuration (tests, tooling), not a failure.
func (s *Service) dispatchAudit(eventType audit.EventType, record models.WasteInput) {
	if s.audit == nil {
		return
	}
	s.audit.Dispatch(audit.Event{
		Type:    eventType,
		TraceID: record.TraceID,
		Version: 1,
		Data:    record,
	})
}
