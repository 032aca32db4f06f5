package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks VerdictCache,AuditPublisher

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"petchain/internal/contract"
	"petchain/internal/contract/metrics"
	"petchain/internal/contract/models"
	"petchain/internal/petstate"
	dErrors "petchain/pkg/domain-errors"
	audit "petchain/pkg/platform/audit"
	"petchain/pkg/platform/sentinel"
	"petchain/pkg/requestcontext"
)

const (
	defaultMaxBatchSize     = 100
	defaultBatchConcurrency = 8
	tracerName              = "petchain/internal/contract/service"
)

// VerdictCache stores verdicts by transaction fingerprint. Get returns
// sentinel.ErrNotFound on a miss.
type VerdictCache interface {
	Get(ctx context.Context, fingerprint string) (*models.CachedVerdict, error)
	Set(ctx context.Context, fingerprint string, verdict models.CachedVerdict) error
}

// AuditPublisher records verdicts. It must be fail-closed: a returned error
// means the verdict was not recorded.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service wraps the pure contract with the cache, audit trail, metrics and
// tracing a deployed verifier needs. The contract stays the only authority:
// the cache can only replay a verdict the contract produced.
type Service struct {
	cache            VerdictCache
	auditPublisher   AuditPublisher
	logger           *slog.Logger
	metrics          *metrics.Metrics
	tracer           trace.Tracer
	maxBatchSize     int
	batchConcurrency int
}

// Option configures the Service.
type Option func(*Service)

func WithCache(cache VerdictCache) Option {
	return func(s *Service) { s.cache = cache }
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) { s.auditPublisher = publisher }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) { s.tracer = tracer }
}

func WithMaxBatchSize(n int) Option {
	return func(s *Service) { s.maxBatchSize = n }
}

func WithBatchConcurrency(n int) Option {
	return func(s *Service) { s.batchConcurrency = n }
}

// New constructs the verification service.
func New(opts ...Option) (*Service, error) {
	s := &Service{
		logger:           slog.Default(),
		tracer:           otel.Tracer(tracerName),
		maxBatchSize:     defaultMaxBatchSize,
		batchConcurrency: defaultBatchConcurrency,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.maxBatchSize <= 0 {
		return nil, errors.New("max batch size must be positive")
	}
	if s.batchConcurrency <= 0 {
		return nil, errors.New("batch concurrency must be positive")
	}
	if s.logger == nil {
		return nil, errors.New("logger is required")
	}
	return s, nil
}

// Verify evaluates one transaction. A rejection is a successful call with
// Result.Accepted false; an error means no verdict could be delivered.
func (s *Service) Verify(ctx context.Context, tx contract.Transaction) (*models.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeTimeout, "verification aborted")
	}

	start := time.Now()
	fingerprint := contract.Fingerprint(tx)

	ctx, span := s.tracer.Start(ctx, "contract.Verify",
		trace.WithAttributes(attribute.String("petchain.fingerprint", fingerprint)))
	defer span.End()

	verdict, cached := s.lookup(ctx, fingerprint)
	if !cached {
		v := models.FromVerdict(contract.Evaluate(tx))
		verdict = &v
		s.remember(ctx, fingerprint, v)
	}

	result := &models.Result{
		ID:          uuid.New(),
		Fingerprint: fingerprint,
		Command:     verdict.Command,
		Accepted:    verdict.Accepted,
		RuleID:      verdict.RuleID,
		Reason:      verdict.Reason,
		Kind:        verdict.Kind,
		VerifiedAt:  requestcontext.Now(ctx),
		Cached:      cached,
	}

	span.SetAttributes(
		attribute.String("petchain.command", string(result.Command)),
		attribute.Bool("petchain.accepted", result.Accepted),
		attribute.String("petchain.rule_id", result.RuleID),
		attribute.Bool("petchain.cached", cached),
	)

	if err := s.emitAudit(ctx, result, tx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "audit failed")
		s.logger.ErrorContext(ctx, "verdict audit failed",
			"request_id", requestcontext.RequestID(ctx),
			"fingerprint", fingerprint,
			"error", err,
		)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record verdict")
	}

	s.metrics.IncrementVerdict(commandLabel(result.Command), result.Accepted, string(result.Kind))
	s.metrics.ObserveVerifyLatency(time.Since(start))

	s.logger.InfoContext(ctx, "transaction verified",
		"request_id", requestcontext.RequestID(ctx),
		"fingerprint", fingerprint,
		"command", result.Command,
		"accepted", result.Accepted,
		"rule_id", result.RuleID,
		"cached", cached,
	)

	return result, nil
}

// VerifyBatch verifies independent transactions in parallel. Results are in
// input order. The first infrastructure error aborts the batch; rejections
// do not.
func (s *Service) VerifyBatch(ctx context.Context, txs []contract.Transaction) ([]*models.Result, error) {
	if len(txs) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "at least one transaction is required")
	}
	if len(txs) > s.maxBatchSize {
		return nil, dErrors.New(dErrors.CodeValidation, "batch exceeds maximum size")
	}
	s.metrics.ObserveBatchSize(len(txs))

	results := make([]*models.Result, len(txs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.batchConcurrency)

	for i, tx := range txs {
		g.Go(func() error {
			r, err := s.Verify(gctx, tx)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// lookup consults the cache. Cache trouble is never fatal: the contract can
// always recompute the verdict.
func (s *Service) lookup(ctx context.Context, fingerprint string) (*models.CachedVerdict, bool) {
	if s.cache == nil {
		return nil, false
	}

	verdict, err := s.cache.Get(ctx, fingerprint)
	switch {
	case err == nil && verdict != nil:
		s.metrics.IncrementCacheLookup("hit")
		return verdict, true
	case err == nil, errors.Is(err, sentinel.ErrNotFound):
		s.metrics.IncrementCacheLookup("miss")
	default:
		s.metrics.IncrementCacheLookup("error")
		s.logger.WarnContext(ctx, "verdict cache lookup failed",
			"fingerprint", fingerprint,
			"error", err,
		)
	}
	return nil, false
}

func (s *Service) remember(ctx context.Context, fingerprint string, verdict models.CachedVerdict) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, fingerprint, verdict); err != nil {
		s.logger.WarnContext(ctx, "verdict cache store failed",
			"fingerprint", fingerprint,
			"error", err,
		)
	}
}

func (s *Service) emitAudit(ctx context.Context, result *models.Result, tx contract.Transaction) error {
	if s.auditPublisher == nil {
		return nil
	}
	return s.auditPublisher.Emit(ctx, audit.Event{
		ID:          result.ID,
		Timestamp:   result.VerifiedAt,
		Action:      audit.ActionFor(result.Accepted),
		Command:     string(result.Command),
		Decision:    audit.DecisionFor(result.Accepted),
		RuleID:      result.RuleID,
		Reason:      result.Reason,
		Kind:        string(result.Kind),
		Fingerprint: result.Fingerprint,
		RequestID:   requestcontext.RequestID(ctx),
		Parties:     partyKeys(tx),
	})
}

// partyKeys returns the sorted, de-duplicated owning keys of every
// participant of every state in tx.
func partyKeys(tx contract.Transaction) []string {
	var keys []string
	for _, states := range [][]petstate.ContractState{tx.Inputs, tx.Outputs} {
		for _, st := range states {
			for _, p := range petstate.ParticipantsOf(st) {
				if !p.IsNil() {
					keys = append(keys, p.OwningKey.String())
				}
			}
		}
	}
	slices.Sort(keys)
	return slices.Compact(keys)
}

// commandLabel bounds metric label cardinality: unknown commands come from
// callers and are collapsed into one label.
func commandLabel(cmd contract.CommandType) string {
	switch {
	case cmd == "":
		return "none"
	case cmd.IsKnown():
		return string(cmd)
	default:
		return "unknown"
	}
}
