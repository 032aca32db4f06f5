package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"petchain/internal/contract"
	"petchain/internal/contract/cache"
	"petchain/internal/contract/metrics"
	"petchain/internal/contract/models"
	"petchain/internal/contract/service/mocks"
	"petchain/internal/petstate"
	"petchain/pkg/domain"
	dErrors "petchain/pkg/domain-errors"
	audit "petchain/pkg/platform/audit"
	"petchain/pkg/platform/sentinel"
	"petchain/pkg/requestcontext"
)

var (
	alice = domain.NewParty("Alice", "ed25519:alice")
	bob   = domain.NewParty("Bob", "ed25519:bob")
)

func momo(owner domain.Party) petstate.PetState {
	return petstate.New(owner, "Momo", "Canine", "Cockapoo", "female", "beige", "2006-10-12", alice)
}

func bornTx() contract.Transaction {
	return contract.Transaction{
		Outputs:  []petstate.ContractState{momo(alice)},
		Commands: []contract.CommandType{contract.CommandBorn},
		Signers:  domain.NewKeySet(alice.OwningKey),
	}
}

func unsignedTransferTx() contract.Transaction {
	return contract.Transaction{
		Inputs:   []petstate.ContractState{momo(alice)},
		Outputs:  []petstate.ContractState{momo(bob)},
		Commands: []contract.CommandType{contract.CommandTransfer},
		Signers:  domain.NewKeySet(alice.OwningKey),
	}
}

type ServiceSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	cache     *mocks.MockVerdictCache
	publisher *mocks.MockAuditPublisher
	metrics   *metrics.Metrics
	service   *Service
	ctx       context.Context
	now       time.Time
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.cache = mocks.NewMockVerdictCache(s.ctrl)
	s.publisher = mocks.NewMockAuditPublisher(s.ctrl)
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithRequestID(requestcontext.WithTime(context.Background(), s.now), "req-1")

	svc, err := New(
		WithCache(s.cache),
		WithAuditPublisher(s.publisher),
		WithMetrics(s.metrics),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithMaxBatchSize(3),
	)
	s.Require().NoError(err)
	s.service = svc
}

// =============================================================================
// Verify
// =============================================================================

func (s *ServiceSuite) TestVerify_CacheMissEvaluatesAndStores() {
	tx := bornTx()
	fp := contract.Fingerprint(tx)

	s.cache.EXPECT().Get(gomock.Any(), fp).Return(nil, sentinel.ErrNotFound)
	s.cache.EXPECT().Set(gomock.Any(), fp, models.CachedVerdict{
		Command:  contract.CommandBorn,
		Accepted: true,
	}).Return(nil)
	s.publisher.EXPECT().Emit(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, event audit.Event) error {
			s.Equal(audit.ActionTransitionAccepted, event.Action)
			s.Equal(audit.DecisionAccepted, event.Decision)
			s.Equal(fp, event.Fingerprint)
			s.Equal("req-1", event.RequestID)
			s.Equal([]string{"ed25519:alice"}, event.Parties)
			s.Equal(s.now, event.Timestamp)
			return nil
		})

	result, err := s.service.Verify(s.ctx, tx)
	s.Require().NoError(err)
	s.True(result.Accepted)
	s.False(result.Cached)
	s.Equal(fp, result.Fingerprint)
	s.Equal(s.now, result.VerifiedAt)
	s.Equal(float64(1), promtestutil.ToFloat64(s.metrics.CacheLookups.WithLabelValues("miss")))
	s.Equal(float64(1), promtestutil.ToFloat64(s.metrics.Verdicts.WithLabelValues("born", "accepted", "none")))
}

func (s *ServiceSuite) TestVerify_RejectionIsAResultNotAnError() {
	tx := unsignedTransferTx()

	s.cache.EXPECT().Get(gomock.Any(), gomock.Any()).Return(nil, sentinel.ErrNotFound)
	s.cache.EXPECT().Set(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	s.publisher.EXPECT().Emit(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, event audit.Event) error {
			s.Equal(audit.ActionTransitionRejected, event.Action)
			s.Equal("transfer.new_owner_signer", event.RuleID)
			s.Equal([]string{"ed25519:alice", "ed25519:bob"}, event.Parties)
			return nil
		})

	result, err := s.service.Verify(s.ctx, tx)
	s.Require().NoError(err)
	s.False(result.Accepted)
	s.Equal("New owner required to sign a pet transfer.", result.Reason)
	s.Equal(contract.KindAuthorization, result.Kind)
}

func (s *ServiceSuite) TestVerify_NilPetPointerIsRejected() {
	var nilPet *petstate.PetState
	tx := contract.Transaction{
		Outputs:  []petstate.ContractState{nilPet},
		Commands: []contract.CommandType{contract.CommandBorn},
		Signers:  domain.NewKeySet(alice.OwningKey),
	}

	s.cache.EXPECT().Get(gomock.Any(), gomock.Any()).Return(nil, sentinel.ErrNotFound)
	s.cache.EXPECT().Set(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	s.publisher.EXPECT().Emit(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, event audit.Event) error {
			s.Empty(event.Parties)
			return nil
		})

	var result *models.Result
	var err error
	s.Require().NotPanics(func() { result, err = s.service.Verify(s.ctx, tx) })
	s.Require().NoError(err)
	s.False(result.Accepted)
	s.Equal(contract.ErrBornOutputType.RuleID, result.RuleID)
	s.Equal("Pet born output should be a PetState.", result.Reason)
}

func (s *ServiceSuite) TestVerify_CacheHitSkipsEvaluationStore() {
	tx := bornTx()
	cached := &models.CachedVerdict{Command: contract.CommandBorn, Accepted: true}

	s.cache.EXPECT().Get(gomock.Any(), contract.Fingerprint(tx)).Return(cached, nil)
	s.publisher.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(nil)

	result, err := s.service.Verify(s.ctx, tx)
	s.Require().NoError(err)
	s.True(result.Cached)
	s.True(result.Accepted)
	s.Equal(float64(1), promtestutil.ToFloat64(s.metrics.CacheLookups.WithLabelValues("hit")))
}

// Justification: the cache is an optimisation; an outage must not stop
// verification.
func (s *ServiceSuite) TestVerify_CacheFailuresAreIgnored() {
	tx := bornTx()

	s.cache.EXPECT().Get(gomock.Any(), gomock.Any()).Return(nil, sentinel.ErrUnavailable)
	s.cache.EXPECT().Set(gomock.Any(), gomock.Any(), gomock.Any()).Return(sentinel.ErrUnavailable)
	s.publisher.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(nil)

	result, err := s.service.Verify(s.ctx, tx)
	s.Require().NoError(err)
	s.True(result.Accepted)
	s.False(result.Cached)
	s.Equal(float64(1), promtestutil.ToFloat64(s.metrics.CacheLookups.WithLabelValues("error")))
}

// Justification: an unrecorded verdict must not be delivered.
func (s *ServiceSuite) TestVerify_AuditFailureFailsClosed() {
	s.cache.EXPECT().Get(gomock.Any(), gomock.Any()).Return(nil, sentinel.ErrNotFound)
	s.cache.EXPECT().Set(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	s.publisher.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(errors.New("outbox down"))

	result, err := s.service.Verify(s.ctx, bornTx())
	s.Require().Error(err)
	s.Nil(result)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}

func (s *ServiceSuite) TestVerify_CancelledContext() {
	ctx, cancel := context.WithCancel(s.ctx)
	cancel()

	_, err := s.service.Verify(ctx, bornTx())
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeTimeout))
}

func (s *ServiceSuite) TestVerify_UnknownCommandUsesBoundedLabel() {
	tx := bornTx()
	tx.Commands = []contract.CommandType{"adopt"}

	s.cache.EXPECT().Get(gomock.Any(), gomock.Any()).Return(nil, sentinel.ErrNotFound)
	s.cache.EXPECT().Set(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	s.publisher.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(nil)

	result, err := s.service.Verify(s.ctx, tx)
	s.Require().NoError(err)
	s.Equal("Unrecognized command!", result.Reason)
	s.Equal(float64(1), promtestutil.ToFloat64(s.metrics.Verdicts.WithLabelValues("unknown", "rejected", "command")))
}

// =============================================================================
// VerifyBatch
// =============================================================================

func (s *ServiceSuite) TestVerifyBatch_PreservesOrder() {
	s.cache.EXPECT().Get(gomock.Any(), gomock.Any()).Return(nil, sentinel.ErrNotFound).Times(3)
	s.cache.EXPECT().Set(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).Times(3)
	s.publisher.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(nil).Times(3)

	txs := []contract.Transaction{bornTx(), unsignedTransferTx(), bornTx()}
	results, err := s.service.VerifyBatch(s.ctx, txs)
	s.Require().NoError(err)
	s.Require().Len(results, 3)
	s.True(results[0].Accepted)
	s.False(results[1].Accepted)
	s.True(results[2].Accepted)
	s.Equal(results[0].Fingerprint, results[2].Fingerprint)
	s.NotEqual(results[0].ID, results[2].ID)
}

func (s *ServiceSuite) TestVerifyBatch_SizeLimits() {
	_, err := s.service.VerifyBatch(s.ctx, nil)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	txs := []contract.Transaction{bornTx(), bornTx(), bornTx(), bornTx()}
	_, err = s.service.VerifyBatch(s.ctx, txs)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *ServiceSuite) TestVerifyBatch_AuditFailureAbortsBatch() {
	s.cache.EXPECT().Get(gomock.Any(), gomock.Any()).Return(nil, sentinel.ErrNotFound).AnyTimes()
	s.cache.EXPECT().Set(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	s.publisher.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(errors.New("outbox down")).MinTimes(1)

	results, err := s.service.VerifyBatch(s.ctx, []contract.Transaction{bornTx(), bornTx()})
	s.Require().Error(err)
	s.Nil(results)
}

// =============================================================================
// Wiring
// =============================================================================

func TestNew_ValidatesOptions(t *testing.T) {
	_, err := New(WithMaxBatchSize(0))
	assert.Error(t, err)

	_, err = New(WithBatchConcurrency(-1))
	assert.Error(t, err)

	_, err = New(WithLogger(nil))
	assert.Error(t, err)

	svc, err := New()
	require.NoError(t, err)
	assert.Equal(t, defaultMaxBatchSize, svc.maxBatchSize)
}

func TestVerify_WithInMemoryCache(t *testing.T) {
	var emitted atomic.Int32
	svc, err := New(
		WithCache(cache.NewInMemoryCache(time.Minute)),
		WithAuditPublisher(publisherFunc(func(context.Context, audit.Event) error {
			emitted.Add(1)
			return nil
		})),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	require.NoError(t, err)

	first, err := svc.Verify(context.Background(), unsignedTransferTx())
	require.NoError(t, err)
	second, err := svc.Verify(context.Background(), unsignedTransferTx())
	require.NoError(t, err)

	assert.False(t, first.Cached)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Reason, second.Reason)
	assert.Equal(t, first.RuleID, second.RuleID)
	assert.Equal(t, int32(2), emitted.Load())
}

type publisherFunc func(context.Context, audit.Event) error

func (f publisherFunc) Emit(ctx context.Context, e audit.Event) error { return f(ctx, e) }
