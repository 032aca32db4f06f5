//go:build integration

package postgres_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	audit "petchain/pkg/platform/audit"
	"petchain/pkg/platform/audit/store/postgres"
	"petchain/pkg/platform/tx"
	"petchain/pkg/testutil/containers"
)

type OutboxStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *postgres.Store
}

func TestOutboxStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(OutboxStoreSuite))
}

func (s *OutboxStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = postgres.New(s.postgres.DB)
	s.Require().NoError(s.store.Migrate(context.Background()))
}

func (s *OutboxStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "outbox"))
}

func event(fingerprint string, at time.Time) audit.Event {
	return audit.Event{
		ID:          uuid.New(),
		Timestamp:   at,
		Action:      audit.ActionTransitionRejected,
		Command:     "transfer",
		Decision:    audit.DecisionRejected,
		RuleID:      "transfer.current_owner_signer",
		Reason:      "Current owner required to sign a pet transfer.",
		Kind:        "authorization",
		Fingerprint: fingerprint,
		Parties:     []string{"ed25519:alice", "ed25519:bob"},
	}
}

func (s *OutboxStoreSuite) TestAppendAndListRecent() {
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Millisecond)

	s.Require().NoError(s.store.Append(ctx, event("fp-old", base)))
	s.Require().NoError(s.store.Append(ctx, event("fp-new", base.Add(time.Second))))

	events, err := s.store.ListRecent(ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(events, 2)
	s.Equal("fp-new", events[0].Fingerprint)
	s.Equal("Current owner required to sign a pet transfer.", events[0].Reason)
	s.Equal([]string{"ed25519:alice", "ed25519:bob"}, events[0].Parties)
}

func (s *OutboxStoreSuite) TestFetchAndMarkPublished() {
	ctx := context.Background()
	base := time.Now().UTC()
	for i := range 3 {
		s.Require().NoError(s.store.Append(ctx, event("fp", base.Add(time.Duration(i)*time.Second))))
	}

	entries, err := s.store.FetchUnpublished(ctx, 2)
	s.Require().NoError(err)
	s.Require().Len(entries, 2)
	s.Equal(string(audit.ActionTransitionRejected), entries[0].EventType)
	s.Equal([]string{"ed25519:alice", "ed25519:bob"}, entries[0].Parties)
	s.True(entries[0].CreatedAt.Before(entries[1].CreatedAt))

	s.Require().NoError(s.store.MarkPublished(ctx, []uuid.UUID{entries[0].ID, entries[1].ID}, time.Now()))

	rest, err := s.store.FetchUnpublished(ctx, 10)
	s.Require().NoError(err)
	s.Len(rest, 1)
}

// Justification: a rolled back verdict transaction must leave no outbox row.
func (s *OutboxStoreSuite) TestAppendJoinsContextTransaction() {
	ctx := context.Background()
	boom := errors.New("boom")

	err := tx.Run(ctx, s.postgres.DB, func(ctx context.Context) error {
		s.Require().NoError(s.store.Append(ctx, event("fp-rolled-back", time.Now())))
		return boom
	})
	s.ErrorIs(err, boom)

	events, err := s.store.ListRecent(ctx, 10)
	s.Require().NoError(err)
	s.Empty(events)
}

// Justification: two relays must never publish the same row in one round.
func (s *OutboxStoreSuite) TestConcurrentFetchSkipsLockedRows() {
	ctx := context.Background()
	for range 4 {
		s.Require().NoError(s.store.Append(ctx, event("fp", time.Now())))
	}

	held := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- tx.Run(ctx, s.postgres.DB, func(ctx context.Context) error {
			entries, err := s.store.FetchUnpublished(ctx, 2)
			if err != nil {
				return err
			}
			if len(entries) != 2 {
				return errors.New("expected two locked rows")
			}
			close(held)
			<-release
			return nil
		})
	}()

	<-held
	err := tx.Run(ctx, s.postgres.DB, func(ctx context.Context) error {
		entries, err := s.store.FetchUnpublished(ctx, 10)
		if err != nil {
			return err
		}
		s.Len(entries, 2)
		return nil
	})
	close(release)
	s.Require().NoError(err)
	s.Require().NoError(<-done)
}
