package transfer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type TransferStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func (s *TransferStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func TestTransferStoreSuite(t *testing.T) {
	suite.Run(t, new(TransferStoreSuite))
}

func (s *TransferStoreSuite) newRecord(batchID string) Record {
	return Record{
		BatchID:    batchID,
		From:       makerAddr,
		To:         wholesalerAddr,
		ContentRef: testRef,
		LoggedAt:   time.Now(),
	}
}

func (s *TransferStoreSuite) TestSequencesAreDensePerBatch() {
	for i := 0; i < 3; i++ {
		record, err := s.store.Append(s.ctx, s.newRecord("B1"))
		s.Require().NoError(err)
		s.Equal(i, record.Sequence)
	}
	other, err := s.store.Append(s.ctx, s.newRecord("B2"))
	s.Require().NoError(err)
	s.Equal(0, other.Sequence, "each batch numbers its own history")

	records, err := s.store.ListByBatch(s.ctx, "B1")
	s.Require().NoError(err)
	s.Require().Len(records, 3)
	for i, record := range records {
		s.Equal(i, record.Sequence)
	}

	count, err := s.store.CountByBatch(s.ctx, "B1")
	s.Require().NoError(err)
	s.Equal(3, count)
}

func (s *TransferStoreSuite) TestReplayReproducesHistories() {
	for _, batchID := range []string{"B1", "B2", "B1"} {
		_, err := s.store.Append(s.ctx, s.newRecord(batchID))
		s.Require().NoError(err)
	}

	events, err := s.store.Events(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(events, 3)

	rebuilt := Replay(events)
	for _, batchID := range []string{"B1", "B2"} {
		live, err := s.store.ListByBatch(s.ctx, batchID)
		s.Require().NoError(err)
		s.Equal(live, rebuilt[batchID], "replayed history must equal live history")
	}
}

func (s *TransferStoreSuite) TestTimestampsNeverRegress() {
	first, err := s.store.Append(s.ctx, s.newRecord("B1"))
	s.Require().NoError(err)

	stale := s.newRecord("B1")
	stale.LoggedAt = first.LoggedAt.Add(-time.Hour)
	second, err := s.store.Append(s.ctx, stale)
	s.Require().NoError(err)
	s.False(second.LoggedAt.Before(first.LoggedAt))
}
