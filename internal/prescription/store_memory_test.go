package prescription

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"pharmledger/pkg/platform/sentinel"
)

type PrescriptionStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func (s *PrescriptionStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func TestPrescriptionStoreSuite(t *testing.T) {
	suite.Run(t, new(PrescriptionStoreSuite))
}

func (s *PrescriptionStoreSuite) newPrescription(prescriptionID string) Prescription {
	return Prescription{
		PrescriptionID: prescriptionID,
		BatchID:        "B1",
		Patient:        patientAddr,
		ContentRef:     testRef,
		IssuedBy:       doctorAddr,
		IssuedAt:       time.Now(),
	}
}

func (s *PrescriptionStoreSuite) fulfill(prescriptionID string) (Prescription, error) {
	now := time.Now()
	return s.store.Fulfill(s.ctx, prescriptionID,
		func(p Prescription) error {
			if p.Fulfilled {
				return sentinel.ErrInvalidState
			}
			return nil
		},
		func(p *Prescription) {
			p.Fulfilled = true
			p.FulfilledBy = pharmacyAddr
			p.FulfilledAt = &now
		},
	)
}

func (s *PrescriptionStoreSuite) TestCreateAndLookups() {
	s.Run("creates and finds a prescription", func() {
		record := s.newPrescription("P1")
		s.Require().NoError(s.store.Create(s.ctx, record))

		found, err := s.store.Find(s.ctx, "P1")
		s.Require().NoError(err)
		s.Equal(record.BatchID, found.BatchID)
		s.False(found.Fulfilled)
	})

	s.Run("rejects duplicate id", func() {
		err := s.store.Create(s.ctx, s.newPrescription("P1"))
		s.Require().ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("returns ErrNotFound for unknown id", func() {
		_, err := s.store.Find(s.ctx, "missing")
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *PrescriptionStoreSuite) TestFulfillTransition() {
	s.Require().NoError(s.store.Create(s.ctx, s.newPrescription("P1")))

	fulfilled, err := s.fulfill("P1")
	s.Require().NoError(err)
	s.True(fulfilled.Fulfilled)

	s.Run("validate error aborts the write", func() {
		_, err := s.fulfill("P1")
		s.Require().ErrorIs(err, sentinel.ErrInvalidState)

		events, err := s.store.Events(s.ctx)
		s.Require().NoError(err)
		s.Len(events, 2, "issued plus one fulfillment, the aborted write logs nothing")
	})

	s.Run("callback error passes through unwrapped", func() {
		s.Require().NoError(s.store.Create(s.ctx, s.newPrescription("P2")))
		boom := errors.New("boom")
		_, err := s.store.Fulfill(s.ctx, "P2",
			func(Prescription) error { return boom },
			func(*Prescription) {},
		)
		s.Require().ErrorIs(err, boom)
	})

	s.Run("unknown id returns ErrNotFound", func() {
		_, err := s.fulfill("missing")
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *PrescriptionStoreSuite) TestReplayReproducesKeyedState() {
	for i := 0; i < 4; i++ {
		s.Require().NoError(s.store.Create(s.ctx, s.newPrescription(fmt.Sprintf("P%d", i))))
	}
	_, err := s.fulfill("P1")
	s.Require().NoError(err)

	events, err := s.store.Events(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(events, 5)

	rebuilt := Replay(events)
	s.Len(rebuilt, 4)
	for prescriptionID, record := range rebuilt {
		live, err := s.store.Find(s.ctx, prescriptionID)
		s.Require().NoError(err)
		s.Equal(live, record, "replayed record must equal live record")
	}

	pending := ReplayUnfulfilled(events)
	ids := make([]string, 0, len(pending))
	for _, p := range pending {
		ids = append(ids, p.PrescriptionID)
	}
	s.Equal([]string{"P0", "P2", "P3"}, ids)
}

func (s *PrescriptionStoreSuite) TestTimestampsNeverRegress() {
	first := s.newPrescription("P1")
	s.Require().NoError(s.store.Create(s.ctx, first))

	second := s.newPrescription("P2")
	second.IssuedAt = first.IssuedAt.Add(-time.Hour)
	s.Require().NoError(s.store.Create(s.ctx, second))

	events, err := s.store.Events(s.ctx)
	s.Require().NoError(err)
	s.False(events[1].Prescription.IssuedAt.Before(events[0].Prescription.IssuedAt))
}
