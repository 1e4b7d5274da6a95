// Package store is the authoritative in-memory reservation set.
//
// A Store owns its lock. Callers group the steps of a booking transaction in
// Update, which runs them under a single write-lock acquisition, so a
// check-availability-then-insert sequence can never interleave with another
// transaction. Reads that do not take part in a transaction use View or the
// convenience finders, which take the read lock and return copies.
//
// Every committed insert and remove is written to the journal after the store
// lock is released. The journal lock is taken before the store lock is
// dropped, so journal writes happen in the same order as the mutations. A
// journal failure is returned wrapped in domain.ErrPersistence; the in-memory
// change stays applied.
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"

	"github.com/sirpyerre/hotel-reservations/internal/core/domain"
	"github.com/sirpyerre/hotel-reservations/internal/core/ports"
)

type changeKind int

const (
	changeInsert changeKind = iota
	changeRemove
)

type change struct {
	kind changeKind
	res  domain.Reservation
}

// Store holds confirmed reservations ordered by id.
type Store struct {
	mu     sync.RWMutex
	rows   []domain.Reservation
	lastID domain.ReservationID

	journalMu sync.Mutex
	journal   ports.ReservationJournal
	log       zerolog.Logger
}

// New returns an empty store. journal may be nil, in which case mutations are
// kept in memory only.
func New(journal ports.ReservationJournal, log zerolog.Logger) *Store {
	return &Store{journal: journal, log: log}
}

// Load replaces the store content with previously persisted rows without
// journaling them. lastIssued is the persisted id high-water mark; the next
// id handed out is greater than both it and every loaded id.
func (s *Store) Load(rows []domain.Reservation, lastIssued domain.ReservationID) {
	sorted := make([]domain.Reservation, len(rows))
	copy(sorted, rows)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	s.mu.Lock()
	defer s.mu.Unlock()

	s.rows = sorted
	s.lastID = lastIssued
	if n := len(sorted); n > 0 && sorted[n-1].ID > s.lastID {
		s.lastID = sorted[n-1].ID
	}
}

// View runs fn with a read-only transaction under the read lock.
func (s *Store) View(fn func(tx *Tx)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(&Tx{s: s})
}

// Update runs fn under the write lock. Mutations made through tx are visible
// to other goroutines only after fn returns, and are journaled afterwards.
// fn's own error is returned as-is, joined with any journal error.
// Functions registered with tx.OnCommit run after the journal write, still
// under the journal lock, so they observe commits in commit order.
func (s *Store) Update(ctx context.Context, fn func(tx *Tx) error) error {
	tx, lastIssued, err := s.apply(fn)
	if len(tx.changes) == 0 {
		tx.runCommitted()
		return err
	}
	defer s.journalMu.Unlock()

	perr := s.record(ctx, tx.changes, lastIssued)
	tx.runCommitted()
	if perr != nil {
		return errors.Join(err, perr)
	}
	return err
}

// apply runs fn under the write lock. When fn produced changes, the journal
// lock is acquired before the write lock is released and must be released by
// the caller.
func (s *Store) apply(fn func(tx *Tx) error) (*Tx, domain.ReservationID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &Tx{s: s, writable: true}
	err := fn(tx)
	if len(tx.changes) > 0 {
		s.journalMu.Lock()
	}
	return tx, s.lastID, err
}

func (s *Store) record(ctx context.Context, changes []change, lastIssued domain.ReservationID) error {
	if s.journal == nil {
		return nil
	}

	var errs []error
	for _, c := range changes {
		var err error
		switch c.kind {
		case changeInsert:
			err = s.journal.SaveReservation(ctx, c.res)
		case changeRemove:
			err = s.journal.DeleteReservation(ctx, c.res.ID, lastIssued)
		}
		if err != nil {
			s.log.Error().Err(err).
				Uint32("reservation_id", uint32(c.res.ID)).
				Msg("failed to journal reservation change")
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", domain.ErrPersistence, errors.Join(errs...))
}

// Insert stores a new reservation and returns its id. The caller is expected
// to have validated it; Insert itself never rejects a row.
func (s *Store) Insert(ctx context.Context, clientID domain.ClientID, roomID domain.RoomID, start, end civil.Date, guests uint8) (domain.ReservationID, error) {
	var id domain.ReservationID
	err := s.Update(ctx, func(tx *Tx) error {
		id = tx.Insert(clientID, roomID, start, end, guests)
		return nil
	})
	return id, err
}

// Remove deletes a reservation and returns it. A missing id is a no-op.
func (s *Store) Remove(ctx context.Context, id domain.ReservationID) (domain.Reservation, bool, error) {
	var (
		prev  domain.Reservation
		found bool
	)
	err := s.Update(ctx, func(tx *Tx) error {
		prev, found = tx.Remove(id)
		return nil
	})
	return prev, found, err
}

// FindByID returns a copy of the reservation with the given id.
func (s *Store) FindByID(id domain.ReservationID) (r domain.Reservation, ok bool) {
	s.View(func(tx *Tx) { r, ok = tx.FindByID(id) })
	return r, ok
}

// FindByClient returns the client's reservations in insertion order.
func (s *Store) FindByClient(clientID domain.ClientID) (out []domain.Reservation) {
	s.View(func(tx *Tx) { out = tx.FindByClient(clientID) })
	return out
}

// AllForRoom returns the room's reservations in insertion order.
func (s *Store) AllForRoom(roomID domain.RoomID) (out []domain.Reservation) {
	s.View(func(tx *Tx) { out = tx.AllForRoom(roomID) })
	return out
}

// All returns every reservation together with the id high-water mark, read
// under one lock acquisition.
func (s *Store) All() (out []domain.Reservation, lastIssued domain.ReservationID) {
	s.View(func(tx *Tx) {
		out = tx.All()
		lastIssued = tx.LastIssued()
	})
	return out, lastIssued
}

// Len returns the number of live reservations.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}

// Checkpoint calls fn with a consistent copy of the store while holding the
// journal lock, so no journal write can land between the copy and fn. It is
// meant for full snapshots: mutations committed while fn runs are journaled
// after it returns.
func (s *Store) Checkpoint(fn func(rows []domain.Reservation, lastIssued domain.ReservationID) error) error {
	s.mu.RLock()
	s.journalMu.Lock()
	defer s.journalMu.Unlock()

	rows := make([]domain.Reservation, len(s.rows))
	copy(rows, s.rows)
	lastIssued := s.lastID
	s.mu.RUnlock()

	return fn(rows, lastIssued)
}
