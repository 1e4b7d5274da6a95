// Package csvstore persists the booking dataset as a directory of CSV files.
//
// Layout (no header rows):
//
//	rooms.csv         room_id,max_guests
//	clients.csv       client_id,email,password_hash,role,created_at
//	reservations.csv  reservation_id,client_id,room_id,date_start,date_end,guest_count
//	sequence.csv      name,value  ("reservation" and "client" high-water marks)
//
// New rows are appended. Deletions and snapshots rewrite the affected file
// through a temporary file and a rename, so a crash never leaves a file half
// written. A missing file loads as empty.
package csvstore

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/sirpyerre/hotel-reservations/internal/core/domain"
)

const (
	roomsFile        = "rooms.csv"
	clientsFile      = "clients.csv"
	reservationsFile = "reservations.csv"
	sequenceFile     = "sequence.csv"

	seqReservation = "reservation"
	seqClient      = "client"
)

// Storage implements ports.Storage on a local directory.
type Storage struct {
	dir string
	mu  sync.Mutex
}

// Open returns a Storage rooted at dir, creating the directory if needed.
func Open(dir string) (*Storage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("csvstore: create data dir: %w", err)
	}
	return &Storage{dir: dir}, nil
}

// Dir returns the data directory.
func (s *Storage) Dir() string { return s.dir }

// Load reads every file. A row that does not parse is fatal.
func (s *Storage) Load(_ context.Context) (*domain.Dataset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ds := &domain.Dataset{}

	err := s.readFile(roomsFile, 2, func(rec []string) error {
		room, err := decodeRoom(rec)
		if err == nil {
			ds.Rooms = append(ds.Rooms, room)
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	err = s.readFile(clientsFile, 5, func(rec []string) error {
		c, err := decodeClient(rec)
		if err == nil {
			ds.Clients = append(ds.Clients, c)
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	err = s.readFile(reservationsFile, 6, func(rec []string) error {
		r, err := decodeReservation(rec)
		if err == nil {
			ds.Reservations = append(ds.Reservations, r)
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	ds.LastReservationID, ds.LastClientID, err = s.readSequence()
	if err != nil {
		return nil, err
	}

	return ds, nil
}

// SaveReservation appends one reservation row.
func (s *Storage) SaveReservation(_ context.Context, r domain.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendRow(reservationsFile, encodeReservation(r))
}

// DeleteReservation rewrites reservations.csv without the given id and records
// the id high-water mark.
func (s *Storage) DeleteReservation(_ context.Context, id domain.ReservationID, lastIssued domain.ReservationID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rows [][]string
	want := strconv.FormatUint(uint64(id), 10)
	err := s.readFile(reservationsFile, 6, func(rec []string) error {
		if rec[0] != want {
			rows = append(rows, rec)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if err := s.writeFile(reservationsFile, rows); err != nil {
		return err
	}

	_, lastClient, err := s.readSequence()
	if err != nil {
		return err
	}
	return s.writeSequence(lastIssued, lastClient)
}

// SaveClient appends one client row.
func (s *Storage) SaveClient(_ context.Context, c domain.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendRow(clientsFile, encodeClient(c))
}

// Snapshot rewrites every file from d.
func (s *Storage) Snapshot(_ context.Context, d *domain.Dataset) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rooms := make([][]string, 0, len(d.Rooms))
	for _, r := range d.Rooms {
		rooms = append(rooms, encodeRoom(r))
	}
	clients := make([][]string, 0, len(d.Clients))
	for _, c := range d.Clients {
		clients = append(clients, encodeClient(c))
	}
	reservations := make([][]string, 0, len(d.Reservations))
	for _, r := range d.Reservations {
		reservations = append(reservations, encodeReservation(r))
	}

	if err := s.writeFile(roomsFile, rooms); err != nil {
		return err
	}
	if err := s.writeFile(clientsFile, clients); err != nil {
		return err
	}
	if err := s.writeFile(reservationsFile, reservations); err != nil {
		return err
	}
	return s.writeSequence(d.LastReservationID, d.LastClientID)
}

// --- File helpers ---

func (s *Storage) path(name string) string {
	return filepath.Join(s.dir, name)
}

// readFile streams the records of name to fn. Field count mismatches and fn
// errors are reported as ErrCorruptData with the file and line.
func (s *Storage) readFile(name string, fields int, fn func(rec []string) error) error {
	f, err := os.Open(s.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("csvstore: open %s: %w", name, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = fields
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: %s: %v", domain.ErrCorruptData, name, err)
		}
		if err := fn(rec); err != nil {
			line, _ := r.FieldPos(0)
			return fmt.Errorf("%w: %s line %d: %v", domain.ErrCorruptData, name, line, err)
		}
	}
}

func (s *Storage) appendRow(name string, rec []string) error {
	f, err := os.OpenFile(s.path(name), os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("csvstore: open %s: %w", name, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(rec); err != nil {
		f.Close()
		return fmt.Errorf("csvstore: append %s: %w", name, err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("csvstore: append %s: %w", name, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("csvstore: sync %s: %w", name, err)
	}
	return f.Close()
}

// writeFile replaces name with rows atomically.
func (s *Storage) writeFile(name string, rows [][]string) error {
	tmp, err := os.CreateTemp(s.dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("csvstore: create temp for %s: %w", name, err)
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.WriteAll(rows); err != nil {
		tmp.Close()
		return fmt.Errorf("csvstore: write %s: %w", name, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("csvstore: sync %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("csvstore: close %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), s.path(name)); err != nil {
		return fmt.Errorf("csvstore: replace %s: %w", name, err)
	}
	return nil
}

func (s *Storage) readSequence() (domain.ReservationID, domain.ClientID, error) {
	var (
		lastRes    domain.ReservationID
		lastClient domain.ClientID
	)
	err := s.readFile(sequenceFile, 2, func(rec []string) error {
		v, err := strconv.ParseUint(rec[1], 10, 32)
		if err != nil {
			return fmt.Errorf("sequence %q: %w", rec[0], err)
		}
		switch rec[0] {
		case seqReservation:
			lastRes = domain.ReservationID(v)
		case seqClient:
			lastClient = domain.ClientID(v)
		default:
			return fmt.Errorf("unknown sequence %q", rec[0])
		}
		return nil
	})
	return lastRes, lastClient, err
}

func (s *Storage) writeSequence(lastRes domain.ReservationID, lastClient domain.ClientID) error {
	return s.writeFile(sequenceFile, [][]string{
		{seqReservation, strconv.FormatUint(uint64(lastRes), 10)},
		{seqClient, strconv.FormatUint(uint64(lastClient), 10)},
	})
}

// --- Row codecs ---

func encodeRoom(r domain.Room) []string {
	return []string{
		strconv.FormatUint(uint64(r.ID), 10),
		strconv.FormatUint(uint64(r.MaxGuests), 10),
	}
}

func decodeRoom(rec []string) (domain.Room, error) {
	id, err := strconv.ParseUint(rec[0], 10, 32)
	if err != nil {
		return domain.Room{}, fmt.Errorf("room_id: %w", err)
	}
	guests, err := strconv.ParseUint(rec[1], 10, 8)
	if err != nil {
		return domain.Room{}, fmt.Errorf("max_guests: %w", err)
	}
	return domain.Room{ID: domain.RoomID(id), MaxGuests: uint8(guests)}, nil
}

func encodeClient(c domain.Client) []string {
	created := ""
	if !c.CreatedAt.IsZero() {
		created = c.CreatedAt.UTC().Format(time.RFC3339)
	}
	return []string{
		strconv.FormatUint(uint64(c.ID), 10),
		c.Email,
		c.PasswordHash,
		c.Role,
		created,
	}
}

func decodeClient(rec []string) (domain.Client, error) {
	id, err := strconv.ParseUint(rec[0], 10, 32)
	if err != nil {
		return domain.Client{}, fmt.Errorf("client_id: %w", err)
	}
	if rec[1] == "" {
		return domain.Client{}, errors.New("empty email")
	}
	c := domain.Client{
		ID:           domain.ClientID(id),
		Email:        rec[1],
		PasswordHash: rec[2],
		Role:         rec[3],
	}
	if rec[4] != "" {
		c.CreatedAt, err = time.Parse(time.RFC3339, rec[4])
		if err != nil {
			return domain.Client{}, fmt.Errorf("created_at: %w", err)
		}
	}
	return c, nil
}

func encodeReservation(r domain.Reservation) []string {
	return []string{
		strconv.FormatUint(uint64(r.ID), 10),
		strconv.FormatUint(uint64(r.ClientID), 10),
		strconv.FormatUint(uint64(r.RoomID), 10),
		r.Start.String(),
		r.End.String(),
		strconv.FormatUint(uint64(r.Guests), 10),
	}
}

func decodeReservation(rec []string) (domain.Reservation, error) {
	id, err := strconv.ParseUint(rec[0], 10, 32)
	if err != nil {
		return domain.Reservation{}, fmt.Errorf("reservation_id: %w", err)
	}
	clientID, err := strconv.ParseUint(rec[1], 10, 32)
	if err != nil {
		return domain.Reservation{}, fmt.Errorf("client_id: %w", err)
	}
	roomID, err := strconv.ParseUint(rec[2], 10, 32)
	if err != nil {
		return domain.Reservation{}, fmt.Errorf("room_id: %w", err)
	}
	start, err := domain.ParseDate(rec[3])
	if err != nil {
		return domain.Reservation{}, fmt.Errorf("date_start: %w", err)
	}
	end, err := domain.ParseDate(rec[4])
	if err != nil {
		return domain.Reservation{}, fmt.Errorf("date_end: %w", err)
	}
	guests, err := strconv.ParseUint(rec[5], 10, 8)
	if err != nil {
		return domain.Reservation{}, fmt.Errorf("guest_count: %w", err)
	}
	return domain.Reservation{
		ID:       domain.ReservationID(id),
		ClientID: domain.ClientID(clientID),
		RoomID:   domain.RoomID(roomID),
		Start:    start,
		End:      end,
		Guests:   uint8(guests),
	}, nil
}
