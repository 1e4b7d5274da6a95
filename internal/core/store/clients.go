package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/sirpyerre/hotel-reservations/internal/core/domain"
	"github.com/sirpyerre/hotel-reservations/internal/core/ports"
)

// Clients is the in-memory client directory. It implements
// ports.ClientDirectory.
type Clients struct {
	mu      sync.RWMutex
	byID    map[domain.ClientID]domain.Client
	byEmail map[string]domain.ClientID
	lastID  domain.ClientID

	journalMu sync.Mutex
	journal   ports.ClientJournal
	log       zerolog.Logger
}

// NewClients returns an empty directory journaling to journal (may be nil).
func NewClients(journal ports.ClientJournal, log zerolog.Logger) *Clients {
	return &Clients{
		byID:    make(map[domain.ClientID]domain.Client),
		byEmail: make(map[string]domain.ClientID),
		journal: journal,
		log:     log,
	}
}

// Load replaces the directory content with persisted clients.
func (c *Clients) Load(clients []domain.Client, lastIssued domain.ClientID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.byID = make(map[domain.ClientID]domain.Client, len(clients))
	c.byEmail = make(map[string]domain.ClientID, len(clients))
	c.lastID = lastIssued
	for _, cl := range clients {
		c.byID[cl.ID] = cl
		c.byEmail[emailKey(cl.Email)] = cl.ID
		if cl.ID > c.lastID {
			c.lastID = cl.ID
		}
	}
}

// Create registers a client under the next free id.
func (c *Clients) Create(ctx context.Context, cl *domain.Client) (*domain.Client, error) {
	created, err := c.insert(cl)
	if err != nil {
		return nil, err
	}
	defer c.journalMu.Unlock()

	if c.journal != nil {
		if err := c.journal.SaveClient(ctx, created); err != nil {
			c.log.Error().Err(err).Uint32("client_id", uint32(created.ID)).Msg("failed to journal client")
			return &created, fmt.Errorf("%w: save client: %w", domain.ErrPersistence, err)
		}
	}
	return &created, nil
}

// insert adds the client under the write lock and hands over to the journal
// lock on success.
func (c *Clients) insert(cl *domain.Client) (domain.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := emailKey(cl.Email)
	if _, exists := c.byEmail[key]; exists {
		return domain.Client{}, domain.ErrClientExists
	}

	c.lastID++
	created := *cl
	created.ID = c.lastID
	c.byID[created.ID] = created
	c.byEmail[key] = created.ID

	c.journalMu.Lock()
	return created, nil
}

// FindByEmail looks a client up by email, case-insensitively.
func (c *Clients) FindByEmail(_ context.Context, email string) (*domain.Client, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	id, ok := c.byEmail[emailKey(email)]
	if !ok {
		return nil, domain.ErrClientNotFound
	}
	cl := c.byID[id]
	return &cl, nil
}

// FindByID looks a client up by id.
func (c *Clients) FindByID(_ context.Context, id domain.ClientID) (*domain.Client, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	cl, ok := c.byID[id]
	if !ok {
		return nil, domain.ErrClientNotFound
	}
	return &cl, nil
}

// All returns every client ordered by id, with the id high-water mark.
func (c *Clients) All() ([]domain.Client, domain.ClientID) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]domain.Client, 0, len(c.byID))
	for _, cl := range c.byID {
		out = append(out, cl)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, c.lastID
}

func emailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Checkpoint calls fn with every client while holding the journal lock. See
// Store.Checkpoint.
func (c *Clients) Checkpoint(fn func(clients []domain.Client, lastIssued domain.ClientID) error) error {
	c.mu.RLock()
	c.journalMu.Lock()
	defer c.journalMu.Unlock()

	out := make([]domain.Client, 0, len(c.byID))
	for _, cl := range c.byID {
		out = append(out, cl)
	}
	lastIssued := c.lastID
	c.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return fn(out, lastIssued)
}
