package queue

import (
	"context"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/sirpyerre/hotel-reservations/internal/api/metrics"
	"github.com/sirpyerre/hotel-reservations/internal/core/domain"
	"github.com/sirpyerre/hotel-reservations/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
)

// Dispatcher routes booking events to a fixed set of audit workers, sharded by
// room id so the events of one room are recorded in publish order.
type Dispatcher struct {
	workers  []chan domain.BookingEvent
	recorder ports.AuditRecorder
	log      zerolog.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, recorder ports.AuditRecorder, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers:  make([]chan domain.BookingEvent, numWorkers),
		recorder: recorder,
		log:      log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.BookingEvent, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers exit once Close has been
// called and their channel is drained.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

// Publish sends an event to the worker responsible for its room. It blocks only
// when that worker's buffer is full. Events published after Close are dropped.
func (d *Dispatcher) Publish(event domain.BookingEvent) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.log.Warn().
			Uint32("reservation_id", uint32(event.ReservationID)).
			Msg("audit dispatcher closed, event dropped")
		return
	}

	idx := d.shardIndex(event.RoomID)
	d.workers[idx] <- event
	metrics.AuditQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
}

// Close stops accepting events and waits until every queued event has been
// handed to the recorder.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		for _, ch := range d.workers {
			close(ch)
		}
	}
	d.mu.Unlock()

	d.wg.Wait()
}

// shardIndex maps a room deterministically to a worker index.
func (d *Dispatcher) shardIndex(roomID domain.RoomID) int {
	return int(uint32(roomID) % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan domain.BookingEvent) {
	defer d.wg.Done()
	label := strconv.Itoa(id)

	for event := range ch {
		metrics.AuditQueueDepth.WithLabelValues(label).Set(float64(len(ch)))
		if err := d.recorder.Record(ctx, event); err != nil {
			metrics.AuditErrorsTotal.Inc()
			d.log.Error().Err(err).
				Uint32("reservation_id", uint32(event.ReservationID)).
				Str("action", string(event.Action)).
				Int("worker_id", id).
				Msg("audit record failed")
		}
	}
}

// LogRecorder writes booking events to the structured log. It is the audit
// sink used when no database is configured.
type LogRecorder struct {
	log zerolog.Logger
}

func NewLogRecorder(log zerolog.Logger) *LogRecorder {
	return &LogRecorder{log: log}
}

func (r *LogRecorder) Record(_ context.Context, e domain.BookingEvent) error {
	ev := r.log.Info().
		Str("action", string(e.Action)).
		Uint32("reservation_id", uint32(e.ReservationID)).
		Uint32("client_id", uint32(e.ClientID)).
		Uint32("room_id", uint32(e.RoomID)).
		Str("start", e.Start.String()).
		Str("end", e.End.String()).
		Uint8("guests", e.Guests).
		Time("occurred_at", e.OccurredAt)
	if e.PreviousID != 0 {
		ev = ev.Uint32("previous_id", uint32(e.PreviousID))
	}
	ev.Msg("booking audit")
	return nil
}
