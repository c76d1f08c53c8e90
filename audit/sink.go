// Package audit records admin actions to an append-only log. Recording is
// best effort: Log never blocks and failures never reach the caller.
package audit

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"excursion/models"
)

var (
	eventsWritten = promauto.NewCounter(prometheus.CounterOpts{
		Name: "audit_events_written_total",
		Help: "Audit entries persisted to the admin log.",
	})
	eventsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "audit_events_dropped_total",
		Help: "Audit entries that were not persisted.",
	}, []string{"reason"})
)

// Event is one admin action.
type Event struct {
	Action   string
	Details  map[string]interface{}
	Actor    *models.AdminUser
	ClientIP string
	At       time.Time
}

// Sink accepts audit events.
type Sink interface {
	Log(event Event)
}

// Writer persists audit entries.
type Writer interface {
	AppendAuditLog(ctx context.Context, entry *models.AuditLog) error
}

// Discard drops every event.
type Discard struct{}

func (Discard) Log(Event) {}

// AsyncSink queues events and writes them from a single worker goroutine.
type AsyncSink struct {
	writer       Writer
	lookup       IPLookup
	logger       *zap.Logger
	now          func() time.Time
	writeTimeout time.Duration

	events chan Event
	done   chan struct{}
	mu     sync.RWMutex
	closed bool
}

func NewAsyncSink(writer Writer, lookup IPLookup, buffer int, logger *zap.Logger) *AsyncSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &AsyncSink{
		writer:       writer,
		lookup:       lookup,
		logger:       logger,
		now:          time.Now,
		writeTimeout: 10 * time.Second,
		events:       make(chan Event, buffer),
		done:         make(chan struct{}),
	}
}

// Log enqueues the event. Events without an actor, events logged after
// Close and events arriving while the queue is full are dropped.
func (s *AsyncSink) Log(event Event) {
	if event.Actor == nil {
		eventsDropped.WithLabelValues("anonymous").Inc()
		return
	}
	if event.At.IsZero() {
		event.At = s.now()
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		eventsDropped.WithLabelValues("closed").Inc()
		return
	}

	select {
	case s.events <- event:
	default:
		eventsDropped.WithLabelValues("queue_full").Inc()
		s.logger.Warn("audit queue full, dropping event", zap.String("action", event.Action))
	}
}

// Run writes queued events until Close is called and the queue is drained.
func (s *AsyncSink) Run() {
	defer close(s.done)
	for event := range s.events {
		s.write(event)
	}
}

// Close stops accepting events and waits for the worker to drain the queue.
func (s *AsyncSink) Close(ctx context.Context) error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.events)
	}
	s.mu.Unlock()

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *AsyncSink) write(event Event) {
	ctx, cancel := context.WithTimeout(context.Background(), s.writeTimeout)
	defer cancel()

	ip := event.ClientIP
	if ip == "" && s.lookup != nil {
		if found, err := s.lookup.Lookup(ctx); err == nil {
			ip = found
		}
	}

	entry := &models.AuditLog{
		UserID:    event.Actor.UserID,
		UserEmail: event.Actor.Email,
		Action:    event.Action,
		Details:   event.Details,
		Timestamp: event.At,
		IPInfo: models.IPInfo{
			IP:        ip,
			Timestamp: s.now().UTC().Format(time.RFC3339),
		},
	}

	if err := s.writer.AppendAuditLog(ctx, entry); err != nil {
		eventsDropped.WithLabelValues("write_failed").Inc()
		s.logger.Warn("failed to write audit entry",
			zap.String("action", event.Action),
			zap.Error(err))
		return
	}
	eventsWritten.Inc()
	s.logger.Debug("audit entry written",
		zap.String("action", event.Action),
		zap.String("user", event.Actor.Email))
}
