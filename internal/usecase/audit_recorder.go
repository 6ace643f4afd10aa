package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"StudentDrop/internal/domain/models"
	drepo "StudentDrop/internal/domain/repository"
	"StudentDrop/pkg/logger"
)

// ErrInvalidEvent is returned for messages that can never be stored.
var ErrInvalidEvent = errors.New("invalid event")

// AuditRecorder consumes ML events from Kafka and writes them to the
// audit store in batches. A batch is flushed when it reaches batchSize or
// when flushInterval elapses. Failed batches stay buffered (bounded by
// maxBuffered) and are retried on the next flush. Once an event is
// buffered Handle succeeds, so the consumer never redelivers it; the
// buffer also ignores ids it already holds.
type AuditRecorder struct {
	topic         string
	store         drepo.AuditStore
	metrics       drepo.Metrics
	l             *logger.Logger
	batchSize     int
	maxBuffered   int
	flushInterval time.Duration

	mu   sync.Mutex
	buf  []*models.Event
	ids  map[string]struct{}
	stop chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

func NewAuditRecorder(topic string, store drepo.AuditStore, metrics drepo.Metrics, l *logger.Logger, batchSize int, flushInterval time.Duration) *AuditRecorder {
	if batchSize <= 0 {
		batchSize = 100
	}
	if flushInterval <= 0 {
		flushInterval = time.Second
	}
	return &AuditRecorder{
		topic:         topic,
		store:         store,
		metrics:       metrics,
		l:             l,
		batchSize:     batchSize,
		maxBuffered:   batchSize * 10,
		flushInterval: flushInterval,
		ids:           make(map[string]struct{}),
		stop:          make(chan struct{}),
	}
}

func (r *AuditRecorder) Topic() string { return r.topic }

// Handle implements kafka.MessageHandler.
func (r *AuditRecorder) Handle(ctx context.Context, b []byte) error {
	var e models.Event
	if err := json.Unmarshal(b, &e); err != nil {
		r.metrics.RecordError("audit_unmarshal")
		return fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	if e.ID == "" || (e.Type != models.EventPrediction && e.Type != models.EventTraining) {
		r.metrics.RecordError("audit_invalid")
		return fmt.Errorf("%w: id=%q type=%q", ErrInvalidEvent, e.ID, e.Type)
	}

	r.mu.Lock()
	if _, dup := r.ids[e.ID]; dup {
		r.mu.Unlock()
		return nil
	}
	r.buf = append(r.buf, &e)
	r.ids[e.ID] = struct{}{}
	if over := len(r.buf) - r.maxBuffered; over > 0 {
		for _, old := range r.buf[:over] {
			delete(r.ids, old.ID)
		}
		r.buf = r.buf[over:]
		r.metrics.RecordError("audit_overflow")
		r.l.Warn("audit buffer full, dropping oldest events", logger.Int("dropped", over))
	}
	full := len(r.buf) >= r.batchSize
	r.mu.Unlock()

	if full {
		if err := r.Flush(ctx); err != nil {
			// kept buffered; the interval flusher retries
			r.l.Warn("audit flush deferred", logger.Error(err), logger.Int("buffered", r.Buffered()))
		}
	}
	return nil
}

// Flush writes everything buffered.
func (r *AuditRecorder) Flush(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.buf) == 0 {
		return nil
	}

	start := time.Now()
	if err := r.store.StoreBatch(ctx, r.buf); err != nil {
		r.metrics.RecordError("audit_store")
		return fmt.Errorf("store audit batch: %w", err)
	}
	r.metrics.RecordLatency("audit_flush", time.Since(start).Seconds())
	r.l.Debug("audit batch stored", logger.Int("rows", len(r.buf)))
	r.buf = nil
	r.ids = make(map[string]struct{})
	return nil
}

// Buffered returns the number of events waiting for a flush.
func (r *AuditRecorder) Buffered() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.buf)
}

// Start runs the interval flusher until Close.
func (r *AuditRecorder) Start() {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(r.flushInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				r.flushLogged()
			case <-r.stop:
				return
			}
		}
	}()
}

func (r *AuditRecorder) flushLogged() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := r.Flush(ctx); err != nil {
		r.l.Error("audit flush", logger.Error(err))
	}
}

// Close stops the flusher and writes what is left.
func (r *AuditRecorder) Close() {
	r.once.Do(func() {
		close(r.stop)
		r.wg.Wait()
		r.flushLogged()
	})
}

// AuditReport summarises stored predictions.
type AuditReport struct {
	store drepo.AuditStore
}

func NewAuditReport(store drepo.AuditStore) *AuditReport {
	return &AuditReport{store: store}
}

// CategorySummary counts stored predictions per risk category.
type CategorySummary struct {
	From   time.Time                      `json:"from"`
	To     time.Time                      `json:"to"`
	Counts map[models.RiskCategory]uint64 `json:"counts"`
	Total  uint64                         `json:"total"`
}

// Categories counts predictions stored in [from, to]. Every category is
// present in the result, zero when absent from the store.
func (a *AuditReport) Categories(ctx context.Context, from, to time.Time) (CategorySummary, error) {
	counts, err := a.store.CountByCategory(ctx, from, to)
	if err != nil {
		return CategorySummary{}, err
	}

	s := CategorySummary{From: from, To: to, Counts: make(map[models.RiskCategory]uint64, 3)}
	for _, c := range []models.RiskCategory{models.RiskLow, models.RiskMedium, models.RiskHigh} {
		s.Counts[c] = counts[c]
		s.Total += counts[c]
	}
	return s, nil
}
