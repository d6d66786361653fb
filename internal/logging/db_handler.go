package logging

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/ahmetcoskunkizilkaya/user-admin/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const batchSize = 50

// logSink buffers system log rows and writes them in batches. It is shared
// by every handler derived through WithAttrs.
type logSink struct {
	db     *gorm.DB
	mu     sync.Mutex
	buffer []models.SystemLog
	ticker *time.Ticker
	done   chan struct{}
	// stopped is guarded by mu; once set, no flush goroutine is started.
	stopped bool
	wg      sync.WaitGroup
}

func (s *logSink) loop() {
	defer s.wg.Done()
	for {
		select {
		case <-s.ticker.C:
			s.flush()
		case <-s.done:
			s.flush()
			return
		}
	}
}

func (s *logSink) add(entry models.SystemLog) {
	s.mu.Lock()
	s.buffer = append(s.buffer, entry)
	full := len(s.buffer) >= batchSize
	async := full && !s.stopped
	if async {
		s.wg.Add(1)
	}
	s.mu.Unlock()

	switch {
	case async:
		go func() {
			defer s.wg.Done()
			s.flush()
		}()
	case full:
		s.flush()
	}
}

// stop waits for every in-flight flush and the background writer, which
// writes what is left.
func (s *logSink) stop() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()

	s.ticker.Stop()
	close(s.done)
	s.wg.Wait()
}

func (s *logSink) flush() {
	s.mu.Lock()
	if len(s.buffer) == 0 {
		s.mu.Unlock()
		return
	}
	batch := s.buffer
	s.buffer = make([]models.SystemLog, 0, batchSize)
	s.mu.Unlock()

	// Not logged through slog: a failing database would feed itself.
	if err := s.db.CreateInBatches(batch, batchSize).Error; err != nil {
		slog.New(Stdout()).Error("failed to flush system logs to DB", "error", err, "count", len(batch))
	}
}

// DBHandler is an slog.Handler that batches records at or above its level
// into the system_logs table.
type DBHandler struct {
	sink  *logSink
	level slog.Level
	attrs []slog.Attr
}

func NewDBHandler(db *gorm.DB, level slog.Level) *DBHandler {
	sink := &logSink{
		db:     db,
		buffer: make([]models.SystemLog, 0, batchSize),
		ticker: time.NewTicker(5 * time.Second),
		done:   make(chan struct{}),
	}
	sink.wg.Add(1)
	go sink.loop()
	return &DBHandler{sink: sink, level: level}
}

// Stop flushes pending records and ends the background writer.
func (h *DBHandler) Stop() {
	h.sink.stop()
}

// Flush writes pending records now.
func (h *DBHandler) Flush() {
	h.sink.flush()
}

func (h *DBHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *DBHandler) Handle(ctx context.Context, record slog.Record) error {
	entry := models.SystemLog{
		Timestamp: record.Time,
		Level:     record.Level.String(),
		Message:   record.Message,
		RequestID: RequestID(ctx),
	}

	extra := make(map[string]interface{})
	apply := func(a slog.Attr) bool {
		switch a.Key {
		case "request_id":
			entry.RequestID = a.Value.String()
		case "actor":
			s := a.Value.String()
			entry.ActorID = &s
		case "user_id":
			s := a.Value.String()
			entry.UserID = &s
		case "action":
			entry.Action = a.Value.String()
		case "error":
			entry.Error = a.Value.String()
		default:
			extra[a.Key] = a.Value.Resolve().Any()
		}
		return true
	}
	for _, a := range h.attrs {
		apply(a)
	}
	record.Attrs(apply)

	if len(extra) > 0 {
		if b, err := json.Marshal(extra); err == nil {
			entry.Extra = datatypes.JSON(b)
		}
	}

	h.sink.add(entry)
	return nil
}

func (h *DBHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &DBHandler{sink: h.sink, level: h.level, attrs: merged}
}

// WithGroup is a no-op: system_logs columns are flat.
func (h *DBHandler) WithGroup(name string) slog.Handler {
	return h
}
