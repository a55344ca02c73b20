package database

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"
)

const logSinkBuffer = 256

type logRecord struct {
	level     string
	message   string
	component string
}

// LogSink is a zerolog.LevelWriter that copies entries at or above a minimum
// level into the logs table. Writes are queued and dropped when the queue is
// full, so logging never waits on the database.
type LogSink struct {
	min     zerolog.Level
	queue   chan logRecord
	done    chan struct{}
	once    sync.Once
	mu      sync.Mutex
	started bool
	closed  bool
	dropped int
}

// NewLogSink creates a sink. Entries queue until Attach gives it a database.
func NewLogSink(min zerolog.Level) *LogSink {
	return &LogSink{
		min:   min,
		queue: make(chan logRecord, logSinkBuffer),
		done:  make(chan struct{}),
	}
}

// Attach starts writing queued and future entries into db. Only the first
// call has an effect.
func (s *LogSink) Attach(db *DB) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started || s.closed {
		return
	}
	s.started = true
	go s.run(db)
}

func (s *LogSink) run(db *DB) {
	defer close(s.done)
	for rec := range s.queue {
		// Errors are swallowed; reporting them would log again
		_ = db.AddLogEntry(rec.level, rec.message, rec.component)
	}
}

// Write implements io.Writer. Entries without a level are ignored.
func (s *LogSink) Write(p []byte) (int, error) {
	return s.WriteLevel(zerolog.NoLevel, p)
}

// WriteLevel implements zerolog.LevelWriter
func (s *LogSink) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	if level < s.min || level == zerolog.NoLevel {
		return len(p), nil
	}

	var fields struct {
		Message   string `json:"message"`
		Component string `json:"component"`
	}
	if err := json.Unmarshal(p, &fields); err != nil {
		return len(p), nil
	}
	if fields.Component == "" {
		fields.Component = "netwatch"
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return len(p), nil
	}
	select {
	case s.queue <- logRecord{level: level.String(), message: fields.Message, component: fields.Component}:
	default:
		s.dropped++
	}
	return len(p), nil
}

// Dropped returns the number of entries lost to a full queue
func (s *LogSink) Dropped() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// Close flushes queued entries and stops the sink. Entries of a sink that
// was never attached are discarded.
func (s *LogSink) Close() error {
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		close(s.queue)
		started := s.started
		s.mu.Unlock()
		if started {
			<-s.done
		}
	})
	return nil
}
