package loader

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"netwatch/internal/config"
	"netwatch/internal/inventory"
	"netwatch/internal/metrics"
	"netwatch/internal/models"
	"netwatch/internal/view"
)

// Load statuses as written to the journal
const (
	StatusPublished  = metrics.ResultPublished
	StatusSuperseded = metrics.ResultSuperseded
	StatusError      = metrics.ResultError
)

var (
	// ErrSuperseded is returned by Reload when a newer pass won
	ErrSuperseded = errors.New("load superseded by a newer pass")
	// ErrNoSnapshot is returned by Reload when the snapshot could not be loaded
	ErrNoSnapshot = errors.New("snapshot not available")
)

// Journal records finished load passes
type Journal interface {
	RecordLoad(rec models.LoadRecord) error
}

// Observer receives load metrics
type Observer interface {
	ObserveLoad(result string, d time.Duration)
	SetInventory(devices, queued int)
}

// Status describes the refresh service
type Status struct {
	Source        string             `json:"source"`
	Scheduler     bool               `json:"scheduler"`
	Watching      bool               `json:"watching"`
	Loading       bool               `json:"loading"`
	CurrentLoadID string             `json:"currentLoadId,omitempty"`
	LastLoad      *models.LoadRecord `json:"lastLoad,omitempty"`
	Published     int                `json:"published"`
	Superseded    int                `json:"superseded"`
	Failed        int                `json:"failed"`
}

// Service loads resources on a schedule and on file changes and publishes
// the latest complete state
type Service struct {
	config  *config.Config
	source  Source
	journal Journal
	metrics Observer
	logger  zerolog.Logger

	current atomic.Pointer[view.State]

	mu           sync.Mutex
	seq          uint64
	publishedSeq uint64
	inFlight     int
	cancel       context.CancelFunc
	status       Status

	schedule  *time.Ticker
	stopChan  chan struct{}
	stopOnce  sync.Once
	stopped   bool
	watchStop context.CancelFunc
	wg        sync.WaitGroup

	// parent of background passes, cancelled by Stop
	runCtx    context.Context
	runCancel context.CancelFunc
}

// New creates a refresh service. journal and observer may be nil.
func New(cfg *config.Config, src Source, journal Journal, observer Observer) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		config:    cfg,
		source:    src,
		journal:   journal,
		metrics:   observer,
		logger:    log.With().Str("component", "loader").Logger(),
		stopChan:  make(chan struct{}),
		status:    Status{Source: src.String()},
		runCtx:    ctx,
		runCancel: cancel,
	}
}

// Start runs the scheduler and the file watcher as configured
func (s *Service) Start() error {
	s.logger.Info().Str("source", s.source.String()).Msg("Starting loader service")

	if s.config.Data.EnableScheduler {
		s.StartScheduler()
	} else {
		s.ReloadAsync()
	}

	if dir, ok := s.source.(DirSource); ok && s.config.Data.WatchFiles {
		debounce, err := s.config.GetWatchDebounce()
		if err != nil {
			debounce = defaultDebounce
		}
		ctx, cancel := context.WithCancel(context.Background())
		w := newWatcher(dir.Dir, debounce, func() {
			if s.ReloadAsync() {
				s.logger.Info().Msg("Resource files changed, reloading")
			}
		}, s.logger)
		w.onReady = func() {
			s.mu.Lock()
			s.status.Watching = true
			s.mu.Unlock()
		}

		s.mu.Lock()
		if s.stopped {
			s.mu.Unlock()
			cancel()
			return nil
		}
		s.watchStop = cancel
		s.wg.Add(1)
		s.mu.Unlock()

		go func() {
			defer s.wg.Done()
			if err := w.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Error().Err(err).Msg("File watcher stopped")
			}
			s.mu.Lock()
			s.status.Watching = false
			s.mu.Unlock()
		}()
	}

	return nil
}

// Stop halts the scheduler and the watcher and cancels an in-flight pass
func (s *Service) Stop() error {
	s.logger.Info().Msg("Stopping loader service")

	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.stopped = true
		if s.schedule != nil {
			s.schedule.Stop()
		}
		if s.watchStop != nil {
			s.watchStop()
		}
		if s.cancel != nil {
			s.cancel()
		}
		s.mu.Unlock()
		s.runCancel()
		close(s.stopChan)
	})

	s.wg.Wait()
	return nil
}

// StartScheduler reloads immediately and then every refresh period
func (s *Service) StartScheduler() {
	frequency, err := s.config.GetRefreshFrequency()
	if err != nil || frequency <= 0 {
		s.logger.Error().Err(err).Msg("Invalid refresh frequency in config, using default 5m")
		frequency = 5 * time.Minute
	}

	s.logger.Info().Str("frequency", frequency.String()).Msg("Starting load scheduler")

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	if s.schedule != nil {
		s.schedule.Stop()
	}
	s.schedule = time.NewTicker(frequency)
	ticker := s.schedule
	s.status.Scheduler = true
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		s.Reload(s.runCtx)

		for {
			select {
			case <-ticker.C:
				s.logger.Debug().Msg("Running scheduled load")
				s.Reload(s.runCtx)
			case <-s.stopChan:
				s.logger.Info().Msg("Load scheduler stopped")
				return
			}
		}
	}()
}

// ReloadAsync starts a load pass in the background. Stop waits for it.
// It returns false once the service has been stopped.
func (s *Service) ReloadAsync() bool {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return false
	}
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		if _, err := s.Reload(s.runCtx); err != nil {
			s.logger.Warn().Err(err).Msg("Background load did not publish")
		}
	}()
	return true
}

// Current returns the published state, or nil before the first publish.
// Callers must treat it as read-only.
func (s *Service) Current() *view.State {
	return s.current.Load()
}

// Status returns a copy of the service status
func (s *Service) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.status
	st.Loading = s.inFlight > 0
	if st.LastLoad != nil {
		rec := *st.LastLoad
		st.LastLoad = &rec
	}
	if cur := s.Current(); cur != nil {
		st.CurrentLoadID = cur.LoadID
	}
	return st
}

// Reload runs one load pass. Starting a pass cancels the pass in flight, and
// a finished pass publishes only when no newer pass has published first.
func (s *Service) Reload(ctx context.Context) (Report, error) {
	timeout, err := s.config.GetFetchTimeout()
	if err != nil || timeout <= 0 {
		timeout = 10 * time.Second
	}

	s.mu.Lock()
	s.seq++
	seq := s.seq
	if s.cancel != nil {
		s.cancel()
	}
	passCtx, cancel := context.WithTimeout(ctx, timeout)
	s.cancel = cancel
	s.inFlight++
	s.mu.Unlock()

	defer cancel()

	state, report := LoadState(passCtx, s.source, s.logger)

	s.mu.Lock()
	s.inFlight--
	if s.seq == seq {
		s.cancel = nil
	}

	var status string
	var result error
	switch {
	case seq < s.publishedSeq || (report.Canceled && seq < s.seq):
		status = StatusSuperseded
		result = ErrSuperseded
	case report.Canceled:
		status = StatusError
		result = passCtx.Err()
	case state.Snapshot == nil && s.Current().Ready():
		// keep serving the last good snapshot
		status = StatusError
		result = ErrNoSnapshot
	default:
		s.current.Store(state)
		s.publishedSeq = seq
		status = StatusPublished
		if state.Snapshot == nil {
			status = StatusError
			result = ErrNoSnapshot
		}
	}

	deviceCount := len(state.Devices())
	rec := report.Record(status, deviceCount)
	s.status.LastLoad = &rec
	switch status {
	case StatusPublished:
		s.status.Published++
	case StatusSuperseded:
		s.status.Superseded++
	default:
		s.status.Failed++
	}
	s.mu.Unlock()

	s.logger.Info().
		Str("loadId", report.LoadID).
		Str("status", status).
		Int("devices", deviceCount).
		Dur("duration", report.Duration).
		Msg("Load pass completed")

	if s.journal != nil {
		if err := s.journal.RecordLoad(rec); err != nil {
			s.logger.Error().Err(err).Msg("Failed to journal load")
		}
	}
	if s.metrics != nil {
		s.metrics.ObserveLoad(status, report.Duration)
		if status != StatusSuperseded && state.Ready() {
			queue := inventory.ClassificationQueue(state.Devices(), 0)
			s.metrics.SetInventory(deviceCount, queue.Size)
		}
	}

	return report, result
}
