package loader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"netwatch/internal/models"
	"netwatch/internal/view"
)

// Resource names, relative to the source
const (
	ResourceSnapshot = "latest.json"
	ResourceHistory  = "history.json"
	ResourceStats    = "device_stats.json"
	ResourceLessons  = "lessons.json"
)

// lessonPaths are tried in order for the lessons resource
var lessonPaths = []string{"app/learn/lessons.json", ResourceLessons}

// Resources lists every resource a pass loads
var Resources = []string{ResourceSnapshot, ResourceHistory, ResourceStats, ResourceLessons}

// ResourceResult describes one resource of a pass
type ResourceResult struct {
	Name    string `json:"name"`
	Present bool   `json:"present"`
	Error   string `json:"error,omitempty"`
}

// Report summarizes one load pass
type Report struct {
	LoadID    string           `json:"loadId"`
	StartedAt time.Time        `json:"startedAt"`
	Duration  time.Duration    `json:"duration"`
	Resources []ResourceResult `json:"resources"`
	Dropped   int              `json:"droppedDevices"`
	Canceled  bool             `json:"canceled"`
}

// Present reports whether the named resource was loaded
func (r Report) Present(name string) bool {
	for _, res := range r.Resources {
		if res.Name == name {
			return res.Present
		}
	}
	return false
}

// Errors joins the per-resource errors. Absent resources are not errors.
func (r Report) Errors() string {
	var msgs []string
	for _, res := range r.Resources {
		if res.Error != "" {
			msgs = append(msgs, res.Name+": "+res.Error)
		}
	}
	return strings.Join(msgs, "; ")
}

// Record converts the report into a journal entry
func (r Report) Record(status string, deviceCount int) models.LoadRecord {
	return models.LoadRecord{
		ID:          r.LoadID,
		StartedAt:   r.StartedAt,
		Duration:    r.Duration.Milliseconds(),
		Status:      status,
		DeviceCount: deviceCount,
		HasSnapshot: r.Present(ResourceSnapshot),
		HasHistory:  r.Present(ResourceHistory),
		HasStats:    r.Present(ResourceStats),
		HasLessons:  r.Present(ResourceLessons),
		Error:       r.Errors(),
	}
}

// LoadState fetches and decodes all resources of one pass. Missing or
// malformed resources are left nil in the returned state and noted in the
// report; the pass itself never fails.
func LoadState(ctx context.Context, src Source, logger zerolog.Logger) (*view.State, Report) {
	started := time.Now()
	report := Report{
		LoadID:    uuid.New().String(),
		StartedAt: started,
		Resources: make([]ResourceResult, len(Resources)),
	}
	logger = logger.With().Str("loadId", report.LoadID).Logger()

	bodies := make([][]byte, len(Resources))
	errs := make([]error, len(Resources))

	var g errgroup.Group
	for i, name := range Resources {
		g.Go(func() error {
			if name == ResourceLessons {
				bodies[i], errs[i] = fetchFirst(ctx, src, lessonPaths)
			} else {
				bodies[i], errs[i] = src.Fetch(ctx, name)
			}
			return nil
		})
	}
	_ = g.Wait()

	state := &view.State{LoadID: report.LoadID, LoadedAt: started}

	for i, name := range Resources {
		res := ResourceResult{Name: name}
		err := errs[i]
		if err == nil {
			err = decodeInto(state, name, bodies[i], &report)
		}

		switch {
		case err == nil:
			res.Present = true
		case errors.Is(err, ErrNotFound):
			logger.Debug().Str("resource", name).Msg("Resource not available")
		default:
			res.Error = err.Error()
			logger.Warn().Err(err).Str("resource", name).Msg("Resource could not be loaded")
		}
		report.Resources[i] = res
	}

	report.Canceled = ctx.Err() != nil
	report.Duration = time.Since(started)

	logger.Debug().
		Dur("duration", report.Duration).
		Bool("snapshot", state.Snapshot != nil).
		Int("dropped", report.Dropped).
		Msg("Load pass finished")

	return state, report
}

func fetchFirst(ctx context.Context, src Source, names []string) ([]byte, error) {
	var lastErr error
	for _, name := range names {
		data, err := src.Fetch(ctx, name)
		if err == nil {
			return data, nil
		}
		lastErr = err
		if !errors.Is(err, ErrNotFound) {
			break
		}
	}
	return nil, lastErr
}

func decodeInto(state *view.State, name string, data []byte, report *Report) error {
	switch name {
	case ResourceSnapshot:
		var snap models.Snapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			return fmt.Errorf("malformed snapshot: %w", err)
		}
		snap = snap.Normalize()
		report.Dropped = snap.Dropped
		state.Snapshot = &snap
	case ResourceHistory:
		var hist models.HistorySeries
		if err := json.Unmarshal(data, &hist); err != nil {
			return fmt.Errorf("malformed history: %w", err)
		}
		hist = hist.Normalize()
		state.History = &hist
	case ResourceStats:
		var stats models.StatsDocument
		if err := json.Unmarshal(data, &stats); err != nil {
			return fmt.Errorf("malformed device stats: %w", err)
		}
		stats = stats.Normalize()
		state.Stats = &stats
	case ResourceLessons:
		var lessons models.LessonsDocument
		if err := json.Unmarshal(data, &lessons); err != nil {
			return fmt.Errorf("malformed lessons: %w", err)
		}
		lessons = lessons.Normalize()
		state.Lessons = &lessons
	}
	return nil
}
