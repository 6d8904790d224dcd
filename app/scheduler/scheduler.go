package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/medtrack/regwatch/app/database"
	"github.com/medtrack/regwatch/app/feed"
	"github.com/medtrack/regwatch/app/sources"
)

// State of the scheduler. A pass owns the Monitoring state for its whole
// duration; a trigger arriving mid-pass is a no-op.
type State int

const (
	StateIdle State = iota
	StateMonitoring
)

func (s State) String() string {
	switch s {
	case StateMonitoring:
		return "monitoring"
	default:
		return "idle"
	}
}

// SourceProcessor runs the ingestion pipeline for one source.
type SourceProcessor interface {
	Run(ctx context.Context, source *sources.Source) (feed.Stats, error)
}

// Scheduler walks the active source registry on a fixed cadence. Sources
// are processed serially with a politeness delay after every fetch, bounding
// the outbound request rate to regulatory-authority servers.
type Scheduler struct {
	registry        *sources.Registry
	sourceRepo      database.SourceRepository
	processor       SourceProcessor
	interval        time.Duration
	politenessDelay time.Duration

	mu    sync.Mutex
	state State

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewScheduler(registry *sources.Registry, sourceRepo database.SourceRepository,
	processor SourceProcessor, interval, politenessDelay time.Duration) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		registry:        registry,
		sourceRepo:      sourceRepo,
		processor:       processor,
		interval:        interval,
		politenessDelay: politenessDelay,
		state:           StateIdle,
		ctx:             ctx,
		cancel:          cancel,
	}
}

func (s *Scheduler) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.RunPass(s.ctx)

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.RunPass(s.ctx)
			}
		}
	}()

	slog.Info("Scheduler started", "interval", s.interval.String(),
		"politeness_delay", s.politenessDelay.String())
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
	slog.Info("Scheduler stopped")
}

func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// RunPass executes one full iteration of the active registry. Re-entrant
// calls while a pass is running log and return without doing anything.
func (s *Scheduler) RunPass(ctx context.Context) {
	if !s.beginPass() {
		slog.Info("Monitoring pass already in progress, skipping trigger")
		return
	}
	defer s.endPass()

	active := s.registry.GetActiveSources()
	slog.Debug("Monitoring pass started", "active_sources", len(active))

	for _, source := range active {
		select {
		case <-ctx.Done():
			slog.Debug("Monitoring pass cancelled")
			return
		default:
		}

		if !s.isDue(source) {
			continue
		}

		now := time.Now().UTC()
		stats, err := s.processor.Run(ctx, source)
		if err != nil {
			slog.Warn("Source ingestion failed", "source", source.Name, "error", err)
		} else {
			slog.Info("Source ingested", "source", source.Name,
				"total", stats.Total, "new", stats.New,
				"duplicates", stats.Duplicates,
				"near_duplicates", stats.NearDuplicates,
				"failed", stats.Failed)
		}

		// The check time advances regardless of outcome, even when zero
		// items were accepted, so a broken feed is not hammered every pass.
		if err := s.sourceRepo.UpdateLastChecked(source.Name, now); err != nil {
			slog.Warn("Failed to update last checked time", "source", source.Name, "error", err)
		}

		s.sleep(ctx, s.politenessDelay)
	}

	slog.Debug("Monitoring pass finished")
}

func (s *Scheduler) isDue(source *sources.Source) bool {
	row, err := s.sourceRepo.GetSource(source.Name)
	if err != nil {
		slog.Warn("Failed to load source state, skipping", "source", source.Name, "error", err)
		return false
	}
	if row == nil {
		slog.Warn("Source not registered in database, skipping", "source", source.Name)
		return false
	}

	if row.LastCheckedAt == nil {
		return true
	}

	frequency := time.Duration(source.CheckFrequency) * time.Minute
	if time.Now().UTC().Sub(*row.LastCheckedAt) < frequency {
		slog.Debug("Source not due for check yet", "source", source.Name,
			"last_checked_at", row.LastCheckedAt)
		return false
	}

	return true
}

func (s *Scheduler) beginPass() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateMonitoring {
		return false
	}
	s.state = StateMonitoring
	return true
}

func (s *Scheduler) endPass() {
	s.mu.Lock()
	s.state = StateIdle
	s.mu.Unlock()
}

func (s *Scheduler) sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
