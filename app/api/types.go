package api

import (
	"context"

	"github.com/medtrack/regwatch/app/database"
	"github.com/medtrack/regwatch/app/feed"
	"github.com/medtrack/regwatch/app/scheduler"
	"github.com/medtrack/regwatch/app/sources"
)

// SourceProcessor ingests a single source on demand, outside the scheduler
// cadence.
type SourceProcessor interface {
	Run(ctx context.Context, source *sources.Source) (feed.Stats, error)
}

// SchedulerInfo exposes the scheduler state for the stats endpoint.
type SchedulerInfo interface {
	State() scheduler.State
}

type Handler struct {
	registry   *sources.Registry
	sourceRepo database.SourceRepository
	updateRepo database.UpdateRepository
	processor  SourceProcessor
	scheduler  SchedulerInfo
}
