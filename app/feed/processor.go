package feed

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/medtrack/regwatch/app/database"
	"github.com/medtrack/regwatch/app/sources"
)

// Processor runs the ingestion pipeline for a single source: fetch, parse,
// normalize, duplicate-check, persist. Items are handled in document order.
type Processor struct {
	fetcher    *Fetcher
	parser     *Parser
	normalizer *Normalizer
	extractor  *Extractor
	sourceRepo database.SourceRepository
	updateRepo database.UpdateRepository
}

func NewProcessor(fetcher *Fetcher, parser *Parser, normalizer *Normalizer,
	extractor *Extractor, sourceRepo database.SourceRepository,
	updateRepo database.UpdateRepository) *Processor {
	return &Processor{
		fetcher:    fetcher,
		parser:     parser,
		normalizer: normalizer,
		extractor:  extractor,
		sourceRepo: sourceRepo,
		updateRepo: updateRepo,
	}
}

func (p *Processor) Run(ctx context.Context, source *sources.Source) (Stats, error) {
	var stats Stats

	timeout := time.Duration(source.Timeout) * time.Second

	data, err := p.fetcher.Run(ctx, source.URL, timeout)
	if err != nil {
		return stats, fmt.Errorf("failed to fetch feed: %w", err)
	}

	doc, err := p.parser.Run(data, source.URL)
	if err != nil {
		return stats, fmt.Errorf("failed to parse feed: %w", err)
	}

	p.recordMetadata(source, doc.Metadata)

	stats.Total = len(doc.Items)

	for _, item := range doc.Items {
		update := p.normalizer.Run(item, source)

		duplicate, rule, err := p.updateRepo.CheckDuplicate(update.Identifier, update.Title, update.Source)
		if err != nil {
			stats.Failed++
			slog.Error("Duplicate check failed", "source", source.Name, "identifier", update.Identifier, "error", err)
			continue
		}

		// Re-polling a feed is expected to keep meeting already-seen items,
		// so a duplicate is a silent skip, not an error.
		if duplicate {
			if rule == database.DuplicateByIdentifier {
				stats.Duplicates++
			} else {
				stats.NearDuplicates++
			}
			slog.Debug("Duplicate update skipped", "source", source.Name,
				"identifier", update.Identifier, "rule", string(rule))
			continue
		}

		if source.ExtractContent && update.Link != "" {
			p.enrichContent(ctx, source, &update, timeout)
		}

		inserted, err := p.updateRepo.InsertUpdate(update)
		if err != nil {
			stats.Failed++
			if isDuplicateError(err) {
				slog.Debug("Insert hit duplicate constraint", "source", source.Name,
					"identifier", update.Identifier, "error", err)
			} else {
				slog.Error("Failed to insert update", "source", source.Name,
					"identifier", update.Identifier, "error", err)
			}
			continue
		}

		if !inserted {
			// Lost the race between the pre-check and the insert; the unique
			// index did its job.
			stats.Duplicates++
			slog.Debug("Update already stored", "source", source.Name, "identifier", update.Identifier)
			continue
		}

		stats.New++
	}

	return stats, nil
}

// recordMetadata stores what the feed declared about itself on the source
// row. Metadata failures never block ingestion.
func (p *Processor) recordMetadata(source *sources.Source, meta Metadata) {
	if meta.Title == "" && meta.Language == "" && meta.LastBuildDate == nil {
		return
	}

	if err := p.sourceRepo.UpdateFeedMetadata(source.Name, meta.Title, meta.Language, meta.LastBuildDate); err != nil {
		slog.Warn("Failed to record feed metadata", "source", source.Name, "error", err)
	}
}

// enrichContent replaces the feed-provided body with the readable text of
// the linked page. Failures keep the description; enrichment never blocks
// ingestion.
func (p *Processor) enrichContent(ctx context.Context, source *sources.Source,
	update *database.RegulatoryUpdate, timeout time.Duration) {
	page, err := p.fetcher.Run(ctx, update.Link, timeout)
	if err != nil {
		slog.Debug("Content enrichment fetch failed", "source", source.Name,
			"link", update.Link, "error", err)
		return
	}

	content, err := p.extractor.Run(page, update.Link)
	if err != nil {
		slog.Debug("Content enrichment extraction failed", "source", source.Name,
			"link", update.Link, "error", err)
		return
	}

	update.Content = content
}

func isDuplicateError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}
