package scheduler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/medtrack/regwatch/app/database"
	"github.com/medtrack/regwatch/app/feed"
	"github.com/medtrack/regwatch/app/sources"
)

type fakeSourceRepo struct {
	mu   sync.Mutex
	rows map[string]*database.Source
}

func newFakeSourceRepo() *fakeSourceRepo {
	return &fakeSourceRepo{rows: make(map[string]*database.Source)}
}

func (r *fakeSourceRepo) register(name string, lastChecked *time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[name] = &database.Source{
		ID:            name + "-id",
		Name:          name,
		Active:        true,
		LastCheckedAt: lastChecked,
	}
}

func (r *fakeSourceRepo) GetSource(sourceName string) (*database.Source, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[sourceName]
	if !ok {
		return nil, nil
	}
	copied := *row
	return &copied, nil
}

func (r *fakeSourceRepo) GetSourceCount() (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows), nil
}

func (r *fakeSourceRepo) GetActiveSourceCount() (int, error) {
	return r.GetSourceCount()
}

func (r *fakeSourceRepo) UpsertSource(name, url, authority, region, updateType string, active bool) (string, error) {
	r.register(name, nil)
	return name + "-id", nil
}

func (r *fakeSourceRepo) UpdateLastChecked(sourceName string, checkedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if row, ok := r.rows[sourceName]; ok {
		row.LastCheckedAt = &checkedAt
	}
	return nil
}

func (r *fakeSourceRepo) UpdateFeedMetadata(sourceName, feedTitle, feedLanguage string, lastBuildAt *time.Time) error {
	return nil
}

func (r *fakeSourceRepo) lastChecked(sourceName string) *time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	if row, ok := r.rows[sourceName]; ok {
		return row.LastCheckedAt
	}
	return nil
}

type fakeProcessor struct {
	mu      sync.Mutex
	runs    map[string]int
	err     error
	started chan struct{}
	release chan struct{}
}

func newFakeProcessor() *fakeProcessor {
	return &fakeProcessor{runs: make(map[string]int)}
}

func (p *fakeProcessor) Run(ctx context.Context, source *sources.Source) (feed.Stats, error) {
	p.mu.Lock()
	p.runs[source.Name]++
	started := p.started
	release := p.release
	p.mu.Unlock()

	if started != nil {
		close(started)
		p.mu.Lock()
		p.started = nil
		p.mu.Unlock()
	}
	if release != nil {
		<-release
	}

	if p.err != nil {
		return feed.Stats{}, p.err
	}
	return feed.Stats{Total: 1, New: 1}, nil
}

func (p *fakeProcessor) runCount(sourceName string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.runs[sourceName]
}

func testRegistry(t *testing.T, names ...string) *sources.Registry {
	t.Helper()

	tempDir := t.TempDir()
	for _, name := range names {
		content := `
url: "https://example.com/` + name + `.xml"
authority: "FDA"
active: true
check_frequency: 60
`
		if err := os.WriteFile(filepath.Join(tempDir, name+".yml"), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}

	registry := sources.NewRegistry(tempDir, 30)
	if err := registry.Run(); err != nil {
		t.Fatal(err)
	}
	return registry
}

func TestRunPassReentrancy(t *testing.T) {
	registry := testRegistry(t, "fda-recalls")
	repo := newFakeSourceRepo()
	repo.register("fda-recalls", nil)

	processor := newFakeProcessor()
	processor.started = make(chan struct{})
	processor.release = make(chan struct{})
	started := processor.started

	sched := NewScheduler(registry, repo, processor, time.Hour, 0)

	done := make(chan struct{})
	go func() {
		sched.RunPass(context.Background())
		close(done)
	}()

	<-started

	if sched.State() != StateMonitoring {
		t.Errorf("Expected monitoring state mid-pass, got %s", sched.State())
	}

	// Second trigger while the first pass is in flight must be a no-op
	sched.RunPass(context.Background())

	close(processor.release)
	<-done

	if got := processor.runCount("fda-recalls"); got != 1 {
		t.Errorf("Expected exactly 1 pass execution, got %d", got)
	}
	if sched.State() != StateIdle {
		t.Errorf("Expected idle state after pass, got %s", sched.State())
	}
}

func TestRunPassPolitenessDelayBetweenSources(t *testing.T) {
	registry := testRegistry(t, "fda-recalls", "who-alerts")
	repo := newFakeSourceRepo()
	repo.register("fda-recalls", nil)
	repo.register("who-alerts", nil)

	processor := newFakeProcessor()
	delay := 50 * time.Millisecond
	sched := NewScheduler(registry, repo, processor, time.Hour, delay)

	start := time.Now()
	sched.RunPass(context.Background())
	elapsed := time.Since(start)

	if got := processor.runCount("fda-recalls"); got != 1 {
		t.Errorf("Expected 1 ingestion for fda-recalls, got %d runs", got)
	}
	if got := processor.runCount("who-alerts"); got != 1 {
		t.Errorf("Expected 1 ingestion for who-alerts, got %d runs", got)
	}

	// The delay follows every processed source, so two sources wait twice.
	if minimum := 2 * delay; elapsed < minimum {
		t.Errorf("Expected pass over 2 sources to take at least %v, took %v", minimum, elapsed)
	}
}

func TestRunPassSkipsSourceNotDue(t *testing.T) {
	registry := testRegistry(t, "fda-recalls", "who-alerts")
	repo := newFakeSourceRepo()

	// fda-recalls checked 10 minutes ago with a 60 minute frequency: not due.
	recent := time.Now().UTC().Add(-10 * time.Minute)
	repo.register("fda-recalls", &recent)
	repo.register("who-alerts", nil)

	processor := newFakeProcessor()
	sched := NewScheduler(registry, repo, processor, time.Hour, 0)

	sched.RunPass(context.Background())

	if got := processor.runCount("fda-recalls"); got != 0 {
		t.Errorf("Expected no ingestion for source not due, got %d runs", got)
	}
	if got := processor.runCount("who-alerts"); got != 1 {
		t.Errorf("Expected 1 ingestion for due source, got %d runs", got)
	}
}

func TestRunPassSourceDueAfterFrequencyElapsed(t *testing.T) {
	registry := testRegistry(t, "fda-recalls")
	repo := newFakeSourceRepo()

	stale := time.Now().UTC().Add(-2 * time.Hour)
	repo.register("fda-recalls", &stale)

	processor := newFakeProcessor()
	sched := NewScheduler(registry, repo, processor, time.Hour, 0)

	sched.RunPass(context.Background())

	if got := processor.runCount("fda-recalls"); got != 1 {
		t.Errorf("Expected 1 ingestion for stale source, got %d runs", got)
	}
}

func TestRunPassUpdatesLastCheckedOnFailure(t *testing.T) {
	registry := testRegistry(t, "fda-recalls")
	repo := newFakeSourceRepo()
	repo.register("fda-recalls", nil)

	processor := newFakeProcessor()
	processor.err = errors.New("fetch failed")

	sched := NewScheduler(registry, repo, processor, time.Hour, 0)
	sched.RunPass(context.Background())

	if repo.lastChecked("fda-recalls") == nil {
		t.Error("Expected last checked time to advance even when ingestion fails")
	}
}

func TestRunPassSkipsUnregisteredSource(t *testing.T) {
	registry := testRegistry(t, "fda-recalls")
	repo := newFakeSourceRepo() // nothing registered

	processor := newFakeProcessor()
	sched := NewScheduler(registry, repo, processor, time.Hour, 0)
	sched.RunPass(context.Background())

	if got := processor.runCount("fda-recalls"); got != 0 {
		t.Errorf("Expected unregistered source to be skipped, got %d runs", got)
	}
}

func TestStateString(t *testing.T) {
	if StateIdle.String() != "idle" {
		t.Errorf("Expected 'idle', got %q", StateIdle.String())
	}
	if StateMonitoring.String() != "monitoring" {
		t.Errorf("Expected 'monitoring', got %q", StateMonitoring.String())
	}
}
