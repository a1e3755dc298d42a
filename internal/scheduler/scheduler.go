package scheduler

import (
	"context"
	"log"
	"math/rand"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/i474232898/met-local-forecast/internal/registry"
)

const (
	// minInterval and intervalSpread bound the per-location refresh period
	// to [40m, 50m) so many installations do not hit the API in lockstep.
	minInterval    = 40 * time.Minute
	intervalSpread = 10

	updateTimeout = 30 * time.Second
)

// Scheduler periodically updates the readings of every configured location.
type Scheduler struct {
	scheduler *gocron.Scheduler
	interval  func() time.Duration
}

// New creates a new Scheduler.
func New() *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	return &Scheduler{
		scheduler: s,
		interval:  randomInterval,
	}
}

// randomInterval picks a whole number of minutes in [40, 50).
func randomInterval() time.Duration {
	return minInterval + time.Duration(rand.Intn(intervalSpread))*time.Minute
}

// Start starts the underlying scheduler.
func (s *Scheduler) Start() {
	s.scheduler.StartAsync()
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}

// Len returns the number of scheduled jobs.
func (s *Scheduler) Len() int {
	return s.scheduler.Len()
}

// LocationAdded schedules a job for loc; the first run happens immediately.
func (s *Scheduler) LocationAdded(loc *registry.Location) {
	interval := s.interval()
	_, err := s.scheduler.Every(interval).
		Tag(loc.Entry.ID).
		SingletonMode().
		Do(func() { UpdateLocation(loc) })
	if err != nil {
		log.Printf("ERROR: scheduler: could not schedule %s: %v", loc.Entry.Name, err)
		return
	}
	log.Printf("INFO: scheduler: %s refreshes every %s", loc.Entry.Name, interval)
}

// LocationRemoved cancels the job for loc.
func (s *Scheduler) LocationRemoved(loc *registry.Location) {
	if err := s.scheduler.RemoveByTag(loc.Entry.ID); err != nil {
		log.Printf("WARN: scheduler: remove %s: %v", loc.Entry.Name, err)
	}
}

// UpdateLocation refreshes loc once and logs every reading. A failed refresh
// leaves the previous values in place until the next run.
func UpdateLocation(loc *registry.Location) {
	ctx, cancel := context.WithTimeout(context.Background(), updateTimeout)
	defer cancel()

	if err := loc.Forecast.EnsureFresh(ctx); err != nil {
		log.Printf("WARN: scheduler: update %s failed: %v", loc.Entry.Name, err)
	}

	for _, r := range loc.Readings {
		v, err := r.NativeValue()
		if err != nil {
			log.Printf("WARN: scheduler: read %s failed: %v", r.UniqueID(), err)
			continue
		}
		log.Printf("DEBUG: %s = %v %s", r.UniqueID(), v, r.Description().Unit)
	}
}

var _ registry.Listener = (*Scheduler)(nil)
