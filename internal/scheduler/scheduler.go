// Package scheduler runs the periodic draft expiry job.
package scheduler

import (
	"errors"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/vistoria/inspection/internal/session"
	"github.com/vistoria/inspection/internal/storage"
)

// DraftCleaner is the part of the draft manager the scheduler drives.
type DraftCleaner interface {
	CleanupOldDrafts(maxAge time.Duration) []session.Expired
}

// Scheduler manages scheduled tasks.
type Scheduler struct {
	cron    *cron.Cron
	drafts  DraftCleaner
	spec    string
	maxAge  time.Duration
	logger  *zap.Logger
	entryID cron.EntryID
}

// NewScheduler creates a scheduler that expires drafts idle for longer than
// maxAge on the given cron spec ("@every 5m", "*/10 * * * *").
func NewScheduler(drafts DraftCleaner, spec string, maxAge time.Duration, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Scheduler{
		cron:   cron.New(),
		drafts: drafts,
		spec:   spec,
		maxAge: maxAge,
		logger: logger,
	}
}

// Start registers the expiry job and starts the scheduler.
func (s *Scheduler) Start() error {
	s.logger.Info("starting scheduler", zap.String("schedule", s.spec), zap.Duration("max_age", s.maxAge))

	id, err := s.cron.AddFunc(s.spec, s.ExpireDrafts)
	if err != nil {
		s.logger.Error("failed to schedule draft expiry", zap.Error(err))
		return err
	}
	s.entryID = id

	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

// ExpireDrafts removes idle drafts. Photo cleanup happens in the manager's
// expiry hook, see ImageReaper.
func (s *Scheduler) ExpireDrafts() {
	expired := s.drafts.CleanupOldDrafts(s.maxAge)
	if len(expired) > 0 {
		s.logger.Info("draft expiry run", zap.Int("expired", len(expired)))
	}
}

// Next returns when the expiry job runs next; zero before Start.
func (s *Scheduler) Next() time.Time {
	if s.entryID == 0 {
		return time.Time{}
	}
	return s.cron.Entry(s.entryID).Next
}

// ImageReaper returns an expiry hook that deletes the photos of expired drafts.
func ImageReaper(store storage.Store, logger *zap.Logger) func([]session.Expired) {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(expired []session.Expired) {
		for _, e := range expired {
			for _, imageID := range e.ImageIDs {
				if err := store.Delete(imageID); err != nil && !errors.Is(err, storage.ErrNotFound) {
					logger.Warn("failed to delete orphaned image",
						zap.String("draft_id", e.DraftID),
						zap.String("image_id", imageID),
						zap.Error(err))
				}
			}
		}
	}
}
