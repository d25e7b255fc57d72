package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"jobmate/catalog-service/internal/model"
)

// SweeperActor is recorded as LastUpdatedBy on postings the sweeper deactivates.
const SweeperActor = "system:expiration-sweeper"

// DefaultSweepSample bounds how many candidates one sweep looks at.
const DefaultSweepSample = 100

// SweepReport summarises one sweep.
type SweepReport struct {
	Scanned     int `json:"scanned"`
	Deactivated int `json:"deactivated"`
	Failed      int `json:"failed"`
}

// Sweeper deactivates active postings whose TTL has elapsed. It never
// deletes.
type Sweeper struct {
	repo       JobRepository
	sampleSize int
	now        func() time.Time
	metrics    Recorder
	logger     *slog.Logger

	// mirror receives deactivations made on the remote store.
	mirror *LocalCache
}

// NewSweeper returns a Sweeper over any JobRepository.
func NewSweeper(repo JobRepository, sampleSize int, now func() time.Time, metrics Recorder, logger *slog.Logger) *Sweeper {
	if sampleSize < 1 {
		sampleSize = DefaultSweepSample
	}
	if now == nil {
		now = time.Now
	}
	if metrics == nil {
		metrics = nopRecorder{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{repo: repo, sampleSize: sampleSize, now: now, metrics: metrics, logger: logger}
}

// Run performs one sweep. A store that cannot serve the ordered query makes
// the sweep a logged no-op rather than an error.
func (s *Sweeper) Run(ctx context.Context) (SweepReport, error) {
	var rep SweepReport
	now := s.now()

	candidates, err := s.repo.Sample(ctx, model.Filter{
		ActiveOnly:    true,
		CreatedBefore: now.Add(-model.TTL),
	}, s.sampleSize)
	if errors.Is(err, ErrIndexUnsupported) {
		s.logger.Warn("sweep skipped, store cannot serve ordered query", "err", err)
		return rep, nil
	}
	if err != nil {
		return rep, fmt.Errorf("sweep sample: %w", err)
	}

	for _, r := range candidates {
		rep.Scanned++
		if !r.IsActive || !r.Expired(now) {
			continue
		}
		updated, err := s.repo.Update(ctx, r.ID, model.Deactivate(), SweeperActor)
		if err != nil {
			s.logger.Warn("sweep deactivate failed", "id", r.ID, "err", err)
			rep.Failed++
			continue
		}
		if s.mirror != nil {
			s.mirror.MirrorUpdate(ctx, r.ID, model.Deactivate(), SweeperActor, &updated)
		}
		rep.Deactivated++
	}

	s.metrics.Deactivated(rep.Deactivated)
	s.logger.Info("sweep complete", "scanned", rep.Scanned, "deactivated", rep.Deactivated, "failed", rep.Failed)
	return rep, nil
}
