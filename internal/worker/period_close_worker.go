package worker

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/GTDGit/gtd_stock/internal/cache"
	"github.com/GTDGit/gtd_stock/internal/models"
	"github.com/GTDGit/gtd_stock/internal/service"
	"github.com/GTDGit/gtd_stock/internal/utils"
)

const periodCloseLockKey = "period-close"

// PeriodCloser is the period surface the worker drives.
type PeriodCloser interface {
	PreviousPeriod() string
	Close(ctx context.Context, period string) (*models.PeriodClosure, error)
	Get(ctx context.Context, period string) (*service.PeriodDetail, error)
	SetArchiveKey(ctx context.Context, period, key string) error
}

// ReportBuilder renders a period's workbook.
type ReportBuilder interface {
	Monthly(ctx context.Context, period string) ([]byte, string, error)
}

// ReportArchiver stores a rendered workbook and returns its object key.
type ReportArchiver interface {
	UploadReport(ctx context.Context, period string, data []byte) (string, error)
}

// Locker hands out distributed locks.
type Locker interface {
	Obtain(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

// PeriodCloseWorker closes the previous month once it has ended and
// archives its report.
type PeriodCloseWorker struct {
	periods  PeriodCloser
	reports  ReportBuilder
	archive  ReportArchiver // nil disables archiving
	locker   Locker         // nil runs without a lock (single instance)
	interval time.Duration
	lockTTL  time.Duration
}

// NewPeriodCloseWorker constructs a PeriodCloseWorker.
func NewPeriodCloseWorker(
	periods PeriodCloser,
	reports ReportBuilder,
	archive ReportArchiver,
	locker Locker,
	interval time.Duration,
	lockTTL time.Duration,
) *PeriodCloseWorker {
	return &PeriodCloseWorker{
		periods:  periods,
		reports:  reports,
		archive:  archive,
		locker:   locker,
		interval: interval,
		lockTTL:  lockTTL,
	}
}

// Start runs once immediately and then on every tick until ctx is canceled.
// A non-positive interval disables the worker.
func (w *PeriodCloseWorker) Start(ctx context.Context) {
	if w.interval <= 0 {
		log.Warn().Msg("Period close worker disabled (interval <= 0)")
		return
	}
	log.Info().
		Dur("interval", w.interval).
		Bool("archive", w.archive != nil).
		Bool("locked", w.locker != nil).
		Msg("Starting period close worker")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.run(ctx)
	for {
		select {
		case <-ticker.C:
			w.run(ctx)
		case <-ctx.Done():
			log.Info().Msg("Period close worker stopped")
			return
		}
	}
}

func (w *PeriodCloseWorker) run(ctx context.Context) {
	if w.locker != nil {
		release, err := w.locker.Obtain(ctx, periodCloseLockKey, w.lockTTL)
		if errors.Is(err, cache.ErrLockHeld) {
			log.Debug().Msg("Period close lock held elsewhere, skipping")
			return
		}
		if err != nil {
			log.Error().Err(err).Msg("Failed to obtain period close lock")
			return
		}
		defer release()
	}

	period := w.periods.PreviousPeriod()
	archived, err := w.closePeriod(ctx, period)
	if err != nil {
		log.Error().Err(err).Str("period", period).Msg("Failed to close period")
		return
	}
	if archived || w.archive == nil {
		return
	}
	if err := w.archivePeriod(ctx, period); err != nil {
		log.Error().Err(err).Str("period", period).Msg("Failed to archive period report")
	}
}

// closePeriod closes period if needed and reports whether its report is
// already archived.
func (w *PeriodCloseWorker) closePeriod(ctx context.Context, period string) (bool, error) {
	_, err := w.periods.Close(ctx, period)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, utils.ErrPeriodClosed) {
		return false, err
	}

	detail, err := w.periods.Get(ctx, period)
	if err != nil {
		return false, err
	}
	return detail.Closure.ArchiveKey != nil, nil
}

func (w *PeriodCloseWorker) archivePeriod(ctx context.Context, period string) error {
	data, _, err := w.reports.Monthly(ctx, period)
	if err != nil {
		return err
	}
	key, err := w.archive.UploadReport(ctx, period, data)
	if err != nil {
		return err
	}
	if err := w.periods.SetArchiveKey(ctx, period, key); err != nil {
		return err
	}
	log.Info().Str("period", period).Str("key", key).Msg("Period report archived")
	return nil
}
