package uploads

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/voicenav/voice-gateway/internal/observability"
)

// Sweeper periodically removes uploads older than the retention window.
// It does not touch stored transcription metadata.
type Sweeper struct {
	files     *FileManager
	retention time.Duration
	interval  time.Duration
	logger    zerolog.Logger
}

func NewSweeper(files *FileManager, retention, interval time.Duration, logger zerolog.Logger) *Sweeper {
	if retention <= 0 {
		retention = time.Hour
	}
	if interval <= 0 {
		interval = time.Hour
	}
	return &Sweeper{
		files:     files,
		retention: retention,
		interval:  interval,
		logger:    logger.With().Str("component", "sweeper").Logger(),
	}
}

// Run sweeps every interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info().
		Dur("retention", s.retention).
		Dur("interval", s.interval).
		Msg("Retention sweep started")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("Retention sweep stopped")
			return
		case <-ticker.C:
			s.SweepOnce()
		}
	}
}

// SweepOnce runs a single pass and returns the number of files removed.
func (s *Sweeper) SweepOnce() int {
	removed, err := s.files.Sweep(s.retention)
	if err != nil {
		observability.RecordError("sweep", "uploads")
		s.logger.Error().Err(err).Msg("Retention sweep failed")
	}
	if removed > 0 {
		observability.RecordSwept(removed)
		s.logger.Info().Int("removed", removed).Msg("Removed expired uploads")
	}
	return removed
}
