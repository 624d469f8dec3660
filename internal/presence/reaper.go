// Package presence evicts participants that stopped sending heartbeats.
package presence

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/vovakirdan/batepapo-server/internal/chat"
	"github.com/vovakirdan/batepapo-server/internal/store"
)

// Reaper periodically removes stale participants and announces their departure.
//
// It is not synchronized with heartbeats: a participant refreshing its status
// while a sweep is in flight may be evicted or kept for one more pass.
type Reaper struct {
	participants store.ParticipantStore
	messages     store.MessageStore
	interval     time.Duration
	staleAfter   time.Duration
	now          func() time.Time
	log          *zerolog.Logger
}

// Config holds the sweep timing.
type Config struct {
	Interval   time.Duration
	StaleAfter time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

// NewReaper creates a reaper over the given collections.
func NewReaper(participants store.ParticipantStore, messages store.MessageStore, cfg Config, logger *zerolog.Logger) *Reaper {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Reaper{
		participants: participants,
		messages:     messages,
		interval:     cfg.Interval,
		staleAfter:   cfg.StaleAfter,
		now:          now,
		log:          logger,
	}
}

// Run sweeps every interval until ctx is cancelled.
func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.log.Info().Dur("interval", r.interval).Dur("stale_after", r.staleAfter).Msg("presence reaper started")

	for {
		select {
		case <-ctx.Done():
			r.log.Info().Msg("presence reaper stopped")
			return
		case <-ticker.C:
			evicted, err := r.Sweep(ctx)
			if err != nil {
				r.log.Error().Err(err).Msg("presence sweep failed")
				continue
			}
			if len(evicted) > 0 {
				r.log.Info().Strs("names", evicted).Msg("evicted inactive participants")
			}
		}
	}
}

// Sweep evicts every participant whose last status is older than the
// staleness threshold. A leave message is appended for each one before a
// single batch delete. It returns the evicted names.
func (r *Reaper) Sweep(ctx context.Context) ([]string, error) {
	participants, err := r.participants.ListParticipants(ctx)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}

	now := r.now()
	cutoff := now.Add(-r.staleAfter).UnixMilli()

	stale := lo.Filter(participants, func(p *store.Participant, _ int) bool {
		return p.LastStatus < cutoff
	})
	if len(stale) == 0 {
		return nil, nil
	}

	names := lo.Map(stale, func(p *store.Participant, _ int) string {
		return p.Name
	})

	for _, name := range names {
		if err := r.messages.SaveMessage(ctx, chat.LeaveMessage(name, now)); err != nil {
			r.log.Error().Err(err).Str("name", name).Msg("failed to save leave message")
		}
	}

	if _, err := r.participants.DeleteParticipants(ctx, names); err != nil {
		return nil, fmt.Errorf("delete participants: %w", err)
	}

	return names, nil
}
