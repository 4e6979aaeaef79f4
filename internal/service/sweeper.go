package service

import (
	"context"
	"time"

	"freebites/internal/middleware"
	"freebites/internal/repository"
)

// SweepInterval controls how often expired cards are purged.
const SweepInterval = 60 * time.Second

// Sweeper periodically deletes cards past their expiration along with their
// comments, and reports each removal so connected clients drop the card.
type Sweeper struct {
	cardRepo repository.CardRepository
	onDelete func(cardID uint)
	interval time.Duration
	now      func() time.Time
	done     chan struct{}
}

func NewSweeper(cardRepo repository.CardRepository, onDelete func(cardID uint)) *Sweeper {
	return &Sweeper{
		cardRepo: cardRepo,
		onDelete: onDelete,
		interval: SweepInterval,
		now:      func() time.Time { return time.Now().UTC() },
		done:     make(chan struct{}),
	}
}

// Start runs the sweep loop until Stop is called. An initial sweep runs
// immediately so a restart does not leave stale cards up for a full interval.
func (s *Sweeper) Start(ctx context.Context) {
	go func() {
		s.sweep(ctx)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.sweep(ctx)
			case <-s.done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (s *Sweeper) Stop() {
	close(s.done)
}

func (s *Sweeper) sweep(ctx context.Context) {
	ids, err := s.cardRepo.DeleteExpired(ctx, s.now())
	if err != nil {
		middleware.Logger.ErrorContext(ctx, "expired card sweep failed", "error", err)
		return
	}
	if len(ids) == 0 {
		return
	}

	middleware.ExpiredCardsSwept.Add(float64(len(ids)))
	middleware.Logger.InfoContext(ctx, "swept expired cards", "count", len(ids))
	if s.onDelete != nil {
		for _, id := range ids {
			s.onDelete(id)
		}
	}
}
