package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSweeper_EmitsDeleteForEachExpiredCard(t *testing.T) {
	t.Parallel()

	repo := noopCardRepo()
	var calls int
	var mu sync.Mutex
	repo.deleteExpiredFn = func(_ context.Context, _ time.Time) ([]uint, error) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if calls == 1 {
			return []uint{3, 7}, nil
		}
		return nil, nil
	}

	var deleted []uint
	sweeper := NewSweeper(repo, func(cardID uint) {
		mu.Lock()
		defer mu.Unlock()
		deleted = append(deleted, cardID)
	})
	sweeper.interval = 10 * time.Millisecond

	sweeper.Start(context.Background())
	defer sweeper.Stop()

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(deleted) == 2
	}, time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []uint{3, 7}, deleted)
}

func TestSweeper_StopEndsLoop(t *testing.T) {
	t.Parallel()

	repo := noopCardRepo()
	var calls int
	var mu sync.Mutex
	repo.deleteExpiredFn = func(_ context.Context, _ time.Time) ([]uint, error) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		return nil, nil
	}

	sweeper := NewSweeper(repo, nil)
	sweeper.interval = 5 * time.Millisecond
	sweeper.Start(context.Background())

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return calls >= 2
	}, time.Second, 5*time.Millisecond)

	sweeper.Stop()
	mu.Lock()
	stopped := calls
	mu.Unlock()

	time.Sleep(30 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.LessOrEqual(t, calls, stopped+1)
}
