package game

import (
	"runtime"
	"time"

	"voxel-terrain/internal/config"
)

const (
	pausedFPS = 30
	spinSlack = 200 * time.Microsecond
)

// FPSLimiter paces frames to config.GetFPSLimit.
type FPSLimiter struct {
	deadline time.Time
}

func NewFPSLimiter() *FPSLimiter {
	return &FPSLimiter{}
}

func frameBudget(paused bool) time.Duration {
	limit := config.GetFPSLimit()
	if paused {
		limit = pausedFPS
	}
	if limit <= 0 {
		return 0
	}
	return time.Second / time.Duration(limit)
}

// Wait blocks until the next frame is due.
func (f *FPSLimiter) Wait(paused bool) {
	budget := frameBudget(paused)
	if budget == 0 {
		f.deadline = time.Time{}
		return
	}

	now := time.Now()
	switch {
	case f.deadline.IsZero():
		f.deadline = now.Add(budget)
	case now.Sub(f.deadline) > budget:
		// Fell more than a frame behind; drop the backlog.
		f.deadline = now.Add(budget)
	default:
		f.deadline = f.deadline.Add(budget)
	}

	if remaining := time.Until(f.deadline); remaining > spinSlack {
		time.Sleep(remaining - spinSlack)
	}
	for time.Now().Before(f.deadline) {
		runtime.Gosched()
	}
}
