package config

import "sync"

// ViewSettings holds values the host may change while running.
type ViewSettings struct {
	mu         sync.RWMutex
	viewRadius int // in chunks
	fpsLimit   int // 0 = unlimited
}

const (
	MinViewRadius = 1
	MaxViewRadius = 32
)

var globalViewSettings = &ViewSettings{
	viewRadius: 6,
	fpsLimit:   120,
}

// GetViewRadius returns the current horizontal view radius in chunks.
func GetViewRadius() int {
	globalViewSettings.mu.RLock()
	defer globalViewSettings.mu.RUnlock()
	return globalViewSettings.viewRadius
}

// SetViewRadius sets the view radius, clamped to [MinViewRadius, MaxViewRadius],
// and returns the stored value.
func SetViewRadius(radius int) int {
	globalViewSettings.mu.Lock()
	defer globalViewSettings.mu.Unlock()

	radius = min(max(radius, MinViewRadius), MaxViewRadius)
	globalViewSettings.viewRadius = radius
	return radius
}

// GetFPSLimit returns the frame cap; 0 means unlimited.
func GetFPSLimit() int {
	globalViewSettings.mu.RLock()
	defer globalViewSettings.mu.RUnlock()
	return globalViewSettings.fpsLimit
}

// SetFPSLimit sets the frame cap. Negative values mean unlimited.
func SetFPSLimit(limit int) {
	globalViewSettings.mu.Lock()
	defer globalViewSettings.mu.Unlock()
	globalViewSettings.fpsLimit = max(limit, 0)
}
