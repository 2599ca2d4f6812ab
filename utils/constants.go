package utils

import (
	"time"
)

// Engine time constants
const (
	// ResolvedRetention is how long a resolved outage is kept before it is
	// purged from state (24 hours)
	ResolvedRetention = 24 * time.Hour

	// BudgetWindow is the trailing window over which per-platform spend is
	// summed for admission control (24 hours)
	BudgetWindow = 24 * time.Hour

	// EventLogCap is the maximum number of entries retained in the rolling
	// engine event log
	EventLogCap = 200

	// CORSMaxAge is the maximum age for CORS preflight requests (24 hours)
	CORSMaxAge = 86400
)

// Cache key constants
const (
	// PollLockCacheKey is the redis key guarding concurrent poll cycles
	PollLockCacheKey = "engine:poll:lock"

	// StatusCacheKey is the redis key holding the cached ops status payload
	StatusCacheKey = "engine:status"
)
