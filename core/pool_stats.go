package core

import (
	"encoding/json"
	"fmt"
)

// PoolStats represents statistics for all pools
type PoolStats struct {
	Connection ConnectionPoolStats `json:"connection"`
	Environ    SmartPoolStats      `json:"environ"`
}

type ConnectionPoolStats struct {
	Gets    uint64  `json:"gets"`
	Puts    uint64  `json:"puts"`
	HitRate float64 `json:"hit_rate"`
}

type SmartPoolStats struct {
	Gets    uint64  `json:"gets"`
	Puts    uint64  `json:"puts"`
	HitRate float64 `json:"hit_rate"`
}

// GetPoolStats returns statistics for all memory pools
func (e *Engine) GetPoolStats() PoolStats {
	stats := PoolStats{}

	gets, puts, hitRate := e.connectionPool.Stats()
	stats.Connection = ConnectionPoolStats{
		Gets:    gets,
		Puts:    puts,
		HitRate: hitRate,
	}

	envStats := e.environPool.Stats()
	stats.Environ = SmartPoolStats{
		Gets:    envStats.Gets,
		Puts:    envStats.Puts,
		HitRate: envStats.HitRate,
	}

	return stats
}

// GetPoolStatsJSON returns pool statistics as JSON string
func (e *Engine) GetPoolStatsJSON() string {
	stats := e.GetPoolStats()
	data, _ := json.MarshalIndent(stats, "", "  ")
	return string(data)
}

// GetPoolStatsText returns pool statistics as human-readable text
func (e *Engine) GetPoolStatsText() string {
	stats := e.GetPoolStats()
	return fmt.Sprintf(`Memory Pool Statistics
======================

Connection Pool:
  Gets:     %d
  Puts:     %d
  Hit Rate: %.2f%%

Environ Pool:
  Gets:     %d
  Puts:     %d
  Hit Rate: %.2f%%
`,
		stats.Connection.Gets, stats.Connection.Puts, stats.Connection.HitRate*100,
		stats.Environ.Gets, stats.Environ.Puts, stats.Environ.HitRate*100,
	)
}
