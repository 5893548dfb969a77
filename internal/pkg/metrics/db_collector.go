package metrics

import "github.com/jackc/pgx/v5/pgxpool"

// RecordDBPoolMetrics samples the pgx pool state into the pool gauge.
// Called periodically by the app, not on a hot path.
func RecordDBPoolMetrics(pool *pgxpool.Pool) {
	stats := pool.Stat()
	for label, value := range map[string]float64{
		"in_use": float64(stats.AcquiredConns()),
		"idle":   float64(stats.IdleConns()),
		"max":    float64(stats.MaxConns()),
	} {
		DBPoolConnections.WithLabelValues(label).Set(value)
	}
}
