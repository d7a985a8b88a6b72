// Package history persists a per-request audit trail of answered queries.
package history

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Entry is one answered query.
type Entry struct {
	RequestID    string
	Query        string
	Flow         string
	IntendedPage string
	Confidence   float64
	Route        string
	FileCount    int
	DurationMs   int64
}

// Recorder writes query log entries to Postgres. A nil Recorder or a Recorder
// without a pool discards entries, so the gateway runs without a database.
type Recorder struct {
	pool *pgxpool.Pool
}

func NewRecorder(pool *pgxpool.Pool) *Recorder {
	return &Recorder{pool: pool}
}

// Record inserts the entry asynchronously. Failures are logged and dropped;
// the audit trail never blocks or fails a request.
func (r *Recorder) Record(e Entry) {
	if r == nil || r.pool == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		_, err := r.pool.Exec(ctx, `
			INSERT INTO query_log (request_id, query_text, flow, intended_page, confidence, route, file_count, duration_ms)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			e.RequestID, e.Query, e.Flow, e.IntendedPage, e.Confidence, e.Route, e.FileCount, e.DurationMs,
		)
		if err != nil {
			slog.Warn("failed to record query log entry", "request_id", e.RequestID, "error", err)
		}
	}()
}
