package order

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// callNumAttempts bounds the retries when same-day creations race to the
// same call number. The unique index on (day, call_num) rejects the losers,
// which retry with a fresh read; the conflict never reaches the caller.
// Every lost race means a competitor committed that number and is done, so a
// creator loses at most attempts-1 races: five attempts absorbs five
// simultaneous creations.
const callNumAttempts = 5

// DayOf returns the calendar day containing asOf in the given location,
// normalized to midnight. Call numbers restart at 1 at this boundary and are
// unique within it.
func DayOf(asOf time.Time, loc *time.Location) time.Time {
	t := asOf.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// nextCallNumber reads the day's maximum call number inside tx and returns
// max+1, or 1 when the day has no orders yet.
func nextCallNumber(ctx context.Context, tx pgx.Tx, day time.Time) (int, error) {
	var maxNum int
	err := tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(call_num), 0) FROM orders WHERE day = $1`, day,
	).Scan(&maxNum)
	if err != nil {
		return 0, fmt.Errorf("repository: failed to read max call number: %w", err)
	}
	return maxNum + 1, nil
}
