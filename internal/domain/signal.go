package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RawSignal represents a single noisy market/sentiment data point as produced
// by an ingestion source. Weight is optional: signal sources that carry no
// volume information leave it nil.
type RawSignal struct {
	Key        string
	Score      decimal.Decimal
	Weight     *decimal.Decimal
	RecordedAt time.Time
}

// DayUTC normalizes a timestamp to the UTC midnight that starts its calendar
// day. All aggregation windows are defined on UTC calendar days, independent
// of local time zones.
func DayUTC(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
