package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Window is a named trailing lookback period used to select a performance
// baseline.
type Window string

const (
	Window24h Window = "24h"
	Window7d  Window = "7d"
	Window30d Window = "30d"
)

// Duration returns the window's lookback length.
func (w Window) Duration() time.Duration {
	switch w {
	case Window24h:
		return 24 * time.Hour
	case Window7d:
		return 7 * 24 * time.Hour
	case Window30d:
		return 30 * 24 * time.Hour
	}
	return 0
}

// DefaultWindows returns the canonical window configuration, in evaluation
// order.
func DefaultWindows() []Window {
	return []Window{Window24h, Window7d, Window30d}
}

// WindowPerformance is the performance of an account's portfolio over one
// trailing window, relative to the nearest observation at or before the
// window's baseline instant.
//
// HasData == false means no usable baseline exists; all derived fields are
// nil in that case. CurrentValue is always populated regardless of HasData.
type WindowPerformance struct {
	Window             Window
	HasData            bool
	CurrentValue       decimal.Decimal
	BaselineValue      *decimal.Decimal
	BaselineObservedAt *time.Time
	AbsolutePnl        *decimal.Decimal
	PercentageChange   *decimal.Decimal
}
