package core

import "time"

// FixedStep paces headless simulation loops at a steady ticks-per-second
// rate.
type FixedStep struct {
	step time.Duration
}

// NewFixedStep constructs a FixedStep targeting tps. Non-positive rates fall
// back to 60.
func NewFixedStep(tps int) *FixedStep {
	if tps <= 0 {
		tps = 60
	}
	return &FixedStep{step: time.Second / time.Duration(tps)}
}

// Step returns the duration of one tick.
func (f *FixedStep) Step() time.Duration { return f.step }

// NewTicker returns a ticker firing once per tick. Callers stop it.
func (f *FixedStep) NewTicker() *time.Ticker { return time.NewTicker(f.step) }
