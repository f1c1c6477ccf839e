// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package report is the reporting sink: it owns the per-artifact write
// schedules and emits the numeric output artifacts at their configured
// epoch intervals.  Writes are off the critical path of the next
// epoch; nothing here feeds back into training.
package report

// Interval is one print-interval quadruple controlling when an
// artifact file is written.
type Interval struct {

	// epochs between writes (linear schedule)
	Interval int64 `desc:"epochs between writes (linear schedule)"`

	// first epoch eligible for writing
	Init int64 `desc:"first epoch eligible for writing"`

	// last epoch eligible for writing
	End int64 `desc:"last epoch eligible for writing"`

	// write at doubling epochs instead of the linear schedule
	LogScale bool `desc:"write at doubling epochs instead of the linear schedule"`
}

// Due reports whether the artifact is written at the given epoch.  The
// linear schedule writes every Interval epochs starting at Init; the
// log-scale schedule writes at max(Init,1) and every doubling of it.
// Both are clipped to [Init, End].  The schedule is stateless: Due is
// a pure function of the epoch.
func (iv *Interval) Due(epoch int64) bool {
	if epoch < iv.Init || epoch > iv.End {
		return false
	}
	if iv.LogScale {
		base := iv.Init
		if base < 1 {
			base = 1
		}
		if epoch%base != 0 {
			return false
		}
		q := epoch / base
		if q < 1 {
			return false
		}
		return q&(q-1) == 0 // power of two multiples: base, 2*base, 4*base, ...
	}
	if iv.Interval <= 0 {
		return false
	}
	return (epoch-iv.Init)%iv.Interval == 0
}
