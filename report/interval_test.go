// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package report

import (
	"math"
	"testing"
)

func TestIntervalLinear(t *testing.T) {
	iv := &Interval{Interval: 100, Init: 0, End: math.MaxInt64}
	for _, ep := range []int64{0, 100, 200, 1000} {
		if !iv.Due(ep) {
			t.Errorf("epoch %d not due on a 100-epoch schedule", ep)
		}
	}
	for _, ep := range []int64{1, 99, 101, 250} {
		if iv.Due(ep) {
			t.Errorf("epoch %d due on a 100-epoch schedule", ep)
		}
	}
}

func TestIntervalWindow(t *testing.T) {
	iv := &Interval{Interval: 10, Init: 50, End: 80}
	for _, ep := range []int64{50, 60, 70, 80} {
		if !iv.Due(ep) {
			t.Errorf("epoch %d not due inside the window", ep)
		}
	}
	for _, ep := range []int64{40, 49, 81, 90, 0} {
		if iv.Due(ep) {
			t.Errorf("epoch %d due outside the window", ep)
		}
	}
	// the phase anchors at Init
	iv2 := &Interval{Interval: 10, Init: 55, End: 80}
	if !iv2.Due(65) || iv2.Due(60) {
		t.Error("linear schedule is not anchored at the first eligible epoch")
	}
}

func TestIntervalLogScale(t *testing.T) {
	iv := &Interval{Init: 0, End: math.MaxInt64, LogScale: true}
	for _, ep := range []int64{1, 2, 4, 8, 1024} {
		if !iv.Due(ep) {
			t.Errorf("epoch %d not due on the doubling schedule", ep)
		}
	}
	for _, ep := range []int64{0, 3, 5, 6, 7, 100} {
		if iv.Due(ep) {
			t.Errorf("epoch %d due on the doubling schedule", ep)
		}
	}
}

func TestIntervalLogScaleInit(t *testing.T) {
	iv := &Interval{Init: 10, End: math.MaxInt64, LogScale: true}
	for _, ep := range []int64{10, 20, 40, 80} {
		if !iv.Due(ep) {
			t.Errorf("epoch %d not due doubling from 10", ep)
		}
	}
	for _, ep := range []int64{11, 15, 30, 50, 60} {
		if iv.Due(ep) {
			t.Errorf("epoch %d due doubling from 10", ep)
		}
	}
}

func TestIntervalDisabled(t *testing.T) {
	iv := &Interval{Interval: 0, Init: 0, End: math.MaxInt64}
	for _, ep := range []int64{0, 1, 100} {
		if iv.Due(ep) {
			t.Errorf("epoch %d due with a zero interval", ep)
		}
	}
}
