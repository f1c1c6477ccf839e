// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dynamics

import (
	"math"

	"github.com/emer/etable/metric"
)

// DetectPeriod looks for a periodic orbit in the closed-loop context
// trajectory: it runs the system for horizon steps and returns the
// smallest lag k at which the final state recurs, squared distance
// below tol times the context size.  A recurrence at lag k is only
// accepted if the state also recurs at lag 2k when the horizon allows
// checking it.  Returns period > 0 when one is found, 0 when the
// trajectory is aperiodic within the horizon, and ok=false when the
// question could not be decided (degenerate horizon or a diverged
// trajectory).
func DetectPeriod(sy *System, horizon int, tol float64) (int, bool) {
	if horizon <= 1 {
		return 0, false
	}
	nc := sy.Net.CSize
	states := make([][]float64, horizon+1)
	states[0] = append([]float64(nil), sy.C...)
	for t := 1; t <= horizon; t++ {
		sy.Step()
		if !sy.Finite() {
			return 0, false
		}
		states[t] = append([]float64(nil), sy.C...)
	}
	thr := tol * float64(nc)
	ref := states[horizon]
	for k := 1; k <= horizon; k++ {
		d := metric.SumSquares64(ref, states[horizon-k])
		if math.IsNaN(d) {
			return 0, false
		}
		if d >= thr {
			continue
		}
		if horizon >= 2*k {
			if metric.SumSquares64(states[horizon-k], states[horizon-2*k]) >= thr {
				continue
			}
		}
		return k, true
	}
	return 0, true
}
