// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rnn

// Bounds of the adaptive learning-rate multiplier.
const (
	AdaptLRMin = 1e-8
	AdaptLRMax = 1e3
)

// LearnState holds everything the update rule carries across epochs:
// the hyperparameters, one momentum (velocity) buffer per trainable
// parameter, and the adaptive learning-rate state.  It is created at
// process start (or restored from a save file) and owned exclusively
// by the training loop.
type LearnState struct {

	// learning rate
	Rho float64 `desc:"learning rate"`

	// momentum factor on the velocity buffers
	Momentum float64 `desc:"momentum factor on the velocity buffers"`

	// strength of the Gaussian prior pulling weights and thresholds toward zero
	PriorStrength float64 `desc:"strength of the Gaussian prior pulling weights and thresholds toward zero"`

	// freeze all weight matrices for the run
	FixedWeight bool `desc:"freeze all weight matrices for the run"`

	// freeze all thresholds for the run
	FixedThreshold bool `desc:"freeze all thresholds for the run"`

	// freeze all time constants for the run
	FixedTau bool `desc:"freeze all time constants for the run"`

	// freeze all learnable initial context states for the run
	FixedInitC bool `desc:"freeze all learnable initial context states for the run"`

	// rescale AdaptLR from the error trend once per epoch
	UseAdaptiveLR bool `desc:"rescale AdaptLR from the error trend once per epoch"`

	// decay of the trailing error average (adaptive rule)
	Lambda float64 `desc:"decay of the trailing error average (adaptive rule)"`

	// adaptation step of the learning-rate multiplier (adaptive rule)
	Alpha float64 `desc:"adaptation step of the learning-rate multiplier (adaptive rule)"`

	// adaptive learning-rate multiplier, in [AdaptLRMin, AdaptLRMax]
	AdaptLR float64 `desc:"adaptive learning-rate multiplier, in [AdaptLRMin, AdaptLRMax]"`

	// trailing average of the total error across recent epochs
	ErrTrend float64 `desc:"trailing average of the total error across recent epochs"`

	// whether ErrTrend has been primed with a first epoch
	TrendValid bool `desc:"whether ErrTrend has been primed with a first epoch"`

	// velocity buffers, same shapes as the network parameters
	VWCI [][]float64 `desc:"velocity buffers, same shapes as the network parameters"`
	VWCC [][]float64
	VWOC [][]float64
	VWVC [][]float64
	VThC []float64
	VThO []float64
	VThV []float64
	VTau []float64
}

// NewLearnState allocates zeroed velocity buffers for the network,
// with AdaptLR starting at 1.
func NewLearnState(nt *Network) *LearnState {
	return &LearnState{
		AdaptLR: 1,
		Lambda:  0.9,
		VWCI:    newMat(nt.CSize, nt.InSize),
		VWCC:    newMat(nt.CSize, nt.CSize),
		VWOC:    newMat(nt.OutSize, nt.CSize),
		VWVC:    newMat(nt.OutSize, nt.CSize),
		VThC:    make([]float64, nt.CSize),
		VThO:    make([]float64, nt.OutSize),
		VThV:    make([]float64, nt.OutSize),
		VTau:    make([]float64, nt.CSize),
	}
}

// Update applies one batch update from the accumulated gradients:
//
//	v <- momentum*v - adapt_lr*rho*(dE/dp + prior*p);  p <- p + v
//
// The Gaussian prior applies to weights and thresholds only; pulling
// time constants toward zero would violate the tau >= 1 floor, and
// initial states have their own ensemble regularizer.  Masked-off
// entries and fixed parameter groups are left untouched.
func (ls *LearnState) Update(nt *Network, g *Grads) {
	lr := ls.AdaptLR * ls.Rho
	upW := func(w, v, gr [][]float64, cn *Connection) {
		for r := range w {
			for c := range w[r] {
				if !cn.On[r][c] {
					continue
				}
				v[r][c] = ls.Momentum*v[r][c] - lr*(gr[r][c]+ls.PriorStrength*w[r][c])
				w[r][c] += v[r][c]
			}
		}
	}
	if !ls.FixedWeight {
		upW(nt.WCI, ls.VWCI, g.WCI, nt.CI)
		upW(nt.WCC, ls.VWCC, g.WCC, nt.CC)
		upW(nt.WOC, ls.VWOC, g.WOC, nt.OC)
		upW(nt.WVC, ls.VWVC, g.WVC, nt.VC)
	}
	if !ls.FixedThreshold {
		upV := func(th, v, gr []float64) {
			for i := range th {
				v[i] = ls.Momentum*v[i] - lr*(gr[i]+ls.PriorStrength*th[i])
				th[i] += v[i]
			}
		}
		upV(nt.ThC, ls.VThC, g.ThC)
		upV(nt.ThO, ls.VThO, g.ThO)
		upV(nt.ThV, ls.VThV, g.ThV)
	}
	if !ls.FixedTau {
		for k := range nt.Tau {
			ls.VTau[k] = ls.Momentum*ls.VTau[k] - lr*g.Tau[k]
			nt.Tau[k] += ls.VTau[k]
			if nt.Tau[k] < 1 {
				nt.Tau[k] = 1
				ls.VTau[k] = 0
			}
		}
	}
}

// UpdateAdaptLR rescales the adaptive learning-rate multiplier from
// the latest total error, once per epoch.  The rule keeps a trailing
// average A <- lambda*A + (1-lambda)*E of the total error; an epoch at
// or below trend multiplies AdaptLR by (1+alpha), an epoch above trend
// divides it by (1+2*alpha).  AdaptLR stays within
// [AdaptLRMin, AdaptLRMax]; the trajectory is a deterministic function
// of the error history.  No-op unless UseAdaptiveLR is set.
func (ls *LearnState) UpdateAdaptLR(totErr float64) {
	if !ls.UseAdaptiveLR {
		return
	}
	if !ls.TrendValid {
		ls.ErrTrend = totErr
		ls.TrendValid = true
		return
	}
	if totErr <= ls.ErrTrend {
		ls.AdaptLR *= 1 + ls.Alpha
	} else {
		ls.AdaptLR /= 1 + 2*ls.Alpha
	}
	if ls.AdaptLR > AdaptLRMax {
		ls.AdaptLR = AdaptLRMax
	} else if ls.AdaptLR < AdaptLRMin {
		ls.AdaptLR = AdaptLRMin
	}
	ls.ErrTrend = ls.Lambda*ls.ErrTrend + (1-ls.Lambda)*totErr
}
