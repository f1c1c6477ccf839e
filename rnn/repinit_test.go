// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rnn

import (
	"math"
	"math/rand"
	"testing"
)

func TestSelectBest(t *testing.T) {
	nt := testNet(2, 3, 91)
	teach := testSeries(15, 2)
	ie := NewInitEnsemble(1, 4, 3, 1)
	ie.InitStates(rand.New(rand.NewSource(91)))
	st := NewState(nt, 15)

	best := ie.SelectBest(nt, st, 0, teach)
	for m := range ie.States[0] {
		nt.Forward(st, ie.States[0][m], teach)
		e := nt.Error(st, teach)
		nt.Forward(st, ie.States[0][best], teach)
		be := nt.Error(st, teach)
		if e < be {
			t.Errorf("candidate %d has error %v below the selected %v", m, e, be)
		}
	}
	if ie.Best[0] != best {
		t.Errorf("Best[0] = %d, want %d", ie.Best[0], best)
	}
}

func TestSelectBestSingleCandidate(t *testing.T) {
	nt := testNet(2, 3, 93)
	ie := NewInitEnsemble(2, 1, 3, 1)
	st := NewState(nt, 1)
	if best := ie.SelectBest(nt, st, 1, nil); best != 0 {
		t.Errorf("single candidate selection = %d, want 0", best)
	}
}

func TestRegGrads(t *testing.T) {
	ie := NewInitEnsemble(1, 3, 2, 0.5)
	ie.States[0][0] = []float64{1, 0}
	ie.States[0][1] = []float64{0, 1}
	ie.States[0][2] = []float64{-1, -1}
	ie.RegGrads()

	// pull toward the trial mean with strength 1/variance
	mean := []float64{0, 0}
	for k := 0; k < 2; k++ {
		sum := 0.0
		for m := 0; m < 3; m++ {
			want := (ie.States[0][m][k] - mean[k]) / 0.5
			if math.Abs(ie.Grads[0][m][k]-want) > 1e-12 {
				t.Errorf("grad[%d][%d] = %v, want %v", m, k, ie.Grads[0][m][k], want)
			}
			sum += ie.Grads[0][m][k]
		}
		// the pull is centered: it cannot move the trial mean
		if math.Abs(sum) > 1e-12 {
			t.Errorf("regularizer gradients for dim %d sum to %v, want 0", k, sum)
		}
	}
}

func TestConstInitC(t *testing.T) {
	ie := NewInitEnsemble(2, 3, 3, 1)
	mask, val, err := ParseConstInitC("2:0.7", 3)
	if err != nil {
		t.Fatal(err)
	}
	ie.SetConstInitC(mask, val)
	ie.InitStates(rand.New(rand.NewSource(95)))
	for n := range ie.States {
		for m := range ie.States[n] {
			if ie.States[n][m][1] != 0.7 {
				t.Errorf("constant neuron initialized to %v, want 0.7", ie.States[n][m][1])
			}
		}
	}

	ls := &LearnState{Rho: 0.5, Momentum: 0}
	for n := range ie.Grads {
		for m := range ie.Grads[n] {
			for k := range ie.Grads[n][m] {
				ie.Grads[n][m][k] = 1
			}
		}
	}
	free := ie.States[0][0][0]
	ie.Update(ls)
	for n := range ie.States {
		for m := range ie.States[n] {
			if ie.States[n][m][1] != 0.7 {
				t.Errorf("constant neuron moved to %v under update", ie.States[n][m][1])
			}
		}
	}
	if got, want := ie.States[0][0][0], free-0.5; math.Abs(got-want) > 1e-15 {
		t.Errorf("free neuron = %v, want %v", got, want)
	}
}

func TestEnsembleFixed(t *testing.T) {
	ie := NewInitEnsemble(1, 2, 2, 1)
	ie.InitStates(rand.New(rand.NewSource(97)))
	before := append([]float64(nil), ie.States[0][0]...)
	ie.Grads[0][0][0] = 1
	ls := &LearnState{Rho: 1, FixedInitC: true}
	ie.Update(ls)
	for k, v := range ie.States[0][0] {
		if v != before[k] {
			t.Error("fixed initial state moved under update")
		}
	}
}

func TestAccumGrad(t *testing.T) {
	ie := NewInitEnsemble(1, 3, 2, 1)
	ie.Best[0] = 2
	ie.AccumGrad(0, []float64{1, -2})
	ie.AccumGrad(0, []float64{0.5, 0.5})
	if ie.Grads[0][2][0] != 1.5 || ie.Grads[0][2][1] != -1.5 {
		t.Errorf("accumulated grads = %v, want [1.5 -1.5]", ie.Grads[0][2])
	}
	if ie.Grads[0][0][0] != 0 || ie.Grads[0][1][0] != 0 {
		t.Error("gradient leaked into a non-best candidate")
	}
	ie.ResetGrads()
	if ie.Grads[0][2][0] != 0 {
		t.Error("ResetGrads left a gradient behind")
	}
}
