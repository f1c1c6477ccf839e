// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rnn

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"
)

func TestNetFileRoundTrip(t *testing.T) {
	nt := testNet(2, 3, 101)
	nt.SetTau([]float64{1, 2, 4})
	ls := NewLearnState(nt)
	ls.Rho = 0.01
	ls.AdaptLR = 1.5
	ls.VWCC[1][2] = -0.25
	ie := NewInitEnsemble(2, 2, 3, 0.5)
	ie.InitStates(rand.New(rand.NewSource(101)))
	trials := [][][]float64{
		{{0.1, 0.2}, {0.3, 0.4}},
		{{-0.1, -0.2}, {-0.3, -0.4}, {0, 0}},
	}

	fname := filepath.Join(t.TempDir(), "rnn.json")
	nf := &NetFile{Epoch: 42, Net: nt, Learn: ls, Inits: ie, Trials: trials}
	if err := nf.SaveJSON(fname); err != nil {
		t.Fatal(err)
	}
	got, err := OpenNetFile(fname)
	if err != nil {
		t.Fatal(err)
	}
	if got.Epoch != 42 {
		t.Errorf("epoch = %d, want 42", got.Epoch)
	}
	if got.Net.CSize != 3 || got.Net.InSize != 2 {
		t.Errorf("net sizes %dx%d, want 3x2", got.Net.CSize, got.Net.InSize)
	}
	if got.Net.WCC[1][2] != nt.WCC[1][2] {
		t.Errorf("WCC[1][2] = %v, want %v", got.Net.WCC[1][2], nt.WCC[1][2])
	}
	if got.Net.Tau[2] != 4 {
		t.Errorf("Tau[2] = %v, want 4", got.Net.Tau[2])
	}
	if got.Learn.VWCC[1][2] != -0.25 {
		t.Errorf("momentum buffer = %v, want -0.25", got.Learn.VWCC[1][2])
	}
	if got.Learn.AdaptLR != 1.5 {
		t.Errorf("AdaptLR = %v, want 1.5", got.Learn.AdaptLR)
	}
	if got.Inits.States[1][1][2] != ie.States[1][1][2] {
		t.Error("ensemble state did not survive the round trip")
	}
	if len(got.Trials) != 2 || len(got.Trials[1]) != 3 {
		t.Errorf("trials shape changed: %d trials", len(got.Trials))
	}
}

func TestOpenNetFileErrors(t *testing.T) {
	if _, err := OpenNetFile(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("missing file should fail")
	}
	fname := filepath.Join(t.TempDir(), "incomplete.json")
	if err := os.WriteFile(fname, []byte(`{"Epoch": 3}`), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := OpenNetFile(fname); err == nil {
		t.Error("incomplete net file should fail")
	}
}
