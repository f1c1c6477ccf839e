// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rnn

import "testing"

func TestParseConnectionFull(t *testing.T) {
	cn, err := ParseConnection("-t-", 3, 2)
	if err != nil {
		t.Fatal(err)
	}
	for r := 0; r < 3; r++ {
		for s := 0; s < 2; s++ {
			if !cn.On[r][s] {
				t.Errorf("on[%d][%d] = false, want full connectivity", r, s)
			}
			if cn.Scale[r][s] != 1 {
				t.Errorf("scale[%d][%d] = %v, want 1", r, s, cn.Scale[r][s])
			}
		}
	}
}

func TestParseConnectionRanges(t *testing.T) {
	// senders 1-2 to receivers 1-3, sender 4 to receiver 4 at scale 0.5
	cn, err := ParseConnection("1-2t1-3,4t4:0.5", 4, 4)
	if err != nil {
		t.Fatal(err)
	}
	for r := 0; r < 4; r++ {
		for s := 0; s < 4; s++ {
			want := (r <= 2 && s <= 1) || (r == 3 && s == 3)
			if cn.On[r][s] != want {
				t.Errorf("on[%d][%d] = %v, want %v", r, s, cn.On[r][s], want)
			}
		}
	}
	if cn.Scale[3][3] != 0.5 {
		t.Errorf("scale[3][3] = %v, want 0.5", cn.Scale[3][3])
	}
	if cn.Scale[0][0] != 1 {
		t.Errorf("scale[0][0] = %v, want 1", cn.Scale[0][0])
	}
}

func TestParseConnectionOutOfRange(t *testing.T) {
	if _, err := ParseConnection("1-5t-", 4, 4); err == nil {
		t.Error("sender range past the layer size should fail")
	}
	if _, err := ParseConnection("-t0-2", 4, 4); err == nil {
		t.Error("zero start in a 1-based range should fail")
	}
	if _, err := ParseConnection("garbage", 4, 4); err == nil {
		t.Error("malformed item should fail")
	}
}

func TestNRecvCons(t *testing.T) {
	cn, err := ParseConnection("1-2t-", 3, 4)
	if err != nil {
		t.Fatal(err)
	}
	for r := 0; r < 3; r++ {
		if n := cn.NRecvCons(r); n != 2 {
			t.Errorf("NRecvCons(%d) = %d, want 2", r, n)
		}
	}
}

func TestParseSoftmaxGroups(t *testing.T) {
	ng, gid, err := ParseSoftmaxGroups("1-2:0,3-4:1", 4)
	if err != nil {
		t.Fatal(err)
	}
	if ng != 2 {
		t.Errorf("ngroups = %d, want 2", ng)
	}
	want := []int{0, 0, 1, 1}
	for i, g := range gid {
		if g != want[i] {
			t.Errorf("gid[%d] = %d, want %d", i, g, want[i])
		}
	}
	if _, _, err := ParseSoftmaxGroups("1-8:0", 4); err == nil {
		t.Error("out-of-range group assignment should fail")
	}
}

func TestParseInitTau(t *testing.T) {
	tau, err := ParseInitTau("2", 3)
	if err != nil {
		t.Fatal(err)
	}
	for k, v := range tau {
		if v != 2 {
			t.Errorf("tau[%d] = %v, want 2", k, v)
		}
	}
	tau, err = ParseInitTau("1-2:5,3:10", 3)
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{5, 5, 10}
	for k, v := range tau {
		if v != want[k] {
			t.Errorf("tau[%d] = %v, want %v", k, v, want[k])
		}
	}
	if _, err := ParseInitTau("0.5", 3); err == nil {
		t.Error("tau below 1 should fail")
	}
}

func TestParseConstInitC(t *testing.T) {
	mask, val, err := ParseConstInitC("2:0.5", 3)
	if err != nil {
		t.Fatal(err)
	}
	if mask[0] || !mask[1] || mask[2] {
		t.Errorf("mask = %v, want only neuron 2 set", mask)
	}
	if val[1] != 0.5 {
		t.Errorf("val[1] = %v, want 0.5", val[1])
	}
}
