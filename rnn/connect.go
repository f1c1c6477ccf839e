// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rnn

import (
	"fmt"
	"strconv"
	"strings"
)

// Connection is the sparse connectivity between a sending and a
// receiving layer, parsed once from a configuration string at load
// time and never re-parsed during training.  Entries that are off hold
// a fixed zero weight and are excluded from gradients and updates.
// Scale multiplies the random initialization range of on entries.
type Connection struct {

	// number of receiving units
	Recv int `desc:"number of receiving units"`

	// number of sending units
	Send int `desc:"number of sending units"`

	// connectivity mask, indexed [recv][send]
	On [][]bool `desc:"connectivity mask, indexed [recv][send]"`

	// initialization range scale for on entries, indexed [recv][send]
	Scale [][]float64 `desc:"initialization range scale for on entries, indexed [recv][send]"`
}

// FullConnection returns an all-to-all connection with unit scale.
func FullConnection(recv, send int) *Connection {
	cn := &Connection{Recv: recv, Send: send}
	cn.On = make([][]bool, recv)
	cn.Scale = make([][]float64, recv)
	for r := 0; r < recv; r++ {
		cn.On[r] = make([]bool, send)
		cn.Scale[r] = make([]float64, send)
		for s := 0; s < send; s++ {
			cn.On[r][s] = true
			cn.Scale[r][s] = 1
		}
	}
	return cn
}

// ParseConnection parses a connectivity string for a send layer of
// size send and a recv layer of size recv.  The string is a
// comma-separated list of items of the form:
//
//	<send-range>t<recv-range>[:scale]
//
// where a range is a 1-based inclusive "a-b", a single index "a", or
// "-" (or empty) for the whole layer.  "-t-" is therefore full
// connectivity.  Out-of-range indices are an error.
func ParseConnection(str string, recv, send int) (*Connection, error) {
	cn := &Connection{Recv: recv, Send: send}
	cn.On = make([][]bool, recv)
	cn.Scale = make([][]float64, recv)
	for r := 0; r < recv; r++ {
		cn.On[r] = make([]bool, send)
		cn.Scale[r] = make([]float64, send)
	}
	str = strings.TrimSpace(str)
	if str == "" {
		return cn, nil
	}
	for _, item := range strings.Split(str, ",") {
		item = strings.TrimSpace(item)
		scale := 1.0
		if ci := strings.LastIndex(item, ":"); ci >= 0 {
			sc, err := strconv.ParseFloat(strings.TrimSpace(item[ci+1:]), 64)
			if err != nil || sc <= 0 {
				return nil, fmt.Errorf("connection %q: bad scale in item %q", str, item)
			}
			scale = sc
			item = item[:ci]
		}
		ti := strings.Index(item, "t")
		if ti < 0 {
			return nil, fmt.Errorf("connection %q: item %q missing 't' separator", str, item)
		}
		slo, shi, err := parseRange(item[:ti], send)
		if err != nil {
			return nil, fmt.Errorf("connection %q: %v", str, err)
		}
		rlo, rhi, err := parseRange(item[ti+1:], recv)
		if err != nil {
			return nil, fmt.Errorf("connection %q: %v", str, err)
		}
		for r := rlo; r <= rhi; r++ {
			for s := slo; s <= shi; s++ {
				cn.On[r][s] = true
				cn.Scale[r][s] = scale
			}
		}
	}
	return cn, nil
}

// NRecvCons returns the number of on entries received by unit r.
func (cn *Connection) NRecvCons(r int) int {
	n := 0
	for s := 0; s < cn.Send; s++ {
		if cn.On[r][s] {
			n++
		}
	}
	return n
}

// parseRange parses a 1-based inclusive range over [1,n], returning
// 0-based lo, hi.  "-" and "" select everything.
func parseRange(str string, n int) (lo, hi int, err error) {
	str = strings.TrimSpace(str)
	if str == "" || str == "-" {
		return 0, n - 1, nil
	}
	var los, his string
	if di := strings.Index(str, "-"); di >= 0 {
		los, his = str[:di], str[di+1:]
	} else {
		los, his = str, str
	}
	lo = 1
	hi = n
	if los != "" {
		if lo, err = strconv.Atoi(los); err != nil {
			return 0, 0, fmt.Errorf("bad range %q", str)
		}
	}
	if his != "" {
		if hi, err = strconv.Atoi(his); err != nil {
			return 0, 0, fmt.Errorf("bad range %q", str)
		}
	}
	if lo < 1 || hi > n || lo > hi {
		return 0, 0, fmt.Errorf("range %q out of bounds [1,%d]", str, n)
	}
	return lo - 1, hi - 1, nil
}

// ParseSoftmaxGroups parses the softmax group assignment string for
// out output units: comma-separated "range:group" items with 0-based
// group numbers.  An empty string puts every unit in group 0.  Returns
// the number of groups and the group id per unit.
func ParseSoftmaxGroups(str string, out int) (ngroups int, gid []int, err error) {
	gid = make([]int, out)
	str = strings.TrimSpace(str)
	if str == "" {
		return 1, gid, nil
	}
	maxg := 0
	for _, item := range strings.Split(str, ",") {
		ci := strings.LastIndex(item, ":")
		if ci < 0 {
			return 0, nil, fmt.Errorf("softmax group %q: item %q missing ':'", str, item)
		}
		g, cerr := strconv.Atoi(strings.TrimSpace(item[ci+1:]))
		if cerr != nil || g < 0 {
			return 0, nil, fmt.Errorf("softmax group %q: bad group in item %q", str, item)
		}
		lo, hi, rerr := parseRange(item[:ci], out)
		if rerr != nil {
			return 0, nil, fmt.Errorf("softmax group %q: %v", str, rerr)
		}
		for i := lo; i <= hi; i++ {
			gid[i] = g
		}
		if g > maxg {
			maxg = g
		}
	}
	return maxg + 1, gid, nil
}

// ParseInitTau parses the per-neuron initial time-constant string for
// n context neurons: comma-separated "range:value" items, or a single
// bare value applied to every neuron.  An empty string yields tau = 1
// everywhere.  Time constants must be >= 1.
func ParseInitTau(str string, n int) ([]float64, error) {
	tau := make([]float64, n)
	for i := range tau {
		tau[i] = 1
	}
	str = strings.TrimSpace(str)
	if str == "" {
		return tau, nil
	}
	if !strings.Contains(str, ":") {
		v, err := strconv.ParseFloat(str, 64)
		if err != nil || v < 1 {
			return nil, fmt.Errorf("init tau %q: not a value >= 1", str)
		}
		for i := range tau {
			tau[i] = v
		}
		return tau, nil
	}
	for _, item := range strings.Split(str, ",") {
		ci := strings.LastIndex(item, ":")
		if ci < 0 {
			return nil, fmt.Errorf("init tau %q: item %q missing ':'", str, item)
		}
		v, verr := strconv.ParseFloat(strings.TrimSpace(item[ci+1:]), 64)
		if verr != nil || v < 1 {
			return nil, fmt.Errorf("init tau %q: bad value in item %q", str, item)
		}
		lo, hi, rerr := parseRange(item[:ci], n)
		if rerr != nil {
			return nil, fmt.Errorf("init tau %q: %v", str, rerr)
		}
		for i := lo; i <= hi; i++ {
			tau[i] = v
		}
	}
	return tau, nil
}

// ParseConstInitC parses the constant initial context string for n
// context neurons: comma-separated "range:value" items.  Neurons named
// here get a fixed (non-learned) initial context state.  An empty
// string fixes nothing.
func ParseConstInitC(str string, n int) (mask []bool, val []float64, err error) {
	mask = make([]bool, n)
	val = make([]float64, n)
	str = strings.TrimSpace(str)
	if str == "" {
		return mask, val, nil
	}
	for _, item := range strings.Split(str, ",") {
		ci := strings.LastIndex(item, ":")
		if ci < 0 {
			return nil, nil, fmt.Errorf("const init c %q: item %q missing ':'", str, item)
		}
		v, verr := strconv.ParseFloat(strings.TrimSpace(item[ci+1:]), 64)
		if verr != nil {
			return nil, nil, fmt.Errorf("const init c %q: bad value in item %q", str, item)
		}
		lo, hi, rerr := parseRange(item[:ci], n)
		if rerr != nil {
			return nil, nil, fmt.Errorf("const init c %q: %v", str, rerr)
		}
		for i := lo; i <= hi; i++ {
			mask[i] = true
			val[i] = v
		}
	}
	return mask, val, nil
}
