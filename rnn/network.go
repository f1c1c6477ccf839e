// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rnn

import (
	"fmt"
	"math"
	"math/rand"
)

// MinVariance is the floor of the output variance units, keeping the
// Gaussian loss finite.
const MinVariance = 1e-6

// Network is a continuous-time recurrent neural network with
// leaky-integrator context neurons.  The network is trained to predict
// its own input time series Delay steps ahead: during training the
// input at step t is the target at step t-Delay (inputs earlier than
// the series start are zero), and in closed-loop operation the
// network's own output is fed back as input after the same delay.
//
// Weight matrices are indexed [recv][send].  Entries masked off by the
// corresponding Connection hold zero for the whole run.
type Network struct {

	// input dimension == output dimension (self-feedback prediction)
	InSize int `desc:"input dimension == output dimension (self-feedback prediction)"`

	// number of context neurons
	CSize int `desc:"number of context neurons"`

	// output dimension
	OutSize int `desc:"output dimension"`

	// self-feedback delay in steps
	Delay int `desc:"self-feedback delay in steps"`

	// output activation function
	OutputType OutputTypes `desc:"output activation function"`

	// number of softmax groups (softmax output only)
	NGroups int `desc:"number of softmax groups (softmax output only)"`

	// softmax group id per output unit
	GroupID []int `desc:"softmax group id per output unit"`

	// input to context connectivity
	CI *Connection `desc:"input to context connectivity"`

	// context to context connectivity
	CC *Connection `desc:"context to context connectivity"`

	// context to output connectivity
	OC *Connection `desc:"context to output connectivity"`

	// context to variance connectivity
	VC *Connection `desc:"context to variance connectivity"`

	// input to context weights [CSize][InSize]
	WCI [][]float64 `desc:"input to context weights [CSize][InSize]"`

	// recurrent context weights [CSize][CSize]
	WCC [][]float64 `desc:"recurrent context weights [CSize][CSize]"`

	// context to output weights [OutSize][CSize]
	WOC [][]float64 `desc:"context to output weights [OutSize][CSize]"`

	// context to variance weights [OutSize][CSize]
	WVC [][]float64 `desc:"context to variance weights [OutSize][CSize]"`

	// context thresholds
	ThC []float64 `desc:"context thresholds"`

	// output thresholds
	ThO []float64 `desc:"output thresholds"`

	// variance thresholds
	ThV []float64 `desc:"variance thresholds"`

	// per-neuron time constants, >= 1 always
	Tau []float64 `desc:"per-neuron time constants, >= 1 always"`
}

// NewNetwork allocates a network with full connectivity and unit time
// constants.  Weights are zero until InitWeights is called.
func NewNetwork(in, csize, out, delay int, otyp OutputTypes) *Network {
	nt := &Network{InSize: in, CSize: csize, OutSize: out, Delay: delay, OutputType: otyp}
	nt.NGroups = 1
	nt.GroupID = make([]int, out)
	nt.CI = FullConnection(csize, in)
	nt.CC = FullConnection(csize, csize)
	nt.OC = FullConnection(out, csize)
	nt.VC = FullConnection(out, csize)
	nt.alloc()
	return nt
}

func (nt *Network) alloc() {
	nt.WCI = newMat(nt.CSize, nt.InSize)
	nt.WCC = newMat(nt.CSize, nt.CSize)
	nt.WOC = newMat(nt.OutSize, nt.CSize)
	nt.WVC = newMat(nt.OutSize, nt.CSize)
	nt.ThC = make([]float64, nt.CSize)
	nt.ThO = make([]float64, nt.OutSize)
	nt.ThV = make([]float64, nt.OutSize)
	nt.Tau = make([]float64, nt.CSize)
	for k := range nt.Tau {
		nt.Tau[k] = 1
	}
}

// SetConnections installs parsed connectivity for all four weight
// groups.  Dimensions must match the network.
func (nt *Network) SetConnections(ci, cc, oc, vc *Connection) error {
	chk := func(nm string, cn *Connection, recv, send int) error {
		if cn.Recv != recv || cn.Send != send {
			return fmt.Errorf("connection %s is %dx%d, want %dx%d", nm, cn.Recv, cn.Send, recv, send)
		}
		return nil
	}
	if err := chk("i2c", ci, nt.CSize, nt.InSize); err != nil {
		return err
	}
	if err := chk("c2c", cc, nt.CSize, nt.CSize); err != nil {
		return err
	}
	if err := chk("c2o", oc, nt.OutSize, nt.CSize); err != nil {
		return err
	}
	if err := chk("c2v", vc, nt.OutSize, nt.CSize); err != nil {
		return err
	}
	nt.CI, nt.CC, nt.OC, nt.VC = ci, cc, oc, vc
	return nil
}

// SetSoftmaxGroups installs the softmax group assignment.
func (nt *Network) SetSoftmaxGroups(ngroups int, gid []int) {
	nt.NGroups = ngroups
	nt.GroupID = gid
}

// InitWeights initializes all on weights uniformly in
// [-scale, +scale]/sqrt(fan-in) and thresholds in [-1, 1], using the
// given generator.  Masked-off entries stay zero.  Call order is fixed
// so a given seed always produces the same network.
func (nt *Network) InitWeights(rnd *rand.Rand) {
	initW := func(w [][]float64, cn *Connection) {
		for r := range w {
			fan := cn.NRecvCons(r)
			if fan == 0 {
				continue
			}
			norm := 1.0 / math.Sqrt(float64(fan))
			for s := range w[r] {
				if cn.On[r][s] {
					w[r][s] = cn.Scale[r][s] * norm * (2*rnd.Float64() - 1)
				} else {
					w[r][s] = 0
				}
			}
		}
	}
	initW(nt.WCI, nt.CI)
	initW(nt.WCC, nt.CC)
	initW(nt.WOC, nt.OC)
	initW(nt.WVC, nt.VC)
	for i := range nt.ThC {
		nt.ThC[i] = 2*rnd.Float64() - 1
	}
	for i := range nt.ThO {
		nt.ThO[i] = 2*rnd.Float64() - 1
	}
	for i := range nt.ThV {
		nt.ThV[i] = 0 // initial variance ~ 1
	}
}

// SetTau installs per-neuron time constants, enforcing the >= 1 floor.
func (nt *Network) SetTau(tau []float64) {
	copy(nt.Tau, tau)
	for k := range nt.Tau {
		if nt.Tau[k] < 1 {
			nt.Tau[k] = 1
		}
	}
}

func newMat(r, c int) [][]float64 {
	m := make([][]float64, r)
	for i := range m {
		m[i] = make([]float64, c)
	}
	return m
}
