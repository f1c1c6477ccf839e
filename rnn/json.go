// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rnn

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
)

// NetFile is the saved form of a training run: the network parameters
// and masks, the learn state (momentum buffers, adaptive rate), the
// initial-state ensemble, the epoch counter, and the recorded dataset.
// Loading it with no new target files resumes training exactly where
// the run left off; loading it alongside new target files keeps the
// parameters as initialization and replaces the dataset.
type NetFile struct {

	// last completed epoch
	Epoch int64 `desc:"last completed epoch"`

	// network parameters and connectivity
	Net *Network `desc:"network parameters and connectivity"`

	// momentum buffers and adaptive learning-rate state
	Learn *LearnState `desc:"momentum buffers and adaptive learning-rate state"`

	// representative initial-state ensemble
	Inits *InitEnsemble `desc:"representative initial-state ensemble"`

	// recorded dataset [trial][step][dim]
	Trials [][][]float64 `desc:"recorded dataset [trial][step][dim]"`
}

// SaveJSON writes the net file in indented JSON.
func (nf *NetFile) SaveJSON(fname string) error {
	fp, err := os.Create(fname)
	if err != nil {
		return fmt.Errorf("save %s: %v", fname, err)
	}
	defer fp.Close()
	bw := bufio.NewWriter(fp)
	enc := json.NewEncoder(bw)
	enc.SetIndent("", "\t")
	if err := enc.Encode(nf); err != nil {
		return fmt.Errorf("save %s: %v", fname, err)
	}
	return bw.Flush()
}

// OpenNetFile reads a previously saved net file.
func OpenNetFile(fname string) (*NetFile, error) {
	fp, err := os.Open(fname)
	if err != nil {
		return nil, fmt.Errorf("open %s: %v", fname, err)
	}
	defer fp.Close()
	nf := &NetFile{}
	if err := json.NewDecoder(bufio.NewReader(fp)).Decode(nf); err != nil {
		return nil, fmt.Errorf("open %s: %v", fname, err)
	}
	if nf.Net == nil || nf.Learn == nil || nf.Inits == nil {
		return nil, fmt.Errorf("open %s: incomplete net file", fname)
	}
	return nf, nil
}
