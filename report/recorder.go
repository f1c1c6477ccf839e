// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package report

import (
	"fmt"
	"math"

	"github.com/emer/etable/etable"
	"github.com/emer/etable/etensor"
	"github.com/emer/rnnlearn/rnn"
	"github.com/goki/gi/gi"
)

// Artifact names, one output file each.
const (
	State       = "state"
	ClosedState = "closed_state"
	Weight      = "weight"
	Threshold   = "threshold"
	Tau         = "tau"
	Init        = "init"
	RepInit     = "rep_init"
	AdaptLR     = "adapt_lr"
	Error       = "error"
	ClosedError = "closed_error"
	Lyapunov    = "lyapunov"
	Entropy     = "entropy"
	Period      = "period"
)

// AllArtifacts lists every artifact in emission order.
var AllArtifacts = []string{State, ClosedState, Weight, Threshold, Tau, Init,
	RepInit, AdaptLR, Error, ClosedError, Lyapunov, Entropy, Period}

type artifact struct {
	fname string
	iv    Interval
	dt    *etable.Table
}

// Recorder writes the numeric output artifacts.  History artifacts
// (error, weights, exponents, ...) accumulate one row per emission
// epoch and rewrite their file in full; trajectory artifacts (state,
// closed_state) hold only the latest emission.  All files are
// tab-separated with headers, readable by etable.
type Recorder struct {
	arts map[string]*artifact
}

// NewRecorder returns an empty recorder; artifacts are registered with
// SetArtifact.
func NewRecorder() *Recorder {
	return &Recorder{arts: make(map[string]*artifact)}
}

// SetArtifact registers an artifact's file name and write schedule.
// An empty file name disables the artifact.
func (rc *Recorder) SetArtifact(name, fname string, iv Interval) {
	rc.arts[name] = &artifact{fname: fname, iv: iv}
}

// Due reports whether the named artifact should be written at epoch.
func (rc *Recorder) Due(name string, epoch int64) bool {
	ar := rc.arts[name]
	return ar != nil && ar.fname != "" && ar.iv.Due(epoch)
}

func (rc *Recorder) table(name string, sch etable.Schema) *etable.Table {
	ar := rc.arts[name]
	if ar.dt == nil {
		ar.dt = &etable.Table{}
		ar.dt.SetFromSchema(sch, 0)
	}
	return ar.dt
}

func (rc *Recorder) save(name string) error {
	ar := rc.arts[name]
	if err := ar.dt.SaveCSV(gi.FileName(ar.fname), etable.Tab, etable.Headers); err != nil {
		return fmt.Errorf("write %s: %v", ar.fname, err)
	}
	return nil
}

func tsr1d(vals []float64) *etensor.Float64 {
	t := etensor.NewFloat64([]int{len(vals)}, nil, nil)
	copy(t.Values, vals)
	return t
}

func tsr2d(m [][]float64) *etensor.Float64 {
	r := len(m)
	c := 0
	if r > 0 {
		c = len(m[0])
	}
	t := etensor.NewFloat64([]int{r, c}, nil, nil)
	for i, row := range m {
		copy(t.Values[i*c:(i+1)*c], row)
	}
	return t
}

// WriteError appends the total and per-trial open-loop error.
func (rc *Recorder) WriteError(epoch int64, total float64, perTrial []float64) error {
	dt := rc.table(Error, etable.Schema{
		{Name: "Epoch", Type: etensor.INT64, CellShape: nil, DimNames: nil},
		{Name: "Error", Type: etensor.FLOAT64, CellShape: nil, DimNames: nil},
		{Name: "TrialError", Type: etensor.FLOAT64, CellShape: []int{len(perTrial)}, DimNames: nil},
	})
	row := dt.Rows
	dt.AddRows(1)
	dt.SetCellFloat("Epoch", row, float64(epoch))
	dt.SetCellFloat("Error", row, total)
	dt.SetCellTensor("TrialError", row, tsr1d(perTrial))
	return rc.save(Error)
}

// WriteClosedError appends the per-trial closed-loop error.
func (rc *Recorder) WriteClosedError(epoch int64, perTrial []float64) error {
	dt := rc.table(ClosedError, etable.Schema{
		{Name: "Epoch", Type: etensor.INT64, CellShape: nil, DimNames: nil},
		{Name: "TrialError", Type: etensor.FLOAT64, CellShape: []int{len(perTrial)}, DimNames: nil},
	})
	row := dt.Rows
	dt.AddRows(1)
	dt.SetCellFloat("Epoch", row, float64(epoch))
	dt.SetCellTensor("TrialError", row, tsr1d(perTrial))
	return rc.save(ClosedError)
}

// WriteAdaptLR appends the adaptive learning-rate multiplier.
func (rc *Recorder) WriteAdaptLR(epoch int64, lr float64) error {
	dt := rc.table(AdaptLR, etable.Schema{
		{Name: "Epoch", Type: etensor.INT64, CellShape: nil, DimNames: nil},
		{Name: "AdaptLR", Type: etensor.FLOAT64, CellShape: nil, DimNames: nil},
	})
	row := dt.Rows
	dt.AddRows(1)
	dt.SetCellFloat("Epoch", row, float64(epoch))
	dt.SetCellFloat("AdaptLR", row, lr)
	return rc.save(AdaptLR)
}

// WriteWeights appends all four weight matrices.
func (rc *Recorder) WriteWeights(epoch int64, nt *rnn.Network) error {
	dt := rc.table(Weight, etable.Schema{
		{Name: "Epoch", Type: etensor.INT64, CellShape: nil, DimNames: nil},
		{Name: "WCI", Type: etensor.FLOAT64, CellShape: []int{nt.CSize, nt.InSize}, DimNames: nil},
		{Name: "WCC", Type: etensor.FLOAT64, CellShape: []int{nt.CSize, nt.CSize}, DimNames: nil},
		{Name: "WOC", Type: etensor.FLOAT64, CellShape: []int{nt.OutSize, nt.CSize}, DimNames: nil},
		{Name: "WVC", Type: etensor.FLOAT64, CellShape: []int{nt.OutSize, nt.CSize}, DimNames: nil},
	})
	row := dt.Rows
	dt.AddRows(1)
	dt.SetCellFloat("Epoch", row, float64(epoch))
	dt.SetCellTensor("WCI", row, tsr2d(nt.WCI))
	dt.SetCellTensor("WCC", row, tsr2d(nt.WCC))
	dt.SetCellTensor("WOC", row, tsr2d(nt.WOC))
	dt.SetCellTensor("WVC", row, tsr2d(nt.WVC))
	return rc.save(Weight)
}

// WriteThresholds appends the context, output and variance thresholds.
func (rc *Recorder) WriteThresholds(epoch int64, nt *rnn.Network) error {
	dt := rc.table(Threshold, etable.Schema{
		{Name: "Epoch", Type: etensor.INT64, CellShape: nil, DimNames: nil},
		{Name: "ThC", Type: etensor.FLOAT64, CellShape: []int{nt.CSize}, DimNames: nil},
		{Name: "ThO", Type: etensor.FLOAT64, CellShape: []int{nt.OutSize}, DimNames: nil},
		{Name: "ThV", Type: etensor.FLOAT64, CellShape: []int{nt.OutSize}, DimNames: nil},
	})
	row := dt.Rows
	dt.AddRows(1)
	dt.SetCellFloat("Epoch", row, float64(epoch))
	dt.SetCellTensor("ThC", row, tsr1d(nt.ThC))
	dt.SetCellTensor("ThO", row, tsr1d(nt.ThO))
	dt.SetCellTensor("ThV", row, tsr1d(nt.ThV))
	return rc.save(Threshold)
}

// WriteTau appends the time constants.
func (rc *Recorder) WriteTau(epoch int64, nt *rnn.Network) error {
	dt := rc.table(Tau, etable.Schema{
		{Name: "Epoch", Type: etensor.INT64, CellShape: nil, DimNames: nil},
		{Name: "Tau", Type: etensor.FLOAT64, CellShape: []int{nt.CSize}, DimNames: nil},
	})
	row := dt.Rows
	dt.AddRows(1)
	dt.SetCellFloat("Epoch", row, float64(epoch))
	dt.SetCellTensor("Tau", row, tsr1d(nt.Tau))
	return rc.save(Tau)
}

// WriteInit appends the best initial context state of every trial.
func (rc *Recorder) WriteInit(epoch int64, ie *rnn.InitEnsemble) error {
	best := make([][]float64, ie.NTrials)
	for n := range best {
		best[n] = ie.BestState(n)
	}
	dt := rc.table(Init, etable.Schema{
		{Name: "Epoch", Type: etensor.INT64, CellShape: nil, DimNames: nil},
		{Name: "InitC", Type: etensor.FLOAT64, CellShape: []int{ie.NTrials, ie.CSize}, DimNames: nil},
	})
	row := dt.Rows
	dt.AddRows(1)
	dt.SetCellFloat("Epoch", row, float64(epoch))
	dt.SetCellTensor("InitC", row, tsr2d(best))
	return rc.save(Init)
}

// WriteRepInit appends every representative initial-state candidate.
func (rc *Recorder) WriteRepInit(epoch int64, ie *rnn.InitEnsemble) error {
	all := etensor.NewFloat64([]int{ie.NTrials, ie.NCands, ie.CSize}, nil, nil)
	for n := range ie.States {
		for m := range ie.States[n] {
			off := (n*ie.NCands + m) * ie.CSize
			copy(all.Values[off:off+ie.CSize], ie.States[n][m])
		}
	}
	dt := rc.table(RepInit, etable.Schema{
		{Name: "Epoch", Type: etensor.INT64, CellShape: nil, DimNames: nil},
		{Name: "RepInit", Type: etensor.FLOAT64, CellShape: []int{ie.NTrials, ie.NCands, ie.CSize}, DimNames: nil},
	})
	row := dt.Rows
	dt.AddRows(1)
	dt.SetCellFloat("Epoch", row, float64(epoch))
	dt.SetCellTensor("RepInit", row, all)
	return rc.save(RepInit)
}

// WriteLyapunov appends the Lyapunov spectrum; a failed estimate is
// recorded as a row of n NaNs, n being the configured spectrum size.
func (rc *Recorder) WriteLyapunov(epoch int64, exps []float64, n int, ok bool) error {
	if !ok {
		exps = make([]float64, n)
		for i := range exps {
			exps[i] = math.NaN()
		}
	}
	dt := rc.table(Lyapunov, etable.Schema{
		{Name: "Epoch", Type: etensor.INT64, CellShape: nil, DimNames: nil},
		{Name: "Exponents", Type: etensor.FLOAT64, CellShape: []int{len(exps)}, DimNames: nil},
	})
	row := dt.Rows
	dt.AddRows(1)
	dt.SetCellFloat("Epoch", row, float64(epoch))
	dt.SetCellTensor("Exponents", row, tsr1d(exps))
	return rc.save(Lyapunov)
}

// WriteEntropy appends the entropy estimate; a failed estimate is
// recorded as NaN.
func (rc *Recorder) WriteEntropy(epoch int64, h float64, ok bool) error {
	if !ok {
		h = math.NaN()
	}
	dt := rc.table(Entropy, etable.Schema{
		{Name: "Epoch", Type: etensor.INT64, CellShape: nil, DimNames: nil},
		{Name: "Entropy", Type: etensor.FLOAT64, CellShape: nil, DimNames: nil},
	})
	row := dt.Rows
	dt.AddRows(1)
	dt.SetCellFloat("Epoch", row, float64(epoch))
	dt.SetCellFloat("Entropy", row, h)
	return rc.save(Entropy)
}

// WritePeriod appends the detected period: k > 0 is a period of k
// steps, 0 is aperiodic, -1 is could-not-determine.
func (rc *Recorder) WritePeriod(epoch int64, period int, ok bool) error {
	if !ok {
		period = -1
	}
	dt := rc.table(Period, etable.Schema{
		{Name: "Epoch", Type: etensor.INT64, CellShape: nil, DimNames: nil},
		{Name: "Period", Type: etensor.INT64, CellShape: nil, DimNames: nil},
	})
	row := dt.Rows
	dt.AddRows(1)
	dt.SetCellFloat("Epoch", row, float64(epoch))
	dt.SetCellFloat("Period", row, float64(period))
	return rc.save(Period)
}

// writeStates writes per-step trajectories for all trials, replacing
// any previous emission.
func (rc *Recorder) writeStates(name string, epoch int64, sts []*rnn.State) error {
	in, cs, out := 0, 0, 0
	if len(sts) > 0 {
		in = len(sts[0].In[0])
		cs = len(sts[0].C[0])
		out = len(sts[0].Out[0])
	}
	dt := rc.table(name, etable.Schema{
		{Name: "Epoch", Type: etensor.INT64, CellShape: nil, DimNames: nil},
		{Name: "Trial", Type: etensor.INT64, CellShape: nil, DimNames: nil},
		{Name: "Step", Type: etensor.INT64, CellShape: nil, DimNames: nil},
		{Name: "Input", Type: etensor.FLOAT64, CellShape: []int{in}, DimNames: nil},
		{Name: "Context", Type: etensor.FLOAT64, CellShape: []int{cs}, DimNames: nil},
		{Name: "Output", Type: etensor.FLOAT64, CellShape: []int{out}, DimNames: nil},
		{Name: "Variance", Type: etensor.FLOAT64, CellShape: []int{out}, DimNames: nil},
	})
	dt.SetNumRows(0)
	for n, st := range sts {
		for t := 0; t < st.Len; t++ {
			row := dt.Rows
			dt.AddRows(1)
			dt.SetCellFloat("Epoch", row, float64(epoch))
			dt.SetCellFloat("Trial", row, float64(n))
			dt.SetCellFloat("Step", row, float64(t))
			dt.SetCellTensor("Input", row, tsr1d(st.In[t]))
			dt.SetCellTensor("Context", row, tsr1d(st.A[t]))
			dt.SetCellTensor("Output", row, tsr1d(st.Out[t]))
			dt.SetCellTensor("Variance", row, tsr1d(st.Var[t]))
		}
	}
	return rc.save(name)
}

// WriteState writes the open-loop trajectories of the latest epoch.
func (rc *Recorder) WriteState(epoch int64, sts []*rnn.State) error {
	return rc.writeStates(State, epoch, sts)
}

// WriteClosedState writes the closed-loop trajectories of the latest
// epoch.
func (rc *Recorder) WriteClosedState(epoch int64, sts []*rnn.State) error {
	return rc.writeStates(ClosedState, epoch, sts)
}
