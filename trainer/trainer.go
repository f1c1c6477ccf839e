// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package trainer drives a full training run: it assembles the network,
// the learn state, the initial-state ensemble, and the target
// environment from a Config, runs the epoch loop, and emits the
// scheduled output artifacts.
package trainer

import (
	"fmt"
	"math/rand"
	"os"

	"github.com/emer/rnnlearn/config"
	"github.com/emer/rnnlearn/dynamics"
	"github.com/emer/rnnlearn/report"
	"github.com/emer/rnnlearn/rnn"
	"github.com/emer/rnnlearn/target"
	"github.com/sirupsen/logrus"
)

// Trainer owns all mutable state of one training run.
type Trainer struct {

	// the validated run configuration, read-only after New
	Config *config.Config `desc:"the validated run configuration, read-only after New"`

	// the network being trained
	Net *rnn.Network `desc:"the network being trained"`

	// update-rule state: momentum buffers, adaptive learning rate
	Learn *rnn.LearnState `desc:"update-rule state: momentum buffers, adaptive learning rate"`

	// representative initial-state ensemble, one bank per trial
	Inits *rnn.InitEnsemble `desc:"representative initial-state ensemble, one bank per trial"`

	// the target series store
	Store *target.Store `desc:"the target series store"`

	// trial presentation environment over the store
	Env *target.TrialEnv `desc:"trial presentation environment over the store"`

	// output artifact recorder
	Rec *report.Recorder `desc:"output artifact recorder"`

	// completed epochs, resumes from a load file
	Epoch int64 `desc:"completed epochs, resumes from a load file"`

	// gradient accumulator, reset every epoch
	Grads *rnn.Grads `desc:"gradient accumulator, reset every epoch"`

	// structured run log
	Log *logrus.Logger `desc:"structured run log"`

	// seeded generator for all random draws
	Rnd *rand.Rand `desc:"seeded generator for all random draws"`

	st *rnn.State // scratch trajectory buffer
}

// New assembles a trainer from a validated config and the target file
// names.  With a load file and no target files the saved run is
// resumed, dataset and epoch counter included; with a load file and
// new target files the saved parameters are kept as initialization and
// the dataset is replaced.
func New(cfg *config.Config, targetFiles []string, log *logrus.Logger) (*Trainer, error) {
	tr := &Trainer{Config: cfg, Log: log}
	tr.Rnd = rand.New(rand.NewSource(int64(cfg.Seed)))

	tr.Store = &target.Store{}
	if len(targetFiles) == 0 && cfg.LoadFile == "" {
		if err := tr.Store.Read(os.Stdin, "stdin"); err != nil {
			return nil, err
		}
	}
	for _, fn := range targetFiles {
		if err := tr.Store.OpenFile(fn); err != nil {
			return nil, err
		}
	}

	if cfg.LoadFile != "" {
		if err := tr.load(); err != nil {
			return nil, err
		}
	} else {
		if err := tr.build(); err != nil {
			return nil, err
		}
	}
	if tr.Store.NTrials() == 0 {
		return nil, fmt.Errorf("no target time series")
	}
	if dim := tr.Store.Trials[0].Dim(); dim != tr.Net.InSize {
		return nil, fmt.Errorf("target dimension %d, net expects %d", dim, tr.Net.InSize)
	}

	tr.Env = &target.TrialEnv{Nm: "Train", Dsc: "target series in trial order"}
	tr.Env.Config(tr.Store)
	if err := tr.Env.Validate(); err != nil {
		return nil, err
	}
	tr.Env.Init(0)

	tr.Rec = report.NewRecorder()
	for _, a := range report.AllArtifacts {
		tr.Rec.SetArtifact(a, cfg.FileNames[a], *cfg.Intervals[a])
	}
	tr.Grads = rnn.NewGrads(tr.Net)
	tr.st = rnn.NewState(tr.Net, tr.maxTrialLen())
	return tr, nil
}

// build creates a fresh network, learn state, and ensemble from the
// config and the loaded dataset.
func (tr *Trainer) build() error {
	cfg := tr.Config
	if tr.Store.NTrials() == 0 {
		return fmt.Errorf("no target time series")
	}
	dim := tr.Store.Trials[0].Dim()
	nt := rnn.NewNetwork(dim, cfg.CStateSize, dim, cfg.DelayLength, rnn.OutputTypes(cfg.OutputType))

	ci, err := rnn.ParseConnection(cfg.ConnectionI2C, nt.CSize, nt.InSize)
	if err != nil {
		return err
	}
	cc, err := rnn.ParseConnection(cfg.ConnectionC2C, nt.CSize, nt.CSize)
	if err != nil {
		return err
	}
	oc, err := rnn.ParseConnection(cfg.ConnectionC2O, nt.OutSize, nt.CSize)
	if err != nil {
		return err
	}
	vc, err := rnn.ParseConnection(cfg.ConnectionC2V, nt.OutSize, nt.CSize)
	if err != nil {
		return err
	}
	if err := nt.SetConnections(ci, cc, oc, vc); err != nil {
		return err
	}
	if nt.OutputType == rnn.Softmax && cfg.SoftmaxGroup != "" {
		ng, gid, err := rnn.ParseSoftmaxGroups(cfg.SoftmaxGroup, nt.OutSize)
		if err != nil {
			return err
		}
		nt.SetSoftmaxGroups(ng, gid)
	}
	tau, err := rnn.ParseInitTau(cfg.InitTau, nt.CSize)
	if err != nil {
		return err
	}
	nt.SetTau(tau)
	nt.InitWeights(tr.Rnd)
	tr.Net = nt

	tr.Learn = rnn.NewLearnState(nt)
	tr.applyLearnConfig()

	tr.Inits = rnn.NewInitEnsemble(tr.Store.NTrials(), cfg.RepInitSize, nt.CSize, cfg.RepInitVariance)
	if cfg.ConstInitC != "" {
		mask, val, err := rnn.ParseConstInitC(cfg.ConstInitC, nt.CSize)
		if err != nil {
			return err
		}
		tr.Inits.SetConstInitC(mask, val)
	}
	tr.Inits.InitStates(tr.Rnd)
	return nil
}

// load restores a saved run.  Saved parameters always win over the
// structural config keys; the learn hyperparameters are refreshed from
// the config so a resumed run can change learning rate or switches.
func (tr *Trainer) load() error {
	cfg := tr.Config
	nf, err := rnn.OpenNetFile(cfg.LoadFile)
	if err != nil {
		return err
	}
	tr.Net = nf.Net
	tr.Learn = nf.Learn
	tr.applyLearnConfig()

	if tr.Store.NTrials() == 0 {
		// resume: same dataset, same epoch counter, same ensemble
		if err := tr.Store.SetTrials(nf.Trials); err != nil {
			return err
		}
		tr.Inits = nf.Inits
		tr.Epoch = nf.Epoch
		return nil
	}
	// new dataset: keep parameters, start the ensemble over
	tr.Inits = rnn.NewInitEnsemble(tr.Store.NTrials(), cfg.RepInitSize, tr.Net.CSize, cfg.RepInitVariance)
	if cfg.ConstInitC != "" {
		mask, val, err := rnn.ParseConstInitC(cfg.ConstInitC, tr.Net.CSize)
		if err != nil {
			return err
		}
		tr.Inits.SetConstInitC(mask, val)
	}
	tr.Inits.InitStates(tr.Rnd)
	tr.Epoch = 0
	return nil
}

func (tr *Trainer) applyLearnConfig() {
	cfg := tr.Config
	ls := tr.Learn
	ls.Rho = cfg.Rho
	ls.Momentum = cfg.Momentum
	ls.PriorStrength = cfg.PriorStrength
	ls.FixedWeight = cfg.FixedWeight
	ls.FixedThreshold = cfg.FixedThreshold
	ls.FixedTau = cfg.FixedTau
	ls.FixedInitC = cfg.FixedInitCState
	ls.UseAdaptiveLR = cfg.UseAdaptiveLR
	ls.Lambda = cfg.Lambda
	ls.Alpha = cfg.Alpha
}

func (tr *Trainer) maxTrialLen() int {
	max := 0
	for _, t := range tr.Store.Trials {
		if t.Len() > max {
			max = t.Len()
		}
	}
	return max
}

// Run trains from the current epoch to EpochSize, emitting scheduled
// artifacts after each epoch's update, then saves the run.
func (tr *Trainer) Run() error {
	cfg := tr.Config
	for tr.Epoch < cfg.EpochSize {
		totErr, perTrial := tr.TrainEpoch()
		tr.Learn.UpdateAdaptLR(totErr)
		tr.Epoch++
		if err := tr.Record(totErr, perTrial); err != nil {
			return err
		}
		if cfg.Verbose && cfg.DefaultInterval.Due(tr.Epoch) {
			tr.Log.WithFields(logrus.Fields{
				"epoch": tr.Epoch,
				"error": totErr,
				"lr":    tr.Learn.AdaptLR * tr.Learn.Rho,
			}).Info("trained")
		}
	}
	return tr.Save()
}

// TrainEpoch runs one pass over all trials: per trial it selects the
// best initial-state candidate, runs BPTT from it, and accumulates
// gradients; the batch update is applied once at the end.  Returns the
// total and per-trial open-loop error.
func (tr *Trainer) TrainEpoch() (totErr float64, perTrial []float64) {
	cfg := tr.Config
	tr.Grads.Reset()
	tr.Inits.ResetGrads()
	n := tr.Store.NTrials()
	perTrial = make([]float64, n)
	for i := 0; i < n; i++ {
		tr.Env.Step()
		idx := tr.Env.Trial.Cur
		teach := tr.Env.Cur().Rows()
		tr.Inits.SelectBest(tr.Net, tr.st, idx, teach)
		initGrad, e := tr.Net.BPTT(tr.Inits.BestState(idx), teach, tr.Grads,
			cfg.TruncateLength, cfg.BlockLength, tr.st)
		tr.Inits.AccumGrad(idx, initGrad)
		perTrial[idx] = e
		totErr += e
	}
	tr.Inits.RegGrads()
	tr.Learn.Update(tr.Net, tr.Grads)
	tr.Inits.Update(tr.Learn)
	return totErr, perTrial
}

// Record emits every artifact due at the current epoch.  Parameters
// are recorded after the epoch's update.  The dynamical-systems
// artifacts degrade to a could-not-determine marker instead of failing
// the run.
func (tr *Trainer) Record(totErr float64, perTrial []float64) error {
	ep := tr.Epoch
	rc := tr.Rec
	if rc.Due(report.Error, ep) {
		if err := rc.WriteError(ep, totErr, perTrial); err != nil {
			return err
		}
	}
	if rc.Due(report.AdaptLR, ep) {
		if err := rc.WriteAdaptLR(ep, tr.Learn.AdaptLR); err != nil {
			return err
		}
	}
	if rc.Due(report.Weight, ep) {
		if err := rc.WriteWeights(ep, tr.Net); err != nil {
			return err
		}
	}
	if rc.Due(report.Threshold, ep) {
		if err := rc.WriteThresholds(ep, tr.Net); err != nil {
			return err
		}
	}
	if rc.Due(report.Tau, ep) {
		if err := rc.WriteTau(ep, tr.Net); err != nil {
			return err
		}
	}
	if rc.Due(report.Init, ep) {
		if err := rc.WriteInit(ep, tr.Inits); err != nil {
			return err
		}
	}
	if rc.Due(report.RepInit, ep) {
		if err := rc.WriteRepInit(ep, tr.Inits); err != nil {
			return err
		}
	}
	if rc.Due(report.State, ep) {
		if err := rc.WriteState(ep, tr.openStates()); err != nil {
			return err
		}
	}
	needClosedErr := rc.Due(report.ClosedError, ep)
	if rc.Due(report.ClosedState, ep) || needClosedErr {
		sts, cerr := tr.closedStates()
		if rc.Due(report.ClosedState, ep) {
			if err := rc.WriteClosedState(ep, sts); err != nil {
				return err
			}
		}
		if needClosedErr {
			if err := rc.WriteClosedError(ep, cerr); err != nil {
				return err
			}
		}
	}
	if rc.Due(report.Lyapunov, ep) {
		exps, ok := dynamics.LyapunovSpectrum(tr.system(),
			tr.Config.LyapunovSpectrumSize, tr.Config.BlockLength, tr.Config.DivideNum)
		if err := rc.WriteLyapunov(ep, exps, tr.Config.LyapunovSpectrumSize, ok); err != nil {
			return err
		}
	}
	if rc.Due(report.Entropy, ep) {
		h, ok := dynamics.SymbolicEntropy(tr.system(), tr.Config.BlockLength, tr.Config.DivideNum)
		if err := rc.WriteEntropy(ep, h, ok); err != nil {
			return err
		}
	}
	if rc.Due(report.Period, ep) {
		p, ok := dynamics.DetectPeriod(tr.system(),
			tr.Config.BlockLength*tr.Config.DivideNum, tr.Config.ThresholdPeriod)
		if err := rc.WritePeriod(ep, p, ok); err != nil {
			return err
		}
	}
	return nil
}

// openStates runs the teacher-forced pass for every trial from its
// best initial state.
func (tr *Trainer) openStates() []*rnn.State {
	sts := make([]*rnn.State, tr.Store.NTrials())
	for i, trl := range tr.Store.Trials {
		st := rnn.NewState(tr.Net, trl.Len())
		tr.Net.Forward(st, tr.Inits.BestState(i), trl.Rows())
		sts[i] = st
	}
	return sts
}

// closedStates runs the closed-loop pass for every trial, seeded with
// the trial's opening target rows, and scores it against the trial.
func (tr *Trainer) closedStates() ([]*rnn.State, []float64) {
	sts := make([]*rnn.State, tr.Store.NTrials())
	cerr := make([]float64, tr.Store.NTrials())
	for i, trl := range tr.Store.Trials {
		st := rnn.NewState(tr.Net, trl.Len())
		tr.Net.ForwardClosed(st, tr.Inits.BestState(i), tr.seed(trl), trl.Len())
		cerr[i] = tr.Net.Error(st, trl.Rows())
		sts[i] = st
	}
	return sts, cerr
}

// system starts a fresh closed-loop system from the first trial's best
// initial state for the dynamical-systems analyses.
func (tr *Trainer) system() *dynamics.System {
	trl := tr.Store.Trials[0]
	return dynamics.NewSystem(tr.Net, tr.Inits.BestState(0), tr.seed(trl))
}

func (tr *Trainer) seed(trl *target.Trial) [][]float64 {
	n := tr.Net.Delay
	if trl.Len() < n {
		n = trl.Len()
	}
	seed := make([][]float64, n)
	for t := 0; t < n; t++ {
		seed[t] = trl.Row(t)
	}
	return seed
}

// Save writes the run to the configured save file.  An empty save file
// name disables saving.
func (tr *Trainer) Save() error {
	if tr.Config.SaveFile == "" {
		return nil
	}
	nf := &rnn.NetFile{
		Epoch:  tr.Epoch,
		Net:    tr.Net,
		Learn:  tr.Learn,
		Inits:  tr.Inits,
		Trials: tr.Store.Raw(),
	}
	return nf.SaveJSON(tr.Config.SaveFile)
}
