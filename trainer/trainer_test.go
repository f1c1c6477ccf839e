// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package trainer

import (
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/emer/rnnlearn/config"
	"github.com/emer/rnnlearn/dynamics"
	"github.com/emer/rnnlearn/report"
	"github.com/sirupsen/logrus"
)

func testLog() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// testConfig returns a small fast configuration with every artifact
// disabled, writing into dir.
func testConfig(dir string) *config.Config {
	cfg := config.NewConfig()
	cfg.EpochSize = 10
	cfg.CStateSize = 4
	cfg.Rho = 0.005
	cfg.Momentum = 0
	cfg.SaveFile = filepath.Join(dir, "rnn.json")
	for _, a := range config.Artifacts {
		cfg.FileNames[a] = ""
	}
	return cfg
}

// writeTargets writes a smooth 1-d series as a target file.
func writeTargets(t *testing.T, dir string) string {
	t.Helper()
	fname := filepath.Join(dir, "target.txt")
	fp, err := os.Create(fname)
	if err != nil {
		t.Fatal(err)
	}
	defer fp.Close()
	for i := 0; i < 30; i++ {
		v := 0.8 * math.Sin(0.3*float64(i))
		if _, err := fp.WriteString(strconv.FormatFloat(v, 'g', -1, 64) + "\n"); err != nil {
			t.Fatal(err)
		}
	}
	return fname
}

// writePeriodicTargets writes a strictly periodic 1-d series, four
// repeats of an 8-step cycle.
func writePeriodicTargets(t *testing.T, dir string) string {
	t.Helper()
	fname := filepath.Join(dir, "periodic.txt")
	fp, err := os.Create(fname)
	if err != nil {
		t.Fatal(err)
	}
	defer fp.Close()
	for i := 0; i < 32; i++ {
		v := 0.8 * math.Sin(2*math.Pi*float64(i%8)/8)
		if _, err := fp.WriteString(strconv.FormatFloat(v, 'g', -1, 64) + "\n"); err != nil {
			t.Fatal(err)
		}
	}
	return fname
}

func TestTrainReducesError(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)
	cfg.EpochSize = 200
	tr, err := New(cfg, []string{writeTargets(t, dir)}, testLog())
	if err != nil {
		t.Fatal(err)
	}
	e0, _ := tr.TrainEpoch()
	tr.Epoch = 1
	var eN float64
	for tr.Epoch < cfg.EpochSize {
		eN, _ = tr.TrainEpoch()
		tr.Epoch++
	}
	if math.IsNaN(eN) || math.IsInf(eN, 0) {
		t.Fatalf("training diverged: error = %v", eN)
	}
	if eN >= e0 {
		t.Errorf("error after %d epochs = %v, started at %v", cfg.EpochSize, eN, e0)
	}
}

func TestTrainDeterministic(t *testing.T) {
	dirA, dirB := t.TempDir(), t.TempDir()
	run := func(dir string) *Trainer {
		cfg := testConfig(dir)
		tr, err := New(cfg, []string{writeTargets(t, dir)}, testLog())
		if err != nil {
			t.Fatal(err)
		}
		if err := tr.Run(); err != nil {
			t.Fatal(err)
		}
		return tr
	}
	a, b := run(dirA), run(dirB)
	for r := range a.Net.WCC {
		for c := range a.Net.WCC[r] {
			if a.Net.WCC[r][c] != b.Net.WCC[r][c] {
				t.Fatalf("same seed diverged: WCC[%d][%d] %v vs %v",
					r, c, a.Net.WCC[r][c], b.Net.WCC[r][c])
			}
		}
	}
	if a.Learn.AdaptLR != b.Learn.AdaptLR {
		t.Error("same seed diverged in the learn state")
	}
}

func TestPeriodicTrainingClosedLoopStable(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)
	cfg.EpochSize = 300
	tr, err := New(cfg, []string{writePeriodicTargets(t, dir)}, testLog())
	if err != nil {
		t.Fatal(err)
	}
	var errN float64
	for tr.Epoch < cfg.EpochSize {
		errN, _ = tr.TrainEpoch()
		tr.Epoch++
	}
	if math.IsNaN(errN) || math.IsInf(errN, 0) {
		t.Fatalf("training diverged: error = %v", errN)
	}
	// a model trained on a periodic series settles on a periodic or
	// fixed-point attractor: the leading closed-loop exponent must not
	// be positive (small slack for the finite-horizon estimate)
	exps, ok := dynamics.LyapunovSpectrum(tr.system(), 1, 100, 10)
	if !ok {
		t.Fatal("spectrum undetermined for the trained model")
	}
	if exps[0] > 0.05 {
		t.Errorf("leading closed-loop exponent = %v after periodic training", exps[0])
	}
}

func TestRunWritesArtifacts(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)
	cfg.FileNames[report.Error] = filepath.Join(dir, "error.log")
	cfg.FileNames[report.Weight] = filepath.Join(dir, "weight.log")
	cfg.Intervals[report.Error].Interval = 5
	cfg.Intervals[report.Weight].Interval = 5
	tr, err := New(cfg, []string{writeTargets(t, dir)}, testLog())
	if err != nil {
		t.Fatal(err)
	}
	if err := tr.Run(); err != nil {
		t.Fatal(err)
	}
	for _, f := range []string{"error.log", "weight.log", "rnn.json"} {
		if _, err := os.Stat(filepath.Join(dir, f)); err != nil {
			t.Errorf("missing output %s: %v", f, err)
		}
	}
}

func TestResume(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)
	tfile := writeTargets(t, dir)
	tr, err := New(cfg, []string{tfile}, testLog())
	if err != nil {
		t.Fatal(err)
	}
	if err := tr.Run(); err != nil {
		t.Fatal(err)
	}

	// resume with no new targets: dataset and epoch come from the file
	cfg2 := testConfig(dir)
	cfg2.LoadFile = cfg.SaveFile
	tr2, err := New(cfg2, nil, testLog())
	if err != nil {
		t.Fatal(err)
	}
	if tr2.Epoch != cfg.EpochSize {
		t.Errorf("resumed epoch = %d, want %d", tr2.Epoch, cfg.EpochSize)
	}
	if tr2.Store.NTrials() != 1 || tr2.Store.Trials[0].Len() != 30 {
		t.Error("resumed dataset differs from the saved one")
	}
	if tr2.Net.WCC[0][0] != tr.Net.WCC[0][0] {
		t.Error("resumed parameters differ from the saved ones")
	}

	// resume with new targets: parameters kept, dataset replaced
	cfg3 := testConfig(dir)
	cfg3.LoadFile = cfg.SaveFile
	tr3, err := New(cfg3, []string{tfile, tfile}, testLog())
	if err != nil {
		t.Fatal(err)
	}
	if tr3.Epoch != 0 {
		t.Errorf("epoch = %d with a fresh dataset, want 0", tr3.Epoch)
	}
	if tr3.Store.NTrials() != 2 {
		t.Errorf("%d trials, want the new dataset's 2", tr3.Store.NTrials())
	}
	if tr3.Net.WCC[0][0] != tr.Net.WCC[0][0] {
		t.Error("loaded parameters differ from the saved ones")
	}
}

func TestNewValidatesDimensions(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)
	cfg.ConnectionC2C = "1-100t-" // out of range for 4 neurons
	if _, err := New(cfg, []string{writeTargets(t, dir)}, testLog()); err == nil {
		t.Error("out-of-range connectivity accepted")
	}
	cfg2 := testConfig(dir)
	if _, err := New(cfg2, []string{filepath.Join(dir, "missing.txt")}, testLog()); err == nil {
		t.Error("missing target file accepted")
	}
}
