// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/emer/rnnlearn/report"
	"github.com/sirupsen/logrus"
)

func TestDefaults(t *testing.T) {
	cfg := NewConfig()
	if cfg.Seed != 1 || cfg.CStateSize != 10 || cfg.DelayLength != 1 {
		t.Error("structural defaults changed")
	}
	if cfg.Rho != 0.001 || cfg.Momentum != 0.9 {
		t.Error("learning defaults changed")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config does not validate: %v", err)
	}
	for _, a := range Artifacts {
		if cfg.FileNames[a] != a+".log" {
			t.Errorf("artifact %s default file = %q", a, cfg.FileNames[a])
		}
		if cfg.Intervals[a].Interval != 100 {
			t.Errorf("artifact %s default interval = %d", a, cfg.Intervals[a].Interval)
		}
	}
}

func TestApply(t *testing.T) {
	cfg := NewConfig()
	for key, arg := range map[string]string{
		"seed":            "7",
		"epoch_size":      "500",
		"rho":             "0.01",
		"c_state_size":    "20",
		"connection_c2c":  "1-10t1-10",
		"init_tau":        "1-10:2",
		"output_type":     "1",
		"softmax_group":   "1-2:0",
		"use_adaptive_lr": "",
		"fixed_weight":    "",
		"save_file":       "out.json",
	} {
		if err := cfg.Apply(key, arg); err != nil {
			t.Fatalf("%s: %v", key, err)
		}
	}
	if cfg.Seed != 7 || cfg.EpochSize != 500 || cfg.Rho != 0.01 || cfg.CStateSize != 20 {
		t.Error("numeric keys not applied")
	}
	if !cfg.UseAdaptiveLR || !cfg.FixedWeight {
		t.Error("switch keys not applied")
	}
	if cfg.ConnectionC2C != "1-10t1-10" || cfg.SaveFile != "out.json" {
		t.Error("string keys not applied")
	}
	if err := cfg.Apply("no_such_key", "1"); err == nil {
		t.Error("unknown key should fail")
	}
	if err := cfg.Apply("seed", "abc"); err == nil {
		t.Error("malformed value should fail")
	}
	if err := cfg.Apply("rho", ""); err == nil {
		t.Error("missing required argument should fail")
	}
}

func TestIntervalPropagation(t *testing.T) {
	cfg := NewConfig()
	// artifact override first, then the default changes
	if err := cfg.Apply("print_interval_for_state_file", "5"); err != nil {
		t.Fatal(err)
	}
	if err := cfg.Apply("print_interval", "50"); err != nil {
		t.Fatal(err)
	}
	if cfg.Intervals[report.State].Interval != 5 {
		t.Errorf("state interval = %d, want the override 5", cfg.Intervals[report.State].Interval)
	}
	if cfg.Intervals[report.Weight].Interval != 50 {
		t.Errorf("weight interval = %d, want the propagated 50", cfg.Intervals[report.Weight].Interval)
	}
	// other fields of the overridden artifact still follow the default
	if err := cfg.Apply("print_end", "900"); err != nil {
		t.Fatal(err)
	}
	if cfg.Intervals[report.State].End != 900 {
		t.Errorf("state end = %d, want the propagated 900", cfg.Intervals[report.State].End)
	}
	if err := cfg.Apply("use_logscale_interval_for_error_file", ""); err != nil {
		t.Fatal(err)
	}
	if !cfg.Intervals[report.Error].LogScale || cfg.Intervals[report.Weight].LogScale {
		t.Error("log-scale override leaked across artifacts")
	}
}

func TestArtifactFileKeys(t *testing.T) {
	cfg := NewConfig()
	if err := cfg.Apply("lyapunov_file", "lyap.tsv"); err != nil {
		t.Fatal(err)
	}
	if cfg.FileNames[report.Lyapunov] != "lyap.tsv" {
		t.Errorf("lyapunov file = %q", cfg.FileNames[report.Lyapunov])
	}
	if err := cfg.Apply("state_file", ""); err != nil {
		t.Fatal(err)
	}
	if cfg.FileNames[report.State] != "" {
		t.Error("empty file name should disable the artifact")
	}
}

func TestValidate(t *testing.T) {
	bad := map[string]string{
		"seed":             "0",
		"rho":              "-1",
		"c_state_size":     "0",
		"delay_length":     "0",
		"output_type":      "2",
		"lambda":           "1",
		"divide_num":       "0",
		"threshold_period": "0",
	}
	for key, arg := range bad {
		cfg := NewConfig()
		if err := cfg.Apply(key, arg); err != nil {
			t.Fatalf("%s: %v", key, err)
		}
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s=%s should not validate", key, arg)
		}
	}
}

func TestOpenFile(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub.cfg")
	if err := os.WriteFile(sub, []byte("momentum = 0.5\n"), 0644); err != nil {
		t.Fatal(err)
	}
	main := filepath.Join(dir, "main.cfg")
	body := "# a comment\n" +
		"seed = 9\n" +
		"rho = 0.05  # trailing comment\n" +
		"use_adaptive_lr\n" +
		"\n" +
		"unknown_key = 1\n" +
		"config_file = " + sub + "\n"
	if err := os.WriteFile(main, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	log := logrus.New()
	log.SetOutput(os.Stderr)
	cfg := NewConfig()
	if err := cfg.OpenFile(main, log); err != nil {
		t.Fatal(err)
	}
	if cfg.Seed != 9 || cfg.Rho != 0.05 || !cfg.UseAdaptiveLR {
		t.Error("config file entries not applied")
	}
	if cfg.Momentum != 0.5 {
		t.Error("nested config file not applied")
	}
	if err := cfg.OpenFile(filepath.Join(dir, "missing.cfg"), log); err == nil {
		t.Error("missing config file should fail")
	}
}
