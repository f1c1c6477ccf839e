// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config is the flat key=value configuration surface of
// rnn-learn.  A Config is built once at startup from defaults, a
// config file, and command-line options, then validated fail-fast and
// passed read-only into the training loop.
package config

import (
	"fmt"
	"math"

	"github.com/emer/rnnlearn/report"
)

// Artifact names duplicated from report, in the order the original
// option table lists them.
var Artifacts = report.AllArtifacts

// Config holds every configurable parameter of a training run.
// Unset entries keep the defaults from NewConfig.
type Config struct {

	// seed for the random number generator, >= 1
	Seed uint64 `desc:"seed for the random number generator, >= 1"`

	// number of training epochs
	EpochSize int64 `desc:"number of training epochs"`

	// update the learning rate adaptively from the error trend
	UseAdaptiveLR bool `desc:"update the learning rate adaptively from the error trend"`

	// learning rate
	Rho float64 `desc:"learning rate"`

	// learning momentum
	Momentum float64 `desc:"learning momentum"`

	// number of context neurons
	CStateSize int `desc:"number of context neurons"`

	// representative initial-state candidates per trial
	RepInitSize int `desc:"representative initial-state candidates per trial"`

	// self-feedback delay in steps
	DelayLength int `desc:"self-feedback delay in steps"`

	// output function: 0 = tanh, 1 = softmax
	OutputType int `desc:"output function: 0 = tanh, 1 = softmax"`

	// freeze weights / thresholds / time constants / initial states
	FixedWeight     bool `desc:"freeze weights for the whole run"`
	FixedThreshold  bool `desc:"freeze thresholds for the whole run"`
	FixedTau        bool `desc:"freeze time constants for the whole run"`
	FixedInitCState bool `desc:"freeze learnable initial states for the whole run"`

	// connectivity strings, parsed once at load time
	ConnectionI2C string `desc:"input to context connectivity string"`
	ConnectionC2C string `desc:"context to context connectivity string"`
	ConnectionC2O string `desc:"context to output connectivity string"`
	ConnectionC2V string `desc:"context to variance connectivity string"`

	// constant (non-learned) initial context values, "range:value" items
	ConstInitC string `desc:"constant (non-learned) initial context values, range:value items"`

	// softmax group assignment of output units, "range:group" items
	SoftmaxGroup string `desc:"softmax group assignment of output units, range:group items"`

	// initial time constants, a bare value or "range:value" items
	InitTau string `desc:"initial time constants, a bare value or range:value items"`

	// strength of the Gaussian prior over weights and thresholds
	PriorStrength float64 `desc:"strength of the Gaussian prior over weights and thresholds"`

	// variance of the representative initial-state spread regularizer
	RepInitVariance float64 `desc:"variance of the representative initial-state spread regularizer"`

	// decay of the trailing error average (adaptive learning rate)
	Lambda float64 `desc:"decay of the trailing error average (adaptive learning rate)"`

	// adaptation step of the learning-rate multiplier
	Alpha float64 `desc:"adaptation step of the learning-rate multiplier"`

	// backward window of truncated BPTT, 0 = full
	TruncateLength int `desc:"backward window of truncated BPTT, 0 = full"`

	// block length for backward recomputation and analysis windows
	BlockLength int `desc:"block length for backward recomputation and analysis windows"`

	// number of analysis windows
	DivideNum int `desc:"number of analysis windows"`

	// number of Lyapunov exponents to estimate
	LyapunovSpectrumSize int `desc:"number of Lyapunov exponents to estimate"`

	// tolerance scale for periodic-orbit detection
	ThresholdPeriod float64 `desc:"tolerance scale for periodic-orbit detection"`

	// per-artifact output file names, keyed by artifact
	FileNames map[string]string `desc:"per-artifact output file names, keyed by artifact"`

	// per-artifact write schedules, keyed by artifact
	Intervals map[string]*report.Interval `desc:"per-artifact write schedules, keyed by artifact"`

	// default write schedule for artifacts without an override
	DefaultInterval report.Interval `desc:"default write schedule for artifacts without an override"`

	// model parameter save file
	SaveFile string `desc:"model parameter save file"`

	// model parameter load file (resume)
	LoadFile string `desc:"model parameter load file (resume)"`

	// verbose progress output
	Verbose bool `desc:"verbose progress output"`

	// per-artifact quadruple fields explicitly overridden
	overridden map[string]bool
}

// NewConfig returns a config with the standard defaults.
func NewConfig() *Config {
	cfg := &Config{
		Seed:                 1,
		EpochSize:            1000,
		Rho:                  0.001,
		Momentum:             0.9,
		CStateSize:           10,
		RepInitSize:          1,
		DelayLength:          1,
		OutputType:           0,
		ConnectionI2C:        "-t-",
		ConnectionC2C:        "-t-",
		ConnectionC2O:        "-t-",
		ConnectionC2V:        "-t-",
		InitTau:              "1",
		PriorStrength:        0,
		RepInitVariance:      1,
		Lambda:               0.9,
		Alpha:                0.1,
		TruncateLength:       0,
		BlockLength:          100,
		DivideNum:            10,
		LyapunovSpectrumSize: 1,
		ThresholdPeriod:      0.001,
		SaveFile:             "rnn.json",
		FileNames:            make(map[string]string),
		Intervals:            make(map[string]*report.Interval),
		DefaultInterval: report.Interval{
			Interval: 100,
			Init:     0,
			End:      math.MaxInt64,
		},
		overridden: make(map[string]bool),
	}
	for _, a := range Artifacts {
		cfg.FileNames[a] = a + ".log"
		iv := cfg.DefaultInterval
		cfg.Intervals[a] = &iv
	}
	return cfg
}

// setDefaultInterval updates one field of the default schedule and
// propagates it to every artifact that has not overridden that field.
func (cfg *Config) setDefaultInterval(field string, set func(*report.Interval)) {
	set(&cfg.DefaultInterval)
	for _, a := range Artifacts {
		if !cfg.overridden[a+"."+field] {
			set(cfg.Intervals[a])
		}
	}
}

// setArtifactInterval overrides one field of one artifact's schedule.
func (cfg *Config) setArtifactInterval(art, field string, set func(*report.Interval)) {
	set(cfg.Intervals[art])
	cfg.overridden[art+"."+field] = true
}

// Validate checks every parameter range, returning the first fatal
// configuration error.  Called once, before training starts.
func (cfg *Config) Validate() error {
	if cfg.Seed < 1 {
		return fmt.Errorf("seed for random number generator not in valid range: x >= 1 (integer)")
	}
	if cfg.Rho < 0 {
		return fmt.Errorf("learning rate not in valid range: x >= 0 (float)")
	}
	if cfg.Momentum < 0 {
		return fmt.Errorf("learning momentum not in valid range: x >= 0 (float)")
	}
	if cfg.CStateSize <= 0 {
		return fmt.Errorf("number of context neurons must be greater than zero")
	}
	if cfg.RepInitSize <= 0 {
		return fmt.Errorf("number of representative points of initial state must be greater than zero")
	}
	if cfg.DelayLength <= 0 {
		return fmt.Errorf("time delay in a self-feedback not in valid range: x > 0 (integer)")
	}
	if cfg.OutputType != 0 && cfg.OutputType != 1 {
		return fmt.Errorf("type of output function must be 0 (tanh) or 1 (softmax)")
	}
	if cfg.PriorStrength < 0 {
		return fmt.Errorf("effect of the normal prior distribution not in valid range: x >= 0 (float)")
	}
	if cfg.RepInitVariance <= 0 {
		return fmt.Errorf("variance for representative points of initial state not in valid range: x > 0 (float)")
	}
	if cfg.Lambda < 0 || cfg.Lambda >= 1 {
		return fmt.Errorf("lambda not in valid range: 0 <= x < 1 (float)")
	}
	if cfg.Alpha < 0 {
		return fmt.Errorf("alpha not in valid range: x >= 0 (float)")
	}
	if cfg.TruncateLength < 0 {
		return fmt.Errorf("truncate_length not in valid range: x >= 0 (integer)")
	}
	if cfg.BlockLength < 0 {
		return fmt.Errorf("block_length not in valid range: x >= 0 (integer)")
	}
	if cfg.DivideNum <= 0 {
		return fmt.Errorf("divide_num not in valid range: x >= 1 (integer)")
	}
	if cfg.LyapunovSpectrumSize < 1 {
		return fmt.Errorf("lyapunov_spectrum_size not in valid range: x >= 1 (integer)")
	}
	if cfg.ThresholdPeriod <= 0 {
		return fmt.Errorf("threshold_period not in valid range: x > 0 (float)")
	}
	return nil
}
