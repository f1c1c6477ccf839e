// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/emer/rnnlearn/report"
	"github.com/sirupsen/logrus"
)

// option is one entry of the key=value surface.
type option struct {
	hasArg bool
	set    func(cfg *Config, arg string) error
}

func parseI(arg string, dst *int) error {
	v, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil {
		return fmt.Errorf("not an integer: %q", arg)
	}
	*dst = v
	return nil
}

func parseI64(arg string, dst *int64) error {
	v, err := strconv.ParseInt(strings.TrimSpace(arg), 0, 64)
	if err != nil {
		return fmt.Errorf("not an integer: %q", arg)
	}
	*dst = v
	return nil
}

func parseF(arg string, dst *float64) error {
	v, err := strconv.ParseFloat(strings.TrimSpace(arg), 64)
	if err != nil {
		return fmt.Errorf("not a number: %q", arg)
	}
	*dst = v
	return nil
}

// options returns the full option table.  Built per call because the
// closures capture nothing; the map keys are the configuration keys.
func options() map[string]option {
	opts := map[string]option{
		"seed": {true, func(c *Config, a string) error {
			v, err := strconv.ParseUint(strings.TrimSpace(a), 0, 64)
			if err != nil {
				return fmt.Errorf("not an integer: %q", a)
			}
			c.Seed = v
			return nil
		}},
		"epoch_size":      {true, func(c *Config, a string) error { return parseI64(a, &c.EpochSize) }},
		"use_adaptive_lr": {false, func(c *Config, a string) error { c.UseAdaptiveLR = true; return nil }},
		"rho":             {true, func(c *Config, a string) error { return parseF(a, &c.Rho) }},
		"momentum":        {true, func(c *Config, a string) error { return parseF(a, &c.Momentum) }},
		"c_state_size":    {true, func(c *Config, a string) error { return parseI(a, &c.CStateSize) }},
		"rep_init_size":   {true, func(c *Config, a string) error { return parseI(a, &c.RepInitSize) }},
		"delay_length":    {true, func(c *Config, a string) error { return parseI(a, &c.DelayLength) }},
		"output_type":     {true, func(c *Config, a string) error { return parseI(a, &c.OutputType) }},
		"fixed_weight":    {false, func(c *Config, a string) error { c.FixedWeight = true; return nil }},
		"fixed_threshold": {false, func(c *Config, a string) error { c.FixedThreshold = true; return nil }},
		"fixed_tau":       {false, func(c *Config, a string) error { c.FixedTau = true; return nil }},
		"fixed_init_c_state": {false, func(c *Config, a string) error {
			c.FixedInitCState = true
			return nil
		}},
		"connection_i2c":    {true, func(c *Config, a string) error { c.ConnectionI2C = a; return nil }},
		"connection_c2c":    {true, func(c *Config, a string) error { c.ConnectionC2C = a; return nil }},
		"connection_c2o":    {true, func(c *Config, a string) error { c.ConnectionC2O = a; return nil }},
		"connection_c2v":    {true, func(c *Config, a string) error { c.ConnectionC2V = a; return nil }},
		"const_init_c":      {true, func(c *Config, a string) error { c.ConstInitC = a; return nil }},
		"softmax_group":     {true, func(c *Config, a string) error { c.SoftmaxGroup = a; return nil }},
		"init_tau":          {true, func(c *Config, a string) error { c.InitTau = a; return nil }},
		"prior_strength":    {true, func(c *Config, a string) error { return parseF(a, &c.PriorStrength) }},
		"rep_init_variance": {true, func(c *Config, a string) error { return parseF(a, &c.RepInitVariance) }},
		"lambda":            {true, func(c *Config, a string) error { return parseF(a, &c.Lambda) }},
		"alpha":             {true, func(c *Config, a string) error { return parseF(a, &c.Alpha) }},
		"truncate_length":   {true, func(c *Config, a string) error { return parseI(a, &c.TruncateLength) }},
		"block_length":      {true, func(c *Config, a string) error { return parseI(a, &c.BlockLength) }},
		"divide_num":        {true, func(c *Config, a string) error { return parseI(a, &c.DivideNum) }},
		"lyapunov_spectrum_size": {true, func(c *Config, a string) error {
			return parseI(a, &c.LyapunovSpectrumSize)
		}},
		"threshold_period": {true, func(c *Config, a string) error { return parseF(a, &c.ThresholdPeriod) }},
		"save_file":        {true, func(c *Config, a string) error { c.SaveFile = a; return nil }},
		"load_file":        {true, func(c *Config, a string) error { c.LoadFile = a; return nil }},
		"verbose":          {false, func(c *Config, a string) error { c.Verbose = true; return nil }},
		"print_interval": {true, func(c *Config, a string) error {
			var v int64
			if err := parseI64(a, &v); err != nil {
				return err
			}
			c.setDefaultInterval("interval", func(iv *report.Interval) { iv.Interval = v })
			return nil
		}},
		"print_init": {true, func(c *Config, a string) error {
			var v int64
			if err := parseI64(a, &v); err != nil {
				return err
			}
			c.setDefaultInterval("init", func(iv *report.Interval) { iv.Init = v })
			return nil
		}},
		"print_end": {true, func(c *Config, a string) error {
			var v int64
			if err := parseI64(a, &v); err != nil {
				return err
			}
			c.setDefaultInterval("end", func(iv *report.Interval) { iv.End = v })
			return nil
		}},
		"use_logscale_interval": {false, func(c *Config, a string) error {
			c.setDefaultInterval("logscale", func(iv *report.Interval) { iv.LogScale = true })
			return nil
		}},
	}
	for _, art := range Artifacts {
		art := art
		opts[art+"_file"] = option{true, func(c *Config, a string) error {
			c.FileNames[art] = a
			return nil
		}}
		opts["print_interval_for_"+art+"_file"] = option{true, func(c *Config, a string) error {
			var v int64
			if err := parseI64(a, &v); err != nil {
				return err
			}
			c.setArtifactInterval(art, "interval", func(iv *report.Interval) { iv.Interval = v })
			return nil
		}}
		opts["print_init_for_"+art+"_file"] = option{true, func(c *Config, a string) error {
			var v int64
			if err := parseI64(a, &v); err != nil {
				return err
			}
			c.setArtifactInterval(art, "init", func(iv *report.Interval) { iv.Init = v })
			return nil
		}}
		opts["print_end_for_"+art+"_file"] = option{true, func(c *Config, a string) error {
			var v int64
			if err := parseI64(a, &v); err != nil {
				return err
			}
			c.setArtifactInterval(art, "end", func(iv *report.Interval) { iv.End = v })
			return nil
		}}
		opts["use_logscale_interval_for_"+art+"_file"] = option{false, func(c *Config, a string) error {
			c.setArtifactInterval(art, "logscale", func(iv *report.Interval) { iv.LogScale = true })
			return nil
		}}
	}
	return opts
}

// Apply sets one key=value entry.  Unknown keys and malformed values
// return an error the caller downgrades to a warning; the entry is
// ignored.
func (cfg *Config) Apply(key, arg string) error {
	opt, ok := options()[key]
	if !ok {
		return fmt.Errorf("unknown option %q", key)
	}
	// an empty file name disables the artifact, every other key with an
	// argument needs one
	if opt.hasArg && arg == "" && !strings.HasSuffix(key, "_file") {
		return fmt.Errorf("option %q requires an argument", key)
	}
	return opt.set(cfg, arg)
}

// OpenFile reads a key=value configuration file.  '#' starts a line
// comment.  Unknown or malformed entries are warned about and skipped;
// only an unreadable file is an error.  A config_file entry reads
// another file in place.
func (cfg *Config) OpenFile(fname string, log *logrus.Logger) error {
	fp, err := os.Open(fname)
	if err != nil {
		return fmt.Errorf("cannot open %s: %v", fname, err)
	}
	defer fp.Close()
	sc := bufio.NewScanner(fp)
	line := 0
	for sc.Scan() {
		line++
		txt := sc.Text()
		if ci := strings.IndexByte(txt, '#'); ci >= 0 {
			txt = txt[:ci]
		}
		key, arg := txt, ""
		if ei := strings.IndexByte(txt, '='); ei >= 0 {
			key, arg = txt[:ei], strings.TrimSpace(txt[ei+1:])
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		if key == "config_file" {
			if err := cfg.OpenFile(arg, log); err != nil {
				return err
			}
			continue
		}
		if err := cfg.Apply(key, arg); err != nil {
			log.Warnf("%s:%d: %v", fname, line, err)
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("%s: %v", fname, err)
	}
	return nil
}
