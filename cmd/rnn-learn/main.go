// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// rnn-learn trains a continuous-time recurrent neural network to
// predict and generate time series, and analyzes the dynamics of the
// trained model.  Target series come from the file arguments, or from
// standard input when no files and no load file are given.
package main

import (
	"flag"
	"fmt"

	"github.com/emer/rnnlearn/config"
	"github.com/emer/rnnlearn/trainer"
	"github.com/sirupsen/logrus"
)

const version = "1.0.0"

// flagKeys maps each command-line flag to its configuration key.
var flagKeys = map[string]string{
	"s": "seed",
	"n": "c_state_size",
	"r": "rep_init_size",
	"t": "init_tau",
	"d": "delay_length",
	"k": "output_type",
	"e": "epoch_size",
	"l": "print_interval",
	"x": "rho",
	"m": "momentum",
	"a": "use_adaptive_lr",
	"p": "prior_strength",
	"i": "load_file",
	"o": "save_file",
	"V": "verbose",
}

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	flag.String("s", "", "seed for the random number generator")
	flag.String("n", "", "number of context neurons")
	flag.String("r", "", "representative points of initial state")
	flag.String("t", "", "initial time constant of neurons")
	flag.String("d", "", "time delay in the self-feedback")
	flag.String("k", "", "output function: 0 = tanh, 1 = softmax")
	flag.String("e", "", "number of training epochs")
	flag.String("l", "", "epochs between log writes")
	flag.String("x", "", "learning rate")
	flag.String("m", "", "learning momentum")
	flag.Bool("a", false, "update the learning rate adaptively")
	flag.String("p", "", "strength of the normal prior distribution")
	flag.String("i", "", "model file to initialize or resume from")
	flag.String("o", "", "model file to save the run to")
	cfgFile := flag.String("c", "", "configuration file")
	flag.Bool("V", false, "verbose progress output")
	showVersion := flag.Bool("v", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("rnn-learn version %s\n", version)
		return
	}

	cfg := config.NewConfig()
	if *cfgFile != "" {
		if err := cfg.OpenFile(*cfgFile, log); err != nil {
			log.Fatal(err)
		}
	}
	// flags given on the command line override the config file
	var flagErr error
	flag.Visit(func(f *flag.Flag) {
		key, ok := flagKeys[f.Name]
		if !ok {
			return
		}
		arg := f.Value.String()
		if f.Name == "a" || f.Name == "V" {
			arg = ""
		}
		if err := cfg.Apply(key, arg); err != nil && flagErr == nil {
			flagErr = fmt.Errorf("-%s: %v", f.Name, err)
		}
	})
	if flagErr != nil {
		log.Fatal(flagErr)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	tr, err := trainer.New(cfg, flag.Args(), log)
	if err != nil {
		log.Fatal(err)
	}
	if err := tr.Run(); err != nil {
		log.Fatal(err)
	}
}
