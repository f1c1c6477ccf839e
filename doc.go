// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package rnnlearn is the overall repository for the rnn-learn program:
gradient-based training of continuous-time recurrent neural networks
(CTRNN) on multivariate time series, with downstream analysis of the
learned closed-loop dynamics.

This top-level of the repository has no functional code -- everything is
organized into the following sub-repositories:

* rnn: the core CTRNN implementation: leaky-integrator forward model,
truncated backpropagation-through-time gradient engine, momentum /
prior-regularized adaptive update rule, and the representative
initial-state ensemble.

* dynamics: read-only analysis of the closed-loop network: Lyapunov
spectrum via tangent propagation with periodic re-orthonormalization,
symbolic entropy of the generated output, and periodic-orbit detection.

* target: the target store holding parsed trial time series, and an
environment adapter presenting trials to the trainer.

* config: the flat key=value configuration surface with fail-fast
validation.

* report: the reporting sink writing the numeric output artifacts at
their configured epoch intervals.

* trainer: the epoch loop tying the above together, including resume
from a saved parameter file.

* cmd/rnn-learn: the command-line front end.
*/
package rnnlearn
