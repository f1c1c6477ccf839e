// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rnn

import "github.com/goki/ki/kit"

//go:generate stringer -type=OutputTypes

// OutputTypes is the type of the output activation function.
type OutputTypes int32

const (
	// Tanh passes each output unit through tanh, with the
	// Gaussian (variance-weighted squared error) loss.
	Tanh OutputTypes = iota

	// Softmax normalizes each configured group of output units to a
	// probability distribution, with the cross-entropy loss.
	Softmax

	OutputTypesN
)

var KiT_OutputTypes = kit.Enums.AddEnum(OutputTypesN, kit.NotBitFlag, nil)
