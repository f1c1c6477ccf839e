// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dynamics

import (
	"gonum.org/v1/gonum/stat"
)

// entropyWordLen is the symbolic word length m: block entropy is
// estimated as H(m) - H(m-1).
const entropyWordLen = 3

// maxSymbolDims bounds the output dimension for sign symbolization so
// a symbol fits in 16 bits.
const maxSymbolDims = 16

// SymbolicEntropy estimates the entropy rate of the closed-loop output
// sequence, in nats per step.  Each output vector is symbolized by the
// sign of its components, and the rate is the block-entropy difference
// H(m) - H(m-1) averaged over divideNum windows of blockLen steps.
// ok is false when the estimate could not be made (too few steps, too
// many output dimensions, or a diverged trajectory).
func SymbolicEntropy(sy *System, blockLen, divideNum int) (float64, bool) {
	if blockLen <= entropyWordLen || divideNum <= 0 {
		return 0, false
	}
	if sy.Net.OutSize > maxSymbolDims {
		return 0, false
	}
	total := 0.0
	syms := make([]uint64, blockLen)
	for w := 0; w < divideNum; w++ {
		for s := 0; s < blockLen; s++ {
			if !sy.Finite() {
				return 0, false
			}
			y := sy.Step()
			var sym uint64
			for i, v := range y {
				if v > 0 {
					sym |= 1 << uint(i)
				}
			}
			syms[s] = sym
		}
		hm := wordEntropy(syms, entropyWordLen)
		hm1 := wordEntropy(syms, entropyWordLen-1)
		total += hm - hm1
	}
	return total / float64(divideNum), true
}

// wordEntropy is the Shannon entropy of length-m symbol words in syms.
func wordEntropy(syms []uint64, m int) float64 {
	counts := map[uint64]int{}
	n := 0
	for t := 0; t+m <= len(syms); t++ {
		var w uint64
		for k := 0; k < m; k++ {
			w = w<<16 | syms[t+k]
		}
		counts[w]++
		n++
	}
	if n == 0 {
		return 0
	}
	p := make([]float64, 0, len(counts))
	for _, c := range counts {
		p = append(p, float64(c)/float64(n))
	}
	return stat.Entropy(p)
}
