// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package difficulty

import (
	"fmt"
	"math/big"

	"github.com/btcsuite/btcd/blockchain"
	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/bitmark-inc/chainstate/fault"
)

// Difficulty - a decoded compact target
type Difficulty struct {
	pdiff float64 // pool difficulty
	bits  uint32  // compact form
}

// constOne is for "pdiff" calculation as defined by:
//   https://en.bitcoin.it/wiki/Difficulty#How_is_difficulty_calculated.3F_What_is_the_difference_between_bdiff_and_pdiff.3F
//
// pool difficulty of 1
var constOne = []byte{
	0x00, 0x00, 0x00, 0x00, 0xff, 0xff, 0xff, 0xff,
	0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
	0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
	0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
}

// number of decimal places
const constScale = 1000000000000

var scale big.Int // 10 times bigger for rounding
var one big.Int   // for reciprocal calculation

// on startup
func init() {
	one.SetBytes(constOne)
	scale.SetUint64(10 * constScale)
}

// New - decode a compact value
func New(bits uint32) (*Difficulty, error) {
	target, err := Target(bits)
	if nil != err {
		return nil, err
	}

	// compute 1/d
	q := new(big.Int)
	r := new(big.Int)
	q.DivMod(&one, target, r)
	r.Mul(r, &scale) // note: big scale == 10 * constScale
	r.Div(r, target)

	result := float64(q.Uint64())
	result += float64((r.Uint64()+5)/10) / constScale

	return &Difficulty{
		pdiff: result,
		bits:  bits,
	}, nil
}

// Pdiff - 1/difficulty as normal floating-point value
func (difficulty *Difficulty) Pdiff() float64 {
	return difficulty.pdiff
}

// String - big endian hex of the short packed value
func (difficulty *Difficulty) String() string {
	return fmt.Sprintf("%08x", difficulty.bits)
}

// Target - expand a compact value into a positive 256 bit target
//
// negative, zero and overflowing encodings are rejected
func Target(bits uint32) (*big.Int, error) {
	size := bits >> 24
	word := bits & 0x007fffff

	if 0 != word {
		if 0 != bits&0x00800000 {
			return nil, fault.ErrInvalidDifficulty
		}
		if size > 34 || (word > 0xff && size > 33) || (word > 0xffff && size > 32) {
			return nil, fault.ErrInvalidDifficulty
		}
	}

	target := blockchain.CompactToBig(bits)
	if target.Sign() <= 0 {
		return nil, fault.ErrInvalidDifficulty
	}
	return target, nil
}

// CheckProofOfWork - hash must not exceed the target encoded in bits,
// and that target must not be easier than powLimit
func CheckProofOfWork(hash chainhash.Hash, bits uint32, powLimit *big.Int) bool {
	target, err := Target(bits)
	if nil != err {
		return false
	}
	if target.Cmp(powLimit) > 0 {
		return false
	}
	return blockchain.HashToBig(&hash).Cmp(target) <= 0
}
