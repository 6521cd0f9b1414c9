// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chain

import (
	"math/big"

	"github.com/btcsuite/btcd/blockchain"

	"github.com/bitmark-inc/chainstate/fault"
)

// names of all chains
const (
	Main    = "main"
	Testnet = "testnet"
	Regtest = "regtest"
)

// Params - the consensus values the storage layer depends on
type Params struct {
	Name string

	// first height at which proof-of-stake is active, blocks below
	// this must carry valid proof-of-work
	PoSActivationHeight int32

	// the easiest allowed target in compact form
	PowLimitBits uint32
}

var allParams = map[string]*Params{
	Main: {
		Name:                Main,
		PoSActivationHeight: 259201,
		PowLimitBits:        0x1e0fffff,
	},
	Testnet: {
		Name:                Testnet,
		PoSActivationHeight: 201,
		PowLimitBits:        0x1e0fffff,
	},
	Regtest: {
		Name:                Regtest,
		PoSActivationHeight: 251,
		PowLimitBits:        0x207fffff,
	},
}

// Valid - validate a chain name
func Valid(name string) bool {
	switch name {
	case Main, Testnet, Regtest:
		return true
	default:
		return false
	}
}

// ParamsFor - parameters of a named chain
func ParamsFor(name string) (*Params, error) {
	p, ok := allParams[name]
	if !ok {
		return nil, fault.ErrInvalidChain
	}
	return p, nil
}

// PowLimit - the easiest allowed target
func (p *Params) PowLimit() *big.Int {
	return blockchain.CompactToBig(p.PowLimitBits)
}

// ProofOfStakeActive - true once height reaches the activation height
func (p *Params) ProofOfStakeActive(height int32) bool {
	return height >= p.PoSActivationHeight
}
