// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package coins

import (
	"fmt"
	"math"

	"github.com/btcsuite/btcd/wire"

	"github.com/bitmark-inc/chainstate/fault"
)

// legacy per-transaction coins record
//
//   VARINT(version) ++ VARINT(code) ++ mask bytes ++ txouts ++ VARINT(height)
//
// code bit 0: coinbase
// code bit 1: coinstake
// code bit 2: output 0 present
// code bit 3: output 1 present
// code/16:    number of non-zero mask bytes, plus one when bits 2 and 3 are clear
//
// each mask byte covers the next eight outputs starting at output 2,
// zero bytes may appear and do not count
type legacyCoins struct {
	version   uint64
	coinBase  bool
	coinStake bool
	outputs   []*wire.TxOut // nil for spent outputs
	height    uint32
}

func unpackLegacyCoins(buffer []byte) (*legacyCoins, error) {
	version, n, err := readVarint(buffer, 0)
	if nil != err {
		return nil, err
	}
	code, n, err := readVarint(buffer, n)
	if nil != err {
		return nil, err
	}

	available := []bool{0 != code&4, 0 != code&8}

	maskCode := code / 16
	if 0 == code&12 {
		maskCode += 1
	}
	for maskCode > 0 {
		if n >= len(buffer) {
			return nil, fault.ErrTruncatedRecord
		}
		mask := buffer[n]
		n += 1
		for p := uint(0); p < 8; p += 1 {
			available = append(available, 0 != mask&(1<<p))
		}
		if 0 != mask {
			maskCode -= 1
		}
	}

	outputs := make([]*wire.TxOut, len(available))
	for i, ok := range available {
		if !ok {
			continue
		}
		outputs[i], n, err = unpackTxOut(buffer, n)
		if nil != err {
			return nil, err
		}
	}

	height, _, err := readVarint(buffer, n)
	if nil != err {
		return nil, err
	}
	if height > math.MaxInt32 {
		return nil, fmt.Errorf("legacy height: %d: %w", height, fault.ErrMalformedValue)
	}

	return &legacyCoins{
		version:   version,
		coinBase:  0 != code&1,
		coinStake: 0 != code&2,
		outputs:   outputs,
		height:    uint32(height),
	}, nil
}
