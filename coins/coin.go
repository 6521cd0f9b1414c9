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
	"github.com/bitmark-inc/chainstate/storage"
	"github.com/bitmark-inc/chainstate/util"
)

// Coin - an unspent transaction output and where it was created
type Coin struct {
	Out       wire.TxOut
	Height    uint32
	CoinBase  bool
	CoinStake bool
}

// Pack - VARINT(height*4 + coinbase + 2*coinstake) ++ compressed txout
func (coin *Coin) Pack() []byte {
	code := uint64(coin.Height) << 2
	if coin.CoinBase {
		code |= 1
	}
	if coin.CoinStake {
		code |= 2
	}
	buffer := util.ToVarint64(code)
	return packTxOut(buffer, &coin.Out)
}

// UnpackCoin - decode a coin record value
func UnpackCoin(buffer []byte) (*Coin, error) {
	code, n, err := readVarint(buffer, 0)
	if nil != err {
		return nil, err
	}
	if code>>2 > math.MaxUint32 {
		return nil, fmt.Errorf("height: %d: %w", code>>2, fault.ErrMalformedValue)
	}

	out, _, err := unpackTxOut(buffer, n)
	if nil != err {
		return nil, err
	}

	return &Coin{
		Out:       *out,
		Height:    uint32(code >> 2),
		CoinBase:  0 != code&1,
		CoinStake: 0 != code&2,
	}, nil
}

func coinKey(outpoint wire.OutPoint) []byte {
	return storage.OutpointKey(storage.TagCoin, outpoint.Hash, outpoint.Index)
}

func outpointFromKey(key storage.Key) (wire.OutPoint, error) {
	if storage.TagCoin != key.Tag {
		return wire.OutPoint{}, fault.ErrMalformedKey
	}
	hash, err := storage.HashFromPayload(key.Payload, 0)
	if nil != err {
		return wire.OutPoint{}, err
	}
	index, err := storage.Uint32FromPayload(key.Payload, storage.HashSize)
	if nil != err {
		return wire.OutPoint{}, err
	}
	return wire.OutPoint{Hash: hash, Index: index}, nil
}
