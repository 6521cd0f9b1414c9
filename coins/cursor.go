// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package coins

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"

	"github.com/bitmark-inc/chainstate/storage"
)

// Cursor - ordered scan of the coin records
//
// once exhausted a cursor stays exhausted
type Cursor struct {
	iter      storage.Iterator
	bestBlock chainhash.Hash
	outpoint  wire.OutPoint
	valid     bool
}

// Cursor - positioned on the first coin record and labelled with the
// best block at creation time
//
// the label is advisory: a concurrent Commit is not isolated from the scan
func (s *Store) Cursor() (*Cursor, error) {
	bestBlock, err := s.BestBlock()
	if nil != err {
		return nil, err
	}

	cursor := &Cursor{
		iter:      s.db.NewIterator(storage.Pool.Coins.Start(), storage.Pool.Coins.Limit()),
		bestBlock: bestBlock,
	}
	cursor.iter.Next()
	cursor.load()
	return cursor, nil
}

// cache the key of the current record, or become exhausted
func (cursor *Cursor) load() {
	cursor.valid = false
	if !cursor.iter.Valid() {
		return
	}
	key, err := storage.DecodeKey(cursor.iter.Key())
	if nil != err {
		return
	}
	outpoint, err := outpointFromKey(key)
	if nil != err {
		return
	}
	cursor.outpoint = outpoint
	cursor.valid = true
}

// Valid - positioned on a coin record
func (cursor *Cursor) Valid() bool {
	return cursor.valid
}

// BestBlock - label captured when the cursor was created
func (cursor *Cursor) BestBlock() chainhash.Hash {
	return cursor.bestBlock
}

// Key - outpoint of the current record
func (cursor *Cursor) Key() (wire.OutPoint, bool) {
	if !cursor.valid {
		return wire.OutPoint{}, false
	}
	return cursor.outpoint, true
}

// Value - decoded coin of the current record
func (cursor *Cursor) Value() (*Coin, bool) {
	if !cursor.valid {
		return nil, false
	}
	coin, err := UnpackCoin(cursor.iter.Value())
	if nil != err {
		return nil, false
	}
	return coin, true
}

// ValueSize - encoded size of the current record
func (cursor *Cursor) ValueSize() int {
	if !cursor.valid {
		return 0
	}
	return len(cursor.iter.Value())
}

// Next - advance to the following record
func (cursor *Cursor) Next() {
	if !cursor.valid {
		return
	}
	cursor.iter.Next()
	cursor.load()
}

// Close - release the underlying iterator
func (cursor *Cursor) Close() error {
	cursor.valid = false
	cursor.iter.Release()
	return cursor.iter.Error()
}
