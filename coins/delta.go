// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package coins

import (
	"github.com/btcsuite/btcd/wire"
)

type entryState int

const (
	entryClean entryState = iota
	entrySpent
	entryUnspent
)

// Entry - one pending change to the coin set
type Entry struct {
	state entryState
	coin  Coin
}

// Spent - dirty entry that removes the coin
func Spent() Entry {
	return Entry{state: entrySpent}
}

// Unspent - dirty entry that writes the coin
func Unspent(coin Coin) Entry {
	return Entry{state: entryUnspent, coin: coin}
}

// Clean - unchanged entry, skipped by Commit
func Clean(coin Coin) Entry {
	return Entry{state: entryClean, coin: coin}
}

// Dirty - must be written
func (e Entry) Dirty() bool {
	return entryClean != e.state
}

// IsSpent - dirty and spent
func (e Entry) IsSpent() bool {
	return entrySpent == e.state
}

// Coin - the coin carried by an unspent or clean entry
func (e Entry) Coin() Coin {
	return e.coin
}

// Delta - pending coin changes in insertion order
//
// Commit consumes the delta: every entry is removed as it is written
type Delta struct {
	order   []wire.OutPoint
	entries map[wire.OutPoint]Entry
	head    int
}

// NewDelta - an empty delta
func NewDelta() *Delta {
	return &Delta{
		entries: make(map[wire.OutPoint]Entry),
	}
}

// Set - add or replace the entry for an outpoint
//
// a replaced entry keeps its original position
func (d *Delta) Set(outpoint wire.OutPoint, entry Entry) {
	if _, ok := d.entries[outpoint]; !ok {
		d.order = append(d.order, outpoint)
	}
	d.entries[outpoint] = entry
}

// Get - the pending entry for an outpoint
func (d *Delta) Get(outpoint wire.OutPoint) (Entry, bool) {
	entry, ok := d.entries[outpoint]
	return entry, ok
}

// Len - number of entries not yet consumed
func (d *Delta) Len() int {
	return len(d.entries)
}

// Pop - remove and return the oldest entry
func (d *Delta) Pop() (wire.OutPoint, Entry, bool) {
	for d.head < len(d.order) {
		outpoint := d.order[d.head]
		d.head += 1
		entry, ok := d.entries[outpoint]
		if !ok {
			continue
		}
		delete(d.entries, outpoint)
		if d.head == len(d.order) {
			d.order = d.order[:0]
			d.head = 0
		}
		return outpoint, entry, true
	}
	d.order = d.order[:0]
	d.head = 0
	return wire.OutPoint{}, Entry{}, false
}
