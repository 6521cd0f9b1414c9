// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package storage

import (
	"github.com/bitmark-inc/chainstate/fault"
)

// FetchCursor - cursor structure
type FetchCursor struct {
	store Store
	pool  *PoolHandle
	start []byte
	limit []byte
}

// NewFetchCursor - initialise a cursor to the start of a record family
func NewFetchCursor(store Store, pool *PoolHandle) *FetchCursor {
	return &FetchCursor{
		store: store,
		pool:  pool,
		start: pool.Start(),
		limit: pool.Limit(),
	}
}

// Seek - move cursor to specific payload position
func (cursor *FetchCursor) Seek(payload []byte) *FetchCursor {
	cursor.start = cursor.pool.Key(payload)
	return cursor
}

// Fetch - return up to count elements and advance past them
//
// element keys have the prefix stripped
func (cursor *FetchCursor) Fetch(count int) ([]Element, error) {
	if nil == cursor || nil == cursor.store {
		return nil, fault.ErrInvalidCursor
	}
	if count <= 0 {
		return nil, fault.ErrInvalidCount
	}

	iter := cursor.store.NewIterator(cursor.start, cursor.limit)

	results := make([]Element, 0, count)
	lastKey := []byte(nil)
iterating:
	for iter.Next() {

		// contents of the returned slice must not be modified, and are
		// only valid until the next call to Next
		key := iter.Key()
		value := iter.Value()

		lastKey = append(lastKey[:0], key...)

		results = append(results, Element{
			Key:   append([]byte{}, key[1:]...), // strip the prefix
			Value: append([]byte{}, value...),
		})
		if len(results) >= count {
			break iterating
		}
	}
	iter.Release()
	err := iter.Error()

	// the smallest key after the last one returned
	if nil != lastKey {
		cursor.start = append(lastKey, 0x00)
	}
	return results, err
}

// Map - run a function on all remaining elements in the range
//
// stops early with fault.ErrInterrupted once shutdown is closed
func (cursor *FetchCursor) Map(shutdown <-chan struct{}, f func(key []byte, value []byte) error) error {
	if nil == cursor || nil == cursor.store {
		return fault.ErrInvalidCursor
	}

	iter := cursor.store.NewIterator(cursor.start, cursor.limit)

	var err error
iterating:
	for iter.Next() {
		if Interrupted(shutdown) {
			err = fault.ErrInterrupted
			break iterating
		}

		key := iter.Key()
		value := iter.Value()

		dataKey := make([]byte, len(key)-1) // strip the prefix
		copy(dataKey, key[1:])              // ...

		dataValue := make([]byte, len(value))
		copy(dataValue, value)

		err = f(dataKey, dataValue)
		if nil != err {
			break iterating
		}
	}
	iter.Release()
	if nil == err {
		err = iter.Error()
	}
	return err
}

// Interrupted - non-blocking check of a shutdown channel
func Interrupted(shutdown <-chan struct{}) bool {
	select {
	case <-shutdown:
		return true
	default:
		return false
	}
}
