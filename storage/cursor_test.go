// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package storage_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bitmark-inc/chainstate/fault"
	"github.com/bitmark-inc/chainstate/storage"
)

func loadInts(t *testing.T, store storage.Store) {
	for _, name := range []string{"alpha", "beta", "delta", "gamma"} {
		err := store.Put(storage.NameKey(storage.TagInt, name), []byte("x-"+name))
		assert.Nil(t, err, "put %s", name)
	}
	// neighbouring families must not leak into the cursor
	assert.Nil(t, store.Put(storage.NameKey(storage.TagFlag, "zz"), []byte("1")), "put flag")
	assert.Nil(t, store.Put(storage.SingletonKey(storage.TagInt+1), []byte("?")), "put neighbour")
}

func TestFetch(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store storage.Store) {
		loadInts(t, store)

		cursor := storage.NewFetchCursor(store, storage.Pool.Ints)

		first, err := cursor.Fetch(3)
		assert.Nil(t, err, "fetch error")
		assert.Equal(t, 3, len(first), "first chunk")
		assert.Equal(t, []byte("alpha"), first[0].Key, "prefix not stripped")
		assert.Equal(t, []byte("x-alpha"), first[0].Value, "value")

		second, err := cursor.Fetch(3)
		assert.Nil(t, err, "fetch error")
		assert.Equal(t, 1, len(second), "second chunk")
		assert.Equal(t, []byte("gamma"), second[0].Key, "last element")

		third, err := cursor.Fetch(3)
		assert.Nil(t, err, "fetch error")
		assert.Equal(t, 0, len(third), "exhausted")

		seeked, err := storage.NewFetchCursor(store, storage.Pool.Ints).Seek([]byte("c")).Fetch(10)
		assert.Nil(t, err, "seek fetch error")
		assert.Equal(t, 2, len(seeked), "after seek")
		assert.Equal(t, []byte("delta"), seeked[0].Key, "seek position")

		_, err = cursor.Fetch(0)
		assert.Equal(t, fault.ErrInvalidCount, err, "zero count")
	})
}

func TestMap(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store storage.Store) {
		loadInts(t, store)

		keys := []string{}
		err := storage.NewFetchCursor(store, storage.Pool.Ints).Map(nil, func(key []byte, value []byte) error {
			keys = append(keys, string(key))
			return nil
		})
		assert.Nil(t, err, "map error")
		assert.Equal(t, []string{"alpha", "beta", "delta", "gamma"}, keys, "map order")

		stop := errors.New("stop")
		n := 0
		err = storage.NewFetchCursor(store, storage.Pool.Ints).Map(nil, func(key []byte, value []byte) error {
			n += 1
			if 2 == n {
				return stop
			}
			return nil
		})
		assert.Equal(t, stop, err, "callback error not returned")
		assert.Equal(t, 2, n, "callback count")

		shutdown := make(chan struct{})
		close(shutdown)
		err = storage.NewFetchCursor(store, storage.Pool.Ints).Map(shutdown, func(key []byte, value []byte) error {
			t.Errorf("callback after shutdown: %s", key)
			return nil
		})
		assert.Equal(t, fault.ErrInterrupted, err, "shutdown")
	})
}

func TestNilCursor(t *testing.T) {
	var cursor *storage.FetchCursor
	_, err := cursor.Fetch(1)
	assert.Equal(t, fault.ErrInvalidCursor, err, "fetch")
	err = cursor.Map(nil, nil)
	assert.Equal(t, fault.ErrInvalidCursor, err, "map")
}
