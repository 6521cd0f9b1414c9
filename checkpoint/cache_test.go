// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package checkpoint

import (
	"errors"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"

	"github.com/bitmark-inc/chainstate/storage"
	"github.com/bitmark-inc/chainstate/storage/mocks"
)

func TestCacheSetGetWithoutDisk(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// no expectations: any database access fails the test
	c := NewCache(New(mocks.NewMockStore(ctrl)))

	c.Set(0xdeadbeef, 10, 1234)
	height, found, err := c.Get(0xdeadbeef, 10)
	assert.Nil(t, err, "get error")
	assert.True(t, found, "not found")
	assert.Equal(t, int32(1234), height, "height")
	assert.Equal(t, 1, c.Len(), "entries")
}

func TestCacheReadThrough(t *testing.T) {
	forEachBackend(t, func(t *testing.T, db *DB) {
		assert.Nil(t, db.WriteAccChecksum(5, 5, 55), "write error")

		c := NewCache(db)
		assert.Equal(t, 0, c.Len(), "initial entries")

		height, found, err := c.Get(5, 5)
		assert.Nil(t, err, "get error")
		assert.True(t, found, "not found")
		assert.Equal(t, int32(55), height, "height")
		assert.Equal(t, 1, c.Len(), "disk hit not installed")

		_, found, err = c.Get(6, 6)
		assert.Nil(t, err, "get error")
		assert.False(t, found, "unknown found")
		assert.Equal(t, 1, c.Len(), "miss installed")
	})
}

func TestCacheFlushAndLoadAll(t *testing.T) {
	forEachBackend(t, func(t *testing.T, db *DB) {
		c := NewCache(db)
		for k, height := range testCheckpoints {
			c.Set(k.Checksum, k.Denomination, height)
		}

		// nothing on disk before a flush
		all, err := db.ReadAll(nil)
		assert.Nil(t, err, "read all error")
		assert.Equal(t, 0, len(all), "written before flush")

		assert.Nil(t, c.Flush(), "flush error")

		fresh := NewCache(db)
		all, err = fresh.LoadAll(nil)
		assert.Nil(t, err, "load all error")
		assert.Equal(t, testCheckpoints, all, "loaded")
		assert.Equal(t, len(testCheckpoints), fresh.Len(), "installed")

		for k, height := range testCheckpoints {
			h, found, _ := fresh.Get(k.Checksum, k.Denomination)
			assert.True(t, found, "%v missing", k)
			assert.Equal(t, height, h, "%v height", k)
		}
	})
}

func TestCacheLoadAllKeepsMemory(t *testing.T) {
	forEachBackend(t, func(t *testing.T, db *DB) {
		assert.Nil(t, db.WriteAccChecksum(1, 1, 10), "write error")
		assert.Nil(t, db.WriteAccChecksum(2, 2, 20), "write error")

		c := NewCache(db)
		c.Set(1, 1, 11)

		all, err := c.LoadAll(nil)
		assert.Nil(t, err, "load all error")
		assert.Equal(t, int32(10), all[Checkpoint{1, 1}], "disk value returned")

		height, _, _ := c.Get(1, 1)
		assert.Equal(t, int32(11), height, "memory value replaced")
		height, _, _ = c.Get(2, 2)
		assert.Equal(t, int32(20), height, "disk value not installed")
	})
}

func TestCacheErase(t *testing.T) {
	forEachBackend(t, func(t *testing.T, db *DB) {
		c := NewCache(db)
		c.Set(3, 3, 33)
		assert.Nil(t, c.Flush(), "flush error")

		assert.Nil(t, c.Erase(3, 3), "erase error")
		assert.Equal(t, 0, c.Len(), "memory entry left")

		_, found, err := db.ReadAccChecksum(3, 3)
		assert.Nil(t, err, "read error")
		assert.False(t, found, "disk entry left")
	})
}

func TestCacheWipe(t *testing.T) {
	forEachBackend(t, func(t *testing.T, db *DB) {
		c := NewCache(db)
		for k, height := range testCheckpoints {
			c.Set(k.Checksum, k.Denomination, height)
		}
		assert.Nil(t, c.Flush(), "flush error")
		c.Set(8, 8, 88)

		assert.Nil(t, c.Wipe(nil), "wipe error")
		assert.Equal(t, 0, c.Len(), "memory entries")

		all, _ := db.ReadAll(nil)
		assert.Equal(t, 0, len(all), "disk entries")
	})
}

func TestCacheFlushFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	failure := errors.New("disk full")
	store := mocks.NewMockStore(ctrl)
	store.EXPECT().Write(gomock.AssignableToTypeOf(&storage.Batch{}), true).Return(failure)

	c := NewCache(New(store))
	c.Set(1, 1, 1)
	assert.Equal(t, failure, c.Flush(), "flush error")
	assert.Equal(t, 1, c.Len(), "memory cleared on failure")
}
