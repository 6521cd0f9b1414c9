// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package checkpoint

import (
	cache "github.com/patrickmn/go-cache"
)

// Cache - write-back memory cache of checksum heights
//
// memory is authoritative: Set is only persisted by Flush, Erase is
// applied to the database immediately
type Cache struct {
	db     *DB
	memory *cache.Cache
}

// NewCache - an empty cache over db
func NewCache(db *DB) *Cache {
	return &Cache{
		db:     db,
		memory: cache.New(cache.NoExpiration, 0),
	}
}

// Get - height for a checksum, from memory or else from disk
//
// a disk hit is installed in memory
func (c *Cache) Get(checksum uint32, denomination Denomination) (int32, bool, error) {
	k := memoryKey(Checkpoint{checksum, denomination})
	if obj, found := c.memory.Get(k); found {
		return obj.(int32), true, nil
	}

	height, found, err := c.db.ReadAccChecksum(checksum, denomination)
	if nil != err || !found {
		return 0, false, err
	}
	c.memory.Set(k, height, cache.NoExpiration)
	return height, true, nil
}

// Set - update memory only
func (c *Cache) Set(checksum uint32, denomination Denomination, height int32) {
	c.memory.Set(memoryKey(Checkpoint{checksum, denomination}), height, cache.NoExpiration)
}

// Erase - remove from memory and from disk
func (c *Cache) Erase(checksum uint32, denomination Denomination) error {
	c.memory.Delete(memoryKey(Checkpoint{checksum, denomination}))
	return c.db.EraseAccChecksum(checksum, denomination)
}

// Flush - write every entry held in memory to disk
func (c *Cache) Flush() error {
	items := c.memory.Items()
	checkpoints := make(map[Checkpoint]int32, len(items))
	for k, item := range items {
		checkpoint, err := checkpointFromMemoryKey(k)
		if nil != err {
			return err
		}
		checkpoints[checkpoint] = item.Object.(int32)
	}
	if err := c.db.writeAccChecksums(checkpoints); nil != err {
		return err
	}
	c.db.log.Debugf("flushed %d checkpoints", len(checkpoints))
	return nil
}

// Wipe - clear memory and delete every record on disk
func (c *Cache) Wipe(shutdown <-chan struct{}) error {
	c.memory.Flush()
	_, err := c.db.WipeAccChecksums(shutdown)
	return err
}

// LoadAll - read every record on disk
//
// records not already held are installed in memory, the result is
// the on-disk mapping
func (c *Cache) LoadAll(shutdown <-chan struct{}) (map[Checkpoint]int32, error) {
	checkpoints, err := c.db.ReadAll(shutdown)
	if nil != err {
		return nil, err
	}
	for checkpoint, height := range checkpoints {

		// Add fails for an existing key so newer values in memory survive
		_ = c.memory.Add(memoryKey(checkpoint), height, cache.NoExpiration)
	}
	return checkpoints, nil
}

// Len - number of entries held in memory
func (c *Cache) Len() int {
	return c.memory.ItemCount()
}

// memory is keyed by the record payload
func memoryKey(c Checkpoint) string {
	return string(checkpointKey(c)[1:])
}

func checkpointFromMemoryKey(k string) (Checkpoint, error) {
	return checkpointFromPayload([]byte(k))
}
