// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package storage

import (
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	ldb_opt "github.com/syndtr/goleveldb/leveldb/opt"
	ldb_storage "github.com/syndtr/goleveldb/leveldb/storage"
	ldb_util "github.com/syndtr/goleveldb/leveldb/util"

	"github.com/bitmark-inc/chainstate/fault"
)

type levelDBStore struct {
	db *leveldb.DB
}

// OpenLevelDB - open (or create) a LevelDB database
func OpenLevelDB(name string, readOnly bool) (Store, error) {
	opt := &ldb_opt.Options{
		ErrorIfExist:   false,
		ErrorIfMissing: readOnly,
		ReadOnly:       readOnly,
	}

	db, err := leveldb.OpenFile(name, opt)
	if nil != err {
		return nil, fault.NewIOError("leveldb open", err)
	}
	return &levelDBStore{db: db}, nil
}

// NewMemory - a LevelDB database held entirely in memory
func NewMemory() (Store, error) {
	db, err := leveldb.Open(ldb_storage.NewMemStorage(), nil)
	if nil != err {
		return nil, fault.NewIOError("leveldb open memory", err)
	}
	return &levelDBStore{db: db}, nil
}

func (s *levelDBStore) Get(key []byte) ([]byte, bool, error) {
	value, err := s.db.Get(key, nil)
	if leveldb.ErrNotFound == err {
		return nil, false, nil
	}
	if nil != err {
		return nil, false, fault.NewIOError("leveldb get", err)
	}
	return value, true, nil
}

func (s *levelDBStore) Has(key []byte) (bool, error) {
	found, err := s.db.Has(key, nil)
	if nil != err {
		return false, fault.NewIOError("leveldb has", err)
	}
	return found, nil
}

func (s *levelDBStore) Put(key []byte, value []byte) error {
	return fault.NewIOError("leveldb put", s.db.Put(key, value, nil))
}

func (s *levelDBStore) Delete(key []byte) error {
	return fault.NewIOError("leveldb delete", s.db.Delete(key, nil))
}

func (s *levelDBStore) Write(batch *Batch, sync bool) error {
	trx := new(leveldb.Batch)
	batch.Replay(trx)
	return fault.NewIOError("leveldb write", s.db.Write(trx, &ldb_opt.WriteOptions{Sync: sync}))
}

func (s *levelDBStore) NewIterator(start []byte, limit []byte) Iterator {
	iter := s.db.NewIterator(&ldb_util.Range{
		Start: start, // Start of key range, included in the range
		Limit: limit, // Limit of key range, excluded from the range
	}, nil)
	return levelDBIterator{iter}
}

// wraps iterator errors as fault.IOError
type levelDBIterator struct {
	iterator.Iterator
}

func (i levelDBIterator) Error() error {
	return fault.NewIOError("leveldb iterator", i.Iterator.Error())
}

func (s *levelDBStore) ApproximateSize(start []byte, limit []byte) (uint64, error) {
	sizes, err := s.db.SizeOf([]ldb_util.Range{{Start: start, Limit: limit}})
	if nil != err {
		return 0, fault.NewIOError("leveldb size", err)
	}
	return uint64(sizes.Sum()), nil
}

func (s *levelDBStore) Close() error {
	return fault.NewIOError("leveldb close", s.db.Close())
}
