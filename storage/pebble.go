// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package storage

import (
	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"

	"github.com/bitmark-inc/chainstate/fault"
)

type pebbleStore struct {
	db *pebble.DB
}

// OpenPebble - open (or create) a pebble database
func OpenPebble(name string, readOnly bool) (Store, error) {
	opt := &pebble.Options{
		ErrorIfNotExists: readOnly,
		ReadOnly:         readOnly,
	}
	db, err := pebble.Open(name, opt)
	if nil != err {
		return nil, fault.NewIOError("pebble open", err)
	}
	return &pebbleStore{db: db}, nil
}

// NewPebbleMemory - a pebble database on an in-memory filesystem
func NewPebbleMemory() (Store, error) {
	db, err := pebble.Open("", &pebble.Options{
		FS: vfs.NewMem(),
	})
	if nil != err {
		return nil, fault.NewIOError("pebble open memory", err)
	}
	return &pebbleStore{db: db}, nil
}

func (s *pebbleStore) Get(key []byte) ([]byte, bool, error) {
	data, closer, err := s.db.Get(key)
	if pebble.ErrNotFound == err {
		return nil, false, nil
	}
	if nil != err {
		return nil, false, fault.NewIOError("pebble get", err)
	}
	value := make([]byte, len(data))
	copy(value, data)
	if err := closer.Close(); nil != err {
		return nil, false, fault.NewIOError("pebble get", err)
	}
	return value, true, nil
}

func (s *pebbleStore) Has(key []byte) (bool, error) {
	_, closer, err := s.db.Get(key)
	if pebble.ErrNotFound == err {
		return false, nil
	}
	if nil != err {
		return false, fault.NewIOError("pebble has", err)
	}
	return true, fault.NewIOError("pebble has", closer.Close())
}

func (s *pebbleStore) Put(key []byte, value []byte) error {
	return fault.NewIOError("pebble put", s.db.Set(key, value, pebble.NoSync))
}

func (s *pebbleStore) Delete(key []byte) error {
	return fault.NewIOError("pebble delete", s.db.Delete(key, pebble.NoSync))
}

// collects the first error from a pebble batch
type pebbleWriter struct {
	b   *pebble.Batch
	err error
}

func (w *pebbleWriter) Put(key []byte, value []byte) {
	if nil == w.err {
		w.err = w.b.Set(key, value, nil)
	}
}

func (w *pebbleWriter) Delete(key []byte) {
	if nil == w.err {
		w.err = w.b.Delete(key, nil)
	}
}

func (s *pebbleStore) Write(batch *Batch, sync bool) error {
	w := &pebbleWriter{b: s.db.NewBatch()}
	defer w.b.Close()

	batch.Replay(w)
	if nil != w.err {
		return fault.NewIOError("pebble batch", w.err)
	}

	opt := pebble.NoSync
	if sync {
		opt = pebble.Sync
	}
	return fault.NewIOError("pebble write", w.b.Commit(opt))
}

func (s *pebbleStore) NewIterator(start []byte, limit []byte) Iterator {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: start,
		UpperBound: limit,
	})
	return &pebbleIterator{iter: iter, err: err}
}

func (s *pebbleStore) ApproximateSize(start []byte, limit []byte) (uint64, error) {
	if nil == limit {
		limit = []byte{0xff, 0xff, 0xff, 0xff}
	}
	size, err := s.db.EstimateDiskUsage(start, limit)
	if nil != err {
		return 0, fault.NewIOError("pebble size", err)
	}
	return size, nil
}

func (s *pebbleStore) Close() error {
	return fault.NewIOError("pebble close", s.db.Close())
}

// adapts a pebble iterator to the unpositioned-start contract
type pebbleIterator struct {
	iter       *pebble.Iterator
	err        error
	positioned bool
	released   bool
}

func (i *pebbleIterator) Seek(key []byte) bool {
	if nil == i.iter || i.released {
		return false
	}
	i.positioned = true
	return i.iter.SeekGE(key)
}

func (i *pebbleIterator) Next() bool {
	if nil == i.iter || i.released {
		return false
	}
	if !i.positioned {
		i.positioned = true
		return i.iter.First()
	}
	return i.iter.Next()
}

func (i *pebbleIterator) Valid() bool {
	return nil != i.iter && !i.released && i.positioned && i.iter.Valid()
}

func (i *pebbleIterator) Key() []byte {
	if !i.Valid() {
		return nil
	}
	return i.iter.Key()
}

func (i *pebbleIterator) Value() []byte {
	if !i.Valid() {
		return nil
	}
	return i.iter.Value()
}

func (i *pebbleIterator) Error() error {
	if nil != i.err {
		return fault.NewIOError("pebble iterator", i.err)
	}
	if nil == i.iter || i.released {
		return nil
	}
	return fault.NewIOError("pebble iterator", i.iter.Error())
}

func (i *pebbleIterator) Release() {
	if nil != i.iter && !i.released {
		if err := i.iter.Close(); nil != err && nil == i.err {
			i.err = err
		}
		i.released = true
	}
}
