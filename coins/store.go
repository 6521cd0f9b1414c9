// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package coins

import (
	"bytes"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/bitmark-inc/logger"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"

	"github.com/bitmark-inc/chainstate/fault"
	"github.com/bitmark-inc/chainstate/storage"
)

// at most [new, old] is ever written
const maxHeadBlocks = 2

const mebibyte = 1.0 / 1048576.0

// Store - the unspent coin set
type Store struct {
	sync.Mutex // serialises writers

	log     *logger.L
	db      storage.Store
	options storage.Options
	rng     *rand.Rand
}

// New - build a coin store over an open database
//
// the store takes ownership of db
func New(db storage.Store, options storage.Options) *Store {
	return &Store{
		log:     logger.New("coins"),
		db:      db,
		options: options.Normalise(),
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Open - open the chainstate database below directory
func Open(backend string, directory string, readOnly bool, options storage.Options) (*Store, error) {
	db, err := storage.Open(backend, directory, storage.DatabaseChainState, readOnly)
	if nil != err {
		return nil, err
	}
	return New(db, options), nil
}

// Close - release the database
func (s *Store) Close() error {
	return s.db.Close()
}

// GetCoin - read one unspent output
func (s *Store) GetCoin(outpoint wire.OutPoint) (*Coin, bool, error) {
	value, found, err := s.db.Get(coinKey(outpoint))
	if nil != err || !found {
		return nil, false, err
	}
	coin, err := UnpackCoin(value)
	if nil != err {
		return nil, false, fmt.Errorf("coin: %s: %w", outpoint, err)
	}
	return coin, true, nil
}

// HaveCoin - check an output is unspent
func (s *Store) HaveCoin(outpoint wire.OutPoint) (bool, error) {
	return s.db.Has(coinKey(outpoint))
}

// BestBlock - hash of the block the coin set matches, zero if unset
func (s *Store) BestBlock() (chainhash.Hash, error) {
	hash := chainhash.Hash{}
	value, found, err := s.db.Get(storage.Pool.BestBlock.Key(nil))
	if nil != err || !found {
		return hash, err
	}
	if chainhash.HashSize != len(value) {
		return hash, fmt.Errorf("best block length: %d: %w", len(value), fault.ErrMalformedValue)
	}
	copy(hash[:], value)
	return hash, nil
}

// HeadBlocks - the in-progress marker [new, old], empty unless a
// commit was interrupted
func (s *Store) HeadBlocks() ([]chainhash.Hash, error) {
	value, found, err := s.db.Get(storage.Pool.HeadBlocks.Key(nil))
	if nil != err || !found {
		return nil, err
	}
	return UnpackHeadBlocks(value)
}

// Commit - write a delta and move the best block to newBest
//
// the delta is drained as it is written. Intermediate batches leave
// the head blocks marker in place so an interrupted commit can be
// detected and repeated with the same arguments
func (s *Store) Commit(delta *Delta, newBest chainhash.Hash) error {
	if nil == delta {
		return fault.ErrInvalidDelta
	}
	if (chainhash.Hash{}) == newBest {
		return fault.ErrNullBestBlock
	}

	s.Lock()
	defer s.Unlock()

	oldTip, err := s.BestBlock()
	if nil != err {
		return err
	}
	if (chainhash.Hash{}) == oldTip {

		// may be in the middle of replaying
		heads, err := s.HeadBlocks()
		if nil != err {
			return err
		}
		if maxHeadBlocks == len(heads) {
			if heads[0] != newBest {
				return fmt.Errorf("marker: %s  requested: %s: %w", heads[0], newBest, fault.ErrHeadBlocksMismatch)
			}
			oldTip = heads[1]
			s.log.Warnf("resuming interrupted commit: %s -> %s", oldTip, newBest)
		}
	}

	bestKey := storage.Pool.BestBlock.Key(nil)
	headKey := storage.Pool.HeadBlocks.Key(nil)

	// first batch marks the transition from oldTip to newBest
	batch := storage.NewBatch(s.db)
	batch.Delete(bestKey)
	batch.Put(headKey, packHashes(newBest, oldTip))

	count := 0
	changed := 0
	for {
		outpoint, entry, ok := delta.Pop()
		if !ok {
			break
		}
		if entry.Dirty() {
			if entry.IsSpent() {
				batch.Delete(coinKey(outpoint))
			} else {
				coin := entry.Coin()
				batch.Put(coinKey(outpoint), coin.Pack())
			}
			changed += 1
		}
		count += 1

		if batch.SizeEstimate() > s.options.BatchSize {
			s.log.Debugf("writing partial batch of %.2f MiB", float64(batch.SizeEstimate())*mebibyte)
			if err := batch.Commit(false); nil != err {
				return err
			}
			if s.options.CrashRatio > 0 && 0 == s.rng.Intn(s.options.CrashRatio) {
				s.log.Critical("simulating a crash")
				s.options.CrashHandler()
			}
		}
	}

	// last batch marks the database consistent with newBest again
	batch.Delete(headKey)
	batch.Put(bestKey, newBest[:])

	s.log.Debugf("writing final batch of %.2f MiB", float64(batch.SizeEstimate())*mebibyte)
	if err := batch.Commit(s.options.Sync); nil != err {
		return err
	}
	s.log.Infof("committed %d changed transaction outputs (out of %d) to coin database", changed, count)
	return nil
}

// EstimateSize - approximate bytes used by coin records
func (s *Store) EstimateSize() (uint64, error) {
	return s.db.ApproximateSize(storage.Pool.Coins.Start(), storage.Pool.Coins.Limit())
}

// CompactSize count ++ hashes
func packHashes(hashes ...chainhash.Hash) []byte {
	buffer := &bytes.Buffer{}
	_ = wire.WriteVarInt(buffer, 0, uint64(len(hashes)))
	for _, h := range hashes {
		buffer.Write(h[:])
	}
	return buffer.Bytes()
}

// UnpackHeadBlocks - decode a head blocks marker value
func UnpackHeadBlocks(value []byte) ([]chainhash.Hash, error) {
	r := bytes.NewReader(value)
	count, err := wire.ReadVarInt(r, 0)
	if nil != err {
		return nil, fmt.Errorf("hash count: %v: %w", err, fault.ErrMalformedValue)
	}
	if count > uint64(r.Len()) || uint64(r.Len()) != count*chainhash.HashSize {
		return nil, fmt.Errorf("hash count: %d  bytes: %d: %w", count, r.Len(), fault.ErrMalformedValue)
	}
	hashes := make([]chainhash.Hash, count)
	for i := range hashes {
		_, _ = r.Read(hashes[i][:])
	}
	return hashes, nil
}
