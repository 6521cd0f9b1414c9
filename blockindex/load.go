// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockindex

import (
	"fmt"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"golang.org/x/time/rate"

	"github.com/bitmark-inc/chainstate/difficulty"
	"github.com/bitmark-inc/chainstate/fault"
	"github.com/bitmark-inc/chainstate/storage"
)

const progressInterval = 10 * time.Second

// LoadBlockIndexGuts - pass every persisted entry to insert
//
// each entry and its predecessor are obtained through insert and the
// entry's fields copied onto the node. Entries below the proof-of-stake
// activation height must carry valid proof-of-work
func (s *Store) LoadBlockIndexGuts(insert InsertFunc, shutdown <-chan struct{}) error {
	pool := storage.Pool.BlockIndex
	iter := s.db.NewIterator(pool.Start(), pool.Limit())
	defer iter.Release()

	powLimit := s.params.PowLimit()
	limiter := rate.NewLimiter(rate.Every(progressInterval), 1)
	count := 0

	for iter.Next() {
		if storage.Interrupted(shutdown) {
			return fault.ErrInterrupted
		}

		key, err := storage.DecodeKey(iter.Key())
		if nil != err {
			return err
		}
		entry, err := UnpackDiskBlockIndex(iter.Value())
		if nil != err {
			s.log.Errorf("block index: %x  error: %s", key.Payload, err)
			return fmt.Errorf("block index: %x: %w", key.Payload, err)
		}

		hash := entry.BlockHash()
		node := insert(hash)
		if (chainhash.Hash{}) != entry.Header.PrevBlock {
			insert(entry.Header.PrevBlock)
		}
		copyEntry(node, entry)

		if !s.params.ProofOfStakeActive(node.Height) {
			if !difficulty.CheckProofOfWork(hash, node.Bits, powLimit) {
				s.log.Criticalf("proof-of-work check failed: block: %s  height: %d  bits: 0x%08x", hash, node.Height, node.Bits)
				return fmt.Errorf("block: %s  height: %d: %w", hash, node.Height, fault.ErrCorruptIndex)
			}
		}

		count += 1
		if limiter.Allow() {
			s.log.Infof("loading block index: %d entries", count)
		}
	}
	return iter.Error()
}

func copyEntry(node *Node, entry *DiskBlockIndex) {
	node.PrevHash = entry.Header.PrevBlock
	node.Height = entry.Height
	node.Status = entry.Status
	node.TxCount = entry.TxCount
	node.File = entry.File
	node.DataPos = entry.DataPos
	node.UndoPos = entry.UndoPos

	node.Version = entry.Header.Version
	node.MerkleRoot = entry.Header.MerkleRoot
	node.Time = entry.Header.Timestamp
	node.Bits = entry.Header.Bits
	node.Nonce = entry.Header.Nonce

	node.Flags = entry.Flags
	node.StakeModifier = entry.StakeModifier
	node.AccumulatorCheckpoint = entry.AccumulatorCheckpoint
	node.SaplingValue = entry.SaplingValue
	node.FinalSaplingRoot = entry.FinalSaplingRoot
}
