// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockindex

import (
	"bytes"
	"sync"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/bitmark-inc/chainstate/difficulty"
)

// Node - in-memory block index entry
//
// the predecessor is held by hash and resolved through the Index
type Node struct {
	Hash     chainhash.Hash
	PrevHash chainhash.Hash // zero for a block with no parent

	Height  int32
	Status  uint32
	TxCount uint32
	File    int32
	DataPos uint32
	UndoPos uint32

	Version    int32
	MerkleRoot chainhash.Hash
	Time       time.Time
	Bits       uint32
	Nonce      uint32

	Flags                 uint32
	StakeModifier         []byte
	AccumulatorCheckpoint chainhash.Hash
	SaplingValue          int64
	FinalSaplingRoot      chainhash.Hash
}

// Difficulty - decoded target of the header bits
func (n *Node) Difficulty() (*difficulty.Difficulty, error) {
	return difficulty.New(n.Bits)
}

// InsertFunc - return the node for a hash, creating it if absent
type InsertFunc func(hash chainhash.Hash) *Node

// Index - every known node keyed by block hash
type Index struct {
	sync.RWMutex
	nodes map[chainhash.Hash]*Node
}

// NewIndex - an empty index
func NewIndex() *Index {
	return &Index{
		nodes: make(map[chainhash.Hash]*Node),
	}
}

// Insert - lookup or create the node for hash
func (idx *Index) Insert(hash chainhash.Hash) *Node {
	idx.Lock()
	defer idx.Unlock()

	if n, ok := idx.nodes[hash]; ok {
		return n
	}
	n := &Node{Hash: hash}
	idx.nodes[hash] = n
	return n
}

// Lookup - the node for hash if present
func (idx *Index) Lookup(hash chainhash.Hash) (*Node, bool) {
	idx.RLock()
	defer idx.RUnlock()

	n, ok := idx.nodes[hash]
	return n, ok
}

// Parent - the predecessor of n
func (idx *Index) Parent(n *Node) (*Node, bool) {
	if nil == n || (chainhash.Hash{}) == n.PrevHash {
		return nil, false
	}
	return idx.Lookup(n.PrevHash)
}

// Len - number of nodes
func (idx *Index) Len() int {
	idx.RLock()
	defer idx.RUnlock()
	return len(idx.nodes)
}

// Tip - the highest node, ties go to the lowest hash
func (idx *Index) Tip() *Node {
	idx.RLock()
	defer idx.RUnlock()

	var tip *Node
	for _, n := range idx.nodes {
		if nil == tip || n.Height > tip.Height ||
			(n.Height == tip.Height && bytes.Compare(n.Hash[:], tip.Hash[:]) < 0) {
			tip = n
		}
	}
	return tip
}

// LoadBlockIndex - build an index from every persisted entry
//
// on failure no index is returned
func LoadBlockIndex(store *Store, shutdown <-chan struct{}) (*Index, error) {
	idx := NewIndex()
	if err := store.LoadBlockIndexGuts(idx.Insert, shutdown); nil != err {
		return nil, err
	}
	store.log.Infof("block index: %d entries", idx.Len())
	return idx, nil
}
