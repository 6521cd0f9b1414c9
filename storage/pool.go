// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package storage

import (
	"fmt"
	"reflect"

	"github.com/bitmark-inc/chainstate/fault"
)

// database names, each is a separate engine instance
const (
	DatabaseChainState  = "chainstate"
	DatabaseIndex       = "index"
	DatabaseCheckpoints = "checkpoints"
)

// exported record families
//
// note all must be exported (i.e. initial capital) or initialisation will panic
type pools struct {
	Coins         *PoolHandle `prefix:"C" database:"chainstate" payload:"outpoint"`
	LegacyCoins   *PoolHandle `prefix:"c" database:"chainstate" payload:"hash"`
	BestBlock     *PoolHandle `prefix:"B" database:"chainstate" payload:"none"`
	HeadBlocks    *PoolHandle `prefix:"H" database:"chainstate" payload:"none"`
	BlockFiles    *PoolHandle `prefix:"f" database:"index" payload:"uint32"`
	TxIndex       *PoolHandle `prefix:"t" database:"index" payload:"hash"`
	BlockIndex    *PoolHandle `prefix:"b" database:"index" payload:"hash"`
	Flags         *PoolHandle `prefix:"F" database:"index" payload:"name"`
	Reindex       *PoolHandle `prefix:"R" database:"index" payload:"none"`
	LastBlockFile *PoolHandle `prefix:"l" database:"index" payload:"none"`
	Ints          *PoolHandle `prefix:"I" database:"index" payload:"name"`
	AccChecksums  *PoolHandle `prefix:"A" database:"checkpoints" payload:"checksum"`
	SerialSpends  *PoolHandle `prefix:"s" database:"checkpoints" payload:"hash"`
}

// Pool - the set of exported record families
var Pool pools

// lookups built from Pool
var (
	poolByTag = make(map[Tag]*PoolHandle)
	poolList  []*PoolHandle
)

// payload length by kind, -1 is any non-empty length
var payloadLengths = map[string]int{
	"none":     0,
	"hash":     HashSize,
	"outpoint": OutpointSize,
	"uint32":   Uint32Size,
	"checksum": 2 * Uint32Size,
	"name":     -1,
}

// PoolHandle - describes one record family
type PoolHandle struct {
	name     string
	tag      Tag
	database string
	length   int
	limit    []byte
}

// Element - a binary data item
type Element struct {
	Key   []byte
	Value []byte
}

func init() {
	fault.PanicIfError("storage pool setup", setupPools())
}

func setupPools() error {

	// this will be a struct type
	poolType := reflect.TypeOf(Pool)

	// get write access by using pointer + Elem()
	poolValue := reflect.ValueOf(&Pool).Elem()

	// scan each field
	for i := 0; i < poolType.NumField(); i += 1 {

		fieldInfo := poolType.Field(i)

		prefixTag := fieldInfo.Tag.Get("prefix")
		if 1 != len(prefixTag) {
			return fmt.Errorf("pool: %v has invalid prefix: %q", fieldInfo, prefixTag)
		}
		tag := Tag(prefixTag[0])
		if _, ok := poolByTag[tag]; ok {
			return fmt.Errorf("pool: %v has duplicate prefix: %q", fieldInfo, prefixTag)
		}

		dbName := fieldInfo.Tag.Get("database")
		switch dbName {
		case DatabaseChainState, DatabaseIndex, DatabaseCheckpoints:
		default:
			return fmt.Errorf("pool: %v has invalid database: %q", fieldInfo, dbName)
		}

		payload := fieldInfo.Tag.Get("payload")
		length, ok := payloadLengths[payload]
		if !ok {
			return fmt.Errorf("pool: %v has invalid payload: %q", fieldInfo, payload)
		}

		limit := []byte(nil)
		if tag < 255 {
			limit = []byte{byte(tag) + 1}
		}

		p := &PoolHandle{
			name:     fieldInfo.Name,
			tag:      tag,
			database: dbName,
			length:   length,
			limit:    limit,
		}
		poolValue.Field(i).Set(reflect.ValueOf(p))
		poolByTag[tag] = p
		poolList = append(poolList, p)
	}
	return nil
}

// Pools - every record family in declaration order
func Pools() []*PoolHandle {
	return append([]*PoolHandle{}, poolList...)
}

// PoolForTag - the family selected by a tag
func PoolForTag(tag Tag) (*PoolHandle, bool) {
	p, ok := poolByTag[tag]
	return p, ok
}

// Name - field name of the family
func (p *PoolHandle) Name() string {
	return p.name
}

// Tag - prefix byte of the family
func (p *PoolHandle) Tag() Tag {
	return p.tag
}

// Database - which engine instance holds the family
func (p *PoolHandle) Database() string {
	return p.database
}

// Key - prepend the prefix onto the payload
func (p *PoolHandle) Key(payload []byte) []byte {
	return NewKey(p.tag, payload)
}

// Start - first possible key of the family, included in the range
func (p *PoolHandle) Start() []byte {
	return []byte{byte(p.tag)}
}

// Limit - first key after the family, excluded from the range
func (p *PoolHandle) Limit() []byte {
	return append([]byte{}, p.limit...)
}

func (p *PoolHandle) validPayload(payload []byte) bool {
	if p.length < 0 {
		return len(payload) > 0
	}
	return len(payload) == p.length
}
