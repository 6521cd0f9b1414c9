// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package storage - maintain the on-disk data store
//
// maintain separate families of records in key->value form over an
// ordered engine (LevelDB or pebble)
//
// Each family is defined by a prefix byte that is obtained from the
// prefix tag in the struct defining the available families.
//
//
// Notes:
// 1. each separate family has a single byte prefix
// 2. ++           = concatenation of byte data
// 3. hash         = 32 byte sha256d in storage byte order
// 4. index        = big endian uint32 (4 bytes)
// 5. VARINT       = msb first base 128 with +1 per continuation byte
// 6. *others*     = byte values of various length
//
// Chain state (database "chainstate"):
//
//   C ++ txId ++ index         - unspent output
//                                data: VARINT(height*4 + coinbase + 2*coinstake) ++ compressed txout
//   c ++ txId                  - legacy per-transaction coins (upgrade only)
//   B                          - best block
//                                data: hash
//   H                          - head blocks, only present during a commit
//                                data: count ++ [new hash, old hash]
//
// Block index (database "index"):
//
//   b ++ hash                  - block index entry
//   f ++ index                 - block file info
//   l                          - last block file
//                                data: little endian int32
//   t ++ txId                  - transaction position
//   F ++ name                  - named flag: '1' or '0'
//   R                          - reindexing in progress
//   I ++ name                  - named integer: little endian int32
//
// Checkpoints (database "checkpoints"):
//
//   A ++ checksum ++ denom     - accumulator checksum
//                                data: little endian int32 height
//   s ++ hash(serial)          - spent serial
//                                data: txId
package storage
