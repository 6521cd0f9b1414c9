// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package coins

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	"github.com/bitmark-inc/chainstate/fault"
	"github.com/bitmark-inc/chainstate/util"
)

// compressed script types 0..5 are followed by a fixed payload,
// any other script is stored as VARINT(length + specialScripts)
const specialScripts = 6

// script forms with a compact encoding
const (
	scriptPubKeyHash       = 0x00
	scriptScriptHash       = 0x01
	scriptCompressedEven   = 0x02
	scriptCompressedOdd    = 0x03
	scriptUncompressedEven = 0x04
	scriptUncompressedOdd  = 0x05
)

// IsUnspendable - script can never be satisfied, so the output is
// never stored
func IsUnspendable(script []byte) bool {
	return (len(script) > 0 && txscript.OP_RETURN == script[0]) || len(script) > txscript.MaxScriptSize
}

// CompressAmount - shrink amounts that are round in decimal
func CompressAmount(n uint64) uint64 {
	if 0 == n {
		return 0
	}
	e := uint64(0)
	for 0 == n%10 && e < 9 {
		n /= 10
		e += 1
	}
	if e < 9 {
		d := n % 10
		n /= 10
		return 1 + (n*9+d-1)*10 + e
	}
	return 1 + (n-1)*10 + 9
}

// DecompressAmount - inverse of CompressAmount
func DecompressAmount(x uint64) uint64 {
	if 0 == x {
		return 0
	}
	x -= 1
	e := x % 10
	x /= 10
	n := uint64(0)
	if e < 9 {
		d := (x % 9) + 1
		x /= 9
		n = x*10 + d
	} else {
		n = x + 1
	}
	for ; e > 0; e -= 1 {
		n *= 10
	}
	return n
}

// compact form of the standard script templates, nil if none applies
func compressScript(script []byte) []byte {
	switch {
	case 25 == len(script) &&
		txscript.OP_DUP == script[0] &&
		txscript.OP_HASH160 == script[1] &&
		txscript.OP_DATA_20 == script[2] &&
		txscript.OP_EQUALVERIFY == script[23] &&
		txscript.OP_CHECKSIG == script[24]:
		return append([]byte{scriptPubKeyHash}, script[3:23]...)

	case 23 == len(script) &&
		txscript.OP_HASH160 == script[0] &&
		txscript.OP_DATA_20 == script[1] &&
		txscript.OP_EQUAL == script[22]:
		return append([]byte{scriptScriptHash}, script[2:22]...)

	case 35 == len(script) &&
		txscript.OP_DATA_33 == script[0] &&
		txscript.OP_CHECKSIG == script[34] &&
		(0x02 == script[1] || 0x03 == script[1]):
		return append([]byte{}, script[1:34]...)

	case 67 == len(script) &&
		txscript.OP_DATA_65 == script[0] &&
		txscript.OP_CHECKSIG == script[66] &&
		0x04 == script[1]:
		if _, err := btcec.ParsePubKey(script[1:66]); nil != err {
			return nil
		}
		return append([]byte{scriptUncompressedEven | (script[65] & 0x01)}, script[2:34]...)
	}
	return nil
}

// payload bytes that follow a special script type
func specialScriptSize(kind uint64) int {
	switch kind {
	case scriptPubKeyHash, scriptScriptHash:
		return 20
	default:
		return 32
	}
}

func decompressScript(kind uint64, payload []byte) ([]byte, error) {
	switch kind {
	case scriptPubKeyHash:
		script := []byte{txscript.OP_DUP, txscript.OP_HASH160, txscript.OP_DATA_20}
		script = append(script, payload...)
		return append(script, txscript.OP_EQUALVERIFY, txscript.OP_CHECKSIG), nil

	case scriptScriptHash:
		script := []byte{txscript.OP_HASH160, txscript.OP_DATA_20}
		script = append(script, payload...)
		return append(script, txscript.OP_EQUAL), nil

	case scriptCompressedEven, scriptCompressedOdd:
		script := []byte{txscript.OP_DATA_33, byte(kind)}
		script = append(script, payload...)
		return append(script, txscript.OP_CHECKSIG), nil

	case scriptUncompressedEven, scriptUncompressedOdd:
		compressed := append([]byte{byte(kind - 2)}, payload...)
		key, err := btcec.ParsePubKey(compressed)
		if nil != err {
			return nil, fmt.Errorf("public key: %v: %w", err, fault.ErrMalformedValue)
		}
		script := []byte{txscript.OP_DATA_65}
		script = append(script, key.SerializeUncompressed()...)
		return append(script, txscript.OP_CHECKSIG), nil
	}
	return nil, fault.ErrMalformedValue
}

// append the compressed form of a transaction output
func packTxOut(buffer []byte, out *wire.TxOut) []byte {
	buffer = util.AppendVarint64(buffer, CompressAmount(uint64(out.Value)))

	if compressed := compressScript(out.PkScript); nil != compressed {
		return append(buffer, compressed...)
	}
	buffer = util.AppendVarint64(buffer, uint64(len(out.PkScript)+specialScripts))
	return append(buffer, out.PkScript...)
}

// decode a compressed transaction output starting at buffer[n:]
//
// returns the output and the offset just past it
func unpackTxOut(buffer []byte, n int) (*wire.TxOut, int, error) {
	amount, n, err := readVarint(buffer, n)
	if nil != err {
		return nil, n, err
	}

	size, n, err := readVarint(buffer, n)
	if nil != err {
		return nil, n, err
	}

	out := &wire.TxOut{
		Value: int64(DecompressAmount(amount)),
	}

	if size < specialScripts {
		length := specialScriptSize(size)
		if len(buffer) < n+length {
			return nil, n, fault.ErrTruncatedRecord
		}
		out.PkScript, err = decompressScript(size, buffer[n:n+length])
		if nil != err {
			return nil, n, err
		}
		return out, n + length, nil
	}

	size -= specialScripts
	if uint64(len(buffer)-n) < size {
		return nil, n, fault.ErrTruncatedRecord
	}
	if size > uint64(txscript.MaxScriptSize) {

		// never spendable so only a marker is kept
		out.PkScript = []byte{txscript.OP_RETURN}
	} else {
		out.PkScript = append([]byte{}, buffer[n:n+int(size)]...)
	}
	return out, n + int(size), nil
}

// read one VARINT at buffer[n:]
func readVarint(buffer []byte, n int) (uint64, int, error) {
	if n < 0 || n >= len(buffer) {
		return 0, n, fault.ErrTruncatedRecord
	}
	value, count := util.FromVarint64(buffer[n:])
	if 0 == count {
		return 0, n, fault.ErrTruncatedRecord
	}
	return value, n + count, nil
}
