// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package util

// Varint64MaximumBytes - maximum possible number of bytes in Varint64
const Varint64MaximumBytes = 10

// ToVarint64 - convert a 64 bit unsigned integer to Varint64
//
// this is the record value varint of the chainstate database: most
// significant group first, every byte except the last has the 0x80
// extension bit set and each extension implies an extra +1 so that
// every value has exactly one encoding
//
// examples:
//   0x7f   -> 7f
//   0x80   -> 80 00
//   0x1234 -> a3 34
func ToVarint64(value uint64) []byte {
	var tmp [Varint64MaximumBytes]byte
	n := 0
	for {
		ext := byte(0x80)
		if 0 == n {
			ext = 0x00
		}
		tmp[n] = byte(value&0x7f) | ext
		if value <= 0x7f {
			break
		}
		value = (value >> 7) - 1
		n += 1
	}

	result := make([]byte, 0, n+1)
	for i := n; i >= 0; i -= 1 {
		result = append(result, tmp[i])
	}
	return result
}

// AppendVarint64 - append the Varint64 form of value to buffer
func AppendVarint64(buffer []byte, value uint64) []byte {
	return append(buffer, ToVarint64(value)...)
}

// FromVarint64 - convert an array of up to Varint64MaximumBytes to a uint64
//
// also return the number of bytes used as second value
// returns 0, 0 if varint64 buffer is truncated or the value overflows
func FromVarint64(buffer []byte) (uint64, int) {
	result := uint64(0)

	for count := 0; count < len(buffer) && count < Varint64MaximumBytes; count += 1 {
		currByte := buffer[count]
		if result > (^uint64(0) >> 7) {
			return 0, 0
		}
		result = (result << 7) | uint64(currByte&0x7f)
		if 0 == currByte&0x80 {
			return result, count + 1
		}
		if ^uint64(0) == result {
			return 0, 0
		}
		result += 1
	}
	return 0, 0
}
