// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package fault

import (
	"errors"
	"fmt"
)

// GenericError - error base
type GenericError string

// to allow for different classes of errors
type ExistsError GenericError
type InvalidError GenericError
type LengthError GenericError
type NotFoundError GenericError
type ProcessError GenericError
type RecordError GenericError

// common errors - keep in alphabetic order
var (
	ErrAlreadyInitialised   = ExistsError("already initialised")
	ErrCorruptIndex         = RecordError("block index failed proof-of-work check")
	ErrHeadBlocksMismatch   = InvalidError("head blocks marker does not name the requested best block")
	ErrInterrupted          = ProcessError("operation interrupted by shutdown")
	ErrInvalidBackend       = InvalidError("invalid database backend")
	ErrInvalidChain         = InvalidError("invalid chain")
	ErrInvalidConfiguration = InvalidError("configuration file must return a table")
	ErrInvalidCount         = InvalidError("invalid count")
	ErrInvalidCursor        = InvalidError("invalid cursor")
	ErrInvalidDelta         = InvalidError("invalid delta")
	ErrInvalidDifficulty    = InvalidError("invalid difficulty")
	ErrInvalidFileNumber    = InvalidError("invalid block file number")
	ErrInvalidLoggerChannel = InvalidError("invalid logger channel")
	ErrInvalidName          = InvalidError("invalid record name")
	ErrInvalidStructPointer = InvalidError("invalid struct pointer")
	ErrMalformedKey         = RecordError("malformed key")
	ErrMalformedValue       = RecordError("malformed value")
	ErrNullBestBlock        = InvalidError("best block hash must not be zero")
	ErrTruncatedRecord      = LengthError("truncated record")
)

// the error interface base method
func (e GenericError) Error() string { return string(e) }

// the error interface methods
func (e ExistsError) Error() string   { return string(e) }
func (e InvalidError) Error() string  { return string(e) }
func (e LengthError) Error() string   { return string(e) }
func (e NotFoundError) Error() string { return string(e) }
func (e ProcessError) Error() string  { return string(e) }
func (e RecordError) Error() string   { return string(e) }

// determine the class of an error
func IsErrExists(e error) bool   { var t ExistsError; return errors.As(e, &t) }
func IsErrInvalid(e error) bool  { var t InvalidError; return errors.As(e, &t) }
func IsErrLength(e error) bool   { var t LengthError; return errors.As(e, &t) }
func IsErrNotFound(e error) bool { var t NotFoundError; return errors.As(e, &t) }
func IsErrProcess(e error) bool  { var t ProcessError; return errors.As(e, &t) }
func IsErrRecord(e error) bool   { var t RecordError; return errors.As(e, &t) }

// IOError - a failure reported by the underlying key-value engine
//
// the on-disk state may be inconsistent after one of these so it is
// never swallowed
type IOError struct {
	Op  string
	Err error
}

// NewIOError - wrap an engine error, nil stays nil
func NewIOError(op string, err error) error {
	if nil == err {
		return nil
	}
	return &IOError{Op: op, Err: err}
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// IsErrIO - determine if an error came from the engine
func IsErrIO(e error) bool {
	var t *IOError
	return errors.As(e, &t)
}

// IsErrStore - the umbrella class for commit, upgrade and load failures:
// engine errors, undecodable records and a corrupt block index
func IsErrStore(e error) bool {
	return IsErrIO(e) || IsErrRecord(e) || IsErrLength(e)
}
