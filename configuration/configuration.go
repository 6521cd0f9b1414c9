// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package configuration

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/chainstate/chain"
	"github.com/bitmark-inc/chainstate/fault"
	"github.com/bitmark-inc/chainstate/storage"
	"github.com/bitmark-inc/chainstate/util"
)

// basic defaults (directories and files are relative to the "DataDirectory" from Configuration file)
const (
	defaultDataDirectory = "" // this will error; use "." for the same directory as the config file

	defaultDatabaseDirectory = "data"
	defaultBackend           = storage.BackendLevelDB

	defaultLogDirectory = "log"
	defaultLogFile      = "chainstate.log"
	defaultLogCount     = 10          //  number of log files retained
	defaultLogSize      = 1024 * 1024 // rotate when <logfile> exceeds this size
)

// to hold log levels
type LoglevelMap map[string]string

// path expanded or calculated defaults
var (
	defaultLogLevels = LoglevelMap{
		"main":            "info",
		logger.DefaultTag: "critical",
	}
)

// DatabaseType - location and write tuning of the databases
type DatabaseType struct {
	Directory  string `gluamapper:"directory" json:"directory"`
	Backend    string `gluamapper:"backend" json:"backend"`
	BatchSize  int    `gluamapper:"batch_size" json:"batch_size"`
	CrashRatio int    `gluamapper:"crash_ratio" json:"crash_ratio"`
	Sync       bool   `gluamapper:"sync" json:"sync"`
}

// Configuration - everything read from the configuration file
type Configuration struct {
	DataDirectory string               `gluamapper:"data_directory" json:"data_directory"`
	Chain         string               `gluamapper:"chain" json:"chain"`
	Database      DatabaseType         `gluamapper:"database" json:"database"`
	Logging       logger.Configuration `gluamapper:"logging" json:"logging"`
}

// GetConfiguration - read, decode and verify the configuration
func GetConfiguration(configurationFileName string) (*Configuration, error) {

	configurationFileName, err := filepath.Abs(filepath.Clean(configurationFileName))
	if nil != err {
		return nil, err
	}

	// absolute path to the main directory
	dataDirectory, _ := filepath.Split(configurationFileName)

	defaults := storage.DefaultOptions()

	// the parser merges into the map so it must not be shared
	levels := make(map[string]string, len(defaultLogLevels))
	for k, v := range defaultLogLevels {
		levels[k] = v
	}

	options := &Configuration{
		DataDirectory: defaultDataDirectory,
		Chain:         chain.Main,

		Database: DatabaseType{
			Directory:  defaultDatabaseDirectory,
			Backend:    defaultBackend,
			BatchSize:  defaults.BatchSize,
			CrashRatio: defaults.CrashRatio,
			Sync:       defaults.Sync,
		},

		Logging: logger.Configuration{
			Directory: defaultLogDirectory,
			File:      defaultLogFile,
			Size:      defaultLogSize,
			Count:     defaultLogCount,
			Levels:    levels,
		},
	}

	if err := ParseConfigurationFile(configurationFileName, options); err != nil {
		return nil, err
	}

	options.Chain = strings.ToLower(options.Chain)
	if !chain.Valid(options.Chain) {
		return nil, fmt.Errorf("chain: %q: %w", options.Chain, fault.ErrInvalidChain)
	}

	options.Database.Backend = strings.ToLower(options.Database.Backend)
	switch options.Database.Backend {
	case storage.BackendLevelDB, storage.BackendPebble:
	default:
		return nil, fmt.Errorf("database backend: %q: %w", options.Database.Backend, fault.ErrInvalidBackend)
	}

	if options.Database.BatchSize <= 0 {
		return nil, fmt.Errorf("database batch size: %d must be positive", options.Database.BatchSize)
	}
	if options.Database.CrashRatio < 0 {
		return nil, fmt.Errorf("database crash ratio: %d must not be negative", options.Database.CrashRatio)
	}

	// ensure absolute data directory
	if "" == options.DataDirectory || "~" == options.DataDirectory {
		return nil, fmt.Errorf("path: %q is not a valid directory", options.DataDirectory)
	} else if "." == options.DataDirectory {
		options.DataDirectory = dataDirectory // same directory as the configuration file
	} else {
		options.DataDirectory = util.EnsureAbsolute(dataDirectory, options.DataDirectory)
	}

	// this directory must exist - i.e. must be created prior to running
	if fileInfo, err := os.Stat(options.DataDirectory); nil != err {
		return nil, err
	} else if !fileInfo.IsDir() {
		return nil, fmt.Errorf("path: %q is not a directory", options.DataDirectory)
	}

	// the log file must be a plain name
	switch filepath.Dir(options.Logging.File) {
	case "", ".":
	default:
		return nil, fmt.Errorf("files: %q is not plain name", options.Logging.File)
	}

	// make absolute and create directories if they do not already exist
	for _, d := range []*string{
		&options.Database.Directory,
		&options.Logging.Directory,
	} {
		*d = util.EnsureAbsolute(options.DataDirectory, *d)
		if err := os.MkdirAll(*d, 0700); nil != err {
			return nil, err
		}
	}

	// done
	return options, nil
}

// StorageOptions - write tuning for the stores
func (c *Configuration) StorageOptions() storage.Options {
	return storage.Options{
		BatchSize:  c.Database.BatchSize,
		CrashRatio: c.Database.CrashRatio,
		Sync:       c.Database.Sync,
	}.Normalise()
}

// ChainParams - parameters of the configured chain
func (c *Configuration) ChainParams() (*chain.Params, error) {
	return chain.ParamsFor(c.Chain)
}
