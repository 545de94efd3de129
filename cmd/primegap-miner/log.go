// Copyright (c) 2025 Shell Reserve developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"os"
	"path/filepath"

	"github.com/jrick/logrotate/rotator"
)

// logRotator writes mining output to a rotating on-disk log file, the same
// jrick/logrotate wiring every btcd-family daemon's log.go uses for its own
// log file.
var logRotator *rotator.Rotator

// maxLogRolls is the number of rolled log files to keep before the oldest
// is discarded.
const maxLogRolls = 3

func initLogRotator(logFile string) error {
	logDir := filepath.Dir(logFile)
	if err := os.MkdirAll(logDir, 0o700); err != nil {
		return err
	}

	r, err := rotator.New(logFile, 10*1024, false, maxLogRolls)
	if err != nil {
		return err
	}
	logRotator = r
	return nil
}

// teeWriter duplicates log output to stdout and the rotator, matching
// btcd's own multi-destination logWriter.
type teeWriter struct{}

func (teeWriter) Write(p []byte) (int, error) {
	os.Stdout.Write(p)
	if logRotator != nil {
		logRotator.Write(p)
	}
	return len(p), nil
}
