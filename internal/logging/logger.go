// Copyright (c) 2026 sqldsh
// Licensed under the MIT License. See LICENSE file in the project root for details.

package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

var base = newBase()

func newBase() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.WarnLevel)
	if os.Getenv("SQLDSH_VERBOSE") == "1" {
		l.SetLevel(logrus.DebugLevel)
	}
	return l
}

// GetLogger returns a logger entry scoped to the given module name.
func GetLogger(module string) *logrus.Entry {
	return base.WithField("module", module)
}

// SetVerbose switches the shared logger to debug level.
func SetVerbose(v bool) {
	if v {
		base.SetLevel(logrus.DebugLevel)
	} else {
		base.SetLevel(logrus.WarnLevel)
	}
}
