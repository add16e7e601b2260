// Package logging wires up the shared logrus logger used across kissa's
// components. The CLI surface gets human text on stderr; the agent surface
// always gets JSON on stderr so that stdout stays reserved for protocol
// frames (see cmd/kissa-agent).
package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Surface distinguishes which front-end is logging, since each wants a
// different formatter.
type Surface int

const (
	CLI Surface = iota
	Agent
)

// New builds a logrus.Logger configured for the given surface and verbosity.
func New(surface Surface, verbose bool, out io.Writer) *logrus.Logger {
	logger := logrus.New()
	if out == nil {
		out = os.Stderr
	}
	logger.SetOutput(out)

	switch surface {
	case Agent:
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}
	return logger
}

// WithOp returns a field logger stamped with component/op for a single
// unit of work, matching the {component, repo, op, duration_ms} field
// convention used throughout kissa.
func WithOp(logger *logrus.Logger, component, op string) *logrus.Entry {
	return logger.WithFields(logrus.Fields{"component": component, "op": op})
}
