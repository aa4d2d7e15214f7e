// Package logging holds the shared logrus logger. Library packages derive
// prefixed entries from it; the CLI configures level, output and formatter.
package logging

import (
	"io"

	"github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

var root = newRoot()

func newRoot() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.WarnLevel)
	return l
}

// Root returns the process-wide logger.
func Root() *logrus.Logger { return root }

// For returns an entry tagged with the given component prefix.
func For(prefix string) *logrus.Entry {
	return root.WithField("prefix", prefix)
}

// Configure sets the level and installs the prefixed text formatter.
func Configure(w io.Writer, level logrus.Level) {
	root.SetOutput(w)
	root.SetLevel(level)
	root.SetFormatter(&prefixed.TextFormatter{
		DisableTimestamp: true,
		ForceFormatting:  true,
	})
}

// Level picks the log level from the CLI verbosity flags.
func Level(verbose, quiet bool) logrus.Level {
	switch {
	case verbose:
		return logrus.DebugLevel
	case quiet:
		return logrus.WarnLevel
	default:
		return logrus.InfoLevel
	}
}
