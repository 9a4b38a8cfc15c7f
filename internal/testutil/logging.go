// Package testutil holds helpers shared by command tests.
package testutil

import (
	"testing"

	"github.com/go-kit/kit/log"
)

type logger struct {
	t testing.TB
}

// NewLogger returns a go-kit logger that writes through t.Log, so output is
// only shown for failing or verbose tests.
func NewLogger(t testing.TB) log.Logger {
	return logger{t: t}
}

func (t logger) Log(keyvals ...interface{}) error {
	t.t.Helper()
	t.t.Log(keyvals...)
	return nil
}
