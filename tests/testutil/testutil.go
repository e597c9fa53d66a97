// Package testutil holds the doubles shared by the package tests: sqlmock and
// SQLite databases, gin contexts carrying a caller, an event recorder and
// polling assertions for asynchronous delivery.
package testutil

import (
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pharmanet/backend/internal/domain/identity"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var seedNamespace = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

// NewTestUUID derives a stable id from seed
func NewTestUUID(seed string) uuid.UUID {
	return uuid.NewSHA1(seedNamespace, []byte(seed))
}

func TestBuyer() identity.Caller {
	return identity.NewCaller(NewTestUUID("test-buyer"), identity.RoleBuyer)
}

func TestSeller() identity.Caller {
	return identity.NewCaller(NewTestUUID("test-seller"), identity.RoleSeller)
}

// RequireEventually polls condition every interval and fails the test if it
// is still false after timeout
func RequireEventually(t *testing.T, condition func() bool, timeout, interval time.Duration, msgAndArgs ...any) {
	t.Helper()
	for deadline := time.Now().Add(timeout); time.Now().Before(deadline); time.Sleep(interval) {
		if condition() {
			return
		}
	}
	require.Fail(t, "condition not met within "+timeout.String(), msgAndArgs...)
}

// AssertNever fails as soon as condition holds during window
func AssertNever(t *testing.T, condition func() bool, window, interval time.Duration, msgAndArgs ...any) {
	t.Helper()
	for deadline := time.Now().Add(window); time.Now().Before(deadline); time.Sleep(interval) {
		if condition() {
			require.Fail(t, "condition became true", msgAndArgs...)
		}
	}
}
