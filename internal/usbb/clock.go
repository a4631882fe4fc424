package usbb

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Clock abstracts time retrieval so business logic is deterministic in tests.
type Clock interface {
	Now() time.Time
}

// RealClock returns the actual current time.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// IDGenerator abstracts unique ID generation so tests are deterministic.
type IDGenerator interface {
	New() string
}

// HexIDGenerator produces random 128-bit ids as 32 lowercase hex characters,
// the form device marker files are recognised by.
type HexIDGenerator struct{}

func (HexIDGenerator) New() string { return strings.ReplaceAll(uuid.NewString(), "-", "") }
