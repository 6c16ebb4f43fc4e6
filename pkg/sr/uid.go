package sr

import (
	"math/big"

	"github.com/google/uuid"
)

// UIDGenerator produces fresh DICOM UIDs
type UIDGenerator interface {
	NewUID() string
}

// UUIDGenerator derives UIDs under the 2.25 root from random UUIDs, so they
// are unique without any registry or cross-process coordination.
type UUIDGenerator struct{}

// NewUID returns "2.25." followed by the decimal form of a random UUID
func (UUIDGenerator) NewUID() string {
	return NewUID()
}

// NewUID returns a fresh 2.25-rooted UID
func NewUID() string {
	u := uuid.New()
	n := new(big.Int).SetBytes(u[:])
	return "2.25." + n.String()
}
