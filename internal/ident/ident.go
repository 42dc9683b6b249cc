// Package ident generates record identifiers.
package ident

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
)

// Length is the number of hex characters in a random id.
const Length = 12

// Generator produces identifiers that are unique within one session.
type Generator interface {
	NewID() string
}

// New returns a short random identifier.
func New() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:Length]
}

// Random generates ids with New.
type Random struct{}

// NewID implements Generator.
func (Random) NewID() string {
	return New()
}

// Sequence generates "prefix-N" ids from a counter.
type Sequence struct {
	prefix string
	n      atomic.Uint64
}

// NewSequence creates a counter-based generator.
func NewSequence(prefix string) *Sequence {
	return &Sequence{prefix: prefix}
}

// NewID implements Generator.
func (s *Sequence) NewID() string {
	return fmt.Sprintf("%s-%d", s.prefix, s.n.Add(1))
}
