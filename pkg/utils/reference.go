package utils

import (
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// ReferenceGenerator produces unique settlement references. ULIDs are
// time-sortable, which keeps back-office listings in submission order
// without an extra sort column.
type ReferenceGenerator struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

func NewReferenceGenerator() *ReferenceGenerator {
	return &ReferenceGenerator{
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

// Generate returns a prefixed reference, e.g. STL-01J9ZK2Q4R5S6T7V8W9X0Y1Z2A.
func (g *ReferenceGenerator) Generate(prefix string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	id, err := ulid.New(ulid.Timestamp(time.Now()), g.entropy)
	if err != nil {
		return "", fmt.Errorf("generate ulid: %w", err)
	}

	if prefix == "" {
		return id.String(), nil
	}
	return fmt.Sprintf("%s-%s", prefix, id.String()), nil
}
