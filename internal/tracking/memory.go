package tracking

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// MemoryIssuer mints uuid-derived tracking ids locally. Used by tests and
// local runs where the waste-tracking service is not available.
type MemoryIssuer struct{}

func NewMemoryIssuer() *MemoryIssuer {
	return &MemoryIssuer{}
}

func (i *MemoryIssuer) Next(_ context.Context) (string, error) {
	return "WT-" + strings.ToUpper(uuid.NewString()[:8]), nil
}
