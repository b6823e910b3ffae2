// Package orgcode resolves caller-presented API codes to organisation ids and
// enforces that only the organisation that created a record may mutate it.
package orgcode

import (
	dErrors "wastetrack/pkg/domain-errors"
)

// Validator holds the static apiCode -> orgId table. The map is copied at
// construction and never mutated, so lookups need no locking.
type Validator struct {
	codes map[string]string
}

func New(codes map[string]string) *Validator {
	copied := make(map[string]string, len(codes))
	for apiCode, orgID := range codes {
		copied[apiCode] = orgID
	}
	return &Validator{codes: copied}
}

// Resolve maps an API code to its organisation id. Resolution against an
// empty table or an unknown code fails the attempted mutation; these are never
// retried.
func (v *Validator) Resolve(apiCode string) (string, error) {
	if len(v.codes) == 0 {
		return "", dErrors.New(dErrors.CodeBadRequest, "no API codes are configured")
	}
	orgID, ok := v.codes[apiCode]
	if !ok {
		return "", dErrors.New(dErrors.CodeBadRequest, "the API Code supplied is invalid")
	}
	return orgID, nil
}

// AssertOwnership verifies the caller's resolved organisation matches the one
// recorded at creation time. Runs inside the mutation transaction so no
// partial write survives an ownership failure.
func (v *Validator) AssertOwnership(recordOrgID, callerOrgID string) error {
	if recordOrgID != callerOrgID {
		return dErrors.New(dErrors.CodeForbidden, "organisation does not own this waste input")
	}
	return nil
}
