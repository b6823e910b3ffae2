package orgcode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "wastetrack/pkg/domain-errors"
)

func TestResolve(t *testing.T) {
	v := New(map[string]string{
		"25b14080-5e77-4f91-9957-2482a0cb8775": "org-1",
		"bc05d1ce-5a80-4624-b2ae-e7227c8c6c41": "org-2",
	})

	t.Run("known code resolves to its org", func(t *testing.T) {
		orgID, err := v.Resolve("25b14080-5e77-4f91-9957-2482a0cb8775")
		require.NoError(t, err)
		assert.Equal(t, "org-1", orgID)
	})

	t.Run("unknown code is a bad request", func(t *testing.T) {
		_, err := v.Resolve("not-a-code")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	t.Run("empty table rejects every code", func(t *testing.T) {
		empty := New(nil)
		_, err := empty.Resolve("25b14080-5e77-4f91-9957-2482a0cb8775")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
	})
}

func TestAssertOwnership(t *testing.T) {
	v := New(nil)

	assert.NoError(t, v.AssertOwnership("org-1", "org-1"))

	err := v.AssertOwnership("org-1", "org-2")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
}

func TestValidatorCopiesTable(t *testing.T) {
	codes := map[string]string{"code": "org-1"}
	v := New(codes)

	codes["code"] = "org-hijacked"

	orgID, err := v.Resolve("code")
	require.NoError(t, err)
	assert.Equal(t, "org-1", orgID, "later mutation of the source map must not leak in")
}
