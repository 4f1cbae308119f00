package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carelock/internal/domain"
)

func TestRegistryLookup(t *testing.T) {
	registry := NewRegistry(DefaultOperations())

	t.Run("known operation", func(t *testing.T) {
		req, err := registry.Lookup("patients.delete")
		require.NoError(t, err)
		assert.True(t, req.InstitutionRequired)
		assert.Contains(t, req.RequiredRoles, domain.RoleInstitutionAdmin)
		assert.True(t, req.Classifications.Contains(domain.ClassificationPHI))
	})

	t.Run("unknown operation is a configuration error", func(t *testing.T) {
		_, err := registry.Lookup("patients.export")
		assert.Error(t, err)
	})
}

func TestRegistryCopiesInput(t *testing.T) {
	operations := map[string]Requirements{
		"op.read": {},
	}
	registry := NewRegistry(operations)
	delete(operations, "op.read")

	_, err := registry.Lookup("op.read")
	assert.NoError(t, err)
}
