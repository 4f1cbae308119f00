package policy

import (
	"fmt"

	"carelock/internal/domain"
)

// Requirements is the declarative per-operation access metadata: which roles
// may call it, what data classification it touches, and whether it only
// makes sense for institution-affiliated actors. It is explicit
// configuration handed to Evaluate, never discovered via reflection.
type Requirements struct {
	RequiredRoles       []domain.Role
	Classifications     domain.Classifications
	InstitutionRequired bool
}

// Registry maps operation identifiers (e.g. "clinical_notes.read") to their
// requirements. Built once at startup from static configuration; read-only
// afterwards.
type Registry struct {
	operations map[string]Requirements
}

// NewRegistry copies the operation table so later mutation of the input
// cannot leak into the running registry.
func NewRegistry(operations map[string]Requirements) *Registry {
	copied := make(map[string]Requirements, len(operations))
	for op, req := range operations {
		copied[op] = req
	}
	return &Registry{operations: copied}
}

// Lookup returns the requirements for an operation. Unknown operations are a
// configuration error: the caller wired a route without declaring its
// access metadata.
func (r *Registry) Lookup(operation string) (Requirements, error) {
	req, ok := r.operations[operation]
	if !ok {
		return Requirements{}, fmt.Errorf("policy: operation %q is not registered", operation)
	}
	return req, nil
}

// DefaultOperations is the operation table for the built-in HTTP surface.
func DefaultOperations() map[string]Requirements {
	clinical := []domain.Role{
		domain.RoleDoctor, domain.RoleNurse, domain.RoleSpecialist,
		domain.RoleOncologist, domain.RoleInstitutionAdmin,
	}
	return map[string]Requirements{
		"patients.read": {
			Classifications:     domain.Classifications{domain.ClassificationPHI, domain.ClassificationPII},
			InstitutionRequired: false,
		},
		"patients.update": {
			RequiredRoles:       clinical,
			Classifications:     domain.Classifications{domain.ClassificationPHI, domain.ClassificationPII},
			InstitutionRequired: true,
		},
		"patients.delete": {
			RequiredRoles:       []domain.Role{domain.RoleInstitutionAdmin, domain.RolePlatformAdmin},
			Classifications:     domain.Classifications{domain.ClassificationPHI, domain.ClassificationPII},
			InstitutionRequired: true,
		},
		"audit.search": {
			RequiredRoles:   []domain.Role{domain.RoleInstitutionAdmin, domain.RolePlatformAdmin},
			Classifications: domain.Classifications{domain.ClassificationInternal},
		},
		"audit.report": {
			RequiredRoles:       []domain.Role{domain.RoleInstitutionAdmin, domain.RolePlatformAdmin},
			Classifications:     domain.Classifications{domain.ClassificationInternal},
			InstitutionRequired: true,
		},
	}
}
