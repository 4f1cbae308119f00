// Package domain holds the core access-control vocabulary: actors and roles,
// data classifications, risk levels, policy decisions and audit entries.
// Everything here is plain data; behavior lives in the policy and audit
// packages.
package domain

// Role is a named capability set an actor holds. An actor always holds at
// least one role.
type Role string

const (
	RolePatient          Role = "patient"
	RoleDoctor           Role = "doctor"
	RoleNurse            Role = "nurse"
	RoleSpecialist       Role = "specialist"
	RoleOncologist       Role = "oncologist"
	RoleResearcher       Role = "researcher"
	RoleInstitutionAdmin Role = "institution_admin"
	RolePlatformAdmin    Role = "platform_admin"
)

// clinicalRoles may handle protected health data.
var clinicalRoles = map[Role]bool{
	RoleDoctor:           true,
	RoleNurse:            true,
	RoleSpecialist:       true,
	RoleOncologist:       true,
	RoleInstitutionAdmin: true,
}

// businessHoursRoles only operate inside the weekday business-hours window.
var businessHoursRoles = map[Role]bool{
	RoleResearcher: true,
}

// Clinical reports whether the role may handle protected health data.
func (r Role) Clinical() bool {
	return clinicalRoles[r]
}

// BusinessHoursOnly reports whether the role is restricted to the weekday
// business-hours window.
func (r Role) BusinessHoursOnly() bool {
	return businessHoursRoles[r]
}

// ActorStatus is the lifecycle state of an actor account. Anything but
// active is denied at the first rule.
type ActorStatus string

const (
	ActorActive    ActorStatus = "active"
	ActorSuspended ActorStatus = "suspended"
	ActorInactive  ActorStatus = "inactive"
)

// Actor is the authenticated principal a policy evaluation runs for. It is
// built once from verified token claims and never mutated afterwards.
type Actor struct {
	ID            string
	Roles         []Role
	InstitutionID string // empty for unaffiliated actors
	Status        ActorStatus
}

// HasRole reports whether the actor holds the given role.
func (a Actor) HasRole(role Role) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// HasAnyRole reports whether the actor holds at least one of the given roles.
func (a Actor) HasAnyRole(roles ...Role) bool {
	for _, role := range roles {
		if a.HasRole(role) {
			return true
		}
	}
	return false
}

// HasClinicalRole reports whether any of the actor's roles is clinical.
func (a Actor) HasClinicalRole() bool {
	for _, r := range a.Roles {
		if r.Clinical() {
			return true
		}
	}
	return false
}

// IsPatientOnly reports whether the actor holds the patient role and nothing
// else. A clinician who is also a patient is not self-access restricted.
func (a Actor) IsPatientOnly() bool {
	if len(a.Roles) == 0 {
		return false
	}
	for _, r := range a.Roles {
		if r != RolePatient {
			return false
		}
	}
	return true
}
