package audit

import "carelock/internal/domain"

// DeriveComplianceFlags tags the entry with every regulatory concern it
// raises. Flags are a set, not mutually exclusive.
func DeriveComplianceFlags(e domain.AuditEntry) []domain.ComplianceFlag {
	var flags []domain.ComplianceFlag

	if !e.Allowed {
		flags = append(flags, domain.FlagUnauthorizedAccess)
	}
	if e.Classifications.Contains(domain.ClassificationPHI) {
		flags = append(flags, domain.FlagPHIAccess)
	}
	if e.InstitutionID == "" {
		flags = append(flags, domain.FlagExternalAccess)
	}
	if e.Action == domain.ActionDelete && e.Classifications.Contains(domain.ClassificationPHI) {
		flags = append(flags, domain.FlagDataDeletionPHI)
	}
	if isAfterHours(e.Timestamp) {
		flags = append(flags, domain.FlagAfterHoursAccess)
	}
	return flags
}
