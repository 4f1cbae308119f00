package records

import (
	"time"

	"carelock/internal/domain"
)

// PatientRecord is the decrypted, in-memory form of one patient's chart
// summary. Classified fields are sealed by the codec on the way into the
// store and opened on the way out; plaintext never reaches the database.
type PatientRecord struct {
	ID            string
	PatientID     string
	InstitutionID string

	// PII — encrypted at rest.
	FirstName string
	LastName  string

	// PII identifier — hashed for equality lookups, additionally encrypted
	// for display to authorized clinical staff.
	NationalID string

	// PHI — encrypted at rest.
	Diagnosis string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// FieldClassifications declares the sensitivity of each protected field.
// Fields absent from the map are INTERNAL by default and stored as-is.
var FieldClassifications = map[string]domain.Classification{
	"first_name":  domain.ClassificationPII,
	"last_name":   domain.ClassificationPII,
	"national_id": domain.ClassificationPII,
	"diagnosis":   domain.ClassificationPHI,
}
