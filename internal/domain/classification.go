package domain

// Classification grades the sensitivity of a resource or field. It drives
// both the policy rules and the encryption requirements of the data layer.
type Classification string

const (
	ClassificationPHI      Classification = "PHI"
	ClassificationPII      Classification = "PII"
	ClassificationInternal Classification = "INTERNAL"
	ClassificationPublic   Classification = "PUBLIC"
)

// DefaultClassification applies to anything left unclassified. Defaulting to
// internal rather than public keeps an unlabeled field out of open responses.
const DefaultClassification = ClassificationInternal

// Classifications is the sensitivity set attached to one resource or event.
type Classifications []Classification

// Contains reports whether the set includes the given classification.
func (cs Classifications) Contains(c Classification) bool {
	for _, have := range cs {
		if have == c {
			return true
		}
	}
	return false
}

// Strings converts the set for storage and serialization.
func (cs Classifications) Strings() []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = string(c)
	}
	return out
}
