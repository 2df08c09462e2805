// internal/workers/scheduling/guardrail.go
package scheduling

import "strings"

// Guardrail is the confidence/completeness gate between extraction and
// persistence. Evaluate is pure: no I/O, no mutation.
type Guardrail struct {
	EntityConfidenceMin float64
	NormConfidenceMin   float64
}

// Evaluate requires a department, a normalized date, and both confidences at
// or above their thresholds. Time never gates: an appointment without a time
// is still useful and gets a default downstream, one without a date or
// department is not.
func (g Guardrail) Evaluate(department *string, entityConfidence float64, date *string, normConfidence float64) Decision {
	if department == nil || date == nil ||
		entityConfidence < g.EntityConfidenceMin ||
		normConfidence < g.NormConfidenceMin {
		return Decision{
			OK:      false,
			Reason:  ReasonNeedsClarification,
			Message: clarificationMessage,
		}
	}
	return Decision{OK: true}
}

// departmentMap canonicalizes the free-text department the model extracted.
// Unmapped values pass through as-is.
var departmentMap = map[string]string{
	"dentist":      "Dentistry",
	"cardiology":   "Cardiology",
	"heart doctor": "Cardiology",
}

// CanonicalDepartment maps an extracted department phrase to its canonical
// name, case-insensitively.
func CanonicalDepartment(department string) string {
	if canonical, ok := departmentMap[strings.ToLower(strings.TrimSpace(department))]; ok {
		return canonical
	}
	return department
}
