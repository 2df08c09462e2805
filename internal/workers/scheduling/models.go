// internal/workers/scheduling/models.go
package scheduling

// Decision is the guardrail's verdict on a job's extracted data.
type Decision struct {
	OK      bool
	Reason  string // empty when OK
	Message string // client-facing explanation when not OK
}

const (
	// ReasonNeedsClarification marks a deliberate business rejection. The
	// terminal status stays "failed"; this reason survives in logs, metrics
	// and the recorded message.
	ReasonNeedsClarification = "needs_clarification"

	clarificationMessage = "Ambiguous or missing date or department."
)

// finalAppointment is what stage 5 persists after canonicalization.
type finalAppointment struct {
	Department string
	Date       string
	Time       string
}
