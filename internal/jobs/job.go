// internal/jobs/job.go
package jobs

// Status is the client-visible lifecycle of a job.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether no further transitions may occur.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// InputType says what the source payload is.
type InputType string

const (
	InputImage InputType = "image"
	InputText  InputType = "text"
)

// TaskMessage is the queue wire schema. It carries only the source payload;
// the status store, not the message, is authoritative for all derived state.
type TaskMessage struct {
	JobID string    `json:"jobId"`
	Type  InputType `json:"type"`
	Data  TaskData  `json:"data"`
}

type TaskData struct {
	S3Key   string `json:"s3Key,omitempty"`
	RawText string `json:"rawText,omitempty"`
}

// Redis hash field names of the Job Record. Stage prefixes give pollers a
// stable, self-describing view of pipeline progress.
const (
	FieldStatus    = "status"
	FieldInputType = "inputType"
	FieldS3Key     = "s3Key"
	FieldRawText   = "rawText"
	FieldCreatedAt = "createdAt"
	FieldUpdatedAt = "updatedAt"

	FieldOCRText       = "step1_ocr_text"
	FieldOCRConfidence = "step1_ocr_confidence"

	FieldEntityDepartment = "step2_entity_department"
	FieldEntityDatePhrase = "step2_entity_date_phrase"
	FieldEntityTimePhrase = "step2_entity_time_phrase"
	FieldEntityConfidence = "step2_entity_confidence"

	FieldNormalizedDate       = "step3_normalized_date"
	FieldNormalizedTime       = "step3_normalized_time"
	FieldNormalizedConfidence = "step3_normalized_confidence"

	FieldAppointmentID    = "appointmentId"
	FieldResultDepartment = "result_department"
	FieldResultDate       = "result_date"
	FieldResultTime       = "result_time"
	FieldErrorMessage     = "errorMessage"
)

// NotFoundSentinel is stored for extracted values the capabilities could not
// find. It exists only at the store boundary; in-process absent values are
// nil pointers, never this string.
const NotFoundSentinel = "N/A"
