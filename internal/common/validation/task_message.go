// internal/common/validation/task_message.go
package validation

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// taskMessageSchema is the wire contract for entries on the scheduling queue.
// "data" must carry an s3Key for image jobs or rawText for text jobs; the
// cross-field requirement is enforced by the worker after decoding.
const taskMessageSchema = `{
  "type": "object",
  "properties": {
    "jobId": {"type": "string", "minLength": 1},
    "type": {"type": "string", "enum": ["image", "text"]},
    "data": {
      "type": "object",
      "properties": {
        "s3Key": {"type": "string"},
        "rawText": {"type": "string"}
      },
      "additionalProperties": false
    }
  },
  "required": ["jobId", "type", "data"],
  "additionalProperties": false
}`

var compiledTaskMessageSchema = gojsonschema.NewStringLoader(taskMessageSchema)

// ValidateTaskMessage checks a raw queue message body against the schema and
// returns a joined description of every violation.
func ValidateTaskMessage(body []byte) error {
	result, err := gojsonschema.Validate(compiledTaskMessageSchema, gojsonschema.NewBytesLoader(body))
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("invalid task message: %s", strings.Join(msgs, "; "))
}
