// internal/common/validation/task_message_test.go
package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateTaskMessage(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{
			name: "valid text message",
			body: `{"jobId":"abc","type":"text","data":{"rawText":"dentist tomorrow"}}`,
		},
		{
			name: "valid image message",
			body: `{"jobId":"abc","type":"image","data":{"s3Key":"uploads/x.png"}}`,
		},
		{
			name:    "missing jobId",
			body:    `{"type":"text","data":{"rawText":"x"}}`,
			wantErr: true,
		},
		{
			name:    "empty jobId",
			body:    `{"jobId":"","type":"text","data":{"rawText":"x"}}`,
			wantErr: true,
		},
		{
			name:    "unknown type",
			body:    `{"jobId":"abc","type":"video","data":{}}`,
			wantErr: true,
		},
		{
			name:    "extra top-level field",
			body:    `{"jobId":"abc","type":"text","data":{},"priority":5}`,
			wantErr: true,
		},
		{
			name:    "extra data field",
			body:    `{"jobId":"abc","type":"text","data":{"rawText":"x","lang":"en"}}`,
			wantErr: true,
		},
		{
			name:    "not json",
			body:    `hello`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTaskMessage([]byte(tt.body))
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
