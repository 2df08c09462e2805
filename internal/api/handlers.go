// internal/api/handlers.go
package api

import (
	"encoding/json"
	"io"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"appointment-scheduler/internal/common/metrics"
	"appointment-scheduler/internal/jobs"
)

type scheduleTextRequest struct {
	Text string `json:"text"`
}

// Schedule accepts either a multipart upload with an "image" part or a JSON
// body with a "text" key. The job record is written before the task message
// is published, so a consumer can never see a job id with no record.
func (s *Server) Schedule(c *gin.Context) {
	ctx := c.Request.Context()
	jobID := uuid.New().String()
	log := s.logger.With(map[string]interface{}{"jobId": jobID})

	var msg jobs.TaskMessage

	if file, err := c.FormFile("image"); err == nil {
		opened, err := file.Open()
		if err != nil {
			log.WithError(err).Error("failed to open uploaded image", nil)
			c.JSON(500, gin.H{"error": "server error."})
			return
		}
		defer opened.Close()

		body, err := io.ReadAll(opened)
		if err != nil {
			log.WithError(err).Error("failed to read uploaded image", nil)
			c.JSON(500, gin.H{"error": "server error."})
			return
		}

		key := "uploads/" + uuid.New().String() + strings.ToLower(filepath.Ext(file.Filename))
		contentType := file.Header.Get("Content-Type")
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		if err := s.objects.Upload(ctx, key, body, contentType); err != nil {
			log.WithError(err).Error("failed to upload image", map[string]interface{}{"s3Key": key})
			c.JSON(500, gin.H{"error": "server error."})
			return
		}

		if err := s.store.CreateImageJob(ctx, jobID, key); err != nil {
			log.WithError(err).Error("failed to create job record", nil)
			c.JSON(500, gin.H{"error": "server error."})
			return
		}
		msg = jobs.TaskMessage{JobID: jobID, Type: jobs.InputImage}
		msg.Data.S3Key = key
	} else {
		var req scheduleTextRequest
		if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Text) == "" {
			c.JSON(400, gin.H{"error": `request must be an image file or a json object with a "text" key.`})
			return
		}

		if err := s.store.CreateTextJob(ctx, jobID, req.Text); err != nil {
			log.WithError(err).Error("failed to create job record", nil)
			c.JSON(500, gin.H{"error": "server error."})
			return
		}
		msg = jobs.TaskMessage{JobID: jobID, Type: jobs.InputText}
		msg.Data.RawText = req.Text
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		log.WithError(err).Error("failed to encode task message", nil)
		c.JSON(500, gin.H{"error": "server error."})
		return
	}
	if err := s.publisher.Publish(ctx, s.queueName, payload); err != nil {
		// The record stays pending forever; surfacing the failure is all the
		// intake can do without a transactional outbox.
		log.WithError(err).Error("failed to publish task message", nil)
		c.JSON(500, gin.H{"error": "server error."})
		return
	}

	metrics.JobsAccepted.WithLabelValues(string(msg.Type)).Inc()
	log.Info("job accepted", map[string]interface{}{"type": string(msg.Type)})
	c.JSON(202, gin.H{
		"message": "request is being processed",
		"jobId":   jobID,
	})
}

// Status returns the raw job record, every field verbatim as stored.
func (s *Server) Status(c *gin.Context) {
	jobID := c.Param("jobId")

	record, err := s.store.Get(c.Request.Context(), jobID)
	if err != nil {
		if err == jobs.ErrNotFound {
			c.JSON(404, gin.H{"error": "job not found."})
			return
		}
		s.logger.WithError(err).Error("failed to read job record", map[string]interface{}{"jobId": jobID})
		c.JSON(500, gin.H{"error": "server error."})
		return
	}

	c.JSON(200, record)
}
