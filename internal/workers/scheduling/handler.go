// internal/workers/scheduling/handler.go
package scheduling

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"appointment-scheduler/internal/appointments"
	"appointment-scheduler/internal/capabilities"
	stderrors "appointment-scheduler/internal/common/errors"
	"appointment-scheduler/internal/common/logger"
	"appointment-scheduler/internal/common/metrics"
	"appointment-scheduler/internal/common/observability"
	"appointment-scheduler/internal/common/storage"
	"appointment-scheduler/internal/common/validation"
	"appointment-scheduler/internal/jobs"
)

const TaskType = "schedule-appointment"

// Handler drives one task through the pipeline:
// text acquisition -> entity extraction -> normalization -> guardrail ->
// persistence, updating the status store after every stage. Every failure is
// trapped here and recorded as a terminal failed record; nothing propagates
// to kill the consumer loop.
type Handler struct {
	config       *Config
	store        *jobs.Store
	appointments *appointments.Store
	objects      storage.ObjectStore
	ocr          capabilities.TextExtractor
	entities     capabilities.EntityExtractor
	normalizer   capabilities.Normalizer
	guardrail    Guardrail
	obs          *observability.Observability
	logger       logger.Logger
}

func NewHandler(
	config *Config,
	store *jobs.Store,
	appts *appointments.Store,
	objects storage.ObjectStore,
	ocr capabilities.TextExtractor,
	entities capabilities.EntityExtractor,
	normalizer capabilities.Normalizer,
	obs *observability.Observability,
	log logger.Logger,
) *Handler {
	return &Handler{
		config:       config,
		store:        store,
		appointments: appts,
		objects:      objects,
		ocr:          ocr,
		entities:     entities,
		normalizer:   normalizer,
		guardrail: Guardrail{
			EntityConfidenceMin: config.EntityConfidenceMin,
			NormConfidenceMin:   config.NormConfidenceMin,
		},
		obs:    obs,
		logger: log.With(map[string]interface{}{"taskType": TaskType}),
	}
}

// Handle processes one delivery. The consumer loop acks after this returns,
// so returning (rather than crashing) is what removes the message.
func (h *Handler) Handle(ctx context.Context, d amqp.Delivery) {
	if err := validation.ValidateTaskMessage(d.Body); err != nil {
		// No trustworthy job id to fail against; drop after logging.
		h.logger.Error("dropping invalid task message", map[string]interface{}{
			"error": err.Error(),
		})
		metrics.JobsFailed.WithLabelValues(string(stderrors.ErrCodeInvalidTaskMessage)).Inc()
		return
	}

	var msg jobs.TaskMessage
	if err := json.Unmarshal(d.Body, &msg); err != nil {
		h.logger.Error("dropping undecodable task message", map[string]interface{}{
			"error": err.Error(),
		})
		metrics.JobsFailed.WithLabelValues(string(stderrors.ErrCodeInvalidTaskMessage)).Inc()
		return
	}

	log := h.logger.With(map[string]interface{}{"jobId": msg.JobID})

	// Redelivery guard: a job already terminated is never reprocessed, so a
	// crash between appointment insert and ack cannot double-insert.
	if record, err := h.store.Get(ctx, msg.JobID); err == nil {
		if jobs.StatusOf(record).Terminal() {
			log.Info("job already terminal, skipping redelivered message", map[string]interface{}{
				"status": string(jobs.StatusOf(record)),
			})
			return
		}
	} else if err == jobs.ErrNotFound {
		// Intake writes the record before publishing, so this should not
		// happen; the hash writes below will create it regardless.
		log.Warn("no record for delivered job id", nil)
	}

	// The stage budget lives on its own context so that when a job times
	// out, the terminal status write below still goes through.
	jobCtx, cancel := context.WithTimeout(ctx, h.config.JobTimeout)
	defer cancel()

	log.Info("processing job", map[string]interface{}{"type": string(msg.Type)})
	start := time.Now()

	status := "completed"
	if err := h.execute(jobCtx, &msg, log); err != nil {
		status = "failed"
		stdErr := stderrors.Normalize(err)
		log.WithError(err).Error("job failed", map[string]interface{}{
			"errorCode": string(stdErr.Code),
			"details":   stdErr.Details,
		})
		if markErr := h.store.MarkFailed(ctx, msg.JobID, stdErr.Message); markErr != nil {
			log.WithError(markErr).Error("failed to record job failure", nil)
		}
		metrics.JobsFailed.WithLabelValues(string(stdErr.Code)).Inc()
	} else {
		metrics.JobsCompleted.Inc()
	}

	elapsed := time.Since(start)
	metrics.JobDuration.Observe(elapsed.Seconds())
	if h.obs != nil {
		h.obs.RecordJobProcessed(ctx, status)
		h.obs.RecordJobDuration(ctx, elapsed, status)
	}
}

func (h *Handler) execute(ctx context.Context, msg *jobs.TaskMessage, log logger.Logger) error {
	if err := h.store.MarkProcessing(ctx, msg.JobID); err != nil {
		return stderrors.NewStatusWriteFailedError(err)
	}

	// Stage 1: text acquisition
	ocrResult, err := h.acquireText(ctx, msg)
	if err != nil {
		return err
	}
	if err := h.store.SetOCRResult(ctx, msg.JobID, ocrResult.Text, ocrResult.Confidence); err != nil {
		return stderrors.NewStatusWriteFailedError(err)
	}

	// Stage 2: entity extraction
	stageStart := time.Now()
	entities, err := h.entities.ExtractEntities(ctx, ocrResult.Text)
	if err != nil {
		return stderrors.NewEntityExtractionFailedError(err)
	}
	metrics.StageDuration.WithLabelValues("entity_extraction").Observe(time.Since(stageStart).Seconds())
	if err := h.store.SetEntities(ctx, msg.JobID, entities.Department, entities.DatePhrase, entities.TimePhrase, entities.Confidence); err != nil {
		return stderrors.NewStatusWriteFailedError(err)
	}

	// Stage 3: normalization
	stageStart = time.Now()
	normalized, err := h.normalizer.Normalize(ctx, entities.DatePhrase, entities.TimePhrase)
	if err != nil {
		return stderrors.NewNormalizationFailedError(err)
	}
	metrics.StageDuration.WithLabelValues("normalization").Observe(time.Since(stageStart).Seconds())
	if err := h.store.SetNormalized(ctx, msg.JobID, normalized.Date, normalized.Time, normalized.Confidence); err != nil {
		return stderrors.NewStatusWriteFailedError(err)
	}

	// Stage 4: guardrail
	decision := h.guardrail.Evaluate(entities.Department, entities.Confidence, normalized.Date, normalized.Confidence)
	if !decision.OK {
		log.Info("guardrail rejected job", map[string]interface{}{"reason": decision.Reason})
		return stderrors.NewGuardrailRejectedError(decision.Message)
	}

	// Stage 5: persistence
	final := finalAppointment{
		Department: CanonicalDepartment(*entities.Department),
		Date:       *normalized.Date,
		Time:       h.config.DefaultTime,
	}
	if normalized.Time != nil {
		final.Time = *normalized.Time
	}

	stageStart = time.Now()
	appointmentID, err := h.appointments.Insert(ctx, appointments.Appointment{
		JobID:      msg.JobID,
		Department: final.Department,
		Date:       final.Date,
		Time:       final.Time,
		Timezone:   h.config.Timezone,
	})
	if err != nil {
		return stderrors.NewAppointmentInsertFailedError(err)
	}
	metrics.StageDuration.WithLabelValues("persistence").Observe(time.Since(stageStart).Seconds())

	if err := h.store.MarkCompleted(ctx, msg.JobID, appointmentID, final.Department, final.Date, final.Time); err != nil {
		return stderrors.NewStatusWriteFailedError(err)
	}

	log.Info("job completed", map[string]interface{}{
		"appointmentId": appointmentID,
		"department":    final.Department,
	})
	return nil
}

// acquireText yields the raw text for the job: directly from the message for
// text input (confidence fixed at 1.0), via object storage and the OCR
// capability for images.
func (h *Handler) acquireText(ctx context.Context, msg *jobs.TaskMessage) (capabilities.OCRResult, error) {
	switch msg.Type {
	case jobs.InputText:
		return capabilities.OCRResult{Text: msg.Data.RawText, Confidence: 1.0}, nil

	case jobs.InputImage:
		stageStart := time.Now()
		image, err := h.objects.Download(ctx, msg.Data.S3Key)
		if err != nil {
			return capabilities.OCRResult{}, stderrors.NewStorageRetrievalFailedError(err)
		}

		result, err := h.ocr.ExtractText(ctx, image)
		if err != nil {
			if err == capabilities.ErrEmptyOutput {
				return capabilities.OCRResult{}, stderrors.NewOCRNoTextError()
			}
			return capabilities.OCRResult{}, stderrors.NewOCRFailedError(err)
		}
		metrics.StageDuration.WithLabelValues("text_acquisition").Observe(time.Since(stageStart).Seconds())
		return result, nil

	default:
		return capabilities.OCRResult{}, stderrors.NewUnsupportedInputTypeError(string(msg.Type))
	}
}
