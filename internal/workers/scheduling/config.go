// internal/workers/scheduling/config.go
package scheduling

import (
	"time"

	"appointment-scheduler/internal/common/config"
)

type Config struct {
	QueueName           string
	JobTimeout          time.Duration
	Timezone            string
	DefaultTime         string
	EntityConfidenceMin float64
	NormConfidenceMin   float64
}

func LoadConfig(cfg *config.Config) *Config {
	return &Config{
		QueueName:           cfg.RabbitMQ.QueueName,
		JobTimeout:          time.Duration(cfg.Scheduling.WorkerTimeout) * time.Millisecond,
		Timezone:            cfg.Scheduling.Timezone,
		DefaultTime:         cfg.Scheduling.DefaultTime,
		EntityConfidenceMin: cfg.Scheduling.EntityConfidenceMin,
		NormConfidenceMin:   cfg.Scheduling.NormConfidenceMin,
	}
}
