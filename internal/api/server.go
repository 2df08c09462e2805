// internal/api/server.go
package api

import (
	"appointment-scheduler/internal/common/logger"
	"appointment-scheduler/internal/common/queue"
	"appointment-scheduler/internal/common/storage"
	"appointment-scheduler/internal/jobs"
)

// Server holds the intake API's dependencies. It never touches Postgres or
// the extraction capabilities; those belong to the worker.
type Server struct {
	store     *jobs.Store
	publisher queue.Publisher
	objects   storage.ObjectStore
	queueName string
	logger    logger.Logger
}

func NewServer(store *jobs.Store, publisher queue.Publisher, objects storage.ObjectStore, queueName string, log logger.Logger) *Server {
	return &Server{
		store:     store,
		publisher: publisher,
		objects:   objects,
		queueName: queueName,
		logger:    log,
	}
}
