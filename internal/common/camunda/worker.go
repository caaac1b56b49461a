// internal/common/camunda/worker.go
package camunda

import (
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"go.uber.org/zap"
)

// JobWorker wraps a registered Zeebe job worker.
type JobWorker struct {
	worker   worker.JobWorker
	logger   *zap.Logger
	taskType string
}

// NewJobWorker registers handler for taskType on the broker and opens it.
func NewJobWorker(
	client zbc.Client,
	taskType string,
	maxJobsActive int,
	handler func(client worker.JobClient, job entities.Job),
	logger *zap.Logger,
) *JobWorker {
	jw := client.NewJobWorker().
		JobType(taskType).
		Handler(handler).
		MaxJobsActive(maxJobsActive).
		Open()

	logger.Info("worker started", zap.String("taskType", taskType))

	return &JobWorker{
		worker:   jw,
		logger:   logger,
		taskType: taskType,
	}
}

func (w *JobWorker) Close() {
	w.logger.Info("stopping worker", zap.String("taskType", w.taskType))
	w.worker.Close()
}
