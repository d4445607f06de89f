package pipeline

import (
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/scribe-cloud/quill/internal/domain"
)

// state tracks where one pipeline request is in its lifecycle. Transitions
// are strictly sequential; failed is the only alternative terminal.
type state string

const (
	stateReceived   state = "received"
	stateExtracting state = "extracting"
	stateRetrieving state = "retrieving"
	stateGenerating state = "generating"
	stateCleaning   state = "cleaning"
	stateRestoring  state = "restoring"
	stateCompleted  state = "completed"
	stateFailed     state = "failed"
)

// run is the per-request execution record: a generated ID, the task, and a
// logger carrying both for every stage transition.
type run struct {
	id     string
	task   domain.Task
	state  state
	logger *zap.Logger
}

func newRun(task domain.Task, logger *zap.Logger) *run {
	id := uuid.NewString()
	return &run{
		id:    id,
		task:  task,
		state: stateReceived,
		logger: logger.With(
			zap.String("request_id", id),
			zap.String("task", string(task)),
		),
	}
}

func (r *run) to(s state) {
	r.state = s
	r.logger.Debug("Pipeline stage", zap.String("state", string(s)))
}
