package jobs

import (
	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeRatingRefresh rebuilds the recipe rating stats view.
	TaskTypeRatingRefresh = "catalog:rating_refresh"
)

// NewRatingRefreshTask constructs the rating refresh task. The task
// carries no payload; the refresh always covers the whole view.
func NewRatingRefreshTask() *asynq.Task {
	return asynq.NewTask(TaskTypeRatingRefresh, nil)
}
