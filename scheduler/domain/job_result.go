package domain

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"
)

// JobResult is carried by terminal status reports.
type JobResult struct {
	TaskID   string    `json:"taskId"`
	Result   *int      `json:"result,omitempty"`
	Finished time.Time `json:"finished"`
	Message  string    `json:"message"`
}

func NewJobResult(taskID string, result int, finished time.Time, message string) *JobResult {
	return &JobResult{TaskID: taskID, Result: &result, Finished: finished, Message: message}
}

func (r *JobResult) Serialize() ([]byte, error) {
	return json.Marshal(r)
}

func DeserializeJobResult(input []byte) (*JobResult, error) {
	var r JobResult
	if err := json.Unmarshal(input, &r); err != nil {
		return nil, errors.Wrap(err, "invalid job result")
	}
	return &r, nil
}
