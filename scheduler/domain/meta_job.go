package domain

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// MetaJob is the task payload: a job together with its application.
type MetaJob struct {
	App *Application `json:"app"`
	Job *Job         `json:"job"`
}

// Serialize MetaJob to a byte slice, and error is
// returned if the object cannot be serialized
func (m *MetaJob) Serialize() ([]byte, error) {
	if m.App == nil || m.Job == nil {
		return nil, errors.New("meta job needs both an application and a job")
	}
	return json.Marshal(m)
}

// DeserializeMetaJob decodes a task payload. Both parts must be present
// and valid.
func DeserializeMetaJob(input []byte) (*MetaJob, error) {
	var m MetaJob
	if err := json.Unmarshal(input, &m); err != nil {
		return nil, errors.Wrap(err, "invalid task payload")
	}
	if m.App == nil {
		return nil, errors.New("invalid task payload: no application")
	}
	if m.Job == nil {
		return nil, errors.New("invalid task payload: no job")
	}
	return &m, nil
}
