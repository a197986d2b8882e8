// Package tags holds the identifiers attached to every log line about a job.
package tags

import (
	log "github.com/sirupsen/logrus"
)

// LogTags identify a job run in structured logs.
// Tag carries the owning application id.
type LogTags struct {
	JobID  string
	TaskID string
	Tag    string
}

// Fields returns the tags as logrus fields.
func (t LogTags) Fields() log.Fields {
	return log.Fields{
		"jobID":  t.JobID,
		"taskID": t.TaskID,
		"tag":    t.Tag,
	}
}
