package domain

import (
	"github.com/pkg/errors"
)

// JobState is a step in a job's lifecycle:
//
//	CREATED -> QUEUED (-> QUEUED on retry) -> STARTING -> STARTED -> FINISHED
//	              |                              |           |
//	              +------------------------------+-----------+---> KILLED
type JobState int

const (
	Created JobState = iota
	Queued
	Starting
	Started
	Finished
	Killed
)

var jobStateNames = [...]string{"CREATED", "QUEUED", "STARTING", "STARTED", "FINISHED", "KILLED"}

func (s JobState) String() string {
	if s < Created || s > Killed {
		return "UNKNOWN"
	}
	return jobStateNames[s]
}

// IsTerminal is true for FINISHED and KILLED.
func (s JobState) IsTerminal() bool {
	return s == Finished || s == Killed
}

func ParseJobState(name string) (JobState, error) {
	for i, n := range jobStateNames {
		if n == name {
			return JobState(i), nil
		}
	}
	return Created, errors.Errorf("unknown job state %q", name)
}

func (s JobState) MarshalText() ([]byte, error) {
	if s < Created || s > Killed {
		return nil, errors.Errorf("unknown job state %d", int(s))
	}
	return []byte(s.String()), nil
}

func (s *JobState) UnmarshalText(b []byte) error {
	st, err := ParseJobState(string(b))
	if err != nil {
		return err
	}
	*s = st
	return nil
}
