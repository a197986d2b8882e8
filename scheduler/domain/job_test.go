package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

var now = time.Unix(1500000000, 0).UTC()

func strPtr(s string) *string { return &s }

func newTestJob(t *testing.T) *Job {
	j, err := NewJob(JobRequest{
		AppID: "app",
		Name:  "sleepy",
		Cmd:   "sleep 1",
		Env:   map[string]string{"A": "1"},
		CPU:   2,
		MemMB: 64,
	})
	if err != nil {
		t.Fatalf("unexpected error creating job: %v", err)
	}
	return j
}

func TestNewJobValidation(t *testing.T) {
	valid := JobRequest{AppID: "a", Cmd: "true", CPU: 1, MemMB: 32}
	if _, err := NewJob(valid); err != nil {
		t.Fatalf("expected valid job, got %v", err)
	}

	bad := []JobRequest{
		{Cmd: "true", CPU: 1, MemMB: 32},
		{AppID: "a", CPU: 1, MemMB: 32},
		{AppID: "a", Cmd: "true", CPU: 0, MemMB: 32},
		{AppID: "a", Cmd: "true", CPU: 1, MemMB: 31},
		{AppID: "a", Cmd: "true", CPU: 1, MemMB: 32, GPU: -1},
		{AppID: "a", Cmd: "true", CPU: 1, MemMB: 32, DiskMB: -1},
		{AppID: "a", Cmd: "true", CPU: 1, MemMB: 32, Ports: -1},
	}
	for i, req := range bad {
		_, err := NewJob(req)
		if errors.Cause(err) != ErrInvalidJob {
			t.Errorf("case %d: expected ErrInvalidJob, got %v", i, err)
		}
	}
}

func TestEnvIsCopied(t *testing.T) {
	env := map[string]string{"A": "1"}
	j, err := NewJob(JobRequest{AppID: "a", Cmd: "true", CPU: 1, MemMB: 32, Env: env})
	assert.Nil(t, err)
	env["A"] = "2"
	assert.Equal(t, "1", j.Env()["A"])
	j.Env()["A"] = "3"
	assert.Equal(t, "1", j.Env()["A"])
}

func TestHappyPath(t *testing.T) {
	j := newTestJob(t)
	assert.Equal(t, Created, j.State())

	assert.Nil(t, j.Schedule(7, now))
	assert.Equal(t, Queued, j.State())
	assert.Equal(t, 7, j.ID())
	assert.Equal(t, now, j.ScheduledAt())

	assert.Nil(t, j.DoRetry())
	assert.Nil(t, j.DoRetry())
	assert.Equal(t, 2, j.Retry())
	assert.Equal(t, Queued, j.State())

	assert.Nil(t, j.Starting("app-7-x", strPtr("http://agent/sandbox"), now.Add(time.Second)))
	assert.Equal(t, Starting, j.State())
	assert.Equal(t, "app-7-x", j.TaskID())

	assert.Nil(t, j.Started("", nil, now.Add(2*time.Second)))
	assert.Equal(t, Started, j.State())
	assert.Equal(t, "app-7-x", j.TaskID())
	url, ok := j.URL()
	assert.True(t, ok)
	assert.Equal(t, "http://agent/sandbox", url)

	_, ok = j.Result()
	assert.False(t, ok)
	assert.Nil(t, j.Finished(now.Add(3*time.Second), nil, 7))
	assert.Equal(t, Finished, j.State())
	r, ok := j.Result()
	assert.True(t, ok)
	assert.Equal(t, 7, r)
	_, ok = j.Reason()
	assert.False(t, ok)
	url, _ = j.URL()
	assert.Equal(t, "http://agent/sandbox", url)
	assert.Equal(t, 7, j.ID())
}

func TestKilledFromEachLiveState(t *testing.T) {
	steps := []func(j *Job) error{
		func(j *Job) error { return j.Schedule(1, now) },
		func(j *Job) error { return j.Starting("t", nil, now) },
		func(j *Job) error { return j.Started("t", nil, now) },
	}
	for n := 1; n <= len(steps); n++ {
		j := newTestJob(t)
		for _, step := range steps[:n] {
			if err := step(j); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}
		if err := j.Killed(now, nil, "user request"); err != nil {
			t.Fatalf("killing after %d steps failed: %v", n, err)
		}
		assert.Equal(t, Killed, j.State())
		reason, ok := j.Reason()
		assert.True(t, ok)
		assert.Equal(t, "user request", reason)
		_, ok = j.Result()
		assert.False(t, ok)
	}
}

func TestIllegalTransitions(t *testing.T) {
	j := newTestJob(t)
	assert.Equal(t, ErrIllegalTransition, errors.Cause(j.DoRetry()))
	assert.Equal(t, ErrIllegalTransition, errors.Cause(j.Starting("t", nil, now)))
	assert.Equal(t, ErrIllegalTransition, errors.Cause(j.Killed(now, nil, "x")))
	assert.Equal(t, Created, j.State())

	assert.Nil(t, j.Schedule(1, now))
	assert.Equal(t, ErrIllegalTransition, errors.Cause(j.Schedule(2, now)))
	assert.Equal(t, 1, j.ID())
	assert.Equal(t, ErrIllegalTransition, errors.Cause(j.Started("t", nil, now)))
	assert.Equal(t, ErrIllegalTransition, errors.Cause(j.Finished(now, nil, 0)))
	assert.Equal(t, ErrInvalidJob, errors.Cause(j.Starting("", nil, now)))
	assert.Equal(t, Queued, j.State())

	assert.Nil(t, j.Starting("t", nil, now))
	assert.Equal(t, ErrIllegalTransition, errors.Cause(j.DoRetry()))
	assert.Nil(t, j.Started("t", nil, now))
	assert.Nil(t, j.Finished(now, strPtr("u"), 0))

	// nothing leaves a terminal state
	assert.Equal(t, ErrIllegalTransition, errors.Cause(j.Killed(now, nil, "late")))
	assert.Equal(t, ErrIllegalTransition, errors.Cause(j.Finished(now, nil, 1)))
	assert.Equal(t, ErrIllegalTransition, errors.Cause(j.DoRetry()))
	assert.Equal(t, Finished, j.State())
	r, _ := j.Result()
	assert.Equal(t, 0, r)
	_, ok := j.Reason()
	assert.False(t, ok)
}

func TestURLNeverCleared(t *testing.T) {
	j := newTestJob(t)
	assert.Nil(t, j.Schedule(1, now))
	assert.Nil(t, j.Starting("t", strPtr("first"), now))
	assert.Nil(t, j.Started("t", strPtr("second"), now))
	assert.Nil(t, j.Killed(now, nil, "bye"))
	url, ok := j.URL()
	assert.True(t, ok)
	assert.Equal(t, "second", url)
}

func TestJobJSONRoundTrip(t *testing.T) {
	j := newTestJob(t)
	assert.Nil(t, j.Schedule(3, now))
	assert.Nil(t, j.Starting("app-3-x", strPtr("u"), now))
	assert.Nil(t, j.Started("app-3-x", nil, now))
	assert.Nil(t, j.Finished(now, nil, 1))

	b, err := json.Marshal(j)
	assert.Nil(t, err)
	assert.Contains(t, string(b), `"state":"FINISHED"`)
	assert.Contains(t, string(b), `"memMB":64`)

	var out Job
	assert.Nil(t, json.Unmarshal(b, &out))
	assert.Equal(t, j.String(), out.String())
	assert.True(t, j.FinishedAt().Equal(out.FinishedAt()))
	r, ok := out.Result()
	assert.True(t, ok)
	assert.Equal(t, 1, r)
}

func TestJobJSONRejectsInvalid(t *testing.T) {
	inputs := []string{
		`{"id":1,"appid":"a","cmd":"true","cpu":0,"memMB":32,"state":"QUEUED"}`,
		`{"id":1,"appid":"a","cmd":"true","cpu":1,"memMB":16,"state":"QUEUED"}`,
		`{"id":1,"appid":"a","cmd":"true","cpu":1,"memMB":32,"state":"RUNNING"}`,
		`{"id":1,"appid":"a","cmd":"true","cpu":1,"memMB":32,"state":"QUEUED","result":0}`,
		`{"id":1,"appid":"a","cmd":"true","cpu":1,"memMB":32,"state":"STARTED","reason":"x"}`,
		`{"id":1,"cmd":"true","cpu":1,"memMB":32,"state":"QUEUED"}`,
		`not json`,
	}
	for _, in := range inputs {
		var j Job
		assert.NotNil(t, json.Unmarshal([]byte(in), &j), in)
	}
}

func TestJobStateText(t *testing.T) {
	for s := Created; s <= Killed; s++ {
		b, err := s.MarshalText()
		assert.Nil(t, err)
		var parsed JobState
		assert.Nil(t, parsed.UnmarshalText(b))
		assert.Equal(t, s, parsed)
	}
	_, err := JobState(99).MarshalText()
	assert.NotNil(t, err)
	assert.Equal(t, "UNKNOWN", JobState(-1).String())
	assert.True(t, Finished.IsTerminal())
	assert.True(t, Killed.IsTerminal())
	assert.False(t, Started.IsTerminal())
}

func TestResourceRequest(t *testing.T) {
	j, err := NewJob(JobRequest{AppID: "a", Cmd: "true", CPU: 3, MemMB: 128, GPU: 1, DiskMB: 5, Ports: 2})
	assert.Nil(t, err)
	req := j.ResourceRequest()
	assert.Equal(t, 3.0, req.CPU)
	assert.Equal(t, 128, req.MemMB)
	assert.Equal(t, 1, req.GPU)
	assert.Equal(t, 5, req.DiskMB)
	assert.Equal(t, 2, req.Ports)
}
