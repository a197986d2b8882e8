package mesos

import (
	"testing"

	"github.com/golang/protobuf/proto"
	"github.com/stretchr/testify/assert"
)

func TestTaskInfoRoundTrip(t *testing.T) {
	info := &TaskInfo{
		Name:    "sleep",
		TaskId:  NewTaskID("app-1-abc"),
		AgentId: &AgentID{Value: "agent-7"},
		Resources: []*Resource{
			Scalar("cpus", 1.5),
			Scalar("mem", 256),
			Ranges("ports", &Value_Range{Begin: 31000, End: 31001}),
		},
		Data: []byte(`{"app":{},"job":{}}`),
	}

	b, err := proto.Marshal(info)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out TaskInfo
	if err := proto.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !proto.Equal(info, &out) {
		t.Fatalf("round trip mismatch:\n%v\n%v", info, &out)
	}
	assert.Equal(t, "app-1-abc", out.GetTaskId().GetValue())
	assert.Equal(t, uint64(31001), out.GetResources()[2].GetRanges().GetRange()[0].GetEnd())
}

func TestNilGetters(t *testing.T) {
	var status *TaskStatus
	assert.Equal(t, "", status.GetTaskId().GetValue())
	assert.Equal(t, TaskState_TASK_STARTING, status.GetState())
	assert.Nil(t, status.GetData())

	var r *Resource
	assert.Equal(t, float64(0), r.GetScalar().GetValue())
	assert.Nil(t, r.GetRanges().GetRange())
}

func TestTaskState(t *testing.T) {
	assert.Equal(t, "TASK_KILLED", TaskState_TASK_KILLED.String())
	assert.Equal(t, "TaskState(42)", TaskState(42).String())
	assert.True(t, TaskState_TASK_FAILED.IsTerminal())
	assert.True(t, TaskState_TASK_LOST.IsTerminal())
	assert.False(t, TaskState_TASK_RUNNING.IsTerminal())
	assert.False(t, TaskState_TASK_STARTING.IsTerminal())
}
