// Package mesos mirrors the subset of the Mesos protobuf schema that batchd
// exchanges with the cluster manager: resource descriptors, task launch info
// and task status updates. The types are protobuf messages and can be
// marshaled with github.com/golang/protobuf/proto.
package mesos

import (
	"fmt"

	"github.com/golang/protobuf/proto"
)

type Value_Type int32

const (
	Value_SCALAR Value_Type = 0
	Value_RANGES Value_Type = 1
	Value_SET    Value_Type = 2
	Value_TEXT   Value_Type = 3
)

var Value_Type_name = map[int32]string{
	0: "SCALAR",
	1: "RANGES",
	2: "SET",
	3: "TEXT",
}

var Value_Type_value = map[string]int32{
	"SCALAR": 0,
	"RANGES": 1,
	"SET":    2,
	"TEXT":   3,
}

func (x Value_Type) String() string {
	if s, ok := Value_Type_name[int32(x)]; ok {
		return s
	}
	return fmt.Sprintf("Value_Type(%d)", int32(x))
}

type Value_Scalar struct {
	Value float64 `protobuf:"fixed64,1,opt,name=value,proto3" json:"value,omitempty"`
}

func (m *Value_Scalar) Reset()         { *m = Value_Scalar{} }
func (m *Value_Scalar) String() string { return proto.CompactTextString(m) }
func (*Value_Scalar) ProtoMessage()    {}

func (m *Value_Scalar) GetValue() float64 {
	if m != nil {
		return m.Value
	}
	return 0
}

// Value_Range is an inclusive range.
type Value_Range struct {
	Begin uint64 `protobuf:"varint,1,opt,name=begin,proto3" json:"begin,omitempty"`
	End   uint64 `protobuf:"varint,2,opt,name=end,proto3" json:"end,omitempty"`
}

func (m *Value_Range) Reset()         { *m = Value_Range{} }
func (m *Value_Range) String() string { return proto.CompactTextString(m) }
func (*Value_Range) ProtoMessage()    {}

func (m *Value_Range) GetBegin() uint64 {
	if m != nil {
		return m.Begin
	}
	return 0
}

func (m *Value_Range) GetEnd() uint64 {
	if m != nil {
		return m.End
	}
	return 0
}

type Value_Ranges struct {
	Range []*Value_Range `protobuf:"bytes,1,rep,name=range,proto3" json:"range,omitempty"`
}

func (m *Value_Ranges) Reset()         { *m = Value_Ranges{} }
func (m *Value_Ranges) String() string { return proto.CompactTextString(m) }
func (*Value_Ranges) ProtoMessage()    {}

func (m *Value_Ranges) GetRange() []*Value_Range {
	if m != nil {
		return m.Range
	}
	return nil
}

// Resource is one named resource of an offer or task.
// Scalar is set for SCALAR resources and Ranges for RANGES resources.
type Resource struct {
	Name   string        `protobuf:"bytes,1,opt,name=name,proto3" json:"name,omitempty"`
	Type   Value_Type    `protobuf:"varint,2,opt,name=type,proto3,enum=batchd.mesos.Value_Type" json:"type,omitempty"`
	Scalar *Value_Scalar `protobuf:"bytes,3,opt,name=scalar,proto3" json:"scalar,omitempty"`
	Ranges *Value_Ranges `protobuf:"bytes,4,opt,name=ranges,proto3" json:"ranges,omitempty"`
	Role   string        `protobuf:"bytes,6,opt,name=role,proto3" json:"role,omitempty"`
}

func (m *Resource) Reset()         { *m = Resource{} }
func (m *Resource) String() string { return proto.CompactTextString(m) }
func (*Resource) ProtoMessage()    {}

func (m *Resource) GetName() string {
	if m != nil {
		return m.Name
	}
	return ""
}

func (m *Resource) GetType() Value_Type {
	if m != nil {
		return m.Type
	}
	return Value_SCALAR
}

func (m *Resource) GetScalar() *Value_Scalar {
	if m != nil {
		return m.Scalar
	}
	return nil
}

func (m *Resource) GetRanges() *Value_Ranges {
	if m != nil {
		return m.Ranges
	}
	return nil
}

func (m *Resource) GetRole() string {
	if m != nil {
		return m.Role
	}
	return ""
}

type TaskID struct {
	Value string `protobuf:"bytes,1,opt,name=value,proto3" json:"value,omitempty"`
}

func (m *TaskID) Reset()         { *m = TaskID{} }
func (m *TaskID) String() string { return proto.CompactTextString(m) }
func (*TaskID) ProtoMessage()    {}

func (m *TaskID) GetValue() string {
	if m != nil {
		return m.Value
	}
	return ""
}

type AgentID struct {
	Value string `protobuf:"bytes,1,opt,name=value,proto3" json:"value,omitempty"`
}

func (m *AgentID) Reset()         { *m = AgentID{} }
func (m *AgentID) String() string { return proto.CompactTextString(m) }
func (*AgentID) ProtoMessage()    {}

func (m *AgentID) GetValue() string {
	if m != nil {
		return m.Value
	}
	return ""
}

// TaskInfo describes a task to launch. Data is the opaque payload handed to
// the executor.
type TaskInfo struct {
	Name      string      `protobuf:"bytes,1,opt,name=name,proto3" json:"name,omitempty"`
	TaskId    *TaskID     `protobuf:"bytes,2,opt,name=task_id,json=taskId,proto3" json:"task_id,omitempty"`
	AgentId   *AgentID    `protobuf:"bytes,3,opt,name=agent_id,json=agentId,proto3" json:"agent_id,omitempty"`
	Resources []*Resource `protobuf:"bytes,4,rep,name=resources,proto3" json:"resources,omitempty"`
	Data      []byte      `protobuf:"bytes,6,opt,name=data,proto3" json:"data,omitempty"`
}

func (m *TaskInfo) Reset()         { *m = TaskInfo{} }
func (m *TaskInfo) String() string { return proto.CompactTextString(m) }
func (*TaskInfo) ProtoMessage()    {}

func (m *TaskInfo) GetName() string {
	if m != nil {
		return m.Name
	}
	return ""
}

func (m *TaskInfo) GetTaskId() *TaskID {
	if m != nil {
		return m.TaskId
	}
	return nil
}

func (m *TaskInfo) GetAgentId() *AgentID {
	if m != nil {
		return m.AgentId
	}
	return nil
}

func (m *TaskInfo) GetResources() []*Resource {
	if m != nil {
		return m.Resources
	}
	return nil
}

func (m *TaskInfo) GetData() []byte {
	if m != nil {
		return m.Data
	}
	return nil
}

type TaskState int32

const (
	TaskState_TASK_STARTING TaskState = 0
	TaskState_TASK_RUNNING  TaskState = 1
	TaskState_TASK_FINISHED TaskState = 2
	TaskState_TASK_FAILED   TaskState = 3
	TaskState_TASK_KILLED   TaskState = 4
	TaskState_TASK_LOST     TaskState = 5
	TaskState_TASK_STAGING  TaskState = 6
)

var TaskState_name = map[int32]string{
	0: "TASK_STARTING",
	1: "TASK_RUNNING",
	2: "TASK_FINISHED",
	3: "TASK_FAILED",
	4: "TASK_KILLED",
	5: "TASK_LOST",
	6: "TASK_STAGING",
}

var TaskState_value = map[string]int32{
	"TASK_STARTING": 0,
	"TASK_RUNNING":  1,
	"TASK_FINISHED": 2,
	"TASK_FAILED":   3,
	"TASK_KILLED":   4,
	"TASK_LOST":     5,
	"TASK_STAGING":  6,
}

func (x TaskState) String() string {
	if s, ok := TaskState_name[int32(x)]; ok {
		return s
	}
	return fmt.Sprintf("TaskState(%d)", int32(x))
}

// IsTerminal reports whether no further update follows this state.
func (x TaskState) IsTerminal() bool {
	switch x {
	case TaskState_TASK_FINISHED, TaskState_TASK_FAILED, TaskState_TASK_KILLED, TaskState_TASK_LOST:
		return true
	}
	return false
}

// TaskStatus is one status update about a task. Timestamp is seconds since
// the epoch.
type TaskStatus struct {
	TaskId    *TaskID   `protobuf:"bytes,1,opt,name=task_id,json=taskId,proto3" json:"task_id,omitempty"`
	State     TaskState `protobuf:"varint,2,opt,name=state,proto3,enum=batchd.mesos.TaskState" json:"state,omitempty"`
	Message   string    `protobuf:"bytes,4,opt,name=message,proto3" json:"message,omitempty"`
	Data      []byte    `protobuf:"bytes,3,opt,name=data,proto3" json:"data,omitempty"`
	Timestamp float64   `protobuf:"fixed64,6,opt,name=timestamp,proto3" json:"timestamp,omitempty"`
}

func (m *TaskStatus) Reset()         { *m = TaskStatus{} }
func (m *TaskStatus) String() string { return proto.CompactTextString(m) }
func (*TaskStatus) ProtoMessage()    {}

func (m *TaskStatus) GetTaskId() *TaskID {
	if m != nil {
		return m.TaskId
	}
	return nil
}

func (m *TaskStatus) GetState() TaskState {
	if m != nil {
		return m.State
	}
	return TaskState_TASK_STARTING
}

func (m *TaskStatus) GetMessage() string {
	if m != nil {
		return m.Message
	}
	return ""
}

func (m *TaskStatus) GetData() []byte {
	if m != nil {
		return m.Data
	}
	return nil
}

func (m *TaskStatus) GetTimestamp() float64 {
	if m != nil {
		return m.Timestamp
	}
	return 0
}

func init() {
	proto.RegisterEnum("batchd.mesos.Value_Type", Value_Type_name, Value_Type_value)
	proto.RegisterEnum("batchd.mesos.TaskState", TaskState_name, TaskState_value)
	proto.RegisterType((*Value_Scalar)(nil), "batchd.mesos.Value.Scalar")
	proto.RegisterType((*Value_Range)(nil), "batchd.mesos.Value.Range")
	proto.RegisterType((*Value_Ranges)(nil), "batchd.mesos.Value.Ranges")
	proto.RegisterType((*Resource)(nil), "batchd.mesos.Resource")
	proto.RegisterType((*TaskID)(nil), "batchd.mesos.TaskID")
	proto.RegisterType((*AgentID)(nil), "batchd.mesos.AgentID")
	proto.RegisterType((*TaskInfo)(nil), "batchd.mesos.TaskInfo")
	proto.RegisterType((*TaskStatus)(nil), "batchd.mesos.TaskStatus")
}
