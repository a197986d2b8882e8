package mesos

// Scalar builds a SCALAR resource.
func Scalar(name string, value float64) *Resource {
	return &Resource{
		Name:   name,
		Type:   Value_SCALAR,
		Scalar: &Value_Scalar{Value: value},
	}
}

// Ranges builds a RANGES resource from begin/end pairs.
func Ranges(name string, ranges ...*Value_Range) *Resource {
	return &Resource{
		Name:   name,
		Type:   Value_RANGES,
		Ranges: &Value_Ranges{Range: ranges},
	}
}

func NewTaskID(id string) *TaskID {
	return &TaskID{Value: id}
}
