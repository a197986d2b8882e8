// Package resource converts between the cluster manager's named resource
// descriptors and the flat Resource value used for admission and process setup.
package resource

import (
	"fmt"
	"strings"

	"github.com/batchd/batchd/mesos"
)

// Resource names understood by Decode.
const (
	CPUs  = "cpus"
	Mem   = "mem"
	Disk  = "disk"
	GPUs  = "gpus"
	Ports = "ports"
)

// MaxPort is the highest port a decoded range can hold.
const MaxPort = 65535

// Range is an inclusive port range.
type Range struct {
	Begin int
	End   int
}

// Len is the number of ports in r, zero for an inverted range.
func (r Range) Len() int {
	if r.End < r.Begin {
		return 0
	}
	return r.End - r.Begin + 1
}

func (r Range) String() string {
	return fmt.Sprintf("%d-%d", r.Begin, r.End)
}

// Resource is a decoded amount of cpu, memory, disk, gpu and ports.
// Port ranges keep the order and overlap of their source.
type Resource struct {
	CPU    float64
	MemMB  int
	DiskMB int
	GPU    int
	Ports  []Range
}

// Decode scans an offer's resource list. Scalars keep the last value seen
// per name; integer quantities are truncated toward zero. Port ranges are
// collected in encounter order; ranges starting above MaxPort are dropped
// and ends are capped at it. Unknown names are ignored.
func Decode(resources []*mesos.Resource) Resource {
	var r Resource
	for _, res := range resources {
		switch res.GetName() {
		case CPUs:
			r.CPU = nonNegative(res.GetScalar().GetValue())
		case Mem:
			r.MemMB = truncate(res.GetScalar().GetValue())
		case Disk:
			r.DiskMB = truncate(res.GetScalar().GetValue())
		case GPUs:
			r.GPU = truncate(res.GetScalar().GetValue())
		case Ports:
			for _, rg := range res.GetRanges().GetRange() {
				if rg.GetBegin() > MaxPort {
					continue
				}
				r.Ports = append(r.Ports, Range{Begin: int(rg.GetBegin()), End: port(rg.GetEnd())})
			}
		}
	}
	return r
}

// port caps v at MaxPort.
func port(v uint64) int {
	if v > MaxPort {
		return MaxPort
	}
	return int(v)
}

func truncate(v float64) int {
	return int(nonNegative(v))
}

func nonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

// Construct builds cpus and mem descriptors.
func Construct(cpu float64, memMB int) []*mesos.Resource {
	return []*mesos.Resource{
		mesos.Scalar(CPUs, cpu),
		mesos.Scalar(Mem, float64(memMB)),
	}
}

// ConstructWithDisk builds cpus, mem, disk and gpus descriptors.
func ConstructWithDisk(cpu float64, memMB, diskMB, gpu int) []*mesos.Resource {
	list := Construct(cpu, memMB)
	list = append(list, BuildDisk(diskMB))
	list = append(list, mesos.Scalar(GPUs, float64(gpu)))
	return list
}

func BuildDisk(sizeMB int) *mesos.Resource {
	return mesos.Scalar(Disk, float64(sizeMB))
}

// BuildPorts builds a ports descriptor, or nil when there are no ranges.
func BuildPorts(ranges []Range) *mesos.Resource {
	if len(ranges) == 0 {
		return nil
	}
	rs := make([]*mesos.Value_Range, 0, len(ranges))
	for _, r := range ranges {
		rs = append(rs, &mesos.Value_Range{Begin: uint64(r.Begin), End: uint64(r.End)})
	}
	return mesos.Ranges(Ports, rs...)
}

// Encode is the inverse of Decode for a full Resource.
func (r Resource) Encode() []*mesos.Resource {
	list := ConstructWithDisk(r.CPU, r.MemMB, r.DiskMB, r.GPU)
	if p := BuildPorts(r.Ports); p != nil {
		list = append(list, p)
	}
	return list
}

// NumPorts counts the ports across all ranges.
func (r Resource) NumPorts() int {
	n := 0
	for _, p := range r.Ports {
		n += p.Len()
	}
	return n
}

// PortList expands the ranges into individual ports, in order.
func (r Resource) PortList() []int {
	ports := make([]int, 0, r.NumPorts())
	for _, rg := range r.Ports {
		for p := rg.Begin; p <= rg.End; p++ {
			ports = append(ports, p)
		}
	}
	return ports
}

func (r Resource) String() string {
	ports := make([]string, 0, len(r.Ports))
	for _, p := range r.Ports {
		ports = append(ports, p.String())
	}
	return fmt.Sprintf("cpu=%g mem=%dMB disk=%dMB gpu=%d ports=[%s]",
		r.CPU, r.MemMB, r.DiskMB, r.GPU, strings.Join(ports, ","))
}
