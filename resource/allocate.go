package resource

// Request is the amount a job asks for. Ports is a count, not a range.
type Request struct {
	CPU    float64
	MemMB  int
	DiskMB int
	GPU    int
	Ports  int
}

// Covers reports whether r has room for req.
func (r Resource) Covers(req Request) bool {
	return r.CPU >= req.CPU &&
		r.MemMB >= req.MemMB &&
		r.DiskMB >= req.DiskMB &&
		r.GPU >= req.GPU &&
		r.NumPorts() >= req.Ports
}

// Allocate carves req out of r. It returns the assigned amount, with the
// lowest available ports in offer order, and what is left of r. ok is false
// and r is returned unchanged when req does not fit.
func (r Resource) Allocate(req Request) (assigned Resource, rest Resource, ok bool) {
	if !r.Covers(req) {
		return Resource{}, r, false
	}
	taken, remaining := takePorts(r.Ports, req.Ports)
	assigned = Resource{
		CPU:    req.CPU,
		MemMB:  req.MemMB,
		DiskMB: req.DiskMB,
		GPU:    req.GPU,
		Ports:  taken,
	}
	rest = Resource{
		CPU:    r.CPU - req.CPU,
		MemMB:  r.MemMB - req.MemMB,
		DiskMB: r.DiskMB - req.DiskMB,
		GPU:    r.GPU - req.GPU,
		Ports:  remaining,
	}
	return assigned, rest, true
}

// takePorts takes n ports from the front of ranges.
func takePorts(ranges []Range, n int) (taken, remaining []Range) {
	for _, rg := range ranges {
		if n == 0 || rg.Len() == 0 {
			if rg.Len() > 0 {
				remaining = append(remaining, rg)
			}
			continue
		}
		if rg.Len() <= n {
			taken = append(taken, rg)
			n -= rg.Len()
			continue
		}
		taken = append(taken, Range{Begin: rg.Begin, End: rg.Begin + n - 1})
		remaining = append(remaining, Range{Begin: rg.Begin + n, End: rg.End})
		n = 0
	}
	return taken, remaining
}

// RequestFor is the request that a previously assigned amount satisfies.
func RequestFor(assigned Resource) Request {
	return Request{
		CPU:    assigned.CPU,
		MemMB:  assigned.MemMB,
		DiskMB: assigned.DiskMB,
		GPU:    assigned.GPU,
		Ports:  assigned.NumPorts(),
	}
}

// Sub removes exactly the amounts and ports of a from r. Ports of a that
// r does not hold are ignored and scalars never go below zero.
func (r Resource) Sub(a Resource) Resource {
	drop := make(map[int]bool, a.NumPorts())
	for _, p := range a.PortList() {
		drop[p] = true
	}
	var ports []int
	for _, p := range r.PortList() {
		if !drop[p] {
			ports = append(ports, p)
		}
	}
	return Resource{
		CPU:    nonNegative(r.CPU - a.CPU),
		MemMB:  truncate(float64(r.MemMB - a.MemMB)),
		DiskMB: truncate(float64(r.DiskMB - a.DiskMB)),
		GPU:    truncate(float64(r.GPU - a.GPU)),
		Ports:  compact(ports),
	}
}

// Add returns r with the amounts and ports of a put back.
func (r Resource) Add(a Resource) Resource {
	ports := append([]Range(nil), r.Ports...)
	ports = append(ports, a.Ports...)
	return Resource{
		CPU:    r.CPU + a.CPU,
		MemMB:  r.MemMB + a.MemMB,
		DiskMB: r.DiskMB + a.DiskMB,
		GPU:    r.GPU + a.GPU,
		Ports:  ports,
	}
}

// compact folds consecutive ports into ranges, keeping their order.
func compact(ports []int) []Range {
	var out []Range
	for _, p := range ports {
		if n := len(out); n > 0 && out[n-1].End+1 == p {
			out[n-1].End = p
			continue
		}
		out = append(out, Range{Begin: p, End: p})
	}
	return out
}
