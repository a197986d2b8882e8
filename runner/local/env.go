package local

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/batchd/batchd/resource"
)

// Environment variables derived from a task's assigned resources.
const (
	EnvCPU     = "BATCHD_CPU"
	EnvMem     = "BATCHD_MEM"
	EnvDisk    = "BATCHD_DISK"
	EnvGPU     = "BATCHD_GPU"
	EnvSandbox = "BATCHD_SANDBOX"
	EnvPorts   = "PORTS"
	EnvHome    = "HOME"
)

// EnvBuilder assembles a task environment. Resource entries go in first,
// then job entries, then HOME, so a job cannot move HOME out of its sandbox.
type EnvBuilder struct {
	env  map[string]string
	home string
}

func NewEnvBuilder(res resource.Resource, sandbox string) *EnvBuilder {
	env := map[string]string{
		EnvCPU:     strconv.Itoa(int(res.CPU)),
		EnvMem:     strconv.Itoa(res.MemMB),
		EnvDisk:    strconv.Itoa(res.DiskMB),
		EnvGPU:     strconv.Itoa(res.GPU),
		EnvSandbox: sandbox,
	}
	ports := res.PortList()
	strs := make([]string, 0, len(ports))
	for i, p := range ports {
		env[fmt.Sprintf("PORT%d", i)] = strconv.Itoa(p)
		strs = append(strs, strconv.Itoa(p))
	}
	if len(strs) > 0 {
		env[EnvPorts] = strings.Join(strs, ",")
	}
	return &EnvBuilder{env: env, home: sandbox}
}

func (b *EnvBuilder) PutAll(env map[string]string) *EnvBuilder {
	for k, v := range env {
		b.env[k] = v
	}
	return b
}

func (b *EnvBuilder) Build() map[string]string {
	out := make(map[string]string, len(b.env)+1)
	for k, v := range b.env {
		out[k] = v
	}
	out[EnvHome] = b.home
	return out
}
