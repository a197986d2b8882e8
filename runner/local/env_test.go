package local

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/batchd/batchd/resource"
)

func TestEnvBuilder(t *testing.T) {
	res := resource.Resource{
		CPU:    2.5,
		MemMB:  512,
		DiskMB: 10,
		GPU:    1,
		Ports:  []resource.Range{{Begin: 8000, End: 8001}, {Begin: 9000, End: 9000}},
	}
	env := NewEnvBuilder(res, "/sandbox").
		PutAll(map[string]string{"FOO": "bar", EnvHome: "/elsewhere", EnvCPU: "8"}).
		Build()

	expected := map[string]string{
		EnvCPU:     "8",
		EnvMem:     "512",
		EnvDisk:    "10",
		EnvGPU:     "1",
		EnvSandbox: "/sandbox",
		EnvPorts:   "8000,8001,9000",
		"PORT0":    "8000",
		"PORT1":    "8001",
		"PORT2":    "9000",
		"FOO":      "bar",
		EnvHome:    "/sandbox",
	}
	if diff := cmp.Diff(expected, env); diff != "" {
		t.Errorf("env mismatch (-want +got):\n%s", diff)
	}
}

func TestEnvBuilderNoPorts(t *testing.T) {
	env := NewEnvBuilder(resource.Resource{CPU: 1, MemMB: 32}, "/s").Build()
	if _, ok := env[EnvPorts]; ok {
		t.Errorf("expected no %s, got %v", EnvPorts, env)
	}
	if _, ok := env["PORT0"]; ok {
		t.Errorf("expected no PORT0, got %v", env)
	}
}
