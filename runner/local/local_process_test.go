package local

import (
	"io/ioutil"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/batchd/batchd/mesos"
	"github.com/batchd/batchd/os/temp"
	"github.com/batchd/batchd/runner/execer"
	osexecer "github.com/batchd/batchd/runner/execer/os"
)

func waitDone(t *testing.T, p *LocalProcess) {
	deadline := time.Now().Add(10 * time.Second)
	for !p.Poll() {
		if time.Now().After(deadline) {
			t.Fatalf("process did not finish")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func newLocalProcess(t *testing.T, taskID, cmd string) (*LocalProcess, *temp.TempDir) {
	root, err := temp.NewTempDir("", "local_process_test")
	require.NoError(t, err)
	t.Cleanup(func() { root.Remove() })
	task := testTask(t, taskID, cmd)
	return NewLocalProcess(task, testMetaJob(t, cmd), osexecer.NewExecer(), NoopStager{}, root), root
}

func TestLocalProcessOutputAndEnv(t *testing.T) {
	p, root := newLocalProcess(t, "task-env",
		`echo "$GREETING $PORT0 $PORTS"; echo "$HOME"; echo "$BATCHD_CPU $BATCHD_MEM"; echo oops >&2`)
	require.NoError(t, p.Start())
	waitDone(t, p)

	assert.Equal(t, 0, p.ExitCode())
	assert.Equal(t, execer.COMPLETE, p.Status().State)
	assert.False(t, p.KillRequested())
	assert.True(t, p.Duration() > 0)

	sandbox := filepath.Join(root.Dir, "task-env")
	assert.Equal(t, sandbox, p.Sandbox())

	out, err := ioutil.ReadFile(filepath.Join(sandbox, StdoutFile))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 3, string(out))
	assert.Equal(t, "hello 31000 31000,31001", lines[0])
	assert.Equal(t, sandbox, lines[1])
	assert.Equal(t, "1 32", lines[2])

	errOut, err := ioutil.ReadFile(filepath.Join(sandbox, StderrFile))
	require.NoError(t, err)
	assert.Equal(t, "oops\n", string(errOut))
}

func TestLocalProcessExitCode(t *testing.T) {
	p, _ := newLocalProcess(t, "task-exit", "exit 7")
	require.NoError(t, p.Start())
	waitDone(t, p)
	assert.Equal(t, 7, p.ExitCode())
}

func TestLocalProcessKill(t *testing.T) {
	p, _ := newLocalProcess(t, "task-sleep", "sleep 100")
	require.NoError(t, p.Start())
	assert.False(t, p.Poll())
	require.NoError(t, p.Kill())
	waitDone(t, p)
	assert.True(t, p.KillRequested())
	assert.Equal(t, 143, p.ExitCode())

	// no-op once done
	assert.NoError(t, p.Kill())
}

func TestLocalProcessKillBeforeStart(t *testing.T) {
	p, _ := newLocalProcess(t, "task-idle", "sleep 100")
	assert.NoError(t, p.Kill())
	assert.True(t, p.KillRequested())
	assert.False(t, p.Poll())

	err := p.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "killed before it started")
	assert.Equal(t, "", p.Sandbox(), "nothing prepared for a killed task")
}

func TestLocalProcessStartTwice(t *testing.T) {
	p, _ := newLocalProcess(t, "task-twice", "true")
	require.NoError(t, p.Start())
	assert.Error(t, p.Start())
	waitDone(t, p)
}

func TestLocalProcessBadTaskID(t *testing.T) {
	root, err := temp.NewTempDir("", "local_process_test")
	require.NoError(t, err)
	defer root.Remove()
	task := testTask(t, "../escape", "true")
	p := NewLocalProcess(task, testMetaJob(t, "true"), osexecer.NewExecer(), NoopStager{}, root)
	assert.Error(t, p.Start())
}

func TestLocalProcessResourcesReachEnv(t *testing.T) {
	root, err := temp.NewTempDir("", "local_process_test")
	require.NoError(t, err)
	defer root.Remove()
	task := testTask(t, "task-gpu", "true")
	task.Resources = append(task.Resources, mesos.Scalar("gpus", 2), mesos.Scalar("disk", 100))
	p := NewLocalProcess(task, testMetaJob(t, "echo $BATCHD_GPU $BATCHD_DISK"), osexecer.NewExecer(), NoopStager{}, root)
	require.NoError(t, p.Start())
	waitDone(t, p)

	out, err := ioutil.ReadFile(filepath.Join(p.Sandbox(), StdoutFile))
	require.NoError(t, err)
	assert.Equal(t, "2 100\n", string(out))
}
