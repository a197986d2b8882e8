// Package fake provides an Execer whose processes run until a test ends them.
package fake

import (
	"fmt"
	"sync"

	"github.com/batchd/batchd/runner/execer"
)

// SimExecer records every command and hands back SimProcesses.
// Set StartErr to make Exec fail.
type SimExecer struct {
	mu        sync.Mutex
	StartErr  error
	commands  []execer.Command
	processes []*SimProcess
	// Output written to the command's Stdout when it is started.
	Stdout string
}

func NewSimExecer() *SimExecer {
	return &SimExecer{}
}

func (e *SimExecer) Exec(command execer.Command) (execer.Process, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.commands = append(e.commands, command)
	if e.StartErr != nil {
		return nil, e.StartErr
	}
	if len(command.Argv) == 0 {
		return nil, fmt.Errorf("No command specified.")
	}
	if e.Stdout != "" && command.Stdout != nil {
		if _, err := command.Stdout.Write([]byte(e.Stdout)); err != nil {
			return nil, err
		}
	}
	p := &SimProcess{}
	p.status.State = execer.RUNNING
	e.processes = append(e.processes, p)
	return p, nil
}

// Commands returns the commands passed to Exec so far.
func (e *SimExecer) Commands() []execer.Command {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]execer.Command(nil), e.commands...)
}

// Processes returns the processes started so far.
func (e *SimExecer) Processes() []*SimProcess {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*SimProcess(nil), e.processes...)
}

// Process returns the i-th started process, or nil.
func (e *SimExecer) Process(i int) *SimProcess {
	e.mu.Lock()
	defer e.mu.Unlock()
	if i < 0 || i >= len(e.processes) {
		return nil
	}
	return e.processes[i]
}

// SimProcess stays RUNNING until Complete, Fail or a Kill ends it.
// Killed processes complete with KillExitCode.
type SimProcess struct {
	status       execer.ProcessStatus
	mu           sync.Mutex
	killed       bool
	KillExitCode int
}

func (p *SimProcess) Poll() execer.ProcessStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

func (p *SimProcess) Kill() error {
	p.mu.Lock()
	p.killed = true
	code := p.KillExitCode
	p.mu.Unlock()
	if code == 0 {
		code = 143
	}
	p.setStatus(execer.ProcessStatus{State: execer.COMPLETE, ExitCode: code})
	return nil
}

// Killed reports whether Kill was called.
func (p *SimProcess) Killed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.killed
}

// Complete ends the process with exitCode.
func (p *SimProcess) Complete(exitCode int) {
	p.setStatus(execer.ProcessStatus{State: execer.COMPLETE, ExitCode: exitCode})
}

// Fail ends the process without an exit code.
func (p *SimProcess) Fail(msg string) {
	p.setStatus(execer.ProcessStatus{State: execer.FAILED, Error: msg})
}

func (p *SimProcess) setStatus(status execer.ProcessStatus) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.status.State.IsDone() {
		return
	}
	p.status = status
}
