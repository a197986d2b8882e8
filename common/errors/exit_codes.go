package errors

type ExitCode int

const (
	// Reported with TASK_KILLED when a task never got a process to observe.
	KilledExitCode ExitCode = -42

	// Sandbox or file staging failed before the command ran.
	PreProcessingFailureExitCode ExitCode = 70

	CouldNotExecExitCode ExitCode = 110

	// Signal deaths are reported as SignalExitCodeBase plus the signal number.
	SignalExitCodeBase ExitCode = 128
)
