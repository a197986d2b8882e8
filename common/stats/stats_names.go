package stats

/*
This file defines all the metrics being collected.   As new metrics are added please follow this pattern.
*/

const (
	/************************* Process manager metrics **************************/
	/*
		tasks handed to StartTask
	*/
	TaskLaunchRequestedCounter = "taskLaunchRequested"

	/*
		tasks whose payload could not be decoded
	*/
	TaskInvalidPayloadCounter = "taskInvalidPayload"

	/*
		tasks whose process could not be started (staging or spawn failure)
	*/
	TaskStartFailureCounter = "taskStartFailure"

	/*
		tasks whose process started and was reported STARTED
	*/
	TaskStartedCounter = "taskStarted"

	/*
		terminal reports by state
	*/
	TaskFinishedCounter = "taskFinished"
	TaskFailedCounter   = "taskFailed"
	TaskKilledCounter   = "taskKilled"

	/*
		kill requests received, including ones for unknown tasks
	*/
	TaskKillRequestedCounter = "taskKillRequested"

	/*
		status reports the sender rejected after all retries
	*/
	TaskStatusSendFailureCounter = "taskStatusSendFailure"

	/*
		number of tasks currently tracked by the manager
	*/
	TaskRunningGauge = "taskRunningGauge"

	/*
		wall time from process start to observed completion
	*/
	TaskRunLatency_ms = "taskRunLatency_ms"

	/*
		time spent in one polling sweep
	*/
	PollSweepLatency_ms = "pollSweepLatency_ms"

	/************************* Scheduler metrics **************************/
	/*
		jobs admitted into the queue
	*/
	JobQueuedCounter = "jobQueued"

	/*
		jobs matched to an offer
	*/
	JobLaunchedCounter = "jobLaunched"

	/*
		offers that matched no job
	*/
	OfferDeclinedCounter = "offerDeclined"

	/*
		jobs waiting in the queue
	*/
	JobQueueLenGauge = "jobQueueLenGauge"

	/*
		status reports for tasks the tracker does not know
	*/
	StatusUnknownTaskCounter = "statusUnknownTask"
)
