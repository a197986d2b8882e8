/*
Package server is the admission side of the scheduler: it holds queued jobs,
turns cluster offers into task launches, and folds task status reports back
into job state.

A JobQueue orders QUEUED jobs by priority. A Planner pops jobs, fits each one
into the first offer with room for it, and builds the TaskInfo the executor
receives. A JobTracker implements runner/local.StatusSender: every report it
receives drives the corresponding job through STARTING, STARTED and into
FINISHED or KILLED.

	JobQueue --Pop--> Planner --TaskInfo--> ProcessManager
	    ^                |                        |
	    |               Track                 TaskStatus
	    |                v                        |
	  Push          JobTracker <------------------+
*/
package server
