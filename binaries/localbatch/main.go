package main

import (
	"os"

	log "github.com/sirupsen/logrus"

	batchderrors "github.com/batchd/batchd/common/errors"
	"github.com/batchd/batchd/common/log/hooks"
	"github.com/batchd/batchd/worker/localbatch"
)

// Runs commands as batch jobs on this host. Exits with the code of the
// first job that did not succeed.
func main() {
	log.AddHook(hooks.NewContextHook())

	cmd := localbatch.MakeCLI(localbatch.HostInjector{}, os.Stdout)
	if err := cmd.Execute(); err != nil {
		log.Error(err)
		os.Exit(int(batchderrors.ExitCodeOf(err, 1)))
	}
}
