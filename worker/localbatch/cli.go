package localbatch

import (
	"context"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	batchderrors "github.com/batchd/batchd/common/errors"
	"github.com/batchd/batchd/common/stats"
	"github.com/batchd/batchd/os/temp"
	"github.com/batchd/batchd/runner/execer"
	osexecer "github.com/batchd/batchd/runner/execer/os"
	"github.com/batchd/batchd/runner/local"
	"github.com/batchd/batchd/scheduler/domain"
	"github.com/batchd/batchd/worker/worker/config"
)

// Injector supplies the process and file layers. The binary uses the host;
// tests use fakes.
type Injector interface {
	Execer(cfg config.WorkerConfigs) execer.Execer
	Stager(cfg config.WorkerConfigs) local.FileStager
}

type HostInjector struct{}

func (HostInjector) Execer(cfg config.WorkerConfigs) execer.Execer {
	return osexecer.NewExecerWithAbortTimeout(cfg.AbortTimeout)
}

func (HostInjector) Stager(cfg config.WorkerConfigs) local.FileStager {
	return local.NewHTTPStager(afero.NewOsFs(), local.MakePesterClient(cfg.Staging.Tries))
}

type cli struct {
	inj Injector
	out io.Writer
	cfg config.WorkerConfigs

	configPath string
	preset     string
	logLevel   string
}

type runFlags struct {
	app        string
	owner      string
	name       string
	cpu        int
	memMB      int
	gpu        int
	diskMB     int
	ports      int
	priority   int
	count      int
	env        map[string]string
	files      []string
	trust      bool
	keep       bool
	showOutput bool
	showStats  bool
}

// MakeCLI builds the localbatch command tree.
func MakeCLI(inj Injector, out io.Writer) *cobra.Command {
	c := &cli{inj: inj, out: out}
	rootCmd := &cobra.Command{
		Use:               "localbatch",
		Short:             "localbatch runs batch jobs as processes on this host",
		SilenceUsage:      true,
		PersistentPreRunE: c.setup,
	}
	rootCmd.PersistentFlags().StringVar(&c.configPath, "config", "", "worker config file (YAML or JSON)")
	rootCmd.PersistentFlags().StringVar(&c.preset, "preset", "default", "named config used when --config is not given")
	rootCmd.PersistentFlags().StringVar(&c.logLevel, "log_level", "", "Log everything at this level and above (error|info|debug), overrides the config")

	rootCmd.AddCommand(c.runCmd())
	rootCmd.AddCommand(&cobra.Command{
		Use:   "config",
		Short: "print the effective worker config",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			text, err := c.cfg.Text()
			if err != nil {
				return err
			}
			_, err = c.out.Write(text)
			return err
		},
	})
	return rootCmd
}

func (c *cli) setup(*cobra.Command, []string) error {
	var err error
	if c.configPath != "" {
		c.cfg, err = config.Load(c.configPath)
	} else {
		c.cfg, err = config.GetWorkerConfig(c.preset)
	}
	if err != nil {
		return err
	}
	if c.logLevel != "" {
		c.cfg.LogLevel = c.logLevel
	}
	level, err := log.ParseLevel(c.cfg.LogLevel)
	if err != nil {
		return err
	}
	log.SetLevel(level)
	return nil
}

func (c *cli) runCmd() *cobra.Command {
	f := &runFlags{}
	r := &cobra.Command{
		Use:   "run [flags] -- command [args...]",
		Short: "run a command as one or more batch jobs and wait for them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd.Context(), f, args)
		},
	}
	fl := r.Flags()
	fl.StringVar(&f.app, "app", "local", "application id of the jobs")
	fl.StringVar(&f.owner, "owner", os.Getenv("USER"), "application owner")
	fl.StringVar(&f.name, "name", "", "job name")
	fl.IntVar(&f.cpu, "cpu", 1, "cpus per job")
	fl.IntVar(&f.memMB, "mem", domain.MinMemMB, "memory per job in MB")
	fl.IntVar(&f.gpu, "gpu", 0, "gpus per job")
	fl.IntVar(&f.diskMB, "disk", 0, "disk per job in MB")
	fl.IntVar(&f.ports, "ports", 0, "ports per job")
	fl.IntVar(&f.priority, "priority", 0, "job priority, higher runs first")
	fl.IntVar(&f.count, "count", 1, "number of copies of the job")
	fl.StringToStringVar(&f.env, "env", nil, "extra environment, KEY=VALUE")
	fl.StringSliceVar(&f.files, "file", nil, "persistent file url staged into each sandbox")
	fl.BoolVar(&f.trust, "trust_files", false, "reuse persistent files already present in a sandbox")
	fl.BoolVar(&f.keep, "keep", false, "keep task sandboxes after the run")
	fl.BoolVar(&f.showOutput, "show_output", false, "print each job's stdout")
	fl.BoolVar(&f.showStats, "stats", false, "print stats after the run")
	return r
}

func (c *cli) run(ctx context.Context, f *runFlags, args []string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	root, err := temp.TempDirIn(c.cfg.SandboxDir)
	if err != nil {
		return err
	}
	if !f.keep {
		defer root.Remove()
	}

	stat := stats.DefaultStatsReceiver()
	d := NewDriver(c.cfg, c.inj.Execer(c.cfg), c.inj.Stager(c.cfg), root, stat)
	owner := f.owner
	if owner == "" {
		owner = "nobody"
	}
	app := domain.NewApplication(f.app, owner)
	app.PersistentFiles = f.files
	if err := d.RegisterApp(app); err != nil {
		return err
	}

	for i := 0; i < f.count; i++ {
		_, err := d.Submit(domain.JobRequest{
			AppID:        f.app,
			Name:         f.name,
			Cmd:          strings.Join(args, " "),
			Env:          f.env,
			CPU:          f.cpu,
			MemMB:        f.memMB,
			GPU:          f.gpu,
			DiskMB:       f.diskMB,
			Ports:        f.ports,
			Priority:     f.priority,
			TrustPVFiles: f.trust,
		})
		if err != nil {
			return err
		}
	}

	jobs, runErr := d.Run(ctx)
	for _, job := range jobs {
		sandbox := root.Path(job.TaskID())
		fmt.Fprintf(c.out, "%s\n", job)
		if f.keep {
			fmt.Fprintf(c.out, "  sandbox: %s\n", sandbox)
		}
		if f.showOutput && job.TaskID() != "" {
			if out, err := ioutil.ReadFile(filepath.Join(sandbox, local.StdoutFile)); err == nil {
				c.out.Write(out)
			}
		}
	}
	if f.showStats {
		c.out.Write(stat.Render(true))
		fmt.Fprintln(c.out)
	}
	if runErr != nil {
		return batchderrors.NewError(runErr, batchderrors.SignalExitCodeBase+batchderrors.ExitCode(syscall.SIGINT))
	}
	return jobsError(jobs)
}

// jobsError carries the exit code of the first job that did not succeed.
func jobsError(jobs []*domain.Job) error {
	for _, job := range jobs {
		if code, ok := job.Result(); ok && code != 0 {
			return batchderrors.NewError(errors.Errorf("job %d exited with %d", job.ID(), code), batchderrors.ExitCode(code))
		}
		if reason, ok := job.Reason(); ok {
			return batchderrors.NewError(errors.Errorf("job %d was killed: %s", job.ID(), reason), 1)
		}
	}
	return nil
}
