// Package config holds the settings of a local batch worker: where task
// sandboxes live, how often finished processes are reaped, and which
// resources the worker offers to jobs.
package config

import (
	"fmt"
	"io/ioutil"
	"sort"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const DefaultPollInterval = 500 * time.Millisecond

// OfferConfig is what the worker advertises as one offer.
type OfferConfig struct {
	CPUs   float64 `yaml:"cpus"`
	MemMB  int     `yaml:"memMB"`
	DiskMB int     `yaml:"diskMB"`
	GPUs   int     `yaml:"gpus"`
	// Inclusive port range; no ports when PortsEnd is zero.
	PortsBegin int `yaml:"portsBegin"`
	PortsEnd   int `yaml:"portsEnd"`
}

type StagingConfig struct {
	// HTTP tries per persistent file.
	Tries int `yaml:"tries"`
}

type WorkerConfigs struct {
	PollInterval time.Duration `yaml:"pollInterval"`
	// Root for task sandboxes; the system temp dir when empty.
	SandboxDir string `yaml:"sandboxDir"`
	LogLevel   string `yaml:"logLevel"`
	// Grace period between SIGTERM and SIGKILL when a task is killed.
	AbortTimeout time.Duration `yaml:"abortTimeout"`
	// Retries of a rejected terminal status report.
	SendRetries int `yaml:"sendRetries"`
	// Task launches per second and burst; unlimited when LaunchRate is zero.
	LaunchRate  float64       `yaml:"launchRate"`
	LaunchBurst int           `yaml:"launchBurst"`
	Offer       OfferConfig   `yaml:"offer"`
	Staging     StagingConfig `yaml:"staging"`
}

// WorkerConfigsMap the map of available configurations
var WorkerConfigsMap = map[string]WorkerConfigs{
	"default":     defaultConfig,
	"local.local": localLocal,
}

var defaultConfig = WorkerConfigs{
	PollInterval: DefaultPollInterval,
	LogLevel:     "info",
	AbortTimeout: 10 * time.Second,
	SendRetries:  3,
	Offer: OfferConfig{
		CPUs:       4,
		MemMB:      4096,
		DiskMB:     10240,
		PortsBegin: 31000,
		PortsEnd:   31999,
	},
	Staging: StagingConfig{Tries: 7},
}

// localLocal config for local.local - !!! make sure this constant is added to WorkerConfigs map above !!!
var localLocal = WorkerConfigs{
	PollInterval: 100 * time.Millisecond,
	LogLevel:     "debug",
	AbortTimeout: time.Second,
	SendRetries:  1,
	Offer: OfferConfig{
		CPUs:       2,
		MemMB:      1024,
		DiskMB:     1024,
		PortsBegin: 41000,
		PortsEnd:   41099,
	},
	Staging: StagingConfig{Tries: 1},
}

// DefaultConfig returns a copy of the "default" preset.
func DefaultConfig() WorkerConfigs {
	return defaultConfig
}

func selectors() []string {
	keys := make([]string, 0, len(WorkerConfigsMap))
	for k := range WorkerConfigsMap {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// GetWorkerConfig returns the named preset.
func GetWorkerConfig(configSelector string) (WorkerConfigs, error) {
	c, ok := WorkerConfigsMap[configSelector]
	if !ok {
		return WorkerConfigs{}, fmt.Errorf("invalid worker configuration %s, supported values are %v", configSelector, selectors())
	}
	return c, nil
}

// GetWorkerConfigText renders the named preset as YAML.
func GetWorkerConfigText(configSelector string) ([]byte, error) {
	c, err := GetWorkerConfig(configSelector)
	if err != nil {
		return nil, err
	}
	return c.Text()
}

// Text renders c as YAML that Parse reads back.
func (c WorkerConfigs) Text() ([]byte, error) {
	configBytes, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("couldn't render the worker config: %v", err)
	}
	return configBytes, nil
}

// Parse overlays text on the "default" preset and validates the result.
// JSON text is accepted since it is valid YAML. Durations are strings
// such as "500ms".
func Parse(text []byte) (WorkerConfigs, error) {
	c := DefaultConfig()
	if err := yaml.Unmarshal(text, &c); err != nil {
		return WorkerConfigs{}, errors.Wrap(err, "invalid worker config")
	}
	if err := c.Validate(); err != nil {
		return WorkerConfigs{}, err
	}
	return c, nil
}

// Load parses the file at path.
func Load(path string) (WorkerConfigs, error) {
	text, err := ioutil.ReadFile(path)
	if err != nil {
		return WorkerConfigs{}, errors.Wrapf(err, "reading worker config %s", path)
	}
	return Parse(text)
}

func (c WorkerConfigs) Validate() error {
	if c.PollInterval <= 0 {
		return errors.Errorf("pollInterval must be positive, got %v", c.PollInterval)
	}
	if c.AbortTimeout < 0 {
		return errors.Errorf("abortTimeout must not be negative, got %v", c.AbortTimeout)
	}
	if c.SendRetries < 0 {
		return errors.Errorf("sendRetries must not be negative, got %d", c.SendRetries)
	}
	if c.LaunchRate < 0 || (c.LaunchRate > 0 && c.LaunchBurst < 1) {
		return errors.Errorf("launchRate %v needs a positive launchBurst, got %d", c.LaunchRate, c.LaunchBurst)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return errors.Wrap(err, "logLevel")
	}
	o := c.Offer
	if o.CPUs < 0 || o.MemMB < 0 || o.DiskMB < 0 || o.GPUs < 0 {
		return errors.Errorf("offer amounts must not be negative: %+v", o)
	}
	if o.PortsEnd != 0 && (o.PortsBegin <= 0 || o.PortsEnd < o.PortsBegin) {
		return errors.Errorf("bad offer port range %d-%d", o.PortsBegin, o.PortsEnd)
	}
	return nil
}
