package config

import (
	"fmt"
	"io/ioutil"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var tests = []string{"default", "local.local"}

// Tests to ensure config is properly specified
func TestGettingConfigurations(t *testing.T) {
	for _, configSelector := range tests {
		text, err := GetWorkerConfigText(configSelector)
		assert.Nil(t, err, fmt.Sprintf("error getting worker config.  %s", err))

		c, err := Parse(text)
		assert.Nil(t, err, fmt.Sprintf("preset %s does not parse back: %s", configSelector, err))
		assert.Equal(t, WorkerConfigsMap[configSelector], c)
	}

	selector := "invalid.selector"
	config, err := GetWorkerConfigText(selector)
	assert.NotNil(t, err, fmt.Sprintf("configuration returned for %s: %s", selector, config))
}

// TestCreatingConfigStruct test overriding default structure values with values from
// a config file.
func TestCreatingConfigStruct(t *testing.T) {
	c, err := Parse([]byte(`
pollInterval: 250ms
sandboxDir: /var/batchd
offer:
  cpus: 1.5
  gpus: 1
`))
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, c.PollInterval)
	assert.Equal(t, "/var/batchd", c.SandboxDir)
	assert.Equal(t, 1.5, c.Offer.CPUs)
	assert.Equal(t, 1, c.Offer.GPUs)

	// untouched values keep their defaults
	assert.Equal(t, "info", c.LogLevel)
	assert.Equal(t, 4096, c.Offer.MemMB)
	assert.Equal(t, 7, c.Staging.Tries)
}

func TestParseJSON(t *testing.T) {
	c, err := Parse([]byte(`{"logLevel": "warn", "offer": {"memMB": 64}}`))
	require.NoError(t, err)
	assert.Equal(t, "warn", c.LogLevel)
	assert.Equal(t, 64, c.Offer.MemMB)
	assert.Equal(t, DefaultPollInterval, c.PollInterval)
}

func TestParseRejectsBadConfigs(t *testing.T) {
	for _, text := range []string{
		"pollInterval: 0s",
		"pollInterval: soon",
		"logLevel: loud",
		"sendRetries: -1",
		"offer: {memMB: -5}",
		"offer: {portsBegin: 2000, portsEnd: 1000}",
		"offer: [1, 2]",
	} {
		_, err := Parse([]byte(text))
		assert.Error(t, err, text)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "worker.yaml")
	require.NoError(t, ioutil.WriteFile(path, []byte("sendRetries: 5\n"), 0644))
	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5, c.SendRetries)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestLaunchRate(t *testing.T) {
	c, err := Parse([]byte("launchRate: 2.5\nlaunchBurst: 3\n"))
	require.NoError(t, err)
	assert.Equal(t, 2.5, c.LaunchRate)
	assert.Equal(t, 3, c.LaunchBurst)

	_, err = Parse([]byte("launchRate: 2.5\n"))
	assert.Error(t, err)
	_, err = Parse([]byte("launchRate: -1\nlaunchBurst: 1\n"))
	assert.Error(t, err)
}
