package domain

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// VolumePrefix starts every persistent volume id.
const VolumePrefix = "batchd-"

type ContainerType string

const (
	MesosContainer  ContainerType = "mesos"
	DockerContainer ContainerType = "docker"
)

// Container says how a task is isolated. Image is only used by docker.
type Container struct {
	Type  ContainerType `json:"type"`
	Image string        `json:"image,omitempty"`
}

// Application is the registered owner of a set of jobs and the files
// every job of it needs.
type Application struct {
	AppID           string    `json:"appid"`
	PersistentFiles []string  `json:"persistentFiles,omitempty"`
	LargeFiles      []string  `json:"largeFiles,omitempty"`
	Files           []string  `json:"files,omitempty"`
	DiskMB          *int      `json:"diskMB,omitempty"`
	User            *string   `json:"user,omitempty"`
	Owner           string    `json:"owner"`
	Container       Container `json:"container"`
	Enabled         bool      `json:"enabled"`
}

// NewApplication returns an enabled application using the mesos container.
func NewApplication(appID, owner string) *Application {
	return &Application{
		AppID:     appID,
		Owner:     owner,
		Container: Container{Type: MesosContainer},
		Enabled:   true,
	}
}

func (a *Application) Validate() error {
	if a.AppID == "" {
		return errors.New("application appid is required")
	}
	if a.Owner == "" {
		return errors.Errorf("application %s: owner is required", a.AppID)
	}
	switch a.Container.Type {
	case MesosContainer:
	case DockerContainer:
		if a.Container.Image == "" {
			return errors.Errorf("application %s: docker container needs an image", a.AppID)
		}
	default:
		return errors.Errorf("application %s: unknown container type %q", a.AppID, a.Container.Type)
	}
	if a.DiskMB != nil && *a.DiskMB < 0 {
		return errors.Errorf("application %s: negative diskMB %d", a.AppID, *a.DiskMB)
	}
	return nil
}

// VolumeID names the application's persistent volume.
func (a *Application) VolumeID() string {
	return VolumeID(a.AppID)
}

func VolumeID(appID string) string {
	return VolumePrefix + appID
}

// UnmarshalJSON fills in the mesos container when none is given and
// validates the result.
func (a *Application) UnmarshalJSON(b []byte) error {
	type plain Application
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return errors.Wrap(err, "decoding application")
	}
	if p.Container.Type == "" {
		p.Container.Type = MesosContainer
	}
	app := Application(p)
	if err := app.Validate(); err != nil {
		return err
	}
	*a = app
	return nil
}
