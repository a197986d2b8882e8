package local

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"

	"github.com/pkg/errors"
	"github.com/sethgrid/pester"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// ~2min total of trying with exponential backoff (0 and 1 both mean 1 try total)
const DefaultHttpTries = 7

// FileStager puts an application's persistent files into a task sandbox
// before its process starts.
type FileStager interface {
	// FetchPersistentFiles stores each file of files under dir, named by
	// the last element of its URL path. With trust set, a file already
	// present in dir is used as is.
	FetchPersistentFiles(files []string, dir string, trust bool) error
}

// NoopStager stages nothing.
type NoopStager struct{}

func (NoopStager) FetchPersistentFiles(files []string, dir string, trust bool) error {
	return nil
}

func MakePesterClient(tries int) *pester.Client {
	client := pester.New()
	client.Backoff = pester.ExponentialBackoff
	client.MaxRetries = tries
	client.LogHook = func(e pester.ErrEntry) {
		log.Errorf("Retrying after failed attempt: %+v", e)
	}
	return client
}

// Client is the part of an http client the stager uses.
type Client interface {
	Get(url string) (*http.Response, error)
}

// HTTPStager downloads persistent files over http.
type HTTPStager struct {
	fs     afero.Fs
	client Client
}

func NewHTTPStager(fs afero.Fs, client Client) *HTTPStager {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if client == nil {
		client = MakePesterClient(DefaultHttpTries)
	}
	return &HTTPStager{fs: fs, client: client}
}

func (s *HTTPStager) FetchPersistentFiles(files []string, dir string, trust bool) error {
	for _, f := range files {
		if err := s.fetch(f, dir, trust); err != nil {
			return err
		}
	}
	return nil
}

func fileName(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", errors.Wrapf(err, "bad persistent file url %q", rawURL)
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" || name == "" {
		return "", errors.Errorf("persistent file url %q names no file", rawURL)
	}
	return name, nil
}

func (s *HTTPStager) fetch(rawURL, dir string, trust bool) error {
	name, err := fileName(rawURL)
	if err != nil {
		return err
	}
	dest := path.Join(dir, name)
	if trust {
		if ok, err := afero.Exists(s.fs, dest); err == nil && ok {
			log.Infof("Using existing %s for %s", dest, rawURL)
			return nil
		}
	}

	log.Infof("Fetching %s into %s", rawURL, dest)
	resp, err := s.client.Get(rawURL)
	if err != nil {
		return errors.Wrapf(err, "fetching %s", rawURL)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetching %s: unexpected status %s", rawURL, resp.Status)
	}

	if err := s.fs.MkdirAll(dir, 0755); err != nil {
		return errors.Wrapf(err, "creating %s", dir)
	}
	tmp := dest + ".part"
	out, err := s.fs.Create(tmp)
	if err != nil {
		return errors.Wrapf(err, "creating %s", tmp)
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		s.fs.Remove(tmp)
		return errors.Wrapf(err, "writing %s", tmp)
	}
	if err := out.Close(); err != nil {
		s.fs.Remove(tmp)
		return errors.Wrapf(err, "closing %s", tmp)
	}
	return errors.Wrapf(s.fs.Rename(tmp, dest), "renaming %s", tmp)
}
