package commands

import (
	"log/slog"
	"path/filepath"

	"github.com/rfenaux/ctm/internal/actions"
	"github.com/rfenaux/ctm/internal/app"
	"github.com/rfenaux/ctm/internal/config"
)

type printedError struct {
	err error
}

func (e printedError) Error() string {
	// Intentionally hide the original error: the JSON error response is the output.
	return "error already printed"
}

// newService resolves the store root and merged domain config, then wires
// an actions.Service over them. This is the one place every command goes
// through to reach the domain layer (mirrors the teacher's openDB/withDB).
func newService() (*actions.Service, error) {
	root, err := app.RootDir()
	if err != nil {
		return nil, err
	}
	if err := app.EnsureRootDir(); err != nil {
		return nil, err
	}

	cfg, err := config.Load(filepath.Join(root, "config.json"), projectConfigPath())
	if err != nil {
		return nil, err
	}

	return actions.New(root, cfg), nil
}

// projectConfigPath looks for a .ctm/config.json overlay under the current
// directory, matching spec §6's "per-project config file, merged over the
// global one".
func projectConfigPath() string {
	return filepath.Join(".ctm", "config.json")
}

func withService(fn func(svc *actions.Service) error) error {
	svc, err := newService()
	if err != nil {
		return cmdErr(err)
	}
	if err := fn(svc); err != nil {
		return cmdErr(err)
	}
	return nil
}

func cmdErr(err error) error {
	if err == nil {
		return nil
	}
	slog.Error("command error", "error", err.Error())
	return printedError{err: err}
}
