// Package commands implements the mdreview command line.
package commands

import (
	"os"
	"path/filepath"
	"runtime"

	"mdreview/api/internal/client"
)

const DefaultBaseURL = "http://localhost:8787"

type Flags struct {
	BaseURL  string
	LogLevel string
	LogFile  string

	api *client.Client
}

// Client returns the API client for BaseURL.
func (f *Flags) Client() *client.Client {
	if f.api == nil {
		f.api = client.New(f.BaseURL)
	}
	return f.api
}

// DefaultLogFile returns the default log file path using the system's state
// directory.
func DefaultLogFile() string {
	if stateHome := os.Getenv("XDG_STATE_HOME"); stateHome != "" {
		return filepath.Join(stateHome, "mdreview", "mdreview.log")
	}

	home, _ := os.UserHomeDir()
	if runtime.GOOS == "darwin" {
		return filepath.Join(home, "Library", "Logs", "mdreview", "mdreview.log")
	}
	return filepath.Join(home, ".local", "state", "mdreview", "mdreview.log")
}
