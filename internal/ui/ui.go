// Package ui provides the live status dashboard shown by `status
// --watch`: a bubbletea table of every registered project's index
// state, refreshed on a timer.
package ui

import (
	"os"
)

// ProjectRow is one line of the status dashboard.
type ProjectRow struct {
	Name        string
	Path        string
	Status      string
	Progress    int
	TotalFiles  int
	TotalChunks int
	LastIndexed string
}

// RefreshFunc produces the current set of rows. Called once per tick.
type RefreshFunc func() []ProjectRow

// IsTTY reports whether f is a terminal character device. Implemented
// on os.FileInfo.Mode() rather than an isatty library: the only
// information needed is the ModeCharDevice bit, which the standard
// library already exposes.
func IsTTY(f *os.File) bool {
	if f == nil {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

// DetectNoColor reports whether the NO_COLOR environment variable is set.
func DetectNoColor() bool {
	_, ok := os.LookupEnv("NO_COLOR")
	return ok
}

// DetectCI reports whether common CI environment variables are set.
func DetectCI() bool {
	for _, v := range []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL"} {
		if _, ok := os.LookupEnv(v); ok {
			return true
		}
	}
	return false
}
