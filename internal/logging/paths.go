package logging

import (
	"fmt"
	"os"
	"path/filepath"
)

// DefaultLogDir returns the log directory (~/.eideticmcp/logs/), falling
// back to the temp directory when no home directory resolves.
func DefaultLogDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".eideticmcp", "logs")
	}
	return filepath.Join(home, ".eideticmcp", "logs")
}

// DefaultLogPath is the server log: the long-running `serve` command and
// every other foreground CLI invocation write here.
func DefaultLogPath() string {
	return filepath.Join(DefaultLogDir(), "server.log")
}

// ReindexLogPath is the log for the detached targeted re-indexer
// subprocesses the stop-hook spawns. It is a distinct file because many
// short-lived reindex subprocesses can run concurrently with the server
// and with each other; a separate stream keeps hook-triggered activity
// attributable without interleaving into the server's log.
func ReindexLogPath() string {
	return filepath.Join(DefaultLogDir(), "reindex.log")
}

// LogSource selects which log stream(s) the logs command reads.
type LogSource string

const (
	LogSourceServer  LogSource = "server"
	LogSourceReindex LogSource = "reindex"
	LogSourceAll     LogSource = "all"
)

// ParseLogSource maps a --source flag value to a LogSource, defaulting
// to the server stream.
func ParseLogSource(s string) LogSource {
	switch s {
	case "reindex":
		return LogSourceReindex
	case "all":
		return LogSourceAll
	default:
		return LogSourceServer
	}
}

// sourcePaths lists the candidate files for a source.
func sourcePaths(source LogSource) []string {
	switch source {
	case LogSourceReindex:
		return []string{ReindexLogPath()}
	case LogSourceAll:
		return []string{DefaultLogPath(), ReindexLogPath()}
	default:
		return []string{DefaultLogPath()}
	}
}

// FindLogFileBySource resolves the log files to read: an explicit path
// when given, otherwise whichever of the source's candidate files exist.
func FindLogFileBySource(source LogSource, explicit string) ([]string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return nil, fmt.Errorf("log file not found: %s", explicit)
		}
		return []string{explicit}, nil
	}

	candidates := sourcePaths(source)
	var found []string
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			found = append(found, p)
		}
	}
	if len(found) == 0 {
		return nil, fmt.Errorf("no log files found for source %q.\nChecked: %v\n\n%s", source, candidates, logHint(source))
	}
	return found, nil
}

// EnsureLogDir creates the log directory if absent.
func EnsureLogDir() error {
	return os.MkdirAll(DefaultLogDir(), 0o755)
}

// logHint explains how a missing log stream comes to exist.
func logHint(source LogSource) string {
	switch source {
	case LogSourceReindex:
		return "Reindex logs appear once an editor Stop event triggers the\nshadow-index hook; none has run yet in this data directory."
	case LogSourceAll:
		return "To generate logs:\n  Server:  eideticmcp --debug serve\n  Reindex: triggered by the stop-hook after an editor session ends"
	default:
		return "To generate server logs:\n  eideticmcp --debug serve"
	}
}
