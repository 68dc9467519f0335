package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/eidetic-labs/eideticmcp/internal/logging"
)

// newLogsCmd prints or tails the structured log files logging.Setup
// writes: the server's own log and the stop-hook's detached re-indexer
// subprocess log, kept separate by logging.ReindexConfig so concurrent
// reindex runs never interleave with the server stream.
func newLogsCmd() *cobra.Command {
	var source string
	var explicit string
	var follow bool
	var lines int

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "View eideticmcp log files",
		RunE: func(cmd *cobra.Command, _ []string) error {
			src := logging.ParseLogSource(source)
			paths, err := logging.FindLogFileBySource(src, explicit)
			if err != nil {
				return err
			}

			for _, p := range paths {
				if len(paths) > 1 {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "==> %s <==\n", p)
				}
				if err := printTail(cmd, p, lines); err != nil {
					return err
				}
			}

			if follow {
				if len(paths) != 1 {
					return fmt.Errorf("--follow requires exactly one log source, found %d", len(paths))
				}
				return followFile(cmd, paths[0])
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&source, "source", "server", "Log source: server, reindex, all")
	cmd.Flags().StringVar(&explicit, "file", "", "Explicit log file path, overriding --source")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Follow the log file as it grows")
	cmd.Flags().IntVarP(&lines, "lines", "n", 100, "Number of trailing lines to print")

	return cmd
}

// printTail prints the last n lines of path. It reads the whole file,
// which is acceptable here since logging.RotatingWriter caps file size
// well below what's practical to buffer.
func printTail(cmd *cobra.Command, path string, n int) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var all []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		all = append(all, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read log file: %w", err)
	}

	start := 0
	if n > 0 && len(all) > n {
		start = len(all) - n
	}
	out := cmd.OutOrStdout()
	for _, line := range all[start:] {
		_, _ = fmt.Fprintln(out, line)
	}
	return nil
}

// followFile polls path for new content, matching tail -f without
// depending on inotify support across platforms.
func followFile(cmd *cobra.Command, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("seek log file: %w", err)
	}

	out := cmd.OutOrStdout()
	reader := bufio.NewReader(f)
	for {
		line, err := reader.ReadString('\n')
		if len(line) > 0 {
			_, _ = fmt.Fprint(out, line)
		}
		if err == io.EOF {
			select {
			case <-cmd.Context().Done():
				return nil
			case <-time.After(250 * time.Millisecond):
			}
			continue
		}
		if err != nil {
			return fmt.Errorf("read log file: %w", err)
		}
	}
}
