package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/runger/nvpick/internal/config"
)

var (
	logsFollow bool
	logsLines  int
)

var logsCmd = &cobra.Command{
	Use:     "logs",
	Short:   "View nvpick logs",
	GroupID: groupSetup,
	Long: `View the nvpick log file.

By default, shows the last 50 lines of the log file.
Use --follow to continuously monitor new log entries, for example while
the Neovim plugin runs.

Examples:
  nvpick logs              # Show last 50 lines
  nvpick logs -f           # Follow log output
  nvpick logs --lines=100  # Show last 100 lines`,
	RunE: runLogs,
}

func init() {
	logsCmd.Flags().BoolVarP(&logsFollow, "follow", "f", false, "Follow log output")
	logsCmd.Flags().IntVarP(&logsLines, "lines", "n", 50, "Number of lines to show")
}

func runLogs(cmd *cobra.Command, args []string) error {
	paths := config.DefaultPaths()
	logFile := paths.LogFile()
	if cfg, err := config.LoadFromFile(paths.ConfigFile()); err == nil && cfg.Log.File != "" {
		logFile = cfg.Log.File
	}

	out := cmd.OutOrStdout()

	// Check if log file exists
	if _, err := os.Stat(logFile); os.IsNotExist(err) {
		fmt.Fprintf(out, "No log file found at: %s\n", logFile)
		fmt.Fprintln(out, "No picker has run yet.")
		return nil
	}

	if logsFollow {
		return followLogs(commandContext(cmd), out, logFile)
	}

	return tailLogs(out, logFile, logsLines)
}

func tailLogs(out io.Writer, filename string, n int) error {
	// Validate n to prevent panic on negative capacity
	if n <= 0 {
		return nil
	}

	f, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat log file: %w", err)
	}

	size := stat.Size()
	if size == 0 {
		fmt.Fprintln(out, "Log file is empty.")
		return nil
	}

	lines, err := collectTailLines(f, size, n)
	if err != nil {
		return err
	}
	for _, line := range lines {
		fmt.Fprintln(out, line)
	}
	return nil
}

// collectTailLines reads backwards from size until it has the last n
// lines of f.
func collectTailLines(f io.ReaderAt, size int64, n int) ([]string, error) {
	lines := make([]string, 0, n)
	offset := size
	remainder := "" // Carry partial line fragment between chunks

	for len(lines) < n && offset > 0 {
		chunkLines, rem, err := readChunkLines(f, &offset, 4096, remainder)
		if err != nil {
			return nil, err
		}
		remainder = rem

		// Prepend lines
		for i := len(chunkLines) - 1; i >= 0 && len(lines) < n; i-- {
			if chunkLines[i] != "" || len(lines) > 0 {
				lines = append([]string{chunkLines[i]}, lines...)
			}
		}
	}

	// Include remainder if we have room and it's not empty
	if remainder != "" && len(lines) < n {
		lines = append([]string{remainder}, lines...)
	}
	return lines, nil
}

// readChunkLines reads the chunk of at most bufSize bytes ending at
// *offset and moves *offset to its start. Unless the chunk starts the
// file, its first line may be partial and comes back as the remainder to
// append to the next chunk.
func readChunkLines(f io.ReaderAt, offset *int64, bufSize int64, remainder string) ([]string, string, error) {
	readSize := min(bufSize, *offset)
	*offset -= readSize

	buf := make([]byte, readSize)
	n, err := f.ReadAt(buf, *offset)
	if err != nil && err != io.EOF {
		return nil, "", fmt.Errorf("failed to read log file: %w", err)
	}

	chunkLines := splitLines(string(buf[:n]) + remainder)
	if *offset > 0 && len(chunkLines) > 0 {
		return chunkLines[1:], chunkLines[0], nil
	}
	return chunkLines, "", nil
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, s[start:i])
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}

func followLogs(ctx context.Context, out io.Writer, filename string) error {
	f, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer f.Close()

	// Seek to end
	_, err = f.Seek(0, io.SeekEnd)
	if err != nil {
		return fmt.Errorf("failed to seek to end: %w", err)
	}

	fmt.Fprintf(out, "Following %s (Ctrl+C to stop)...\n", filename)
	fmt.Fprintln(out)

	reader := bufio.NewReader(f)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line, err := reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				// Print any partial fragment before waiting
				if line != "" {
					fmt.Fprint(out, line)
				}
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(100 * time.Millisecond):
				}
				continue
			}
			return fmt.Errorf("error reading log: %w", err)
		}

		fmt.Fprint(out, line)
	}
}
