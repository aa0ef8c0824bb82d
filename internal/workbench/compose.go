package workbench

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"time"

	"github.com/creack/pty"

	"github.com/riffle-ml/riffle/internal/logger"
)

// runCompose executes a docker compose subcommand, streaming its output
// through the progress callback.
//
// The command runs under a PTY so compose emits its native progress bars.
// Output is framed on \r and \n: a bare carriage return yields an
// overwrite event (the line replaces the previous one), a line feed yields
// a regular line. A nil progress callback discards the output.
func runCompose(ctx context.Context, progress func(line string, overwrite bool), args ...string) error {
	emit := func(line string, overwrite bool) {
		if progress != nil && line != "" {
			progress(line, overwrite)
		}
	}

	fullArgs := append([]string{"compose"}, args...)
	logger.Debug("Running: docker %v", fullArgs)

	cmd := exec.CommandContext(ctx, "docker", fullArgs...)

	ptmx, err := pty.Start(cmd)
	if err != nil {
		return fmt.Errorf("failed to start docker compose with pty: %w", err)
	}
	defer ptmx.Close()

	// Read byte by byte to tell \r and \n apart. Short read deadlines
	// let the loop notice context cancellation between reads.
	var line []byte
	buf := make([]byte, 1)
	ptmx.SetReadDeadline(time.Now().Add(100 * time.Millisecond))

	for {
		select {
		case <-ctx.Done():
			if cmd.Process != nil {
				cmd.Process.Kill()
			}
			return fmt.Errorf("docker compose %s cancelled", args[0])
		default:
		}

		n, err := ptmx.Read(buf)
		if n > 0 {
			switch buf[0] {
			case '\r':
				emit(string(line), true)
				line = line[:0]
			case '\n':
				emit(string(line), false)
				line = line[:0]
			default:
				line = append(line, buf[0])
			}
			ptmx.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
		}

		if err == io.EOF {
			emit(string(line), false)
			break
		}
		if err != nil {
			if netErr, ok := err.(interface{ Timeout() bool }); ok && netErr.Timeout() {
				ptmx.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
				continue
			}
			// The PTY closes when the process exits; let cmd.Wait
			// decide whether that was a failure.
			emit(string(line), false)
			break
		}
	}

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("docker compose %s cancelled", args[0])
		}
		return fmt.Errorf("docker compose %v failed: %w", args, err)
	}

	return nil
}
