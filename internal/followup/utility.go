package followup

import (
	"bufio"
	"context"
	"io"
	"strings"

	"github.com/anstrom/uplink/internal/errors"
	"github.com/anstrom/uplink/internal/scanning"
)

const pingCount = "4"

func (s *Service) pingCommand(host string) []string {
	if s.goos == "windows" {
		return []string{"ping", "-n", pingCount, host}
	}
	return []string{"ping", "-c", pingCount, host}
}

func (s *Service) tracerouteCommand(host string) []string {
	if s.goos == "windows" {
		return []string{"tracert", host}
	}
	return []string{"traceroute", host}
}

// runUtility emits each stdout line as it arrives, then the stderr lines.
func (s *Service) runUtility(ctx context.Context, argv []string, out func(string)) error {
	proc, err := s.runner.Start(ctx, argv)
	if err != nil {
		if scanning.IsNotFound(err) {
			out(errors.MsgCommandNotFound + "\n")
			return errors.ErrCommandNotFound(argv[0], err)
		}
		out(unexpected(err))
		return err
	}

	// stderr is drained alongside stdout so a full pipe cannot stall the child.
	stderr := make(chan []string, 1)
	go func() {
		var lines []string
		eachLine(proc.Stderr(), func(line string) { lines = append(lines, line) })
		stderr <- lines
	}()

	eachLine(proc.Stdout(), out)
	for _, line := range <-stderr {
		out(line)
	}

	// ping and traceroute exit non-zero for unreachable hosts; their output says so.
	if err := proc.Wait(); err != nil {
		s.logger.Debug("utility exited", "command", strings.Join(argv, " "), "error", err)
	}
	return nil
}

// eachLine calls fn with every line of r, newline kept, as soon as it is read.
func eachLine(r io.Reader, fn func(string)) {
	reader := bufio.NewReader(r)
	for {
		line, err := reader.ReadString('\n')
		if line != "" {
			fn(line)
		}
		if err != nil {
			return
		}
	}
}
