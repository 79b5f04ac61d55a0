package scanning

//go:generate mockgen -destination=mocks/mock_runner.go -package=mocks . Runner,Process

import (
	"context"
	stderrors "errors"
	"io"
	"os"
	"os/exec"
	"runtime"
	"syscall"
	"time"
)

// waitDelay bounds how long Wait blocks on pipes after the process exits.
const waitDelay = 5 * time.Second

// Process is a started external command.
type Process interface {
	// Stdout and Stderr must be fully read before Wait is called.
	Stdout() io.Reader
	Stderr() io.Reader
	Wait() error
	// Terminate asks the process to exit.
	Terminate() error
}

// Runner starts external commands.
type Runner interface {
	Start(ctx context.Context, argv []string) (Process, error)
}

// ExecRunner starts commands with os/exec.
type ExecRunner struct{}

// Start implements Runner. Canceling ctx terminates the process.
func (ExecRunner) Start(ctx context.Context, argv []string) (Process, error) {
	if len(argv) == 0 {
		return nil, exec.ErrNotFound
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Cancel = func() error { return terminate(cmd.Process) }
	cmd.WaitDelay = waitDelay

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	return &execProcess{cmd: cmd, stdout: stdout, stderr: stderr}, nil
}

type execProcess struct {
	cmd    *exec.Cmd
	stdout io.Reader
	stderr io.Reader
}

func (p *execProcess) Stdout() io.Reader { return p.stdout }
func (p *execProcess) Stderr() io.Reader { return p.stderr }
func (p *execProcess) Wait() error       { return p.cmd.Wait() }

func (p *execProcess) Terminate() error {
	return terminate(p.cmd.Process)
}

func terminate(proc *os.Process) error {
	if proc == nil {
		return nil
	}
	var err error
	if runtime.GOOS == "windows" {
		err = proc.Kill()
	} else {
		err = proc.Signal(syscall.SIGTERM)
	}
	if stderrors.Is(err, os.ErrProcessDone) {
		return nil
	}
	return err
}

// IsNotFound reports whether a start error means the executable is missing.
func IsNotFound(err error) bool {
	return stderrors.Is(err, exec.ErrNotFound) || stderrors.Is(err, os.ErrNotExist)
}

// LookupBinary resolves name on PATH the way ExecRunner will.
func LookupBinary(name string) (string, error) {
	return exec.LookPath(name)
}
