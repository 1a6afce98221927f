package connector

import (
	"context"
	"fmt"
	"os/exec"

	"github.com/hashicorp/go-hclog"
)

// StartRequest is one connector subprocess to spawn.
type StartRequest struct {
	Kind string
	Args []string
}

// Launcher starts a connector subprocess and returns its pid. It must not
// wait for the process to finish.
type Launcher interface {
	Start(ctx context.Context, req StartRequest) (int, error)
}

// ExecLauncher runs `<Executable> <kind> <args...>` as a child process. The
// child is reaped in the background; its exit is only logged.
type ExecLauncher struct {
	Executable string
	Logger     hclog.Logger
}

func (l *ExecLauncher) Start(_ context.Context, req StartRequest) (int, error) {
	args := append([]string{req.Kind}, req.Args...)
	// Connectors outlive the request that started them, so the child is
	// not bound to ctx.
	cmd := exec.Command(l.Executable, args...)
	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("start %s connector: %w", req.Kind, err)
	}
	pid := cmd.Process.Pid
	logger := l.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	go func() {
		err := cmd.Wait()
		logger.Debug("connector process exited", "kind", req.Kind, "pid", pid, "error", err)
	}()
	return pid, nil
}
