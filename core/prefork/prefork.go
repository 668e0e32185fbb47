// Package prefork runs N independent worker processes against one
// shared listening socket. The master binds the socket, re-executes the
// current binary once per worker with the listener inherited on a fixed
// descriptor, relays termination signals, and waits for every child.
// Workers share nothing beyond that descriptor.
package prefork

import (
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"strconv"

	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"
)

const (
	// WorkerEnvKey marks a process as a worker and carries its index.
	WorkerEnvKey = "CRUET_WORKER_ID"

	// WorkerFD is the descriptor a worker inherits its listener on:
	// the first slot after stdin, stdout and stderr.
	WorkerFD = 3
)

// IsWorker reports whether this process was launched as a prefork
// worker.
func IsWorker() bool {
	return WorkerIndex() >= 0
}

// WorkerIndex returns the worker's index, or -1 in the master or in a
// plain single-process run.
func WorkerIndex() int {
	v := os.Getenv(WorkerEnvKey)
	if v == "" {
		return -1
	}
	idx, err := strconv.Atoi(v)
	if err != nil || idx < 0 {
		return -1
	}
	return idx
}

// Supervisor is the master side of the prefork model.
type Supervisor struct {
	workers  int
	unixPath string
	log      zerolog.Logger
}

// NewSupervisor prepares a master for the given worker count. unixPath,
// when non-empty, names a bound UNIX socket file the master removes
// after every worker has exited.
func NewSupervisor(workers int, unixPath string, log zerolog.Logger) *Supervisor {
	return &Supervisor{workers: workers, unixPath: unixPath, log: log}
}

type workerExit struct {
	index int
	err   error
}

// Run launches the workers on lfd and blocks until all of them have
// exited. SIGINT and SIGTERM are relayed to every worker; a worker
// dying for any other reason is logged but not replaced. The caller
// keeps ownership of lfd.
func (s *Supervisor) Run(lfd int) error {
	exe, err := os.Executable()
	if err != nil {
		return err
	}
	// The File wraps lfd without taking ownership; keep it reachable so
	// its finalizer cannot close the caller's descriptor mid-run.
	listener := os.NewFile(uintptr(lfd), "listener")
	defer runtime.KeepAlive(listener)

	cmds := make([]*exec.Cmd, 0, s.workers)
	for i := 0; i < s.workers; i++ {
		cmd := exec.Command(exe, os.Args[1:]...)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		cmd.ExtraFiles = []*os.File{listener}
		cmd.Env = append(os.Environ(), WorkerEnvKey+"="+strconv.Itoa(i))

		if err := cmd.Start(); err != nil {
			s.terminate(cmds)
			return err
		}
		s.log.Info().
			Int("worker", i).
			Int("pid", cmd.Process.Pid).
			Msg("worker started")
		cmds = append(cmds, cmd)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, unix.SIGINT, unix.SIGTERM)
	defer signal.Stop(sigCh)

	exitCh := make(chan workerExit, len(cmds))
	for i, cmd := range cmds {
		go func(i int, cmd *exec.Cmd) {
			exitCh <- workerExit{index: i, err: cmd.Wait()}
		}(i, cmd)
	}

	stopping := false
	for alive := len(cmds); alive > 0; {
		select {
		case sig := <-sigCh:
			stopping = true
			s.log.Info().
				Str("signal", sig.String()).
				Int("workers", alive).
				Msg("relaying shutdown signal")
			for _, cmd := range cmds {
				cmd.Process.Signal(sig)
			}

		case ex := <-exitCh:
			alive--
			if ex.err != nil && !stopping {
				s.log.Error().
					Int("worker", ex.index).
					Err(ex.err).
					Msg("worker exited unexpectedly")
			} else {
				s.log.Info().Int("worker", ex.index).Msg("worker exited")
			}
		}
	}

	if s.unixPath != "" {
		os.Remove(s.unixPath)
	}
	return nil
}

// terminate kills workers that were started before a later Start
// failed.
func (s *Supervisor) terminate(cmds []*exec.Cmd) {
	for _, cmd := range cmds {
		cmd.Process.Kill()
		cmd.Wait()
	}
}
