package supervisor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/libreassistant/poco/internal/poco/pkg/errno"
	"github.com/libreassistant/poco/internal/poco/service/registry"
	"github.com/libreassistant/poco/pkg/logger"
	"github.com/libreassistant/poco/pkg/utils/safego"
)

// Start launches the plugin process and waits for it to become ready.
// Preconditions are checked in order: lifecycle state, permission approval,
// port availability. Any failure after the spawn moves the instance to
// failed.
func (m *Module) Start(ctx context.Context, id string) error {
	return m.StartWith(ctx, id, nil)
}

// StartWith launches the plugin with per-start option values layered over
// the manifest option defaults. Values for options the manifest does not
// declare are dropped with a warning.
func (m *Module) StartWith(ctx context.Context, id string, options map[string]string) error {
	inst, err := m.get(id)
	if err != nil {
		return err
	}

	inst.opMu.Lock()
	defer inst.opMu.Unlock()

	return m.startLocked(ctx, inst, options)
}

func (m *Module) startLocked(ctx context.Context, inst *instance, options map[string]string) error {
	d := inst.descriptor()

	switch st := inst.currentState(); st {
	case StateRunning, StateStarting:
		return fmt.Errorf("%w: plugin %q is %s", errno.ErrAlreadyRunning, d.ID, st)
	case StateStopping:
		return fmt.Errorf("%w: plugin %q is still stopping", errno.ErrStartPrecondition, d.ID)
	case StateFailed:
		return fmt.Errorf("%w: plugin %q failed earlier, clear it before starting", errno.ErrStartPrecondition, d.ID)
	case StateDiscovered, StateApproved, StateStopped:
	}

	if err := m.gate.Check(d); err != nil {
		return err
	}

	if !portFree(d.Port) {
		return fmt.Errorf("%w: port %d claimed by plugin %q is busy", errno.ErrPortInUse, d.Port, d.ID)
	}

	cmd, sinks, err := m.buildCommand(d, options)
	if err != nil {
		inst.fail(err)
		return err
	}
	if err := cmd.Start(); err != nil {
		err = fmt.Errorf("spawn %q: %w", d.Entrypoint, err)
		inst.fail(err)
		return err
	}

	done := make(chan struct{})
	inst.mu.Lock()
	inst.state = StateStarting
	inst.cmd = cmd
	inst.done = done
	inst.exitErr = nil
	inst.startedAt = time.Now()
	inst.lastError = ""
	inst.mu.Unlock()

	logger.InfoX("supervisor", "plugin %q starting: pid %d, port %d", d.ID, cmd.Process.Pid, d.Port)

	safego.Go(m.ctx, func() { m.monitor(inst, cmd, sinks, done) })

	if err := probeReadiness(ctx, d.Port, m.readinessDeadline, done); err != nil {
		// The process may still be alive after a probe timeout; take it down
		// before settling the state.
		_ = cmd.Process.Kill()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			logger.WarnX("supervisor", "plugin %q did not reap after kill", d.ID)
		}
		inst.fail(err)
		logger.WarnX("supervisor", "plugin %q failed to start: %v", d.ID, err)
		return err
	}

	inst.mu.Lock()
	inst.state = StateRunning
	inst.startedAt = time.Now()
	inst.mu.Unlock()

	logger.InfoX("supervisor", "plugin %q running on port %d", d.ID, d.Port)

	return nil
}

// Stop asks the plugin to exit with SIGTERM, escalating to SIGKILL once the
// stop deadline passes. Stopping an instance that has no process is a no-op.
func (m *Module) Stop(ctx context.Context, id string) error {
	inst, err := m.get(id)
	if err != nil {
		return err
	}

	inst.opMu.Lock()
	defer inst.opMu.Unlock()

	return m.stopLocked(ctx, inst)
}

func (m *Module) stopLocked(ctx context.Context, inst *instance) error {
	inst.mu.Lock()
	switch inst.state {
	case StateRunning, StateStarting:
	default:
		inst.mu.Unlock()
		return nil
	}
	d := inst.desc
	cmd := inst.cmd
	done := inst.done
	inst.state = StateStopping
	inst.mu.Unlock()

	logger.InfoX("supervisor", "plugin %q stopping: SIGTERM to pid %d", d.ID, cmd.Process.Pid)
	if err := cmd.Process.Signal(syscall.SIGTERM); err != nil {
		// Already gone; the monitor settles the state.
		<-done
		return nil
	}

	select {
	case <-done:
	case <-time.After(m.stopDeadline):
		logger.WarnX("supervisor", "plugin %q ignored SIGTERM for %s, sending SIGKILL", d.ID, m.stopDeadline)
		_ = cmd.Process.Kill()
		<-done
	case <-ctx.Done():
		logger.WarnX("supervisor", "plugin %q stop cut short: %v", d.ID, ctx.Err())
		_ = cmd.Process.Kill()
		<-done
	}

	return nil
}

// Restart stops the plugin if needed and starts it again, holding the
// per-plugin operation lock across both halves.
func (m *Module) Restart(ctx context.Context, id string) error {
	inst, err := m.get(id)
	if err != nil {
		return err
	}

	inst.opMu.Lock()
	defer inst.opMu.Unlock()

	if err := m.stopLocked(ctx, inst); err != nil {
		return err
	}
	if err := m.startLocked(ctx, inst, nil); err != nil {
		return err
	}

	inst.mu.Lock()
	inst.restarts++
	inst.mu.Unlock()

	return nil
}

// ClearFailure acknowledges a failed instance and moves it back to stopped so
// it may be started again. The last error is kept for inspection until the
// next successful start.
func (m *Module) ClearFailure(id string) error {
	inst, err := m.get(id)
	if err != nil {
		return err
	}

	inst.opMu.Lock()
	defer inst.opMu.Unlock()

	inst.mu.Lock()
	defer inst.mu.Unlock()

	if inst.state != StateFailed {
		return fmt.Errorf("plugin %q is %s, nothing to clear", id, inst.state)
	}
	inst.state = StateStopped

	return nil
}

// StopAll stops every live plugin concurrently. Used on daemon shutdown; ctx
// bounds the whole operation.
func (m *Module) StopAll(ctx context.Context) {
	m.mu.RLock()
	ids := make([]string, 0, len(m.instances))
	for id := range m.instances {
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if err := m.Stop(ctx, id); err != nil {
				logger.WarnX("supervisor", "stop %q during shutdown: %v", id, err)
			}
		}(id)
	}
	wg.Wait()
}

// monitor reaps the process and settles the state once it exits. A stop in
// flight lands on stopped; an unexpected exit is a crash and lands on failed
// with no automatic restart.
func (m *Module) monitor(inst *instance, cmd *exec.Cmd, sinks []*logSink, done chan struct{}) {
	err := cmd.Wait()
	for _, s := range sinks {
		s.Flush()
	}

	inst.mu.Lock()
	inst.exitErr = err
	d := inst.desc
	switch inst.state {
	case StateStopping:
		inst.state = StateStopped
		inst.cmd = nil
		logger.InfoX("supervisor", "plugin %q stopped", d.ID)
	case StateRunning:
		inst.state = StateFailed
		inst.cmd = nil
		inst.crashes++
		inst.lastError = fmt.Sprintf("%v: %s", errno.ErrCrashDetected, exitReason(err))
		logger.WarnX("supervisor", "plugin %q crashed: %s", d.ID, exitReason(err))
	case StateStarting:
		// The starting path owns this transition; it observes done.
	}
	inst.mu.Unlock()

	close(done)
}

func exitReason(err error) string {
	if err == nil {
		return "exit status 0"
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.String()
	}

	return err.Error()
}

// buildCommand prepares the plugin process: entrypoint resolved against the
// plugin directory, option values and identity passed as environment, output
// wired into the daemon log.
func (m *Module) buildCommand(d *registry.PluginDescriptor, options map[string]string) (*exec.Cmd, []*logSink, error) {
	fields := strings.Fields(d.Entrypoint)
	if len(fields) == 0 {
		return nil, nil, fmt.Errorf("plugin %q has an empty entrypoint", d.ID)
	}

	prog := fields[0]
	if !filepath.IsAbs(prog) && strings.ContainsRune(prog, filepath.Separator) {
		prog = filepath.Join(d.Dir, prog)
	}

	cmd := exec.Command(prog, fields[1:]...)
	cmd.Dir = d.Dir
	cmd.Env = append(os.Environ(),
		"POCO_PLUGIN_ID="+d.ID,
		fmt.Sprintf("POCO_PLUGIN_PORT=%d", d.Port),
	)

	for name := range options {
		if _, ok := d.Options[name]; !ok {
			logger.WarnX("supervisor", "plugin %q does not declare option %q, dropping it", d.ID, name)
		}
	}

	names := make([]string, 0, len(d.Options))
	for name := range d.Options {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		key := "POCO_OPT_" + strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
		if v, ok := options[name]; ok {
			cmd.Env = append(cmd.Env, key+"="+v)
			continue
		}
		if opt := d.Options[name]; opt.Default != nil {
			cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%v", key, opt.Default))
		}
	}

	stdout := newLogSink(d.ID, "stdout")
	stderr := newLogSink(d.ID, "stderr")
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	return cmd, []*logSink{stdout, stderr}, nil
}
