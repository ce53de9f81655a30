package supervisor

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/libreassistant/poco/internal/poco/pkg/errno"
	"github.com/libreassistant/poco/internal/poco/service/gate"
	"github.com/libreassistant/poco/internal/poco/service/registry"
)

// TestHelperProcess is not a real test. The supervisor tests re-exec the test
// binary with this test selected to stand in for a plugin process.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("POCO_TEST_PLUGIN_HELPER") != "1" {
		t.Skip("not a helper invocation")
	}

	port := os.Getenv("POCO_PLUGIN_PORT")
	switch os.Getenv("POCO_HELPER_MODE") {
	case "never-ready":
		// Stay alive without ever listening. A bare select{} would trip the
		// runtime deadlock detector in this re-exec'd process (no other
		// runnable goroutines), exiting before the readiness window elapses.
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGTERM)
		<-sig
		os.Exit(0)
	case "ignore-term":
		signal.Ignore(syscall.SIGTERM)
		helperServe(port, false, true)
	case "crash":
		helperServe(port, true, false)
	case "greeting-gate":
		if os.Getenv("POCO_OPT_GREETING") != "custom" {
			os.Exit(7)
		}
		helperServe(port, false, false)
	default:
		helperServe(port, false, false)
	}
}

func helperServe(port string, crashAfterReady, ignoreTerm bool) {
	ln, err := net.Listen("tcp", "127.0.0.1:"+port)
	if err != nil {
		os.Exit(2)
	}

	ready := make(chan struct{})
	var once sync.Once
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		once.Do(func() { close(ready) })
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprint(w, `{"status":"ok"}`)
	})
	go func() { _ = (&http.Server{Handler: mux}).Serve(ln) }()

	if crashAfterReady {
		<-ready
		time.Sleep(100 * time.Millisecond)
		os.Exit(3)
	}

	if ignoreTerm {
		select {}
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGTERM)
	<-sig
	os.Exit(0)
}

func freePort(t *testing.T) int {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	return port
}

// newSupervisedPlugin lays down a plugin dir whose entrypoint re-execs the
// test binary, and returns a supervisor managing it.
func newSupervisedPlugin(t *testing.T, id string, port int, perms string) *Module {
	t.Helper()

	exe, err := os.Executable()
	require.NoError(t, err)

	root := t.TempDir()
	dir := filepath.Join(root, id)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	manifest := fmt.Sprintf(`{
		"id": %q,
		"name": "Helper",
		"version": "1.0.0",
		"description": "test plugin",
		"author": "test",
		"entrypoint": "%s -test.run=^TestHelperProcess$",
		"port": %d,
		"permissions": [%s]
	}`, id, exe, port, perms)
	require.NoError(t, os.WriteFile(filepath.Join(dir, registry.ManifestFileName), []byte(manifest), 0o644))

	reg, err := (&registry.Config{Root: root}).Complete().New()
	require.NoError(t, err)
	require.NoError(t, reg.Scan())

	g, err := (&gate.Config{AutoApprove: true, GrantsFile: filepath.Join(root, "grants.json")}).Complete().New()
	require.NoError(t, err)

	m, err := (&Config{
		Registry:          reg,
		Gate:              g,
		ReadinessDeadline: 5 * time.Second,
		StopDeadline:      2 * time.Second,
	}).Complete().New(context.Background())
	require.NoError(t, err)

	t.Setenv("POCO_TEST_PLUGIN_HELPER", "1")

	return m
}

func TestStartStopLifecycle(t *testing.T) {
	port := freePort(t)
	m := newSupervisedPlugin(t, "helper", port, "")
	ctx := context.Background()

	require.NoError(t, m.Start(ctx, "helper"))
	t.Cleanup(func() { _ = m.Stop(ctx, "helper") })

	st, err := m.Status("helper")
	require.NoError(t, err)
	assert.Equal(t, "running", st.State)
	assert.Equal(t, port, st.Port)
	assert.NotZero(t, st.PID)
	assert.True(t, m.IsRunning("helper"))

	ep, err := m.Endpoint("helper")
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("http://127.0.0.1:%d", port), ep)

	require.NoError(t, m.Stop(ctx, "helper"))
	st, err = m.Status("helper")
	require.NoError(t, err)
	assert.Equal(t, "stopped", st.State)
	assert.False(t, m.IsRunning("helper"))

	// Stopping an already stopped plugin is a no-op.
	require.NoError(t, m.Stop(ctx, "helper"))
	st, _ = m.Status("helper")
	assert.Equal(t, "stopped", st.State)
}

func TestStartWhileRunning(t *testing.T) {
	port := freePort(t)
	m := newSupervisedPlugin(t, "helper", port, "")
	ctx := context.Background()

	require.NoError(t, m.Start(ctx, "helper"))
	t.Cleanup(func() { _ = m.Stop(ctx, "helper") })

	err := m.Start(ctx, "helper")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errno.ErrAlreadyRunning))
}

func TestStartPortInUse(t *testing.T) {
	port := freePort(t)
	m := newSupervisedPlugin(t, "helper", port, "")

	ln, err := net.Listen("tcp", "127.0.0.1:"+strconv.Itoa(port))
	require.NoError(t, err)
	defer ln.Close()

	err = m.Start(context.Background(), "helper")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errno.ErrPortInUse))

	// A precondition failure leaves the instance startable.
	st, _ := m.Status("helper")
	assert.Equal(t, "approved", st.State)
}

func TestPortConflictLeavesFirstPluginRunning(t *testing.T) {
	port := freePort(t)
	exe, err := os.Executable()
	require.NoError(t, err)

	root := t.TempDir()
	for _, id := range []string{"alpha", "beta"} {
		dir := filepath.Join(root, id)
		require.NoError(t, os.MkdirAll(dir, 0o755))
		manifest := fmt.Sprintf(`{
			"id": %q,
			"name": "Helper",
			"version": "1.0.0",
			"description": "test plugin",
			"author": "test",
			"entrypoint": "%s -test.run=^TestHelperProcess$",
			"port": %d,
			"permissions": []
		}`, id, exe, port)
		require.NoError(t, os.WriteFile(filepath.Join(dir, registry.ManifestFileName), []byte(manifest), 0o644))
	}

	reg, err := (&registry.Config{Root: root}).Complete().New()
	require.NoError(t, err)
	require.NoError(t, reg.Scan())
	g, err := (&gate.Config{AutoApprove: true, GrantsFile: filepath.Join(root, "grants.json")}).Complete().New()
	require.NoError(t, err)
	m, err := (&Config{Registry: reg, Gate: g, ReadinessDeadline: 5 * time.Second, StopDeadline: 2 * time.Second}).
		Complete().New(context.Background())
	require.NoError(t, err)

	t.Setenv("POCO_TEST_PLUGIN_HELPER", "1")
	ctx := context.Background()

	require.NoError(t, m.Start(ctx, "alpha"))
	t.Cleanup(func() { _ = m.Stop(ctx, "alpha") })

	err = m.Start(ctx, "beta")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errno.ErrPortInUse))

	// The conflict must not disturb the plugin that owns the port.
	assert.True(t, m.IsRunning("alpha"))
	st, _ := m.Status("beta")
	assert.Equal(t, "approved", st.State)
}

func TestStartPermissionDenied(t *testing.T) {
	port := freePort(t)

	exe, err := os.Executable()
	require.NoError(t, err)
	root := t.TempDir()
	dir := filepath.Join(root, "guarded")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	manifest := fmt.Sprintf(`{
		"id": "guarded",
		"name": "Guarded",
		"version": "1.0.0",
		"description": "test plugin",
		"author": "test",
		"entrypoint": "%s -test.run=^TestHelperProcess$",
		"port": %d,
		"permissions": ["network"]
	}`, exe, port)
	require.NoError(t, os.WriteFile(filepath.Join(dir, registry.ManifestFileName), []byte(manifest), 0o644))

	reg, err := (&registry.Config{Root: root}).Complete().New()
	require.NoError(t, err)
	require.NoError(t, reg.Scan())
	g, err := (&gate.Config{GrantsFile: filepath.Join(root, "grants.json")}).Complete().New()
	require.NoError(t, err)
	m, err := (&Config{Registry: reg, Gate: g, ReadinessDeadline: time.Second, StopDeadline: time.Second}).
		Complete().New(context.Background())
	require.NoError(t, err)

	err = m.Start(context.Background(), "guarded")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errno.ErrPermissionDenied))

	st, _ := m.Status("guarded")
	assert.Equal(t, "discovered", st.State)

	// Granting the declared set unblocks the start path.
	require.NoError(t, g.Grant("guarded", []registry.Capability{registry.CapabilityNetwork}))
	require.NoError(t, m.MarkApproved("guarded"))
	st, _ = m.Status("guarded")
	assert.Equal(t, "approved", st.State)
}

func TestReadinessTimeout(t *testing.T) {
	port := freePort(t)
	m := newSupervisedPlugin(t, "slow", port, "")
	m.readinessDeadline = 500 * time.Millisecond
	t.Setenv("POCO_HELPER_MODE", "never-ready")

	err := m.Start(context.Background(), "slow")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errno.ErrReadinessTimeout))

	st, _ := m.Status("slow")
	assert.Equal(t, "failed", st.State)
	assert.NotEmpty(t, st.LastError)

	// A failed instance refuses to start until cleared.
	err = m.Start(context.Background(), "slow")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errno.ErrStartPrecondition))

	require.NoError(t, m.ClearFailure("slow"))
	st, _ = m.Status("slow")
	assert.Equal(t, "stopped", st.State)
}

func TestZeroReadinessDeadlineFailsImmediately(t *testing.T) {
	port := freePort(t)
	m := newSupervisedPlugin(t, "zero", port, "")
	m.readinessDeadline = 0

	start := time.Now()
	err := m.Start(context.Background(), "zero")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errno.ErrReadinessTimeout))
	assert.Less(t, time.Since(start), 3*time.Second)

	st, _ := m.Status("zero")
	assert.Equal(t, "failed", st.State)
}

func TestCrashMarksFailedWithoutRestart(t *testing.T) {
	port := freePort(t)
	m := newSupervisedPlugin(t, "crashy", port, "")
	t.Setenv("POCO_HELPER_MODE", "crash")

	require.NoError(t, m.Start(context.Background(), "crashy"))

	require.Eventually(t, func() bool {
		st, _ := m.Status("crashy")
		return st.State == "failed"
	}, 5*time.Second, 50*time.Millisecond)

	st, _ := m.Status("crashy")
	assert.Equal(t, 1, st.Crashes)
	assert.Contains(t, st.LastError, "crash")

	// No automatic restart: the instance stays failed.
	time.Sleep(300 * time.Millisecond)
	st, _ = m.Status("crashy")
	assert.Equal(t, "failed", st.State)
}

func TestStopEscalatesToKill(t *testing.T) {
	port := freePort(t)
	m := newSupervisedPlugin(t, "stubborn", port, "")
	m.stopDeadline = 300 * time.Millisecond
	t.Setenv("POCO_HELPER_MODE", "ignore-term")

	require.NoError(t, m.Start(context.Background(), "stubborn"))

	start := time.Now()
	require.NoError(t, m.Stop(context.Background(), "stubborn"))
	assert.GreaterOrEqual(t, time.Since(start), 300*time.Millisecond)

	st, _ := m.Status("stubborn")
	assert.Equal(t, "stopped", st.State)
}

func TestRestart(t *testing.T) {
	port := freePort(t)
	m := newSupervisedPlugin(t, "helper", port, "")
	ctx := context.Background()

	require.NoError(t, m.Start(ctx, "helper"))
	t.Cleanup(func() { _ = m.Stop(ctx, "helper") })

	firstPID := func() int {
		st, _ := m.Status("helper")
		return st.PID
	}()

	require.NoError(t, m.Restart(ctx, "helper"))

	st, _ := m.Status("helper")
	assert.Equal(t, "running", st.State)
	assert.Equal(t, 1, st.Restarts)
	assert.NotEqual(t, firstPID, st.PID)
}

func TestStopAll(t *testing.T) {
	portA := freePort(t)
	exe, err := os.Executable()
	require.NoError(t, err)

	root := t.TempDir()
	portB := freePort(t)
	for id, port := range map[string]int{"one": portA, "two": portB} {
		dir := filepath.Join(root, id)
		require.NoError(t, os.MkdirAll(dir, 0o755))
		manifest := fmt.Sprintf(`{
			"id": %q,
			"name": "Helper",
			"version": "1.0.0",
			"description": "test plugin",
			"author": "test",
			"entrypoint": "%s -test.run=^TestHelperProcess$",
			"port": %d,
			"permissions": []
		}`, id, exe, port)
		require.NoError(t, os.WriteFile(filepath.Join(dir, registry.ManifestFileName), []byte(manifest), 0o644))
	}

	reg, err := (&registry.Config{Root: root}).Complete().New()
	require.NoError(t, err)
	require.NoError(t, reg.Scan())
	g, err := (&gate.Config{AutoApprove: true, GrantsFile: filepath.Join(root, "grants.json")}).Complete().New()
	require.NoError(t, err)
	m, err := (&Config{Registry: reg, Gate: g, ReadinessDeadline: 5 * time.Second, StopDeadline: 2 * time.Second}).
		Complete().New(context.Background())
	require.NoError(t, err)

	t.Setenv("POCO_TEST_PLUGIN_HELPER", "1")
	ctx := context.Background()
	require.NoError(t, m.Start(ctx, "one"))
	require.NoError(t, m.Start(ctx, "two"))

	m.StopAll(ctx)

	for _, id := range []string{"one", "two"} {
		st, _ := m.Status(id)
		assert.Equal(t, "stopped", st.State, "plugin %s", id)
	}
	assert.Empty(t, m.Running())
}

func TestClearFailureOnHealthyInstance(t *testing.T) {
	port := freePort(t)
	m := newSupervisedPlugin(t, "helper", port, "")

	err := m.ClearFailure("helper")
	require.Error(t, err)

	_, err = m.Status("ghost")
	assert.True(t, errors.Is(err, errno.ErrPluginNotFound))
}

func TestStartWithOptionOverrides(t *testing.T) {
	port := freePort(t)
	exe, err := os.Executable()
	require.NoError(t, err)

	root := t.TempDir()
	dir := filepath.Join(root, "greeter")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	manifest := fmt.Sprintf(`{
		"id": "greeter",
		"name": "Greeter",
		"version": "1.0.0",
		"description": "test plugin",
		"author": "test",
		"entrypoint": "%s -test.run=^TestHelperProcess$",
		"port": %d,
		"options": {"greeting": {"type": "string", "default": "hello"}},
		"permissions": []
	}`, exe, port)
	require.NoError(t, os.WriteFile(filepath.Join(dir, registry.ManifestFileName), []byte(manifest), 0o644))

	reg, err := (&registry.Config{Root: root}).Complete().New()
	require.NoError(t, err)
	require.NoError(t, reg.Scan())
	g, err := (&gate.Config{AutoApprove: true, GrantsFile: filepath.Join(root, "grants.json")}).Complete().New()
	require.NoError(t, err)
	m, err := (&Config{Registry: reg, Gate: g, ReadinessDeadline: 5 * time.Second, StopDeadline: 2 * time.Second}).
		Complete().New(context.Background())
	require.NoError(t, err)

	t.Setenv("POCO_TEST_PLUGIN_HELPER", "1")
	t.Setenv("POCO_HELPER_MODE", "greeting-gate")
	ctx := context.Background()

	// The manifest default does not satisfy the helper gate.
	err = m.Start(ctx, "greeter")
	require.Error(t, err)
	require.NoError(t, m.ClearFailure("greeter"))

	// A per-start value reaches the process environment; undeclared keys are
	// dropped rather than forwarded.
	require.NoError(t, m.StartWith(ctx, "greeter", map[string]string{"greeting": "custom", "undeclared": "x"}))
	t.Cleanup(func() { _ = m.Stop(ctx, "greeter") })
	assert.True(t, m.IsRunning("greeter"))
}
