package supervisor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/libreassistant/poco/internal/poco/service/gate"
	"github.com/libreassistant/poco/internal/poco/service/registry"
)

// lifecycleEdges is the legal transition relation: a discovered plugin is
// approved, an approved or stopped plugin may start, a start either reaches
// running or fails, a running plugin stops or crashes, and a failure must be
// cleared back to stopped before the next start.
var lifecycleEdges = map[string][]string{
	"discovered": {"approved"},
	"approved":   {"starting"},
	"starting":   {"running", "failed"},
	"running":    {"stopping", "failed"},
	"stopping":   {"stopped"},
	"stopped":    {"starting"},
	"failed":     {"stopped"},
}

// reachableState reports whether the relation connects from to to, possibly
// through intermediate states a caller sampling between operations never
// observes.
func reachableState(from, to string) bool {
	if from == to {
		return true
	}

	seen := map[string]bool{from: true}
	queue := []string{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range lifecycleEdges[cur] {
			if next == to {
				return true
			}
			if !seen[next] {
				seen[next] = true
				queue = append(queue, next)
			}
		}
	}

	return false
}

// newWalkSupervisor lays down one plugin whose entrypoint does not exist, so
// every spawn fails on the spot and a long operation walk stays cheap. The
// gate starts with no grants; the walk hands them out and takes them back.
func newWalkSupervisor(t *testing.T) (*Module, *gate.Module, string) {
	t.Helper()

	const id = "walker"
	root := t.TempDir()
	dir := filepath.Join(root, id)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	manifest := fmt.Sprintf(`{
		"id": %q,
		"name": "Walker",
		"version": "1.0.0",
		"description": "lifecycle walk plugin",
		"author": "test",
		"entrypoint": "./no-such-binary",
		"port": %d,
		"permissions": ["system-info"]
	}`, id, freePort(t))
	require.NoError(t, os.WriteFile(filepath.Join(dir, registry.ManifestFileName), []byte(manifest), 0o644))

	reg, err := (&registry.Config{Root: root}).Complete().New()
	require.NoError(t, err)
	require.NoError(t, reg.Scan())

	g, err := (&gate.Config{GrantsFile: filepath.Join(root, "grants.json")}).Complete().New()
	require.NoError(t, err)

	m, err := (&Config{
		Registry:          reg,
		Gate:              g,
		ReadinessDeadline: time.Second,
		StopDeadline:      time.Second,
	}).Complete().New(context.Background())
	require.NoError(t, err)

	return m, g, id
}

func TestOperationWalkFollowsLifecycleGraph(t *testing.T) {
	ctx := context.Background()
	caps := []registry.Capability{registry.CapabilitySystemInfo}

	rapid.Check(t, func(rt *rapid.T) {
		m, g, id := newWalkSupervisor(t)

		st, err := m.Status(id)
		if err != nil {
			rt.Fatalf("initial status: %v", err)
		}
		if st.State != StateDiscovered.String() {
			rt.Fatalf("ungranted plugin starts as %s, want discovered", st.State)
		}
		observed := []string{st.State}

		ops := rapid.SliceOfN(
			rapid.SampledFrom([]string{"grant", "revoke", "approve", "sync", "start", "stop", "restart", "clear"}),
			1, 16,
		).Draw(rt, "ops")

		for _, op := range ops {
			switch op {
			case "grant":
				if err := g.Grant(id, caps); err != nil {
					rt.Fatalf("grant: %v", err)
				}
			case "revoke":
				if err := g.Revoke(id); err != nil {
					rt.Fatalf("revoke: %v", err)
				}
			case "approve":
				_ = m.MarkApproved(id)
			case "sync":
				m.Sync()
			case "start":
				_ = m.Start(ctx, id)
			case "stop":
				_ = m.Stop(ctx, id)
			case "restart":
				_ = m.Restart(ctx, id)
			case "clear":
				_ = m.ClearFailure(id)
			}

			st, err := m.Status(id)
			if err != nil {
				rt.Fatalf("status after %s: %v", op, err)
			}
			observed = append(observed, st.State)
		}

		for i := 1; i < len(observed); i++ {
			if !reachableState(observed[i-1], observed[i]) {
				rt.Fatalf("illegal transition %s -> %s after op %q (walk %v, states %v)",
					observed[i-1], observed[i], ops[i-1], ops, observed)
			}
		}
	})
}

func TestStateStrings(t *testing.T) {
	for st, want := range map[State]string{
		StateDiscovered: "discovered",
		StateApproved:   "approved",
		StateStarting:   "starting",
		StateRunning:    "running",
		StateStopping:   "stopping",
		StateStopped:    "stopped",
		StateFailed:     "failed",
		State(99):       "unknown",
	} {
		assert.Equal(t, want, st.String())
	}
}
