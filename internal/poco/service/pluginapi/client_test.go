package pluginapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/libreassistant/poco/internal/poco/pkg/errno"
)

// staticEndpoints resolves every known id to a fixed base URL.
type staticEndpoints map[string]string

func (s staticEndpoints) Endpoint(id string) (string, error) {
	base, ok := s[id]
	if !ok {
		return "", fmt.Errorf("%w: %s", errno.ErrPluginNotRunning, id)
	}

	return base, nil
}

func newClient(t *testing.T, eps Endpoints, timeout time.Duration, maxBody int64) *Module {
	t.Helper()

	m, err := (&Config{Endpoints: eps, Timeout: timeout, MaxResponseBytes: maxBody}).Complete().New()
	require.NoError(t, err)

	return m
}

func TestInvokeSuccess(t *testing.T) {
	var gotPath, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprint(w, `{"success": true, "result": {"items": ["a", "b"]}}`)
	}))
	defer srv.Close()

	m := newClient(t, staticEndpoints{"web-search": srv.URL}, time.Second, 1<<20)

	resp, err := m.Invoke(context.Background(), "web-search", map[string]interface{}{
		"operation": "search",
		"query":     "top items",
	})
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.True(t, resp.Success)

	assert.Equal(t, "/search", gotPath)
	assert.Contains(t, gotBody, `"query"`)
	assert.NotContains(t, gotBody, `"operation"`)

	result, ok := resp.Result.(map[string]interface{})
	require.True(t, ok)
	assert.Len(t, result["items"], 2)
}

func TestInvokeDefaultOperation(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = fmt.Fprint(w, `{"success": true}`)
	}))
	defer srv.Close()

	m := newClient(t, staticEndpoints{"echo": srv.URL}, time.Second, 1<<20)

	_, err := m.Invoke(context.Background(), "echo", map[string]interface{}{"text": "hi"})
	require.NoError(t, err)
	assert.Equal(t, "/"+DefaultOperation, gotPath)
}

func TestInvokeNotRunning(t *testing.T) {
	m := newClient(t, staticEndpoints{}, time.Second, 1<<20)

	_, err := m.Invoke(context.Background(), "ghost", map[string]interface{}{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errno.ErrPluginNotRunning))
}

func TestInvokePluginFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, `{"success": false, "error": "index unavailable"}`)
	}))
	defer srv.Close()

	m := newClient(t, staticEndpoints{"search": srv.URL}, time.Second, 1<<20)

	resp, err := m.Invoke(context.Background(), "search", map[string]interface{}{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errno.ErrPluginFailed))
	assert.Contains(t, err.Error(), "index unavailable")
	require.NotNil(t, resp)
	assert.False(t, resp.Success)
}

func TestInvokeTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		_, _ = fmt.Fprint(w, `{"success": true}`)
	}))
	defer srv.Close()

	m := newClient(t, staticEndpoints{"slow": srv.URL}, 50*time.Millisecond, 1<<20)

	_, err := m.Invoke(context.Background(), "slow", map[string]interface{}{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errno.ErrInvocationTimeout))
}

func TestInvokeCancelled(t *testing.T) {
	started := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		time.Sleep(2 * time.Second)
		_, _ = fmt.Fprint(w, `{"success": true}`)
	}))
	defer srv.Close()

	m := newClient(t, staticEndpoints{"sleepy": srv.URL}, 10*time.Second, 1<<20)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	begin := time.Now()
	_, err := m.Invoke(ctx, "sleepy", map[string]interface{}{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errno.ErrCancelled))
	assert.Less(t, time.Since(begin), time.Second)
}

func TestInvokeResponseTooLarge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprintf(w, `{"success": true, "result": %q}`, strings.Repeat("x", 4096))
	}))
	defer srv.Close()

	m := newClient(t, staticEndpoints{"chatty": srv.URL}, time.Second, 512)

	_, err := m.Invoke(context.Background(), "chatty", map[string]interface{}{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errno.ErrResponseTooLarge))
}

func TestInvokeMalformedEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, `not json at all`)
	}))
	defer srv.Close()

	m := newClient(t, staticEndpoints{"weird": srv.URL}, time.Second, 1<<20)

	_, err := m.Invoke(context.Background(), "weird", map[string]interface{}{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errno.ErrProtocol))
}

func TestInvokeBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	m := newClient(t, staticEndpoints{"broken": srv.URL}, time.Second, 1<<20)

	_, err := m.Invoke(context.Background(), "broken", map[string]interface{}{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errno.ErrProtocol))
}

func TestInvokeTransportError(t *testing.T) {
	// A closed server leaves a dead endpoint behind.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	base := srv.URL
	srv.Close()

	m := newClient(t, staticEndpoints{"dead": base}, time.Second, 1<<20)

	_, err := m.Invoke(context.Background(), "dead", map[string]interface{}{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errno.ErrTransport))
}

func TestSplitOperation(t *testing.T) {
	op, payload := SplitOperation(map[string]interface{}{"operation": "search", "q": "x"})
	assert.Equal(t, "search", op)
	assert.Equal(t, map[string]interface{}{"q": "x"}, payload)

	op, payload = SplitOperation(map[string]interface{}{"q": "x"})
	assert.Equal(t, DefaultOperation, op)
	assert.Equal(t, map[string]interface{}{"q": "x"}, payload)

	// A non-string operation value falls back to the default but is still
	// stripped from the payload.
	op, payload = SplitOperation(map[string]interface{}{"operation": 7, "q": "x"})
	assert.Equal(t, DefaultOperation, op)
	assert.NotContains(t, payload, "operation")
}
