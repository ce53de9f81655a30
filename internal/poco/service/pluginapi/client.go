package pluginapi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/libreassistant/poco/internal/poco/pkg/errno"
	"github.com/libreassistant/poco/pkg/utils/json"
)

// DefaultOperation is invoked when the input carries no operation key.
const DefaultOperation = "invoke"

// OperationKey is the reserved input key naming the operation to invoke. It
// is routed into the URL path and stripped from the forwarded payload.
const OperationKey = "operation"

// Response is the envelope every plugin operation answers with.
type Response struct {
	Success bool        `json:"success"`
	Result  interface{} `json:"result,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// SplitOperation extracts the operation name from the input and returns the
// payload without the reserved key. Inputs without one map to
// DefaultOperation.
func SplitOperation(input map[string]interface{}) (string, map[string]interface{}) {
	raw, ok := input[OperationKey]
	if !ok {
		return DefaultOperation, input
	}

	op := DefaultOperation
	if s, ok := raw.(string); ok && s != "" {
		op = s
	}

	payload := make(map[string]interface{}, len(input))
	for k, v := range input {
		if k == OperationKey {
			continue
		}
		payload[k] = v
	}

	return op, payload
}

// Invoke POSTs the input to the plugin's operation endpoint and decodes the
// response envelope. It refuses plugins that are not running, bounds the
// call with the configured timeout and caps the response size.
//
// A non-nil Response may accompany an error when the plugin itself reported
// failure.
func (m *Module) Invoke(ctx context.Context, id string, input map[string]interface{}) (*Response, error) {
	base, err := m.endpoints.Endpoint(id)
	if err != nil {
		return nil, err
	}

	op, payload := SplitOperation(input)

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: encode input for %q: %v", errno.ErrProtocol, id, err)
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/"+url.PathEscape(op), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errno.ErrTransport, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.hc.Do(req)
	if err != nil {
		return nil, m.classifyTransport(ctx, id, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, m.maxBody+1))
	if err != nil {
		return nil, m.classifyTransport(ctx, id, err)
	}
	if int64(len(data)) > m.maxBody {
		return nil, fmt.Errorf("%w: plugin %q answer exceeds %d bytes", errno.ErrResponseTooLarge, id, m.maxBody)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: plugin %q answered status %d", errno.ErrProtocol, id, resp.StatusCode)
	}

	var out Response
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("%w: plugin %q answer is not a valid envelope: %v", errno.ErrProtocol, id, err)
	}

	if !out.Success {
		return &out, fmt.Errorf("%w: %s", errno.ErrPluginFailed, out.Error)
	}

	return &out, nil
}

// classifyTransport maps a failed round trip onto the invocation error
// taxonomy: deadline hits become timeouts, caller cancellation stays
// cancellation, everything else is a transport error.
func (m *Module) classifyTransport(ctx context.Context, id string, err error) error {
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%w: plugin %q gave no answer within %s", errno.ErrInvocationTimeout, id, m.timeout)
	case errors.Is(ctx.Err(), context.Canceled):
		return fmt.Errorf("%w: invocation of plugin %q", errno.ErrCancelled, id)
	default:
		return fmt.Errorf("%w: plugin %q: %v", errno.ErrTransport, id, err)
	}
}

// Timeout returns the configured per-invocation timeout.
func (m *Module) Timeout() time.Duration {
	return m.timeout
}
