package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cloudwego/eino/schema"

	"github.com/libreassistant/poco/internal/poco/pkg/errno"
	"github.com/libreassistant/poco/internal/poco/service/pluginapi"
	"github.com/libreassistant/poco/internal/poco/service/protocol"
	"github.com/libreassistant/poco/internal/poco/service/usage"
	"github.com/libreassistant/poco/pkg/logger"
	"github.com/libreassistant/poco/pkg/utils/safego"
)

// Dispatch drives one user turn to completion. The returned Result is
// non-nil even when the run ends with a typed error, so callers still see
// the session id and the recorded invocations.
func (m *Module) Dispatch(ctx context.Context, req *Request) (*Result, error) {
	session := m.tracker.StartSession()
	abort := NewAbortController(ctx, session, m.timeout)
	defer abort.CleanUp()

	return m.run(abort, session, req, nil)
}

// DispatchStream drives one user turn while emitting per-step trace events.
// The final event carries the result or the error; callers consume the
// reader until io.EOF.
func (m *Module) DispatchStream(ctx context.Context, req *Request) *schema.StreamReader[*Event] {
	session := m.tracker.StartSession()
	abort := NewAbortController(ctx, session, m.timeout)
	sr, sw := schema.Pipe[*Event](20)

	safego.Go(abort.Context(), func() {
		defer abort.CleanUp()
		defer sw.Close()

		res, err := m.run(abort, session, req, sw)
		done := &Event{Type: EventDone, Step: res.Steps, Result: res}
		if err != nil {
			done.Error = err.Error()
		}
		sw.Send(done, nil)
	})

	return sr
}

// run executes the bounded dispatch loop for one session.
func (m *Module) run(abort *AbortController, session string, req *Request, sw *schema.StreamWriter[*Event]) (*Result, error) {
	ctx := abort.Context()
	res := &Result{SessionID: session}

	history := make([]*schema.Message, 0, len(req.History)+2)
	history = append(history, req.History...)
	history = append(history, schema.UserMessage(req.Message))

	for step := 0; step < m.maxSteps; step++ {
		res.Steps = step + 1
		emit(sw, &Event{Type: EventStep, Step: res.Steps})

		running := m.runtime.Running()
		if req.NoPlugins {
			running = nil
		}
		messages := make([]*schema.Message, 0, len(history)+1)
		messages = append(messages, schema.SystemMessage(protocol.BuildSystemPrompt(running)))
		messages = append(messages, history...)

		reply, err := m.lm.Call(ctx, messages)
		if err != nil {
			return m.finish(ctx, res, err)
		}

		decision := protocol.Parse(reply)
		if decision.Action == protocol.ActionMessage {
			res.Text = decision.Message.Text
			res.Markdown = decision.Message.Markdown
			res.NonCompliant = decision.NonCompliant
			if decision.NonCompliant {
				logger.WarnX("dispatch", "session %s: %v, surfacing raw reply", session, errno.ErrProtocolNonCompliant)
			}
			return m.finish(ctx, res, nil)
		}

		invoke := decision.Invoke
		history = append(history, schema.AssistantMessage(reply, nil))

		if req.NoPlugins || !m.runtime.IsRunning(invoke.Plugin) {
			logger.WarnX("dispatch", "session %s: model picked plugin %s, which is not available", session, invoke.Plugin)
			history = append(history, schema.UserMessage(protocol.BuildUnavailableFeedback(invoke.Plugin)))
			continue
		}

		fp, err := Fingerprint(invoke.Plugin, invoke.Input)
		if err != nil {
			return m.finish(ctx, res, err)
		}
		operation, _ := pluginapi.SplitOperation(invoke.Input)

		dup, err := m.tracker.CheckConsecutiveDuplicate(session, fp)
		if err != nil {
			return m.finish(ctx, res, err)
		}
		if dup {
			dupErr := fmt.Errorf("%w: %s/%s repeated with identical input, rephrase or vary the arguments",
				errno.ErrDuplicatePluginCall, invoke.Plugin, operation)
			if _, rerr := m.tracker.RecordInvocation(session, usage.InvocationRecord{
				PluginID:    invoke.Plugin,
				Operation:   operation,
				Fingerprint: fp,
				Reason:      invoke.Reason,
				Status:      usage.InvocationBlockedDuplicate,
				Error:       dupErr.Error(),
			}); rerr != nil {
				logger.WarnX("dispatch", "session %s: record blocked duplicate: %v", session, rerr)
			}
			emit(sw, &Event{
				Type: EventResult, Step: res.Steps,
				PluginID: invoke.Plugin, Operation: operation,
				Status: string(usage.InvocationBlockedDuplicate), Error: dupErr.Error(),
			})
			return m.finish(ctx, res, dupErr)
		}

		idx, err := m.tracker.RecordInvocation(session, usage.InvocationRecord{
			PluginID:    invoke.Plugin,
			Operation:   operation,
			Fingerprint: fp,
			Reason:      invoke.Reason,
		})
		if err != nil {
			return m.finish(ctx, res, err)
		}
		emit(sw, &Event{Type: EventInvoke, Step: res.Steps, PluginID: invoke.Plugin, Operation: operation})

		started := time.Now()
		resp, callErr := m.plugins.Invoke(ctx, invoke.Plugin, invoke.Input)
		elapsed := time.Since(started)

		switch {
		case callErr == nil:
			m.settle(session, idx, usage.InvocationSuccess, "", elapsed)
			emit(sw, &Event{
				Type: EventResult, Step: res.Steps,
				PluginID: invoke.Plugin, Operation: operation,
				Status: string(usage.InvocationSuccess),
			})
			history = append(history, schema.UserMessage(protocol.BuildResultFeedback(invoke.Plugin, operation, resp.Result)))

		case errors.Is(callErr, errno.ErrCancelled):
			m.settle(session, idx, usage.InvocationCancelled, callErr.Error(), elapsed)
			emit(sw, &Event{
				Type: EventResult, Step: res.Steps,
				PluginID: invoke.Plugin, Operation: operation,
				Status: string(usage.InvocationCancelled), Error: callErr.Error(),
			})
			return m.finish(ctx, res, callErr)

		default:
			m.settle(session, idx, usage.InvocationFailed, callErr.Error(), elapsed)
			emit(sw, &Event{
				Type: EventResult, Step: res.Steps,
				PluginID: invoke.Plugin, Operation: operation,
				Status: string(usage.InvocationFailed), Error: callErr.Error(),
			})
			history = append(history, schema.UserMessage(protocol.BuildErrorFeedback(invoke.Plugin, operation, callErr)))
		}
	}

	return m.finish(ctx, res, fmt.Errorf("%w: step budget %d exhausted without a final answer",
		errno.ErrBudgetExceeded, m.maxSteps))
}

func (m *Module) settle(session string, idx int, status usage.InvocationStatus, errMsg string, elapsed time.Duration) {
	if err := m.tracker.UpdateInvocationResult(session, idx, status, errMsg, elapsed); err != nil {
		logger.WarnX("dispatch", "session %s: settle invocation %d: %v", session, idx, err)
	}
}

// finish archives the session under the status the run outcome implies and
// folds the recorded invocations into the result.
func (m *Module) finish(ctx context.Context, res *Result, runErr error) (*Result, error) {
	status := usage.SessionCompleted
	switch {
	case runErr == nil:
	case errors.Is(runErr, errno.ErrCancelled):
		status = usage.SessionCancelled
	default:
		status = usage.SessionFailed
	}

	if err := m.tracker.ArchiveSession(ctx, res.SessionID, status); err != nil {
		logger.WarnX("dispatch", "archive session %s: %v", res.SessionID, err)
	} else if sum, err := m.tracker.SessionSummary(ctx, res.SessionID); err == nil {
		res.Invocations = sum.Invocations
	}

	return res, runErr
}

func emit(sw *schema.StreamWriter[*Event], ev *Event) {
	if sw == nil {
		return
	}
	sw.Send(ev, nil)
}
