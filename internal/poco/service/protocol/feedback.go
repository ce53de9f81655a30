package protocol

import (
	"fmt"
	"strings"

	"github.com/libreassistant/poco/pkg/utils/json"
)

const (
	resultOpen  = "[plugin result]"
	resultClose = "[end plugin result]"
	errorOpen   = "[plugin error]"
	errorClose  = "[end plugin error]"
)

// BuildResultFeedback renders one plugin result for the next model turn. The
// section markers keep the payload clearly separated from user input.
func BuildResultFeedback(pluginID, operation string, result interface{}) string {
	payload, err := json.Marshal(result)
	if err != nil {
		payload = []byte(fmt.Sprintf("%v", result))
	}

	var b strings.Builder
	b.WriteString(resultOpen + "\n")
	fmt.Fprintf(&b, "plugin: %s\noperation: %s\n", pluginID, operation)
	b.Write(payload)
	b.WriteString("\n" + resultClose + "\n")
	b.WriteString("Use this result to answer the user, or request the next call.")

	return b.String()
}

// BuildErrorFeedback renders one failed plugin call for the next model turn.
// A given failure goes into the conversation exactly once; repeating the
// identical call afterwards trips the duplicate guard instead.
func BuildErrorFeedback(pluginID, operation string, callErr error) string {
	var b strings.Builder
	b.WriteString(errorOpen + "\n")
	fmt.Fprintf(&b, "plugin: %s\noperation: %s\nerror: %v\n", pluginID, operation, callErr)
	b.WriteString(errorClose + "\n")
	b.WriteString("Do not repeat this exact call. Choose a different action or answer directly.")

	return b.String()
}

// BuildUnavailableFeedback tells the model a plugin it picked cannot take
// calls right now.
func BuildUnavailableFeedback(pluginID string) string {
	return fmt.Sprintf("[system note]\nplugin %q is not running and cannot be called. Choose another plugin or answer directly.", pluginID)
}
