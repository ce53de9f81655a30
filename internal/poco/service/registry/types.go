package registry

// Capability is a declared permission drawn from the closed vocabulary.
type Capability string

const (
	CapabilityFileRead   Capability = "file-read"
	CapabilityFileWrite  Capability = "file-write"
	CapabilityNetwork    Capability = "network"
	CapabilityExec       Capability = "exec"
	CapabilitySystemInfo Capability = "system-info"
)

// knownCapabilities is the closed capability vocabulary. Manifests referencing
// anything else are rejected.
var knownCapabilities = map[Capability]struct{}{
	CapabilityFileRead:   {},
	CapabilityFileWrite:  {},
	CapabilityNetwork:    {},
	CapabilityExec:       {},
	CapabilitySystemInfo: {},
}

// Known reports whether the capability is part of the closed vocabulary.
func (c Capability) Known() bool {
	_, ok := knownCapabilities[c]
	return ok
}

// KnownCapabilities returns the closed vocabulary in stable order.
func KnownCapabilities() []Capability {
	return []Capability{
		CapabilityFileRead,
		CapabilityFileWrite,
		CapabilityNetwork,
		CapabilityExec,
		CapabilitySystemInfo,
	}
}

// OptionSpec describes one user-configurable option of a plugin. Option
// values are handed to the plugin process as environment variables on start.
type OptionSpec struct {
	Type        string      `json:"type"`
	Required    bool        `json:"required"`
	Default     interface{} `json:"default,omitempty"`
	Description string      `json:"description,omitempty"`
}

// ParamSpec describes one input field of a plugin operation.
type ParamSpec struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required,omitempty"`
}

// OperationSpec describes one operation a plugin offers. The core never
// enumerates operations on the wire; these feed prompt assembly only.
type OperationSpec struct {
	Name        string               `json:"name"`
	Description string               `json:"description,omitempty"`
	Params      map[string]ParamSpec `json:"params,omitempty"`
	Example     string               `json:"example,omitempty"`
}

// PluginDescriptor is the immutable metadata loaded from a plugin manifest.
// Descriptors are never mutated after a successful load; holders may share
// them freely.
type PluginDescriptor struct {
	ID          string                `json:"id"`
	Name        string                `json:"name"`
	Version     string                `json:"version"`
	Description string                `json:"description"`
	Author      string                `json:"author"`
	Entrypoint  string                `json:"entrypoint"`
	Port        int                   `json:"port"`
	Permissions []Capability          `json:"permissions"`
	Options     map[string]OptionSpec `json:"options,omitempty"`
	Operations  []OperationSpec       `json:"operations,omitempty"`
	License     string                `json:"license,omitempty"`
	Homepage    string                `json:"homepage,omitempty"`

	// Dir is the plugin directory the manifest was loaded from.
	Dir string `json:"-"`
}
