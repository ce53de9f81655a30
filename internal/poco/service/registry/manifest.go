package registry

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/libreassistant/poco/internal/poco/pkg/errno"
	"github.com/libreassistant/poco/pkg/utils/json"
)

// ManifestFileName is the manifest file looked up in every plugin directory.
const ManifestFileName = "plugin.json"

const (
	// PortMin and PortMax bound the loopback port a plugin may claim.
	PortMin = 1024
	PortMax = 65535
)

var idPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// optionTypes are the value types a plugin option schema may use.
var optionTypes = map[string]struct{}{
	"string":  {},
	"number":  {},
	"integer": {},
	"boolean": {},
}

// LoadManifest reads and validates the manifest inside dir.
func LoadManifest(dir string) (*PluginDescriptor, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFileName))
	if err != nil {
		return nil, err
	}

	return ParseManifest(data, dir)
}

// ParseManifest decodes manifest bytes and validates every field. Unknown
// top-level fields are ignored so manifests can carry forward-compatible
// extras.
func ParseManifest(data []byte, dir string) (*PluginDescriptor, error) {
	var d PluginDescriptor
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", errno.ErrManifestInvalid, ManifestFileName, err)
	}
	d.Dir = dir

	if errs := d.Validate(); len(errs) != 0 {
		return nil, fmt.Errorf("%w: %v", errno.ErrManifestInvalid, errors.Join(errs...))
	}

	return &d, nil
}

// Validate checks the descriptor against the manifest rules and returns every
// violation found, not just the first.
func (d *PluginDescriptor) Validate() []error {
	var errs []error

	if d.ID == "" {
		errs = append(errs, errors.New("id is required"))
	} else if !idPattern.MatchString(d.ID) {
		errs = append(errs, fmt.Errorf("id %q must be lowercase letters, digits and hyphens", d.ID))
	}

	if d.Name == "" {
		errs = append(errs, errors.New("name is required"))
	}
	if d.Version == "" {
		errs = append(errs, errors.New("version is required"))
	}
	if d.Description == "" {
		errs = append(errs, errors.New("description is required"))
	}
	if d.Author == "" {
		errs = append(errs, errors.New("author is required"))
	}
	if d.Entrypoint == "" {
		errs = append(errs, errors.New("entrypoint is required"))
	}

	if d.Port < PortMin || d.Port > PortMax {
		errs = append(errs, fmt.Errorf("port %d outside [%d, %d]", d.Port, PortMin, PortMax))
	}

	for _, p := range d.Permissions {
		if !p.Known() {
			errs = append(errs, fmt.Errorf("unknown permission %q", p))
		}
	}

	for name, opt := range d.Options {
		if name == "" {
			errs = append(errs, errors.New("option with empty name"))
			continue
		}
		if _, ok := optionTypes[opt.Type]; !ok {
			errs = append(errs, fmt.Errorf("option %q has unknown type %q", name, opt.Type))
		}
	}

	for _, op := range d.Operations {
		if op.Name == "" {
			errs = append(errs, errors.New("operation with empty name"))
		}
	}

	return errs
}
