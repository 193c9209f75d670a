package topology

import (
	"errors"
	"fmt"
)

// ErrNotConfigured is returned when neither an inline topology nor a
// topology file was provided.
var ErrNotConfigured = errors.New("no topology configured: set SOLR_TOPOLOGY or SOLR_TOPOLOGY_FILE")

// Kinds of things a NotFoundError can refer to.
const (
	KindDatacenter = "datacenter"
	KindNode       = "node"
)

// NotFoundError reports a selector that matched nothing in the topology.
type NotFoundError struct {
	Kind       string
	Name       string
	Datacenter string
}

func (e *NotFoundError) Error() string {
	if e.Kind == KindNode && e.Datacenter != "" {
		return fmt.Sprintf("node %q not found in datacenter %q", e.Name, e.Datacenter)
	}
	return fmt.Sprintf("%s %q not found", e.Kind, e.Name)
}

// ConfigurationError reports a topology that could not be loaded.
type ConfigurationError struct {
	Source string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Source == "" {
		return "topology configuration: " + e.Err.Error()
	}
	return fmt.Sprintf("topology configuration (%s): %v", e.Source, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsConfiguration reports whether err is a ConfigurationError.
func IsConfiguration(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}
