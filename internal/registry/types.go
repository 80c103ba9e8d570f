package registry

import (
	"encoding/json"
	"time"
)

// Status is the health status of a ServiceInstance.
type Status int

const (
	// StatusUnknown is the zero value, never assigned to a stored instance.
	StatusUnknown Status = iota
	// StatusPassing means the instance's health endpoint is responding.
	StatusPassing
	// StatusWarning means at least one, but fewer than CriticalAfterProbes,
	// consecutive probes have failed (a probe reporting Warning counts as
	// a failure).
	StatusWarning
	// StatusCritical means at least CriticalAfterProbes consecutive probes
	// have failed.
	StatusCritical
)

// String renders a Status for logs and wire responses.
func (s Status) String() string {
	switch s {
	case StatusPassing:
		return "Passing"
	case StatusWarning:
		return "Warning"
	case StatusCritical:
		return "Critical"
	default:
		return "Unknown"
	}
}

// atLeast reports whether s is at least as healthy as min, ordered
// Passing > Warning > Critical > Unknown.
func (s Status) atLeast(min Status) bool {
	rank := func(st Status) int {
		switch st {
		case StatusPassing:
			return 3
		case StatusWarning:
			return 2
		case StatusCritical:
			return 1
		default:
			return 0
		}
	}
	return rank(s) >= rank(min)
}

// ServiceInstance is one registered spoke process.
type ServiceInstance struct {
	ID              string
	Name            string
	Address         string
	Tags            []string
	Metadata        map[string]string
	HealthEndpoint  string
	RegisteredAt    time.Time
	LastHeartbeatAt time.Time
	Status          Status
	// Version increments on every state change to this instance, giving
	// callers a monotonic read: once a caller observes (ID, Version) it
	// will never see that pair regress.
	Version uint64
}

// hasTag reports whether the instance carries tag.
func (si *ServiceInstance) hasTag(tag string) bool {
	if tag == "" {
		return true
	}
	for _, t := range si.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// ToolDescriptor is a declared capability of a spoke, attached to a
// service name rather than a specific instance.
type ToolDescriptor struct {
	QualifiedName     string
	Description       string
	InputSchema       json.RawMessage
	OutputSchema      json.RawMessage
	OwningServiceName string
}

// Filter narrows Discover/ListTools queries.
type Filter struct {
	Name      string
	Tag       string
	MinStatus Status
}

// Matches reports whether inst satisfies filter: name equality when
// filter.Name is set, tag membership when filter.Tag is set, and a
// minimum health status.
func Matches(inst ServiceInstance, filter Filter) bool {
	if filter.Name != "" && inst.Name != filter.Name {
		return false
	}
	if !inst.hasTag(filter.Tag) {
		return false
	}
	return inst.Status.atLeast(filter.MinStatus)
}
