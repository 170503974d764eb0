// Package listing implements spec.md §4.J: concurrent per-provider
// enumeration with per-provider error capture, streaming and batch output
// pipelines, and a closed boolean filter grammar over agent fields.
package listing

import (
	"time"

	"github.com/silexa/hostctl/internal/ids"
	"github.com/silexa/hostctl/internal/provider"
)

// AgentView is the flattened, filter/sort-able projection of one agent
// joined with its host, built from cheap metadata only (persisted agent
// data + host record) — it deliberately does not connect to the host, per
// original_source's get_agent_references "without full load" shape (§6
// supplemented features).
type AgentView struct {
	AgentID    ids.AgentID
	AgentName  string
	AgentType  string
	CreateTime time.Time

	HostID    ids.HostID
	HostName  string
	HostState ids.HostState
	Provider  string

	Tags      map[string]string
	Resources *provider.HostResources // not filled by ListBatch/ListStreaming; always nil from them
}

// Field looks up a named attribute for the filter evaluator and sort
// comparator. Nested host fields use a "host." prefix (spec.md §4.J
// mentions sorting on nested fields like host.name).
func (v AgentView) Field(name string) (any, bool) {
	switch name {
	case "id", "agent_id":
		return string(v.AgentID), true
	case "name", "agent_name":
		return v.AgentName, true
	case "type", "agent_type":
		return v.AgentType, true
	case "create_time":
		return v.CreateTime, true
	case "host.id", "host_id":
		return string(v.HostID), true
	case "host.name", "host_name":
		return v.HostName, true
	case "host.state", "host_state":
		return string(v.HostState), true
	case "provider":
		return v.Provider, true
	default:
		if tag, ok := strippedTagField(name); ok {
			val, present := v.Tags[tag]
			return val, present
		}
		return nil, false
	}
}

func strippedTagField(name string) (string, bool) {
	const prefix = "tags."
	if len(name) > len(prefix) && name[:len(prefix)] == prefix {
		return name[len(prefix):], true
	}
	return "", false
}
