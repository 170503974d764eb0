package docker

import (
	"encoding/json"
	"fmt"

	"github.com/silexa/hostctl/internal/ids"
)

// labelKeys holds the four core label keys used for discovery and
// round-tripping user tags (spec.md §4.E/§6): <prefix>.host-id,
// <prefix>.host-name, <prefix>.provider, <prefix>.tags; plus
// <prefix>.role, which marks the singleton state container.
type labelKeys struct {
	hostID   string
	hostName string
	provider string
	tags     string
	role     string
}

func newLabelKeys(prefix string) labelKeys {
	return labelKeys{
		hostID:   prefix + ".host-id",
		hostName: prefix + ".host-name",
		provider: prefix + ".provider",
		tags:     prefix + ".tags",
		role:     prefix + ".role",
	}
}

const providerName = "docker"

// hostLabels builds the label set stamped onto every agent-host container.
func (p *Provider) hostLabels(id ids.HostID, name string, tags map[string]string) (map[string]string, error) {
	encodedTags, err := json.Marshal(tags)
	if err != nil {
		return nil, fmt.Errorf("encode tags: %w", err)
	}
	return map[string]string{
		p.labels.hostID:   string(id),
		p.labels.hostName: name,
		p.labels.provider: providerName,
		p.labels.tags:     string(encodedTags),
	}, nil
}

// stateContainerLabels identifies the singleton state container (the one
// that keeps the shared state volume mounted).
func (p *Provider) stateContainerLabels() map[string]string {
	return map[string]string{
		p.labels.provider: providerName,
		p.labels.role:     "state",
	}
}

func decodeTags(encoded string) map[string]string {
	if encoded == "" {
		return map[string]string{}
	}
	var tags map[string]string
	if err := json.Unmarshal([]byte(encoded), &tags); err != nil {
		return map[string]string{}
	}
	return tags
}
