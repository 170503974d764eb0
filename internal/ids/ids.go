// Package ids defines the branded identifier types used throughout the
// control plane: HostID, AgentID, SnapshotID, VolumeID. Equality and
// ordering are lexical over the string form; identifiers carry neither
// provider nor name.
package ids

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// HostID identifies a host: "host-<32 hex>".
type HostID string

// AgentID identifies an agent. Agent IDs are bare hex, scoped under a host.
type AgentID string

// SnapshotID identifies a provider-captured filesystem snapshot.
type SnapshotID string

// VolumeID identifies a persistent volume: "vol-<32 hex>".
type VolumeID string

const (
	hostPrefix   = "host-"
	volumePrefix = "vol-"
)

// NewHostID generates a fresh v4-UUID-backed host identifier.
func NewHostID() HostID {
	return HostID(hostPrefix + hex(uuid.New()))
}

// NewAgentID generates a fresh v4-UUID-backed agent identifier.
func NewAgentID() AgentID {
	return AgentID(hex(uuid.New()))
}

// NewSnapshotID generates a fresh v4-UUID-backed snapshot identifier.
func NewSnapshotID() SnapshotID {
	return SnapshotID(hex(uuid.New()))
}

// NewVolumeID generates a fresh v4-UUID-backed volume identifier.
func NewVolumeID() VolumeID {
	return VolumeID(volumePrefix + hex(uuid.New()))
}

// VolumeIDForHost derives the VolumeID associated with a HostID by swapping
// the prefix and keeping the shared hex suffix, per spec.md §3.
func VolumeIDForHost(id HostID) (VolumeID, bool) {
	suffix, ok := strings.CutPrefix(string(id), hostPrefix)
	if !ok {
		return "", false
	}
	return VolumeID(volumePrefix + suffix), true
}

// HostIDForVolume is the inverse of VolumeIDForHost.
func HostIDForVolume(id VolumeID) (HostID, bool) {
	suffix, ok := strings.CutPrefix(string(id), volumePrefix)
	if !ok {
		return "", false
	}
	return HostID(hostPrefix + suffix), true
}

// ParseHostID validates and returns id if it is a well-formed host id.
func ParseHostID(s string) (HostID, error) {
	suffix, ok := strings.CutPrefix(s, hostPrefix)
	if !ok || !isHex(suffix) {
		return "", fmt.Errorf("ids: invalid host id %q", s)
	}
	return HostID(s), nil
}

// ParseVolumeID validates and returns id if it is a well-formed volume id.
func ParseVolumeID(s string) (VolumeID, error) {
	suffix, ok := strings.CutPrefix(s, volumePrefix)
	if !ok || !isHex(suffix) {
		return "", fmt.Errorf("ids: invalid volume id %q", s)
	}
	return VolumeID(s), nil
}

// ParseAgentID validates and returns id if it is a well-formed agent id.
func ParseAgentID(s string) (AgentID, error) {
	if !isHex(s) {
		return "", fmt.Errorf("ids: invalid agent id %q", s)
	}
	return AgentID(s), nil
}

func hex(u uuid.UUID) string {
	return strings.ReplaceAll(u.String(), "-", "")
}

func isHex(s string) bool {
	if len(s) == 0 {
		return false
	}
	for _, r := range s {
		if !((r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')) {
			return false
		}
	}
	return true
}
