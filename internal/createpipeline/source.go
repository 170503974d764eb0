package createpipeline

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/silexa/hostctl/internal/hostd"
	"github.com/silexa/hostctl/internal/hosterrors"
	"github.com/silexa/hostctl/internal/ids"
	"github.com/silexa/hostctl/internal/provider"
	"github.com/silexa/hostctl/internal/statestore"
	"github.com/silexa/hostctl/internal/transport"
)

// SourceLocation is the result of resolving step 3's "source" argument: a
// bare path (skip provider enumeration) or a reference to an existing
// agent/host on one of providers.
type SourceLocation struct {
	Host *hostd.Host
	Path string
}

// looksLikePath treats anything containing a path separator, or starting
// with "." or "~", as a path rather than an agent/host reference. Whether
// the name exists on the local filesystem is not checked.
func looksLikePath(ref string) bool {
	if strings.ContainsAny(ref, "/\\") {
		return true
	}
	if strings.HasPrefix(ref, ".") || strings.HasPrefix(ref, "~") {
		return true
	}
	return false
}

// ResolveSource implements step 3: if ref is a bare path, it is returned
// against localHost unchanged (no provider enumeration - the fast, common
// case). Otherwise ref is matched by name or id first against hosts, then
// against every host's agents, across providers in order; the first match
// wins since agent/host names are expected to be unique within a single
// control plane.
func ResolveSource(ctx context.Context, providers []provider.Provider, ref string, localHost *hostd.Host, store statestore.Store, log *slog.Logger) (*SourceLocation, error) {
	if looksLikePath(ref) {
		return &SourceLocation{Host: localHost, Path: ref}, nil
	}

	for _, prov := range providers {
		if record, err := prov.GetHost(ctx, ref); err == nil && record != nil {
			h, err := defaultHostBuilder(prov, record, store, log)
			if err != nil {
				return nil, err
			}
			return &SourceLocation{Host: h, Path: h.HostDir}, nil
		}
	}

	for _, prov := range providers {
		hosts, err := prov.ListHosts(ctx, false)
		if err != nil {
			continue
		}
		for _, record := range hosts {
			agents, err := prov.ListPersistedAgentData(ctx, record.Certified.HostID)
			if err != nil {
				continue
			}
			for _, a := range agents {
				if string(a.ID) == ref || a.Name == ref {
					h, err := defaultHostBuilder(prov, record, store, log)
					if err != nil {
						return nil, err
					}
					return &SourceLocation{Host: h, Path: a.WorkDir}, nil
				}
			}
		}
	}

	return nil, &hosterrors.UserInputError{Reason: "no agent or host matches source reference " + ref}
}

// ValidateProjectNameConsistency implements step 3's extra guard: creating
// a brand-new remote host from a local working tree should not silently
// diverge from that tree's own project name when the caller also supplied
// an explicit host name.
func ValidateProjectNameConsistency(localPath, explicitHostName string) error {
	if explicitHostName == "" || localPath == "" {
		return nil
	}
	projectName := filepath.Base(strings.TrimRight(localPath, "/"))
	if projectName != "" && projectName != explicitHostName {
		return &hosterrors.UserInputError{
			Reason: "host name " + explicitHostName + " does not match source working tree " + projectName,
		}
	}
	return nil
}

// NewLocalHost wraps a direct-exec Connector as the *hostd.Host representing
// the local control plane's own filesystem, for callers that need to pass a
// concrete local source (SourceHost must never be nil - a local source is a
// real Host bound to transport.Local, not a nil sentinel).
func NewLocalHost(id ids.HostID, hostDir string, store statestore.Store, log *slog.Logger) *hostd.Host {
	return hostd.New(id, hostDir, DefaultSessionPrefix, &transport.Local{}, store, log)
}
