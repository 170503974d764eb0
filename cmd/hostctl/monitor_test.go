package main

import (
	"errors"
	"testing"

	"github.com/silexa/hostctl/internal/statestore"
)

func TestProviderHostListerSkipsProvidersWithoutAStore(t *testing.T) {
	withApp(t, noStoreProvider{})

	hosts := providerHostLister{}.Hosts()
	if len(hosts) != 0 {
		t.Fatalf("expected no hosts from a provider exposing no store, got %d", len(hosts))
	}
}

func TestProviderHostListerSkipsOnListError(t *testing.T) {
	withApp(t, &fakeProvider{name: "docker", store: &statestore.LocalStore{}, err: errors.New("daemon unreachable")})

	hosts := providerHostLister{}.Hosts()
	if len(hosts) != 0 {
		t.Fatalf("expected no hosts when ListHosts fails, got %d", len(hosts))
	}
}
