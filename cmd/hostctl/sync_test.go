package main

import (
	"errors"
	"testing"
)

func TestResolveSyncHostPropagatesUnknownProvider(t *testing.T) {
	withApp(t) // no providers configured

	if _, err := resolveSyncHost("box"); err == nil {
		t.Fatal("expected an error when no provider is configured")
	}
}

func TestResolveSyncHostPropagatesHostLookupError(t *testing.T) {
	withApp(t, &fakeProvider{name: "docker", err: errors.New("no such host")})

	if _, err := resolveSyncHost("box"); err == nil {
		t.Fatal("expected the host lookup error to propagate")
	}
}
