package createpipeline

import (
	"path/filepath"
	"testing"
)

func TestResolveMessagePrefersLiteral(t *testing.T) {
	got, err := resolveMessage(MessageInput{Literal: "hello", Path: "/does/not/exist"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "hello" {
		t.Fatalf("expected literal message, got %q", got)
	}
}

func TestResolveMessageReadsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "msg.txt")
	if err := writeFile(path, "from file\n"); err != nil {
		t.Fatalf("setup: %v", err)
	}
	got, err := resolveMessage(MessageInput{Path: path})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "from file\n" {
		t.Fatalf("unexpected content: %q", got)
	}
}

func TestResolveMessageEmpty(t *testing.T) {
	got, err := resolveMessage(MessageInput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "" {
		t.Fatalf("expected empty message, got %q", got)
	}
}
