package notify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/slack-go/slack"
)

func TestNewWithBlankTokenIsNoOp(t *testing.T) {
	n := New("", "#ops")
	if err := n.NotifyFailure(context.Background(), "host-1", "agent-1", context.Canceled); err != nil {
		t.Fatalf("expected no-op notifier to succeed silently, got: %v", err)
	}
}

func TestNotifyFailurePostsMessage(t *testing.T) {
	var receivedText string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		receivedText = r.FormValue("text")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true,"channel":"C1","ts":"1234.5678"}`))
	}))
	defer server.Close()

	n := &Notifier{client: slack.New("xoxb-test", slack.OptionAPIURL(server.URL+"/")), channelID: "#ops"}
	err := n.NotifyFailure(context.Background(), "host-1", "agent-1", context.Canceled)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(receivedText, "agent-1") || !strings.Contains(receivedText, "host-1") {
		t.Fatalf("unexpected posted text: %s", receivedText)
	}
}
