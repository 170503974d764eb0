// Package notify surfaces terminal agent failures (AgentStartError,
// SendMessageError — spec.md §7) to a Slack channel, so an operator
// watching a channel doesn't have to tail control-plane logs.
package notify

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"
)

// Notifier posts terminal-failure messages to a single Slack channel via a
// bot token.
type Notifier struct {
	client    *slack.Client
	channelID string
}

// New builds a Notifier. A blank token disables posting; callers still get
// a usable *Notifier whose Notify calls are no-ops, so wiring it in doesn't
// require a nil check at every call site.
func New(botToken, channelID string) *Notifier {
	if botToken == "" {
		return &Notifier{}
	}
	return &Notifier{client: slack.New(botToken), channelID: channelID}
}

// NotifyFailure posts a one-line failure summary for a terminal agent
// error. hostRef/agentRef are included for operators scanning a busy
// channel.
func (n *Notifier) NotifyFailure(ctx context.Context, hostRef, agentRef string, cause error) error {
	if n.client == nil {
		return nil
	}
	text := fmt.Sprintf(":warning: agent %s on host %s failed: %v", agentRef, hostRef, cause)
	_, _, err := n.client.PostMessageContext(ctx, n.channelID, slack.MsgOptionText(text, false))
	if err != nil {
		return fmt.Errorf("slack notify: %w", err)
	}
	return nil
}
