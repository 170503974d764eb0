package agent

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/silexa/hostctl/internal/hosterrors"
	"github.com/silexa/hostctl/internal/transport"
)

// Constants for the marker-based send-message protocol, grounded on
// base_agent.py's module-level Final constants of the same shape.
const (
	sendMessagePollInterval = 50 * time.Millisecond
	sendMessageTimeout      = 10 * time.Second
	tuiReadyTimeout         = 30 * time.Second

	enterSubmissionWaitTimeout = 500 * time.Millisecond
	initialBackspaceSettle     = 500 * time.Millisecond
	retryBackspaceSettle       = 200 * time.Millisecond
	preEnterDelay              = 300 * time.Millisecond

	defaultMaxEnterRetries = 10
)

// SendMessage delivers message to the agent's multiplexer session, using
// marker-based synchronization when the agent type requires it (spec.md
// §4.F).
func (a *Agent) SendMessage(message string) error {
	if a.Type != nil && a.Type.UsesMarkerBasedSend {
		return a.sendMessageWithMarker(message)
	}
	return a.sendMessageSimple(message)
}

func (a *Agent) run(cmd string) (transport.RunResult, error) {
	return a.Host.ExecuteCommand(cmd, transport.RunOptions{})
}

func (a *Agent) sendMessageSimple(message string) error {
	session := a.sessionName()

	sendCmd := fmt.Sprintf("tmux send-keys -t %s -l %s", shQuote(session), shQuote(message))
	result, err := a.run(sendCmd)
	if err != nil {
		return err
	}
	if !result.Success {
		return &hosterrors.SendMessageError{Agent: a.Record.Name, Reason: "tmux send-keys failed: " + firstNonEmpty(result.Stderr, result.Stdout)}
	}

	time.Sleep(a.enterDelay())

	enterCmd := fmt.Sprintf("tmux send-keys -t %s Enter", shQuote(session))
	result, err = a.run(enterCmd)
	if err != nil {
		return err
	}
	if !result.Success {
		return &hosterrors.SendMessageError{Agent: a.Record.Name, Reason: "tmux send-keys Enter failed: " + firstNonEmpty(result.Stderr, result.Stdout)}
	}
	return nil
}

// sendMessageWithMarker appends a fresh marker to the message, waits for it
// to echo into the pane, removes it with backspaces, confirms the message
// text is in place, then submits via sendEnterWithRetry. Grounded
// line-for-line on base_agent.py _send_message_with_marker.
func (a *Agent) sendMessageWithMarker(message string) error {
	session := a.sessionName()

	if a.Type != nil && a.Type.TUIReadyIndicator != "" {
		if err := a.waitForPaneContains(session, a.Type.TUIReadyIndicator, tuiReadyTimeout); err != nil {
			return &hosterrors.SendMessageError{Agent: a.Record.Name, Reason: "timeout waiting for TUI to be ready"}
		}
	}

	marker := randomHexMarker()
	messageWithMarker := message + marker

	sendCmd := fmt.Sprintf("tmux send-keys -t %s -l %s", shQuote(session), shQuote(messageWithMarker))
	result, err := a.run(sendCmd)
	if err != nil {
		return err
	}
	if !result.Success {
		return &hosterrors.SendMessageError{Agent: a.Record.Name, Reason: "tmux send-keys failed: " + firstNonEmpty(result.Stderr, result.Stdout), LastMarker: marker}
	}

	if err := a.waitForPaneContains(session, marker, sendMessageTimeout); err != nil {
		return &hosterrors.SendMessageError{Agent: a.Record.Name, Reason: "timeout waiting for message marker to appear", LastMarker: marker}
	}

	if err := a.sendBackspaceWithNoop(session, len(marker), initialBackspaceSettle); err != nil {
		return err
	}

	expectedEnding := message
	if len(message) > 20 {
		expectedEnding = message[len(message)-20:]
	}
	if err := a.waitForMarkerRemovedAndContains(session, marker, expectedEnding); err != nil {
		return &hosterrors.SendMessageError{Agent: a.Record.Name, Reason: "timeout waiting for message to be ready for submission", LastMarker: marker}
	}

	time.Sleep(preEnterDelay)

	return a.sendEnterWithRetry(session, defaultMaxEnterRetries)
}

func (a *Agent) enterDelay() time.Duration {
	if a.Type != nil {
		return a.Type.enterDelay()
	}
	return DefaultEnterDelay
}

// sendBackspaceWithNoop sends count backspaces, waits settleDelay for the
// input handler to process them, then sends a Right/Left no-op to force
// the handler out of any state where the next Enter could be treated as a
// literal newline (base_agent.py _send_backspace_with_noop).
func (a *Agent) sendBackspaceWithNoop(session string, count int, settleDelay time.Duration) error {
	if count > 0 {
		keys := strings.TrimSpace(strings.Repeat("BSpace ", count))
		cmd := fmt.Sprintf("tmux send-keys -t %s %s", shQuote(session), keys)
		result, err := a.run(cmd)
		if err != nil {
			return err
		}
		if !result.Success {
			return &hosterrors.SendMessageError{Agent: a.Record.Name, Reason: "tmux send-keys BSpace failed: " + firstNonEmpty(result.Stderr, result.Stdout)}
		}
	}

	time.Sleep(settleDelay)

	noopCmd := fmt.Sprintf("tmux send-keys -t %s Right Left", shQuote(session))
	if _, err := a.run(noopCmd); err != nil {
		return err
	}
	return nil
}

func (a *Agent) capturePane(session string) (string, bool) {
	result, err := a.Host.ExecuteCommand(
		fmt.Sprintf("tmux capture-pane -t %s -p", shQuote(session)),
		transport.RunOptions{Timeout: 5 * time.Second},
	)
	if err != nil || !result.Success {
		return "", false
	}
	return strings.TrimRight(result.Stdout, "\n"), true
}

func (a *Agent) waitForPaneContains(session, text string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		if content, ok := a.capturePane(session); ok && strings.Contains(content, text) {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("timed out waiting for %q in pane", text)
		}
		time.Sleep(sendMessagePollInterval)
	}
}

func (a *Agent) waitForMarkerRemovedAndContains(session, marker, expectedEnding string) error {
	deadline := time.Now().Add(sendMessageTimeout)
	for {
		if content, ok := a.capturePane(session); ok {
			if !strings.Contains(content, marker) && strings.Contains(content, expectedEnding) {
				return nil
			}
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("timed out waiting for marker removal")
		}
		time.Sleep(sendMessagePollInterval)
	}
}

// sendEnterWithRetry submits the pending input, retrying against the
// well-known failure mode where Enter is interpreted as a literal newline
// instead of submit (base_agent.py _send_enter_with_retry).
func (a *Agent) sendEnterWithRetry(session string, maxRetries int) error {
	waitChannel := "hostctl-submit-" + session

	for attempt := 0; attempt < maxRetries; attempt++ {
		ok, err := a.sendEnterAndWaitForSignal(session, waitChannel)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if err := a.sendBackspaceWithNoop(session, 1, retryBackspaceSettle); err != nil {
			return err
		}
	}

	return &hosterrors.SendMessageError{
		Agent:  a.Record.Name,
		Reason: fmt.Sprintf("failed to submit message after %d attempts - Enter keeps being interpreted as newline", maxRetries),
	}
}

// sendEnterAndWaitForSignal starts a tmux wait-for listener, sends Enter,
// then polls whether the listener has been released - all inside a single
// shell invocation so there is no race between starting the listener and
// the agent-side prompt-submit hook firing `tmux wait-for <channel>`
// (base_agent.py _send_enter_and_wait_for_signal, required for P6).
func (a *Agent) sendEnterAndWaitForSignal(session, waitChannel string) (bool, error) {
	iterations := int(enterSubmissionWaitTimeout.Seconds() * 100)
	script := fmt.Sprintf(
		`tmux wait-for "$0" & W=$!; tmux send-keys -t "$1" Enter; for i in $(seq 1 %d); do kill -0 $W 2>/dev/null || exit 0; sleep 0.01; done; kill $W 2>/dev/null; exit 1`,
		iterations,
	)
	cmd := fmt.Sprintf("bash -c %s %s %s", shQuote(script), shQuote(waitChannel), shQuote(session))
	result, err := a.Host.ExecuteCommand(cmd, transport.RunOptions{Timeout: enterSubmissionWaitTimeout + time.Second})
	if err != nil {
		return false, err
	}
	return result.Success, nil
}

func randomHexMarker() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing means the platform RNG is broken; fall back
		// to a fixed marker rather than panicking mid-protocol.
		return "deadbeefdeadbeefdeadbeefdeadbeef"
	}
	return hex.EncodeToString(buf)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
