package chat

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/onnwee/bili-relay/bvid"
	"github.com/onnwee/bili-relay/relay"
)

// Notifier reports orchestrator outcomes back into chat. The sender is
// bound once the IRC client exists; outcomes arriving before that are
// dropped with a log line, which only happens during startup.
type Notifier struct {
	mu     sync.RWMutex
	sender Sender
}

func NewNotifier() *Notifier { return &Notifier{} }

// Bind attaches the chat transport.
func (n *Notifier) Bind(s Sender) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sender = s
}

func (n *Notifier) say(channel, text string) {
	n.mu.RLock()
	s := n.sender
	n.mu.RUnlock()
	if s == nil {
		slog.Warn("dropping chat notification: no sender bound", slog.String("text", text))
		return
	}
	s.Say(channel, text)
}

// SubmitOutcome tells the requester whether the service took the request.
func (n *Notifier) SubmitOutcome(req relay.Request, bv bvid.Bvid, accepted bool) {
	if accepted {
		n.say(req.Channel, fmt.Sprintf("Archive request %s was successfully sent.", bv))
	} else {
		n.say(req.Channel, fmt.Sprintf("Archive request %s failed.", bv))
	}
}

// ArchiveReady announces the finished artifact.
func (n *Notifier) ArchiveReady(req relay.Request, bv bvid.Bvid, url string) {
	n.say(req.Channel, fmt.Sprintf("🎉 Archive of %s was done, item uploaded to %s", bv, url))
}
