package chat

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/onnwee/bili-relay/bvid"
	"github.com/onnwee/bili-relay/policy"
	"github.com/onnwee/bili-relay/relay"
	"github.com/onnwee/bili-relay/telemetry"
)

// hearsPattern triggers archive handling for plain messages that carry a
// BV id, a short link, or a bilibili video URL without an explicit command.
var hearsPattern = sync.OnceValue(func() *regexp.Regexp {
	return regexp.MustCompile(`(?i)BV[a-zA-Z0-9]{10}|(bili2233\.cn|b23\.(tv|wtf))/\S+|www\.bilibili\.com/(video|medialist|list)/\S+`)
})

// Sender delivers a reply to a channel.
type Sender interface {
	Say(channel, text string)
}

// RequestHandler accepts archive requests; implemented by relay.Orchestrator.
type RequestHandler interface {
	HandleRequest(ctx context.Context, req relay.Request)
}

// QueueLister exposes the archive service's pending queue.
type QueueLister interface {
	Queue(ctx context.Context) []bvid.Bvid
}

// Bot dispatches chat messages to command handlers. It is transport
// agnostic; Start wires it to a Twitch IRC client.
type Bot struct {
	Sender           Sender
	Handler          RequestHandler
	Queue            QueueLister
	Policy           *policy.Store
	BlacklistEnabled bool
}

// Message is one inbound chat message, already stripped of transport
// details. UserID is the platform's numeric user identifier.
type Message struct {
	Channel string
	UserID  int64
	Text    string
}

// HandleMessage routes a message: blacklist gate first, then commands,
// then the bare-link pattern. Messages that match nothing are ignored.
func (b *Bot) HandleMessage(ctx context.Context, msg Message) {
	if b.BlacklistEnabled && b.Policy.IsBlacklisted(msg.UserID) {
		telemetry.RequestsBlacklisted.Inc()
		b.Sender.Say(msg.Channel, fmt.Sprintf(
			"You have been blacklisted from using this bot. If you think this is a mistake, please contact admins: %s",
			formatAdmins(b.Policy.ListAdmins())))
		return
	}

	cmd, args := splitCommand(msg.Text)
	switch cmd {
	case "!bili":
		b.Handler.HandleRequest(ctx, relay.Request{Channel: msg.Channel, UserID: msg.UserID, Text: args})
	case "!bilist":
		b.handleList(ctx, msg)
	case "!addadmin":
		b.handleAddAdmin(msg, args)
	case "!blacklist":
		b.handleBlacklist(msg, args)
	case "!help", "!start":
		b.Sender.Say(msg.Channel, "Send !bili followed by a video link or BV id to archive it. Use !bilist to inspect the queue.")
	default:
		if hearsPattern().MatchString(msg.Text) {
			b.Handler.HandleRequest(ctx, relay.Request{Channel: msg.Channel, UserID: msg.UserID, Text: msg.Text})
		}
	}
}

func (b *Bot) handleList(ctx context.Context, msg Message) {
	queue := b.Queue.Queue(ctx)
	if len(queue) == 0 {
		b.Sender.Say(msg.Channel, "All items in queue have been archived")
		return
	}
	ids := make([]string, 0, len(queue))
	for _, bv := range queue {
		ids = append(ids, bv.String())
	}
	text := fmt.Sprintf("%d items in queue pending or archiving: %s", len(ids), strings.Join(truncate(ids, 10), " "))
	if extra := len(ids) - 10; extra > 0 {
		text += fmt.Sprintf(" And %d more", extra)
	}
	b.Sender.Say(msg.Channel, text)
}

func (b *Bot) handleAddAdmin(msg Message, args string) {
	if !b.BlacklistEnabled {
		b.Sender.Say(msg.Channel, "Admin functionality is not enabled")
		return
	}
	if !b.Policy.IsAdmin(msg.UserID) {
		// First caller of an admin action becomes the first admin.
		if b.Policy.BootstrapAdmin(msg.UserID) {
			b.Sender.Say(msg.Channel, "You are now the first admin.")
		}
		return
	}
	target, err := strconv.ParseInt(strings.TrimSpace(args), 10, 64)
	if err != nil || target == 0 {
		b.Sender.Say(msg.Channel, "Please provide a valid user ID")
		return
	}
	if err := b.Policy.AddAdmin(target); err != nil {
		slog.Error("add admin failed", slog.Int64("target", target), slog.Any("err", err))
		b.Sender.Say(msg.Channel, "Could not persist admin change")
		return
	}
	b.Sender.Say(msg.Channel, fmt.Sprintf("Added %d as admin.", target))
}

func (b *Bot) handleBlacklist(msg Message, args string) {
	if !b.BlacklistEnabled {
		b.Sender.Say(msg.Channel, "Blacklist functionality is not enabled")
		return
	}
	if !b.Policy.IsAdmin(msg.UserID) {
		return
	}
	target, err := strconv.ParseInt(strings.TrimSpace(args), 10, 64)
	if err != nil {
		b.Sender.Say(msg.Channel, "Invalid user ID")
		return
	}
	if err := b.Policy.AddToBlacklist(target); err != nil {
		slog.Error("blacklist add failed", slog.Int64("target", target), slog.Any("err", err))
		b.Sender.Say(msg.Channel, "Could not persist blacklist change")
		return
	}
	b.Sender.Say(msg.Channel, fmt.Sprintf("User %d has been blacklisted.", target))
}

func splitCommand(text string) (cmd, args string) {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "!") {
		return "", trimmed
	}
	cmd, args, _ = strings.Cut(trimmed, " ")
	return strings.ToLower(cmd), strings.TrimSpace(args)
}

func truncate(ids []string, n int) []string {
	if len(ids) > n {
		return ids[:n]
	}
	return ids
}

func formatAdmins(ids []int64) string {
	if len(ids) == 0 {
		return "(none)"
	}
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, strconv.FormatInt(id, 10))
	}
	return strings.Join(parts, "; ")
}
