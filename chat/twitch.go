package chat

import (
	"context"
	"log/slog"
	"strconv"

	twitch "github.com/gempir/go-twitch-irc/v4"

	"github.com/onnwee/bili-relay/config"
)

// twitchSender adapts the IRC client to the Sender interface.
type twitchSender struct {
	client *twitch.Client
}

func (s twitchSender) Say(channel, text string) {
	s.client.Say(channel, text)
}

// Start connects the bot to Twitch chat and blocks until ctx is done.
// The notifier is bound to the live connection here so polling tasks that
// complete later can still reply into the channel.
func Start(ctx context.Context, cfg *config.Config, bot *Bot, notifier *Notifier) error {
	if err := cfg.ValidateChatReady(); err != nil {
		return err
	}
	client := twitch.NewClient(cfg.TwitchBotUsername, cfg.TwitchOAuthToken)
	sender := twitchSender{client: client}
	bot.Sender = sender
	notifier.Bind(sender)

	client.OnPrivateMessage(func(msg twitch.PrivateMessage) {
		uid, err := strconv.ParseInt(msg.User.ID, 10, 64)
		if err != nil {
			slog.Debug("message without numeric user id skipped", slog.String("user", msg.User.Name))
			return
		}
		bot.HandleMessage(ctx, Message{Channel: msg.Channel, UserID: uid, Text: msg.Message})
	})

	done := make(chan struct{})
	go func() {
		<-ctx.Done()
		client.Disconnect()
		close(done)
	}()

	client.Join(cfg.TwitchChannel)
	if err := client.Connect(); err != nil {
		slog.Error("twitch chat connect error", slog.Any("err", err))
	}
	<-done
	return nil
}
