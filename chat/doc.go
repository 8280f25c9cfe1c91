// Package chat is the Twitch IRC front-end of the relay. It parses
// commands from channel messages, gates them through the blacklist, and
// forwards archive requests to the orchestrator. Replies go back to the
// channel the request came from.
package chat
