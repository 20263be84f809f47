// Package wsmux implements the log subscription multiplexer over the
// full-duplex /ws socket (SPEC_FULL.md §4.3), grounded on
// original_source/handlers/websocket.rs for message shapes and the
// prefix-parsing rules in §4.4, and on the donor's
// src/handler/terminal/session_manager.go for the Go cancellation idiom
// (a done channel closed exactly once per subscription).
package wsmux

import "github.com/devbox-run/agent/internal/logbuf"

// ClientMessage is one inbound frame: subscribe, unsubscribe, or list.
type ClientMessage struct {
	Action   string            `json:"action"`
	Type     string            `json:"type"`
	TargetID string            `json:"targetId"`
	Options  SubscribeOptions  `json:"options"`
}

// SubscribeOptions carries the optional level filter and tail-replay count.
type SubscribeOptions struct {
	Levels []string `json:"levels"`
	Tail   int      `json:"tail"`
}

// LogEventPayload is the nested "log" object inside a log event frame.
type LogEventPayload struct {
	Level      logbuf.Level `json:"level"`
	Content    string       `json:"content"`
	Timestamp  int64        `json:"timestamp"`
	Sequence   int64        `json:"sequence"`
	TargetID   string       `json:"targetId"`
	TargetType string       `json:"targetType"`
}

// LogEvent is one outbound "log" frame.
type LogEvent struct {
	Type      string          `json:"type"`
	DataType  string          `json:"dataType"`
	TargetID  string          `json:"targetId"`
	Log       LogEventPayload `json:"log"`
	Sequence  int64           `json:"sequence"`
	IsHistory bool            `json:"isHistory"`
}

// SubscriptionResult confirms a subscribe/unsubscribe action.
type SubscriptionResult struct {
	Action    string          `json:"action"`
	Type      string          `json:"type"`
	TargetID  string          `json:"targetId"`
	Levels    map[string]bool `json:"levels,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// ErrorMessage is an error reply to a client action.
type ErrorMessage struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

// SubscriptionInfo describes one active subscription for the list action.
type SubscriptionInfo struct {
	Type     string   `json:"type"`
	TargetID string   `json:"targetId"`
	Levels   []string `json:"levels,omitempty"`
}

// ListMessage replies to the "list" action.
type ListMessage struct {
	Action        string             `json:"action"`
	Subscriptions []SubscriptionInfo `json:"subscriptions"`
}
