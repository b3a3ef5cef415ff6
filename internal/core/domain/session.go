package domain

// SessionIntent latches whether the client should reconnect on its own.
type SessionIntent string

const (
	IntentConnect      SessionIntent = "connect"
	IntentDisconnected SessionIntent = "disconnected"
)

type DisconnectReason string

const (
	ReasonNone      DisconnectReason = ""
	ReasonLogout    DisconnectReason = "logout"
	ReasonCancelled DisconnectReason = "cancelled"
)

// Session is the only durable client state.
type Session struct {
	Intent   SessionIntent    `yaml:"intent"`
	Reason   DisconnectReason `yaml:"reason,omitempty"`
	Identity Identity         `yaml:"identity,omitempty"`
}

func (s Session) AutoConnect() bool {
	return s.Intent != IntentDisconnected
}
