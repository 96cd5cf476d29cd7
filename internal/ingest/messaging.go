// Package ingest turns an inbound messaging-platform webhook payload into
// the same turn input the HTTP and WebSocket paths use, keeping the
// messaging platform itself an external collaborator while giving it a
// concrete, exercised home. Shaped after bdobrica-Ruriko's mautrix event
// handling, which filters on evt.Sender/evt.Content.AsMessage() before
// ever reaching application logic.
package ingest

import (
	"errors"
	"strings"

	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"
)

// TurnInput is the channel-agnostic shape every ingest path converges on —
// the same {user_id, session_id, phone, message} turn input.
type TurnInput struct {
	UserID    string
	SessionID string
	Phone     string
	Message   string
}

// ErrIgnoredEvent means evt is not a user text message worth turning into
// a TurnInput — an edit, a reaction, a message from the bot's own account,
// or any non-text content.
var ErrIgnoredEvent = errors.New("ingest: event is not an actionable text message")

// SelfUserID is the bot's own Matrix user ID — messages it sent itself
// are never turned into a TurnInput.
type SelfUserID string

// PhoneResolver maps a room to the patient phone number that room
// represents. Matrix rooms are provisioned one-per-patient upstream (the
// provisioning side is out of scope here), so this is a narrow lookup
// rather than a parsing step.
type PhoneResolver interface {
	PhoneForRoom(roomID string) (phone string, ok bool)
}

// FromMatrixEvent converts evt into a TurnInput, or returns ErrIgnoredEvent
// when evt is not an actionable user text message. sessionID is the room
// ID — one Matrix room is one conversation session, matching the
// provisioning model the rest of the platform assumes.
func FromMatrixEvent(evt *event.Event, self SelfUserID, phones PhoneResolver) (TurnInput, error) {
	if evt == nil {
		return TurnInput{}, ErrIgnoredEvent
	}
	if evt.Sender == id.UserID(self) {
		return TurnInput{}, ErrIgnoredEvent
	}

	msg := evt.Content.AsMessage()
	if msg == nil || msg.MsgType != event.MsgText {
		return TurnInput{}, ErrIgnoredEvent
	}
	if msg.RelatesTo.GetReplaceID() != "" {
		return TurnInput{}, ErrIgnoredEvent
	}

	message := strings.TrimSpace(msg.Body)
	if message == "" {
		return TurnInput{}, ErrIgnoredEvent
	}

	roomID := evt.RoomID.String()
	phone, _ := phones.PhoneForRoom(roomID)

	return TurnInput{
		UserID:    evt.Sender.String(),
		SessionID: roomID,
		Phone:     phone,
		Message:   message,
	}, nil
}
