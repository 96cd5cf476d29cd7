package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"
)

type fakePhones struct{ byRoom map[string]string }

func (f fakePhones) PhoneForRoom(roomID string) (string, bool) {
	phone, ok := f.byRoom[roomID]
	return phone, ok
}

func textEvent(sender, roomID, body string) *event.Event {
	return &event.Event{
		Sender: id.UserID(sender),
		RoomID: id.RoomID(roomID),
		Content: event.Content{
			Parsed: &event.MessageEventContent{MsgType: event.MsgText, Body: body},
		},
	}
}

func TestFromMatrixEvent_ConvertsTextMessage(t *testing.T) {
	phones := fakePhones{byRoom: map[string]string{"!room1:example.com": "9876543210"}}
	evt := textEvent("@alice:example.com", "!room1:example.com", "need 2 paracetamol")

	input, err := FromMatrixEvent(evt, SelfUserID("@bot:example.com"), phones)
	require.NoError(t, err)
	assert.Equal(t, "@alice:example.com", input.UserID)
	assert.Equal(t, "!room1:example.com", input.SessionID)
	assert.Equal(t, "9876543210", input.Phone)
	assert.Equal(t, "need 2 paracetamol", input.Message)
}

func TestFromMatrixEvent_IgnoresOwnMessages(t *testing.T) {
	evt := textEvent("@bot:example.com", "!room1:example.com", "hello")

	_, err := FromMatrixEvent(evt, SelfUserID("@bot:example.com"), fakePhones{})
	assert.ErrorIs(t, err, ErrIgnoredEvent)
}

func TestFromMatrixEvent_IgnoresNonTextContent(t *testing.T) {
	evt := &event.Event{
		Sender:  id.UserID("@alice:example.com"),
		RoomID:  id.RoomID("!room1:example.com"),
		Content: event.Content{Parsed: &event.MessageEventContent{MsgType: event.MsgImage}},
	}

	_, err := FromMatrixEvent(evt, SelfUserID("@bot:example.com"), fakePhones{})
	assert.ErrorIs(t, err, ErrIgnoredEvent)
}

func TestFromMatrixEvent_IgnoresEmptyBody(t *testing.T) {
	evt := textEvent("@alice:example.com", "!room1:example.com", "   ")

	_, err := FromMatrixEvent(evt, SelfUserID("@bot:example.com"), fakePhones{})
	assert.ErrorIs(t, err, ErrIgnoredEvent)
}
