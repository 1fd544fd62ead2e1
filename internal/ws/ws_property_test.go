package ws

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/pompomputin/wwebjs-webui-docker/internal/model"
)

// Frames keep event, session id and payload intact.
func TestFrameRoundTripProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("frames preserve session id and payload", prop.ForAll(
		func(sessionID, body string) bool {
			data, err := NewMessage("new_message", sessionID, map[string]string{"body": body})
			if err != nil {
				return false
			}
			var msg Message
			if err := json.Unmarshal(data, &msg); err != nil {
				return false
			}
			var payload map[string]string
			if err := json.Unmarshal(msg.Data, &payload); err != nil {
				return false
			}
			return msg.Event == "new_message" && msg.SessionID == sessionID && payload["body"] == body
		},
		gen.Identifier(),
		gen.AnyString(),
	))

	properties.TestingRun(t)
}

// A room broadcast reaches exactly the clients that joined that room.
func TestRoomIsolationProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("room broadcasts reach only members", prop.ForAll(
		func(assign []int) bool {
			m := NewHubManager()
			clients := make([]*Client, len(assign))
			for i, room := range assign {
				clients[i] = NewClient(nil, fmt.Sprintf("u%d", i), model.RoleViewer)
				m.Connect(clients[i])
				m.Join(clients[i], fmt.Sprintf("room-%d", room))
			}

			m.BroadcastRoom("room-0", []byte("hello"))

			for i, room := range assign {
				got := len(clients[i].SendChan())
				if room == 0 && got != 1 {
					return false
				}
				if room != 0 && got != 0 {
					return false
				}
			}
			m.Close()
			return true
		},
		gen.SliceOf(gen.IntRange(0, 3)),
	))

	properties.TestingRun(t)
}
