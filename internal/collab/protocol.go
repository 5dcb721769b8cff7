package collab

import (
	"encoding/json"

	"github.com/rfaga/storyteller/internal/document"
	"github.com/rfaga/storyteller/internal/editor"
	"github.com/rfaga/storyteller/internal/render"
)

type Message struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId,omitempty"`
	ClientID  string          `json:"clientId,omitempty"`
	Seq       int64           `json:"seq,omitempty"`
	Payload   json.RawMessage `json:"payload"`
}

const (
	// Inbound
	TypeToolSelect   = "tool.select"
	TypePointerDown  = "pointer.down"
	TypePointerMove  = "pointer.move"
	TypePointerUp    = "pointer.up"
	TypePointerLeave = "pointer.leave"
	TypeObjectSelect = "object.select"
	TypeObjectDelete = "object.delete"
	TypeObjectUpdate = "object.update"
	TypeSceneReplace = "scene.replace"

	// Outbound
	TypeWelcome      = "welcome"
	TypeSceneChanged = "scene.changed"
	TypeSessionState = "session.state"
	TypeRenderFrame  = "render.frame"
	TypeGamesUpdated = "games.updated"
	TypeError        = "error"
)

type ToolSelectPayload struct {
	Tool string `json:"tool"`
}

type PointerPayload struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ObjectRefPayload carries the target of object.select and object.delete.
// An empty id targets the selection (delete) or clears it (select).
type ObjectRefPayload struct {
	ID string `json:"id"`
}

type ObjectUpdatePayload struct {
	ID    string         `json:"id"`
	Patch document.Patch `json:"patch"`
}

type SceneReplacePayload struct {
	Objects []document.Object `json:"objects"`
}

type WelcomePayload struct {
	SessionID     string               `json:"sessionId"`
	ClientID      string               `json:"clientId"`
	Objects       []document.Object    `json:"objects"`
	GeneratedCode string               `json:"generatedCode"`
	State         editor.State         `json:"state"`
	Frame         []render.DrawCommand `json:"frame"`
}

type RenderFramePayload struct {
	Commands []render.DrawCommand `json:"commands"`
}

type GamesUpdatedPayload struct {
	File string `json:"file,omitempty"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

func newMessage(typ string, payload interface{}) (*Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Message{Type: typ, Payload: data}, nil
}
