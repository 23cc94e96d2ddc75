// Package protocol defines the messages exchanged over the websocket and the
// codecs that put them on the wire.
package protocol

import (
	"errors"
	"fmt"

	"github.com/Nertsal/trail-blazer/internal/game"
)

var (
	// ErrUnknownMessage is returned for a message type the server does not handle.
	ErrUnknownMessage = errors.New("unknown message type")
	// ErrEmptyPayload is returned when a message lacks the payload its type needs.
	ErrEmptyPayload = errors.New("message payload missing")
)

// ClientType tags a ClientMessage.
type ClientType string

const (
	ClientPong             ClientType = "pong"
	ClientSetCustomization ClientType = "set_customization"
	ClientSpectate         ClientType = "spectate"
	ClientSubmitMove       ClientType = "submit_move"
)

// ClientMessage is sent by a player's client.
type ClientMessage struct {
	Type          ClientType                `json:"type" msgpack:"type"`
	Move          *game.PlayerMove          `json:"move,omitempty" msgpack:"move,omitempty"`
	Customization *game.PlayerCustomization `json:"customization,omitempty" msgpack:"customization,omitempty"`
}

// Validate checks that the message type is known and carries its payload.
func (m ClientMessage) Validate() error {
	switch m.Type {
	case ClientPong, ClientSpectate:
		return nil
	case ClientSubmitMove:
		if m.Move == nil {
			return fmt.Errorf("%s: %w", m.Type, ErrEmptyPayload)
		}
	case ClientSetCustomization:
		if m.Customization == nil {
			return fmt.Errorf("%s: %w", m.Type, ErrEmptyPayload)
		}
	default:
		return fmt.Errorf("%q: %w", m.Type, ErrUnknownMessage)
	}
	return nil
}

// ServerType tags a ServerMessage.
type ServerType string

const (
	ServerPing                ServerType = "ping"
	ServerSetup               ServerType = "setup"
	ServerStartResolution     ServerType = "start_resolution"
	ServerFinishResolution    ServerType = "finish_resolution"
	ServerPlayerCustomization ServerType = "player_customization"
	ServerSync                ServerType = "sync"
	ServerEvents              ServerType = "events"
	ServerError               ServerType = "error"
)

// ServerMessage is sent by the server. Which fields are set depends on Type.
type ServerMessage struct {
	Type          ServerType                `json:"type" msgpack:"type"`
	PlayerID      game.ClientID             `json:"playerId,omitempty" msgpack:"playerId,omitempty"`
	MatchID       string                    `json:"matchId,omitempty" msgpack:"matchId,omitempty"`
	Model         *game.SharedModel         `json:"model,omitempty" msgpack:"model,omitempty"`
	Customization *game.PlayerCustomization `json:"customization,omitempty" msgpack:"customization,omitempty"`
	Events        []game.GameEvent          `json:"events,omitempty" msgpack:"events,omitempty"`
	Error         string                    `json:"error,omitempty" msgpack:"error,omitempty"`
}

// Ping asks the client for a Pong.
func Ping() ServerMessage {
	return ServerMessage{Type: ServerPing}
}

// Setup greets a freshly connected client with its id and the current state.
func Setup(id game.ClientID, matchID string, model *game.SharedModel) ServerMessage {
	return ServerMessage{Type: ServerSetup, PlayerID: id, MatchID: matchID, Model: model}
}

// StartResolution carries the model with every submitted move revealed.
func StartResolution(model *game.SharedModel) ServerMessage {
	return ServerMessage{Type: ServerStartResolution, Model: model}
}

// FinishResolution carries the model after the last micro-move.
func FinishResolution(model *game.SharedModel) ServerMessage {
	return ServerMessage{Type: ServerFinishResolution, Model: model}
}

// Sync carries the full model outside of resolution boundaries.
func Sync(model *game.SharedModel) ServerMessage {
	return ServerMessage{Type: ServerSync, Model: model}
}

// PlayerCustomization announces a cosmetic change.
func PlayerCustomization(id game.ClientID, c game.PlayerCustomization) ServerMessage {
	return ServerMessage{Type: ServerPlayerCustomization, PlayerID: id, Customization: &c}
}

// Events carries the events of one tick.
func Events(events []game.GameEvent) ServerMessage {
	return ServerMessage{Type: ServerEvents, Events: events}
}

// Error reports a rejected request to the client.
func Error(msg string) ServerMessage {
	return ServerMessage{Type: ServerError, Error: msg}
}
