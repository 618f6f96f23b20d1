package types

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/DoyleJ11/cryptic-backend/internal/engine"
	api "github.com/DoyleJ11/cryptic-backend/pkg/types"
)

var (
	ErrUnknownMessage = errors.New("unknown message type")
	ErrBadColor       = errors.New("unknown team color")
	ErrMissingPlayer  = errors.New("playerName is required")
)

// ClientMessage is one player event as it arrives over the websocket or
// the events endpoint.
type ClientMessage struct {
	Type        string                `json:"type"`
	PlayerName  string                `json:"playerName"`
	TeamColor   string                `json:"teamColor,omitempty"`
	Signal      string                `json:"signal,omitempty"`
	SecretCount int                   `json:"secretCount,omitempty"`
	Secret      string                `json:"secret,omitempty"`
	Config      *api.StartGameRequest `json:"config,omitempty"`
}

type ServerMessage struct {
	Type     string        `json:"type"` // "StateSnapshot" | "Error"
	Snapshot *api.Snapshot `json:"snapshot,omitempty"`
	Error    string        `json:"error,omitempty"`
}

func SnapshotMessage(s api.Snapshot) ServerMessage {
	return ServerMessage{Type: "StateSnapshot", Snapshot: &s}
}

func ErrorMessage(err error) ServerMessage {
	return ServerMessage{Type: "Error", Error: err.Error()}
}

// ToEvent validates the message shape and converts it to an engine event.
// Whether the event is allowed is left to the lobby.
func (m ClientMessage) ToEvent() (engine.Event, error) {
	if m.PlayerName == "" {
		return engine.Event{}, ErrMissingPlayer
	}
	ev := engine.Event{
		Type:        engine.EventType(m.Type),
		PlayerName:  m.PlayerName,
		Signal:      m.Signal,
		SecretCount: m.SecretCount,
		Secret:      m.Secret,
	}

	switch ev.Type {
	case engine.EvtJoinLobby, engine.EvtJoinTeam:
		if m.TeamColor != "" {
			c, ok := engine.ParseColor(cases.Lower(language.Und).String(strings.TrimSpace(m.TeamColor)))
			if !ok {
				return engine.Event{}, fmt.Errorf("%w: %q", ErrBadColor, m.TeamColor)
			}
			ev.TeamColor = c
		}
	case engine.EvtStartGame:
		if m.Config != nil {
			ev.Config = ConfigFromRequest(*m.Config)
		}
	case engine.EvtLeaveLobby, engine.EvtDisbandLobby,
		engine.EvtPromoteEncoder, engine.EvtDemoteEncoder,
		engine.EvtEncodeSecret, engine.EvtDecodeSecret,
		engine.EvtCancelDecodeSecret, engine.EvtSkipDecoding:
	default:
		return engine.Event{}, fmt.Errorf("%w: %q", ErrUnknownMessage, m.Type)
	}
	return ev, nil
}

// ConfigFromRequest copies the request's settings; omitted fields are
// filled from the server defaults when the game starts.
func ConfigFromRequest(r api.StartGameRequest) engine.GameSettings {
	return engine.GameSettings{
		EncodeTimeLimitSec: r.EncodeTimeLimitSec,
		DecodeTimeLimitSec: r.DecodeTimeLimitSec,
		SecretCount:        r.SecretCount,
		VirusCount:         r.VirusCount,
		DecodeMethod:       engine.DecodeMethod(r.DecodeMethod),
		AllowExtraDecode:   r.AllowExtraDecode,
		Categories:         r.Categories,
	}
}
