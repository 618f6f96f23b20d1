package engine

import (
	"errors"
	"math/rand/v2"
	"time"
)

var ErrNoActiveGame = errors.New("no active game")
var ErrGameInProgress = errors.New("game already in progress")
var ErrNotLeader = errors.New("player is not the lobby leader")
var ErrNoEligibleTeams = errors.New("no team has enough players")
var ErrInsufficientWords = errors.New("not enough words in the selected categories")
var ErrInvalidConfig = errors.New("invalid game config")
var ErrUnsupportedEvent = errors.New("unsupported event")

type Color string

const (
	ColorRed    Color = "red"
	ColorGreen  Color = "green"
	ColorBlue   Color = "blue"
	ColorYellow Color = "yellow"
	ColorPurple Color = "purple"
	ColorOrange Color = "orange"
)

// Colors is the fixed team order of every lobby.
var Colors = []Color{ColorRed, ColorGreen, ColorBlue, ColorYellow, ColorPurple, ColorOrange}

type DecodeMethod string

const (
	DecodeFirst    DecodeMethod = "FIRST"
	DecodeAll      DecodeMethod = "ALL"
	DecodeMajority DecodeMethod = "MAJORITY"
)

type SecretType string

const (
	SecretTypeTeam  SecretType = "SECRET"
	SecretTypeNull  SecretType = "NULL"
	SecretTypeVirus SecretType = "VIRUS"
)

type GameConfig struct {
	EncodeTimeLimitSec int
	DecodeTimeLimitSec int
	SecretCount        int
	VirusCount         int
	DecodeMethod       DecodeMethod
	AllowExtraDecode   bool
	Categories         []string
}

type DecodeAttempt struct {
	TeamColor Color
	Players   []string
}

type Secret struct {
	Value           string
	Type            SecretType
	TeamColor       Color // team secrets only
	DecodeTeamColor Color // empty until resolved
	DecodeAttempt   *DecodeAttempt
}

type Game struct {
	Config          GameConfig
	ActiveTeamColor Color
	// Turn increments every time a turn ends, so observers can tell a
	// rotation apart from the same team being picked again.
	Turn            int
	EncodeStartTime *time.Time
	DecodeStartTime *time.Time
	Secrets         []Secret
	Signal          string
	SecretCount     int
	EliminatedTeams []Color
}

type Team struct {
	Color   Color
	Players []string
}

type Lobby struct {
	Leader     string
	Teams      []Team
	ActiveGame *Game
}

// WordBank maps a category name to its words.
type WordBank map[string][]string

type EventType string

const (
	EvtJoinLobby          EventType = "JOIN_LOBBY"
	EvtLeaveLobby         EventType = "LEAVE_LOBBY"
	EvtDisbandLobby       EventType = "DISBAND_LOBBY"
	EvtJoinTeam           EventType = "JOIN_TEAM"
	EvtPromoteEncoder     EventType = "PROMOTE_ENCODER"
	EvtDemoteEncoder      EventType = "DEMOTE_ENCODER"
	EvtStartGame          EventType = "START_GAME"
	EvtEncodeSecret       EventType = "ENCODE_SECRET"
	EvtDecodeSecret       EventType = "DECODE_SECRET"
	EvtCancelDecodeSecret EventType = "CANCEL_DECODE_SECRET"
	EvtSkipDecoding       EventType = "SKIP_DECODING"
)

/*
	JOIN_LOBBY / JOIN_TEAM    -> joinTeam (JOIN_LOBBY may leave TeamColor empty)
	LEAVE_LOBBY               -> leaveLobby, may end the active team's turn
	PROMOTE / DEMOTE_ENCODER  -> reorder the player's own team
	START_GAME                -> deck built, first team encoding
	ENCODE_SECRET             -> encode phase -> decode phase
	DECODE_SECRET             -> attempt, maybe resolution, maybe turn end
	CANCEL_DECODE_SECRET      -> attempt shrinks
	SKIP_DECODING             -> turn end
	DISBAND_LOBBY             -> no state change, the session tears itself down
*/

type Event struct {
	Type        EventType
	PlayerName  string
	TeamColor   Color
	Signal      string
	SecretCount int
	Secret      string
	Config      GameSettings
}

// Env carries everything a reducer may need that is not part of the
// lobby state, so reducers stay free of clocks and global randomness.
type Env struct {
	Now      time.Time
	Rand     *rand.Rand
	Bank     WordBank
	Defaults GameConfig
}

// Apply routes an event to its reducer. Events that fail validation come
// back as the unchanged lobby and a nil error; a non-nil error means the
// event hit a precondition the caller should know about.
func Apply(l Lobby, ev Event, env Env) (Lobby, error) {
	switch ev.Type {
	case EvtJoinLobby:
		return JoinLobby(ev.PlayerName, ev.TeamColor)(l), nil

	case EvtJoinTeam:
		if ev.TeamColor == "" {
			return l, nil
		}
		return JoinTeam(ev.PlayerName, ev.TeamColor)(l), nil

	case EvtLeaveLobby:
		return LeaveLobby(ev.PlayerName, env.Now)(l), nil

	case EvtPromoteEncoder:
		return PromoteEncoder(ev.PlayerName)(l), nil

	case EvtDemoteEncoder:
		return DemoteEncoder(ev.PlayerName)(l), nil

	case EvtStartGame:
		cfg := ev.Config.Merge(env.Defaults)
		return StartGame(ev.PlayerName, cfg, env.Bank, env.Rand, env.Now)(l)

	case EvtEncodeSecret:
		if l.ActiveGame == nil {
			return l, ErrNoActiveGame
		}
		return EncodeSecret(ev.PlayerName, ev.Signal, ev.SecretCount, env.Now)(l), nil

	case EvtDecodeSecret:
		if l.ActiveGame == nil {
			return l, ErrNoActiveGame
		}
		return DecodeSecret(ev.PlayerName, ev.Secret, env.Now)(l), nil

	case EvtCancelDecodeSecret:
		if l.ActiveGame == nil {
			return l, ErrNoActiveGame
		}
		return CancelDecodeSecret(ev.PlayerName, ev.Secret)(l), nil

	case EvtSkipDecoding:
		if l.ActiveGame == nil {
			return l, ErrNoActiveGame
		}
		return SkipDecoding(ev.PlayerName, env.Now)(l), nil

	case EvtDisbandLobby:
		if ev.PlayerName != l.Leader {
			return l, ErrNotLeader
		}
		return l, nil

	default:
		return l, ErrUnsupportedEvent
	}
}
