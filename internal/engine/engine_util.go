package engine

import (
	"fmt"
	"slices"
	"time"

	"github.com/samber/lo"
)

// NewLobby returns a lobby with every color slot present and the leader
// seated on the first team.
func NewLobby(leader string) Lobby {
	l := Lobby{Leader: leader, Teams: make([]Team, len(Colors))}
	for i, c := range Colors {
		l.Teams[i] = Team{Color: c, Players: []string{}}
	}
	if leader != "" {
		l.Teams[0].Players = append(l.Teams[0].Players, leader)
	}
	return l
}

func DefaultGameConfig(categories []string) GameConfig {
	return GameConfig{
		EncodeTimeLimitSec: 60,
		DecodeTimeLimitSec: 60,
		SecretCount:        8,
		VirusCount:         1,
		DecodeMethod:       DecodeMajority,
		Categories:         slices.Clone(categories),
	}
}

// GameSettings is what the leader asks for when starting a game. Nil
// fields, an empty DecodeMethod and empty Categories take the lobby default;
// a set field is kept even when it is zero.
type GameSettings struct {
	EncodeTimeLimitSec *int
	DecodeTimeLimitSec *int
	SecretCount        *int
	VirusCount         *int
	DecodeMethod       DecodeMethod
	AllowExtraDecode   *bool
	Categories         []string
}

// SettingsOf turns a full config into settings with every field set.
func SettingsOf(c GameConfig) GameSettings {
	return GameSettings{
		EncodeTimeLimitSec: lo.ToPtr(c.EncodeTimeLimitSec),
		DecodeTimeLimitSec: lo.ToPtr(c.DecodeTimeLimitSec),
		SecretCount:        lo.ToPtr(c.SecretCount),
		VirusCount:         lo.ToPtr(c.VirusCount),
		DecodeMethod:       c.DecodeMethod,
		AllowExtraDecode:   lo.ToPtr(c.AllowExtraDecode),
		Categories:         slices.Clone(c.Categories),
	}
}

// Merge lays the settings over def.
func (s GameSettings) Merge(def GameConfig) GameConfig {
	c := def
	c.Categories = slices.Clone(def.Categories)
	c.EncodeTimeLimitSec = lo.FromPtrOr(s.EncodeTimeLimitSec, def.EncodeTimeLimitSec)
	c.DecodeTimeLimitSec = lo.FromPtrOr(s.DecodeTimeLimitSec, def.DecodeTimeLimitSec)
	c.SecretCount = lo.FromPtrOr(s.SecretCount, def.SecretCount)
	c.VirusCount = lo.FromPtrOr(s.VirusCount, def.VirusCount)
	c.AllowExtraDecode = lo.FromPtrOr(s.AllowExtraDecode, def.AllowExtraDecode)
	if s.DecodeMethod != "" {
		c.DecodeMethod = s.DecodeMethod
	}
	if len(s.Categories) > 0 {
		c.Categories = slices.Clone(s.Categories)
	}
	return c
}

func (c GameConfig) Validate() error {
	switch {
	case c.EncodeTimeLimitSec <= 0 || c.DecodeTimeLimitSec <= 0:
		return fmt.Errorf("%w: time limits must be positive", ErrInvalidConfig)
	case c.SecretCount <= 0:
		return fmt.Errorf("%w: secret count must be positive", ErrInvalidConfig)
	case c.VirusCount < 0:
		return fmt.Errorf("%w: virus count cannot be negative", ErrInvalidConfig)
	}
	switch c.DecodeMethod {
	case DecodeFirst, DecodeAll, DecodeMajority:
		return nil
	default:
		return fmt.Errorf("%w: unknown decode method %q", ErrInvalidConfig, c.DecodeMethod)
	}
}

func ParseColor(s string) (Color, bool) {
	c := Color(s)
	return c, slices.Contains(Colors, c)
}

func (l Lobby) Clone() Lobby {
	out := Lobby{Leader: l.Leader, Teams: make([]Team, len(l.Teams))}
	for i, t := range l.Teams {
		out.Teams[i] = Team{Color: t.Color, Players: slices.Clone(t.Players)}
	}
	if l.ActiveGame != nil {
		g := l.ActiveGame.clone()
		out.ActiveGame = &g
	}
	return out
}

func (g Game) clone() Game {
	out := g
	out.Config.Categories = slices.Clone(g.Config.Categories)
	out.EncodeStartTime = cloneTime(g.EncodeStartTime)
	out.DecodeStartTime = cloneTime(g.DecodeStartTime)
	out.EliminatedTeams = slices.Clone(g.EliminatedTeams)
	out.Secrets = make([]Secret, len(g.Secrets))
	for i, s := range g.Secrets {
		if s.DecodeAttempt != nil {
			s.DecodeAttempt = &DecodeAttempt{
				TeamColor: s.DecodeAttempt.TeamColor,
				Players:   slices.Clone(s.DecodeAttempt.Players),
			}
		}
		out.Secrets[i] = s
	}
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// TeamIndexOf reports which team the player sits on.
func (l Lobby) TeamIndexOf(player string) (int, bool) {
	for i, t := range l.Teams {
		if slices.Contains(t.Players, player) {
			return i, true
		}
	}
	return -1, false
}

func (l Lobby) TeamIndex(c Color) (int, bool) {
	for i, t := range l.Teams {
		if t.Color == c {
			return i, true
		}
	}
	return -1, false
}

func (l Lobby) HasPlayer(player string) bool {
	_, ok := l.TeamIndexOf(player)
	return ok
}

func (l Lobby) IsEmpty() bool {
	return lo.EveryBy(l.Teams, func(t Team) bool { return len(t.Players) == 0 })
}

// EligibleTeams lists, in team order, the teams with enough players to play.
func (l Lobby) EligibleTeams() []Color {
	return lo.FilterMap(l.Teams, func(t Team, _ int) (Color, bool) {
		return t.Color, len(t.Players) >= 2
	})
}

func (g *Game) secretIndex(value string) int {
	return slices.IndexFunc(g.Secrets, func(s Secret) bool { return s.Value == value })
}

func (g *Game) InEncodePhase() bool { return g.DecodeStartTime == nil }

func (g *Game) InDecodePhase() bool { return g.DecodeStartTime != nil }

func (g *Game) eliminate(colors ...Color) {
	for _, c := range colors {
		if !slices.Contains(g.EliminatedTeams, c) {
			g.EliminatedTeams = append(g.EliminatedTeams, c)
		}
	}
}

func (s Secret) Decoded() bool { return s.DecodeTeamColor != "" }
