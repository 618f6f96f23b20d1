package lobby

import (
	"slices"
	"time"

	"github.com/samber/lo"

	"github.com/DoyleJ11/cryptic-backend/internal/engine"
	"github.com/DoyleJ11/cryptic-backend/pkg/types"
)

// Redact turns lobby state into the snapshot sent to clients.
func Redact(code string, version int, phase Phase, l engine.Lobby) types.Snapshot {
	snap := types.Snapshot{
		Version: version,
		Code:    code,
		Phase:   string(phase),
		Leader:  l.Leader,
		Teams: lo.FilterMap(l.Teams, func(t engine.Team, _ int) (types.Team, bool) {
			return types.Team{Color: string(t.Color), Players: slices.Clone(t.Players)}, len(t.Players) > 0
		}),
	}
	if l.ActiveGame != nil {
		snap.ActiveGame = redactGame(l)
	}
	return snap
}

func redactGame(l engine.Lobby) *types.Game {
	g := l.ActiveGame
	out := &types.Game{
		Config: types.GameConfig{
			EncodeTimeLimitSec: g.Config.EncodeTimeLimitSec,
			DecodeTimeLimitSec: g.Config.DecodeTimeLimitSec,
			SecretCount:        g.Config.SecretCount,
			VirusCount:         g.Config.VirusCount,
			DecodeMethod:       string(g.Config.DecodeMethod),
			AllowExtraDecode:   g.Config.AllowExtraDecode,
		},
		ActiveTeamColor: string(g.ActiveTeamColor),
		Turn:            g.Turn,
		EncodeStartTime: unix(g.EncodeStartTime),
		DecodeStartTime: unix(g.DecodeStartTime),
		Signal:          g.Signal,
		Secrets:         lo.Map(g.Secrets, redactSecret),
	}
	if g.Signal != "" {
		n := g.SecretCount
		out.SecretCount = &n
	}
	if len(g.EliminatedTeams) > 0 {
		out.EliminatedTeams = lo.Map(g.EliminatedTeams, func(c engine.Color, _ int) string { return string(c) })
	}
	if winner, ok := l.WinningTeam(); ok {
		out.WinningTeam = string(winner)
	}
	return out
}

func redactSecret(s engine.Secret, _ int) types.Secret {
	out := types.Secret{
		Value:           s.Value,
		Type:            string(s.Type),
		TeamColor:       string(s.TeamColor),
		DecodeTeamColor: string(s.DecodeTeamColor),
	}
	if a := s.DecodeAttempt; a != nil {
		out.DecodeAttempt = &types.DecodeAttempt{TeamColor: string(a.TeamColor), Players: slices.Clone(a.Players)}
	}
	return out
}

func unix(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	v := t.Unix()
	return &v
}
