package engine

import (
	"time"

	"github.com/samber/lo"
)

// IsResolved reports whether an attempt backed by attempts players out of
// a team of teamSize settles the secret under method.
func IsResolved(method DecodeMethod, attempts, teamSize int) bool {
	switch method {
	case DecodeFirst:
		return attempts >= 1
	case DecodeAll:
		return attempts >= teamSize
	case DecodeMajority:
		return attempts >= (teamSize+1)/2
	default:
		return false
	}
}

// WinningTeam returns the first team, in team order, whose own secrets are
// all uncovered. Teams that own no secret in the deck never win.
func (l Lobby) WinningTeam() (Color, bool) {
	g := l.ActiveGame
	if g == nil {
		return "", false
	}
	for _, t := range l.Teams {
		own := lo.Filter(g.Secrets, func(s Secret, _ int) bool {
			return s.Type == SecretTypeTeam && s.TeamColor == t.Color
		})
		if len(own) > 0 && lo.EveryBy(own, Secret.Decoded) {
			return t.Color, true
		}
	}
	return "", false
}

// recordWinner marks every team except the winner as eliminated.
func recordWinner(l *Lobby) {
	winner, ok := l.WinningTeam()
	if !ok {
		return
	}
	for _, t := range l.Teams {
		if t.Color != winner {
			l.ActiveGame.eliminate(t.Color)
		}
	}
}

// resolve hands secret si to team and applies the outcome. It reports
// whether the turn ended; uncovering one's own secret keeps the turn going.
func resolve(l *Lobby, si int, team Color, now time.Time) (turnEnded bool) {
	g := l.ActiveGame
	s := &g.Secrets[si]
	s.DecodeAttempt = nil
	s.DecodeTeamColor = team
	own := s.Type == SecretTypeTeam && s.TeamColor == team
	if s.Type == SecretTypeVirus {
		g.eliminate(team)
	}
	recordWinner(l)
	if own {
		return false
	}
	endTurn(l, now)
	return true
}

// settleAttempts resolves, in deck order, the active team's pending
// attempts that a team of teamSize now backs. It stops once the turn ends
// or a team has won.
func settleAttempts(l *Lobby, teamSize int, now time.Time) {
	g := l.ActiveGame
	for i := range g.Secrets {
		a := g.Secrets[i].DecodeAttempt
		if a == nil || a.TeamColor != g.ActiveTeamColor || !IsResolved(g.Config.DecodeMethod, len(a.Players), teamSize) {
			continue
		}
		if resolve(l, i, a.TeamColor, now) {
			return
		}
		if _, won := l.WinningTeam(); won {
			return
		}
	}
}
