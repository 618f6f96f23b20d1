package engine

import "time"

// NextActiveTeam walks the fixed team order starting after from and
// returns the first team with at least two players, wrapping around. The
// current team is only returned when no other team qualifies.
func NextActiveTeam(l Lobby, from Color) (Color, bool) {
	n := len(l.Teams)
	idx, _ := l.TeamIndex(from)
	for i := 1; i <= n; i++ {
		t := l.Teams[(idx+i+n)%n]
		if len(t.Players) >= 2 {
			return t.Color, true
		}
	}
	return "", false
}

// endTurn clears the encode/decode state, restarts the encode clock and
// hands the turn to the next eligible team. l must already be a copy.
func endTurn(l *Lobby, now time.Time) {
	g := l.ActiveGame
	g.Signal = ""
	g.SecretCount = 0
	g.DecodeStartTime = nil
	g.EncodeStartTime = &now
	g.Turn++
	for i := range g.Secrets {
		g.Secrets[i].DecodeAttempt = nil
	}
	if next, ok := NextActiveTeam(*l, g.ActiveTeamColor); ok {
		g.ActiveTeamColor = next
	}
}
