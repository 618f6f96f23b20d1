package engine

import (
	"cmp"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/samber/lo"
)

// Reducer maps one lobby state to the next. Reducers never mutate their
// input; they return it untouched when the event is dropped.
type Reducer func(Lobby) Lobby

// JoinLobby seats a new player. With no target color the player goes to the
// second largest team, which fills the two leading teams alternately.
func JoinLobby(player string, target Color) Reducer {
	return func(l Lobby) Lobby {
		if target != "" || l.HasPlayer(player) {
			return JoinTeam(player, target)(l)
		}
		order := slices.Clone(l.Teams)
		slices.SortStableFunc(order, func(a, b Team) int {
			return cmp.Compare(len(b.Players), len(a.Players))
		})
		if len(order) < 2 {
			return l
		}
		return JoinTeam(player, order[1].Color)(l)
	}
}

func JoinTeam(player string, target Color) Reducer {
	return func(l Lobby) Lobby {
		if player == "" {
			return l
		}
		cur, onTeam := l.TeamIndexOf(player)
		if onTeam && (target == "" || l.Teams[cur].Color == target) {
			return l
		}
		dst, ok := l.TeamIndex(target)
		if !ok {
			return l
		}
		next := l.Clone()
		if onTeam {
			next.Teams[cur].Players = lo.Without(next.Teams[cur].Players, player)
		}
		next.Teams[dst].Players = append(next.Teams[dst].Players, player)
		return next
	}
}

func LeaveLobby(player string, now time.Time) Reducer {
	return func(l Lobby) Lobby {
		ti, ok := l.TeamIndexOf(player)
		if !ok {
			return l
		}
		next := l.Clone()
		team := &next.Teams[ti]
		team.Players = lo.Without(team.Players, player)

		if next.Leader == player {
			candidates := slices.Clone(team.Players)
			for i, t := range next.Teams {
				if i != ti {
					candidates = append(candidates, t.Players...)
				}
			}
			if len(candidates) > 0 {
				next.Leader = candidates[0]
			}
		}

		g := next.ActiveGame
		if g == nil {
			return next
		}
		for i := range g.Secrets {
			if a := g.Secrets[i].DecodeAttempt; a != nil {
				a.Players = lo.Without(a.Players, player)
				if len(a.Players) == 0 {
					g.Secrets[i].DecodeAttempt = nil
				}
			}
		}
		if len(team.Players) > 0 {
			// a smaller team may now back attempts that were short a vote
			if team.Color == g.ActiveTeamColor && g.InDecodePhase() {
				settleAttempts(&next, len(team.Players), now)
			}
			return next
		}
		g.Secrets = lo.Reject(g.Secrets, func(s Secret, _ int) bool {
			return s.Type == SecretTypeTeam && s.TeamColor == team.Color
		})
		if g.ActiveTeamColor == team.Color {
			endTurn(&next, now)
		}
		return next
	}
}

func PromoteEncoder(player string) Reducer {
	return func(l Lobby) Lobby {
		ti, ok := l.TeamIndexOf(player)
		if !ok || l.Teams[ti].Players[0] == player {
			return l
		}
		next := l.Clone()
		rest := lo.Without(next.Teams[ti].Players, player)
		next.Teams[ti].Players = append([]string{player}, rest...)
		return next
	}
}

func DemoteEncoder(player string) Reducer {
	return func(l Lobby) Lobby {
		ti, ok := l.TeamIndexOf(player)
		if !ok || len(l.Teams[ti].Players) < 2 {
			return l
		}
		next := l.Clone()
		p := next.Teams[ti].Players
		next.Teams[ti].Players = append(p[1:], p[0])
		return next
	}
}

// StartGame deals a new game. It fails, leaving the lobby untouched, when
// the deck cannot be built.
func StartGame(player string, cfg GameConfig, bank WordBank, rng *rand.Rand, now time.Time) func(Lobby) (Lobby, error) {
	return func(l Lobby) (Lobby, error) {
		if l.ActiveGame != nil {
			return l, ErrGameInProgress
		}
		if player != l.Leader {
			return l, ErrNotLeader
		}
		if err := cfg.Validate(); err != nil {
			return l, err
		}
		teams := l.EligibleTeams()
		rng.Shuffle(len(teams), func(i, j int) { teams[i], teams[j] = teams[j], teams[i] })
		secrets, err := BuildDeck(cfg, bank, teams, rng)
		if err != nil {
			return l, err
		}
		next := l.Clone()
		next.ActiveGame = &Game{
			Config:          cfg,
			ActiveTeamColor: teams[0],
			Turn:            1,
			EncodeStartTime: &now,
			Secrets:         secrets,
		}
		return next, nil
	}
}

func EndGame() Reducer {
	return func(l Lobby) Lobby {
		if l.ActiveGame == nil {
			return l
		}
		next := l.Clone()
		next.ActiveGame = nil
		return next
	}
}

// EndTurn is applied when a phase timer runs out.
func EndTurn(now time.Time) Reducer {
	return func(l Lobby) Lobby {
		if l.ActiveGame == nil {
			return l
		}
		next := l.Clone()
		endTurn(&next, now)
		return next
	}
}

func EncodeSecret(player, signal string, count int, now time.Time) Reducer {
	return func(l Lobby) Lobby {
		g := l.ActiveGame
		if g == nil || !g.InEncodePhase() || signal == "" || count < 0 {
			return l
		}
		ti, ok := l.TeamIndex(g.ActiveTeamColor)
		if !ok || len(l.Teams[ti].Players) == 0 || l.Teams[ti].Players[0] != player {
			return l
		}
		next := l.Clone()
		ng := next.ActiveGame
		ng.Signal = signal
		ng.SecretCount = count
		ng.EncodeStartTime = nil
		ng.DecodeStartTime = &now
		return next
	}
}

func DecodeSecret(player, value string, now time.Time) Reducer {
	return func(l Lobby) Lobby {
		g := l.ActiveGame
		if g == nil || !g.InDecodePhase() {
			return l
		}
		ti, ok := l.TeamIndexOf(player)
		if !ok || l.Teams[ti].Color != g.ActiveTeamColor {
			return l
		}
		si := g.secretIndex(value)
		if si < 0 {
			return l
		}
		if s := g.Secrets[si]; s.Decoded() || (s.DecodeAttempt != nil && slices.Contains(s.DecodeAttempt.Players, player)) {
			return l
		}

		next := l.Clone()
		ng := next.ActiveGame
		team := next.Teams[ti]
		secret := &ng.Secrets[si]

		players := []string{player}
		if secret.DecodeAttempt != nil {
			players = append(secret.DecodeAttempt.Players, player)
		}
		if !IsResolved(ng.Config.DecodeMethod, len(players), len(team.Players)) {
			secret.DecodeAttempt = &DecodeAttempt{TeamColor: team.Color, Players: players}
			return next
		}

		resolve(&next, si, team.Color, now)
		return next
	}
}

func CancelDecodeSecret(player, value string) Reducer {
	return func(l Lobby) Lobby {
		g := l.ActiveGame
		if g == nil {
			return l
		}
		si := g.secretIndex(value)
		if si < 0 {
			return l
		}
		s := g.Secrets[si]
		if s.Decoded() || s.DecodeAttempt == nil || !slices.Contains(s.DecodeAttempt.Players, player) {
			return l
		}
		next := l.Clone()
		secret := &next.ActiveGame.Secrets[si]
		secret.DecodeAttempt.Players = lo.Without(secret.DecodeAttempt.Players, player)
		if len(secret.DecodeAttempt.Players) == 0 {
			secret.DecodeAttempt = nil
		}
		return next
	}
}

// SkipDecoding lets a decoder give up the rest of the turn.
func SkipDecoding(player string, now time.Time) Reducer {
	return func(l Lobby) Lobby {
		g := l.ActiveGame
		if g == nil || !g.InDecodePhase() {
			return l
		}
		ti, ok := l.TeamIndexOf(player)
		if !ok || l.Teams[ti].Color != g.ActiveTeamColor || l.Teams[ti].Players[0] == player {
			return l
		}
		next := l.Clone()
		endTurn(&next, now)
		return next
	}
}
