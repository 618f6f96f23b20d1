package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func players(l Lobby, c Color) []string {
	i, _ := l.TeamIndex(c)
	return l.Teams[i].Players
}

func secretByValue(t *testing.T, l Lobby, v string) Secret {
	t.Helper()
	i := l.ActiveGame.secretIndex(v)
	require.GreaterOrEqual(t, i, 0, "secret %q missing", v)
	return l.ActiveGame.Secrets[i]
}

func assertSingleMembership(t *testing.T, l Lobby) {
	t.Helper()
	seen := map[string]Color{}
	for _, team := range l.Teams {
		for _, p := range team.Players {
			if prev, dup := seen[p]; dup {
				t.Fatalf("player %q on both %s and %s", p, prev, team.Color)
			}
			seen[p] = team.Color
		}
	}
}

func TestJoinLobby_FillsTwoTeamsAlternately(t *testing.T) {
	l := NewLobby("lead")
	for _, p := range []string{"p2", "p3", "p4", "p5", "p6"} {
		l = JoinLobby(p, "")(l)
		assertSingleMembership(t, l)
	}
	assert.Equal(t, []string{"lead", "p4", "p6"}, players(l, ColorRed))
	assert.Equal(t, []string{"p2", "p3", "p5"}, players(l, ColorGreen))
}

func TestJoinLobby_AlreadySeatedIsNoop(t *testing.T) {
	l := NewLobby("lead")
	assert.Equal(t, l, JoinLobby("lead", "")(l))
	assert.Equal(t, l, JoinLobby("lead", ColorRed)(l))
}

func TestJoinTeam(t *testing.T) {
	l := lobbyWith(map[Color][]string{ColorRed: {"a", "b"}, ColorBlue: {"c"}})

	moved := JoinTeam("a", ColorBlue)(l)
	assert.Equal(t, []string{"b"}, players(moved, ColorRed))
	assert.Equal(t, []string{"c", "a"}, players(moved, ColorBlue))
	assertSingleMembership(t, moved)
	assert.Equal(t, []string{"a", "b"}, players(l, ColorRed), "input untouched")

	assert.Equal(t, l, JoinTeam("a", Color("teal"))(l), "unknown color dropped")
	assert.Equal(t, l, JoinTeam("", ColorBlue)(l))
}

func TestMembershipInvariant_RandomSequence(t *testing.T) {
	names := []string{"a", "b", "c", "d", "e"}
	rng := seeded()
	l := NewLobby("a")
	for i := 0; i < 500; i++ {
		p := names[rng.IntN(len(names))]
		switch rng.IntN(4) {
		case 0:
			l = JoinLobby(p, "")(l)
		case 1:
			l = JoinTeam(p, Colors[rng.IntN(len(Colors))])(l)
		case 2:
			l = LeaveLobby(p, t0)(l)
		case 3:
			l = PromoteEncoder(p)(l)
		}
		assertSingleMembership(t, l)
	}
}

func TestLeaveLobby_ReassignsLeaderOwnTeamFirst(t *testing.T) {
	l := lobbyWith(map[Color][]string{ColorRed: {"x"}, ColorBlue: {"lead", "mate"}})
	l.Leader = "lead"

	got := LeaveLobby("lead", t0)(l)
	assert.Equal(t, "mate", got.Leader)

	got = LeaveLobby("mate", t0)(got)
	assert.Equal(t, "x", got.Leader, "falls back to other teams")

	got = LeaveLobby("x", t0)(got)
	assert.Equal(t, "x", got.Leader, "last player keeps the title")
	assert.True(t, got.IsEmpty())
}

func TestLeaveLobby_EmptyActiveTeamDropsSecretsAndRotates(t *testing.T) {
	l := lobbyWith(map[Color][]string{ColorRed: {"r1"}, ColorGreen: {"g1", "g2"}})
	l = withGame(l, ColorRed, DecodeFirst, teamSecret("R", ColorRed), teamSecret("G", ColorGreen))
	later := t0.Add(time.Minute)

	got := LeaveLobby("r1", later)(l)
	g := got.ActiveGame
	require.Len(t, g.Secrets, 1)
	assert.Equal(t, "G", g.Secrets[0].Value)
	assert.Equal(t, ColorGreen, g.ActiveTeamColor)
	assert.Equal(t, 2, g.Turn)
	require.NotNil(t, g.EncodeStartTime)
	assert.Equal(t, later, *g.EncodeStartTime)
	assert.Nil(t, g.DecodeStartTime)
	assert.Empty(t, g.Signal)
}

func TestLeaveLobby_RemovesPlayerFromAttempts(t *testing.T) {
	l := lobbyWith(map[Color][]string{ColorRed: {"r1", "r2", "r3"}, ColorGreen: {"g1", "g2"}})
	l = withGame(l, ColorRed, DecodeAll, teamSecret("R", ColorRed), teamSecret("G", ColorGreen))
	l = DecodeSecret("r2", "R", t0)(l)
	require.NotNil(t, secretByValue(t, l, "R").DecodeAttempt)

	got := LeaveLobby("r2", t0)(l)
	assert.Nil(t, secretByValue(t, got, "R").DecodeAttempt)
	assert.Equal(t, ColorRed, got.ActiveGame.ActiveTeamColor)
}

func TestLeaveLobby_SettlesAttemptsForSmallerTeam(t *testing.T) {
	seats := map[Color][]string{ColorRed: {"r1", "r2", "r3"}, ColorGreen: {"g1", "g2"}}
	deck := []Secret{teamSecret("R", ColorRed), teamSecret("R2", ColorRed), teamSecret("G", ColorGreen), teamSecret("G2", ColorGreen)}

	t.Run("other team's secret ends the turn", func(t *testing.T) {
		l := withGame(lobbyWith(seats), ColorRed, DecodeAll, deck...)
		l = DecodeSecret("r2", "G", t0)(l)
		l = DecodeSecret("r3", "G", t0)(l)
		require.False(t, secretByValue(t, l, "G").Decoded(), "two of three is not all")

		later := t0.Add(time.Second)
		got := LeaveLobby("r1", later)(l)
		g := secretByValue(t, got, "G")
		assert.Equal(t, ColorRed, g.DecodeTeamColor)
		assert.Nil(t, g.DecodeAttempt)
		assert.Equal(t, 2, got.ActiveGame.Turn)
		assert.Equal(t, ColorGreen, got.ActiveGame.ActiveTeamColor)
		_, won := got.WinningTeam()
		assert.False(t, won)
	})

	t.Run("own secret keeps the turn", func(t *testing.T) {
		l := withGame(lobbyWith(seats), ColorRed, DecodeAll, deck...)
		l = DecodeSecret("r2", "R", t0)(l)
		l = DecodeSecret("r3", "R", t0)(l)

		got := LeaveLobby("r1", t0)(l)
		assert.Equal(t, ColorRed, secretByValue(t, got, "R").DecodeTeamColor)
		assert.Equal(t, 1, got.ActiveGame.Turn)
		assert.Equal(t, ColorRed, got.ActiveGame.ActiveTeamColor)
	})

	t.Run("other team leaving changes nothing", func(t *testing.T) {
		l := withGame(lobbyWith(map[Color][]string{ColorRed: {"r1", "r2", "r3"}, ColorGreen: {"g1", "g2", "g3"}}), ColorRed, DecodeAll, deck...)
		l = DecodeSecret("r2", "G", t0)(l)
		l = DecodeSecret("r3", "G", t0)(l)

		got := LeaveLobby("g1", t0)(l)
		assert.False(t, secretByValue(t, got, "G").Decoded())
		assert.Equal(t, []string{"r2", "r3"}, secretByValue(t, got, "G").DecodeAttempt.Players)
	})
}

func TestPromoteDemoteEncoder(t *testing.T) {
	l := lobbyWith(map[Color][]string{ColorBlue: {"a", "b", "c"}, ColorRed: {"solo"}})

	promoted := PromoteEncoder("c")(l)
	assert.Equal(t, []string{"c", "a", "b"}, players(promoted, ColorBlue))
	assert.Equal(t, promoted, PromoteEncoder("c")(promoted), "already encoder")

	demoted := DemoteEncoder("b")(l)
	assert.Equal(t, []string{"b", "c", "a"}, players(demoted, ColorBlue))

	assert.Equal(t, l, DemoteEncoder("solo")(l), "single player cannot demote")
	assert.Equal(t, l, PromoteEncoder("ghost")(l))
}

func TestStartGame(t *testing.T) {
	l := lobbyWith(map[Color][]string{ColorRed: {"r1", "r2"}, ColorBlue: {"b1", "b2", "b3"}, ColorGreen: {"g1"}})
	cfg := DefaultGameConfig([]string{"words"})

	got, err := StartGame("r1", cfg, testBank(60), seeded(), t0)(l)
	require.NoError(t, err)
	g := got.ActiveGame
	require.NotNil(t, g)
	assert.Contains(t, []Color{ColorRed, ColorBlue}, g.ActiveTeamColor)
	assert.Len(t, g.Secrets, DeckSize(cfg, 2))
	assert.Equal(t, t0, *g.EncodeStartTime)
	for _, s := range g.Secrets {
		assert.NotEqual(t, ColorGreen, s.TeamColor, "understaffed team gets no secrets")
	}

	n := 0
	for _, s := range g.Secrets {
		if s.Type == SecretTypeTeam && s.TeamColor == g.ActiveTeamColor {
			n++
		}
	}
	assert.Equal(t, cfg.SecretCount+1, n, "first team holds the extra secret")
}

func TestStartGame_Failures(t *testing.T) {
	cfg := DefaultGameConfig([]string{"words"})
	staffed := lobbyWith(map[Color][]string{ColorRed: {"r1", "r2"}})

	_, err := StartGame("r2", cfg, testBank(60), seeded(), t0)(staffed)
	require.ErrorIs(t, err, ErrNotLeader)

	_, err = StartGame("r1", cfg, testBank(5), seeded(), t0)(staffed)
	require.ErrorIs(t, err, ErrInsufficientWords)

	lonely := lobbyWith(map[Color][]string{ColorRed: {"r1"}})
	got, err := StartGame("r1", cfg, testBank(60), seeded(), t0)(lonely)
	require.ErrorIs(t, err, ErrNoEligibleTeams)
	assert.Nil(t, got.ActiveGame)

	running, err := StartGame("r1", cfg, testBank(60), seeded(), t0)(staffed)
	require.NoError(t, err)
	_, err = StartGame("r1", cfg, testBank(60), seeded(), t0)(running)
	require.ErrorIs(t, err, ErrGameInProgress)
}

func TestEncodeSecret(t *testing.T) {
	l := lobbyWith(map[Color][]string{ColorRed: {"enc", "dec"}, ColorBlue: {"b1", "b2"}})
	l = withGame(l, ColorRed, DecodeFirst, teamSecret("R", ColorRed))
	l.ActiveGame.DecodeStartTime = nil
	l.ActiveGame.EncodeStartTime = &t0
	l.ActiveGame.Signal = ""
	later := t0.Add(5 * time.Second)

	assert.Equal(t, l, EncodeSecret("dec", "hint", 2, later)(l), "only the encoder")
	assert.Equal(t, l, EncodeSecret("b1", "hint", 2, later)(l), "only the active team")
	assert.Equal(t, l, EncodeSecret("enc", "", 2, later)(l), "signal required")

	got := EncodeSecret("enc", "hint", 2, later)(l)
	g := got.ActiveGame
	assert.Equal(t, "hint", g.Signal)
	assert.Equal(t, 2, g.SecretCount)
	assert.Nil(t, g.EncodeStartTime)
	assert.Equal(t, later, *g.DecodeStartTime)

	assert.Equal(t, got, EncodeSecret("enc", "again", 1, later)(got), "already decoding")
}

func TestDecodeSecret_VirusEndsTurnAndEliminates(t *testing.T) {
	l := lobbyWith(map[Color][]string{ColorRed: {"r1", "r2"}, ColorBlue: {"b1", "b2"}})
	l = withGame(l, ColorRed, DecodeFirst,
		Secret{Value: "V", Type: SecretTypeVirus},
		teamSecret("R", ColorRed),
		teamSecret("B", ColorBlue),
	)

	got := DecodeSecret("r2", "V", t0)(l)
	g := got.ActiveGame
	assert.Equal(t, ColorRed, secretByValue(t, got, "V").DecodeTeamColor)
	assert.Contains(t, g.EliminatedTeams, ColorRed)
	assert.Equal(t, ColorBlue, g.ActiveTeamColor)
	assert.Empty(t, g.Signal)
	assert.Nil(t, g.DecodeStartTime)
	assert.NotNil(t, g.EncodeStartTime)
}

func TestDecodeSecret_NullAndOpponentSecretEndTurn(t *testing.T) {
	for _, s := range []Secret{{Value: "N", Type: SecretTypeNull}, teamSecret("N", ColorBlue)} {
		t.Run(string(s.Type), func(t *testing.T) {
			l := lobbyWith(map[Color][]string{ColorRed: {"r1", "r2"}, ColorBlue: {"b1", "b2"}})
			l = withGame(l, ColorRed, DecodeFirst, s, teamSecret("R", ColorRed), teamSecret("B2", ColorBlue))

			got := DecodeSecret("r1", "N", t0)(l)
			assert.Equal(t, ColorRed, secretByValue(t, got, "N").DecodeTeamColor)
			assert.Equal(t, ColorBlue, got.ActiveGame.ActiveTeamColor)
			assert.Empty(t, got.ActiveGame.EliminatedTeams)
		})
	}
}

func TestDecodeSecret_OwnSecretKeepsTurnAndWins(t *testing.T) {
	l := lobbyWith(map[Color][]string{ColorRed: {"r1", "r2"}, ColorBlue: {"b1", "b2"}})
	l = withGame(l, ColorRed, DecodeFirst, teamSecret("R1", ColorRed), teamSecret("R2", ColorRed), teamSecret("B", ColorBlue))

	got := DecodeSecret("r1", "R1", t0)(l)
	assert.Equal(t, ColorRed, got.ActiveGame.ActiveTeamColor)
	assert.Equal(t, 1, got.ActiveGame.Turn)
	_, won := got.WinningTeam()
	assert.False(t, won)

	got = DecodeSecret("r2", "R2", t0)(got)
	winner, won := got.WinningTeam()
	require.True(t, won)
	assert.Equal(t, ColorRed, winner)
	assert.NotContains(t, got.ActiveGame.EliminatedTeams, ColorRed)
	assert.Contains(t, got.ActiveGame.EliminatedTeams, ColorBlue)
	assert.Len(t, got.ActiveGame.EliminatedTeams, len(Colors)-1)
}

func TestDecodeSecret_MajorityResolvesAtHalf(t *testing.T) {
	l := lobbyWith(map[Color][]string{ColorRed: {"r1", "r2", "r3", "r4", "r5"}, ColorBlue: {"b1", "b2"}})
	l = withGame(l, ColorRed, DecodeMajority, teamSecret("R", ColorRed), teamSecret("X", ColorRed))

	l = DecodeSecret("r1", "R", t0)(l)
	l = DecodeSecret("r1", "R", t0)(l) // repeat attempt ignored
	l = DecodeSecret("r2", "R", t0)(l)
	s := secretByValue(t, l, "R")
	require.False(t, s.Decoded())
	assert.Equal(t, []string{"r1", "r2"}, s.DecodeAttempt.Players)
	assert.Equal(t, ColorRed, s.DecodeAttempt.TeamColor)

	l = DecodeSecret("r3", "R", t0)(l)
	s = secretByValue(t, l, "R")
	assert.Equal(t, ColorRed, s.DecodeTeamColor)
	assert.Nil(t, s.DecodeAttempt)
}

func TestDecodeSecret_ResolvedSecretIsImmutable(t *testing.T) {
	l := lobbyWith(map[Color][]string{ColorRed: {"r1", "r2"}, ColorBlue: {"b1", "b2"}})
	l = withGame(l, ColorRed, DecodeFirst, teamSecret("R", ColorRed), teamSecret("R2", ColorRed), teamSecret("B", ColorBlue))
	l = DecodeSecret("r1", "R", t0)(l)

	assert.Equal(t, l, DecodeSecret("r2", "R", t0)(l))
	assert.Equal(t, l, CancelDecodeSecret("r1", "R")(l))

	// hand the turn to blue; blue cannot re-resolve red's uncovered secret
	l = DecodeSecret("r1", "B", t0)(l)
	require.Equal(t, ColorBlue, l.ActiveGame.ActiveTeamColor)
	l.ActiveGame.DecodeStartTime = &t0
	assert.Equal(t, ColorRed, secretByValue(t, DecodeSecret("b1", "R", t0)(l), "R").DecodeTeamColor)
}

func TestDecodeSecret_Drops(t *testing.T) {
	l := lobbyWith(map[Color][]string{ColorRed: {"r1", "r2"}, ColorBlue: {"b1", "b2"}})
	l = withGame(l, ColorRed, DecodeFirst, teamSecret("R", ColorRed))

	assert.Equal(t, l, DecodeSecret("b1", "R", t0)(l), "not the active team")
	assert.Equal(t, l, DecodeSecret("ghost", "R", t0)(l), "unknown player")
	assert.Equal(t, l, DecodeSecret("r1", "nope", t0)(l), "unknown secret")

	encoding := l.Clone()
	encoding.ActiveGame.DecodeStartTime = nil
	assert.Equal(t, encoding, DecodeSecret("r1", "R", t0)(encoding), "wrong phase")
}

func TestCancelDecodeSecret_Idempotent(t *testing.T) {
	l := lobbyWith(map[Color][]string{ColorRed: {"r1", "r2", "r3"}, ColorBlue: {"b1", "b2"}})
	l = withGame(l, ColorRed, DecodeAll, teamSecret("R", ColorRed))
	l = DecodeSecret("r1", "R", t0)(l)
	l = DecodeSecret("r2", "R", t0)(l)

	once := CancelDecodeSecret("r1", "R")(l)
	assert.Equal(t, []string{"r2"}, secretByValue(t, once, "R").DecodeAttempt.Players)
	twice := CancelDecodeSecret("r1", "R")(once)
	assert.Equal(t, once, twice)

	cleared := CancelDecodeSecret("r2", "R")(twice)
	assert.Nil(t, secretByValue(t, cleared, "R").DecodeAttempt)
}

func TestSkipDecoding(t *testing.T) {
	l := lobbyWith(map[Color][]string{ColorRed: {"enc", "dec"}, ColorBlue: {"b1", "b2"}})
	l = withGame(l, ColorRed, DecodeFirst, teamSecret("R", ColorRed))

	assert.Equal(t, l, SkipDecoding("enc", t0)(l), "encoder cannot skip")
	assert.Equal(t, l, SkipDecoding("b2", t0)(l), "other team cannot skip")

	got := SkipDecoding("dec", t0)(l)
	assert.Equal(t, ColorBlue, got.ActiveGame.ActiveTeamColor)
	assert.Equal(t, 2, got.ActiveGame.Turn)
	assert.False(t, secretByValue(t, got, "R").Decoded())
}

func TestEndTurn_ClearsStaleAttempts(t *testing.T) {
	l := lobbyWith(map[Color][]string{ColorRed: {"r1", "r2", "r3"}, ColorBlue: {"b1", "b2"}})
	l = withGame(l, ColorRed, DecodeAll, teamSecret("R", ColorRed))
	l = DecodeSecret("r1", "R", t0)(l)

	got := EndTurn(t0)(l)
	assert.Nil(t, secretByValue(t, got, "R").DecodeAttempt)
	assert.Equal(t, ColorBlue, got.ActiveGame.ActiveTeamColor)
	assert.False(t, secretByValue(t, got, "R").Decoded())
}

func TestEndGame(t *testing.T) {
	l := lobbyWith(map[Color][]string{ColorRed: {"r1", "r2"}})
	l = withGame(l, ColorRed, DecodeFirst)
	assert.Nil(t, EndGame()(l).ActiveGame)
	assert.NotNil(t, l.ActiveGame)
}
