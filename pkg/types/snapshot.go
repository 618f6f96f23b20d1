package types

// Snapshot is what subscribers of a lobby receive on every tick. Empty
// teams, the game's category list and an empty elimination list are left
// out. Timestamps are unix seconds.
type Snapshot struct {
	Version    int    `json:"version"`
	Code       string `json:"code"`
	Phase      string `json:"phase"`
	Leader     string `json:"leader"`
	Teams      []Team `json:"teams"`
	ActiveGame *Game  `json:"activeGame,omitempty"`
}

type Team struct {
	Color   string   `json:"color"`
	Players []string `json:"players"`
}

type Game struct {
	Config          GameConfig `json:"config"`
	ActiveTeamColor string     `json:"activeTeamColor"`
	Turn            int        `json:"turn"`
	EncodeStartTime *int64     `json:"encodeStartTime,omitempty"`
	DecodeStartTime *int64     `json:"decodeStartTime,omitempty"`
	Signal          string     `json:"signal,omitempty"`
	SecretCount     *int       `json:"secretCount,omitempty"`
	Secrets         []Secret   `json:"secrets"`
	EliminatedTeams []string   `json:"eliminatedTeams,omitempty"`
	WinningTeam     string     `json:"winningTeam,omitempty"`
}

type GameConfig struct {
	EncodeTimeLimitSec int    `json:"encodeTimeLimitSec"`
	DecodeTimeLimitSec int    `json:"decodeTimeLimitSec"`
	SecretCount        int    `json:"secretCount"`
	VirusCount         int    `json:"virusCount"`
	DecodeMethod       string `json:"decodeMethod"`
	AllowExtraDecode   bool   `json:"allowExtraDecode"`
}

type Secret struct {
	Value           string         `json:"value"`
	Type            string         `json:"type"`
	TeamColor       string         `json:"teamColor,omitempty"`
	DecodeTeamColor string         `json:"decodeTeamColor,omitempty"`
	DecodeAttempt   *DecodeAttempt `json:"decodeAttempt,omitempty"`
}

type DecodeAttempt struct {
	TeamColor string   `json:"teamColor"`
	Players   []string `json:"players"`
}
