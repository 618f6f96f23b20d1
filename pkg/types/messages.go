package types

// Request and response bodies of the HTTP API.

type CreateLobbyRequest struct {
	PlayerName string `json:"playerName"`
}

type CreateLobbyResponse struct {
	LobbyCode string `json:"lobbyCode"`
}

type Category struct {
	Category  string `json:"category"`
	IsDefault bool   `json:"isDefault,omitempty"`
}

type CategoriesResponse struct {
	Categories []Category `json:"categories"`
}

type StartGameRequest struct {
	PlayerName string `json:"playerName"`
	// Omitted fields fall back to the server defaults. An explicit 0 is
	// kept, so "virusCount": 0 plays without a virus.
	EncodeTimeLimitSec *int     `json:"encodeTimeLimitSec,omitempty"`
	DecodeTimeLimitSec *int     `json:"decodeTimeLimitSec,omitempty"`
	SecretCount        *int     `json:"secretCount,omitempty"`
	VirusCount         *int     `json:"virusCount,omitempty"`
	DecodeMethod       string   `json:"decodeMethod,omitempty"`
	AllowExtraDecode   *bool    `json:"allowExtraDecode,omitempty"`
	Categories         []string `json:"categories,omitempty"`
}

// ErrorResponse:
//   code: "not_found" | "bad_request" | "forbidden" | "insufficient_words" | ...
//   message: string
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
