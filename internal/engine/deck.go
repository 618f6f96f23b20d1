package engine

import (
	"fmt"
	"math/rand/v2"

	"github.com/samber/lo"
)

// InsufficientWordsError is returned when the configured categories cannot
// fill a deck. It matches ErrInsufficientWords.
type InsufficientWordsError struct {
	Required  int
	Available int
}

func (e *InsufficientWordsError) Error() string {
	return fmt.Sprintf("%s: need %d, have %d", ErrInsufficientWords, e.Required, e.Available)
}

func (e *InsufficientWordsError) Is(target error) bool { return target == ErrInsufficientWords }

// DeckSize is the number of secrets a deck holds for the given config and
// number of eligible teams.
func DeckSize(cfg GameConfig, teams int) int {
	// the team acting first gets one extra secret
	return cfg.SecretCount*teams + 1 + cfg.SecretCount + cfg.VirusCount
}

// BuildDeck deals the shuffled secrets for a game. teams is the deal order;
// teams[0] acts first and receives the extra secret.
func BuildDeck(cfg GameConfig, bank WordBank, teams []Color, rng *rand.Rand) ([]Secret, error) {
	if len(teams) == 0 {
		return nil, ErrNoEligibleTeams
	}

	pool := lo.Uniq(lo.FlatMap(lo.Uniq(cfg.Categories), func(c string, _ int) []string {
		return bank[c]
	}))
	required := DeckSize(cfg, len(teams))
	if len(pool) < required {
		return nil, &InsufficientWordsError{Required: required, Available: len(pool)}
	}
	rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	pool = pool[:required]

	pop := func(n int) []string {
		words := pool[:n]
		pool = pool[n:]
		return words
	}

	secrets := make([]Secret, 0, required)
	for i, team := range teams {
		n := cfg.SecretCount
		if i == 0 {
			n++
		}
		for _, w := range pop(n) {
			secrets = append(secrets, Secret{Value: w, Type: SecretTypeTeam, TeamColor: team})
		}
	}
	for _, w := range pop(cfg.SecretCount) {
		secrets = append(secrets, Secret{Value: w, Type: SecretTypeNull})
	}
	for _, w := range pop(cfg.VirusCount) {
		secrets = append(secrets, Secret{Value: w, Type: SecretTypeVirus})
	}

	rng.Shuffle(len(secrets), func(i, j int) { secrets[i], secrets[j] = secrets[j], secrets[i] })
	return secrets, nil
}
