package wordbank

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/samber/lo"

	"github.com/DoyleJ11/cryptic-backend/internal/engine"
	api "github.com/DoyleJ11/cryptic-backend/pkg/types"
)

//go:embed words.json
var builtin []byte

var ErrEmptyBank = errors.New("word bank has no categories")

// Categories left out of a game unless asked for.
var optIn = []string{"Adult"}

// Bank is the word list of every category plus the default selection.
type Bank struct {
	words    engine.WordBank
	defaults []string
}

// Load reads the bank from path, or the built-in list when path is empty.
func Load(path string) (*Bank, error) {
	data := builtin
	if path != "" {
		var err error
		if data, err = os.ReadFile(path); err != nil {
			return nil, fmt.Errorf("read word bank: %w", err)
		}
	}
	return Parse(data)
}

func Parse(data []byte) (*Bank, error) {
	var raw map[string][]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse word bank: %w", err)
	}
	words := lo.OmitBy(raw, func(_ string, list []string) bool { return len(list) == 0 })
	if len(words) == 0 {
		return nil, ErrEmptyBank
	}
	defaults := lo.Filter(lo.Keys(words), func(c string, _ int) bool { return !slices.Contains(optIn, c) })
	slices.Sort(defaults)
	return &Bank{words: engine.WordBank(words), defaults: defaults}, nil
}

func (b *Bank) Words() engine.WordBank { return b.words }

// Defaults is the category selection used when a game names none.
func (b *Bank) Defaults() []string { return slices.Clone(b.defaults) }

// Categories lists every category, sorted, flagging the defaults.
func (b *Bank) Categories() []api.Category {
	names := lo.Keys(map[string][]string(b.words))
	slices.Sort(names)
	return lo.Map(names, func(c string, _ int) api.Category {
		return api.Category{Category: c, IsDefault: slices.Contains(b.defaults, c)}
	})
}
