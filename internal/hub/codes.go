package hub

import (
	"crypto/rand"
	"errors"
	"io"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	codeLength   = 4
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	maxCodeTries = 64
	// bytes at or above this are redrawn so every letter is equally likely
	codeByteLimit = 256 - 256%len(codeAlphabet)
)

var ErrCodeSpaceExhausted = errors.New("no free lobby code")

// NormalizeCode maps user input onto the canonical code form. Casers keep
// state, so each call builds its own.
func NormalizeCode(code string) string {
	return cases.Upper(language.Und).String(strings.TrimSpace(code))
}

// codeBook remembers recently issued codes so a code is not handed out
// again while links to the old lobby may still be around.
type codeBook struct {
	entropy io.Reader
	ttl     time.Duration
	issued  map[string]time.Time
}

func newCodeBook(entropy io.Reader, ttl time.Duration) *codeBook {
	if entropy == nil {
		entropy = rand.Reader
	}
	return &codeBook{entropy: entropy, ttl: ttl, issued: make(map[string]time.Time)}
}

// next draws a code that is neither live nor issued within the TTL.
func (b *codeBook) next(now time.Time, live func(string) bool) (string, error) {
	b.prune(now)
	for range maxCodeTries {
		code, err := b.draw()
		if err != nil {
			return "", err
		}
		if _, recent := b.issued[code]; recent || live(code) {
			continue
		}
		b.issued[code] = now
		return code, nil
	}
	return "", ErrCodeSpaceExhausted
}

func (b *codeBook) draw() (string, error) {
	code := make([]byte, 0, codeLength)
	var v [1]byte
	for len(code) < codeLength {
		if _, err := io.ReadFull(b.entropy, v[:]); err != nil {
			return "", err
		}
		if v[0] >= codeByteLimit {
			continue
		}
		code = append(code, codeAlphabet[int(v[0])%len(codeAlphabet)])
	}
	return string(code), nil
}

func (b *codeBook) prune(now time.Time) {
	for code, at := range b.issued {
		if now.Sub(at) >= b.ttl {
			delete(b.issued, code)
		}
	}
}
