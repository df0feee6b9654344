// Package credgen generates random secrets that satisfy a character
// class policy. Every call draws from crypto/rand; there is no shared
// state beyond the process-wide random source.
package credgen

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/medienwerk/credsheet/internal/models"
)

const (
	lowerChars  = "abcdefghijklmnopqrstuvwxyz"
	upperChars  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	digitChars  = "0123456789"
	symbolChars = "!@#$%^&*()-_=+[]{}"
)

// Policy enumerates the constraints a generated secret must satisfy.
// Every enabled class contributes at least one character.
type Policy struct {
	Length int
	Lower  bool
	Upper  bool
	Digit  bool
	Symbol bool
}

// DefaultPolicy matches the vault's default password rules: 16
// characters drawn from all four classes.
var DefaultPolicy = Policy{Length: 16, Lower: true, Upper: true, Digit: true, Symbol: true}

// classes returns the alphabets of the enabled character classes.
func (p Policy) classes() []string {
	var cs []string
	if p.Lower {
		cs = append(cs, lowerChars)
	}
	if p.Upper {
		cs = append(cs, upperChars)
	}
	if p.Digit {
		cs = append(cs, digitChars)
	}
	if p.Symbol {
		cs = append(cs, symbolChars)
	}
	return cs
}

// Generate returns a random secret satisfying every constraint in the
// policy. It fails with a PolicyError when the policy is unsatisfiable:
// no class enabled, or length shorter than the number of mandatory
// classes.
func Generate(policy Policy) (string, error) {
	classes := policy.classes()
	if len(classes) == 0 {
		return "", &models.PolicyError{Message: "no character class enabled"}
	}
	if policy.Length < len(classes) {
		return "", &models.PolicyError{
			Message: fmt.Sprintf("length %d cannot cover %d mandatory classes", policy.Length, len(classes)),
		}
	}

	var all string
	for _, c := range classes {
		all += c
	}

	// One guaranteed character per class, the rest from the full
	// alphabet, then shuffle so class positions are not predictable.
	out := make([]byte, 0, policy.Length)
	for _, c := range classes {
		ch, err := randomChar(c)
		if err != nil {
			return "", err
		}
		out = append(out, ch)
	}
	for len(out) < policy.Length {
		ch, err := randomChar(all)
		if err != nil {
			return "", err
		}
		out = append(out, ch)
	}
	if err := shuffle(out); err != nil {
		return "", err
	}
	return string(out), nil
}

func randomChar(alphabet string) (byte, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(alphabet))))
	if err != nil {
		return 0, fmt.Errorf("read random source: %w", err)
	}
	return alphabet[n.Int64()], nil
}

func shuffle(b []byte) error {
	for i := len(b) - 1; i > 0; i-- {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return fmt.Errorf("read random source: %w", err)
		}
		j := n.Int64()
		b[i], b[j] = b[j], b[i]
	}
	return nil
}
