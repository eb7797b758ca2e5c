package lexer

import (
	"strconv"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/zurustar/sketch/pkg/compiler/token"
)

// Number literals scan to the float64 the lexeme denotes.
func TestPropertyNumberLiteral(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("integer literals round trip", prop.ForAll(
		func(n uint32) bool {
			src := strconv.FormatUint(uint64(n), 10)
			tokens, err := Scan(src)
			if err != nil || len(tokens) != 2 {
				return false
			}
			return tokens[0].Type == token.NUMBER && tokens[0].Literal == float64(n)
		},
		gen.UInt32(),
	))

	properties.Property("fractional literals round trip", prop.ForAll(
		func(whole uint16, frac uint16) bool {
			src := strconv.Itoa(int(whole)) + "." + strconv.Itoa(int(frac))
			want, _ := strconv.ParseFloat(src, 64)
			tokens, err := Scan(src)
			if err != nil {
				return false
			}
			return tokens[0].Lexeme == src && tokens[0].Literal == want
		},
		gen.UInt16(),
		gen.UInt16(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

// Identifiers are scanned whole and classified by the keyword table.
func TestPropertyIdentifiers(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("identifier lexeme is the whole run", prop.ForAll(
		func(name string) bool {
			tokens, err := Scan(name + " ")
			if err != nil || len(tokens) != 2 {
				return false
			}
			return tokens[0].Lexeme == name && tokens[0].Type == token.LookupIdent(name)
		},
		gen.Identifier(),
	))

	properties.Property("plain strings keep their contents", prop.ForAll(
		func(s string) bool {
			tokens, err := Scan(`"` + s + `"`)
			if err != nil {
				return false
			}
			return tokens[0].Type == token.STRING && tokens[0].Literal == s
		},
		gen.AlphaString().SuchThat(func(s string) bool {
			return !strings.ContainsAny(s, `"\`)
		}),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
