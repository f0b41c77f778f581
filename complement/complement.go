// Package complement chooses and formats complements.
package complement

import (
	_ "embed"
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/muesli/reflow/wordwrap"
	"github.com/muesli/reflow/wrap"
	"gitlab.com/zephyrtronium/pick"
)

const (
	// MaxLength is the maximum length of a custom complement.
	MaxLength = 350
	// MaxMessage is the maximum length of a chat message.
	MaxMessage = 500
)

//go:embed complements_list.txt
var list string

// Defaults returns the built-in complements.
// The result must not be modified.
var Defaults = sync.OnceValue(func() []string {
	var r []string
	for _, l := range strings.Split(list, "\n") {
		l = strings.TrimSpace(l)
		if l != "" {
			r = append(r, l)
		}
	}
	return r
})

// Choose picks a complement uniformly from the union of defaults and custom.
// It returns false if both are empty.
func Choose(defaults, custom []string) (string, bool) {
	var cases []pick.Case[[]string]
	for _, l := range [][]string{defaults, custom} {
		if len(l) != 0 {
			cases = append(cases, pick.Case[[]string]{E: l, W: len(l)})
		}
	}
	if len(cases) == 0 {
		return "", false
	}
	// Weighting each list by its length makes every complement equally likely.
	l := pick.New(cases).Pick(rand.Uint32())
	return l[rand.IntN(len(l))], true
}

// IsBot reports whether a login looks like a bot account.
func IsBot(login string) bool {
	l := strings.ToLower(login)
	return strings.HasSuffix(l, "bot") || l == "streamlabs" || l == "streamelements"
}

// Format formats a complement to who. If muted, the message starts with
// prefix so that text-to-speech skips it.
func Format(prefix string, muted bool, who, comp string) string {
	if muted {
		return prefix + " @" + who + " " + comp
	}
	return "@" + who + " " + comp
}

// Wrap splits a message into pieces of at most MaxMessage characters,
// breaking at spaces where possible.
func Wrap(msg string) []string {
	s := wrap.String(wordwrap.String(msg, MaxMessage), MaxMessage)
	var r []string
	for _, l := range strings.Split(s, "\n") {
		l = strings.TrimSpace(l)
		if l != "" {
			r = append(r, l)
		}
	}
	return r
}

// Quote formats a list of complements for chat.
func Quote(l []string) string {
	if len(l) == 0 {
		return ""
	}
	return `"` + strings.Join(l, `", "`) + `"`
}
