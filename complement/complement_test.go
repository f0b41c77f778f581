package complement_test

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ereiarrus/complementsbot/complement"
)

func TestDefaults(t *testing.T) {
	d := complement.Defaults()
	if len(d) == 0 {
		t.Fatal("no default complements")
	}
	for i, c := range d {
		if c == "" || strings.TrimSpace(c) != c {
			t.Errorf("bad default complement %d: %q", i, c)
		}
		if len(c) > complement.MaxLength {
			t.Errorf("default complement %d too long: %q", i, c)
		}
	}
}

func TestChoose(t *testing.T) {
	if c, ok := complement.Choose(nil, nil); ok {
		t.Errorf("chose %q from nothing", c)
	}
	c, ok := complement.Choose(nil, []string{"nice hat"})
	if !ok || c != "nice hat" {
		t.Errorf("wrong choice from one custom: %q, %t", c, ok)
	}
	c, ok = complement.Choose([]string{"good job"}, nil)
	if !ok || c != "good job" {
		t.Errorf("wrong choice from one default: %q, %t", c, ok)
	}
	seen := make(map[string]int)
	for range 10000 {
		c, ok := complement.Choose([]string{"a"}, []string{"b", "c", "d"})
		if !ok {
			t.Fatal("no choice")
		}
		seen[c]++
	}
	for _, c := range []string{"a", "b", "c", "d"} {
		// Each should be about 2500.
		if n := seen[c]; n < 2000 || n > 3000 {
			t.Errorf("%q chosen %d times of 10000", c, n)
		}
	}
	if len(seen) != 4 {
		t.Errorf("chose unknown complements: %v", seen)
	}
}

func TestIsBot(t *testing.T) {
	cases := []struct {
		login string
		want  bool
	}{
		{"nightbot", true},
		{"NightBot", true},
		{"bot", true},
		{"streamlabs", true},
		{"StreamElements", true},
		{"botany", false},
		{"bocchi", false},
		{"ot", false},
		{"", false},
	}
	for _, c := range cases {
		if got := complement.IsBot(c.login); got != c.want {
			t.Errorf("IsBot(%q): want %t, got %t", c.login, c.want, got)
		}
	}
}

func TestFormat(t *testing.T) {
	cases := []struct {
		name   string
		prefix string
		muted  bool
		want   string
	}{
		{"muted", "!", true, "! @bocchi you rock"},
		{"unmuted", "!", false, "@bocchi you rock"},
		{"long", "[tts-off]", true, "[tts-off] @bocchi you rock"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := complement.Format(c.prefix, c.muted, "bocchi", "you rock")
			if got != c.want {
				t.Errorf("want %q, got %q", c.want, got)
			}
		})
	}
}

func TestWrap(t *testing.T) {
	t.Run("short", func(t *testing.T) {
		got := complement.Wrap("@bocchi complements: \"a\"")
		if diff := cmp.Diff([]string{"@bocchi complements: \"a\""}, got); diff != "" {
			t.Errorf("short message changed (+got/-want):\n%s", diff)
		}
	})
	t.Run("words", func(t *testing.T) {
		words := make([]string, 300)
		for i := range words {
			words[i] = "complement"
		}
		msg := strings.Join(words, " ")
		got := complement.Wrap(msg)
		if len(got) < 2 {
			t.Fatalf("long message not split: %d pieces", len(got))
		}
		for i, p := range got {
			if len(p) > complement.MaxMessage {
				t.Errorf("piece %d too long: %d", i, len(p))
			}
		}
		if s := strings.Join(got, " "); s != msg {
			t.Errorf("pieces don't reassemble the message")
		}
	})
	t.Run("unbroken", func(t *testing.T) {
		msg := strings.Repeat("a", 1200)
		got := complement.Wrap(msg)
		if len(got) != 3 {
			t.Fatalf("wrong number of pieces: want 3, got %d", len(got))
		}
		if s := strings.Join(got, ""); s != msg {
			t.Errorf("pieces don't reassemble the message")
		}
	})
	t.Run("empty", func(t *testing.T) {
		if got := complement.Wrap(""); len(got) != 0 {
			t.Errorf("empty message wrapped to %q", got)
		}
	})
}

func TestQuote(t *testing.T) {
	if got := complement.Quote(nil); got != "" {
		t.Errorf("empty list quoted to %q", got)
	}
	if got, want := complement.Quote([]string{"a", "b c"}), `"a", "b c"`; got != want {
		t.Errorf("want %s, got %s", want, got)
	}
}
