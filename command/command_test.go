package command_test

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ereiarrus/complementsbot/chanstore"
	"github.com/ereiarrus/complementsbot/command"
	"github.com/ereiarrus/complementsbot/docstore/kvstore"
	"github.com/ereiarrus/complementsbot/message"
	"github.com/ereiarrus/complementsbot/resolve"
)

// users maps logins to IDs.
var users = map[string]string{
	"complementsbot": "1",
	"ereiarrus":      "2",
	"bocchi":         "42",
	"nijika":         "43",
	"kita":           "44",
	"nightbot":       "45",
}

type resolver map[string]string

func (r resolver) Resolve(ctx context.Context, keys []string, dir resolve.Direction) ([]string, error) {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i], _ = r.ResolveOne(ctx, k, dir)
	}
	return out, nil
}

func (r resolver) ResolveOne(ctx context.Context, key string, dir resolve.Direction) (string, error) {
	if dir == resolve.NameToID {
		if id, ok := r[strings.ToLower(key)]; ok {
			return id, nil
		}
		return "", resolve.ErrNotFound
	}
	for k, v := range r {
		if v == key {
			return k, nil
		}
	}
	return "", resolve.ErrNotFound
}

type fixture struct {
	robo  *command.Robot
	store *chanstore.Store
	sent  []message.Sent
	joins []string
	parts []string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	kv, err := kvstore.Open("", "")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { kv.Close() })
	res := resolver(users)
	f := &fixture{store: chanstore.New(kv, res)}
	f.robo = &command.Robot{
		Log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		Store:    f.store,
		Resolver: res,
		Me:       "complementsbot",
		MeID:     "1",
		Owner:    "ereiarrus",
		OwnerID:  "2",
		Defaults: []string{"you are great"},
		Join:     func(ctx context.Context, login string) { f.joins = append(f.joins, login) },
		Part:     func(ctx context.Context, login string) { f.parts = append(f.parts, login) },
	}
	ctx := context.Background()
	for _, c := range []string{"complementsbot", "bocchi"} {
		if err := f.store.Join(ctx, users[c], c); err != nil {
			t.Fatal(err)
		}
	}
	return f
}

// msg creates a message from a user in a channel.
func msg(from, in, text string) *message.Received {
	return &message.Received{
		ID:            "x",
		To:            "#" + in,
		RoomID:        users[in],
		Sender:        users[from],
		Login:         from,
		Name:          from,
		Text:          text,
		IsBroadcaster: from == in,
		IsModerator:   from == "nijika",
	}
}

// run runs a chat command and returns the texts of the replies. It returns
// nil if the command is not allowed.
func (f *fixture) run(t *testing.T, from, in, text string) []string {
	t.Helper()
	m := msg(from, in, text)
	name, args, ok := message.Command(text, "!")
	if !ok {
		t.Fatalf("%q is not a command", text)
	}
	c := command.Lookup(name)
	if c == nil {
		t.Fatalf("no command %q", name)
	}
	f.sent = f.sent[:0]
	call := command.Invocation{
		Message:   m,
		Channel:   in,
		ChannelID: users[in],
		Args:      args,
		Send: func(ctx context.Context, msg message.Sent) {
			if msg.To != m.To {
				t.Errorf("reply to wrong channel: want %q, got %q", m.To, msg.To)
			}
			f.sent = append(f.sent, msg)
		},
	}
	c.Run(context.Background(), f.robo, &call)
	var r []string
	for _, s := range f.sent {
		r = append(r, s.Text)
	}
	return r
}

func (f *fixture) expect(t *testing.T, from, in, text string, want ...string) {
	t.Helper()
	got := f.run(t, from, in, text)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("wrong replies to %q from %s in %s (+got/-want):\n%s", text, from, in, diff)
	}
}

func TestLookup(t *testing.T) {
	for _, c := range command.All {
		for _, n := range append([]string{c.Name}, c.Aliases...) {
			got := command.Lookup(n)
			if got == nil || got.Name != c.Name {
				t.Errorf("%q doesn't find %s", n, c.Name)
			}
		}
	}
	if c := command.Lookup("speak"); c != nil {
		t.Errorf("found unknown command: %s", c.Name)
	}
	if c := command.Lookup("disablecommandcomp"); c == nil || c.Name != "disablecmdcomplement" {
		t.Errorf("alias found wrong command")
	}
}

func TestPermissions(t *testing.T) {
	cases := []struct {
		name  string
		pred  command.Predicate
		from  string
		in    string
		allow bool
	}{
		{"anyone", command.Anyone, "kita", "bocchi", true},
		{"bot-channel", command.InBotChannel, "kita", "complementsbot", true},
		{"owner-channel", command.InBotChannel, "kita", "ereiarrus", true},
		{"other-channel", command.InBotChannel, "kita", "bocchi", false},
		{"broadcaster", command.BroadcasterOrMod, "bocchi", "bocchi", true},
		{"mod", command.BroadcasterOrMod, "nijika", "bocchi", true},
		{"bot", command.BroadcasterOrMod, "complementsbot", "bocchi", true},
		{"bot-owner", command.BroadcasterOrMod, "ereiarrus", "bocchi", true},
		{"viewer", command.BroadcasterOrMod, "kita", "bocchi", false},
		{"channel-owner", command.ChannelOwner, "bocchi", "bocchi", true},
		{"channel-mod", command.ChannelOwner, "nijika", "bocchi", false},
		{"owner-anywhere", command.BotOwner, "ereiarrus", "bocchi", true},
		{"self-anywhere", command.BotOwner, "complementsbot", "bocchi", true},
		{"broadcaster-not-owner", command.BotOwner, "bocchi", "bocchi", false},
	}
	f := newFixture(t)
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			call := command.Invocation{
				Message:   msg(c.from, c.in, ""),
				Channel:   c.in,
				ChannelID: users[c.in],
			}
			if got := c.pred(f.robo, &call); got != c.allow {
				t.Errorf("want %t, got %t", c.allow, got)
			}
		})
	}
}

func TestDisallowed(t *testing.T) {
	f := newFixture(t)
	f.expect(t, "kita", "bocchi", "!setchance 100")
	f.expect(t, "kita", "bocchi", "!joinme")
	f.expect(t, "nijika", "bocchi", "!compleave")
	c, err := chanstore.GetOrDefault(context.Background(), f.store, "42", chanstore.ComplementChance)
	if err != nil {
		t.Fatal(err)
	}
	if c == 100 {
		t.Errorf("disallowed command ran")
	}
}

func TestJoinLeave(t *testing.T) {
	f := newFixture(t)
	const bot = "complementsbot"
	f.expect(t, "kita", bot, "!leaveme", "@kita I have not joined your channel.")
	f.expect(t, "kita", bot, "!deleteme", "@kita your channel does not exists in my records.")
	f.expect(t, "kita", bot, "!joinme", "@kita I have joined your channel!")
	f.expect(t, "kita", bot, "!joinme", "@kita I am already in your channel!")
	if diff := cmp.Diff([]string{"kita"}, f.joins); diff != "" {
		t.Errorf("wrong joins (+got/-want):\n%s", diff)
	}
	f.expect(t, "kita", bot, "!count", "@kita 3 channels and counting!")
	f.expect(t, "kita", bot, "!leaveme", "@kita I have left your channel.")
	f.expect(t, "kita", bot, "!leaveme", "@kita I have not joined your channel.")
	f.expect(t, "kita", bot, "!count", "@kita 2 channels and counting!")
	f.expect(t, "kita", bot, "!deleteme", "@kita I have deleted your channel data.")
	if diff := cmp.Diff([]string{"kita", "kita"}, f.parts); diff != "" {
		t.Errorf("wrong parts (+got/-want):\n%s", diff)
	}
	f.expect(t, "bocchi", "bocchi", "!compleave", "@bocchi I have left your channel.")
	f.expect(t, "bocchi", "bocchi", "!compleaveme", "@bocchi I have not joined your channel.")
}

func TestCommandAfterDelete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.expect(t, "kita", "complementsbot", "!joinme", "@kita I have joined your channel!")
	f.expect(t, "kita", "complementsbot", "!deleteme", "@kita I have deleted your channel data.")
	// Commands from the channel that were already queued find no record.
	f.expect(t, "kita", "kita", "!setchance 5")
	f.expect(t, "kita", "kita", "!addcomp you rock")
	f.expect(t, "kita", "kita", "!disablecmdcomplement")
	ok, err := f.store.Exists(ctx, "44")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("commands recreated the deleted record")
	}
	l, err := f.store.JoinedChannels(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"1", "42"}, l); diff != "" {
		t.Errorf("wrong joined channels (+got/-want):\n%s", diff)
	}
}

func TestIgnoreMe(t *testing.T) {
	f := newFixture(t)
	const bot = "complementsbot"
	f.expect(t, "kita", bot, "!unignoreme", "@kita I am not ignoring you!")
	f.expect(t, "kita", bot, "!ignoreme", "@kita I am now ignoring you.")
	f.expect(t, "kita", bot, "!ignoreme", "@kita I am already ignoring you.")
	f.expect(t, "kita", bot, "!unignoreme", "@kita I am no longer ignoring you!")
	f.expect(t, "kita", "bocchi", "!compignoreme")
	ok, err := f.store.IsIgnored(context.Background(), "44")
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Errorf("compignoreme didn't ignore")
	}
	f.expect(t, "kita", "bocchi", "!compunignoreme")
	f.expect(t, "kita", "bocchi", "!compunignoreme")
	ok, err = f.store.IsIgnored(context.Background(), "44")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Errorf("compunignoreme didn't unignore")
	}
}

func TestToggles(t *testing.T) {
	cases := []struct {
		cmd    string
		first  string
		second string
	}{
		{"!disablecmdcomplement", "your viewers will no longer be able to make use of the !complement command.", "your viewers already cannot make use of the !complement command."},
		{"!enablecmdcomp", "your viewers can already make use of the !complement command!", "your viewers can already make use of the !complement command!"},
		{"!disablerandcomp", "your viewers will no longer randomly receive complements.", "your viewers already do not randomly receive complements."},
		{"!enablerandomcomplement", "I already randomly send out complements!", "I already randomly send out complements!"},
		{"!mutecmdcomplement", "command complements are already muted!", "command complements are already muted!"},
		{"!unmutecmdcomp", "command complements are no longer muted!", "command complements are already unmuted!"},
		{"!muterandomcomplement", "random complements are now muted.", "random complements are already muted!"},
		{"!unmuterandcomplement", "random complements are already unmuted!", "random complements are already unmuted!"},
		{"!disablecustomcomps", "custom complements are now disabled.", "custom complements are already disabled."},
		{"!enablecustomcomplements", "custom complements are already enabled!", "custom complements are already enabled!"},
		{"!disabledefaultcomplements", "default complements are now disabled.", "default complements are already disabled."},
		{"!enabledefaultcomps", "default complements are already enabled!", "default complements are already enabled!"},
		{"!ignorebots", "bots are already not getting complements.", "bots are already not getting complements."},
		{"!unignorebot", "bots have a chance of being complemented!", "bots can already get complements!"},
	}
	for _, c := range cases {
		t.Run(c.cmd, func(t *testing.T) {
			f := newFixture(t)
			f.expect(t, "nijika", "bocchi", c.cmd, "@bocchi "+c.first)
			f.expect(t, "bocchi", "bocchi", c.cmd, "@bocchi "+c.second)
		})
	}
}

func TestSetChance(t *testing.T) {
	f := newFixture(t)
	f.expect(t, "bocchi", "bocchi", "!setchance", "@bocchi You did not enter a number. Please try again.")
	f.expect(t, "bocchi", "bocchi", "!setchance lots", "@bocchi 'lots' is an invalid number. Please try again.")
	f.expect(t, "bocchi", "bocchi", "!setchance NaN", "@bocchi 'NaN' is an invalid number. Please try again.")
	f.expect(t, "bocchi", "bocchi", "!setchance 12.5", "@bocchi complement chance set to 12.5!")
	c, err := chanstore.GetOrDefault(context.Background(), f.store, "42", chanstore.ComplementChance)
	if err != nil {
		t.Fatal(err)
	}
	if c != 12.5 {
		t.Errorf("wrong chance: want 12.5, got %v", c)
	}
}

func TestCustomComplements(t *testing.T) {
	f := newFixture(t)
	f.expect(t, "bocchi", "bocchi", "!listcomps", "@bocchi No complements found.")
	f.expect(t, "bocchi", "bocchi", "!addcomp "+strings.Repeat("a", 351), "@bocchi complement is too long. It may not be over 350 characters long.")
	f.expect(t, "bocchi", "bocchi", "!addcomp nice hat", "@bocchi new complements added: 'nice hat'")
	f.expect(t, "nijika", "bocchi", "!addcomplement Great Job!!", "@bocchi new complements added: 'Great Job!!'")
	f.expect(t, "bocchi", "bocchi", "!listcomplements", `@bocchi complements: "nice hat", "Great Job!!"`)
	f.expect(t, "bocchi", "bocchi", "!removecomp xyz", "@bocchi No complements with that phrase found.")
	f.expect(t, "bocchi", "bocchi", "!removecomp greatjob", `@bocchi complement/s removed: "Great Job!!"`)
	f.expect(t, "bocchi", "bocchi", "!listcomps", `@bocchi complements: "nice hat"`)
	f.expect(t, "bocchi", "bocchi", "!removeallcomps", "@bocchi all of your custom complements have been removed.")
	f.expect(t, "bocchi", "bocchi", "!listcomps", "@bocchi No complements found.")
}

func TestListWraps(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for range 20 {
		if err := f.store.AddComplement(ctx, "42", strings.Repeat("cool ", 10)+"hat"); err != nil {
			t.Fatal(err)
		}
	}
	got := f.run(t, "bocchi", "bocchi", "!listcomps")
	if len(got) < 2 {
		t.Fatalf("long list not split: %d messages", len(got))
	}
	for i, m := range got {
		if len(m) > 500 {
			t.Errorf("message %d too long: %d", i, len(m))
		}
	}
}

func TestSetMutePrefix(t *testing.T) {
	f := newFixture(t)
	f.expect(t, "bocchi", "bocchi", "!setmutettsprefix")
	f.expect(t, "bocchi", "bocchi", "!setmutettsprefix [mute]", "@bocchi mute TTS prefix changed to '[mute]'.")
	f.expect(t, "bocchi", "bocchi", "!addcomp nice hat", "@bocchi new complements added: 'nice hat'")
	f.expect(t, "bocchi", "bocchi", "!disabledefaultcomps", "@bocchi default complements are now disabled.")
	f.expect(t, "kita", "bocchi", "!complement", "[mute] @kita nice hat")
}

func TestAbout(t *testing.T) {
	f := newFixture(t)
	got := f.run(t, "kita", "complementsbot", "!about")
	if len(got) != 1 || !strings.HasPrefix(got[0], "@kita ") || !strings.Contains(got[0], "https://github.com/Ereiarrus/ComplementsBotPy#readme") {
		t.Errorf("wrong about: %q", got)
	}
}
