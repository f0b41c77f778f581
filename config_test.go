package main_test

import (
	"context"
	_ "embed"
	"strings"
	"testing"

	main "github.com/ereiarrus/complementsbot"
)

//go:embed example.toml
var exampleToml string

func eqcase[T comparable](t *testing.T, name string, val T, eq T) {
	t.Helper()
	if val != eq {
		t.Errorf("wrong %s: want %#v, got %#v", name, eq, val)
	}
}

func TestExampleConfig(t *testing.T) {
	t.Setenv("HOME", "/home/bocchi")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("TMI_TOKEN", "oauth:kessoku")
	t.Setenv("CLIENT_ID", "cid")
	t.Setenv("CLIENT_SECRET", "secret")
	cfg, _, err := main.Load(context.Background(), strings.NewReader(exampleToml))
	if err != nil {
		t.Fatalf("failed to load example.toml: %v", err)
	}

	eqcase(t, "Owner.Name", cfg.Owner.Name, `ereiarrus`)
	eqcase(t, "Owner.Contact", cfg.Owner.Contact, `/w ereiarrus`)
	eqcase(t, "DB.DSN", cfg.DB.DSN, `sqlite:file:/home/bocchi/complementsbot.db`)
	eqcase(t, "DB.KVFlag", cfg.DB.KVFlag, "")
	eqcase(t, "HTTP.Listen", cfg.HTTP.Listen, ":4959")
	eqcase(t, "TMI.Prefix", cfg.TMI.Prefix, "!")
	eqcase(t, "TMI.Rate.Every", cfg.TMI.Rate.Every, 1.5)
	eqcase(t, "TMI.Rate.Num", cfg.TMI.Rate.Num, 20)
	eqcase(t, "Resolve.Backoff", cfg.Resolve.Backoff, 1)
	eqcase(t, "Resolve.Timeout", cfg.Resolve.Timeout, 30)
	eqcase(t, "Secrets.TMIToken", cfg.Secrets.TMIToken, "oauth:kessoku")
	eqcase(t, "Secrets.ClientID", cfg.Secrets.ClientID, "cid")
	eqcase(t, "Secrets.ClientSecret", cfg.Secrets.ClientSecret, "secret")
}

func TestDatabaseURLOverride(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://kita@localhost/complements")
	cfg, _, err := main.Load(context.Background(), strings.NewReader(exampleToml))
	if err != nil {
		t.Fatalf("failed to load example.toml: %v", err)
	}
	eqcase(t, "DB.DSN", cfg.DB.DSN, "postgres://kita@localhost/complements")
}

func TestSecretsNotFromFile(t *testing.T) {
	t.Setenv("TMI_TOKEN", "")
	const src = `
[secrets]
tmitoken = 'leaked'
`
	cfg, md, err := main.Load(context.Background(), strings.NewReader(src))
	if err != nil {
		t.Fatal(err)
	}
	eqcase(t, "Secrets.TMIToken", cfg.Secrets.TMIToken, "")
	if len(md.Undecoded()) == 0 {
		t.Error("secrets table was decoded")
	}
}
