package main

import "testing"

func TestServeCmd(t *testing.T) {
	cmd := serveCmd()
	if cmd.Use != "serve" {
		t.Errorf("Use = %q, want serve", cmd.Use)
	}
	if cmd.RunE == nil {
		t.Error("expected serve to have a RunE")
	}
}

func TestMigrateCmd_Subcommands(t *testing.T) {
	cmd := migrateCmd()
	if cmd.Use != "migrate" {
		t.Errorf("Use = %q, want migrate", cmd.Use)
	}

	names := map[string]bool{}
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	for _, want := range []string{"up", "status"} {
		if !names[want] {
			t.Errorf("missing subcommand %q", want)
		}
	}
}

func TestMigrateCmd_DirFlag(t *testing.T) {
	cmd := migrateCmd()
	for _, sub := range cmd.Commands() {
		if sub.Flags().Lookup("dir") == nil {
			t.Errorf("subcommand %q missing --dir flag", sub.Name())
		}
	}
}
