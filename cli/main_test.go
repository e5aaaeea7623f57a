package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestReadInput(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ids.txt")
	if err := os.WriteFile(path, []byte("a\n\nb\n"), 0644); err != nil {
		t.Fatal(err)
	}

	ids, err := readInput(path)
	if err != nil {
		t.Fatalf("readInput() error = %v", err)
	}
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Errorf("readInput() = %v, want [a b]", ids)
	}

	for _, p := range []string{"", filepath.Join(dir, "missing.txt")} {
		if _, err := readInput(p); err == nil {
			t.Errorf("readInput(%q) error = nil, want error", p)
		}
	}
}

func TestCommandsRegistered(t *testing.T) {
	want := map[string]bool{"videos": false, "channels": false, "probe": false}
	for _, c := range rootCmd.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("command %q not registered", name)
		}
	}
}
