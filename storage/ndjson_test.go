package storage

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	return strings.Split(strings.TrimRight(string(b), "\n"), "\n")
}

func TestOpenNDJSONCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "videos.json")

	store, err := OpenNDJSON(path, Options{})
	if err != nil {
		t.Fatalf("OpenNDJSON() error = %v", err)
	}
	defer store.Close()

	if _, err := os.Stat(path); err != nil {
		t.Errorf("output file not created: %v", err)
	}
	if store.Len() != 0 || store.Key() != "" {
		t.Errorf("Len() = %d, Key() = %q, want empty", store.Len(), store.Key())
	}
}

func TestNDJSONStoreAppendAndResume(t *testing.T) {
	path := filepath.Join(t.TempDir(), "videos.json")

	store, err := OpenNDJSON(path, Options{})
	if err != nil {
		t.Fatalf("OpenNDJSON() error = %v", err)
	}
	for _, id := range []string{"A", "B"} {
		if err := store.Append(id, map[string]any{"id": id, "title": "<b>" + id}); err != nil {
			t.Fatalf("Append(%q) error = %v", id, err)
		}
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	lines := readLines(t, path)
	if len(lines) != 2 {
		t.Fatalf("file has %d lines, want 2", len(lines))
	}
	if !strings.Contains(lines[0], `"<b>A"`) {
		t.Errorf("line 0 = %s, want unescaped html", lines[0])
	}

	reopened, err := OpenNDJSON(path, Options{})
	if err != nil {
		t.Fatalf("OpenNDJSON() reopen error = %v", err)
	}
	defer reopened.Close()

	if reopened.Key() != KeyID {
		t.Errorf("Key() = %q, want %q", reopened.Key(), KeyID)
	}
	for id, want := range map[string]bool{"A": true, "B": true, "C": false} {
		if got := reopened.Done(id); got != want {
			t.Errorf("Done(%q) = %v, want %v", id, got, want)
		}
	}
}

func TestNDJSONStoreDetectsChannelKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "channels.json")
	writeFile(t, path, `{"note":"header"}
{"channelId":"UC1","videoIds":["a","b"]}
{"channelId":"UC2","videoIds":[]}
`)

	store, err := OpenNDJSON(path, Options{})
	if err != nil {
		t.Fatalf("OpenNDJSON() error = %v", err)
	}
	defer store.Close()

	if store.Key() != KeyChannelID {
		t.Errorf("Key() = %q, want %q", store.Key(), KeyChannelID)
	}
	if !store.Done("UC1") || !store.Done("UC2") || store.Len() != 2 {
		t.Errorf("Done(UC1)=%v Done(UC2)=%v Len()=%d", store.Done("UC1"), store.Done("UC2"), store.Len())
	}
}

func TestNDJSONStoreSkipsTruncatedLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "videos.json")
	writeFile(t, path, "{\"id\":\"A\"}\nnot json\n{\"id\":\"B\",\"insi")

	store, err := OpenNDJSON(path, Options{})
	if err != nil {
		t.Fatalf("OpenNDJSON() error = %v", err)
	}
	if store.Corrupt() != 2 {
		t.Errorf("Corrupt() = %d, want 2", store.Corrupt())
	}
	if !store.Done("A") || store.Done("B") {
		t.Errorf("Done(A)=%v Done(B)=%v, want true false", store.Done("A"), store.Done("B"))
	}
	if err := store.Append("B", map[string]string{"id": "B"}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	store.Close()

	lines := readLines(t, path)
	if got := lines[len(lines)-1]; got != `{"id":"B"}` {
		t.Errorf("last line = %q, want new record on its own line", got)
	}
}

func TestNDJSONStoreAppendErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "videos.json")
	store, err := OpenNDJSON(path, Options{})
	if err != nil {
		t.Fatalf("OpenNDJSON() error = %v", err)
	}

	if err := store.Append("", map[string]string{}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Append(\"\") error = %v, want ErrInvalidInput", err)
	}
	if err := store.Append("x", func() {}); err == nil {
		t.Error("Append(unencodable) error = nil")
	}
	if store.Done("x") {
		t.Error("Done(x) = true after failed append")
	}

	store.Close()
	if err := store.Append("y", map[string]string{"id": "y"}); !errors.Is(err, ErrClosed) {
		t.Errorf("Append() after Close error = %v, want ErrClosed", err)
	}
	if err := store.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestNDJSONStoreLockTimeout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "videos.json")
	first, err := OpenNDJSON(path, Options{})
	if err != nil {
		t.Fatalf("OpenNDJSON() error = %v", err)
	}
	defer first.Close()

	_, err = OpenNDJSON(path, Options{LockTimeout: 50 * time.Millisecond})
	if !errors.Is(err, ErrLockTimeout) {
		t.Errorf("second OpenNDJSON() error = %v, want ErrLockTimeout", err)
	}
}

func TestOpenNDJSONEmptyPath(t *testing.T) {
	if _, err := OpenNDJSON("", Options{}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("OpenNDJSON(\"\") error = %v, want ErrInvalidInput", err)
	}
}

func TestReadIDs(t *testing.T) {
	ids, err := ReadIDs(strings.NewReader("abc\n\n  def  \r\nghi"))
	if err != nil {
		t.Fatalf("ReadIDs() error = %v", err)
	}
	want := []string{"abc", "def", "ghi"}
	if strings.Join(ids, ",") != strings.Join(want, ",") {
		t.Errorf("ReadIDs() = %v, want %v", ids, want)
	}

	if _, err := ReadIDFile(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Error("ReadIDFile(missing) error = nil")
	}
}
