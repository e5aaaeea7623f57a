package storage

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
)

// Identifier keys recognized in existing output records.
const (
	KeyChannelID = "channelId"
	KeyID        = "id"
)

const defaultLockTimeout = 5 * time.Second

// Options configures OpenNDJSON.
type Options struct {
	// LockTimeout bounds how long to wait for another crawl holding the file.
	LockTimeout time.Duration
	Logger      *logrus.Entry
}

// NDJSONStore appends one JSON document per line to a file. On open it scans
// the records already present so an interrupted crawl can skip them.
type NDJSONStore struct {
	path    string
	file    *os.File
	lock    *FileLock
	log     *logrus.Entry
	done    map[string]struct{}
	key     string
	corrupt int
}

// OpenNDJSON opens or creates path for appending and loads the ids it holds.
// The identifier key ("channelId" or "id") is taken from the first record
// that carries either; unreadable lines are counted and skipped.
func OpenNDJSON(path string, opts Options) (*NDJSONStore, error) {
	if path == "" {
		return nil, &StorageError{Op: "open", Entity: "file", Err: ErrInvalidInput}
	}
	if opts.LockTimeout <= 0 {
		opts.LockTimeout = defaultLockTimeout
	}
	if opts.Logger == nil {
		opts.Logger = logrus.NewEntry(logrus.StandardLogger())
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, &StorageError{Op: "open", Entity: "file", ID: path, Err: err}
	}

	lock := NewFileLock(path)
	if err := lock.Lock(opts.LockTimeout); err != nil {
		return nil, err
	}

	s := &NDJSONStore{
		path: path,
		lock: lock,
		log:  opts.Logger.WithField("path", path),
		done: make(map[string]struct{}),
	}

	needsNewline, err := s.scan()
	if err != nil {
		lock.Unlock()
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		lock.Unlock()
		return nil, &StorageError{Op: "open", Entity: "file", ID: path, Err: err}
	}
	if needsNewline {
		if _, err := f.Write([]byte{'\n'}); err != nil {
			f.Close()
			lock.Unlock()
			return nil, &StorageError{Op: "open", Entity: "file", ID: path, Err: err}
		}
	}
	s.file = f

	if len(s.done) > 0 || s.corrupt > 0 {
		s.log.WithFields(logrus.Fields{
			"done":    len(s.done),
			"corrupt": s.corrupt,
			"key":     s.key,
		}).Info("resuming from existing output")
	}
	return s, nil
}

// scan loads ids from the existing file. It reports whether the file ends
// without a trailing newline.
func (s *NDJSONStore) scan() (bool, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, &StorageError{Op: "scan", Entity: "file", ID: s.path, Err: err}
	}
	defer f.Close()

	r := bufio.NewReader(f)
	lineNo := 0
	for {
		line, err := r.ReadBytes('\n')
		if len(line) > 0 {
			lineNo++
			s.scanLine(lineNo, line)
		}
		if err == io.EOF {
			return len(line) > 0, nil
		}
		if err != nil {
			return false, &StorageError{Op: "scan", Entity: "file", ID: s.path, Err: err}
		}
	}
}

func (s *NDJSONStore) scanLine(lineNo int, line []byte) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return
	}

	var rec map[string]json.RawMessage
	if err := json.Unmarshal(line, &rec); err != nil {
		s.corrupt++
		s.log.WithField("line", lineNo).WithError(ErrStorageCorrupt).Warn("skipping unreadable record")
		return
	}

	if s.key == "" {
		switch {
		case rec[KeyChannelID] != nil:
			s.key = KeyChannelID
		case rec[KeyID] != nil:
			s.key = KeyID
		default:
			return
		}
	}

	var id string
	if err := json.Unmarshal(rec[s.key], &id); err != nil || id == "" {
		return
	}
	s.done[id] = struct{}{}
}

// Done reports whether a record for id is already in the file.
func (s *NDJSONStore) Done(id string) bool {
	_, ok := s.done[id]
	return ok
}

// Append writes record as one line and marks id done.
func (s *NDJSONStore) Append(id string, record any) error {
	if s.file == nil {
		return &StorageError{Op: "append", Entity: "record", ID: id, Err: ErrClosed}
	}
	if id == "" {
		return &StorageError{Op: "append", Entity: "record", Err: ErrInvalidInput}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(record); err != nil {
		return &StorageError{Op: "append", Entity: "record", ID: id, Err: err}
	}
	if _, err := s.file.Write(buf.Bytes()); err != nil {
		return &StorageError{Op: "append", Entity: "record", ID: id, Err: err}
	}
	s.done[id] = struct{}{}
	return nil
}

// Len returns the number of distinct ids written so far.
func (s *NDJSONStore) Len() int { return len(s.done) }

// Key returns the identifier key detected in the existing file, or "".
func (s *NDJSONStore) Key() string { return s.key }

// Corrupt returns the number of unreadable lines skipped on open.
func (s *NDJSONStore) Corrupt() int { return s.corrupt }

// Path returns the output file path.
func (s *NDJSONStore) Path() string { return s.path }

// Close syncs the file and releases the lock.
func (s *NDJSONStore) Close() error {
	if s.file == nil {
		return nil
	}
	err := s.file.Sync()
	if cerr := s.file.Close(); err == nil {
		err = cerr
	}
	s.file = nil
	s.lock.Unlock()
	if err != nil {
		return &StorageError{Op: "close", Entity: "file", ID: s.path, Err: err}
	}
	return nil
}
