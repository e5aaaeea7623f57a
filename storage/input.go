package storage

import (
	"bufio"
	"io"
	"os"
	"strings"
)

// ReadIDs returns the non-blank lines of r, trimmed, in order.
func ReadIDs(r io.Reader) ([]string, error) {
	var ids []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if id := strings.TrimSpace(sc.Text()); id != "" {
			ids = append(ids, id)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

// ReadIDFile reads ids from the file at path.
func ReadIDFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &StorageError{Op: "open", Entity: "file", ID: path, Err: err}
	}
	defer f.Close()

	ids, err := ReadIDs(f)
	if err != nil {
		return nil, &StorageError{Op: "read", Entity: "file", ID: path, Err: err}
	}
	return ids, nil
}
