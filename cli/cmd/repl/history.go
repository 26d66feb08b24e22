package repl

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// maxHistory bounds the number of entries kept on disk.
const maxHistory = 1000

// History is an append-only command history persisted to a file, one
// entry per line.
type History struct {
	path    string
	entries []string
}

// NewHistory creates a History backed by the file at path. The file is
// not read until [History.Load].
func NewHistory(path string) *History {
	return &History{path: path}
}

// Load reads the history file, ignoring blank lines. A missing file is
// not an error.
func (h *History) Load() error {
	file, err := os.Open(h.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}

		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n")
		if line != "" {
			h.entries = append(h.entries, line)
		}
	}

	return scanner.Err()
}

// Add appends entry unless it is blank or repeats the previous entry.
func (h *History) Add(entry string) {
	entry = strings.TrimSpace(entry)
	if entry == "" {
		return
	}

	if n := len(h.entries); n > 0 && h.entries[n-1] == entry {
		return
	}

	h.entries = append(h.entries, entry)
	if len(h.entries) > maxHistory {
		h.entries = h.entries[len(h.entries)-maxHistory:]
	}
}

// Len returns the number of entries.
func (h *History) Len() int { return len(h.entries) }

// Get returns the entry at index i, or "" when out of range.
func (h *History) Get(i int) string {
	if i < 0 || i >= len(h.entries) {
		return ""
	}

	return h.entries[i]
}

// Save writes all entries back to the history file, creating parent
// directories as needed.
func (h *History) Save() error {
	if err := os.MkdirAll(filepath.Dir(h.path), 0o700); err != nil {
		return err
	}

	return os.WriteFile(
		h.path,
		[]byte(strings.Join(h.entries, "\n")+"\n"),
		0o600,
	)
}
