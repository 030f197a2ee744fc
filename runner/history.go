package runner

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/mirage-db/mirage/schema"
)

const headFileName = "HEAD"

// History is the on-disk migration history: one JSON snapshot file per
// generated migration, ordered by timestamped filename, plus a HEAD marker
// naming the last applied entry. Entries after HEAD are pending.
type History struct {
	dir string
}

func NewHistory(dir string) *History {
	return &History{dir: dir}
}

func (h *History) Dir() string {
	return h.dir
}

// Init creates the migrations directory.
func (h *History) Init() error {
	if err := os.MkdirAll(h.dir, 0755); err != nil {
		return fmt.Errorf("create migrations dir: %v", err)
	}
	return nil
}

// Entries lists snapshot files in creation order.
func (h *History) Entries() ([]string, error) {
	files, err := os.ReadDir(h.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read migrations dir: %v", err)
	}

	var entries []string
	for _, f := range files {
		if !f.IsDir() && strings.HasSuffix(f.Name(), ".json") {
			entries = append(entries, f.Name())
		}
	}
	sort.Strings(entries)
	return entries, nil
}

// Save persists a snapshot as a new timestamped history entry and returns
// the entry filename.
func (h *History) Save(name string, s *schema.SchemaSnapshot) (string, error) {
	if err := h.Init(); err != nil {
		return "", err
	}

	entry := fmt.Sprintf("%s_%s.json", time.Now().Format("20060102150405"), sanitizeName(name))
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", fmt.Errorf("serialize snapshot: %v", err)
	}
	if err := os.WriteFile(filepath.Join(h.dir, entry), data, 0644); err != nil {
		return "", fmt.Errorf("write snapshot %s: %v", entry, err)
	}
	return entry, nil
}

// Load reads one history entry back into a snapshot.
func (h *History) Load(entry string) (*schema.SchemaSnapshot, error) {
	data, err := os.ReadFile(filepath.Join(h.dir, entry))
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %v", entry, err)
	}

	var s schema.SchemaSnapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse snapshot %s: %v", entry, err)
	}
	s.Normalize()
	return &s, nil
}

// Head returns the entry name of the last applied migration, or "" when
// nothing has been applied.
func (h *History) Head() (string, error) {
	data, err := os.ReadFile(filepath.Join(h.dir, headFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("read history head: %v", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// SetHead moves the history head. An empty entry clears it, meaning no
// migration is applied.
func (h *History) SetHead(entry string) error {
	path := filepath.Join(h.dir, headFileName)
	if entry == "" {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("clear history head: %v", err)
		}
		return nil
	}
	if err := os.WriteFile(path, []byte(entry+"\n"), 0644); err != nil {
		return fmt.Errorf("write history head: %v", err)
	}
	return nil
}

// HeadSnapshot loads the snapshot the head points at, nil when unset.
func (h *History) HeadSnapshot() (*schema.SchemaSnapshot, error) {
	head, err := h.Head()
	if err != nil {
		return nil, err
	}
	if head == "" {
		return nil, nil
	}
	return h.Load(head)
}

// Latest returns the newest history entry regardless of applied state, ""
// when the history is empty.
func (h *History) Latest() (string, error) {
	entries, err := h.Entries()
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return "", nil
	}
	return entries[len(entries)-1], nil
}

// Pending lists entries after the head, in apply order.
func (h *History) Pending() ([]string, error) {
	entries, err := h.Entries()
	if err != nil {
		return nil, err
	}
	head, err := h.Head()
	if err != nil {
		return nil, err
	}
	if head == "" {
		return entries, nil
	}
	for i, entry := range entries {
		if entry == head {
			return entries[i+1:], nil
		}
	}
	return nil, fmt.Errorf("history head %q does not exist in %s", head, h.dir)
}

// PreviousOf returns the entry directly before the given one, "" when it
// is the first.
func (h *History) PreviousOf(entry string) (string, error) {
	entries, err := h.Entries()
	if err != nil {
		return "", err
	}
	for i, e := range entries {
		if e == entry {
			if i == 0 {
				return "", nil
			}
			return entries[i-1], nil
		}
	}
	return "", fmt.Errorf("unknown migration %q", entry)
}

// Find resolves a migration reference to an entry filename. It accepts the
// exact filename, the bare migration name, or the timestamp prefix.
func (h *History) Find(ref string) (string, error) {
	entries, err := h.Entries()
	if err != nil {
		return "", err
	}
	for _, entry := range entries {
		if entry == ref ||
			strings.HasSuffix(entry, "_"+ref+".json") ||
			strings.HasPrefix(entry, ref+"_") {
			return entry, nil
		}
	}
	return "", fmt.Errorf("no migration matches %q", ref)
}

func sanitizeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.ReplaceAll(name, " ", "_")
	var b strings.Builder
	for _, r := range name {
		if r == '_' || r == '-' || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "migration"
	}
	return b.String()
}
