// Package content keeps the rotating message/image pairs shown in reminders.
package content

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/nateberkopec/cardnudge/internal/persistence"
)

var (
	ErrEmptyPair    = errors.New("a pair needs a message or an image")
	ErrPairNotFound = errors.New("pair not found")
)

// Pair is one message plus an optional image. ID is assigned at creation and
// never reused, so edits survive removals of other pairs.
type Pair struct {
	ID             string `json:"id"`
	Message        string `json:"message"`
	ImageReference string `json:"imageReference"`
}

// HasImage reports whether the referenced image exists on disk.
func (p Pair) HasImage() bool {
	if p.ImageReference == "" {
		return false
	}
	info, err := os.Stat(p.ImageReference)
	return err == nil && !info.IsDir()
}

type pairData struct {
	ID             string `json:"id"`
	Message        string `json:"message"`
	ImageReference string `json:"imageReference"`
	ImagePath      string `json:"image_path"`
}

// Library is the in-memory list backed by the JSON store.
type Library struct {
	layout persistence.Layout
	logger *slog.Logger

	mu    sync.RWMutex
	pairs []Pair
}

func NewLibrary(layout persistence.Layout, logger *slog.Logger) *Library {
	if logger == nil {
		logger = slog.Default()
	}
	return &Library{layout: layout, logger: logger}
}

// Load replaces the in-memory list. The JSON store wins; when it is missing,
// unreadable, or empty the legacy one-message-per-line file is used instead.
// Fallback content is not written back.
func (l *Library) Load() {
	pairs, err := readPairs(l.layout.PairsPath())
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		l.logger.Error("error loading message-image pairs", "error", err)
	}

	if len(pairs) == 0 {
		pairs, err = readLegacy(l.layout.LegacyPath())
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			l.logger.Error("error loading legacy messages", "error", err)
		}
	}

	l.mu.Lock()
	l.pairs = pairs
	l.mu.Unlock()
}

// All returns a copy of the pairs in insertion order.
func (l *Library) All() []Pair {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.pairs)
}

func (l *Library) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.pairs)
}

// Get looks a pair up by ID.
func (l *Library) Get(id string) (Pair, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	idx := l.indexOf(id)
	if idx < 0 {
		return Pair{}, false
	}
	return l.pairs[idx], true
}

// Add appends a pair and saves the whole list.
func (l *Library) Add(message, image string) (Pair, error) {
	message = strings.TrimSpace(message)
	image = strings.TrimSpace(image)
	if message == "" && image == "" {
		return Pair{}, ErrEmptyPair
	}

	pair := Pair{ID: uuid.New().String(), Message: message, ImageReference: image}

	l.mu.Lock()
	l.pairs = append(l.pairs, pair)
	err := l.saveLocked()
	l.mu.Unlock()

	return pair, err
}

func (l *Library) UpdateMessage(id, message string) error {
	return l.update(id, func(p *Pair) { p.Message = strings.TrimSpace(message) })
}

func (l *Library) UpdateImage(id, image string) error {
	return l.update(id, func(p *Pair) { p.ImageReference = strings.TrimSpace(image) })
}

func (l *Library) update(id string, apply func(*Pair)) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	idx := l.indexOf(id)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrPairNotFound, id)
	}
	apply(&l.pairs[idx])
	return l.saveLocked()
}

// Remove deletes the given IDs and returns how many were present.
func (l *Library) Remove(ids ...string) (int, error) {
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	before := len(l.pairs)
	l.pairs = slices.DeleteFunc(l.pairs, func(p Pair) bool { return drop[p.ID] })
	removed := before - len(l.pairs)
	if removed == 0 {
		return 0, nil
	}
	return removed, l.saveLocked()
}

// Pick chooses a pair uniformly at random. Repeats across calls are allowed.
func (l *Library) Pick(rng *rand.Rand) (Pair, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if len(l.pairs) == 0 {
		return Pair{}, false
	}
	if rng == nil {
		return l.pairs[rand.IntN(len(l.pairs))], true
	}
	return l.pairs[rng.IntN(len(l.pairs))], true
}

// ImportImage copies src into the images directory under a unique name and
// returns the stored path.
func (l *Library) ImportImage(src string) (string, error) {
	in, err := os.Open(src)
	if err != nil {
		return "", fmt.Errorf("failed to open image: %w", err)
	}
	defer in.Close()

	if err := os.MkdirAll(l.layout.ImagesDir(), 0755); err != nil {
		return "", fmt.Errorf("failed to create images directory: %w", err)
	}

	dst := filepath.Join(l.layout.ImagesDir(), uuid.New().String()+strings.ToLower(filepath.Ext(src)))
	out, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("failed to create image copy: %w", err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return "", fmt.Errorf("failed to copy image: %w", err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("failed to close image copy: %w", err)
	}
	return dst, nil
}

func (l *Library) indexOf(id string) int {
	return slices.IndexFunc(l.pairs, func(p Pair) bool { return p.ID == id })
}

func (l *Library) saveLocked() error {
	if err := persistence.WriteJSON(l.layout.PairsPath(), l.pairs); err != nil {
		l.logger.Error("error saving message-image pairs", "error", err)
		return err
	}
	return nil
}

func readPairs(path string) ([]Pair, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var raw []pairData
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal pairs: %w", err)
	}

	pairs := make([]Pair, 0, len(raw))
	for _, r := range raw {
		image := r.ImageReference
		if image == "" {
			image = r.ImagePath
		}
		id := r.ID
		if id == "" {
			id = uuid.New().String()
		}
		pairs = append(pairs, Pair{ID: id, Message: r.Message, ImageReference: image})
	}
	return pairs, nil
}

func readLegacy(path string) ([]Pair, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var pairs []Pair
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		pairs = append(pairs, Pair{ID: uuid.New().String(), Message: line})
	}
	if err := scanner.Err(); err != nil {
		return pairs, fmt.Errorf("failed to read legacy messages: %w", err)
	}
	return pairs, nil
}
