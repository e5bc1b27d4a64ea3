package templates

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg" // JPEG decoder
	_ "image/png"  // PNG decoder
	"os"
	"strconv"
	"sync"
	"time"
)

// DefaultCapacity is the number of templates kept before eviction starts
const DefaultCapacity = 50

var (
	// ErrTemplateMissing means the template file does not exist
	ErrTemplateMissing = errors.New("template missing")
	// ErrTemplateUnreadable means the template file could not be read or decoded
	ErrTemplateUnreadable = errors.New("template unreadable")
)

// Template is a decoded reference image. It is immutable once loaded; callers
// that need a different size must work on a copy.
type Template struct {
	Key     string
	Path    string
	ModTime time.Time
	Image   *image.RGBA

	seq uint64 // insertion order
}

// Width returns the template width
func (t *Template) Width() int { return t.Image.Rect.Dx() }

// Height returns the template height
func (t *Template) Height() int { return t.Image.Rect.Dy() }

// Seq returns the template's insertion order in the store
func (t *Template) Seq() uint64 { return t.seq }

// CacheStats tracks cache performance
type CacheStats struct {
	Hits      int64 `json:"hits"`      // Cache hits
	Misses    int64 `json:"misses"`    // Cache misses (had to load)
	Loads     int64 `json:"loads"`     // Successful decodes
	Failures  int64 `json:"failures"`  // Missing or unreadable templates
	Evictions int64 `json:"evictions"` // Entries dropped to respect capacity
	Size      int   `json:"size"`
	Capacity  int   `json:"capacity"`
}

// Store loads templates from disk and keeps up to capacity of them, evicting
// the earliest inserted entry first. Entries are keyed by path and
// modification time, so editing a file on disk yields a new key.
type Store struct {
	mu       sync.Mutex
	entries  map[string]*Template
	order    []string // keys in insertion order
	capacity int
	nextSeq  uint64
	stats    CacheStats
}

// NewStore creates a template store with the given capacity
func NewStore(capacity int) *Store {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &Store{
		entries:  make(map[string]*Template),
		capacity: capacity,
	}
}

// CacheKey derives the cache key for a path and modification time
func CacheKey(path string, modTime time.Time) string {
	sum := md5.Sum([]byte(path + "|" + strconv.FormatInt(modTime.UnixNano(), 10)))
	return hex.EncodeToString(sum[:])
}

// Load returns the template for path, decoding it on a cache miss.
// File I/O happens outside the lock.
func (s *Store) Load(path string) (*Template, error) {
	info, err := os.Stat(path)
	if err != nil {
		s.recordFailure()
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrTemplateMissing, path)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrTemplateUnreadable, path, err)
	}
	if info.IsDir() {
		s.recordFailure()
		return nil, fmt.Errorf("%w: %s is a directory", ErrTemplateUnreadable, path)
	}

	key := CacheKey(path, info.ModTime())

	s.mu.Lock()
	if cached, ok := s.entries[key]; ok {
		s.stats.Hits++
		s.mu.Unlock()
		return cached, nil
	}
	s.stats.Misses++
	s.mu.Unlock()

	img, err := decodeFile(path)
	if err != nil {
		s.recordFailure()
		return nil, err
	}

	return s.insert(&Template{
		Key:     key,
		Path:    path,
		ModTime: info.ModTime(),
		Image:   img,
	}), nil
}

// insert adds t, evicting the oldest entries beyond capacity. If another
// goroutine inserted the same key meanwhile, that entry wins.
func (s *Store) insert(t *Template) *Template {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.entries[t.Key]; ok {
		return existing
	}

	for len(s.order) >= s.capacity {
		s.evictOldestLocked()
	}

	s.nextSeq++
	t.seq = s.nextSeq
	s.entries[t.Key] = t
	s.order = append(s.order, t.Key)
	s.stats.Loads++
	return t
}

func (s *Store) evictOldestLocked() {
	oldest := s.order[0]
	s.order = s.order[1:]
	delete(s.entries, oldest)
	s.stats.Evictions++
}

func (s *Store) recordFailure() {
	s.mu.Lock()
	s.stats.Failures++
	s.mu.Unlock()
}

// decodeFile opens and decodes an image file into a zero-origin RGBA buffer
func decodeFile(path string) (*image.RGBA, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open %s: %v", ErrTemplateUnreadable, path, err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode %s: %v", ErrTemplateUnreadable, path, err)
	}

	bounds := img.Bounds()
	if bounds.Empty() {
		return nil, fmt.Errorf("%w: %s has no pixels", ErrTemplateUnreadable, path)
	}

	// Convert to RGBA
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Rect, img, bounds.Min, draw.Src)
	return rgba, nil
}

// SetCapacity changes the capacity, evicting the oldest entries if it shrinks
func (s *Store) SetCapacity(capacity int) {
	if capacity < 1 {
		capacity = 1
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.capacity = capacity
	for len(s.order) > s.capacity {
		s.evictOldestLocked()
	}
}

// Has reports whether a key is cached
func (s *Store) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[key]
	return ok
}

// Len returns the number of cached templates
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Keys returns cached keys from oldest to newest
func (s *Store) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, len(s.order))
	copy(keys, s.order)
	return keys
}

// Clear drops every cached template. Counters are kept.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]*Template)
	s.order = nil
}

// Stats returns cache statistics
func (s *Store) Stats() CacheStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats := s.stats
	stats.Size = len(s.entries)
	stats.Capacity = s.capacity
	return stats
}
