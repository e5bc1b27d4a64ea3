package templates

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func writeTemplate(t *testing.T, dir, name string, c color.RGBA) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 6, 4))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}

	path := filepath.Join(dir, name)
	file, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create %s: %v", path, err)
	}
	defer file.Close()
	if err := png.Encode(file, img); err != nil {
		t.Fatalf("Failed to encode %s: %v", path, err)
	}
	return path
}

func TestStoreLoadSameKey(t *testing.T) {
	dir := t.TempDir()
	path := writeTemplate(t, dir, "button.png", color.RGBA{R: 200, A: 255})
	store := NewStore(10)

	first, err := store.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	second, err := store.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if first.Key != second.Key || first != second {
		t.Error("Expected the second load to return the cached template")
	}
	if first.Width() != 6 || first.Height() != 4 {
		t.Errorf("Expected 6x4 template, got %dx%d", first.Width(), first.Height())
	}
	if got := first.Image.RGBAAt(0, 0); got != (color.RGBA{R: 200, A: 255}) {
		t.Errorf("Unexpected pixel %v", got)
	}

	stats := store.Stats()
	if stats.Loads != 1 || stats.Hits != 1 || stats.Misses != 1 {
		t.Errorf("Expected one decode and one hit, got %+v", stats)
	}
}

func TestStoreModifiedFileGetsNewKey(t *testing.T) {
	dir := t.TempDir()
	path := writeTemplate(t, dir, "button.png", color.RGBA{G: 200, A: 255})
	store := NewStore(10)

	first, err := store.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	later := first.ModTime.Add(2 * time.Second)
	if err := os.Chtimes(path, later, later); err != nil {
		t.Fatalf("Chtimes failed: %v", err)
	}

	second, err := store.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if first.Key == second.Key {
		t.Error("Expected a new key after the modification time changed")
	}
	if store.Stats().Loads != 2 {
		t.Errorf("Expected the file to be decoded again, got %+v", store.Stats())
	}
}

func TestCacheKey(t *testing.T) {
	mod := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	if CacheKey("a.png", mod) != CacheKey("a.png", mod) {
		t.Error("Expected stable keys")
	}
	if CacheKey("a.png", mod) == CacheKey("b.png", mod) {
		t.Error("Expected different paths to give different keys")
	}
	if CacheKey("a.png", mod) == CacheKey("a.png", mod.Add(time.Nanosecond)) {
		t.Error("Expected different times to give different keys")
	}
}

func TestStoreEvictsOldest(t *testing.T) {
	dir := t.TempDir()
	const capacity = 3
	store := NewStore(capacity)

	var keys []string
	for i := 0; i < capacity+1; i++ {
		path := writeTemplate(t, dir, fmt.Sprintf("t%d.png", i), color.RGBA{B: uint8(i * 40), A: 255})
		tmpl, err := store.Load(path)
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		keys = append(keys, tmpl.Key)
	}

	if n := store.Len(); n != capacity {
		t.Errorf("Expected %d entries, got %d", capacity, n)
	}
	if store.Has(keys[0]) {
		t.Error("Expected the first inserted template to be evicted")
	}
	for _, key := range keys[1:] {
		if !store.Has(key) {
			t.Errorf("Expected key %s to remain", key)
		}
	}
	if got := store.Keys(); len(got) != capacity || got[0] != keys[1] {
		t.Errorf("Expected insertion order to start with the second key, got %v", got)
	}
	if store.Stats().Evictions != 1 {
		t.Errorf("Expected 1 eviction, got %+v", store.Stats())
	}
}

func TestStoreSetCapacity(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(5)
	for i := 0; i < 5; i++ {
		if _, err := store.Load(writeTemplate(t, dir, fmt.Sprintf("t%d.png", i), color.RGBA{R: uint8(i), A: 255})); err != nil {
			t.Fatalf("Load failed: %v", err)
		}
	}

	store.SetCapacity(2)
	if store.Len() != 2 {
		t.Errorf("Expected 2 entries after shrinking, got %d", store.Len())
	}
	if store.Stats().Capacity != 2 {
		t.Errorf("Expected capacity 2, got %d", store.Stats().Capacity)
	}
}

func TestStoreErrors(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(5)

	_, err := store.Load(filepath.Join(dir, "missing.png"))
	if !errors.Is(err, ErrTemplateMissing) {
		t.Errorf("Expected ErrTemplateMissing, got %v", err)
	}

	bad := filepath.Join(dir, "bad.png")
	if err := os.WriteFile(bad, []byte("definitely not an image"), 0644); err != nil {
		t.Fatal(err)
	}
	_, err = store.Load(bad)
	if !errors.Is(err, ErrTemplateUnreadable) {
		t.Errorf("Expected ErrTemplateUnreadable, got %v", err)
	}

	_, err = store.Load(dir)
	if !errors.Is(err, ErrTemplateUnreadable) {
		t.Errorf("Expected ErrTemplateUnreadable for a directory, got %v", err)
	}

	if store.Len() != 0 {
		t.Errorf("Expected failed loads to cache nothing, got %d", store.Len())
	}
	if store.Stats().Failures != 3 {
		t.Errorf("Expected 3 failures, got %+v", store.Stats())
	}
}

func TestStoreConcurrentLoads(t *testing.T) {
	dir := t.TempDir()
	const capacity = 4
	store := NewStore(capacity)

	var paths []string
	for i := 0; i < 10; i++ {
		paths = append(paths, writeTemplate(t, dir, fmt.Sprintf("t%d.png", i), color.RGBA{G: uint8(i * 20), A: 255}))
	}

	var wg sync.WaitGroup
	for worker := 0; worker < 8; worker++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for i := range paths {
				path := paths[(i+worker)%len(paths)]
				if _, err := store.Load(path); err != nil {
					t.Errorf("Load failed: %v", err)
				}
			}
		}(worker)
	}
	wg.Wait()

	if n := store.Len(); n > capacity {
		t.Errorf("Expected at most %d entries, got %d", capacity, n)
	}
	if keys := store.Keys(); len(keys) != store.Len() {
		t.Errorf("Expected order and entries to agree, got %d keys for %d entries", len(keys), store.Len())
	}
}

func TestStoreClear(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(5)
	path := writeTemplate(t, dir, "a.png", color.RGBA{A: 255})
	tmpl, err := store.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if tmpl.Seq() == 0 {
		t.Error("Expected an insertion sequence number")
	}

	store.Clear()
	if store.Len() != 0 || store.Has(tmpl.Key) {
		t.Error("Expected an empty store after Clear")
	}
}
