package templates

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// SceneEntry maps a scene name to the template that identifies it
type SceneEntry struct {
	Name string `yaml:"name"`
	Path string `yaml:"path"`
}

// CatalogFile represents the structure of a scene catalog YAML file
type CatalogFile struct {
	Scenes []SceneEntry `yaml:"scenes"`
}

// Catalog is an ordered list of named scenes. Order matters: scene
// recognition breaks ties in favour of earlier entries.
type Catalog struct {
	mu       sync.RWMutex
	entries  []SceneEntry
	basePath string // Base path for template image files
}

// NewCatalog creates an empty catalog; relative paths resolve against basePath
func NewCatalog(basePath string) *Catalog {
	return &Catalog{basePath: basePath}
}

// DefaultCatalog returns the built-in scene list rooted at basePath
func DefaultCatalog(basePath string) *Catalog {
	c := NewCatalog(basePath)
	for _, name := range []string{
		"main_menu",
		"world_map",
		"battle",
		"dialogue",
		"inventory",
		"loading",
	} {
		// Names are unique, Register cannot fail here.
		_ = c.Register(SceneEntry{Name: name, Path: filepath.Join("scenes", name+".png")})
	}
	return c
}

// LoadFromFile appends the scenes defined in a YAML file
func (c *Catalog) LoadFromFile(filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read scene catalog %s: %w", filePath, err)
	}

	var file CatalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to unmarshal scene catalog YAML: %w", err)
	}

	for i, entry := range file.Scenes {
		if err := c.Register(entry); err != nil {
			return fmt.Errorf("scene %d: %w", i+1, err)
		}
	}
	return nil
}

// Register appends a scene; names must be unique
func (c *Catalog) Register(entry SceneEntry) error {
	if entry.Name == "" {
		return fmt.Errorf("scene name cannot be empty")
	}
	if entry.Path == "" {
		return fmt.Errorf("scene %s: path cannot be empty", entry.Name)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, existing := range c.entries {
		if existing.Name == entry.Name {
			return fmt.Errorf("scene %s already registered", entry.Name)
		}
	}
	if !filepath.IsAbs(entry.Path) && c.basePath != "" {
		entry.Path = filepath.Join(c.basePath, entry.Path)
	}
	c.entries = append(c.entries, entry)
	return nil
}

// Entries returns the scenes in catalog order
func (c *Catalog) Entries() []SceneEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entries := make([]SceneEntry, len(c.entries))
	copy(entries, c.entries)
	return entries
}

// Get retrieves a scene by name
func (c *Catalog) Get(name string) (SceneEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, entry := range c.entries {
		if entry.Name == name {
			return entry, true
		}
	}
	return SceneEntry{}, false
}

// Count returns the number of scenes
func (c *Catalog) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
