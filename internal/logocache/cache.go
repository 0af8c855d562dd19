// Package logocache holds the process-wide brand logo mapping shared by all
// station pollers.
package logocache

import (
	"strings"
	"sync"

	"github.com/osservaprezzi/fuelwatch/internal/models"
)

// staticFallbacks maps lower-cased brand names to bundled asset paths, used
// when the dynamic logo map has no entry for a brand.
var staticFallbacks = map[string]string{
	"eni":         "assets/brands/eni.png",
	"eni station": "assets/brands/eni_station.png",
	"ip":          "assets/brands/ip.png",
	"q8":          "assets/brands/q8.png",
	"esso":        "assets/brands/esso.png",
	"tamoil":      "assets/brands/tamoil.png",
	"api":         "assets/brands/api.png",
	"erg":         "assets/brands/erg.png",
	"repsol":      "assets/brands/repsol.png",
	"enercoop":    "assets/brands/enercoop.png",
	"others":      "assets/brands/default.png",
}

// Cache maps brand identifiers and brand names to image references. It is
// safe for concurrent readers and writers; a duplicate populate is
// idempotent, last write wins.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]string
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{
		entries: make(map[string]string),
	}
}

// Empty reports whether the cache holds no dynamic entries. Pollers use it
// to decide whether a populate attempt is due.
func (c *Cache) Empty() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries) == 0
}

// Len returns the number of dynamic entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Populate indexes the given logos under their brand id, original-case name
// and lower-cased name.
func (c *Cache) Populate(logos []models.BrandLogo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, logo := range logos {
		if logo.Image == "" {
			continue
		}
		if logo.ID != "" {
			c.entries[logo.ID] = logo.Image
		}
		if logo.Name != "" {
			c.entries[logo.Name] = logo.Image
			c.entries[strings.ToLower(logo.Name)] = logo.Image
		}
	}
}

// Lookup resolves an image reference for a station's brand. Precedence:
// numeric brand id, exact brand name, lower-cased brand name, then the
// static fallback table (retried with the brand's first word).
func (c *Cache) Lookup(brandID, brandName string) (string, bool) {
	c.mu.RLock()
	if brandID != "" {
		if img, ok := c.entries[brandID]; ok {
			c.mu.RUnlock()
			return img, true
		}
	}
	if brandName != "" {
		if img, ok := c.entries[brandName]; ok {
			c.mu.RUnlock()
			return img, true
		}
		if img, ok := c.entries[strings.ToLower(brandName)]; ok {
			c.mu.RUnlock()
			return img, true
		}
	}
	c.mu.RUnlock()

	if brandName == "" {
		return "", false
	}
	key := strings.ToLower(brandName)
	if img, ok := staticFallbacks[key]; ok {
		return img, true
	}
	if first := strings.Fields(key); len(first) > 1 {
		if img, ok := staticFallbacks[first[0]]; ok {
			return img, true
		}
	}
	return staticFallbacks["others"], true
}
