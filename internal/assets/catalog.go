// Package assets loads the static domain catalog: world templates the
// service clones sessions from, their adventure hooks, and monster stat
// blocks. Assets are YAML, parsed once at startup, and read-only afterwards.
package assets

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// World is a playable template: the initial session state plus its starting
// character sheet and adventure hooks.
type World struct {
	Name        string         `yaml:"name" json:"name"`
	Description string         `yaml:"description" json:"description"`
	State       map[string]any `yaml:"state" json:"state"`
	Character   map[string]any `yaml:"character" json:"character"`
	Hooks       []Hook         `yaml:"hooks" json:"hooks"`
}

// Hook is one adventure seed shown to the narrator and the player.
type Hook struct {
	Title string `yaml:"title" json:"title"`
	Text  string `yaml:"text" json:"text"`
}

// Monster is a stat block the narrator can draw on.
type Monster struct {
	Slug   string         `yaml:"slug" json:"slug"`
	Name   string         `yaml:"name" json:"name"`
	CR     string         `yaml:"cr" json:"cr"`
	HP     int            `yaml:"hp" json:"hp"`
	AC     int            `yaml:"ac" json:"ac"`
	Notes  string         `yaml:"notes" json:"notes,omitempty"`
	Extras map[string]any `yaml:"extras" json:"extras,omitempty"`
}

// Catalog is the loaded asset set.
type Catalog struct {
	worlds   map[string]*World
	monsters map[string]*Monster
}

type worldsFile struct {
	Worlds []World `yaml:"worlds"`
}

type monstersFile struct {
	Monsters []Monster `yaml:"monsters"`
}

// Load reads worlds.yaml and monsters.yaml from dir. A missing directory
// yields an empty catalog; a malformed file is a startup error.
func Load(dir string) (*Catalog, error) {
	c := &Catalog{
		worlds:   make(map[string]*World),
		monsters: make(map[string]*Monster),
	}
	if dir == "" {
		return c, nil
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return c, nil
	}

	worldsPath := filepath.Join(dir, "worlds.yaml")
	if data, err := os.ReadFile(worldsPath); err == nil {
		var wf worldsFile
		if err := yaml.Unmarshal(data, &wf); err != nil {
			return nil, fmt.Errorf("parse %s: %w", worldsPath, err)
		}
		for i := range wf.Worlds {
			w := wf.Worlds[i]
			c.worlds[w.Name] = &w
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read %s: %w", worldsPath, err)
	}

	monstersPath := filepath.Join(dir, "monsters.yaml")
	if data, err := os.ReadFile(monstersPath); err == nil {
		var mf monstersFile
		if err := yaml.Unmarshal(data, &mf); err != nil {
			return nil, fmt.Errorf("parse %s: %w", monstersPath, err)
		}
		for i := range mf.Monsters {
			m := mf.Monsters[i]
			c.monsters[m.Slug] = &m
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read %s: %w", monstersPath, err)
	}

	return c, nil
}

// World returns the named template, or nil.
func (c *Catalog) World(name string) *World {
	return c.worlds[name]
}

// Worlds lists templates sorted by name.
func (c *Catalog) Worlds() []World {
	out := make([]World, 0, len(c.worlds))
	for _, w := range c.worlds {
		out = append(out, *w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Monster returns a stat block by slug, or nil.
func (c *Catalog) Monster(slug string) *Monster {
	return c.monsters[slug]
}
