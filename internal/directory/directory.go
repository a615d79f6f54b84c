// Package directory resolves the people the bot routes to: the managers a
// user may address and the administrators who receive every record.
package directory

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultManagers is the roster used when none is configured.
var DefaultManagers = []string{
	"Бенецкая Наталия",
	"Немов Павел",
	"Заславец Егор",
	"Прутникова Елена",
	"Буйнов Сергей",
	"Сивильдина Елена",
	"Асташкин Павел",
	"Сидоров Владислав",
	"Звиденцева Ольга",
}

// Directory is an immutable roster of managers and admin chat ids.
type Directory struct {
	managers []string
	admins   []int64
}

// File is the on-disk layout of a directory file.
type File struct {
	Managers []string `yaml:"managers"`
	Admins   []int64  `yaml:"admins"`
}

// New builds a directory. Blank and duplicate manager names are dropped;
// an empty roster falls back to DefaultManagers.
func New(managers []string, admins []int64) *Directory {
	d := &Directory{}
	for _, m := range managers {
		m = strings.TrimSpace(m)
		if m == "" || slices.Contains(d.managers, m) {
			continue
		}
		d.managers = append(d.managers, m)
	}
	if len(d.managers) == 0 {
		d.managers = slices.Clone(DefaultManagers)
	}
	for _, a := range admins {
		if a != 0 && !slices.Contains(d.admins, a) {
			d.admins = append(d.admins, a)
		}
	}
	return d
}

// LoadFile reads a YAML directory file. Entries from the file are merged
// after the given defaults.
func LoadFile(path string, managers []string, admins []int64) (*Directory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory file: %w", err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse directory file %s: %w", path, err)
	}
	return New(append(slices.Clone(managers), f.Managers...), append(slices.Clone(admins), f.Admins...)), nil
}

// Managers returns the roster in display order.
func (d *Directory) Managers() []string { return slices.Clone(d.managers) }

// HasManager reports whether name is on the roster.
func (d *Directory) HasManager(name string) bool {
	return slices.Contains(d.managers, strings.TrimSpace(name))
}

// Admins returns the relay recipients.
func (d *Directory) Admins() []int64 { return slices.Clone(d.admins) }

// IsAdmin reports whether id may use the reply desk.
func (d *Directory) IsAdmin(id int64) bool {
	return slices.Contains(d.admins, id)
}
