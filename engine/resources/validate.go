package resources

import (
	"errors"
	"slices"
	"strings"

	"github.com/spaghettifunk/anima-assets/engine/core"
)

const opValidate = "resources.Validate"

// ValidateManifests checks manifests as if they were layered into a single
// manager, in order. The manager itself never looks for dependency cycles,
// so content pipelines are expected to run this before shipping manifests.
//
// Every problem found is reported; the result joins them.
func ValidateManifests(ms ...*Manifest) error {
	var entries []Entry
	for _, m := range ms {
		entries = append(entries, m.Entries...)
	}
	return validateEntries(entries)
}

// Validate runs the manifest checks over the registered resources.
func (m *Manager) Validate() error {
	if err := m.checkAlive(opValidate); err != nil {
		return err
	}
	entries := make([]Entry, 0, m.count)
	for i := range m.slots {
		s := &m.slots[i]
		if !s.occupied {
			continue
		}
		e := Entry{Type: s.typ, Hints: s.hints, Offset: s.offset, Name: s.name, Path: s.path}
		for _, d := range s.deps {
			e.Dependencies = append(e.Dependencies, d.name)
		}
		entries = append(entries, e)
	}
	return validateEntries(entries)
}

func validateEntries(entries []Entry) error {
	var errs []error
	index := make(map[string]int, len(entries))
	for i, e := range entries {
		if err := checkEntryWidths(e, opValidate); err != nil {
			errs = append(errs, err)
		}
		if e.Type > TypeShader {
			errs = append(errs, core.Errorf(core.KindFormat, opValidate, "unknown resource type %d", uint32(e.Type)).WithResource(e.Name).WithField("type"))
		}
		if _, dup := index[e.Name]; dup {
			errs = append(errs, core.Errorf(core.KindFormat, opValidate, "duplicate resource name").WithResource(e.Name).WithField("name"))
			continue
		}
		index[e.Name] = i
	}

	for _, e := range entries {
		for _, d := range e.Dependencies {
			if _, ok := index[d]; !ok {
				errs = append(errs, core.Errorf(core.KindLookup, opValidate, "dependency %q not found", d).WithResource(e.Name).WithField("dependency"))
			}
		}
	}

	errs = append(errs, findCycles(entries, index)...)
	return errors.Join(errs...)
}

const (
	unvisited = iota
	visiting
	done
)

// findCycles reports each back edge of a depth-first walk as a cycle.
func findCycles(entries []Entry, index map[string]int) []error {
	var (
		errs  []error
		state = make([]uint8, len(entries))
		stack []string
	)

	var visit func(i int)
	visit = func(i int) {
		state[i] = visiting
		stack = append(stack, entries[i].Name)
		for _, d := range entries[i].Dependencies {
			j, ok := index[d]
			if !ok {
				continue
			}
			switch state[j] {
			case visiting:
				start := 0
				for k, name := range stack {
					if name == d {
						start = k
						break
					}
				}
				cycle := append(slices.Clone(stack[start:]), d)
				errs = append(errs, core.Errorf(core.KindFormat, opValidate, "dependency cycle: %s", strings.Join(cycle, " -> ")).WithResource(d))
			case unvisited:
				visit(j)
			}
		}
		stack = stack[:len(stack)-1]
		state[i] = done
	}

	for i := range entries {
		if state[i] == unvisited {
			visit(i)
		}
	}
	return errs
}

