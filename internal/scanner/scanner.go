// Package scanner discovers template/view-model/stylesheet triples across a
// project tree. Grounded on the teacher's Handler.matchFS / fs.ReadDir walk
// in pages.go: that code already walks an fs.FS skipping dotfiles to map a
// URL path onto a ".chtml" file; this package generalizes the same
// directory-walking discipline into "find every template and its sibling
// files by base name" instead of "find the one file that answers this
// request".
package scanner

import (
	"io/fs"
	"path"
	"sort"
	"strings"
)

// DefaultExcludes are directory names never descended into, matching the
// directories every JS/Go tool in this space already ignores by default.
var DefaultExcludes = map[string]bool{
	"node_modules": true,
	"dist":         true,
	"coverage":     true,
	".git":         true,
}

// Unit is one discovered template and the sibling files paired to it by
// base name (case-insensitive, kebab-case-normalized).
type Unit struct {
	// BaseName is the shared, normalized stem (e.g. "user-card" for
	// "UserCard.html" / "user_card.go" / "user-card.css").
	BaseName   string
	Dir        string
	Template   string // path to the .html file; always non-empty
	ViewModel  string // path to the paired .go file, if one was found
	Stylesheet string // path to the paired .css/.scss file, if one was found
}

// Options configures a Scan.
type Options struct {
	Excludes map[string]bool // directory names to skip; nil uses DefaultExcludes
}

// Scan walks fsys from root, pairing every ".html" file with a same-stem
// ".go" and/or stylesheet file in the same directory, and returns the units
// sorted by path for deterministic downstream processing (a facade driving
// C3 onward over many units needs a stable compilation order).
func Scan(fsys fs.FS, root string, opts Options) ([]Unit, error) {
	excludes := opts.Excludes
	if excludes == nil {
		excludes = DefaultExcludes
	}

	type dirEntry struct {
		byStem map[string][]string
	}
	dirs := map[string]*dirEntry{}

	err := fs.WalkDir(fsys, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if name != "." && strings.HasPrefix(name, ".") {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if excludes[name] {
				return fs.SkipDir
			}
			return nil
		}

		dir := path.Dir(p)
		de := dirs[dir]
		if de == nil {
			de = &dirEntry{byStem: map[string][]string{}}
			dirs[dir] = de
		}
		stem := normalizeStem(stemOf(name))
		de.byStem[stem] = append(de.byStem[stem], p)
		return nil
	})
	if err != nil {
		return nil, err
	}

	var units []Unit
	for dir, de := range dirs {
		for stem, files := range de.byStem {
			u := Unit{BaseName: stem, Dir: dir}
			for _, f := range files {
				switch ext(f) {
				case ".html":
					u.Template = f
				case ".go":
					u.ViewModel = f
				case ".css", ".scss", ".less":
					u.Stylesheet = f
				}
			}
			if u.Template == "" {
				continue
			}
			units = append(units, u)
		}
	}

	sort.Slice(units, func(i, j int) bool { return units[i].Template < units[j].Template })
	return units, nil
}

func stemOf(name string) string {
	e := ext(name)
	return strings.TrimSuffix(name, e)
}

func ext(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i:]
	}
	return ""
}

// normalizeStem lower-cases and converts underscores/PascalCase boundaries
// to hyphens, so "UserCard", "user_card" and "user-card" all pair together.
func normalizeStem(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r == '_' {
			b.WriteByte('-')
			continue
		}
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r - 'A' + 'a')
			continue
		}
		b.WriteRune(r)
	}
	out := b.String()
	out = strings.ReplaceAll(out, "--", "-")
	return out
}
