package taxonomy

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/cases"
)

// Unknown is returned by Normalize for labels that have no canonical class.
const Unknown = -1

// Canonical class names, in index order.
const (
	ClassPerson     = "person"
	ClassPhone      = "phone"
	ClassMaterial   = "material"
	ClassHeadphones = "headphones"
)

var defaultClasses = []string{ClassPerson, ClassPhone, ClassMaterial, ClassHeadphones}

var defaultSynonyms = map[string]string{
	"person": ClassPerson, "student": ClassPerson, "face": ClassPerson, "head": ClassPerson,
	"human": ClassPerson, "people": ClassPerson, "man": ClassPerson, "woman": ClassPerson,

	"phone": ClassPhone, "mobile": ClassPhone, "cell phone": ClassPhone,
	"telephone": ClassPhone, "smartphone": ClassPhone, "cellphone": ClassPhone,
	"mobile phone": ClassPhone, "iphone": ClassPhone, "android": ClassPhone,

	"paper": ClassMaterial, "document": ClassMaterial, "book": ClassMaterial,
	"notebook": ClassMaterial, "notes": ClassMaterial, "sheet": ClassMaterial,
	"material": ClassMaterial, "cheat sheet": ClassMaterial,

	"headphone": ClassHeadphones, "headphones": ClassHeadphones,
	"earphone": ClassHeadphones, "earphones": ClassHeadphones,
	"headset": ClassHeadphones, "earbuds": ClassHeadphones, "earbud": ClassHeadphones,
	"airpods": ClassHeadphones, "ear device": ClassHeadphones,
}

// DefaultClasses returns a copy of the canonical anti-cheat class list.
func DefaultClasses() []string {
	out := make([]string, len(defaultClasses))
	copy(out, defaultClasses)
	return out
}

// DefaultSynonyms returns a copy of the built-in synonym table.
func DefaultSynonyms() map[string]string {
	out := make(map[string]string, len(defaultSynonyms))
	for k, v := range defaultSynonyms {
		out[k] = v
	}
	return out
}

// Taxonomy maps free-text dataset labels onto an ordered canonical class list.
// It is immutable after construction and safe for concurrent use.
type Taxonomy struct {
	classes []string
	lookup  map[string]int
}

// New builds a taxonomy from a class list and a synonym table whose values
// must name entries of classes.
func New(classes []string, synonyms map[string]string) (*Taxonomy, error) {
	if len(classes) == 0 {
		return nil, errors.New("taxonomy: at least one class is required")
	}
	index := make(map[string]int, len(classes))
	for i, name := range classes {
		key := fold(name)
		if key == "" {
			return nil, fmt.Errorf("taxonomy: class %d is empty", i)
		}
		if _, dup := index[key]; dup {
			return nil, fmt.Errorf("taxonomy: duplicate class %q", name)
		}
		index[key] = i
	}

	lookup := make(map[string]int, len(synonyms)+len(classes))
	for synonym, target := range synonyms {
		idx, ok := index[fold(target)]
		if !ok {
			return nil, fmt.Errorf("taxonomy: synonym %q targets unknown class %q", synonym, target)
		}
		key := fold(synonym)
		if key == "" {
			continue
		}
		if prev, exists := lookup[key]; exists && prev != idx {
			return nil, fmt.Errorf("taxonomy: synonym %q maps to both %q and %q", synonym, classes[prev], classes[idx])
		}
		lookup[key] = idx
	}

	return &Taxonomy{
		classes: append([]string(nil), classes...),
		lookup:  lookup,
	}, nil
}

// Default returns the built-in anti-cheat taxonomy.
func Default() *Taxonomy {
	t, err := New(defaultClasses, defaultSynonyms)
	if err != nil {
		panic(err) // static table
	}
	return t
}

// Normalize returns the canonical index for a dataset label, or Unknown.
// Matching is case-insensitive and ignores surrounding whitespace.
func (t *Taxonomy) Normalize(label string) int {
	if t == nil {
		return Unknown
	}
	idx, ok := t.lookup[fold(label)]
	if !ok {
		return Unknown
	}
	return idx
}

// Classes returns a copy of the canonical class list.
func (t *Taxonomy) Classes() []string {
	if t == nil {
		return nil
	}
	return append([]string(nil), t.classes...)
}

// Class returns the canonical name at idx.
func (t *Taxonomy) Class(idx int) (string, bool) {
	if t == nil || idx < 0 || idx >= len(t.classes) {
		return "", false
	}
	return t.classes[idx], true
}

// Synonyms lists every recognized label grouped by canonical class, sorted.
func (t *Taxonomy) Synonyms() map[string][]string {
	out := make(map[string][]string, len(t.classes))
	for label, idx := range t.lookup {
		name := t.classes[idx]
		out[name] = append(out[name], label)
	}
	for name := range out {
		sort.Strings(out[name])
	}
	return out
}

func fold(value string) string {
	return cases.Fold().String(strings.TrimSpace(value))
}
