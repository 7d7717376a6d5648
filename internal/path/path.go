package path

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/roach88/rstate/internal/value"
)

// Path is an immutable, interned sequence of segments. Obtain paths through
// Parse, MustParse, New or Root; never construct one directly.
type Path struct {
	segs []Segment
	key  string
}

// table is the process-wide intern table, keyed by canonical key.
var table = struct {
	sync.Mutex
	paths map[string]*Path
}{paths: make(map[string]*Path)}

// intern returns the canonical *Path for segs. segs is copied when a new
// entry is created.
func intern(segs []Segment) *Path {
	key := canonicalKey(segs)

	table.Lock()
	defer table.Unlock()

	if p, ok := table.paths[key]; ok {
		return p
	}
	p := &Path{segs: slices.Clip(slices.Clone(segs)), key: key}
	table.paths[key] = p
	return p
}

func canonicalKey(segs []Segment) string {
	var b strings.Builder
	for i, s := range segs {
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(s.String())
	}
	return b.String()
}

// Purge empties the intern table. Paths obtained before the purge stay
// valid but are no longer identical to paths parsed afterwards.
func Purge() {
	table.Lock()
	defer table.Unlock()
	clear(table.paths)
}

// Interned returns the number of paths in the intern table.
func Interned() int {
	table.Lock()
	defer table.Unlock()
	return len(table.paths)
}

// Root returns the empty path.
func Root() *Path {
	return intern(nil)
}

// New returns the path made of segs.
func New(segs ...Segment) *Path {
	return intern(segs)
}

// MustParse is Parse for literals. It panics on malformed input.
func MustParse(spec any) *Path {
	p, err := Parse(spec)
	if err != nil {
		panic(err)
	}
	return p
}

// Parse builds a path from a dotted or bracketed string, a *Path, a
// Segment, an int index, or a slice mixing those. Slices are flattened and
// empty tokens dropped.
func Parse(spec any) (*Path, error) {
	if p, ok := spec.(*Path); ok && p != nil {
		return p, nil
	}
	segs, err := collect(nil, spec)
	if err != nil {
		return nil, err
	}
	return intern(segs), nil
}

func collect(segs []Segment, spec any) ([]Segment, error) {
	switch s := spec.(type) {
	case nil:
		return segs, nil
	case string:
		parsed, err := tokenize(s)
		if err != nil {
			return nil, err
		}
		return append(segs, parsed...), nil
	case *Path:
		if s == nil {
			return segs, nil
		}
		return append(segs, s.segs...), nil
	case Segment:
		if strings.TrimSpace(s.Name) == "" {
			return segs, nil
		}
		return append(segs, s), nil
	case int:
		if s < 0 {
			return nil, &PathError{Op: "parse", Input: fmt.Sprint(s), Reason: "negative index"}
		}
		return append(segs, Index(s)), nil
	case []string:
		for _, item := range s {
			var err error
			if segs, err = collect(segs, item); err != nil {
				return nil, err
			}
		}
		return segs, nil
	case []Segment:
		for _, item := range s {
			var err error
			if segs, err = collect(segs, item); err != nil {
				return nil, err
			}
		}
		return segs, nil
	case []any:
		for _, item := range s {
			var err error
			if segs, err = collect(segs, item); err != nil {
				return nil, err
			}
		}
		return segs, nil
	default:
		return nil, &PathError{Op: "parse", Input: fmt.Sprint(spec), Reason: fmt.Sprintf("unsupported path type %T", spec)}
	}
}

// tokenize splits dotted/bracketed text into segments. Bracket contents are
// taken literally, so "[a.b]" and "[f()]" are single plain segments; "()"
// right after a bracket invokes it, as in "[a.b]()".
func tokenize(input string) ([]Segment, error) {
	var (
		segs      []Segment
		cur       strings.Builder
		inBracket bool
		// the last segment came from a bracket and may take a "()" suffix
		bracketed bool
	)
	fail := func(reason string) error {
		return &PathError{Op: "parse", Input: input, Reason: reason}
	}
	flush := func() error {
		token := cur.String()
		cur.Reset()
		after := bracketed
		bracketed = false
		trimmed := strings.TrimSpace(token)
		switch {
		case trimmed == "":
			return nil
		case after && trimmed == "()":
			segs[len(segs)-1].Kind = Invoked
			return nil
		}
		seg, err := ParseSegment(token)
		if err != nil {
			return fail(err.(*PathError).Reason)
		}
		segs = append(segs, seg)
		return nil
	}

	for _, r := range input {
		switch {
		case r == '[' && inBracket:
			return nil, fail("nested '['")
		case r == '[':
			if err := flush(); err != nil {
				return nil, err
			}
			inBracket = true
		case r == ']' && !inBracket:
			return nil, fail("unbalanced ']'")
		case r == ']':
			// Bracket contents are literal: no "()" stripping.
			name := strings.TrimSpace(cur.String())
			cur.Reset()
			if name != "" {
				segs = append(segs, Segment{Name: name})
				bracketed = true
			}
			inBracket = false
		case r == '.' && !inBracket:
			if err := flush(); err != nil {
				return nil, err
			}
		default:
			cur.WriteRune(r)
		}
	}
	if inBracket {
		return nil, fail("unterminated '['")
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return segs, nil
}

// String returns the canonical key.
func (p *Path) String() string { return p.key }

// Len returns the number of segments.
func (p *Path) Len() int { return len(p.segs) }

// IsRoot reports whether p has no segments.
func (p *Path) IsRoot() bool { return len(p.segs) == 0 }

// Segments returns a copy of the segments.
func (p *Path) Segments() []Segment { return slices.Clone(p.segs) }

// Last returns the final segment, or the zero Segment for the root.
func (p *Path) Last() Segment {
	if len(p.segs) == 0 {
		return Segment{}
	}
	return p.segs[len(p.segs)-1]
}

// Parent drops the last segment. The root is its own parent.
func (p *Path) Parent() *Path {
	if len(p.segs) == 0 {
		return p
	}
	return intern(p.segs[:len(p.segs)-1])
}

// Child appends one segment.
func (p *Path) Child(seg Segment) *Path {
	segs := make([]Segment, len(p.segs)+1)
	copy(segs, p.segs)
	segs[len(p.segs)] = seg
	return intern(segs)
}

// Join appends other's segments to p.
func (p *Path) Join(other *Path) *Path {
	if other == nil || other.IsRoot() {
		return p
	}
	if p.IsRoot() {
		return other
	}
	return intern(slices.Concat(p.segs, other.segs))
}

// Affects reports whether p is a segment-wise prefix of other, equality
// included. A write at p can change the value at every path p affects.
func (p *Path) Affects(other *Path) bool {
	if other == nil || len(p.segs) > len(other.segs) {
		return false
	}
	for i, s := range p.segs {
		if other.segs[i] != s {
			return false
		}
	}
	return true
}

// Relative returns the part of p after base. base must affect p.
func (p *Path) Relative(base *Path) (*Path, error) {
	if base == nil {
		return p, nil
	}
	if !base.Affects(p) {
		return nil, &PathError{
			Op:     "relative",
			Input:  p.key,
			Reason: fmt.Sprintf("%q is not a prefix", base.key),
		}
	}
	return intern(p.segs[len(base.segs):]), nil
}

// Resolve walks root along p. Missing steps yield Absent; it never fails.
func (p *Path) Resolve(root value.Value) value.Value {
	cur := root
	if cur == nil {
		cur = value.Absent{}
	}
	for _, s := range p.segs {
		cur = s.Read(cur)
		if value.IsAbsent(cur) {
			return value.Absent{}
		}
	}
	return cur
}

// Set assigns v at p inside root, creating missing intermediate containers.
// It fails when root is not a container, when p is the root path, or when
// an intermediate step holds a non-container value.
func (p *Path) Set(root, v value.Value) error {
	if !value.IsContainer(root) {
		return &PathError{Op: "set", Input: p.key, Reason: "root is not a container"}
	}
	if len(p.segs) == 0 {
		return &PathError{Op: "set", Input: p.key, Reason: "cannot assign the root"}
	}
	if v == nil {
		v = value.Null{}
	}

	cur := root
	last := len(p.segs) - 1
	for i, s := range p.segs[:last] {
		if err := s.Ensure(cur, EnsureOptions{Next: &p.segs[i+1]}); err != nil {
			return fmt.Errorf("set %q: %w", p.key, err)
		}
		cur = s.Read(cur)
		if !value.IsContainer(cur) {
			return &PathError{
				Op:     "set",
				Input:  p.key,
				Reason: fmt.Sprintf("%q is not a container", canonicalKey(p.segs[:i+1])),
			}
		}
	}
	if err := p.segs[last].Ensure(cur, EnsureOptions{Value: v}); err != nil {
		return fmt.Errorf("set %q: %w", p.key, err)
	}
	return nil
}

// Delete removes the final key of p inside root. Missing intermediates are
// not an error.
func (p *Path) Delete(root value.Value) error {
	if len(p.segs) == 0 {
		return &PathError{Op: "delete", Input: p.key, Reason: "cannot delete the root"}
	}
	parent := p.Parent().Resolve(root)
	if !value.IsContainer(parent) {
		return nil
	}
	if err := p.Last().Ensure(parent, EnsureOptions{Unset: true}); err != nil {
		return fmt.Errorf("delete %q: %w", p.key, err)
	}
	return nil
}
