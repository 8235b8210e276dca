// Package query turns listing requests into store-independent predicates and
// derives pagination metadata from result counts.
package query

import (
	"fmt"
	"strings"
)

// Op identifies the kind of a predicate node.
type Op int

const (
	OpAnd Op = iota + 1
	OpOr
	OpEq
	OpContainsFold
	OpHasRelated
)

func (o Op) String() string {
	switch o {
	case OpAnd:
		return "and"
	case OpOr:
		return "or"
	case OpEq:
		return "eq"
	case OpContainsFold:
		return "contains"
	case OpHasRelated:
		return "has"
	default:
		return fmt.Sprintf("op(%d)", int(o))
	}
}

// Field names a post attribute or relation a predicate can test.
type Field string

const (
	FieldPublished  Field = "published"
	FieldTitle      Field = "title"
	FieldContent    Field = "content"
	FieldCategories Field = "categories"
	FieldTags       Field = "tags"
)

// Predicate is an immutable tree of AND/OR clause nodes and leaf conditions.
// Leaves carry a Field and a Value; branch nodes carry Children.
type Predicate struct {
	Op       Op
	Field    Field
	Value    any
	Children []Predicate
}

// And combines children so that all must hold.
func And(children ...Predicate) Predicate {
	return Predicate{Op: OpAnd, Children: children}
}

// Or combines children so that at least one must hold.
func Or(children ...Predicate) Predicate {
	return Predicate{Op: OpOr, Children: children}
}

// Eq matches when field equals value.
func Eq(field Field, value any) Predicate {
	return Predicate{Op: OpEq, Field: field, Value: value}
}

// ContainsFold matches when the text field contains term, ignoring case.
func ContainsFold(field Field, term string) Predicate {
	return Predicate{Op: OpContainsFold, Field: field, Value: term}
}

// HasRelated matches when the relation contains an entity with the given slug.
func HasRelated(relation Field, slug string) Predicate {
	return Predicate{Op: OpHasRelated, Field: relation, Value: slug}
}

// Published is the base condition every public listing carries.
func Published() Predicate {
	return Eq(FieldPublished, true)
}

// Walk visits p and its descendants depth-first. Returning false from fn
// stops descent into that node's children.
func (p Predicate) Walk(fn func(Predicate) bool) {
	if !fn(p) {
		return
	}
	for _, c := range p.Children {
		c.Walk(fn)
	}
}

// Requires reports whether leaf must hold for p to match, i.e. leaf is reachable
// from the root through AND nodes only.
func (p Predicate) Requires(leaf Predicate) bool {
	switch p.Op {
	case OpAnd:
		for _, c := range p.Children {
			if c.Requires(leaf) {
				return true
			}
		}
		return false
	case OpOr:
		if len(p.Children) == 0 {
			return false
		}
		for _, c := range p.Children {
			if !c.Requires(leaf) {
				return false
			}
		}
		return true
	default:
		return p.Op == leaf.Op && p.Field == leaf.Field && p.Value == leaf.Value
	}
}

// String renders a canonical form of the tree, stable for equal trees.
func (p Predicate) String() string {
	var b strings.Builder
	p.write(&b)
	return b.String()
}

func (p Predicate) write(b *strings.Builder) {
	switch p.Op {
	case OpAnd, OpOr:
		b.WriteString(p.Op.String())
		b.WriteByte('(')
		for i, c := range p.Children {
			if i > 0 {
				b.WriteByte(',')
			}
			c.write(b)
		}
		b.WriteByte(')')
	default:
		fmt.Fprintf(b, "%s(%s,%q)", p.Op, p.Field, fmt.Sprint(p.Value))
	}
}

// Document is anything a predicate can be evaluated against in memory.
type Document interface {
	Bool(f Field) bool
	Text(f Field) string
	Slugs(f Field) []string
}

// Matches evaluates p against d.
func (p Predicate) Matches(d Document) bool {
	switch p.Op {
	case OpAnd:
		for _, c := range p.Children {
			if !c.Matches(d) {
				return false
			}
		}
		return true
	case OpOr:
		for _, c := range p.Children {
			if c.Matches(d) {
				return true
			}
		}
		return false
	case OpEq:
		if want, ok := p.Value.(bool); ok {
			return d.Bool(p.Field) == want
		}
		return d.Text(p.Field) == fmt.Sprint(p.Value)
	case OpContainsFold:
		term, _ := p.Value.(string)
		return strings.Contains(strings.ToLower(d.Text(p.Field)), strings.ToLower(term))
	case OpHasRelated:
		slug, _ := p.Value.(string)
		for _, s := range d.Slugs(p.Field) {
			if s == slug {
				return true
			}
		}
		return false
	default:
		return false
	}
}
