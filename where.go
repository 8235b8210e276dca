package inkwell

import (
	"fmt"
	"strings"

	"github.com/eringen/inkwell/query"
)

var postColumns = map[query.Field]string{
	query.FieldPublished: "posts.published",
	query.FieldTitle:     "posts.title",
	query.FieldContent:   "posts.content",
}

var relatedJoins = map[query.Field]struct{ join, table, fk string }{
	query.FieldCategories: {join: "post_categories", table: "categories", fk: "category_id"},
	query.FieldTags:       {join: "post_tags", table: "tags", fk: "tag_id"},
}

// compileWhere renders p as a SQL condition over the posts table with
// positional arguments, ready for gorm's Where. lower names the SQL function
// that case-folds text columns the same way strings.ToLower folds the term.
func compileWhere(p query.Predicate, lower string) (string, []any, error) {
	w := whereWriter{lower: lower}
	if err := w.write(p); err != nil {
		return "", nil, err
	}
	return w.b.String(), w.args, nil
}

type whereWriter struct {
	b     strings.Builder
	args  []any
	lower string
}

func (w *whereWriter) write(p query.Predicate) error {
	b := &w.b
	switch p.Op {
	case query.OpAnd, query.OpOr:
		if len(p.Children) == 0 {
			if p.Op == query.OpAnd {
				b.WriteString("1 = 1")
			} else {
				b.WriteString("1 = 0")
			}
			return nil
		}
		sep := " AND "
		if p.Op == query.OpOr {
			sep = " OR "
		}
		b.WriteByte('(')
		for i, c := range p.Children {
			if i > 0 {
				b.WriteString(sep)
			}
			if err := w.write(c); err != nil {
				return err
			}
		}
		b.WriteByte(')')
		return nil

	case query.OpEq:
		col, ok := postColumns[p.Field]
		if !ok {
			return fmt.Errorf("compile where: unknown field %q", p.Field)
		}
		b.WriteString(col + " = ?")
		w.args = append(w.args, p.Value)
		return nil

	case query.OpContainsFold:
		col, ok := postColumns[p.Field]
		if !ok || p.Field == query.FieldPublished {
			return fmt.Errorf("compile where: %q is not a text field", p.Field)
		}
		term, _ := p.Value.(string)
		b.WriteString(w.lower + "(" + col + ") LIKE ? ESCAPE '\\'")
		w.args = append(w.args, "%"+escapeLike(strings.ToLower(term))+"%")
		return nil

	case query.OpHasRelated:
		rel, ok := relatedJoins[p.Field]
		if !ok {
			return fmt.Errorf("compile where: unknown relation %q", p.Field)
		}
		fmt.Fprintf(b,
			"EXISTS (SELECT 1 FROM %[1]s JOIN %[2]s ON %[2]s.id = %[1]s.%[3]s WHERE %[1]s.post_id = posts.id AND %[2]s.slug = ?)",
			rel.join, rel.table, rel.fk)
		w.args = append(w.args, p.Value)
		return nil
	}
	return fmt.Errorf("compile where: unsupported op %s", p.Op)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes LIKE wildcards in s match literally.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
