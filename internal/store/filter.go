package store

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cbt-marketplace/apiserver/types"
)

const defaultListLimit = 100

// whereBuilder accumulates AND-joined conditions with positional placeholders.
type whereBuilder struct {
	clauses []string
	args    []any
}

// add appends a condition. format must contain exactly one %d verb, which is
// replaced by the placeholder index of arg.
func (b *whereBuilder) add(format string, arg any) {
	b.args = append(b.args, arg)
	b.clauses = append(b.clauses, fmt.Sprintf(format, len(b.args)))
}

// String renders the WHERE clause, or an empty string without conditions.
func (b *whereBuilder) String() string {
	if len(b.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(b.clauses, " AND ")
}

// page appends offset and limit arguments and returns their clause.
func (b *whereBuilder) page(offset, limit int) (string, []any) {
	if offset < 0 {
		offset = 0
	}
	if limit < 1 {
		limit = defaultListLimit
	}
	args := append(append([]any{}, b.args...), offset, limit)
	return fmt.Sprintf(" OFFSET $%d LIMIT $%d", len(b.args)+1, len(b.args)+2), args
}

func articleWhere(f types.ArticleFilter) *whereBuilder {
	b := &whereBuilder{}
	if tag := strings.TrimSpace(f.Tag); tag != "" {
		b.add("tags @> $%d::jsonb", jsonContains(tag))
	}
	if f.AuthorID != "" {
		b.add("author_id = $%d", f.AuthorID)
	}
	if f.InstitutionID != "" {
		b.add("institution_id = $%d", f.InstitutionID)
	}
	if f.PsychologistID != "" {
		b.add("psychologist_id = $%d", f.PsychologistID)
	}
	if f.Status != "" && f.Status != types.ArticleStatusAny {
		b.add("status = $%d", string(f.Status))
	}
	return b
}

func institutionWhere(f types.InstitutionFilter) *whereBuilder {
	b := &whereBuilder{}
	if city := strings.TrimSpace(f.City); city != "" {
		b.add(`address ILIKE '%%' || $%d || '%%' ESCAPE '\'`, escapeLike(city))
	}
	if f.Verified != nil {
		b.add("is_verified = $%d", *f.Verified)
	}
	return b
}

func psychologistWhere(f types.PsychologistFilter) *whereBuilder {
	b := &whereBuilder{}
	if spec := strings.TrimSpace(f.Specialization); spec != "" {
		b.add("specializations @> $%d::jsonb", jsonContains(spec))
	}
	if city := strings.TrimSpace(f.City); city != "" {
		b.add("lower(location->>'city') = lower($%d)", city)
	}
	if f.MinRating != nil {
		b.add("rating >= $%d", *f.MinRating)
	}
	if f.InstitutionID != "" {
		b.add("institution_id = $%d", f.InstitutionID)
	}
	return b
}

func userWhere(f types.UserFilter) *whereBuilder {
	b := &whereBuilder{}
	if f.Role != "" {
		b.add("role = $%d", string(f.Role))
	}
	return b
}

// jsonContains renders a one-element JSON array for @> membership tests.
func jsonContains(value string) string {
	data, _ := json.Marshal([]string{value})
	return string(data)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(value string) string {
	return likeEscaper.Replace(value)
}

// jsonArray marshals a list column, storing nil slices as [].
func jsonArray(value any) ([]byte, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	if string(data) == "null" {
		return []byte("[]"), nil
	}
	return data, nil
}

// jsonObject marshals an object column, storing nil maps as {}.
func jsonObject(value any) ([]byte, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	if string(data) == "null" {
		return []byte("{}"), nil
	}
	return data, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}
