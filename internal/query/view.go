// Package query derives the admin dashboard view of the student list:
// search by name, filter by class, and sort by one column.
package query

import (
	"cmp"
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/stemsi/student-registry/internal/model"
)

// Field is a sortable student column.
type Field string

const (
	FieldNone   Field = ""
	FieldName   Field = "name"
	FieldAge    Field = "age"
	FieldGender Field = "gender"
	FieldClass  Field = "class"
)

// Direction orders a sort.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// AllClasses disables the class filter, same as an empty Class.
const AllClasses = "all"

// Sort selects the column and direction of the view.
type Sort struct {
	Field     Field     `json:"field"`
	Direction Direction `json:"direction"`
}

// DefaultSort is name ascending.
var DefaultSort = Sort{Field: FieldName, Direction: Asc}

// Toggle returns the sort after the user picks field: the current field
// flips from asc to desc, anything else starts over ascending.
func (s Sort) Toggle(field Field) Sort {
	if s.Field == field && s.Direction == Asc {
		return Sort{Field: field, Direction: Desc}
	}
	return Sort{Field: field, Direction: Asc}
}

// Params are the inputs of Derive.
type Params struct {
	Search string `json:"search"`
	Class  string `json:"class"`
	Sort   Sort   `json:"sort"`
}

// Derive filters and sorts records into a new slice. records is not modified.
// Ties keep their input order.
func Derive(records []model.Student, p Params) []model.Student {
	needle := strings.ToLower(p.Search)
	out := make([]model.Student, 0, len(records))
	for _, r := range records {
		if needle != "" && !strings.Contains(strings.ToLower(r.Name), needle) {
			continue
		}
		if p.Class != "" && p.Class != AllClasses && r.Class != p.Class {
			continue
		}
		out = append(out, r)
	}

	compare := comparator(p.Sort.Field)
	if compare == nil {
		return out
	}
	if p.Sort.Direction == Desc {
		asc := compare
		compare = func(a, b model.Student) int { return asc(b, a) }
	}
	slices.SortStableFunc(out, compare)
	return out
}

func comparator(f Field) func(a, b model.Student) int {
	switch f {
	case FieldName:
		return func(a, b model.Student) int { return cmp.Compare(a.Name, b.Name) }
	case FieldAge:
		return func(a, b model.Student) int { return cmp.Compare(a.Age, b.Age) }
	case FieldGender:
		return func(a, b model.Student) int { return cmp.Compare(a.Gender, b.Gender) }
	case FieldClass:
		return func(a, b model.Student) int { return cmp.Compare(a.Class, b.Class) }
	default:
		return nil
	}
}

// unsortedParam is the sort value that keeps insertion order.
const unsortedParam = "none"

// ParseParams reads search, class, sort and dir from a query string.
// A missing sort means DefaultSort's field, sort=none keeps insertion order,
// and a missing dir means asc. search is matched as given, spaces included.
func ParseParams(v url.Values) (Params, error) {
	p := Params{
		Search: v.Get("search"),
		Class:  v.Get("class"),
	}

	switch f := Field(v.Get("sort")); f {
	case FieldNone:
		p.Sort.Field = DefaultSort.Field
	case unsortedParam:
		p.Sort.Field = FieldNone
	case FieldName, FieldAge, FieldGender, FieldClass:
		p.Sort.Field = f
	default:
		return Params{}, fmt.Errorf("unknown sort field %q", f)
	}

	switch d := Direction(v.Get("dir")); d {
	case "":
		p.Sort.Direction = DefaultSort.Direction
	case Asc:
		p.Sort.Direction = Asc
	case Desc:
		p.Sort.Direction = Desc
	default:
		return Params{}, fmt.Errorf("unknown sort direction %q", d)
	}
	return p, nil
}
