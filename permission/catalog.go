package permission

import (
	"errors"

	"github.com/MrEthical07/goTutor/session"
)

// Family names a group of backend routes that share a grade slug style.
type Family int

const (
	FamilyPublic Family = iota
	FamilyLessons
	FamilySchedule
	FamilyTasks
	FamilyQuizzes
)

// Grade is one school grade and its slugs.
//
// Slug is used by the public, lesson and schedule routes ("1st-secondary"); TaskSlug by
// the task and quiz routes ("first-secondary").
type Grade struct {
	Name     string
	Slug     string
	TaskSlug string
}

// Catalog is an immutable set of grades with bit positions assigned in order.
//
//	Performance: lookups are map reads; safe for concurrent use.
type Catalog struct {
	grades []Grade
	byName map[string]int
	bySlug map[string]int
}

var (
	errEmptyGrade     = errors.New("grade name cannot be empty")
	errDuplicateGrade = errors.New("grade already registered")
	errTooManyGrades  = errors.New("grade limit exceeded")
)

// NewCatalog registers grades in order. Names and slugs must be unique.
func NewCatalog(grades ...Grade) (*Catalog, error) {
	if len(grades) > maxGrades {
		return nil, errTooManyGrades
	}
	c := &Catalog{
		grades: make([]Grade, 0, len(grades)),
		byName: make(map[string]int, len(grades)),
		bySlug: make(map[string]int, 2*len(grades)),
	}
	for _, g := range grades {
		if g.Name == "" {
			return nil, errEmptyGrade
		}
		if _, ok := c.byName[g.Name]; ok {
			return nil, errDuplicateGrade
		}
		bit := len(c.grades)
		c.byName[g.Name] = bit
		for _, slug := range []string{g.Slug, g.TaskSlug} {
			if slug == "" {
				continue
			}
			if prev, ok := c.bySlug[slug]; ok && prev != bit {
				return nil, errDuplicateGrade
			}
			c.bySlug[slug] = bit
		}
		c.grades = append(c.grades, g)
	}
	return c, nil
}

// DefaultCatalog returns the three secondary grades the platform serves.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(
		Grade{Name: "الصف الأول الثانوي", Slug: "1st-secondary", TaskSlug: "first-secondary"},
		Grade{Name: "الصف الثاني الثانوي", Slug: "2nd-secondary", TaskSlug: "second-secondary"},
		Grade{Name: "الصف الثالث الثانوي", Slug: "3rd-secondary", TaskSlug: "third-secondary"},
	)
	if err != nil {
		panic(err)
	}
	return c
}

// Names returns grade names in registration order.
func (c *Catalog) Names() []string {
	out := make([]string, len(c.grades))
	for i, g := range c.grades {
		out[i] = g.Name
	}
	return out
}

func (c *Catalog) Bit(name string) (int, bool) {
	bit, ok := c.byName[name]
	return bit, ok
}

func (c *Catalog) Name(bit int) (string, bool) {
	if bit < 0 || bit >= len(c.grades) {
		return "", false
	}
	return c.grades[bit].Name, true
}

// Slug returns the route slug for a grade name in family.
func (c *Catalog) Slug(name string, family Family) (string, bool) {
	bit, ok := c.byName[name]
	if !ok {
		return "", false
	}
	g := c.grades[bit]
	switch family {
	case FamilyTasks, FamilyQuizzes:
		return g.TaskSlug, g.TaskSlug != ""
	default:
		return g.Slug, g.Slug != ""
	}
}

// Lookup resolves a slug of any family back to its grade.
func (c *Catalog) Lookup(slug string) (Grade, bool) {
	bit, ok := c.bySlug[slug]
	if !ok {
		return Grade{}, false
	}
	return c.grades[bit], true
}

// MaskFor folds u into a grade mask. Unknown student grades yield an empty mask.
func (c *Catalog) MaskFor(u *session.UserProfile) Mask {
	var m Mask
	switch {
	case u == nil:
	case HasAdminPrivileges(u):
		m.Set(AllBit)
	default:
		if bit, ok := c.byName[u.Grade]; ok {
			m.Set(bit)
		}
	}
	return m
}

// Allows reports whether mask grants grade name.
func (c *Catalog) Allows(m Mask, name string) bool {
	if m.All() {
		return true
	}
	bit, ok := c.byName[name]
	return ok && m.Has(bit)
}

// Accessible lists the catalog grades mask grants, in order.
func (c *Catalog) Accessible(m Mask) []string {
	var out []string
	for i, g := range c.grades {
		if m.Has(i) {
			out = append(out, g.Name)
		}
	}
	return out
}
