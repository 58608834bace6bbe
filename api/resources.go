package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
)

type Courses struct{ crud }

func (c *Courses) Get(ctx context.Context, id string) (json.RawMessage, error) {
	return c.get(ctx, id)
}

// Instructor lists the courses taught by the current user.
func (c *Courses) Instructor(ctx context.Context) (json.RawMessage, error) {
	return call(ctx, c.r, http.MethodGet, c.base+"instructor", nil)
}

type Lessons struct{ crud }

func (l *Lessons) Get(ctx context.Context, id string) (json.RawMessage, error) {
	return l.get(ctx, id)
}

func (l *Lessons) ByGrade(ctx context.Context, grade string) (json.RawMessage, error) {
	return l.byGrade(ctx, grade)
}

type Quizzes struct{ crud }

func (q *Quizzes) ByGrade(ctx context.Context, grade string) (json.RawMessage, error) {
	return q.byGrade(ctx, grade)
}

// Start fetches a quiz for taking: questions, options and the time limit.
func (q *Quizzes) Start(ctx context.Context, id string) (json.RawMessage, error) {
	return call(ctx, q.r, http.MethodGet, q.sub(id, "start"), nil)
}

func (q *Quizzes) Submit(ctx context.Context, id string, submission any) (json.RawMessage, error) {
	return call(ctx, q.r, http.MethodPost, q.sub(id, "submit"), submission)
}

func (q *Quizzes) MyResults(ctx context.Context) (json.RawMessage, error) {
	return call(ctx, q.r, http.MethodGet, q.base+"results/my-results", nil)
}

func (q *Quizzes) ResultDetails(ctx context.Context, resultID string) (json.RawMessage, error) {
	return call(ctx, q.r, http.MethodGet, q.sub("results", resultID, "details"), nil)
}

type Tasks struct{ crud }

func (t *Tasks) Get(ctx context.Context, id string) (json.RawMessage, error) {
	return t.get(ctx, id)
}

func (t *Tasks) ByGrade(ctx context.Context, grade string) (json.RawMessage, error) {
	return t.byGrade(ctx, grade)
}

func (t *Tasks) Submit(ctx context.Context, id string, answers any) (json.RawMessage, error) {
	return call(ctx, t.r, http.MethodPost, t.sub(id, "submit"), answers)
}

func (t *Tasks) MyResults(ctx context.Context) (json.RawMessage, error) {
	return call(ctx, t.r, http.MethodGet, t.base+"results/my-results", nil)
}

type Schedule struct{ crud }

func (s *Schedule) ByGrade(ctx context.Context, grade string) (json.RawMessage, error) {
	return s.byGrade(ctx, grade)
}

// StudentCalendar returns the current student's calendar. A zero month or year is left
// out of the query.
func (s *Schedule) StudentCalendar(ctx context.Context, month, year int) (json.RawMessage, error) {
	q := url.Values{}
	if month != 0 {
		q.Set("month", strconv.Itoa(month))
	}
	if year != 0 {
		q.Set("year", strconv.Itoa(year))
	}
	path := "/api/students/calendar"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	return call(ctx, s.r, http.MethodGet, path, nil)
}

// StudentDayEvents returns one day of the calendar; date is YYYY-MM-DD.
func (s *Schedule) StudentDayEvents(ctx context.Context, date string) (json.RawMessage, error) {
	return call(ctx, s.r, http.MethodGet, "/api/students/calendar/day/"+url.PathEscape(date), nil)
}

type Categories struct{ crud }

// EducationalMaterials routes have no trailing slash on the collection.
type EducationalMaterials struct {
	r Requester
}

const materialsBase = "/api/educational-materials"

func (e *EducationalMaterials) List(ctx context.Context) (json.RawMessage, error) {
	return call(ctx, e.r, http.MethodGet, materialsBase, nil)
}

// ByGrade escapes grade, which may contain spaces or non-ASCII letters.
func (e *EducationalMaterials) ByGrade(ctx context.Context, grade string) (json.RawMessage, error) {
	return call(ctx, e.r, http.MethodGet, materialsBase+"/grade/"+url.PathEscape(grade), nil)
}

func (e *EducationalMaterials) Create(ctx context.Context, data any) (json.RawMessage, error) {
	return call(ctx, e.r, http.MethodPost, materialsBase, data)
}

func (e *EducationalMaterials) Update(ctx context.Context, id string, data any) (json.RawMessage, error) {
	return call(ctx, e.r, http.MethodPut, materialsBase+"/"+url.PathEscape(id), data)
}

func (e *EducationalMaterials) Delete(ctx context.Context, id string) (json.RawMessage, error) {
	return call(ctx, e.r, http.MethodDelete, materialsBase+"/"+url.PathEscape(id), nil)
}

type Analytics struct {
	r Requester
}

func (a *Analytics) Dashboard(ctx context.Context) (json.RawMessage, error) {
	return call(ctx, a.r, http.MethodGet, "/api/analytics/dashboard", nil)
}
