package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	goTutor "github.com/MrEthical07/goTutor"
)

// Requester is the subset of [goTutor.Manager] the wrappers need.
type Requester interface {
	Request(ctx context.Context, method, path string, body, out any, opts ...goTutor.RequestOption) error
}

// Client groups the endpoint families.
type Client struct {
	Auth                 *Auth
	Courses              *Courses
	Lessons              *Lessons
	Quizzes              *Quizzes
	Tasks                *Tasks
	Schedule             *Schedule
	Categories           *Categories
	EducationalMaterials *EducationalMaterials
	Analytics            *Analytics
	Public               *Public
}

// New builds a Client over r, usually a *goTutor.Manager.
func New(r Requester) *Client {
	return &Client{
		Auth:                 &Auth{r: r},
		Courses:              &Courses{crud{r: r, base: "/api/courses/"}},
		Lessons:              &Lessons{crud{r: r, base: "/api/lessons/"}},
		Quizzes:              &Quizzes{crud{r: r, base: "/api/quizzes/"}},
		Tasks:                &Tasks{crud{r: r, base: "/api/tasks/"}},
		Schedule:             &Schedule{crud{r: r, base: "/api/schedule/"}},
		Categories:           &Categories{crud{r: r, base: "/api/categories/"}},
		EducationalMaterials: &EducationalMaterials{r: r},
		Analytics:            &Analytics{r: r},
		Public:               &Public{r: r},
	}
}

func call(ctx context.Context, r Requester, method, path string, body any, opts ...goTutor.RequestOption) (json.RawMessage, error) {
	var out json.RawMessage
	if err := r.Request(ctx, method, path, body, &out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// crud is the list/get/create/update/delete shape shared by most resources. base
// carries the trailing slash the backend routes use for collection calls.
type crud struct {
	r    Requester
	base string
}

func (c crud) item(id string) string {
	return c.base + url.PathEscape(id)
}

func (c crud) sub(parts ...string) string {
	p := c.base
	for i, part := range parts {
		if i > 0 {
			p += "/"
		}
		p += url.PathEscape(part)
	}
	return p
}

func (c crud) List(ctx context.Context) (json.RawMessage, error) {
	return call(ctx, c.r, http.MethodGet, c.base, nil)
}

func (c crud) Create(ctx context.Context, data any) (json.RawMessage, error) {
	return call(ctx, c.r, http.MethodPost, c.base, data)
}

func (c crud) Update(ctx context.Context, id string, data any) (json.RawMessage, error) {
	return call(ctx, c.r, http.MethodPut, c.item(id), data)
}

func (c crud) Delete(ctx context.Context, id string) (json.RawMessage, error) {
	return call(ctx, c.r, http.MethodDelete, c.item(id), nil)
}

func (c crud) get(ctx context.Context, id string) (json.RawMessage, error) {
	return call(ctx, c.r, http.MethodGet, c.item(id), nil)
}

func (c crud) byGrade(ctx context.Context, grade string) (json.RawMessage, error) {
	return call(ctx, c.r, http.MethodGet, c.sub("grade", grade), nil)
}
