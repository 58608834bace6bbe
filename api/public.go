package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	goTutor "github.com/MrEthical07/goTutor"
)

// Public calls the grade catalogue, which needs no session. Requests never carry a
// bearer token.
type Public struct {
	r Requester
}

func (p *Public) get(ctx context.Context, path string) (json.RawMessage, error) {
	return call(ctx, p.r, http.MethodGet, path, nil, goTutor.WithoutAuth())
}

func (p *Public) Grades(ctx context.Context) (json.RawMessage, error) {
	return p.get(ctx, "/grades")
}

func (p *Public) Grade(ctx context.Context, grade string) (json.RawMessage, error) {
	return p.get(ctx, "/grades/"+url.PathEscape(grade))
}

func (p *Public) Lessons(ctx context.Context, grade string) (json.RawMessage, error) {
	return p.get(ctx, "/grades/"+url.PathEscape(grade)+"/lessons/public")
}

// Probe fetches an arbitrary public path, for checking that an endpoint exists.
func (p *Public) Probe(ctx context.Context, path string) (json.RawMessage, error) {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return p.get(ctx, path)
}
