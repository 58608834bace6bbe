//go:build integration
// +build integration

package test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/MrEthical07/goTutor/api"
	"github.com/MrEthical07/goTutor/internal/testserver"
	"github.com/MrEthical07/goTutor/permission"
	"github.com/MrEthical07/goTutor/session"
)

func TestAPIClientThroughManager(t *testing.T) {
	srv := newServer(t, testserver.Options{})
	m := newManager(t, srv, session.NewMemoryBackend(), nil)
	login(t, m)
	c := api.New(m)
	ctx := context.Background()

	catalog := permission.DefaultCatalog()
	grade := catalog.Names()[0]
	slug, _ := catalog.Slug(grade, permission.FamilyQuizzes)

	raw, err := c.Quizzes.ByGrade(ctx, slug)
	if err != nil {
		t.Fatalf("ByGrade: %v", err)
	}
	var echo struct {
		Path string `json:"path"`
		User string `json:"user"`
	}
	if err := json.Unmarshal(raw, &echo); err != nil {
		t.Fatal(err)
	}
	if echo.Path != "/api/quizzes/grade/first-secondary" || echo.User != "u-alice" {
		t.Fatalf("echo = %+v", echo)
	}

	if _, err := c.Public.Grades(ctx); err != nil {
		t.Fatalf("Grades: %v", err)
	}
	for _, r := range srv.RequestsTo("/grades") {
		if r.Authorization != "" {
			t.Fatal("public call carried a token")
		}
	}
}
