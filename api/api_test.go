package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	goTutor "github.com/MrEthical07/goTutor"
	"github.com/MrEthical07/goTutor/internal/testserver"
)

type recordedCall struct {
	method string
	path   string
	body   any
	opts   int
}

type fakeRequester struct {
	calls []recordedCall
	resp  string
	err   error
}

func (f *fakeRequester) Request(_ context.Context, method, path string, body, out any, opts ...goTutor.RequestOption) error {
	f.calls = append(f.calls, recordedCall{method: method, path: path, body: body, opts: len(opts)})
	if f.err != nil {
		return f.err
	}
	if raw, ok := out.(*json.RawMessage); ok && f.resp != "" {
		*raw = json.RawMessage(f.resp)
	}
	return nil
}

func TestRoutes(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name     string
		call     func(*Client) error
		method   string
		path     string
		unauthed bool
	}{
		{"courses list", func(c *Client) error { _, err := c.Courses.List(ctx); return err }, http.MethodGet, "/api/courses/", false},
		{"courses get", func(c *Client) error { _, err := c.Courses.Get(ctx, "c1"); return err }, http.MethodGet, "/api/courses/c1", false},
		{"courses instructor", func(c *Client) error { _, err := c.Courses.Instructor(ctx); return err }, http.MethodGet, "/api/courses/instructor", false},
		{"courses update", func(c *Client) error { _, err := c.Courses.Update(ctx, "c1", map[string]string{}); return err }, http.MethodPut, "/api/courses/c1", false},
		{"lessons by grade", func(c *Client) error { _, err := c.Lessons.ByGrade(ctx, "ninth"); return err }, http.MethodGet, "/api/lessons/grade/ninth", false},
		{"lessons delete", func(c *Client) error { _, err := c.Lessons.Delete(ctx, "l1"); return err }, http.MethodDelete, "/api/lessons/l1", false},
		{"quiz start", func(c *Client) error { _, err := c.Quizzes.Start(ctx, "q1"); return err }, http.MethodGet, "/api/quizzes/q1/start", false},
		{"quiz submit", func(c *Client) error { _, err := c.Quizzes.Submit(ctx, "q1", map[string]any{}); return err }, http.MethodPost, "/api/quizzes/q1/submit", false},
		{"quiz results", func(c *Client) error { _, err := c.Quizzes.MyResults(ctx); return err }, http.MethodGet, "/api/quizzes/results/my-results", false},
		{"quiz result details", func(c *Client) error { _, err := c.Quizzes.ResultDetails(ctx, "r1"); return err }, http.MethodGet, "/api/quizzes/results/r1/details", false},
		{"task get", func(c *Client) error { _, err := c.Tasks.Get(ctx, "t1"); return err }, http.MethodGet, "/api/tasks/t1", false},
		{"task submit", func(c *Client) error { _, err := c.Tasks.Submit(ctx, "t1", nil); return err }, http.MethodPost, "/api/tasks/t1/submit", false},
		{"task results", func(c *Client) error { _, err := c.Tasks.MyResults(ctx); return err }, http.MethodGet, "/api/tasks/results/my-results", false},
		{"schedule create", func(c *Client) error { _, err := c.Schedule.Create(ctx, nil); return err }, http.MethodPost, "/api/schedule/", false},
		{"calendar", func(c *Client) error { _, err := c.Schedule.StudentCalendar(ctx, 3, 2026); return err }, http.MethodGet, "/api/students/calendar?month=3&year=2026", false},
		{"calendar no query", func(c *Client) error { _, err := c.Schedule.StudentCalendar(ctx, 0, 0); return err }, http.MethodGet, "/api/students/calendar", false},
		{"calendar day", func(c *Client) error { _, err := c.Schedule.StudentDayEvents(ctx, "2026-03-01"); return err }, http.MethodGet, "/api/students/calendar/day/2026-03-01", false},
		{"categories list", func(c *Client) error { _, err := c.Categories.List(ctx); return err }, http.MethodGet, "/api/categories/", false},
		{"materials by grade", func(c *Client) error { _, err := c.EducationalMaterials.ByGrade(ctx, "الصف الأول"); return err }, http.MethodGet, "/api/educational-materials/grade/%D8%A7%D9%84%D8%B5%D9%81%20%D8%A7%D9%84%D8%A3%D9%88%D9%84", false},
		{"materials update", func(c *Client) error { _, err := c.EducationalMaterials.Update(ctx, "m1", nil); return err }, http.MethodPut, "/api/educational-materials/m1", false},
		{"analytics", func(c *Client) error { _, err := c.Analytics.Dashboard(ctx); return err }, http.MethodGet, "/api/analytics/dashboard", false},
		{"public grades", func(c *Client) error { _, err := c.Public.Grades(ctx); return err }, http.MethodGet, "/grades", true},
		{"public lessons", func(c *Client) error { _, err := c.Public.Lessons(ctx, "ninth"); return err }, http.MethodGet, "/grades/ninth/lessons/public", true},
		{"signup", func(c *Client) error { _, err := c.Auth.Signup(ctx, SignupRequest{Email: "a@b"}); return err }, http.MethodPost, "/api/users/", true},
		{"resend otp", func(c *Client) error { _, err := c.Auth.ResendOTP(ctx, "a@b"); return err }, http.MethodPost, "/api/users/resend-otp", true},
		{"change password", func(c *Client) error { _, err := c.Auth.ChangePassword(ctx, ChangePasswordRequest{}); return err }, http.MethodPost, "/api/users/change-password", false},
		{"reset request", func(c *Client) error { _, err := c.Auth.RequestPasswordReset(ctx, "a@b"); return err }, http.MethodPost, "/api/users/reset-password/request", true},
		{"reset perform", func(c *Client) error { _, err := c.Auth.PerformPasswordReset(ctx, PerformResetRequest{}); return err }, http.MethodPost, "/api/users/reset-password/perform", true},
		{"forgot password", func(c *Client) error { _, err := c.Auth.ForgotPassword(ctx, "a@b"); return err }, http.MethodPost, "/auth/forgot-password", true},
		{"reset password", func(c *Client) error { _, err := c.Auth.ResetPassword(ctx, "tok", "pw", "pw"); return err }, http.MethodPost, "/auth/reset-password", true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := &fakeRequester{}
			if err := tc.call(New(f)); err != nil {
				t.Fatalf("call: %v", err)
			}
			if len(f.calls) != 1 {
				t.Fatalf("calls = %d", len(f.calls))
			}
			got := f.calls[0]
			if got.method != tc.method || got.path != tc.path {
				t.Fatalf("got %s %s, want %s %s", got.method, got.path, tc.method, tc.path)
			}
			if unauthed := got.opts > 0; unauthed != tc.unauthed {
				t.Fatalf("unauthenticated = %v, want %v", unauthed, tc.unauthed)
			}
		})
	}
}

func TestSignupDecodesTempToken(t *testing.T) {
	f := &fakeRequester{resp: `{"message":"OTP sent","tempToken":"tmp-1"}`}
	resp, err := New(f).Auth.Signup(context.Background(), SignupRequest{Email: "a@b"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.TempToken != "tmp-1" || resp.Message != "OTP sent" {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestResetPasswordMismatch(t *testing.T) {
	f := &fakeRequester{}
	if _, err := New(f).Auth.ResetPassword(context.Background(), "tok", "a", "b"); !errors.Is(err, ErrPasswordMismatch) {
		t.Fatalf("err = %v", err)
	}
	if len(f.calls) != 0 {
		t.Fatal("mismatch must not reach the backend")
	}
}

func TestErrorPassesThrough(t *testing.T) {
	want := &goTutor.HTTPError{Status: 404, Message: "Course not found"}
	f := &fakeRequester{err: want}
	if _, err := New(f).Courses.Get(context.Background(), "nope"); !errors.Is(err, want) {
		t.Fatalf("err = %v", err)
	}
}

func TestPublicWithManager(t *testing.T) {
	srv, err := testserver.New(testserver.Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer srv.Close()

	cfg := goTutor.DefaultConfig()
	cfg.BaseURL = srv.URL
	m, err := goTutor.New().WithConfig(cfg).WithHTTPClient(srv.Client()).Build()
	if err != nil {
		t.Fatal(err)
	}
	defer m.Close()
	if _, err := m.Login(context.Background(), goTutor.Credentials{Email: "alice@example.com", Password: "password"}); err != nil {
		t.Fatal(err)
	}

	c := New(m)
	if _, err := c.Public.Grade(context.Background(), "ninth"); err != nil {
		t.Fatalf("public: %v", err)
	}
	if _, err := c.Courses.List(context.Background()); err != nil {
		t.Fatalf("courses: %v", err)
	}

	if r := srv.RequestsTo("/grades/ninth"); len(r) != 1 || r[0].Authorization != "" {
		t.Fatalf("public request = %+v", r)
	}
	if r := srv.RequestsTo("/api/courses/"); len(r) != 1 || r[0].Authorization == "" {
		t.Fatalf("course request = %+v", r)
	}
}
