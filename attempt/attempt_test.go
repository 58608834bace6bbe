package attempt

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"sync"
	"testing"
	"time"

	goTutor "github.com/MrEthical07/goTutor"
	"github.com/MrEthical07/goTutor/api"
)

var start = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func clock() time.Time { return start }

const quizBody = `{"data":{
	"quiz":{"title":"Algebra","timeLimit":2},
	"questions":[
		{"_id":"q1","type":"اختر من متعدد","options":[{"_id":"o1","text":"1"},{"_id":"o2","text":"2"}]},
		{"_id":"q2","type":"صح وخطأ"},
		{"_id":"q3","type":"نص قصير"}
	]}}`

const taskBody = `{"data":{
	"title":"Homework",
	"questions":[
		{"_id":"t1","type":"اختر من متعدد","options":["a","b"]},
		{"_id":"t2","type":"صح وخطأ"},
		{"_id":"t3","type":"صح وخطأ"}
	]}}`

type fakeBackend struct {
	mu        sync.Mutex
	load      json.RawMessage
	loadErr   error
	submitErr error
	submitted []any
}

func (f *fakeBackend) Load(context.Context, string) (json.RawMessage, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.load, nil
}

func (f *fakeBackend) Submit(_ context.Context, _ string, payload any) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted = append(f.submitted, payload)
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	return json.RawMessage(`{"score":100}`), nil
}

func loadedQuiz(t *testing.T, b *fakeBackend) *Attempt {
	t.Helper()
	if b.load == nil {
		b.load = json.RawMessage(quizBody)
	}
	a := New(KindQuiz, "quiz-1", b, WithClock(clock))
	if err := a.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return a
}

func TestQuizLifecycle(t *testing.T) {
	b := &fakeBackend{}
	a := loadedQuiz(t, b)

	if a.State() != StateInstructions {
		t.Fatalf("state = %s", a.State())
	}
	if a.Remaining() != 120 || a.TimeLimit() != 2*time.Minute {
		t.Fatalf("remaining = %d limit = %s", a.Remaining(), a.TimeLimit())
	}
	if err := a.Answer(0, "o1"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("answer before begin: %v", err)
	}
	if err := a.Begin(); err != nil {
		t.Fatalf("Begin: %v", err)
	}

	for i, ans := range []string{"o2", AnswerFalse, "x = 3"} {
		if err := a.Answer(i, ans); err != nil {
			t.Fatalf("Answer %d: %v", i, err)
		}
	}
	res, err := a.Submit(context.Background())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if string(res) != `{"score":100}` || a.State() != StateResults {
		t.Fatalf("result = %s state = %s", res, a.State())
	}

	want := QuizSubmission{
		Answers:   []string{"o2", AnswerFalse, "x = 3"},
		StartedAt: "2026-03-01T09:00:00Z",
	}
	if got := b.submitted[0]; !reflect.DeepEqual(got, want) {
		t.Fatalf("payload = %#v", got)
	}
}

func TestQuizRefusesUnanswered(t *testing.T) {
	b := &fakeBackend{}
	a := loadedQuiz(t, b)
	_ = a.Begin()

	_ = a.Answer(0, "not-an-option")
	_ = a.Answer(1, AnswerTrue)
	_ = a.Answer(2, "text")

	if _, err := a.Submit(context.Background()); !errors.Is(err, ErrUnanswered) {
		t.Fatalf("err = %v", err)
	}
	if a.State() != StateActive || len(b.submitted) != 0 {
		t.Fatalf("state = %s submitted = %d", a.State(), len(b.submitted))
	}
	if a.Answered() != 3 {
		t.Fatalf("answered = %d", a.Answered())
	}
}

func TestSubmitFailureReturnsToActive(t *testing.T) {
	b := &fakeBackend{submitErr: errors.New("boom")}
	a := loadedQuiz(t, b)
	_ = a.Begin()
	_ = a.Answer(0, "o1")
	_ = a.Answer(1, AnswerTrue)
	_ = a.Answer(2, "x")

	if _, err := a.Submit(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if a.State() != StateActive {
		t.Fatalf("state = %s", a.State())
	}

	b.submitErr = nil
	if _, err := a.Submit(context.Background()); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if _, err := a.Submit(context.Background()); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("double submit: %v", err)
	}
}

func TestNavigationBounded(t *testing.T) {
	a := loadedQuiz(t, &fakeBackend{})
	if a.Prev() {
		t.Fatal("moved before first question")
	}
	if !a.Next() || !a.Next() || a.Next() {
		t.Fatal("next bounds")
	}
	if a.Current() != 2 {
		t.Fatalf("current = %d", a.Current())
	}
	if err := a.GoTo(3); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("GoTo(3) = %v", err)
	}
	if err := a.GoTo(0); err != nil || a.Current() != 0 {
		t.Fatalf("GoTo(0) = %v current %d", err, a.Current())
	}
	_ = a.Begin()
	if err := a.Answer(-1, "x"); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("Answer(-1) = %v", err)
	}
}

func TestCountdownAutoSubmits(t *testing.T) {
	b := &fakeBackend{load: json.RawMessage(`{"data":{"quiz":{"timeLimit":1},"questions":[{"type":"صح وخطأ"}]}}`)}
	a := New(KindQuiz, "quiz-1", b, WithClock(clock), WithTickInterval(time.Millisecond))
	if err := a.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	if a.Remaining() != 60 {
		t.Fatalf("remaining = %d", a.Remaining())
	}
	_ = a.Begin()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	res, err := a.Countdown(ctx)
	if err != nil {
		t.Fatalf("Countdown: %v", err)
	}
	if res == nil || a.State() != StateResults || a.Remaining() != 0 {
		t.Fatalf("res = %s state = %s remaining = %d", res, a.State(), a.Remaining())
	}
	sub := b.submitted[0].(QuizSubmission)
	if !reflect.DeepEqual(sub.Answers, []string{""}) {
		t.Fatalf("answers = %#v", sub.Answers)
	}
}

func TestExpiredSubmitFailureCanBeRetried(t *testing.T) {
	b := &fakeBackend{
		load:      json.RawMessage(`{"data":{"quiz":{"timeLimit":1},"questions":[{"type":"صح وخطأ"},{"type":"نص قصير"}]}}`),
		submitErr: errors.New("offline"),
	}
	a := New(KindQuiz, "quiz-1", b, WithClock(clock), WithTickInterval(time.Millisecond))
	if err := a.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	_ = a.Begin()
	_ = a.Answer(0, AnswerTrue)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := a.Countdown(ctx); err == nil {
		t.Fatal("expected submit error")
	}
	if a.State() != StateActive || a.Remaining() != 0 || !a.Expired() {
		t.Fatalf("state = %s remaining = %d expired = %v", a.State(), a.Remaining(), a.Expired())
	}
	if res, err := a.Countdown(ctx); res != nil || err != nil {
		t.Fatalf("second countdown = %s, %v", res, err)
	}

	b.submitErr = nil
	if _, err := a.Submit(ctx); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if a.State() != StateResults || len(b.submitted) != 2 {
		t.Fatalf("state = %s submitted = %d", a.State(), len(b.submitted))
	}
	sub := b.submitted[1].(QuizSubmission)
	if !reflect.DeepEqual(sub.Answers, []string{AnswerTrue, ""}) {
		t.Fatalf("answers = %#v", sub.Answers)
	}
}

func TestTickOnlyWhileActive(t *testing.T) {
	a := loadedQuiz(t, &fakeBackend{})
	if a.Tick() || a.Remaining() != 120 {
		t.Fatal("ticked before begin")
	}
	_ = a.Begin()
	a.Tick()
	if a.Remaining() != 119 {
		t.Fatalf("remaining = %d", a.Remaining())
	}
}

func TestTaskLifecycle(t *testing.T) {
	b := &fakeBackend{load: json.RawMessage(taskBody)}
	a := New(KindTask, "task-1", b, WithClock(clock))
	if err := a.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	if a.State() != StateActive || !a.StartedAt().Equal(start) {
		t.Fatalf("state = %s started = %s", a.State(), a.StartedAt())
	}
	if err := a.Begin(); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("Begin on task = %v", err)
	}

	_ = a.Answer(0, "b")
	_ = a.Answer(1, AnswerTrue)
	if _, err := a.Submit(context.Background()); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	want := TaskSubmission{Answers: []any{"b", true, ""}, StartedAt: start.UnixMilli()}
	if got := b.submitted[0]; !reflect.DeepEqual(got, want) {
		t.Fatalf("payload = %#v", got)
	}
}

func TestLoadPreviousResult(t *testing.T) {
	b := &fakeBackend{loadErr: &goTutor.HTTPError{
		Status:  http.StatusBadRequest,
		Message: "already taken",
		Data:    json.RawMessage(`{"message":"already taken","previousResult":{"score":80,"grade":"B"}}`),
	}}
	a := New(KindQuiz, "quiz-1", b)
	if err := a.Load(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	prev := a.Previous()
	if a.State() != StateResults || prev == nil || prev.Score != 80 || prev.Message != "already taken" {
		t.Fatalf("state = %s previous = %+v", a.State(), prev)
	}
}

func TestLoadFailure(t *testing.T) {
	a := New(KindQuiz, "quiz-1", &fakeBackend{loadErr: errors.New("down")})
	if err := a.Load(context.Background()); err == nil || a.State() != StateError {
		t.Fatalf("err = %v state = %s", err, a.State())
	}

	a = New(KindTask, "task-1", &fakeBackend{load: json.RawMessage(`{"data":{"questions":[]}}`)})
	if err := a.Load(context.Background()); !errors.Is(err, ErrNoQuestions) {
		t.Fatalf("empty = %v", err)
	}
}

func TestNormalizeQuizAnswers(t *testing.T) {
	qs := []Question{
		{Type: TypeMultipleChoice, Options: []Choice{{ID: "a"}}},
		{Type: TypeMultipleChoice},
		{Type: TypeTrueFalse},
		{Type: TypeShortText},
		{Type: TypeShortText},
	}
	got := NormalizeQuizAnswers(qs, map[int]string{0: "z", 1: "free", 2: "maybe", 3: "ok"})
	want := []string{"", "free", "", "ok", ""}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %#v", got)
	}
}

func TestChoiceDecoding(t *testing.T) {
	var q Question
	if err := json.Unmarshal([]byte(`{"_id":"q","type":"x","options":["a",{"_id":"b","text":"B"}],"image":"u"}`), &q); err != nil {
		t.Fatal(err)
	}
	if len(q.Options) != 2 || q.Options[0].ID != "a" || q.Options[1].ID != "b" {
		t.Fatalf("options = %+v", q.Options)
	}
	if len(q.Raw) == 0 {
		t.Fatal("raw not kept")
	}
}

func TestFormatRemaining(t *testing.T) {
	for in, want := range map[int]string{0: "00:00", 59: "00:59", 125: "02:05", -3: "00:00"} {
		if got := FormatRemaining(in); got != want {
			t.Errorf("FormatRemaining(%d) = %q", in, got)
		}
	}
}

type routeRequester struct {
	calls []string
	body  any
}

func (r *routeRequester) Request(_ context.Context, method, path string, body, out any, _ ...goTutor.RequestOption) error {
	r.calls = append(r.calls, method+" "+path)
	if body != nil {
		r.body = body
	}
	raw := json.RawMessage(`{"ok":true}`)
	if method == http.MethodGet {
		raw = json.RawMessage(quizBody)
	}
	*out.(*json.RawMessage) = raw
	return nil
}

func TestQuizOverAPIClient(t *testing.T) {
	r := &routeRequester{}
	a := NewQuiz(api.New(r), "q 1", WithClock(clock))
	if err := a.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	_ = a.Begin()
	_ = a.Answer(0, "o1")
	_ = a.Answer(1, AnswerTrue)
	_ = a.Answer(2, "x")
	if _, err := a.Submit(context.Background()); err != nil {
		t.Fatal(err)
	}
	want := []string{"GET /api/quizzes/q%201/start", "POST /api/quizzes/q%201/submit"}
	if !reflect.DeepEqual(r.calls, want) {
		t.Fatalf("calls = %v", r.calls)
	}
	if _, ok := r.body.(QuizSubmission); !ok {
		t.Fatalf("body = %T", r.body)
	}
}
