package attempt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	goTutor "github.com/MrEthical07/goTutor"
)

// Kind selects the quiz or task workflow.
type Kind int

const (
	KindQuiz Kind = iota
	KindTask
)

func (k Kind) String() string {
	if k == KindTask {
		return "task"
	}
	return "quiz"
}

// State is the attempt lifecycle position.
type State string

const (
	StateLoading      State = "loading"
	StateInstructions State = "instructions"
	StateActive       State = "active"
	StateSubmitting   State = "submitting"
	StateResults      State = "results"
	// StateError means the attempt could not be loaded.
	StateError State = "error"
)

var (
	// ErrInvalidState is returned when an operation is not allowed in the current state.
	ErrInvalidState = errors.New("attempt: operation not allowed in current state")
	// ErrOutOfRange is returned for a question index outside the attempt.
	ErrOutOfRange = errors.New("attempt: question index out of range")
	// ErrUnanswered is returned by Submit while a quiz answer is empty.
	ErrUnanswered = errors.New("attempt: all questions must be answered")
	// ErrNoQuestions is returned by Load when the backend sent an empty attempt.
	ErrNoQuestions = errors.New("attempt: no questions")
)

// Backend loads and submits one kind of attempt.
type Backend interface {
	Load(ctx context.Context, id string) (json.RawMessage, error)
	Submit(ctx context.Context, id string, payload any) (json.RawMessage, error)
}

// QuizSubmission is the body posted to a quiz submit endpoint.
type QuizSubmission struct {
	Answers   []string `json:"answers"`
	StartedAt string   `json:"startedAt"`
}

// TaskSubmission is the body posted to a task submit endpoint. StartedAt is Unix
// milliseconds.
type TaskSubmission struct {
	Answers   []any `json:"answers"`
	StartedAt int64 `json:"startedAt"`
}

// PreviousResult is the earlier score the backend reports when a quiz cannot be
// retaken.
type PreviousResult struct {
	Score   float64         `json:"score"`
	Grade   json.RawMessage `json:"grade,omitempty"`
	Message string          `json:"-"`
}

// Attempt is one quiz or task attempt. It is safe for concurrent use; network calls
// run without holding the lock.
type Attempt struct {
	kind    Kind
	id      string
	backend Backend
	now     func() time.Time
	tick    time.Duration

	mu        sync.Mutex
	state     State
	meta      json.RawMessage
	questions []Question
	answers   map[int]string
	current   int
	limit     time.Duration
	remaining int
	expired   bool
	startedAt time.Time
	result    json.RawMessage
	previous  *PreviousResult
}

// Option configures an Attempt.
type Option func(*Attempt)

// WithClock overrides the clock used for the start timestamp.
func WithClock(now func() time.Time) Option {
	return func(a *Attempt) { a.now = now }
}

// WithTickInterval overrides the countdown step used by [Attempt.Countdown]. Each tick
// still counts as one second.
func WithTickInterval(d time.Duration) Option {
	return func(a *Attempt) { a.tick = d }
}

func New(kind Kind, id string, backend Backend, opts ...Option) *Attempt {
	a := &Attempt{
		kind:    kind,
		id:      id,
		backend: backend,
		now:     time.Now,
		tick:    time.Second,
		state:   StateLoading,
		answers: make(map[int]string),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

/*
====================================
LOADING
====================================
*/

type loadedBody struct {
	Quiz *struct {
		TimeLimit float64 `json:"timeLimit"`
	} `json:"quiz"`
	Questions []Question `json:"questions"`
}

// Load fetches the attempt. A quiz moves to instructions with the countdown set from
// its time limit; a task moves straight to active.
func (a *Attempt) Load(ctx context.Context) error {
	a.mu.Lock()
	if a.state != StateLoading && a.state != StateError {
		a.mu.Unlock()
		return fmt.Errorf("%w: load in %s", ErrInvalidState, a.state)
	}
	a.state = StateLoading
	a.mu.Unlock()

	raw, err := a.backend.Load(ctx, a.id)

	a.mu.Lock()
	defer a.mu.Unlock()
	if err != nil {
		if prev := previousResult(err); prev != nil && a.kind == KindQuiz {
			a.previous = prev
			a.state = StateResults
			return err
		}
		a.state = StateError
		return err
	}

	meta, body, err := unwrapData(raw)
	if err != nil {
		a.state = StateError
		return fmt.Errorf("attempt: decode %s: %w", a.kind, err)
	}
	if len(body.Questions) == 0 {
		a.state = StateError
		return ErrNoQuestions
	}

	a.meta = meta
	a.questions = body.Questions
	if a.kind == KindQuiz {
		if body.Quiz != nil {
			a.limit = time.Duration(body.Quiz.TimeLimit * float64(time.Minute))
		}
		a.remaining = int(a.limit / time.Second)
		a.state = StateInstructions
		return nil
	}
	a.startedAt = a.now()
	a.state = StateActive
	return nil
}

// unwrapData accepts both {"data": {...}} and a bare object.
func unwrapData(raw json.RawMessage) (json.RawMessage, loadedBody, error) {
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, loadedBody{}, err
	}
	inner := raw
	if len(env.Data) > 0 && string(env.Data) != "null" {
		inner = env.Data
	}
	var body loadedBody
	if err := json.Unmarshal(inner, &body); err != nil {
		return nil, loadedBody{}, err
	}
	return inner, body, nil
}

func previousResult(err error) *PreviousResult {
	var he *goTutor.HTTPError
	if !errors.As(err, &he) || len(he.Data) == 0 {
		return nil
	}
	var body struct {
		PreviousResult *PreviousResult `json:"previousResult"`
	}
	if json.Unmarshal(he.Data, &body) != nil || body.PreviousResult == nil {
		return nil
	}
	body.PreviousResult.Message = he.Message
	return body.PreviousResult
}

// Begin leaves the quiz instructions and starts the clock.
func (a *Attempt) Begin() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != StateInstructions {
		return fmt.Errorf("%w: begin in %s", ErrInvalidState, a.state)
	}
	a.startedAt = a.now()
	a.state = StateActive
	return nil
}

/*
====================================
ANSWERING
====================================
*/

// Answer records the answer for question index, replacing any earlier one.
func (a *Attempt) Answer(index int, answer string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != StateActive {
		return fmt.Errorf("%w: answer in %s", ErrInvalidState, a.state)
	}
	if index < 0 || index >= len(a.questions) {
		return ErrOutOfRange
	}
	a.answers[index] = answer
	return nil
}

// Next moves to the following question and reports whether it moved.
func (a *Attempt) Next() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.current >= len(a.questions)-1 {
		return false
	}
	a.current++
	return true
}

// Prev moves to the previous question and reports whether it moved.
func (a *Attempt) Prev() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.current == 0 {
		return false
	}
	a.current--
	return true
}

func (a *Attempt) GoTo(index int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if index < 0 || index >= len(a.questions) {
		return ErrOutOfRange
	}
	a.current = index
	return nil
}

/*
====================================
COUNTDOWN
====================================
*/

// Tick advances the quiz countdown by one second. It reports true exactly once, on the
// tick that reaches zero; the caller then submits with [Attempt.SubmitExpired]. From then
// on the attempt is expired and every submit accepts empty answers.
func (a *Attempt) Tick() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.kind != KindQuiz || a.state != StateActive || a.remaining <= 0 {
		return false
	}
	a.remaining--
	if a.remaining == 0 {
		a.expired = true
	}
	return a.expired
}

// Countdown ticks until the time runs out, then submits. It returns when ctx is done,
// the countdown is not running, or the automatic submission finished.
func (a *Attempt) Countdown(ctx context.Context) (json.RawMessage, error) {
	ticker := time.NewTicker(a.tick)
	defer ticker.Stop()
	for {
		a.mu.Lock()
		running := a.kind == KindQuiz && a.state == StateActive && a.remaining > 0
		a.mu.Unlock()
		if !running {
			return nil, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			if a.Tick() {
				return a.SubmitExpired(ctx)
			}
		}
	}
}

/*
====================================
SUBMISSION
====================================
*/

// Payload builds the submission body from the current answers. For a quiz it fails
// with ErrUnanswered while any normalized answer is empty.
func (a *Attempt) Payload() (any, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.payload(false)
}

func (a *Attempt) payload(allowEmpty bool) (any, error) {
	started := a.startedAt
	if started.IsZero() {
		started = a.now()
	}
	if a.kind == KindTask {
		return TaskSubmission{
			Answers:   NormalizeTaskAnswers(a.questions, a.answers),
			StartedAt: started.UnixMilli(),
		}, nil
	}
	answers := NormalizeQuizAnswers(a.questions, a.answers)
	if i := firstEmpty(answers); i >= 0 && !allowEmpty {
		return nil, fmt.Errorf("%w: question %d", ErrUnanswered, i+1)
	}
	return QuizSubmission{
		Answers:   answers,
		StartedAt: started.UTC().Format(time.RFC3339Nano),
	}, nil
}

// Submit sends the answers. On success the attempt moves to results; on failure it
// returns to active. Once the countdown has expired Submit behaves like SubmitExpired,
// so a failed automatic submission can be retried.
func (a *Attempt) Submit(ctx context.Context) (json.RawMessage, error) {
	return a.submit(ctx, false)
}

// SubmitExpired submits after the countdown reached zero. Empty answers are sent as
// they are.
func (a *Attempt) SubmitExpired(ctx context.Context) (json.RawMessage, error) {
	return a.submit(ctx, true)
}

func (a *Attempt) submit(ctx context.Context, allowEmpty bool) (json.RawMessage, error) {
	a.mu.Lock()
	if a.state != StateActive {
		state := a.state
		a.mu.Unlock()
		return nil, fmt.Errorf("%w: submit in %s", ErrInvalidState, state)
	}
	payload, err := a.payload(allowEmpty || a.expired)
	if err != nil {
		a.mu.Unlock()
		return nil, err
	}
	a.state = StateSubmitting
	a.mu.Unlock()

	res, err := a.backend.Submit(ctx, a.id, payload)

	a.mu.Lock()
	defer a.mu.Unlock()
	if err != nil {
		a.state = StateActive
		return nil, err
	}
	a.result = res
	a.state = StateResults
	return res, nil
}

/*
====================================
INSPECTION
====================================
*/

func (a *Attempt) Kind() Kind { return a.kind }

func (a *Attempt) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Meta returns the loaded quiz or task object.
func (a *Attempt) Meta() json.RawMessage {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.meta
}

func (a *Attempt) Questions() []Question {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]Question(nil), a.questions...)
}

// Current returns the index of the question on screen.
func (a *Attempt) Current() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current
}

// Answers returns a copy of the recorded answers by question index.
func (a *Attempt) Answers() map[int]string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(map[int]string, len(a.answers))
	for k, v := range a.answers {
		out[k] = v
	}
	return out
}

// Answered counts recorded answers, valid or not.
func (a *Attempt) Answered() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.answers)
}

// Expired reports whether the quiz countdown reached zero.
func (a *Attempt) Expired() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.expired
}

// Remaining returns the countdown in whole seconds.
func (a *Attempt) Remaining() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.remaining
}

func (a *Attempt) TimeLimit() time.Duration {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.limit
}

func (a *Attempt) StartedAt() time.Time {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.startedAt
}

func (a *Attempt) Result() json.RawMessage {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.result
}

// Previous is set when the quiz was already taken and could not be started again.
func (a *Attempt) Previous() *PreviousResult {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.previous
}

// FormatRemaining renders seconds as mm:ss.
func FormatRemaining(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
