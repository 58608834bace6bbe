package attempt

import (
	"context"
	"encoding/json"

	"github.com/MrEthical07/goTutor/api"
)

type quizBackend struct{ q *api.Quizzes }

// QuizBackend starts and submits quizzes through the API client.
func QuizBackend(q *api.Quizzes) Backend { return quizBackend{q: q} }

func (b quizBackend) Load(ctx context.Context, id string) (json.RawMessage, error) {
	return b.q.Start(ctx, id)
}

func (b quizBackend) Submit(ctx context.Context, id string, payload any) (json.RawMessage, error) {
	return b.q.Submit(ctx, id, payload)
}

type taskBackend struct{ t *api.Tasks }

// TaskBackend loads and submits tasks through the API client.
func TaskBackend(t *api.Tasks) Backend { return taskBackend{t: t} }

func (b taskBackend) Load(ctx context.Context, id string) (json.RawMessage, error) {
	return b.t.Get(ctx, id)
}

func (b taskBackend) Submit(ctx context.Context, id string, payload any) (json.RawMessage, error) {
	return b.t.Submit(ctx, id, payload)
}

// NewQuiz builds a quiz attempt over c.
func NewQuiz(c *api.Client, id string, opts ...Option) *Attempt {
	return New(KindQuiz, id, QuizBackend(c.Quizzes), opts...)
}

// NewTask builds a task attempt over c.
func NewTask(c *api.Client, id string, opts ...Option) *Attempt {
	return New(KindTask, id, TaskBackend(c.Tasks), opts...)
}
