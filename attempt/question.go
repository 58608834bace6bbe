package attempt

import (
	"bytes"
	"encoding/json"
)

// Question types as the backend spells them.
const (
	TypeMultipleChoice = "اختر من متعدد"
	TypeTrueFalse      = "صح وخطأ"
	TypeShortText      = "نص قصير"
)

// True/false answer literals.
const (
	AnswerTrue  = "صح"
	AnswerFalse = "خطأ"
)

// Question is the part of a backend question the workflow reads. Raw keeps the full
// object for rendering.
type Question struct {
	ID      string
	Type    string
	Options []Choice
	Raw     json.RawMessage
}

func (q *Question) UnmarshalJSON(data []byte) error {
	var wire struct {
		ID      string   `json:"_id"`
		Type    string   `json:"type"`
		Options []Choice `json:"options"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	q.ID = wire.ID
	q.Type = wire.Type
	q.Options = wire.Options
	q.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// Choice is one multiple-choice option. The backend sends either a bare string, which
// is then its own id, or an object with an "_id".
type Choice struct {
	ID  string
	Raw json.RawMessage
}

func (c *Choice) UnmarshalJSON(data []byte) error {
	c.Raw = append(json.RawMessage(nil), data...)
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		return json.Unmarshal(trimmed, &c.ID)
	}
	var obj struct {
		ID string `json:"_id"`
	}
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return err
	}
	c.ID = obj.ID
	return nil
}

func (q Question) hasOption(id string) bool {
	for _, c := range q.Options {
		if c.ID == id {
			return true
		}
	}
	return false
}

// NormalizeQuizAnswers returns one answer per question, in question order. Invalid and
// missing answers become "".
func NormalizeQuizAnswers(questions []Question, answers map[int]string) []string {
	out := make([]string, len(questions))
	for i, q := range questions {
		a, ok := answers[i]
		if !ok {
			continue
		}
		switch q.Type {
		case TypeMultipleChoice:
			if q.Options != nil && !q.hasOption(a) {
				a = ""
			}
		case TypeTrueFalse:
			if a != AnswerTrue && a != AnswerFalse {
				a = ""
			}
		}
		out[i] = a
	}
	return out
}

// NormalizeTaskAnswers returns one answer per question. True/false answers become
// booleans; an unrecognized true/false answer and any missing answer become "".
func NormalizeTaskAnswers(questions []Question, answers map[int]string) []any {
	out := make([]any, len(questions))
	for i, q := range questions {
		a := answers[i]
		if q.Type == TypeTrueFalse {
			switch a {
			case AnswerTrue:
				out[i] = true
			case AnswerFalse:
				out[i] = false
			default:
				out[i] = ""
			}
			continue
		}
		out[i] = a
	}
	return out
}

// firstEmpty returns the index of the first empty answer, or -1.
func firstEmpty(answers []string) int {
	for i, a := range answers {
		if a == "" {
			return i
		}
	}
	return -1
}
