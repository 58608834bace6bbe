// Package attempt runs one quiz or task attempt: load, optional instructions, timed
// answering, submission and results.
//
// # States
//
//	loading -> instructions -> active -> submitting -> results
//
// Tasks skip the instructions state and carry no countdown. A failed submission returns
// the attempt to active so the student can retry. A quiz the student already took loads
// straight into results with [Attempt.Previous] set.
//
// # Answers
//
// Answers are recorded per question index. On submission they are normalized against
// the question type: a multiple-choice answer must be one of the option ids, a
// true/false answer must be one of the two literals, and anything else passes through.
// A quiz refuses to submit while any normalized answer is empty, unless the countdown
// ran out. Question content other than its type and option ids is kept opaque.
package attempt
