package scoring

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/stemsi/practice-backend/internal/model"
)

type multipleChoice struct{}

// Grade compares label sets, so a learner who picked a choice that was later
// re-edited (new id, same label) is still graded against the fixed key.
func (multipleChoice) Grade(_ model.Question, canonicalID uuid.UUID, answer model.AnswerInput, key *AnswerKey) (bool, error) {
	labels := key.ChoiceLabels[canonicalID]
	submitted := make(map[string]struct{}, len(answer.Choices))
	for _, id := range answer.Choices {
		label, ok := labels[id]
		if !ok {
			return false, fmt.Errorf("choice %s: %w", id, ErrChoiceNotFound)
		}
		submitted[label] = struct{}{}
	}

	expected := make(map[string]struct{})
	for _, c := range key.CorrectChoices[canonicalID] {
		expected[c.Label] = struct{}{}
	}

	if len(expected) == 0 || len(submitted) != len(expected) {
		return false, nil
	}
	for label := range expected {
		if _, ok := submitted[label]; !ok {
			return false, nil
		}
	}
	return true, nil
}

type fillInTheBlanks struct{}

func (fillInTheBlanks) Grade(q model.Question, _ uuid.UUID, answer model.AnswerInput, _ *AnswerKey) (bool, error) {
	return answer.DataFilled == q.CorrectAnswer, nil
}

type matching struct{}

func (matching) Grade(q model.Question, _ uuid.UUID, answer model.AnswerInput, _ *AnswerKey) (bool, error) {
	return answer.DataMatched == q.CorrectAnswerForMatching, nil
}

type dragAndDrop struct{}

func (dragAndDrop) Grade(q model.Question, _ uuid.UUID, answer model.AnswerInput, key *AnswerKey) (bool, error) {
	if answer.DragItemID == nil || q.DragItemID == nil {
		return false, nil
	}
	if *answer.DragItemID == *q.DragItemID {
		return true, nil
	}
	// An edited drag item keeps the identity of its chain.
	got, okGot := key.DragItemOrigins[*answer.DragItemID]
	want, okWant := key.DragItemOrigins[*q.DragItemID]
	return okGot && okWant && got == want, nil
}
