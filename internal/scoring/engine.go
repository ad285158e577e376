// Package scoring grades submitted answers against the live answer key.
package scoring

import (
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/stemsi/practice-backend/internal/model"
)

var (
	// ErrQuestionNotFound means a snapshot question has no gradable row.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrChoiceNotFound means a submitted choice id does not exist.
	ErrChoiceNotFound = errors.New("choice not found")
)

// AnswerKey is the live data the engine grades against. All maps are keyed by
// canonical (original) question id unless noted otherwise.
type AnswerKey struct {
	// Questions holds the current version of every snapshot question.
	Questions map[uuid.UUID]model.Question
	// CorrectChoices holds the current, correct choices resolved from the
	// original question's original choice chains.
	CorrectChoices map[uuid.UUID][]model.Choice
	// ChoiceLabels maps, per question, any of its choice node ids to a label.
	ChoiceLabels map[uuid.UUID]map[uuid.UUID]string
	// DragItemOrigins maps any drag item node id to its chain's original id.
	DragItemOrigins map[uuid.UUID]uuid.UUID
}

// Strategy grades one question type.
type Strategy interface {
	Grade(q model.Question, canonicalID uuid.UUID, answer model.AnswerInput, key *AnswerKey) (bool, error)
}

// Result is the graded outcome of an attempt.
type Result struct {
	TotalPoints int
	Questions   []model.QuestionResult
}

// Engine routes each question to the strategy for its type.
type Engine struct {
	strategies map[model.QuestionType]Strategy
}

// NewEngine installs the built-in strategies.
func NewEngine() *Engine {
	return &Engine{
		strategies: map[model.QuestionType]Strategy{
			model.QuestionTypeMultipleChoice:  multipleChoice{},
			model.QuestionTypeFillInTheBlanks: fillInTheBlanks{},
			model.QuestionTypeMatching:        matching{},
			model.QuestionTypeDragAndDrop:     dragAndDrop{},
		},
	}
}

// Score grades every snapshot question that has a submitted answer. Questions
// without an answer are skipped, neither scored nor penalised.
func (e *Engine) Score(snapshot *model.AttemptSnapshot, answers map[uuid.UUID]model.AnswerInput, key *AnswerKey) (*Result, error) {
	res := &Result{Questions: []model.QuestionResult{}}

	for _, qid := range snapshot.QuestionIDs() {
		answer, ok := answers[qid]
		if !ok {
			continue
		}

		q, ok := key.Questions[qid]
		if !ok {
			return nil, fmt.Errorf("question %s: %w", qid, ErrQuestionNotFound)
		}

		strategy, ok := e.strategies[q.QuestionType]
		if !ok {
			return nil, fmt.Errorf("question %s: unsupported type %q", qid, q.QuestionType)
		}

		correct, err := strategy.Grade(q, qid, answer, key)
		if err != nil {
			return nil, fmt.Errorf("grade question %s: %w", qid, err)
		}

		qr := Reveal(q, qid, key)
		qr.IsCorrect = correct
		a := answer
		qr.Answer = &a
		if correct {
			qr.PointsAwarded = q.Point
			if countsTowardTotal(q.QuestionType) {
				res.TotalPoints += q.Point
			}
		}
		res.Questions = append(res.Questions, qr)
	}

	SortResults(res.Questions)
	return res, nil
}

// Reveal builds a result row carrying the answer key of q, without grading.
func Reveal(q model.Question, canonicalID uuid.UUID, key *AnswerKey) model.QuestionResult {
	qr := model.QuestionResult{
		QuestionID:    canonicalID,
		QuestionType:  q.QuestionType,
		QuestionOrder: q.QuestionOrder,
		Explanation:   q.Explanation,
	}
	switch q.QuestionType {
	case model.QuestionTypeMultipleChoice:
		for _, c := range key.CorrectChoices[canonicalID] {
			qr.CorrectChoiceIDs = append(qr.CorrectChoiceIDs, c.ID)
		}
	case model.QuestionTypeFillInTheBlanks:
		qr.CorrectAnswer = q.CorrectAnswer
	case model.QuestionTypeMatching:
		qr.CorrectAnswerForMatching = q.CorrectAnswerForMatching
	case model.QuestionTypeDragAndDrop:
		qr.CorrectDragItemID = q.DragItemID
	}
	return qr
}

// SortResults orders results by question order, then id for stability.
func SortResults(rs []model.QuestionResult) {
	sort.SliceStable(rs, func(i, j int) bool {
		if rs[i].QuestionOrder != rs[j].QuestionOrder {
			return rs[i].QuestionOrder < rs[j].QuestionOrder
		}
		return rs[i].QuestionID.String() < rs[j].QuestionID.String()
	})
}

// countsTowardTotal mirrors the existing product behaviour: drag-and-drop
// questions are graded and reported but not added to the attempt total.
// TODO: confirm with product whether drag-and-drop points should be totaled.
func countsTowardTotal(t model.QuestionType) bool {
	return t != model.QuestionTypeDragAndDrop
}
