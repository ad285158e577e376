package model

import (
	"github.com/google/uuid"
	"github.com/stemsi/practice-backend/internal/version"
)

// QuestionType enumerates the gradable question kinds.
type QuestionType string

const (
	QuestionTypeMultipleChoice  QuestionType = "MULTIPLE_CHOICE"
	QuestionTypeFillInTheBlanks QuestionType = "FILL_IN_THE_BLANKS"
	QuestionTypeMatching        QuestionType = "MATCHING"
	QuestionTypeDragAndDrop     QuestionType = "DRAG_AND_DROP"
)

// Question is a single gradable question. Questions are attached to the
// original id of their group.
type Question struct {
	version.Node
	QuestionGroupID          uuid.UUID    `json:"question_group_id"`
	QuestionType             QuestionType `json:"question_type"`
	QuestionOrder            int          `json:"question_order"`
	Point                    int          `json:"point"`
	Content                  string       `json:"content"`
	Explanation              string       `json:"explanation"`
	NumberOfCorrectAnswers   int          `json:"number_of_correct_answers"`
	CorrectAnswer            string       `json:"correct_answer"`
	CorrectAnswerForMatching string       `json:"correct_answer_for_matching"`
	DragItemID               *uuid.UUID   `json:"drag_item_id,omitempty"`
}

// Choice is one option of a multiple choice question. Choices are attached to
// the original id of their question.
type Choice struct {
	version.Node
	QuestionID  uuid.UUID `json:"question_id"`
	Label       string    `json:"label"`
	Content     string    `json:"content"`
	ChoiceOrder int       `json:"choice_order"`
	IsCorrect   bool      `json:"is_correct"`
}

// EditQuestionRequest is the payload for appending a new question version.
type EditQuestionRequest struct {
	Content                  *string    `json:"content" binding:"omitempty,max=5000"`
	Explanation              *string    `json:"explanation" binding:"omitempty,max=5000"`
	Point                    *int       `json:"point" binding:"omitempty,min=0,max=100"`
	QuestionOrder            *int       `json:"question_order" binding:"omitempty,min=0"`
	NumberOfCorrectAnswers   *int       `json:"number_of_correct_answers" binding:"omitempty,min=0"`
	CorrectAnswer            *string    `json:"correct_answer" binding:"omitempty,max=1000"`
	CorrectAnswerForMatching *string    `json:"correct_answer_for_matching" binding:"omitempty,max=1000"`
	DragItemID               *uuid.UUID `json:"drag_item_id" binding:"omitempty"`
}

// EditChoiceRequest is the payload for appending a new choice version.
type EditChoiceRequest struct {
	Label       *string `json:"label" binding:"omitempty,choice_label"`
	Content     *string `json:"content" binding:"omitempty,max=2000"`
	ChoiceOrder *int    `json:"choice_order" binding:"omitempty,min=0"`
	IsCorrect   *bool   `json:"is_correct" binding:"omitempty"`
}
