package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/stemsi/practice-backend/internal/model"
)

// ContentReader exposes the version-chain queries used to build and grade
// attempts. Methods named *By<Parent> return every node of every chain
// attached to the given original ids; *ByIDs return exactly the named nodes.
type ContentReader interface {
	TaskChain(ctx context.Context, taskID uuid.UUID) ([]model.Task, error)
	GroupsByTask(ctx context.Context, taskOriginalID uuid.UUID) ([]model.QuestionGroup, error)
	QuestionsByGroups(ctx context.Context, groupOriginalIDs []uuid.UUID) ([]model.Question, error)
	QuestionsByOriginals(ctx context.Context, originalIDs []uuid.UUID) ([]model.Question, error)
	ChoicesByQuestions(ctx context.Context, questionOriginalIDs []uuid.UUID) ([]model.Choice, error)
	DragItemsByGroups(ctx context.Context, groupOriginalIDs []uuid.UUID) ([]model.DragItem, error)

	GroupsByIDs(ctx context.Context, ids []uuid.UUID) ([]model.QuestionGroup, error)
	QuestionsByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Question, error)
	ChoicesByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Choice, error)
	DragItemsByIDs(ctx context.Context, ids []uuid.UUID) ([]model.DragItem, error)
}

// ContentWriter appends version nodes. Chain reads lock the chain's rows.
type ContentWriter interface {
	InContentTx(ctx context.Context, fn func(w ContentWriter) error) error

	QuestionChainForUpdate(ctx context.Context, id uuid.UUID) ([]model.Question, error)
	InsertQuestion(ctx context.Context, q *model.Question) error
	ChoiceChainForUpdate(ctx context.Context, id uuid.UUID) ([]model.Choice, error)
	InsertChoice(ctx context.Context, c *model.Choice) error

	// ClearCurrent drops the current flag of every node of a chain.
	ClearCurrent(ctx context.Context, kind Kind, originalID uuid.UUID) error
	// SoftDelete marks one node deleted.
	SoftDelete(ctx context.Context, kind Kind, id uuid.UUID) error
}

// AttemptStore persists attempts and their answers.
type AttemptStore interface {
	Create(ctx context.Context, a *model.Attempt) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Attempt, error)
	// GetByIDForUpdate locks the attempt row until the transaction ends.
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Attempt, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]model.Attempt, int, error)
	UpdateDuration(ctx context.Context, id uuid.UUID, duration int) error
	// Finish flips a DRAFT attempt to FINISHED. It reports false when the
	// attempt was no longer DRAFT.
	Finish(ctx context.Context, id uuid.UUID, totalPoints, duration int) (bool, error)

	FindAnswer(ctx context.Context, attemptID, questionID uuid.UUID) (*model.AnswerAttempt, error)
	InsertAnswer(ctx context.Context, a *model.AnswerAttempt) error
	UpdateAnswer(ctx context.Context, a *model.AnswerAttempt) error
	ListAnswers(ctx context.Context, attemptID uuid.UUID) ([]model.AnswerAttempt, error)
}

// AttemptTxStore is an AttemptStore that can open a transaction.
type AttemptTxStore interface {
	AttemptStore
	InTx(ctx context.Context, fn func(s AttemptStore) error) error
}
