package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/practice-backend/internal/model"
)

const attemptColumns = `id, task_id, created_by, status, duration, total_points, history, created_at, updated_at, finished_at`

const answerColumns = `id, attempt_id, question_id, choices, data_filled, data_matched, drag_item_id, is_correct, points_awarded, updated_at`

// AttemptRepository handles attempt and answer data access.
type AttemptRepository struct {
	db DBTX
}

// NewAttemptRepository creates a new AttemptRepository.
func NewAttemptRepository(pool *pgxpool.Pool) *AttemptRepository {
	return &AttemptRepository{db: pool}
}

// InTx runs fn against a repository bound to a single transaction. The
// transaction commits when fn returns nil and rolls back otherwise.
func (r *AttemptRepository) InTx(ctx context.Context, fn func(s AttemptStore) error) error {
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		return fn(&AttemptRepository{db: tx})
	})
}

// Create inserts a new DRAFT attempt.
func (r *AttemptRepository) Create(ctx context.Context, a *model.Attempt) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return r.db.QueryRow(ctx,
		`INSERT INTO attempts (id, task_id, created_by, status, duration, history)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING created_at, updated_at`,
		a.ID, a.TaskID, a.CreatedBy, a.Status, a.Duration, a.History,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
}

// GetByID retrieves an attempt by ID.
func (r *AttemptRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Attempt, error) {
	return scanAttempt(r.db.QueryRow(ctx,
		`SELECT `+attemptColumns+` FROM attempts WHERE id = $1`, id))
}

// GetByIDForUpdate retrieves an attempt by ID and locks its row.
func (r *AttemptRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Attempt, error) {
	return scanAttempt(r.db.QueryRow(ctx,
		`SELECT `+attemptColumns+` FROM attempts WHERE id = $1 FOR UPDATE`, id))
}

// ListByOwner retrieves one page of a learner's attempts, newest first, with
// the owner's total attempt count.
func (r *AttemptRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]model.Attempt, int, error) {
	var total int
	if err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM attempts WHERE created_by = $1`, ownerID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.Query(ctx,
		`SELECT `+attemptColumns+` FROM attempts
		 WHERE created_by = $1
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`, ownerID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	attempts := []model.Attempt{}
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, 0, err
		}
		attempts = append(attempts, *a)
	}
	return attempts, total, rows.Err()
}

// UpdateDuration records elapsed time on an attempt.
func (r *AttemptRepository) UpdateDuration(ctx context.Context, id uuid.UUID, duration int) error {
	_, err := r.db.Exec(ctx,
		`UPDATE attempts SET duration = $2, updated_at = NOW() WHERE id = $1`, id, duration)
	return err
}

// Finish moves a DRAFT attempt to FINISHED. The status predicate makes the
// transition a compare-and-set.
func (r *AttemptRepository) Finish(ctx context.Context, id uuid.UUID, totalPoints, duration int) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE attempts
		 SET status = $2, total_points = $3, duration = $4, finished_at = NOW(), updated_at = NOW()
		 WHERE id = $1 AND status = $5`,
		id, model.AttemptStatusFinished, totalPoints, duration, model.AttemptStatusDraft)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// FindAnswer retrieves the answer for one question of an attempt.
func (r *AttemptRepository) FindAnswer(ctx context.Context, attemptID, questionID uuid.UUID) (*model.AnswerAttempt, error) {
	return scanAnswer(r.db.QueryRow(ctx,
		`SELECT `+answerColumns+` FROM answer_attempts
		 WHERE attempt_id = $1 AND question_id = $2`, attemptID, questionID))
}

// InsertAnswer stores a new answer.
func (r *AttemptRepository) InsertAnswer(ctx context.Context, a *model.AnswerAttempt) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return r.db.QueryRow(ctx,
		`INSERT INTO answer_attempts (id, attempt_id, question_id, choices, data_filled, data_matched, drag_item_id, is_correct, points_awarded)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING updated_at`,
		a.ID, a.AttemptID, a.QuestionID, choicesOrEmpty(a.Choices), a.DataFilled, a.DataMatched, a.DragItemID, a.IsCorrect, a.PointsAwarded,
	).Scan(&a.UpdatedAt)
}

// UpdateAnswer overwrites an existing answer in place.
func (r *AttemptRepository) UpdateAnswer(ctx context.Context, a *model.AnswerAttempt) error {
	return r.db.QueryRow(ctx,
		`UPDATE answer_attempts
		 SET choices = $2, data_filled = $3, data_matched = $4, drag_item_id = $5,
		     is_correct = $6, points_awarded = $7, updated_at = NOW()
		 WHERE id = $1
		 RETURNING updated_at`,
		a.ID, choicesOrEmpty(a.Choices), a.DataFilled, a.DataMatched, a.DragItemID, a.IsCorrect, a.PointsAwarded,
	).Scan(&a.UpdatedAt)
}

// ListAnswers retrieves every answer of an attempt.
func (r *AttemptRepository) ListAnswers(ctx context.Context, attemptID uuid.UUID) ([]model.AnswerAttempt, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+answerColumns+` FROM answer_attempts
		 WHERE attempt_id = $1
		 ORDER BY updated_at`, attemptID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	answers := []model.AnswerAttempt{}
	for rows.Next() {
		a, err := scanAnswer(rows)
		if err != nil {
			return nil, err
		}
		answers = append(answers, *a)
	}
	return answers, rows.Err()
}

func scanAttempt(row pgx.Row) (*model.Attempt, error) {
	a := &model.Attempt{}
	err := row.Scan(&a.ID, &a.TaskID, &a.CreatedBy, &a.Status, &a.Duration, &a.TotalPoints,
		&a.History, &a.CreatedAt, &a.UpdatedAt, &a.FinishedAt)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func scanAnswer(row pgx.Row) (*model.AnswerAttempt, error) {
	a := &model.AnswerAttempt{}
	err := row.Scan(&a.ID, &a.AttemptID, &a.QuestionID, &a.Choices, &a.DataFilled, &a.DataMatched,
		&a.DragItemID, &a.IsCorrect, &a.PointsAwarded, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// choicesOrEmpty keeps the NOT NULL choices column satisfied.
func choicesOrEmpty(ids []uuid.UUID) []uuid.UUID {
	if ids == nil {
		return []uuid.UUID{}
	}
	return ids
}
