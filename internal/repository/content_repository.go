package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/practice-backend/internal/model"
	"github.com/stemsi/practice-backend/internal/version"
)

const (
	taskColumns     = nodeColumns + `, kind, title, content, media_url, is_activated, created_by, created_at`
	groupColumns    = nodeColumns + `, task_id, section_order, section_label, instruction, question_type`
	questionColumns = nodeColumns + `, question_group_id, question_type, question_order, point, content, explanation,
		number_of_correct_answers, correct_answer, correct_answer_for_matching, drag_item_id`
	choiceColumns   = nodeColumns + `, question_id, label, content, choice_order, is_correct`
	dragItemColumns = nodeColumns + `, question_group_id, content`
)

// ContentRepository handles versioned content data access.
type ContentRepository struct {
	db DBTX
}

// NewContentRepository creates a new ContentRepository.
func NewContentRepository(pool *pgxpool.Pool) *ContentRepository {
	return &ContentRepository{db: pool}
}

// ─── Reads ──────────────────────────────────────────────────────────────

// TaskChain returns every node of the chain that taskID belongs to.
func (r *ContentRepository) TaskChain(ctx context.Context, taskID uuid.UUID) ([]model.Task, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+taskColumns+` FROM tasks
		 WHERE original_id = (SELECT original_id FROM tasks WHERE id = $1)
		 ORDER BY version`, taskID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanTask)
}

// GroupsByTask returns every group node attached to a task.
func (r *ContentRepository) GroupsByTask(ctx context.Context, taskOriginalID uuid.UUID) ([]model.QuestionGroup, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+groupColumns+` FROM question_groups
		 WHERE task_id = $1
		 ORDER BY section_order, version`, taskOriginalID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanGroup)
}

// QuestionsByGroups returns every question node attached to the given groups.
func (r *ContentRepository) QuestionsByGroups(ctx context.Context, groupOriginalIDs []uuid.UUID) ([]model.Question, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+questionColumns+` FROM questions
		 WHERE question_group_id = ANY($1::uuid[])
		 ORDER BY question_order, version`, groupOriginalIDs)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanQuestion)
}

// QuestionsByOriginals returns every node of the given question chains.
func (r *ContentRepository) QuestionsByOriginals(ctx context.Context, originalIDs []uuid.UUID) ([]model.Question, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+questionColumns+` FROM questions
		 WHERE original_id = ANY($1::uuid[])
		 ORDER BY version`, originalIDs)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanQuestion)
}

// ChoicesByQuestions returns every choice node attached to the given questions.
func (r *ContentRepository) ChoicesByQuestions(ctx context.Context, questionOriginalIDs []uuid.UUID) ([]model.Choice, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+choiceColumns+` FROM choices
		 WHERE question_id = ANY($1::uuid[])
		 ORDER BY choice_order, version`, questionOriginalIDs)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanChoice)
}

// DragItemsByGroups returns every drag item node attached to the given groups.
func (r *ContentRepository) DragItemsByGroups(ctx context.Context, groupOriginalIDs []uuid.UUID) ([]model.DragItem, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+dragItemColumns+` FROM drag_items
		 WHERE question_group_id = ANY($1::uuid[])
		 ORDER BY version`, groupOriginalIDs)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanDragItem)
}

// GroupsByIDs returns exactly the named group nodes.
func (r *ContentRepository) GroupsByIDs(ctx context.Context, ids []uuid.UUID) ([]model.QuestionGroup, error) {
	rows, err := r.db.Query(ctx, `SELECT `+groupColumns+` FROM question_groups WHERE id = ANY($1::uuid[])`, ids)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanGroup)
}

// QuestionsByIDs returns exactly the named question nodes.
func (r *ContentRepository) QuestionsByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Question, error) {
	rows, err := r.db.Query(ctx, `SELECT `+questionColumns+` FROM questions WHERE id = ANY($1::uuid[])`, ids)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanQuestion)
}

// ChoicesByIDs returns exactly the named choice nodes.
func (r *ContentRepository) ChoicesByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Choice, error) {
	rows, err := r.db.Query(ctx, `SELECT `+choiceColumns+` FROM choices WHERE id = ANY($1::uuid[])`, ids)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanChoice)
}

// DragItemsByIDs returns exactly the named drag item nodes.
func (r *ContentRepository) DragItemsByIDs(ctx context.Context, ids []uuid.UUID) ([]model.DragItem, error) {
	rows, err := r.db.Query(ctx, `SELECT `+dragItemColumns+` FROM drag_items WHERE id = ANY($1::uuid[])`, ids)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanDragItem)
}

// ─── Writes ─────────────────────────────────────────────────────────────

// InContentTx runs fn inside a transaction.
func (r *ContentRepository) InContentTx(ctx context.Context, fn func(w ContentWriter) error) error {
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		return fn(&ContentRepository{db: tx})
	})
}

// QuestionChainForUpdate locks and returns the chain that id belongs to.
func (r *ContentRepository) QuestionChainForUpdate(ctx context.Context, id uuid.UUID) ([]model.Question, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+questionColumns+` FROM questions
		 WHERE original_id = (SELECT original_id FROM questions WHERE id = $1)
		 ORDER BY version
		 FOR UPDATE`, id)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanQuestion)
}

// InsertQuestion inserts a question node.
func (r *ContentRepository) InsertQuestion(ctx context.Context, q *model.Question) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO questions (`+questionColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		q.ID, q.OriginalID, q.ParentID, q.IsOriginal, q.IsCurrent, q.IsDeleted, q.Version,
		q.QuestionGroupID, q.QuestionType, q.QuestionOrder, q.Point, q.Content, q.Explanation,
		q.NumberOfCorrectAnswers, q.CorrectAnswer, q.CorrectAnswerForMatching, q.DragItemID,
	)
	return err
}

// ChoiceChainForUpdate locks and returns the chain that id belongs to.
func (r *ContentRepository) ChoiceChainForUpdate(ctx context.Context, id uuid.UUID) ([]model.Choice, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+choiceColumns+` FROM choices
		 WHERE original_id = (SELECT original_id FROM choices WHERE id = $1)
		 ORDER BY version
		 FOR UPDATE`, id)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanChoice)
}

// InsertChoice inserts a choice node.
func (r *ContentRepository) InsertChoice(ctx context.Context, c *model.Choice) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO choices (`+choiceColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		c.ID, c.OriginalID, c.ParentID, c.IsOriginal, c.IsCurrent, c.IsDeleted, c.Version,
		c.QuestionID, c.Label, c.Content, c.ChoiceOrder, c.IsCorrect,
	)
	return err
}

// ClearCurrent drops the current flag on every node of a chain.
func (r *ContentRepository) ClearCurrent(ctx context.Context, kind Kind, originalID uuid.UUID) error {
	_, err := r.db.Exec(ctx,
		fmt.Sprintf(`UPDATE %s SET is_current = FALSE WHERE original_id = $1 AND is_current`, kind.table()),
		originalID)
	return err
}

// SoftDelete marks a node deleted. Returns pgx.ErrNoRows if the node is absent.
func (r *ContentRepository) SoftDelete(ctx context.Context, kind Kind, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx,
		fmt.Sprintf(`UPDATE %s SET is_deleted = TRUE, is_current = FALSE WHERE id = $1`, kind.table()),
		id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// ─── Scanners ───────────────────────────────────────────────────────────

func nodeDest(n *version.Node) []any {
	return []any{&n.ID, &n.OriginalID, &n.ParentID, &n.IsOriginal, &n.IsCurrent, &n.IsDeleted, &n.Version}
}

func scanTask(row pgx.CollectableRow) (model.Task, error) {
	var t model.Task
	dest := append(nodeDest(&t.Node), &t.Kind, &t.Title, &t.Content, &t.MediaURL, &t.IsActivated, &t.CreatedBy, &t.CreatedAt)
	err := row.Scan(dest...)
	return t, err
}

func scanGroup(row pgx.CollectableRow) (model.QuestionGroup, error) {
	var g model.QuestionGroup
	dest := append(nodeDest(&g.Node), &g.TaskID, &g.SectionOrder, &g.SectionLabel, &g.Instruction, &g.QuestionType)
	err := row.Scan(dest...)
	return g, err
}

func scanQuestion(row pgx.CollectableRow) (model.Question, error) {
	var q model.Question
	dest := append(nodeDest(&q.Node),
		&q.QuestionGroupID, &q.QuestionType, &q.QuestionOrder, &q.Point, &q.Content, &q.Explanation,
		&q.NumberOfCorrectAnswers, &q.CorrectAnswer, &q.CorrectAnswerForMatching, &q.DragItemID,
	)
	err := row.Scan(dest...)
	return q, err
}

func scanChoice(row pgx.CollectableRow) (model.Choice, error) {
	var c model.Choice
	dest := append(nodeDest(&c.Node), &c.QuestionID, &c.Label, &c.Content, &c.ChoiceOrder, &c.IsCorrect)
	err := row.Scan(dest...)
	return c, err
}

func scanDragItem(row pgx.CollectableRow) (model.DragItem, error) {
	var d model.DragItem
	dest := append(nodeDest(&d.Node), &d.QuestionGroupID, &d.Content)
	err := row.Scan(dest...)
	return d, err
}
