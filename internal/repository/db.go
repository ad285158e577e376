package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx, so repositories can run
// inside or outside a transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Kind names a versioned content table.
type Kind string

const (
	KindTask          Kind = "task"
	KindQuestionGroup Kind = "question_group"
	KindQuestion      Kind = "question"
	KindChoice        Kind = "choice"
	KindDragItem      Kind = "drag_item"
)

// table returns the table backing a kind. Kinds are a closed set, so the
// result is safe to splice into SQL.
func (k Kind) table() string {
	switch k {
	case KindTask:
		return "tasks"
	case KindQuestionGroup:
		return "question_groups"
	case KindQuestion:
		return "questions"
	case KindChoice:
		return "choices"
	case KindDragItem:
		return "drag_items"
	default:
		panic("repository: unknown kind " + string(k))
	}
}

// nodeColumns is the shared version header of every content table.
const nodeColumns = `id, original_id, parent_id, is_original, is_current, is_deleted, version`
