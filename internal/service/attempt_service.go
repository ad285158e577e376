package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stemsi/practice-backend/internal/metrics"
	"github.com/stemsi/practice-backend/internal/model"
	"github.com/stemsi/practice-backend/internal/repository"
	"github.com/stemsi/practice-backend/internal/response"
	"github.com/stemsi/practice-backend/internal/scoring"
	"github.com/stemsi/practice-backend/internal/version"
)

// Attempt errors
var (
	ErrNotFound                = errors.New("attempt not found")
	ErrForbidden               = errors.New("attempt belongs to another learner")
	ErrAttemptNotDraft         = errors.New("attempt status is not DRAFT")
	ErrAttemptAlreadySubmitted = errors.New("attempt has already been submitted")
	ErrAttemptNotFinished      = errors.New("attempt status is not FINISHED")
	ErrQuestionNotFound        = scoring.ErrQuestionNotFound
	ErrChoiceNotFound          = scoring.ErrChoiceNotFound
)

// AttemptService owns the DRAFT -> FINISHED lifecycle of attempts.
type AttemptService struct {
	attempts repository.AttemptTxStore
	content  repository.ContentReader
	builder  *SnapshotBuilder
	engine   *scoring.Engine
	log      zerolog.Logger
}

// NewAttemptService creates a new AttemptService.
func NewAttemptService(
	attempts repository.AttemptTxStore,
	content repository.ContentReader,
	builder *SnapshotBuilder,
	engine *scoring.Engine,
	log zerolog.Logger,
) *AttemptService {
	return &AttemptService{
		attempts: attempts,
		content:  content,
		builder:  builder,
		engine:   engine,
		log:      log.With().Str("component", "attempt_service").Logger(),
	}
}

// CreateAttempt starts a new DRAFT attempt bound to the current content of
// the task.
func (s *AttemptService) CreateAttempt(ctx context.Context, taskID, requesterID uuid.UUID) (*model.AttemptView, error) {
	view, snap, err := s.builder.Build(ctx, taskID)
	if err != nil {
		record("create", err)
		return nil, err
	}

	history, err := snap.Encode()
	if err != nil {
		return nil, err
	}

	attempt := &model.Attempt{
		TaskID:    snap.TaskID,
		CreatedBy: requesterID,
		Status:    model.AttemptStatusDraft,
		History:   history,
	}
	if err := s.attempts.Create(ctx, attempt); err != nil {
		record("create", err)
		return nil, fmt.Errorf("create attempt: %w", err)
	}
	record("create", nil)

	view.AttemptID = attempt.ID
	view.Status = attempt.Status
	view.Duration = attempt.Duration

	s.log.Info().
		Str("attempt_id", attempt.ID.String()).
		Str("task_id", snap.TaskID.String()).
		Int("groups", len(snap.GroupMappingQuestion)).
		Msg("attempt created")
	return view, nil
}

// SaveAttempt upserts answers and records elapsed time on a DRAFT attempt.
func (s *AttemptService) SaveAttempt(ctx context.Context, attemptID, requesterID uuid.UUID, req model.SaveAttemptRequest) error {
	err := s.attempts.InTx(ctx, func(tx repository.AttemptStore) error {
		attempt, err := lockOwned(ctx, tx, attemptID, requesterID)
		if err != nil {
			return err
		}
		if attempt.Status != model.AttemptStatusDraft {
			return ErrAttemptNotDraft
		}

		snap, err := attempt.Snapshot()
		if err != nil {
			return err
		}
		if err := s.upsertAnswers(ctx, tx, attempt.ID, snap, req.Answers); err != nil {
			return err
		}
		return tx.UpdateDuration(ctx, attempt.ID, req.Duration)
	})
	record("save", err)
	return err
}

// SubmitAttempt applies the final answers, scores the attempt against the
// live answer key and moves it to FINISHED. Nothing is persisted on failure.
func (s *AttemptService) SubmitAttempt(ctx context.Context, attemptID, requesterID uuid.UUID, req model.SaveAttemptRequest) (*model.ScoredResult, error) {
	var out *model.ScoredResult
	err := s.attempts.InTx(ctx, func(tx repository.AttemptStore) error {
		attempt, err := lockOwned(ctx, tx, attemptID, requesterID)
		if err != nil {
			return err
		}
		if attempt.Status != model.AttemptStatusDraft {
			return ErrAttemptAlreadySubmitted
		}

		snap, err := attempt.Snapshot()
		if err != nil {
			return err
		}
		if err := s.upsertAnswers(ctx, tx, attempt.ID, snap, req.Answers); err != nil {
			return err
		}

		rows, err := tx.ListAnswers(ctx, attempt.ID)
		if err != nil {
			return fmt.Errorf("list answers: %w", err)
		}
		answers := make(map[uuid.UUID]model.AnswerInput, len(rows))
		rowByQuestion := make(map[uuid.UUID]*model.AnswerAttempt, len(rows))
		for i := range rows {
			answers[rows[i].QuestionID] = toInput(rows[i])
			rowByQuestion[rows[i].QuestionID] = &rows[i]
		}

		key, err := s.answerKey(ctx, snap)
		if err != nil {
			return err
		}
		res, err := s.engine.Score(snap, answers, key)
		if err != nil {
			return err
		}

		for _, qr := range res.Questions {
			row, ok := rowByQuestion[qr.QuestionID]
			if !ok {
				continue
			}
			correct := qr.IsCorrect
			row.IsCorrect = &correct
			row.PointsAwarded = qr.PointsAwarded
			if err := tx.UpdateAnswer(ctx, row); err != nil {
				return fmt.Errorf("store grade: %w", err)
			}
		}

		ok, err := tx.Finish(ctx, attempt.ID, res.TotalPoints, req.Duration)
		if err != nil {
			return fmt.Errorf("finish attempt: %w", err)
		}
		if !ok {
			return ErrAttemptAlreadySubmitted
		}

		out = &model.ScoredResult{
			AttemptID:   attempt.ID,
			TaskID:      attempt.TaskID,
			Status:      model.AttemptStatusFinished,
			Duration:    req.Duration,
			TotalPoints: res.TotalPoints,
			Results:     res.Questions,
		}
		return nil
	})
	record("submit", err)
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("attempt_id", attemptID.String()).
		Int("total_points", out.TotalPoints).
		Int("graded", len(out.Results)).
		Msg("attempt submitted")
	return out, nil
}

// LoadAttempt returns a DRAFT attempt exactly as it was bound at creation,
// together with the answers saved so far.
func (s *AttemptService) LoadAttempt(ctx context.Context, attemptID, requesterID uuid.UUID) (*model.LoadedAttempt, error) {
	attempt, err := s.getOwned(ctx, attemptID, requesterID)
	if err != nil {
		return nil, err
	}
	if attempt.Status != model.AttemptStatusDraft {
		return nil, ErrAttemptNotDraft
	}

	view, err := s.paper(ctx, attempt)
	if err != nil {
		return nil, err
	}
	answers, err := s.attempts.ListAnswers(ctx, attempt.ID)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	return &model.LoadedAttempt{AttemptView: *view, Answers: answers}, nil
}

// ViewResult reveals the graded outcome of a FINISHED attempt. Grades are the
// ones stored at submit. Revealed correct answers are read from live content,
// so an edit made after submit shows up in the reveal but not in the grades.
func (s *AttemptService) ViewResult(ctx context.Context, attemptID, requesterID uuid.UUID) (*model.AttemptResultView, error) {
	attempt, err := s.getOwned(ctx, attemptID, requesterID)
	if err != nil {
		return nil, err
	}
	if attempt.Status != model.AttemptStatusFinished {
		return nil, ErrAttemptNotFinished
	}

	snap, err := attempt.Snapshot()
	if err != nil {
		return nil, err
	}
	view, err := s.paper(ctx, attempt)
	if err != nil {
		return nil, err
	}
	rows, err := s.attempts.ListAnswers(ctx, attempt.ID)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	key, err := s.answerKey(ctx, snap)
	if err != nil {
		return nil, err
	}

	results := make([]model.QuestionResult, 0, len(rows))
	for _, row := range rows {
		if row.IsCorrect == nil {
			continue
		}
		q, ok := key.Questions[row.QuestionID]
		if !ok {
			return nil, fmt.Errorf("question %s: %w", row.QuestionID, ErrQuestionNotFound)
		}
		qr := scoring.Reveal(q, row.QuestionID, key)
		qr.IsCorrect = *row.IsCorrect
		qr.PointsAwarded = row.PointsAwarded
		in := toInput(row)
		qr.Answer = &in
		results = append(results, qr)
	}
	scoring.SortResults(results)

	return &model.AttemptResultView{
		ScoredResult: model.ScoredResult{
			AttemptID:   attempt.ID,
			TaskID:      attempt.TaskID,
			Status:      attempt.Status,
			Duration:    attempt.Duration,
			TotalPoints: attempt.TotalPoints,
			Results:     results,
		},
		Paper: *view,
	}, nil
}

// ListAttempts returns one page of the requester's attempts, newest first.
func (s *AttemptService) ListAttempts(ctx context.Context, requesterID uuid.UUID, page, perPage int) ([]model.Attempt, *response.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	if perPage > 100 {
		perPage = 100
	}

	attempts, total, err := s.attempts.ListByOwner(ctx, requesterID, perPage, (page-1)*perPage)
	if err != nil {
		return nil, nil, err
	}
	if attempts == nil {
		attempts = []model.Attempt{}
	}

	return attempts, response.NewPagination(page, perPage, total), nil
}

// ─── Helpers ────────────────────────────────────────────────────────────

func (s *AttemptService) getOwned(ctx context.Context, attemptID, requesterID uuid.UUID) (*model.Attempt, error) {
	attempt, err := s.attempts.GetByID(ctx, attemptID)
	return checkOwner(attempt, err, requesterID)
}

func lockOwned(ctx context.Context, tx repository.AttemptStore, attemptID, requesterID uuid.UUID) (*model.Attempt, error) {
	attempt, err := tx.GetByIDForUpdate(ctx, attemptID)
	return checkOwner(attempt, err, requesterID)
}

// checkOwner applies the NOT_FOUND then FORBIDDEN guards, in that order, ahead
// of any status guard.
func checkOwner(attempt *model.Attempt, err error, requesterID uuid.UUID) (*model.Attempt, error) {
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	if attempt.CreatedBy != requesterID {
		return nil, ErrForbidden
	}
	return attempt, nil
}

func (s *AttemptService) paper(ctx context.Context, attempt *model.Attempt) (*model.AttemptView, error) {
	snap, err := attempt.Snapshot()
	if err != nil {
		return nil, err
	}
	view, err := s.builder.Replay(ctx, snap)
	if err != nil {
		return nil, err
	}
	view.AttemptID = attempt.ID
	view.Status = attempt.Status
	view.Duration = attempt.Duration
	return view, nil
}

// upsertAnswers keeps at most one row per (attempt, question). Choice ids
// must belong to the answered question's own choice chains.
func (s *AttemptService) upsertAnswers(ctx context.Context, tx repository.AttemptStore, attemptID uuid.UUID, snap *model.AttemptSnapshot, inputs []model.AnswerInput) error {
	for _, in := range inputs {
		if _, ok := snap.Lookup(in.QuestionID); !ok {
			return fmt.Errorf("question %s: %w", in.QuestionID, ErrQuestionNotFound)
		}
	}
	owners, err := s.choiceOwners(ctx, inputs)
	if err != nil {
		return err
	}
	for _, in := range inputs {
		for _, cid := range in.Choices {
			if owner, ok := owners[cid]; !ok || owner != in.QuestionID {
				return fmt.Errorf("choice %s: %w", cid, ErrChoiceNotFound)
			}
		}
	}

	for _, in := range inputs {
		existing, err := tx.FindAnswer(ctx, attemptID, in.QuestionID)
		switch {
		case err == nil:
			applyInput(existing, in)
			if err := tx.UpdateAnswer(ctx, existing); err != nil {
				return fmt.Errorf("update answer: %w", err)
			}
		case errors.Is(err, pgx.ErrNoRows):
			row := &model.AnswerAttempt{AttemptID: attemptID, QuestionID: in.QuestionID}
			applyInput(row, in)
			if err := tx.InsertAnswer(ctx, row); err != nil {
				return fmt.Errorf("insert answer: %w", err)
			}
		default:
			return fmt.Errorf("find answer: %w", err)
		}
	}
	return nil
}

// choiceOwners maps every choice node of the answered questions to the
// canonical id of the question it belongs to.
func (s *AttemptService) choiceOwners(ctx context.Context, inputs []model.AnswerInput) (map[uuid.UUID]uuid.UUID, error) {
	var questions []uuid.UUID
	for _, in := range inputs {
		if len(in.Choices) > 0 {
			questions = append(questions, in.QuestionID)
		}
	}
	owners := make(map[uuid.UUID]uuid.UUID)
	if len(questions) == 0 {
		return owners, nil
	}
	choices, err := s.content.ChoicesByQuestions(ctx, questions)
	if err != nil {
		return nil, fmt.Errorf("load choices: %w", err)
	}
	for _, c := range choices {
		owners[c.ID] = c.QuestionID
	}
	return owners, nil
}

func applyInput(row *model.AnswerAttempt, in model.AnswerInput) {
	row.Choices = in.Choices
	row.DataFilled = in.DataFilled
	row.DataMatched = in.DataMatched
	row.DragItemID = in.DragItemID
	row.IsCorrect = nil
	row.PointsAwarded = 0
}

func toInput(row model.AnswerAttempt) model.AnswerInput {
	return model.AnswerInput{
		QuestionID:  row.QuestionID,
		Choices:     row.Choices,
		DataFilled:  row.DataFilled,
		DataMatched: row.DataMatched,
		DragItemID:  row.DragItemID,
	}
}

// answerKey loads the live data a snapshot is graded against. Questions whose
// chain has been retracted fall back to the node bound in the snapshot.
func (s *AttemptService) answerKey(ctx context.Context, snap *model.AttemptSnapshot) (*scoring.AnswerKey, error) {
	key := &scoring.AnswerKey{
		Questions:       map[uuid.UUID]model.Question{},
		CorrectChoices:  map[uuid.UUID][]model.Choice{},
		ChoiceLabels:    map[uuid.UUID]map[uuid.UUID]string{},
		DragItemOrigins: map[uuid.UUID]uuid.UUID{},
	}

	canonical := snap.QuestionIDs()
	if len(canonical) == 0 {
		return key, nil
	}

	nodes, err := s.content.QuestionsByOriginals(ctx, canonical)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	for oid, chain := range version.GroupByOriginal(nodes) {
		if q, ok := resolveLive(s.builder, chain, "question"); ok {
			key.Questions[oid] = q
		}
	}

	var fallback []uuid.UUID
	for _, qid := range canonical {
		if _, ok := key.Questions[qid]; ok {
			continue
		}
		if sq, ok := snap.Lookup(qid); ok {
			fallback = append(fallback, sq.VersionID)
		}
	}
	if len(fallback) > 0 {
		bound, err := s.content.QuestionsByIDs(ctx, fallback)
		if err != nil {
			return nil, fmt.Errorf("load bound questions: %w", err)
		}
		for _, q := range bound {
			key.Questions[q.OriginalID] = q
			s.log.Warn().Str("question_id", q.OriginalID.String()).Msg("grading retracted question against its bound version")
		}
	}

	choices, err := s.content.ChoicesByQuestions(ctx, canonical)
	if err != nil {
		return nil, fmt.Errorf("load choices: %w", err)
	}
	for _, c := range choices {
		labels, ok := key.ChoiceLabels[c.QuestionID]
		if !ok {
			labels = make(map[uuid.UUID]string)
			key.ChoiceLabels[c.QuestionID] = labels
		}
		labels[c.ID] = c.Label
	}
	for _, chain := range version.GroupByOriginal(choices) {
		c, ok := resolveLive(s.builder, chain, "choice")
		if ok && c.IsCorrect {
			key.CorrectChoices[c.QuestionID] = append(key.CorrectChoices[c.QuestionID], c)
		}
	}

	groupSet := make(map[uuid.UUID]struct{})
	for _, q := range key.Questions {
		if q.QuestionType == model.QuestionTypeDragAndDrop {
			groupSet[q.QuestionGroupID] = struct{}{}
		}
	}
	if len(groupSet) > 0 {
		groups := make([]uuid.UUID, 0, len(groupSet))
		for gid := range groupSet {
			groups = append(groups, gid)
		}
		items, err := s.content.DragItemsByGroups(ctx, groups)
		if err != nil {
			return nil, fmt.Errorf("load drag items: %w", err)
		}
		for _, d := range items {
			key.DragItemOrigins[d.ID] = d.OriginalID
		}
	}
	return key, nil
}

// record counts a lifecycle operation by its outcome.
func record(operation string, err error) {
	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrTaskNotFound):
		outcome = "not_found"
	case errors.Is(err, ErrForbidden):
		outcome = "forbidden"
	case errors.Is(err, ErrAttemptNotDraft), errors.Is(err, ErrAttemptAlreadySubmitted), errors.Is(err, ErrAttemptNotFinished):
		outcome = "invalid_state"
	default:
		outcome = "error"
	}
	metrics.AttemptTransitions.WithLabelValues(operation, outcome).Inc()
}
