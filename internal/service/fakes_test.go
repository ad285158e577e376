package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stemsi/practice-backend/internal/events"
	"github.com/stemsi/practice-backend/internal/model"
	"github.com/stemsi/practice-backend/internal/repository"
	"github.com/stemsi/practice-backend/internal/scoring"
	"github.com/stemsi/practice-backend/internal/version"
)

// ─── Content ──────────────────────────────────────────────────────────

type memContent struct {
	tasks     []model.Task
	groups    []model.QuestionGroup
	questions []model.Question
	choices   []model.Choice
	dragItems []model.DragItem
}

var (
	_ repository.ContentReader = (*memContent)(nil)
	_ repository.ContentWriter = (*memContent)(nil)
)

func chainOf[T version.Versioned](nodes []T, id uuid.UUID) []T {
	var oid uuid.UUID
	found := false
	for _, n := range nodes {
		if h := n.VersionNode(); h.ID == id {
			oid, found = h.OriginalID, true
			break
		}
	}
	if !found {
		return nil
	}
	var out []T
	for _, n := range nodes {
		if n.VersionNode().OriginalID == oid {
			out = append(out, n)
		}
	}
	return out
}

func byIDs[T version.Versioned](nodes []T, ids []uuid.UUID) []T {
	want := toSet(ids)
	var out []T
	for _, n := range nodes {
		if _, ok := want[n.VersionNode().ID]; ok {
			out = append(out, n)
		}
	}
	return out
}

func toSet(ids []uuid.UUID) map[uuid.UUID]struct{} {
	m := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		m[id] = struct{}{}
	}
	return m
}

func (m *memContent) TaskChain(_ context.Context, taskID uuid.UUID) ([]model.Task, error) {
	return chainOf(m.tasks, taskID), nil
}

func (m *memContent) GroupsByTask(_ context.Context, taskOriginalID uuid.UUID) ([]model.QuestionGroup, error) {
	var out []model.QuestionGroup
	for _, g := range m.groups {
		if g.TaskID == taskOriginalID {
			out = append(out, g)
		}
	}
	return out, nil
}

func (m *memContent) QuestionsByGroups(_ context.Context, groupOriginalIDs []uuid.UUID) ([]model.Question, error) {
	want := toSet(groupOriginalIDs)
	var out []model.Question
	for _, q := range m.questions {
		if _, ok := want[q.QuestionGroupID]; ok {
			out = append(out, q)
		}
	}
	return out, nil
}

func (m *memContent) QuestionsByOriginals(_ context.Context, originalIDs []uuid.UUID) ([]model.Question, error) {
	want := toSet(originalIDs)
	var out []model.Question
	for _, q := range m.questions {
		if _, ok := want[q.OriginalID]; ok {
			out = append(out, q)
		}
	}
	return out, nil
}

func (m *memContent) ChoicesByQuestions(_ context.Context, questionOriginalIDs []uuid.UUID) ([]model.Choice, error) {
	want := toSet(questionOriginalIDs)
	var out []model.Choice
	for _, c := range m.choices {
		if _, ok := want[c.QuestionID]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memContent) DragItemsByGroups(_ context.Context, groupOriginalIDs []uuid.UUID) ([]model.DragItem, error) {
	want := toSet(groupOriginalIDs)
	var out []model.DragItem
	for _, d := range m.dragItems {
		if _, ok := want[d.QuestionGroupID]; ok {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *memContent) GroupsByIDs(_ context.Context, ids []uuid.UUID) ([]model.QuestionGroup, error) {
	return byIDs(m.groups, ids), nil
}

func (m *memContent) QuestionsByIDs(_ context.Context, ids []uuid.UUID) ([]model.Question, error) {
	return byIDs(m.questions, ids), nil
}

func (m *memContent) ChoicesByIDs(_ context.Context, ids []uuid.UUID) ([]model.Choice, error) {
	return byIDs(m.choices, ids), nil
}

func (m *memContent) DragItemsByIDs(_ context.Context, ids []uuid.UUID) ([]model.DragItem, error) {
	return byIDs(m.dragItems, ids), nil
}

func (m *memContent) InContentTx(_ context.Context, fn func(w repository.ContentWriter) error) error {
	return fn(m)
}

func (m *memContent) QuestionChainForUpdate(_ context.Context, id uuid.UUID) ([]model.Question, error) {
	return chainOf(m.questions, id), nil
}

func (m *memContent) InsertQuestion(_ context.Context, q *model.Question) error {
	m.questions = append(m.questions, *q)
	return nil
}

func (m *memContent) ChoiceChainForUpdate(_ context.Context, id uuid.UUID) ([]model.Choice, error) {
	return chainOf(m.choices, id), nil
}

func (m *memContent) InsertChoice(_ context.Context, c *model.Choice) error {
	m.choices = append(m.choices, *c)
	return nil
}

func (m *memContent) ClearCurrent(_ context.Context, kind repository.Kind, originalID uuid.UUID) error {
	m.eachNode(kind, func(n *version.Node) {
		if n.OriginalID == originalID {
			n.IsCurrent = false
		}
	})
	return nil
}

func (m *memContent) SoftDelete(_ context.Context, kind repository.Kind, id uuid.UUID) error {
	found := false
	m.eachNode(kind, func(n *version.Node) {
		if n.ID == id {
			n.IsDeleted = true
			found = true
		}
	})
	if !found {
		return pgx.ErrNoRows
	}
	return nil
}

func (m *memContent) eachNode(kind repository.Kind, fn func(n *version.Node)) {
	switch kind {
	case repository.KindTask:
		for i := range m.tasks {
			fn(&m.tasks[i].Node)
		}
	case repository.KindQuestionGroup:
		for i := range m.groups {
			fn(&m.groups[i].Node)
		}
	case repository.KindQuestion:
		for i := range m.questions {
			fn(&m.questions[i].Node)
		}
	case repository.KindChoice:
		for i := range m.choices {
			fn(&m.choices[i].Node)
		}
	case repository.KindDragItem:
		for i := range m.dragItems {
			fn(&m.dragItems[i].Node)
		}
	}
}

// ─── Attempts ─────────────────────────────────────────────────────────

type memAttempts struct {
	mu       sync.Mutex
	attempts map[uuid.UUID]model.Attempt
	answers  []model.AnswerAttempt

	// finishLost makes Finish report that another submit won the race.
	finishLost bool
}

var _ repository.AttemptTxStore = (*memAttempts)(nil)

func newMemAttempts() *memAttempts {
	return &memAttempts{attempts: map[uuid.UUID]model.Attempt{}}
}

// InTx runs fn and restores the previous state when it fails.
func (m *memAttempts) InTx(_ context.Context, fn func(s repository.AttemptStore) error) error {
	savedAttempts := make(map[uuid.UUID]model.Attempt, len(m.attempts))
	for k, v := range m.attempts {
		savedAttempts[k] = v
	}
	savedAnswers := append([]model.AnswerAttempt(nil), m.answers...)

	if err := fn(m); err != nil {
		m.attempts = savedAttempts
		m.answers = savedAnswers
		return err
	}
	return nil
}

func (m *memAttempts) Create(_ context.Context, a *model.Attempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	now := time.Now()
	a.CreatedAt, a.UpdatedAt = now, now
	m.attempts[a.ID] = *a
	return nil
}

func (m *memAttempts) GetByID(_ context.Context, id uuid.UUID) (*model.Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.attempts[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &a, nil
}

func (m *memAttempts) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Attempt, error) {
	return m.GetByID(ctx, id)
}

func (m *memAttempts) ListByOwner(_ context.Context, ownerID uuid.UUID, limit, offset int) ([]model.Attempt, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var owned []model.Attempt
	for _, a := range m.attempts {
		if a.CreatedBy == ownerID {
			owned = append(owned, a)
		}
	}
	sort.Slice(owned, func(i, j int) bool { return owned[i].CreatedAt.After(owned[j].CreatedAt) })
	total := len(owned)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return owned[offset:end], total, nil
}

func (m *memAttempts) UpdateDuration(_ context.Context, id uuid.UUID, duration int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.attempts[id]
	if !ok {
		return pgx.ErrNoRows
	}
	a.Duration = duration
	m.attempts[id] = a
	return nil
}

func (m *memAttempts) Finish(_ context.Context, id uuid.UUID, totalPoints, duration int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.attempts[id]
	if !ok || a.Status != model.AttemptStatusDraft || m.finishLost {
		return false, nil
	}
	now := time.Now()
	a.Status = model.AttemptStatusFinished
	a.TotalPoints = totalPoints
	a.Duration = duration
	a.FinishedAt = &now
	m.attempts[id] = a
	return true, nil
}

func (m *memAttempts) FindAnswer(_ context.Context, attemptID, questionID uuid.UUID) (*model.AnswerAttempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.answers {
		if a.AttemptID == attemptID && a.QuestionID == questionID {
			return &a, nil
		}
	}
	return nil, pgx.ErrNoRows
}

var errDuplicateAnswer = errors.New("duplicate key value violates unique constraint")

func (m *memAttempts) InsertAnswer(_ context.Context, a *model.AnswerAttempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.answers {
		if existing.AttemptID == a.AttemptID && existing.QuestionID == a.QuestionID {
			return errDuplicateAnswer
		}
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.UpdatedAt = time.Now()
	m.answers = append(m.answers, *a)
	return nil
}

func (m *memAttempts) UpdateAnswer(_ context.Context, a *model.AnswerAttempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.answers {
		if m.answers[i].ID == a.ID {
			a.UpdatedAt = time.Now()
			m.answers[i] = *a
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (m *memAttempts) ListAnswers(_ context.Context, attemptID uuid.UUID) ([]model.AnswerAttempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.AnswerAttempt
	for _, a := range m.answers {
		if a.AttemptID == attemptID {
			out = append(out, a)
		}
	}
	return out, nil
}

// ─── Events ───────────────────────────────────────────────────────────

type recordingPublisher struct {
	events []events.ContentChanged
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e events.ContentChanged) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, e)
	return nil
}

// ─── Fixture ──────────────────────────────────────────────────────────

// world is one activated reading passage with two groups:
//
//	group 1: MC question (2 points, A correct) and FIB question (1 point)
//	group 2: DnD question (3 points) over two drag items
type world struct {
	content   *memContent
	attempts  *memAttempts
	publisher *recordingPublisher

	svc     *AttemptService
	editor  *ContentService
	learner uuid.UUID

	task           model.Task
	group1, group2 model.QuestionGroup
	mc, fib, dnd   model.Question
	choiceA        model.Choice
	choiceB        model.Choice
	drag1, drag2   model.DragItem
}

func newWorld() *world {
	w := &world{
		content:   &memContent{},
		attempts:  newMemAttempts(),
		publisher: &recordingPublisher{},
		learner:   uuid.New(),
	}

	w.task = model.Task{
		Node:        version.NewOriginal(),
		Kind:        model.TaskKindReadingPassage,
		Title:       "The Water Cycle",
		Content:     "Evaporation, condensation, precipitation.",
		IsActivated: true,
		CreatedBy:   uuid.New(),
	}
	w.group1 = model.QuestionGroup{Node: version.NewOriginal(), TaskID: w.task.OriginalID, SectionOrder: 1, SectionLabel: "Part 1"}
	w.group2 = model.QuestionGroup{Node: version.NewOriginal(), TaskID: w.task.OriginalID, SectionOrder: 2, SectionLabel: "Part 2"}

	w.drag1 = model.DragItem{Node: version.NewOriginal(), QuestionGroupID: w.group2.OriginalID, Content: "vapour"}
	w.drag2 = model.DragItem{Node: version.NewOriginal(), QuestionGroupID: w.group2.OriginalID, Content: "ice"}

	w.mc = model.Question{
		Node:            version.NewOriginal(),
		QuestionGroupID: w.group1.OriginalID,
		QuestionType:    model.QuestionTypeMultipleChoice,
		QuestionOrder:   1,
		Point:           2,
		Content:         "Which step turns water into vapour?",
	}
	w.fib = model.Question{
		Node:            version.NewOriginal(),
		QuestionGroupID: w.group1.OriginalID,
		QuestionType:    model.QuestionTypeFillInTheBlanks,
		QuestionOrder:   2,
		Point:           1,
		Content:         "Rain is a form of ____.",
		CorrectAnswer:   "precipitation",
	}
	dragID := w.drag1.ID
	w.dnd = model.Question{
		Node:            version.NewOriginal(),
		QuestionGroupID: w.group2.OriginalID,
		QuestionType:    model.QuestionTypeDragAndDrop,
		QuestionOrder:   3,
		Point:           3,
		Content:         "Water as a gas is called ____.",
		DragItemID:      &dragID,
	}

	w.choiceA = model.Choice{Node: version.NewOriginal(), QuestionID: w.mc.OriginalID, Label: "A", Content: "Evaporation", ChoiceOrder: 1, IsCorrect: true}
	w.choiceB = model.Choice{Node: version.NewOriginal(), QuestionID: w.mc.OriginalID, Label: "B", Content: "Condensation", ChoiceOrder: 2}

	w.content.tasks = []model.Task{w.task}
	w.content.groups = []model.QuestionGroup{w.group2, w.group1}
	w.content.questions = []model.Question{w.dnd, w.fib, w.mc}
	w.content.choices = []model.Choice{w.choiceB, w.choiceA}
	w.content.dragItems = []model.DragItem{w.drag1, w.drag2}

	log := zerolog.Nop()
	builder := NewSnapshotBuilder(w.content, log)
	w.svc = NewAttemptService(w.attempts, w.content, builder, scoring.NewEngine(), log)
	w.editor = NewContentService(w.content, w.publisher, log)
	return w
}

func ptr[T any](v T) *T { return &v }
