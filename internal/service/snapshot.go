package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/practice-backend/internal/metrics"
	"github.com/stemsi/practice-backend/internal/model"
	"github.com/stemsi/practice-backend/internal/repository"
	"github.com/stemsi/practice-backend/internal/version"
)

// Snapshot errors
var (
	ErrTaskNotFound              = errors.New("task not found")
	ErrListeningTaskNotActivated = errors.New("listening task is not activated")
	ErrPassageNotActivated       = errors.New("reading passage is not activated")
	ErrEmptyQuestionGroup        = errors.New("question group has no current questions")
)

// SnapshotBuilder assembles attempt papers from version chains.
type SnapshotBuilder struct {
	content repository.ContentReader
	log     zerolog.Logger
}

// NewSnapshotBuilder creates a new SnapshotBuilder.
func NewSnapshotBuilder(content repository.ContentReader, log zerolog.Logger) *SnapshotBuilder {
	return &SnapshotBuilder{
		content: content,
		log:     log.With().Str("component", "snapshot_builder").Logger(),
	}
}

// paper is the resolved content of one attempt, before it is projected into a
// learner view or an id-only snapshot.
type paper struct {
	task   model.Task
	groups []paperGroup
}

type paperGroup struct {
	group     model.QuestionGroup
	questions []paperQuestion
	dragItems []model.DragItem
}

type paperQuestion struct {
	canonicalID uuid.UUID
	question    model.Question
	choices     []model.Choice
}

// Build resolves every chain reachable from taskID to its current node and
// returns the learner view together with the snapshot binding those nodes.
func (b *SnapshotBuilder) Build(ctx context.Context, taskID uuid.UUID) (*model.AttemptView, *model.AttemptSnapshot, error) {
	p, err := b.resolve(ctx, taskID)
	if err != nil {
		return nil, nil, err
	}
	return p.view(), p.snapshot(), nil
}

// Replay rebuilds the learner view from the exact nodes bound in a snapshot.
// Later edits to any chain are not visible.
func (b *SnapshotBuilder) Replay(ctx context.Context, snap *model.AttemptSnapshot) (*model.AttemptView, error) {
	p, err := b.replay(ctx, snap)
	if err != nil {
		return nil, err
	}
	return p.view(), nil
}

func (b *SnapshotBuilder) resolve(ctx context.Context, taskID uuid.UUID) (*paper, error) {
	tasks, err := b.content.TaskChain(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("load task chain: %w", err)
	}
	task, ok := resolveLive(b, version.NewChain(tasks), "task")
	if !ok {
		return nil, ErrTaskNotFound
	}
	if !task.IsActivated {
		if task.Kind == model.TaskKindListeningTask {
			return nil, ErrListeningTaskNotActivated
		}
		return nil, ErrPassageNotActivated
	}

	// (1)-(2) groups attached to the task chain, resolved per chain.
	allGroups, err := b.content.GroupsByTask(ctx, task.OriginalID)
	if err != nil {
		return nil, fmt.Errorf("load groups: %w", err)
	}
	var groups []model.QuestionGroup
	for _, chain := range version.GroupByOriginal(allGroups) {
		if g, ok := resolveLive(b, chain, "question_group"); ok {
			groups = append(groups, g)
		}
	}
	if len(groups) == 0 {
		return &paper{task: task}, nil
	}

	groupOriginals := make([]uuid.UUID, 0, len(groups))
	for _, g := range groups {
		groupOriginals = append(groupOriginals, g.OriginalID)
	}

	// (3)-(4) questions per group, keyed by their chain's original id.
	allQuestions, err := b.content.QuestionsByGroups(ctx, groupOriginals)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	questionsByGroup := make(map[uuid.UUID][]paperQuestion)
	var questionOriginals []uuid.UUID
	for oid, chain := range version.GroupByOriginal(allQuestions) {
		q, ok := resolveLive(b, chain, "question")
		if !ok {
			continue
		}
		questionsByGroup[q.QuestionGroupID] = append(questionsByGroup[q.QuestionGroupID], paperQuestion{
			canonicalID: oid,
			question:    q,
		})
		questionOriginals = append(questionOriginals, oid)
	}

	// (5) current choices per question and drag items per group.
	choicesByQuestion := make(map[uuid.UUID][]model.Choice)
	if len(questionOriginals) > 0 {
		allChoices, err := b.content.ChoicesByQuestions(ctx, questionOriginals)
		if err != nil {
			return nil, fmt.Errorf("load choices: %w", err)
		}
		for _, chain := range version.GroupByOriginal(allChoices) {
			if c, ok := resolveLive(b, chain, "choice"); ok {
				choicesByQuestion[c.QuestionID] = append(choicesByQuestion[c.QuestionID], c)
			}
		}
	}

	allDragItems, err := b.content.DragItemsByGroups(ctx, groupOriginals)
	if err != nil {
		return nil, fmt.Errorf("load drag items: %w", err)
	}
	dragItemsByGroup := make(map[uuid.UUID][]model.DragItem)
	for _, chain := range version.GroupByOriginal(allDragItems) {
		if d, ok := resolveLive(b, chain, "drag_item"); ok {
			dragItemsByGroup[d.QuestionGroupID] = append(dragItemsByGroup[d.QuestionGroupID], d)
		}
	}

	// (6) assemble.
	p := &paper{task: task}
	for _, g := range groups {
		qs := questionsByGroup[g.OriginalID]
		if len(qs) == 0 {
			return nil, fmt.Errorf("group %s: %w", g.OriginalID, ErrEmptyQuestionGroup)
		}
		for i := range qs {
			qs[i].choices = choicesByQuestion[qs[i].canonicalID]
		}
		p.groups = append(p.groups, paperGroup{
			group:     g,
			questions: qs,
			dragItems: dragItemsByGroup[g.OriginalID],
		})
	}
	p.sort()
	return p, nil
}

func (b *SnapshotBuilder) replay(ctx context.Context, snap *model.AttemptSnapshot) (*paper, error) {
	tasks, err := b.content.TaskChain(ctx, snap.TaskID)
	if err != nil {
		return nil, fmt.Errorf("load task chain: %w", err)
	}
	task, ok := version.NewChain(tasks).Get(snap.TaskID)
	if !ok {
		return nil, ErrTaskNotFound
	}

	var groupIDs, questionIDs, choiceIDs, dragItemIDs []uuid.UUID
	for gid, qs := range snap.GroupMappingQuestion {
		groupIDs = append(groupIDs, gid)
		for _, q := range qs {
			questionIDs = append(questionIDs, q.VersionID)
			choiceIDs = append(choiceIDs, q.ChoiceMapping...)
		}
	}
	for _, ds := range snap.GroupMappingDragItem {
		dragItemIDs = append(dragItemIDs, ds...)
	}

	p := &paper{task: task}
	if len(groupIDs) == 0 {
		return p, nil
	}

	groups, err := b.content.GroupsByIDs(ctx, groupIDs)
	if err != nil {
		return nil, fmt.Errorf("load groups: %w", err)
	}
	questions, err := b.content.QuestionsByIDs(ctx, questionIDs)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	questionByID := indexByID(questions)

	choiceByID := map[uuid.UUID]model.Choice{}
	if len(choiceIDs) > 0 {
		choices, err := b.content.ChoicesByIDs(ctx, choiceIDs)
		if err != nil {
			return nil, fmt.Errorf("load choices: %w", err)
		}
		choiceByID = indexByID(choices)
	}

	dragItemByID := map[uuid.UUID]model.DragItem{}
	if len(dragItemIDs) > 0 {
		dragItems, err := b.content.DragItemsByIDs(ctx, dragItemIDs)
		if err != nil {
			return nil, fmt.Errorf("load drag items: %w", err)
		}
		dragItemByID = indexByID(dragItems)
	}

	for _, g := range groups {
		pg := paperGroup{group: g}
		for _, sq := range snap.GroupMappingQuestion[g.ID] {
			q, ok := questionByID[sq.VersionID]
			if !ok {
				return nil, fmt.Errorf("question %s: %w", sq.QuestionID, ErrQuestionNotFound)
			}
			pq := paperQuestion{canonicalID: sq.QuestionID, question: q}
			for _, cid := range sq.ChoiceMapping {
				c, ok := choiceByID[cid]
				if !ok {
					return nil, fmt.Errorf("choice %s: %w", cid, ErrChoiceNotFound)
				}
				pq.choices = append(pq.choices, c)
			}
			pg.questions = append(pg.questions, pq)
		}
		for _, did := range snap.GroupMappingDragItem[g.ID] {
			if d, ok := dragItemByID[did]; ok {
				pg.dragItems = append(pg.dragItems, d)
			}
		}
		p.groups = append(p.groups, pg)
	}
	p.sort()
	return p, nil
}

// resolveLive resolves a chain by graph walk and reports divergence from the
// max(version) lookup.
func resolveLive[T version.Versioned](b *SnapshotBuilder, chain *version.Chain[T], kind string) (T, bool) {
	n, ok := chain.ResolveCurrent()
	if !chain.Consistent() {
		metrics.VersionDivergence.WithLabelValues(kind).Inc()
		ev := b.log.Warn().Str("kind", kind)
		if root, rok := chain.Root(); rok {
			ev = ev.Str("original_id", root.VersionNode().ID.String())
		}
		ev.Msg("current-version lookups disagree")
	}
	return n, ok
}

func indexByID[T version.Versioned](nodes []T) map[uuid.UUID]T {
	m := make(map[uuid.UUID]T, len(nodes))
	for _, n := range nodes {
		m[n.VersionNode().ID] = n
	}
	return m
}

func (p *paper) sort() {
	sort.SliceStable(p.groups, func(i, j int) bool {
		return p.groups[i].group.SectionOrder < p.groups[j].group.SectionOrder
	})
	for gi := range p.groups {
		qs := p.groups[gi].questions
		sort.SliceStable(qs, func(i, j int) bool {
			return qs[i].question.QuestionOrder < qs[j].question.QuestionOrder
		})
		for qi := range qs {
			cs := qs[qi].choices
			sort.SliceStable(cs, func(i, j int) bool {
				if cs[i].ChoiceOrder != cs[j].ChoiceOrder {
					return cs[i].ChoiceOrder < cs[j].ChoiceOrder
				}
				return cs[i].Label < cs[j].Label
			})
		}
	}
}

func (p *paper) snapshot() *model.AttemptSnapshot {
	s := &model.AttemptSnapshot{
		TaskID:               p.task.ID,
		GroupMappingQuestion: make(map[uuid.UUID][]model.SnapshotQuestion, len(p.groups)),
		GroupMappingDragItem: make(map[uuid.UUID][]uuid.UUID, len(p.groups)),
	}
	for _, g := range p.groups {
		entries := make([]model.SnapshotQuestion, 0, len(g.questions))
		for _, q := range g.questions {
			choiceIDs := make([]uuid.UUID, 0, len(q.choices))
			for _, c := range q.choices {
				choiceIDs = append(choiceIDs, c.ID)
			}
			entries = append(entries, model.SnapshotQuestion{
				QuestionID:    q.canonicalID,
				VersionID:     q.question.ID,
				ChoiceMapping: choiceIDs,
			})
		}
		s.GroupMappingQuestion[g.group.ID] = entries

		dragIDs := make([]uuid.UUID, 0, len(g.dragItems))
		for _, d := range g.dragItems {
			dragIDs = append(dragIDs, d.ID)
		}
		s.GroupMappingDragItem[g.group.ID] = dragIDs
	}
	return s
}

func (p *paper) view() *model.AttemptView {
	v := &model.AttemptView{
		TaskID:   p.task.ID,
		Kind:     p.task.Kind,
		Title:    p.task.Title,
		Content:  p.task.Content,
		MediaURL: p.task.MediaURL,
		Groups:   make([]model.GroupView, 0, len(p.groups)),
	}
	for _, g := range p.groups {
		gv := model.GroupView{
			ID:           g.group.ID,
			SectionOrder: g.group.SectionOrder,
			SectionLabel: g.group.SectionLabel,
			Instruction:  g.group.Instruction,
			QuestionType: g.group.QuestionType,
			Questions:    make([]model.QuestionView, 0, len(g.questions)),
		}
		for _, d := range g.dragItems {
			gv.DragItems = append(gv.DragItems, model.DragItemView{ID: d.ID, Content: d.Content})
		}
		for _, q := range g.questions {
			qv := model.QuestionView{
				ID:                     q.canonicalID,
				QuestionType:           q.question.QuestionType,
				QuestionOrder:          q.question.QuestionOrder,
				Point:                  q.question.Point,
				Content:                q.question.Content,
				NumberOfCorrectAnswers: q.question.NumberOfCorrectAnswers,
			}
			for _, c := range q.choices {
				qv.Choices = append(qv.Choices, model.ChoiceView{
					ID:          c.ID,
					Label:       c.Label,
					Content:     c.Content,
					ChoiceOrder: c.ChoiceOrder,
				})
			}
			gv.Questions = append(gv.Questions, qv)
		}
		v.Groups = append(v.Groups, gv)
	}
	return v
}
