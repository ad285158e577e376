package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stemsi/practice-backend/internal/events"
	"github.com/stemsi/practice-backend/internal/model"
	"github.com/stemsi/practice-backend/internal/version"
)

func TestEditQuestion_AppendsVersion(t *testing.T) {
	w := newWorld()
	ctx := context.Background()
	author := uuid.New()

	v2, err := w.editor.EditQuestion(ctx, author, w.fib.ID, model.EditQuestionRequest{
		Content: ptr("Snow is a form of ____."),
		Point:   ptr(4),
	})
	if err != nil {
		t.Fatalf("EditQuestion: %v", err)
	}
	if v2.ID == w.fib.ID || v2.OriginalID != w.fib.OriginalID {
		t.Fatalf("new node = %+v", v2.Node)
	}
	if v2.ParentID == nil || *v2.ParentID != w.fib.ID || v2.Version != 2 || v2.IsOriginal {
		t.Fatalf("new node header = %+v", v2.Node)
	}
	if v2.Point != 4 || v2.CorrectAnswer != w.fib.CorrectAnswer {
		t.Fatalf("edit not applied over current node: %+v", v2)
	}

	// Editing through the old id still derives from the live node.
	v3, err := w.editor.EditQuestion(ctx, author, w.fib.ID, model.EditQuestionRequest{Explanation: ptr("Rain, snow and hail.")})
	if err != nil {
		t.Fatalf("EditQuestion: %v", err)
	}
	if *v3.ParentID != v2.ID || v3.Version != 3 || v3.Point != 4 {
		t.Fatalf("third node = %+v", v3)
	}

	chain := version.NewChain(chainOf(w.content.questions, w.fib.ID))
	live, ok := chain.ResolveCurrent()
	if !ok || live.ID != v3.ID || !chain.Consistent() {
		t.Fatalf("chain current = %v (ok=%v)", live.ID, ok)
	}
	for _, q := range w.content.questions {
		if q.OriginalID == w.fib.OriginalID && q.ID != v3.ID && q.IsCurrent {
			t.Fatalf("stale node %s still current", q.ID)
		}
	}

	if len(w.publisher.events) != 2 {
		t.Fatalf("events = %d, want 2", len(w.publisher.events))
	}
	e := w.publisher.events[0]
	if e.Action != events.ActionEdited || e.NodeID != v2.ID || e.OriginalID != w.fib.OriginalID || e.ActorID != author {
		t.Fatalf("event = %+v", e)
	}
}

func TestEditChoice_AppendsVersion(t *testing.T) {
	w := newWorld()
	ctx := context.Background()

	edited, err := w.editor.EditChoice(ctx, uuid.New(), w.choiceB.ID, model.EditChoiceRequest{IsCorrect: ptr(true)})
	if err != nil {
		t.Fatalf("EditChoice: %v", err)
	}
	if edited.QuestionID != w.mc.OriginalID || edited.Label != "B" || !edited.IsCorrect {
		t.Fatalf("edited = %+v", edited)
	}
	if w.publisher.events[0].Kind != "choice" {
		t.Fatalf("event kind = %q", w.publisher.events[0].Kind)
	}
}

func TestRetract(t *testing.T) {
	w := newWorld()
	ctx := context.Background()

	if err := w.editor.RetractChoice(ctx, uuid.New(), w.choiceB.ID); err != nil {
		t.Fatalf("RetractChoice: %v", err)
	}
	if _, ok := version.NewChain(chainOf(w.content.choices, w.choiceB.ID)).ResolveCurrent(); ok {
		t.Fatal("retracted chain still has a live node")
	}
	if got := w.publisher.events[0].Action; got != events.ActionRetracted {
		t.Fatalf("action = %q", got)
	}

	if _, err := w.editor.EditChoice(ctx, uuid.New(), w.choiceB.ID, model.EditChoiceRequest{Content: ptr("x")}); !errors.Is(err, ErrContentRetracted) {
		t.Fatalf("edit after retract: err = %v, want ErrContentRetracted", err)
	}
	if err := w.editor.RetractChoice(ctx, uuid.New(), w.choiceB.ID); !errors.Is(err, ErrContentRetracted) {
		t.Fatalf("second retract: err = %v, want ErrContentRetracted", err)
	}

	view := startAttempt(t, w)
	if got := len(view.Groups[0].Questions[0].Choices); got != 1 {
		t.Fatalf("choices on new attempt = %d, want 1", got)
	}
}

func TestContentNotFound(t *testing.T) {
	w := newWorld()
	ctx := context.Background()

	if _, err := w.editor.EditQuestion(ctx, uuid.New(), uuid.New(), model.EditQuestionRequest{}); !errors.Is(err, ErrContentNotFound) {
		t.Fatalf("EditQuestion: err = %v", err)
	}
	if err := w.editor.RetractQuestion(ctx, uuid.New(), uuid.New()); !errors.Is(err, ErrContentNotFound) {
		t.Fatalf("RetractQuestion: err = %v", err)
	}
	if len(w.publisher.events) != 0 {
		t.Fatalf("events published for failed edits: %d", len(w.publisher.events))
	}
}

func TestPublishFailureDoesNotFailEdit(t *testing.T) {
	w := newWorld()
	w.publisher.err = errors.New("redis down")

	if _, err := w.editor.EditQuestion(context.Background(), uuid.New(), w.mc.ID, model.EditQuestionRequest{Content: ptr("x")}); err != nil {
		t.Fatalf("EditQuestion: %v", err)
	}
	if len(chainOf(w.content.questions, w.mc.ID)) != 2 {
		t.Fatal("edit was not stored")
	}
}
