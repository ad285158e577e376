package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/practice-backend/internal/events"
	"github.com/stemsi/practice-backend/internal/model"
	"github.com/stemsi/practice-backend/internal/repository"
	"github.com/stemsi/practice-backend/internal/version"
)

// Content errors
var (
	ErrContentNotFound  = errors.New("content not found")
	ErrContentRetracted = errors.New("content has been retracted")
)

// EventPublisher is the outbound channel for content change notifications.
type EventPublisher interface {
	Publish(ctx context.Context, e events.ContentChanged) error
}

// ContentService appends versions to question and choice chains. Existing
// nodes are never modified beyond their current/deleted flags.
type ContentService struct {
	content   repository.ContentWriter
	publisher EventPublisher
	log       zerolog.Logger
}

// NewContentService creates a new ContentService.
func NewContentService(content repository.ContentWriter, publisher EventPublisher, log zerolog.Logger) *ContentService {
	return &ContentService{
		content:   content,
		publisher: publisher,
		log:       log.With().Str("component", "content_service").Logger(),
	}
}

// EditQuestion appends a new version to the chain questionID belongs to,
// derived from the chain's current node.
func (s *ContentService) EditQuestion(ctx context.Context, actorID, questionID uuid.UUID, req model.EditQuestionRequest) (*model.Question, error) {
	var edited model.Question
	err := s.content.InContentTx(ctx, func(w repository.ContentWriter) error {
		nodes, err := w.QuestionChainForUpdate(ctx, questionID)
		if err != nil {
			return fmt.Errorf("lock question chain: %w", err)
		}
		current, err := currentOf(nodes)
		if err != nil {
			return err
		}

		next, err := version.NewChain(nodes).Next(current.ID)
		if err != nil {
			return err
		}
		edited = current
		edited.Node = next
		applyQuestionEdit(&edited, req)

		if err := w.ClearCurrent(ctx, repository.KindQuestion, edited.OriginalID); err != nil {
			return fmt.Errorf("clear current: %w", err)
		}
		return w.InsertQuestion(ctx, &edited)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, repository.KindQuestion, events.ActionEdited, edited.Node, actorID)
	return &edited, nil
}

// EditChoice appends a new version to the chain choiceID belongs to.
func (s *ContentService) EditChoice(ctx context.Context, actorID, choiceID uuid.UUID, req model.EditChoiceRequest) (*model.Choice, error) {
	var edited model.Choice
	err := s.content.InContentTx(ctx, func(w repository.ContentWriter) error {
		nodes, err := w.ChoiceChainForUpdate(ctx, choiceID)
		if err != nil {
			return fmt.Errorf("lock choice chain: %w", err)
		}
		current, err := currentOf(nodes)
		if err != nil {
			return err
		}

		next, err := version.NewChain(nodes).Next(current.ID)
		if err != nil {
			return err
		}
		edited = current
		edited.Node = next
		if req.Label != nil {
			edited.Label = *req.Label
		}
		if req.Content != nil {
			edited.Content = *req.Content
		}
		if req.ChoiceOrder != nil {
			edited.ChoiceOrder = *req.ChoiceOrder
		}
		if req.IsCorrect != nil {
			edited.IsCorrect = *req.IsCorrect
		}

		if err := w.ClearCurrent(ctx, repository.KindChoice, edited.OriginalID); err != nil {
			return fmt.Errorf("clear current: %w", err)
		}
		return w.InsertChoice(ctx, &edited)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, repository.KindChoice, events.ActionEdited, edited.Node, actorID)
	return &edited, nil
}

// RetractQuestion soft-deletes the current node of a question chain, leaving
// the chain with no live node.
func (s *ContentService) RetractQuestion(ctx context.Context, actorID, questionID uuid.UUID) error {
	var retracted version.Node
	err := s.content.InContentTx(ctx, func(w repository.ContentWriter) error {
		nodes, err := w.QuestionChainForUpdate(ctx, questionID)
		if err != nil {
			return fmt.Errorf("lock question chain: %w", err)
		}
		current, err := currentOf(nodes)
		if err != nil {
			return err
		}
		retracted = current.Node
		return w.SoftDelete(ctx, repository.KindQuestion, current.ID)
	})
	if err != nil {
		return err
	}

	s.publish(ctx, repository.KindQuestion, events.ActionRetracted, retracted, actorID)
	return nil
}

// RetractChoice soft-deletes the current node of a choice chain.
func (s *ContentService) RetractChoice(ctx context.Context, actorID, choiceID uuid.UUID) error {
	var retracted version.Node
	err := s.content.InContentTx(ctx, func(w repository.ContentWriter) error {
		nodes, err := w.ChoiceChainForUpdate(ctx, choiceID)
		if err != nil {
			return fmt.Errorf("lock choice chain: %w", err)
		}
		current, err := currentOf(nodes)
		if err != nil {
			return err
		}
		retracted = current.Node
		return w.SoftDelete(ctx, repository.KindChoice, current.ID)
	})
	if err != nil {
		return err
	}

	s.publish(ctx, repository.KindChoice, events.ActionRetracted, retracted, actorID)
	return nil
}

// publish is best effort; the edit has already committed.
func (s *ContentService) publish(ctx context.Context, kind repository.Kind, action events.Action, n version.Node, actorID uuid.UUID) {
	err := s.publisher.Publish(ctx, events.ContentChanged{
		Kind:       string(kind),
		Action:     action,
		OriginalID: n.OriginalID,
		NodeID:     n.ID,
		ActorID:    actorID,
	})
	if err != nil {
		s.log.Warn().Err(err).
			Str("kind", string(kind)).
			Str("node_id", n.ID.String()).
			Msg("failed to publish content change")
	}
}

func currentOf[T version.Versioned](nodes []T) (T, error) {
	var zero T
	if len(nodes) == 0 {
		return zero, ErrContentNotFound
	}
	current, ok := version.NewChain(nodes).ResolveCurrent()
	if !ok {
		return zero, ErrContentRetracted
	}
	return current, nil
}

func applyQuestionEdit(q *model.Question, req model.EditQuestionRequest) {
	if req.Content != nil {
		q.Content = *req.Content
	}
	if req.Explanation != nil {
		q.Explanation = *req.Explanation
	}
	if req.Point != nil {
		q.Point = *req.Point
	}
	if req.QuestionOrder != nil {
		q.QuestionOrder = *req.QuestionOrder
	}
	if req.NumberOfCorrectAnswers != nil {
		q.NumberOfCorrectAnswers = *req.NumberOfCorrectAnswers
	}
	if req.CorrectAnswer != nil {
		q.CorrectAnswer = *req.CorrectAnswer
	}
	if req.CorrectAnswerForMatching != nil {
		q.CorrectAnswerForMatching = *req.CorrectAnswerForMatching
	}
	if req.DragItemID != nil {
		id := *req.DragItemID
		q.DragItemID = &id
	}
}
