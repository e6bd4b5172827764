package service

import (
	"fmt"
	"time"

	"github.com/noah-isme/portafolio-docente-api/internal/models"
	"github.com/noah-isme/portafolio-docente-api/internal/repository"
	appErrors "github.com/noah-isme/portafolio-docente-api/pkg/errors"
)

// Lifecycle actions, also used as the transition metric label.
const (
	actionSubmit   = "submit"
	actionAssign   = "assign"
	actionEvaluate = "evaluate"
)

// lifecycle lists, per action, the single source state it fires from and the states it may lead to.
var lifecycle = map[string]struct {
	from models.PortfolioStatus
	to   []models.PortfolioStatus
}{
	actionSubmit:   {from: models.PortfolioStatusDraft, to: []models.PortfolioStatus{models.PortfolioStatusUnderReview}},
	actionAssign:   {from: models.PortfolioStatusUnderReview, to: []models.PortfolioStatus{models.PortfolioStatusUnderReview}},
	actionEvaluate: {from: models.PortfolioStatusUnderReview, to: []models.PortfolioStatus{models.PortfolioStatusApproved, models.PortfolioStatusRejected}},
}

func checkTransition(action string, from, to models.PortfolioStatus) error {
	rule, ok := lifecycle[action]
	if !ok {
		return appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("unknown action %q", action))
	}
	if from != rule.from {
		return appErrors.Clone(appErrors.ErrInvalidTransition,
			fmt.Sprintf("cannot %s a portfolio in status %s; it must be %s", action, from, rule.from))
	}
	for _, target := range rule.to {
		if target == to {
			return nil
		}
	}
	return appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("%s cannot lead to status %s", action, to))
}

// submitGuard lets the owning teacher (or an administrator) send a non-empty draft for review.
func submitGuard(viewer models.Viewer, now time.Time) func(*models.PortfolioAccess) (*repository.PortfolioChange, error) {
	return func(current *models.PortfolioAccess) (*repository.PortfolioChange, error) {
		if !ownsPortfolio(viewer, current.TeacherID) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "only the course teacher can submit this portfolio")
		}
		if err := checkTransition(actionSubmit, current.Status, models.PortfolioStatusUnderReview); err != nil {
			return nil, err
		}
		if current.DocumentCount == 0 {
			return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "portfolio must contain at least one document before submission")
		}
		return &repository.PortfolioChange{
			To:          models.PortfolioStatusUnderReview,
			SubmittedAt: &now,
			UpdatedAt:   now,
		}, nil
	}
}

// assignGuard records the evaluator of a portfolio under review. Only administrators reach it.
func assignGuard(viewer models.Viewer, evaluatorID string, now time.Time) func(*models.PortfolioAccess) (*repository.PortfolioChange, error) {
	return func(current *models.PortfolioAccess) (*repository.PortfolioChange, error) {
		if viewer.Role != models.RoleAdmin {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "only administrators assign evaluators")
		}
		if err := checkTransition(actionAssign, current.Status, models.PortfolioStatusUnderReview); err != nil {
			return nil, err
		}
		return &repository.PortfolioChange{
			To:          current.Status,
			EvaluatorID: &evaluatorID,
			UpdatedAt:   now,
		}, nil
	}
}

// evaluateGuard records the decision of the assigned evaluator (or an administrator)
// together with a completed evaluation comment.
func evaluateGuard(viewer models.Viewer, decision models.PortfolioStatus, comments string, rating *int, now time.Time) func(*models.PortfolioAccess) (*repository.PortfolioChange, error) {
	return func(current *models.PortfolioAccess) (*repository.PortfolioChange, error) {
		if !evaluatesPortfolio(viewer, current.EvaluatorID) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "only the assigned evaluator can evaluate this portfolio")
		}
		if err := checkTransition(actionEvaluate, current.Status, decision); err != nil {
			return nil, err
		}
		body := comments
		if body == "" {
			body = fmt.Sprintf("Portfolio evaluated as %s", decision)
		}
		change := &repository.PortfolioChange{
			To:         decision,
			ReviewedAt: &now,
			UpdatedAt:  now,
			Comment: &models.Comment{
				EvaluatorID: viewer.UserID,
				Body:        body,
				Type:        models.CommentGeneral,
				Rating:      rating,
				Status:      models.CommentCompleted,
				CreatedAt:   now,
			},
		}
		if comments != "" {
			change.EvaluationComments = &comments
		}
		return change, nil
	}
}

// parseDecision accepts only the two terminal outcomes, in either vocabulary.
func parseDecision(raw string) (models.PortfolioStatus, bool) {
	status, ok := models.ParsePortfolioStatus(raw)
	if !ok || !status.Terminal() {
		return "", false
	}
	return status, true
}
