package service

import "github.com/noah-isme/portafolio-docente-api/internal/models"

// ownsPortfolio reports whether viewer may act as the portfolio's teacher.
func ownsPortfolio(viewer models.Viewer, teacherID string) bool {
	return viewer.Role == models.RoleAdmin || (viewer.Role == models.RoleTeacher && viewer.UserID == teacherID)
}

// evaluatesPortfolio reports whether viewer may act as the portfolio's evaluator.
func evaluatesPortfolio(viewer models.Viewer, evaluatorID *string) bool {
	if viewer.Role == models.RoleAdmin {
		return true
	}
	return viewer.Role == models.RoleEvaluator && evaluatorID != nil && *evaluatorID == viewer.UserID
}

// seesComments decides whether evaluator comments are projected for viewer.
// Teachers only see them when they are also the portfolio's evaluator.
func seesComments(viewer models.Viewer, portfolio *models.PortfolioSummary) bool {
	switch viewer.Role {
	case models.RoleAdmin, models.RoleEvaluator:
		return true
	case models.RoleTeacher:
		return portfolio.EvaluatorID != nil && *portfolio.EvaluatorID == viewer.UserID
	}
	return false
}
