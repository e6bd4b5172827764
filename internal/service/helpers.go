package service

import (
	"errors"
	"strings"

	"github.com/noah-isme/portafolio-docente-api/internal/repository"
	appErrors "github.com/noah-isme/portafolio-docente-api/pkg/errors"
)

const defaultListLimit = 10

// pageParams resolves optional page/limit query values against the configured default.
func pageParams(page, limit *int, defaultLimit int) (int, int) {
	if defaultLimit <= 0 {
		defaultLimit = defaultListLimit
	}
	p, l := 1, defaultLimit
	if page != nil {
		p = *page
	}
	if limit != nil {
		l = *limit
	}
	return p, l
}

func invalid(err error, message string) *appErrors.Error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
}

// duplicateMessage picks a conflict message from the violated constraint name.
func duplicateMessage(err error, byConstraint map[string]string, fallback string) string {
	if !errors.Is(err, repository.ErrDuplicate) {
		return fallback
	}
	for fragment, message := range byConstraint {
		if strings.Contains(err.Error(), fragment) {
			return message
		}
	}
	return fallback
}

func stringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
