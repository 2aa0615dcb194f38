package clinical

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	ErrNotFound      = errors.New("discharge summary not found")
	ErrAlreadySigned = errors.New("discharge summary already signed")
	ErrEmptyBody     = errors.New("discharge summary body is required")
)

type Service struct {
	repo   Repository
	logger zerolog.Logger
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (s *Service) CreateSummary(ctx context.Context, visitID uuid.UUID, authorID *uuid.UUID, body string) (*DischargeSummary, error) {
	if strings.TrimSpace(body) == "" {
		return nil, ErrEmptyBody
	}
	ds := &DischargeSummary{VisitID: visitID, AuthorID: authorID, Body: body}
	if err := s.repo.Create(ctx, ds); err != nil {
		return nil, fmt.Errorf("create discharge summary: %w", err)
	}
	return ds, nil
}

func (s *Service) GetByVisit(ctx context.Context, visitID uuid.UUID) (*DischargeSummary, error) {
	return s.repo.GetByVisit(ctx, visitID)
}

// SignSummary marks the summary signed. Signing is one-way; a signed summary
// satisfies the discharge gate for its visit.
func (s *Service) SignSummary(ctx context.Context, id, authorID uuid.UUID) error {
	if err := s.repo.Sign(ctx, id, authorID); err != nil {
		return err
	}
	s.logger.Info().
		Str("summary_id", id.String()).
		Str("author_id", authorID.String()).
		Msg("discharge summary signed")
	return nil
}
