package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"studyhub/internal/domain"
)

// StudySource is the slice of the platform API for study-session tracking.
type StudySource interface {
	ListStudySessions(ctx context.Context, sc domain.SessionContext) ([]domain.StudySession, error)
	CreateStudySession(ctx context.Context, sc domain.SessionContext, in domain.StudySessionInput) (domain.StudySession, error)
	UpdateStudySession(ctx context.Context, sc domain.SessionContext, id string, in domain.StudySessionInput) (domain.StudySession, error)
	DeleteStudySession(ctx context.Context, sc domain.SessionContext, id string) error
	StudyStats(ctx context.Context, sc domain.SessionContext) (domain.StudyStats, error)
}

type StudyService struct {
	source   StudySource
	validate *validator.Validate
}

func NewStudyService(source StudySource) *StudyService {
	return &StudyService{source: source, validate: validator.New(validator.WithRequiredStructEnabled())}
}

func (s *StudyService) List(ctx context.Context, sc domain.SessionContext) ([]domain.StudySession, error) {
	return s.source.ListStudySessions(ctx, sc)
}

func (s *StudyService) Create(ctx context.Context, sc domain.SessionContext, in domain.StudySessionInput) (domain.StudySession, error) {
	if err := s.check(in); err != nil {
		return domain.StudySession{}, err
	}
	return s.source.CreateStudySession(ctx, sc, in)
}

func (s *StudyService) Update(ctx context.Context, sc domain.SessionContext, id string, in domain.StudySessionInput) (domain.StudySession, error) {
	if strings.TrimSpace(id) == "" {
		return domain.StudySession{}, fmt.Errorf("id required: %w", domain.ErrValidation)
	}
	if err := s.check(in); err != nil {
		return domain.StudySession{}, err
	}
	return s.source.UpdateStudySession(ctx, sc, id, in)
}

func (s *StudyService) Delete(ctx context.Context, sc domain.SessionContext, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("id required: %w", domain.ErrValidation)
	}
	return s.source.DeleteStudySession(ctx, sc, id)
}

func (s *StudyService) Stats(ctx context.Context, sc domain.SessionContext) (domain.StudyStats, error) {
	return s.source.StudyStats(ctx, sc)
}

func (s *StudyService) check(in domain.StudySessionInput) error {
	err := s.validate.Struct(in)
	if err == nil {
		return nil
	}
	var fields validator.ValidationErrors
	if errors.As(err, &fields) {
		names := make([]string, 0, len(fields))
		for _, f := range fields {
			names = append(names, f.Field()+" "+f.Tag())
		}
		return fmt.Errorf("%s: %w", strings.Join(names, ", "), domain.ErrValidation)
	}
	return fmt.Errorf("%v: %w", err, domain.ErrValidation)
}
