// Package directory implements the admin surface for the constituency
// reference data: area listing, lookup and the CRUD operations behind the
// token-gated routes.
package directory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lokmanch/lokmanch/internal/domain"
	"github.com/lokmanch/lokmanch/internal/platform/ids"
	"github.com/lokmanch/lokmanch/internal/platform/seed"
)

var (
	ErrConstituencyNotFound = errors.New("constituency not found")
	ErrInvalidConstituency  = errors.New("invalid constituency")
	ErrDuplicateArea        = errors.New("area name already exists")
	ErrDuplicateDepartment  = errors.New("duplicate department id")
)

type Service struct {
	constituencies domain.ConstituencyRepository
	ids            *ids.Generator
	log            *slog.Logger
}

func NewService(constituencies domain.ConstituencyRepository, idsGen *ids.Generator, log *slog.Logger) *Service {
	if idsGen == nil {
		idsGen = ids.DefaultGenerator()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		constituencies: constituencies,
		ids:            idsGen,
		log:            log,
	}
}

func (s *Service) ListAreaNames(ctx context.Context) ([]string, error) {
	return s.constituencies.ListAreaNames(ctx)
}

func (s *Service) GetByArea(ctx context.Context, areaName string) (domain.Constituency, error) {
	c, err := s.constituencies.FindByArea(ctx, strings.TrimSpace(areaName))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Constituency{}, fmt.Errorf("%w: %q", ErrConstituencyNotFound, areaName)
		}
		return domain.Constituency{}, err
	}
	return c, nil
}

// Create registers a constituency. Survey questions missing from the payload
// are filled in from the standard question sets so every area is pollable
// from the start.
func (s *Service) Create(ctx context.Context, c domain.Constituency) (domain.Constituency, error) {
	if err := validate(c); err != nil {
		return domain.Constituency{}, err
	}

	c.AreaName = strings.TrimSpace(c.AreaName)
	c.ID = domain.ConstituencyID(s.ids.New())
	c.Vidhayak.ManifestoScore = 0

	if len(c.SurveyScore) == 0 {
		for _, q := range seed.SurveyQuestions {
			c.SurveyScore = append(c.SurveyScore, domain.SurveyQuestion{Question: q})
		}
	}
	for i := range c.SurveyScore {
		c.SurveyScore[i].ID = domain.QuestionID(s.ids.New())
		c.SurveyScore[i].ConstituencyID = c.ID
		c.SurveyScore[i].Position = i
		c.SurveyScore[i].YesVotes = 0
		c.SurveyScore[i].NoVotes = 0
		c.SurveyScore[i].Score = 0
	}

	seen := make(map[domain.DepartmentID]bool, len(c.Departments))
	for i := range c.Departments {
		dept := &c.Departments[i]
		if dept.ID == "" {
			dept.ID = domain.DepartmentID(ids.NewUUID())
		}
		if seen[dept.ID] {
			return domain.Constituency{}, fmt.Errorf("%w: %q", ErrDuplicateDepartment, dept.ID)
		}
		seen[dept.ID] = true
		dept.ConstituencyID = c.ID
		dept.AverageScore = 0

		if len(dept.SurveyScore) == 0 {
			for _, q := range seed.DepartmentQuestions {
				dept.SurveyScore = append(dept.SurveyScore, domain.DepartmentQuestion{Question: q})
			}
		}
		for j := range dept.SurveyScore {
			q := &dept.SurveyScore[j]
			q.ID = domain.QuestionID(s.ids.New())
			q.DepartmentID = dept.ID
			q.Position = j
			q.Rating1, q.Rating2, q.Rating3, q.Rating4, q.Rating5 = 0, 0, 0, 0, 0
			q.Score = 0
		}
	}
	for i := range c.Candidates {
		c.Candidates[i].ConstituencyID = c.ID
	}

	if err := s.constituencies.Create(ctx, c); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return domain.Constituency{}, fmt.Errorf("%w: %q", ErrDuplicateArea, c.AreaName)
		}
		return domain.Constituency{}, err
	}
	s.log.InfoContext(ctx, "constituency created",
		slog.String("id", string(c.ID)),
		slog.String("area", c.AreaName))
	return c, nil
}

// Update rewrites the vidhayak profile and candidate list. Questions,
// departments and everything voters have accumulated stay untouched.
func (s *Service) Update(ctx context.Context, c domain.Constituency) (domain.Constituency, error) {
	if c.ID == "" {
		return domain.Constituency{}, fmt.Errorf("%w: missing id", ErrInvalidConstituency)
	}
	if err := validate(c); err != nil {
		return domain.Constituency{}, err
	}
	c.AreaName = strings.TrimSpace(c.AreaName)

	if err := s.constituencies.Update(ctx, c); err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			return domain.Constituency{}, fmt.Errorf("%w: %q", ErrConstituencyNotFound, c.ID)
		case errors.Is(err, domain.ErrConflict):
			return domain.Constituency{}, fmt.Errorf("%w: %q", ErrDuplicateArea, c.AreaName)
		}
		return domain.Constituency{}, err
	}

	return s.constituencies.FindByID(ctx, c.ID)
}

func (s *Service) Delete(ctx context.Context, id domain.ConstituencyID) error {
	if err := s.constituencies.Delete(ctx, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("%w: %q", ErrConstituencyNotFound, id)
		}
		return err
	}
	s.log.InfoContext(ctx, "constituency deleted", slog.String("id", string(id)))
	return nil
}

// ResetPopulate wipes the directory and loads the bundled dataset. Every
// counter and score restarts at zero.
func (s *Service) ResetPopulate(ctx context.Context) (int, error) {
	dataset := seed.Constituencies(s.ids)
	if err := s.constituencies.ReplaceAll(ctx, dataset); err != nil {
		return 0, err
	}
	s.log.InfoContext(ctx, "directory reset", slog.Int("constituencies", len(dataset)))
	return len(dataset), nil
}

func validate(c domain.Constituency) error {
	if strings.TrimSpace(c.AreaName) == "" {
		return fmt.Errorf("%w: area name required", ErrInvalidConstituency)
	}
	if strings.TrimSpace(c.Vidhayak.Name) == "" {
		return fmt.Errorf("%w: vidhayak name required", ErrInvalidConstituency)
	}
	return nil
}

var _ domain.DirectoryService = (*Service)(nil)
