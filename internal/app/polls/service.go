// Package polls implements the poll business rules: validating submissions
// against the constituency document and applying them through the poll store.
package polls

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/lokmanch/lokmanch/internal/domain"
	"github.com/lokmanch/lokmanch/internal/platform/ids"
	"github.com/lokmanch/lokmanch/internal/platform/ratelimit"
)

var (
	ErrConstituencyNotFound = errors.New("constituency not found")
	ErrDepartmentNotFound   = errors.New("department not found")
	// A bad vidhayak index means the questionnaire entry does not exist; a
	// bad department index is a malformed submission. The two surface as
	// different HTTP statuses, so they are separate sentinels.
	ErrQuestionOutOfRange   = errors.New("question index out of range")
	ErrInvalidQuestionIndex = errors.New("invalid question index")
	ErrInvalidCategory      = errors.New("invalid poll category")
	ErrInvalidResponse      = errors.New("invalid poll response")
	ErrInvalidRating        = errors.New("invalid rating")
	ErrRateLimited          = errors.New("too many submissions")
)

// Service validates poll submissions and delegates the counter mutation and
// score cascade to the store. Every check runs before anything is written.
type Service struct {
	constituencies domain.ConstituencyRepository
	store          domain.PollStore
	limiter        domain.RateLimiter
	clock          domain.Clock
	ids            *ids.Generator
}

func NewService(
	constituencies domain.ConstituencyRepository,
	store domain.PollStore,
	limiter domain.RateLimiter,
	clock domain.Clock,
	idsGen *ids.Generator,
) *Service {
	if idsGen == nil {
		idsGen = ids.DefaultGenerator()
	}
	return &Service{
		constituencies: constituencies,
		store:          store,
		limiter:        limiter,
		clock:          clock,
		ids:            idsGen,
	}
}

// Submit dispatches on the submission's category. The department category
// carries its rating in Response as a decimal string.
func (s *Service) Submit(ctx context.Context, sub domain.PollSubmission) (domain.PollResult, error) {
	switch sub.Category {
	case domain.PollCategoryVidhayak:
		tally, err := s.SubmitVidhayakPoll(ctx, sub.AreaName, sub.QuestionIndex, sub.Response, sub.Meta)
		if err != nil {
			return domain.PollResult{}, err
		}
		return domain.PollResult{Category: sub.Category, Vidhayak: &tally}, nil
	case domain.PollCategoryDepartment:
		rating, err := strconv.Atoi(strings.TrimSpace(sub.Response))
		if err != nil {
			return domain.PollResult{}, fmt.Errorf("%w: %q", ErrInvalidRating, sub.Response)
		}
		tally, err := s.SubmitDepartmentPoll(ctx, sub.AreaName, sub.DepartmentID, sub.QuestionIndex, rating, sub.Meta)
		if err != nil {
			return domain.PollResult{}, err
		}
		return domain.PollResult{Category: sub.Category, Department: &tally}, nil
	default:
		return domain.PollResult{}, fmt.Errorf("%w: %q", ErrInvalidCategory, sub.Category)
	}
}

func (s *Service) SubmitVidhayakPoll(ctx context.Context, areaName string, questionIndex int, response string, meta domain.PollMeta) (domain.VidhayakTally, error) {
	c, err := s.findConstituency(ctx, areaName)
	if err != nil {
		return domain.VidhayakTally{}, err
	}

	if questionIndex < 0 || questionIndex >= len(c.SurveyScore) {
		return domain.VidhayakTally{}, fmt.Errorf("%w: index %d of %d questions", ErrQuestionOutOfRange, questionIndex, len(c.SurveyScore))
	}

	var yes bool
	switch strings.ToLower(strings.TrimSpace(response)) {
	case "yes":
		yes = true
	case "no":
		yes = false
	default:
		return domain.VidhayakTally{}, fmt.Errorf("%w: %q", ErrInvalidResponse, response)
	}

	if err := s.allow(ctx, areaName, meta); err != nil {
		return domain.VidhayakTally{}, err
	}

	ledger := s.newLedgerRow(c.ID, domain.PollCategoryVidhayak, nil, questionIndex, response, meta)
	tally, err := s.store.ApplyVidhayakVote(ctx, c.SurveyScore[questionIndex].ID, yes, ledger)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.VidhayakTally{}, ErrQuestionOutOfRange
		}
		return domain.VidhayakTally{}, err
	}
	return tally, nil
}

func (s *Service) SubmitDepartmentPoll(ctx context.Context, areaName string, departmentID domain.DepartmentID, questionIndex, rating int, meta domain.PollMeta) (domain.DepartmentTally, error) {
	c, err := s.findConstituency(ctx, areaName)
	if err != nil {
		return domain.DepartmentTally{}, err
	}

	var dept *domain.Department
	for i := range c.Departments {
		if c.Departments[i].ID == departmentID {
			dept = &c.Departments[i]
			break
		}
	}
	if dept == nil {
		return domain.DepartmentTally{}, fmt.Errorf("%w: %q", ErrDepartmentNotFound, departmentID)
	}

	if questionIndex < 0 || questionIndex >= len(dept.SurveyScore) {
		return domain.DepartmentTally{}, fmt.Errorf("%w: index %d of %d questions", ErrInvalidQuestionIndex, questionIndex, len(dept.SurveyScore))
	}
	if rating < 1 || rating > 5 {
		return domain.DepartmentTally{}, fmt.Errorf("%w: %d", ErrInvalidRating, rating)
	}

	if err := s.allow(ctx, areaName, meta); err != nil {
		return domain.DepartmentTally{}, err
	}

	ledger := s.newLedgerRow(c.ID, domain.PollCategoryDepartment, &departmentID, questionIndex, strconv.Itoa(rating), meta)
	tally, err := s.store.ApplyDepartmentVote(ctx, dept.SurveyScore[questionIndex].ID, rating, ledger)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.DepartmentTally{}, ErrInvalidQuestionIndex
		}
		return domain.DepartmentTally{}, err
	}
	return tally, nil
}

func (s *Service) findConstituency(ctx context.Context, areaName string) (domain.Constituency, error) {
	areaName = strings.TrimSpace(areaName)
	if areaName == "" {
		return domain.Constituency{}, fmt.Errorf("%w: empty area name", ErrConstituencyNotFound)
	}
	c, err := s.constituencies.FindByArea(ctx, areaName)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Constituency{}, fmt.Errorf("%w: %q", ErrConstituencyNotFound, areaName)
		}
		return domain.Constituency{}, err
	}
	return c, nil
}

// allow runs only after validation so that malformed requests never consume
// rate-limit budget.
func (s *Service) allow(ctx context.Context, areaName string, meta domain.PollMeta) error {
	if s.limiter == nil {
		return nil
	}
	key := areaName + "|" + meta.OriginIP + "|" + meta.UserAgent
	if err := s.limiter.Allow(ctx, key); err != nil {
		if errors.Is(err, ratelimit.ErrRateLimitExceeded) {
			return ErrRateLimited
		}
		return err
	}
	return nil
}

func (s *Service) newLedgerRow(constituencyID domain.ConstituencyID, category string, departmentID *domain.DepartmentID, questionIndex int, response string, meta domain.PollMeta) domain.PollResponse {
	return domain.PollResponse{
		ID:             domain.PollID(s.ids.New()),
		ConstituencyID: constituencyID,
		Category:       category,
		DepartmentID:   departmentID,
		QuestionIndex:  questionIndex,
		Response:       response,
		OriginIP:       meta.OriginIP,
		UserAgent:      meta.UserAgent,
		CreatedAt:      s.clock.Now(),
	}
}

var _ domain.PollService = (*Service)(nil)
