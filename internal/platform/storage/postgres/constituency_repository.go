package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/lokmanch/lokmanch/internal/domain"
)

// ConstituencyRepository maps the constituency aggregate (vidhayak profile,
// survey questions, departments, candidates) onto its GORM tables.
type ConstituencyRepository struct {
	db *gorm.DB
}

func NewConstituencyRepository(db *gorm.DB) *ConstituencyRepository {
	return &ConstituencyRepository{db: db}
}

func (r *ConstituencyRepository) Create(ctx context.Context, c domain.Constituency) error {
	if err := r.db.WithContext(ctx).Create(&c).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return fmt.Errorf("gorm constituency: insert: %w", err)
	}
	return nil
}

// Update rewrites the profile columns and replaces the reference child rows.
// Vote counters and derived scores are owned by the poll store and are not
// touched here.
func (r *ConstituencyRepository) Update(ctx context.Context, c domain.Constituency) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.Constituency{}).
			Where("id = ?", c.ID).
			Updates(map[string]any{
				"area_name":                  c.AreaName,
				"vidhayak_name":              c.Vidhayak.Name,
				"vidhayak_image_url":         c.Vidhayak.ImageURL,
				"vidhayak_age":               c.Vidhayak.Age,
				"vidhayak_party":             c.Vidhayak.Party,
				"vidhayak_party_icon_url":    c.Vidhayak.PartyIconURL,
				"vidhayak_last_vote_share":   c.Vidhayak.LastVoteShare,
				"vidhayak_experience":        c.Vidhayak.Experience,
				"vidhayak_manifesto_link":    c.Vidhayak.ManifestoLink,
				"vidhayak_education":         c.Vidhayak.Education,
				"vidhayak_net_worth":         c.Vidhayak.NetWorth,
				"vidhayak_criminal_cases":    c.Vidhayak.CriminalCases,
				"vidhayak_attendance":        c.Vidhayak.Attendance,
				"vidhayak_questions_asked":   c.Vidhayak.QuestionsAsked,
				"vidhayak_funds_utilisation": c.Vidhayak.FundsUtilisation,
			})
		if res.Error != nil {
			return fmt.Errorf("gorm constituency: update: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return domain.ErrNotFound
		}

		if err := tx.Where("constituency_id = ?", c.ID).Delete(&domain.Candidate{}).Error; err != nil {
			return fmt.Errorf("gorm constituency: replace candidates: %w", err)
		}
		for i := range c.Candidates {
			c.Candidates[i].ID = 0
			c.Candidates[i].ConstituencyID = c.ID
		}
		if len(c.Candidates) > 0 {
			if err := tx.Create(&c.Candidates).Error; err != nil {
				return fmt.Errorf("gorm constituency: insert candidates: %w", err)
			}
		}
		return nil
	})
	return err
}

func (r *ConstituencyRepository) Delete(ctx context.Context, id domain.ConstituencyID) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Child rows first; sqlite test databases do not enforce the FK
		// cascade declared in the tags.
		var deptIDs []string
		if err := tx.Model(&domain.Department{}).
			Where("constituency_id = ?", id).
			Pluck("id", &deptIDs).Error; err != nil {
			return fmt.Errorf("gorm constituency: list departments: %w", err)
		}
		if len(deptIDs) > 0 {
			if err := tx.Where("department_id IN ?", deptIDs).Delete(&domain.DepartmentQuestion{}).Error; err != nil {
				return fmt.Errorf("gorm constituency: delete department questions: %w", err)
			}
		}
		for _, model := range []any{&domain.Department{}, &domain.SurveyQuestion{}, &domain.Candidate{}, &domain.PollResponse{}} {
			if err := tx.Where("constituency_id = ?", id).Delete(model).Error; err != nil {
				return fmt.Errorf("gorm constituency: delete children: %w", err)
			}
		}

		res := tx.Delete(&domain.Constituency{}, "id = ?", id)
		if res.Error != nil {
			return fmt.Errorf("gorm constituency: delete: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return domain.ErrNotFound
		}
		return nil
	})
	return err
}

func (r *ConstituencyRepository) FindByID(ctx context.Context, id domain.ConstituencyID) (domain.Constituency, error) {
	return r.findOne(ctx, "id = ?", string(id))
}

func (r *ConstituencyRepository) FindByArea(ctx context.Context, areaName string) (domain.Constituency, error) {
	return r.findOne(ctx, "area_name = ?", areaName)
}

func (r *ConstituencyRepository) findOne(ctx context.Context, query, arg string) (domain.Constituency, error) {
	var c domain.Constituency
	err := r.db.WithContext(ctx).
		// Preloads keep the aggregate ready for domain use in one call.
		Preload("SurveyScore", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Departments.SurveyScore", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Departments").
		Preload("Candidates").
		First(&c, query, arg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Constituency{}, domain.ErrNotFound
		}
		return domain.Constituency{}, fmt.Errorf("gorm constituency: find: %w", err)
	}
	return c, nil
}

func (r *ConstituencyRepository) ListAreaNames(ctx context.Context) ([]string, error) {
	var names []string
	if err := r.db.WithContext(ctx).
		Model(&domain.Constituency{}).
		Order("area_name ASC").
		Pluck("area_name", &names).Error; err != nil {
		return nil, fmt.Errorf("gorm constituency: list area names: %w", err)
	}
	return names, nil
}

// ReplaceAll wipes the constituency tables and loads the given set, all in
// one transaction. Used by reset-populate and the seed binary.
func (r *ConstituencyRepository) ReplaceAll(ctx context.Context, cs []domain.Constituency) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range []any{
			&domain.PollResponse{},
			&domain.DepartmentQuestion{},
			&domain.Department{},
			&domain.SurveyQuestion{},
			&domain.Candidate{},
			&domain.Constituency{},
		} {
			if err := tx.Where("1 = 1").Delete(model).Error; err != nil {
				return fmt.Errorf("gorm constituency: wipe: %w", err)
			}
		}

		for i := range cs {
			if err := tx.Create(&cs[i]).Error; err != nil {
				return fmt.Errorf("gorm constituency: bulk insert %q: %w", cs[i].AreaName, err)
			}
		}
		return nil
	})
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// Driver-specific fallbacks: pgx reports SQLSTATE 23505, sqlite mentions
	// the UNIQUE constraint by name.
	msg := err.Error()
	return strings.Contains(msg, "23505") || strings.Contains(msg, "UNIQUE constraint")
}

var _ domain.ConstituencyRepository = (*ConstituencyRepository)(nil)
