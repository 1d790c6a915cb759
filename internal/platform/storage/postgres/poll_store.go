package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/lokmanch/lokmanch/internal/domain"
)

// PollStore owns the vote counters and every score derived from them. Leaf
// counters are bumped with single-statement atomic UPDATEs so concurrent
// votes never lose increments; derived scores are recomputed from a
// post-increment read inside the same transaction.
type PollStore struct {
	db *gorm.DB
}

func NewPollStore(db *gorm.DB) *PollStore {
	return &PollStore{db: db}
}

func (s *PollStore) ApplyVidhayakVote(ctx context.Context, questionID domain.QuestionID, yes bool, ledger domain.PollResponse) (domain.VidhayakTally, error) {
	column := "no_votes"
	if yes {
		column = "yes_votes"
	}

	var tally domain.VidhayakTally
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.SurveyQuestion{}).
			Where("id = ?", questionID).
			UpdateColumn(column, gorm.Expr(column+" + 1"))
		if res.Error != nil {
			return fmt.Errorf("gorm polls: increment %s: %w", column, res.Error)
		}
		if res.RowsAffected == 0 {
			return domain.ErrNotFound
		}

		var q domain.SurveyQuestion
		if err := tx.First(&q, "id = ?", questionID).Error; err != nil {
			return fmt.Errorf("gorm polls: reread question: %w", err)
		}

		score := domain.YesNoScore(q.YesVotes, q.NoVotes)
		if err := tx.Model(&domain.SurveyQuestion{}).
			Where("id = ?", questionID).
			UpdateColumn("score", score).Error; err != nil {
			return fmt.Errorf("gorm polls: store score: %w", err)
		}

		if err := tx.Create(&ledger).Error; err != nil {
			return fmt.Errorf("gorm polls: append ledger: %w", err)
		}

		tally = domain.VidhayakTally{
			YesVotes: q.YesVotes,
			NoVotes:  q.NoVotes,
			Score:    score,
		}
		return nil
	})
	if err != nil {
		return domain.VidhayakTally{}, err
	}
	return tally, nil
}

func (s *PollStore) ApplyDepartmentVote(ctx context.Context, questionID domain.QuestionID, rating int, ledger domain.PollResponse) (domain.DepartmentTally, error) {
	if rating < 1 || rating > 5 {
		return domain.DepartmentTally{}, fmt.Errorf("gorm polls: rating %d out of range", rating)
	}
	column := fmt.Sprintf("rating_%d", rating)

	var tally domain.DepartmentTally
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.DepartmentQuestion{}).
			Where("id = ?", questionID).
			UpdateColumn(column, gorm.Expr(column+" + 1"))
		if res.Error != nil {
			return fmt.Errorf("gorm polls: increment %s: %w", column, res.Error)
		}
		if res.RowsAffected == 0 {
			return domain.ErrNotFound
		}

		var q domain.DepartmentQuestion
		if err := tx.First(&q, "id = ?", questionID).Error; err != nil {
			return fmt.Errorf("gorm polls: reread question: %w", err)
		}

		// Cascade step 2: the question's own score.
		questionScore := domain.RatingScore(q.RatingCounts())
		if err := tx.Model(&domain.DepartmentQuestion{}).
			Where("id = ?", questionID).
			UpdateColumn("score", questionScore).Error; err != nil {
			return fmt.Errorf("gorm polls: store question score: %w", err)
		}

		// Cascade step 3: department average over its positive question
		// scores.
		var siblingScores []int
		if err := tx.Model(&domain.DepartmentQuestion{}).
			Where("department_id = ?", q.DepartmentID).
			Pluck("score", &siblingScores).Error; err != nil {
			return fmt.Errorf("gorm polls: read sibling scores: %w", err)
		}
		departmentAverage := domain.MeanPositive(siblingScores)
		if err := tx.Model(&domain.Department{}).
			Where("id = ?", q.DepartmentID).
			UpdateColumn("average_score", departmentAverage).Error; err != nil {
			return fmt.Errorf("gorm polls: store department average: %w", err)
		}

		// Cascade step 4: constituency manifesto score over positive
		// department averages.
		var dept domain.Department
		if err := tx.First(&dept, "id = ?", q.DepartmentID).Error; err != nil {
			return fmt.Errorf("gorm polls: read department: %w", err)
		}
		var deptAverages []int
		if err := tx.Model(&domain.Department{}).
			Where("constituency_id = ?", dept.ConstituencyID).
			Pluck("average_score", &deptAverages).Error; err != nil {
			return fmt.Errorf("gorm polls: read department averages: %w", err)
		}
		manifestoScore := domain.MeanPositive(deptAverages)
		if err := tx.Model(&domain.Constituency{}).
			Where("id = ?", dept.ConstituencyID).
			UpdateColumn("vidhayak_manifesto_score", manifestoScore).Error; err != nil {
			return fmt.Errorf("gorm polls: store manifesto score: %w", err)
		}

		if err := tx.Create(&ledger).Error; err != nil {
			return fmt.Errorf("gorm polls: append ledger: %w", err)
		}

		tally = domain.DepartmentTally{
			Ratings:           q.Ratings(),
			QuestionScore:     questionScore,
			DepartmentAverage: departmentAverage,
			ManifestoScore:    manifestoScore,
		}
		return nil
	})
	if err != nil {
		return domain.DepartmentTally{}, err
	}
	return tally, nil
}

// ReconcileScores re-derives every stored score from the raw counters and
// reports how many rows had drifted. Questions that never received a vote are
// left alone; their seeded score has no counters to rebuild from.
func (s *PollStore) ReconcileScores(ctx context.Context) (int64, error) {
	var fixed int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var surveyQuestions []domain.SurveyQuestion
		if err := tx.Find(&surveyQuestions).Error; err != nil {
			return fmt.Errorf("gorm polls: load survey questions: %w", err)
		}
		for _, q := range surveyQuestions {
			if q.YesVotes+q.NoVotes == 0 {
				continue
			}
			want := domain.YesNoScore(q.YesVotes, q.NoVotes)
			if want == q.Score {
				continue
			}
			if err := tx.Model(&domain.SurveyQuestion{}).
				Where("id = ?", q.ID).
				UpdateColumn("score", want).Error; err != nil {
				return fmt.Errorf("gorm polls: repair survey score: %w", err)
			}
			fixed++
		}

		var deptQuestions []domain.DepartmentQuestion
		if err := tx.Find(&deptQuestions).Error; err != nil {
			return fmt.Errorf("gorm polls: load department questions: %w", err)
		}
		for _, q := range deptQuestions {
			counts := q.RatingCounts()
			var total int64
			for _, c := range counts {
				total += c
			}
			if total == 0 {
				continue
			}
			want := domain.RatingScore(counts)
			if want == q.Score {
				continue
			}
			if err := tx.Model(&domain.DepartmentQuestion{}).
				Where("id = ?", q.ID).
				UpdateColumn("score", want).Error; err != nil {
				return fmt.Errorf("gorm polls: repair question score: %w", err)
			}
			fixed++
		}

		var departments []domain.Department
		if err := tx.Find(&departments).Error; err != nil {
			return fmt.Errorf("gorm polls: load departments: %w", err)
		}
		for _, d := range departments {
			var scores []int
			if err := tx.Model(&domain.DepartmentQuestion{}).
				Where("department_id = ?", d.ID).
				Pluck("score", &scores).Error; err != nil {
				return fmt.Errorf("gorm polls: read question scores: %w", err)
			}
			want := domain.MeanPositive(scores)
			if want == d.AverageScore {
				continue
			}
			if err := tx.Model(&domain.Department{}).
				Where("id = ?", d.ID).
				UpdateColumn("average_score", want).Error; err != nil {
				return fmt.Errorf("gorm polls: repair department average: %w", err)
			}
			fixed++
		}

		var constituencies []domain.Constituency
		if err := tx.Find(&constituencies).Error; err != nil {
			return fmt.Errorf("gorm polls: load constituencies: %w", err)
		}
		for _, c := range constituencies {
			var averages []int
			if err := tx.Model(&domain.Department{}).
				Where("constituency_id = ?", c.ID).
				Pluck("average_score", &averages).Error; err != nil {
				return fmt.Errorf("gorm polls: read department averages: %w", err)
			}
			want := domain.MeanPositive(averages)
			if want == c.Vidhayak.ManifestoScore {
				continue
			}
			if err := tx.Model(&domain.Constituency{}).
				Where("id = ?", c.ID).
				UpdateColumn("vidhayak_manifesto_score", want).Error; err != nil {
				return fmt.Errorf("gorm polls: repair manifesto score: %w", err)
			}
			fixed++
		}

		return nil
	})
	if err != nil {
		return 0, err
	}
	return fixed, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

var _ domain.PollStore = (*PollStore)(nil)
