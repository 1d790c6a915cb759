// Package migrations centralizes the gormigrate versions applied at startup.
package migrations

import (
	"fmt"

	gormigrate "github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"

	"github.com/lokmanch/lokmanch/internal/domain"
)

func Run(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("migrations: nil db")
	}

	// gormigrate keeps the schema versioned instead of relying on blind
	// AutoMigrate in production.
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "202508200001_init_schema",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(
					&domain.Constituency{},
					&domain.SurveyQuestion{},
					&domain.Department{},
					&domain.DepartmentQuestion{},
					&domain.Candidate{},
					&domain.PollResponse{},
					&domain.User{},
					&domain.Category{},
					&domain.Post{},
					&domain.Comment{},
					&domain.CommentReaction{},
				)
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(
					"comment_reactions",
					"comments",
					"posts",
					"categories",
					"users",
					"poll_responses",
					"candidates",
					"department_questions",
					"departments",
					"survey_questions",
					"constituencies",
				)
			},
		},
	})

	if err := m.Migrate(); err != nil {
		return fmt.Errorf("migrations: apply failed: %w", err)
	}

	return nil
}
