package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lokmanch/lokmanch/internal/domain"
	"github.com/lokmanch/lokmanch/internal/platform/ids"
)

func TestConstituencyRepository_Create_ThenFindByArea_LoadsAggregate(t *testing.T) {
	db := setupPostgres(t)
	repo := NewConstituencyRepository(db)
	ctx := context.Background()

	seeded := seedConstituency(t, db)

	stored, err := repo.FindByArea(ctx, seeded.AreaName)
	require.NoError(t, err)
	assert.Equal(t, seeded.ID, stored.ID)
	assert.Equal(t, "Asha Verma", stored.Vidhayak.Name)
	require.Len(t, stored.SurveyScore, 1)
	require.Len(t, stored.Departments, 1)
	assert.Len(t, stored.Departments[0].SurveyScore, 2)
}

func TestConstituencyRepository_Create_DuplicateArea_ReturnsConflict(t *testing.T) {
	db := setupPostgres(t)
	repo := NewConstituencyRepository(db)
	ctx := context.Background()
	gen := ids.NewGenerator()

	seeded := seedConstituency(t, db)

	dup := domain.Constituency{
		ID:       domain.ConstituencyID(gen.New()),
		AreaName: seeded.AreaName,
		Vidhayak: domain.Vidhayak{Name: "Someone Else"},
	}
	err := repo.Create(ctx, dup)
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestConstituencyRepository_Update_RewritesProfileKeepsScores(t *testing.T) {
	db := setupPostgres(t)
	repo := NewConstituencyRepository(db)
	store := NewPollStore(db)
	ctx := context.Background()
	gen := ids.NewGenerator()

	seeded := seedConstituency(t, db)
	_, err := store.ApplyVidhayakVote(ctx, seeded.SurveyScore[0].ID, true, newLedgerRow(gen, seeded, domain.PollCategoryVidhayak))
	require.NoError(t, err)

	seeded.Vidhayak.Name = "Asha Verma (updated)"
	seeded.Candidates = []domain.Candidate{{Name: "Ravi Nair", Party: "Pragati Morcha"}}
	require.NoError(t, repo.Update(ctx, seeded))

	stored, err := repo.FindByID(ctx, seeded.ID)
	require.NoError(t, err)
	assert.Equal(t, "Asha Verma (updated)", stored.Vidhayak.Name)
	require.Len(t, stored.Candidates, 1)
	assert.Equal(t, "Ravi Nair", stored.Candidates[0].Name)

	// An admin update must not reset accumulated votes or scores.
	require.Len(t, stored.SurveyScore, 1)
	assert.Equal(t, int64(1), stored.SurveyScore[0].YesVotes)
	assert.Equal(t, 100, stored.SurveyScore[0].Score)
}

func TestConstituencyRepository_Update_Unknown_ReturnsNotFound(t *testing.T) {
	db := setupPostgres(t)
	repo := NewConstituencyRepository(db)
	ctx := context.Background()
	gen := ids.NewGenerator()

	err := repo.Update(ctx, domain.Constituency{
		ID:       domain.ConstituencyID(gen.New()),
		AreaName: "Nowhere",
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestConstituencyRepository_Delete_RemovesChildren(t *testing.T) {
	db := setupPostgres(t)
	repo := NewConstituencyRepository(db)
	ctx := context.Background()

	seeded := seedConstituency(t, db)
	require.NoError(t, repo.Delete(ctx, seeded.ID))

	_, err := repo.FindByID(ctx, seeded.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	var questions, departments int64
	require.NoError(t, db.Model(&domain.SurveyQuestion{}).Count(&questions).Error)
	require.NoError(t, db.Model(&domain.DepartmentQuestion{}).Count(&departments).Error)
	assert.Equal(t, int64(0), questions)
	assert.Equal(t, int64(0), departments)
}

func TestConstituencyRepository_ListAreaNames_SortsAlphabetically(t *testing.T) {
	db := setupPostgres(t)
	repo := NewConstituencyRepository(db)
	ctx := context.Background()
	gen := ids.NewGenerator()

	for _, area := range []string{"Shivaji Nagar", "Adarsh Colony", "Gandhi Chowk"} {
		c := domain.Constituency{
			ID:       domain.ConstituencyID(gen.New()),
			AreaName: area,
			Vidhayak: domain.Vidhayak{Name: "placeholder"},
		}
		require.NoError(t, repo.Create(ctx, c))
	}

	names, err := repo.ListAreaNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Adarsh Colony", "Gandhi Chowk", "Shivaji Nagar"}, names)
}

func TestConstituencyRepository_ReplaceAll_SwapsDataset(t *testing.T) {
	db := setupPostgres(t)
	repo := NewConstituencyRepository(db)
	ctx := context.Background()
	gen := ids.NewGenerator()

	seedConstituency(t, db)

	fresh := []domain.Constituency{
		{
			ID:       domain.ConstituencyID(gen.New()),
			AreaName: "Civil Lines",
			Vidhayak: domain.Vidhayak{Name: "Prakash Joshi"},
			SurveyScore: []domain.SurveyQuestion{
				{ID: domain.QuestionID(gen.New()), Position: 0, Question: "Is the vidhayak responsive?"},
			},
		},
	}
	require.NoError(t, repo.ReplaceAll(ctx, fresh))

	names, err := repo.ListAreaNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Civil Lines"}, names)

	stored, err := repo.FindByArea(ctx, "Civil Lines")
	require.NoError(t, err)
	assert.Len(t, stored.SurveyScore, 1)
}
