// Package seed holds the bundled constituency dataset used by reset-populate
// and the seed binary.
package seed

import (
	"github.com/lokmanch/lokmanch/internal/domain"
	"github.com/lokmanch/lokmanch/internal/platform/ids"
)

// SurveyQuestions is the standard vidhayak question set. Every constituency
// starts with the same questions so scores stay comparable across areas.
var SurveyQuestions = []string{
	"Is the vidhayak easily accessible to residents?",
	"Has the vidhayak kept the promises made before the election?",
	"Has the area's infrastructure improved during this term?",
	"Does the vidhayak raise local issues in the assembly?",
	"Would you vote for the vidhayak again?",
}

// DepartmentQuestions is the standard rating question set applied to every
// department.
var DepartmentQuestions = []string{
	"How would you rate the quality of this service?",
	"How quickly are complaints in this area resolved?",
	"How satisfied are you with the improvement over the last year?",
}

type departmentSpec struct {
	name     string
	workInfo []string
}

type constituencySpec struct {
	area        string
	vidhayak    domain.Vidhayak
	departments []departmentSpec
	candidates  []domain.Candidate
}

var specs = []constituencySpec{
	{
		area: "Karol Bagh",
		vidhayak: domain.Vidhayak{
			Name:          "Asha Verma",
			Age:           52,
			Party:         "Jan Seva Party",
			LastVoteShare: "47.2%",
			Experience:    2,
			Education:     "M.A. Political Science",
			NetWorth:      "2.4 Cr",
			CriminalCases: 0,
			Attendance:    "82%",
		},
		departments: []departmentSpec{
			{name: "Water Supply", workInfo: []string{"New pipeline in blocks 4-9", "Two overhead tanks commissioned"}},
			{name: "Roads and Transport", workInfo: []string{"Resurfaced the market road", "Added 12 bus-stop shelters"}},
			{name: "Sanitation", workInfo: []string{"Door-to-door waste collection in all wards"}},
			{name: "Public Health", workInfo: []string{"Upgraded the community health centre"}},
		},
		candidates: []domain.Candidate{
			{Name: "Ravi Nair", Party: "Pragati Morcha", VoteShare: "38.5%"},
			{Name: "Sunita Devi", Party: "Lok Adhikar Dal", VoteShare: "11.1%"},
		},
	},
	{
		area: "Shivaji Nagar",
		vidhayak: domain.Vidhayak{
			Name:          "Prakash Joshi",
			Age:           45,
			Party:         "Pragati Morcha",
			LastVoteShare: "51.8%",
			Experience:    1,
			Education:     "B.Com",
			NetWorth:      "95 L",
			CriminalCases: 1,
			Attendance:    "74%",
		},
		departments: []departmentSpec{
			{name: "Water Supply", workInfo: []string{"Borewell recharge pits in three colonies"}},
			{name: "Education", workInfo: []string{"Smart classrooms in two government schools"}},
			{name: "Electricity", workInfo: []string{"Underground cabling on the main road"}},
		},
		candidates: []domain.Candidate{
			{Name: "Meena Kulkarni", Party: "Jan Seva Party", VoteShare: "41.3%"},
		},
	},
	{
		area: "Gandhi Chowk",
		vidhayak: domain.Vidhayak{
			Name:          "Iqbal Hussain",
			Age:           60,
			Party:         "Lok Adhikar Dal",
			LastVoteShare: "44.9%",
			Experience:    3,
			Education:     "LL.B.",
			NetWorth:      "5.1 Cr",
			CriminalCases: 2,
			Attendance:    "68%",
		},
		departments: []departmentSpec{
			{name: "Sanitation", workInfo: []string{"Mechanised sweeping on arterial roads"}},
			{name: "Public Health", workInfo: []string{"Free diagnostic camps every month"}},
			{name: "Roads and Transport", workInfo: []string{"Flyover approach road widened"}},
		},
		candidates: []domain.Candidate{
			{Name: "Kavita Rao", Party: "Pragati Morcha", VoteShare: "40.2%"},
			{Name: "Harish Gupta", Party: "Jan Seva Party", VoteShare: "12.6%"},
		},
	},
}

// Constituencies builds the bundled dataset with fresh identifiers. Counters
// and derived scores all start at zero.
func Constituencies(gen *ids.Generator) []domain.Constituency {
	if gen == nil {
		gen = ids.DefaultGenerator()
	}

	out := make([]domain.Constituency, 0, len(specs))
	for _, spec := range specs {
		c := domain.Constituency{
			ID:       domain.ConstituencyID(gen.New()),
			AreaName: spec.area,
			Vidhayak: spec.vidhayak,
		}
		for i, q := range SurveyQuestions {
			c.SurveyScore = append(c.SurveyScore, domain.SurveyQuestion{
				ID:       domain.QuestionID(gen.New()),
				Position: i,
				Question: q,
			})
		}
		for _, d := range spec.departments {
			dept := domain.Department{
				ID:       domain.DepartmentID(ids.NewUUID()),
				Name:     d.name,
				WorkInfo: d.workInfo,
			}
			for i, q := range DepartmentQuestions {
				dept.SurveyScore = append(dept.SurveyScore, domain.DepartmentQuestion{
					ID:       domain.QuestionID(gen.New()),
					Position: i,
					Question: q,
				})
			}
			c.Departments = append(c.Departments, dept)
		}
		c.Candidates = append(c.Candidates, spec.candidates...)
		out = append(out, c)
	}
	return out
}
