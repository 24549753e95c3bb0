package eligibility

import (
	"time"

	"github.com/admitguard/admitguard/internal/models"
	"github.com/admitguard/admitguard/internal/rules"
)

var evalDate = time.Date(2026, time.March, 1, 10, 30, 0, 0, time.UTC)

const validRationale = "Exception due to strong academic background and prior research experience"

type staticSchema struct {
	schema *rules.Schema
}

func (s staticSchema) Current() *rules.Schema { return s.schema }

func testSchema() *rules.Schema {
	schema, err := rules.NewSchema(rules.MustDefaultStrict(), rules.DefaultTunables())
	if err != nil {
		panic(err)
	}
	return schema
}

func validCandidate() models.CandidateInput {
	return models.CandidateInput{
		FullName:        "Asha Verma",
		Email:           "asha.verma@example.com",
		Phone:           "9876543210",
		NationalID:      "123456789012",
		DateOfBirth:     "2000-05-10",
		Qualification:   "B.Tech",
		GraduationYear:  "2022",
		ScoreType:       models.ScoreTypePercentage,
		Score:           "75",
		TestScore:       "65",
		InterviewStatus: rules.InterviewCleared,
		OfferSent:       rules.OfferNo,
	}
}
