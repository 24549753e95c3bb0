package models

// ScoreType tags how the academic score is expressed
type ScoreType string

const (
	ScoreTypePercentage ScoreType = "Percentage"
	ScoreTypeCGPA       ScoreType = "CGPA"
)

// Valid reports whether s is a known score type
func (s ScoreType) Valid() bool {
	return s == ScoreTypePercentage || s == ScoreTypeCGPA
}

// Candidate field names. These double as strict violation keys.
const (
	FieldFullName        = "fullName"
	FieldEmail           = "email"
	FieldPhone           = "phone"
	FieldNationalID      = "nationalId"
	FieldDateOfBirth     = "dateOfBirth"
	FieldQualification   = "qualification"
	FieldGraduationYear  = "graduationYear"
	FieldScoreType       = "scoreType"
	FieldScore           = "score"
	FieldTestScore       = "testScore"
	FieldInterviewStatus = "interviewStatus"
	FieldOfferSent       = "offerSent"
)

// Soft violation and override keys
const (
	SoftAge            = "age"
	SoftGraduationYear = "graduationYear"
	SoftScore          = "score"
	SoftTestScore      = "testScore"
)

// DateLayout for dateOfBirth
const DateLayout = "2006-01-02"

// CandidateInput is the raw form state for one candidate. Values are kept as
// entered; an empty string means the field has not been filled in yet.
type CandidateInput struct {
	FullName        string    `json:"fullName" yaml:"fullName"`
	Email           string    `json:"email" yaml:"email"`
	Phone           string    `json:"phone" yaml:"phone"`
	NationalID      string    `json:"nationalId" yaml:"nationalId"`
	DateOfBirth     string    `json:"dateOfBirth" yaml:"dateOfBirth"`
	Qualification   string    `json:"qualification" yaml:"qualification"`
	GraduationYear  string    `json:"graduationYear" yaml:"graduationYear"`
	ScoreType       ScoreType `json:"scoreType" yaml:"scoreType"`
	Score           string    `json:"score" yaml:"score"`
	TestScore       string    `json:"testScore" yaml:"testScore"`
	InterviewStatus string    `json:"interviewStatus" yaml:"interviewStatus"`
	OfferSent       string    `json:"offerSent" yaml:"offerSent"`
}

// EffectiveScoreType defaults to Percentage
func (c CandidateInput) EffectiveScoreType() ScoreType {
	if c.ScoreType == "" {
		return ScoreTypePercentage
	}
	return c.ScoreType
}

// Fields flattens the input by field name
func (c CandidateInput) Fields() map[string]string {
	return map[string]string{
		FieldFullName:        c.FullName,
		FieldEmail:           c.Email,
		FieldPhone:           c.Phone,
		FieldNationalID:      c.NationalID,
		FieldDateOfBirth:     c.DateOfBirth,
		FieldQualification:   c.Qualification,
		FieldGraduationYear:  c.GraduationYear,
		FieldScoreType:       string(c.EffectiveScoreType()),
		FieldScore:           c.Score,
		FieldTestScore:       c.TestScore,
		FieldInterviewStatus: c.InterviewStatus,
		FieldOfferSent:       c.OfferSent,
	}
}

// Set assigns a field by name. Returns false for unknown names.
func (c *CandidateInput) Set(field, value string) bool {
	switch field {
	case FieldFullName:
		c.FullName = value
	case FieldEmail:
		c.Email = value
	case FieldPhone:
		c.Phone = value
	case FieldNationalID:
		c.NationalID = value
	case FieldDateOfBirth:
		c.DateOfBirth = value
	case FieldQualification:
		c.Qualification = value
	case FieldGraduationYear:
		c.GraduationYear = value
	case FieldScoreType:
		c.ScoreType = ScoreType(value)
	case FieldScore:
		c.Score = value
	case FieldTestScore:
		c.TestScore = value
	case FieldInterviewStatus:
		c.InterviewStatus = value
	case FieldOfferSent:
		c.OfferSent = value
	default:
		return false
	}
	return true
}

// SoftKeys in display order
var SoftKeys = []string{SoftAge, SoftGraduationYear, SoftScore, SoftTestScore}

// IsSoftKey reports whether k names a soft rule
func IsSoftKey(k string) bool {
	for _, s := range SoftKeys {
		if s == k {
			return true
		}
	}
	return false
}
