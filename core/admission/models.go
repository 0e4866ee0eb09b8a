package admission

import (
	"regexp"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/rudradrivingschool/rudra-driving-school/core"
)

// Status
const (
	StatusActive     = "Active"
	StatusCompleted  = "Completed"
	StatusTerminated = "Terminated"
)

// LicenseTypeNA is the license type of students who do not need licence paperwork.
const LicenseTypeNA = "NA"

const defaultTotalRides = 8

var (
	Statuses = []string{StatusActive, StatusCompleted, StatusTerminated}

	durationRidesRegex = regexp.MustCompile(`(\d+)\s*rides?`)
	packageRides       = map[int]bool{8: true, 15: true, 30: true}
)

type Admission struct {
	ID              string    `json:"id"`
	StudentName     string    `json:"student_name"`
	Contact         string    `json:"contact"`
	Email           string    `json:"email"`
	Sex             string    `json:"sex"`
	LicenseType     string    `json:"license_type"`
	LearningLicense string    `json:"learning_license"`
	DrivingLicense  string    `json:"driving_license"`
	LicenseNumber   string    `json:"license_number"`
	Duration        string    `json:"duration"`
	TotalRides      int       `json:"total_rides"`
	RidesCompleted  int       `json:"rides_completed"`
	Status          string    `json:"status"`
	Fees            int64     `json:"fees"`
	AdvanceAmount   int64     `json:"advance_amount"`
	StartDate       time.Time `json:"start_date"`
	AdditionalNotes string    `json:"additional_notes"`
	CreatedAt       time.Time `json:"created_at"` // UTC
	UpdatedAt       time.Time `json:"updated_at"` // UTC
}

func (adm Admission) IsCompleted() bool {
	return adm.Status == StatusCompleted
}

// Progress is the result of one reconciliation of an admission's rides.
type Progress struct {
	AdmissionID    string `json:"admission_id"`
	StudentName    string `json:"student_name"`
	RidesCompleted int    `json:"rides_completed"`
	TotalRides     int    `json:"total_rides"`
	Status         string `json:"status"`
	// Completed is set when this reconciliation moved the admission to StatusCompleted.
	Completed bool `json:"completed"`
}

// TotalRidesFromDuration reads the ride count off a package duration such as "15 rides/month".
// Unknown packages get 8 rides.
func TotalRidesFromDuration(duration string) int {
	m := durationRidesRegex.FindStringSubmatch(duration)
	if len(m) < 2 {
		return defaultTotalRides
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || !packageRides[n] {
		return defaultTotalRides
	}
	return n
}

// NewAdmission contains information needed to create a new Admission.
type NewAdmission struct {
	StudentName     string    `json:"student_name" validate:"required,notblank"`
	Contact         string    `json:"contact" validate:"required,notblank"`
	Email           string    `json:"email" validate:"omitempty,email"`
	Sex             string    `json:"sex" validate:"required"`
	LicenseType     string    `json:"license_type" validate:"required"`
	LearningLicense string    `json:"learning_license"`
	DrivingLicense  string    `json:"driving_license"`
	LicenseNumber   string    `json:"license_number"`
	Duration        string    `json:"duration" validate:"required,notblank"`
	Fees            int64     `json:"fees" validate:"gt=0"`
	AdvanceAmount   int64     `json:"advance_amount" validate:"gte=0"`
	StartDate       time.Time `json:"start_date"`
	AdditionalNotes string    `json:"additional_notes"`
}

func (na *NewAdmission) clean() {
	na.StudentName = core.CleanString(na.StudentName)
	na.Contact = core.CleanString(na.Contact)
	na.Email = core.CleanString(na.Email, true /* lower */)
	na.Sex = core.CleanString(na.Sex)
	na.LicenseType = core.CleanString(na.LicenseType)
	na.LearningLicense = core.CleanString(na.LearningLicense)
	na.DrivingLicense = core.CleanString(na.DrivingLicense)
	na.LicenseNumber = core.CleanString(na.LicenseNumber)
	na.Duration = core.CleanString(na.Duration)
	na.AdditionalNotes = core.CleanString(na.AdditionalNotes)
}

func (na *NewAdmission) Validate(validate *validator.Validate) error {
	na.clean()
	return validate.Struct(na)
}

// UpdateAdmission defines what information may be provided to modify an existing Admission.
// RidesCompleted is not part of it: only the progress reconciler writes it.
type UpdateAdmission struct {
	NewAdmission
	Status string `json:"status" validate:"required,admstatus"`
}

func (ua *UpdateAdmission) Validate(validate *validator.Validate) error {
	ua.clean()
	ua.Status = core.CleanString(ua.Status)
	return validate.Struct(ua)
}

type QueryFilter struct {
	Search string `query:"search"`
	Status string `query:"status"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Status = core.CleanString(qf.Status)
}
