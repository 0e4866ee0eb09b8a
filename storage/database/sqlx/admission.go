package sqlxrepos

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/rudradrivingschool/rudra-driving-school/core"
	"github.com/rudradrivingschool/rudra-driving-school/core/admission"
)

const admissionColumns = `id, student_name, contact, email, sex, license_type, learning_license, driving_license,
	license_number, duration, total_rides, rides_completed, status, fees, advance_amount, start_date,
	additional_notes, created_at, updated_at`

var admissionOrderings = map[string]string{
	"student_name": "student_name",
	"start_date":   "start_date",
	"status":       "status",
	"fees":         "fees",
	"created_at":   "created_at",
	"updated_at":   "updated_at",
}

type admissionRow struct {
	ID              string    `db:"id"`
	StudentName     string    `db:"student_name"`
	Contact         string    `db:"contact"`
	Email           string    `db:"email"`
	Sex             string    `db:"sex"`
	LicenseType     string    `db:"license_type"`
	LearningLicense string    `db:"learning_license"`
	DrivingLicense  string    `db:"driving_license"`
	LicenseNumber   string    `db:"license_number"`
	Duration        string    `db:"duration"`
	TotalRides      int       `db:"total_rides"`
	RidesCompleted  int       `db:"rides_completed"`
	Status          string    `db:"status"`
	Fees            int64     `db:"fees"`
	AdvanceAmount   int64     `db:"advance_amount"`
	StartDate       time.Time `db:"start_date"`
	AdditionalNotes string    `db:"additional_notes"`
	CreatedAt       time.Time `db:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"`
}

type admissionRepository struct {
	base
}

var _ admission.Repository = (*admissionRepository)(nil) // interface compliance check

func NewAdmissionRepository(exec core.DBExecutor) *admissionRepository {
	return &admissionRepository{base{exec: exec}}
}

func (repo admissionRepository) toRow(adm admission.Admission) admissionRow {
	return admissionRow{
		ID:              adm.ID,
		StudentName:     adm.StudentName,
		Contact:         adm.Contact,
		Email:           adm.Email,
		Sex:             adm.Sex,
		LicenseType:     adm.LicenseType,
		LearningLicense: adm.LearningLicense,
		DrivingLicense:  adm.DrivingLicense,
		LicenseNumber:   adm.LicenseNumber,
		Duration:        adm.Duration,
		TotalRides:      adm.TotalRides,
		RidesCompleted:  adm.RidesCompleted,
		Status:          adm.Status,
		Fees:            adm.Fees,
		AdvanceAmount:   adm.AdvanceAmount,
		StartDate:       adm.StartDate.UTC(),
		AdditionalNotes: adm.AdditionalNotes,
		CreatedAt:       adm.CreatedAt.UTC(),
		UpdatedAt:       adm.UpdatedAt.UTC(),
	}
}

func (repo admissionRepository) fromRow(row admissionRow) admission.Admission {
	return admission.Admission{
		ID:              row.ID,
		StudentName:     row.StudentName,
		Contact:         row.Contact,
		Email:           row.Email,
		Sex:             row.Sex,
		LicenseType:     row.LicenseType,
		LearningLicense: row.LearningLicense,
		DrivingLicense:  row.DrivingLicense,
		LicenseNumber:   row.LicenseNumber,
		Duration:        row.Duration,
		TotalRides:      row.TotalRides,
		RidesCompleted:  row.RidesCompleted,
		Status:          row.Status,
		Fees:            row.Fees,
		AdvanceAmount:   row.AdvanceAmount,
		StartDate:       row.StartDate.UTC(),
		AdditionalNotes: row.AdditionalNotes,
		CreatedAt:       row.CreatedAt.UTC(),
		UpdatedAt:       row.UpdatedAt.UTC(),
	}
}

func (repo admissionRepository) fromRows(rows []admissionRow) []admission.Admission {
	adms := make([]admission.Admission, 0, len(rows))
	for _, row := range rows {
		adms = append(adms, repo.fromRow(row))
	}
	return adms
}

func (repo admissionRepository) CreateAdmission(ctx context.Context, adm admission.Admission, exec ...core.DBExecutor) (admission.Admission, error) {
	adm.ID = newID()
	q := `INSERT INTO admissions (` + admissionColumns + `) VALUES (
		:id, :student_name, :contact, :email, :sex, :license_type, :learning_license, :driving_license,
		:license_number, :duration, :total_rides, :rides_completed, :status, :fees, :advance_amount, :start_date,
		:additional_notes, :created_at, :updated_at)`
	if _, err := execNamed(ctx, repo.getExec(exec), q, repo.toRow(adm)); err != nil {
		return admission.Admission{}, errors.Wrap(err, "inserting admission")
	}
	return adm, nil
}

func (repo admissionRepository) QueryAdmissions(ctx context.Context, filter *admission.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]admission.Admission, error) {
	var w where
	if filter != nil {
		if filter.Search != "" {
			val := likePattern(filter.Search)
			w.add("(student_name ILIKE ? OR contact ILIKE ? OR email ILIKE ?)", val, val, val)
		}
		if filter.Status != "" {
			w.add("status = ?", filter.Status)
		}
	}
	orderBy := core.OrderByClause(ordering, admissionOrderings, "created_at ASC")

	var rows []admissionRow
	q := w.query("SELECT "+admissionColumns+" FROM admissions", "ORDER BY "+orderBy+", id")
	if err := selectRows(ctx, repo.getExec(exec), &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying admissions")
	}
	return repo.fromRows(rows), nil
}

func (repo admissionRepository) GetAdmission(ctx context.Context, id string, exec ...core.DBExecutor) (admission.Admission, error) {
	if !validID(id) {
		return admission.Admission{}, admission.ErrNotFound
	}
	var rows []admissionRow
	q := "SELECT " + admissionColumns + " FROM admissions WHERE id = $1"
	if err := selectRows(ctx, repo.getExec(exec), &rows, q, id); err != nil {
		return admission.Admission{}, trapNoRowsErr(err, admission.ErrNotFound, "finding admission by ID")
	}
	if len(rows) == 0 {
		return admission.Admission{}, admission.ErrNotFound
	}
	return repo.fromRow(rows[0]), nil
}

func (repo admissionRepository) UpdateAdmission(ctx context.Context, adm admission.Admission, exec ...core.DBExecutor) (admission.Admission, error) {
	exe := repo.getExec(exec)
	q := `UPDATE admissions SET
		student_name = :student_name, contact = :contact, email = :email, sex = :sex,
		license_type = :license_type, learning_license = :learning_license, driving_license = :driving_license,
		license_number = :license_number, duration = :duration, total_rides = :total_rides, status = :status,
		fees = :fees, advance_amount = :advance_amount, start_date = :start_date,
		additional_notes = :additional_notes, updated_at = :updated_at
		WHERE id = :id`
	res, err := execNamed(ctx, exe, q, repo.toRow(adm))
	if err != nil {
		return admission.Admission{}, errors.Wrap(err, "updating admission")
	}
	if err = mustAffect(res, admission.ErrNotFound); err != nil {
		return admission.Admission{}, err
	}
	return repo.GetAdmission(ctx, adm.ID, exe)
}

func (repo admissionRepository) UpdateRideProgress(ctx context.Context, id string, ridesCompleted int, markCompleted bool, exec ...core.DBExecutor) (admission.Admission, error) {
	if !validID(id) {
		return admission.Admission{}, admission.ErrNotFound
	}
	exe := repo.getExec(exec)
	q := `UPDATE admissions SET
		rides_completed = $2,
		status = CASE WHEN $3::boolean THEN $4::text ELSE status END,
		updated_at = $5
		WHERE id = $1`
	res, err := exe.ExecContext(ctx, q, id, ridesCompleted, markCompleted, admission.StatusCompleted, core.NowFunc().UTC())
	if err != nil {
		return admission.Admission{}, errors.Wrap(err, "updating ride progress")
	}
	if err = mustAffect(res, admission.ErrNotFound); err != nil {
		return admission.Admission{}, err
	}
	return repo.GetAdmission(ctx, id, exe)
}

func (repo admissionRepository) DeleteAdmission(ctx context.Context, id string, exec ...core.DBExecutor) error {
	if !validID(id) {
		return admission.ErrNotFound
	}
	res, err := repo.getExec(exec).ExecContext(ctx, "DELETE FROM admissions WHERE id = $1", id)
	if err != nil {
		return errors.Wrap(err, "deleting admission")
	}
	return mustAffect(res, admission.ErrNotFound)
}
