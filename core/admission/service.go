package admission

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/rudradrivingschool/rudra-driving-school/core"
)

var (
	// errors
	ErrNotFound           = errors.New("admission not found")
	ErrHasDependents      = errors.New("admission still has rides or payments")
	ErrAdvanceNotRecorded = errors.New("admission created but the advance payment could not be recorded")
)

type (
	Repository interface {
		CreateAdmission(ctx context.Context, adm Admission, exec ...core.DBExecutor) (Admission, error)
		// QueryAdmissions returns admissions matching filter (nil = all), oldest first unless ordered.
		QueryAdmissions(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Admission, error)
		GetAdmission(ctx context.Context, id string, exec ...core.DBExecutor) (Admission, error)
		// UpdateAdmission saves every editable field. It never writes RidesCompleted.
		UpdateAdmission(ctx context.Context, adm Admission, exec ...core.DBExecutor) (Admission, error)
		// UpdateRideProgress writes rides_completed, and status = Completed when markCompleted, in one statement.
		UpdateRideProgress(ctx context.Context, id string, ridesCompleted int, markCompleted bool, exec ...core.DBExecutor) (Admission, error)
		DeleteAdmission(ctx context.Context, id string, exec ...core.DBExecutor) error
	}

	// Dependent is a store whose records reference admissions by id.
	Dependent interface {
		CountByAdmission(ctx context.Context, admissionID string, exec ...core.DBExecutor) (int, error)
		DeleteByAdmission(ctx context.Context, admissionID string, exec ...core.DBExecutor) error
	}

	// AdvanceSeeder records the advance paid at admission time.
	AdvanceSeeder interface {
		SeedAdvance(ctx context.Context, admissionID string, amount int64, date time.Time) error
	}

	Service interface {
		Create(ctx context.Context, na NewAdmission) (Admission, error)
		Get(ctx context.Context, id string) (Admission, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Admission, error)
		Update(ctx context.Context, id string, ua UpdateAdmission) (Admission, error)
		// Delete refuses to remove an admission that rides or payments still reference, unless cascade is set.
		Delete(ctx context.Context, id string, cascade bool) error
		// ClientIDsByName maps student names to admission ids. On duplicate names the newest admission wins.
		ClientIDsByName(ctx context.Context) (map[string]string, error)
		ActiveClientNames(ctx context.Context) ([]string, error)
	}

	Deps struct {
		DB       core.DB // nil for in-memory stores
		Repo     Repository
		Rides    Dependent
		Payments Dependent
		Advances AdvanceSeeder
		Logger   core.Logger
	}

	service struct {
		db       core.DB
		repo     Repository
		rides    Dependent
		payments Dependent
		advances AdvanceSeeder
		logger   core.Logger
	}
)

var _ Service = (*service)(nil) // interface compliance check

func NewService(deps Deps) Service {
	return &service{
		db:       deps.DB,
		repo:     deps.Repo,
		rides:    deps.Rides,
		payments: deps.Payments,
		advances: deps.Advances,
		logger:   deps.Logger,
	}
}

func (svc *service) Create(ctx context.Context, na NewAdmission) (Admission, error) {
	now := core.NowFunc().UTC()
	startDate := na.StartDate
	if startDate.IsZero() {
		startDate = core.Today()
	}

	adm, err := svc.repo.CreateAdmission(ctx, Admission{
		StudentName:     na.StudentName,
		Contact:         na.Contact,
		Email:           na.Email,
		Sex:             na.Sex,
		LicenseType:     na.LicenseType,
		LearningLicense: na.LearningLicense,
		DrivingLicense:  na.DrivingLicense,
		LicenseNumber:   na.LicenseNumber,
		Duration:        na.Duration,
		TotalRides:      TotalRidesFromDuration(na.Duration),
		RidesCompleted:  0,
		Status:          StatusActive,
		Fees:            na.Fees,
		AdvanceAmount:   na.AdvanceAmount,
		StartDate:       startDate,
		AdditionalNotes: na.AdditionalNotes,
		CreatedAt:       now,
		UpdatedAt:       now,
	})
	if err != nil {
		return Admission{}, errors.Wrap(err, "creating admission")
	}

	if adm.AdvanceAmount > 0 && svc.advances != nil {
		if err = svc.advances.SeedAdvance(ctx, adm.ID, adm.AdvanceAmount, adm.StartDate); err != nil {
			svc.logger.Error(
				fmt.Sprintf("recording advance payment for admission %s", adm.ID),
				err,
				map[string]interface{}{"admission_id": adm.ID, "amount": adm.AdvanceAmount},
			)
			return adm, errors.Wrap(ErrAdvanceNotRecorded, err.Error())
		}
	}
	return adm, nil
}

func (svc *service) Get(ctx context.Context, id string) (Admission, error) {
	return svc.repo.GetAdmission(ctx, id)
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Admission, error) {
	return svc.repo.QueryAdmissions(ctx, filter, ordering)
}

func (svc *service) Update(ctx context.Context, id string, ua UpdateAdmission) (Admission, error) {
	adm, err := svc.repo.GetAdmission(ctx, id)
	if err != nil {
		return Admission{}, err
	}

	adm.StudentName = ua.StudentName
	adm.Contact = ua.Contact
	adm.Email = ua.Email
	adm.Sex = ua.Sex
	adm.LicenseType = ua.LicenseType
	adm.LearningLicense = ua.LearningLicense
	adm.DrivingLicense = ua.DrivingLicense
	adm.LicenseNumber = ua.LicenseNumber
	adm.Duration = ua.Duration
	adm.TotalRides = TotalRidesFromDuration(ua.Duration)
	adm.Status = ua.Status
	adm.Fees = ua.Fees
	adm.AdvanceAmount = ua.AdvanceAmount
	if !ua.StartDate.IsZero() {
		adm.StartDate = ua.StartDate
	}
	adm.AdditionalNotes = ua.AdditionalNotes
	adm.UpdatedAt = core.NowFunc().UTC()

	return svc.repo.UpdateAdmission(ctx, adm)
}

func (svc *service) Delete(ctx context.Context, id string, cascade bool) error {
	if _, err := svc.repo.GetAdmission(ctx, id); err != nil {
		return err
	}

	if !cascade {
		rides, err := svc.rides.CountByAdmission(ctx, id)
		if err != nil {
			return errors.Wrap(err, "counting admission rides")
		}
		payments, err := svc.payments.CountByAdmission(ctx, id)
		if err != nil {
			return errors.Wrap(err, "counting admission payments")
		}
		if rides > 0 || payments > 0 {
			return core.NewValidationError(ErrHasDependents, core.FieldError{
				Field: "cascade",
				Error: fmt.Sprintf("%d ride(s) and %d payment(s) reference this admission", rides, payments),
			})
		}
	}

	return core.WithTx(ctx, svc.db, func(exec core.DBExecutor) error {
		execs := core.ExecList(exec)
		if cascade {
			if err := svc.payments.DeleteByAdmission(ctx, id, execs...); err != nil {
				return errors.Wrap(err, "deleting admission payments")
			}
			if err := svc.rides.DeleteByAdmission(ctx, id, execs...); err != nil {
				return errors.Wrap(err, "deleting admission rides")
			}
		}
		return svc.repo.DeleteAdmission(ctx, id, execs...)
	})
}

func (svc *service) ClientIDsByName(ctx context.Context) (map[string]string, error) {
	adms, err := svc.repo.QueryAdmissions(ctx, nil, []core.DBOrdering{{Field: "created_at", Ascending: true}})
	if err != nil {
		return nil, errors.Wrap(err, "querying admissions")
	}
	ids := make(map[string]string, len(adms))
	for _, adm := range adms {
		ids[adm.StudentName] = adm.ID
	}
	return ids, nil
}

func (svc *service) ActiveClientNames(ctx context.Context) ([]string, error) {
	adms, err := svc.repo.QueryAdmissions(
		ctx,
		&QueryFilter{Status: StatusActive},
		[]core.DBOrdering{{Field: "student_name", Ascending: true}},
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying active admissions")
	}
	names := make([]string, 0, len(adms))
	for _, adm := range adms {
		names = append(names, adm.StudentName)
	}
	return names, nil
}
