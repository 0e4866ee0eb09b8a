package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/rudradrivingschool/rudra-driving-school/core"
	"github.com/rudradrivingschool/rudra-driving-school/core/admission"
)

var (
	// errors
	ErrNotFound             = errors.New("payment not found")
	ErrDuplicateInstallment = errors.New("this installment was already recorded for the admission")
	ErrExceedsBalance       = errors.New("amount exceeds the remaining balance")
	ErrNonPositiveAmount    = errors.New("amount must be greater than zero")
)

type (
	Repository interface {
		// CreatePayment fails with ErrDuplicateInstallment when the admission already has a payment
		// of the same (non-other) type.
		CreatePayment(ctx context.Context, p Payment, exec ...core.DBExecutor) (Payment, error)
		// QueryPayments returns payments matching filter (nil = all), newest first.
		QueryPayments(ctx context.Context, filter *QueryFilter, exec ...core.DBExecutor) ([]Payment, error)
		GetPayment(ctx context.Context, id string, exec ...core.DBExecutor) (Payment, error)
		UpdatePayment(ctx context.Context, p Payment, exec ...core.DBExecutor) (Payment, error)
		DeletePayment(ctx context.Context, id string, exec ...core.DBExecutor) error

		CountByAdmission(ctx context.Context, admissionID string, exec ...core.DBExecutor) (int, error)
		DeleteByAdmission(ctx context.Context, admissionID string, exec ...core.DBExecutor) error
	}

	Service interface {
		// Add records a payment under the next installment slot of the admission.
		Add(ctx context.Context, np NewPayment) (Payment, error)
		SeedAdvance(ctx context.Context, admissionID string, amount int64, date time.Time) error
		Next(ctx context.Context, admissionID string) (Next, error)
		Get(ctx context.Context, id string) (Payment, error)
		Query(ctx context.Context, filter *QueryFilter) ([]Payment, error)
		QueryByAdmission(ctx context.Context, admissionID string) ([]Payment, error)
		TotalCollected(ctx context.Context, admissionID string) (int64, error)
		Update(ctx context.Context, id string, up UpdatePayment) (Payment, error)
		Delete(ctx context.Context, id string) error
	}

	service struct {
		repo       Repository
		admissions admission.Repository
		locks      *core.KeyedMutex
	}
)

var (
	_ Service                 = (*service)(nil) // interface compliance check
	_ admission.AdvanceSeeder = (*service)(nil)
)

func NewService(repo Repository, admissions admission.Repository) Service {
	return &service{
		repo:       repo,
		admissions: admissions,
		locks:      core.NewKeyedMutex(),
	}
}

func (svc *service) Add(ctx context.Context, np NewPayment) (Payment, error) {
	if err := checkAmount(np.Amount); err != nil {
		return Payment{}, err
	}

	// one payment at a time per admission: the slot and the balance are read then written
	unlock := svc.locks.Lock(np.AdmissionID)
	defer unlock()

	adm, err := svc.admissions.GetAdmission(ctx, np.AdmissionID)
	if err != nil {
		if errors.Cause(err) == admission.ErrNotFound {
			return Payment{}, core.NewValidationError(err, core.FieldError{Field: "admission_id", Error: err.Error()})
		}
		return Payment{}, errors.Wrap(err, "fetching admission")
	}
	existing, err := svc.QueryByAdmission(ctx, adm.ID)
	if err != nil {
		return Payment{}, err
	}

	if remaining := RemainingBalance(adm.Fees, existing); np.Amount > remaining {
		return Payment{}, core.NewValidationError(ErrExceedsBalance, core.FieldError{
			Field: "amount",
			Error: fmt.Sprintf("amount cannot exceed the remaining balance of %d", remaining),
		})
	}

	now := core.NowFunc()
	p, err := svc.repo.CreatePayment(ctx, Payment{
		AdmissionID: adm.ID,
		Amount:      np.Amount,
		PaymentType: NextPaymentType(existing),
		PaymentDate: core.Today(),
		Notes:       np.Notes,
		CreatedAt:   now.UTC(),
	})
	if err != nil {
		if errors.Cause(err) == ErrDuplicateInstallment {
			return Payment{}, ErrDuplicateInstallment
		}
		return Payment{}, errors.Wrap(err, "creating payment")
	}
	return p, nil
}

func (svc *service) SeedAdvance(ctx context.Context, admissionID string, amount int64, date time.Time) error {
	if amount <= 0 {
		return nil
	}
	if date.IsZero() {
		date = core.Today()
	}
	_, err := svc.repo.CreatePayment(ctx, Payment{
		AdmissionID: admissionID,
		Amount:      amount,
		PaymentType: TypeAdvance,
		PaymentDate: date,
		Notes:       "Initial advance payment",
		CreatedAt:   core.NowFunc().UTC(),
	})
	return errors.Wrap(err, "creating advance payment")
}

func (svc *service) Next(ctx context.Context, admissionID string) (Next, error) {
	adm, err := svc.admissions.GetAdmission(ctx, admissionID)
	if err != nil {
		return Next{}, err
	}
	existing, err := svc.QueryByAdmission(ctx, adm.ID)
	if err != nil {
		return Next{}, err
	}
	collected := TotalPaid(existing)
	return Next{
		AdmissionID: adm.ID,
		PaymentType: NextPaymentType(existing),
		Fees:        adm.Fees,
		Collected:   collected,
		Remaining:   adm.Fees - collected,
	}, nil
}

func (svc *service) Get(ctx context.Context, id string) (Payment, error) {
	return svc.repo.GetPayment(ctx, id)
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter) ([]Payment, error) {
	return svc.repo.QueryPayments(ctx, filter)
}

func (svc *service) QueryByAdmission(ctx context.Context, admissionID string) ([]Payment, error) {
	payments, err := svc.repo.QueryPayments(ctx, &QueryFilter{AdmissionID: admissionID})
	if err != nil {
		return nil, errors.Wrap(err, "querying admission payments")
	}
	return payments, nil
}

func (svc *service) TotalCollected(ctx context.Context, admissionID string) (int64, error) {
	payments, err := svc.QueryByAdmission(ctx, admissionID)
	if err != nil {
		return 0, err
	}
	return TotalPaid(payments), nil
}

func (svc *service) Update(ctx context.Context, id string, up UpdatePayment) (Payment, error) {
	if err := checkAmount(up.Amount); err != nil {
		return Payment{}, err
	}
	p, err := svc.repo.GetPayment(ctx, id)
	if err != nil {
		return Payment{}, err
	}
	p.Amount = up.Amount
	p.Notes = up.Notes
	if !up.PaymentDate.IsZero() {
		p.PaymentDate = up.PaymentDate
	}
	return svc.repo.UpdatePayment(ctx, p)
}

func (svc *service) Delete(ctx context.Context, id string) error {
	if _, err := svc.repo.GetPayment(ctx, id); err != nil {
		return err
	}
	return svc.repo.DeletePayment(ctx, id)
}

func checkAmount(amount int64) error {
	if amount <= 0 {
		return core.NewValidationError(ErrNonPositiveAmount, core.FieldError{
			Field: "amount",
			Error: ErrNonPositiveAmount.Error(),
		})
	}
	return nil
}
