package sqlxrepos

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/rudradrivingschool/rudra-driving-school/core"
	"github.com/rudradrivingschool/rudra-driving-school/core/payment"
)

const paymentColumns = "id, admission_id, amount, payment_type, payment_date, notes, created_at"

type paymentRow struct {
	ID          string    `db:"id"`
	AdmissionID string    `db:"admission_id"`
	Amount      int64     `db:"amount"`
	PaymentType string    `db:"payment_type"`
	PaymentDate time.Time `db:"payment_date"`
	Notes       string    `db:"notes"`
	CreatedAt   time.Time `db:"created_at"`
}

type paymentRepository struct {
	base
}

var _ payment.Repository = (*paymentRepository)(nil) // interface compliance check

func NewPaymentRepository(exec core.DBExecutor) *paymentRepository {
	return &paymentRepository{base{exec: exec}}
}

func (repo paymentRepository) toRow(p payment.Payment) paymentRow {
	return paymentRow{
		ID:          p.ID,
		AdmissionID: p.AdmissionID,
		Amount:      p.Amount,
		PaymentType: string(p.PaymentType),
		PaymentDate: p.PaymentDate.UTC(),
		Notes:       p.Notes,
		CreatedAt:   p.CreatedAt.UTC(),
	}
}

func (repo paymentRepository) fromRows(rows []paymentRow) []payment.Payment {
	payments := make([]payment.Payment, 0, len(rows))
	for _, row := range rows {
		payments = append(payments, payment.Payment{
			ID:          row.ID,
			AdmissionID: row.AdmissionID,
			Amount:      row.Amount,
			PaymentType: payment.Type(row.PaymentType),
			PaymentDate: row.PaymentDate.UTC(),
			Notes:       row.Notes,
			CreatedAt:   row.CreatedAt.UTC(),
		})
	}
	return payments
}

func (repo paymentRepository) selectPayments(ctx context.Context, exec []core.DBExecutor, w *where, msg string) ([]payment.Payment, error) {
	var rows []paymentRow
	q := w.query("SELECT "+paymentColumns+" FROM payments", "ORDER BY payment_date DESC, created_at DESC, id")
	if err := selectRows(ctx, repo.getExec(exec), &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, msg)
	}
	return repo.fromRows(rows), nil
}

func (repo paymentRepository) CreatePayment(ctx context.Context, p payment.Payment, exec ...core.DBExecutor) (payment.Payment, error) {
	p.ID = newID()
	q := `INSERT INTO payments (` + paymentColumns + `)
		VALUES (:id, :admission_id, :amount, :payment_type, :payment_date, :notes, :created_at)`
	if _, err := execNamed(ctx, repo.getExec(exec), q, repo.toRow(p)); err != nil {
		if isUniqueViolation(err) {
			return payment.Payment{}, payment.ErrDuplicateInstallment
		}
		return payment.Payment{}, errors.Wrap(err, "inserting payment")
	}
	return p, nil
}

func (repo paymentRepository) QueryPayments(ctx context.Context, filter *payment.QueryFilter, exec ...core.DBExecutor) ([]payment.Payment, error) {
	var w where
	if filter != nil {
		if filter.AdmissionID != "" {
			if !validID(filter.AdmissionID) {
				return []payment.Payment{}, nil
			}
			w.add("admission_id = ?", filter.AdmissionID)
		}
		if filter.PaymentType != "" {
			w.add("payment_type = ?", filter.PaymentType)
		}
		if !filter.DateFrom.IsZero() {
			w.add("payment_date >= ?", filter.DateFrom.UTC())
		}
		if !filter.DateTo.IsZero() {
			w.add("payment_date <= ?", filter.DateTo.UTC())
		}
	}
	return repo.selectPayments(ctx, exec, &w, "querying payments")
}

func (repo paymentRepository) GetPayment(ctx context.Context, id string, exec ...core.DBExecutor) (payment.Payment, error) {
	if !validID(id) {
		return payment.Payment{}, payment.ErrNotFound
	}
	var w where
	w.add("id = ?", id)
	payments, err := repo.selectPayments(ctx, exec, &w, "finding payment by ID")
	if err != nil {
		return payment.Payment{}, err
	}
	if len(payments) == 0 {
		return payment.Payment{}, payment.ErrNotFound
	}
	return payments[0], nil
}

func (repo paymentRepository) UpdatePayment(ctx context.Context, p payment.Payment, exec ...core.DBExecutor) (payment.Payment, error) {
	if !validID(p.ID) {
		return payment.Payment{}, payment.ErrNotFound
	}
	exe := repo.getExec(exec)
	q := "UPDATE payments SET amount = :amount, payment_date = :payment_date, notes = :notes WHERE id = :id"
	res, err := execNamed(ctx, exe, q, repo.toRow(p))
	if err != nil {
		return payment.Payment{}, errors.Wrap(err, "updating payment")
	}
	if err = mustAffect(res, payment.ErrNotFound); err != nil {
		return payment.Payment{}, err
	}
	return repo.GetPayment(ctx, p.ID, exe)
}

func (repo paymentRepository) DeletePayment(ctx context.Context, id string, exec ...core.DBExecutor) error {
	if !validID(id) {
		return payment.ErrNotFound
	}
	res, err := repo.getExec(exec).ExecContext(ctx, "DELETE FROM payments WHERE id = $1", id)
	if err != nil {
		return errors.Wrap(err, "deleting payment")
	}
	return mustAffect(res, payment.ErrNotFound)
}

func (repo paymentRepository) CountByAdmission(ctx context.Context, admissionID string, exec ...core.DBExecutor) (int, error) {
	if !validID(admissionID) {
		return 0, nil
	}
	n, err := count(ctx, repo.getExec(exec), "SELECT COUNT(*) FROM payments WHERE admission_id = $1", admissionID)
	return n, errors.Wrap(err, "counting admission payments")
}

func (repo paymentRepository) DeleteByAdmission(ctx context.Context, admissionID string, exec ...core.DBExecutor) error {
	if !validID(admissionID) {
		return nil
	}
	_, err := repo.getExec(exec).ExecContext(ctx, "DELETE FROM payments WHERE admission_id = $1", admissionID)
	return errors.Wrap(err, "deleting admission payments")
}
