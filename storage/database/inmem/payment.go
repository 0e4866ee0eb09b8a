package inmemdb

import (
	"context"
	"sort"

	"github.com/rudradrivingschool/rudra-driving-school/core"
	"github.com/rudradrivingschool/rudra-driving-school/core/payment"
)

type paymentRepository struct {
	db *paymentTable
}

var _ payment.Repository = (*paymentRepository)(nil) // interface compliance check

func NewPaymentRepository(db *DB) *paymentRepository {
	return &paymentRepository{db: db.payment}
}

func (repo *paymentRepository) CreatePayment(_ context.Context, p payment.Payment, _ ...core.DBExecutor) (payment.Payment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if p.PaymentType.Unique() {
		for _, existing := range repo.db.table {
			if existing.AdmissionID == p.AdmissionID && existing.PaymentType == p.PaymentType {
				return payment.Payment{}, payment.ErrDuplicateInstallment
			}
		}
	}
	p.ID = newID()
	repo.db.table[p.ID] = &p
	return p, nil
}

func (repo *paymentRepository) QueryPayments(_ context.Context, filter *payment.QueryFilter, _ ...core.DBExecutor) ([]payment.Payment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	payments := make([]payment.Payment, 0)
	for _, p := range repo.db.table {
		if filter != nil {
			switch {
			case filter.AdmissionID != "" && p.AdmissionID != filter.AdmissionID:
				continue
			case filter.PaymentType != "" && string(p.PaymentType) != filter.PaymentType:
				continue
			case !filter.DateFrom.IsZero() && p.PaymentDate.Before(filter.DateFrom):
				continue
			case !filter.DateTo.IsZero() && p.PaymentDate.After(filter.DateTo):
				continue
			}
		}
		payments = append(payments, *p)
	}
	sort.Slice(payments, func(i, j int) bool {
		if !payments[i].PaymentDate.Equal(payments[j].PaymentDate) {
			return payments[i].PaymentDate.After(payments[j].PaymentDate)
		}
		if !payments[i].CreatedAt.Equal(payments[j].CreatedAt) {
			return payments[i].CreatedAt.After(payments[j].CreatedAt)
		}
		return payments[i].ID < payments[j].ID
	})
	return payments, nil
}

func (repo *paymentRepository) GetPayment(_ context.Context, id string, _ ...core.DBExecutor) (payment.Payment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if p, ok := repo.db.table[id]; ok {
		return *p, nil
	}
	return payment.Payment{}, payment.ErrNotFound
}

func (repo *paymentRepository) UpdatePayment(_ context.Context, p payment.Payment, _ ...core.DBExecutor) (payment.Payment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.table[p.ID]
	if !ok {
		return payment.Payment{}, payment.ErrNotFound
	}
	orig.Amount = p.Amount
	orig.PaymentDate = p.PaymentDate
	orig.Notes = p.Notes
	return *orig, nil
}

func (repo *paymentRepository) DeletePayment(_ context.Context, id string, _ ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.table[id]; !ok {
		return payment.ErrNotFound
	}
	delete(repo.db.table, id)
	return nil
}

func (repo *paymentRepository) CountByAdmission(_ context.Context, admissionID string, _ ...core.DBExecutor) (int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var n int
	for _, p := range repo.db.table {
		if p.AdmissionID == admissionID {
			n++
		}
	}
	return n, nil
}

func (repo *paymentRepository) DeleteByAdmission(_ context.Context, admissionID string, _ ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for id, p := range repo.db.table {
		if p.AdmissionID == admissionID {
			delete(repo.db.table, id)
		}
	}
	return nil
}
