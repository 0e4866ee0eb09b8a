package payment

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/rudradrivingschool/rudra-driving-school/core"
)

type Type string

// Payment types
const (
	TypeAdvance      Type = "advance"
	TypeInstallment1 Type = "installment_1"
	TypeInstallment2 Type = "installment_2"
	TypeInstallment3 Type = "installment_3"
	TypeOther        Type = "other"
)

// installments is the order in which installment slots are handed out.
var installments = []Type{TypeInstallment1, TypeInstallment2, TypeInstallment3}

// Unique reports whether an admission may hold at most one payment of this type.
func (t Type) Unique() bool {
	return t != TypeOther
}

type Payment struct {
	ID          string    `json:"id"`
	AdmissionID string    `json:"admission_id"`
	Amount      int64     `json:"amount"`
	PaymentType Type      `json:"payment_type"`
	PaymentDate time.Time `json:"payment_date"`
	Notes       string    `json:"notes"`
	CreatedAt   time.Time `json:"created_at"` // UTC
}

// Next describes the payment an admission would receive next.
type Next struct {
	AdmissionID string `json:"admission_id"`
	PaymentType Type   `json:"payment_type"`
	Fees        int64  `json:"fees"`
	Collected   int64  `json:"collected"`
	Remaining   int64  `json:"remaining"`
}

// NewPayment contains information needed to record a payment. The type is assigned by the service.
type NewPayment struct {
	AdmissionID string `json:"admission_id" validate:"required"`
	Amount      int64  `json:"amount" validate:"gt=0"`
	Notes       string `json:"notes"`
}

func (np *NewPayment) Validate(validate *validator.Validate) error {
	np.AdmissionID = core.CleanString(np.AdmissionID)
	np.Notes = core.CleanString(np.Notes)
	return validate.Struct(np)
}

// UpdatePayment defines what information may be provided to modify an existing Payment.
// The payment type is kept: edits do not re-run the installment sequencing.
type UpdatePayment struct {
	Amount      int64     `json:"amount" validate:"gt=0"`
	PaymentDate time.Time `json:"payment_date"`
	Notes       string    `json:"notes"`
}

func (up *UpdatePayment) Validate(validate *validator.Validate) error {
	up.Notes = core.CleanString(up.Notes)
	return validate.Struct(up)
}

type QueryFilter struct {
	AdmissionID string    `query:"admission_id"`
	PaymentType string    `query:"payment_type"`
	DateFrom    time.Time `query:"-"`
	DateTo      time.Time `query:"-"`
}

func (qf *QueryFilter) Clean() {
	qf.AdmissionID = core.CleanString(qf.AdmissionID)
	qf.PaymentType = core.CleanString(qf.PaymentType, true /* lower */)
}
