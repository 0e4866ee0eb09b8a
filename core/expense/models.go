package expense

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/rudradrivingschool/rudra-driving-school/core"
)

type Expense struct {
	ID       string    `json:"id"`
	Purpose  string    `json:"purpose"`
	Amount   int64     `json:"amount"`
	Date     time.Time `json:"date"`
	DriverID string    `json:"driver_id"`
	// DriverName is filled on read; it is not stored.
	DriverName string    `json:"driver_name,omitempty"`
	Notes      string    `json:"notes"`
	CreatedAt  time.Time `json:"created_at"` // UTC
}

// NewExpense contains information needed to record an Expense.
type NewExpense struct {
	Purpose  string    `json:"purpose" validate:"required,notblank"`
	Amount   int64     `json:"amount" validate:"gt=0"`
	Date     time.Time `json:"date"`
	DriverID string    `json:"driver_id"`
	Notes    string    `json:"notes"`
}

func (ne *NewExpense) Validate(validate *validator.Validate) error {
	ne.Purpose = core.CleanString(ne.Purpose)
	ne.DriverID = core.CleanString(ne.DriverID)
	ne.Notes = core.CleanString(ne.Notes)
	return validate.Struct(ne)
}

// UpdateExpense defines what information may be provided to modify an existing Expense.
type UpdateExpense struct {
	NewExpense
}

type QueryFilter struct {
	Search   string    `query:"search"`
	DriverID string    `query:"driver_id"`
	DateFrom time.Time `query:"-"`
	DateTo   time.Time `query:"-"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.DriverID = core.CleanString(qf.DriverID)
}
