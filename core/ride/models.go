package ride

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/rudradrivingschool/rudra-driving-school/core"
)

// Status
const (
	StatusCompleted = "completed"
	StatusPending   = "pending"
	StatusCancelled = "cancelled"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "3:04 PM"

	// UnknownDriver is shown for rides whose driver is missing or was deleted.
	UnknownDriver = "Unknown"
)

type Ride struct {
	ID string `json:"id"`
	// ClientID is empty for legacy rows and for client names that did not resolve.
	ClientID   string `json:"client_id"`
	ClientName string `json:"client_name"`
	DriverID   string `json:"driver_id"`
	// DriverName is filled on read; it is not stored.
	DriverName string    `json:"driver_name,omitempty"`
	Date       string    `json:"date"`
	Time       string    `json:"time"`
	Car        string    `json:"car"`
	Notes      string    `json:"notes"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"` // UTC
}

func (r Ride) IsCompleted() bool {
	return strings.EqualFold(r.Status, StatusCompleted)
}

// NewRide contains information needed to log a ride.
// Client and driver are given by name, the way the dashboard forms send them.
type NewRide struct {
	ClientName string `json:"client_name" validate:"required,notblank"`
	DriverName string `json:"driver_name"`
	Car        string `json:"car"`
	Notes      string `json:"notes"`
}

func (nr *NewRide) Validate(validate *validator.Validate) error {
	nr.ClientName = core.CleanString(nr.ClientName)
	nr.DriverName = core.CleanString(nr.DriverName)
	nr.Car = core.CleanString(nr.Car)
	nr.Notes = core.CleanString(nr.Notes)
	return validate.Struct(nr)
}

// UpdateRide defines what information may be provided to modify an existing Ride.
// Date and time stay as stamped at insert.
type UpdateRide struct {
	NewRide
}

// Options are the choices offered when logging a ride.
type Options struct {
	Clients []string `json:"clients"`
	Drivers []string `json:"drivers"`
}

// BackfillResult reports a legacy ride backfill.
type BackfillResult struct {
	Linked     int      `json:"linked"`
	Unresolved []string `json:"unresolved"`
	Admissions []string `json:"admissions"`
}

type QueryFilter struct {
	Search   string    `query:"search"`
	ClientID string    `query:"client_id"`
	DriverID string    `query:"driver_id"`
	DateFrom time.Time `query:"-"`
	DateTo   time.Time `query:"-"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.ClientID = core.CleanString(qf.ClientID)
	qf.DriverID = core.CleanString(qf.DriverID)
}
