package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/rudradrivingschool/rudra-driving-school/core"
	"github.com/rudradrivingschool/rudra-driving-school/core/admission"
	"github.com/rudradrivingschool/rudra-driving-school/core/driver"
	"github.com/rudradrivingschool/rudra-driving-school/core/expense"
	"github.com/rudradrivingschool/rudra-driving-school/core/payment"
	"github.com/rudradrivingschool/rudra-driving-school/core/ride"
)

func NewValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	admission.InitValidators(validate, translator)
	driver.InitValidators(validate, translator)
	return validate, translator
}

// Logger records the messages logged at each level.
type Logger struct {
	mu   sync.Mutex
	logs map[string][]string
}

var _ core.Logger = (*Logger)(nil)

func NewLogger() *Logger {
	return &Logger{logs: make(map[string][]string)}
}

func (l *Logger) log(level, msg string, args []interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, arg := range args {
		if err, ok := arg.(error); ok {
			msg = fmt.Sprintf("%s: %v", msg, err)
			break
		}
	}
	l.logs[level] = append(l.logs[level], msg)
}

func (l *Logger) Debug(msg string, args ...interface{}) { l.log("debug", msg, args) }
func (l *Logger) Info(msg string, args ...interface{})  { l.log("info", msg, args) }
func (l *Logger) Warn(msg string, args ...interface{})  { l.log("warn", msg, args) }
func (l *Logger) Error(msg string, args ...interface{}) { l.log("error", msg, args) }
func (l *Logger) Fatal(msg string, args ...interface{}) { l.log("fatal", msg, args) }

// Logs returns a copy of the messages logged at level.
func (l *Logger) Logs(level string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.logs[level]...)
}

// Date returns midnight UTC of the given day.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func CreateDriver(
	t *testing.T,
	repo driver.Repository,
	name, uname, pwd, role string,
	isActive bool,
) driver.Driver {
	now := time.Now().UTC()
	status := driver.StatusActive
	if !isActive {
		status = driver.StatusInactive
	}
	if role == "" {
		role = driver.RoleDriver
	}
	drv := driver.Driver{
		Name:      name,
		Username:  uname,
		Email:     uname + "@rudra.test",
		Status:    status,
		Role:      role,
		JoinDate:  now.Truncate(24 * time.Hour),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if pwd != "" {
		if err := drv.SetPassword(pwd); err != nil {
			t.Fatalf("CreateDriver() failed: %v", err)
		}
	}
	drv, err := repo.CreateDriver(context.Background(), drv)
	if err != nil {
		t.Fatalf("CreateDriver() failed: %v", err)
	}
	return drv
}

func CreateAdmission(
	t *testing.T,
	repo admission.Repository,
	studentName string,
	totalRides int,
	fees int64,
	createdAt ...time.Time,
) admission.Admission {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	adm := admission.Admission{
		StudentName: studentName,
		Contact:     "9800000000",
		Sex:         "F",
		LicenseType: admission.LicenseTypeNA,
		Duration:    fmt.Sprintf("%d rides", totalRides),
		TotalRides:  totalRides,
		Status:      admission.StatusActive,
		Fees:        fees,
		StartDate:   tstamp.Truncate(24 * time.Hour),
		CreatedAt:   tstamp,
		UpdatedAt:   tstamp,
	}
	adm, err := repo.CreateAdmission(context.Background(), adm)
	if err != nil {
		t.Fatalf("CreateAdmission() failed: %v", err)
	}
	return adm
}

// CreateRide stores a ride as-is; it does not reconcile the admission.
func CreateRide(
	t *testing.T,
	repo ride.Repository,
	clientID, clientName, driverID, date, status string,
) ride.Ride {
	r := ride.Ride{
		ClientID:   clientID,
		ClientName: clientName,
		DriverID:   driverID,
		Date:       date,
		Time:       "9:30 AM",
		Car:        "Swift",
		Status:     status,
		CreatedAt:  time.Now().UTC(),
	}
	r, err := repo.CreateRide(context.Background(), r)
	if err != nil {
		t.Fatalf("CreateRide() failed: %v", err)
	}
	return r
}

func CreatePayment(
	t *testing.T,
	repo payment.Repository,
	admissionID string,
	amount int64,
	typ payment.Type,
	date time.Time,
) payment.Payment {
	p := payment.Payment{
		AdmissionID: admissionID,
		Amount:      amount,
		PaymentType: typ,
		PaymentDate: date.UTC(),
		CreatedAt:   time.Now().UTC(),
	}
	p, err := repo.CreatePayment(context.Background(), p)
	if err != nil {
		t.Fatalf("CreatePayment() failed: %v", err)
	}
	return p
}

func CreateExpense(
	t *testing.T,
	repo expense.Repository,
	purpose string,
	amount int64,
	driverID string,
	date time.Time,
) expense.Expense {
	exp := expense.Expense{
		Purpose:   purpose,
		Amount:    amount,
		Date:      date.UTC(),
		DriverID:  driverID,
		CreatedAt: time.Now().UTC(),
	}
	exp, err := repo.CreateExpense(context.Background(), exp)
	if err != nil {
		t.Fatalf("CreateExpense() failed: %v", err)
	}
	return exp
}
