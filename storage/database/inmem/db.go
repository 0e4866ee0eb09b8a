// Package inmemdb keeps every repository in process memory. It backs the tests and the API's
// test mode; the exec arguments of the repository methods are ignored.
package inmemdb

import (
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/rudradrivingschool/rudra-driving-school/core/admission"
	"github.com/rudradrivingschool/rudra-driving-school/core/driver"
	"github.com/rudradrivingschool/rudra-driving-school/core/expense"
	"github.com/rudradrivingschool/rudra-driving-school/core/payment"
	"github.com/rudradrivingschool/rudra-driving-school/core/ride"
)

type (
	DB struct {
		admission *admissionTable
		driver    *driverTable
		ride      *rideTable
		payment   *paymentTable
		expense   *expenseTable
	}

	admissionTable struct {
		mutex sync.RWMutex
		table map[string]*admission.Admission
	}

	driverTable struct {
		mutex sync.RWMutex
		table map[string]*driver.Driver
	}

	rideTable struct {
		mutex sync.RWMutex
		table map[string]*ride.Ride
	}

	paymentTable struct {
		mutex sync.RWMutex
		table map[string]*payment.Payment
	}

	expenseTable struct {
		mutex sync.RWMutex
		table map[string]*expense.Expense
	}
)

func Open() *DB {
	return &DB{
		admission: &admissionTable{table: make(map[string]*admission.Admission)},
		driver:    &driverTable{table: make(map[string]*driver.Driver)},
		ride:      &rideTable{table: make(map[string]*ride.Ride)},
		payment:   &paymentTable{table: make(map[string]*payment.Payment)},
		expense:   &expenseTable{table: make(map[string]*expense.Expense)},
	}
}

func newID() string {
	return uuid.New().String()
}

// contains is the case-insensitive substring match of postgres ILIKE '%search%'.
func contains(s, search string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(search))
}

func containsAny(search string, fields ...string) bool {
	for _, f := range fields {
		if contains(f, search) {
			return true
		}
	}
	return false
}
