// Package admissionview assembles the read-only admission aggregate shown in the client table:
// the admission, its ride history with driver names, the ride counts and the payment balance.
package admissionview

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/rudradrivingschool/rudra-driving-school/core"
	"github.com/rudradrivingschool/rudra-driving-school/core/admission"
	"github.com/rudradrivingschool/rudra-driving-school/core/payment"
	"github.com/rudradrivingschool/rudra-driving-school/core/ride"
)

type (
	View struct {
		admission.Admission
		Rides []ride.Ride `json:"rides"`
		// Completed counts the rides whose status is completed, ignoring case.
		Completed int `json:"completed"`
		// Total is the admission's total rides, or the ride count when no total is stored.
		Total     int   `json:"total"`
		Remaining int   `json:"remaining"`
		Paid      int64 `json:"paid"`
		Balance   int64 `json:"balance"`
	}

	AdmissionQuerier interface {
		Get(ctx context.Context, id string) (admission.Admission, error)
		Query(ctx context.Context, filter *admission.QueryFilter, ordering []core.DBOrdering) ([]admission.Admission, error)
	}

	RideHistory interface {
		History(ctx context.Context, admissionID, clientName string) ([]ride.Ride, error)
	}

	PaymentQuerier interface {
		Query(ctx context.Context, filter *payment.QueryFilter) ([]payment.Payment, error)
	}

	Deps struct {
		Admissions AdmissionQuerier
		Rides      RideHistory
		Drivers    ride.DriverDirectory
		Payments   PaymentQuerier
		Logger     core.Logger
	}

	Service struct {
		admissions AdmissionQuerier
		rides      RideHistory
		drivers    ride.DriverDirectory
		payments   PaymentQuerier
		logger     core.Logger
	}
)

func NewService(deps Deps) *Service {
	return &Service{
		admissions: deps.Admissions,
		rides:      deps.Rides,
		drivers:    deps.Drivers,
		payments:   deps.Payments,
		logger:     deps.Logger,
	}
}

// View builds the aggregate of one admission. It never writes to the admission.
func (svc *Service) View(ctx context.Context, id string) (View, error) {
	adm, err := svc.admissions.Get(ctx, id)
	if err != nil {
		return View{}, err
	}
	rides, err := svc.rides.History(ctx, adm.ID, adm.StudentName)
	if err != nil {
		return View{}, errors.Wrap(err, "fetching ride history")
	}
	payments, err := svc.payments.Query(ctx, &payment.QueryFilter{AdmissionID: adm.ID})
	if err != nil {
		return View{}, errors.Wrap(err, "querying payments")
	}
	ride.Annotate(ctx, rides, svc.drivers, svc.logger)
	return build(adm, rides, payment.TotalPaid(payments)), nil
}

// Views builds the aggregate of every admission matching filter. An admission whose rides cannot
// be fetched is listed with an empty history.
func (svc *Service) Views(ctx context.Context, filter *admission.QueryFilter, ordering []core.DBOrdering) ([]View, error) {
	adms, err := svc.admissions.Query(ctx, filter, ordering)
	if err != nil {
		return nil, errors.Wrap(err, "querying admissions")
	}
	payments, err := svc.payments.Query(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "querying payments")
	}
	paid := make(map[string]int64, len(adms))
	for _, p := range payments {
		paid[p.AdmissionID] += p.Amount
	}

	histories := make([][]ride.Ride, len(adms))
	all := make([]ride.Ride, 0)
	for i, adm := range adms {
		rides, err := svc.rides.History(ctx, adm.ID, adm.StudentName)
		if err != nil {
			svc.logger.Warn(
				fmt.Sprintf("fetching ride history of admission %s", adm.ID),
				err,
				map[string]interface{}{"admission_id": adm.ID},
			)
			rides = []ride.Ride{}
		}
		histories[i] = rides
		all = append(all, rides...)
	}

	// one driver lookup for the whole page
	ride.Annotate(ctx, all, svc.drivers, svc.logger)
	var offset int
	views := make([]View, 0, len(adms))
	for i, adm := range adms {
		n := len(histories[i])
		views = append(views, build(adm, all[offset:offset+n:offset+n], paid[adm.ID]))
		offset += n
	}
	return views, nil
}

func build(adm admission.Admission, rides []ride.Ride, paid int64) View {
	if rides == nil {
		rides = []ride.Ride{}
	}
	v := View{
		Admission: adm,
		Rides:     rides,
		Total:     adm.TotalRides,
		Paid:      paid,
		Balance:   adm.Fees - paid,
	}
	for _, r := range rides {
		if r.IsCompleted() {
			v.Completed++
		}
	}
	if v.Total == 0 {
		v.Total = len(rides)
	}
	if v.Remaining = v.Total - v.Completed; v.Remaining < 0 {
		v.Remaining = 0
	}
	return v
}
