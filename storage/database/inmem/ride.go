package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/rudradrivingschool/rudra-driving-school/core"
	"github.com/rudradrivingschool/rudra-driving-school/core/ride"
)

type rideRepository struct {
	db *rideTable
}

var _ ride.Repository = (*rideRepository)(nil) // interface compliance check

func NewRideRepository(db *DB) *rideRepository {
	return &rideRepository{db: db.ride}
}

// query returns the rides matching keep, newest first. The caller holds the lock.
func (repo *rideRepository) query(keep func(r *ride.Ride) bool) []ride.Ride {
	rides := make([]ride.Ride, 0)
	for _, r := range repo.db.table {
		if keep(r) {
			rides = append(rides, *r)
		}
	}
	sort.Slice(rides, func(i, j int) bool {
		if rides[i].Date != rides[j].Date {
			return rides[i].Date > rides[j].Date // layout sorts lexically
		}
		if !rides[i].CreatedAt.Equal(rides[j].CreatedAt) {
			return rides[i].CreatedAt.After(rides[j].CreatedAt)
		}
		return rides[i].ID < rides[j].ID
	})
	return rides
}

func (repo *rideRepository) CreateRide(_ context.Context, r ride.Ride, _ ...core.DBExecutor) (ride.Ride, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	r.ID = newID()
	r.DriverName = ""
	repo.db.table[r.ID] = &r
	return r, nil
}

func (repo *rideRepository) QueryRides(_ context.Context, filter *ride.QueryFilter, _ ...core.DBExecutor) ([]ride.Ride, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var from, to string
	if filter != nil {
		if !filter.DateFrom.IsZero() {
			from = filter.DateFrom.Format(ride.DateLayout)
		}
		if !filter.DateTo.IsZero() {
			to = filter.DateTo.Format(ride.DateLayout)
		}
	}
	return repo.query(func(r *ride.Ride) bool {
		if filter == nil {
			return true
		}
		switch {
		case filter.Search != "" && !containsAny(filter.Search, r.ClientName, r.Car, r.Notes):
			return false
		case filter.ClientID != "" && r.ClientID != filter.ClientID:
			return false
		case filter.DriverID != "" && r.DriverID != filter.DriverID:
			return false
		case from != "" && r.Date < from:
			return false
		case to != "" && r.Date > to:
			return false
		}
		return true
	}), nil
}

func (repo *rideRepository) QueryRidesByAdmission(_ context.Context, admissionID string, _ ...core.DBExecutor) ([]ride.Ride, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.query(func(r *ride.Ride) bool { return r.ClientID != "" && r.ClientID == admissionID }), nil
}

func (repo *rideRepository) QueryLegacyRides(_ context.Context, clientName string, _ ...core.DBExecutor) ([]ride.Ride, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.query(func(r *ride.Ride) bool { return r.ClientID == "" && r.ClientName == clientName }), nil
}

func (repo *rideRepository) QueryLegacyClientNames(_ context.Context, _ ...core.DBExecutor) ([]string, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	seen := make(map[string]bool)
	names := make([]string, 0)
	for _, r := range repo.db.table {
		if r.ClientID == "" && !seen[r.ClientName] {
			seen[r.ClientName] = true
			names = append(names, r.ClientName)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (repo *rideRepository) LinkLegacyRides(_ context.Context, clientName, admissionID string, _ ...core.DBExecutor) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	var n int
	for _, r := range repo.db.table {
		if r.ClientID == "" && r.ClientName == clientName {
			r.ClientID = admissionID
			n++
		}
	}
	return n, nil
}

func (repo *rideRepository) GetRide(_ context.Context, id string, _ ...core.DBExecutor) (ride.Ride, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if r, ok := repo.db.table[id]; ok {
		return *r, nil
	}
	return ride.Ride{}, ride.ErrNotFound
}

func (repo *rideRepository) UpdateRide(_ context.Context, r ride.Ride, _ ...core.DBExecutor) (ride.Ride, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.table[r.ID]
	if !ok {
		return ride.Ride{}, ride.ErrNotFound
	}
	// date, time and creation stamp are fixed at creation
	r.Date = orig.Date
	r.Time = orig.Time
	r.CreatedAt = orig.CreatedAt
	r.DriverName = ""
	repo.db.table[r.ID] = &r
	return r, nil
}

func (repo *rideRepository) DeleteRide(_ context.Context, id string, _ ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.table[id]; !ok {
		return ride.ErrNotFound
	}
	delete(repo.db.table, id)
	return nil
}

func (repo *rideRepository) CountCompleted(_ context.Context, admissionID string, _ ...core.DBExecutor) (int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var n int
	for _, r := range repo.db.table {
		if admissionID != "" && r.ClientID == admissionID && strings.EqualFold(r.Status, ride.StatusCompleted) {
			n++
		}
	}
	return n, nil
}

func (repo *rideRepository) CountRides(_ context.Context, excludedDriverIDs []string, _ ...core.DBExecutor) (int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	excluded := make(map[string]bool, len(excludedDriverIDs))
	for _, id := range excludedDriverIDs {
		excluded[id] = true
	}
	var n int
	for _, r := range repo.db.table {
		if r.DriverID == "" || !excluded[r.DriverID] {
			n++
		}
	}
	return n, nil
}

func (repo *rideRepository) CountByAdmission(_ context.Context, admissionID string, _ ...core.DBExecutor) (int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var n int
	for _, r := range repo.db.table {
		if admissionID != "" && r.ClientID == admissionID {
			n++
		}
	}
	return n, nil
}

func (repo *rideRepository) DeleteByAdmission(_ context.Context, admissionID string, _ ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for id, r := range repo.db.table {
		if admissionID != "" && r.ClientID == admissionID {
			delete(repo.db.table, id)
		}
	}
	return nil
}
