package inmemdb

import (
	"context"
	"sort"

	"github.com/rudradrivingschool/rudra-driving-school/core"
	"github.com/rudradrivingschool/rudra-driving-school/core/driver"
)

type driverRepository struct {
	db *driverTable
}

var _ driver.Repository = (*driverRepository)(nil) // interface compliance check

func NewDriverRepository(db *DB) *driverRepository {
	return &driverRepository{db: db.driver}
}

// query returns the drivers matching keep, by name. The caller holds the lock.
func (repo *driverRepository) query(keep func(d *driver.Driver) bool) []driver.Driver {
	drivers := make([]driver.Driver, 0, len(repo.db.table))
	for _, d := range repo.db.table {
		if keep(d) {
			drivers = append(drivers, *d)
		}
	}
	sort.Slice(drivers, func(i, j int) bool {
		if drivers[i].Name != drivers[j].Name {
			return drivers[i].Name < drivers[j].Name
		}
		return drivers[i].ID < drivers[j].ID
	})
	return drivers
}

func (repo *driverRepository) usernameTaken(username, exceptID string) bool {
	for _, d := range repo.db.table {
		if d.Username == username && d.ID != exceptID {
			return true
		}
	}
	return false
}

func (repo *driverRepository) CheckUsernameUniqueness(_ context.Context, username string, excluded []driver.Driver, _ ...core.DBExecutor) error {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	isExcluded := make(map[string]bool, len(excluded))
	for _, d := range excluded {
		isExcluded[d.ID] = true
	}
	for _, d := range repo.db.table {
		if d.Username == username && !isExcluded[d.ID] {
			return driver.ErrUsernameExists
		}
	}
	return nil
}

func (repo *driverRepository) CreateDriver(_ context.Context, drv driver.Driver, _ ...core.DBExecutor) (driver.Driver, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if repo.usernameTaken(drv.Username, "") {
		return driver.Driver{}, driver.ErrUsernameExists
	}
	drv.ID = newID()
	repo.db.table[drv.ID] = &drv
	return drv, nil
}

func (repo *driverRepository) QueryDrivers(_ context.Context, filter *driver.QueryFilter, _ ...core.DBExecutor) ([]driver.Driver, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	return repo.query(func(d *driver.Driver) bool {
		if d.IsRoot() {
			return false
		}
		if filter == nil {
			return true
		}
		if filter.Search != "" && !containsAny(filter.Search, d.Name, d.Username, d.Email, d.Phone) {
			return false
		}
		return filter.Status == "" || d.Status == filter.Status
	}), nil
}

func (repo *driverRepository) QueryDriversByID(_ context.Context, ids []string, _ ...core.DBExecutor) ([]driver.Driver, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	return repo.query(func(d *driver.Driver) bool { return wanted[d.ID] }), nil
}

func (repo *driverRepository) GetDriver(_ context.Context, id string, _ ...core.DBExecutor) (driver.Driver, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if d, ok := repo.db.table[id]; ok {
		return *d, nil
	}
	return driver.Driver{}, driver.ErrNotFound
}

func (repo *driverRepository) GetDriverByUsername(_ context.Context, username string, _ ...core.DBExecutor) (driver.Driver, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, d := range repo.db.table {
		if d.Username == username {
			return *d, nil
		}
	}
	return driver.Driver{}, driver.ErrNotFound
}

func (repo *driverRepository) UpdateDriver(_ context.Context, drv driver.Driver, _ ...core.DBExecutor) (driver.Driver, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.table[drv.ID]
	if !ok {
		return driver.Driver{}, driver.ErrNotFound
	}
	if repo.usernameTaken(drv.Username, drv.ID) {
		return driver.Driver{}, driver.ErrUsernameExists
	}
	drv.CreatedAt = orig.CreatedAt
	repo.db.table[drv.ID] = &drv
	return drv, nil
}

func (repo *driverRepository) DeleteDriver(_ context.Context, id string, _ ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.table[id]; !ok {
		return driver.ErrNotFound
	}
	delete(repo.db.table, id)
	return nil
}
