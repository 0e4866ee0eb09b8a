package sqlxrepos

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/rudradrivingschool/rudra-driving-school/core"
	"github.com/rudradrivingschool/rudra-driving-school/core/driver"
)

const driverColumns = `id, name, email, phone, license_number, join_date, status, username, password_hash, role,
	created_at, updated_at`

type driverRow struct {
	ID            string    `db:"id"`
	Name          string    `db:"name"`
	Email         string    `db:"email"`
	Phone         string    `db:"phone"`
	LicenseNumber string    `db:"license_number"`
	JoinDate      time.Time `db:"join_date"`
	Status        string    `db:"status"`
	Username      string    `db:"username"`
	PasswordHash  []byte    `db:"password_hash"`
	Role          string    `db:"role"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

type driverRepository struct {
	base
}

var _ driver.Repository = (*driverRepository)(nil) // interface compliance check

func NewDriverRepository(exec core.DBExecutor) *driverRepository {
	return &driverRepository{base{exec: exec}}
}

func (repo driverRepository) toRow(drv driver.Driver) driverRow {
	return driverRow{
		ID:            drv.ID,
		Name:          drv.Name,
		Email:         drv.Email,
		Phone:         drv.Phone,
		LicenseNumber: drv.LicenseNumber,
		JoinDate:      drv.JoinDate.UTC(),
		Status:        drv.Status,
		Username:      drv.Username,
		PasswordHash:  drv.PasswordHash,
		Role:          drv.Role,
		CreatedAt:     drv.CreatedAt.UTC(),
		UpdatedAt:     drv.UpdatedAt.UTC(),
	}
}

func (repo driverRepository) fromRows(rows []driverRow) []driver.Driver {
	drivers := make([]driver.Driver, 0, len(rows))
	for _, row := range rows {
		drivers = append(drivers, driver.Driver{
			ID:            row.ID,
			Name:          row.Name,
			Email:         row.Email,
			Phone:         row.Phone,
			LicenseNumber: row.LicenseNumber,
			JoinDate:      row.JoinDate.UTC(),
			Status:        row.Status,
			Username:      row.Username,
			PasswordHash:  row.PasswordHash,
			Role:          row.Role,
			CreatedAt:     row.CreatedAt.UTC(),
			UpdatedAt:     row.UpdatedAt.UTC(),
		})
	}
	return drivers
}

func (repo driverRepository) selectDrivers(ctx context.Context, exec []core.DBExecutor, w *where, msg string) ([]driver.Driver, error) {
	var rows []driverRow
	q := w.query("SELECT "+driverColumns+" FROM drivers", "ORDER BY name, id")
	if err := selectRows(ctx, repo.getExec(exec), &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, msg)
	}
	return repo.fromRows(rows), nil
}

func (repo driverRepository) getOne(ctx context.Context, exec []core.DBExecutor, w *where, msg string) (driver.Driver, error) {
	drivers, err := repo.selectDrivers(ctx, exec, w, msg)
	if err != nil {
		return driver.Driver{}, err
	}
	if len(drivers) == 0 {
		return driver.Driver{}, driver.ErrNotFound
	}
	return drivers[0], nil
}

func (repo driverRepository) CheckUsernameUniqueness(ctx context.Context, username string, excluded []driver.Driver, exec ...core.DBExecutor) error {
	var w where
	w.add("username = ?", username)
	for _, drv := range excluded {
		if validID(drv.ID) {
			w.add("id <> ?", drv.ID)
		}
	}
	n, err := count(ctx, repo.getExec(exec), w.query("SELECT COUNT(*) FROM drivers", ""), w.args...)
	if err != nil {
		return errors.Wrap(err, "checking username uniqueness")
	}
	if n > 0 {
		return driver.ErrUsernameExists
	}
	return nil
}

func (repo driverRepository) CreateDriver(ctx context.Context, drv driver.Driver, exec ...core.DBExecutor) (driver.Driver, error) {
	drv.ID = newID()
	q := `INSERT INTO drivers (` + driverColumns + `) VALUES (
		:id, :name, :email, :phone, :license_number, :join_date, :status, :username, :password_hash, :role,
		:created_at, :updated_at)`
	if _, err := execNamed(ctx, repo.getExec(exec), q, repo.toRow(drv)); err != nil {
		if isUniqueViolation(err) {
			return driver.Driver{}, driver.ErrUsernameExists
		}
		return driver.Driver{}, errors.Wrap(err, "inserting driver")
	}
	return drv, nil
}

func (repo driverRepository) QueryDrivers(ctx context.Context, filter *driver.QueryFilter, exec ...core.DBExecutor) ([]driver.Driver, error) {
	var w where
	w.add("username <> ?", driver.RootUsername)
	if filter != nil {
		if filter.Search != "" {
			val := likePattern(filter.Search)
			w.add("(name ILIKE ? OR username ILIKE ? OR email ILIKE ? OR phone ILIKE ?)", val, val, val, val)
		}
		if filter.Status != "" {
			w.add("status = ?", filter.Status)
		}
	}
	return repo.selectDrivers(ctx, exec, &w, "querying drivers")
}

func (repo driverRepository) QueryDriversByID(ctx context.Context, ids []string, exec ...core.DBExecutor) ([]driver.Driver, error) {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if validID(id) {
			valid = append(valid, id)
		}
	}
	if len(valid) == 0 {
		return []driver.Driver{}, nil
	}

	var rows []driverRow
	q := "SELECT " + driverColumns + " FROM drivers WHERE id IN (?) ORDER BY name, id"
	if err := selectIn(ctx, repo.getExec(exec), &rows, q, valid); err != nil {
		return nil, errors.Wrap(err, "querying drivers by ID")
	}
	return repo.fromRows(rows), nil
}

func (repo driverRepository) GetDriver(ctx context.Context, id string, exec ...core.DBExecutor) (driver.Driver, error) {
	if !validID(id) {
		return driver.Driver{}, driver.ErrNotFound
	}
	var w where
	w.add("id = ?", id)
	return repo.getOne(ctx, exec, &w, "finding driver by ID")
}

func (repo driverRepository) GetDriverByUsername(ctx context.Context, username string, exec ...core.DBExecutor) (driver.Driver, error) {
	var w where
	w.add("username = ?", username)
	return repo.getOne(ctx, exec, &w, "finding driver by username")
}

func (repo driverRepository) UpdateDriver(ctx context.Context, drv driver.Driver, exec ...core.DBExecutor) (driver.Driver, error) {
	if !validID(drv.ID) {
		return driver.Driver{}, driver.ErrNotFound
	}
	exe := repo.getExec(exec)
	q := `UPDATE drivers SET
		name = :name, email = :email, phone = :phone, license_number = :license_number, join_date = :join_date,
		status = :status, username = :username, password_hash = :password_hash, role = :role, updated_at = :updated_at
		WHERE id = :id`
	res, err := execNamed(ctx, exe, q, repo.toRow(drv))
	if err != nil {
		if isUniqueViolation(err) {
			return driver.Driver{}, driver.ErrUsernameExists
		}
		return driver.Driver{}, errors.Wrap(err, "updating driver")
	}
	if err = mustAffect(res, driver.ErrNotFound); err != nil {
		return driver.Driver{}, err
	}
	return repo.GetDriver(ctx, drv.ID, exe)
}

func (repo driverRepository) DeleteDriver(ctx context.Context, id string, exec ...core.DBExecutor) error {
	if !validID(id) {
		return driver.ErrNotFound
	}
	res, err := repo.getExec(exec).ExecContext(ctx, "DELETE FROM drivers WHERE id = $1", id)
	if err != nil {
		return errors.Wrap(err, "deleting driver")
	}
	return mustAffect(res, driver.ErrNotFound)
}
