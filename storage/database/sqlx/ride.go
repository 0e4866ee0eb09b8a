package sqlxrepos

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/rudradrivingschool/rudra-driving-school/core"
	"github.com/rudradrivingschool/rudra-driving-school/core/ride"
)

const rideColumns = "id, client_id, client_name, driver_id, date, time, car, notes, status, created_at"

type rideRow struct {
	ID         string      `db:"id"`
	ClientID   null.String `db:"client_id"`
	ClientName string      `db:"client_name"`
	DriverID   null.String `db:"driver_id"`
	Date       time.Time   `db:"date"`
	Time       string      `db:"time"`
	Car        string      `db:"car"`
	Notes      string      `db:"notes"`
	Status     string      `db:"status"`
	CreatedAt  time.Time   `db:"created_at"`
}

type rideRepository struct {
	base
}

var _ ride.Repository = (*rideRepository)(nil) // interface compliance check

func NewRideRepository(exec core.DBExecutor) *rideRepository {
	return &rideRepository{base{exec: exec}}
}

func (repo rideRepository) toRow(r ride.Ride) (rideRow, error) {
	date, err := time.Parse(ride.DateLayout, r.Date)
	if err != nil {
		return rideRow{}, errors.Wrapf(err, "parsing ride date %q", r.Date)
	}
	return rideRow{
		ID:         r.ID,
		ClientID:   null.NewString(r.ClientID, validID(r.ClientID)),
		ClientName: r.ClientName,
		DriverID:   null.NewString(r.DriverID, validID(r.DriverID)),
		Date:       date,
		Time:       r.Time,
		Car:        r.Car,
		Notes:      r.Notes,
		Status:     r.Status,
		CreatedAt:  r.CreatedAt.UTC(),
	}, nil
}

func (repo rideRepository) fromRow(row rideRow) ride.Ride {
	return ride.Ride{
		ID:         row.ID,
		ClientID:   row.ClientID.String,
		ClientName: row.ClientName,
		DriverID:   row.DriverID.String,
		Date:       row.Date.Format(ride.DateLayout),
		Time:       row.Time,
		Car:        row.Car,
		Notes:      row.Notes,
		Status:     row.Status,
		CreatedAt:  row.CreatedAt.UTC(),
	}
}

func (repo rideRepository) fromRows(rows []rideRow) []ride.Ride {
	rides := make([]ride.Ride, 0, len(rows))
	for _, row := range rows {
		rides = append(rides, repo.fromRow(row))
	}
	return rides
}

func (repo rideRepository) selectRides(ctx context.Context, exec []core.DBExecutor, w *where, msg string) ([]ride.Ride, error) {
	var rows []rideRow
	q := w.query("SELECT "+rideColumns+" FROM rides", "ORDER BY date DESC, created_at DESC, id")
	if err := selectRows(ctx, repo.getExec(exec), &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, msg)
	}
	return repo.fromRows(rows), nil
}

func (repo rideRepository) CreateRide(ctx context.Context, r ride.Ride, exec ...core.DBExecutor) (ride.Ride, error) {
	r.ID = newID()
	row, err := repo.toRow(r)
	if err != nil {
		return ride.Ride{}, err
	}
	q := `INSERT INTO rides (` + rideColumns + `)
		VALUES (:id, :client_id, :client_name, :driver_id, :date, :time, :car, :notes, :status, :created_at)`
	if _, err = execNamed(ctx, repo.getExec(exec), q, row); err != nil {
		return ride.Ride{}, errors.Wrap(err, "inserting ride")
	}
	return r, nil
}

func (repo rideRepository) QueryRides(ctx context.Context, filter *ride.QueryFilter, exec ...core.DBExecutor) ([]ride.Ride, error) {
	var w where
	if filter != nil {
		if filter.Search != "" {
			val := likePattern(filter.Search)
			w.add("(client_name ILIKE ? OR car ILIKE ? OR notes ILIKE ?)", val, val, val)
		}
		if filter.ClientID != "" {
			if !validID(filter.ClientID) {
				return []ride.Ride{}, nil
			}
			w.add("client_id = ?", filter.ClientID)
		}
		if filter.DriverID != "" {
			if !validID(filter.DriverID) {
				return []ride.Ride{}, nil
			}
			w.add("driver_id = ?", filter.DriverID)
		}
		if !filter.DateFrom.IsZero() {
			w.add("date >= ?", filter.DateFrom.UTC())
		}
		if !filter.DateTo.IsZero() {
			w.add("date <= ?", filter.DateTo.UTC())
		}
	}
	return repo.selectRides(ctx, exec, &w, "querying rides")
}

func (repo rideRepository) QueryRidesByAdmission(ctx context.Context, admissionID string, exec ...core.DBExecutor) ([]ride.Ride, error) {
	if !validID(admissionID) {
		return []ride.Ride{}, nil
	}
	var w where
	w.add("client_id = ?", admissionID)
	return repo.selectRides(ctx, exec, &w, "querying admission rides")
}

func (repo rideRepository) QueryLegacyRides(ctx context.Context, clientName string, exec ...core.DBExecutor) ([]ride.Ride, error) {
	var w where
	w.add("client_id IS NULL")
	w.add("client_name = ?", clientName)
	return repo.selectRides(ctx, exec, &w, "querying legacy rides")
}

func (repo rideRepository) QueryLegacyClientNames(ctx context.Context, exec ...core.DBExecutor) ([]string, error) {
	rows, err := repo.getExec(exec).QueryContext(ctx,
		"SELECT DISTINCT client_name FROM rides WHERE client_id IS NULL ORDER BY client_name")
	if err != nil {
		return nil, errors.Wrap(err, "querying legacy client names")
	}
	defer func() { _ = rows.Close() }()

	names := make([]string, 0)
	for rows.Next() {
		var name string
		if err = rows.Scan(&name); err != nil {
			return nil, errors.Wrap(err, "scanning legacy client name")
		}
		names = append(names, name)
	}
	return names, errors.Wrap(rows.Err(), "iterating legacy client names")
}

func (repo rideRepository) LinkLegacyRides(ctx context.Context, clientName, admissionID string, exec ...core.DBExecutor) (int, error) {
	res, err := repo.getExec(exec).ExecContext(ctx,
		"UPDATE rides SET client_id = $1 WHERE client_id IS NULL AND client_name = $2", admissionID, clientName)
	if err != nil {
		return 0, errors.Wrap(err, "linking legacy rides")
	}
	n, err := res.RowsAffected()
	return int(n), errors.Wrap(err, "linking legacy rides")
}

func (repo rideRepository) GetRide(ctx context.Context, id string, exec ...core.DBExecutor) (ride.Ride, error) {
	if !validID(id) {
		return ride.Ride{}, ride.ErrNotFound
	}
	var w where
	w.add("id = ?", id)
	rides, err := repo.selectRides(ctx, exec, &w, "finding ride by ID")
	if err != nil {
		return ride.Ride{}, err
	}
	if len(rides) == 0 {
		return ride.Ride{}, ride.ErrNotFound
	}
	return rides[0], nil
}

func (repo rideRepository) UpdateRide(ctx context.Context, r ride.Ride, exec ...core.DBExecutor) (ride.Ride, error) {
	if !validID(r.ID) {
		return ride.Ride{}, ride.ErrNotFound
	}
	row, err := repo.toRow(r)
	if err != nil {
		return ride.Ride{}, err
	}
	exe := repo.getExec(exec)
	q := `UPDATE rides SET client_id = :client_id, client_name = :client_name, driver_id = :driver_id,
		car = :car, notes = :notes, status = :status
		WHERE id = :id`
	res, err := execNamed(ctx, exe, q, row)
	if err != nil {
		return ride.Ride{}, errors.Wrap(err, "updating ride")
	}
	if err = mustAffect(res, ride.ErrNotFound); err != nil {
		return ride.Ride{}, err
	}
	return repo.GetRide(ctx, r.ID, exe)
}

func (repo rideRepository) DeleteRide(ctx context.Context, id string, exec ...core.DBExecutor) error {
	if !validID(id) {
		return ride.ErrNotFound
	}
	res, err := repo.getExec(exec).ExecContext(ctx, "DELETE FROM rides WHERE id = $1", id)
	if err != nil {
		return errors.Wrap(err, "deleting ride")
	}
	return mustAffect(res, ride.ErrNotFound)
}

func (repo rideRepository) CountCompleted(ctx context.Context, admissionID string, exec ...core.DBExecutor) (int, error) {
	if !validID(admissionID) {
		return 0, nil
	}
	n, err := count(ctx, repo.getExec(exec),
		"SELECT COUNT(*) FROM rides WHERE client_id = $1 AND lower(status) = $2", admissionID, ride.StatusCompleted)
	return n, errors.Wrap(err, "counting completed rides")
}

func (repo rideRepository) CountRides(ctx context.Context, excludedDriverIDs []string, exec ...core.DBExecutor) (int, error) {
	excluded := make([]string, 0, len(excludedDriverIDs))
	for _, id := range excludedDriverIDs {
		if validID(id) {
			excluded = append(excluded, id)
		}
	}
	if len(excluded) == 0 {
		n, err := count(ctx, repo.getExec(exec), "SELECT COUNT(*) FROM rides")
		return n, errors.Wrap(err, "counting rides")
	}

	var rows []struct {
		N int `db:"n"`
	}
	q := "SELECT COUNT(*) AS n FROM rides WHERE driver_id IS NULL OR driver_id NOT IN (?)"
	if err := selectIn(ctx, repo.getExec(exec), &rows, q, excluded); err != nil {
		return 0, errors.Wrap(err, "counting rides")
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return rows[0].N, nil
}

func (repo rideRepository) CountByAdmission(ctx context.Context, admissionID string, exec ...core.DBExecutor) (int, error) {
	if !validID(admissionID) {
		return 0, nil
	}
	n, err := count(ctx, repo.getExec(exec), "SELECT COUNT(*) FROM rides WHERE client_id = $1", admissionID)
	return n, errors.Wrap(err, "counting admission rides")
}

func (repo rideRepository) DeleteByAdmission(ctx context.Context, admissionID string, exec ...core.DBExecutor) error {
	if !validID(admissionID) {
		return nil
	}
	_, err := repo.getExec(exec).ExecContext(ctx, "DELETE FROM rides WHERE client_id = $1", admissionID)
	return errors.Wrap(err, "deleting admission rides")
}
