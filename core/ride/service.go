package ride

import (
	"context"
	"fmt"
	"sort"

	"github.com/pkg/errors"

	"github.com/rudradrivingschool/rudra-driving-school/core"
	"github.com/rudradrivingschool/rudra-driving-school/core/admission"
	"github.com/rudradrivingschool/rudra-driving-school/core/driver"
)

var (
	// errors
	ErrNotFound = errors.New("ride not found")
)

type (
	Repository interface {
		CreateRide(ctx context.Context, r Ride, exec ...core.DBExecutor) (Ride, error)
		// QueryRides returns rides matching filter (nil = all), newest first.
		QueryRides(ctx context.Context, filter *QueryFilter, exec ...core.DBExecutor) ([]Ride, error)
		// QueryRidesByAdmission returns the rides linked to admissionID, newest first.
		QueryRidesByAdmission(ctx context.Context, admissionID string, exec ...core.DBExecutor) ([]Ride, error)
		// QueryLegacyRides returns the unlinked rides (no client id) logged under clientName, newest first.
		QueryLegacyRides(ctx context.Context, clientName string, exec ...core.DBExecutor) ([]Ride, error)
		// QueryLegacyClientNames returns the distinct client names of unlinked rides.
		QueryLegacyClientNames(ctx context.Context, exec ...core.DBExecutor) ([]string, error)
		// LinkLegacyRides sets admissionID on the unlinked rides logged under clientName.
		LinkLegacyRides(ctx context.Context, clientName, admissionID string, exec ...core.DBExecutor) (int, error)
		GetRide(ctx context.Context, id string, exec ...core.DBExecutor) (Ride, error)
		UpdateRide(ctx context.Context, r Ride, exec ...core.DBExecutor) (Ride, error)
		DeleteRide(ctx context.Context, id string, exec ...core.DBExecutor) error

		CountCompleted(ctx context.Context, admissionID string, exec ...core.DBExecutor) (int, error)
		CountRides(ctx context.Context, excludedDriverIDs []string, exec ...core.DBExecutor) (int, error)
		CountByAdmission(ctx context.Context, admissionID string, exec ...core.DBExecutor) (int, error)
		DeleteByAdmission(ctx context.Context, admissionID string, exec ...core.DBExecutor) error
	}

	// ClientDirectory resolves admissions by student name.
	ClientDirectory interface {
		ClientIDsByName(ctx context.Context) (map[string]string, error)
		ActiveClientNames(ctx context.Context) ([]string, error)
	}

	// DriverDirectory resolves drivers. Query never returns the root account.
	DriverDirectory interface {
		Query(ctx context.Context, filter *driver.QueryFilter) ([]driver.Driver, error)
		Names(ctx context.Context, ids ...string) (map[string]string, error)
	}

	// Reconciler recomputes an admission's progress after its rides changed.
	Reconciler interface {
		Reconcile(ctx context.Context, admissionID string, callbacks ...func(admission.Progress)) (admission.Progress, error)
	}

	Service interface {
		Add(ctx context.Context, nr NewRide) (Ride, error)
		Update(ctx context.Context, id string, ur UpdateRide) (Ride, error)
		Delete(ctx context.Context, id string) error
		Get(ctx context.Context, id string) (Ride, error)
		// Query lists rides newest first, with driver names.
		Query(ctx context.Context, filter *QueryFilter) ([]Ride, error)
		// History returns the rides of an admission. Admissions with no linked ride fall back to
		// the unlinked rides logged under clientName.
		History(ctx context.Context, admissionID, clientName string) ([]Ride, error)
		Options(ctx context.Context) (Options, error)
		// Backfill links unlinked rides whose client name now resolves, then reconciles the touched admissions.
		Backfill(ctx context.Context) (BackfillResult, error)
	}

	Deps struct {
		Repo       Repository
		Clients    ClientDirectory
		Drivers    DriverDirectory
		Reconciler Reconciler
		Logger     core.Logger
	}

	service struct {
		repo       Repository
		clients    ClientDirectory
		drivers    DriverDirectory
		reconciler Reconciler
		logger     core.Logger
	}
)

var _ Service = (*service)(nil) // interface compliance check

func NewService(deps Deps) Service {
	return &service{
		repo:       deps.Repo,
		clients:    deps.Clients,
		drivers:    deps.Drivers,
		reconciler: deps.Reconciler,
		logger:     deps.Logger,
	}
}

// resolve maps the client and driver names to ids. Names that do not resolve give empty ids.
func (svc *service) resolve(ctx context.Context, clientName, driverName string) (clientID, driverID string, err error) {
	clientIDs, err := svc.clients.ClientIDsByName(ctx)
	if err != nil {
		return "", "", errors.Wrap(err, "loading client ids")
	}
	clientID = clientIDs[clientName]

	if driverName != "" {
		drivers, err := svc.drivers.Query(ctx, nil)
		if err != nil {
			return "", "", errors.Wrap(err, "loading drivers")
		}
		for _, drv := range drivers {
			if drv.Name == driverName {
				driverID = drv.ID
				break
			}
		}
	}
	return clientID, driverID, nil
}

// reconcile updates an admission's progress. Failures are logged, never returned:
// the ride write already succeeded.
func (svc *service) reconcile(ctx context.Context, admissionID string) {
	if admissionID == "" {
		return
	}
	if _, err := svc.reconciler.Reconcile(ctx, admissionID); err != nil {
		svc.logger.Warn(
			fmt.Sprintf("ride saved but admission %s progress not reconciled", admissionID),
			err,
			map[string]interface{}{"admission_id": admissionID},
		)
	}
}

func (svc *service) Add(ctx context.Context, nr NewRide) (Ride, error) {
	clientID, driverID, err := svc.resolve(ctx, nr.ClientName, nr.DriverName)
	if err != nil {
		return Ride{}, err
	}

	now := core.NowFunc()
	r, err := svc.repo.CreateRide(ctx, Ride{
		ClientID:   clientID,
		ClientName: nr.ClientName,
		DriverID:   driverID,
		Date:       now.Format(DateLayout),
		Time:       now.Format(TimeLayout),
		Car:        nr.Car,
		Notes:      nr.Notes,
		Status:     StatusCompleted,
		CreatedAt:  now.UTC(),
	})
	if err != nil {
		return Ride{}, errors.Wrap(err, "creating ride")
	}

	svc.reconcile(ctx, r.ClientID)
	return r, nil
}

func (svc *service) Update(ctx context.Context, id string, ur UpdateRide) (Ride, error) {
	orig, err := svc.repo.GetRide(ctx, id)
	if err != nil {
		return Ride{}, err
	}

	clientID, driverID, err := svc.resolve(ctx, ur.ClientName, ur.DriverName)
	if err != nil {
		return Ride{}, err
	}

	// legacy rows have no stored client id: find the admission the old name points to
	oldClientID := orig.ClientID
	if oldClientID == "" && orig.ClientName != ur.ClientName {
		if oldClientID, _, err = svc.resolve(ctx, orig.ClientName, ""); err != nil {
			return Ride{}, err
		}
	}

	r := orig
	r.ClientID = clientID
	r.ClientName = ur.ClientName
	r.DriverID = driverID
	r.Car = ur.Car
	r.Notes = ur.Notes
	r.Status = StatusCompleted

	if r, err = svc.repo.UpdateRide(ctx, r); err != nil {
		return Ride{}, errors.Wrap(err, "updating ride")
	}

	if oldClientID != clientID {
		svc.reconcile(ctx, oldClientID)
	}
	svc.reconcile(ctx, clientID)
	return r, nil
}

func (svc *service) Delete(ctx context.Context, id string) error {
	r, err := svc.repo.GetRide(ctx, id)
	if err != nil {
		return err
	}
	if err = svc.repo.DeleteRide(ctx, id); err != nil {
		return errors.Wrap(err, "deleting ride")
	}

	svc.reconcile(ctx, r.ClientID)
	return nil
}

func (svc *service) Get(ctx context.Context, id string) (Ride, error) {
	r, err := svc.repo.GetRide(ctx, id)
	if err != nil {
		return Ride{}, err
	}
	rides := []Ride{r}
	svc.annotate(ctx, rides)
	return rides[0], nil
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter) ([]Ride, error) {
	rides, err := svc.repo.QueryRides(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "querying rides")
	}
	svc.annotate(ctx, rides)
	return rides, nil
}

func (svc *service) History(ctx context.Context, admissionID, clientName string) ([]Ride, error) {
	rides, err := svc.repo.QueryRidesByAdmission(ctx, admissionID)
	if err != nil {
		return nil, errors.Wrap(err, "querying admission rides")
	}
	if len(rides) > 0 || clientName == "" {
		return rides, nil
	}

	rides, err = svc.repo.QueryLegacyRides(ctx, clientName)
	if err != nil {
		return nil, errors.Wrap(err, "querying legacy rides")
	}
	return rides, nil
}

func (svc *service) Options(ctx context.Context) (Options, error) {
	clients, err := svc.clients.ActiveClientNames(ctx)
	if err != nil {
		return Options{}, errors.Wrap(err, "loading client names")
	}
	drivers, err := svc.drivers.Query(ctx, &driver.QueryFilter{Status: driver.StatusActive})
	if err != nil {
		return Options{}, errors.Wrap(err, "loading drivers")
	}

	opts := Options{Clients: clients, Drivers: make([]string, 0, len(drivers))}
	for _, drv := range drivers {
		if drv.IsRoot() {
			continue
		}
		opts.Drivers = append(opts.Drivers, drv.Name)
	}
	sort.Strings(opts.Drivers)
	return opts, nil
}

func (svc *service) Backfill(ctx context.Context) (BackfillResult, error) {
	res := BackfillResult{Unresolved: []string{}, Admissions: []string{}}

	names, err := svc.repo.QueryLegacyClientNames(ctx)
	if err != nil {
		return res, errors.Wrap(err, "querying legacy client names")
	}
	if len(names) == 0 {
		return res, nil
	}
	clientIDs, err := svc.clients.ClientIDsByName(ctx)
	if err != nil {
		return res, errors.Wrap(err, "loading client ids")
	}

	for _, name := range names {
		id, ok := clientIDs[name]
		if !ok {
			res.Unresolved = append(res.Unresolved, name)
			continue
		}
		n, err := svc.repo.LinkLegacyRides(ctx, name, id)
		if err != nil {
			return res, errors.Wrapf(err, "linking rides of %q", name)
		}
		res.Linked += n
		res.Admissions = append(res.Admissions, id)
	}

	for _, id := range res.Admissions {
		svc.reconcile(ctx, id)
	}
	return res, nil
}

// annotate fills the driver names in place, in one lookup.
func (svc *service) annotate(ctx context.Context, rides []Ride) {
	Annotate(ctx, rides, svc.drivers, svc.logger)
}

// Annotate fills the driver name of each ride with one batch lookup of the distinct drivers.
// Missing drivers, and a failed lookup, give UnknownDriver.
func Annotate(ctx context.Context, rides []Ride, drivers DriverDirectory, logger core.Logger) {
	seen := make(map[string]bool)
	ids := make([]string, 0)
	for _, r := range rides {
		if r.DriverID != "" && !seen[r.DriverID] {
			seen[r.DriverID] = true
			ids = append(ids, r.DriverID)
		}
	}

	names := map[string]string{}
	if len(ids) > 0 {
		var err error
		if names, err = drivers.Names(ctx, ids...); err != nil {
			logger.Warn("looking up ride drivers", err)
			names = map[string]string{}
		}
	}

	for i := range rides {
		if name, ok := names[rides[i].DriverID]; ok && name != "" {
			rides[i].DriverName = name
		} else {
			rides[i].DriverName = UnknownDriver
		}
	}
}
