package driver

import (
	"context"

	"github.com/pkg/errors"

	"github.com/rudradrivingschool/rudra-driving-school/core"
)

var (
	// errors
	ErrNotFound             = errors.New("driver not found")
	ErrUsernameExists       = errors.New("a driver with this username already exists")
	ErrAuthenticationFailed = errors.New("invalid username or password")
	ErrInactive             = errors.New("driver account is inactive")
	ErrRootProtected        = errors.New("the root account cannot be modified here")
)

type (
	Repository interface {
		CheckUsernameUniqueness(ctx context.Context, username string, excluded []Driver, exec ...core.DBExecutor) error
		CreateDriver(ctx context.Context, drv Driver, exec ...core.DBExecutor) (Driver, error)
		// QueryDrivers never returns the root account.
		QueryDrivers(ctx context.Context, filter *QueryFilter, exec ...core.DBExecutor) ([]Driver, error)
		QueryDriversByID(ctx context.Context, ids []string, exec ...core.DBExecutor) ([]Driver, error)
		GetDriver(ctx context.Context, id string, exec ...core.DBExecutor) (Driver, error)
		GetDriverByUsername(ctx context.Context, username string, exec ...core.DBExecutor) (Driver, error)
		UpdateDriver(ctx context.Context, drv Driver, exec ...core.DBExecutor) (Driver, error)
		DeleteDriver(ctx context.Context, id string, exec ...core.DBExecutor) error
	}

	// RideCounter counts rides, leaving out the ones driven by excludedDriverIDs.
	RideCounter interface {
		CountRides(ctx context.Context, excludedDriverIDs []string, exec ...core.DBExecutor) (int, error)
	}

	Service interface {
		CheckUniqueness(username string, excluded ...Driver) error
		Create(ctx context.Context, nd NewDriver) (Driver, error)
		// AddOrUpdate creates the driver or resets the existing one with the same username.
		AddOrUpdate(ctx context.Context, drv Driver, pwd string) (Driver, error)
		Query(ctx context.Context, filter *QueryFilter) ([]Driver, error)
		Get(ctx context.Context, id string) (Driver, error)
		GetByUsername(ctx context.Context, username string) (Driver, error)
		// Names maps the given driver ids to names. Unknown ids are left out.
		Names(ctx context.Context, ids ...string) (map[string]string, error)
		Update(ctx context.Context, id string, ud UpdateDriver) (Driver, error)
		SetPassword(ctx context.Context, username, pwd string) error
		Delete(ctx context.Context, id string) error
		Stats(ctx context.Context) (Stats, error)
		Authenticate(ctx context.Context, username, pwd string) (Driver, error)
	}

	service struct {
		repo  Repository
		rides RideCounter
	}
)

var _ Service = (*service)(nil) // interface compliance check

func NewService(repo Repository, rides RideCounter) Service {
	return &service{repo: repo, rides: rides}
}

func (svc *service) CheckUniqueness(username string, excluded ...Driver) error {
	if err := svc.repo.CheckUsernameUniqueness(context.Background(), username, excluded); err != nil {
		if err == ErrUsernameExists {
			return core.NewValidationError(err, core.FieldError{Field: "username", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *service) Create(ctx context.Context, nd NewDriver) (Driver, error) {
	now := core.NowFunc().UTC()
	drv := Driver{
		Name:          nd.Name,
		Email:         nd.Email,
		Phone:         nd.Phone,
		LicenseNumber: nd.LicenseNumber,
		JoinDate:      nd.JoinDate,
		Status:        nd.Status,
		Username:      nd.Username,
		Role:          nd.Role,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if drv.JoinDate.IsZero() {
		drv.JoinDate = core.Today()
	}
	if drv.Status == "" {
		drv.Status = StatusActive
	}
	if drv.Role == "" {
		drv.Role = RoleDriver
	}
	if err := drv.SetPassword(nd.Password); err != nil {
		return Driver{}, errors.Wrap(err, "hashing password")
	}
	return svc.repo.CreateDriver(ctx, drv)
}

func (svc *service) AddOrUpdate(ctx context.Context, drv Driver, pwd string) (Driver, error) {
	drv.Username = core.CleanString(drv.Username, true /* lower */)
	if drv.IsRoot() {
		drv.Role = RoleAdmin
	}
	if err := drv.SetPassword(pwd); err != nil {
		return Driver{}, errors.Wrap(err, "hashing password")
	}
	now := core.NowFunc().UTC()
	drv.UpdatedAt = now

	orig, err := svc.repo.GetDriverByUsername(ctx, drv.Username)
	switch {
	case err == nil:
		orig.PasswordHash = drv.PasswordHash
		orig.Status = StatusActive
		if drv.Role != "" {
			orig.Role = drv.Role
		}
		if drv.Name != "" {
			orig.Name = drv.Name
		}
		if drv.Email != "" {
			orig.Email = drv.Email
		}
		orig.UpdatedAt = now
		return svc.repo.UpdateDriver(ctx, orig)
	case errors.Cause(err) == ErrNotFound:
		if drv.Name == "" {
			drv.Name = drv.Username
		}
		if drv.Role == "" {
			drv.Role = RoleDriver
		}
		drv.Status = StatusActive
		drv.JoinDate = core.Today()
		drv.CreatedAt = now
		return svc.repo.CreateDriver(ctx, drv)
	default:
		return Driver{}, errors.Wrap(err, "finding driver by username")
	}
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter) ([]Driver, error) {
	return svc.repo.QueryDrivers(ctx, filter)
}

func (svc *service) Get(ctx context.Context, id string) (Driver, error) {
	drv, err := svc.repo.GetDriver(ctx, id)
	if err != nil {
		return Driver{}, err
	}
	if drv.IsRoot() {
		return Driver{}, ErrNotFound
	}
	return drv, nil
}

func (svc *service) GetByUsername(ctx context.Context, username string) (Driver, error) {
	return svc.repo.GetDriverByUsername(ctx, core.CleanString(username, true /* lower */))
}

func (svc *service) Names(ctx context.Context, ids ...string) (map[string]string, error) {
	names := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}
	drivers, err := svc.repo.QueryDriversByID(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "querying drivers by id")
	}
	for _, drv := range drivers {
		names[drv.ID] = drv.Name
	}
	return names, nil
}

func (svc *service) Update(ctx context.Context, id string, ud UpdateDriver) (Driver, error) {
	drv, err := svc.Get(ctx, id)
	if err != nil {
		return Driver{}, err
	}

	drv.Name = ud.Name
	drv.Email = ud.Email
	drv.Phone = ud.Phone
	drv.LicenseNumber = ud.LicenseNumber
	drv.JoinDate = ud.JoinDate
	drv.Status = ud.Status
	drv.Username = ud.Username
	drv.Role = ud.Role
	drv.UpdatedAt = core.NowFunc().UTC()
	if ud.Password != "" {
		if err = drv.SetPassword(ud.Password); err != nil {
			return Driver{}, errors.Wrap(err, "hashing password")
		}
	}
	return svc.repo.UpdateDriver(ctx, drv)
}

func (svc *service) SetPassword(ctx context.Context, username, pwd string) error {
	drv, err := svc.GetByUsername(ctx, username)
	if err != nil {
		return err
	}
	if err = drv.SetPassword(pwd); err != nil {
		return errors.Wrap(err, "hashing password")
	}
	drv.UpdatedAt = core.NowFunc().UTC()
	_, err = svc.repo.UpdateDriver(ctx, drv)
	return err
}

func (svc *service) Delete(ctx context.Context, id string) error {
	drv, err := svc.repo.GetDriver(ctx, id)
	if err != nil {
		return err
	}
	if drv.IsRoot() {
		return ErrRootProtected
	}
	return svc.repo.DeleteDriver(ctx, id)
}

func (svc *service) Stats(ctx context.Context) (Stats, error) {
	drivers, err := svc.repo.QueryDrivers(ctx, nil)
	if err != nil {
		return Stats{}, errors.Wrap(err, "querying drivers")
	}

	stats := Stats{Total: len(drivers)}
	for _, drv := range drivers {
		if drv.IsActive() {
			stats.Active++
		}
	}

	var excluded []string
	if root, err := svc.repo.GetDriverByUsername(ctx, RootUsername); err == nil {
		excluded = append(excluded, root.ID)
	} else if errors.Cause(err) != ErrNotFound {
		return Stats{}, errors.Wrap(err, "finding root driver")
	}
	if stats.Rides, err = svc.rides.CountRides(ctx, excluded); err != nil {
		return Stats{}, errors.Wrap(err, "counting rides")
	}
	return stats, nil
}

// Authenticate checks username and password against the stored bcrypt hash.
// Unknown usernames and wrong passwords both yield ErrAuthenticationFailed.
func (svc *service) Authenticate(ctx context.Context, username, pwd string) (Driver, error) {
	drv, err := svc.GetByUsername(ctx, username)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Driver{}, ErrAuthenticationFailed
		}
		return Driver{}, errors.Wrap(err, "finding driver by username")
	}
	if err = drv.CheckPassword(pwd); err != nil {
		return Driver{}, ErrAuthenticationFailed
	}
	if !drv.IsActive() {
		return Driver{}, ErrInactive
	}
	return drv, nil
}
