package driver

import (
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/rudradrivingschool/rudra-driving-school/core"
)

// RootUsername is the built-in superuser. It never shows up in driver lists, ride options or stats.
const RootUsername = "root"

// Status
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// Roles
const (
	RoleAdmin  = "admin"
	RoleDriver = "driver"
)

var (
	Statuses = []string{StatusActive, StatusInactive}
	Roles    = []string{RoleAdmin, RoleDriver}
)

type Driver struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Phone         string    `json:"phone"`
	LicenseNumber string    `json:"license_number"`
	JoinDate      time.Time `json:"join_date"`
	Status        string    `json:"status"`
	Username      string    `json:"username"`
	PasswordHash  []byte    `json:"-"`
	Role          string    `json:"role"`
	CreatedAt     time.Time `json:"created_at"` // UTC
	UpdatedAt     time.Time `json:"updated_at"` // UTC
}

func (d *Driver) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	d.PasswordHash = hash
	return nil
}

func (d *Driver) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(d.PasswordHash, []byte(pwd))
}

func (d Driver) IsRoot() bool {
	return d.Username == RootUsername
}

func (d Driver) IsActive() bool {
	return d.Status == StatusActive
}

func (d Driver) IsAdmin() bool {
	return d.Role == RoleAdmin
}

// Stats summarizes the driver roster. The root account is not counted.
type Stats struct {
	Total  int `json:"total"`
	Active int `json:"active"`
	Rides  int `json:"rides"`
}

// NewDriver contains information needed to create a new Driver.
type NewDriver struct {
	Name            string    `json:"name" validate:"required,notblank"`
	Email           string    `json:"email" validate:"omitempty,email"`
	Phone           string    `json:"phone"`
	LicenseNumber   string    `json:"license_number"`
	JoinDate        time.Time `json:"join_date"`
	Status          string    `json:"status" validate:"omitempty,drvstatus"`
	Username        string    `json:"username" validate:"required,min=3,alphanum_"`
	Password        string    `json:"password" validate:"required"`
	PasswordConfirm string    `json:"password_confirm" validate:"required,eqfield=Password"`
	Role            string    `json:"role" validate:"omitempty,drvrole"`
}

func (nd *NewDriver) Validate(validate *validator.Validate, svc Service) error {
	nd.Name = core.CleanString(nd.Name)
	nd.Email = core.CleanString(nd.Email, true /* lower */)
	nd.Phone = core.CleanString(nd.Phone)
	nd.LicenseNumber = core.CleanString(nd.LicenseNumber)
	nd.Status = core.CleanString(nd.Status, true /* lower */)
	nd.Username = core.CleanString(nd.Username, true /* lower */)
	nd.Role = core.CleanString(nd.Role, true /* lower */)

	if err := validate.Struct(nd); err != nil {
		return err
	}
	return svc.CheckUniqueness(nd.Username)
}

// UpdateDriver defines what information may be provided to modify an existing Driver.
// Empty fields keep their current value.
type UpdateDriver struct {
	Name            string    `json:"name"`
	Email           string    `json:"email" validate:"omitempty,email"`
	Phone           string    `json:"phone"`
	LicenseNumber   string    `json:"license_number"`
	JoinDate        time.Time `json:"join_date"`
	Status          string    `json:"status" validate:"omitempty,drvstatus"`
	Username        string    `json:"username" validate:"omitempty,min=3,alphanum_"`
	Password        string    `json:"password"`
	PasswordConfirm string    `json:"password_confirm" validate:"required_with=Password,eqfield=Password"`
	Role            string    `json:"role" validate:"omitempty,drvrole"`
}

func (ud *UpdateDriver) Validate(orig Driver, validate *validator.Validate, svc Service) error {
	ud.Name = core.CleanString(ud.Name)
	if ud.Name == "" {
		ud.Name = orig.Name
	}
	ud.Email = core.CleanString(ud.Email, true /* lower */)
	if ud.Email == "" {
		ud.Email = orig.Email
	}
	ud.Phone = core.CleanString(ud.Phone)
	if ud.Phone == "" {
		ud.Phone = orig.Phone
	}
	ud.LicenseNumber = core.CleanString(ud.LicenseNumber)
	if ud.LicenseNumber == "" {
		ud.LicenseNumber = orig.LicenseNumber
	}
	if ud.JoinDate.IsZero() {
		ud.JoinDate = orig.JoinDate
	}
	ud.Status = core.CleanString(ud.Status, true /* lower */)
	if ud.Status == "" {
		ud.Status = orig.Status
	}
	ud.Username = core.CleanString(ud.Username, true /* lower */)
	if ud.Username == "" {
		ud.Username = orig.Username
	}
	ud.Role = core.CleanString(ud.Role, true /* lower */)
	if ud.Role == "" {
		ud.Role = orig.Role
	}

	if err := validate.Struct(ud); err != nil {
		return err
	}
	return svc.CheckUniqueness(ud.Username, orig)
}

type QueryFilter struct {
	Search string `query:"search"`
	Status string `query:"status"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Status = core.CleanString(qf.Status, true /* lower */)
}
