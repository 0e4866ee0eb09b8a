package echoapi

import (
	"net/http"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/rudradrivingschool/rudra-driving-school/core"
	"github.com/rudradrivingschool/rudra-driving-school/core/driver"
)

const (
	contextTokenKey  = "driverToken"
	contextDriverKey = "driver"
)

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	Username string `json:"username,omitempty"`
	Name     string `json:"name,omitempty"`
	Role     string `json:"role,omitempty"`
	IsAdmin  bool   `json:"is_admin,omitempty"`
}

func newJWTConfig(conf *core.Config) middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    []byte(conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    contextTokenKey,
		Claims:        new(Claims),
	}
}

func GetDriverClaims(drv driver.Driver, conf *core.Config) *Claims {
	now := time.Now()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   drv.ID,
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		Username: drv.Username,
		Name:     drv.Name,
		Role:     drv.Role,
		IsAdmin:  drv.IsRoot() || drv.IsAdmin(),
	}
}

// GenerateToken generates a signed JWT token string representing the driver Claims.
func GenerateToken(claims *Claims, secretKey string) (string, error) {
	method := jwt.GetSigningMethod(middleware.AlgorithmHS256)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString([]byte(secretKey))
	if err != nil {
		return "", errors.New("signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(contextTokenKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

// getContextDriver returns the driver the request token was issued to.
func getContextDriver(ctx echo.Context, svc driver.Service) (driver.Driver, error) {
	if drv, ok := ctx.Get(contextDriverKey).(driver.Driver); ok {
		return drv, nil
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return driver.Driver{}, errors.Wrap(err, "getting context claims")
	}
	// by username: Get hides the root account
	drv, err := svc.GetByUsername(ctx.Request().Context(), claims.Username)
	if err != nil {
		if errors.Cause(err) == driver.ErrNotFound {
			return driver.Driver{}, errUnauthorized
		}
		return driver.Driver{}, errors.Wrap(err, "finding driver by username")
	}
	if drv.ID != claims.Subject {
		return driver.Driver{}, errUnauthorized
	}
	ctx.Set(contextDriverKey, drv)
	return drv, nil
}

type authApi struct {
	conf     *core.Config
	svc      driver.Service
	validate *validator.Validate
}

func registerAuthAPI(g *echo.Group, jwt echo.MiddlewareFunc, conf *core.Config, svc driver.Service, validate *validator.Validate) {
	api := authApi{conf: conf, svc: svc, validate: validate}

	ag := g.Group("/auth")
	ag.POST("/login", api.login)
	ag.GET("/me", api.me, jwt, activeDriverMiddleware(svc))
}

func (api *authApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	drv, err := api.svc.Authenticate(ctx.Request().Context(), data.Username, data.Password)
	if err != nil {
		switch errors.Cause(err) {
		case driver.ErrAuthenticationFailed:
			return errAuthenticationFailed
		case driver.ErrInactive:
			return errAccountDeactivated
		}
		return errors.Wrap(err, "authenticating")
	}
	token, err := GenerateToken(GetDriverClaims(drv, api.conf), api.conf.SecretKey)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token, Driver: drv})
}

func (api *authApi) me(ctx echo.Context) error {
	drv, err := getContextDriver(ctx, api.svc)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, drv)
}

type (
	LoginRequest struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token  string        `json:"token"`
		Driver driver.Driver `json:"driver"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Username = core.CleanString(lr.Username, true /* lower */)
	return validate.Struct(lr)
}
