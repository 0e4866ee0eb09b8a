package driver

import (
	"fmt"
	"strings"
	"unicode"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/rudradrivingschool/rudra-driving-school/core"
)

var (
	statusTag  = "drvstatus"
	statusText = "invalid driver status"

	roleTag  = "drvrole"
	roleText = "invalid driver role"

	// password policy
	pwdMinLen     = 8
	pwdMinLenTag  = "pwdminlen"
	pwdMinLenText = fmt.Sprintf("password must contain at least %d characters", pwdMinLen)

	pwdNoSpaceTag  = "pwdnospace"
	pwdNoSpaceText = "password must not contain whitespace"

	pwdNotAllNumTag  = "pwdnotallnum"
	pwdNotAllNumText = "password cannot be entirely numeric"

	pwdMaxSim      = .7
	pwdAttrSimTag  = "pwdtoosim"
	pwdAttrSimText = "password cannot be similar to the driver's name, username or email"
)

// InitValidators registers the driver validations on `validate`.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(statusTag, oneOfValidation(Statuses))
	core.RegisterCustomTranslation(validate, translator, statusTag, statusText)

	_ = validate.RegisterValidation(roleTag, oneOfValidation(Roles))
	core.RegisterCustomTranslation(validate, translator, roleTag, roleText)

	validate.RegisterStructValidation(driverStructValidation, NewDriver{}, UpdateDriver{})
	core.RegisterCustomTranslation(validate, translator, pwdMinLenTag, pwdMinLenText)
	core.RegisterCustomTranslation(validate, translator, pwdNoSpaceTag, pwdNoSpaceText)
	core.RegisterCustomTranslation(validate, translator, pwdNotAllNumTag, pwdNotAllNumText)
	core.RegisterCustomTranslation(validate, translator, pwdAttrSimTag, pwdAttrSimText)
}

// Custom Validators

func oneOfValidation(allowed []string) validator.Func {
	return func(fl validator.FieldLevel) bool {
		val := fl.Field().String()
		for _, a := range allowed {
			if a == val {
				return true
			}
		}
		return false
	}
}

// driverStructValidation applies the password policy on NewDriver and UpdateDriver structs.
func driverStructValidation(sl validator.StructLevel) {
	var pwd, name, uname, email string
	switch drv := sl.Current().Interface().(type) {
	case NewDriver:
		pwd, name, uname, email = drv.Password, drv.Name, drv.Username, drv.Email
	case UpdateDriver:
		if drv.Password == "" {
			return
		}
		pwd, name, uname, email = drv.Password, drv.Name, drv.Username, drv.Email
	default:
		return
	}
	if tag := passwordPolicyTag(pwd, name, uname, email); tag != "" {
		sl.ReportError(pwd, "password", "Password", tag, "")
	}
}

// CheckPasswordPolicy applies the password policy outside of struct validation (admin CLI).
func CheckPasswordPolicy(pwd, name, uname, email string) error {
	texts := map[string]string{
		pwdMinLenTag:    pwdMinLenText,
		pwdNoSpaceTag:   pwdNoSpaceText,
		pwdNotAllNumTag: pwdNotAllNumText,
		pwdAttrSimTag:   pwdAttrSimText,
	}
	if tag := passwordPolicyTag(pwd, name, uname, email); tag != "" {
		return core.NewValidationError(nil, core.FieldError{Field: "password", Error: texts[tag]})
	}
	return nil
}

// passwordPolicyTag returns the tag of the first password policy rule pwd breaks, "" if none:
// - minLen: 8
// - no whitespace
// - not all numeric
// - no driver attrs similarity
func passwordPolicyTag(pwd, name, uname, email string) string {
	pwdLen := len([]rune(pwd))
	if pwdLen < pwdMinLen {
		return pwdMinLenTag
	}

	var digitCount int
	for _, char := range pwd {
		if unicode.IsSpace(char) {
			return pwdNoSpaceTag
		}
		if unicode.IsDigit(char) {
			digitCount++
		}
	}
	if digitCount == pwdLen {
		return pwdNotAllNumTag
	}

	lpwd := strings.ToLower(pwd)
	for _, attr := range []string{name, uname, email} {
		if similarity(lpwd, strings.ToLower(attr)) >= pwdMaxSim {
			return pwdAttrSimTag
		}
	}
	return ""
}

func similarity(pwd, attr string) float64 {
	if attr == "" {
		return 0
	}
	return difflib.NewMatcher(strings.Split(pwd, ""), strings.Split(attr, "")).QuickRatio()
}
