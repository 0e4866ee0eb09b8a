package admission

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/rudradrivingschool/rudra-driving-school/core"
)

var (
	statusTag  = "admstatus"
	statusText = "invalid admission status"

	licenseTag  = "licenserequired"
	licenseText = "this field is required unless the license type is NA"

	advanceTag  = "advancelefees"
	advanceText = "advance amount cannot be greater than the fees"
)

// InitValidators registers the admission validations on `validate`.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(statusTag, statusValidation)
	core.RegisterCustomTranslation(validate, translator, statusTag, statusText)

	validate.RegisterStructValidation(admissionStructValidation, NewAdmission{})
	core.RegisterCustomTranslation(validate, translator, licenseTag, licenseText)
	core.RegisterCustomTranslation(validate, translator, advanceTag, advanceText)
}

// Custom Validators

func statusValidation(fl validator.FieldLevel) bool {
	status := fl.Field().String()
	for _, s := range Statuses {
		if s == status {
			return true
		}
	}
	return false
}

// admissionStructValidation checks the licence paperwork and the advance against the fees.
func admissionStructValidation(sl validator.StructLevel) {
	na, ok := sl.Current().Interface().(NewAdmission)
	if !ok {
		return
	}

	if na.LicenseType != LicenseTypeNA {
		if na.LearningLicense == "" {
			sl.ReportError(na.LearningLicense, "learning_license", "LearningLicense", licenseTag, "")
		}
		if na.DrivingLicense == "" {
			sl.ReportError(na.DrivingLicense, "driving_license", "DrivingLicense", licenseTag, "")
		}
	}

	if na.Fees > 0 && na.AdvanceAmount > na.Fees {
		sl.ReportError(na.AdvanceAmount, "advance_amount", "AdvanceAmount", advanceTag, "")
	}
}
