package enrollment

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/masomo-emis/core"
	"github.com/trezcool/masomo-emis/core/wizard"
)

// Step indices
const (
	StepStudentInformation = iota
	StepContactDetails
	StepAcademics
	StepReview
)

var Steps = wizard.MustRegistry(
	wizard.Step{
		ID:          "student-information",
		Title:       "Student Information",
		Description: "Basic details about the student",
	},
	wizard.Step{
		ID:          "contact-details",
		Title:       "Contact Details",
		Description: "Addresses, phone numbers & guardians",
	},
	wizard.Step{
		ID:          "academics",
		Title:       "Academics",
		Description: "Grade, enrollment date & tuition",
	},
	wizard.Step{
		ID:          "review",
		Title:       "Review & Finalize",
		Description: "Confirm the information & submit the enrollment",
	},
)

var (
	// custom validation tags & texts
	gradeTag  = "grade"
	gradeText = "{0} must be a known grade"

	tuitionOptionTag  = "tuition_option"
	tuitionOptionText = "{0} must be one of: full, installment"

	completeAddressTag  = "complete_address"
	completeAddressText = "{0} must contain at least one complete address"

	// stepValidate only evaluates the step predicates; it carries no translations.
	stepValidate = newStepValidate()
)

type (
	studentInformation struct {
		FirstName   string `json:"first_name" validate:"required"`
		LastName    string `json:"last_name" validate:"required"`
		DateOfBirth string `json:"date_of_birth" validate:"required"`
		Gender      string `json:"gender" validate:"required"`
		Nationality string `json:"nationality" validate:"required"`
	}

	contactDetails struct {
		Email     string     `json:"email" validate:"required"`
		Phone     string     `json:"phone" validate:"required"`
		Addresses []Address  `json:"addresses" validate:"complete_address"`
		Guardians []Guardian `json:"guardians" validate:"min=1"`
	}

	academics struct {
		Grade          string `json:"grade" validate:"required"`
		EnrollmentDate string `json:"enrollment_date" validate:"required"`
	}

	review struct {
		ConsentChecked bool   `json:"consent_checked" validate:"required"` // true
		Initials       string `json:"initials" validate:"required"`
	}
)

func newStepValidate() *validator.Validate {
	validate := validator.New()
	registerValidations(validate)
	return validate
}

func registerValidations(validate *validator.Validate) {
	_ = validate.RegisterValidation(gradeTag, gradeValidation)
	_ = validate.RegisterValidation(tuitionOptionTag, tuitionOptionValidation)
	_ = validate.RegisterValidation(completeAddressTag, completeAddressValidation)
}

// InitValidators registers the enrollment validation tags & their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	registerValidations(validate)
	core.RegisterCustomTranslation(validate, translator, gradeTag, gradeText)
	core.RegisterCustomTranslation(validate, translator, tuitionOptionTag, tuitionOptionText)
	core.RegisterCustomTranslation(validate, translator, completeAddressTag, completeAddressText)
}

// ValidStudentInformation: first name, last name, date of birth, gender & nationality are set.
func ValidStudentInformation(d FormData) bool {
	return stepValidate.Struct(studentInformation{
		FirstName:   d.FirstName,
		LastName:    d.LastName,
		DateOfBirth: d.DateOfBirth,
		Gender:      d.Gender,
		Nationality: d.Nationality,
	}) == nil
}

// ValidContactDetails: email & phone are set, one address is complete & there is at least one guardian.
func ValidContactDetails(d FormData) bool {
	return stepValidate.Struct(contactDetails{
		Email:     d.Email,
		Phone:     d.Phone,
		Addresses: d.Addresses,
		Guardians: d.Guardians,
	}) == nil
}

func ValidAcademics(d FormData) bool {
	return stepValidate.Struct(academics{Grade: d.Grade, EnrollmentDate: d.EnrollmentDate}) == nil
}

func ValidReview(consentChecked bool, initials string) bool {
	return stepValidate.Struct(review{ConsentChecked: consentChecked, Initials: initials}) == nil
}

// Custom Validators

func gradeValidation(fl validator.FieldLevel) bool {
	_, ok := LookupGrade(fl.Field().String())
	return ok
}

func tuitionOptionValidation(fl validator.FieldLevel) bool {
	switch TuitionOption(fl.Field().String()) {
	case TuitionFull, TuitionInstallment:
		return true
	default:
		return false
	}
}

func completeAddressValidation(fl validator.FieldLevel) bool {
	addrs, ok := fl.Field().Interface().([]Address)
	if !ok {
		return false
	}
	for _, a := range addrs {
		if a.Complete() {
			return true
		}
	}
	return false
}

// Complete reports whether street, city, state, postal code & country are all set.
func (a Address) Complete() bool {
	return a.Street != "" && a.City != "" && a.State != "" && a.PostalCode != "" && a.Country != ""
}
