package verification

import (
	"regexp"
	"strings"
	"time"

	dErrors "kyc-gateway/pkg/domain-errors"
)

var (
	// Venezuelan cédula: V or E prefix, optional dash, 7 or 8 digits.
	documentNumberRe = regexp.MustCompile(`(?i)^[VE]-?\d{7,8}$`)
	// Professional license (MPPS / colegio number): 4 to 8 digits.
	licenseNumberRe = regexp.MustCompile(`^\d{4,8}$`)
	emailRe         = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

// Validate checks the applicant data before any session is created. A
// validation failure must never reach the provider, so this runs first in
// StartVerification and its errors carry user-facing Spanish messages.
func (a ApplicantData) Validate() error {
	if strings.TrimSpace(a.FirstName) == "" {
		return dErrors.New(dErrors.CodeInvalidData, "El nombre es obligatorio.")
	}
	if strings.TrimSpace(a.LastName) == "" {
		return dErrors.New(dErrors.CodeInvalidData, "El apellido es obligatorio.")
	}
	if !documentNumberRe.MatchString(strings.TrimSpace(a.DocumentNumber)) {
		return dErrors.New(dErrors.CodeInvalidData,
			"El número de cédula no es válido. Use el formato V-12345678 o E-12345678.")
	}
	if !licenseNumberRe.MatchString(strings.TrimSpace(a.LicenseNumber)) {
		return dErrors.New(dErrors.CodeInvalidData,
			"El número de matrícula profesional no es válido. Debe tener entre 4 y 8 dígitos.")
	}
	if !emailRe.MatchString(strings.TrimSpace(a.Email)) {
		return dErrors.New(dErrors.CodeInvalidData, "El correo electrónico no es válido.")
	}
	if dob := strings.TrimSpace(a.DateOfBirth); dob != "" {
		if _, err := time.Parse("2006-01-02", dob); err != nil {
			return dErrors.New(dErrors.CodeInvalidData,
				"La fecha de nacimiento no es válida. Use el formato AAAA-MM-DD.")
		}
	}
	return nil
}

// Normalize returns a copy with whitespace trimmed and the document number
// upper-cased, the shape sent to the provider.
func (a ApplicantData) Normalize() ApplicantData {
	a.FirstName = strings.TrimSpace(a.FirstName)
	a.LastName = strings.TrimSpace(a.LastName)
	a.DocumentNumber = strings.ToUpper(strings.TrimSpace(a.DocumentNumber))
	a.LicenseNumber = strings.TrimSpace(a.LicenseNumber)
	a.Email = strings.TrimSpace(a.Email)
	a.Phone = strings.TrimSpace(a.Phone)
	a.DateOfBirth = strings.TrimSpace(a.DateOfBirth)
	return a
}
