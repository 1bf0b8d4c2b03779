package verification

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "kyc-gateway/pkg/domain-errors"
)

func validApplicant() ApplicantData {
	return ApplicantData{
		FirstName:      "María",
		LastName:       "González",
		DocumentNumber: "V-12345678",
		LicenseNumber:  "45678",
		Email:          "maria.gonzalez@example.com",
		Phone:          "+584141234567",
		DateOfBirth:    "1988-04-12",
	}
}

func TestApplicantDataValidate(t *testing.T) {
	t.Run("valid applicant passes", func(t *testing.T) {
		require.NoError(t, validApplicant().Validate())
	})

	t.Run("document number formats", func(t *testing.T) {
		valid := []string{"V-12345678", "V12345678", "v-1234567", "E-87654321", "e9876543"}
		for _, doc := range valid {
			a := validApplicant()
			a.DocumentNumber = doc
			assert.NoError(t, a.Validate(), "document %q should be accepted", doc)
		}

		invalid := []string{"", "12345678", "V-123456", "V-123456789", "X-12345678", "V-1234567A"}
		for _, doc := range invalid {
			a := validApplicant()
			a.DocumentNumber = doc
			err := a.Validate()
			require.Error(t, err, "document %q should be rejected", doc)
			assert.Equal(t, dErrors.CodeInvalidData, dErrors.CodeOf(err))
		}
	})

	t.Run("license number formats", func(t *testing.T) {
		valid := []string{"1234", "45678", "12345678"}
		for _, lic := range valid {
			a := validApplicant()
			a.LicenseNumber = lic
			assert.NoError(t, a.Validate(), "license %q should be accepted", lic)
		}

		invalid := []string{"", "123", "123456789", "12A45"}
		for _, lic := range invalid {
			a := validApplicant()
			a.LicenseNumber = lic
			require.Error(t, a.Validate(), "license %q should be rejected", lic)
		}
	})

	t.Run("missing names rejected", func(t *testing.T) {
		a := validApplicant()
		a.FirstName = "   "
		require.Error(t, a.Validate())

		a = validApplicant()
		a.LastName = ""
		require.Error(t, a.Validate())
	})

	t.Run("bad email rejected", func(t *testing.T) {
		a := validApplicant()
		a.Email = "no-arroba"
		require.Error(t, a.Validate())
	})

	t.Run("date of birth optional but must parse", func(t *testing.T) {
		a := validApplicant()
		a.DateOfBirth = ""
		assert.NoError(t, a.Validate())

		a.DateOfBirth = "12/04/1988"
		require.Error(t, a.Validate())
	})

	t.Run("validation messages are in spanish", func(t *testing.T) {
		a := validApplicant()
		a.DocumentNumber = "bad"
		err := a.Validate()
		require.Error(t, err)
		assert.Contains(t, dErrors.MessageOf(err), "cédula")
	})
}

func TestApplicantDataNormalize(t *testing.T) {
	a := ApplicantData{
		FirstName:      "  María ",
		LastName:       " González ",
		DocumentNumber: " v-12345678 ",
		LicenseNumber:  " 45678 ",
		Email:          " maria@example.com ",
	}
	n := a.Normalize()
	assert.Equal(t, "María", n.FirstName)
	assert.Equal(t, "V-12345678", n.DocumentNumber)
	assert.Equal(t, "45678", n.LicenseNumber)
	assert.Equal(t, "maria@example.com", n.Email)
}
