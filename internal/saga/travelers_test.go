package saga

import (
	"encoding/json"
	"testing"

	"tripbroker/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransformTravelers(t *testing.T) {
	records := []model.TravelerRecord{
		{
			ID:          "client-7",
			FirstName:   "  Sara  ",
			LastName:    "Al  Sabah",
			Gender:      "female",
			Email:       "Sara@Example.COM ",
			Phone:       "99887766",
			DateOfBirth: json.RawMessage(`"1990-05-01T00:00:00.000Z"`),
			Nationality: "kw",
			Passport: &model.Passport{
				Number:     "P1234567",
				ExpiryDate: json.RawMessage(`{"day":"3","month":"11","year":"2030"}`),
			},
		},
		{
			FirstName:          "John",
			LastName:           "Doe",
			Phone:              "+44 7911 123456",
			CountryCallingCode: "965",
			DateOfBirth:        json.RawMessage(`{"day":9,"month":2,"year":1985}`),
			Passport: &model.Passport{
				Number:          "GB998877",
				IssuanceCountry: "gb",
				IssuanceDate:    json.RawMessage(`"2019-01-20"`),
			},
		},
	}

	travelers, err := TransformTravelers(records, "KW")
	require.NoError(t, err)
	require.Len(t, travelers, 2)

	sara := travelers[0]
	assert.Equal(t, "1", sara.ID)
	assert.Equal(t, "1990-05-01", sara.DateOfBirth)
	assert.Equal(t, model.TravelerName{FirstName: "Sara", LastName: "Al Sabah"}, sara.Name)
	assert.Equal(t, model.GenderFemale, sara.Gender)
	assert.Equal(t, "sara@example.com", sara.Contact.EmailAddress)
	assert.Equal(t, []model.TravelerPhone{{DeviceType: "MOBILE", CountryCallingCode: "965", Number: "99887766"}}, sara.Contact.Phones)
	require.Len(t, sara.Documents, 1)
	assert.Equal(t, model.TravelerDocument{
		DocumentType:    "PASSPORT",
		Number:          "P1234567",
		ExpiryDate:      "2030-11-03",
		IssuanceCountry: "KW",
		ValidityCountry: "KW",
		Nationality:     "KW",
		Holder:          true,
	}, sara.Documents[0])

	john := travelers[1]
	assert.Equal(t, "2", john.ID)
	assert.Equal(t, "1985-02-09", john.DateOfBirth)
	assert.Equal(t, model.GenderMale, john.Gender)
	assert.Empty(t, john.Contact.EmailAddress)
	assert.Equal(t, "44", john.Contact.Phones[0].CountryCallingCode)
	assert.Equal(t, "7911123456", john.Contact.Phones[0].Number)
	assert.Equal(t, "GB", john.Documents[0].Nationality)
	assert.Equal(t, "GB", john.Documents[0].IssuanceCountry)
	assert.Equal(t, "2019-01-20", john.Documents[0].IssuanceDate)
	assert.Empty(t, john.Documents[0].ExpiryDate)
}

func TestTransformTravelers_NoPhoneOrPassport(t *testing.T) {
	travelers, err := TransformTravelers([]model.TravelerRecord{{
		FirstName:   "Ali",
		LastName:    "Hassan",
		Gender:      "M",
		DateOfBirth: json.RawMessage(`"2001-12-31"`),
		Passport:    &model.Passport{Number: "  "},
	}}, "KW")
	require.NoError(t, err)

	assert.Nil(t, travelers[0].Contact.Phones)
	assert.Nil(t, travelers[0].Documents)
	assert.Equal(t, model.GenderMale, travelers[0].Gender)
}

func TestTransformTravelers_InvalidDate(t *testing.T) {
	_, err := TransformTravelers([]model.TravelerRecord{{
		FirstName:   "Ali",
		LastName:    "Hassan",
		DateOfBirth: json.RawMessage(`{"day":31,"month":2,"year":2000}`),
	}}, "KW")
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrInvalidDate)
	assert.Contains(t, err.Error(), "traveler 1")
}

func TestNormalizeGender(t *testing.T) {
	assert.Equal(t, "FEMALE", normalizeGender("F"))
	assert.Equal(t, "FEMALE", normalizeGender(" Female"))
	assert.Equal(t, "MALE", normalizeGender("male"))
	assert.Equal(t, "MALE", normalizeGender(""))
	assert.Equal(t, "MALE", normalizeGender("other"))
}
