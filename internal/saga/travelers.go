package saga

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"tripbroker/pkg/model"
	"tripbroker/pkg/sanitizer"
)

// TransformTravelers reshapes stored traveler profiles into the booking
// provider's schema. Ids are assigned "1".."N" in input order.
func TransformTravelers(records []model.TravelerRecord, defaultRegion string) ([]model.BookingTraveler, error) {
	travelers := make([]model.BookingTraveler, 0, len(records))
	for i, rec := range records {
		t, err := transformTraveler(rec, defaultRegion)
		if err != nil {
			return nil, fmt.Errorf("traveler %d: %w", i+1, err)
		}
		t.ID = strconv.Itoa(i + 1)
		travelers = append(travelers, t)
	}
	return travelers, nil
}

func transformTraveler(rec model.TravelerRecord, defaultRegion string) (model.BookingTraveler, error) {
	dob, err := model.NormalizeDate(rec.DateOfBirth)
	if err != nil {
		return model.BookingTraveler{}, fmt.Errorf("date of birth: %w", err)
	}

	t := model.BookingTraveler{
		DateOfBirth: dob,
		Name: model.TravelerName{
			FirstName: sanitizer.NormalizeName(rec.FirstName),
			LastName:  sanitizer.NormalizeName(rec.LastName),
		},
		Gender: normalizeGender(rec.Gender),
		Contact: model.TravelerContact{
			EmailAddress: sanitizer.NormalizeEmail(rec.Email),
		},
	}

	if phone := sanitizer.SplitPhone(rec.Phone, rec.CountryCallingCode, defaultRegion); phone.Number != "" {
		t.Contact.Phones = []model.TravelerPhone{{
			DeviceType:         model.DeviceTypeMobile,
			CountryCallingCode: phone.CountryCallingCode,
			Number:             phone.Number,
		}}
	}

	if rec.Passport != nil && strings.TrimSpace(rec.Passport.Number) != "" {
		doc, err := passportDocument(rec.Passport, rec.Nationality)
		if err != nil {
			return model.BookingTraveler{}, err
		}
		t.Documents = []model.TravelerDocument{doc}
	}

	return t, nil
}

// normalizeGender defaults to MALE; anything starting with F is FEMALE.
func normalizeGender(raw string) string {
	if strings.HasPrefix(strings.ToUpper(strings.TrimSpace(raw)), "F") {
		return model.GenderFemale
	}
	return model.GenderMale
}

func passportDocument(p *model.Passport, nationality string) (model.TravelerDocument, error) {
	nationality = sanitizer.NormalizeCode(nationality)
	issuance := sanitizer.NormalizeCode(p.IssuanceCountry)
	if nationality == "" {
		nationality = issuance
	}
	if issuance == "" {
		issuance = nationality
	}

	doc := model.TravelerDocument{
		DocumentType:    model.DocumentTypePassport,
		Number:          strings.TrimSpace(p.Number),
		IssuanceCountry: issuance,
		ValidityCountry: issuance,
		Nationality:     nationality,
		Holder:          true,
	}

	expiry, err := optionalDate(p.ExpiryDate)
	if err != nil {
		return model.TravelerDocument{}, fmt.Errorf("passport expiry date: %w", err)
	}
	issued, err := optionalDate(p.IssuanceDate)
	if err != nil {
		return model.TravelerDocument{}, fmt.Errorf("passport issuance date: %w", err)
	}
	doc.ExpiryDate = expiry
	doc.IssuanceDate = issued
	return doc, nil
}

func optionalDate(raw json.RawMessage) (string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) || bytes.Equal(trimmed, []byte(`""`)) {
		return "", nil
	}
	return model.NormalizeDate(trimmed)
}
