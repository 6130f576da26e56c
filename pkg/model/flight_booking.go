package model

import "encoding/json"

// FlightBookingRequest is the downstream booking service's request body.
type FlightBookingRequest struct {
	FlightOffer        json.RawMessage    `json:"flightOffer"`
	Travelers          []BookingTraveler  `json:"travelers"`
	TicketingAgreement TicketingAgreement `json:"ticketingAgreement"`
}

type BookingTraveler struct {
	ID          string             `json:"id"`
	DateOfBirth string             `json:"dateOfBirth"`
	Name        TravelerName       `json:"name"`
	Gender      string             `json:"gender"`
	Contact     TravelerContact    `json:"contact"`
	Documents   []TravelerDocument `json:"documents,omitempty"`
}

type TravelerName struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type TravelerContact struct {
	EmailAddress string          `json:"emailAddress,omitempty"`
	Phones       []TravelerPhone `json:"phones,omitempty"`
}

type TravelerPhone struct {
	DeviceType         string `json:"deviceType"`
	CountryCallingCode string `json:"countryCallingCode"`
	Number             string `json:"number"`
}

type TravelerDocument struct {
	DocumentType    string `json:"documentType"`
	Number          string `json:"number"`
	ExpiryDate      string `json:"expiryDate,omitempty"`
	IssuanceCountry string `json:"issuanceCountry,omitempty"`
	IssuanceDate    string `json:"issuanceDate,omitempty"`
	ValidityCountry string `json:"validityCountry,omitempty"`
	Nationality     string `json:"nationality,omitempty"`
	Holder          bool   `json:"holder"`
}

type TicketingAgreement struct {
	Option string `json:"option"`
	Delay  string `json:"delay,omitempty"`
}

const (
	GenderMale           = "MALE"
	GenderFemale         = "FEMALE"
	DeviceTypeMobile     = "MOBILE"
	DocumentTypePassport = "PASSPORT"

	TicketingOptionDelayToCancel = "DELAY_TO_CANCEL"
	TicketingDelay               = "6D"
)
