package model

import (
	"encoding/json"
	"time"
)

// PendingBooking is the booking intent held while an authorization hold
// waits for its webhook. InvoiceID is the gateway's correlation key.
type PendingBooking struct {
	InvoiceID   string      `json:"invoice_id" bson:"_id" validate:"required"`
	BookingData BookingData `json:"booking_data" bson:"booking_data"`
	CreatedAt   time.Time   `json:"created_at" bson:"created_at"`
	ExpiresAt   time.Time   `json:"expires_at" bson:"expires_at"`
}

// BookingData is stored exactly as the client sent it. Travelers are only
// reshaped for the booking provider when the booking is committed.
type BookingData struct {
	FlightOffer  json.RawMessage  `json:"flight_offer" bson:"flight_offer" validate:"required"`
	Travelers    []TravelerRecord `json:"travelers" bson:"travelers" validate:"required,min=1,dive"`
	InvoiceValue float64          `json:"invoice_value" bson:"invoice_value" validate:"required,gt=0"`
	SessionID    string           `json:"session_id" bson:"session_id" validate:"required"`
}

type TravelerRecord struct {
	ID                 string          `json:"id,omitempty" bson:"id,omitempty"`
	FirstName          string          `json:"firstName" bson:"first_name" validate:"required,max=100"`
	LastName           string          `json:"lastName" bson:"last_name" validate:"required,max=100"`
	Gender             string          `json:"gender,omitempty" bson:"gender,omitempty"`
	Email              string          `json:"email,omitempty" bson:"email,omitempty" validate:"omitempty,email"`
	Phone              string          `json:"phone,omitempty" bson:"phone,omitempty"`
	CountryCallingCode string          `json:"countryCallingCode,omitempty" bson:"country_calling_code,omitempty"`
	DateOfBirth        json.RawMessage `json:"dateOfBirth" bson:"date_of_birth" validate:"required,flexdate"`
	Nationality        string          `json:"nationality,omitempty" bson:"nationality,omitempty" validate:"omitempty,len=2"`
	Passport           *Passport       `json:"passport,omitempty" bson:"passport,omitempty"`
}

type Passport struct {
	Number          string          `json:"number" bson:"number" validate:"required"`
	ExpiryDate      json.RawMessage `json:"expiryDate,omitempty" bson:"expiry_date,omitempty" validate:"omitempty,flexdate"`
	IssuanceCountry string          `json:"issuanceCountry,omitempty" bson:"issuance_country,omitempty" validate:"omitempty,len=2"`
	IssuanceDate    json.RawMessage `json:"issuanceDate,omitempty" bson:"issuance_date,omitempty" validate:"omitempty,flexdate"`
}
