package validators

import "go.mongodb.org/mongo-driver/bson"

// PendingBookingValidator mirrors model.PendingBooking. Raw JSON fields
// (flight offer, dates) are stored as binary.
var PendingBookingValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"_id",
			"booking_data",
			"created_at",
			"expires_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"booking_data": bson.M{
				"bsonType": "object",
				"required": []string{"flight_offer", "travelers", "invoice_value", "session_id"},
				"properties": bson.M{
					"flight_offer": bson.M{
						"bsonType": "binData",
					},
					"travelers": bson.M{
						"bsonType": "array",
						"minItems": 1,
						"items": bson.M{
							"bsonType": "object",
							"required": []string{"first_name", "last_name", "date_of_birth"},
						},
					},
					"invoice_value": bson.M{
						"bsonType":         []string{"double", "int", "long", "decimal"},
						"exclusiveMinimum": true,
						"minimum":          0,
					},
					"session_id": bson.M{
						"bsonType":  "string",
						"minLength": 1,
					},
				},
			},

			"created_at": bson.M{
				"bsonType": "date",
			},

			"expires_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
