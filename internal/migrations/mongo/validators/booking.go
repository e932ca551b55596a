package validators

import "go.mongodb.org/mongo-driver/bson"

// BookingValidator checks the storage envelope only. The booking fields
// themselves are schema-less.
var BookingValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"position",
			"fields",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"position": bson.M{
				"bsonType": []string{"int", "long"},
				"minimum":  0,
			},

			"booking_id": bson.M{
				"bsonType": []string{"int", "long", "null"},
			},

			"fields": bson.M{
				"bsonType": "object",
			},
		},
	},
}
