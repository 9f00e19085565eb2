package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type SensorType string

const (
	SensorTemperature  SensorType = "temperature"
	SensorHumidity     SensorType = "humidity"
	SensorLight        SensorType = "light"
	SensorSoilMoisture SensorType = "soil moisture"
)

func (t SensorType) Valid() bool {
	switch t {
	case SensorTemperature, SensorHumidity, SensorLight, SensorSoilMoisture:
		return true
	}
	return false
}

type Sensor struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	SensorID  string             `bson:"sensor_id"     json:"sensorId"`
	Name      string             `bson:"sensor_name"   json:"sensorName"`
	Type      SensorType         `bson:"sensor_type"   json:"sensorType"`
	Unit      string             `bson:"unit"          json:"unit"`
	Location  string             `bson:"location"      json:"location"`
	OwnerID   primitive.ObjectID `bson:"owner_id"      json:"ownerId"`
	CreatedAt time.Time          `bson:"created_at"    json:"createdAt"`
	UpdatedAt time.Time          `bson:"updated_at"    json:"updatedAt"`
}
