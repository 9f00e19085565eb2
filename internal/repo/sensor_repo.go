package repo

import (
	"context"
	"errors"
	"time"

	"github.com/tazhibayda/smartfarm-api/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Sensors struct{ s *Store }

func (s *Store) Sensors() *Sensors { return &Sensors{s: s} }

func (r *Sensors) Create(ctx context.Context, sn *domain.Sensor) error {
	ctx, cancel, sp := r.s.op(ctx, "mongo.sensors.insert")
	defer cancel()
	now := time.Now().UTC()
	sn.CreatedAt, sn.UpdatedAt = now, now
	if sn.ID.IsZero() {
		sn.ID = primitive.NewObjectID()
	}
	_, err := r.s.colSensors.InsertOne(ctx, sn)
	return done(sp, err)
}

// Find returns nil when the sensor does not exist or belongs to someone else.
func (r *Sensors) Find(ctx context.Context, owner primitive.ObjectID, sensorID string) (*domain.Sensor, error) {
	ctx, cancel, sp := r.s.op(ctx, "mongo.sensors.find")
	defer cancel()
	var sn domain.Sensor
	err := r.s.colSensors.FindOne(ctx, bson.M{"sensor_id": sensorID, "owner_id": owner}).Decode(&sn)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, done(sp, nil)
	}
	if err != nil {
		return nil, done(sp, err)
	}
	return &sn, done(sp, nil)
}

func (r *Sensors) List(ctx context.Context, owner primitive.ObjectID, typ domain.SensorType) ([]domain.Sensor, error) {
	ctx, cancel, sp := r.s.op(ctx, "mongo.sensors.list")
	defer cancel()
	filter := bson.M{"owner_id": owner}
	if typ != "" {
		filter["sensor_type"] = typ
	}
	cur, err := r.s.colSensors.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "sensor_id", Value: 1}}))
	if err != nil {
		return nil, done(sp, err)
	}
	defer cur.Close(ctx)

	out := []domain.Sensor{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, done(sp, err)
	}
	return out, done(sp, nil)
}

func (r *Sensors) Update(ctx context.Context, sn *domain.Sensor) error {
	ctx, cancel, sp := r.s.op(ctx, "mongo.sensors.update")
	defer cancel()
	sn.UpdatedAt = time.Now().UTC()
	res, err := r.s.colSensors.ReplaceOne(ctx, bson.M{"_id": sn.ID, "owner_id": sn.OwnerID}, sn)
	if err != nil {
		return done(sp, err)
	}
	if res.MatchedCount == 0 {
		return done(sp, domain.NotFound("sensor"))
	}
	return done(sp, nil)
}

func (r *Sensors) Delete(ctx context.Context, owner primitive.ObjectID, sensorID string) (bool, error) {
	ctx, cancel, sp := r.s.op(ctx, "mongo.sensors.delete")
	defer cancel()
	res, err := r.s.colSensors.DeleteOne(ctx, bson.M{"sensor_id": sensorID, "owner_id": owner})
	if err != nil {
		return false, done(sp, err)
	}
	return res.DeletedCount == 1, done(sp, nil)
}
