package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/tazhibayda/smartfarm-api/internal/domain"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Sensors struct {
	mu sync.RWMutex
	m  map[string]domain.Sensor // by sensor_id
}

func NewSensors() *Sensors { return &Sensors{m: make(map[string]domain.Sensor)} }

func (s *Sensors) Create(_ context.Context, sn *domain.Sensor) error {
	now := time.Now().UTC()
	sn.CreatedAt, sn.UpdatedAt = now, now
	if sn.ID.IsZero() {
		sn.ID = primitive.NewObjectID()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.m[sn.SensorID]; ok {
		return &domain.DuplicateKeyError{Field: "sensor_id"}
	}
	s.m[sn.SensorID] = *sn
	return nil
}

func (s *Sensors) Find(_ context.Context, owner primitive.ObjectID, sensorID string) (*domain.Sensor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sn, ok := s.m[sensorID]
	if !ok || sn.OwnerID != owner {
		return nil, nil
	}
	return &sn, nil
}

func (s *Sensors) List(_ context.Context, owner primitive.ObjectID, typ domain.SensorType) ([]domain.Sensor, error) {
	s.mu.RLock()
	out := []domain.Sensor{}
	for _, sn := range s.m {
		if sn.OwnerID == owner && (typ == "" || sn.Type == typ) {
			out = append(out, sn)
		}
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].SensorID < out[j].SensorID })
	return out, nil
}

func (s *Sensors) Update(_ context.Context, sn *domain.Sensor) error {
	sn.UpdatedAt = time.Now().UTC()
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.m[sn.SensorID]
	if !ok || cur.ID != sn.ID || cur.OwnerID != sn.OwnerID {
		return domain.NotFound("sensor")
	}
	s.m[sn.SensorID] = *sn
	return nil
}

func (s *Sensors) Delete(_ context.Context, owner primitive.ObjectID, sensorID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sn, ok := s.m[sensorID]
	if !ok || sn.OwnerID != owner {
		return false, nil
	}
	delete(s.m, sensorID)
	return true, nil
}
