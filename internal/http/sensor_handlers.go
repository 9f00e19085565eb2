package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/tazhibayda/smartfarm-api/internal/domain"
)

type createSensorReq struct {
	SensorID   string `json:"sensorId"   binding:"required,sensorid"`
	SensorName string `json:"sensorName" binding:"required,max=100"`
	SensorType string `json:"sensorType" binding:"required"`
	Unit       string `json:"unit"       binding:"max=20"`
	Location   string `json:"location"   binding:"max=100"`
}

type updateSensorReq struct {
	SensorName string `json:"sensorName" binding:"max=100"`
	SensorType string `json:"sensorType"`
	Unit       string `json:"unit"       binding:"max=20"`
	Location   string `json:"location"   binding:"max=100"`
}

func sensorType(s string) (domain.SensorType, error) {
	t := domain.SensorType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", domain.Validation("sensorType", "sensorType must be one of: temperature, humidity, light, soil moisture")
	}
	return t, nil
}

// ListSensors godoc
// @Summary Sensors owned by the current user
// @Tags sensors
// @Produce json
// @Success 200 {object} Envelope
// @Router /sensors [get]
func (h *Handler) ListSensors(c *gin.Context) {
	h.listSensors(c, "")
}

// SensorsByType godoc
// @Summary Own sensors of one type
// @Tags sensors
// @Produce json
// @Param sensorType path string true "temperature, humidity, light or soil moisture"
// @Success 200 {object} Envelope
// @Failure 400 {object} Envelope
// @Router /sensors/type/{sensorType} [get]
func (h *Handler) SensorsByType(c *gin.Context) {
	t, err := sensorType(c.Param("sensorType"))
	if err != nil {
		fail(c, err)
		return
	}
	h.listSensors(c, t)
}

func (h *Handler) listSensors(c *gin.Context, t domain.SensorType) {
	me, _ := CurrentUser(c)
	items, err := h.sensors.List(c.Request.Context(), me.ID, t)
	if err != nil {
		fail(c, err)
		return
	}
	if items == nil {
		items = []domain.Sensor{}
	}
	ok(c, http.StatusOK, "sensors", gin.H{"sensors": items, "count": len(items)})
}

// GetSensor godoc
// @Summary One own sensor
// @Tags sensors
// @Produce json
// @Param sensorId path string true "e.g. sen_0001"
// @Success 200 {object} Envelope
// @Failure 404 {object} Envelope
// @Router /sensors/{sensorId} [get]
func (h *Handler) GetSensor(c *gin.Context) {
	sn, err := h.findSensor(c)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "sensor", gin.H{"sensor": sn})
}

func (h *Handler) findSensor(c *gin.Context) (*domain.Sensor, error) {
	me, _ := CurrentUser(c)
	sn, err := h.sensors.Find(c.Request.Context(), me.ID, c.Param("sensorId"))
	if err != nil {
		return nil, err
	}
	if sn == nil {
		return nil, domain.NotFound("sensor")
	}
	return sn, nil
}

// CreateSensor godoc
// @Summary Register a sensor
// @Tags sensors
// @Accept json
// @Produce json
// @Param payload body createSensorReq true "sensor"
// @Success 201 {object} Envelope
// @Failure 400 {object} Envelope
// @Failure 409 {object} Envelope
// @Router /sensors [post]
func (h *Handler) CreateSensor(c *gin.Context) {
	var in createSensorReq
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	t, err := sensorType(in.SensorType)
	if err != nil {
		fail(c, err)
		return
	}
	me, _ := CurrentUser(c)
	sn := &domain.Sensor{
		SensorID: in.SensorID,
		Name:     strings.TrimSpace(in.SensorName),
		Type:     t,
		Unit:     strings.TrimSpace(in.Unit),
		Location: strings.TrimSpace(in.Location),
		OwnerID:  me.ID,
	}
	if err := h.sensors.Create(c.Request.Context(), sn); err != nil {
		if _, dup := domain.DuplicateField(err); dup {
			fail(c, domain.Duplicate("sensorId"))
			return
		}
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, "sensor created", gin.H{"sensor": sn})
}

// UpdateSensor godoc
// @Summary Update an own sensor; empty fields are kept
// @Tags sensors
// @Accept json
// @Produce json
// @Param sensorId path string true "e.g. sen_0001"
// @Param payload body updateSensorReq true "changes"
// @Success 200 {object} Envelope
// @Failure 404 {object} Envelope
// @Router /sensors/{sensorId} [put]
func (h *Handler) UpdateSensor(c *gin.Context) {
	var in updateSensorReq
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	sn, err := h.findSensor(c)
	if err != nil {
		fail(c, err)
		return
	}
	if in.SensorType != "" {
		if sn.Type, err = sensorType(in.SensorType); err != nil {
			fail(c, err)
			return
		}
	}
	if s := strings.TrimSpace(in.SensorName); s != "" {
		sn.Name = s
	}
	if s := strings.TrimSpace(in.Unit); s != "" {
		sn.Unit = s
	}
	if s := strings.TrimSpace(in.Location); s != "" {
		sn.Location = s
	}
	if err := h.sensors.Update(c.Request.Context(), sn); err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "sensor updated", gin.H{"sensor": sn})
}

// DeleteSensor godoc
// @Summary Delete an own sensor
// @Tags sensors
// @Produce json
// @Param sensorId path string true "e.g. sen_0001"
// @Success 200 {object} Envelope
// @Failure 404 {object} Envelope
// @Router /sensors/{sensorId} [delete]
func (h *Handler) DeleteSensor(c *gin.Context) {
	me, _ := CurrentUser(c)
	deleted, err := h.sensors.Delete(c.Request.Context(), me.ID, c.Param("sensorId"))
	if err != nil {
		fail(c, err)
		return
	}
	if !deleted {
		fail(c, domain.NotFound("sensor"))
		return
	}
	ok(c, http.StatusOK, "sensor deleted", nil)
}
