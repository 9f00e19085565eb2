package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/tazhibayda/smartfarm-api/internal/domain"
	"github.com/tazhibayda/smartfarm-api/internal/identity"
	"github.com/tazhibayda/smartfarm-api/internal/oauth"
	"github.com/tazhibayda/smartfarm-api/internal/queue"
	"github.com/tazhibayda/smartfarm-api/internal/security"
	"github.com/tazhibayda/smartfarm-api/internal/session"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

// SensorStore is owner scoped: Find and Delete never see another owner's sensor.
type SensorStore interface {
	Create(ctx context.Context, sn *domain.Sensor) error
	Find(ctx context.Context, owner primitive.ObjectID, sensorID string) (*domain.Sensor, error)
	List(ctx context.Context, owner primitive.ObjectID, typ domain.SensorType) ([]domain.Sensor, error)
	Update(ctx context.Context, sn *domain.Sensor) error
	Delete(ctx context.Context, owner primitive.ObjectID, sensorID string) (bool, error)
}

type CookieConfig struct {
	Name     string
	Secure   bool
	SameSite http.SameSite
}

type Deps struct {
	Resolver  *identity.Resolver
	Directory *identity.Directory
	Auth      *session.Authenticator
	Sensors   SensorStore
	Providers oauth.Registry
	State     *security.StateSigner
	Events    queue.Publisher
	Health    []Pinger
	Cookie    CookieConfig

	SuccessRedirect string
	FailureRedirect string
}

type Handler struct {
	resolver  *identity.Resolver
	dir       *identity.Directory
	auth      *session.Authenticator
	sensors   SensorStore
	providers oauth.Registry
	state     *security.StateSigner
	events    queue.Publisher
	health    []Pinger
	cookie    CookieConfig

	successURL string
	failureURL string
}

func NewHandler(d Deps) *Handler {
	if d.Events == nil {
		d.Events = queue.NewNoop()
	}
	if d.Cookie.Name == "" {
		d.Cookie.Name = "sessionId"
	}
	if d.Cookie.SameSite == 0 {
		d.Cookie.SameSite = http.SameSiteLaxMode
	}
	return &Handler{
		resolver:   d.Resolver,
		dir:        d.Directory,
		auth:       d.Auth,
		sensors:    d.Sensors,
		providers:  d.Providers,
		state:      d.State,
		events:     d.Events,
		health:     d.Health,
		cookie:     d.Cookie,
		successURL: orDefault(d.SuccessRedirect, "/"),
		failureURL: orDefault(d.FailureRedirect, "/login"),
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// Healthz godoc
// @Summary Liveness and store health
// @Tags ops
// @Produce json
// @Success 200 {object} Envelope
// @Failure 503 {object} Envelope
// @Router /healthz [get]
func (h *Handler) Healthz(c *gin.Context) {
	for _, p := range h.health {
		if err := p.Ping(c.Request.Context()); err != nil {
			logFor(c).Warn("health check failed")
			c.JSON(http.StatusServiceUnavailable, Envelope{
				Success: false,
				Message: "degraded",
				Error:   &ErrorBody{Code: "unavailable"},
			})
			return
		}
	}
	ok(c, http.StatusOK, "ok", gin.H{"status": "ok"})
}

func (h *Handler) reqID(c *gin.Context) string { return c.GetString(requestIDKey) }

var registerOnce sync.Once

// registerValidators adds the domain tags to gin's binding validator.
func registerValidators() {
	registerOnce.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			domain.RegisterValidations(v)
			v.RegisterTagNameFunc(func(f reflect.StructField) string {
				name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
				if name == "-" || name == "" {
					return f.Name
				}
				return name
			})
		}
	})
}

// bindError turns the first failed field of a binding error into a ValidationError.
func bindError(err error) error {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) || len(ve) == 0 {
		return domain.Validation("", "invalid request body")
	}
	fe := ve[0]
	field := lowerFirst(fe.Field())
	msg := field + " is invalid"
	switch fe.Tag() {
	case "required":
		msg = field + " is required"
	case "email":
		msg = "a valid email is required"
	case "username":
		msg = "username must be 3-20 letters, digits or underscores and not start with a digit"
	case "password":
		msg = "password must be 8-50 chars with upper, lower, digit and one of @$!%*?&"
	case "sensorid":
		msg = "sensorId must look like sen_0001"
	case "oneof":
		msg = fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "max":
		msg = fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	}
	return domain.Validation(field, msg)
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
