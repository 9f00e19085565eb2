package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"github.com/tazhibayda/smartfarm-api/internal/domain"
	"github.com/tazhibayda/smartfarm-api/internal/metrics"

	_ "github.com/tazhibayda/smartfarm-api/docs"
)

type RouterOptions struct {
	// TraceService enables the Datadog request span when non-empty.
	TraceService string
}

func NewRouter(h *Handler, opts RouterOptions) *gin.Engine {
	registerValidators()
	metrics.MustRegister()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestID())
	if opts.TraceService != "" {
		r.Use(Trace(opts.TraceService))
	}
	r.Use(Metrics(), AccessLog())

	r.GET("/healthz", h.Healthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	app := r.Group("/", h.LoadSession())

	auth := app.Group("/auth")
	{
		auth.POST("/login", h.Login)
		auth.POST("/register", h.Register)
		auth.POST("/logout", h.Logout)
		auth.GET("/:provider", h.OAuthStart)
		auth.GET("/:provider/callback", h.OAuthCallback)
	}

	users := app.Group("/users", AuthGate())
	{
		users.GET("/profile", h.Profile)
		users.PUT("/profile", h.UpdateProfile)

		admin := users.Group("", RequireRole(domain.RoleAdmin))
		admin.GET("", h.ListUsers)
		admin.GET("/role/:role", h.UsersByRole)
		admin.GET("/username/:username", h.UserByUsername)
		admin.GET("/email/:email", h.UserByEmail)
		admin.GET("/:publicId", h.UserByPublicID)
		admin.PUT("/:publicId", h.AdminUpdateUser)
		admin.DELETE("", RequireRole(domain.RoleSuperAdmin), h.DeleteUsers)
	}

	sensors := app.Group("/sensors", AuthGate())
	{
		sensors.GET("", h.ListSensors)
		sensors.POST("", h.CreateSensor)
		sensors.GET("/type/:sensorType", h.SensorsByType)
		sensors.GET("/:sensorId", h.GetSensor)
		sensors.PUT("/:sensorId", h.UpdateSensor)
		sensors.DELETE("/:sensorId", h.DeleteSensor)
	}
	return r
}
