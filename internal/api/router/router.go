package router

import (
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/d60-Lab/unifeed/config"
	_ "github.com/d60-Lab/unifeed/docs"
	"github.com/d60-Lab/unifeed/internal/api/handler"
	"github.com/d60-Lab/unifeed/internal/api/middleware"
	"github.com/d60-Lab/unifeed/internal/model"
)

// New 装配路由与中间件
func New(cfg *config.Config, h *handler.Handler) *gin.Engine {
	if cfg.App.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	registerValidators()

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	if cfg.Telemetry.SentryDSN != "" {
		r.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	r.Use(otelgin.Middleware(cfg.App.Name))
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.GET("/healthz", func(c *gin.Context) { c.JSON(200, gin.H{"status": "ok"}) })

	api := r.Group("/api/v1", middleware.JWTAuth(cfg.Auth.JWTSecret))
	{
		api.POST("/actions/:kind", h.PerformAction)

		api.GET("/users/lookup", h.LookupUser)
		api.GET("/users/:user_id/relationship", h.GetRelationship)

		api.GET("/timelines/home", h.LocalTimeline)
		api.POST("/timelines/home/refresh", h.RefreshHome)
		api.GET("/timelines/home/older", h.LoadOlder)

		api.POST("/accounts", h.LinkAccount)
		api.GET("/accounts", h.ListAccounts)
		api.DELETE("/accounts/:account_id", h.UnlinkAccount)
	}
	return r
}

// registerValidators 注册 "platform" 校验标签
func registerValidators() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("platform", func(fl validator.FieldLevel) bool {
			return model.Platform(fl.Field().String()).Valid()
		})
	}
}
