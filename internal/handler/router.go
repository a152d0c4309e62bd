package handler

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"eventarb/internal/db"
	"eventarb/internal/metrics"
	"eventarb/internal/repository"
)

type RouterDeps struct {
	DB     *db.DB
	Runner Runner
	// Repo is nil when no database is configured; history routes are then omitted.
	Repo   repository.Repository
	Logger *zap.Logger
}

func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	(&HealthHandler{DB: deps.DB}).Register(r)
	(&CycleHandler{Runner: deps.Runner, Logger: deps.Logger}).Register(r)
	if deps.Repo != nil {
		(&HistoryHandler{Repo: deps.Repo}).Register(r)
	}
	r.GET("/metrics", gin.WrapH(metrics.Handler()))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	return r
}
