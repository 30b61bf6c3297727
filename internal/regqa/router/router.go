// Package router provides query service routing.
package router

import (
	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/regqa/internal/regqa/handler"
	"github.com/kart-io/regqa/pkg/middleware"
	jwtopts "github.com/kart-io/regqa/pkg/options/jwt"
)

// Register registers the query service routes.
func Register(engine *gin.Engine, qaHandler *handler.QAHandler, jwtOptions *jwtopts.Options) {
	logger.Info("Registering query service routes...")

	// Query API
	v1 := engine.Group("/v1")
	{
		// 问答入口对外开放，拒答同样是 200 响应
		v1.POST("/query", qaHandler.Query)

		// 写侧入口要求 JWT，避免未授权写入污染索引
		index := v1.Group("/index")
		if jwtOptions != nil && !jwtOptions.DisableAuth {
			index.Use(middleware.Auth(
				middleware.AuthWithKey(jwtOptions.Key),
				middleware.AuthWithMethod(jwtOptions.SigningMethod),
			))
		}
		{
			index.POST("/chunks", qaHandler.IngestChunks)
			index.GET("/stats", qaHandler.IndexStats)
		}

		v1.GET("/metrics", qaHandler.Metrics)
	}

	// Operational endpoints
	engine.GET("/healthz", qaHandler.Healthz)
	engine.GET("/version", qaHandler.Version)

	logger.Info("HTTP routes registered")
}
