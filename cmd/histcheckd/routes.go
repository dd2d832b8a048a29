package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dbhist/histcheck/pkg/logging"
)

func registerRoutes(router *gin.Engine, logger *logging.Logger) {
	router.GET("/healthz", handleHealthz)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/v1")
	{
		v1.POST("/check", handleCheck(logger))
		v1.GET("/check/ws", handleCheckWS(logger))
	}
}

func handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
