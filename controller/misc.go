package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/songquanpeng/chatkit/common"
	"github.com/songquanpeng/chatkit/common/config"
	"github.com/songquanpeng/chatkit/common/graceful"
)

// GetStatus answers GET /v1/status.
func GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "",
		"data": gin.H{
			"version":            common.Version,
			"start_time":         common.StartTime,
			"region":             config.AWSRegion,
			"cross_region":       config.BedrockCrossRegion,
			"approximate_token":  config.ApproximateTokenEnabled,
			"automatic_disable":  config.AutomaticDisableModelEnabled,
			"in_flight_requests": graceful.InFlight(),
			"draining":           graceful.IsDraining(),
		},
	})
}
