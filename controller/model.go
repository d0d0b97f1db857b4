package controller

import (
	"net/http"

	gmw "github.com/Laisky/gin-middlewares/v6"
	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"

	"github.com/songquanpeng/chatkit/middleware"
	"github.com/songquanpeng/chatkit/relay/adaptor/bedrock"
)

type modelInfo struct {
	ID            string `json:"id"`
	Object        string `json:"object"`
	Provider      string `json:"provider"`
	SupportsTools bool   `json:"supports_tools"`
	Image         bool   `json:"image,omitempty"`
	Disabled      string `json:"disabled_reason,omitempty"`
}

// ListModels answers GET /v1/models.
func ListModels(c *gin.Context) {
	ids := bedrock.ChatModels()
	data := make([]modelInfo, 0, len(ids)+1)
	for _, id := range ids {
		p, err := bedrock.GetProvider(id)
		if err != nil {
			continue
		}
		info := modelInfo{ID: id, Object: "model", Provider: p.Name(), SupportsTools: p.SupportsTools()}
		info.Disabled, _ = modelHealth.Disabled(id)
		data = append(data, info)
	}
	if p, err := bedrock.GetImageProvider(bedrock.StabilityStableDiffusionXLV1); err == nil {
		info := modelInfo{ID: bedrock.StabilityStableDiffusionXLV1, Object: "model", Provider: p.Name(), Image: true}
		info.Disabled, _ = modelHealth.Disabled(info.ID)
		data = append(data, info)
	}

	c.JSON(http.StatusOK, gin.H{
		"object": "list",
		"data":   data,
	})
}

// EnableModel answers POST /v1/models/:id/enable and puts a disabled model back into service.
func EnableModel(c *gin.Context) {
	modelID := c.Param("id")
	if _, err := bedrock.ResolveFamily(modelID); err != nil {
		middleware.AbortWithError(c, http.StatusNotFound, err)
		return
	}

	reason, wasDisabled := modelHealth.Disabled(modelID)
	modelHealth.Enable(modelID)
	gmw.GetLogger(c).Info("model enabled",
		zap.String("model", modelID),
		zap.Bool("was_disabled", wasDisabled),
		zap.String("reason", reason))
	c.JSON(http.StatusOK, gin.H{"id": modelID, "enabled": true})
}
