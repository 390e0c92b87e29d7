package router

import (
	"net/http"

	"churnvision-controlplane/pkg/errutil"
	"churnvision-controlplane/services/deployment"

	"github.com/gin-gonic/gin"
)

func (h *handler) heartbeat(c *gin.Context) {
	var req deployment.HeartbeatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errutil.BadRequest("invalid request body", err))
		return
	}

	row, err := h.deployments.Heartbeat(c.Request.Context(), req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, row)
}
