package router

import (
	"net/http"

	"churnvision-controlplane/pkg/db/pagination"
	"churnvision-controlplane/pkg/errutil"
	"churnvision-controlplane/services/webhook"

	"github.com/gin-gonic/gin"
)

func (h *handler) createWebhook(c *gin.Context) {
	var req webhook.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errutil.BadRequest("invalid request body", err))
		return
	}

	row, err := h.webhooks.Create(c.Request.Context(), req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, row)
}

func (h *handler) listWebhooks(c *gin.Context) {
	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		c.Error(errutil.BadRequest("invalid pagination parameters", err))
		return
	}

	rows, err := h.webhooks.List(c.Request.Context(), page)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"webhooks": rows})
}

func (h *handler) getWebhook(c *gin.Context) {
	row, err := h.webhooks.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, row)
}

func (h *handler) updateWebhook(c *gin.Context) {
	var req webhook.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errutil.BadRequest("invalid request body", err))
		return
	}

	row, err := h.webhooks.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, row)
}

func (h *handler) deleteWebhook(c *gin.Context) {
	if err := h.webhooks.Delete(c.Request.Context(), c.Param("id")); err != nil {
		c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *handler) listDeliveries(c *gin.Context) {
	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		c.Error(errutil.BadRequest("invalid pagination parameters", err))
		return
	}

	rows, err := h.webhooks.Deliveries(c.Request.Context(), c.Param("id"), page)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"deliveries": rows})
}

func (h *handler) pingWebhook(c *gin.Context) {
	if err := h.webhooks.Ping(c.Request.Context(), c.Param("id")); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "enqueued"})
}
