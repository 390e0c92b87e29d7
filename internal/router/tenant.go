package router

import (
	"net/http"

	"churnvision-controlplane/pkg/db/pagination"
	"churnvision-controlplane/pkg/errutil"
	"churnvision-controlplane/services/tenant"

	"github.com/gin-gonic/gin"
)

func (h *handler) createTenant(c *gin.Context) {
	var req tenant.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errutil.BadRequest("invalid request body", err))
		return
	}

	result, err := h.tenants.Create(c.Request.Context(), req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

func (h *handler) listTenants(c *gin.Context) {
	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		c.Error(errutil.BadRequest("invalid pagination parameters", err))
		return
	}

	rows, info, err := h.tenants.List(c.Request.Context(), page)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"tenants": rows, "page_info": info})
}

func (h *handler) getTenant(c *gin.Context) {
	row, err := h.tenants.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, row)
}

func (h *handler) updateTenant(c *gin.Context) {
	var req tenant.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errutil.BadRequest("invalid request body", err))
		return
	}

	row, err := h.tenants.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, row)
}

func (h *handler) deleteTenant(c *gin.Context) {
	if err := h.tenants.Delete(c.Request.Context(), c.Param("id")); err != nil {
		c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *handler) listTenantLicenses(c *gin.Context) {
	rows, err := h.licenses.ListByTenant(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"licenses": rows})
}

func (h *handler) listTenantDeployments(c *gin.Context) {
	rows, err := h.deployments.ListByTenant(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"deployments": rows})
}
