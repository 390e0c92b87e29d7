package router

import (
	"errors"
	"io"
	"net/http"

	"churnvision-controlplane/pkg/db/pagination"
	"churnvision-controlplane/pkg/errutil"
	"churnvision-controlplane/pkg/middleware"
	"churnvision-controlplane/services/license"

	"github.com/gin-gonic/gin"
)

// validateLicense answers remote product instances. Expected negative
// outcomes (bad token, unknown key, expired) come back as HTTP 200 with
// valid=false plus a machine code, so instances never have to distinguish
// transport failures from license state.
func (h *handler) validateLicense(c *gin.Context) {
	var req license.ValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusOK, gin.H{
			"valid": false,
			"error": "Invalid request body",
			"code":  license.CodeInvalidFormat,
		})
		return
	}

	result, err := h.licenses.ValidateKey(c.Request.Context(), req)
	if err != nil {
		if ve, ok := license.AsValidationError(err); ok {
			c.JSON(http.StatusOK, gin.H{
				"valid": false,
				"error": ve.Message,
				"code":  ve.Code,
			})
			return
		}
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *handler) validateTenant(c *gin.Context) {
	result, err := h.licenses.ValidateTenant(c.Request.Context(), c.Param("slug"))
	if err != nil {
		if ve, ok := license.AsValidationError(err); ok {
			c.JSON(http.StatusOK, gin.H{
				"valid": false,
				"error": ve.Message,
				"code":  ve.Code,
			})
			return
		}
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *handler) issueLicense(c *gin.Context) {
	var req license.IssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errutil.BadRequest("invalid request body", err))
		return
	}
	req.Actor = middleware.Actor(c)

	lic, err := h.licenses.Issue(c.Request.Context(), req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, lic)
}

func (h *handler) listLicenses(c *gin.Context) {
	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		c.Error(errutil.BadRequest("invalid pagination parameters", err))
		return
	}

	rows, err := h.licenses.List(c.Request.Context(), page)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"licenses": rows})
}

func (h *handler) getLicense(c *gin.Context) {
	lic, err := h.licenses.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, lic)
}

type revokeRequest struct {
	Reason string `json:"reason"`
}

func (h *handler) revokeLicense(c *gin.Context) {
	var req revokeRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.Error(errutil.BadRequest("invalid request body", err))
		return
	}

	lic, err := h.licenses.Revoke(c.Request.Context(), c.Param("id"), req.Reason, middleware.Actor(c))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, lic)
}

type extendRequest struct {
	AdditionalDays int `json:"additional_days" binding:"required"`
}

func (h *handler) extendLicense(c *gin.Context) {
	var req extendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errutil.BadRequest("invalid request body", err))
		return
	}

	lic, err := h.licenses.Extend(c.Request.Context(), c.Param("id"), req.AdditionalDays, middleware.Actor(c))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, lic)
}

func (h *handler) listAuditLogs(c *gin.Context) {
	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		c.Error(errutil.BadRequest("invalid pagination parameters", err))
		return
	}

	rows, err := h.licenses.AuditLogs(c.Request.Context(), c.Param("id"), page)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"audit_logs": rows})
}
