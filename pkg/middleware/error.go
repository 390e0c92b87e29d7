package middleware

import (
	"churnvision-controlplane/pkg/errutil"

	"github.com/gin-gonic/gin"
)

// Error renders the last handler error as the admin API error envelope.
func Error() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		err := c.Errors.Last()
		if err == nil || c.Writer.Written() {
			return
		}

		be := errutil.FromError(err.Err)
		c.JSON(be.Code.HTTPStatus(), be.JSON())
	}
}
