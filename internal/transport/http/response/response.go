package response

import "github.com/gin-gonic/gin"

// Error writes the flat error body the client contract expects.
func Error(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"message": message})
}

// AIError marks upstream provider failures on the stateless completion
// endpoint so clients can distinguish them from transport errors.
func AIError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"message": message, "type": "ai_error"})
}
