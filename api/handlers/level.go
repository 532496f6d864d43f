package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// PlantLevel returns the configured plant growth stage code as plain text.
// The ESP32 reads this to adjust its watering schedule.
func PlantLevel(stage string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.String(http.StatusOK, stage)
	}
}
