package handlers

import (
	"github.com/gin-gonic/gin"
)

// SuccessResponse is the success envelope: {success:true, data}.
type SuccessResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
}

func respond(c *gin.Context, status int, data interface{}) {
	c.JSON(status, SuccessResponse{Success: true, Data: data})
}
