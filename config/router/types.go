package router

import (
	"github.com/gin-gonic/gin"
)

type RequestContext = gin.Context

type MiddlewareFunc = gin.HandlerFunc

// ServiceResult is what every handler returns. Successful results render as
// {"ok": true, "data": ...} (data omitted when nil); failures render as {"error": message}.
type ServiceResult struct {
	StatusCode int
	Data       any
	Message    string
}

type HandlerFunction func(*RequestContext) *ServiceResult

type RESTController struct {
	name         string
	mountPoint   string
	handlerCount int
	prepare      func(*RouterService, *RESTController)
}

func (result *ServiceResult) ToJSON() gin.H {
	if result.IsError() {
		return gin.H{"error": result.Message}
	}

	body := gin.H{"ok": true}
	if result.Data != nil {
		body["data"] = result.Data
	}

	return body
}

func (result *ServiceResult) IsError() bool {
	return result.StatusCode >= 400
}
