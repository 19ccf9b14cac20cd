package handler

import (
	_ "embed"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

//go:embed docs/openapi.json
var openAPISpec []byte

const openAPIPath = "/api/openapi.json"

// RegisterDocs отдает OpenAPI документ (его же забирает агрегатор документации) и Swagger UI.
func RegisterDocs(router *gin.Engine) {
	router.GET(openAPIPath, func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json; charset=utf-8", openAPISpec)
	})
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL(openAPIPath)))
}
