package ginserver

import (
	_ "embed"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"
)

const apiDocPath = "/swagger/doc.json"

//go:embed swagger/openapi.json
var apiDoc []byte

//go:embed swagger/index.html
var swaggerPage string

// registerSwaggerRoutes serves the embedded OpenAPI document and a UI page
// pointing at it. No external swagger tooling at runtime.
func registerSwaggerRoutes(router gin.IRoutes) {
	router.GET(apiDocPath, func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json", apiDoc)
	})
	router.GET("/swagger", func(c *gin.Context) {
		page := strings.ReplaceAll(swaggerPage, "{{SPEC_URL}}", apiDocPath)
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(page))
	})
}
