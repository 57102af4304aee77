package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RouteRegistrar is implemented by anything that contributes routes to the API group
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// RegistrarFunc adapts a plain function to RouteRegistrar
type RegistrarFunc func(rg *gin.RouterGroup)

// RegisterRoutes calls f
func (f RegistrarFunc) RegisterRoutes(rg *gin.RouterGroup) {
	f(rg)
}

// Router mounts registrars below /api/<version>
type Router struct {
	engine     *gin.Engine
	apiVersion string
	registrars []RouteRegistrar
}

// RouterOption is a functional option for Router configuration
type RouterOption func(*Router)

// WithAPIVersion sets the API version prefix (e.g., "v1", "v2")
func WithAPIVersion(version string) RouterOption {
	return func(r *Router) {
		r.apiVersion = version
	}
}

// NewRouter creates a new Router instance
func NewRouter(engine *gin.Engine, opts ...RouterOption) *Router {
	r := &Router{
		engine:     engine,
		apiVersion: "v1",
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a RouteRegistrar to be mounted by Setup
func (r *Router) Register(registrar RouteRegistrar) *Router {
	r.registrars = append(r.registrars, registrar)
	return r
}

// BasePath returns the versioned API prefix
func (r *Router) BasePath() string {
	return "/api/" + r.apiVersion
}

// Setup mounts every registrar and installs envelope-shaped 404 and 405 handlers
func (r *Router) Setup() {
	api := r.engine.Group(r.BasePath())
	for _, registrar := range r.registrars {
		registrar.RegisterRoutes(api)
	}

	r.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   gin.H{"code": "ERR_NOT_FOUND", "message": "Route not found"},
		})
	})
	r.engine.HandleMethodNotAllowed = true
	r.engine.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{
			"success": false,
			"error":   gin.H{"code": "ERR_BAD_REQUEST", "message": "Method not allowed"},
		})
	})
}
