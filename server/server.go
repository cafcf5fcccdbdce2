package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/policyscan/policyscan/internal/apperr"
	"github.com/policyscan/policyscan/pkg/policies"
)

type Config struct {
	Addr        string
	CORSEnabled bool
}

// Server exposes the policy service over REST.
type Server struct {
	config  Config
	service *policies.Service
	engine  *gin.Engine
}

func New(config Config, service *policies.Service) *Server {
	if config.Addr == "" {
		config.Addr = ":8080"
	}

	engine := gin.Default()

	s := &Server{
		config:  config,
		service: service,
		engine:  engine,
	}

	if config.CORSEnabled {
		engine.Use(corsMiddleware())
	}

	engine.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	api := engine.Group("/api/policies")
	{
		api.GET("", s.handleList)
		api.POST("", s.handleCreate)
		api.GET("/:id", s.handleGet)
		api.GET("/:id/download", s.handleDownload)
		api.GET("/:id/related", s.handleRelated)
		api.PUT("/:id", s.handleUpdate)
		api.DELETE("/:id", s.handleDelete)
	}

	return s
}

// Run blocks serving HTTP until the listener fails.
func (s *Server) Run() error {
	return s.engine.Run(s.config.Addr)
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}

		c.Next()
	}
}

// errorBody is the uniform error response shape.
type errorBody struct {
	Message    string      `json:"message"`
	StatusCode int         `json:"statusCode"`
	Error      interface{} `json:"error"`
}

func respondError(c *gin.Context, status int, message string, detail interface{}) {
	c.JSON(status, errorBody{
		Message:    message,
		StatusCode: status,
		Error:      detail,
	})
}

func respondData(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}

func (s *Server) fail(c *gin.Context, err error) {
	ae := apperr.From(err)
	respondError(c, ae.StatusCode, ae.Message, fmt.Sprint(err))
}
