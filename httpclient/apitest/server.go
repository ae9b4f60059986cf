// Package apitest runs a small gin API behind httptest for exercising the
// HTTP client end to end, over plain HTTP or mutual TLS.
package apitest

import (
	"crypto/tls"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/futurenet/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// User is the resource served under /users.
type User struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
}

// Echo describes the request the server received.
type Echo struct {
	Method        string            `json:"method"`
	Query         map[string]string `json:"query"`
	Authorization string            `json:"authorization"`
	Accept        string            `json:"accept"`
	ContentType   string            `json:"content_type"`
	Body          string            `json:"body"`
	Headers       map[string]string `json:"headers"`
}

// UploadReceipt acknowledges an upload.
type UploadReceipt struct {
	Size        int    `json:"size"`
	ContentType string `json:"content_type"`
}

// Identity reports the client certificate presented over mutual TLS.
type Identity struct {
	CommonName string `json:"common_name"`
}

// Server is a running fake API.
type Server struct {
	*httptest.Server
	Engine *gin.Engine

	mu      sync.Mutex
	uploads [][]byte
}

// New starts the API over plain HTTP. It is closed when the test ends.
func New(t testing.TB) *Server {
	t.Helper()
	s := newServer()
	s.Server = httptest.NewServer(s.Engine)
	t.Cleanup(s.Close)
	return s
}

// NewTLS starts the API over TLS with cfg, typically one that requires a
// client certificate.
func NewTLS(t testing.TB, cfg *tls.Config) *Server {
	t.Helper()
	s := newServer()
	s.Server = httptest.NewUnstartedServer(s.Engine)
	s.Server.TLS = cfg
	s.Server.StartTLS()
	t.Cleanup(s.Close)
	return s
}

// LocalhostURL is URL with the loopback IP replaced by "localhost", for
// certificates issued to that name.
func (s *Server) LocalhostURL() string {
	return strings.Replace(s.URL, "127.0.0.1", "localhost", 1)
}

// Uploads returns the bodies received on /upload.
func (s *Server) Uploads() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]byte(nil), s.uploads...)
}

func newServer() *Server {
	s := &Server{Engine: gin.New()}
	s.Engine.Use(recovery())

	s.Engine.GET("/users/:id", s.getUser)
	s.Engine.Any("/echo", s.echo)
	s.Engine.POST("/upload", s.upload)
	s.Engine.PUT("/upload", s.upload)
	s.Engine.GET("/status/:code", s.status)
	s.Engine.GET("/empty", func(c *gin.Context) { c.Status(http.StatusOK) })
	s.Engine.GET("/garbage", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json", []byte("{not json"))
	})
	s.Engine.GET("/slow", s.slow)
	s.Engine.GET("/whoami", s.whoami)
	s.Engine.GET("/panic", func(*gin.Context) { panic("apitest: forced panic") })
	return s
}

func (s *Server) getUser(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusNotFound, gin.H{"message": "not found"})
		return
	}
	c.JSON(http.StatusOK, User{ID: id, Name: "Alice", CreatedAt: "2024-01-05"})
}

func (s *Server) echo(c *gin.Context) {
	body, _ := io.ReadAll(c.Request.Body)
	query := make(map[string]string)
	for k, v := range c.Request.URL.Query() {
		query[k] = strings.Join(v, ",")
	}
	headers := make(map[string]string)
	for k := range c.Request.Header {
		headers[k] = c.GetHeader(k)
	}
	c.JSON(http.StatusOK, Echo{
		Method:        c.Request.Method,
		Query:         query,
		Authorization: c.GetHeader("Authorization"),
		Accept:        c.GetHeader("Accept"),
		ContentType:   c.GetHeader("Content-Type"),
		Body:          string(body),
		Headers:       headers,
	})
}

func (s *Server) upload(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.mu.Lock()
	s.uploads = append(s.uploads, body)
	s.mu.Unlock()
	c.JSON(http.StatusCreated, UploadReceipt{Size: len(body), ContentType: c.GetHeader("Content-Type")})
}

func (s *Server) status(c *gin.Context) {
	code, err := strconv.Atoi(c.Param("code"))
	if err != nil || code < 100 || code > 999 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad status code"})
		return
	}
	if msg := c.Query("error"); msg != "" {
		c.JSON(code, gin.H{"error": msg})
		return
	}
	if msg := c.Query("message"); msg != "" {
		c.JSON(code, gin.H{"message": msg})
		return
	}
	c.String(code, "plain failure")
}

func (s *Server) slow(c *gin.Context) {
	select {
	case <-c.Request.Context().Done():
	case <-time.After(5 * time.Second):
		c.JSON(http.StatusOK, gin.H{"done": true})
	}
}

func (s *Server) whoami(c *gin.Context) {
	if c.Request.TLS == nil || len(c.Request.TLS.PeerCertificates) == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "client certificate required"})
		return
	}
	c.JSON(http.StatusOK, Identity{CommonName: c.Request.TLS.PeerCertificates[0].Subject.CommonName})
}

func recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("apitest: panic recovered", logger.Fields(
					"path", c.Request.URL.Path,
					"method", c.Request.Method,
				))
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			}
		}()
		c.Next()
	}
}
