package main

import (
	"net/http"
	"time"

	"quizme"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/sessions"
)

const (
	playCookieName = "quizme-play"
	sessionIDKey   = "session_id"
)

type server struct {
	service *quizme.Service
	cookies sessions.Store
}

func newServer(service *quizme.Service, cookies sessions.Store) *server {
	return &server{service: service, cookies: cookies}
}

// turnRequest is one player action as delivered by the voice platform.
type turnRequest struct {
	SessionID string `json:"session_id"`
	Action    string `json:"action" binding:"required"`
	Answer    string `json:"answer"`
	Deck      string `json:"deck"`
}

func (r turnRequest) toAction() quizme.Action {
	return quizme.Action{
		Kind:   quizme.ParseActionKind(r.Action),
		Answer: r.Answer,
		Deck:   r.Deck,
	}
}

type errorResponse struct {
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func newRouter(s *server) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/v1")
	{
		v1.POST("/turn", s.handleTurn)
	}

	play := router.Group("/play")
	{
		play.POST("/turn", s.handlePlayTurn)
	}
	return router
}

func (s *server) handleTurn(c *gin.Context) {
	var req turnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Message: "Invalid request payload", Details: err.Error()})
		return
	}
	if req.SessionID == "" {
		c.JSON(http.StatusBadRequest, errorResponse{Message: "session_id is required"})
		return
	}

	s.respond(c, req.SessionID, req.toAction())
}

// handlePlayTurn serves browser play: the session id lives in a signed cookie
// instead of the request body.
func (s *server) handlePlayTurn(c *gin.Context) {
	var req turnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Message: "Invalid request payload", Details: err.Error()})
		return
	}

	// A cookie that fails to decode yields a fresh session; that's fine here.
	session, _ := s.cookies.Get(c.Request, playCookieName)
	sessionID, _ := session.Values[sessionIDKey].(string)
	if sessionID == "" {
		sessionID = uuid.NewString()
		session.Values[sessionIDKey] = sessionID
	}

	action := req.toAction()
	reply, err := s.service.Turn(c.Request.Context(), sessionID, action)
	if reply.EndSession {
		session.Options.MaxAge = -1
	}
	if saveErr := session.Save(c.Request, c.Writer); saveErr != nil {
		quizme.Log().Warnw("failed to save play cookie", "session", quizme.SessionKey(sessionID), "error", saveErr)
	}

	if err != nil {
		c.JSON(http.StatusInternalServerError, reply)
		return
	}
	c.JSON(http.StatusOK, reply)
}

func (s *server) respond(c *gin.Context, sessionID string, action quizme.Action) {
	reply, err := s.service.Turn(c.Request.Context(), sessionID, action)
	if err != nil {
		c.JSON(http.StatusInternalServerError, reply)
		return
	}
	c.JSON(http.StatusOK, reply)
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		quizme.Log().Infow("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
