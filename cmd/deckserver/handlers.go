package main

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"quizme"

	"github.com/gin-gonic/gin"
)

const maxUploadBytes = 8 << 20

type deckHandler struct {
	db *quizme.DeckDB
}

type errorResponse struct {
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// createDeckRequest is the JSON form of POST /decks. Text, when set, holds
// term<ans>definition lines and takes precedence over Terms.
type createDeckRequest struct {
	Title string              `json:"title"`
	Terms []quizme.TermRecord `json:"terms"`
	Text  string              `json:"text"`
}

func newRouter(db *quizme.DeckDB) *gin.Engine {
	h := &deckHandler{db: db}

	router := gin.New()
	router.Use(gin.Recovery())
	router.MaxMultipartMemory = maxUploadBytes

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/quiz_data.json", h.latestDeck)

	decks := router.Group("/decks")
	{
		decks.GET("", h.listDecks)
		decks.GET("/:pin", h.getDeck)
		decks.POST("", h.createDeck)
		decks.POST("/upload", h.uploadDeck)
	}
	return router
}

func (h *deckHandler) listDecks(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 1 {
		c.JSON(http.StatusBadRequest, errorResponse{Message: "limit must be a positive integer", Details: c.Query("limit")})
		return
	}
	decks, err := h.db.ListDecks(c.Request.Context(), limit)
	if err != nil {
		h.handleError(c, err)
		return
	}
	if decks == nil {
		decks = []quizme.Deck{}
	}
	c.JSON(http.StatusOK, gin.H{"decks": decks})
}

func (h *deckHandler) getDeck(c *gin.Context) {
	payload, err := h.db.Payload(c.Request.Context(), c.Param("pin"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, payload)
}

func (h *deckHandler) latestDeck(c *gin.Context) {
	deck, err := h.db.LatestDeck(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	payload, err := h.db.Payload(c.Request.Context(), deck.PIN)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, payload)
}

// createDeck accepts JSON, or a plain-text body of term<ans>definition lines
// with the title in ?title=.
func (h *deckHandler) createDeck(c *gin.Context) {
	var (
		title   string
		payload quizme.QuestionSetPayload
		err     error
	)

	if strings.HasPrefix(c.ContentType(), "text/plain") {
		title = c.Query("title")
		payload, err = quizme.ParseDeckText(io.LimitReader(c.Request.Body, maxUploadBytes))
	} else {
		var req createDeckRequest
		if err := json.NewDecoder(io.LimitReader(c.Request.Body, maxUploadBytes)).Decode(&req); err != nil {
			c.JSON(http.StatusBadRequest, errorResponse{Message: "Invalid request payload", Details: err.Error()})
			return
		}
		title = req.Title
		if req.Text != "" {
			payload, err = quizme.ParseDeckText(strings.NewReader(req.Text))
		} else {
			payload = quizme.QuestionSetPayload{Terms: req.Terms}
		}
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Message: "Invalid deck", Details: err.Error()})
		return
	}

	h.store(c, title, payload)
}

// uploadDeck accepts a multipart "file" field holding an .xlsx workbook.
func (h *deckHandler) uploadDeck(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Message: "Missing file", Details: err.Error()})
		return
	}
	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Message: "Unreadable file", Details: err.Error()})
		return
	}
	defer f.Close()

	payload, err := quizme.ParseDeckSheet(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Message: "Invalid deck", Details: err.Error()})
		return
	}

	title := c.PostForm("title")
	if title == "" {
		title = strings.TrimSuffix(fh.Filename, ".xlsx")
	}
	h.store(c, title, payload)
}

func (h *deckHandler) store(c *gin.Context, title string, payload quizme.QuestionSetPayload) {
	deck, err := h.db.CreateDeck(c.Request.Context(), title, payload.Terms)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Message: "Failed to create deck", Details: err.Error()})
		return
	}
	quizme.Log().Infow("deck created", "pin", deck.PIN, "cards", deck.NumCards)
	c.JSON(http.StatusCreated, deck)
}

func (h *deckHandler) handleError(c *gin.Context, err error) {
	if errors.Is(err, quizme.ErrDeckNotFound) {
		c.JSON(http.StatusNotFound, errorResponse{Message: "Deck not found", Details: err.Error()})
		return
	}
	quizme.Log().Errorw("deck request failed", "path", c.FullPath(), "error", err)
	c.JSON(http.StatusInternalServerError, errorResponse{Message: "Internal server error"})
}
