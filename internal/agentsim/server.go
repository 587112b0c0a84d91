package agentsim

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Server serves the scripted agent backend: the retrieval stream plus
// the conversation and document collaborator endpoints the CLI talks to.
type Server struct {
	log zerolog.Logger
	// FrameDelay paces emissions so interactive consumers render the
	// intermediate states; zero means as fast as possible.
	FrameDelay time.Duration
}

// NewServer constructs a simulator.
func NewServer(log zerolog.Logger) *Server {
	return &Server{log: log}
}

// Register mounts the simulator routes on an echo instance.
func (s *Server) Register(e *echo.Echo) {
	e.GET("/agentic/stream", s.streamRun)
	e.POST("/api/conversations", s.createConversation)
	e.GET("/api/documents/:id", s.documentMetadata)
}

// Handler returns a standalone http.Handler, convenient for httptest.
func (s *Server) Handler() http.Handler {
	e := echo.New()
	e.HideBanner = true
	s.Register(e)
	return e
}

// streamRun emits the scripted run as SSE frames.
func (s *Server) streamRun(c echo.Context) error {
	query := c.QueryParam("query")
	if query == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "query parameter is required"})
	}

	header := c.Response().Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")
	c.Response().WriteHeader(http.StatusOK)

	flusher, ok := c.Response().Writer.(http.Flusher)
	if !ok {
		return fmt.Errorf("response writer does not support flushing")
	}

	s.log.Info().Str("query", query).Str("tenant", c.Request().Header.Get("tenant")).Msg("streaming scripted run")

	ctx := c.Request().Context()
	for _, event := range Script(query) {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		if err := writeEvent(c.Response().Writer, event); err != nil {
			return err
		}
		flusher.Flush()
		if s.FrameDelay > 0 {
			time.Sleep(s.FrameDelay)
		}
	}
	return nil
}

func writeEvent(w http.ResponseWriter, event ScriptedEvent) error {
	if event.Event != "" {
		if _, err := fmt.Fprintf(w, "event: %s\n", event.Event); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "data: %s\n\n", event.Data)
	return err
}

// createConversation fakes the conversation-persistence collaborator.
func (s *Server) createConversation(c echo.Context) error {
	tenant := c.Request().Header.Get("tenant")
	if tenant == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "tenant header is required"})
	}

	var body struct {
		Title string `json:"title"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid body"})
	}

	return c.JSON(http.StatusCreated, map[string]string{
		"id":     uuid.NewString(),
		"title":  body.Title,
		"tenant": tenant,
	})
}

// documentMetadata fakes the source-metadata collaborator.
func (s *Server) documentMetadata(c echo.Context) error {
	id := c.Param("id")
	return c.JSON(http.StatusOK, map[string]any{
		"id":   id,
		"name": "policies.pdf",
		"links": map[string]any{
			"download": map[string]string{"href": "https://files.example.com/" + id, "type": "application/pdf"},
			"stream":   map[string]string{"href": "https://stream.example.com/" + id},
		},
	})
}
