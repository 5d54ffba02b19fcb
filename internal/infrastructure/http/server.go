// Package http serves the assistant workspace over HTTP: a JSON API, a
// server-sent event stream for replies and a websocket of state snapshots.
package http

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"strings"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/0xcro3dile/ao-assistant/internal/adapters/loader"
	"github.com/0xcro3dile/ao-assistant/internal/domain/entities"
	"github.com/0xcro3dile/ao-assistant/internal/domain/usecases"
)

// Server is the HTTP front end of a Workspace.
type Server struct {
	workspace *usecases.Workspace
	addr      string
	app       *fiber.App

	// ctx outlives single requests; streamed replies run under it.
	ctx    context.Context
	cancel context.CancelFunc
}

// NewServer creates a server for ws listening on addr.
func NewServer(ws *usecases.Workspace, addr string) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		workspace: ws,
		addr:      addr,
		ctx:       ctx,
		cancel:    cancel,
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "aoassistant",
		BodyLimit:             50 * 1024 * 1024,
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})

	s.app.Use(recover.New())
	s.app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))
	s.app.Use(requestLogger)

	s.routes()
	return s
}

func (s *Server) routes() {
	s.app.Get("/", s.handleIndex)

	api := s.app.Group("/api")
	api.Get("/health", s.handleHealth)
	api.Get("/state", s.handleState)

	api.Post("/conversations", s.handleCreateConversation)
	api.Delete("/conversations/:id", s.handleDeleteConversation)
	api.Post("/conversations/:id/select", s.handleSelectConversation)
	api.Post("/conversations/:id/sync", s.handleSyncConversation)
	api.Post("/conversations/:id/messages", s.handleSendMessage)
	api.Post("/conversations/:id/documents", s.handleUploadDocuments)

	api.Get("/profile/documents", s.handleListProfileDocuments)
	api.Post("/profile/documents", s.handleUploadProfileDocument)
	api.Delete("/profile/documents/:id", s.handleDeleteProfileDocument)

	api.Put("/settings", s.handleUpdateSettings)

	s.app.Use("/ws", upgradeCheck)
	s.app.Get("/ws", websocket.New(s.handleSocket))
}

// App exposes the underlying fiber app, mainly for app.Test.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start serves until ctx is done, then shuts down and aborts in-flight
// replies.
func (s *Server) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.cancel()
		if err := s.app.ShutdownWithTimeout(5 * time.Second); err != nil {
			slog.Error("server shutdown failed", "error", err)
		}
	}()

	slog.Info("aoassistant server starting", "addr", s.addr)
	return s.app.Listen(s.addr)
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) handleState(c *fiber.Ctx) error {
	return c.JSON(publicState(s.workspace.Snapshot()))
}

type createConversationRequest struct {
	Title string `json:"title"`
}

func (s *Server) handleCreateConversation(c *fiber.Ctx) error {
	var req createConversationRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
	}

	conv, err := s.workspace.CreateConversation(c.UserContext(), req.Title)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(conv)
}

func (s *Server) handleDeleteConversation(c *fiber.Ctx) error {
	if err := s.workspace.DeleteConversation(c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleSelectConversation(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := s.workspace.SelectConversation(c.UserContext(), id); err != nil {
		return err
	}
	return s.conversationJSON(c, id)
}

func (s *Server) handleSyncConversation(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := s.workspace.ResyncHistory(c.UserContext(), id); err != nil {
		return err
	}
	return s.conversationJSON(c, id)
}

func (s *Server) conversationJSON(c *fiber.Ctx, id string) error {
	conv, ok := s.workspace.Snapshot().Conversation(id)
	if !ok {
		return entities.ErrConversationNotFound
	}
	return c.JSON(conv)
}

type sendMessageRequest struct {
	Content string `json:"content"`
}

// handleSendMessage streams the reply as server-sent events: {content}
// increments, then {done, message} or {error}.
func (s *Server) handleSendMessage(c *fiber.Ctx) error {
	id := c.Params("id")

	var req sendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	text := strings.TrimSpace(req.Content)
	if text == "" {
		return fiber.NewError(fiber.StatusBadRequest, "content required")
	}
	if _, ok := s.workspace.Snapshot().Conversation(id); !ok {
		return entities.ErrConversationNotFound
	}

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		ctx, cancel := context.WithCancel(s.ctx)
		defer cancel()

		sent := ""
		msg, err := s.workspace.SendMessage(ctx, id, text, func(content string) {
			delta := strings.TrimPrefix(content, sent)
			if !strings.HasPrefix(content, sent) {
				delta = content
			}
			sent = content
			if delta == "" {
				return
			}
			if err := writeEvent(w, fiber.Map{"content": delta}); err != nil {
				slog.Debug("client left during reply stream", "conversation", id, "error", err)
				cancel()
			}
		})
		if err != nil {
			writeEvent(w, fiber.Map{"error": err.Error(), "done": true})
			return
		}
		writeEvent(w, fiber.Map{"done": true, "message": msg})
	})
	return nil
}

func writeEvent(w *bufio.Writer, data fiber.Map) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
		return err
	}
	return w.Flush()
}

func (s *Server) handleUploadDocuments(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "multipart form required")
	}

	headers := append(form.File["file"], form.File["files"]...)
	files, err := readFiles(headers)
	if err != nil {
		return err
	}

	docs, err := s.workspace.UploadDocuments(c.UserContext(), c.Params("id"), files)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"documents": docs})
}

func (s *Server) handleListProfileDocuments(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"documents": s.workspace.Snapshot().ProfileDocuments})
}

func (s *Server) handleUploadProfileDocument(c *fiber.Ctx) error {
	header, err := c.FormFile("file")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "file required")
	}
	files, err := readFiles([]*multipart.FileHeader{header})
	if err != nil {
		return err
	}

	doc, err := s.workspace.UploadProfileDocument(c.UserContext(), files[0])
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(doc)
}

func (s *Server) handleDeleteProfileDocument(c *fiber.Ctx) error {
	if err := s.workspace.DeleteProfileDocument(c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

type settingsRequest struct {
	APIToken *string `json:"openaiToken"`
}

func (s *Server) handleUpdateSettings(c *fiber.Ctx) error {
	var req settingsRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	settings := s.workspace.Snapshot().Settings
	if req.APIToken != nil {
		settings.APIToken = strings.TrimSpace(*req.APIToken)
	}
	s.workspace.UpdateSettings(settings)
	return c.JSON(maskSettings(settings))
}

func upgradeCheck(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// handleSocket pushes the current state, then a snapshot after every change,
// until the client disconnects.
func (s *Server) handleSocket(conn *websocket.Conn) {
	updates := make(chan usecases.State, 16)
	unsubscribe := s.workspace.Subscribe(func(st usecases.State) {
		select {
		case updates <- st:
		default:
			slog.Warn("websocket client is slow, dropping state update")
		}
	})
	defer unsubscribe()

	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := conn.WriteJSON(publicState(s.workspace.Snapshot())); err != nil {
		return
	}
	for {
		select {
		case <-gone:
			return
		case <-s.ctx.Done():
			return
		case st := <-updates:
			if err := conn.WriteJSON(publicState(st)); err != nil {
				slog.Debug("websocket write failed", "error", err)
				return
			}
		}
	}
}

// readFiles turns uploaded parts into payloads, skipping file types the
// backend does not accept.
func readFiles(headers []*multipart.FileHeader) ([]entities.FilePayload, error) {
	files := make([]entities.FilePayload, 0, len(headers))
	for _, h := range headers {
		if !loader.Allowed(h.Filename) {
			slog.Warn("skipping upload", "file", h.Filename, "error", entities.ErrUnsupportedFileType)
			continue
		}

		f, err := h.Open()
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", h.Filename, err)
		}

		files = append(files, entities.FilePayload{
			Name:        h.Filename,
			Size:        int64(len(data)),
			ContentType: loader.ContentType(h.Filename),
			Data:        data,
		})
	}
	if len(files) == 0 {
		return nil, entities.ErrUnsupportedFileType
	}
	return files, nil
}

// publicState is the state as served to clients: the API token is masked.
func publicState(s usecases.State) usecases.State {
	s.Settings = maskSettings(s.Settings)
	return s
}

func maskSettings(settings entities.AppSettings) entities.AppSettings {
	t := settings.APIToken
	switch {
	case t == "":
	case len(t) <= 8:
		settings.APIToken = strings.Repeat("*", len(t))
	default:
		settings.APIToken = t[:4] + strings.Repeat("*", len(t)-8) + t[len(t)-4:]
	}
	return settings
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := statusFor(err)
	message := err.Error()
	var fe *fiber.Error
	if errors.As(err, &fe) {
		message = fe.Message
	}
	if code >= fiber.StatusInternalServerError {
		slog.Error("request failed", "method", c.Method(), "path", c.Path(), "error", err)
	}
	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": message,
	})
}

func statusFor(err error) int {
	var fe *fiber.Error
	var be *entities.BackendError
	switch {
	case errors.As(err, &fe):
		return fe.Code
	case errors.Is(err, entities.ErrConversationNotFound),
		errors.Is(err, entities.ErrDocumentNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, entities.ErrNoSession),
		errors.Is(err, entities.ErrInvalidCredentials):
		return fiber.StatusUnauthorized
	case errors.Is(err, entities.ErrNoActiveConversation),
		errors.Is(err, entities.ErrUnsupportedFileType):
		return fiber.StatusBadRequest
	case errors.Is(err, entities.ErrUnsupported):
		return fiber.StatusNotImplemented
	case errors.Is(err, entities.ErrPollTimeout):
		return fiber.StatusGatewayTimeout
	case errors.As(err, &be),
		errors.Is(err, entities.ErrUploadRejected),
		errors.Is(err, entities.ErrMalformedResponse),
		errors.Is(err, entities.ErrEmptyResponse),
		errors.Is(err, entities.ErrMissingAPIToken):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

func requestLogger(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	if c.Path() == "/api/health" {
		return err
	}
	slog.Info("request",
		"method", c.Method(),
		"path", c.Path(),
		"status", c.Response().StatusCode(),
		"duration", time.Since(start),
	)
	return err
}
