package server

import (
	"log/slog"
	"net/http"
	"strings"

	"ctchen222/galactic-tictactoe/internal/api/controller"
	"ctchen222/galactic-tictactoe/internal/api/response"
	"ctchen222/galactic-tictactoe/internal/api/service"
	"ctchen222/galactic-tictactoe/internal/player"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("server")

type Server struct {
	engine         *gin.Engine
	roomService    service.RoomService
	roomController *controller.RoomController
	upgrader       websocket.Upgrader
}

func NewServer(roomService service.RoomService, roomController *controller.RoomController) *Server {
	binding.Validator = newStructValidator()

	s := &Server{
		engine:         gin.New(),
		roomService:    roomService,
		roomController: roomController,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
	s.engine.Use(gin.Recovery())
	s.registerRoutes()
	return s
}

// Engine returns the HTTP handler serving the API and the websocket feed.
func (s *Server) Engine() http.Handler {
	return s.engine
}

func (s *Server) registerRoutes() {
	s.engine.GET("/healthz", func(c *gin.Context) {
		response.SuccessResponse(c, gin.H{"status": "ok"})
	})
	s.engine.GET("/ws", s.handleWebSocket)

	api := s.engine.Group("/api")
	{
		api.POST("/rooms", s.roomController.Create)
		api.POST("/rooms/join", s.roomController.Join)
		api.GET("/stats", s.roomController.Stats)
		api.GET("/matches", s.roomController.Recent)
	}

	seat := api.Group("/rooms/:id", s.requireSeat)
	{
		seat.GET("", s.roomController.Get)
		seat.POST("/moves", s.roomController.Move)
		seat.POST("/restart", s.roomController.Restart)
		seat.DELETE("", s.roomController.Leave)
	}
}

// requireSeat rejects requests whose bearer token was not issued for the
// room in the path.
func (s *Server) requireSeat(c *gin.Context) {
	header := c.GetHeader("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		response.ErrorResponse(c, http.StatusUnauthorized, "missing bearer token")
		c.Abort()
		return
	}

	roomID, err := s.roomService.Authorize(token)
	if err != nil {
		response.AppErrorResponse(c, err)
		c.Abort()
		return
	}
	if roomID != c.Param("id") {
		response.ErrorResponse(c, http.StatusForbidden, "token was issued for another room")
		c.Abort()
		return
	}

	c.Next()
}

// handleWebSocket upgrades the connection and attaches it to the room the
// token grants. Commands then flow through the room's read pump.
func (s *Server) handleWebSocket(c *gin.Context) {
	r := c.Request
	ctx, span := tracer.Start(r.Context(), "server.handleWebSocket", trace.WithAttributes(
		attribute.String("http.url", r.URL.String()),
		attribute.String("http.method", r.Method),
	))
	defer span.End()

	roomID, err := s.roomService.Authorize(c.Query("token"))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid seat token")
		response.AppErrorResponse(c, err)
		return
	}
	if want := c.Query("room"); want != "" && want != roomID {
		span.SetStatus(codes.Error, "Token issued for another room")
		response.ErrorResponse(c, http.StatusForbidden, "token was issued for another room")
		return
	}

	rm, err := s.roomService.Room(roomID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Room not found")
		response.AppErrorResponse(c, err)
		return
	}

	conn, err := s.upgrader.Upgrade(c.Writer, r, nil)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to upgrade connection", "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to upgrade connection")
		return
	}

	p := player.New(uuid.NewString(), conn)
	span.SetAttributes(attribute.String("player.id", p.ID), attribute.String("room.id", rm.ID))

	rm.AddClient(ctx, p)
	go rm.ReadPump(p)
}
