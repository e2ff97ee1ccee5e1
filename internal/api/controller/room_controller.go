package controller

import (
	"net/http"
	"strconv"

	"ctchen222/galactic-tictactoe/internal/api/models"
	"ctchen222/galactic-tictactoe/internal/api/response"
	"ctchen222/galactic-tictactoe/internal/api/service"

	"github.com/gin-gonic/gin"
)

// RoomController handles room-related HTTP requests.
type RoomController struct {
	roomService service.RoomService
}

// NewRoomController creates a new RoomController.
func NewRoomController(roomService service.RoomService) *RoomController {
	return &RoomController{
		roomService: roomService,
	}
}

// Create handles opening a single-player room or hosting a two-player session.
func (rc *RoomController) Create(c *gin.Context) {
	var req models.CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := rc.roomService.Create(c.Request.Context(), &req)
	if err != nil {
		response.AppErrorResponse(c, err)
		return
	}

	response.SuccessResponse(c, resp)
}

// Join handles joining a hosted session by code.
func (rc *RoomController) Join(c *gin.Context) {
	var req models.JoinRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := rc.roomService.Join(c.Request.Context(), &req)
	if err != nil {
		response.AppErrorResponse(c, err)
		return
	}

	response.SuccessResponse(c, resp)
}

// Get returns the room's snapshot.
func (rc *RoomController) Get(c *gin.Context) {
	resp, err := rc.roomService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.AppErrorResponse(c, err)
		return
	}

	response.SuccessResponse(c, resp)
}

// Move handles a move by the room's local player. Illegal moves succeed with
// accepted set to false.
func (rc *RoomController) Move(c *gin.Context) {
	var req models.MoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := rc.roomService.Move(c.Request.Context(), c.Param("id"), *req.Cell)
	if err != nil {
		response.AppErrorResponse(c, err)
		return
	}

	response.SuccessResponse(c, resp)
}

// Restart starts a new match.
func (rc *RoomController) Restart(c *gin.Context) {
	resp, err := rc.roomService.Restart(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.AppErrorResponse(c, err)
		return
	}

	response.SuccessResponse(c, resp)
}

// Leave returns to the menu and closes the room.
func (rc *RoomController) Leave(c *gin.Context) {
	if err := rc.roomService.Leave(c.Request.Context(), c.Param("id")); err != nil {
		response.AppErrorResponse(c, err)
		return
	}

	response.SuccessResponse(c, gin.H{"message": "Room closed"})
}

// Stats returns win and draw counts over all finished matches.
func (rc *RoomController) Stats(c *gin.Context) {
	stats, err := rc.roomService.Stats(c.Request.Context())
	if err != nil {
		response.AppErrorResponse(c, err)
		return
	}

	response.SuccessResponse(c, stats)
}

// Recent lists the latest finished matches.
func (rc *RoomController) Recent(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 1 || limit > 100 {
		response.ErrorResponse(c, http.StatusBadRequest, "limit must be between 1 and 100")
		return
	}

	matches, err := rc.roomService.Recent(c.Request.Context(), limit)
	if err != nil {
		response.AppErrorResponse(c, err)
		return
	}

	response.SuccessResponse(c, gin.H{"matches": matches})
}
