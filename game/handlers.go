package game

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

type GameHandler struct {
	registry   *Registry
	gateway    *Gateway
	upgrader   websocket.Upgrader
	pingPeriod time.Duration
	now        func() time.Time
}

// NewGameHandler wires the HTTP surface. Origins are checked by the router
// middleware before any handler here runs.
func NewGameHandler(registry *Registry, gateway *Gateway) *GameHandler {
	return &GameHandler{
		registry: registry,
		gateway:  gateway,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		pingPeriod: DefaultPingPeriod,
		now:        time.Now,
	}
}

func (h *GameHandler) ListRoomsHandler(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, h.registry.List())
}

type createRoomRequest struct {
	RoomName string `json:"roomName"`
}

func (h *GameHandler) CreateRoomHandler(ctx *gin.Context) {
	var req createRoomRequest
	if err := ctx.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		ctx.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid-request-format"})
		return
	}

	roomID := fmt.Sprintf("room_%d", h.now().UnixMilli())
	if req.RoomName != "" {
		name, err := ValidateRoomName(req.RoomName)
		if err != nil {
			ctx.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid room name"})
			return
		}
		roomID = name
	}

	if _, err := h.registry.Create(roomID); err != nil {
		if errors.Is(err, ErrRoomExists) {
			ctx.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Room already exists"})
			return
		}
		log.Error().Err(err).Str("room", roomID).Msg("failed to create room")
		ctx.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "unknown-error"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"roomId": roomID, "message": "Room created successfully"})
}

func (h *GameHandler) WebsocketHandler(ctx *gin.Context) {
	conn, err := h.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		log.Warn().Err(err).Str("ip", ctx.ClientIP()).Msg("websocket upgrade failed")
		return
	}

	client := NewClient(uuid.NewString(), NewWebsocketConnection(conn))
	log.Debug().Str("player", client.ID()).Str("ip", ctx.ClientIP()).Msg("client connected")

	go client.WritePump(h.pingPeriod)
	go client.ReadPump(h.gateway)
}
