package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"reviewhub/config"
	"reviewhub/internal/domain"
	"reviewhub/internal/service"
	"reviewhub/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type chatFrame struct {
	Type     string `json:"type"`
	Body     string `json:"body"`
	MediaURL string `json:"media_url"`
}

// UpgradeChatWS serves GET /ws/chat?token=&conversation_id=. Frames of type
// "message" are persisted through ChatService, which broadcasts them to the room.
func UpgradeChatWS(cfg *config.JWTConfig, chatHub *ws.ChatHub, chat *service.ChatService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := ws.Authenticate(c, cfg)
		if !ok {
			return
		}
		id, err := strconv.ParseUint(c.Query("conversation_id"), 10, 64)
		if err != nil || id == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation_id"})
			return
		}
		v := service.Viewer{UserID: claims.UserID, IsAdmin: claims.Role == domain.RoleAdmin}
		conv, err := chat.Get(c.Request.Context(), v, uint(id))
		if err != nil {
			respondError(c, err, "open chat")
			return
		}

		conn, err := ws.Upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		client := ws.NewClient(claims.UserID, claims.Role)
		chatHub.Join(conv.ID, client)
		defer client.Close()

		go ws.WritePump(client, conn)
		// The upgrade request context ends with the handler; use a detached one for writes.
		ctx := context.WithoutCancel(c.Request.Context())
		ws.ReadPump(conn, func(raw []byte) {
			var f chatFrame
			if json.Unmarshal(raw, &f) != nil || f.Type != "message" {
				return
			}
			if _, err := chat.Send(ctx, v, conv.ID, f.Body, f.MediaURL); err != nil {
				log.Debug().Err(err).Str("component", "ws").Uint("conversation_id", conv.ID).Msg("chat frame rejected")
				client.SendJSON(gin.H{"type": "error", "error": err.Error()})
			}
		})
	}
}
