package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"carpool/internal/domain"
	"carpool/internal/middleware"
	"carpool/internal/service"
)

// ChatHandler exposes ride chat rooms to their members.
type ChatHandler struct {
	chat *service.ChatSynchronizer
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(chat *service.ChatSynchronizer) *ChatHandler {
	return &ChatHandler{chat: chat}
}

// ParticipantResponse is a chat room member.
type ParticipantResponse struct {
	UserID   string    `json:"user_id"`
	Role     string    `json:"role"`
	Name     string    `json:"name,omitempty"`
	Phone    string    `json:"phone,omitempty"`
	Email    string    `json:"email,omitempty"`
	JoinedAt time.Time `json:"joined_at"`
}

// ChatRoomResponse is the HTTP representation of a ride chat room.
type ChatRoomResponse struct {
	ID           string                `json:"id"`
	RideID       string                `json:"ride_id"`
	OrganizerID  string                `json:"organizer_id"`
	Origin       string                `json:"origin"`
	Destination  string                `json:"destination"`
	DepartureAt  time.Time             `json:"departure_at"`
	Participants []ParticipantResponse `json:"participants"`
}

func toChatRoomResponse(room *domain.ChatRoom) ChatRoomResponse {
	participants := make([]ParticipantResponse, 0, len(room.Participants))
	for _, p := range room.Participants {
		participants = append(participants, ParticipantResponse{
			UserID:   p.UserID,
			Role:     string(p.Role),
			Name:     p.Contact.Name,
			Phone:    p.Contact.Phone,
			Email:    p.Contact.Email,
			JoinedAt: p.JoinedAt,
		})
	}
	return ChatRoomResponse{
		ID:           room.ID,
		RideID:       room.RideID,
		OrganizerID:  room.OrganizerID,
		Origin:       room.Origin,
		Destination:  room.Destination,
		DepartureAt:  room.DepartureAt,
		Participants: participants,
	}
}

// GetRoom handles GET /v1/rides/:id/chat
func (h *ChatHandler) GetRoom(c *gin.Context) {
	room, err := h.chat.GetRoom(c.Request.Context(), c.Param("id"), middleware.CallerID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toChatRoomResponse(room))
}
