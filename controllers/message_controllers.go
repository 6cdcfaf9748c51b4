package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-booking/services"
	"github.com/yeremiapane/restaurant-booking/utils"
)

// HeaderClientID identifies the browser tab that wrote a message so its
// own toast can be suppressed.
const HeaderClientID = "X-Client-ID"

type MessageController struct {
	Messages *services.MessageService
}

func NewMessageController(messages *services.MessageService) *MessageController {
	return &MessageController{Messages: messages}
}

// GetMyMessages returns the caller's conversation. Reading does not mark
// anything as read.
func (mc *MessageController) GetMyMessages(c *gin.Context) {
	msgs, err := mc.Messages.Conversation(c.Request.Context(), currentEmail(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Conversation", msgs)
}

func (mc *MessageController) SendMessage(c *gin.Context) {
	var body struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	msg, err := mc.Messages.Send(c.Request.Context(), currentEmail(c), body.Content, c.GetHeader(HeaderClientID))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Message sent", msg)
}

// MarkRead acknowledges staff messages. Without ids every unread one is
// acknowledged.
func (mc *MessageController) MarkRead(c *gin.Context) {
	var body struct {
		IDs []uint `json:"ids"`
	}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			utils.RespondError(c, http.StatusBadRequest, err)
			return
		}
	}

	email := currentEmail(c)
	updated, err := mc.Messages.MarkRead(c.Request.Context(), email, body.IDs, false)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	unread, err := mc.Messages.UnreadCount(c.Request.Context(), email)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Messages marked as read", gin.H{
		"updated": updated,
		"unread":  unread,
	})
}

func (mc *MessageController) GetUnreadCount(c *gin.Context) {
	n, err := mc.Messages.UnreadCount(c.Request.Context(), currentEmail(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Unread count", gin.H{"count": n})
}

func (mc *MessageController) GetConversations(c *gin.Context) {
	convs, err := mc.Messages.Conversations(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Conversations", convs)
}

func (mc *MessageController) GetConversation(c *gin.Context) {
	msgs, err := mc.Messages.Conversation(c.Request.Context(), strings.ToLower(c.Param("email")))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Conversation", msgs)
}

// Reply posts a staff message into a customer's conversation.
func (mc *MessageController) Reply(c *gin.Context) {
	var body struct {
		Title   string `json:"title"`
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	msg, err := mc.Messages.Reply(c.Request.Context(), c.Param("email"), body.Title, body.Content, c.GetHeader(HeaderClientID))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.InfoLogger.Printf("Admin %s replied to %s", currentEmail(c), msg.Email)
	utils.RespondJSON(c, http.StatusCreated, "Reply sent", msg)
}

// MarkConversationRead acknowledges the customer's messages on the staff
// side.
func (mc *MessageController) MarkConversationRead(c *gin.Context) {
	updated, err := mc.Messages.MarkRead(c.Request.Context(), c.Param("email"), nil, true)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Conversation marked as read", gin.H{"updated": updated})
}
