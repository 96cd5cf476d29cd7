package httpapi

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Confirm handles POST /api/confirmations — step 2/3 of the confirmation
// protocol. A YES reply consumes the token and runs fulfillment;
// a NO cancels the pending confirmation; anything else re-prompts without
// consuming it.
func (s *Server) Confirm(c *gin.Context) {
	var req ConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	switch normalizeReply(req.Reply) {
	case "yes":
		s.confirmYes(c, ctx, req)
	case "no":
		out := s.orchestrator.Decline(ctx, req.SessionID)
		c.JSON(http.StatusOK, toTurnResponse(out))
	default:
		if reprompt, pending := s.orchestrator.RepromptMessage(req.SessionID); pending {
			c.JSON(http.StatusOK, TurnResponse{Status: "awaiting_confirmation", Message: reprompt})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "no confirmation is pending for this session"})
	}
}

func (s *Server) confirmYes(c *gin.Context, ctx context.Context, req ConfirmRequest) {
	out, err := s.orchestrator.Confirm(ctx, req.SessionID, req.Token)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, toTurnResponse(out))
}

func normalizeReply(reply string) string {
	switch strings.ToLower(strings.TrimSpace(reply)) {
	case "yes", "y":
		return "yes"
	case "no", "n":
		return "no"
	default:
		return ""
	}
}

func decodeBase64(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}
