package httpapi

import (
	"github.com/arogya-path/kernel/internal/orchestrator"
)

// TurnRequest is the shape both the HTTP path and internal/ingest's
// messaging-webhook adapter converge on — the same {user_id, session_id,
// phone, message} turn input regardless of channel.
type TurnRequest struct {
	UserID    string `json:"user_id" binding:"required"`
	SessionID string `json:"session_id" binding:"required"`
	Phone     string `json:"phone"`
	Message   string `json:"message" binding:"required"`
}

// VoiceTurnRequest carries base64-encoded audio alongside the same
// session/user identity fields a text turn needs.
type VoiceTurnRequest struct {
	UserID    string `json:"user_id" binding:"required"`
	SessionID string `json:"session_id" binding:"required"`
	Phone     string `json:"phone"`
	AudioB64  string `json:"audio_base64" binding:"required"`
	Format    string `json:"format" binding:"required"`
}

// PrescriptionUploadRequest carries a base64-encoded prescription image.
type PrescriptionUploadRequest struct {
	UserID    string `json:"user_id" binding:"required"`
	SessionID string `json:"session_id" binding:"required"`
	Phone     string `json:"phone"`
	ImageB64  string `json:"image_base64" binding:"required"`
}

// ConfirmRequest is the client's reply to a pending confirmation — a YES,
// a NO, or anything else (re-prompted rather than rejected outright).
type ConfirmRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	Reply     string `json:"reply" binding:"required"`
	Token     string `json:"token"`
}

// TurnResponse is the wire shape of an orchestrator.Outcome.
type TurnResponse struct {
	Status                     string `json:"status"`
	Message                    string `json:"message"`
	Token                      string `json:"token,omitempty"`
	OrderID                    string `json:"order_id,omitempty"`
	RequiresPharmacistOverride bool   `json:"requires_pharmacist_override,omitempty"`
}

func toTurnResponse(out orchestrator.Outcome) TurnResponse {
	return TurnResponse{
		Status:                     string(out.Status),
		Message:                    out.Message,
		Token:                      out.Token,
		OrderID:                    out.State.OrderID,
		RequiresPharmacistOverride: out.RequiresPharmacistOverride,
	}
}
