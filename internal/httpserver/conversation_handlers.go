package httpserver

import (
	"net/http"

	"workmatch/internal/domain"
	"workmatch/internal/service"
)

type findOrCreateRequest struct {
	ParticipantID int64 `json:"participant_id"`
}

type findOrCreateResponse struct {
	Conversation *domain.Conversation `json:"conversation"`
	Created      bool                 `json:"created"`
}

type markReadResponse struct {
	Marked int64 `json:"marked"`
}

// handleFindOrCreateConversation godoc
// @Summary      Find or create a conversation
// @Description  Returns the single conversation between the caller and participant_id, creating it on first contact
// @Tags         conversations
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        input body findOrCreateRequest true "Counterpart"
// @Success      200  {object}  findOrCreateResponse
// @Success      201  {object}  findOrCreateResponse
// @Failure      400  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /conversations [post]
func handleFindOrCreateConversation(convSvc *service.ConversationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req findOrCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		currentUser := CurrentUser(r)

		conv, created, err := convSvc.FindOrCreate(r.Context(), currentUser.ID, req.ParticipantID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		status := http.StatusOK
		if created {
			status = http.StatusCreated
		}
		writeJSON(w, status, findOrCreateResponse{Conversation: conv, Created: created})
	}
}

// handleListConversations godoc
// @Summary      List conversations
// @Description  Conversations of the caller, most recently active first
// @Tags         conversations
// @Security     BearerAuth
// @Produce      json
// @Success      200  {array}   domain.ConversationSummary
// @Router       /conversations [get]
func handleListConversations(convSvc *service.ConversationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		convs, err := convSvc.ListForUser(r.Context(), CurrentUser(r).ID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, convs)
	}
}

// handleGetConversation godoc
// @Summary      Get a conversation
// @Tags         conversations
// @Security     BearerAuth
// @Produce      json
// @Param        conversationID path int true "Conversation ID"
// @Success      200  {object}  domain.Conversation
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /conversations/{conversationID} [get]
func handleGetConversation(convSvc *service.ConversationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "conversationID")
		if err != nil {
			writeError(w, r, err)
			return
		}
		conv, err := convSvc.Get(r.Context(), id, CurrentUser(r).ID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, conv)
	}
}

// handleMarkConversationRead godoc
// @Summary      Mark a conversation read
// @Description  Adds the caller to the read set of every message; returns how many were newly marked
// @Tags         conversations
// @Security     BearerAuth
// @Produce      json
// @Param        conversationID path int true "Conversation ID"
// @Success      200  {object}  markReadResponse
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /conversations/{conversationID}/read [patch]
func handleMarkConversationRead(msgSvc *service.MessageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "conversationID")
		if err != nil {
			writeError(w, r, err)
			return
		}
		n, err := msgSvc.MarkRead(r.Context(), id, CurrentUser(r).ID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, markReadResponse{Marked: n})
	}
}
