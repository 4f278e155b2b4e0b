package httpserver

import (
	"net/http"

	"workmatch/internal/service"
)

type messageCreateRequest struct {
	ConversationID int64  `json:"conversation_id"`
	Body           string `json:"body"`
	ClientID       string `json:"client_id,omitempty"`
}

// handleListMessages godoc
// @Summary      List messages
// @Description  Chronological history; after (message id, exclusive) and limit page through it
// @Tags         messages
// @Security     BearerAuth
// @Produce      json
// @Param        conversationID path int true "Conversation ID"
// @Param        after query int false "Return messages with a larger id"
// @Param        limit query int false "Maximum number of messages"
// @Success      200  {array}   domain.Message
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /conversations/{conversationID}/messages [get]
func handleListMessages(msgSvc *service.MessageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "conversationID")
		if err != nil {
			writeError(w, r, err)
			return
		}
		after, err := intQuery(r, "after")
		if err != nil {
			writeError(w, r, err)
			return
		}
		limit, err := intQuery(r, "limit")
		if err != nil {
			writeError(w, r, err)
			return
		}

		msgs, err := msgSvc.List(r.Context(), id, CurrentUser(r).ID, after, int(limit))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, msgs)
	}
}

// handleCreateMessage godoc
// @Summary      Send a message
// @Description  Appends a message; a repeated client_id returns the stored message with 200
// @Tags         messages
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        input body messageCreateRequest true "Message"
// @Success      201  {object}  domain.Message
// @Success      200  {object}  domain.Message
// @Failure      400  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Failure      422  {object}  map[string]string
// @Failure      429  {object}  map[string]string
// @Router       /messages [post]
func handleCreateMessage(msgSvc *service.MessageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req messageCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		appendMessage(w, r, msgSvc, req)
	}
}

// handleCreateMessageInConversation godoc
// @Summary      Send a message to a conversation
// @Tags         messages
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        conversationID path int true "Conversation ID"
// @Param        input body messageCreateRequest true "Message; conversation_id is taken from the path"
// @Success      201  {object}  domain.Message
// @Success      200  {object}  domain.Message
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Failure      422  {object}  map[string]string
// @Router       /conversations/{conversationID}/messages [post]
func handleCreateMessageInConversation(msgSvc *service.MessageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "conversationID")
		if err != nil {
			writeError(w, r, err)
			return
		}
		var req messageCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		req.ConversationID = id
		appendMessage(w, r, msgSvc, req)
	}
}

func appendMessage(w http.ResponseWriter, r *http.Request, msgSvc *service.MessageService, req messageCreateRequest) {
	msg, created, err := msgSvc.Append(r.Context(), service.AppendInput{
		ConversationID: req.ConversationID,
		SenderID:       CurrentUser(r).ID,
		Body:           req.Body,
		ClientID:       req.ClientID,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	status := http.StatusCreated
	if !created {
		status = http.StatusOK
	}
	writeJSON(w, status, msg)
}
