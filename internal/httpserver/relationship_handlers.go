package httpserver

import (
	"fmt"
	"net/http"

	"workmatch/internal/domain"
	"workmatch/internal/service"
)

type relationshipCreateRequest struct {
	CounterpartID int64 `json:"counterpart_id"`
}

type relationshipUpdateRequest struct {
	IsDone *bool `json:"is_done"`
}

// handleAddRelationship godoc
// @Summary      Track a counterpart
// @Description  Adds the counterpart to the caller's managed list; an existing entry is returned with 200
// @Tags         relationships
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        input body relationshipCreateRequest true "Counterpart"
// @Success      201  {object}  domain.Relationship
// @Success      200  {object}  domain.Relationship
// @Failure      400  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /relationships [post]
func handleAddRelationship(relSvc *service.RelationshipService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req relationshipCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		rel, created, err := relSvc.Add(r.Context(), CurrentUser(r), req.CounterpartID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		status := http.StatusCreated
		if !created {
			status = http.StatusOK
		}
		writeJSON(w, status, rel)
	}
}

// handleListRelationships godoc
// @Summary      List tracked counterparts
// @Tags         relationships
// @Security     BearerAuth
// @Produce      json
// @Success      200  {array}   domain.Relationship
// @Router       /relationships [get]
func handleListRelationships(relSvc *service.RelationshipService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := relSvc.List(r.Context(), CurrentUser(r).ID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// handleSetRelationshipDone godoc
// @Summary      Mark a relationship done
// @Tags         relationships
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        relationshipID path int true "Relationship ID"
// @Param        input body relationshipUpdateRequest true "Done flag"
// @Success      200  {object}  domain.Relationship
// @Failure      404  {object}  map[string]string
// @Router       /relationships/{relationshipID} [patch]
func handleSetRelationshipDone(relSvc *service.RelationshipService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "relationshipID")
		if err != nil {
			writeError(w, r, err)
			return
		}
		var req relationshipUpdateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		if req.IsDone == nil {
			writeError(w, r, fmt.Errorf("is_done is required: %w", domain.ErrInvalidInput))
			return
		}
		rel, err := relSvc.SetDone(r.Context(), CurrentUser(r).ID, id, *req.IsDone)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, rel)
	}
}

// handleRemoveRelationship godoc
// @Summary      Stop tracking a counterpart
// @Tags         relationships
// @Security     BearerAuth
// @Param        relationshipID path int true "Relationship ID"
// @Success      204
// @Failure      404  {object}  map[string]string
// @Router       /relationships/{relationshipID} [delete]
func handleRemoveRelationship(relSvc *service.RelationshipService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "relationshipID")
		if err != nil {
			writeError(w, r, err)
			return
		}
		if err := relSvc.Remove(r.Context(), CurrentUser(r).ID, id); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
