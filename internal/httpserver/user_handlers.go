package httpserver

import (
	"fmt"
	"net/http"

	"workmatch/internal/domain"
	"workmatch/internal/service"
)

// handleMe godoc
// @Summary      Get Current User
// @Description  Directory profile of the token's subject
// @Tags         users
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  domain.User
// @Failure      401  {object}  map[string]string
// @Router       /me [get]
func handleMe() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, CurrentUser(r))
	}
}

type availabilityRequest struct {
	IsAvailable *bool `json:"is_available"`
}

type neededSpecialistsRequest struct {
	NeededSpecialists *[]string `json:"needed_specialists"`
}

// handleSetAvailability godoc
// @Summary      Set availability
// @Description  Specialists only
// @Tags         users
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        input body availabilityRequest true "Availability"
// @Success      200  {object}  domain.User
// @Failure      400  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Router       /me/availability [patch]
func handleSetAvailability(userSvc *service.UserService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req availabilityRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		if req.IsAvailable == nil {
			writeError(w, r, fmt.Errorf("is_available is required: %w", domain.ErrInvalidInput))
			return
		}
		user, err := userSvc.SetAvailability(r.Context(), CurrentUser(r), *req.IsAvailable)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, user)
	}
}

// handleSetNeededSpecialists godoc
// @Summary      Set needed specialists
// @Description  Clients only. Replaces the wish list; duplicates keep their first position
// @Tags         users
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        input body neededSpecialistsRequest true "Specialty names"
// @Success      200  {object}  domain.User
// @Failure      400  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Router       /me/needed-specialists [patch]
func handleSetNeededSpecialists(userSvc *service.UserService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req neededSpecialistsRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		if req.NeededSpecialists == nil {
			writeError(w, r, fmt.Errorf("needed_specialists is required: %w", domain.ErrInvalidInput))
			return
		}
		user, err := userSvc.SetNeededSpecialists(r.Context(), CurrentUser(r), *req.NeededSpecialists)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, user)
	}
}

// handleListUsers godoc
// @Summary      Browse the directory
// @Tags         users
// @Security     BearerAuth
// @Produce      json
// @Param        role        query string false "client or specialist; defaults to the caller's counterpart role"
// @Param        specialty   query string false "Specialty, case-insensitive"
// @Param        governorate query string false "Governorate, case-insensitive"
// @Param        district    query string false "District, case-insensitive"
// @Param        available   query bool   false "Only users with this availability"
// @Param        offset      query int    false "Offset"
// @Param        limit       query int    false "Page size, at most 100"
// @Success      200  {array}   domain.User
// @Failure      400  {object}  map[string]string
// @Router       /users [get]
func handleListUsers(userSvc *service.UserService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		f := domain.UserFilter{
			Role:        domain.Role(q.Get("role")),
			Specialty:   q.Get("specialty"),
			Governorate: q.Get("governorate"),
			District:    q.Get("district"),
		}
		if f.Role == "" {
			f.Role = CurrentUser(r).Role.Opposite()
		}
		available, err := boolQuery(r, "available")
		if err != nil {
			writeError(w, r, err)
			return
		}
		f.Available = available
		offset, err := intQuery(r, "offset")
		if err != nil {
			writeError(w, r, err)
			return
		}
		limit, err := intQuery(r, "limit")
		if err != nil {
			writeError(w, r, err)
			return
		}
		f.Offset, f.Limit = int(offset), int(limit)
		users, err := userSvc.List(r.Context(), f)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if users == nil {
			users = []*domain.User{}
		}
		writeJSON(w, http.StatusOK, users)
	}
}

// handleGetUser godoc
// @Summary      Get a directory entry
// @Tags         users
// @Security     BearerAuth
// @Produce      json
// @Param        userID path int true "User ID"
// @Success      200  {object}  domain.User
// @Failure      404  {object}  map[string]string
// @Router       /users/{userID} [get]
func handleGetUser(userSvc *service.UserService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "userID")
		if err != nil {
			writeError(w, r, err)
			return
		}
		user, err := userSvc.GetByID(r.Context(), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, user)
	}
}
