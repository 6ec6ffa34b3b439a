package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/contactkeeper/internal/common"
	"github.com/dmitrijs2005/contactkeeper/internal/server/models"
	"github.com/dmitrijs2005/contactkeeper/internal/server/services"
	"github.com/go-chi/chi/v5"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string `json:"accessToken"`
}

type currentUserResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type createContactRequest struct {
	Name  string            `json:"name"`
	Phone string            `json:"phone"`
	Extra map[string]string `json:"extra"`
}

type updateContactRequest struct {
	Name  *string           `json:"name"`
	Phone *string           `json:"phone"`
	Extra map[string]string `json:"extra"`
}

type contactResponse struct {
	ID        string            `json:"id"`
	UserID    string            `json:"user_id"`
	Name      string            `json:"name"`
	Phone     string            `json:"phone"`
	Extra     map[string]string `json:"extra,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func toContactResponse(c *models.Contact) contactResponse {
	return contactResponse{
		ID:        c.ID,
		UserID:    c.UserID,
		Name:      c.Name,
		Phone:     c.Phone,
		Extra:     c.Extra,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErrorMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeError translates service sentinels into response status and message.
// Unknown errors collapse into a generic 500 so internals never leak.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, common.ErrorValidation):
		writeErrorMessage(w, http.StatusBadRequest, "all fields are mandatory")
	case errors.Is(err, common.ErrorAlreadyExists):
		writeErrorMessage(w, http.StatusBadRequest, "email already registered")
	case errors.Is(err, common.ErrorUnauthorized):
		writeErrorMessage(w, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, common.ErrorForbidden):
		writeErrorMessage(w, http.StatusForbidden, "no permission to access this contact")
	case errors.Is(err, common.ErrorNotFound):
		writeErrorMessage(w, http.StatusNotFound, "contact not found")
	default:
		writeErrorMessage(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := s.users.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		s.logger.Warn(r.Context(), "registration failed", "error", err.Error())
		writeError(w, err)
		return
	}

	s.logger.Info(r.Context(), "registered", "user_id", user.ID)
	writeJSON(w, http.StatusCreated, registerResponse{ID: user.ID, Email: user.Email})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, err := s.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{AccessToken: token})
}

// handleCurrentUser echoes back the identity the middleware attached.
// No further validation happens here.
func (s *Server) handleCurrentUser(w http.ResponseWriter, r *http.Request) {

	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		writeErrorMessage(w, http.StatusUnauthorized, "missing token")
		return
	}

	writeJSON(w, http.StatusOK, currentUserResponse{
		ID:       claims.UserID,
		Username: claims.Username,
		Email:    claims.Email,
	})
}

func (s *Server) handleListContacts(w http.ResponseWriter, r *http.Request) {

	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		writeErrorMessage(w, http.StatusUnauthorized, "missing token")
		return
	}

	contacts, err := s.contacts.List(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := make([]contactResponse, 0, len(contacts))
	for _, c := range contacts {
		resp = append(resp, toContactResponse(c))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreateContact(w http.ResponseWriter, r *http.Request) {

	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		writeErrorMessage(w, http.StatusUnauthorized, "missing token")
		return
	}

	var req createContactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	contact, err := s.contacts.Create(r.Context(), claims.UserID, req.Name, req.Phone, req.Extra)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toContactResponse(contact))
}

func (s *Server) handleGetContact(w http.ResponseWriter, r *http.Request) {

	contact, err := s.contacts.Get(r.Context(), chi.URLParam(r, "contactID"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toContactResponse(contact))
}

func (s *Server) handleUpdateContact(w http.ResponseWriter, r *http.Request) {

	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		writeErrorMessage(w, http.StatusUnauthorized, "missing token")
		return
	}

	var req updateContactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	patch := &services.ContactPatch{
		Name:  req.Name,
		Phone: req.Phone,
		Extra: req.Extra,
	}

	contact, err := s.contacts.Update(r.Context(), chi.URLParam(r, "contactID"), claims.UserID, patch)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toContactResponse(contact))
}

func (s *Server) handleDeleteContact(w http.ResponseWriter, r *http.Request) {

	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		writeErrorMessage(w, http.StatusUnauthorized, "missing token")
		return
	}

	contact, err := s.contacts.Delete(r.Context(), chi.URLParam(r, "contactID"), claims.UserID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toContactResponse(contact))
}
