package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/oshokin/usage-alarms/internal/config"
	"github.com/oshokin/usage-alarms/internal/logger"
	"github.com/oshokin/usage-alarms/internal/railway"
)

const bearerPrefix = "Bearer "

// maxRequestBody bounds request bodies.
const maxRequestBody = 1 << 20

var (
	// errAuthorizationMissing is returned when no bearer token is sent.
	errAuthorizationMissing = errors.New("authorization missing")
	// errProjectIDRequired is returned when the services request has no project.
	errProjectIDRequired = errors.New("project id is required")
)

// Lister lists projects and services on behalf of a token.
type Lister interface {
	Projects(ctx context.Context) ([]railway.Project, error)
	Services(ctx context.Context, projectID string) ([]railway.Service, error)
}

// ListerFactory creates a Lister authenticated with token.
type ListerFactory func(token string) Lister

// servicesRequest is the body of POST /v1/services.
type servicesRequest struct {
	ProjectID string `json:"projectId"`
}

// errorResponse is the body of every failed request.
type errorResponse struct {
	Error string `json:"error"`
}

// Handler serves the listing endpoints.
type Handler struct {
	newLister ListerFactory
	origin    string
	mux       *http.ServeMux
}

// NewHandler creates the proxy handler. CORS allows only cfg.FrontendURL.
func NewHandler(ctx context.Context, cfg *config.Proxy, newLister ListerFactory) *Handler {
	h := &Handler{
		newLister: newLister,
		origin:    cfg.FrontendURL,
		mux:       http.NewServeMux(),
	}

	h.mux.HandleFunc("POST /v1/projects", func(w http.ResponseWriter, r *http.Request) {
		h.projects(ctx, w, r)
	})
	h.mux.HandleFunc("POST /v1/services", func(w http.ResponseWriter, r *http.Request) {
		h.services(ctx, w, r)
	})

	return h
}

// ServeHTTP applies CORS and dispatches the request.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	header := w.Header()
	header.Set("Access-Control-Allow-Origin", h.origin)
	header.Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	header.Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
	header.Add("Vary", "Origin")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)

		return
	}

	h.mux.ServeHTTP(w, r)
}

func (h *Handler) projects(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	token, err := bearerToken(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")

		return
	}

	projects, err := h.newLister(token).Projects(r.Context())
	if err != nil {
		internalError(ctx, w, err)

		return
	}

	writeJSON(ctx, w, http.StatusOK, projects)
}

func (h *Handler) services(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	token, err := bearerToken(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")

		return
	}

	var req servicesRequest

	if err = json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Bad Request")

		return
	}

	if req.ProjectID == "" {
		logger.DebugKV(ctx, "Rejected services request", "error", errProjectIDRequired)
		writeError(w, http.StatusBadRequest, "Bad Request")

		return
	}

	services, err := h.newLister(token).Services(r.Context(), req.ProjectID)
	if err != nil {
		internalError(ctx, w, err)

		return
	}

	writeJSON(ctx, w, http.StatusOK, services)
}

// bearerToken extracts the token from the Authorization header.
func bearerToken(r *http.Request) (string, error) {
	value := r.Header.Get("Authorization")
	if !strings.HasPrefix(value, bearerPrefix) {
		return "", errAuthorizationMissing
	}

	token := strings.TrimSpace(strings.TrimPrefix(value, bearerPrefix))
	if token == "" {
		return "", errAuthorizationMissing
	}

	return token, nil
}

// internalError logs err and answers with a generic 500.
func internalError(ctx context.Context, w http.ResponseWriter, err error) {
	logger.ErrorKV(ctx, "Listing request failed", "error", err)
	writeError(w, http.StatusInternalServerError, "Internal Server Error")
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(context.Background(), w, status, errorResponse{Error: message})
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.DebugKV(ctx, "Unable to write response", "error", err)
	}
}
