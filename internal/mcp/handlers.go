// File: internal/mcp/handlers.go
package mcp

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Handlers serves the plain JSON command API next to the MCP endpoints.
type Handlers struct {
	log *zap.Logger
	nav Navigator
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(logger *zap.Logger, nav Navigator) *Handlers {
	return &Handlers{
		log: logger.Named("mcp_handlers"),
		nav: nav,
	}
}

// RegisterRoutes mounts the command API.
func (h *Handlers) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/command", h.HandleCommand)
		r.Get("/tools", h.HandleListTools)
	})
}

// HandleHealthCheck confirms the server is responsive.
func (h *Handlers) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// HandleListTools returns the names of the accepted commands.
func (h *Handlers) HandleListTools(w http.ResponseWriter, r *http.Request) {
	names := make([]string, 0, len(tools))
	for _, t := range tools {
		names = append(names, t.name())
	}
	h.respondWithStatus(w, http.StatusOK, "success", names, "")
}

// HandleCommand runs one operation. The operation's own outcome, including
// "ERROR", is a successful response; only propagated failures and bad
// requests are reported as errors.
func (h *Handlers) HandleCommand(w http.ResponseWriter, r *http.Request) {
	var req CommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	name := strings.ToLower(strings.TrimSpace(req.Command))
	if name == "ping" {
		h.respondWithSuccess(w, "pong")
		return
	}
	t, ok := lookupTool(name)
	if !ok {
		h.respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Unknown command: %s", req.Command))
		return
	}

	h.log.Info("Received command", zap.String("command", name))
	res, err := t.invoke(r.Context(), h.nav, req.Params)
	if err != nil {
		h.respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := res.Propagate(); err != nil {
		h.respondWithError(w, http.StatusBadGateway, err.Error())
		return
	}
	h.respondWithSuccess(w, res.String())
}

// mapToStruct converts generic params into a typed argument struct.
func mapToStruct[T any](m map[string]interface{}) (T, error) {
	var result T
	if m == nil {
		return result, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return result, err
	}
	err = json.Unmarshal(data, &result)
	return result, err
}

func (h *Handlers) respondWithError(w http.ResponseWriter, statusCode int, message string) {
	h.respondWithStatus(w, statusCode, "error", nil, message)
}

func (h *Handlers) respondWithSuccess(w http.ResponseWriter, data interface{}) {
	h.respondWithStatus(w, http.StatusOK, "success", data, "")
}

func (h *Handlers) respondWithStatus(w http.ResponseWriter, statusCode int, status string, data interface{}, errMsg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	resp := CommandResponse{Status: status, Data: data, Error: errMsg}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.log.Error("Failed to encode response", zap.Error(err))
	}
}
