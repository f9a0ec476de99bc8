package server

import (
	"net/http"
	"strings"

	"github.com/agentstation/reconify/internal/server/handlers"
	"github.com/agentstation/reconify/internal/server/middleware"
	"github.com/agentstation/reconify/internal/server/response"
)

// setupRouter creates the HTTP handler with routes and middleware.
func (s *Server) setupRouter() http.Handler {
	mux := http.NewServeMux()

	h := handlers.New(s.client, s.logger)
	s.registerRoutes(mux, h)

	return s.applyMiddleware(mux)
}

// registerRoutes registers all HTTP routes.
func (s *Server) registerRoutes(mux *http.ServeMux, h *handlers.Handlers) {
	prefix := s.config.PathPrefix

	// Favicon handler (return 204 No Content to avoid 404 logs)
	mux.HandleFunc("/favicon.ico", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	// Health endpoints
	mux.HandleFunc("/health", h.HandleHealth)
	mux.HandleFunc(prefix+"/health", h.HandleHealth)
	mux.HandleFunc(prefix+"/ready", h.HandleReady)

	// Panel collection
	mux.HandleFunc(prefix+"/panels", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			h.HandleListPanels(w, r)
		case http.MethodPost:
			h.HandleCreatePanel(w, r)
		default:
			response.MethodNotAllowed(w, r.Method)
		}
	})

	// Panel instance and workflow
	mux.HandleFunc(prefix+"/panels/", func(w http.ResponseWriter, r *http.Request) {
		parts := splitPath(r.URL.Path[len(prefix+"/panels/"):])
		if len(parts) == 0 {
			response.BadRequest(w, "panel name required", "")
			return
		}
		name := parts[0]

		if len(parts) == 1 {
			switch r.Method {
			case http.MethodGet:
				h.HandleGetPanel(w, r, name)
			case http.MethodDelete:
				h.HandleDeletePanel(w, r, name)
			default:
				response.MethodNotAllowed(w, r.Method)
			}
			return
		}

		if len(parts) == 2 {
			switch {
			case parts[1] == "headers" && r.Method == http.MethodGet:
				h.HandleGetPanelHeaders(w, r, name)
			case parts[1] == "mapping" && r.Method == http.MethodPost:
				h.HandleSetMapping(w, r, name)
			case parts[1] == "upload" && r.Method == http.MethodPost:
				h.HandleUploadPanelDocument(w, r, name)
			case parts[1] == "categorize" && r.Method == http.MethodPost:
				h.HandleCategorize(w, r, name)
			case parts[1] == "reconcile" && r.Method == http.MethodPost:
				h.HandleReconcile(w, r, name)
			case parts[1] == "recategorize" && r.Method == http.MethodPost:
				h.HandleRecategorize(w, r, name)
			case parts[1] == "complete" && r.Method == http.MethodPost:
				h.HandleComplete(w, r, name)
			case parts[1] == "state" && r.Method == http.MethodGet:
				h.HandlePanelState(w, r, name)
			case parts[1] == "runs" && r.Method == http.MethodGet:
				h.HandleRunHistory(w, r, name)
			default:
				response.NotFound(w, "unknown panel route")
			}
			return
		}

		if len(parts) == 3 && parts[1] == "mapping" && r.Method == http.MethodDelete {
			// DELETE /panels/{name}/mapping/{sot}
			h.HandleClearMapping(w, r, name, parts[2])
			return
		}

		response.NotFound(w, "unknown panel route")
	})

	// SOT collection
	mux.HandleFunc(prefix+"/sots", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			h.HandleListSOTs(w, r)
			return
		}
		response.MethodNotAllowed(w, r.Method)
	})

	mux.HandleFunc(prefix+"/sots/", func(w http.ResponseWriter, r *http.Request) {
		parts := splitPath(r.URL.Path[len(prefix+"/sots/"):])
		if len(parts) != 2 {
			response.NotFound(w, "unknown SOT route")
			return
		}
		sotType := parts[0]

		switch {
		case parts[1] == "upload" && r.Method == http.MethodPost:
			h.HandleUploadSOT(w, r, sotType)
		case parts[1] == "fields" && r.Method == http.MethodGet:
			h.HandleGetSOTFields(w, r, sotType)
		case parts[1] == "rows" && r.Method == http.MethodGet:
			h.HandleGetSOTRowCount(w, r, sotType)
		default:
			response.NotFound(w, "unknown SOT route")
		}
	})

	// Reporting
	mux.HandleFunc(prefix+"/reports/summaries", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			h.HandleSummaries(w, r)
			return
		}
		response.MethodNotAllowed(w, r.Method)
	})

	mux.HandleFunc(prefix+"/reports/summaries/", func(w http.ResponseWriter, r *http.Request) {
		reconID := extractPathParam(r.URL.Path, prefix+"/reports/summaries/")
		if reconID != "" && r.Method == http.MethodGet {
			h.HandleSummaryDetail(w, r, reconID)
			return
		}
		response.NotFound(w, "unknown report route")
	})

	mux.HandleFunc(prefix+"/reports/users", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			h.HandleUserWiseSummary(w, r)
			return
		}
		response.MethodNotAllowed(w, r.Method)
	})

	// Upload history
	mux.HandleFunc(prefix+"/uploads", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			h.HandleUploadHistory(w, r)
			return
		}
		response.MethodNotAllowed(w, r.Method)
	})
}

// applyMiddleware wraps handler with middleware chain.
func (s *Server) applyMiddleware(handler http.Handler) http.Handler {
	if s.config.CORSEnabled {
		handler = middleware.CORS()(handler)
	}
	handler = middleware.Logger(s.logger)(handler)
	handler = middleware.Recovery(s.logger)(handler)
	return handler
}

// extractPathParam extracts a single path parameter after the prefix.
func extractPathParam(path, prefix string) string {
	trimmed := strings.TrimPrefix(path, prefix)
	parts := strings.Split(trimmed, "/")
	if len(parts) > 0 {
		return parts[0]
	}
	return ""
}

// splitPath splits a URL path into parts, removing empty strings.
func splitPath(path string) []string {
	parts := []string{}
	for _, part := range strings.Split(path, "/") {
		if part != "" {
			parts = append(parts, part)
		}
	}
	return parts
}
