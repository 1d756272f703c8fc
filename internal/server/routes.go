// -----------------------------------------------------------------------
// Last Modified: Thursday, 16th October 2025
// Modified By: Bob McAllan
// -----------------------------------------------------------------------

package server

import (
	"net/http"
	"strings"

	"github.com/ternarybob/roomathon/internal/services/blob"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// API routes - Reports
	mux.HandleFunc("/api/reports", s.app.ReportHandler.GenerateHandler) // POST - generate, publish, notify
	mux.HandleFunc("/api/reports/", s.handleReportRoutes)               // GET /{id}, POST /{id}/notify

	// API routes - Mail
	mux.HandleFunc("/api/mail/config", s.handleMailConfigRoute) // GET, POST
	mux.HandleFunc("/api/mail/send", s.app.MailHandler.SendEmailHandler)
	mux.HandleFunc("/send-email", s.app.MailHandler.SendEmailHandler) // legacy path

	// API routes - Key/value settings (API keys, smtp_*)
	mux.HandleFunc("/api/kv", s.app.KVHandler.ListKVHandler)
	mux.HandleFunc("/api/kv/", s.handleKVRoutes) // PUT/DELETE /{key}

	// API routes - System
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)

	// Published reports when the local blob provider is in use
	if local, ok := s.app.BlobStorage.(*blob.LocalStore); ok {
		mux.Handle("/files/", http.StripPrefix("/files/", http.FileServer(http.Dir(local.Root()))))
	}

	// 404 handler for unmatched API routes
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		s.app.APIHandler.NotFoundHandler(w, r)
	})

	return mux
}

// handleReportRoutes routes /api/reports/{id} and /api/reports/{id}/notify
func (s *Server) handleReportRoutes(w http.ResponseWriter, r *http.Request) {
	if strings.HasSuffix(r.URL.Path, "/notify") {
		s.app.ReportHandler.NotifyHandler(w, r)
		return
	}
	s.app.ReportHandler.GetHandler(w, r)
}

func (s *Server) handleMailConfigRoute(w http.ResponseWriter, r *http.Request) {
	RouteByMethod(w, r, MethodRouter{
		"GET":  s.app.MailHandler.GetConfigHandler,
		"POST": s.app.MailHandler.SetConfigHandler,
	})
}

func (s *Server) handleKVRoutes(w http.ResponseWriter, r *http.Request) {
	RouteByMethod(w, r, MethodRouter{
		"PUT":    s.app.KVHandler.UpdateKVHandler,
		"DELETE": s.app.KVHandler.DeleteKVHandler,
	})
}
