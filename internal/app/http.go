package app

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"folio/api/internal/assets"
	"folio/api/internal/auth"
	"folio/api/internal/live"
	"folio/api/internal/pagetree"
	"folio/api/internal/search"
	"folio/api/internal/store"
)

const maxUploadBytes = 10 << 20

type pageSearcher interface {
	Search(ctx context.Context, q search.Query) search.Response
}

type assetUploader interface {
	Put(ctx context.Context, workspaceID, pageID, name string, r io.Reader, size int64, contentType string) (string, error)
	URL(ctx context.Context, key string, expires time.Duration) (string, error)
}

type HTTPServer struct {
	service    *Service
	tokens     *auth.Tokens
	projector  *live.Projector
	search     pageSearcher
	uploads    assetUploader
	corsOrigin string
	log        zerolog.Logger
}

type HTTPOption func(*HTTPServer)

func WithProjector(p *live.Projector) HTTPOption {
	return func(s *HTTPServer) { s.projector = p }
}

func WithSearchService(searcher pageSearcher) HTTPOption {
	return func(s *HTTPServer) { s.search = searcher }
}

func WithUploads(uploads assetUploader) HTTPOption {
	return func(s *HTTPServer) { s.uploads = uploads }
}

func WithRequestLogger(log zerolog.Logger) HTTPOption {
	return func(s *HTTPServer) { s.log = log }
}

func NewHTTPServer(service *Service, tokens *auth.Tokens, corsOrigin string, opts ...HTTPOption) *HTTPServer {
	s := &HTTPServer{
		service:    service,
		tokens:     tokens,
		corsOrigin: corsOrigin,
		log:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.projector == nil {
		s.projector = live.NewProjector(service.Store(), s.log)
	}
	return s
}

func (s *HTTPServer) Handler() http.Handler {
	return s.withMiddleware(http.HandlerFunc(s.handle))
}

func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		writeJSON(w, http.StatusNoContent, map[string]any{})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/health" {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/ready" {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		status := "ready"
		statusCode := http.StatusOK
		checks := map[string]any{
			"store": map[string]any{"status": "ok"},
		}
		if err := s.service.Ready(ctx); err != nil {
			status = "not_ready"
			statusCode = http.StatusServiceUnavailable
			checks["store"] = map[string]any{
				"status": "error",
				"error":  err.Error(),
			}
		}

		writeJSON(w, statusCode, map[string]any{
			"ok":     status == "ready",
			"status": status,
			"checks": checks,
		})
		return
	}

	parts := splitPath(r.URL.Path)
	if len(parts) < 2 || parts[0] != "api" {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
		return
	}

	actor, ok := s.requireActor(w, r)
	if !ok {
		return
	}

	switch {
	case len(parts) == 2 && parts[1] == "bootstrap":
		s.handleBootstrap(w, r, actor)
	case len(parts) == 2 && parts[1] == "me":
		s.handleMe(w, r, actor)
	case len(parts) == 2 && parts[1] == "workspaces":
		s.handleWorkspaces(w, r, actor)
	case len(parts) == 3 && parts[1] == "workspaces" && parts[2] == "order":
		s.handleWorkspaceOrder(w, r, actor)
	case len(parts) == 3 && parts[1] == "workspaces" && parts[2] == "trash":
		s.handleDeletedWorkspaces(w, r, actor)
	case len(parts) >= 3 && parts[1] == "workspaces":
		s.handleWorkspace(w, r, actor, parts[2], parts[3:])
	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
	}
}

func (s *HTTPServer) requireActor(w http.ResponseWriter, r *http.Request) (Actor, bool) {
	token := bearerToken(r)
	if token == "" {
		// Browsers cannot set headers on WebSocket handshakes.
		token = strings.TrimSpace(r.URL.Query().Get("access_token"))
	}
	if token == "" {
		writeError(w, http.StatusUnauthorized, "NOT_AUTHENTICATED", "Not authenticated", nil)
		return Actor{}, false
	}
	claims, err := s.tokens.Parse(token)
	if err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return Actor{}, false
	}
	return Actor{UserID: claims.Sub}, true
}

func (s *HTTPServer) handleBootstrap(w http.ResponseWriter, r *http.Request, actor Actor) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		return
	}
	ws, home, err := s.service.EnsureHome(r.Context(), actor)
	if err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"workspace": ws, "page": home})
}

func (s *HTTPServer) handleMe(w http.ResponseWriter, r *http.Request, actor Actor) {
	if r.Method == http.MethodGet {
		writeJSON(w, http.StatusOK, map[string]any{"userId": actor.UserID})
		return
	}

	if r.Method == http.MethodDelete {
		if err := s.service.DeactivateAccount(r.Context(), actor); err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
}

func (s *HTTPServer) handleWorkspaces(w http.ResponseWriter, r *http.Request, actor Actor) {
	if r.Method == http.MethodGet {
		items, err := s.service.ListWorkspaces(r.Context(), actor)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": nonNilSlice(items)})
		return
	}

	if r.Method == http.MethodPost {
		var body struct {
			Name string `json:"name"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		ws, home, err := s.service.CreateWorkspace(r.Context(), actor, body.Name)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"workspace": ws, "page": home})
		return
	}

	writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
}

func (s *HTTPServer) handleWorkspaceOrder(w http.ResponseWriter, r *http.Request, actor Actor) {
	if r.Method != http.MethodPut {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		return
	}
	var body struct {
		IDs []string `json:"ids"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	if err := s.service.ReorderWorkspaces(r.Context(), actor, body.IDs); err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *HTTPServer) handleDeletedWorkspaces(w http.ResponseWriter, r *http.Request, actor Actor) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		return
	}
	items, err := s.service.ListDeletedWorkspaces(r.Context(), actor)
	if err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": nonNilSlice(items)})
}

func (s *HTTPServer) handleWorkspace(w http.ResponseWriter, r *http.Request, actor Actor, workspaceID string, rest []string) {
	if len(rest) == 0 {
		switch r.Method {
		case http.MethodPatch:
			var body struct {
				Name string `json:"name"`
			}
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			s.respondOK(w, s.service.RenameWorkspace(r.Context(), actor, workspaceID, body.Name))
		case http.MethodDelete:
			if hardDelete(r) {
				s.respondOK(w, s.service.HardDeleteWorkspace(r.Context(), actor, workspaceID))
				return
			}
			s.respondOK(w, s.service.SoftDeleteWorkspace(r.Context(), actor, workspaceID))
		default:
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		}
		return
	}

	switch {
	case len(rest) == 1 && rest[0] == "restore" && r.Method == http.MethodPost:
		s.respondOK(w, s.service.RestoreWorkspace(r.Context(), actor, workspaceID))
	case len(rest) == 1 && rest[0] == "leave" && r.Method == http.MethodPost:
		s.respondOK(w, s.service.LeaveWorkspace(r.Context(), actor, workspaceID))
	case len(rest) == 1 && rest[0] == "members" && r.Method == http.MethodPost:
		var body struct {
			UserIDs []string `json:"userIds"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		s.respondOK(w, s.service.AddMembers(r.Context(), actor, workspaceID, body.UserIDs))
	case len(rest) == 1 && rest[0] == "tree" && r.Method == http.MethodGet:
		tree, err := s.service.GetTree(r.Context(), workspaceID)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, tree)
	case len(rest) == 2 && rest[0] == "tree" && rest[1] == "live" && r.Method == http.MethodGet:
		s.handleLiveTree(w, r, workspaceID)
	case len(rest) == 1 && rest[0] == "trash":
		s.handleTrash(w, r, actor, workspaceID)
	case len(rest) == 1 && rest[0] == "search" && r.Method == http.MethodGet:
		s.handleSearch(w, r, workspaceID)
	case len(rest) >= 1 && rest[0] == "pages":
		s.handlePages(w, r, actor, workspaceID, rest[1:])
	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
	}
}

func (s *HTTPServer) handleTrash(w http.ResponseWriter, r *http.Request, actor Actor, workspaceID string) {
	if r.Method == http.MethodGet {
		items, err := s.service.ListTrash(r.Context(), workspaceID)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": nonNilSlice(items)})
		return
	}

	if r.Method == http.MethodDelete {
		removed, err := s.service.EmptyTrash(r.Context(), actor, workspaceID)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "removed": removed})
		return
	}

	writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
}

func (s *HTTPServer) handleSearch(w http.ResponseWriter, r *http.Request, workspaceID string) {
	if s.search == nil {
		writeError(w, http.StatusServiceUnavailable, "SEARCH_UNAVAILABLE", "Search is not configured", nil)
		return
	}
	query := r.URL.Query()
	limit, _ := strconv.Atoi(query.Get("limit"))
	offset, _ := strconv.Atoi(query.Get("offset"))
	resp := s.search.Search(r.Context(), search.Query{
		WorkspaceID: workspaceID,
		Text:        strings.TrimSpace(query.Get("q")),
		Limit:       limit,
		Offset:      offset,
	})
	writeJSON(w, http.StatusOK, resp)
}

func (s *HTTPServer) handlePages(w http.ResponseWriter, r *http.Request, actor Actor, workspaceID string, rest []string) {
	if len(rest) == 0 {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
			return
		}
		var body struct {
			ParentID *string `json:"parentId"`
			Title    string  `json:"title"`
			InsertPosition
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		id, err := s.service.CreatePageAt(r.Context(), actor, workspaceID, body.ParentID, body.Title, body.InsertPosition)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"id": id})
		return
	}

	pageID := rest[0]
	rest = rest[1:]

	if len(rest) == 0 {
		switch r.Method {
		case http.MethodPatch:
			var body struct {
				Title string `json:"title"`
			}
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			s.respondOK(w, s.service.RenamePage(r.Context(), actor, workspaceID, pageID, body.Title))
		case http.MethodDelete:
			if hardDelete(r) {
				s.respondOK(w, s.service.HardDeletePage(r.Context(), actor, workspaceID, pageID))
				return
			}
			s.respondOK(w, s.service.SoftDeletePage(r.Context(), actor, workspaceID, pageID))
		default:
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		}
		return
	}

	switch {
	case len(rest) == 1 && rest[0] == "restore" && r.Method == http.MethodPost:
		s.respondOK(w, s.service.RestorePage(r.Context(), actor, workspaceID, pageID))
	case len(rest) == 1 && rest[0] == "move" && r.Method == http.MethodPost:
		var body struct {
			ParentID       *string          `json:"parentId"`
			SiblingOrder   []string         `json:"siblingOrder"`
			ExpectVersions map[string]int64 `json:"expectVersions"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		if body.SiblingOrder == nil {
			s.respondOK(w, s.service.MovePageToEnd(r.Context(), actor, workspaceID, pageID, body.ParentID))
			return
		}
		s.respondOK(w, s.service.MovePageWithOptions(r.Context(), actor, workspaceID, pageID, body.ParentID, body.SiblingOrder, MoveOptions{
			ExpectVersions: body.ExpectVersions,
		}))
	case len(rest) == 1 && rest[0] == "drop" && r.Method == http.MethodPost:
		var body struct {
			TargetID string        `json:"targetId"`
			Position pagetree.Drop `json:"position"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		s.respondOK(w, s.service.DropPage(r.Context(), actor, workspaceID, pageID, body.TargetID, body.Position))
	case len(rest) == 1 && rest[0] == "targets" && r.Method == http.MethodGet:
		targets, err := s.service.MoveTargets(r.Context(), workspaceID, pageID)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": nonNilSlice(targets)})
	case len(rest) == 1 && rest[0] == "assets" && r.Method == http.MethodPost:
		s.handleUpload(w, r, actor, workspaceID, pageID)
	case len(rest) >= 1 && rest[0] == "blocks":
		s.handleBlocks(w, r, actor, workspaceID, pageID, rest[1:])
	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
	}
}

func (s *HTTPServer) handleBlocks(w http.ResponseWriter, r *http.Request, actor Actor, workspaceID, pageID string, rest []string) {
	if len(rest) == 0 {
		if r.Method == http.MethodGet {
			items, err := s.service.ListBlocks(r.Context(), workspaceID, pageID)
			if err != nil {
				status, code, message, details := mapError(err)
				writeError(w, status, code, message, details)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"items": nonNilSlice(items)})
			return
		}

		if r.Method == http.MethodPost {
			var body struct {
				Type store.BlockType `json:"type"`
				Data map[string]any  `json:"data"`
			}
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			block, err := s.service.AddBlock(r.Context(), actor, workspaceID, pageID, body.Type, body.Data)
			if err != nil {
				status, code, message, details := mapError(err)
				writeError(w, status, code, message, details)
				return
			}
			writeJSON(w, http.StatusCreated, block)
			return
		}

		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		return
	}

	if len(rest) != 1 {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
		return
	}
	blockID := rest[0]

	switch r.Method {
	case http.MethodPatch:
		var body struct {
			Data map[string]any `json:"data"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		s.respondOK(w, s.service.UpdateBlockData(r.Context(), actor, workspaceID, pageID, blockID, body.Data))
	case http.MethodDelete:
		s.respondOK(w, s.service.RemoveBlock(r.Context(), actor, workspaceID, pageID, blockID))
	default:
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	}
}

// handleUpload stores the request body as an object and appends an image
// block pointing at it.
func (s *HTTPServer) handleUpload(w http.ResponseWriter, r *http.Request, actor Actor, workspaceID, pageID string) {
	if s.uploads == nil {
		writeError(w, http.StatusServiceUnavailable, "UPLOADS_UNAVAILABLE", "Object storage is not configured", nil)
		return
	}
	if r.ContentLength <= 0 || r.ContentLength > maxUploadBytes {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", fmt.Sprintf("upload must be between 1 and %d bytes", maxUploadBytes), nil)
		return
	}
	defer r.Body.Close()

	name := strings.TrimSpace(r.URL.Query().Get("name"))
	contentType := r.Header.Get("Content-Type")
	key, err := s.uploads.Put(r.Context(), workspaceID, pageID, name, io.LimitReader(r.Body, maxUploadBytes), r.ContentLength, contentType)
	if err != nil {
		s.log.Error().Err(err).Str("workspace", workspaceID).Str("page", pageID).Msg("upload failed")
		writeError(w, http.StatusBadGateway, "UPLOAD_FAILED", "Could not store upload", nil)
		return
	}
	block, err := s.service.AddBlock(r.Context(), actor, workspaceID, pageID, store.BlockImage, map[string]any{
		assets.ObjectKeyField: key,
		"name":               name,
		"contentType":        contentType,
	})
	if err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	url, err := s.uploads.URL(r.Context(), key, 15*time.Minute)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("presign upload url failed")
	}
	writeJSON(w, http.StatusCreated, map[string]any{"block": block, "url": url})
}

func (s *HTTPServer) respondOK(w http.ResponseWriter, err error) {
	if err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func hardDelete(r *http.Request) bool {
	hard, _ := strconv.ParseBool(r.URL.Query().Get("hard"))
	return hard
}

func nonNilSlice[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = randomRequestID()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		setCORSHeaders(writer.Header(), s.corsOrigin)
		writer.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(writer, r)

		s.log.Info().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", writer.status).
			Int64("duration_ms", time.Since(started).Milliseconds()).
			Msg("request")
	})
}

type requestIDKey struct{}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Hijack lets the WebSocket upgrader take over the connection.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return hijacker.Hijack()
}

func randomRequestID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func setCORSHeaders(header http.Header, corsOrigin string) {
	header.Set("Access-Control-Allow-Origin", corsOrigin)
	header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
	header.Set("Access-Control-Allow-Methods", "GET,POST,PUT,PATCH,DELETE,OPTIONS")
	header.Set("Cache-Control", "no-store")
	header.Set("Content-Type", "application/json")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	response := map[string]any{
		"code":  code,
		"error": message,
	}
	if details != nil {
		response["details"] = details
	}
	writeJSON(w, status, response)
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, http.ErrBodyReadAfterClose) {
			return nil
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	if errors.Is(err, auth.ErrInvalidToken) || errors.Is(err, auth.ErrExpiredToken) {
		return http.StatusUnauthorized, "NOT_AUTHENTICATED", "Not authenticated", nil
	}
	if errors.Is(err, ErrNotAuthenticated) {
		return http.StatusUnauthorized, "NOT_AUTHENTICATED", "Not authenticated", nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}
