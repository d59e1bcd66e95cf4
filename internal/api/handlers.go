package api

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"docchat/internal/core"
	"docchat/internal/index"
	"docchat/internal/llm"
)

const maxUploadBytes = 50 << 20 // 50MB

type APIHandler struct {
	sessionService *core.SessionService
}

func NewAPIHandler(ss *core.SessionService) *APIHandler {
	return &APIHandler{sessionService: ss}
}

func (h *APIHandler) CreateSessionHandler(w http.ResponseWriter, r *http.Request) {
	session := h.sessionService.StartSession()
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(session)
}

func (h *APIHandler) GetSessionHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	session, err := h.sessionService.GetSession(sessionID)
	if err != nil {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}
	json.NewEncoder(w).Encode(session)
}

func (h *APIHandler) UploadDocumentHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, "Failed to parse upload form: "+err.Error(), http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "Missing 'file' field in upload", http.StatusBadRequest)
		return
	}
	defer file.Close()

	session, err := h.sessionService.UploadDocument(r.Context(), sessionID, header.Filename, file)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrSessionNotFound):
			http.Error(w, "Session not found", http.StatusNotFound)
		case errors.Is(err, llm.ErrModelUnavailable):
			log.Printf("Embedding model unavailable during upload for session %s: %v", sessionID, err)
			http.Error(w, "Embedding model is unavailable, try again later", http.StatusBadGateway)
		case errors.Is(err, index.ErrNotFound), errors.Is(err, index.ErrCorrupt), errors.Is(err, index.ErrEmpty):
			log.Printf("Index error during upload for session %s: %v", sessionID, err)
			http.Error(w, "Failed to build the document index", http.StatusInternalServerError)
		default:
			log.Printf("Upload failed for session %s (%s): %v", sessionID, header.Filename, err)
			http.Error(w, "Could not read the uploaded document: "+err.Error(), http.StatusBadRequest)
		}
		return
	}

	json.NewEncoder(w).Encode(session)
}

type AskQuestionRequest struct {
	Question string `json:"question"`
}

func (h *APIHandler) AskQuestionHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var req AskQuestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Question == "" {
		http.Error(w, "Question cannot be empty", http.StatusBadRequest)
		return
	}

	exchange, err := h.sessionService.AskQuestion(r.Context(), sessionID, req.Question)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrSessionNotFound):
			http.Error(w, "Session not found", http.StatusNotFound)
		case errors.Is(err, core.ErrNoDocument):
			http.Error(w, "Upload a document before asking questions", http.StatusConflict)
		case errors.Is(err, llm.ErrModelUnavailable):
			log.Printf("Model unavailable for session %s: %v", sessionID, err)
			http.Error(w, "Language model is unavailable, try again later", http.StatusBadGateway)
		case errors.Is(err, index.ErrEmpty):
			http.Error(w, "The document index is empty", http.StatusConflict)
		default:
			log.Printf("Error answering question for session %s: %v", sessionID, err)
			http.Error(w, "Failed to answer the question", http.StatusInternalServerError)
		}
		return
	}

	json.NewEncoder(w).Encode(exchange)
}

type LoadHistoryRequest struct {
	Limit int64 `json:"limit,omitempty"`
}

// LoadHistoryHandler replaces the session's in-memory log with the most
// recent persisted records and returns the new log.
func (h *APIHandler) LoadHistoryHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var req LoadHistoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	exchanges, err := h.sessionService.LoadHistory(r.Context(), sessionID, req.Limit)
	if err != nil {
		if errors.Is(err, core.ErrSessionNotFound) {
			http.Error(w, "Session not found", http.StatusNotFound)
			return
		}
		log.Printf("Error loading history for session %s: %v", sessionID, err)
		http.Error(w, "Failed to load history", http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(exchanges)
}
