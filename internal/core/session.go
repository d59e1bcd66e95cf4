package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"docchat/internal/chunker"
	"docchat/internal/index"
	"docchat/internal/llm"
	"docchat/internal/pdf"
	"docchat/internal/store"
)

var (
	// ErrSessionNotFound means the session identifier is unknown.
	ErrSessionNotFound = errors.New("session not found")
	// ErrNoDocument means a question arrived before any document was
	// uploaded and indexed.
	ErrNoDocument = errors.New("no document uploaded yet")
)

// State is the session lifecycle phase.
type State string

const (
	StateIdle          State = "idle"
	StateIndexBuilding State = "index_building"
	StateReady         State = "ready"
)

// Exchange is one answered question held in the in-memory session log.
type Exchange struct {
	Question string            `json:"question"`
	Answer   string            `json:"answer"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Session holds the per-session state: identity, lifecycle phase, the name of
// the indexed document, the in-memory message log and the built engine.
type Session struct {
	ID       string     `json:"id"`
	State    State      `json:"state"`
	Document string     `json:"document,omitempty"`
	Log      []Exchange `json:"log"`

	engine *AnswerEngine
}

// ConversationStore is the narrow persistence contract the controller needs.
type ConversationStore interface {
	Save(ctx context.Context, sessionID, question, answer string, metadata map[string]string) error
	History(ctx context.Context, sessionID string, limit int64) ([]store.ConversationRecord, error)
}

// SessionConfig carries the orchestration settings.
type SessionConfig struct {
	UploadDir    string
	IndexPath    string
	ChunkSize    int
	ChunkOverlap int
	TopK         int
	HistoryLimit int
}

// SessionService orchestrates sessions: uploads, index builds, question
// answering and history. Conversation persistence is best-effort; a failed
// save or history read degrades to a logged warning.
type SessionService struct {
	mu       sync.Mutex
	sessions map[string]*Session

	cfg           SessionConfig
	embedder      llm.Embedder
	generator     llm.Generator
	builder       *index.Builder
	conversations ConversationStore
}

// NewSessionService wires the controller. conversations may be nil when the
// store connection failed at startup; the service then runs in degraded mode.
func NewSessionService(cfg SessionConfig, embedder llm.Embedder, generator llm.Generator, conversations ConversationStore) *SessionService {
	return &SessionService{
		sessions:      make(map[string]*Session),
		cfg:           cfg,
		embedder:      embedder,
		generator:     generator,
		builder:       index.NewBuilder(embedder),
		conversations: conversations,
	}
}

// StartSession creates a new idle session with a unique identifier.
func (s *SessionService) StartSession() *Session {
	session := &Session{
		ID:    uuid.NewString(),
		State: StateIdle,
		Log:   []Exchange{},
	}
	s.mu.Lock()
	s.sessions[session.ID] = session
	s.mu.Unlock()
	return session
}

// GetSession looks up a session by identifier.
func (s *SessionService) GetSession(sessionID string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// UploadDocument persists the uploaded PDF, extracts and chunks its text,
// builds the embedding index and loads the answer engine. The whole pipeline
// runs synchronously; on any failure the session returns to idle with no
// partial state.
func (s *SessionService) UploadDocument(ctx context.Context, sessionID, filename string, file io.Reader) (*Session, error) {
	session, err := s.GetSession(sessionID)
	if err != nil {
		return nil, err
	}

	s.setState(session, StateIndexBuilding)

	path, err := s.saveUpload(filename, file)
	if err != nil {
		s.resetToIdle(session)
		return nil, fmt.Errorf("failed to store upload: %w", err)
	}

	text, err := pdf.ExtractText(path)
	if err != nil {
		s.resetToIdle(session)
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		s.resetToIdle(session)
		return nil, fmt.Errorf("document %s contains no extractable text", filepath.Base(filename))
	}

	passages, err := chunker.Split(text, s.cfg.ChunkSize, s.cfg.ChunkOverlap)
	if err != nil {
		s.resetToIdle(session)
		return nil, err
	}

	if err := s.builder.Build(ctx, s.cfg.IndexPath, passages); err != nil {
		s.resetToIdle(session)
		return nil, err
	}

	idx, err := s.builder.Load(ctx, s.cfg.IndexPath)
	if err != nil {
		s.resetToIdle(session)
		return nil, err
	}

	engine, err := NewAnswerEngine(idx, s.embedder, s.generator, s.cfg.TopK)
	if err != nil {
		s.resetToIdle(session)
		return nil, err
	}

	s.mu.Lock()
	session.Document = filepath.Base(filename)
	session.engine = engine
	session.State = StateReady
	s.mu.Unlock()

	log.Printf("Session %s ready: indexed %d passages from %s", session.ID, idx.Len(), session.Document)
	return session, nil
}

// AskQuestion answers via the session's engine, appends the exchange to the
// in-memory log and saves it to the conversation store. Persistence failures
// never affect the returned answer.
func (s *SessionService) AskQuestion(ctx context.Context, sessionID, question string) (Exchange, error) {
	session, err := s.GetSession(sessionID)
	if err != nil {
		return Exchange{}, err
	}

	s.mu.Lock()
	engine := session.engine
	ready := session.State == StateReady
	document := session.Document
	s.mu.Unlock()

	if !ready || engine == nil {
		return Exchange{}, ErrNoDocument
	}

	answer, err := engine.Answer(ctx, question)
	if err != nil {
		return Exchange{}, err
	}

	exchange := Exchange{
		Question: question,
		Answer:   answer,
		Metadata: map[string]string{"pdf_name": document},
	}

	s.mu.Lock()
	session.Log = append(session.Log, exchange)
	s.mu.Unlock()

	s.saveExchange(ctx, session.ID, exchange)
	return exchange, nil
}

// LoadHistory replaces the in-memory log with the most recent persisted
// records, newest first. When the store is unreachable the log becomes empty
// and a warning is logged; the caller never sees an error for that.
func (s *SessionService) LoadHistory(ctx context.Context, sessionID string, limit int64) ([]Exchange, error) {
	session, err := s.GetSession(sessionID)
	if err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = int64(s.cfg.HistoryLimit)
	}

	exchanges := []Exchange{}
	if s.conversations == nil {
		log.Printf("Warning: conversation store unavailable, returning empty history for session %s", sessionID)
	} else {
		records, err := s.conversations.History(ctx, sessionID, limit)
		if err != nil {
			log.Printf("Warning: failed to load history for session %s: %v", sessionID, err)
		}
		for _, r := range records {
			exchanges = append(exchanges, Exchange{
				Question: r.Question,
				Answer:   r.Answer,
				Metadata: r.Metadata,
			})
		}
	}

	s.mu.Lock()
	session.Log = exchanges
	s.mu.Unlock()
	return exchanges, nil
}

func (s *SessionService) saveExchange(ctx context.Context, sessionID string, exchange Exchange) {
	if s.conversations == nil {
		log.Printf("Warning: conversation store unavailable, exchange for session %s not persisted", sessionID)
		return
	}
	if err := s.conversations.Save(ctx, sessionID, exchange.Question, exchange.Answer, exchange.Metadata); err != nil {
		log.Printf("Warning: failed to save conversation for session %s: %v", sessionID, err)
	}
}

func (s *SessionService) saveUpload(filename string, file io.Reader) (string, error) {
	if err := os.MkdirAll(s.cfg.UploadDir, 0o755); err != nil {
		return "", err
	}

	// Stored under the original name; a re-upload of the same name simply
	// overwrites.
	path := filepath.Join(s.cfg.UploadDir, filepath.Base(filename))
	dst, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		return "", err
	}
	return path, nil
}

func (s *SessionService) setState(session *Session, state State) {
	s.mu.Lock()
	session.State = state
	s.mu.Unlock()
}

func (s *SessionService) resetToIdle(session *Session) {
	s.mu.Lock()
	session.State = StateIdle
	session.engine = nil
	session.Document = ""
	s.mu.Unlock()
}
