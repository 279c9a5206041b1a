package main

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"mcqgen"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/sessions"
)

const (
	cookieName     = "mcqgen-session"
	browserIDKey   = "browser_id"
	maxUploadBytes = 32 << 20

	// DefaultIdleTimeout is how long an unused browser session stays in memory
	DefaultIdleTimeout = 30 * time.Minute
)

// Server exposes one mcqgen.Session per browser over a JSON API. Each
// browser's state lives under its own scope in the shared store, so a
// session evicted after IdleTimeout is rebuilt from the store on the
// browser's next request.
type Server struct {
	store     mcqgen.KVStore
	cookies   sessions.Store
	generator *mcqgen.Generator
	ingestor  *mcqgen.Ingestor

	IdleTimeout time.Duration
	now         func() time.Time

	mu       sync.Mutex
	sessions map[string]*browserSession
}

type browserSession struct {
	session  *mcqgen.Session
	lastSeen time.Time
}

// NewServer creates a server over store
func NewServer(store mcqgen.KVStore, cookies sessions.Store, generator *mcqgen.Generator, ingestor *mcqgen.Ingestor) *Server {
	return &Server{
		store:       store,
		cookies:     cookies,
		generator:   generator,
		ingestor:    ingestor,
		IdleTimeout: DefaultIdleTimeout,
		now:         time.Now,
		sessions:    make(map[string]*browserSession),
	}
}

// Routes returns the HTTP handler
func (s *Server) Routes() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/state", s.withSession(s.handleState)).Methods(http.MethodGet)
	api.HandleFunc("/content/text", s.withSession(s.handleIngestText)).Methods(http.MethodPost)
	api.HandleFunc("/content/document", s.withSession(s.handleIngestDocument)).Methods(http.MethodPost)
	api.HandleFunc("/config", s.withSession(s.handleSetConfig)).Methods(http.MethodPut)
	api.HandleFunc("/generate", s.withSession(s.handleGenerate)).Methods(http.MethodPost)
	api.HandleFunc("/questions/{id}", s.withSession(s.handleDeleteQuestion)).Methods(http.MethodDelete)
	api.HandleFunc("/questions/{id}/edit", s.withSession(s.handleBeginEdit)).Methods(http.MethodPost)
	api.HandleFunc("/questions/{id}/draft", s.withSession(s.handleUpdateDraft)).Methods(http.MethodPatch)
	api.HandleFunc("/questions/{id}/draft", s.withSession(s.handleCancelEdit)).Methods(http.MethodDelete)
	api.HandleFunc("/questions/{id}/commit", s.withSession(s.handleCommitEdit)).Methods(http.MethodPost)
	api.HandleFunc("/export", s.withSession(s.handleExport)).Methods(http.MethodGet)
	api.HandleFunc("/key", s.withSession(s.handleKeyStatus)).Methods(http.MethodGet)
	api.HandleFunc("/key", s.withSession(s.handleSetKey)).Methods(http.MethodPut)
	api.HandleFunc("/key", s.withSession(s.handleClearKey)).Methods(http.MethodDelete)
	api.HandleFunc("/reset", s.withSession(s.handleReset)).Methods(http.MethodPost)
	return r
}

type sessionHandler func(w http.ResponseWriter, r *http.Request, session *mcqgen.Session)

// withSession resolves the browser cookie to its Session, creating both on
// first contact.
func (s *Server) withSession(h sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, _ := s.cookies.Get(r, cookieName)
		browserID, _ := cookie.Values[browserIDKey].(string)
		if browserID == "" {
			browserID = uuid.NewString()
			cookie.Values[browserIDKey] = browserID
			if err := cookie.Save(r, w); err != nil {
				log.Printf("Session save error: %v", err)
			}
		}
		h(w, r, s.sessionFor(r, browserID))
	}
}

func (s *Server) sessionFor(r *http.Request, browserID string) *mcqgen.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if bs, ok := s.sessions[browserID]; ok {
		bs.lastSeen = now
		return bs.session
	}

	s.evictIdleLocked(now)
	scoped := mcqgen.NewScopedStore(s.store, "browser:"+browserID)
	session := mcqgen.NewSession(r.Context(), scoped, s.generator, s.ingestor)
	s.sessions[browserID] = &browserSession{session: session, lastSeen: now}
	return session
}

// evictIdleLocked drops sessions unused for longer than IdleTimeout. Their
// state is already in the store.
func (s *Server) evictIdleLocked(now time.Time) {
	if s.IdleTimeout <= 0 {
		return
	}
	for id, bs := range s.sessions {
		if now.Sub(bs.lastSeen) > s.IdleTimeout {
			bs.session.Close()
			delete(s.sessions, id)
		}
	}
	mcqgen.VerboseLog("%d browser sessions in memory", len(s.sessions))
}

// activeSessions reports how many sessions are held in memory
func (s *Server) activeSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

type stateResponse struct {
	Origin    mcqgen.ContentOrigin    `json:"origin"`
	Config    mcqgen.GenerationConfig `json:"config"`
	Questions []mcqgen.Question       `json:"questions"`
	HasKey    bool                    `json:"hasKey"`
	Draft     *mcqgen.Question        `json:"draft,omitempty"`
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request, session *mcqgen.Session) {
	snap := session.Snapshot()
	status, err := session.Credentials().Status(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	resp := stateResponse{
		Origin:    snap.Origin,
		Config:    snap.Config,
		Questions: snap.Questions,
		HasKey:    status.HasKey,
	}
	if d := session.OpenDraft(); d != nil {
		q := d.Question()
		resp.Draft = &q
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleIngestText(w http.ResponseWriter, r *http.Request, session *mcqgen.Session) {
	var body struct {
		Text string `json:"text"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	origin, err := session.IngestText(r.Context(), body.Text)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, origin)
}

func (s *Server) handleIngestDocument(w http.ResponseWriter, r *http.Request, session *mcqgen.Session) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing file upload"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "failed to read upload"})
		return
	}

	origin, err := session.IngestDocument(r.Context(), data, header.Header.Get("Content-Type"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, origin)
}

func (s *Server) handleSetConfig(w http.ResponseWriter, r *http.Request, session *mcqgen.Session) {
	var cfg mcqgen.GenerationConfig
	if !decodeJSON(w, r, &cfg) {
		return
	}
	if err := session.SetConfig(r.Context(), cfg); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request, session *mcqgen.Session) {
	questions, err := session.Generate(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, questions)
}

func (s *Server) handleBeginEdit(w http.ResponseWriter, r *http.Request, session *mcqgen.Session) {
	draft, err := session.BeginEdit(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, draft.Question())
}

func (s *Server) handleUpdateDraft(w http.ResponseWriter, r *http.Request, session *mcqgen.Session) {
	draft, ok := openDraft(w, r, session)
	if !ok {
		return
	}
	var body struct {
		Field       mcqgen.DraftField `json:"field"`
		Value       string            `json:"value"`
		OptionIndex int               `json:"optionIndex"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if err := draft.Update(body.Field, body.Value, body.OptionIndex); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, draft.Question())
}

func (s *Server) handleCommitEdit(w http.ResponseWriter, r *http.Request, session *mcqgen.Session) {
	draft, ok := openDraft(w, r, session)
	if !ok {
		return
	}
	if err := session.CommitEdit(r.Context(), draft); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, draft.Question())
}

func (s *Server) handleCancelEdit(w http.ResponseWriter, r *http.Request, session *mcqgen.Session) {
	if _, ok := openDraft(w, r, session); !ok {
		return
	}
	session.CancelEdit()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteQuestion(w http.ResponseWriter, r *http.Request, session *mcqgen.Session) {
	if err := session.DeleteQuestion(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request, session *mcqgen.Session) {
	data, err := mcqgen.ExportCSV(session.Questions())
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", mcqgen.ExportMIMEType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+mcqgen.ExportFilename+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (s *Server) handleKeyStatus(w http.ResponseWriter, r *http.Request, session *mcqgen.Session) {
	status, err := session.Credentials().Status(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleSetKey(w http.ResponseWriter, r *http.Request, session *mcqgen.Session) {
	var body struct {
		Key string `json:"key"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if err := session.Credentials().SetKey(r.Context(), body.Key); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mcqgen.KeyStatus{HasKey: true})
}

func (s *Server) handleClearKey(w http.ResponseWriter, r *http.Request, session *mcqgen.Session) {
	if err := session.Credentials().ClearKey(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mcqgen.KeyStatus{HasKey: false})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request, session *mcqgen.Session) {
	if err := session.Reset(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// openDraft returns the open draft if it belongs to the question in the URL.
func openDraft(w http.ResponseWriter, r *http.Request, session *mcqgen.Session) (*mcqgen.Draft, bool) {
	draft := session.OpenDraft()
	if draft == nil || draft.ID() != mux.Vars(r)["id"] {
		writeError(w, mcqgen.ErrDraftDiscarded)
		return nil, false
	}
	return draft, true
}

type errorResponse struct {
	Error string `json:"error"`
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to write response: %v", err)
	}
}

// writeError turns a session error into a dismissible JSON notification.
func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Printf("Request failed: %v", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, mcqgen.ErrEmptyInput),
		errors.Is(err, mcqgen.ErrNoContent),
		errors.Is(err, mcqgen.ErrInvalidConfig),
		errors.Is(err, mcqgen.ErrInvalidField),
		errors.Is(err, mcqgen.ErrInvalidKey):
		return http.StatusBadRequest
	case errors.Is(err, mcqgen.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, mcqgen.ErrExtraction):
		return http.StatusUnprocessableEntity
	case errors.Is(err, mcqgen.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, mcqgen.ErrDraftDiscarded),
		errors.Is(err, mcqgen.ErrSuperseded):
		return http.StatusConflict
	case errors.Is(err, mcqgen.ErrGenerationService):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
