package fakeapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bnema/fleet-cli/internal/domain"
	"github.com/bnema/fleet-cli/internal/ports"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

const (
	defaultAccessTTL = 5 * time.Minute
	defaultPageSize  = 20
)

// Resources served by every Server.
var Resources = []string{"devices", "tickets", "users", "gps", "plc"}

// Resources answering lists as a bare array instead of the envelope.
var bareArrayResources = map[string]bool{"gps": true}

var searchable = map[string]bool{"devices": true, "users": true}
var withStats = map[string]bool{"devices": true, "tickets": true}

type Account struct {
	Username string
	Password string
	Profile  domain.UserProfile
}

type Options struct {
	Secret    []byte
	AccessTTL time.Duration
	Accounts  []Account
	Clock     ports.Clock
	Logger    *zerolog.Logger
	// LongTokenFields answers with access_token/refresh_token instead of
	// access/refresh.
	LongTokenFields bool
	// OmitUser leaves the user out of token responses.
	OmitUser bool
}

// Server is an in-memory fleet API. Refresh tokens are single use and rotate
// on every refresh.
type Server struct {
	mu         sync.Mutex
	secret     []byte
	accessTTL  time.Duration
	clock      ports.Clock
	logger     zerolog.Logger
	longFields bool
	omitUser   bool
	generation int

	accounts      map[string]Account
	refreshTokens map[string]string
	collections   map[string]*collection
	idempotent    map[string]storedResponse

	router       *mux.Router
	refreshCalls atomic.Int64
	loginCalls   atomic.Int64
}

type storedResponse struct {
	status int
	body   []byte
}

func New(opts Options) *Server {
	s := &Server{
		secret:        opts.Secret,
		accessTTL:     opts.AccessTTL,
		clock:         opts.Clock,
		logger:        zerolog.Nop(),
		longFields:    opts.LongTokenFields,
		omitUser:      opts.OmitUser,
		accounts:      map[string]Account{},
		refreshTokens: map[string]string{},
		collections:   map[string]*collection{},
		idempotent:    map[string]storedResponse{},
	}
	if len(s.secret) == 0 {
		s.secret = []byte(uuid.NewString())
	}
	if s.accessTTL <= 0 {
		s.accessTTL = defaultAccessTTL
	}
	if opts.Logger != nil {
		s.logger = opts.Logger.With().Str("component", "fakeapi").Logger()
	}
	if s.clock == nil {
		s.clock = ports.SystemClock{}
	}
	for _, name := range Resources {
		s.collections[name] = newCollection()
	}
	for _, account := range opts.Accounts {
		s.addAccount(account)
	}

	s.router = s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) RefreshCalls() int {
	return int(s.refreshCalls.Load())
}

func (s *Server) LoginCalls() int {
	return int(s.loginCalls.Load())
}

// ExpireAccessTokens makes every access token issued so far answer 401.
// Refresh tokens stay valid.
func (s *Server) ExpireAccessTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.generation++
}

// Seed inserts records into a resource and returns the ids it assigned.
func (s *Server) Seed(resource string, records ...map[string]any) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	coll, ok := s.collections[resource]
	if !ok {
		return nil
	}
	ids := make([]string, 0, len(records))
	for _, r := range records {
		copied := map[string]any{}
		for k, v := range r {
			copied[k] = v
		}
		id, _ := copied["id"].(string)
		if id == "" {
			id = uuid.NewString()
		}
		coll.insert(id, copied)
		ids = append(ids, id)
	}
	return ids
}

func (s *Server) addAccount(account Account) {
	if account.Profile.ID == "" {
		account.Profile.ID = uuid.NewString()
	}
	if account.Profile.Username == "" {
		account.Profile.Username = account.Username
	}
	s.accounts[account.Username] = account
	s.collections["users"].insert(account.Profile.ID, map[string]any{
		"username":      account.Profile.Username,
		"email":         account.Profile.Email,
		"first_name":    account.Profile.FirstName,
		"last_name":     account.Profile.LastName,
		"role":          account.Profile.Role,
		"customer_Name": account.Profile.CustomerName,
		"is_active":     true,
	})
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.logRequests)

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	r.HandleFunc("/auth/login", s.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/auth/refresh", s.handleRefresh).Methods(http.MethodPost)
	r.HandleFunc("/auth/logout", s.authenticated(s.handleLogout)).Methods(http.MethodPost)
	r.HandleFunc("/auth/me", s.authenticated(s.handleMe)).Methods(http.MethodGet)

	for _, name := range Resources {
		base := "/" + name + "/"
		if searchable[name] {
			r.HandleFunc(base+"search/", s.authenticated(s.handleSearch(name))).Methods(http.MethodGet)
		}
		if withStats[name] {
			r.HandleFunc(base+"stats/", s.authenticated(s.handleStats(name))).Methods(http.MethodGet)
		}
		r.HandleFunc(base, s.authenticated(s.handleList(name))).Methods(http.MethodGet)
		r.HandleFunc(base, s.authenticated(s.handleCreate(name))).Methods(http.MethodPost)
		r.HandleFunc(base+"{id}/", s.authenticated(s.handleGet(name))).Methods(http.MethodGet)
		r.HandleFunc(base+"{id}/", s.authenticated(s.handleUpdate(name))).Methods(http.MethodPut, http.MethodPatch)
		r.HandleFunc(base+"{id}/", s.authenticated(s.handleDelete(name))).Methods(http.MethodDelete)
	}

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeDetail(w, http.StatusNotFound, "Not found.")
	})
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("request_id", r.Header.Get("X-Request-ID")).
			Dur("elapsed", time.Since(start)).
			Msg("fake api request")
	})
}

type authedHandler func(w http.ResponseWriter, r *http.Request, claims accessClaims)

func (s *Server) authenticated(next authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		claims, err := s.verifyAccess(r.Header.Get("Authorization"))
		s.mu.Unlock()
		if err != nil {
			writeDetail(w, http.StatusUnauthorized, "Given token not valid for any token type")
			return
		}
		next(w, r, claims)
	}
}

type loginBody struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	RememberMe bool   `json:"rememberMe"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	s.loginCalls.Add(1)

	var body loginBody
	if err := decodeBody(r, &body); err != nil {
		writeDetail(w, http.StatusBadRequest, "Malformed request body.")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[body.Username]
	if !ok || account.Password != body.Password {
		writeDetail(w, http.StatusUnauthorized, "No active account found with the given credentials")
		return
	}
	s.issueTokens(w, account.Profile)
}

type refreshBody struct {
	Refresh string `json:"refresh"`
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.refreshCalls.Add(1)

	var body refreshBody
	if err := decodeBody(r, &body); err != nil || body.Refresh == "" {
		writeDetail(w, http.StatusBadRequest, "This field is required.")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	username, ok := s.refreshTokens[body.Refresh]
	if !ok {
		writeDetail(w, http.StatusUnauthorized, "Token is invalid or expired")
		return
	}
	delete(s.refreshTokens, body.Refresh)
	s.issueTokens(w, s.accounts[username].Profile)
}

// issueTokens must be called with s.mu held.
func (s *Server) issueTokens(w http.ResponseWriter, profile domain.UserProfile) {
	access, err := s.mintAccess(profile)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}
	refresh := uuid.NewString()
	s.refreshTokens[refresh] = profile.Username

	payload := map[string]any{}
	if s.longFields {
		payload["access_token"] = access
		payload["refresh_token"] = refresh
	} else {
		payload["access"] = access
		payload["refresh"] = refresh
	}
	if !s.omitUser {
		payload["user"] = profile
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleLogout(w http.ResponseWriter, _ *http.Request, claims accessClaims) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for token, username := range s.refreshTokens {
		if username == claims.Username {
			delete(s.refreshTokens, token)
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMe(w http.ResponseWriter, _ *http.Request, claims accessClaims) {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[claims.Username]
	if !ok {
		writeDetail(w, http.StatusNotFound, "Not found.")
		return
	}
	writeJSON(w, http.StatusOK, account.Profile)
}

func (s *Server) handleList(name string) authedHandler {
	return func(w http.ResponseWriter, r *http.Request, _ accessClaims) {
		query := r.URL.Query()
		page := positiveInt(query.Get("page"), 1)
		pageSize := positiveInt(query.Get("page_size"), defaultPageSize)

		s.mu.Lock()
		rows := s.collections[name].filter(filtersFrom(query))
		s.mu.Unlock()

		if bareArrayResources[name] {
			writeJSON(w, http.StatusOK, rows)
			return
		}

		total := len(rows)
		totalPages := (total + pageSize - 1) / pageSize
		start := min((page-1)*pageSize, total)
		end := min(start+pageSize, total)

		meta := domain.ListMeta{
			Total:      total,
			TotalPages: totalPages,
			Page:       page,
			PageSize:   pageSize,
			HasNext:    page < totalPages,
			HasPrev:    page > 1,
		}
		if meta.HasNext {
			next := page + 1
			meta.NextPage = &next
		}
		if meta.HasPrev {
			prev := page - 1
			meta.PrevPage = &prev
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": rows[start:end], "meta": meta})
	}
}

func (s *Server) handleSearch(name string) authedHandler {
	return func(w http.ResponseWriter, r *http.Request, _ accessClaims) {
		query := r.URL.Query()
		limit := positiveInt(query.Get("limit"), defaultPageSize)

		s.mu.Lock()
		rows := s.collections[name].search(query.Get("q"), filtersFrom(query))
		s.mu.Unlock()

		if len(rows) > limit {
			rows = rows[:limit]
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": rows})
	}
}

func (s *Server) handleStats(name string) authedHandler {
	return func(w http.ResponseWriter, r *http.Request, _ accessClaims) {
		s.mu.Lock()
		stats := s.collections[name].stats(filtersFrom(r.URL.Query()))
		s.mu.Unlock()

		writeJSON(w, http.StatusOK, stats)
	}
}

func (s *Server) handleGet(name string) authedHandler {
	return func(w http.ResponseWriter, r *http.Request, _ accessClaims) {
		s.mu.Lock()
		row, ok := s.collections[name].get(mux.Vars(r)["id"])
		s.mu.Unlock()

		if !ok {
			writeDetail(w, http.StatusNotFound, "Not found.")
			return
		}
		writeJSON(w, http.StatusOK, row)
	}
}

func (s *Server) handleCreate(name string) authedHandler {
	return func(w http.ResponseWriter, r *http.Request, _ accessClaims) {
		var body map[string]any
		if err := decodeBody(r, &body); err != nil || body == nil {
			writeDetail(w, http.StatusBadRequest, "Malformed request body.")
			return
		}

		s.mu.Lock()
		defer s.mu.Unlock()

		key := r.Header.Get("Idempotency-Key")
		if stored, seen := s.idempotent[key]; key != "" && seen {
			writeRaw(w, stored.status, stored.body)
			return
		}

		if name == "devices" {
			if serial, _ := body["serial"].(string); serial != "" && s.serialTaken(serial) {
				writeJSON(w, http.StatusBadRequest, map[string]any{"serial": []string{"device with this serial already exists."}, "message": "serial already registered"})
				return
			}
		}

		created := s.collections[name].insert(uuid.NewString(), body)
		encoded, _ := json.Marshal(created)
		if key != "" {
			s.idempotent[key] = storedResponse{status: http.StatusCreated, body: encoded}
		}
		writeRaw(w, http.StatusCreated, encoded)
	}
}

func (s *Server) serialTaken(serial string) bool {
	for _, row := range s.collections["devices"].records {
		if existing, _ := row["serial"].(string); strings.EqualFold(existing, serial) {
			return true
		}
	}
	return false
}

// PUT and PATCH both merge; the fleet API keeps fields a PUT omits.
func (s *Server) handleUpdate(name string) authedHandler {
	return func(w http.ResponseWriter, r *http.Request, _ accessClaims) {
		var body map[string]any
		if err := decodeBody(r, &body); err != nil {
			writeDetail(w, http.StatusBadRequest, "Malformed request body.")
			return
		}

		s.mu.Lock()
		defer s.mu.Unlock()

		row, ok := s.collections[name].patch(mux.Vars(r)["id"], body)
		if !ok {
			writeDetail(w, http.StatusNotFound, "Not found.")
			return
		}
		writeJSON(w, http.StatusOK, row)
	}
}

func (s *Server) handleDelete(name string) authedHandler {
	return func(w http.ResponseWriter, r *http.Request, _ accessClaims) {
		s.mu.Lock()
		defer s.mu.Unlock()

		if !s.collections[name].remove(mux.Vars(r)["id"]) {
			writeDetail(w, http.StatusNotFound, "Not found.")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

var reservedParams = map[string]bool{"page": true, "page_size": true, "q": true, "limit": true}

func filtersFrom(query map[string][]string) map[string]string {
	filters := map[string]string{}
	for key, values := range query {
		if reservedParams[key] || len(values) == 0 {
			continue
		}
		filters[key] = values[0]
	}
	return filters
}

func positiveInt(raw string, fallback int) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func decodeBody(r *http.Request, target any) error {
	data, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return errors.New("empty body")
	}
	return json.Unmarshal(data, target)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeRaw(w, status, encoded)
}

func writeRaw(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
