package testing

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/desertthunder/botanica/internal/models"
	"github.com/desertthunder/botanica/internal/shared"
	"github.com/gorilla/mux"
)

// ValidIDToken is the identity credential a [FakeBackend] accepts by default.
const ValidIDToken = "valid-id-token"

// FakeBackend is an in-memory implementation of the sync backend served over [httptest.Server].
//
// Requests are counted per "METHOD /route/template" so tests can assert how many round trips an
// operation made.
type FakeBackend struct {
	server *httptest.Server
	paths  shared.BackendPaths

	mu           sync.Mutex
	idToken      string
	sessionToken string
	userName     string
	userPicture  string
	unauthorized bool
	numericIDs   bool
	nextID       int
	data         models.MainData
	subs         []models.Subcategory
	counts       map[string]int
	lastAuth     string
}

// FakeOption configures a [FakeBackend].
type FakeOption func(*FakeBackend)

// WithSessionToken makes login answer with the {token, user} shape and require that token as bearer.
func WithSessionToken(token string) FakeOption {
	return func(f *FakeBackend) { f.sessionToken = token }
}

// WithUser sets the profile returned on login. An empty name omits it from the response.
func WithUser(name, picture string) FakeOption {
	return func(f *FakeBackend) { f.userName = name; f.userPicture = picture }
}

// WithNumericIDs encodes subcategory ids as JSON numbers.
func WithNumericIDs() FakeOption {
	return func(f *FakeBackend) { f.numericIDs = true }
}

// WithPaths serves the backend under non-default endpoint paths.
func WithPaths(p shared.BackendPaths) FakeOption {
	return func(f *FakeBackend) { f.paths = p.WithDefaults() }
}

// NewFakeBackend starts a fake backend that is closed when the test ends.
// Ids are assigned from 42 upwards.
func NewFakeBackend(t *testing.T, opts ...FakeOption) *FakeBackend {
	t.Helper()

	f := &FakeBackend{
		paths:    shared.BackendPaths{}.WithDefaults(),
		idToken:  ValidIDToken,
		userName: "Ana",
		nextID:   42,
		data:     models.NewMainData(),
		counts:   map[string]int{},
	}
	for _, opt := range opts {
		opt(f)
	}

	f.server = httptest.NewServer(f.router())
	t.Cleanup(f.server.Close)
	return f
}

// URL returns the base URL of the fake backend.
func (f *FakeBackend) URL() string { return f.server.URL }

// Client returns an HTTP client for the fake backend.
func (f *FakeBackend) Client() *http.Client { return f.server.Client() }

// Bearer returns the credential protected routes accept.
func (f *FakeBackend) Bearer() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sessionToken != "" {
		return f.sessionToken
	}
	return f.idToken
}

// SetUnauthorized makes every protected route answer 401.
func (f *FakeBackend) SetUnauthorized(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unauthorized = v
}

// Seed appends subcategories, assigning ids to those without one.
func (f *FakeBackend) Seed(subs ...models.Subcategory) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range subs {
		if s.ID == "" {
			s.ID = f.assignID()
		}
		f.subs = append(f.subs, s)
	}
}

// Subcategories returns a copy of the stored list.
func (f *FakeBackend) Subcategories() []models.Subcategory {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.subs)
}

// SetMainData replaces the stored main data record.
func (f *FakeBackend) SetMainData(d models.MainData) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data = d.Clone()
}

// MainData returns a copy of the stored main data record.
func (f *FakeBackend) MainData() models.MainData {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.data.Clone()
}

// Count returns how many requests matched route, e.g. "GET /subcategories/{id}".
func (f *FakeBackend) Count(route string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts[route]
}

// Total returns the number of requests received on any route.
func (f *FakeBackend) Total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.counts {
		n += c
	}
	return n
}

// LastAuthorization returns the Authorization header of the most recent request.
func (f *FakeBackend) LastAuthorization() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastAuth
}

func (f *FakeBackend) assignID() models.ID {
	id := models.ID(strconv.Itoa(f.nextID))
	f.nextID++
	return id
}

func (f *FakeBackend) router() *mux.Router {
	r := mux.NewRouter()
	r.UseEncodedPath()
	r.Use(f.count)

	r.HandleFunc(f.paths.Login, f.login).Methods(http.MethodPost)
	r.HandleFunc(f.paths.Logout, f.logout).Methods(http.MethodPost)

	api := r.NewRoute().Subrouter()
	api.Use(f.authenticate)
	api.HandleFunc(f.paths.LoadData, f.loadData).Methods(http.MethodGet)
	api.HandleFunc(f.paths.SaveData, f.saveData).Methods(http.MethodPost)
	api.HandleFunc(f.paths.Subcategories, f.listSubcategories).Methods(http.MethodGet)
	api.HandleFunc(f.paths.Subcategories, f.createSubcategory).Methods(http.MethodPost)
	api.HandleFunc(f.paths.Subcategories+"/{id}", f.getSubcategory).Methods(http.MethodGet)
	api.HandleFunc(f.paths.Subcategories+"/{id}", f.updateSubcategory).Methods(http.MethodPut)
	api.HandleFunc(f.paths.Subcategories+"/{id}", f.deleteSubcategory).Methods(http.MethodDelete)
	return r
}

func (f *FakeBackend) count(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tpl := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if t, err := route.GetPathTemplate(); err == nil {
				tpl = t
			}
		}

		f.mu.Lock()
		f.counts[r.Method+" "+tpl]++
		f.lastAuth = r.Header.Get("Authorization")
		f.mu.Unlock()

		next.ServeHTTP(w, r)
	})
}

func (f *FakeBackend) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		unauthorized := f.unauthorized
		f.mu.Unlock()

		bearer := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if unauthorized || bearer != f.Bearer() {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"status": "error", "message": "Unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (f *FakeBackend) login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		IDToken string `json:"id_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"status": "error", "message": "Malformed request"})
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if body.IDToken != f.idToken {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"status": "error", "message": "Invalid Google token"})
		return
	}

	if f.sessionToken != "" {
		user := map[string]any{}
		if f.userName != "" {
			user["name"] = f.userName
		}
		if f.userPicture != "" {
			user["picture"] = f.userPicture
		}
		writeJSON(w, http.StatusOK, map[string]any{"token": f.sessionToken, "user": user})
		return
	}

	resp := map[string]any{"status": "success", "message": "Login successful"}
	if f.userName != "" {
		resp["user_name"] = f.userName
	}
	if f.userPicture != "" {
		resp["user_picture"] = f.userPicture
	}
	writeJSON(w, http.StatusOK, resp)
}

func (f *FakeBackend) logout(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"message": "Logged out"})
}

func (f *FakeBackend) loadData(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	resp := map[string]any{"message": "Data loaded"}
	for k, v := range f.data {
		resp[k] = v
	}
	writeJSON(w, http.StatusOK, resp)
}

func (f *FakeBackend) saveData(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"status": "error", "message": "Malformed request"})
		return
	}

	f.mu.Lock()
	f.data = models.NormalizeMainData(body)
	f.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "message": "Data saved"})
}

func (f *FakeBackend) listSubcategories(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	items := make([]map[string]any, 0, len(f.subs))
	for _, s := range f.subs {
		items = append(items, f.encode(s))
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "subcategories": items})
}

func (f *FakeBackend) getSubcategory(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)

	f.mu.Lock()
	defer f.mu.Unlock()

	i := models.IndexOf(f.subs, id)
	if i < 0 {
		writeJSON(w, http.StatusNotFound, map[string]any{"status": "error", "message": "Subcategory not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "subcategory": f.encode(f.subs[i])})
}

func (f *FakeBackend) createSubcategory(w http.ResponseWriter, r *http.Request) {
	var sub models.Subcategory
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"status": "error", "message": "Malformed request"})
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	sub.ID = f.assignID()
	f.subs = append(f.subs, sub)
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "success",
		"message":     "Subcategory created",
		"subcategory": f.encode(sub),
	})
}

func (f *FakeBackend) updateSubcategory(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)

	var sub models.Subcategory
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"status": "error", "message": "Malformed request"})
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	i := models.IndexOf(f.subs, id)
	if i < 0 {
		writeJSON(w, http.StatusNotFound, map[string]any{"status": "error", "message": "Subcategory not found"})
		return
	}
	sub.ID = id
	f.subs[i] = sub
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "success",
		"message":     "Subcategory updated",
		"subcategory": f.encode(sub),
	})
}

func (f *FakeBackend) deleteSubcategory(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)

	f.mu.Lock()
	defer f.mu.Unlock()

	i := models.IndexOf(f.subs, id)
	if i < 0 {
		writeJSON(w, http.StatusNotFound, map[string]any{"status": "error", "message": "Subcategory not found"})
		return
	}
	f.subs = slices.Delete(f.subs, i, i+1)
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "message": "Subcategory deleted"})
}

// encode must be called with f.mu held.
func (f *FakeBackend) encode(s models.Subcategory) map[string]any {
	m := map[string]any{
		"id":               s.ID.String(),
		"name":             s.Name,
		"shortDescription": s.ShortDescription,
		"longDescription":  s.LongDescription,
		"isActive":         s.IsActive,
	}
	if f.numericIDs {
		if n, err := strconv.Atoi(s.ID.String()); err == nil {
			m["id"] = n
		}
	}
	return m
}

func pathID(r *http.Request) models.ID {
	raw := mux.Vars(r)["id"]
	if id, err := url.PathUnescape(raw); err == nil {
		return models.ID(id)
	}
	return models.ID(raw)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
