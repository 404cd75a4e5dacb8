package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/botanica/internal/models"
	"github.com/desertthunder/botanica/internal/services"
	"github.com/desertthunder/botanica/internal/shared"
)

// UnknownUser is the display name used when neither the backend nor the credential names the user.
const UnknownUser = "Unknown"

// SessionStore persists the session between runs.
type SessionStore interface {
	Save(s *models.Session) error
	Get() (*models.Session, error)
	Clear() error
}

// ListCache keeps a local snapshot of the last fetched job list.
type ListCache interface {
	ReplaceAll(subs []models.Subcategory) error
	Clear() error
}

// ConfirmFunc asks the user to confirm deleting id.
type ConfirmFunc func(id models.ID) bool

// Options holds the optional collaborators of a [Controller].
type Options struct {
	Sessions        SessionStore
	Cache           ListCache
	Confirm         ConfirmFunc
	DropdownOptions []string
	Logger          *log.Logger
}

// View is a point-in-time copy of the controller's view model.
type View struct {
	Session  *models.Session
	MainData models.MainData
	Jobs     []models.Subcategory
	Detail   *models.Subcategory
	Selected models.ID
	Status   string
}

// Controller owns the session, the current selection and the view model.
//
// Every view is a cache of backend state: nothing changes locally until the backend acknowledges it,
// and mutations are followed by a full list re-fetch.
// Operations are not serialized against each other, so a slow response can overwrite a newer one.
type Controller struct {
	backend  services.Backend
	sessions SessionStore
	cache    ListCache
	confirm  ConfirmFunc
	options  []string
	logger   *log.Logger

	mu        sync.RWMutex
	session   *models.Session
	selected  models.ID
	mainData  models.MainData
	jobs      []models.Subcategory
	detail    *models.Subcategory
	status    string
	listeners []Listener
}

// New creates a Controller for backend.
func New(backend services.Backend, opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}
	return &Controller{
		backend:  backend,
		sessions: opts.Sessions,
		cache:    opts.Cache,
		confirm:  opts.Confirm,
		options:  opts.DropdownOptions,
		logger:   logger,
	}
}

// Attach makes api read its bearer from the controller and report 401s back to it.
func (c *Controller) Attach(api *services.APIService) {
	api.SetTokenSource(c)
	api.SetOnExpired(c.Expire)
}

// Subscribe registers l for every subsequent event.
func (c *Controller) Subscribe(l Listener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, l)
}

// SetConfirm replaces the delete confirmation hook.
func (c *Controller) SetConfirm(fn ConfirmFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.confirm = fn
}

// SetLogger replaces the logger. It must not be called while operations are running.
func (c *Controller) SetLogger(l *log.Logger) {
	if l != nil {
		c.logger = l
	}
}

// Credential implements [services.TokenSource].
func (c *Controller) Credential() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return ""
	}
	return c.session.Credential
}

// LoggedIn reports whether a session is held.
func (c *Controller) LoggedIn() bool {
	return c.Credential() != ""
}

// Session returns a copy of the current session, or nil.
func (c *Controller) Session() *models.Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return nil
	}
	s := *c.session
	return &s
}

// Selected returns the selected job id, or "".
func (c *Controller) Selected() models.ID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.selected
}

// Snapshot returns a copy of the view model.
func (c *Controller) Snapshot() View {
	c.mu.RLock()
	defer c.mu.RUnlock()

	v := View{
		Jobs:     slices.Clone(c.jobs),
		Selected: c.selected,
		Status:   c.status,
	}
	if c.session != nil {
		s := *c.session
		v.Session = &s
	}
	if c.mainData != nil {
		v.MainData = c.mainData.Clone()
	}
	if c.detail != nil {
		d := *c.detail
		v.Detail = &d
	}
	return v
}

// Restore adopts a previously persisted session without contacting the backend.
func (c *Controller) Restore(s *models.Session) bool {
	if !s.Valid() {
		return false
	}

	restored := *s
	c.mu.Lock()
	c.session = &restored
	c.mu.Unlock()

	c.logger.Debug("session restored", "user", restored.DisplayName)
	c.emit(Event{Kind: LoggedIn, Data: c.Session()})
	return true
}

// RestoreSaved adopts the session from the session store, if one is saved.
func (c *Controller) RestoreSaved() bool {
	if c.sessions == nil {
		return false
	}
	s, err := c.sessions.Get()
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			c.logger.Warn("failed to read saved session", "error", err)
		}
		return false
	}
	return c.Restore(s)
}

// HandleCredential exchanges an identity credential for a backend session.
//
// On success the session is replaced and persisted, then the main data and job list are each loaded once.
// Failures of those loads are reported as status and do not undo the login.
// On failure any held session is cleared. The exchange is never retried.
func (c *Controller) HandleCredential(ctx context.Context, credential string) error {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return c.fail(OpLogin, fmt.Errorf("%w: empty credential", shared.ErrInvalidCredential))
	}

	resp, err := c.backend.VerifyLogin(ctx, credential)
	if err == nil && !resp.Succeeded() {
		err = &rejectedError{message: resp.Message, kind: shared.ErrAuthFailed}
	}
	if err != nil {
		c.logger.Warn("login failed", "error", err)
		c.dropSession()
		c.emit(Event{Kind: LoggedOut})
		return c.fail(OpLogin, err)
	}

	bearer := resp.Token
	if bearer == "" {
		bearer = credential
	}

	name, picture := resp.Name(), resp.Picture()
	if name == "" {
		if claims, err := services.DecodeIdentityClaims(credential); err == nil {
			name = claims.Name
			if picture == "" {
				picture = claims.Picture
			}
		}
	}
	if name == "" {
		name = UnknownUser
	}

	session := models.NewSession(bearer, name, picture)

	c.mu.Lock()
	c.session = session
	c.resetViewLocked()
	c.mu.Unlock()

	if c.sessions != nil {
		if err := c.sessions.Save(session); err != nil {
			c.logger.Warn("failed to persist session", "error", err)
		}
	}

	c.logger.Info("signed in", "user", name)
	c.emit(Event{Kind: LoggedIn, Data: c.Session()})
	c.setStatus(fmt.Sprintf("Signed in as %s.", name))

	_ = c.LoadMainData(ctx)
	_ = c.LoadSubcategories(ctx, false)
	return nil
}

// SignOut clears local state first, then notifies the backend best-effort.
// A failing logout request is reported as status only; the client stays signed out.
func (c *Controller) SignOut(ctx context.Context) error {
	bearer := c.Credential()
	c.dropSession()
	c.emit(Event{Kind: LoggedOut})

	msg, err := c.backend.Logout(ctx, bearer)
	if err != nil {
		c.logger.Warn("logout request failed", "error", err)
		c.setStatus(Describe(OpLogout, err))
		return nil
	}

	if msg == "" {
		msg = MsgSignedOut
	}
	c.setStatus(msg)
	return nil
}

// Expire is the hook for a 401 from the backend: the session is dropped and listeners
// see SessionExpired followed by LoggedOut.
func (c *Controller) Expire() {
	c.dropSession()
	c.logger.Warn("session expired")
	c.emit(Event{Kind: SessionExpired, Message: MsgSessionExpired})
	c.emit(Event{Kind: LoggedOut})
}

// LoadMainData fetches the main data record into the view model. Missing fields read as "".
func (c *Controller) LoadMainData(ctx context.Context) error {
	data, msg, err := c.backend.LoadMainData(ctx)
	if err != nil {
		return c.fail(OpLoadMainData, err)
	}

	c.mu.Lock()
	c.mainData = data.Clone()
	c.mu.Unlock()

	c.emit(Event{Kind: MainDataLoaded, Data: data.Clone()})
	if msg == "" {
		msg = "Data loaded."
	}
	c.setStatus(msg)
	return nil
}

// SaveMainData replaces the main data record with every field of data. Fields absent from data are sent empty.
func (c *Controller) SaveMainData(ctx context.Context, data models.MainData) error {
	if err := data.Validate(c.options); err != nil {
		return c.fail(OpSaveMainData, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err))
	}

	full := models.NewMainData()
	for k, v := range data {
		full[k] = v
	}
	resp, err := c.backend.SaveMainData(ctx, full)
	if err != nil {
		return c.fail(OpSaveMainData, err)
	}
	if resp.Status != "" && resp.Status != services.StatusSuccess {
		return c.fail(OpSaveMainData, &rejectedError{message: resp.Message, kind: shared.ErrAPIRequest})
	}

	c.mu.Lock()
	c.mainData = full.Clone()
	c.mu.Unlock()

	c.emit(Event{Kind: MainDataSaved, Data: full.Clone()})
	msg := resp.Message
	if msg == "" {
		msg = "Data saved."
	}
	c.setStatus(msg)
	return nil
}

// LoadSubcategories replaces the job list with a fresh fetch.
//
// With reselect, a previous selection that is still present is re-fetched and kept selected;
// otherwise the selection and detail are cleared.
func (c *Controller) LoadSubcategories(ctx context.Context, reselect bool) error {
	previous := c.Selected()

	resp, err := c.backend.ListSubcategories(ctx)
	if err != nil {
		return c.fail(OpLoadList, err)
	}

	var items []models.Subcategory
	msg := MsgNoJobs
	if resp.Succeeded() && len(resp.Subcategories) > 0 {
		items = slices.Clone(resp.Subcategories)
		msg = MsgListLoaded
	}

	c.mu.Lock()
	c.jobs = items
	c.mu.Unlock()

	if c.cache != nil && resp.Succeeded() {
		if err := c.cache.ReplaceAll(items); err != nil {
			c.logger.Warn("failed to cache job list", "error", err)
		}
	}

	c.emit(Event{Kind: ListLoaded, Data: slices.Clone(items)})
	c.setStatus(msg)

	if reselect && previous.Selectable() && models.IndexOf(items, previous) >= 0 {
		return c.LoadSubcategoryDetail(ctx, previous)
	}
	c.clearSelection()
	return nil
}

// LoadSubcategoryDetail fetches one job and selects it.
// A missing job clears the selection and fails with an error matching [shared.ErrNotFound].
func (c *Controller) LoadSubcategoryDetail(ctx context.Context, id models.ID) error {
	if !id.Selectable() {
		return c.fail(OpLoadDetail, shared.ErrNoSelection)
	}

	resp, err := c.backend.GetSubcategory(ctx, id)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return c.fail(OpLoadDetail, err)
	}
	if err != nil || !resp.Succeeded() {
		c.clearSelection()
		c.setStatus(MsgJobNotFound)
		return fmt.Errorf("%w: job %s", shared.ErrNotFound, id)
	}

	sub := *resp.Subcategory
	if sub.ID == "" {
		sub.ID = id
	}
	c.selectDetail(sub)
	c.setStatus(fmt.Sprintf("Job %q loaded.", sub.Name))
	return nil
}

// SaveSubcategory creates sub when isNew or when it has no usable id, and replaces it otherwise.
//
// A created job becomes the selection. Any acknowledged save is followed by a list reload with reselect.
// Reload failures are reported as status and do not fail the save.
func (c *Controller) SaveSubcategory(ctx context.Context, sub models.Subcategory, isNew bool) (*models.Subcategory, error) {
	if err := sub.Validate(); err != nil {
		return nil, c.fail(OpSaveJob, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err))
	}

	create := isNew || !sub.ID.Selectable()

	var (
		resp *services.SubcategoryResponse
		err  error
	)
	if create {
		resp, err = c.backend.CreateSubcategory(ctx, sub)
	} else {
		resp, err = c.backend.UpdateSubcategory(ctx, sub.ID, sub)
	}
	if err != nil {
		return nil, c.fail(OpSaveJob, err)
	}

	saved := sub
	if create {
		saved.ID = ""
	}
	if resp.Succeeded() {
		saved = *resp.Subcategory
		if saved.ID == "" && !create {
			saved.ID = sub.ID
		}
	}

	if saved.ID.Selectable() {
		c.mu.Lock()
		changed := c.selected != saved.ID
		c.selected = saved.ID
		c.mu.Unlock()
		if changed {
			c.emit(Event{Kind: SelectionChanged, Data: saved.ID})
		}
	}

	if resp.Message != "" {
		c.setStatus(resp.Message)
	}

	_ = c.LoadSubcategories(ctx, true)

	if resp.Status != services.StatusSuccess {
		return nil, &rejectedError{message: resp.Message, kind: shared.ErrAPIRequest}
	}
	return &saved, nil
}

// DeleteSubcategory deletes id after confirmation, clears the selection and reloads the list.
//
// The empty id and the unsaved-form placeholder are rejected with [shared.ErrNoSelection] before any request.
// A declined confirmation fails with [shared.ErrCancelled].
func (c *Controller) DeleteSubcategory(ctx context.Context, id models.ID) error {
	if !id.Selectable() {
		return c.fail(OpDeleteJob, shared.ErrNoSelection)
	}

	c.mu.RLock()
	confirm := c.confirm
	c.mu.RUnlock()

	if confirm != nil && !confirm(id) {
		return c.fail(OpDeleteJob, shared.ErrCancelled)
	}

	resp, err := c.backend.DeleteSubcategory(ctx, id)
	if err != nil {
		return c.fail(OpDeleteJob, err)
	}

	c.clearSelection()
	msg := resp.Message
	if msg == "" {
		msg = "Job deleted."
	}
	c.setStatus(msg)

	_ = c.LoadSubcategories(ctx, false)
	return nil
}

func (c *Controller) fail(op Op, err error) error {
	c.setStatus(Describe(op, err))
	return err
}

func (c *Controller) setStatus(msg string) {
	c.mu.Lock()
	c.status = msg
	c.mu.Unlock()
	c.emit(statusEvent(msg))
}

func (c *Controller) selectDetail(sub models.Subcategory) {
	c.mu.Lock()
	changed := c.selected != sub.ID
	c.selected = sub.ID
	c.detail = &sub
	c.mu.Unlock()

	c.emit(Event{Kind: DetailLoaded, Data: sub})
	if changed {
		c.emit(Event{Kind: SelectionChanged, Data: sub.ID})
	}
}

func (c *Controller) clearSelection() {
	c.mu.Lock()
	changed := c.selected != ""
	c.selected = ""
	c.detail = nil
	c.mu.Unlock()

	c.emit(Event{Kind: DetailCleared})
	if changed {
		c.emit(Event{Kind: SelectionChanged, Data: models.ID("")})
	}
}

// dropSession clears the session, view model, persisted session and job snapshot.
// Every transition to logged out goes through here.
func (c *Controller) dropSession() {
	c.mu.Lock()
	c.session = nil
	c.resetViewLocked()
	c.mu.Unlock()

	if c.sessions != nil {
		if err := c.sessions.Clear(); err != nil {
			c.logger.Warn("failed to clear saved session", "error", err)
		}
	}
	if c.cache != nil {
		if err := c.cache.Clear(); err != nil {
			c.logger.Warn("failed to clear job cache", "error", err)
		}
	}
}

func (c *Controller) resetViewLocked() {
	c.selected = ""
	c.mainData = nil
	c.jobs = nil
	c.detail = nil
}

func (c *Controller) emit(e Event) {
	c.mu.RLock()
	listeners := slices.Clone(c.listeners)
	c.mu.RUnlock()

	for _, l := range listeners {
		l(e)
	}
}
