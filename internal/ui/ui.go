package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/botanica/internal/client"
	"github.com/desertthunder/botanica/internal/models"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	SignedOutView ViewState = iota
	JobListView
	JobDetailView
	JobFormView
	ConfirmDeleteView
	MainDataView
	MainDataFormView
)

// SignInFunc obtains a Google id_token, typically through the browser flow.
type SignInFunc func(ctx context.Context) (string, error)

// Model represents the TUI application state.
type Model struct {
	ctx      context.Context
	ctrl     *client.Controller
	signIn   SignInFunc
	events   chan client.Event
	view     ViewState
	previous ViewState
	state    client.View
	jobList  list.Model
	form     *form
	editing  models.ID
	active   bool
	deleting models.Subcategory
	busy     bool
	notice   string
	width    int
	height   int
	help     help.Model
	keys     keyMap
}

// NewModel creates a TUI model driving ctrl. The model subscribes to ctrl's events.
func NewModel(ctx context.Context, ctrl *client.Controller, signIn SignInFunc) *Model {
	events := make(chan client.Event, 64)
	ctrl.Subscribe(client.ChannelListener(events))

	m := &Model{
		ctx:     ctx,
		ctrl:    ctrl,
		signIn:  signIn,
		events:  events,
		view:    SignedOutView,
		jobList: newJobList(),
		help:    help.New(),
		keys:    newKeyMap(),
	}
	m.refresh()
	if ctrl.LoggedIn() {
		m.view = JobListView
	}
	return m
}

// Init starts listening for controller events and, with a restored session, loads the data.
func (m *Model) Init() tea.Cmd {
	if !m.ctrl.LoggedIn() {
		return m.waitForEvent()
	}
	return tea.Batch(m.waitForEvent(), m.run(opLoadAll, func(ctx context.Context) error {
		if err := m.ctrl.LoadMainData(ctx); err != nil {
			return err
		}
		return m.ctrl.LoadSubcategories(ctx, false)
	}))
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.jobList.SetSize(msg.Width-4, msg.Height-6)
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		switch m.view {
		case SignedOutView:
			return m.handleSignedOutKeys(msg)
		case JobListView:
			return m.handleJobListKeys(msg)
		case JobDetailView:
			return m.handleJobDetailKeys(msg)
		case JobFormView:
			return m.handleJobFormKeys(msg)
		case ConfirmDeleteView:
			return m.handleConfirmKeys(msg)
		case MainDataView:
			return m.handleMainDataKeys(msg)
		case MainDataFormView:
			return m.handleMainDataFormKeys(msg)
		}

	case Msg:
		switch msg.kind {
		case MsgEvent:
			m.handleEvent(msg.data.(client.Event))
			return m, m.waitForEvent()
		case MsgOpDone:
			m.handleOpDone(msg.data.(opResult))
			return m, nil
		}
	}

	return m.updateInputs(msg)
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	var body string
	switch m.view {
	case SignedOutView:
		body = m.renderSignedOut()
	case JobListView:
		body = m.renderJobList()
	case JobDetailView:
		body = m.renderJobDetail()
	case JobFormView, MainDataFormView:
		body = m.renderForm()
	case ConfirmDeleteView:
		body = m.renderConfirm()
	case MainDataView:
		body = m.renderMainData()
	}
	return fmt.Sprintf("%s\n%s", body, m.renderStatus())
}

func (m *Model) handleEvent(e client.Event) {
	m.refresh()
	switch e.Kind {
	case client.Status:
		m.notice = ""
	case client.LoggedOut:
		m.view = SignedOutView
		m.form = nil
	case client.LoggedIn:
		if m.view == SignedOutView {
			m.view = JobListView
		}
	}
}

func (m *Model) handleOpDone(r opResult) {
	m.busy = false
	m.notice = ""
	m.refresh()
	if !m.ctrl.LoggedIn() {
		m.view = SignedOutView
		m.form = nil
		if r.op == opSignIn && r.err != nil {
			m.notice = client.Describe(client.OpLogin, r.err)
		}
		return
	}
	if r.err != nil {
		if r.op == opDeleteJob {
			m.view = m.previous
		}
		return
	}

	switch r.op {
	case opSignIn:
		m.view = JobListView
	case opLoadDetail:
		m.view = JobDetailView
	case opSaveJob:
		m.form = nil
		m.view = JobDetailView
	case opDeleteJob:
		m.view = JobListView
	case opSaveData:
		m.form = nil
		m.view = MainDataView
	}
}

// refresh copies the controller's view model and syncs the job list.
func (m *Model) refresh() {
	m.state = m.ctrl.Snapshot()
	m.jobList.SetItems(jobItems(m.state.Jobs))
	if i := models.IndexOf(m.state.Jobs, m.state.Selected); i >= 0 {
		m.jobList.Select(i)
	}
}

func (m *Model) handleSignedOutKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.login):
		if m.busy || m.signIn == nil {
			return m, nil
		}
		m.notice = "Waiting for Google sign-in in your browser..."
		return m, m.run(opSignIn, func(ctx context.Context) error {
			credential, err := m.signIn(ctx)
			if err != nil {
				return err
			}
			return m.ctrl.HandleCredential(ctx, credential)
		})
	}
	return m, nil
}

func (m *Model) handleJobListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.jobList.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.jobList, cmd = m.jobList.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.enter):
		if job, ok := m.highlighted(); ok {
			return m, m.run(opLoadDetail, func(ctx context.Context) error {
				return m.ctrl.LoadSubcategoryDetail(ctx, job.ID)
			})
		}
		return m, nil
	case key.Matches(msg, m.keys.create):
		return m, m.openJobForm(models.Subcategory{IsActive: true}, "")
	case key.Matches(msg, m.keys.remove):
		if job, ok := m.highlighted(); ok {
			m.confirmDelete(job)
		}
		return m, nil
	case key.Matches(msg, m.keys.reload):
		return m, m.run(opLoadList, func(ctx context.Context) error {
			return m.ctrl.LoadSubcategories(ctx, true)
		})
	case key.Matches(msg, m.keys.data):
		m.view = MainDataView
		return m, m.run(opLoadData, m.ctrl.LoadMainData)
	case key.Matches(msg, m.keys.logout):
		return m, m.run(opSignOut, m.ctrl.SignOut)
	}

	var cmd tea.Cmd
	m.jobList, cmd = m.jobList.Update(msg)
	return m, cmd
}

func (m *Model) handleJobDetailKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	detail := m.state.Detail
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.view = JobListView
	case key.Matches(msg, m.keys.edit):
		if detail != nil {
			return m, m.openJobForm(*detail, detail.ID)
		}
	case key.Matches(msg, m.keys.remove):
		if detail != nil {
			m.confirmDelete(*detail)
		}
	}
	return m, nil
}

func (m *Model) handleJobFormKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.back):
		m.form = nil
		if m.editing != "" {
			m.view = JobDetailView
		} else {
			m.view = JobListView
		}
		return m, nil
	case key.Matches(msg, m.keys.toggle):
		m.active = !m.active
		return m, nil
	case key.Matches(msg, m.keys.save):
		if m.busy {
			return m, nil
		}
		sub := m.formSubcategory()
		isNew := m.editing == ""
		return m, m.run(opSaveJob, func(ctx context.Context) error {
			_, err := m.ctrl.SaveSubcategory(ctx, sub, isNew)
			return err
		})
	case key.Matches(msg, m.keys.next):
		return m, m.form.move(1)
	case key.Matches(msg, m.keys.prev):
		return m, m.form.move(-1)
	}
	return m, m.form.update(msg)
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.yes):
		id := m.deleting.ID
		return m, m.run(opDeleteJob, func(ctx context.Context) error {
			return m.ctrl.DeleteSubcategory(ctx, id)
		})
	case key.Matches(msg, m.keys.no), key.Matches(msg, m.keys.quit):
		m.view = m.previous
	}
	return m, nil
}

func (m *Model) handleMainDataKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.view = JobListView
	case key.Matches(msg, m.keys.reload):
		return m, m.run(opLoadData, m.ctrl.LoadMainData)
	case key.Matches(msg, m.keys.edit):
		return m, m.openMainDataForm()
	}
	return m, nil
}

func (m *Model) handleMainDataFormKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.back):
		m.form = nil
		m.view = MainDataView
		return m, nil
	case key.Matches(msg, m.keys.save):
		if m.busy {
			return m, nil
		}
		data := models.MainData(m.form.values())
		return m, m.run(opSaveData, func(ctx context.Context) error {
			return m.ctrl.SaveMainData(ctx, data)
		})
	case key.Matches(msg, m.keys.next):
		return m, m.form.move(1)
	case key.Matches(msg, m.keys.prev):
		return m, m.form.move(-1)
	}
	return m, m.form.update(msg)
}

func (m *Model) updateInputs(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case JobListView:
		m.jobList, cmd = m.jobList.Update(msg)
	case JobFormView, MainDataFormView:
		if m.form != nil {
			cmd = m.form.update(msg)
		}
	}
	return m, cmd
}

func (m *Model) highlighted() (models.Subcategory, bool) {
	item, ok := m.jobList.SelectedItem().(jobItem)
	if !ok {
		return models.Subcategory{}, false
	}
	return item.job, true
}

func (m *Model) confirmDelete(job models.Subcategory) {
	m.deleting = job
	m.previous = m.view
	m.view = ConfirmDeleteView
}

func (m *Model) openJobForm(sub models.Subcategory, editing models.ID) tea.Cmd {
	title := "New job"
	if editing != "" {
		title = fmt.Sprintf("Edit %q", sub.Name)
	}
	m.editing = editing
	m.active = sub.IsActive
	m.form = newForm(title,
		newFormField("name", "Name", sub.Name, "required"),
		newFormField("shortDescription", "Short description", sub.ShortDescription, ""),
		newFormField("longDescription", "Long description", sub.LongDescription, ""),
	)
	m.view = JobFormView
	return m.form.fields[0].input.Focus()
}

func (m *Model) formSubcategory() models.Subcategory {
	return models.Subcategory{
		ID:               m.editing,
		Name:             m.form.value("name"),
		ShortDescription: m.form.value("shortDescription"),
		LongDescription:  m.form.value("longDescription"),
		IsActive:         m.active,
	}
}

func (m *Model) openMainDataForm() tea.Cmd {
	fields := make([]formField, len(models.MainDataFields))
	for i, f := range models.MainDataFields {
		fields[i] = newFormField(f.Key, f.Label, m.state.MainData.Get(f.Key), "")
	}
	m.form = newForm("Edit main data", fields...)
	m.view = MainDataFormView
	return m.form.fields[0].input.Focus()
}

// run executes fn off the update loop and reports completion as a [MsgOpDone].
func (m *Model) run(op opName, fn func(context.Context) error) tea.Cmd {
	m.busy = true
	ctx := m.ctx
	return func() tea.Msg {
		return opDoneMsg(op, fn(ctx))
	}
}

func (m *Model) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		select {
		case e := <-m.events:
			return eventMsg(e)
		case <-m.ctx.Done():
			return nil
		}
	}
}

func (m *Model) renderSignedOut() string {
	title := styles.title.Render("Botanica")
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.login, m.keys.quit})
	return fmt.Sprintf("%s\nYou are signed out.\n\n%s", title, helpView)
}

func (m *Model) renderJobList() string {
	header := ""
	if s := m.state.Session; s != nil {
		header = styles.label.Render("Signed in as "+s.DisplayName) + "\n"
	}
	helpView := m.help.ShortHelpView([]key.Binding{
		m.keys.enter, m.keys.create, m.keys.remove, m.keys.reload, m.keys.data, m.keys.logout, m.keys.quit,
	})
	if len(m.state.Jobs) == 0 {
		return fmt.Sprintf("%s%s\n%s\n\n%s", header, styles.title.Render("Jobs"), client.MsgNoJobs, helpView)
	}
	return fmt.Sprintf("%s%s\n\n%s", header, m.jobList.View(), helpView)
}

func (m *Model) renderJobDetail() string {
	d := m.state.Detail
	if d == nil {
		return fmt.Sprintf("%s\n\n%s", client.MsgNoSelection, m.help.ShortHelpView([]key.Binding{m.keys.back}))
	}

	active := styles.ok.Render("active")
	if !d.IsActive {
		active = styles.warn.Render("inactive")
	}

	var b strings.Builder
	b.WriteString(styles.title.Render(d.Name))
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s %s\n", styles.label.Render("ID:"), d.ID)
	fmt.Fprintf(&b, "%s %s\n", styles.label.Render("Status:"), active)
	if d.ShortDescription != "" {
		fmt.Fprintf(&b, "\n%s\n", d.ShortDescription)
	}
	if d.LongDescription != "" {
		fmt.Fprintf(&b, "\n%s\n", d.LongDescription)
	}
	b.WriteString("\n")
	b.WriteString(m.help.ShortHelpView([]key.Binding{m.keys.edit, m.keys.remove, m.keys.back, m.keys.quit}))
	return b.String()
}

func (m *Model) renderForm() string {
	if m.form == nil {
		return ""
	}
	out := m.form.view()
	keys := []key.Binding{m.keys.next, m.keys.save, m.keys.back}
	if m.view == JobFormView {
		state := "inactive"
		if m.active {
			state = "active"
		}
		out += fmt.Sprintf("%s %s\n\n", styles.label.Render("Status:"), state)
		keys = append(keys, m.keys.toggle)
	}
	return out + m.help.ShortHelpView(keys)
}

func (m *Model) renderConfirm() string {
	title := styles.title.Render(fmt.Sprintf("Delete %q?", m.deleting.Name))
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.yes, m.keys.no})
	return fmt.Sprintf("%s\nThis cannot be undone.\n\n%s", title, helpView)
}

func (m *Model) renderMainData() string {
	var b strings.Builder
	b.WriteString(styles.title.Render("Main data"))
	b.WriteString("\n")
	for _, f := range models.MainDataFields {
		v := m.state.MainData.Get(f.Key)
		if v == "" {
			v = styles.help.Render("(empty)")
		}
		fmt.Fprintf(&b, "%s %s\n", styles.label.Render(f.Label+":"), v)
	}
	b.WriteString("\n")
	b.WriteString(m.help.ShortHelpView([]key.Binding{m.keys.edit, m.keys.reload, m.keys.back, m.keys.quit}))
	return b.String()
}

func (m *Model) renderStatus() string {
	msg := m.notice
	if msg == "" {
		msg = m.state.Status
	}
	if m.busy {
		msg = strings.TrimSpace("Working... " + msg)
	}
	if msg == "" {
		return ""
	}
	if strings.HasPrefix(msg, "Error") || strings.HasPrefix(msg, "Login failed") || msg == client.MsgSessionExpired {
		return styles.err.Render(msg)
	}
	return styles.help.Render(msg)
}
