package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/abelbrown/postbook/internal/controller"
	"github.com/abelbrown/postbook/internal/controller/controllers"
	"github.com/abelbrown/postbook/internal/model"
	"github.com/abelbrown/postbook/internal/otel"
	"github.com/abelbrown/postbook/internal/repository"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// noticeTTL is how long a notification stays in the status bar.
const noticeTTL = 3 * time.Second

// loadTimeout bounds how long the edit screen waits for its post.
const loadTimeout = 5 * time.Second

// Screen identifies what the app is showing.
type Screen int

const (
	ScreenHome Screen = iota
	ScreenDetails
	ScreenEntry
	ScreenEdit
)

func (s Screen) String() string {
	switch s {
	case ScreenDetails:
		return "details"
	case ScreenEntry:
		return "entry"
	case ScreenEdit:
		return "edit"
	default:
		return "home"
	}
}

// App is the root Bubble Tea model.
// IMPORTANT: App does NOT hold the store. It only sees controllers, which
// only see the repository.
type App struct {
	repo   repository.ItemsRepository
	cfg    controllers.Config
	ring   *otel.RingBuffer
	ctx    context.Context
	cancel context.CancelFunc

	screen Screen

	// Home
	list        *controllers.ListController
	listCh      <-chan controllers.ListState
	listRelease func()
	items       []model.Post
	cursor      int

	// Details. Controllers are cached by id so a quick return to the same
	// post reuses the still-running stream.
	detailsCtrls   map[int64]*controllers.DetailsController
	detailsID      int64
	detailsCh      <-chan controllers.DetailsState
	detailsRelease func()
	detailsState   controllers.DetailsState
	confirmDelete  bool

	// Entry / Edit
	entry       *controllers.EntryController
	edit        *controllers.EditController
	form        form
	editLoading bool

	notice    string
	noticeErr bool
	noticeSeq int

	help      help.Model
	showDebug bool
	width     int
	height    int
	ready     bool
}

// NewApp creates the app and starts observing the post list.
// ring may be nil, which disables the debug overlay.
func NewApp(repo repository.ItemsRepository, cfg controllers.Config, ring *otel.RingBuffer) App {
	ctx, cancel := context.WithCancel(context.Background())
	list := controllers.NewListController(repo, cfg)
	listCh, listRelease := list.Observe()

	return App{
		repo:         repo,
		cfg:          cfg,
		ring:         ring,
		ctx:          ctx,
		cancel:       cancel,
		list:         list,
		listCh:       listCh,
		listRelease:  listRelease,
		detailsCtrls: make(map[int64]*controllers.DetailsController),
		help:         help.New(),
	}
}

// Init starts listening for list snapshots.
func (a App) Init() tea.Cmd {
	return waitList(a.listCh)
}

// Close releases every subscription and stops all controllers.
// Call it once the program has exited.
func (a App) Close() {
	a.cancel()
	if a.detailsRelease != nil {
		a.detailsRelease()
	}
	for _, c := range a.detailsCtrls {
		c.Close()
	}
	a.listRelease()
	a.list.Close()
}

// Update handles messages and returns the updated model and any commands.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.help.Width = msg.Width
		a.ready = true
		return a, nil

	case tea.KeyMsg:
		a.recordKey(msg)
		return a.handleKeyMsg(msg)

	case listMsg:
		a.items = msg.Items
		if a.cursor >= len(a.items) {
			a.cursor = max(len(a.items)-1, 0)
		}
		return a, waitList(a.listCh)

	case detailsMsg:
		if msg.ch != a.detailsCh {
			return a, nil
		}
		a.detailsState = msg.state
		return a, waitDetails(a.detailsCh)

	case editLoadedMsg:
		if a.screen != ScreenEdit || a.edit == nil || a.edit.PostID() != msg.id {
			return a, nil
		}
		a.editLoading = false
		if msg.err != nil {
			a.screen = ScreenDetails
			a.edit = nil
			return a.notify(fmt.Sprintf("Could not load post %d: %v", msg.id, msg.err), true)
		}
		a.form = newForm(a.edit.State().Details)
		return a, nil

	case actionMsg:
		return a.handleAction(controller.Event(msg))

	case clearNoticeMsg:
		if msg.seq == a.noticeSeq {
			a.notice = ""
			a.noticeErr = false
		}
		return a, nil
	}

	if a.screen == ScreenEntry || a.screen == ScreenEdit {
		var cmd tea.Cmd
		a.form, cmd = a.form.update(msg)
		return a, cmd
	}
	return a, nil
}

// handleKeyMsg routes a key to the active screen.
func (a App) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return a, tea.Quit
	}
	if a.showDebug {
		if key.Matches(msg, keys.Debug, keys.Back) {
			a.showDebug = false
		}
		return a, nil
	}

	switch a.screen {
	case ScreenDetails:
		return a.handleDetailsKey(msg)
	case ScreenEntry, ScreenEdit:
		return a.handleFormKey(msg)
	default:
		return a.handleHomeKey(msg)
	}
}

func (a App) handleHomeKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		return a, tea.Quit
	case key.Matches(msg, keys.Debug):
		a.showDebug = a.ring != nil
	case key.Matches(msg, keys.Down):
		if a.cursor < len(a.items)-1 {
			a.cursor++
		}
	case key.Matches(msg, keys.Up):
		if a.cursor > 0 {
			a.cursor--
		}
	case key.Matches(msg, keys.Home):
		a.cursor = 0
	case key.Matches(msg, keys.End):
		if len(a.items) > 0 {
			a.cursor = len(a.items) - 1
		}
	case key.Matches(msg, keys.Open):
		if a.cursor < len(a.items) {
			return a.openDetails(a.items[a.cursor].ID)
		}
	case key.Matches(msg, keys.New):
		return a.openEntry()
	}
	return a, nil
}

func (a App) handleDetailsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	ctrl := a.detailsCtrls[a.detailsID]

	if a.confirmDelete {
		switch {
		case key.Matches(msg, keys.Confirm):
			a.confirmDelete = false
			return a, runAction(a.ctx, ctrl, ctrl.DeleteCurrent)
		case key.Matches(msg, keys.Cancel):
			a.confirmDelete = false
		}
		return a, nil
	}

	switch {
	case key.Matches(msg, keys.Back):
		return a.openHome()
	case key.Matches(msg, keys.Quit):
		return a, tea.Quit
	case key.Matches(msg, keys.Edit):
		return a.openEdit(a.detailsID)
	case key.Matches(msg, keys.Delete):
		a.confirmDelete = true
	case key.Matches(msg, keys.Decrement):
		return a, runAction(a.ctx, ctrl, ctrl.DecrementAndPersist)
	}
	return a, nil
}

func (a App) handleFormKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Back):
		if a.screen == ScreenEdit {
			a.edit = nil
			a.screen = ScreenDetails
			return a, nil
		}
		return a.openHome()

	case key.Matches(msg, keys.Save):
		if a.screen == ScreenEdit {
			if a.editLoading {
				return a, nil
			}
			a.edit.UpdateField(a.form.details(a.edit.PostID()))
			if !a.edit.State().IsValid {
				return a.notify("Title, description and author are required", true)
			}
			return a, runAction(a.ctx, a.edit, a.edit.Update)
		}
		a.entry.UpdateField(a.form.details(0))
		if !a.entry.State().IsValid {
			return a.notify("Title, description and author are required", true)
		}
		return a, runAction(a.ctx, a.entry, a.entry.Save)
	}

	var cmd tea.Cmd
	a.form, cmd = a.form.update(msg)
	switch a.screen {
	case ScreenEntry:
		a.entry.UpdateField(a.form.details(0))
	case ScreenEdit:
		if !a.editLoading {
			a.edit.UpdateField(a.form.details(a.edit.PostID()))
		}
	}
	return a, cmd
}

// handleAction shows the outcome and navigates away after finished writes.
func (a App) handleAction(ev controller.Event) (tea.Model, tea.Cmd) {
	if ev.Type == controller.EventError {
		return a.notify(fmt.Sprintf("%s failed: %v", capitalize(ev.Action), ev.Err), true)
	}
	if ev.NoMatch {
		return a.notify("Nothing deleted: post changed since it was shown", true)
	}

	var text string
	var nav tea.Model = a
	var navCmd tea.Cmd
	switch ev.Action {
	case "save":
		text = "Saved successfully"
		if a.screen == ScreenEntry {
			nav, navCmd = a.openHome()
		}
	case "update":
		text = "Updated successfully"
		if a.screen == ScreenEdit {
			a.edit = nil
			a.screen = ScreenDetails
			nav = a
		}
	case "delete":
		text = "Deleted successfully"
		if c, ok := a.detailsCtrls[ev.PostID]; ok {
			if a.screen == ScreenDetails && a.detailsID == ev.PostID {
				nav, navCmd = a.openHome()
			}
			c.Close()
			delete(a.detailsCtrls, ev.PostID)
		}
	case "decrement":
		text = "Decremented"
	default:
		text = capitalize(ev.Action) + " done"
	}

	next, noticeCmd := nav.(App).notify(text, false)
	return next, tea.Batch(navCmd, noticeCmd)
}

func (a App) openHome() (tea.Model, tea.Cmd) {
	if a.detailsRelease != nil {
		a.detailsRelease()
		a.detailsRelease = nil
		a.detailsCh = nil
	}
	a.screen = ScreenHome
	a.confirmDelete = false
	a.entry = nil
	a.edit = nil
	return a, nil
}

func (a App) openDetails(id int64) (tea.Model, tea.Cmd) {
	if a.detailsRelease != nil {
		a.detailsRelease()
	}
	ctrl, ok := a.detailsCtrls[id]
	if !ok {
		ctrl = controllers.NewDetailsController(a.repo, id, a.cfg)
		a.detailsCtrls[id] = ctrl
	}
	a.detailsID = id
	a.detailsCh, a.detailsRelease = ctrl.Observe()
	a.detailsState = ctrl.State()
	a.confirmDelete = false
	a.screen = ScreenDetails
	return a, waitDetails(a.detailsCh)
}

func (a App) openEntry() (tea.Model, tea.Cmd) {
	a.entry = controllers.NewEntryController(a.repo, a.cfg)
	a.form = newForm(controller.PostDetails{})
	a.screen = ScreenEntry
	return a, nil
}

func (a App) openEdit(id int64) (tea.Model, tea.Cmd) {
	a.edit = controllers.NewEditController(a.repo, id, a.cfg)
	a.form = newForm(controller.PostDetails{})
	a.editLoading = true
	a.screen = ScreenEdit
	return a, loadEdit(a.ctx, a.edit)
}

// notify shows text in the status bar for noticeTTL.
func (a App) notify(text string, isErr bool) (App, tea.Cmd) {
	a.noticeSeq++
	a.notice = text
	a.noticeErr = isErr
	seq := a.noticeSeq
	return a, tea.Tick(noticeTTL, func(time.Time) tea.Msg { return clearNoticeMsg{seq: seq} })
}

func (a App) recordKey(msg tea.KeyMsg) {
	if a.cfg.Events == nil {
		return
	}
	a.cfg.Events.Emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindKeyPress, Comp: "ui", Msg: a.screen.String() + ":" + msg.String()})
}

// View renders the UI.
func (a App) View() string {
	if !a.ready {
		return "Loading..."
	}

	if a.showDebug {
		return debugOverlay(a.ring, a.width, a.height-1) + "\n" + debugStatusBar(a.width)
	}

	var b strings.Builder
	b.WriteString(Header.Width(a.width).Render(a.title()))
	b.WriteString("\n")

	// Header (1) + status bar (1)
	contentHeight := a.height - 2
	if contentHeight < 1 {
		contentHeight = 1
	}

	switch a.screen {
	case ScreenHome:
		b.WriteString(RenderList(a.items, a.cursor, a.width, contentHeight))
	case ScreenDetails:
		b.WriteString(RenderDetails(a.detailsState, a.width))
		if a.confirmDelete {
			b.WriteString("\n")
			b.WriteString(RenderConfirmDelete(a.detailsState.Details.Title))
		}
		b.WriteString("\n")
	case ScreenEntry:
		b.WriteString(a.form.view("New post", a.entry.State().IsValid, a.width))
		b.WriteString("\n")
	case ScreenEdit:
		if a.editLoading {
			b.WriteString(HelpStyle.Render("Loading post..."))
		} else {
			b.WriteString(a.form.view("Edit post", a.edit.State().IsValid, a.width))
		}
		b.WriteString("\n")
	}

	b.WriteString(a.statusBar())
	return b.String()
}

func (a App) title() string {
	switch a.screen {
	case ScreenDetails:
		return fmt.Sprintf("POSTBOOK │ post #%d", a.detailsID)
	case ScreenEntry:
		return "POSTBOOK │ new post"
	case ScreenEdit:
		return fmt.Sprintf("POSTBOOK │ editing #%d", a.edit.PostID())
	default:
		return fmt.Sprintf("POSTBOOK │ %d posts", len(a.items))
	}
}

func (a App) statusBar() string {
	var left string
	switch {
	case a.notice != "" && a.noticeErr:
		left = ErrorStyle.Render(a.notice)
	case a.notice != "":
		left = NoticeSuccess.Render(a.notice)
	case a.screen == ScreenHome && len(a.items) > 0:
		left = fmt.Sprintf(" %d/%d ", a.cursor+1, len(a.items))
	}

	var bindings []key.Binding
	switch {
	case a.screen == ScreenDetails && a.confirmDelete:
		bindings = keys.confirmHelp()
	case a.screen == ScreenDetails:
		bindings = keys.detailsHelp()
	case a.screen == ScreenEntry || a.screen == ScreenEdit:
		bindings = keys.formHelp()
	default:
		bindings = keys.homeHelp()
	}
	if a.width < 60 {
		// Narrow terminals get the compact help line instead of the bar.
		return left + " " + a.help.ShortHelpView(bindings)
	}
	return RenderStatusBar(left, bindings, a.width)
}

// Screen returns the active screen (for testing).
func (a App) Screen() Screen {
	return a.screen
}

// Cursor returns the current cursor position (for testing).
func (a App) Cursor() int {
	return a.cursor
}

// Items returns the current posts (for testing).
func (a App) Items() []model.Post {
	return a.items
}

// Notice returns the visible notification text (for testing).
func (a App) Notice() string {
	return a.notice
}

// Commands

func waitList(ch <-chan controllers.ListState) tea.Cmd {
	return func() tea.Msg {
		st, ok := <-ch
		if !ok {
			return nil
		}
		return listMsg(st)
	}
}

func waitDetails(ch <-chan controllers.DetailsState) tea.Cmd {
	return func() tea.Msg {
		st, ok := <-ch
		if !ok {
			return nil
		}
		return detailsMsg{ch: ch, state: st}
	}
}

func loadEdit(ctx context.Context, c *controllers.EditController) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, loadTimeout)
		defer cancel()
		return editLoadedMsg{id: c.PostID(), err: c.Load(ctx)}
	}
}

// eventSource is any controller that reports action outcomes.
type eventSource interface {
	Events() <-chan controller.Event
}

// runAction runs act and returns the event it recorded. Actions that turned
// out to be no-ops record nothing and produce no message.
func runAction(ctx context.Context, src eventSource, act func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		err := act(ctx)
		select {
		case ev := <-src.Events():
			return actionMsg(ev)
		default:
		}
		if err != nil {
			return actionMsg(controller.Event{Type: controller.EventError, Err: err})
		}
		return nil
	}
}

func capitalize(s string) string {
	if s == "" {
		return "Action"
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
