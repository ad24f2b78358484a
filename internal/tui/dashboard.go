package tui

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sipico/covid-counter-client/internal/dataset"
	"github.com/sipico/covid-counter-client/internal/derived"
	"github.com/sipico/covid-counter-client/internal/listing"
	"github.com/sipico/covid-counter-client/internal/view"
)

type mode int

const (
	modeBrowse mode = iota
	modeFilter
	modeEdit
)

var (
	activeTabStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")).Padding(0, 1)
	inactiveTabStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Padding(0, 1)
	panelStyle       = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Padding(0, 1)
)

type tab struct {
	ctrl    *listing.Controller
	snap    listing.Snapshot
	mounted bool

	filters     []textinput.Model
	filterFocus int

	cursor int
	editor *editor
}

type editor struct {
	key    string
	fields []dataset.Field
	inputs []textinput.Model
	focus  int
	err    string
	saving bool
}

type dashboard struct {
	ctx     context.Context
	tabs    []*tab
	active  int
	mode    mode
	entered bool
	status  string
}

func newDashboard(sets []dataset.Dataset, lister listing.Lister, opts ...listing.Option) *dashboard {
	d := &dashboard{ctx: context.Background()}
	for _, ds := range sets {
		t := &tab{ctrl: listing.New(ds, lister, opts...)}
		for _, f := range ds.Filters {
			in := newInput(f.Label, 64)
			in.Prompt = ""
			t.filters = append(t.filters, in)
		}
		t.snap = t.ctrl.Snapshot()
		d.tabs = append(d.tabs, t)
	}
	return d
}

func (d *dashboard) current() *tab {
	return d.tabs[d.active]
}

// enter is called each time the dashboard becomes the route. Returning
// after a logout refreshes what was loaded for the previous session.
func (d *dashboard) enter(ctx context.Context) {
	d.ctx = ctx
	if d.entered {
		for _, t := range d.tabs {
			if t.mounted {
				t.ctrl.Refresh()
			}
		}
	}
	d.entered = true
	d.mode = modeBrowse
	d.activate(d.active)
}

// activate switches to tab i, mounting it on first view.
func (d *dashboard) activate(i int) {
	n := len(d.tabs)
	d.active = ((i % n) + n) % n
	t := d.current()
	if !t.mounted {
		t.mounted = true
		t.ctrl.Mount(d.ctx)
	}
	t.snap = t.ctrl.Snapshot()
}

// sync copies fresh snapshots out of the controllers.
func (d *dashboard) sync() {
	for i, t := range d.tabs {
		t.snap = t.ctrl.Snapshot()
		if n := len(t.snap.Records); t.cursor >= n {
			t.cursor = max(0, n-1)
		}
		if t.editor != nil && !t.editor.saving && t.snap.Edit == nil {
			t.editor = nil
			if i == d.active && d.mode == modeEdit {
				d.mode = modeBrowse
			}
		}
	}
}

func (d *dashboard) close() {
	for _, t := range d.tabs {
		t.ctrl.Close()
	}
}

// wait blocks until every controller's fetches have finished.
func (d *dashboard) wait() {
	for _, t := range d.tabs {
		t.ctrl.Wait()
	}
}

func (m *Model) updateDashboard(msg tea.KeyMsg) tea.Cmd {
	d := m.dash
	switch d.mode {
	case modeFilter:
		return d.updateFilter(msg)
	case modeEdit:
		return d.updateEditor(msg)
	}

	t := d.current()
	switch msg.String() {
	case "q", "esc":
		return tea.Quit
	case "right", "l", "tab":
		d.activate(d.active + 1)
	case "left", "h", "shift+tab":
		d.activate(d.active - 1)
	case "1", "2", "3", "4":
		if i := int(msg.String()[0] - '1'); i < len(d.tabs) {
			d.activate(i)
		}
	case "down", "j":
		if t.cursor < len(t.snap.Records)-1 {
			t.cursor++
		}
	case "up", "k":
		if t.cursor > 0 {
			t.cursor--
		}
	case "home", "g":
		t.cursor = 0
	case "end", "G":
		t.cursor = max(0, len(t.snap.Records)-1)
	case "r":
		t.ctrl.Refresh()
		t.snap = t.ctrl.Snapshot()
	case "/":
		if len(t.filters) > 0 {
			d.mode = modeFilter
			d.focusFilter(t, t.filterFocus)
		}
	case "e", "enter":
		d.openEditor(t)
	case "o":
		m.status = ""
		return m.logout()
	}
	return nil
}

func (d *dashboard) focusFilter(t *tab, i int) {
	n := len(t.filters)
	t.filterFocus = ((i % n) + n) % n
	for j := range t.filters {
		if j == t.filterFocus {
			t.filters[j].Focus()
			t.filters[j].TextStyle = focusedStyle
			continue
		}
		t.filters[j].Blur()
		t.filters[j].TextStyle = noStyle
	}
}

func (d *dashboard) updateFilter(msg tea.KeyMsg) tea.Cmd {
	t := d.current()
	switch msg.String() {
	case "esc", "enter":
		for j := range t.filters {
			t.filters[j].Blur()
			t.filters[j].TextStyle = noStyle
		}
		d.mode = modeBrowse
		return nil
	case "tab", "down":
		d.focusFilter(t, t.filterFocus+1)
		return nil
	case "shift+tab", "up":
		d.focusFilter(t, t.filterFocus-1)
		return nil
	}

	i := t.filterFocus
	before := t.filters[i].Value()
	var cmd tea.Cmd
	t.filters[i], cmd = t.filters[i].Update(msg)
	if after := t.filters[i].Value(); after != before {
		ds := t.ctrl.Dataset()
		//nolint:errcheck // filter names come from the dataset itself
		t.ctrl.SetFilter(ds.Filters[i].Name, after)
		t.snap = t.ctrl.Snapshot()
		t.cursor = 0
	}
	return cmd
}

func (d *dashboard) openEditor(t *tab) {
	if len(t.snap.Records) == 0 {
		return
	}
	ds := t.ctrl.Dataset()
	key, ok := t.snap.Records[t.cursor].Key(ds.KeyField)
	if !ok {
		d.status = "This row has no " + ds.KeyField + " and cannot be edited."
		return
	}
	if err := t.ctrl.OpenEditor(key); err != nil {
		d.status = err.Error()
		return
	}
	t.snap = t.ctrl.Snapshot()
	draft := t.snap.Edit.Draft

	e := &editor{key: key, fields: ds.EditableFields(draft)}
	for _, f := range e.fields {
		in := newInput("null", 64)
		in.SetValue(rawValue(draft[f.Name]))
		e.inputs = append(e.inputs, in)
	}
	t.editor = e
	d.status = ""
	d.mode = modeEdit
	e.setFocus(0)
}

func (e *editor) setFocus(i int) {
	n := len(e.inputs)
	if n == 0 {
		return
	}
	e.focus = ((i % n) + n) % n
	for j := range e.inputs {
		if j == e.focus {
			e.inputs[j].Focus()
			e.inputs[j].PromptStyle = focusedStyle
			e.inputs[j].TextStyle = focusedStyle
			continue
		}
		e.inputs[j].Blur()
		e.inputs[j].PromptStyle = noStyle
		e.inputs[j].TextStyle = noStyle
	}
}

func (d *dashboard) updateEditor(msg tea.KeyMsg) tea.Cmd {
	t := d.current()
	e := t.editor
	if e == nil {
		d.mode = modeBrowse
		return nil
	}

	switch msg.String() {
	case "esc":
		t.ctrl.CancelEdit()
		t.editor = nil
		t.snap = t.ctrl.Snapshot()
		d.mode = modeBrowse
		return nil
	case "tab", "down":
		e.setFocus(e.focus + 1)
		return nil
	case "shift+tab", "up":
		e.setFocus(e.focus - 1)
		return nil
	case "enter":
		if e.focus < len(e.inputs)-1 {
			e.setFocus(e.focus + 1)
			return nil
		}
		return d.save(t)
	case "ctrl+s":
		return d.save(t)
	}

	if e.saving || len(e.inputs) == 0 {
		return nil
	}
	var cmd tea.Cmd
	e.inputs[e.focus], cmd = e.inputs[e.focus].Update(msg)
	return cmd
}

// save copies the inputs into the draft and sends it. Input that does not
// parse keeps the editor open without a request.
func (d *dashboard) save(t *tab) tea.Cmd {
	e := t.editor
	if e.saving {
		return nil
	}
	for i, f := range e.fields {
		if err := t.ctrl.SetDraftField(f.Name, e.inputs[i].Value()); err != nil {
			e.err = err.Error()
			return nil
		}
	}
	e.err = ""
	e.saving = true

	ctx, ctrl, idx := d.ctx, t.ctrl, d.active
	return func() tea.Msg {
		return saveDoneMsg{tab: idx, err: ctrl.Save(ctx)}
	}
}

func (d *dashboard) saveDone(msg saveDoneMsg) {
	if msg.tab < 0 || msg.tab >= len(d.tabs) {
		return
	}
	t := d.tabs[msg.tab]
	t.snap = t.ctrl.Snapshot()
	if t.editor == nil {
		return
	}
	t.editor.saving = false
	if msg.err != nil {
		// The controller keeps the editor open with its message.
		return
	}
	d.status = "Saved " + t.editor.key + "."
	t.editor = nil
	if msg.tab == d.active && d.mode == modeEdit {
		d.mode = modeBrowse
	}
}

// rawValue renders a record value as editable input text.
func rawValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

// visibleRows is how many table rows fit the terminal.
func (m *Model) visibleRows() int {
	if m.height <= 0 {
		return 20
	}
	return max(3, m.height-18)
}

func (m *Model) viewDashboard() string {
	d := m.dash
	t := d.current()
	ds := t.ctrl.Dataset()
	var b strings.Builder

	tabs := make([]string, len(d.tabs))
	for i, tb := range d.tabs {
		label := fmt.Sprintf("%d %s", i+1, tb.ctrl.Dataset().Title)
		if i == d.active {
			tabs[i] = activeTabStyle.Render(label)
		} else {
			tabs[i] = inactiveTabStyle.Render(label)
		}
	}
	b.WriteString(view.TitleStyle.Render("COVID Counter") + "  " + lipgloss.JoinHorizontal(lipgloss.Top, tabs...) + "\n\n")

	if len(t.filters) > 0 {
		parts := make([]string, len(t.filters))
		for i, in := range t.filters {
			parts[i] = blurredStyle.Render(ds.Filters[i].Label+":") + " " + in.View()
		}
		b.WriteString(strings.Join(parts, "   ") + "\n")
	}

	if ds.Name == dataset.Countries.Name {
		b.WriteString(view.Totals(derived.Summarize(t.snap.Records)) + "\n")
	}

	switch {
	case t.snap.Loading:
		b.WriteString(view.MutedStyle.Render("Loading…") + "\n")
	case t.snap.Err != "":
		b.WriteString(view.ErrorStyle.Render(t.snap.Err) + "\n")
	default:
		b.WriteString(view.MutedStyle.Render(fmt.Sprintf("%d of %d records", len(t.snap.Records), t.snap.Fetched)) + "\n")
	}

	rows := t.snap.Records
	start, end := window(len(rows), t.cursor, m.visibleRows())
	b.WriteString(view.Table(ds, rows[start:end], t.cursor-start) + "\n")
	if legend := view.Legend(ds); legend != "" {
		b.WriteString(legend + "\n")
	}

	if t.editor != nil {
		b.WriteString(m.viewEditor(t) + "\n")
	}

	if status := firstNonEmpty(d.status, m.status); status != "" {
		b.WriteString(view.NoticeStyle.Render(status) + "\n")
	}

	var help string
	switch d.mode {
	case modeFilter:
		help = "type to filter • tab: next filter • enter/esc: done"
	case modeEdit:
		help = "tab: next field • enter on last field or ctrl+s: save • esc: cancel"
	default:
		help = "←/→ 1-4: tabs • ↑/↓: move • /: filter • e: edit • r: refresh • o: log out • q: quit"
	}
	b.WriteString(helpStyle.Render(help))
	return b.String()
}

func (m *Model) viewEditor(t *tab) string {
	e := t.editor
	var b strings.Builder
	b.WriteString(view.TitleStyle.Render("Edit "+e.key) + "\n")
	for i, f := range e.fields {
		fmt.Fprintf(&b, "%s %s\n", blurredStyle.Render(fmt.Sprintf("%-24s", f.Label+":")), e.inputs[i].View())
	}
	switch {
	case e.saving:
		b.WriteString(view.MutedStyle.Render("Saving…"))
	case e.err != "":
		b.WriteString(view.ErrorStyle.Render(e.err))
	case t.snap.Edit != nil && t.snap.Edit.Err != "":
		b.WriteString(view.ErrorStyle.Render(t.snap.Edit.Err))
	}
	return panelStyle.Render(strings.TrimRight(b.String(), "\n"))
}

// window returns the slice bounds of size rows around cursor.
func window(n, cursor, size int) (int, int) {
	if n <= size {
		return 0, n
	}
	start := cursor - size/2
	start = max(0, min(start, n-size))
	return start, start + size
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
