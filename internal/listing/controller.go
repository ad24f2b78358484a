// Package listing implements the filtered list with inline edit shared by
// every dataset view: debounced server-side filters, request sequencing so
// only the latest fetch is shown, and server-confirmed edits.
package listing

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sipico/covid-counter-client/internal/api"
	"github.com/sipico/covid-counter-client/internal/dataset"
	"github.com/sipico/covid-counter-client/internal/debounce"
	"github.com/sipico/covid-counter-client/internal/logging"
	"github.com/sipico/covid-counter-client/internal/metrics"
	"github.com/sipico/covid-counter-client/internal/record"
)

// Lister is the part of the API client a Controller needs.
type Lister interface {
	ListRecords(ctx context.Context, path string, query url.Values) ([]record.Record, error)
	UpdateRecord(ctx context.Context, path, key string, rec record.Record) (record.Record, error)
}

// Edit is the state of the open editor.
type Edit struct {
	Key    string
	Draft  record.Record
	Saving bool
	Err    string
}

// Snapshot is a point-in-time copy of a Controller's state. Records are
// shared with the controller and must not be modified.
type Snapshot struct {
	Dataset dataset.Dataset
	// Records are the fetched records narrowed by local filters.
	Records []record.Record
	// Fetched is the number of records before local filtering.
	Fetched   int
	Loading   bool
	Err       string
	// Cause is the error behind Err.
	Cause     error
	Inputs    map[string]string
	Committed map[string]string
	Edit      *Edit
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock sets the clock used for filter debouncing.
func WithClock(clock debounce.Clock) Option {
	return func(c *Controller) {
		c.clock = clock
	}
}

// WithWindow sets the debounce quiet period.
func WithWindow(d time.Duration) Option {
	return func(c *Controller) {
		c.window = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithOnChange registers a function called after every state change. It
// runs without the controller lock held and may call Snapshot.
func WithOnChange(f func()) Option {
	return func(c *Controller) {
		c.onChange = f
	}
}

type patch struct {
	rec record.Record
	// seq is the last fetch id issued when the patch was made.
	seq uint64
}

// Controller drives one dataset view.
type Controller struct {
	ds       dataset.Dataset
	client   Lister
	clock    debounce.Clock
	window   time.Duration
	logger   *slog.Logger
	onChange func()

	mu         sync.Mutex
	ctx        context.Context
	cancel     context.CancelFunc
	mounted    bool
	closed     bool
	records    []record.Record
	loading    bool
	err        string
	cause      error
	inputs     map[string]string
	committed  map[string]string
	debouncers map[string]*debounce.Debouncer
	seq        uint64
	stopFetch  context.CancelFunc
	edit       *Edit
	editKey    any
	patches    map[string]patch

	wg sync.WaitGroup
}

// New creates a Controller for ds. Nothing is fetched until Mount.
func New(ds dataset.Dataset, client Lister, opts ...Option) *Controller {
	c := &Controller{
		ds:        ds,
		client:    client,
		window:    debounce.DefaultWindow,
		logger:    logging.Discard(),
		records:   []record.Record{},
		inputs:    make(map[string]string),
		committed: make(map[string]string),
		patches:   make(map[string]patch),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.clock == nil {
		c.clock = debounce.RealClock()
	}

	c.debouncers = make(map[string]*debounce.Debouncer, len(ds.Filters))
	for _, f := range ds.Filters {
		c.debouncers[f.Name] = debounce.New(c.clock, c.window)
	}
	return c
}

// Dataset returns the controller's dataset.
func (c *Controller) Dataset() dataset.Dataset {
	return c.ds
}

// Mount issues the initial fetch with the current committed filters. ctx
// bounds every request the controller makes until Close.
func (c *Controller) Mount(ctx context.Context) {
	c.mu.Lock()
	if c.mounted || c.closed {
		c.mu.Unlock()
		return
	}
	c.ctx, c.cancel = context.WithCancel(ctx)
	c.mounted = true
	c.fetchLocked()
	c.mu.Unlock()

	c.notify()
}

// SetFilter records raw input for a filter. Once mounted the committed
// value follows after the debounce window; before Mount it is committed
// immediately without fetching.
func (c *Controller) SetFilter(name, value string) error {
	if _, ok := c.ds.Filter(name); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownFilter, name)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.inputs[name] = value
	if !c.mounted {
		c.committed[name] = strings.TrimSpace(value)
		c.mu.Unlock()
		c.notify()
		return nil
	}
	c.mu.Unlock()

	c.debouncers[name].Trigger(func() { c.commit(name, value) })
	c.notify()
	return nil
}

// commit applies a debounced filter value.
func (c *Controller) commit(name, value string) {
	value = strings.TrimSpace(value)
	filter, _ := c.ds.Filter(name)

	c.mu.Lock()
	if c.closed || c.committed[name] == value {
		c.mu.Unlock()
		return
	}
	c.committed[name] = value
	if !filter.Local {
		c.fetchLocked()
	}
	c.mu.Unlock()

	c.notify()
}

// Refresh re-issues the current query.
func (c *Controller) Refresh() {
	c.mu.Lock()
	if !c.mounted || c.closed {
		c.mu.Unlock()
		return
	}
	c.fetchLocked()
	c.mu.Unlock()

	c.notify()
}

// fetchLocked starts a fetch that supersedes any in flight.
func (c *Controller) fetchLocked() {
	c.seq++
	id := c.seq
	if c.stopFetch != nil {
		c.stopFetch()
	}
	ctx, cancel := context.WithCancel(c.ctx)
	c.stopFetch = cancel
	c.loading = true
	c.err = ""
	c.cause = nil
	query := c.queryLocked()

	c.logger.Debug("list fetch issued", "dataset", c.ds.Name, "fetch_id", id, "query", query.Encode())

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer cancel()
		records, err := c.client.ListRecords(ctx, c.ds.Path, query)
		c.finishFetch(id, records, err)
	}()
}

func (c *Controller) queryLocked() url.Values {
	q := url.Values{}
	for _, f := range c.ds.Filters {
		if f.Local {
			continue
		}
		if v := c.committed[f.Name]; v != "" {
			q.Set(f.Param, v)
		}
	}
	return q
}

func (c *Controller) finishFetch(id uint64, records []record.Record, err error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if id != c.seq {
		c.mu.Unlock()
		c.logger.Debug("list fetch superseded", "dataset", c.ds.Name, "fetch_id", id)
		metrics.RecordFetch(c.ds.Name, metrics.FetchSuperseded)
		return
	}

	c.loading = false
	if err != nil {
		c.err = api.Message(err, c.ds.LoadError)
		c.cause = err
		c.mu.Unlock()
		c.logger.Warn("list fetch failed", "dataset", c.ds.Name, "fetch_id", id, "error", err)
		metrics.RecordFetch(c.ds.Name, metrics.FetchFailed)
		c.notify()
		return
	}

	c.records = records
	c.reapplyPatchesLocked(id)
	c.mu.Unlock()

	c.logger.Debug("list fetch applied", "dataset", c.ds.Name, "fetch_id", id, "records", len(records))
	metrics.RecordFetch(c.ds.Name, metrics.FetchApplied)
	c.notify()
}

// reapplyPatchesLocked keeps saved rows current when the applied fetch was
// issued before the save completed.
func (c *Controller) reapplyPatchesLocked(id uint64) {
	for key, p := range c.patches {
		if p.seq < id {
			delete(c.patches, key)
			continue
		}
		c.replaceLocked(key, p.rec)
	}
}

func (c *Controller) replaceLocked(key string, rec record.Record) bool {
	for i, r := range c.records {
		if k, ok := r.Key(c.ds.KeyField); ok && k == key {
			next := make([]record.Record, len(c.records))
			copy(next, c.records)
			next[i] = rec
			c.records = next
			return true
		}
	}
	return false
}

// OpenEditor starts editing the record with key, replacing any open
// editor that is not saving.
func (c *Controller) OpenEditor(key string) error {
	c.mu.Lock()
	if c.edit != nil && c.edit.Saving {
		c.mu.Unlock()
		return ErrBusy
	}
	rec, ok := c.findLocked(key)
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	c.edit = &Edit{Key: key, Draft: rec.Clone()}
	c.editKey = rec[c.ds.KeyField]
	c.mu.Unlock()

	c.notify()
	return nil
}

func (c *Controller) findLocked(key string) (record.Record, bool) {
	for _, r := range c.records {
		if k, ok := r.Key(c.ds.KeyField); ok && k == key {
			return r, true
		}
	}
	return nil, false
}

// SetDraftField parses raw input into the draft. Empty input sets null.
func (c *Controller) SetDraftField(name, raw string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.edit == nil {
		return ErrNoEditor
	}
	if c.edit.Saving {
		return ErrBusy
	}
	field, ok := c.ds.EditableField(name, c.edit.Draft)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotEditable, name)
	}
	v, err := record.ParseValue(raw, field.Numeric)
	if err != nil {
		return fmt.Errorf("%s: %w", field.Label, err)
	}

	draft := c.edit.Draft.Clone()
	draft[name] = v
	c.edit.Draft = draft
	return nil
}

// CancelEdit discards the draft. A save already in flight still updates
// its row when it succeeds.
func (c *Controller) CancelEdit() {
	c.mu.Lock()
	c.edit = nil
	c.editKey = nil
	c.mu.Unlock()

	c.notify()
}

// Save sends the draft and, on success, replaces the row with the server's
// echo and closes the editor. On failure the editor stays open with the
// error message and the list is unchanged.
func (c *Controller) Save(ctx context.Context) error {
	c.mu.Lock()
	edit := c.edit
	if edit == nil {
		c.mu.Unlock()
		return ErrNoEditor
	}
	if edit.Saving {
		c.mu.Unlock()
		return ErrBusy
	}
	edit.Saving = true
	edit.Err = ""
	key := edit.Key
	payload := edit.Draft.Clone()
	payload[c.ds.KeyField] = c.editKey
	c.mu.Unlock()
	c.notify()

	c.logger.Debug("saving record", "dataset", c.ds.Name, "key", key)
	updated, err := c.client.UpdateRecord(ctx, c.ds.Path, key, payload)
	if err == nil {
		if _, ok := updated.Key(c.ds.KeyField); !ok {
			err = fmt.Errorf("%w: %w", api.ErrMalformedResponse, ErrMissingKey)
		}
	}

	c.mu.Lock()
	edit.Saving = false
	if err != nil {
		edit.Err = api.Message(err, dataset.SaveError)
		c.mu.Unlock()
		c.logger.Warn("save failed", "dataset", c.ds.Name, "key", key, "error", err)
		c.notify()
		return err
	}

	c.replaceLocked(key, updated)
	c.patches[key] = patch{rec: updated, seq: c.seq}
	if c.edit == edit {
		c.edit = nil
		c.editKey = nil
	}
	c.mu.Unlock()

	c.notify()
	return nil
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Snapshot{
		Dataset:   c.ds,
		Records:   c.visibleLocked(),
		Fetched:   len(c.records),
		Loading:   c.loading,
		Err:       c.err,
		Cause:     c.cause,
		Inputs:    copyMap(c.inputs),
		Committed: copyMap(c.committed),
	}
	if c.edit != nil {
		e := *c.edit
		e.Draft = c.edit.Draft.Clone()
		s.Edit = &e
	}
	return s
}

func (c *Controller) visibleLocked() []record.Record {
	out := make([]record.Record, 0, len(c.records))
	for _, r := range c.records {
		if c.matchLocalLocked(r) {
			out = append(out, r)
		}
	}
	return out
}

func (c *Controller) matchLocalLocked(r record.Record) bool {
	for _, f := range c.ds.Filters {
		if f.Local && !c.ds.MatchLocal(r, c.committed[f.Name]) {
			return false
		}
	}
	return true
}

// Wait blocks until every fetch issued so far has finished.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// Close stops pending debounce timers and cancels in-flight requests.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	if c.cancel != nil {
		c.cancel()
	}
	c.mu.Unlock()

	for _, d := range c.debouncers {
		d.Stop()
	}
}

func (c *Controller) notify() {
	if c.onChange != nil {
		c.onChange()
	}
}

func copyMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
