package listing

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sipico/covid-counter-client/internal/api"
	"github.com/sipico/covid-counter-client/internal/dataset"
	"github.com/sipico/covid-counter-client/internal/record"
	"github.com/sipico/covid-counter-client/internal/testutil/fakeclock"
	"github.com/sipico/covid-counter-client/internal/testutil/mockcovid"
)

const window = 300 * time.Millisecond

type listReply struct {
	records []record.Record
	err     error
}

type pendingCall struct {
	query url.Values
	ctx   context.Context
	reply chan listReply
}

// fakeLister hands every list call to the test through calls and blocks
// until the test replies.
type fakeLister struct {
	calls chan *pendingCall

	mu      sync.Mutex
	updates []record.Record
	update  func(key string, rec record.Record) (record.Record, error)
}

func newFakeLister() *fakeLister {
	return &fakeLister{calls: make(chan *pendingCall, 16)}
}

func (f *fakeLister) ListRecords(ctx context.Context, _ string, query url.Values) ([]record.Record, error) {
	call := &pendingCall{query: query, ctx: ctx, reply: make(chan listReply, 1)}
	f.calls <- call
	r := <-call.reply
	return r.records, r.err
}

func (f *fakeLister) UpdateRecord(_ context.Context, _, key string, rec record.Record) (record.Record, error) {
	f.mu.Lock()
	f.updates = append(f.updates, rec)
	update := f.update
	f.mu.Unlock()
	if update == nil {
		return rec, nil
	}
	return update(key, rec)
}

func (f *fakeLister) next(t *testing.T) *pendingCall {
	t.Helper()
	select {
	case call := <-f.calls:
		return call
	case <-time.After(2 * time.Second):
		t.Fatal("expected a list request")
		return nil
	}
}

func (f *fakeLister) expectNoCall(t *testing.T) {
	t.Helper()
	select {
	case call := <-f.calls:
		t.Fatalf("unexpected list request with query %q", call.query.Encode())
	default:
	}
}

func (p *pendingCall) respond(records ...record.Record) {
	if records == nil {
		records = []record.Record{}
	}
	p.reply <- listReply{records: records}
}

func (p *pendingCall) fail(err error) {
	p.reply <- listReply{err: err}
}

func country(name string, confirmed, deaths int) record.Record {
	return record.Record{
		"countryRegion": name,
		"confirmed":     json.Number(strconv.Itoa(confirmed)),
		"deaths":        json.Number(strconv.Itoa(deaths)),
	}
}

func names(records []record.Record) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.Str("countryRegion"))
	}
	return out
}

func mount(t *testing.T, ds dataset.Dataset) (*Controller, *fakeLister, *fakeclock.Clock) {
	t.Helper()
	lister := newFakeLister()
	clock := fakeclock.New()
	c := New(ds, lister, WithClock(clock), WithWindow(window))
	t.Cleanup(c.Close)

	c.Mount(context.Background())
	return c, lister, clock
}

func TestMount_FetchesOnceWithEmptyFilters(t *testing.T) {
	t.Parallel()
	c, lister, _ := mount(t, dataset.Worldometer)

	call := lister.next(t)
	assert.Empty(t, call.query)
	assert.True(t, c.Snapshot().Loading)

	call.respond(country("Belgium", 10, 1))
	c.Wait()

	snap := c.Snapshot()
	assert.False(t, snap.Loading)
	assert.Equal(t, []string{"Belgium"}, names(snap.Records))
	lister.expectNoCall(t)
}

func TestFilterDebounceCoalescing(t *testing.T) {
	t.Parallel()
	c, lister, clock := mount(t, dataset.Worldometer)
	lister.next(t).respond()
	c.Wait()

	for _, v := range []string{"I", "In", "Ind"} {
		require.NoError(t, c.SetFilter("country", v))
		clock.Advance(100 * time.Millisecond)
	}
	c.Wait()
	lister.expectNoCall(t)

	clock.Advance(window)
	call := lister.next(t)
	assert.Equal(t, "Ind", call.query.Get("country"))
	assert.False(t, call.query.Has("continent"))
	call.respond(country("India", 100, 2))
	c.Wait()

	lister.expectNoCall(t)
	snap := c.Snapshot()
	assert.Equal(t, "Ind", snap.Committed["country"])
	assert.Equal(t, []string{"India"}, names(snap.Records))
}

func TestFilterDebounce_IndependentFields(t *testing.T) {
	t.Parallel()
	c, lister, clock := mount(t, dataset.Worldometer)
	lister.next(t).respond()
	c.Wait()

	require.NoError(t, c.SetFilter("country", "B"))
	clock.Advance(200 * time.Millisecond)
	require.NoError(t, c.SetFilter("continent", "Europe"))
	clock.Advance(100 * time.Millisecond)

	// country settled first
	call := lister.next(t)
	assert.Equal(t, url.Values{"country": {"B"}}, call.query)
	call.respond()

	clock.Advance(200 * time.Millisecond)
	call = lister.next(t)
	assert.Equal(t, url.Values{"country": {"B"}, "continent": {"Europe"}}, call.query)
	call.respond()
	c.Wait()
}

func TestFilter_UnchangedCommittedValueDoesNotFetch(t *testing.T) {
	t.Parallel()
	c, lister, clock := mount(t, dataset.Worldometer)
	lister.next(t).respond()
	c.Wait()

	require.NoError(t, c.SetFilter("country", "x"))
	clock.Advance(50 * time.Millisecond)
	require.NoError(t, c.SetFilter("country", "  "))
	clock.Advance(window)
	c.Wait()

	lister.expectNoCall(t)
}

func TestOutOfOrderCompletion_LatestWins(t *testing.T) {
	t.Parallel()
	c, lister, clock := mount(t, dataset.Worldometer)
	lister.next(t).respond()
	c.Wait()

	require.NoError(t, c.SetFilter("country", "A"))
	clock.Advance(window)
	slowA := lister.next(t)

	require.NoError(t, c.SetFilter("country", "B"))
	clock.Advance(window)
	fastB := lister.next(t)
	assert.Equal(t, "B", fastB.query.Get("country"))

	// A was superseded, so its context is cancelled.
	select {
	case <-slowA.ctx.Done():
	default:
		t.Error("superseded request was not cancelled")
	}

	fastB.respond(country("Belgium", 1, 0))
	slowA.respond(country("Albania", 1, 0))
	c.Wait()

	snap := c.Snapshot()
	assert.Equal(t, []string{"Belgium"}, names(snap.Records))
	assert.False(t, snap.Loading)
}

func TestOutOfOrderCompletion_SupersededErrorIgnored(t *testing.T) {
	t.Parallel()
	c, lister, _ := mount(t, dataset.DayWise)
	first := lister.next(t)

	c.Refresh()
	second := lister.next(t)
	second.respond(record.Record{"date": "2020-01-22"})
	first.fail(&api.APIError{StatusCode: http.StatusInternalServerError, Message: "boom"})
	c.Wait()

	snap := c.Snapshot()
	assert.Empty(t, snap.Err)
	assert.Len(t, snap.Records, 1)
}

func TestFetchError_KeepsPreviousRecords(t *testing.T) {
	t.Parallel()
	c, lister, _ := mount(t, dataset.Countries)
	lister.next(t).respond(country("Peru", 10, 1))
	c.Wait()

	c.Refresh()
	assert.Equal(t, []string{"Peru"}, names(c.Snapshot().Records), "records stay visible while loading")
	lister.next(t).fail(&api.APIError{StatusCode: http.StatusBadGateway})
	c.Wait()

	snap := c.Snapshot()
	assert.Equal(t, "HTTP 502", snap.Err)
	assert.Equal(t, []string{"Peru"}, names(snap.Records))

	c.Refresh()
	assert.Empty(t, c.Snapshot().Err, "a new fetch clears the error")
	lister.next(t).fail(errors.New(""))
	c.Wait()
	assert.Equal(t, "Failed to load countries", c.Snapshot().Err)
}

func TestLocalFilter_NoFetch(t *testing.T) {
	t.Parallel()
	c, lister, clock := mount(t, dataset.Countries)
	lister.next(t).respond(country("Belgium", 1, 0), country("Brazil", 1, 0), country("Albania", 1, 0))
	c.Wait()

	require.NoError(t, c.SetFilter("search", "b"))
	assert.Len(t, c.Snapshot().Records, 3, "raw input is not applied before the window")
	clock.Advance(window)
	c.Wait()

	lister.expectNoCall(t)
	snap := c.Snapshot()
	assert.Equal(t, []string{"Belgium", "Brazil"}, names(snap.Records))
	assert.Equal(t, 3, snap.Fetched)
}

func TestSetFilter_BeforeMountCommitsImmediately(t *testing.T) {
	t.Parallel()
	lister := newFakeLister()
	c := New(dataset.CovidData, lister, WithClock(fakeclock.New()))
	t.Cleanup(c.Close)

	require.NoError(t, c.SetFilter("region", " Europe "))
	lister.expectNoCall(t)

	c.Mount(context.Background())
	call := lister.next(t)
	assert.Equal(t, url.Values{"region": {"Europe"}}, call.query)
	call.respond()
	c.Wait()
}

func TestSetFilter_Unknown(t *testing.T) {
	t.Parallel()
	c := New(dataset.DayWise, newFakeLister())
	assert.ErrorIs(t, c.SetFilter("country", "x"), ErrUnknownFilter)
}

func TestClose_StopsTimersAndCancels(t *testing.T) {
	t.Parallel()
	lister := newFakeLister()
	clock := fakeclock.New()
	c := New(dataset.Worldometer, lister, WithClock(clock), WithWindow(window))
	c.Mount(context.Background())
	call := lister.next(t)

	require.NoError(t, c.SetFilter("country", "X"))
	c.Close()
	clock.Advance(window)

	select {
	case <-call.ctx.Done():
	default:
		t.Error("in-flight request was not cancelled")
	}
	call.respond(country("Late", 1, 1))
	c.Wait()

	lister.expectNoCall(t)
	assert.Empty(t, c.Snapshot().Records)
}

func TestEdit_DraftAndSave(t *testing.T) {
	t.Parallel()
	c, lister, _ := mount(t, dataset.Countries)
	lister.next(t).respond(country("Peru", 100, 5), country("Chile", 50, 1))
	c.Wait()

	require.NoError(t, c.OpenEditor("Peru"))
	require.NoError(t, c.SetDraftField("deaths", "6"))
	require.NoError(t, c.SetDraftField("active", ""))
	assert.ErrorIs(t, c.SetDraftField("countryRegion", "Lima"), ErrNotEditable)
	assert.Error(t, c.SetDraftField("confirmed", "lots"))

	// the list is untouched until the server confirms
	assert.Equal(t, json.Number("5"), c.Snapshot().Records[0]["deaths"])

	require.NoError(t, c.Save(context.Background()))

	require.Len(t, lister.updates, 1)
	sent := lister.updates[0]
	assert.Equal(t, "Peru", sent["countryRegion"])
	assert.Equal(t, json.Number("6"), sent["deaths"])
	assert.Nil(t, sent["active"])

	snap := c.Snapshot()
	assert.Nil(t, snap.Edit)
	assert.Equal(t, json.Number("6"), snap.Records[0]["deaths"])
	assert.Equal(t, []string{"Peru", "Chile"}, names(snap.Records))
}

func TestEdit_FailureKeepsEditorOpen(t *testing.T) {
	t.Parallel()
	c, lister, _ := mount(t, dataset.Countries)
	lister.next(t).respond(country("Peru", 100, 5))
	c.Wait()

	lister.update = func(string, record.Record) (record.Record, error) {
		return nil, &api.APIError{StatusCode: http.StatusForbidden, Message: "Forbidden"}
	}

	require.NoError(t, c.OpenEditor("Peru"))
	require.NoError(t, c.SetDraftField("deaths", "9"))
	err := c.Save(context.Background())
	assert.ErrorIs(t, err, api.ErrUnauthorized)

	snap := c.Snapshot()
	require.NotNil(t, snap.Edit)
	assert.Equal(t, "Forbidden", snap.Edit.Err)
	assert.False(t, snap.Edit.Saving)
	assert.Equal(t, json.Number("9"), snap.Edit.Draft["deaths"])
	assert.Equal(t, json.Number("5"), snap.Records[0]["deaths"])
}

func TestEdit_EchoWithoutKeyIsAnError(t *testing.T) {
	t.Parallel()
	c, lister, _ := mount(t, dataset.Countries)
	lister.next(t).respond(country("Peru", 100, 5))
	c.Wait()

	lister.update = func(string, record.Record) (record.Record, error) {
		return record.Record{}, nil
	}
	require.NoError(t, c.OpenEditor("Peru"))
	err := c.Save(context.Background())
	assert.ErrorIs(t, err, api.ErrMalformedResponse)
	assert.Equal(t, dataset.SaveError, c.Snapshot().Edit.Err)
}

func TestEdit_SecondSaveWhileSavingIsBusy(t *testing.T) {
	t.Parallel()
	c, lister, _ := mount(t, dataset.Countries)
	lister.next(t).respond(country("Peru", 100, 5))
	c.Wait()

	release := make(chan struct{})
	entered := make(chan struct{})
	lister.update = func(_ string, rec record.Record) (record.Record, error) {
		close(entered)
		<-release
		return rec, nil
	}
	require.NoError(t, c.OpenEditor("Peru"))

	done := make(chan error, 1)
	go func() { done <- c.Save(context.Background()) }()
	<-entered

	assert.ErrorIs(t, c.Save(context.Background()), ErrBusy)
	assert.ErrorIs(t, c.SetDraftField("deaths", "1"), ErrBusy)
	assert.ErrorIs(t, c.OpenEditor("Peru"), ErrBusy)
	assert.True(t, c.Snapshot().Edit.Saving)

	close(release)
	require.NoError(t, <-done)
}

func TestEdit_Cancel(t *testing.T) {
	t.Parallel()
	c, lister, _ := mount(t, dataset.Countries)
	lister.next(t).respond(country("Peru", 100, 5))
	c.Wait()

	assert.ErrorIs(t, c.OpenEditor("Atlantis"), ErrNotFound)
	require.NoError(t, c.OpenEditor("Peru"))
	require.NoError(t, c.SetDraftField("deaths", "50"))
	c.CancelEdit()

	assert.Nil(t, c.Snapshot().Edit)
	assert.ErrorIs(t, c.Save(context.Background()), ErrNoEditor)
	assert.Equal(t, json.Number("5"), c.Snapshot().Records[0]["deaths"])
}

func TestEdit_SaveSurvivesStaleConcurrentFetch(t *testing.T) {
	t.Parallel()
	c, lister, _ := mount(t, dataset.Countries)
	lister.next(t).respond(country("Peru", 100, 5))
	c.Wait()

	c.Refresh()
	stale := lister.next(t)

	require.NoError(t, c.OpenEditor("Peru"))
	require.NoError(t, c.SetDraftField("deaths", "7"))
	require.NoError(t, c.Save(context.Background()))

	// the refresh was issued before the save, so its data predates it
	stale.respond(country("Peru", 100, 5))
	c.Wait()
	assert.Equal(t, json.Number("7"), c.Snapshot().Records[0]["deaths"])

	c.Refresh()
	lister.next(t).respond(country("Peru", 100, 8))
	c.Wait()
	assert.Equal(t, json.Number("8"), c.Snapshot().Records[0]["deaths"])
}

func TestEdit_RejectedChangeShowsServerValue(t *testing.T) {
	t.Parallel()
	server := mockcovid.New()
	defer server.Close()
	server.State().SetReadOnlyFields("/countries", "deaths")

	client := api.NewClient(api.WithBaseURL(server.URL()))
	c := New(dataset.Countries, client)
	defer c.Close()
	c.Mount(context.Background())
	c.Wait()
	require.Empty(t, c.Snapshot().Err)

	require.NoError(t, c.OpenEditor("Albania"))
	require.NoError(t, c.SetDraftField("deaths", "999"))
	require.NoError(t, c.Save(context.Background()))

	snap := c.Snapshot()
	assert.Nil(t, snap.Edit)
	for _, r := range snap.Records {
		if r.Str("countryRegion") == "Albania" {
			assert.Equal(t, json.Number("144"), r["deaths"])
			return
		}
	}
	t.Fatal("Albania row missing")
}

func TestEdit_CovidDataKeepsNumericKey(t *testing.T) {
	t.Parallel()
	server := mockcovid.New()
	defer server.Close()

	client := api.NewClient(api.WithBaseURL(server.URL()))
	c := New(dataset.CovidData, client)
	defer c.Close()
	require.NoError(t, c.SetFilter("continent", "Asia"))
	c.Mount(context.Background())
	c.Wait()

	snap := c.Snapshot()
	require.Len(t, snap.Records, 2)

	require.NoError(t, c.OpenEditor("4"))
	require.NoError(t, c.SetDraftField("region", "Oceania"))
	require.NoError(t, c.Save(context.Background()))

	row, ok := server.State().Row("/covid-data", "4")
	require.True(t, ok)
	assert.Equal(t, "Oceania", row["region"])
	assert.Equal(t, json.Number("4"), row["recordId"])
}

func TestOnChange(t *testing.T) {
	t.Parallel()
	lister := newFakeLister()
	var mu sync.Mutex
	changes := 0
	var c *Controller
	c = New(dataset.DayWise, lister, WithClock(fakeclock.New()), WithOnChange(func() {
		mu.Lock()
		changes++
		mu.Unlock()
		_ = c.Snapshot()
	}))
	t.Cleanup(c.Close)

	c.Mount(context.Background())
	lister.next(t).respond()
	c.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.GreaterOrEqual(t, changes, 2)
}
