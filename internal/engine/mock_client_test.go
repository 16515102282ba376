package engine

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dm/solrctl/internal/client"
)

// MockSolrClient implements client.SolrClient for testing.
type MockSolrClient struct {
	ImportStatusFn func(ctx context.Context, core string) (*client.ImportStatus, error)
	IndexStatsFn   func(ctx context.Context, core string) (*client.IndexStats, error)
	DocCountFn     func(ctx context.Context, core string) (int64, error)
	ExecuteFn      func(ctx context.Context, cmd client.Command) (*client.Response, error)
	ReadTextFn     func(ctx context.Context, cmd client.Command) (string, error)
	URL            string
}

func (m *MockSolrClient) GetImportStatus(ctx context.Context, core string) (*client.ImportStatus, error) {
	if m.ImportStatusFn != nil {
		return m.ImportStatusFn(ctx, core)
	}
	return &client.ImportStatus{Status: "idle", TotalDocumentsProcessed: "0"}, nil
}

func (m *MockSolrClient) GetIndexStats(ctx context.Context, core string) (*client.IndexStats, error) {
	if m.IndexStatsFn != nil {
		return m.IndexStatsFn(ctx, core)
	}
	return &client.IndexStats{IndexVersion: "1", NumDocs: 1}, nil
}

func (m *MockSolrClient) GetDocumentCount(ctx context.Context, core string) (int64, error) {
	if m.DocCountFn != nil {
		return m.DocCountFn(ctx, core)
	}
	return 1, nil
}

func (m *MockSolrClient) Execute(ctx context.Context, cmd client.Command) (*client.Response, error) {
	if m.ExecuteFn != nil {
		return m.ExecuteFn(ctx, cmd)
	}
	return okResponse(), nil
}

func (m *MockSolrClient) ReadText(ctx context.Context, cmd client.Command) (string, error) {
	if m.ReadTextFn != nil {
		return m.ReadTextFn(ctx, cmd)
	}
	return "", nil
}

func (m *MockSolrClient) Ping(ctx context.Context) error {
	return nil
}

func (m *MockSolrClient) BaseURL() string {
	if m.URL != "" {
		return m.URL
	}
	return "http://mock:8983"
}

var errMockFailure = errors.New("mock failure")

func okResponse() *client.Response {
	resp, err := client.ParseResponse([]byte(`<response><str name="status">OK</str></response>`))
	if err != nil {
		panic(err)
	}
	return resp
}

// step is one scripted observation of a core. Each of the three reads that
// make up a snapshot consumes steps independently; the last step repeats.
type step struct {
	Status     string
	Elapsed    string
	Fetched    string
	Processed  string
	Rolledback string
	Version    string // empty: the core's current dynamic version
	Docs       int64
	Err        error
}

type fakeCore struct {
	steps   []step
	cursor  [3]int
	version int64
	bumpBy  int64 // added to version by a commit that follows a write
	pending bool
}

func (c *fakeCore) next(read int) step {
	i := c.cursor[read]
	if i < len(c.steps)-1 {
		c.cursor[read]++
	}
	return c.steps[i]
}

func (c *fakeCore) versionOf(s step) string {
	if s.Version != "" {
		return s.Version
	}
	return strconv.FormatInt(c.version, 10)
}

const (
	readStatus = iota
	readStats
	readCount
)

// fakeSolr is a scripted in-memory server. It records every command sent
// through Execute and applies sentinel writes to the dynamic version.
type fakeSolr struct {
	mu    sync.Mutex
	url   string
	cores map[string]*fakeCore

	commands     []client.Command
	statusCalls  map[string]int
	executeErr   func(cmd client.Command) error
	properties   []string // ReadText results in call order; last repeats
	readTextErr  error
	readTextHits int
	backupStatus string
}

func newFakeSolr() *fakeSolr {
	return &fakeSolr{
		url:          "http://fake:8983",
		cores:        map[string]*fakeCore{},
		statusCalls:  map[string]int{},
		backupStatus: "OK",
	}
}

func (f *fakeSolr) core(name string, steps ...step) *fakeCore {
	c := &fakeCore{steps: steps}
	f.cores[name] = c
	return c
}

func (f *fakeSolr) lookup(core string) (*fakeCore, error) {
	c, ok := f.cores[core]
	if !ok {
		return nil, errors.New("unknown core " + core)
	}
	return c, nil
}

func (f *fakeSolr) GetImportStatus(_ context.Context, core string) (*client.ImportStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCalls[core]++
	c, err := f.lookup(core)
	if err != nil {
		return nil, err
	}
	s := c.next(readStatus)
	if s.Err != nil {
		return nil, s.Err
	}
	st := &client.ImportStatus{
		Status:                  s.Status,
		TimeElapsed:             s.Elapsed,
		TotalRowsFetched:        s.Fetched,
		TotalDocumentsProcessed: s.Processed,
		Rolledback:              s.Rolledback,
	}
	if s.Status == "busy" {
		st.ImportResponse = "A command is still running..."
	}
	return st, nil
}

func (f *fakeSolr) GetIndexStats(_ context.Context, core string) (*client.IndexStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, err := f.lookup(core)
	if err != nil {
		return nil, err
	}
	s := c.next(readStats)
	if s.Err != nil {
		return nil, s.Err
	}
	return &client.IndexStats{IndexVersion: c.versionOf(s), NumDocs: s.Docs}, nil
}

func (f *fakeSolr) GetDocumentCount(_ context.Context, core string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, err := f.lookup(core)
	if err != nil {
		return 0, err
	}
	s := c.next(readCount)
	if s.Err != nil {
		return 0, s.Err
	}
	return s.Docs, nil
}

func (f *fakeSolr) Execute(_ context.Context, cmd client.Command) (*client.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = append(f.commands, cmd)
	if f.executeErr != nil {
		if err := f.executeErr(cmd); err != nil {
			return nil, err
		}
	}

	parts := strings.Split(cmd.Path, "/")
	if len(parts) > 3 && parts[3] == "update" {
		if c, ok := f.cores[parts[2]]; ok {
			body := cmd.Params.Get("stream.body")
			switch {
			case strings.Contains(body, "<add>"), strings.Contains(body, "<delete>"):
				c.pending = true
			case strings.Contains(body, "<commit/>") && c.pending:
				c.pending = false
				c.version += c.bumpBy
			}
		}
	}
	if len(parts) > 3 && parts[3] == "replication" {
		return client.ParseResponse([]byte(`<response><str name="status">` + f.backupStatus + `</str></response>`))
	}
	return okResponse(), nil
}

func (f *fakeSolr) ReadText(_ context.Context, _ client.Command) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.readTextHits++
	if f.readTextErr != nil {
		return "", f.readTextErr
	}
	if len(f.properties) == 0 {
		return "", nil
	}
	i := f.readTextHits - 1
	if i >= len(f.properties) {
		i = len(f.properties) - 1
	}
	return f.properties[i], nil
}

func (f *fakeSolr) Ping(context.Context) error { return nil }

func (f *fakeSolr) BaseURL() string { return f.url }

// sent returns the recorded commands, optionally filtered by a param value.
func (f *fakeSolr) sent(param, value string) []client.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []client.Command
	for _, c := range f.commands {
		if param == "" || c.Params.Get(param) == value {
			out = append(out, c)
		}
	}
	return out
}

// imports returns the data import commands that were issued.
func (f *fakeSolr) imports() []client.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []client.Command
	for _, c := range f.commands {
		if c.Params.Get("qt") == "/dataimport" {
			out = append(out, c)
		}
	}
	return out
}

// fakeClock advances only when the orchestrator sleeps.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2012, 5, 3, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	c.sleeps = append(c.sleeps, d)
	return nil
}
