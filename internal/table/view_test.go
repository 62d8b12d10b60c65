package table_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	vrahttp "github.com/fivetwenty-io/vra/internal/http"
	"github.com/fivetwenty-io/vra/internal/pipeline"
	"github.com/fivetwenty-io/vra/internal/registry"
	"github.com/fivetwenty-io/vra/internal/table"
	"github.com/fivetwenty-io/vra/pkg/vra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type machine struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type machineListing struct{}

func (machineListing) Endpoint() string                              { return "resourceViews" }
func (machineListing) Filters() []string                             { return []string{"resourceType+eq+'Infrastructure.Virtual'"} }
func (machineListing) DefaultSort() (string, bool)                   { return "name", false }
func (machineListing) SearchField() string                           { return "name" }
func (machineListing) ExtendedData() bool                            { return true }
func (machineListing) Operations() bool                              { return false }
func (machineListing) RenderRow(_ context.Context, m machine) string { return strings.ToUpper(m.Name) }

type fakeServer struct {
	*httptest.Server

	mu      sync.Mutex
	queries []string
	status  int
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()

	fake := &fakeServer{status: http.StatusOK}
	fake.Server = httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		fake.mu.Lock()
		fake.queries = append(fake.queries, request.URL.RawQuery)
		status := fake.status
		fake.mu.Unlock()

		if status != http.StatusOK {
			writer.WriteHeader(status)
			_, _ = writer.Write([]byte(`{"errors":[{"code":500,"message":"Catalog service unavailable."}]}`))

			return
		}

		_ = json.NewEncoder(writer).Encode(vra.Page[machine]{
			Content: []machine{
				{ID: "1", Name: "web-01"},
				{ID: "2", Name: "db-01"},
				{ID: "3", Name: "web-02"},
			},
			Metadata: vra.PageMetadata{Size: 10, TotalElements: 23, TotalPages: 3, Number: 1},
		})
	}))
	t.Cleanup(fake.Close)

	return fake
}

func (f *fakeServer) setStatus(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.status = status
}

func (f *fakeServer) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.queries)
}

func (f *fakeServer) lastQuery() string {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.queries) == 0 {
		return ""
	}

	return f.queries[len(f.queries)-1]
}

func newView(t *testing.T, fake *fakeServer, opts ...table.Option) *table.View[machine, string] {
	t.Helper()

	reg := registry.New(vrahttp.NewClient(fake.URL, nil), nil)
	reg.SetServer(fake.URL)
	require.NoError(t, reg.RegisterEndpoint("resourceViews", "/catalog-service/api/consumer/resourceViews", http.MethodGet))

	return table.New[machine, string](reg, machineListing{}, opts...)
}

func TestView_Refresh(t *testing.T) {
	t.Parallel()

	fake := newFakeServer(t)

	var events []string

	view := newView(t, fake, table.WithListener(table.ListenerFuncs{
		OnStart: func() { events = append(events, "start") },
		OnReady: func() { events = append(events, "ready") },
		OnEnd:   func(err error) { events = append(events, "end") },
	}))
	assert.Equal(t, table.StateIdle, view.State())

	require.NoError(t, view.Refresh(context.Background()))

	assert.Equal(t, table.StateReady, view.State())
	assert.Equal(t, []string{"WEB-01", "DB-01", "WEB-02"}, view.Rows())
	assert.Len(t, view.Raw(), 3)
	assert.Equal(t, []string{"start", "ready", "end"}, events)
	assert.Equal(t,
		"withExtendedData=true&$filter=resourceType+eq+'Infrastructure.Virtual'&$orderby=name&limit=10&page=1",
		fake.lastQuery())

	metadata, ok := view.Metadata()
	require.True(t, ok)
	assert.Equal(t, 3, metadata.TotalPages)
}

func TestView_RefreshFailureNotifies(t *testing.T) {
	t.Parallel()

	fake := newFakeServer(t)
	fake.setStatus(http.StatusInternalServerError)

	var (
		level   vra.Level
		message string
		title   string
	)

	view := newView(t, fake, table.WithNotifier(vra.NotifierFunc(func(l vra.Level, m, ti string) {
		level, message, title = l, m, ti
	})))

	err := view.Refresh(context.Background())
	require.Error(t, err)
	assert.Equal(t, table.StateError, view.State())
	assert.Equal(t, vra.LevelDanger, level)
	assert.Equal(t, "Catalog service unavailable.", message)
	assert.Equal(t, "Error", title)

	fake.setStatus(http.StatusOK)

	require.NoError(t, view.Refresh(context.Background()))
	assert.Equal(t, table.StateReady, view.State())
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestView_Paginate(t *testing.T) {
	t.Parallel()

	t.Run("ignored before the first page loads", func(t *testing.T) {
		t.Parallel()

		fake := newFakeServer(t)
		view := newView(t, fake)

		require.NoError(t, view.Paginate(context.Background(), 2))
		assert.Equal(t, 0, fake.calls())
		assert.Equal(t, 1, view.PageNumber())
	})

	noOps := []struct {
		name string
		page float64
	}{
		{name: "zero", page: 0},
		{name: "negative", page: -1},
		{name: "fractional", page: 1.5},
		{name: "past the last page", page: 4},
	}

	for _, testCase := range noOps {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			fake := newFakeServer(t)
			view := newView(t, fake)
			require.NoError(t, view.Refresh(context.Background()))

			require.NoError(t, view.PaginateNumber(context.Background(), testCase.page))
			assert.Equal(t, 1, fake.calls())
			assert.Equal(t, 1, view.PageNumber())
		})
	}

	for _, page := range []int{1, 3} {
		t.Run("valid page", func(t *testing.T) {
			t.Parallel()

			fake := newFakeServer(t)
			view := newView(t, fake)
			require.NoError(t, view.Refresh(context.Background()))

			require.NoError(t, view.Paginate(context.Background(), page))
			assert.Equal(t, 2, fake.calls())
			assert.Equal(t, page, view.PageNumber())
		})
	}
}

func TestView_SearchResetsPage(t *testing.T) {
	t.Parallel()

	fake := newFakeServer(t)
	view := newView(t, fake)

	require.NoError(t, view.Refresh(context.Background()))
	require.NoError(t, view.Paginate(context.Background(), 3))
	require.NoError(t, view.Search(context.Background(), "Web"))

	assert.Equal(t, 1, view.PageNumber())
	assert.Equal(t, "Web", view.SearchTerm())
	assert.Contains(t, fake.lastQuery(), "substringof('web',%20tolower(name))")
	assert.True(t, strings.HasSuffix(fake.lastQuery(), "page=1"))
}

func TestView_SortBy(t *testing.T) {
	t.Parallel()

	fake := newFakeServer(t)
	view := newView(t, fake)

	require.NoError(t, view.SortBy(context.Background(), "dateCreated", true))

	field, desc := view.Sort()
	assert.Equal(t, "dateCreated", field)
	assert.True(t, desc)
	assert.Contains(t, fake.lastQuery(), "$orderby=dateCreated+desc")
}

func TestView_FirstRefreshSettings(t *testing.T) {
	t.Parallel()

	fake := newFakeServer(t)
	view := newView(t, fake)

	view.SetPage(2)
	view.SetSearchTerm("db")
	view.SetSort("", true)
	view.SetSort("status", true)
	assert.Zero(t, fake.calls())

	require.NoError(t, view.Refresh(context.Background()))
	assert.Contains(t, fake.lastQuery(), "substringof('db',%20tolower(name))")
	assert.Contains(t, fake.lastQuery(), "$orderby=status+desc")
	assert.True(t, strings.HasSuffix(fake.lastQuery(), "page=2"))
}

func TestView_Relist(t *testing.T) {
	t.Parallel()

	fake := newFakeServer(t)
	view := newView(t, fake)

	require.NoError(t, view.Refresh(context.Background()))

	prefix := "web"
	view.Pipeline().AddStage(pipeline.Filter(func(m machine) bool {
		return strings.HasPrefix(m.Name, prefix)
	}))

	require.NoError(t, view.Relist(context.Background()))
	assert.Equal(t, 1, fake.calls())
	assert.Equal(t, []string{"WEB-01", "WEB-02"}, view.Rows())
	assert.Len(t, view.Raw(), 3)
	assert.Len(t, view.Items(), 2)
}

func TestView_PipelineFailure(t *testing.T) {
	t.Parallel()

	fake := newFakeServer(t)
	view := newView(t, fake)

	stageErr := errors.New("stage failed")
	view.Pipeline().AddStage(func(rows []machine) ([]machine, error) { return nil, stageErr })

	err := view.Refresh(context.Background())
	require.ErrorIs(t, err, stageErr)
	assert.Equal(t, table.StateError, view.State())
	assert.Empty(t, view.Rows())
}

func TestState_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "idle", table.StateIdle.String())
	assert.Equal(t, "loading", table.StateLoading.String())
	assert.Equal(t, "ready", table.StateReady.String())
	assert.Equal(t, "error", table.StateError.String())
}

func TestView_OverlappingRefreshKeepsNewest(t *testing.T) {
	t.Parallel()

	arrived := make(chan struct{})
	release := make(chan struct{})

	var releaseOnce sync.Once

	unblock := func() { releaseOnce.Do(func() { close(release) }) }

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		name := "fresh"

		if !strings.Contains(request.URL.RawQuery, "substringof") {
			close(arrived)
			<-release

			name = "stale"
		}

		_ = json.NewEncoder(writer).Encode(vra.Page[machine]{
			Content:  []machine{{ID: name, Name: name}},
			Metadata: vra.PageMetadata{Size: 10, TotalElements: 1, TotalPages: 1, Number: 1},
		})
	}))
	t.Cleanup(server.Close)
	t.Cleanup(unblock)

	var (
		mu     sync.Mutex
		starts int
		ends   []error
	)

	view := newView(t, &fakeServer{Server: server}, table.WithListener(table.ListenerFuncs{
		OnStart: func() {
			mu.Lock()
			defer mu.Unlock()

			starts++
		},
		OnEnd: func(err error) {
			mu.Lock()
			defer mu.Unlock()

			ends = append(ends, err)
		},
	}))

	stale := make(chan error, 1)

	go func() {
		stale <- view.Refresh(context.Background())
	}()

	<-arrived

	require.NoError(t, view.Search(context.Background(), "fresh"))
	assert.Equal(t, []string{"FRESH"}, view.Rows())

	unblock()

	require.ErrorIs(t, <-stale, table.ErrSuperseded)
	assert.Equal(t, []string{"FRESH"}, view.Rows())
	assert.Equal(t, table.StateReady, view.State())
	assert.Equal(t, "fresh", view.SearchTerm())

	mu.Lock()
	defer mu.Unlock()

	assert.Equal(t, 2, starts)
	require.Len(t, ends, 2)
	assert.NoError(t, ends[0])
	assert.ErrorIs(t, ends[1], table.ErrSuperseded)
}
