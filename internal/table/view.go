// Package table drives a paged, sortable, searchable listing of one vRA
// collection and renders each row into a companion value.
package table

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"sync"

	"github.com/fivetwenty-io/vra/internal/constants"
	"github.com/fivetwenty-io/vra/internal/pipeline"
	"github.com/fivetwenty-io/vra/internal/registry"
	"github.com/fivetwenty-io/vra/pkg/vra"
)

// ErrSuperseded is returned by a refresh whose response arrived after a
// newer refresh had been started. Its result is discarded.
var ErrSuperseded = errors.New("refresh superseded by a newer refresh")

// State is the lifecycle state of a view.
type State int

// View states.
const (
	StateIdle State = iota
	StateLoading
	StateReady
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Listing describes one kind of listing.
type Listing[T, C any] interface {
	// Endpoint is the registry name of the collection.
	Endpoint() string
	// Filters are the predicates always applied to the collection.
	Filters() []string
	// DefaultSort is the initial sort field and direction.
	DefaultSort() (field string, descending bool)
	// SearchField is the field matched by a search term.
	SearchField() string
	ExtendedData() bool
	Operations() bool
	// RenderRow builds the companion of one row. It must not block.
	RenderRow(ctx context.Context, row T) C
}

// Requester builds registry calls.
type Requester interface {
	BuildRequest(name, verb string, params registry.Params, body any) (*registry.Call, error)
}

// Listener observes refreshes. Every RefreshStarted is followed by exactly one
// RefreshEnded, with ErrSuperseded when a newer refresh won.
type Listener interface {
	RefreshStarted()
	Ready()
	RefreshEnded(err error)
}

// ListenerFuncs adapts optional functions to the Listener interface.
type ListenerFuncs struct {
	OnStart func()
	OnReady func()
	OnEnd   func(err error)
}

// RefreshStarted calls OnStart.
func (l ListenerFuncs) RefreshStarted() {
	if l.OnStart != nil {
		l.OnStart()
	}
}

// Ready calls OnReady.
func (l ListenerFuncs) Ready() {
	if l.OnReady != nil {
		l.OnReady()
	}
}

// RefreshEnded calls OnEnd.
func (l ListenerFuncs) RefreshEnded(err error) {
	if l.OnEnd != nil {
		l.OnEnd(err)
	}
}

// Option configures a View.
type Option func(*options)

type options struct {
	pageSize  int
	notifier  vra.Notifier
	logger    vra.Logger
	listeners []Listener
}

// WithPageSize sets the number of rows requested per page.
func WithPageSize(size int) Option {
	return func(o *options) {
		if size > 0 {
			o.pageSize = size
		}
	}
}

// WithNotifier sets the sink for refresh failures.
func WithNotifier(notifier vra.Notifier) Option {
	return func(o *options) {
		if notifier != nil {
			o.notifier = notifier
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger vra.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithListener registers a refresh listener.
func WithListener(listener Listener) Option {
	return func(o *options) {
		o.listeners = append(o.listeners, listener)
	}
}

// View is one listing. Its methods are safe for concurrent use.
type View[T, C any] struct {
	listing   Listing[T, C]
	requester Requester
	pipeline  *pipeline.Pipeline[T]
	notifier  vra.Notifier
	logger    vra.Logger
	listeners []Listener

	mu         sync.Mutex
	state      State
	generation uint64
	raw        []T
	items      []T
	rows       []C
	metadata   *vra.PageMetadata
	limit      int
	page       int
	sortField  string
	sortDesc   bool
	searchTerm string
}

// New creates an idle view. Nothing is fetched until Refresh.
func New[T, C any](requester Requester, listing Listing[T, C], opts ...Option) *View[T, C] {
	o := &options{
		pageSize: constants.DefaultPageSize,
		notifier: vra.NopNotifier{},
		logger:   vra.NopLogger{},
	}

	for _, opt := range opts {
		opt(o)
	}

	sortField, sortDesc := listing.DefaultSort()

	return &View[T, C]{
		listing:   listing,
		requester: requester,
		pipeline:  pipeline.New[T](),
		notifier:  o.notifier,
		logger:    o.logger,
		listeners: o.listeners,
		limit:     o.pageSize,
		page:      constants.DefaultPage,
		sortField: sortField,
		sortDesc:  sortDesc,
	}
}

// Pipeline returns the row pipeline. Stages should be added before the
// first refresh.
func (v *View[T, C]) Pipeline() *pipeline.Pipeline[T] {
	return v.pipeline
}

// query builds the options of the next fetch. Callers hold v.mu.
func (v *View[T, C]) query() *vra.QueryOptions {
	filters := append([]string(nil), v.listing.Filters()...)
	if v.searchTerm != "" {
		filters = append(filters, vra.SearchFilter(v.listing.SearchField(), v.searchTerm))
	}

	return &vra.QueryOptions{
		WithExtendedData: v.listing.ExtendedData(),
		WithOperations:   v.listing.Operations(),
		Filters:          filters,
		OrderBy:          v.sortField,
		Descending:       v.sortDesc,
		Limit:            v.limit,
		Page:             v.page,
	}
}

// Refresh fetches the current page and renders it.
func (v *View[T, C]) Refresh(ctx context.Context) error {
	v.mu.Lock()
	v.generation++
	generation := v.generation
	v.state = StateLoading
	query := v.query()
	v.mu.Unlock()

	for _, listener := range v.listeners {
		listener.RefreshStarted()
	}

	err := v.refresh(ctx, generation, query)

	for _, listener := range v.listeners {
		listener.RefreshEnded(err)
	}

	return err
}

func (v *View[T, C]) refresh(ctx context.Context, generation uint64, query *vra.QueryOptions) error {
	endpoint := v.listing.Endpoint()

	v.logger.Debug("Refreshing listing", map[string]interface{}{
		"endpoint": endpoint,
		"query":    query.Encode(),
	})

	var page vra.Page[T]

	call, err := v.requester.BuildRequest(endpoint, http.MethodGet, registry.Params{Query: query}, nil)
	if err == nil {
		err = call.Decode(ctx, &page)
	}

	if err != nil {
		return v.fail(generation, fmt.Errorf("listing %s: %w", endpoint, err))
	}

	items, err := v.pipeline.Run(page.Content)
	if err != nil {
		return v.fail(generation, fmt.Errorf("processing %s rows: %w", endpoint, err))
	}

	rows := v.render(ctx, items)

	v.mu.Lock()

	if generation != v.generation {
		v.mu.Unlock()
		v.logger.Debug("Discarding superseded listing response", map[string]interface{}{"endpoint": endpoint})

		return ErrSuperseded
	}

	metadata := page.Metadata
	v.metadata = &metadata
	v.raw = page.Content
	v.items = items
	v.rows = rows
	v.state = StateReady
	v.mu.Unlock()

	for _, listener := range v.listeners {
		listener.Ready()
	}

	return nil
}

func (v *View[T, C]) render(ctx context.Context, items []T) []C {
	rows := make([]C, len(items))
	for i, item := range items {
		rows[i] = v.listing.RenderRow(ctx, item)
	}

	return rows
}

func (v *View[T, C]) fail(generation uint64, err error) error {
	v.mu.Lock()

	if generation != v.generation {
		v.mu.Unlock()

		return ErrSuperseded
	}

	v.state = StateError
	v.mu.Unlock()

	v.notifier.Notify(vra.LevelDanger, vra.ErrorMessage(err), constants.ErrorTitle)

	return err
}

// Relist re-runs the pipeline over the stored page without fetching.
func (v *View[T, C]) Relist(ctx context.Context) error {
	v.mu.Lock()
	generation := v.generation
	raw := v.raw
	v.mu.Unlock()

	items, err := v.pipeline.Run(raw)
	if err != nil {
		return v.fail(generation, fmt.Errorf("processing %s rows: %w", v.listing.Endpoint(), err))
	}

	rows := v.render(ctx, items)

	v.mu.Lock()
	defer v.mu.Unlock()

	if generation != v.generation {
		return ErrSuperseded
	}

	v.items = items
	v.rows = rows

	return nil
}

// Search sets the search term, returns to the first page and refreshes.
// An empty term clears the search.
func (v *View[T, C]) Search(ctx context.Context, term string) error {
	v.mu.Lock()
	v.searchTerm = term
	v.page = constants.DefaultPage
	v.mu.Unlock()

	return v.Refresh(ctx)
}

// Paginate moves to page n and refreshes. It does nothing when n is outside
// [1, totalPages] or no page has been loaded yet.
func (v *View[T, C]) Paginate(ctx context.Context, n int) error {
	v.mu.Lock()

	if v.metadata == nil || n < 1 || n > v.metadata.TotalPages {
		v.mu.Unlock()

		return nil
	}

	v.page = n
	v.mu.Unlock()

	return v.Refresh(ctx)
}

// PaginateNumber is Paginate for untyped input. Non-integral values are ignored.
func (v *View[T, C]) PaginateNumber(ctx context.Context, n float64) error {
	if math.IsNaN(n) || math.IsInf(n, 0) || n != math.Trunc(n) {
		return nil
	}

	if n < math.MinInt32 || n > math.MaxInt32 {
		return nil
	}

	return v.Paginate(ctx, int(n))
}

// SortBy sets the sort field and direction and refreshes.
func (v *View[T, C]) SortBy(ctx context.Context, field string, descending bool) error {
	v.mu.Lock()
	v.sortField = field
	v.sortDesc = descending
	v.mu.Unlock()

	return v.Refresh(ctx)
}

// SetPage sets the page of the next refresh without validating it against
// a loaded page. It is meant for the first refresh of a view.
func (v *View[T, C]) SetPage(n int) {
	if n < 1 {
		return
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	v.page = n
}

// SetSearchTerm sets the search term of the next refresh.
func (v *View[T, C]) SetSearchTerm(term string) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.searchTerm = term
}

// SetSort sets the sort of the next refresh. An empty field keeps the
// listing's default.
func (v *View[T, C]) SetSort(field string, descending bool) {
	if field == "" {
		return
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	v.sortField = field
	v.sortDesc = descending
}

// State returns the current state.
func (v *View[T, C]) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.state
}

// Rows returns the rendered rows of the current page.
func (v *View[T, C]) Rows() []C {
	v.mu.Lock()
	defer v.mu.Unlock()

	return append([]C(nil), v.rows...)
}

// Items returns the pipeline output the rows were rendered from.
func (v *View[T, C]) Items() []T {
	v.mu.Lock()
	defer v.mu.Unlock()

	return append([]T(nil), v.items...)
}

// Raw returns the rows exactly as the server returned them.
func (v *View[T, C]) Raw() []T {
	v.mu.Lock()
	defer v.mu.Unlock()

	return append([]T(nil), v.raw...)
}

// Metadata returns the paging metadata of the last loaded page.
func (v *View[T, C]) Metadata() (vra.PageMetadata, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.metadata == nil {
		return vra.PageMetadata{}, false
	}

	return *v.metadata, true
}

// PageNumber returns the page requested by the next refresh.
func (v *View[T, C]) PageNumber() int {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.page
}

// Sort returns the sort field and direction.
func (v *View[T, C]) Sort() (string, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.sortField, v.sortDesc
}

// SearchTerm returns the active search term.
func (v *View[T, C]) SearchTerm() string {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.searchTerm
}
