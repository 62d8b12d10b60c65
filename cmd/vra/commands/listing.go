package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/fivetwenty-io/vra/pkg/vra"
	"github.com/spf13/cobra"
)

// pagedView is the part of a listing the commands drive.
type pagedView[C any] interface {
	SetPage(n int)
	SetSearchTerm(term string)
	SetSort(field string, descending bool)
	Refresh(ctx context.Context) error
	Paginate(ctx context.Context, n int) error
	Metadata() (vra.PageMetadata, bool)
	Rows() []C
}

// loadPage applies the global --page, --search, --sort and --desc flags and
// fetches the page.
func loadPage[C any](cmd *cobra.Command, view pagedView[C]) error {
	flags := cmd.Flags()

	page, _ := flags.GetInt("page")
	search, _ := flags.GetString("search")
	sortField, _ := flags.GetString("sort")
	descending, _ := flags.GetBool("desc")

	view.SetPage(page)
	view.SetSearchTerm(search)
	view.SetSort(sortField, descending)

	return view.Refresh(cmd.Context())
}

// findRow walks every page of view, optionally narrowed by search, and
// returns the first row match accepts.
func findRow[C any](ctx context.Context, view pagedView[C], search string, match func(C) bool) (C, bool, error) {
	var zero C

	view.SetSearchTerm(search)

	err := view.Refresh(ctx)
	if err != nil {
		return zero, false, err
	}

	for page := 1; ; page++ {
		if page > 1 {
			err = view.Paginate(ctx, page)
			if err != nil {
				return zero, false, err
			}
		}

		for _, row := range view.Rows() {
			if match(row) {
				return row, true, nil
			}
		}

		metadata, ok := view.Metadata()
		if !ok || page >= metadata.TotalPages {
			return zero, false, nil
		}
	}
}

// writePageFooter prints the paging position under a table.
func writePageFooter[C any](w io.Writer, view pagedView[C]) {
	metadata, ok := view.Metadata()
	if !ok || metadata.TotalPages <= 1 {
		return
	}

	_, _ = fmt.Fprintf(w, "Page %d of %d (%d total, use --page to see more)\n",
		metadata.Number, metadata.TotalPages, metadata.TotalElements)
}
