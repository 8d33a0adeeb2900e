package query

import (
	"net/url"
	"strconv"

	"QrestAPI/internal/apperr"
)

const (
	// defaultPerPage applies when page is supplied without per_page.
	defaultPerPage = 25
	// maxLimit caps every list query; a request can lower it, never raise it.
	maxLimit = 1000
)

// classifyPagination parses limit/offset and page/per_page into the
// refinement. page/per_page is normalized to limit/offset (page is
// 1-indexed) and wins when both families are supplied, so paginated
// clients are not overridden by a stray raw offset.
func classifyPagination(ref *Refinement, params url.Values) error {
	limit, err := parseUintParam(params, paramLimit)
	if err != nil {
		return err
	}
	offset, err := parseUintParam(params, paramOffset)
	if err != nil {
		return err
	}
	ref.Limit = limit
	ref.Offset = offset

	_, hasPage := params[paramPage]
	_, hasPerPage := params[paramPerPage]
	if !hasPage && !hasPerPage {
		clampLimit(ref)
		return nil
	}

	page, err := parseUintParam(params, paramPage)
	if err != nil {
		return err
	}
	if hasPage && page == 0 {
		return &apperr.InvalidDirective{Key: paramPage, Value: params.Get(paramPage)}
	}
	if page == 0 {
		page = 1
	}
	perPage, err := parseUintParam(params, paramPerPage)
	if err != nil {
		return err
	}
	if hasPerPage && perPage == 0 {
		return &apperr.InvalidDirective{Key: paramPerPage, Value: params.Get(paramPerPage)}
	}
	if perPage == 0 {
		perPage = defaultPerPage
	}

	ref.Limit = perPage
	ref.Offset = (page - 1) * perPage
	clampLimit(ref)
	return nil
}

func clampLimit(ref *Refinement) {
	if ref.Limit == 0 || ref.Limit > maxLimit {
		ref.Limit = maxLimit
	}
}

func parseUintParam(params url.Values, key string) (uint64, error) {
	raw := params.Get(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, &apperr.InvalidDirective{Key: key, Value: raw}
	}
	return n, nil
}
