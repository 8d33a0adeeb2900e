package resolver

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"QrestAPI/internal/apperr"
	"QrestAPI/internal/db"
	"QrestAPI/internal/logger"
	"QrestAPI/internal/query"
	"QrestAPI/internal/resource"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// maxChildLimit bounds the batched child query of an eager load. Per-parent
// limit/offset is applied after grouping, so the SQL limit only guards
// against runaway result sets.
const maxChildLimit = 10000

// List refines and executes a list query for the resource, then loads the
// requested association nodes in batches: one child query per node,
// regardless of how many parent rows came back.
func List(ctx context.Context, res *resource.Resource, ref *query.Refinement) ([]map[string]any, error) {
	aliasMap := res.GetAliasMap(ctx)

	plan, err := query.Refine(res, aliasMap, ref)
	if err != nil {
		return nil, err
	}

	items, err := execute(ctx, res, plan.Select)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return items, nil
	}

	if len(plan.Eager) == 0 {
		return items, nil
	}

	// child queries are independent, run them concurrently (one per node)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var rerr error
	for _, node := range plan.Eager {
		wg.Add(1)
		go func(node query.EagerNode) {
			defer wg.Done()
			if err := loadAssociation(ctx, node, items); err != nil {
				mu.Lock()
				if rerr == nil {
					rerr = fmt.Errorf("association %q: %w", node.Name, err)
				}
				mu.Unlock()
			}
		}(node)
	}
	wg.Wait()
	if rerr != nil {
		return nil, rerr
	}

	return items, nil
}

// Count executes a COUNT over the same filtered scope as List.
func Count(ctx context.Context, res *resource.Resource, ref *query.Refinement) (int64, error) {
	aliasMap := res.GetAliasMap(ctx)
	sb, err := query.RefineCount(res, aliasMap, ref)
	if err != nil {
		return 0, err
	}
	sqlStr, args, err := sb.ToSql()
	if err != nil {
		return 0, err
	}
	logger.Debug("sql", map[string]any{"sql": sqlStr, "args": args})

	var count int64
	if err := db.Pool.QueryRow(ctx, sqlStr, args...).Scan(&count); err != nil {
		return 0, mapPgError(res, err)
	}
	return count, nil
}

// Find fetches one record by the resource's configured primary key.
func Find(ctx context.Context, res *resource.Resource, id any) (map[string]any, error) {
	ref := &query.Refinement{
		Filters: []query.Filter{{Field: res.GetPrimaryKey(), Op: "eq", Value: id}},
		Limit:   1,
	}
	items, err := List(ctx, res, ref)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, &apperr.NotFound{Resource: res.Name, Key: id}
	}
	return items[0], nil
}

func execute(ctx context.Context, res *resource.Resource, sb squirrel.SelectBuilder) ([]map[string]any, error) {
	sqlStr, args, err := sb.ToSql()
	if err != nil {
		return nil, err
	}
	logger.Debug("sql", map[string]any{"sql": sqlStr, "args": args})

	rows, err := db.Pool.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, mapPgError(res, err)
	}
	return scanRows(rows)
}

func scanRows(rows pgx.Rows) ([]map[string]any, error) {
	defer rows.Close()

	fds := rows.FieldDescriptions()
	items := []map[string]any{}
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, err
		}
		item := make(map[string]any, len(fds))
		for i, fd := range fds {
			item[fd.Name] = vals[i]
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// mapPgError distinguishes schema drift (declared field missing from the
// actual table) from genuine server faults.
func mapPgError(res *resource.Resource, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "42703" {
		return &apperr.SchemaMismatch{Resource: res.Name, Field: pgErr.ColumnName}
	}
	return err
}
