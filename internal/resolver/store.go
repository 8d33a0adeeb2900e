package resolver

import (
	"context"
	"errors"
	"fmt"

	"QrestAPI/internal/apperr"
	"QrestAPI/internal/db"
	"QrestAPI/internal/logger"
	"QrestAPI/internal/resource"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgconn"
)

// Create inserts a record from the request body restricted to declared
// writable fields. Unknown and unwritable keys are dropped, mirroring the
// read path's whitelist policy. Returns the created record.
func Create(ctx context.Context, res *resource.Resource, body map[string]any) (map[string]any, error) {
	values := map[string]any{}
	for _, name := range res.WritableFields() {
		if v, ok := body[name]; ok {
			col, _ := res.Column(name)
			values[col] = v
		}
	}

	fieldErrs := map[string]string{}
	for name, f := range res.Fields {
		if !f.Required {
			continue
		}
		col, _ := res.Column(name)
		if v, ok := values[col]; !ok || v == nil || v == "" {
			fieldErrs[name] = "is required"
		}
	}
	if len(fieldErrs) > 0 {
		return nil, &apperr.Validation{Fields: fieldErrs}
	}
	if len(values) == 0 {
		return nil, &apperr.Validation{Fields: map[string]string{"base": "no writable fields supplied"}}
	}

	pkCol, _ := res.Column(res.GetPrimaryKey())
	sb := squirrel.Insert(res.Table).
		SetMap(values).
		Suffix("RETURNING " + pkCol).
		PlaceholderFormat(squirrel.Dollar)

	sqlStr, args, err := sb.ToSql()
	if err != nil {
		return nil, err
	}
	logger.Debug("sql", map[string]any{"sql": sqlStr, "args": args})

	var id any
	if err := db.Pool.QueryRow(ctx, sqlStr, args...).Scan(&id); err != nil {
		return nil, mapWriteError(res, err)
	}
	return Find(ctx, res, id)
}

// Update writes the body's writable fields to the record with the given
// primary key. A body with no writable fields is a no-op that still
// verifies existence.
func Update(ctx context.Context, res *resource.Resource, id any, body map[string]any) error {
	values := map[string]any{}
	for _, name := range res.WritableFields() {
		if v, ok := body[name]; ok {
			col, _ := res.Column(name)
			values[col] = v
		}
	}

	pkCol, _ := res.Column(res.GetPrimaryKey())
	if len(values) == 0 {
		_, err := Find(ctx, res, id)
		return err
	}

	sb := squirrel.Update(res.Table).
		SetMap(values).
		Where(squirrel.Eq{pkCol: id}).
		PlaceholderFormat(squirrel.Dollar)

	sqlStr, args, err := sb.ToSql()
	if err != nil {
		return err
	}
	logger.Debug("sql", map[string]any{"sql": sqlStr, "args": args})

	tag, err := db.Pool.Exec(ctx, sqlStr, args...)
	if err != nil {
		return mapWriteError(res, err)
	}
	if tag.RowsAffected() == 0 {
		return &apperr.NotFound{Resource: res.Name, Key: id}
	}
	return nil
}

// Destroy deletes the record with the given primary key.
func Destroy(ctx context.Context, res *resource.Resource, id any) error {
	pkCol, _ := res.Column(res.GetPrimaryKey())
	sb := squirrel.Delete(res.Table).
		Where(squirrel.Eq{pkCol: id}).
		PlaceholderFormat(squirrel.Dollar)

	sqlStr, args, err := sb.ToSql()
	if err != nil {
		return err
	}
	logger.Debug("sql", map[string]any{"sql": sqlStr, "args": args})

	tag, err := db.Pool.Exec(ctx, sqlStr, args...)
	if err != nil {
		return mapWriteError(res, err)
	}
	if tag.RowsAffected() == 0 {
		return &apperr.NotFound{Resource: res.Name, Key: id}
	}
	return nil
}

// mapWriteError converts constraint violations into field-level validation
// errors; anything else stays a server fault.
func mapWriteError(res *resource.Resource, err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case "23502": // not_null_violation
		return &apperr.Validation{Fields: map[string]string{pgErr.ColumnName: "must not be null"}}
	case "23503": // foreign_key_violation
		return &apperr.Validation{Fields: map[string]string{"base": "referenced record does not exist"}}
	case "23505": // unique_violation
		return &apperr.Validation{Fields: map[string]string{"base": fmt.Sprintf("duplicate value (%s)", pgErr.ConstraintName)}}
	case "23514": // check_violation
		return &apperr.Validation{Fields: map[string]string{"base": fmt.Sprintf("check failed (%s)", pgErr.ConstraintName)}}
	case "42703":
		return &apperr.SchemaMismatch{Resource: res.Name, Field: pgErr.ColumnName}
	}
	return err
}
