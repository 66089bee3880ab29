/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"wallet-ledger-go/internal/store"

	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type columnKind int

const (
	kindText columnKind = iota
	kindAmount
	kindTime
	kindMeta
)

type column struct {
	name string
	kind columnKind
}

// table implements store.Repository[T] for one SQLite table. R is the row
// shape sqlx scans into; toModel and toRow translate between the two.
type table[T any, R any] struct {
	db      *sqlx.DB
	name    string
	columns []column
	kinds   map[string]columnKind
	now     func() time.Time

	toModel func(R) (T, error)
	toRow   func(*T) (R, error)
	// stamp fills id and timestamps on a record about to be inserted.
	stamp func(rec *T, now time.Time)

	selectList string
	insertSQL  string
}

func newTable[T any, R any](db *sqlx.DB, name string, columns []column, toModel func(R) (T, error), toRow func(*T) (R, error), stamp func(*T, time.Time)) *table[T, R] {
	t := &table[T, R]{
		db:      db,
		name:    name,
		columns: columns,
		kinds:   make(map[string]columnKind, len(columns)),
		now:     func() time.Time { return time.Now().UTC() },
		toModel: toModel,
		toRow:   toRow,
		stamp:   stamp,
	}

	names := make([]string, len(columns))
	named := make([]string, len(columns))
	for i, c := range columns {
		t.kinds[c.name] = c.kind
		names[i] = c.name
		named[i] = ":" + c.name
	}
	t.selectList = strings.Join(names, ", ")
	t.insertSQL = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", name, t.selectList, strings.Join(named, ", "))
	return t
}

func (t *table[T, R]) FindById(ctx context.Context, id string, sess store.Session) (*T, error) {
	return t.FindOne(ctx, store.Filter{store.FieldId: id}, sess)
}

func (t *table[T, R]) FindOne(ctx context.Context, filter store.Filter, sess store.Session) (*T, error) {
	recs, err := t.Find(ctx, filter, store.FindOptions{Limit: 1}, sess)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, nil
	}
	return &recs[0], nil
}

func (t *table[T, R]) Find(ctx context.Context, filter store.Filter, opts store.FindOptions, sess store.Session) ([]T, error) {
	q, err := runner(t.db, sess)
	if err != nil {
		return nil, err
	}

	where, args, err := t.where(filter)
	if err != nil {
		return nil, err
	}
	order, err := t.orderBy(opts.Sort)
	if err != nil {
		return nil, err
	}

	query := "SELECT " + t.selectList + " FROM " + t.name + where + order
	switch {
	case opts.Limit > 0:
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	case opts.Offset > 0:
		query += " LIMIT -1"
	}
	if opts.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, opts.Offset)
	}

	var rows []R
	if err := sqlx.SelectContext(ctx, q, &rows, query, args...); err != nil {
		zap.L().Error("Failed to query records", zap.String("table", t.name), zap.Error(err))
		return nil, fmt.Errorf("unable to query %s: %w", t.name, err)
	}

	out := make([]T, 0, len(rows))
	for _, row := range rows {
		rec, err := t.toModel(row)
		if err != nil {
			return nil, fmt.Errorf("unable to decode %s row: %w", t.name, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func (t *table[T, R]) Count(ctx context.Context, filter store.Filter, sess store.Session) (int64, error) {
	q, err := runner(t.db, sess)
	if err != nil {
		return 0, err
	}
	where, args, err := t.where(filter)
	if err != nil {
		return 0, err
	}

	var n int64
	if err := sqlx.GetContext(ctx, q, &n, "SELECT COUNT(*) FROM "+t.name+where, args...); err != nil {
		return 0, fmt.Errorf("unable to count %s: %w", t.name, err)
	}
	return n, nil
}

func (t *table[T, R]) InsertOne(ctx context.Context, rec *T, sess store.Session) (*T, error) {
	e, err := runner(t.db, sess)
	if err != nil {
		return nil, err
	}
	return t.insert(ctx, e, rec)
}

// InsertMany writes all records or none. Without a session it opens its own.
func (t *table[T, R]) InsertMany(ctx context.Context, recs []T, sess store.Session) ([]T, error) {
	own := sess == nil
	if own {
		s, err := beginSession(ctx, t.db)
		if err != nil {
			return nil, err
		}
		defer func() { _ = s.Abort() }()
		sess = s
	}

	e, err := runner(t.db, sess)
	if err != nil {
		return nil, err
	}

	out := make([]T, 0, len(recs))
	for i := range recs {
		inserted, err := t.insert(ctx, e, &recs[i])
		if err != nil {
			return nil, err
		}
		out = append(out, *inserted)
	}

	if own {
		if err := sess.Commit(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (t *table[T, R]) insert(ctx context.Context, e sqlx.ExtContext, rec *T) (*T, error) {
	stamped := *rec
	t.stamp(&stamped, t.now())

	row, err := t.toRow(&stamped)
	if err != nil {
		return nil, fmt.Errorf("unable to encode %s row: %w", t.name, err)
	}

	if _, err := sqlx.NamedExecContext(ctx, e, t.insertSQL, row); err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %s", store.ErrDuplicate, t.name)
		}
		zap.L().Error("Failed to insert record", zap.String("table", t.name), zap.Error(err))
		return nil, fmt.Errorf("unable to insert into %s: %w", t.name, err)
	}
	return &stamped, nil
}

func (t *table[T, R]) UpdateOne(ctx context.Context, filter store.Filter, update store.Update, sess store.Session) (int64, error) {
	query, args, err := t.updateSQL(filter, update, true)
	if err != nil {
		return 0, err
	}
	return t.exec(ctx, sess, query, args)
}

func (t *table[T, R]) UpdateMany(ctx context.Context, filter store.Filter, update store.Update, sess store.Session) (int64, error) {
	query, args, err := t.updateSQL(filter, update, false)
	if err != nil {
		return 0, err
	}
	return t.exec(ctx, sess, query, args)
}

func (t *table[T, R]) FindOneAndUpdate(ctx context.Context, filter store.Filter, update store.Update, sess store.Session) (*T, error) {
	q, err := runner(t.db, sess)
	if err != nil {
		return nil, err
	}
	query, args, err := t.updateSQL(filter, update, true)
	if err != nil {
		return nil, err
	}

	var row R
	if err := sqlx.GetContext(ctx, q, &row, query+" RETURNING "+t.selectList, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		zap.L().Error("Failed to update record", zap.String("table", t.name), zap.Error(err))
		return nil, fmt.Errorf("unable to update %s: %w", t.name, err)
	}

	rec, err := t.toModel(row)
	if err != nil {
		return nil, fmt.Errorf("unable to decode %s row: %w", t.name, err)
	}
	return &rec, nil
}

func (t *table[T, R]) exec(ctx context.Context, sess store.Session, query string, args []any) (int64, error) {
	e, err := runner(t.db, sess)
	if err != nil {
		return 0, err
	}
	result, err := e.ExecContext(ctx, query, args...)
	if err != nil {
		zap.L().Error("Failed to update records", zap.String("table", t.name), zap.Error(err))
		return 0, fmt.Errorf("unable to update %s: %w", t.name, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("unable to get rows affected: %w", err)
	}
	return n, nil
}

// updateSQL renders an UPDATE. With single set, at most one matching row is touched.
func (t *table[T, R]) updateSQL(filter store.Filter, update store.Update, single bool) (string, []any, error) {
	if update.Empty() {
		return "", nil, store.ErrEmptyUpdate
	}

	var sets []string
	var args []any

	for _, field := range sortedKeys(update.Set) {
		v, err := t.bind(field, update.Set[field])
		if err != nil {
			return "", nil, err
		}
		sets = append(sets, field+" = ?")
		args = append(args, v)
	}
	for _, field := range sortedKeys(update.Inc) {
		if t.kinds[field] != kindAmount {
			return "", nil, fmt.Errorf("%w: %s.%s cannot be incremented", store.ErrUnknownField, t.name, field)
		}
		units, err := toUnits(update.Inc[field])
		if err != nil {
			return "", nil, err
		}
		sets = append(sets, fmt.Sprintf("%s = %s + ?", field, field))
		args = append(args, units)
	}
	if _, ok := t.kinds[store.FieldUpdatedAt]; ok {
		if _, explicit := update.Set[store.FieldUpdatedAt]; !explicit {
			sets = append(sets, store.FieldUpdatedAt+" = ?")
			args = append(args, toStamp(t.now()))
		}
	}

	where, whereArgs, err := t.where(filter)
	if err != nil {
		return "", nil, err
	}
	args = append(args, whereArgs...)

	query := "UPDATE " + t.name + " SET " + strings.Join(sets, ", ")
	if single {
		query += " WHERE rowid IN (SELECT rowid FROM " + t.name + where + " LIMIT 1)"
	} else {
		query += where
	}
	return query, args, nil
}

func (t *table[T, R]) where(filter store.Filter) (string, []any, error) {
	if len(filter) == 0 {
		return "", nil, nil
	}

	var clauses []string
	var args []any
	for _, field := range sortedKeys(filter) {
		cond, ok := filter[field].(store.Cond)
		if !ok {
			cond = store.Cond{Op: store.OpEq, Value: filter[field]}
		}

		switch cond.Op {
		case store.OpEq, store.OpNe, store.OpGte, store.OpLte, store.OpLt:
			v, err := t.bind(field, cond.Value)
			if err != nil {
				return "", nil, err
			}
			clauses = append(clauses, fmt.Sprintf("%s %s ?", field, cond.Op))
			args = append(args, v)
		case store.OpIn:
			values, _ := cond.Value.([]any)
			if len(values) == 0 {
				clauses = append(clauses, "0")
				continue
			}
			marks := make([]string, len(values))
			for i, raw := range values {
				v, err := t.bind(field, raw)
				if err != nil {
					return "", nil, err
				}
				marks[i] = "?"
				args = append(args, v)
			}
			clauses = append(clauses, fmt.Sprintf("%s IN (%s)", field, strings.Join(marks, ", ")))
		default:
			return "", nil, fmt.Errorf("unsupported operator %q on %s.%s", cond.Op, t.name, field)
		}
	}
	return " WHERE " + strings.Join(clauses, " AND "), args, nil
}

// orderBy renders ORDER BY. Insertion order breaks ties in the last field's direction.
func (t *table[T, R]) orderBy(fields []store.SortField) (string, error) {
	if len(fields) == 0 {
		fields = store.NewestFirst
	}
	parts := make([]string, 0, len(fields)+1)
	desc := false
	for _, f := range fields {
		if _, ok := t.kinds[f.Field]; !ok {
			return "", fmt.Errorf("%w: %s.%s", store.ErrUnknownField, t.name, f.Field)
		}
		desc = f.Desc
		parts = append(parts, f.Field+direction(desc))
	}
	parts = append(parts, "rowid"+direction(desc))
	return " ORDER BY " + strings.Join(parts, ", "), nil
}

// bind converts a Go value into the column's storage representation.
func (t *table[T, R]) bind(field string, v any) (any, error) {
	kind, ok := t.kinds[field]
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", store.ErrUnknownField, t.name, field)
	}

	switch kind {
	case kindAmount:
		d, ok := v.(decimal.Decimal)
		if !ok {
			return nil, fmt.Errorf("%s.%s expects decimal.Decimal, got %T", t.name, field, v)
		}
		return toUnits(d)
	case kindTime:
		ts, ok := v.(time.Time)
		if !ok {
			return nil, fmt.Errorf("%s.%s expects time.Time, got %T", t.name, field, v)
		}
		return toStamp(ts), nil
	case kindMeta:
		m, ok := v.(map[string]string)
		if !ok {
			return nil, fmt.Errorf("%s.%s expects map[string]string, got %T", t.name, field, v)
		}
		return encodeMeta(m)
	default:
		// named string types such as models.Currency bind as plain strings
		if rv := reflect.ValueOf(v); rv.Kind() == reflect.String {
			return rv.String(), nil
		}
		return v, nil
	}
}

func direction(desc bool) string {
	if desc {
		return " DESC"
	}
	return " ASC"
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func encodeMeta(m map[string]string) (string, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("unable to encode meta: %w", err)
	}
	return string(b), nil
}

func decodeMeta(s string) (map[string]string, error) {
	if s == "" || s == "{}" {
		return nil, nil
	}
	m := map[string]string{}
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil, fmt.Errorf("unable to decode meta: %w", err)
	}
	return m, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}
