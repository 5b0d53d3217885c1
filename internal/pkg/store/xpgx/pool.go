// Package xpgx wraps a pgx pool with squirrel-aware exec/select helpers that
// scan rows into db-tagged structs.
package xpgx

import (
	"context"
	"fmt"
	"reflect"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Sqlizer interface {
	ToSql() (string, []interface{}, error)
}

type Pool interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Execx(ctx context.Context, query Sqlizer) (pgconn.CommandTag, error)
	// Getx scans a single row into dest (a pointer to a db-tagged struct).
	// Returns pgx.ErrNoRows when the query matches nothing.
	Getx(ctx context.Context, dest interface{}, query Sqlizer) error
	// Selectx scans all rows into dest (a pointer to a slice of structs or
	// struct pointers).
	Selectx(ctx context.Context, dest interface{}, query Sqlizer) error
	Close()
}

type pool struct {
	db *pgxpool.Pool
}

func NewPool(ctx context.Context, dsn string) (Pool, error) {
	db, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}

	if err = db.Ping(ctx); err != nil {
		return nil, fmt.Errorf("pool ping: %w", err)
	}

	return &pool{db: db}, nil
}

func (p *pool) Close() {
	p.db.Close()
}

func (p *pool) Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	return p.db.Exec(ctx, sql, args...)
}

func (p *pool) Execx(ctx context.Context, query Sqlizer) (pgconn.CommandTag, error) {
	sql, args, err := query.ToSql()
	if err != nil {
		return pgconn.CommandTag{}, fmt.Errorf("query.ToSql: %w", err)
	}

	return p.db.Exec(ctx, sql, args...)
}

func (p *pool) Getx(ctx context.Context, dest interface{}, query Sqlizer) error {
	sql, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("query.ToSql: %w", err)
	}

	rows, err := p.db.Query(ctx, sql, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	if !rows.Next() {
		if err = rows.Err(); err != nil {
			return err
		}
		return pgx.ErrNoRows
	}

	targets, err := scanTargets(reflect.ValueOf(dest), rows.FieldDescriptions())
	if err != nil {
		return err
	}
	if err = rows.Scan(targets...); err != nil {
		return err
	}

	return rows.Err()
}

func (p *pool) Selectx(ctx context.Context, dest interface{}, query Sqlizer) error {
	sql, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("query.ToSql: %w", err)
	}

	rows, err := p.db.Query(ctx, sql, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	v := reflect.ValueOf(dest)
	if v.Kind() != reflect.Ptr || v.Elem().Kind() != reflect.Slice {
		return fmt.Errorf("xpgx: Selectx dest must be a pointer to a slice, got %T", dest)
	}

	slice := v.Elem()
	elemType := slice.Type().Elem()
	elemIsPtr := elemType.Kind() == reflect.Ptr
	structType := elemType
	if elemIsPtr {
		structType = elemType.Elem()
	}

	for rows.Next() {
		elem := reflect.New(structType)
		targets, err := scanTargets(elem, rows.FieldDescriptions())
		if err != nil {
			return err
		}
		if err = rows.Scan(targets...); err != nil {
			return err
		}

		if elemIsPtr {
			slice.Set(reflect.Append(slice, elem))
		} else {
			slice.Set(reflect.Append(slice, elem.Elem()))
		}
	}

	return rows.Err()
}

// scanTargets maps result columns onto the db-tagged fields of the struct
// pointed to by v, in column order.
func scanTargets(v reflect.Value, fields []pgconn.FieldDescription) ([]interface{}, error) {
	if v.Kind() != reflect.Ptr || v.Elem().Kind() != reflect.Struct {
		return nil, fmt.Errorf("xpgx: scan dest must be a pointer to a struct, got %s", v.Type())
	}

	byTag := map[string][]int{}
	collectFieldIndexes(v.Elem().Type(), nil, byTag)

	targets := make([]interface{}, 0, len(fields))
	for _, fd := range fields {
		idx, ok := byTag[fd.Name]
		if !ok {
			return nil, fmt.Errorf("xpgx: no destination field for column %q in %s", fd.Name, v.Elem().Type())
		}
		targets = append(targets, v.Elem().FieldByIndex(idx).Addr().Interface())
	}

	return targets, nil
}

func collectFieldIndexes(t reflect.Type, prefix []int, byTag map[string][]int) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		idx := append(append([]int{}, prefix...), i)

		if f.Anonymous && f.Type.Kind() == reflect.Struct {
			collectFieldIndexes(f.Type, idx, byTag)
			continue
		}

		tag := f.Tag.Get("db")
		if tag == "" || tag == "-" {
			continue
		}
		byTag[tag] = idx
	}
}
