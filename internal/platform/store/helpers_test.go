package store

import (
	"context"
	"errors"
	"reflect"
	"testing"

	perr "codefrog/internal/platform/errors"
)

type cmdTag struct {
	n int64
}

func (c cmdTag) RowsAffected() int64 { return c.n }

type fakeRowQuerier struct {
	lastExecSQL string
	lastExecArg []any
	execTag     CommandTag
	execErr     error

	queryRows Rows
	queryErr  error

	qrErr error
}

func (f *fakeRowQuerier) Exec(ctx context.Context, sql string, args ...any) (CommandTag, error) {
	f.lastExecSQL = sql
	f.lastExecArg = args
	return f.execTag, f.execErr
}

func (f *fakeRowQuerier) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	return f.queryRows, f.queryErr
}

func (f *fakeRowQuerier) QueryRow(ctx context.Context, sql string, args ...any) Row {
	return &fakeRow{err: f.qrErr}
}

type fakeRow struct{ err error }

func (r *fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) > 0 {
		switch p := dest[0].(type) {
		case *int:
			*p = 42
		case *string:
			*p = "ok"
		}
	}
	return nil
}

type fakeRows struct {
	data   [][]any
	idx    int
	err    error
	closed bool
}

func newRows(data [][]any) *fakeRows {
	return &fakeRows{data: data, idx: -1}
}

func (r *fakeRows) Next() bool {
	if r.err != nil {
		return false
	}
	r.idx++
	return r.idx >= 0 && r.idx < len(r.data)
}

func (r *fakeRows) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if r.idx < 0 || r.idx >= len(r.data) {
		return errors.New("scan out of bounds")
	}
	row := r.data[r.idx]
	if len(dest) != len(row) {
		return errors.New("dest len mismatch")
	}
	for i := range dest {
		dv := reflect.ValueOf(dest[i])
		if dv.Kind() != reflect.Pointer || !dv.Elem().CanSet() {
			return errors.New("dest not settable")
		}
		dv.Elem().Set(reflect.ValueOf(row[i]))
	}
	return nil
}

func (r *fakeRows) Err() error { return r.err }
func (r *fakeRows) Close()     { r.closed = true }

func TestExecOne(t *testing.T) {
	q := &fakeRowQuerier{execTag: cmdTag{n: 1}}
	if err := ExecOne(context.Background(), q, "UPDATE t SET x = $1", 7); err != nil {
		t.Fatalf("ExecOne: %v", err)
	}
	if q.lastExecSQL == "" || len(q.lastExecArg) != 1 {
		t.Fatalf("exec not forwarded: %q %v", q.lastExecSQL, q.lastExecArg)
	}

	q = &fakeRowQuerier{execTag: cmdTag{n: 2}}
	if err := ExecOne(context.Background(), q, "UPDATE t SET x = $1", 7); err == nil {
		t.Fatal("want error for 2 rows affected")
	}

	q = &fakeRowQuerier{execErr: errors.New("boom")}
	if err := ExecOne(context.Background(), q, "UPDATE t SET x = $1", 7); err == nil {
		t.Fatal("want exec error surfaced")
	}
}

func TestScalar(t *testing.T) {
	q := &fakeRowQuerier{}
	n, err := Scalar[int](context.Background(), q, "SELECT count(*) FROM t")
	if err != nil {
		t.Fatalf("Scalar: %v", err)
	}
	if n != 42 {
		t.Fatalf("got %d", n)
	}

	q = &fakeRowQuerier{qrErr: errors.New("boom")}
	if _, err := Scalar[int](context.Background(), q, "SELECT 1"); err == nil {
		t.Fatal("want scan error surfaced")
	}
}

type pair struct {
	ID   int64
	Name string
}

func scanPair(r Row) (pair, error) {
	var p pair
	err := r.Scan(&p.ID, &p.Name)
	return p, err
}

func TestOne(t *testing.T) {
	rows := newRows([][]any{{int64(1), "a"}})
	q := &fakeRowQuerier{queryRows: rows}
	p, err := One(context.Background(), q, scanPair, "SELECT id, name FROM t WHERE id = $1", 1)
	if err != nil {
		t.Fatalf("One: %v", err)
	}
	if p.ID != 1 || p.Name != "a" {
		t.Fatalf("got %+v", p)
	}
	if !rows.closed {
		t.Fatal("rows not closed")
	}
}

func TestOneNotFound(t *testing.T) {
	q := &fakeRowQuerier{queryRows: newRows(nil)}
	_, err := One(context.Background(), q, scanPair, "SELECT id, name FROM t WHERE id = $1", 1)
	if !errors.Is(err, perr.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestOneTooMany(t *testing.T) {
	rows := newRows([][]any{{int64(1), "a"}, {int64(2), "b"}})
	q := &fakeRowQuerier{queryRows: rows}
	if _, err := One(context.Background(), q, scanPair, "SELECT id, name FROM t"); err == nil {
		t.Fatal("want error for extra rows")
	}
}

func TestMany(t *testing.T) {
	rows := newRows([][]any{
		{int64(1), "a"},
		{int64(2), "b"},
		{int64(3), "c"},
	})
	q := &fakeRowQuerier{queryRows: rows}
	out, err := Many(context.Background(), q, scanPair, "SELECT id, name FROM t")
	if err != nil {
		t.Fatalf("Many: %v", err)
	}
	if len(out) != 3 || out[2].Name != "c" {
		t.Fatalf("got %+v", out)
	}
}

func TestManyQueryError(t *testing.T) {
	q := &fakeRowQuerier{queryErr: errors.New("boom")}
	if _, err := Many(context.Background(), q, scanPair, "SELECT 1"); err == nil {
		t.Fatal("want query error surfaced")
	}
}

func TestGuardNilStore(t *testing.T) {
	var s *Store
	if err := s.Guard(context.Background()); err == nil {
		t.Fatal("nil store must fail guard")
	}
}
