package store

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/column"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"kline/model"
)

// 行扫描目标全部是float64。volume列底层是UInt64，驱动拒绝隐式
// 转换，这里固定住扫描契约：裸UInt64列扫不进float64，SQL里必须
// 先toFloat64。
func TestUInt64ColumnRejectsFloat64Scan(t *testing.T) {
	col, err := column.Type("UInt64").Column("volume", nil)
	if err != nil {
		t.Fatalf("build column: %v", err)
	}
	if err := col.AppendRow(uint64(12345)); err != nil {
		t.Fatalf("append row: %v", err)
	}

	var v float64
	if err := col.ScanRow(&v, 0); err == nil {
		t.Fatal("expected scan error for UInt64 -> *float64")
	}
}

func TestFloat64ColumnScansIntoFloat64(t *testing.T) {
	col, err := column.Type("Float64").Column("volume", nil)
	if err != nil {
		t.Fatalf("build column: %v", err)
	}
	if err := col.AppendRow(float64(12345)); err != nil {
		t.Fatalf("append row: %v", err)
	}

	var v float64
	if err := col.ScanRow(&v, 0); err != nil {
		t.Fatalf("scan row: %v", err)
	}
	if v != 12345 {
		t.Fatalf("volume = %v, want 12345", v)
	}
}

func TestDailyKLineQueryCastsVolume(t *testing.T) {
	for _, adj := range []model.AdjType{model.AdjNone, model.AdjBefore, model.AdjAfter} {
		query := dailyKLineQuery(adj)
		if !strings.Contains(query, "toFloat64(sum(volume)) AS volume") {
			t.Fatalf("adj=%s: query does not cast volume:\n%s", adj, query)
		}
	}
}

type errRow struct{ err error }

func (r errRow) Err() error                { return r.err }
func (r errRow) Scan(dest ...any) error    { return r.err }
func (r errRow) ScanStruct(dest any) error { return r.err }

// fakeConn 只实现测试用到的方法，其余走内嵌接口(调用即panic)
type fakeConn struct {
	driver.Conn
	rows driver.Rows
}

func (c fakeConn) Query(ctx context.Context, query string, args ...any) (driver.Rows, error) {
	return c.rows, nil
}

func (c fakeConn) QueryRow(ctx context.Context, query string, args ...any) driver.Row {
	return errRow{err: errors.New("name lookup failed")}
}

type oneRow struct {
	driver.Rows
	done bool
}

func (r *oneRow) Next() bool {
	if r.done {
		return false
	}
	r.done = true
	return true
}

func (r *oneRow) Scan(dest ...any) error {
	*dest[0].(*time.Time) = time.Date(2024, 1, 2, 0, 0, 0, 0, time.Local)
	for _, d := range dest[1:] {
		*d.(*float64) = 10
	}
	return nil
}

func (r *oneRow) Err() error   { return nil }
func (r *oneRow) Close() error { return nil }

func TestGetStockNameErrorReturnsEmpty(t *testing.T) {
	s := &Store{conn: fakeConn{}}

	name, err := s.GetStockName(context.Background(), "600000.SH")
	if err == nil {
		t.Fatal("expected error")
	}
	if name != "" {
		t.Fatalf("name = %q, want empty on lookup error", name)
	}
}

func TestGetDailyKLineNameFallsBackToCode(t *testing.T) {
	s := &Store{conn: fakeConn{rows: &oneRow{}}}

	set, err := s.GetDailyKLine(context.Background(), "600000.SH", "2024-01-01", "2024-01-31", model.AdjNone)
	if err != nil {
		t.Fatalf("GetDailyKLine: %v", err)
	}
	if set.StockInfo.Name != "600000.SH" {
		t.Fatalf("name = %q, want fallback to code", set.StockInfo.Name)
	}
	if set.Count != 1 || set.KLines[0].Date != "2024-01-02" {
		t.Fatalf("klines = %#v", set.KLines)
	}
}

func TestDailyKLineQueryAdjustedColumns(t *testing.T) {
	cases := []struct {
		adj  model.AdjType
		want string
	}{
		{model.AdjNone, "argMax(close, dt) AS close"},
		{model.AdjBefore, "argMax(adj_close_before, dt) AS close"},
		{model.AdjAfter, "argMax(adj_close_after, dt) AS close"},
	}
	for _, c := range cases {
		if query := dailyKLineQuery(c.adj); !strings.Contains(query, c.want) {
			t.Fatalf("adj=%s: missing %q in:\n%s", c.adj, c.want, query)
		}
	}
}
