package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"kline/model"
)

// ErrNoData 查询区间内没有任何K线数据
var ErrNoData = errors.New("no kline data found")

// Options ClickHouse连接配置
type Options struct {
	Addr     string
	Database string
	Username string
	Password string
}

// Store 行情数据访问层，从ClickHouse分钟表聚合出日K线
type Store struct {
	conn driver.Conn
}

// Open 建立ClickHouse连接并探活
func Open(opts Options) (*Store, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{opts.Addr},
		Auth: clickhouse.Auth{
			Database: opts.Database,
			Username: opts.Username,
			Password: opts.Password,
		},
		DialTimeout: 5 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("open clickhouse: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("clickhouse ping: %w", err)
	}

	log.Printf("[DB] 已连接ClickHouse: %s/%s\n", opts.Addr, opts.Database)
	return &Store{conn: conn}, nil
}

func (s *Store) Close() error {
	return s.conn.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.conn.Ping(ctx)
}

// priceColumns 根据复权类型选择价格列
func priceColumns(adj model.AdjType) string {
	switch adj {
	case model.AdjAfter:
		return `
			argMin(adj_open_after, dt) AS open,
			argMax(adj_close_after, dt) AS close,
			max(adj_high_after) AS high,
			min(adj_low_after) AS low`
	case model.AdjBefore:
		return `
			argMin(adj_open_before, dt) AS open,
			argMax(adj_close_before, dt) AS close,
			max(adj_high_before) AS high,
			min(adj_low_before) AS low`
	default:
		return `
			argMin(open, dt) AS open,
			argMax(close, dt) AS close,
			max(high) AS high,
			min(low) AS low`
	}
}

// dailyKLineQuery 日K线聚合SQL。volume列存储为UInt64，驱动扫描
// 不做隐式数值转换，必须在服务端转成Float64。
func dailyKLineQuery(adj model.AdjType) string {
	return fmt.Sprintf(`
		SELECT
			trade_date,%s,
			toFloat64(sum(volume)) AS volume,
			sum(amount) AS amount
		FROM stock.minute_kline
		WHERE code = ?
		  AND trade_date >= ?
		  AND trade_date <= ?
		GROUP BY trade_date
		ORDER BY trade_date`, priceColumns(adj))
}

// GetDailyKLine 查询一只股票的日K线。分钟表按交易日聚合，结果按日期
// 升序且无重复，核心回测层直接信任这一顺序。
func (s *Store) GetDailyKLine(ctx context.Context, code, startDate, endDate string, adj model.AdjType) (*model.KLineSet, error) {
	rows, err := s.conn.Query(ctx, dailyKLineQuery(adj), code, startDate, endDate)
	if err != nil {
		return nil, fmt.Errorf("query kline: %w", err)
	}
	defer rows.Close()

	var klines []model.KLine
	for rows.Next() {
		var (
			tradeDate                time.Time
			open, closePx, high, low float64
			volume, amount           float64
		)
		if err := rows.Scan(&tradeDate, &open, &closePx, &high, &low, &volume, &amount); err != nil {
			return nil, fmt.Errorf("scan kline row: %w", err)
		}
		klines = append(klines, model.KLine{
			Date:   tradeDate.Format("2006-01-02"),
			Open:   open,
			Close:  closePx,
			High:   high,
			Low:    low,
			Volume: volume,
			Amount: amount,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate kline rows: %w", err)
	}
	if len(klines) == 0 {
		return nil, fmt.Errorf("%w: %s %s~%s", ErrNoData, code, startDate, endDate)
	}

	name, err := s.GetStockName(ctx, code)
	if err != nil {
		name = code
	}

	return &model.KLineSet{
		StockInfo: model.StockInfo{Code: code, Name: name},
		KLines:    klines,
		Count:     len(klines),
	}, nil
}

// GetStockName 查询股票名称
func (s *Store) GetStockName(ctx context.Context, code string) (string, error) {
	var name string
	err := s.conn.QueryRow(ctx,
		`SELECT name FROM stock.minute_kline WHERE code = ? LIMIT 1`, code).Scan(&name)
	if err != nil {
		return "", fmt.Errorf("query stock name: %w", err)
	}
	return name, nil
}

// SearchStocks 按代码或名称模糊搜索股票
func (s *Store) SearchStocks(ctx context.Context, keyword string, limit int) ([]model.StockInfo, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT code, any(name) AS name
		FROM stock.minute_kline
		GROUP BY code
		ORDER BY code
		LIMIT ?`
	args := []any{limit}
	if keyword != "" {
		query = `
			SELECT code, any(name) AS name
			FROM stock.minute_kline
			GROUP BY code
			HAVING code LIKE ? OR name LIKE ?
			ORDER BY code
			LIMIT ?`
		pattern := "%" + keyword + "%"
		args = []any{pattern, pattern, limit}
	}

	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search stocks: %w", err)
	}
	defer rows.Close()

	var items []model.StockInfo
	for rows.Next() {
		var info model.StockInfo
		if err := rows.Scan(&info.Code, &info.Name); err != nil {
			return nil, fmt.Errorf("scan stock row: %w", err)
		}
		items = append(items, info)
	}
	return items, rows.Err()
}
