package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/assist-by/predictor/internal/domain"
	"github.com/assist-by/predictor/internal/exchange"
)

// CandleStore는 심볼/간격별 캔들을 SQLite에 저장하고 조회합니다
type CandleStore struct {
	db *sql.DB
}

var _ exchange.CandleSource = (*CandleStore)(nil)

// Open은 데이터베이스를 열고 스키마를 준비합니다
func Open(path string) (*CandleStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("디렉토리 생성 실패: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite 열기 실패: %w", err)
	}

	// 단일 작성자
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite 스키마 생성 실패: %w", err)
	}

	log.Printf("[sqlite] 데이터베이스 열림: %s", path)
	return &CandleStore{db: db}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS candles (
			symbol     TEXT    NOT NULL,
			timeframe  TEXT    NOT NULL,
			open_time  INTEGER NOT NULL,
			close_time INTEGER NOT NULL,
			open       REAL    NOT NULL,
			high       REAL    NOT NULL,
			low        REAL    NOT NULL,
			close      REAL    NOT NULL,
			volume     REAL    NOT NULL,
			PRIMARY KEY (symbol, timeframe, open_time)
		);
	`)
	return err
}

// Close는 데이터베이스를 닫습니다
func (s *CandleStore) Close() error { return s.db.Close() }

// SaveCandles는 캔들을 하나의 트랜잭션으로 저장합니다. 같은 시작 시간은 덮어씁니다
func (s *CandleStore) SaveCandles(ctx context.Context, candles domain.CandleList) (int, error) {
	if len(candles) == 0 {
		return 0, nil
	}

	start := time.Now()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("트랜잭션 시작 실패: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO candles (symbol, timeframe, open_time, close_time, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("구문 준비 실패: %w", err)
	}
	defer stmt.Close()

	for _, c := range candles {
		if _, err := stmt.ExecContext(ctx,
			c.Symbol, string(c.Interval), c.OpenTime.UnixMilli(), c.CloseTime.UnixMilli(),
			c.Open, c.High, c.Low, c.Close, c.Volume,
		); err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("캔들 저장 실패 (%s %s): %w", c.Symbol, c.OpenTime.Format(time.RFC3339), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("트랜잭션 커밋 실패: %w", err)
	}

	log.Printf("[sqlite] 캔들 %d개 저장 (%v)", len(candles), time.Since(start))
	return len(candles), nil
}

// LoadCandles는 가장 최근 limit개의 캔들을 시간 오름차순으로 반환합니다
// limit이 0 이하이면 전체를 반환합니다
func (s *CandleStore) LoadCandles(ctx context.Context, symbol string, interval domain.TimeInterval, limit int) (domain.CandleList, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT open_time, close_time, open, high, low, close, volume FROM (
			SELECT open_time, close_time, open, high, low, close, volume
			FROM candles
			WHERE symbol = ? AND timeframe = ?
			ORDER BY open_time DESC
			LIMIT ?
		) ORDER BY open_time ASC
	`, symbol, string(interval), limit)
	if err != nil {
		return nil, fmt.Errorf("캔들 조회 실패: %w", err)
	}
	defer rows.Close()

	var candles domain.CandleList
	for rows.Next() {
		var openMs, closeMs int64
		c := domain.Candle{Symbol: symbol, Interval: interval}
		if err := rows.Scan(&openMs, &closeMs, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, fmt.Errorf("캔들 스캔 실패: %w", err)
		}
		c.OpenTime = time.UnixMilli(openMs)
		c.CloseTime = time.UnixMilli(closeMs)
		candles = append(candles, c)
	}
	return candles, rows.Err()
}

// GetKlines는 저장된 캔들을 CandleSource로 제공합니다
func (s *CandleStore) GetKlines(ctx context.Context, symbol string, interval domain.TimeInterval, limit int) (domain.CandleList, error) {
	return s.LoadCandles(ctx, symbol, interval, limit)
}

// Count는 저장된 캔들 수입니다
func (s *CandleStore) Count(ctx context.Context, symbol string, interval domain.TimeInterval) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM candles WHERE symbol = ? AND timeframe = ?`,
		symbol, string(interval),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("캔들 개수 조회 실패: %w", err)
	}
	return n, nil
}
