package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/revlabs/weather-gateway/internal/core/domain"
)

type PostgresStore struct {
	db     *sql.DB
	logger *zap.Logger
}

type Config struct {
	Host                  string
	Port                  int
	User                  string
	Password              string
	Database              string
	SSLMode               string
	MaxConnections        int
	MaxIdleConnections    int
	ConnectionMaxLifetime time.Duration
}

func NewPostgresStore(cfg Config, logger *zap.Logger) (*PostgresStore, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdleConnections)
	db.SetConnMaxLifetime(cfg.ConnectionMaxLifetime)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{
		db:     db,
		logger: logger,
	}, nil
}

// SaveLog inserts a request log row. ID and CreatedAt are assigned by the
// database and are not read back; logs are fire-and-forget on the write path.
func (p *PostgresStore) SaveLog(ctx context.Context, log domain.RequestLog) error {
	tracer := otel.Tracer("database")
	ctx, span := tracer.Start(ctx, "SaveLog")
	defer span.End()

	span.SetAttributes(
		attribute.String("log.host", log.Host),
	)

	params, err := json.Marshal(log.Params)
	if err != nil {
		return fmt.Errorf("failed to encode params: %w", err)
	}

	data, err := json.Marshal(log.Data)
	if err != nil {
		return fmt.Errorf("failed to encode data: %w", err)
	}

	query := `
        INSERT INTO request_logs (user_agent, host, params, data)
        VALUES ($1, $2, $3, $4)
    `

	start := time.Now()
	_, err = p.db.ExecContext(ctx, query,
		log.UserAgent,
		log.Host,
		params,
		data,
	)

	duration := time.Since(start)
	if err != nil {
		p.logger.Error("failed to save request log",
			zap.Error(err),
			zap.String("host", log.Host),
			zap.Duration("duration", duration),
		)
		span.RecordError(err)
		return err
	}

	p.logger.Debug("request log saved",
		zap.String("host", log.Host),
		zap.Duration("duration", duration),
	)

	return nil
}

// QueryLogs returns logs whose created_at falls inside [start, end],
// newest first.
func (p *PostgresStore) QueryLogs(ctx context.Context, start, end time.Time) ([]domain.RequestLog, error) {
	tracer := otel.Tracer("database")
	ctx, span := tracer.Start(ctx, "QueryLogs")
	defer span.End()

	span.SetAttributes(
		attribute.String("query.start", start.Format(time.RFC3339)),
		attribute.String("query.end", end.Format(time.RFC3339)),
	)

	query := `
        SELECT id, user_agent, host, params, data, created_at
        FROM request_logs
        WHERE created_at >= $1 AND created_at <= $2
        ORDER BY created_at DESC
    `

	rows, err := p.db.QueryContext(ctx, query, start, end)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	defer rows.Close()

	logs := make([]domain.RequestLog, 0)

	for rows.Next() {
		var (
			entry     domain.RequestLog
			userAgent sql.NullString
			host      sql.NullString
			params    []byte
			data      []byte
		)

		if err := rows.Scan(&entry.ID, &userAgent, &host, &params, &data, &entry.CreatedAt); err != nil {
			span.RecordError(err)
			return nil, err
		}

		entry.UserAgent = userAgent.String
		entry.Host = host.String

		if len(params) > 0 {
			if err := json.Unmarshal(params, &entry.Params); err != nil {
				p.logger.Warn("failed to decode log params",
					zap.Int64("id", entry.ID),
					zap.Error(err))
			}
		}

		if len(data) > 0 {
			if err := json.Unmarshal(data, &entry.Data); err != nil {
				p.logger.Warn("failed to decode log data",
					zap.Int64("id", entry.ID),
					zap.Error(err))
			}
		}

		logs = append(logs, entry)
	}

	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return nil, err
	}

	return logs, nil
}

// GetLogStats summarizes request log volume since the given time.
func (p *PostgresStore) GetLogStats(ctx context.Context, since time.Time) (map[string]interface{}, error) {
	query := `
        SELECT
            COUNT(*) as total_logs,
            MAX(created_at) as last_logged_at
        FROM request_logs
        WHERE created_at >= $1
    `

	var stats struct {
		TotalLogs    int
		LastLoggedAt sql.NullTime
	}

	err := p.db.QueryRowContext(ctx, query, since).Scan(
		&stats.TotalLogs,
		&stats.LastLoggedAt,
	)

	if err != nil {
		return nil, err
	}

	result := map[string]interface{}{
		"total_logs": stats.TotalLogs,
	}

	if stats.LastLoggedAt.Valid {
		result["last_logged_at"] = stats.LastLoggedAt.Time.Format(time.RFC3339)
	}

	return result, nil
}

// DB exposes the underlying connection for migrations.
func (p *PostgresStore) DB() *sql.DB {
	return p.db
}

func (p *PostgresStore) Close() error {
	return p.db.Close()
}

func (p *PostgresStore) Ping() error {
	return p.db.Ping()
}
