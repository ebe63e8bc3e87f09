package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/deppfellow/nginx-log-sink/internal/model"
	"github.com/deppfellow/nginx-log-sink/internal/server"
	"github.com/deppfellow/nginx-log-sink/internal/sqlerr"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const accessLogColumns = `id, received_at, source, cluster, namespace, pod, container, message, payload, raw_entry, parsed_nginx`

// DBTX is the part of *pgxpool.Pool the repository needs.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type AccessLogRepository struct {
	db DBTX
}

func NewAccessLogRepository(s *server.Server) *AccessLogRepository {
	return &AccessLogRepository{db: s.DB.Pool}
}

// Insert stores one record. Status, method and path are denormalised out of
// parsed_nginx so they can be indexed and filtered.
//
// Postgres rejects NUL in text and \u0000 in jsonb, so both are stripped
// before the insert. Driver errors come back as *sqlerr.Error.
func (r *AccessLogRepository) Insert(ctx context.Context, record *model.LogRecord) error {
	var (
		parsed []byte
		status *int
		method *string
		path   *string
	)
	if record.Nginx != nil {
		var err error
		parsed, err = json.Marshal(record.Nginx)
		if err != nil {
			return fmt.Errorf("marshal parsed nginx: %w", err)
		}
		status = &record.Nginx.Status
		m, p := stripNUL(record.Nginx.Method), stripNUL(record.Nginx.Path)
		method, path = &m, &p
	}

	_, err := r.db.Exec(ctx, `
INSERT INTO access_logs (
	id, received_at, source, cluster, namespace, pod, container, message,
	payload, raw_entry, parsed_nginx, status, method, path
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
`,
		record.ID,
		record.Timestamp,
		string(record.Source),
		stripNUL(record.Cluster),
		stripNUL(record.Namespace),
		stripNUL(record.Pod),
		stripNUL(record.Container),
		stripNUL(record.Message),
		nullableJSON(stripJSONNUL(record.Payload)),
		rawEntry(stripJSONNUL(record.Raw)),
		nullableJSON(stripJSONNUL(parsed)),
		status,
		method,
		path,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			return fmt.Errorf("insert access log: %w", sqlerr.ConvertPgError(pgErr))
		}
		return fmt.Errorf("insert access log: %w", err)
	}
	return nil
}

// List returns the newest records matching q.
func (r *AccessLogRepository) List(ctx context.Context, q model.AccessLogQuery) ([]model.LogRecord, error) {
	query, args := buildListQuery(q)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list access logs: %w", err)
	}

	records, err := pgx.CollectRows(rows, scanLogRecord)
	if err != nil {
		return nil, fmt.Errorf("scan access log rows: %w", err)
	}
	return records, nil
}

// GetByID returns pgx.ErrNoRows (wrapped) when the record does not exist.
func (r *AccessLogRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.LogRecord, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+accessLogColumns+` FROM access_logs WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("get access log: %w", err)
	}

	record, err := pgx.CollectExactlyOneRow(rows, scanLogRecord)
	if err != nil {
		return nil, fmt.Errorf("get access log %s: %w", id, err)
	}
	return &record, nil
}

func buildListQuery(q model.AccessLogQuery) (string, []any) {
	var (
		whereParts []string
		args       []any
	)
	add := func(clause string, value any) {
		args = append(args, value)
		whereParts = append(whereParts, fmt.Sprintf(clause, len(args)))
	}

	if q.Namespace != "" {
		add("namespace = $%d", q.Namespace)
	}
	if q.Pod != "" {
		add("pod = $%d", q.Pod)
	}
	if q.Source != "" {
		add("source = $%d", q.Source)
	}
	if q.MinStatus > 0 {
		add("status >= $%d", q.MinStatus)
	}
	if q.MaxStatus > 0 {
		add("status <= $%d", q.MaxStatus)
	}
	if !q.Since.IsZero() {
		add("received_at >= $%d", q.Since.UTC())
	}

	where := ""
	if len(whereParts) > 0 {
		where = "WHERE " + strings.Join(whereParts, " AND ") + "\n"
	}

	args = append(args, q.EffectiveLimit())
	query := fmt.Sprintf(`SELECT %s
FROM access_logs
%sORDER BY received_at DESC, id
LIMIT $%d`, accessLogColumns, where, len(args))

	return query, args
}

func scanLogRecord(row pgx.CollectableRow) (model.LogRecord, error) {
	var (
		record  model.LogRecord
		source  string
		payload []byte
		raw     []byte
		parsed  []byte
	)
	err := row.Scan(
		&record.ID,
		&record.Timestamp,
		&source,
		&record.Cluster,
		&record.Namespace,
		&record.Pod,
		&record.Container,
		&record.Message,
		&payload,
		&raw,
		&parsed,
	)
	if err != nil {
		return model.LogRecord{}, err
	}

	record.Source = model.Source(source)
	record.Timestamp = record.Timestamp.UTC()
	record.Payload = payload
	record.Raw = raw

	if len(parsed) > 0 {
		var nginx model.AccessLog
		if err := json.Unmarshal(parsed, &nginx); err != nil {
			return model.LogRecord{}, fmt.Errorf("decode parsed_nginx: %w", err)
		}
		record.Nginx = &nginx
	}

	return record, nil
}

// nullableJSON maps an empty document to SQL NULL.
func nullableJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

func rawEntry(b []byte) string {
	if len(b) == 0 {
		return "{}"
	}
	return string(b)
}

func stripNUL(s string) string {
	if strings.IndexByte(s, 0) < 0 {
		return s
	}
	return strings.ReplaceAll(s, "\x00", "")
}

// stripJSONNUL drops \u0000 escapes from a JSON document. Escaped
// backslashes are copied as pairs so a literal `\\u0000` survives.
func stripJSONNUL(b []byte) []byte {
	if !strings.Contains(string(b), `\u0000`) {
		return b
	}

	out := make([]byte, 0, len(b))
	for i := 0; i < len(b); i++ {
		if b[i] != '\\' || i+1 >= len(b) {
			out = append(out, b[i])
			continue
		}
		if b[i+1] == 'u' && i+6 <= len(b) && string(b[i+2:i+6]) == "0000" {
			i += 5
			continue
		}
		out = append(out, b[i], b[i+1])
		i++
	}
	return out
}
