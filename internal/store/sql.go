package store

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// SQLStore keeps every document in a single records table keyed by path.
type SQLStore struct {
	db       *sql.DB
	dialect  Dialect
	notifier Notifier
	poll     time.Duration
	log      zerolog.Logger
}

type SQLOption func(*SQLStore)

// WithNotifier replaces the default in-process notifier.
func WithNotifier(n Notifier) SQLOption {
	return func(s *SQLStore) { s.notifier = n }
}

// WithPollInterval makes subscriptions re-query on a timer in addition to
// notifications. Zero disables polling.
func WithPollInterval(d time.Duration) SQLOption {
	return func(s *SQLStore) { s.poll = d }
}

func WithLogger(log zerolog.Logger) SQLOption {
	return func(s *SQLStore) { s.log = log }
}

func NewSQLStore(db *sql.DB, dialect Dialect, opts ...SQLOption) *SQLStore {
	s := &SQLStore{db: db, dialect: dialect, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	if s.notifier == nil {
		s.notifier = NewLocalNotifier()
	}
	return s
}

func (s *SQLStore) DB() *sql.DB {
	return s.db
}

func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLStore) Get(ctx context.Context, q Query) ([]Record, error) {
	if err := q.validate(); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, s.q(`
		SELECT path, doc_id, fields, version
		FROM records
		WHERE collection = ?
		ORDER BY path
	`), q.Collection)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", q.Collection, err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", q.Collection, err)
		}
		if q.Matches(record) {
			records = append(records, record)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", q.Collection, err)
	}
	return records, nil
}

func (s *SQLStore) GetDoc(ctx context.Context, path string) (Record, error) {
	row := s.db.QueryRowContext(ctx, s.q(`SELECT path, doc_id, fields, version FROM records WHERE path = ?`), path)
	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("get %s: %w", path, ErrNotFound)
	}
	if err != nil {
		return Record{}, fmt.Errorf("get %s: %w", path, err)
	}
	return record, nil
}

func (s *SQLStore) Commit(ctx context.Context, b *Batch) error {
	ops := b.Ops()
	if len(ops) == 0 {
		return nil
	}
	if len(ops) > MaxBatchWrites {
		return fmt.Errorf("commit %d ops: %w", len(ops), ErrBatchTooLarge)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	touched := map[string]struct{}{}
	now := time.Now().UnixMilli()
	for _, op := range ops {
		collection, id, err := SplitPath(op.Path)
		if err != nil {
			_ = tx.Rollback()
			return err
		}
		if err := s.apply(ctx, tx, op, collection, id, now); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("%s %s: %w", op.Kind, op.Path, err)
		}
		touched[collection] = struct{}{}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}

	collections := make([]string, 0, len(touched))
	for c := range touched {
		collections = append(collections, c)
	}
	sort.Strings(collections)
	if err := s.notifier.Publish(context.WithoutCancel(ctx), collections...); err != nil {
		s.log.Warn().Err(err).Strs("collections", collections).Msg("publish change notification")
	}
	return nil
}

func (s *SQLStore) apply(ctx context.Context, tx *sql.Tx, op Op, collection, id string, now int64) error {
	var (
		current map[string]any
		version int64
		exists  bool
	)
	if op.Kind == OpUpdate || op.IfVersion != nil {
		var err error
		current, version, exists, err = s.lockRecord(ctx, tx, op.Path)
		if err != nil {
			return err
		}
		if op.IfVersion != nil && *op.IfVersion != version {
			return ErrVersionConflict
		}
	}

	switch op.Kind {
	case OpSet:
		payload, err := json.Marshal(mergeFields(nil, op.Fields))
		if err != nil {
			return fmt.Errorf("encode fields: %w", err)
		}
		_, err = tx.ExecContext(ctx, s.q(`
			INSERT INTO records (path, collection, doc_id, fields, version, updated_at)
			VALUES (?, ?, ?, ?, 1, ?)
			ON CONFLICT (path) DO UPDATE SET
				fields = excluded.fields,
				version = records.version + 1,
				updated_at = excluded.updated_at
		`), op.Path, collection, id, string(payload), now)
		return err
	case OpUpdate:
		if !exists {
			return ErrNotFound
		}
		payload, err := json.Marshal(mergeFields(current, op.Fields))
		if err != nil {
			return fmt.Errorf("encode fields: %w", err)
		}
		_, err = tx.ExecContext(ctx, s.q(`
			UPDATE records SET fields = ?, version = version + 1, updated_at = ?
			WHERE path = ?
		`), string(payload), now, op.Path)
		return err
	case OpDelete:
		_, err := tx.ExecContext(ctx, s.q(`DELETE FROM records WHERE path = ?`), op.Path)
		return err
	}
	return fmt.Errorf("unknown op kind %d", op.Kind)
}

func (s *SQLStore) lockRecord(ctx context.Context, tx *sql.Tx, path string) (map[string]any, int64, bool, error) {
	query := `SELECT path, doc_id, fields, version FROM records WHERE path = ?`
	if s.dialect == DialectPostgres {
		query += ` FOR UPDATE`
	}
	record, err := scanRecord(tx.QueryRowContext(ctx, s.q(query), path))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, 0, false, nil
	}
	if err != nil {
		return nil, 0, false, err
	}
	return record.Fields, record.Version, true, nil
}

func (s *SQLStore) Subscribe(ctx context.Context, q Query, fn SnapshotFunc) (Subscription, error) {
	if err := q.validate(); err != nil {
		return nil, err
	}
	// Listen before the initial read: a commit racing with the read then
	// either shows up in it or leaves a signal behind.
	subCtx, cancel := context.WithCancel(ctx)
	changes, err := s.notifier.Listen(subCtx, q.Collection)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("listen %s: %w", q.Collection, err)
	}
	initial, err := s.Get(ctx, q)
	if err != nil {
		cancel()
		return nil, err
	}

	sub := &sqlSubscription{cancel: cancel}
	go s.watch(subCtx, sub, q, initial, changes, fn)
	return sub, nil
}

func (s *SQLStore) watch(ctx context.Context, sub *sqlSubscription, q Query, initial []Record, changes <-chan struct{}, fn SnapshotFunc) {
	var tick <-chan time.Time
	if s.poll > 0 {
		ticker := time.NewTicker(s.poll)
		defer ticker.Stop()
		tick = ticker.C
	}

	last := fingerprint(initial)
	sub.deliver(ctx, fn, Snapshot{Collection: q.Collection, Records: initial}, nil)

	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-changes:
			if !ok {
				return
			}
		case <-tick:
		}

		records, err := s.Get(ctx, q)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.log.Warn().Err(err).Str("collection", q.Collection).Msg("subscription re-query failed")
			sub.deliver(ctx, fn, Snapshot{Collection: q.Collection}, err)
			continue
		}
		fp := fingerprint(records)
		if fp == last {
			continue
		}
		last = fp
		sub.deliver(ctx, fn, Snapshot{Collection: q.Collection, Records: records}, nil)
	}
}

type sqlSubscription struct {
	cancel context.CancelFunc
	mu     sync.Mutex
}

func (s *sqlSubscription) deliver(ctx context.Context, fn SnapshotFunc, snap Snapshot, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ctx.Err() != nil {
		return
	}
	fn(snap, err)
}

func (s *sqlSubscription) Close() {
	s.cancel()
}

func (s *SQLStore) q(query string) string {
	return rebind(s.dialect, query)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var (
		record Record
		raw    string
	)
	if err := row.Scan(&record.Path, &record.ID, &raw, &record.Version); err != nil {
		return Record{}, err
	}
	fields, err := decodeFields(raw)
	if err != nil {
		return Record{}, fmt.Errorf("decode %s: %w", record.Path, err)
	}
	record.Fields = fields
	return record, nil
}

func decodeFields(raw string) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	fields := map[string]any{}
	if err := dec.Decode(&fields); err != nil {
		return nil, err
	}
	return fields, nil
}

func fingerprint(records []Record) string {
	var b strings.Builder
	for _, r := range records {
		b.WriteString(r.Path)
		b.WriteByte('@')
		b.WriteString(strconv.FormatInt(r.Version, 10))
		b.WriteByte(';')
	}
	return b.String()
}
