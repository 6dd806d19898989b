// Package store writes report snapshots to DuckDB or SQLite files and
// searches the messages they hold.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"socialstats/internal/model"
	"socialstats/internal/report"
	"socialstats/internal/stats"

	_ "modernc.org/sqlite"
)

// Snapshot file formats, named after their database/sql drivers.
const (
	DuckDB = "duckdb"
	SQLite = "sqlite"
)

// Store wraps a snapshot database connection.
type Store struct {
	db *sql.DB
}

// Open connects to the snapshot file at path using format's driver.
func Open(format, path string) (*Store, error) {
	if format != DuckDB && format != SQLite {
		return nil, fmt.Errorf("unknown snapshot format %q", format)
	}
	db, err := sql.Open(format, path)
	if err != nil {
		return nil, fmt.Errorf("open %s %s: %w", format, path, err)
	}
	return &Store{db: db}, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// InitSchema creates the snapshot tables if they don't exist.
func (s *Store) InitSchema() error {
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

// --- Report operations ---

// SaveReport replaces the snapshot contents with r in one transaction.
func (s *Store) SaveReport(r report.Report) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"report", "contact_stats", "daily_messages", "hour_distribution", "messages"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	if _, err := tx.Exec(`
		INSERT INTO report (name, platform, account, created_at, generated_at)
		VALUES (?, ?, ?, ?, ?)
	`, r.Name, nullStr(string(r.Identity.Platform)), nullStr(r.Identity.Name),
		nullMillis(r.Identity.CreatedAt), time.Now().UnixMilli()); err != nil {
		return fmt.Errorf("insert report: %w", err)
	}

	if err := saveTable(tx, r.Table); err != nil {
		return err
	}
	if err := saveDaily(tx, r.Daily); err != nil {
		return err
	}
	for hour, n := range r.Hours {
		if _, err := tx.Exec(`INSERT INTO hour_distribution (hour, messages) VALUES (?, ?)`, hour, n); err != nil {
			return fmt.Errorf("insert hour %d: %w", hour, err)
		}
	}
	if err := saveRecords(tx, r.Records); err != nil {
		return err
	}

	return tx.Commit()
}

func saveTable(tx *sql.Tx, t *stats.Table) error {
	if t == nil {
		return nil
	}
	stmt, err := tx.Prepare(`
		INSERT INTO contact_stats (row_id, col_index, category, kind, number, duration_ns, label)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	cats := t.Categories()
	for i := 0; i < t.Rows(); i++ {
		for pos, cat := range cats {
			v := t.Get(cat, i)
			var num, dur, text interface{}
			switch v.Kind {
			case stats.KindNumber:
				num = v.Num
			case stats.KindDuration:
				dur = int64(v.Dur)
			default:
				text = v.Text
			}
			if _, err := stmt.Exec(i, pos, cat, v.Kind.String(), num, dur, text); err != nil {
				return fmt.Errorf("insert stat %s row %d: %w", cat, i, err)
			}
		}
	}
	return nil
}

func saveDaily(tx *sql.Tx, d stats.Daily) error {
	stmt, err := tx.Prepare(`
		INSERT INTO daily_messages (day, contact, outgoing, incoming) VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, day := range d.Dates() {
		for contact, p := range d[day] {
			if _, err := stmt.Exec(day.String(), contact, p.Out, p.In); err != nil {
				return fmt.Errorf("insert daily %s %s: %w", day, contact, err)
			}
		}
	}
	return nil
}

func saveRecords(tx *sql.Tx, records []model.Record) error {
	stmt, err := tx.Prepare(`
		INSERT INTO messages (platform, contact, timestamp, author, content, media)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		var media interface{}
		if len(rec.MediaRefs) > 0 {
			b, err := json.Marshal(rec.MediaRefs)
			if err != nil {
				return fmt.Errorf("encode media refs: %w", err)
			}
			media = string(b)
		}
		if _, err := stmt.Exec(
			string(rec.Platform),
			rec.Contact,
			rec.Timestamp.UnixMilli(),
			nullStr(rec.Author),
			nullStr(rec.Message),
			media,
		); err != nil {
			return fmt.Errorf("insert message: %w", err)
		}
	}
	return nil
}

// LoadReport reads a snapshot back. Records come back in chronological order
// and, like the identity creation time, at millisecond precision.
func (s *Store) LoadReport() (report.Report, error) {
	var r report.Report
	var platform, account sql.NullString
	var created sql.NullInt64
	err := s.db.QueryRow(`SELECT name, platform, account, created_at FROM report LIMIT 1`).
		Scan(&r.Name, &platform, &account, &created)
	if err != nil {
		return r, fmt.Errorf("load report: %w", err)
	}
	r.Identity = model.Identity{Platform: model.Platform(platform.String), Name: account.String}
	if created.Valid {
		r.Identity.CreatedAt = time.UnixMilli(created.Int64).UTC()
	}

	if r.Table, err = s.loadTable(); err != nil {
		return r, err
	}
	if r.Daily, err = s.loadDaily(); err != nil {
		return r, err
	}
	if r.Hours, err = s.loadHours(); err != nil {
		return r, err
	}
	if r.Records, err = s.searchMessages("", 0, nil); err != nil {
		return r, err
	}
	return r, nil
}

func (s *Store) loadTable() (*stats.Table, error) {
	rows, err := s.db.Query(`
		SELECT row_id, category, kind, number, duration_ns, label
		FROM contact_stats
		ORDER BY row_id, col_index
	`)
	if err != nil {
		return nil, fmt.Errorf("load stats: %w", err)
	}
	defer rows.Close()

	t := stats.NewTable()
	var row stats.Row
	current := -1
	for rows.Next() {
		var id int
		var cat, kind string
		var num, dur sql.NullInt64
		var text sql.NullString
		if err := rows.Scan(&id, &cat, &kind, &num, &dur, &text); err != nil {
			return nil, err
		}
		if id != current && row != nil {
			t.Append(row)
			row = nil
		}
		current = id

		var v stats.Value
		switch kind {
		case stats.KindNumber.String():
			v = stats.Num(num.Int64)
		case stats.KindDuration.String():
			v = stats.Dur(time.Duration(dur.Int64))
		default:
			v = stats.Text(text.String)
		}
		row = append(row, stats.Cell{Category: cat, Value: v})
	}
	if row != nil {
		t.Append(row)
	}
	return t, rows.Err()
}

func (s *Store) loadDaily() (stats.Daily, error) {
	rows, err := s.db.Query(`SELECT day, contact, outgoing, incoming FROM daily_messages`)
	if err != nil {
		return nil, fmt.Errorf("load daily: %w", err)
	}
	defer rows.Close()

	d := stats.Daily{}
	for rows.Next() {
		var day, contact string
		var p stats.Pair
		if err := rows.Scan(&day, &contact, &p.Out, &p.In); err != nil {
			return nil, err
		}
		date, err := stats.ParseDate(day)
		if err != nil {
			return nil, err
		}
		d.Put(date, contact, p)
	}
	return d, rows.Err()
}

func (s *Store) loadHours() (stats.Hours, error) {
	var h stats.Hours
	rows, err := s.db.Query(`SELECT hour, messages FROM hour_distribution`)
	if err != nil {
		return h, fmt.Errorf("load hours: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var hour int
		var n int64
		if err := rows.Scan(&hour, &n); err != nil {
			return h, err
		}
		if hour >= 0 && hour < len(h) {
			h[hour] = n
		}
	}
	return h, rows.Err()
}

// --- Search ---

// TextSearch performs a case-insensitive substring search across messages,
// newest first.
func (s *Store) TextSearch(pattern string, limit int, tf *model.TimeFilter) ([]model.Record, error) {
	return s.searchMessages(pattern, limit, tf)
}

func (s *Store) searchMessages(pattern string, limit int, tf *model.TimeFilter) ([]model.Record, error) {
	params := []interface{}{}
	where := ""
	order := "timestamp ASC"
	if pattern != "" {
		where = " WHERE LOWER(content) LIKE LOWER(?)"
		params = append(params, "%"+pattern+"%")
		order = "timestamp DESC"
	}
	timeClause, params := appendTimeClauses(tf, "timestamp", where != "", params)

	query := fmt.Sprintf(`
		SELECT platform, contact, timestamp, author, content, media
		FROM messages%s%s
		ORDER BY %s
	`, where, timeClause, order)
	if limit > 0 {
		query += " LIMIT ?"
		params = append(params, limit)
	}

	rows, err := s.db.Query(query, params...)
	if err != nil {
		return nil, fmt.Errorf("search messages: %w", err)
	}
	defer rows.Close()

	var out []model.Record
	for rows.Next() {
		var rec model.Record
		var platform string
		var ts int64
		var author, content, media sql.NullString
		if err := rows.Scan(&platform, &rec.Contact, &ts, &author, &content, &media); err != nil {
			return nil, err
		}
		rec.Platform = model.Platform(platform)
		rec.Timestamp = time.UnixMilli(ts).UTC()
		rec.Author = author.String
		rec.Message = content.String
		if media.Valid {
			if err := json.Unmarshal([]byte(media.String), &rec.MediaRefs); err != nil {
				return nil, fmt.Errorf("decode media refs: %w", err)
			}
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// --- helpers ---

// appendTimeClauses builds SQL fragments for time filtering on a unix
// millisecond column. If hasWhere is true, clauses use "AND"; otherwise the
// first clause uses "WHERE".
func appendTimeClauses(tf *model.TimeFilter, tsCol string, hasWhere bool, params []interface{}) (string, []interface{}) {
	if tf == nil {
		return "", params
	}

	var clauses []string
	if tf.Since != nil {
		clauses = append(clauses, fmt.Sprintf("%s >= ?", tsCol))
		params = append(params, tf.Since.UnixMilli())
	}
	if tf.Until != nil {
		clauses = append(clauses, fmt.Sprintf("%s <= ?", tsCol))
		params = append(params, tf.Until.UnixMilli())
	}

	if len(clauses) == 0 {
		return "", params
	}

	var sb strings.Builder
	for i, c := range clauses {
		if i == 0 && !hasWhere {
			sb.WriteString(" WHERE ")
		} else {
			sb.WriteString(" AND ")
		}
		sb.WriteString(c)
	}
	return sb.String(), params
}

func nullStr(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullMillis(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t.UnixMilli()
}
