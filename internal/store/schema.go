package store

// schema is shared by DuckDB and SQLite. Instants are unix milliseconds and
// durations nanoseconds so both engines round-trip them exactly.
const schema = `
CREATE TABLE IF NOT EXISTS report (
    name          VARCHAR NOT NULL,
    platform      VARCHAR,
    account       VARCHAR,
    created_at    BIGINT,
    generated_at  BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS contact_stats (
    row_id       INTEGER NOT NULL,
    col_index    INTEGER NOT NULL,
    category     VARCHAR NOT NULL,
    kind         VARCHAR NOT NULL,
    number       BIGINT,
    duration_ns  BIGINT,
    label        VARCHAR
);
CREATE INDEX IF NOT EXISTS idx_contact_stats_row ON contact_stats(row_id);

CREATE TABLE IF NOT EXISTS daily_messages (
    day       VARCHAR NOT NULL,
    contact   VARCHAR NOT NULL,
    outgoing  BIGINT NOT NULL,
    incoming  BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_daily_day ON daily_messages(day);

CREATE TABLE IF NOT EXISTS hour_distribution (
    hour      INTEGER PRIMARY KEY,
    messages  BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS messages (
    platform   VARCHAR NOT NULL,
    contact    VARCHAR NOT NULL,
    timestamp  BIGINT NOT NULL,
    author     VARCHAR,
    content    VARCHAR,
    media      VARCHAR
);
CREATE INDEX IF NOT EXISTS idx_messages_ts      ON messages(timestamp);
CREATE INDEX IF NOT EXISTS idx_messages_contact ON messages(contact);
`
