package db

const createResultSetsTable = `
CREATE TABLE IF NOT EXISTS result_sets (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    mode TEXT NOT NULL,
    job_id TEXT NOT NULL DEFAULT '',
    record_count INTEGER NOT NULL DEFAULT 0,
    fetched_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_result_sets_fetched ON result_sets(fetched_at);
`

// Records keep the position they had in the server response
const createResultRecordsTable = `
CREATE TABLE IF NOT EXISTS result_records (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    set_id INTEGER NOT NULL REFERENCES result_sets(id) ON DELETE CASCADE,
    position INTEGER NOT NULL,
    url TEXT NOT NULL,
    subcat TEXT,
    city TEXT,
    zip_code TEXT,
    raw_date TEXT
);

CREATE INDEX IF NOT EXISTS idx_result_records_set ON result_records(set_id, position);
`

const insertResultSet = `
INSERT INTO result_sets (mode, job_id, record_count, fetched_at) VALUES (?, ?, ?, ?)
`

const insertResultRecord = `
INSERT INTO result_records (set_id, position, url, subcat, city, zip_code, raw_date)
VALUES (?, ?, ?, ?, ?, ?, ?)
`

const selectResultSets = `
SELECT id, mode, job_id, record_count, fetched_at
FROM result_sets
ORDER BY id DESC
LIMIT ?
`

const selectResultSet = `
SELECT id, mode, job_id, record_count, fetched_at
FROM result_sets
WHERE id = ?
`

const selectLatestResultSet = `
SELECT id, mode, job_id, record_count, fetched_at
FROM result_sets
ORDER BY id DESC
LIMIT 1
`

const selectResultRecords = `
SELECT url, COALESCE(subcat, ''), COALESCE(city, ''), COALESCE(zip_code, ''), COALESCE(raw_date, '')
FROM result_records
WHERE set_id = ?
ORDER BY position
`

// Keeps the newest sets; records go with them through the cascade
const pruneResultSets = `
DELETE FROM result_sets
WHERE id NOT IN (SELECT id FROM result_sets ORDER BY id DESC LIMIT ?)
`
