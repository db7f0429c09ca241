package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"foxfeed/internal"
)

type DB struct {
	conn *sql.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS suppliers (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL UNIQUE,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS documents (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  supplierId INTEGER NOT NULL,
  source TEXT NOT NULL,
  origin TEXT NOT NULL,
  filename TEXT,
  hash TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'registered',
  rawRef TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE(supplierId, hash),
  FOREIGN KEY(supplierId) REFERENCES suppliers(id)
);
CREATE INDEX IF NOT EXISTS idx_documents_status ON documents(status);

CREATE TABLE IF NOT EXISTS records (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  documentId INTEGER NOT NULL,
  supplierId INTEGER NOT NULL,
  url TEXT,
  articleNumber TEXT,
  eanCode TEXT,
  confidence REAL NOT NULL,
  dataJson TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  FOREIGN KEY(documentId) REFERENCES documents(id),
  FOREIGN KEY(supplierId) REFERENCES suppliers(id)
);
CREATE INDEX IF NOT EXISTS idx_records_document ON records(documentId);
CREATE INDEX IF NOT EXISTS idx_records_supplier ON records(supplierId);
CREATE INDEX IF NOT EXISTS idx_records_article ON records(articleNumber);

CREATE TABLE IF NOT EXISTS custom_attributes (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  recordId INTEGER NOT NULL,
  key TEXT NOT NULL,
  value TEXT NOT NULL,
  type TEXT NOT NULL DEFAULT 'string',
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE(recordId, key),
  FOREIGN KEY(recordId) REFERENCES records(id)
);

CREATE TABLE IF NOT EXISTS mapping_configs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  scope TEXT NOT NULL,
  supplierId INTEGER,
  configJson TEXT NOT NULL,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
-- supplierId is NULL for the tenant-wide layer; a plain UNIQUE(scope,
-- supplierId) never conflicts on NULL, so each layer gets its own
-- partial index.
CREATE UNIQUE INDEX IF NOT EXISTS idx_mapping_configs_tenant
  ON mapping_configs(scope) WHERE supplierId IS NULL;
CREATE UNIQUE INDEX IF NOT EXISTS idx_mapping_configs_supplier
  ON mapping_configs(scope, supplierId) WHERE supplierId IS NOT NULL;

CREATE TABLE IF NOT EXISTS mails (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  provider TEXT NOT NULL,
  messageId TEXT NOT NULL,
  subject TEXT,
  sender TEXT,
  receivedAt TEXT,
  status TEXT NOT NULL DEFAULT 'fetched',
  rawRef TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE(provider, messageId)
);

CREATE TABLE IF NOT EXISTS runs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  traceId TEXT NOT NULL,
  documentId INTEGER,
  timingsJson TEXT NOT NULL,
  countsJson TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  FOREIGN KEY(documentId) REFERENCES documents(id)
);

CREATE TABLE IF NOT EXISTS metadata (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

	_, err := d.conn.Exec(schema)
	return err
}

func (d *DB) UpsertSupplier(name string) (internal.SupplierRow, error) {
	_, err := d.conn.Exec(`INSERT INTO suppliers (name) VALUES (?) ON CONFLICT(name) DO NOTHING`, name)
	if err != nil {
		return internal.SupplierRow{}, err
	}
	return d.GetSupplierByName(name)
}

func (d *DB) GetSupplierByName(name string) (internal.SupplierRow, error) {
	var row internal.SupplierRow
	err := d.conn.QueryRow(`SELECT id, name, createdAt FROM suppliers WHERE name = ?`, name).
		Scan(&row.ID, &row.Name, &row.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return internal.SupplierRow{}, fmt.Errorf("supplier not found: %s", name)
	}
	if err != nil {
		return internal.SupplierRow{}, err
	}
	return row, nil
}

func (d *DB) GetSupplierByID(id int) (internal.SupplierRow, error) {
	var row internal.SupplierRow
	err := d.conn.QueryRow(`SELECT id, name, createdAt FROM suppliers WHERE id = ?`, id).
		Scan(&row.ID, &row.Name, &row.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return internal.SupplierRow{}, fmt.Errorf("supplier not found: id=%d", id)
	}
	if err != nil {
		return internal.SupplierRow{}, err
	}
	return row, nil
}

func (d *DB) UpsertDocument(doc internal.DocumentRow) (internal.DocumentRow, error) {
	_, err := d.conn.Exec(`
INSERT INTO documents (supplierId, source, origin, filename, hash, status, rawRef)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(supplierId, hash) DO UPDATE SET
  origin=excluded.origin,
  filename=excluded.filename,
  rawRef=excluded.rawRef,
  updatedAt=CURRENT_TIMESTAMP
`, doc.SupplierID, string(doc.Source), doc.Origin, doc.Filename, doc.Hash, doc.Status, doc.RawRef)
	if err != nil {
		return internal.DocumentRow{}, err
	}

	var out internal.DocumentRow
	var source string
	err = d.conn.QueryRow(`
SELECT id, supplierId, source, origin, filename, hash, status, rawRef
FROM documents WHERE supplierId = ? AND hash = ?
`, doc.SupplierID, doc.Hash).Scan(
		&out.ID, &out.SupplierID, &source, &out.Origin, &out.Filename, &out.Hash, &out.Status, &out.RawRef,
	)
	if err != nil {
		return internal.DocumentRow{}, err
	}
	out.Source = internal.DocumentSource(source)
	return out, nil
}

func (d *DB) ListDocumentsByStatus(status string, limit int) ([]internal.DocumentRow, error) {
	rows, err := d.conn.Query(`
SELECT id, supplierId, source, origin, filename, hash, status, rawRef
FROM documents WHERE status = ? ORDER BY createdAt ASC LIMIT ?
`, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.DocumentRow
	for rows.Next() {
		var row internal.DocumentRow
		var source string
		if err := rows.Scan(&row.ID, &row.SupplierID, &source, &row.Origin, &row.Filename, &row.Hash, &row.Status, &row.RawRef); err != nil {
			return nil, err
		}
		row.Source = internal.DocumentSource(source)
		out = append(out, row)
	}
	return out, rows.Err()
}

func (d *DB) GetDocumentByID(id int) (internal.DocumentRow, error) {
	var row internal.DocumentRow
	var source string
	err := d.conn.QueryRow(`
SELECT id, supplierId, source, origin, filename, hash, status, rawRef
FROM documents WHERE id = ?
`, id).Scan(&row.ID, &row.SupplierID, &source, &row.Origin, &row.Filename, &row.Hash, &row.Status, &row.RawRef)
	if errors.Is(err, sql.ErrNoRows) {
		return internal.DocumentRow{}, fmt.Errorf("document not found: id=%d", id)
	}
	if err != nil {
		return internal.DocumentRow{}, err
	}
	row.Source = internal.DocumentSource(source)
	return row, nil
}

func (d *DB) UpdateDocumentStatus(documentID int, status string) error {
	_, err := d.conn.Exec(`UPDATE documents SET status = ?, updatedAt = CURRENT_TIMESTAMP WHERE id = ?`, status, documentID)
	return err
}

// ClearDocumentRecords removes earlier extraction output so reprocessing a
// document starts clean.
func (d *DB) ClearDocumentRecords(documentID int) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`
DELETE FROM custom_attributes WHERE recordId IN (SELECT id FROM records WHERE documentId = ?)
`, documentID); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM records WHERE documentId = ?`, documentID); err != nil {
		return err
	}
	return tx.Commit()
}

func (d *DB) InsertRecords(documentID, supplierID int, records []internal.ExtractedRecord) (int, error) {
	tx, err := d.conn.Begin()
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`
INSERT INTO records (documentId, supplierId, url, articleNumber, eanCode, confidence, dataJson)
VALUES (?, ?, ?, ?, ?, ?, ?)
`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for _, rec := range records {
		blob, err := json.Marshal(rec)
		if err != nil {
			return 0, err
		}
		if _, err := stmt.Exec(documentID, supplierID, rec.URL, rec.ArticleNumber, rec.EANCode, rec.Confidence, string(blob)); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(records), nil
}

func (d *DB) ListRecordsBySupplier(supplierID int) ([]internal.RecordRow, error) {
	rows, err := d.conn.Query(`
SELECT id, documentId, supplierId, url, articleNumber, eanCode, confidence, dataJson
FROM records WHERE supplierId = ? ORDER BY id ASC
`, supplierID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.RecordRow
	for rows.Next() {
		var row internal.RecordRow
		if err := rows.Scan(&row.ID, &row.DocumentID, &row.SupplierID, &row.URL, &row.ArticleNumber, &row.EANCode, &row.Confidence, &row.DataJSON); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		attrs, err := d.ListAttributes(out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Attributes = attrs
	}
	return out, nil
}

func (d *DB) UpdateRecordData(recordID int, rec internal.ExtractedRecord) error {
	blob, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	_, err = d.conn.Exec(`
UPDATE records SET url = ?, articleNumber = ?, eanCode = ?, confidence = ?, dataJson = ?
WHERE id = ?
`, rec.URL, rec.ArticleNumber, rec.EANCode, rec.Confidence, string(blob), recordID)
	return err
}

func (d *DB) UpsertAttribute(recordID int, attr internal.CustomAttribute) error {
	_, err := d.conn.Exec(`
INSERT INTO custom_attributes (recordId, key, value, type) VALUES (?, ?, ?, ?)
ON CONFLICT(recordId, key) DO UPDATE SET value = excluded.value, type = excluded.type
`, recordID, attr.Key, attr.Value, attr.Type)
	return err
}

func (d *DB) ListAttributes(recordID int) ([]internal.CustomAttribute, error) {
	rows, err := d.conn.Query(`SELECT key, value, type FROM custom_attributes WHERE recordId = ? ORDER BY key`, recordID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.CustomAttribute
	for rows.Next() {
		var attr internal.CustomAttribute
		if err := rows.Scan(&attr.Key, &attr.Value, &attr.Type); err != nil {
			return nil, err
		}
		out = append(out, attr)
	}
	return out, rows.Err()
}

// SaveMappingConfig stores one mapping layer. supplierID is nil for the
// tenant-wide layer.
func (d *DB) SaveMappingConfig(scope string, supplierID *int, configJSON string) error {
	if supplierID == nil {
		_, err := d.conn.Exec(`
INSERT INTO mapping_configs (scope, supplierId, configJson) VALUES (?, NULL, ?)
ON CONFLICT(scope) WHERE supplierId IS NULL
DO UPDATE SET configJson = excluded.configJson, updatedAt = CURRENT_TIMESTAMP
`, scope, configJSON)
		return err
	}
	_, err := d.conn.Exec(`
INSERT INTO mapping_configs (scope, supplierId, configJson) VALUES (?, ?, ?)
ON CONFLICT(scope, supplierId) WHERE supplierId IS NOT NULL
DO UPDATE SET configJson = excluded.configJson, updatedAt = CURRENT_TIMESTAMP
`, scope, *supplierID, configJSON)
	return err
}

func (d *DB) GetMappingConfig(scope string, supplierID *int) (*string, error) {
	var configJSON string
	var err error
	if supplierID == nil {
		err = d.conn.QueryRow(`SELECT configJson FROM mapping_configs WHERE scope = ? AND supplierId IS NULL`, scope).Scan(&configJSON)
	} else {
		err = d.conn.QueryRow(`SELECT configJson FROM mapping_configs WHERE scope = ? AND supplierId = ?`, scope, *supplierID).Scan(&configJSON)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &configJSON, nil
}

func (d *DB) UpsertMail(mail internal.InboundMail, rawRef, status string) (int, error) {
	_, err := d.conn.Exec(`
INSERT INTO mails (provider, messageId, subject, sender, receivedAt, status, rawRef)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(provider, messageId) DO UPDATE SET
  subject=excluded.subject,
  sender=excluded.sender,
  receivedAt=excluded.receivedAt,
  rawRef=excluded.rawRef,
  updatedAt=CURRENT_TIMESTAMP
`, mail.Provider, mail.MessageID, mail.Subject, mail.From, mail.ReceivedAt, status, rawRef)
	if err != nil {
		return 0, err
	}

	var id int
	err = d.conn.QueryRow(`SELECT id FROM mails WHERE provider = ? AND messageId = ?`, mail.Provider, mail.MessageID).Scan(&id)
	return id, err
}

func (d *DB) ListMailsByStatus(status string, limit int) ([]internal.MailRow, error) {
	rows, err := d.conn.Query(`
SELECT id, provider, messageId, subject, sender, receivedAt, status, rawRef
FROM mails WHERE status = ? ORDER BY receivedAt ASC LIMIT ?
`, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.MailRow
	for rows.Next() {
		var row internal.MailRow
		var subject, sender, receivedAt sql.NullString
		if err := rows.Scan(&row.ID, &row.Provider, &row.MessageID, &subject, &sender, &receivedAt, &row.Status, &row.RawRef); err != nil {
			return nil, err
		}
		row.Subject = subject.String
		row.Sender = sender.String
		row.ReceivedAt = receivedAt.String
		out = append(out, row)
	}
	return out, rows.Err()
}

func (d *DB) UpdateMailStatus(mailID int, status string) error {
	_, err := d.conn.Exec(`UPDATE mails SET status = ?, updatedAt = CURRENT_TIMESTAMP WHERE id = ?`, status, mailID)
	return err
}

func (d *DB) MailSeen(provider, messageID string) (bool, error) {
	var id int
	err := d.conn.QueryRow(`SELECT id FROM mails WHERE provider = ? AND messageId = ?`, provider, messageID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (d *DB) InsertRun(traceID string, documentID int, timings map[string]float64, counts map[string]int) error {
	timingsJSON, _ := json.Marshal(timings)
	countsJSON, _ := json.Marshal(counts)
	_, err := d.conn.Exec(`INSERT INTO runs (traceId, documentId, timingsJson, countsJson) VALUES (?, ?, ?, ?)`, traceID, documentID, string(timingsJSON), string(countsJSON))
	return err
}

func (d *DB) SetMetadata(key, value string) error {
	_, err := d.conn.Exec(`
INSERT INTO metadata (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updatedAt = CURRENT_TIMESTAMP
`, key, value)
	return err
}

func (d *DB) GetMetadata(key string) (*string, error) {
	var value string
	err := d.conn.QueryRow(`SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &value, nil
}
