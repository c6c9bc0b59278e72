/*
 * Copyright 2018 The Trickster Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package sqlite is the SQLite implementation of the durable storage
// interface, holding keys and values in a single table
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"

	"github.com/trickstercache/reelsync/pkg/cache"
	"github.com/trickstercache/reelsync/pkg/cache/options"
	"github.com/trickstercache/reelsync/pkg/cache/status"
	_ "modernc.org/sqlite"
)

var _ cache.Client = &CacheClient{}

const memoryPath = ":memory:"

var (
	tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

	// ErrInvalidTable is returned when the configured table is not a plain identifier
	ErrInvalidTable = errors.New("invalid sqlite table name")
	// ErrInvalidPath is returned when no database path is configured
	ErrInvalidPath = errors.New("sqlite path is required")

	errNotConnected = errors.New("sqlite cache is not connected")
)

// CacheClient describes a SQLite CacheClient
type CacheClient struct {
	Name   string
	Config *options.Options
	db     *sql.DB

	upsertSQL string
	selectSQL string
	deleteSQL string
	keysSQL   string
}

// New returns a new SQLite cache client
func New(name string, cfg *options.Options) *CacheClient {
	if cfg == nil {
		cfg = options.New()
	}
	return &CacheClient{Name: name, Config: cfg}
}

// Connect opens the database and creates the key-value table
func (c *CacheClient) Connect() error {
	o := c.Config.SQLite
	if o.Path == "" {
		return ErrInvalidPath
	}
	if !tableName.MatchString(o.Table) {
		return fmt.Errorf("%w: %q", ErrInvalidTable, o.Table)
	}
	dsn := memoryPath
	if o.Path != memoryPath {
		dsn = filepath.Clean(o.Path) + "?_pragma=journal_mode(WAL)"
		if ms := o.BusyTimeout.Milliseconds(); ms > 0 {
			dsn += fmt.Sprintf("&_pragma=busy_timeout(%d)", ms)
		}
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("open sqlite db: %w", err)
	}
	// one connection keeps ":memory:" a single database and serializes writers
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return fmt.Errorf("ping sqlite db: %w", err)
	}
	_, err = db.Exec(fmt.Sprintf(
		`CREATE TABLE IF NOT EXISTS %s (key TEXT PRIMARY KEY, value BLOB NOT NULL)`, o.Table))
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("create table: %w", err)
	}
	c.upsertSQL = fmt.Sprintf(`INSERT INTO %s (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, o.Table)
	c.selectSQL = fmt.Sprintf(`SELECT value FROM %s WHERE key = ?`, o.Table)
	c.deleteSQL = fmt.Sprintf(`DELETE FROM %s WHERE key = ?`, o.Table)
	c.keysSQL = fmt.Sprintf(`SELECT key FROM %s`, o.Table)
	c.db = db
	return nil
}

// Close closes the database
func (c *CacheClient) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Store upserts data under cacheKey
func (c *CacheClient) Store(cacheKey string, data []byte) error {
	if c.db == nil {
		return errNotConnected
	}
	if data == nil {
		data = []byte{}
	}
	_, err := c.db.Exec(c.upsertSQL, cacheKey, data)
	return err
}

// Retrieve reads the value for cacheKey
func (c *CacheClient) Retrieve(cacheKey string) ([]byte, status.LookupStatus, error) {
	if c.db == nil {
		return nil, status.LookupStatusError, errNotConnected
	}
	var data []byte
	err := c.db.QueryRow(c.selectSQL, cacheKey).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, status.LookupStatusKeyMiss, cache.ErrKNF
	}
	if err != nil {
		return nil, status.LookupStatusError, err
	}
	return data, status.LookupStatusHit, nil
}

// Remove deletes the provided keys in a single transaction
func (c *CacheClient) Remove(cacheKeys ...string) error {
	if c.db == nil {
		return errNotConnected
	}
	tx, err := c.db.Begin()
	if err != nil {
		return err
	}
	for _, k := range cacheKeys {
		if _, err := tx.Exec(c.deleteSQL, k); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// Keys returns every key in the table
func (c *CacheClient) Keys() ([]string, error) {
	if c.db == nil {
		return nil, errNotConnected
	}
	rows, err := c.db.Query(c.keysSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, rows.Err()
}
