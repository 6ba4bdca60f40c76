// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package docstore

import (
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/dojoquest/internal/kv"
)

// =============================================================================
// DOCUMENT
// =============================================================================

// Document is a schema-flexible record: string keys to JSON-compatible
// values. The store stamps the envelope fields below at insertion time when
// the caller has not supplied them.
type Document map[string]any

// Envelope fields assigned by the store.
const (
	FieldID        = "_id"
	FieldCreatedAt = "_created_at"
	FieldUpdatedAt = "_updated_at"
)

// ID returns the document identifier, or "" if unset.
func (d Document) ID() string {
	id, _ := d[FieldID].(string)
	return id
}

// CreatedAt returns the creation timestamp in Unix milliseconds, or 0.
// Handles both int64 (freshly inserted) and float64 (reloaded from JSON).
func (d Document) CreatedAt() int64 {
	return asMillis(d[FieldCreatedAt])
}

func asMillis(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case float64:
		return int64(n)
	case int:
		return int64(n)
	}
	return 0
}

// clone returns a shallow copy of the document.
func (d Document) clone() Document {
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// fieldEqual reports strict equality between a document field and a query
// value. Numeric values are compared as float64 regardless of the concrete
// Go type, because documents reloaded from JSON carry float64 where fresh
// inserts carry int64. Non-scalar values never match.
func fieldEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if na, ok := toFloat(a); ok {
		nb, ok := toFloat(b)
		return ok && na == nb
	}
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	}
	return false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	}
	return 0, false
}

// matches reports whether every key in query equals the document's value
// for that key. A key missing on the document never matches. An empty
// query matches everything.
func (d Document) matches(query Document) bool {
	for k, want := range query {
		got, ok := d[k]
		if !ok || !fieldEqual(got, want) {
			return false
		}
	}
	return true
}

// =============================================================================
// DB
// =============================================================================

// Syncer receives collection snapshots after each durable write. The push
// is expected to be deferred and best-effort; see RemoteSyncer.
type Syncer interface {
	Schedule(collection string, snapshot []byte)
}

// The default collections known to the full-export path.
var knownCollections = []string{"users", "sessions", "logs"}

// DB is a handle to a set of named collections over one durable medium.
type DB struct {
	prefix      string
	medium      kv.Medium
	syncer      Syncer
	collections map[string]*Collection
}

// Option configures a DB.
type Option func(*DB)

// WithSyncer attaches a remote syncer to the DB.
func WithSyncer(s Syncer) Option {
	return func(db *DB) { db.syncer = s }
}

// WithPrefix overrides the durable key namespace prefix.
func WithPrefix(prefix string) Option {
	return func(db *DB) { db.prefix = prefix }
}

// Open creates a DB over the given medium. Collections are hydrated lazily
// on first access.
func Open(medium kv.Medium, opts ...Option) *DB {
	db := &DB{
		prefix:      "dojoquest::",
		medium:      medium,
		collections: make(map[string]*Collection),
	}
	for _, opt := range opts {
		opt(db)
	}
	return db
}

func (db *DB) key(name string) string {
	return db.prefix + name
}

// Collection returns the named collection, loading it from the medium on
// first access.
func (db *DB) Collection(name string) *Collection {
	if c, ok := db.collections[name]; ok {
		return c
	}
	c := &Collection{name: name, db: db}
	c.load()
	db.collections[name] = c
	return c
}

// ExportAll serializes every known collection into a single object,
// independent of the per-collection sync path.
func (db *DB) ExportAll() ([]byte, error) {
	dump := make(map[string][]Document, len(knownCollections))
	for _, name := range knownCollections {
		dump[name] = db.Collection(name).All()
	}
	return json.MarshalIndent(dump, "", "  ")
}

// =============================================================================
// COLLECTION
// =============================================================================

// UpsertOp reports which branch an Upsert took.
type UpsertOp string

const (
	UpsertUpdated  UpsertOp = "update"
	UpsertInserted UpsertOp = "insert"
)

// Collection is a named, ordered sequence of documents.
type Collection struct {
	name string
	db   *DB
	docs []Document
}

// load hydrates the in-memory slice from the durable medium.
func (c *Collection) load() {
	raw, ok, err := c.db.medium.Get(c.db.key(c.name))
	if err != nil {
		log.Printf("[docstore] load %s: %v", c.name, err)
		return
	}
	if !ok {
		return
	}
	var docs []Document
	if err := json.Unmarshal([]byte(raw), &docs); err != nil {
		log.Printf("[docstore] load %s: corrupt snapshot: %v", c.name, err)
		return
	}
	c.docs = docs
}

// save writes the full collection snapshot to the medium, then schedules
// the debounced remote sync. The durable write always precedes the sync.
func (c *Collection) save() error {
	snapshot, err := json.Marshal(c.snapshotSlice())
	if err != nil {
		return fmt.Errorf("marshal collection %s: %w", c.name, err)
	}
	if err := c.db.medium.Set(c.db.key(c.name), string(snapshot)); err != nil {
		return fmt.Errorf("persist collection %s: %w", c.name, err)
	}
	if c.db.syncer != nil {
		c.db.syncer.Schedule(c.name, snapshot)
	}
	return nil
}

// snapshotSlice never marshals to JSON null.
func (c *Collection) snapshotSlice() []Document {
	if c.docs == nil {
		return []Document{}
	}
	return c.docs
}

// Insert appends doc to the collection, assigning an identifier and a
// creation timestamp when absent, and persists. Returns the stored
// document with assigned fields.
func (c *Collection) Insert(doc Document) (Document, error) {
	if doc.ID() == "" {
		doc[FieldID] = uuid.NewString()
	}
	if _, ok := doc[FieldCreatedAt]; !ok {
		doc[FieldCreatedAt] = time.Now().UnixMilli()
	}
	c.docs = append(c.docs, doc)
	if err := c.save(); err != nil {
		return nil, err
	}
	return doc, nil
}

// Find returns all documents where every query key equals the document's
// value for that key. An empty (or nil) query returns all documents in
// insertion order.
func (c *Collection) Find(query Document) []Document {
	var out []Document
	for _, d := range c.docs {
		if d.matches(query) {
			out = append(out, d)
		}
	}
	return out
}

// FindOne returns the first matching document in sequence order. The
// boolean reports whether a match was found.
func (c *Collection) FindOne(query Document) (Document, bool) {
	for _, d := range c.docs {
		if d.matches(query) {
			return d, true
		}
	}
	return nil, false
}

// Update shallow-merges patch into every matching document, stamps
// _updated_at, and persists once after all matches are processed. Returns
// the number of documents updated.
func (c *Collection) Update(query, patch Document) (int, error) {
	count := 0
	now := time.Now().UnixMilli()
	for _, d := range c.docs {
		if !d.matches(query) {
			continue
		}
		for k, v := range patch {
			d[k] = v
		}
		d[FieldUpdatedAt] = now
		count++
	}
	if count == 0 {
		return 0, nil
	}
	if err := c.save(); err != nil {
		return count, err
	}
	return count, nil
}

// Upsert updates the first match with doc, or inserts a new document
// merging query and doc when nothing matches.
func (c *Collection) Upsert(query, doc Document) (UpsertOp, Document, error) {
	if _, ok := c.FindOne(query); ok {
		if _, err := c.Update(query, doc); err != nil {
			return UpsertUpdated, nil, err
		}
		updated, _ := c.FindOne(query)
		return UpsertUpdated, updated, nil
	}
	merged := query.clone()
	for k, v := range doc {
		merged[k] = v
	}
	inserted, err := c.Insert(merged)
	if err != nil {
		return UpsertInserted, nil, err
	}
	return UpsertInserted, inserted, nil
}

// Delete removes all matching documents in one pass and persists. Returns
// the number removed.
func (c *Collection) Delete(query Document) (int, error) {
	kept := c.docs[:0]
	for _, d := range c.docs {
		if !d.matches(query) {
			kept = append(kept, d)
		}
	}
	removed := len(c.docs) - len(kept)
	c.docs = kept
	if removed == 0 {
		return 0, nil
	}
	if err := c.save(); err != nil {
		return removed, err
	}
	return removed, nil
}

// SetData replaces the whole collection (used when restoring state).
func (c *Collection) SetData(docs []Document) error {
	c.docs = docs
	return c.save()
}

// All returns the documents in insertion order.
func (c *Collection) All() []Document {
	return c.snapshotSlice()
}

// Len returns the number of documents.
func (c *Collection) Len() int {
	return len(c.docs)
}

// SortByCreatedAt sorts documents ascending by creation timestamp. It is a
// stable sort so insertion order breaks ties.
func SortByCreatedAt(docs []Document) {
	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].CreatedAt() < docs[j].CreatedAt()
	})
}
