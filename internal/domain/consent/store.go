// Package consent persists a visitor's banner decision in durable per-origin storage
// and mirrors it into a cookie a server can read.
//
// The store fails open: any storage error, parse error or missing entry reads as
// "no decision", so the banner is shown again rather than silently suppressed.
package consent

import (
	"encoding/json"
	"fmt"
	"time"
)

// Action is the visitor's decision.
type Action string

const (
	ActionAccepted Action = "accepted"
	ActionDeclined Action = "declined"
)

// Category ids. Necessary is always granted.
const (
	CategoryNecessary   = "necessary"
	CategoryAnalytics   = "analytics"
	CategoryMarketing   = "marketing"
	CategoryPreferences = "preferences"
)

// Categories lists every category a record carries.
var Categories = []string{CategoryNecessary, CategoryAnalytics, CategoryMarketing, CategoryPreferences}

// DayMillis is the length of one consent day.
const DayMillis = int64(86400000)

const cookieTimeFormat = "Mon, 02 Jan 2006 15:04:05 GMT"

// Namespace names the storage entry and cookie a delivery path writes.
type Namespace struct {
	StorageKey string
	CookieName string
}

var (
	// Live is used by the hosted runtime.
	Live = Namespace{StorageKey: "cookie_consent", CookieName: "cookie_consent"}
	// Standalone is used by generated snippets so they never collide with a hosted widget.
	Standalone = Namespace{StorageKey: "cookie_consent_standalone", CookieName: "cookie_consent_standalone"}
)

// Record is the durable decision artifact.
type Record struct {
	Action     Action          `json:"action"`
	Categories map[string]bool `json:"categories"`
	Timestamp  int64           `json:"timestamp"`
	WidgetID   string          `json:"widgetId,omitempty"`
}

// Storage is a durable string key-value store such as window.localStorage. Every
// method may fail when persistence is blocked.
type Storage interface {
	GetItem(key string) (string, bool, error)
	SetItem(key, value string) error
	RemoveItem(key string) error
}

// CookieJar accepts a raw Set-Cookie style assignment such as document.cookie.
type CookieJar interface {
	SetCookie(raw string) error
}

// Store reads and writes one widget's consent record.
type Store struct {
	storage     Storage
	cookies     CookieJar
	ns          Namespace
	widgetID    string
	hideAfterMs int64
	now         func() time.Time
}

// NewStore creates a store. hideAfterDays outside 1..365 falls back to 365.
func NewStore(storage Storage, cookies CookieJar, ns Namespace, widgetID string, hideAfterDays int, now func() time.Time) *Store {
	if hideAfterDays < 1 || hideAfterDays > 365 {
		hideAfterDays = 365
	}
	if now == nil {
		now = time.Now
	}
	return &Store{
		storage:     storage,
		cookies:     cookies,
		ns:          ns,
		widgetID:    widgetID,
		hideAfterMs: int64(hideAfterDays) * DayMillis,
		now:         now,
	}
}

// Get returns the granted categories of a live decision, or nil when the banner
// should be shown. Expired and unreadable entries are removed.
func (s *Store) Get() map[string]bool {
	raw, ok := s.read()
	if !ok {
		return nil
	}

	rec, err := Parse(raw)
	if err != nil {
		s.remove()
		return nil
	}
	if Expired(rec, s.now().UnixMilli(), s.hideAfterMs) {
		s.remove()
		return nil
	}

	out := make(map[string]bool, len(rec.Categories)+1)
	for k, v := range rec.Categories {
		out[k] = v
	}
	out[CategoryNecessary] = true
	return out
}

// Set records a decision in durable storage and in the mirrored cookie. Storage
// failures are swallowed; the returned record is what was attempted.
func (s *Store) Set(action Action, categories map[string]bool) Record {
	rec := Record{
		Action:     action,
		Categories: withNecessary(categories),
		Timestamp:  s.now().UnixMilli(),
		WidgetID:   s.widgetID,
	}

	if data, err := json.Marshal(rec); err == nil {
		s.write(string(data))
	}
	s.writeCookie(CookieString(s.ns.CookieName, rec, s.hideAfterMs))
	return rec
}

// Parse decodes a stored record and rejects structurally invalid entries.
func Parse(raw string) (Record, error) {
	var rec Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return Record{}, fmt.Errorf("decode consent record: %w", err)
	}
	if rec.Action != ActionAccepted && rec.Action != ActionDeclined {
		return Record{}, fmt.Errorf("consent record has unknown action %q", rec.Action)
	}
	if rec.Timestamp <= 0 {
		return Record{}, fmt.Errorf("consent record has no timestamp")
	}
	return rec, nil
}

// Expired reports whether nowMs is at or past the end of the record's window.
func Expired(rec Record, nowMs, hideAfterMs int64) bool {
	return nowMs-rec.Timestamp >= hideAfterMs
}

// CookieString builds the mirrored cookie assignment for a record.
func CookieString(name string, rec Record, hideAfterMs int64) string {
	expires := time.UnixMilli(rec.Timestamp + hideAfterMs).UTC().Format(cookieTimeFormat)
	return fmt.Sprintf("%s=%s; expires=%s; path=/; SameSite=Lax", name, rec.Action, expires)
}

// GrantAll is the category map written on accept.
func GrantAll() map[string]bool {
	out := make(map[string]bool, len(Categories))
	for _, c := range Categories {
		out[c] = true
	}
	return out
}

// DeclineAll is the category map written on decline.
func DeclineAll() map[string]bool {
	out := make(map[string]bool, len(Categories))
	for _, c := range Categories {
		out[c] = c == CategoryNecessary
	}
	return out
}

// SettingsDecision is what the settings button records. There is no category picker
// yet, so settings grants everything exactly like accept.
// TODO: replace with the granular picker outcome once product decides the settings flow.
func SettingsDecision() (Action, map[string]bool) {
	return ActionAccepted, GrantAll()
}

func withNecessary(categories map[string]bool) map[string]bool {
	out := make(map[string]bool, len(categories)+1)
	for k, v := range categories {
		out[k] = v
	}
	out[CategoryNecessary] = true
	return out
}

func (s *Store) read() (value string, ok bool) {
	if s.storage == nil {
		return "", false
	}
	defer func() {
		if recover() != nil {
			value, ok = "", false
		}
	}()
	v, found, err := s.storage.GetItem(s.ns.StorageKey)
	if err != nil || !found {
		return "", false
	}
	return v, true
}

func (s *Store) write(value string) {
	if s.storage == nil {
		return
	}
	defer func() { _ = recover() }()
	_ = s.storage.SetItem(s.ns.StorageKey, value)
}

func (s *Store) remove() {
	if s.storage == nil {
		return
	}
	defer func() { _ = recover() }()
	_ = s.storage.RemoveItem(s.ns.StorageKey)
}

func (s *Store) writeCookie(raw string) {
	if s.cookies == nil {
		return
	}
	defer func() { _ = recover() }()
	_ = s.cookies.SetCookie(raw)
}
