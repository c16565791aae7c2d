package consent

import (
	"errors"
	"strings"
	"testing"
	"time"
)

type memStorage struct {
	items   map[string]string
	failGet bool
	failSet bool
	panics  bool
}

func newMemStorage() *memStorage {
	return &memStorage{items: map[string]string{}}
}

func (m *memStorage) GetItem(key string) (string, bool, error) {
	if m.panics {
		panic("storage access denied")
	}
	if m.failGet {
		return "", false, errors.New("blocked")
	}
	v, ok := m.items[key]
	return v, ok, nil
}

func (m *memStorage) SetItem(key, value string) error {
	if m.panics {
		panic("storage access denied")
	}
	if m.failSet {
		return errors.New("quota exceeded")
	}
	m.items[key] = value
	return nil
}

func (m *memStorage) RemoveItem(key string) error {
	delete(m.items, key)
	return nil
}

type memCookies struct {
	raw []string
}

func (c *memCookies) SetCookie(raw string) error {
	c.raw = append(c.raw, raw)
	return nil
}

type clock struct{ t time.Time }

func (c *clock) Now() time.Time { return c.t }

func TestAcceptGrantsEverything(t *testing.T) {
	storage, cookies := newMemStorage(), &memCookies{}
	clk := &clock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := NewStore(storage, cookies, Live, "w1", 365, clk.Now)

	if s.Get() != nil {
		t.Fatal("fresh store must report no decision")
	}
	rec := s.Set(ActionAccepted, GrantAll())
	if rec.WidgetID != "w1" || rec.Timestamp != clk.t.UnixMilli() {
		t.Errorf("unexpected record %+v", rec)
	}

	got := s.Get()
	for _, c := range Categories {
		if !got[c] {
			t.Errorf("category %s should be granted", c)
		}
	}
	if _, ok := storage.items["cookie_consent"]; !ok {
		t.Error("record not written under the live key")
	}
	if len(cookies.raw) != 1 || !strings.HasPrefix(cookies.raw[0], "cookie_consent=accepted; expires=") {
		t.Errorf("cookie = %v", cookies.raw)
	}
}

func TestDeclineKeepsNecessary(t *testing.T) {
	s := NewStore(newMemStorage(), nil, Live, "w1", 30, nil)
	s.Set(ActionDeclined, DeclineAll())
	got := s.Get()
	if !got[CategoryNecessary] {
		t.Error("necessary must always be granted")
	}
	if got[CategoryAnalytics] || got[CategoryMarketing] || got[CategoryPreferences] {
		t.Errorf("decline granted optional categories: %v", got)
	}
}

func TestNecessaryForcedOnWrite(t *testing.T) {
	s := NewStore(newMemStorage(), nil, Live, "w1", 30, nil)
	rec := s.Set(ActionDeclined, map[string]bool{CategoryNecessary: false})
	if !rec.Categories[CategoryNecessary] {
		t.Error("necessary must be true in every written record")
	}
}

func TestExpiryWindow(t *testing.T) {
	storage := newMemStorage()
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clk := &clock{t: start}
	s := NewStore(storage, nil, Live, "w1", 30, clk.Now)
	s.Set(ActionAccepted, GrantAll())

	clk.t = start.Add(30*24*time.Hour - time.Millisecond)
	if s.Get() == nil {
		t.Fatal("decision should still be live one millisecond before expiry")
	}

	clk.t = start.Add(30 * 24 * time.Hour)
	if s.Get() != nil {
		t.Fatal("decision should expire exactly at the window end")
	}
	if _, ok := storage.items["cookie_consent"]; ok {
		t.Error("expired record should be removed")
	}
}

func TestFailsOpen(t *testing.T) {
	corrupt := newMemStorage()
	corrupt.items["cookie_consent"] = "{not json"

	badAction := newMemStorage()
	badAction.items["cookie_consent"] = `{"action":"maybe","timestamp":1}`

	tests := []struct {
		name    string
		storage Storage
	}{
		{"missing storage", nil},
		{"unreadable", &memStorage{items: map[string]string{}, failGet: true}},
		{"panicking", &memStorage{items: map[string]string{}, panics: true}},
		{"corrupt json", corrupt},
		{"unknown action", badAction},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore(tt.storage, nil, Live, "w1", 365, nil)
			if got := s.Get(); got != nil {
				t.Errorf("Get() = %v, want nil", got)
			}
		})
	}

	if _, ok := corrupt.items["cookie_consent"]; ok {
		t.Error("corrupt record should be removed")
	}
}

func TestSetSurvivesStorageFailure(t *testing.T) {
	cookies := &memCookies{}
	s := NewStore(&memStorage{items: map[string]string{}, failSet: true}, cookies, Live, "w1", 365, nil)
	rec := s.Set(ActionAccepted, GrantAll())
	if rec.Action != ActionAccepted {
		t.Errorf("record = %+v", rec)
	}
	if len(cookies.raw) != 1 {
		t.Error("cookie should still be written when storage rejects the record")
	}

	s = NewStore(&memStorage{panics: true}, nil, Live, "w1", 365, nil)
	s.Set(ActionDeclined, DeclineAll())
}

func TestNamespacesAreIsolated(t *testing.T) {
	storage := newMemStorage()
	live := NewStore(storage, nil, Live, "w1", 365, nil)
	standalone := NewStore(storage, nil, Standalone, "w1", 365, nil)

	live.Set(ActionAccepted, GrantAll())
	if standalone.Get() != nil {
		t.Error("standalone snippet must not see the hosted decision")
	}
}

func TestCookieString(t *testing.T) {
	rec := Record{Action: ActionDeclined, Timestamp: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli()}
	got := CookieString("cookie_consent", rec, DayMillis)
	want := "cookie_consent=declined; expires=Fri, 02 Jan 2026 00:00:00 GMT; path=/; SameSite=Lax"
	if got != want {
		t.Errorf("CookieString = %q\nwant %q", got, want)
	}
}

func TestHideAfterDaysOutOfRange(t *testing.T) {
	s := NewStore(nil, nil, Live, "w1", 0, nil)
	if s.hideAfterMs != 365*DayMillis {
		t.Errorf("hideAfterMs = %d", s.hideAfterMs)
	}
}

func TestSettingsGrantsAll(t *testing.T) {
	action, cats := SettingsDecision()
	if action != ActionAccepted || !cats[CategoryMarketing] {
		t.Errorf("settings = %s %v", action, cats)
	}
}
