package analytics

import (
	"encoding/json"
	"errors"
	"testing"
)

type recordingTransport struct {
	beaconOK  bool
	panics    bool
	beacons   [][]byte
	keepAlive [][]byte
}

func (r *recordingTransport) Beacon(_ string, body []byte) bool {
	if r.panics {
		panic("navigator is gone")
	}
	r.beacons = append(r.beacons, body)
	return r.beaconOK
}

func (r *recordingTransport) KeepAlive(_ string, body []byte) error {
	r.keepAlive = append(r.keepAlive, body)
	return errors.New("offline")
}

type mapStorage map[string]string

func (m mapStorage) GetItem(k string) (string, bool, error) { v, ok := m[k]; return v, ok, nil }
func (m mapStorage) SetItem(k, v string) error              { m[k] = v; return nil }
func (m mapStorage) RemoveItem(k string) error              { delete(m, k); return nil }

func TestReportPrefersBeacon(t *testing.T) {
	tr := &recordingTransport{beaconOK: true}
	e := NewEmitter("/api/v1/embed/events", tr, Identity{VisitorID: "v", SessionID: "s"}, PageInfo{URL: "https://shop.test/"})
	e.Report("w1", EventView, nil)

	if len(tr.beacons) != 1 || len(tr.keepAlive) != 0 {
		t.Fatalf("beacons=%d keepalive=%d", len(tr.beacons), len(tr.keepAlive))
	}
	var ev Event
	if err := json.Unmarshal(tr.beacons[0], &ev); err != nil {
		t.Fatal(err)
	}
	if ev.WidgetID != "w1" || ev.Type != EventView || ev.VisitorID != "v" || ev.PageURL != "https://shop.test/" {
		t.Errorf("payload = %+v", ev)
	}
}

func TestReportFallsBackToKeepAlive(t *testing.T) {
	tr := &recordingTransport{beaconOK: false}
	NewEmitter("/e", tr, Identity{}, PageInfo{}).Report("w1", EventAccept, nil)
	if len(tr.keepAlive) != 1 {
		t.Errorf("keepalive = %d, want 1", len(tr.keepAlive))
	}
}

func TestReportNeverPanics(t *testing.T) {
	tr := &recordingTransport{panics: true}
	NewEmitter("/e", tr, Identity{}, PageInfo{}).Report("w1", EventDecline, nil)

	var nilEmitter *Emitter
	nilEmitter.Report("w1", EventView, nil)
}

func TestLoadIdentityPersists(t *testing.T) {
	local, session := mapStorage{}, mapStorage{}
	first := LoadIdentity(local, session)
	second := LoadIdentity(local, session)
	if first.VisitorID == "" || first != second {
		t.Errorf("identity not reused: %+v vs %+v", first, second)
	}
	if first.VisitorID == first.SessionID {
		t.Error("visitor and session ids must differ")
	}

	fresh := LoadIdentity(local, mapStorage{})
	if fresh.VisitorID != first.VisitorID || fresh.SessionID == first.SessionID {
		t.Errorf("new session should keep the visitor: %+v", fresh)
	}
}

func TestLoadIdentityWithoutStorage(t *testing.T) {
	id := LoadIdentity(nil, nil)
	if id.VisitorID == "" || id.SessionID == "" {
		t.Errorf("ephemeral ids expected, got %+v", id)
	}
}

func TestValidate(t *testing.T) {
	if err := (Event{WidgetID: "w", Type: "click"}).Validate(); !errors.Is(err, ErrInvalidEventType) {
		t.Errorf("err = %v", err)
	}
	if err := (Event{Type: EventView}).Validate(); !errors.Is(err, ErrMissingWidgetID) {
		t.Errorf("err = %v", err)
	}
	if err := (Event{WidgetID: "w", Type: EventSettings}).Validate(); err != nil {
		t.Errorf("err = %v", err)
	}
}

func TestAcceptRate(t *testing.T) {
	s := Stats{Counts: map[EventType]int{EventView: 10, EventAccept: 3, EventDecline: 1}}
	if got := s.AcceptRate(); got != 0.75 {
		t.Errorf("AcceptRate = %v", got)
	}
	if (Stats{}).AcceptRate() != 0 {
		t.Error("empty stats should have zero rate")
	}
}
