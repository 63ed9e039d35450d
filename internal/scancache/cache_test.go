package scancache

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/muurk/wificfg/internal/radio"
)

type fakeScanner struct {
	calls int
	err   error
	done  radio.ScanDone
}

func (f *fakeScanner) Scan(done radio.ScanDone) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	f.done = done
	return nil
}

// fakeResults reports count but yields every record in bss.
type fakeResults struct {
	count int
	bss   []radio.BSS
	pos   int
}

func (r *fakeResults) Count() int { return r.count }

func (r *fakeResults) Next() (radio.BSS, bool) {
	if r.pos >= len(r.bss) {
		return radio.BSS{}, false
	}
	b := r.bss[r.pos]
	r.pos++
	return b, true
}

func results(bss ...radio.BSS) *fakeResults {
	return &fakeResults{count: len(bss), bss: bss}
}

func rawSSID(s string) []byte {
	raw := make([]byte, radio.MaxSSIDLen)
	copy(raw, s)
	return raw
}

func TestStartScan_OnlyOneConcurrent(t *testing.T) {
	dev := &fakeScanner{}
	c := New(dev, Inline)

	if !c.StartScan() {
		t.Fatal("first StartScan() = false, want true")
	}
	for i := 0; i < 5; i++ {
		if c.StartScan() {
			t.Fatal("StartScan() while busy = true, want false")
		}
	}
	if dev.calls != 1 {
		t.Errorf("hardware scans = %d, want 1", dev.calls)
	}
	if !c.Snapshot().InProgress {
		t.Error("InProgress = false while scan running")
	}
	if got := c.Stats().Dropped; got != 5 {
		t.Errorf("Dropped = %d, want 5", got)
	}
}

func TestStartScan_RadioRefuses(t *testing.T) {
	dev := &fakeScanner{err: radio.ErrScanBusy}
	c := New(dev, Inline)

	if c.StartScan() {
		t.Error("StartScan() = true when radio refused")
	}
	if c.Snapshot().InProgress {
		t.Error("InProgress stayed set after refusal")
	}
	if got := c.Stats().Failed; got != 1 {
		t.Errorf("Failed = %d, want 1", got)
	}
}

func TestStartScan_RefusalNotPublished(t *testing.T) {
	dev := &fakeScanner{err: radio.ErrScanBusy}
	c := New(dev, Inline)
	ch, cancel := c.Subscribe()
	defer cancel()

	for i := 0; i < 3; i++ {
		c.StartScan()
	}
	select {
	case snap := <-ch:
		t.Errorf("refused scan published %+v", snap)
	default:
	}
	if got := c.Stats().Failed; got != 3 {
		t.Errorf("Failed = %d, want 3", got)
	}

	// A scan that ran and failed is still announced.
	dev.err = nil
	c.StartScan()
	dev.done(radio.ScanFailed, nil)
	select {
	case snap := <-ch:
		if snap.InProgress {
			t.Error("published snapshot still in progress")
		}
	default:
		t.Error("failed scan was not published")
	}
}

func TestScanComplete_ReplacesList(t *testing.T) {
	dev := &fakeScanner{}
	c := New(dev, Inline)

	c.StartScan()
	dev.done(radio.ScanOK, results(
		radio.BSS{SSID: rawSSID("alpha"), RSSI: -40, AuthMode: radio.AuthWPA2PSK},
		radio.BSS{SSID: rawSSID("beta"), RSSI: -70, AuthMode: radio.AuthOpen},
		radio.BSS{SSID: rawSSID("gamma"), RSSI: -90, AuthMode: radio.AuthWEP},
	))

	snap := c.Snapshot()
	if snap.InProgress {
		t.Fatal("InProgress = true after completion")
	}
	want := []AccessPoint{
		{SSID: "alpha", RSSI: -40, Enc: radio.AuthWPA2PSK},
		{SSID: "beta", RSSI: -70, Enc: radio.AuthOpen},
		{SSID: "gamma", RSSI: -90, Enc: radio.AuthWEP},
	}
	if len(snap.AccessPoints) != len(want) {
		t.Fatalf("got %d access points, want %d", len(snap.AccessPoints), len(want))
	}
	for i := range want {
		if snap.AccessPoints[i] != want[i] {
			t.Errorf("AccessPoints[%d] = %+v, want %+v", i, snap.AccessPoints[i], want[i])
		}
	}
}

func TestScanComplete_FailureKeepsPrevious(t *testing.T) {
	dev := &fakeScanner{}
	c := New(dev, Inline)

	c.StartScan()
	dev.done(radio.ScanOK, results(radio.BSS{SSID: rawSSID("keep"), RSSI: -50}))

	c.StartScan()
	if !c.Snapshot().InProgress {
		t.Fatal("second scan did not start")
	}
	dev.done(radio.ScanFailed, nil)

	snap := c.Snapshot()
	if snap.InProgress {
		t.Error("InProgress = true after failed scan")
	}
	if len(snap.AccessPoints) != 1 || snap.AccessPoints[0].SSID != "keep" {
		t.Errorf("AccessPoints = %+v, want previous list", snap.AccessPoints)
	}
	if got := c.Stats().Failed; got != 1 {
		t.Errorf("Failed = %d, want 1", got)
	}
}

func TestScanComplete_PreviousListVisibleDuringScan(t *testing.T) {
	dev := &fakeScanner{}
	c := New(dev, Inline)

	c.StartScan()
	dev.done(radio.ScanOK, results(radio.BSS{SSID: rawSSID("old")}))
	c.StartScan()

	snap := c.Snapshot()
	if !snap.InProgress || len(snap.AccessPoints) != 1 {
		t.Errorf("Snapshot() = %+v, want in progress with previous list", snap)
	}
}

func TestScanComplete_SSIDHandling(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
		want string
	}{
		{"nul padded", rawSSID("cafe"), "cafe"},
		{"full width no nul", []byte(strings.Repeat("x", 32)), strings.Repeat("x", 32)},
		{"over long", []byte(strings.Repeat("y", 40)), strings.Repeat("y", 32)},
		{"empty hidden network", make([]byte, 32), ""},
		{"embedded nul", []byte("ab\x00cd"), "ab"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := &fakeScanner{}
			c := New(dev, Inline)
			c.StartScan()
			dev.done(radio.ScanOK, results(radio.BSS{SSID: tt.raw}))

			aps := c.Snapshot().AccessPoints
			if len(aps) != 1 {
				t.Fatalf("got %d access points, want 1", len(aps))
			}
			if aps[0].SSID != tt.want {
				t.Errorf("SSID = %q, want %q", aps[0].SSID, tt.want)
			}
		})
	}
}

// The cut is by bytes, so a multibyte character straddling the limit is split.
func TestScanComplete_SSIDSplitsRune(t *testing.T) {
	raw := []byte(strings.Repeat("a", 31) + "é")

	dev := &fakeScanner{}
	c := New(dev, Inline)
	c.StartScan()
	dev.done(radio.ScanOK, results(radio.BSS{SSID: raw}))

	snap := c.Snapshot()
	ssid := snap.AccessPoints[0].SSID
	if len(ssid) != radio.MaxSSIDLen {
		t.Fatalf("len(SSID) = %d, want %d", len(ssid), radio.MaxSSIDLen)
	}
	if ssid != string(raw[:radio.MaxSSIDLen]) {
		t.Errorf("SSID = %q, want first %d raw bytes", ssid, radio.MaxSSIDLen)
	}
	if utf8.ValidString(ssid) {
		t.Error("SSID unexpectedly valid UTF-8 after the cut")
	}

	got, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if !json.Valid(got) {
		t.Errorf("output is not valid JSON: %s", got)
	}
	if !strings.Contains(string(got), `\ufffd`) {
		t.Errorf("split byte not replaced in %s", got)
	}
}

func TestScanComplete_DriverOverrun(t *testing.T) {
	dev := &fakeScanner{}
	c := New(dev, Inline)

	r := results(
		radio.BSS{SSID: rawSSID("a")},
		radio.BSS{SSID: rawSSID("b")},
		radio.BSS{SSID: rawSSID("c")},
	)
	r.count = 2

	c.StartScan()
	dev.done(radio.ScanOK, r)

	aps := c.Snapshot().AccessPoints
	if len(aps) != 2 || aps[0].SSID != "a" || aps[1].SSID != "b" {
		t.Errorf("AccessPoints = %+v, want first two records", aps)
	}
	if got := c.Stats().Anomalies; got != 1 {
		t.Errorf("Anomalies = %d, want 1", got)
	}
}

func TestScanComplete_DriverShortfall(t *testing.T) {
	dev := &fakeScanner{}
	c := New(dev, Inline)

	r := results(radio.BSS{SSID: rawSSID("only")})
	r.count = 4

	c.StartScan()
	dev.done(radio.ScanOK, r)

	if aps := c.Snapshot().AccessPoints; len(aps) != 1 {
		t.Errorf("got %d access points, want 1", len(aps))
	}
	if got := c.Stats().Anomalies; got != 0 {
		t.Errorf("Anomalies = %d, want 0", got)
	}
}

func TestScanDone_PostsToDispatcher(t *testing.T) {
	dev := &fakeScanner{}
	var queued []func()
	c := New(dev, DispatchFunc(func(fn func()) bool {
		queued = append(queued, fn)
		return true
	}))

	c.StartScan()
	dev.done(radio.ScanOK, results(radio.BSS{SSID: rawSSID("x")}))

	if !c.Snapshot().InProgress {
		t.Fatal("cache changed before the loop ran the completion")
	}
	if len(queued) != 1 {
		t.Fatalf("queued %d messages, want 1", len(queued))
	}
	queued[0]()
	if snap := c.Snapshot(); snap.InProgress || len(snap.AccessPoints) != 1 {
		t.Errorf("Snapshot() = %+v after completion", snap)
	}
}

func TestScanDone_RejectedPostStillCompletes(t *testing.T) {
	dev := &fakeScanner{}
	c := New(dev, DispatchFunc(func(func()) bool { return false }))

	c.StartScan()
	dev.done(radio.ScanOK, results())

	if c.Snapshot().InProgress {
		t.Error("InProgress stuck after rejected post")
	}
}

func TestSubscribe(t *testing.T) {
	dev := &fakeScanner{}
	c := New(dev, Inline)
	ch, cancel := c.Subscribe()

	c.StartScan()
	dev.done(radio.ScanOK, results(radio.BSS{SSID: rawSSID("first")}))
	c.StartScan()
	dev.done(radio.ScanOK, results(radio.BSS{SSID: rawSSID("second")}))

	// Only the latest is kept for a slow reader.
	snap := <-ch
	if len(snap.AccessPoints) != 1 || snap.AccessPoints[0].SSID != "second" {
		t.Errorf("received %+v, want latest snapshot", snap)
	}
	select {
	case extra := <-ch:
		t.Errorf("unexpected extra snapshot %+v", extra)
	default:
	}

	cancel()
	cancel()
	if _, ok := <-ch; ok {
		t.Error("channel still open after cancel")
	}

	// Publishing with no subscribers must not panic.
	c.StartScan()
	dev.done(radio.ScanFailed, nil)
}

func TestSnapshotJSON(t *testing.T) {
	tests := []struct {
		name string
		snap Snapshot
		want string
	}{
		{
			name: "in progress",
			snap: Snapshot{InProgress: true, AccessPoints: []AccessPoint{{SSID: "hidden"}}},
			want: `{"result":{"inProgress":"1"}}`,
		},
		{
			name: "idle empty",
			snap: Snapshot{},
			want: `{"result":{"inProgress":"0","APs":[]}}`,
		},
		{
			name: "idle with networks",
			snap: Snapshot{AccessPoints: []AccessPoint{
				{SSID: "home", RSSI: -60, Enc: radio.AuthWPA2PSK},
				{SSID: `say "hi"`, RSSI: -91, Enc: radio.AuthOpen},
			}},
			want: `{"result":{"inProgress":"0","APs":[{"essid":"home","rssi":"-60","enc":"3"},{"essid":"say \"hi\"","rssi":"-91","enc":"0"}]}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := json.Marshal(tt.snap)
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("Marshal() = %s\nwant %s", got, tt.want)
			}
			if !json.Valid(got) {
				t.Error("output is not valid JSON")
			}
		})
	}
}

func TestSnapshotJSON_Parse(t *testing.T) {
	var s Snapshot
	err := json.Unmarshal([]byte(`{"result":{"inProgress":"0","APs":[{"essid":"lab","rssi":"-72","enc":"4"}]}}`), &s)
	if err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if s.InProgress || len(s.AccessPoints) != 1 {
		t.Fatalf("got %+v", s)
	}
	if ap := s.AccessPoints[0]; ap.SSID != "lab" || ap.RSSI != -72 || ap.Enc != radio.AuthWPAWPA2PSK {
		t.Errorf("AccessPoints[0] = %+v", ap)
	}

	if err := json.Unmarshal([]byte(`{"result":{"inProgress":"maybe"}}`), &s); err == nil {
		t.Error("Unmarshal() accepted bad inProgress value")
	}
	if err := json.Unmarshal([]byte(`{"result":{"inProgress":"0","APs":[{"essid":"x","rssi":"loud","enc":"0"}]}}`), &s); err == nil {
		t.Error("Unmarshal() accepted bad rssi")
	}
}

type failWriter struct{}

func (failWriter) Write([]byte) (int, error) { return 0, errors.New("closed") }

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := (Snapshot{InProgress: true}).WriteJSON(&buf); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
	if buf.String() != "{\"result\":{\"inProgress\":\"1\"}}\n" {
		t.Errorf("WriteJSON() wrote %q", buf.String())
	}
	if err := (Snapshot{}).WriteJSON(failWriter{}); err == nil {
		t.Error("WriteJSON() should report writer errors")
	}
}
