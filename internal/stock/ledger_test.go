package stock

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"comexiger-backend/internal/apperr"
	"comexiger-backend/internal/database/dbtest"
	"comexiger-backend/internal/models"
	"comexiger-backend/internal/notify"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type fixture struct {
	db     *gorm.DB
	ledger *Ledger
	sink   *notify.Memory
	clock  *fakeClock
}

func newFixture(t *testing.T, burn bool) *fixture {
	t.Helper()
	db := dbtest.New(t)
	clk := &fakeClock{t: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)}
	sink := &notify.Memory{}
	l := NewLedger(Options{
		DB:                  db,
		Notifier:            sink,
		Log:                 zerolog.Nop(),
		Location:            time.UTC,
		Now:                 clk.Now,
		BurnOutboundOnEmpty: burn,
	})
	return &fixture{db: db, ledger: l, sink: sink, clock: clk}
}

func in(code string, table int) ScanInput {
	return ScanInput{Code: code, Table: table, Variety: "Freedom", Size: "50"}
}

func TestInboundCountsAcceptedScans(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	var lotID uint
	for i := 0; i < 5; i++ {
		lot, created, err := f.ledger.RegisterInbound(ctx, in(fmt.Sprintf("QR-%d", i), 1))
		if err != nil {
			t.Fatalf("scan %d: %v", i, err)
		}
		if created != (i == 0) {
			t.Errorf("scan %d: created = %v", i, created)
		}
		if i == 0 {
			lotID = lot.ID
		} else if lot.ID != lotID {
			t.Errorf("scan %d landed on lot %d, want %d", i, lot.ID, lotID)
		}
	}

	lot, _ := f.ledger.Get(ctx, lotID)
	if lot.Quantity != 5 {
		t.Errorf("quantity = %d, want 5", lot.Quantity)
	}
	if got := len(f.sink.OnChannel(notify.ChannelStock)); got != 5 {
		t.Errorf("notifications = %d, want 5", got)
	}
}

func TestInboundDuplicateCodeLeavesLotUntouched(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	lot, _, err := f.ledger.RegisterInbound(ctx, in("QR-A", 1))
	if err != nil {
		t.Fatalf("first scan: %v", err)
	}
	_, _, err = f.ledger.RegisterInbound(ctx, in("QR-A", 1))
	if !apperr.Is(err, apperr.KindDuplicateScan) {
		t.Fatalf("second scan = %v, want DuplicateScan", err)
	}
	// A different key does not make an old code valid again.
	_, _, err = f.ledger.RegisterInbound(ctx, ScanInput{Code: "QR-A", Table: 2, Variety: "Vendela", Size: "60"})
	if !apperr.Is(err, apperr.KindDuplicateScan) {
		t.Fatalf("reuse on other key = %v, want DuplicateScan", err)
	}

	got, _ := f.ledger.Get(ctx, lot.ID)
	if got.Quantity != 1 {
		t.Errorf("quantity = %d, want 1", got.Quantity)
	}
	if n := len(f.sink.Events()); n != 1 {
		t.Errorf("notifications = %d, want 1", n)
	}
}

func TestInboundSeparatesKeysAndDays(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	a, _, _ := f.ledger.RegisterInbound(ctx, in("QR-1", 1))
	b, created, _ := f.ledger.RegisterInbound(ctx, in("QR-2", 2))
	if !created || a.ID == b.ID {
		t.Errorf("other mesa reused lot %d", a.ID)
	}
	c, created, _ := f.ledger.RegisterInbound(ctx, ScanInput{Code: "QR-3", Table: 1, Variety: "Freedom", Size: "60"})
	if !created || c.ID == a.ID {
		t.Errorf("other size reused lot %d", a.ID)
	}

	f.clock.Advance(24 * time.Hour)
	d, created, _ := f.ledger.RegisterInbound(ctx, in("QR-4", 1))
	if !created || d.ID == a.ID {
		t.Errorf("next day reused lot %d", a.ID)
	}
}

func TestInboundReopensLotClosedToday(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	lot, _, _ := f.ledger.RegisterInbound(ctx, in("IN-1", 1))
	out, err := f.ledger.RegisterOutbound(ctx, in("OUT-1", 1))
	if err != nil {
		t.Fatalf("outbound: %v", err)
	}
	if out.ClosedAt == nil || out.Quantity != 0 {
		t.Fatalf("after outbound: quantity %d closed %v", out.Quantity, out.ClosedAt)
	}

	f.clock.Advance(time.Hour)
	again, created, err := f.ledger.RegisterInbound(ctx, in("IN-2", 1))
	if err != nil {
		t.Fatalf("inbound: %v", err)
	}
	if created || again.ID != lot.ID {
		t.Errorf("reopen created = %v id = %d, want existing %d", created, again.ID, lot.ID)
	}
	if again.ClosedAt != nil || again.Quantity != 1 {
		t.Errorf("reopened lot: quantity %d closed %v", again.Quantity, again.ClosedAt)
	}
}

func TestInboundPrefersOpenLotOverNewerClosedOne(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	var open *models.StockLot
	for i := 0; i < 3; i++ {
		open, _, _ = f.ledger.RegisterInbound(ctx, in(fmt.Sprintf("IN-%d", i), 1))
	}
	f.clock.Advance(time.Hour)
	closed, err := f.ledger.CreateLot(ctx, ManualLotInput{Table: 1, Variety: "Freedom", Size: "50", Quantity: 0})
	if err != nil {
		t.Fatalf("CreateLot: %v", err)
	}
	if closed.ClosedAt == nil {
		t.Fatalf("manual lot with 0 should be closed: %+v", closed)
	}

	f.clock.Advance(time.Hour)
	lot, created, err := f.ledger.RegisterInbound(ctx, in("IN-9", 1))
	if err != nil {
		t.Fatalf("inbound: %v", err)
	}
	if created || lot.ID != open.ID || lot.Quantity != 4 {
		t.Errorf("inbound hit lot %d (created %v, quantity %d), want open lot %d with 4", lot.ID, created, lot.Quantity, open.ID)
	}

	var openLots int64
	f.db.Model(&models.StockLot{}).Where("closed_at IS NULL").Count(&openLots)
	if openLots != 1 {
		t.Errorf("open lots = %d, want 1", openLots)
	}
}

func TestOutboundUsesOldestOpenLot(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	old, _, _ := f.ledger.RegisterInbound(ctx, in("IN-1", 1))
	f.clock.Advance(24 * time.Hour)
	fresh, _, _ := f.ledger.RegisterInbound(ctx, in("IN-2", 1))
	_, _, _ = f.ledger.RegisterInbound(ctx, in("IN-3", 1))

	first, err := f.ledger.RegisterOutbound(ctx, in("OUT-1", 1))
	if err != nil {
		t.Fatalf("outbound 1: %v", err)
	}
	if first.ID != old.ID || first.ClosedAt == nil {
		t.Errorf("outbound 1 hit lot %d (closed %v), want %d closed", first.ID, first.ClosedAt, old.ID)
	}

	second, err := f.ledger.RegisterOutbound(ctx, in("OUT-2", 1))
	if err != nil {
		t.Fatalf("outbound 2: %v", err)
	}
	if second.ID != fresh.ID || second.Quantity != 1 || second.ClosedAt != nil {
		t.Errorf("outbound 2 = lot %d qty %d closed %v", second.ID, second.Quantity, second.ClosedAt)
	}
}

func TestOutboundNeverGoesNegative(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	const n = 3
	for i := 0; i < n; i++ {
		if _, _, err := f.ledger.RegisterInbound(ctx, in(fmt.Sprintf("IN-%d", i), 4)); err != nil {
			t.Fatalf("inbound %d: %v", i, err)
		}
	}
	for i := 0; i < n; i++ {
		if _, err := f.ledger.RegisterOutbound(ctx, in(fmt.Sprintf("OUT-%d", i), 4)); err != nil {
			t.Fatalf("outbound %d: %v", i, err)
		}
	}
	_, err := f.ledger.RegisterOutbound(ctx, in("OUT-extra", 4))
	if !apperr.Is(err, apperr.KindNoStock) {
		t.Fatalf("outbound %d = %v, want NoStockAvailable", n+1, err)
	}

	var lots []models.StockLot
	f.db.Find(&lots)
	for _, l := range lots {
		if l.Quantity < 0 {
			t.Errorf("lot %d quantity %d", l.ID, l.Quantity)
		}
	}
}

func TestOutboundNoStockBurnsCode(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	if _, err := f.ledger.RegisterOutbound(ctx, in("OUT-X", 1)); !apperr.Is(err, apperr.KindNoStock) {
		t.Fatalf("first outbound = %v, want NoStockAvailable", err)
	}
	_, _, _ = f.ledger.RegisterInbound(ctx, in("IN-1", 1))

	if _, err := f.ledger.RegisterOutbound(ctx, in("OUT-X", 1)); !apperr.Is(err, apperr.KindDuplicateScan) {
		t.Errorf("retry = %v, want DuplicateScan (code consumed by failed attempt)", err)
	}
}

func TestOutboundNoStockKeepsCodeWhenBurnDisabled(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	if _, err := f.ledger.RegisterOutbound(ctx, in("OUT-X", 1)); !apperr.Is(err, apperr.KindNoStock) {
		t.Fatalf("first outbound = %v, want NoStockAvailable", err)
	}
	_, _, _ = f.ledger.RegisterInbound(ctx, in("IN-1", 1))

	if _, err := f.ledger.RegisterOutbound(ctx, in("OUT-X", 1)); err != nil {
		t.Errorf("retry = %v, want success", err)
	}
	if _, err := f.ledger.RegisterOutbound(ctx, in("OUT-X", 1)); !apperr.Is(err, apperr.KindDuplicateScan) {
		t.Errorf("third attempt = %v, want DuplicateScan", err)
	}
}

func TestConcurrentOutboundOnSingleUnit(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	lot, _, _ := f.ledger.RegisterInbound(ctx, in("IN-1", 1))

	const n = 10
	var ok, empty int32
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.ledger.RegisterOutbound(ctx, in(fmt.Sprintf("OUT-%d", i), 1))
			switch {
			case err == nil:
				atomic.AddInt32(&ok, 1)
			case apperr.Is(err, apperr.KindNoStock):
				atomic.AddInt32(&empty, 1)
			default:
				t.Errorf("outbound %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	if ok != 1 || empty != n-1 {
		t.Errorf("successes = %d, no-stock = %d; want 1 and %d", ok, empty, n-1)
	}
	got, _ := f.ledger.Get(ctx, lot.ID)
	if got.Quantity != 0 || got.ClosedAt == nil {
		t.Errorf("lot after race: quantity %d closed %v", got.Quantity, got.ClosedAt)
	}
}

func TestConcurrentInboundCountsEveryScan(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, _, err := f.ledger.RegisterInbound(ctx, in(fmt.Sprintf("IN-%d", i), 1)); err != nil {
				t.Errorf("inbound %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	var lots []models.StockLot
	f.db.Find(&lots)
	if len(lots) != 1 || lots[0].Quantity != n {
		t.Errorf("lots = %+v, want one lot with %d", lots, n)
	}
}

func TestScanInputValidation(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	bad := []ScanInput{
		{Code: "", Table: 1, Variety: "Freedom", Size: "50"},
		{Code: "QR", Table: 0, Variety: "Freedom", Size: "50"},
		{Code: "QR", Table: 1, Variety: " ", Size: "50"},
		{Code: "QR", Table: 1, Variety: "Freedom", Size: ""},
	}
	for _, b := range bad {
		if _, _, err := f.ledger.RegisterInbound(ctx, b); !apperr.Is(err, apperr.KindInvalidInput) {
			t.Errorf("inbound %+v = %v, want InvalidInput", b, err)
		}
		if _, err := f.ledger.RegisterOutbound(ctx, b); !apperr.Is(err, apperr.KindInvalidInput) {
			t.Errorf("outbound %+v = %v, want InvalidInput", b, err)
		}
	}
}

func TestNotificationCarriesLotRepresentation(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	lot, _, _ := f.ledger.RegisterInbound(ctx, in("QR-1", 6))
	events := f.sink.OnChannel(notify.ChannelStock)
	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}
	if events[0].Type != notify.EventStockChanged {
		t.Errorf("type = %s", events[0].Type)
	}
	data, ok := events[0].Data.(LotResponse)
	if !ok {
		t.Fatalf("data = %T, want LotResponse", events[0].Data)
	}
	if data.ID != lot.ID || data.TableNumber != 6 || data.Quantity != 1 {
		t.Errorf("data = %+v", data)
	}
}

func TestNotifierFailureDoesNotFailScan(t *testing.T) {
	f := newFixture(t, true)
	f.sink.Err = fmt.Errorf("broker down")

	lot, _, err := f.ledger.RegisterInbound(context.Background(), in("QR-1", 1))
	if err != nil {
		t.Fatalf("inbound with failing notifier: %v", err)
	}
	if lot.Quantity != 1 {
		t.Errorf("quantity = %d, want 1", lot.Quantity)
	}
}
