package report_test

import (
	"context"
	"testing"
	"time"

	"shopfloor/internal/config"
	"shopfloor/internal/db"
	"shopfloor/internal/engine"
	"shopfloor/internal/migrate"
	"shopfloor/internal/report"
)

func TestClippedMinutes(t *testing.T) {
	w := report.Window{
		Start: time.Date(2024, 3, 4, 6, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 3, 4, 14, 0, 0, 0, time.UTC),
	}
	now := time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC)
	at := func(h, m int) time.Time { return time.Date(2024, 3, 4, h, m, 0, 0, time.UTC) }
	ptr := func(t time.Time) *time.Time { return &t }

	cases := []struct {
		name  string
		start time.Time
		end   *time.Time
		want  float64
	}{
		{"fully inside", at(8, 0), ptr(at(8, 30)), 30},
		{"straddles window start", at(5, 30), ptr(at(6, 45)), 45},
		{"straddles window end", at(13, 30), ptr(at(15, 0)), 30},
		{"spans whole window", at(4, 0), ptr(at(16, 0)), 480},
		{"before window", at(4, 0), ptr(at(5, 0)), 0},
		{"after window", at(15, 0), ptr(at(16, 0)), 0},
		{"open event capped at now", at(11, 0), nil, 60},
		{"open event started before window", at(5, 0), nil, 360},
		{"zero length", at(8, 0), ptr(at(8, 0)), 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := report.ClippedMinutes(tc.start, tc.end, w, now)
			if got != tc.want {
				t.Fatalf("ClippedMinutes = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestClippedMinutesWindowAdditivity(t *testing.T) {
	a := time.Date(2024, 3, 4, 6, 0, 0, 0, time.UTC)
	c := time.Date(2024, 3, 4, 14, 0, 0, 0, time.UTC)
	now := time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC)
	eventStart := time.Date(2024, 3, 4, 7, 30, 0, 0, time.UTC)
	eventEnd := time.Date(2024, 3, 4, 10, 15, 0, 0, time.UTC)

	events := []struct {
		name  string
		start time.Time
		end   *time.Time
	}{
		{"closed", eventStart, &eventEnd},
		{"open", eventStart, nil},
	}
	splits := []time.Time{
		a,
		time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 4, 10, 15, 0, 0, time.UTC),
		time.Date(2024, 3, 4, 13, 0, 0, 0, time.UTC),
		c,
	}
	for _, ev := range events {
		t.Run(ev.name, func(t *testing.T) {
			whole := report.ClippedMinutes(ev.start, ev.end, report.Window{Start: a, End: c}, now)
			for _, b := range splits {
				left := report.ClippedMinutes(ev.start, ev.end, report.Window{Start: a, End: b}, now)
				right := report.ClippedMinutes(ev.start, ev.end, report.Window{Start: b, End: c}, now)
				if left+right != whole {
					t.Fatalf("split at %v: %v + %v != %v", b, left, right, whole)
				}
			}
		})
	}
}

func TestClippedMinutesOpenEventCappedAtWindowEnd(t *testing.T) {
	w := report.Window{
		Start: time.Date(2024, 3, 4, 6, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 3, 4, 14, 0, 0, 0, time.UTC),
	}
	// Now is past the window end; an open event contributes only up to it.
	now := time.Date(2024, 3, 4, 18, 0, 0, 0, time.UTC)
	start := time.Date(2024, 3, 4, 13, 0, 0, 0, time.UTC)
	if got := report.ClippedMinutes(start, nil, w, now); got != 60 {
		t.Fatalf("ClippedMinutes = %v, want 60", got)
	}
}

func TestComputeWindowAdditivityAcrossMidnight(t *testing.T) {
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatal(err)
	}

	clock := time.Date(2024, 3, 5, 8, 0, 0, 0, time.UTC)
	eng := engine.New(conn, config.Default())
	eng.Now = func() time.Time { return clock }
	ctx := context.Background()

	line, err := eng.CreateLine(ctx, "Line_A", "", "tester")
	if err != nil {
		t.Fatal(err)
	}
	machine, err := eng.CreateMachine(ctx, line.ID, "Conveyor_1", "", "tester")
	if err != nil {
		t.Fatal(err)
	}
	reason, err := eng.CreateReason(ctx, "downtime", "JAM", "Machine jam", "Equipment", "tester")
	if err != nil {
		t.Fatal(err)
	}
	qreason, err := eng.CreateReason(ctx, "quality", "DIM", "Dimension out of spec", "Process", "tester")
	if err != nil {
		t.Fatal(err)
	}

	// A stoppage straddling midnight, facts on both sides, an incident on
	// the first day.
	d, err := eng.StartDowntime(ctx, engine.StartDowntimeOptions{
		MachineID: machine.ID, ReasonID: reason.ID,
		StartTime: "2024-03-04T23:40:00Z", ActorID: "tester",
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := eng.CloseDowntime(ctx, d.ID, "2024-03-05T00:20:00Z", "tester"); err != nil {
		t.Fatal(err)
	}
	if _, err := eng.LogProductionCount(ctx, engine.ProductionCountOptions{
		MachineID: machine.ID, GoodQuantity: 30, ScrapQuantity: 5,
		Timestamp: "2024-03-04T23:50:00Z", ActorID: "tester",
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := eng.LogQualityEvent(ctx, engine.QualityEventOptions{
		MachineID: machine.ID, ReasonID: qreason.ID, Quantity: 4,
		Timestamp: "2024-03-05T00:30:00Z", ActorID: "tester",
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := eng.LogSafetyIncident(ctx, line.ID, "2024-03-04", "near miss", "tester"); err != nil {
		t.Fatal(err)
	}

	a := time.Date(2024, 3, 4, 22, 0, 0, 0, time.UTC)
	b := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	c := time.Date(2024, 3, 5, 6, 0, 0, 0, time.UTC)
	agg := report.Aggregator{Repo: eng.Repo, Now: eng.Now}

	whole, err := agg.Compute(ctx, report.Window{Start: a, End: c})
	if err != nil {
		t.Fatal(err)
	}
	left, err := agg.Compute(ctx, report.Window{Start: a, End: b})
	if err != nil {
		t.Fatal(err)
	}
	right, err := agg.Compute(ctx, report.Window{Start: b, End: c})
	if err != nil {
		t.Fatal(err)
	}

	lw, ll, lr := whole.LineFor(line.ID), left.LineFor(line.ID), right.LineFor(line.ID)
	if ll.DowntimeMinutes != 20 || lr.DowntimeMinutes != 20 {
		t.Fatalf("split downtime = %v/%v, want 20/20", ll.DowntimeMinutes, lr.DowntimeMinutes)
	}
	if ll.DowntimeMinutes+lr.DowntimeMinutes != lw.DowntimeMinutes {
		t.Fatalf("downtime not additive: %v + %v != %v", ll.DowntimeMinutes, lr.DowntimeMinutes, lw.DowntimeMinutes)
	}
	if ll.GoodQuantity+lr.GoodQuantity != lw.GoodQuantity {
		t.Fatalf("good not additive")
	}
	if ll.ScrapQuantity+lr.ScrapQuantity != lw.ScrapQuantity {
		t.Fatalf("scrap not additive")
	}
	if ll.DefectQuantity+lr.DefectQuantity != lw.DefectQuantity {
		t.Fatalf("defects not additive")
	}
	if ll.SafetyIncidents+lr.SafetyIncidents != lw.SafetyIncidents {
		t.Fatalf("incidents not additive: %d + %d != %d", ll.SafetyIncidents, lr.SafetyIncidents, lw.SafetyIncidents)
	}
}

func TestComputeAndScorecardEndToEnd(t *testing.T) {
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatal(err)
	}

	clock := time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC)
	eng := engine.New(conn, config.Default())
	eng.Now = func() time.Time { return clock }
	ctx := context.Background()

	line, err := eng.CreateLine(ctx, "Line_A", "", "tester")
	if err != nil {
		t.Fatal(err)
	}
	machine, err := eng.CreateMachine(ctx, line.ID, "Conveyor_1", "", "tester")
	if err != nil {
		t.Fatal(err)
	}
	reason, err := eng.CreateReason(ctx, "downtime", "JAM", "Machine jam", "Equipment", "tester")
	if err != nil {
		t.Fatal(err)
	}
	qreason, err := eng.CreateReason(ctx, "quality", "DIM", "Dimension out of spec", "Process", "tester")
	if err != nil {
		t.Fatal(err)
	}

	// 40 closed downtime minutes plus an open event still running at the
	// report instant.
	d, err := eng.StartDowntime(ctx, engine.StartDowntimeOptions{
		MachineID: machine.ID, ReasonID: reason.ID, ActorID: "tester",
	})
	if err != nil {
		t.Fatal(err)
	}
	clock = clock.Add(40 * time.Minute)
	if _, err := eng.CloseDowntime(ctx, d.ID, "", "tester"); err != nil {
		t.Fatal(err)
	}
	if _, err := eng.StartDowntime(ctx, engine.StartDowntimeOptions{
		MachineID: machine.ID, ReasonID: reason.ID, ActorID: "tester",
	}); err != nil {
		t.Fatal(err)
	}
	clock = clock.Add(20 * time.Minute)

	if _, err := eng.LogProductionCount(ctx, engine.ProductionCountOptions{
		MachineID: machine.ID, GoodQuantity: 90, ScrapQuantity: 10, ActorID: "tester",
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := eng.LogQualityEvent(ctx, engine.QualityEventOptions{
		MachineID: machine.ID, ReasonID: qreason.ID, Quantity: 20, ActorID: "tester",
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := eng.LogSafetyIncident(ctx, line.ID, "2024-03-04", "pinch point", "tester"); err != nil {
		t.Fatal(err)
	}

	w := report.Day(clock)
	r := report.Reporter{Repo: eng.Repo, Config: eng.Config, Now: eng.Now}
	m, err := r.Metrics(ctx, w)
	if err != nil {
		t.Fatal(err)
	}
	lm := m.LineFor(line.ID)
	if lm.DowntimeMinutes != 60 {
		t.Fatalf("downtime minutes = %v, want 60", lm.DowntimeMinutes)
	}
	if lm.DowntimeEvents != 2 {
		t.Fatalf("downtime events = %d, want 2", lm.DowntimeEvents)
	}
	if lm.GoodQuantity != 90 || lm.ScrapQuantity != 10 {
		t.Fatalf("quantities = %d/%d", lm.GoodQuantity, lm.ScrapQuantity)
	}
	if lm.DefectQuantity != 20 {
		t.Fatalf("defect quantity = %d, want 20", lm.DefectQuantity)
	}
	if lm.SafetyIncidents != 1 {
		t.Fatalf("safety incidents = %d, want 1", lm.SafetyIncidents)
	}

	sc, err := r.Scorecard(ctx, w, line.ID)
	if err != nil {
		t.Fatal(err)
	}
	if want := float64(90) / 120 * 100; sc.Quality.Value != want {
		t.Fatalf("fpy = %v, want %v", sc.Quality.Value, want)
	}
	if sc.Safety.OnTarget {
		t.Fatalf("safety should miss with one incident against a zero target")
	}
	if sc.Cost.OnTarget {
		t.Fatalf("cost should miss: 60 minutes against a 30 minute daily target")
	}
	if sc.Quality.OnTarget {
		t.Fatalf("quality should miss: 75 FPY against 95")
	}

	// A second line with no activity still gets a card.
	if _, err := eng.CreateLine(ctx, "Line_B", "", "tester"); err != nil {
		t.Fatal(err)
	}
	cards, err := r.Scorecards(ctx, w)
	if err != nil {
		t.Fatal(err)
	}
	if len(cards) != 2 {
		t.Fatalf("cards = %d, want 2", len(cards))
	}
	rows, err := r.Matrix(ctx, w)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 || len(rows[0].Cells) != 4 {
		t.Fatalf("matrix rows = %+v", rows)
	}
}
