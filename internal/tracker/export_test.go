package tracker_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"github.com/jersjar7/Fit14-sub001/internal/tracker"
)

func TestService_ExportPlan(t *testing.T) {
	f := newFixture(t)
	ctx := deviceContext(t, "device-a")

	p := f.generate(ctx, t)
	p, err := f.svc.AcceptPlan(ctx, p.ID)
	if err != nil {
		t.Fatalf("AcceptPlan: %v", err)
	}
	for _, e := range p.Days[0].Exercises {
		if p, err = f.svc.ToggleExercise(ctx, p.ID, 1, e.ID); err != nil {
			t.Fatalf("ToggleExercise: %v", err)
		}
	}

	export, err := f.svc.ExportPlan(ctx, p.ID)
	if err != nil {
		t.Fatalf("ExportPlan: %v", err)
	}
	if export.Title != "Spring Kickoff" {
		t.Errorf("Title = %q, want %q", export.Title, "Spring Kickoff")
	}
	for _, want := range []string{
		"# Spring Kickoff\n",
		"## Day 1: Mon, Jun 1 (Focus 1)\n",
		"- [x] Push-ups: 3 x 10 reps\n  Keep your core tight.\n",
		"- [ ] Jog: 1 x 20 minutes\n",
		"**Status:** active. 1 of 14 days completed (7%).",
	} {
		if !strings.Contains(export.Markdown, want) {
			t.Errorf("markdown does not contain %q:\n%s", want, export.Markdown)
		}
	}
	if strings.Contains(export.Markdown, "\u2014") {
		t.Error("markdown contains an em dash")
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(export.HTML))
	if err != nil {
		t.Fatalf("parse export HTML: %v", err)
	}
	if got := doc.Find("title").Text(); got != "Spring Kickoff" {
		t.Errorf("document title = %q, want %q", got, "Spring Kickoff")
	}
	if got := doc.Find("main h1").Text(); got != "Spring Kickoff" {
		t.Errorf("heading = %q, want %q", got, "Spring Kickoff")
	}
	if got := doc.Find("main h2").Length(); got != 14 {
		t.Errorf("day headings = %d, want 14", got)
	}
	if got := doc.Find(`li input[type="checkbox"]`).Length(); got != 28 {
		t.Errorf("checkboxes = %d, want 28", got)
	}
	if got := doc.Find(`li input[type="checkbox"][checked]`).Length(); got != 2 {
		t.Errorf("checked checkboxes = %d, want 2", got)
	}
	if got := strings.TrimSpace(doc.Find("li").First().Text()); !strings.HasPrefix(got, "Push-ups: 3 x 10 reps") {
		t.Errorf("first exercise = %q", got)
	}
}

func TestRenderPlan_EscapesMarkup(t *testing.T) {
	f := newFixture(t)
	ctx := deviceContext(t, "device-a")
	p := f.generate(ctx, t)

	p.PlanTitle = "<script>alert(1)</script> *Bold*"
	p.Days[0].Exercises[0].Name = "[Burpees](javascript:alert(1))"
	export, err := tracker.RenderPlan(p, f.clock.now)
	if err != nil {
		t.Fatalf("RenderPlan: %v", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(export.HTML))
	if err != nil {
		t.Fatalf("parse export HTML: %v", err)
	}
	if doc.Find("main script").Length() != 0 || doc.Find("main a").Length() != 0 || doc.Find("main em").Length() != 0 {
		t.Errorf("user text was interpreted as markup:\n%s", export.HTML)
	}
	if got := doc.Find("main h1").Text(); got != "<script>alert(1)</script> *Bold*" {
		t.Errorf("heading = %q", got)
	}
}

func TestService_ExportPlanNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := deviceContext(t, "device-a")

	if _, err := f.svc.ExportPlan(ctx, uuid.New()); !errors.Is(err, tracker.ErrNotFound) {
		t.Errorf("ExportPlan() error = %v, want %v", err, tracker.ErrNotFound)
	}
}
