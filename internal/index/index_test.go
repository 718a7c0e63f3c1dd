package index

import (
	"os"
	"testing"
	"time"

	"github.com/starford/cellcheck/internal/models"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "cellcheck-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func boolPtr(b bool) *bool { return &b }

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM notes`).Scan(&count); err != nil {
		t.Fatalf("notes table missing: %v", err)
	}
	if err := db.conn.QueryRow(`SELECT count(*) FROM checkboxes`).Scan(&count); err != nil {
		t.Fatalf("checkboxes table missing: %v", err)
	}
}

func TestUpsertAndGetChecksum(t *testing.T) {
	db := testDB(t)
	row := NoteRow{
		Path:      "hello.md",
		Title:     "Hello World",
		Checksum:  "abc123",
		Tags:      []string{"go", "test"},
		UpdatedAt: time.Now(),
	}
	if err := db.UpsertNote(row, "This is a hello world note.", nil); err != nil {
		t.Fatalf("UpsertNote: %v", err)
	}
	cs, err := db.GetChecksum("hello.md")
	if err != nil {
		t.Fatalf("GetChecksum: %v", err)
	}
	if cs != "abc123" {
		t.Errorf("checksum = %q, want %q", cs, "abc123")
	}
}

func TestCheckboxes_Query(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertNote(NoteRow{Path: "a.md", Checksum: "1", Tags: []string{}, UpdatedAt: time.Now()}, "body", []models.Checkbox{
		{Path: "a.md", ID: 0, Checked: true, Label: "one"},
		{Path: "a.md", ID: 1, Checked: false, Label: "two"},
	})
	_ = db.UpsertNote(NoteRow{Path: "b.md", Checksum: "2", Tags: []string{}, UpdatedAt: time.Now()}, "body", []models.Checkbox{
		{Path: "b.md", ID: 0, Checked: false, Label: "three"},
	})

	all, err := db.Checkboxes(CheckboxQuery{})
	if err != nil {
		t.Fatalf("Checkboxes: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 checkboxes, got %d", len(all))
	}

	open, _ := db.Checkboxes(CheckboxQuery{Checked: boolPtr(false)})
	if len(open) != 2 || open[0].Label != "two" || open[1].Label != "three" {
		t.Errorf("unchecked = %+v", open)
	}

	inA, _ := db.Checkboxes(CheckboxQuery{Path: "a.md", Checked: boolPtr(true)})
	if len(inA) != 1 || inA[0].ID != 0 {
		t.Errorf("a.md checked = %+v", inA)
	}

	limited, _ := db.Checkboxes(CheckboxQuery{Limit: 1})
	if len(limited) != 1 {
		t.Errorf("limit 1 returned %d", len(limited))
	}
}

func TestCheckboxes_TextFilter(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertNote(NoteRow{Path: "chores.md", Checksum: "1", Tags: []string{}, UpdatedAt: time.Now()}, "body", []models.Checkbox{
		{Path: "chores.md", ID: 0, Checked: false, Label: "wash dishes"},
		{Path: "chores.md", ID: 1, Checked: true, Label: "laundry"},
	})
	_ = db.UpsertNote(NoteRow{Path: "work.md", Checksum: "2", Tags: []string{}, UpdatedAt: time.Now()}, "body", []models.Checkbox{
		{Path: "work.md", ID: 0, Checked: true, Label: "dishwasher repair"},
	})

	tests := []struct {
		name  string
		query CheckboxQuery
		want  []string
	}{
		{"prefix across notes", CheckboxQuery{Text: "dish"}, []string{"wash dishes", "dishwasher repair"}},
		{"combined with state", CheckboxQuery{Text: "dish", Checked: boolPtr(false)}, []string{"wash dishes"}},
		{"combined with path", CheckboxQuery{Text: "dish", Path: "work.md"}, []string{"dishwasher repair"}},
		{"case insensitive", CheckboxQuery{Text: "LAUNDRY"}, []string{"laundry"}},
		{"blank matches all", CheckboxQuery{Text: "  "}, []string{"wash dishes", "laundry", "dishwasher repair"}},
		{"no match", CheckboxQuery{Text: "garden"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := db.Checkboxes(tt.query)
			if err != nil {
				t.Fatalf("Checkboxes: %v", err)
			}
			var labels []string
			for _, b := range got {
				labels = append(labels, b.Label)
			}
			if len(labels) != len(tt.want) {
				t.Fatalf("labels = %v, want %v", labels, tt.want)
			}
			for i := range labels {
				if labels[i] != tt.want[i] {
					t.Errorf("labels = %v, want %v", labels, tt.want)
					break
				}
			}
		})
	}
}

func TestCheckboxes_TextFilterForgetsDeletedNote(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertNote(NoteRow{Path: "gone.md", Checksum: "1", Tags: []string{}, UpdatedAt: time.Now()}, "body", []models.Checkbox{
		{Path: "gone.md", ID: 0, Label: "renew passport"},
	})
	if err := db.DeleteNote("gone.md"); err != nil {
		t.Fatalf("DeleteNote: %v", err)
	}
	got, err := db.Checkboxes(CheckboxQuery{Text: "passport"})
	if err != nil {
		t.Fatalf("Checkboxes: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("deleted note still matches: %+v", got)
	}
}

func TestCheckboxes_DuplicateIdentityKeepsFirst(t *testing.T) {
	db := testDB(t)
	err := db.UpsertNote(NoteRow{Path: "dup.md", Checksum: "1", Tags: []string{}, UpdatedAt: time.Now()}, "body", []models.Checkbox{
		{Path: "dup.md", ID: 4, Checked: true, Label: "first"},
		{Path: "dup.md", ID: 4, Checked: false, Label: "second"},
	})
	if err != nil {
		t.Fatalf("UpsertNote: %v", err)
	}
	got, _ := db.Checkboxes(CheckboxQuery{Path: "dup.md"})
	if len(got) != 1 || got[0].Label != "first" || !got[0].Checked {
		t.Errorf("checkboxes = %+v, want only first", got)
	}
}

func TestDeleteNote(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertNote(NoteRow{Path: "del.md", Checksum: "x", Tags: []string{}, UpdatedAt: time.Now()}, "body", []models.Checkbox{
		{Path: "del.md", ID: 0, Label: "gone"},
	})

	if err := db.DeleteNote("del.md"); err != nil {
		t.Fatalf("DeleteNote: %v", err)
	}
	cs, _ := db.GetChecksum("del.md")
	if cs != "" {
		t.Errorf("deleted note still has checksum %q", cs)
	}
	boxes, _ := db.Checkboxes(CheckboxQuery{Path: "del.md"})
	if len(boxes) != 0 {
		t.Errorf("expected 0 checkboxes after delete, got %d", len(boxes))
	}
}

func TestUpsertUpdatesExisting(t *testing.T) {
	db := testDB(t)
	now := time.Now()
	_ = db.UpsertNote(NoteRow{Path: "up.md", Title: "Old", Checksum: "1", Tags: []string{}, UpdatedAt: now}, "old body", []models.Checkbox{
		{Path: "up.md", ID: 0, Label: "old"},
		{Path: "up.md", ID: 1, Label: "removed"},
	})
	_ = db.UpsertNote(NoteRow{Path: "up.md", Title: "New", Checksum: "2", Tags: []string{"new"}, UpdatedAt: now}, "new body", []models.Checkbox{
		{Path: "up.md", ID: 0, Checked: true, Label: "new"},
	})

	cs, _ := db.GetChecksum("up.md")
	if cs != "2" {
		t.Errorf("checksum = %q, want %q", cs, "2")
	}
	boxes, _ := db.Checkboxes(CheckboxQuery{Path: "up.md"})
	if len(boxes) != 1 || boxes[0].Label != "new" || !boxes[0].Checked {
		t.Errorf("checkboxes after upsert = %+v", boxes)
	}
}

func TestGetChecksum_NotFound(t *testing.T) {
	db := testDB(t)
	cs, err := db.GetChecksum("nonexistent.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cs != "" {
		t.Errorf("expected empty checksum, got %q", cs)
	}
}

func TestListNotes_TagAndSort(t *testing.T) {
	db := testDB(t)
	now := time.Now()
	_ = db.UpsertNote(NoteRow{Path: "b.md", Title: "Beta", Checksum: "1", Tags: []string{"chores"}, UpdatedAt: now}, "", nil)
	_ = db.UpsertNote(NoteRow{Path: "a.md", Title: "Alpha", Checksum: "2", Tags: []string{"chores"}, UpdatedAt: now}, "", nil)
	_ = db.UpsertNote(NoteRow{Path: "c.md", Title: "Gamma", Checksum: "3", Tags: []string{}, UpdatedAt: now}, "", nil)

	rows, total, err := db.ListNotes(10, 0, "chores", "title")
	if err != nil {
		t.Fatalf("ListNotes: %v", err)
	}
	if total != 2 || len(rows) != 2 {
		t.Fatalf("total = %d, rows = %d, want 2/2", total, len(rows))
	}
	if rows[0].Title != "Alpha" || rows[1].Title != "Beta" {
		t.Errorf("order = %q, %q", rows[0].Title, rows[1].Title)
	}

	rows, total, _ = db.ListNotes(1, 1, "", "path")
	if total != 3 || len(rows) != 1 || rows[0].Path != "b.md" {
		t.Errorf("page = %+v (total %d)", rows, total)
	}
}

func TestAllChecksums(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertNote(NoteRow{Path: "x.md", Checksum: "cx", Tags: []string{}, UpdatedAt: time.Now()}, "", nil)
	_ = db.UpsertNote(NoteRow{Path: "y.md", Checksum: "cy", Tags: []string{}, UpdatedAt: time.Now()}, "", nil)

	got, err := db.AllChecksums()
	if err != nil {
		t.Fatalf("AllChecksums: %v", err)
	}
	if len(got) != 2 || got["x.md"] != "cx" || got["y.md"] != "cy" {
		t.Errorf("checksums = %v", got)
	}
}

func TestSearch_Basic(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertNote(NoteRow{Path: "s.md", Title: "Search Me", Checksum: "1", Tags: []string{}, UpdatedAt: time.Now()}, "uniqueword appears here", nil)

	results, err := db.Search("uniqueword", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Path != "s.md" {
		t.Errorf("search results = %+v, want 1 hit for s.md", results)
	}
}
