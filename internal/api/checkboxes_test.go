package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/starford/cellcheck/internal/models"
	"github.com/starford/cellcheck/internal/noteservice"
	"github.com/starford/cellcheck/internal/testutil"
)

const choresNote = "# Chores\n\n| task | owner |\n| --- | --- |\n| - [ ] dishes | sam |\n| - [x] laundry | kim |\n"

func intPtr(v int) *int    { return &v }
func boolPtr(v bool) *bool { return &v }

func TestOpenNote_AssignsIdentities(t *testing.T) {
	_, router, vaultDir := testEnvWithVault(t, false, "", nil)
	testutil.WriteNote(t, vaultDir, "chores.md", choresNote)

	w := do(t, router, http.MethodPost, "/open/chores.md", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("open = %d, body = %s", w.Code, w.Body.String())
	}
	note := decode[NoteDetail](t, w)
	if len(note.Checkboxes) != 2 {
		t.Fatalf("checkboxes = %+v", note.Checkboxes)
	}
	if note.Checkboxes[0].ID != 0 || note.Checkboxes[1].ID != 1 {
		t.Errorf("ids = %d, %d", note.Checkboxes[0].ID, note.Checkboxes[1].ID)
	}

	got := testutil.ReadNote(t, vaultDir, "chores.md")
	if !strings.Contains(got, "| - [ ]{0} dishes |") || !strings.Contains(got, "| - [x]{1} laundry |") {
		t.Errorf("file not repaired:\n%s", got)
	}
}

func TestOpenNote_NotFound(t *testing.T) {
	_, router := testEnv(t, "")
	if w := do(t, router, http.MethodPost, "/open/missing.md", nil); w.Code != http.StatusNotFound {
		t.Errorf("open missing = %d, want 404", w.Code)
	}
}

func TestNoteCheckboxes(t *testing.T) {
	_, router, vaultDir := testEnvWithVault(t, false, "", nil)
	testutil.WriteNote(t, vaultDir, "chores.md", choresNote)

	list := decode[noteservice.CheckboxList](t, do(t, router, http.MethodGet, "/checkboxes/chores.md", nil))
	if list.Unnumbered != 2 || list.Stats.Total != 0 {
		t.Errorf("before open: unnumbered = %d, total = %d", list.Unnumbered, list.Stats.Total)
	}

	_ = do(t, router, http.MethodPost, "/open/chores.md", nil)

	list = decode[noteservice.CheckboxList](t, do(t, router, http.MethodGet, "/checkboxes/chores.md", nil))
	if list.Unnumbered != 0 {
		t.Errorf("unnumbered = %d, want 0", list.Unnumbered)
	}
	if list.Stats.Total != 2 || list.Stats.Checked != 1 || list.Stats.Progress != 50 {
		t.Errorf("stats = %+v", list.Stats)
	}
}

func TestToggleCheckbox(t *testing.T) {
	_, router, vaultDir := testEnvWithVault(t, false, "", nil)
	testutil.WriteNote(t, vaultDir, "chores.md", choresNote)
	_ = do(t, router, http.MethodPost, "/open/chores.md", nil)

	w := do(t, router, http.MethodPost, "/checkboxes/chores.md", ToggleRequest{ID: intPtr(0), Checked: boolPtr(true)})
	if w.Code != http.StatusOK {
		t.Fatalf("toggle = %d, body = %s", w.Code, w.Body.String())
	}
	box := decode[models.Checkbox](t, w)
	if box.ID != 0 || !box.Checked || box.Label != "dishes" {
		t.Errorf("box = %+v", box)
	}
	if got := testutil.ReadNote(t, vaultDir, "chores.md"); !strings.Contains(got, "| - [x]{0} dishes |") {
		t.Errorf("file not toggled:\n%s", got)
	}

	// The index follows the write.
	resp := decode[CheckboxListResponse](t, do(t, router, http.MethodGet, "/checkboxes?checked=false", nil))
	if len(resp.Checkboxes) != 0 {
		t.Errorf("unchecked = %+v, want none", resp.Checkboxes)
	}
	resp = decode[CheckboxListResponse](t, do(t, router, http.MethodGet, "/checkboxes?checked=true&path=chores.md", nil))
	if len(resp.Checkboxes) != 2 {
		t.Errorf("checked = %+v, want 2", resp.Checkboxes)
	}
}

func TestToggleCheckbox_Stale(t *testing.T) {
	_, router, vaultDir := testEnvWithVault(t, false, "", nil)
	testutil.WriteNote(t, vaultDir, "chores.md", choresNote)
	_ = do(t, router, http.MethodPost, "/open/chores.md", nil)

	w := do(t, router, http.MethodPost, "/checkboxes/chores.md", ToggleRequest{ID: intPtr(7), Checked: boolPtr(true)})
	if w.Code != http.StatusConflict {
		t.Errorf("stale toggle = %d, want 409", w.Code)
	}
}

func TestToggleCheckbox_MissingFields(t *testing.T) {
	_, router, vaultDir := testEnvWithVault(t, false, "", nil)
	testutil.WriteNote(t, vaultDir, "chores.md", choresNote)

	if w := do(t, router, http.MethodPost, "/checkboxes/chores.md", ToggleRequest{ID: intPtr(0)}); w.Code != http.StatusBadRequest {
		t.Errorf("missing checked = %d, want 400", w.Code)
	}
}

func TestListCheckboxes_BadFilter(t *testing.T) {
	_, router := testEnv(t, "")
	if w := do(t, router, http.MethodGet, "/checkboxes?checked=maybe", nil); w.Code != http.StatusBadRequest {
		t.Errorf("bad filter = %d, want 400", w.Code)
	}
}

func TestListCheckboxes_LabelText(t *testing.T) {
	const numberedChores = "| task | owner |\n| --- | --- |\n| - [ ]{0} dishes | sam |\n| - [x]{1} laundry | kim |\n"
	_, router := testEnv(t, "")
	if w := do(t, router, http.MethodPost, "/notes", CreateNoteRequest{Path: "chores.md", Content: numberedChores}); w.Code != http.StatusCreated {
		t.Fatalf("create = %d: %s", w.Code, w.Body.String())
	}

	w := do(t, router, http.MethodGet, "/checkboxes?q=laund", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	resp := decode[CheckboxListResponse](t, w)
	if len(resp.Checkboxes) != 1 || resp.Checkboxes[0].Label != "laundry" || !resp.Checkboxes[0].Checked {
		t.Errorf("checkboxes = %+v, want laundry", resp.Checkboxes)
	}

	w = do(t, router, http.MethodGet, "/checkboxes?q=laund&checked=false", nil)
	if resp := decode[CheckboxListResponse](t, w); len(resp.Checkboxes) != 0 {
		t.Errorf("checked=false = %+v, want none", resp.Checkboxes)
	}
}

func TestEnumerateNote_DryRun(t *testing.T) {
	_, router, vaultDir := testEnvWithVault(t, false, "", nil)
	testutil.WriteNote(t, vaultDir, "chores.md", choresNote)

	w := do(t, router, http.MethodPost, "/enumerate/chores.md?dry_run=true", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("enumerate = %d", w.Code)
	}
	res := decode[noteservice.EnumerateResult](t, w)
	if res.Edits != 2 || !res.Changed {
		t.Errorf("result = %+v", res)
	}
	if got := testutil.ReadNote(t, vaultDir, "chores.md"); got != choresNote {
		t.Errorf("dry run wrote the file:\n%s", got)
	}

	res = decode[noteservice.EnumerateResult](t, do(t, router, http.MethodPost, "/enumerate/chores.md", nil))
	if res.Edits != 2 {
		t.Errorf("edits = %d, want 2", res.Edits)
	}
	res = decode[noteservice.EnumerateResult](t, do(t, router, http.MethodPost, "/enumerate/chores.md", nil))
	if res.Edits != 0 || res.Changed {
		t.Errorf("second pass = %+v, want no edits", res)
	}
}

func TestRenderNote(t *testing.T) {
	_, router, vaultDir := testEnvWithVault(t, false, "", nil)
	testutil.WriteNote(t, vaultDir, "chores.md", choresNote)
	_ = do(t, router, http.MethodPost, "/open/chores.md", nil)

	w := do(t, router, http.MethodGet, "/render/chores.md", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("render = %d", w.Code)
	}
	out := decode[RenderResponse](t, w)
	if len(out.Checkboxes) != 2 || out.Checkboxes[1].Label != "laundry" || !out.Checkboxes[1].Checked {
		t.Errorf("checkboxes = %+v", out.Checkboxes)
	}
	if strings.Count(out.HTML, `type="checkbox"`) != 2 {
		t.Errorf("html = %s", out.HTML)
	}

	req := httptest.NewRequest(http.MethodGet, "/render/chores.md", nil)
	req.Header.Set("Accept", "text/html")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("content type = %q", ct)
	}
	if !strings.Contains(rec.Body.String(), `data-cp-id="1"`) {
		t.Errorf("fragment = %s", rec.Body.String())
	}
}
