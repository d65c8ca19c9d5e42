package designstore

import (
	"context"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/dukes-snr/EazyUi-sub001/dbopen"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	return &Store{DB: dbopen.OpenMemory(t, dbopen.WithSchema(Schema))}
}

func TestUpdateScreen_CreatesThenUpdates(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	err := s.UpdateScreen(ctx, "scr_1", "<body>v1</body>", WithName("Login"), WithSize(390, 844))
	if err != nil {
		t.Fatal(err)
	}

	scr, err := s.GetScreen(ctx, "scr_1")
	if err != nil {
		t.Fatal(err)
	}
	if scr == nil {
		t.Fatal("screen not created")
	}
	if scr.Name != "Login" || scr.HTML != "<body>v1</body>" || scr.Status != "draft" {
		t.Fatalf("screen = %+v", scr)
	}
	if scr.Width != 390 || scr.Height != 844 {
		t.Fatalf("size = %dx%d", scr.Width, scr.Height)
	}
	if scr.CreatedAt == 0 || scr.UpdatedAt == 0 {
		t.Fatal("timestamps not set")
	}

	// Second write keeps metadata no option names.
	if err := s.UpdateScreen(ctx, "scr_1", "<body>v2</body>", WithStatus("review")); err != nil {
		t.Fatal(err)
	}
	scr, _ = s.GetScreen(ctx, "scr_1")
	if scr.HTML != "<body>v2</body>" || scr.Status != "review" || scr.Name != "Login" {
		t.Fatalf("after update: %+v", scr)
	}
	if scr.Width != 390 {
		t.Fatal("size lost on update")
	}
}

func TestUpdateScreen_EmptyID(t *testing.T) {
	s := openTest(t)
	if err := s.UpdateScreen(context.Background(), "", "<body></body>"); err == nil {
		t.Fatal("empty id accepted")
	}
	if err := s.UpdateScreen(context.Background(), "../escape", "<body></body>"); err == nil {
		t.Fatal("traversal id accepted")
	}
}

func TestGetScreen_Missing(t *testing.T) {
	s := openTest(t)
	scr, err := s.GetScreen(context.Background(), "nope")
	if err != nil {
		t.Fatal(err)
	}
	if scr != nil {
		t.Fatalf("missing screen = %+v", scr)
	}
}

func TestRemoveScreen(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	s.UpdateScreen(ctx, "scr_1", "<body></body>")
	if err := s.RemoveScreen(ctx, "scr_1"); err != nil {
		t.Fatal(err)
	}
	if scr, _ := s.GetScreen(ctx, "scr_1"); scr != nil {
		t.Fatal("screen survived removal")
	}

	// Idempotent.
	if err := s.RemoveScreen(ctx, "scr_1"); err != nil {
		t.Fatal(err)
	}
}

func TestListScreens(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	s.UpdateScreen(ctx, "scr_a", "<body>a</body>")
	s.UpdateScreen(ctx, "scr_b", "<body>b</body>", WithStatus("final"))
	s.UpdateScreen(ctx, "scr_c", "<body>c</body>")

	all, err := s.ListScreens(ctx, "", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("len = %d", len(all))
	}

	finals, err := s.ListScreens(ctx, "final", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(finals) != 1 || finals[0].ID != "scr_b" {
		t.Fatalf("finals = %+v", finals)
	}

	limited, err := s.ListScreens(ctx, "", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 2 {
		t.Fatalf("limit ignored: %d", len(limited))
	}
}
