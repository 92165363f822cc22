package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"

	"github.com/alfredjeanlab/foundry/internal/model"
	"github.com/alfredjeanlab/foundry/internal/store"
)

// newMockDB creates a sqlmock database with automatic cleanup and expectation checking.
func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unfulfilled expectations: %v", err)
		}
		db.Close()
	})
	return db, mock
}

func mustResource(t *testing.T, name string) model.Resource {
	t.Helper()
	res, ok := model.Lookup(name)
	if !ok {
		t.Fatalf("resource %q not in catalog", name)
	}
	return res
}

var regroupColumns = []string{"id", "name", "description", "notes", "options"}

func TestSelectQuery_Plain(t *testing.T) {
	res := mustResource(t, "talents")
	got := listQuery(res)
	want := "SELECT p.*\nFROM talents p\nORDER BY p.id ASC"
	if got != want {
		t.Errorf("listQuery =\n%s\nwant\n%s", got, want)
	}
}

func TestSelectQuery_Joins(t *testing.T) {
	res := mustResource(t, "characters")
	got := getQuery(res)
	for _, frag := range []string{
		"SELECT p.*, ci.importance AS importance_label, cs.status AS status_label",
		"LEFT JOIN characterimportance ci ON p.characterimportance = ci.id",
		"LEFT JOIN characterstatus cs ON p.status = cs.id",
		"WHERE p.id = $1",
	} {
		if !strings.Contains(got, frag) {
			t.Errorf("getQuery missing %q:\n%s", frag, got)
		}
	}
}

func TestSelectQuery_Aggregated(t *testing.T) {
	res := mustResource(t, "ascensionPackages")
	got := listQuery(res)
	for _, frag := range []string{
		"COALESCE(k0.items, '[]'::json) AS effects",
		"COALESCE(k1.items, '[]'::json) AS keywords",
		"COALESCE(k2.items, '[]'::json) AS examples",
		"json_build_object('id', ch.id, 'effect_type', ch.effect_type, 'effect_description', ch.effect_description) ORDER BY ch.id",
		"FROM ascension_keywords ch WHERE ch.ascension_id = p.id\n) k1 ON true",
	} {
		if !strings.Contains(got, frag) {
			t.Errorf("listQuery missing %q:\n%s", frag, got)
		}
	}
	if strings.Count(got, "LEFT JOIN LATERAL") != 3 {
		t.Errorf("expected one lateral join per child kind:\n%s", got)
	}
	if !strings.HasSuffix(got, "ORDER BY p.id ASC") {
		t.Errorf("listQuery must order parents by id:\n%s", got)
	}
	if got := firstQuery(mustResource(t, "campaign")); !strings.HasSuffix(got, "ORDER BY p.id ASC LIMIT 1") {
		t.Errorf("firstQuery = %s", got)
	}
}

func TestQueryList_EmptyChildren(t *testing.T) {
	db, mock := newMockDB(t)
	res := mustResource(t, "regroupActions")
	mock.ExpectQuery("SELECT p\\.\\*, COALESCE\\(k0\\.items, '\\[\\]'::json\\) AS options").
		WillReturnRows(sqlmock.NewRows(regroupColumns).
			AddRow(int64(1), "Hold", "Stand fast", nil, []byte(`[]`)).
			AddRow(int64(2), "Rally", nil, nil, nil))

	recs, err := queryList(context.Background(), db, res)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	for _, r := range recs {
		opts := r.Get("options")
		if opts.Kind() != model.KindList || len(opts.Items()) != 0 {
			t.Errorf("record %s: options = %s, want empty list", r, opts.Text())
		}
	}
	if got := recs[0].String(); got != `{"id":1,"name":"Hold","description":"Stand fast","notes":null,"options":[]}` {
		t.Errorf("record 0 = %s", got)
	}
}

func TestQueryList_ChildOrderPreserved(t *testing.T) {
	db, mock := newMockDB(t)
	res := mustResource(t, "regroupActions")
	opts := `[{"id":2,"title":"A","effect":"x","example_usage":null},{"id":5,"title":"B","effect":"y","example_usage":null}]`
	mock.ExpectQuery("FROM regroup_actions p").
		WillReturnRows(sqlmock.NewRows(regroupColumns).
			AddRow(int64(1), "Hold", "d", "n", []byte(opts)).
			AddRow(int64(3), "Rally", "d", "n", []byte(`[]`)))

	recs, err := queryList(context.Background(), db, res)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	items := recs[0].Get("options").Records()
	if len(items) != 2 {
		t.Fatalf("expected 2 options, got %d", len(items))
	}
	first, _ := items[0].ID()
	second, _ := items[1].ID()
	if first != 2 || second != 5 {
		t.Errorf("option ids = [%d %d], want [2 5]", first, second)
	}
	if got := items[0].Keys(); strings.Join(got, ",") != "id,title,effect,example_usage" {
		t.Errorf("option keys = %v", got)
	}
	if id, _ := recs[1].ID(); id != 3 {
		t.Errorf("second parent id = %d, want 3", id)
	}
}

func TestQueryGet_NotFoundVsEmpty(t *testing.T) {
	db, mock := newMockDB(t)
	res := mustResource(t, "regroupActions")

	mock.ExpectQuery("WHERE p\\.id = \\$1").WithArgs(int64(99)).
		WillReturnRows(sqlmock.NewRows(regroupColumns))
	_, err := queryGet(context.Background(), db, res, 99)
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	mock.ExpectQuery("WHERE p\\.id = \\$1").WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(regroupColumns).AddRow(int64(1), "Hold", nil, nil, []byte(`[]`)))
	rec, err := queryGet(context.Background(), db, res, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts := rec.Get("options"); opts.Kind() != model.KindList || len(opts.Items()) != 0 {
		t.Errorf("options = %s, want []", opts.Text())
	}
}

func TestQueryList_StorageFault(t *testing.T) {
	db, mock := newMockDB(t)
	res := mustResource(t, "ascensionPackages")
	mock.ExpectQuery("FROM ascension_packages p").WillReturnError(errors.New("connection reset"))

	recs, err := queryList(context.Background(), db, res)
	if err == nil {
		t.Fatal("expected error")
	}
	if recs != nil {
		t.Errorf("expected no partial results, got %v", recs)
	}
	if errors.Is(err, store.ErrNotFound) {
		t.Error("storage fault must not look like not-found")
	}
}

func TestQueryList_ConvertsDriverValues(t *testing.T) {
	db, mock := newMockDB(t)
	res := mustResource(t, "timeline")
	when := time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("FROM timeline_events p").
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "event_date", "millennium", "score", "flag"}).
			AddRow(int64(1), []byte("Fall"), when, int64(42), 1.5, true))

	recs, err := queryList(context.Background(), db, res)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `{"id":1,"title":"Fall","event_date":"2024-05-06T00:00:00.000Z","millennium":42,"score":1.5,"flag":true}`
	if got := recs[0].String(); got != want {
		t.Errorf("record = %s\nwant %s", got, want)
	}
}

func TestQueryFirst_Empty(t *testing.T) {
	db, mock := newMockDB(t)
	res := mustResource(t, "campaign")
	mock.ExpectQuery("FROM campaign p\nORDER BY p.id ASC LIMIT 1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "title"}))

	if _, err := queryFirst(context.Background(), db, res); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestQueryCreate(t *testing.T) {
	db, mock := newMockDB(t)
	res := mustResource(t, "ascensionPackages")
	in := res.Input(model.NewRecord(
		model.F("name", model.Text("Ascend")),
		model.F("xp_cost", model.Int(20)),
	))

	mock.ExpectQuery("INSERT INTO ascension_packages \\(name, tagline, description, xp_cost, keyword, influence_bonus, requirements, story_element, example_usage, source_page, source_file\\) VALUES \\(\\$1, \\$2, \\$3, \\$4, \\$5, \\$6, \\$7, \\$8, \\$9, \\$10, \\$11\\) RETURNING \\*").
		WithArgs("Ascend", nil, nil, int64(20), nil, nil, nil, nil, nil, nil, "AscensionCompendiumv1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "source_file"}).
			AddRow(int64(7), "Ascend", "AscensionCompendiumv1"))

	rec, err := queryCreate(context.Background(), db, res, in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id, _ := rec.ID(); id != 7 {
		t.Errorf("id = %d, want 7", id)
	}
}

func TestQueryCreate_IgnoresUndeclaredFields(t *testing.T) {
	db, mock := newMockDB(t)
	res := mustResource(t, "criticalHits")
	in := model.NewRecord(
		model.F("name", model.Text("Gut")),
		model.F("id; DROP TABLE critical_hits", model.Text("x")),
	)
	mock.ExpectQuery("INSERT INTO critical_hits \\(name\\) VALUES \\(\\$1\\) RETURNING \\*").
		WithArgs("Gut").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(int64(1), "Gut"))

	if _, err := queryCreate(context.Background(), db, res, in); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestQueryCreate_InvalidInput(t *testing.T) {
	db, mock := newMockDB(t)
	res := mustResource(t, "talents")
	mock.ExpectQuery("INSERT INTO talents").
		WillReturnError(&pq.Error{Code: "22P02", Message: `invalid input syntax for type integer: "lots"`})

	_, err := queryCreate(context.Background(), db, res, model.NewRecord(model.F("xp_cost", model.Text("lots"))))
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestQueryUpdate_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	res := mustResource(t, "conditions")
	mock.ExpectQuery("UPDATE conditions SET name = \\$1, duration = \\$2 WHERE id = \\$3 RETURNING \\*").
		WithArgs("Pinned", "1 round", int64(404)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}))

	in := model.NewRecord(model.F("name", model.Text("Pinned")), model.F("duration", model.Text("1 round")))
	if _, err := queryUpdate(context.Background(), db, res, 404, in); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestQueryDelete(t *testing.T) {
	db, mock := newMockDB(t)
	res := mustResource(t, "talents")
	mock.ExpectExec("DELETE FROM talents WHERE id = \\$1").WithArgs(int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	if err := queryDelete(context.Background(), db, res, 3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mock.ExpectExec("DELETE FROM talents WHERE id = \\$1").WithArgs(int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	if err := queryDelete(context.Background(), db, res, 4); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestQueryAddChild(t *testing.T) {
	db, mock := newMockDB(t)
	res := mustResource(t, "regroupActions")
	kind, _ := res.Child("options")
	in := kind.Input(model.NewRecord(model.F("title", model.Text("Dig In")), model.F("effect", model.Text("+1 DN"))))

	mock.ExpectQuery("INSERT INTO regroup_action_options \\(regroup_action_id, title, effect, example_usage\\) VALUES \\(\\$1, \\$2, \\$3, \\$4\\) RETURNING \\*").
		WithArgs(int64(1), "Dig In", "+1 DN", nil).
		WillReturnRows(sqlmock.NewRows([]string{"id", "regroup_action_id", "title", "effect", "example_usage"}).
			AddRow(int64(9), int64(1), "Dig In", "+1 DN", nil))

	rec, err := queryAddChild(context.Background(), db, res, kind, 1, in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := rec.String(); got != `{"id":9,"regroup_action_id":1,"title":"Dig In","effect":"+1 DN","example_usage":null}` {
		t.Errorf("child = %s", got)
	}
}

func TestQueryAddChild_UnknownParent(t *testing.T) {
	db, mock := newMockDB(t)
	res := mustResource(t, "ascensionPackages")
	kind, _ := res.Child("keywords")
	mock.ExpectQuery("INSERT INTO ascension_keywords").
		WillReturnError(&pq.Error{Code: "23503", Message: "insert or update violates foreign key constraint"})

	_, err := queryAddChild(context.Background(), db, res, kind, 77, model.NewRecord(model.F("keyword", model.Text("Psyker"))))
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRunInTransaction(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewWithDB(db)
	res := mustResource(t, "talents")

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM talents").WithArgs(int64(1)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	err := s.RunInTransaction(context.Background(), func(tx store.Store) error {
		return tx.Delete(context.Background(), res, 1)
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM talents").WithArgs(int64(2)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()
	err = s.RunInTransaction(context.Background(), func(tx store.Store) error {
		return tx.Delete(context.Background(), res, 2)
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
