package postgres_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/go-cmp/cmp"

	"pressfeed/internal/domain/entity"
	"pressfeed/internal/infra/adapter/persistence/postgres"
)

func feedRow(feed *entity.FeedSource, quirksJSON any) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "name", "url", "region",
		"active", "failure_count", "last_fetched_at", "quirks",
	}).AddRow(
		feed.ID, feed.Name, feed.URL, feed.Region,
		feed.Active, feed.FailureCount, feed.LastFetchedAt, quirksJSON,
	)
}

func TestFeedRepo_ListActive(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	now := time.Now()
	want := &entity.FeedSource{
		ID: 1, Name: "Daily Wire", URL: "https://example.com/rss", Region: "na",
		Active: true, LastFetchedAt: &now,
		Quirks: &entity.FeedQuirks{DescriptionIsHTML: true},
	}

	mock.ExpectQuery(`FROM feed_sources`).
		WillReturnRows(feedRow(want, `{"description_is_html":true}`))

	repo := postgres.NewFeedRepo(db)
	got, err := repo.ListActive(context.Background())
	if err != nil {
		t.Fatalf("ListActive err=%v", err)
	}
	if len(got) != 1 {
		t.Fatalf("ListActive len=%d, want 1", len(got))
	}
	if diff := cmp.Diff(want, got[0]); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestFeedRepo_ListActiveWithoutQuirks(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	want := &entity.FeedSource{
		ID: 2, Name: "Plain Feed", URL: "https://plain.example.com/rss",
		Region: "eu", Active: true,
	}
	mock.ExpectQuery(`FROM feed_sources`).
		WillReturnRows(feedRow(want, nil))

	repo := postgres.NewFeedRepo(db)
	got, err := repo.ListActive(context.Background())
	if err != nil {
		t.Fatalf("ListActive err=%v", err)
	}
	if got[0].Quirks != nil {
		t.Fatalf("Quirks = %+v, want nil", got[0].Quirks)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestFeedRepo_Create(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO feed_sources`)).
		WithArgs("Daily Wire", "https://example.com/rss", "na", true, 0, `{"description_is_html":true}`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))

	repo := postgres.NewFeedRepo(db)
	feed := &entity.FeedSource{
		Name: "Daily Wire", URL: "https://example.com/rss", Region: "na",
		Active: true, Quirks: &entity.FeedQuirks{DescriptionIsHTML: true},
	}
	if err := repo.Create(context.Background(), feed); err != nil {
		t.Fatalf("Create err=%v", err)
	}
	if feed.ID != 42 {
		t.Fatalf("feed.ID = %d, want 42", feed.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestFeedRepo_CreateRejectsInvalidSource(t *testing.T) {
	db, _, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	repo := postgres.NewFeedRepo(db)
	err := repo.Create(context.Background(), &entity.FeedSource{Name: "No URL"})
	if err == nil {
		t.Fatal("Create accepted a source without a URL")
	}
}

func TestFeedRepo_IncrementFailureReturnsNewCount(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE feed_sources SET failure_count = failure_count + 1`)).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"failure_count"}).AddRow(2))

	repo := postgres.NewFeedRepo(db)
	count, err := repo.IncrementFailure(context.Background(), 7)
	if err != nil {
		t.Fatalf("IncrementFailure err=%v", err)
	}
	if count != 2 {
		t.Fatalf("count = %d, want 2", count)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestFeedRepo_Deactivate(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE feed_sources SET active = FALSE`)).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := postgres.NewFeedRepo(db)
	if err := repo.Deactivate(context.Background(), 7); err != nil {
		t.Fatalf("Deactivate err=%v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestFeedRepo_DeactivateMissingSource(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE feed_sources SET active = FALSE`)).
		WithArgs(int64(99)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := postgres.NewFeedRepo(db)
	if err := repo.Deactivate(context.Background(), 99); err == nil {
		t.Fatal("Deactivate succeeded for a missing source")
	}
}

func TestFeedRepo_ResetFailuresAndTouch(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE feed_sources SET failure_count = 0`)).
		WithArgs(int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	at := time.Now()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE feed_sources SET last_fetched_at`)).
		WithArgs(at, int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := postgres.NewFeedRepo(db)
	if err := repo.ResetFailures(context.Background(), 3); err != nil {
		t.Fatalf("ResetFailures err=%v", err)
	}
	if err := repo.TouchFetchedAt(context.Background(), 3, at); err != nil {
		t.Fatalf("TouchFetchedAt err=%v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}
