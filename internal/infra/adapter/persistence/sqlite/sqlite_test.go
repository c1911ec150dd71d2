package sqlite_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"pressfeed/internal/domain/entity"
	"pressfeed/internal/infra/adapter/persistence/sqlite"
	"pressfeed/internal/infra/db"
	"pressfeed/internal/repository"
)

// openTestDB opens an in-memory database with the full schema applied.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	if err := db.MigrateUpSQLite(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn
}

func testFeed() *entity.FeedSource {
	return &entity.FeedSource{
		Name:   "Daily Wire",
		URL:    "https://example.com/rss",
		Region: "na",
		Active: true,
		Quirks: &entity.FeedQuirks{DescriptionIsHTML: true},
	}
}

func testArticle(link string) *entity.Article {
	return &entity.Article{
		Title:       "Cup final tonight",
		PublishedAt: time.Date(2026, 5, 10, 18, 0, 0, 0, time.UTC),
		Link:        link,
		Summary:     "The league decider kicks off at eight.",
		ImageURL:    "https://img.example.com/final.jpg",
		Source:      "Daily Wire",
		Region:      "na",
		Category:    "Sports",
		Slug:        "sports",
		CreatedAt:   time.Now().UTC(),
	}
}

func TestFeedRepoRoundTrip(t *testing.T) {
	conn := openTestDB(t)
	repo := sqlite.NewFeedRepo(conn)
	ctx := context.Background()

	feed := testFeed()
	if err := repo.Create(ctx, feed); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if feed.ID == 0 {
		t.Fatal("Create did not populate the id")
	}

	active, err := repo.ListActive(ctx)
	if err != nil {
		t.Fatalf("ListActive: %v", err)
	}
	if len(active) != 1 {
		t.Fatalf("ListActive len=%d, want 1", len(active))
	}
	got := active[0]
	if got.Name != feed.Name || got.URL != feed.URL || got.Region != feed.Region {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if got.Quirks == nil || !got.Quirks.DescriptionIsHTML {
		t.Fatalf("quirks lost in round trip: %+v", got.Quirks)
	}
}

func TestFeedRepoHealthLifecycle(t *testing.T) {
	conn := openTestDB(t)
	repo := sqlite.NewFeedRepo(conn)
	ctx := context.Background()

	feed := testFeed()
	if err := repo.Create(ctx, feed); err != nil {
		t.Fatalf("Create: %v", err)
	}

	count, err := repo.IncrementFailure(ctx, feed.ID)
	if err != nil || count != 1 {
		t.Fatalf("IncrementFailure = %d, %v; want 1, nil", count, err)
	}
	count, err = repo.IncrementFailure(ctx, feed.ID)
	if err != nil || count != 2 {
		t.Fatalf("IncrementFailure = %d, %v; want 2, nil", count, err)
	}

	if err := repo.Deactivate(ctx, feed.ID); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}
	active, err := repo.ListActive(ctx)
	if err != nil {
		t.Fatalf("ListActive: %v", err)
	}
	if len(active) != 0 {
		t.Fatal("deactivated feed still listed as active")
	}

	if err := repo.ResetFailures(ctx, feed.ID); err != nil {
		t.Fatalf("ResetFailures: %v", err)
	}
	at := time.Now().UTC()
	if err := repo.TouchFetchedAt(ctx, feed.ID, at); err != nil {
		t.Fatalf("TouchFetchedAt: %v", err)
	}
	all, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if all[0].FailureCount != 0 {
		t.Fatalf("failure count = %d after reset", all[0].FailureCount)
	}
	if all[0].LastFetchedAt == nil {
		t.Fatal("last fetched timestamp not stored")
	}
}

func TestFeedRepoDeactivateMissing(t *testing.T) {
	conn := openTestDB(t)
	repo := sqlite.NewFeedRepo(conn)

	if err := repo.Deactivate(context.Background(), 999); err == nil {
		t.Fatal("Deactivate succeeded for a missing source")
	}
}

func TestArticleRepoDuplicateLink(t *testing.T) {
	conn := openTestDB(t)
	repo := sqlite.NewArticleRepo(conn)
	ctx := context.Background()

	if err := repo.Create(ctx, testArticle("https://example.com/final")); err != nil {
		t.Fatalf("Create: %v", err)
	}

	err := repo.Create(ctx, testArticle("https://example.com/final"))
	if !errors.Is(err, repository.ErrDuplicateLink) {
		t.Fatalf("err = %v, want ErrDuplicateLink", err)
	}

	count, err := repo.Count(ctx)
	if err != nil || count != 1 {
		t.Fatalf("Count = %d, %v; want 1, nil", count, err)
	}
}

func TestArticleRepoExistsByLinkBatch(t *testing.T) {
	conn := openTestDB(t)
	repo := sqlite.NewArticleRepo(conn)
	ctx := context.Background()

	stored := []string{"https://example.com/a", "https://example.com/b"}
	for _, link := range stored {
		if err := repo.Create(ctx, testArticle(link)); err != nil {
			t.Fatalf("Create %s: %v", link, err)
		}
	}

	got, err := repo.ExistsByLinkBatch(ctx, []string{
		"https://example.com/a",
		"https://example.com/b",
		"https://example.com/missing",
	})
	if err != nil {
		t.Fatalf("ExistsByLinkBatch: %v", err)
	}
	for _, link := range stored {
		if !got[link] {
			t.Fatalf("stored link %s not reported", link)
		}
	}
	if got["https://example.com/missing"] {
		t.Fatal("missing link reported as stored")
	}

	exists, err := repo.ExistsByLink(ctx, "https://example.com/a")
	if err != nil || !exists {
		t.Fatalf("ExistsByLink = %v, %v; want true, nil", exists, err)
	}
}

func TestArticleRepoNullableAuthor(t *testing.T) {
	conn := openTestDB(t)
	repo := sqlite.NewArticleRepo(conn)
	ctx := context.Background()

	a := testArticle("https://example.com/anon")
	a.Author = ""
	if err := repo.Create(ctx, a); err != nil {
		t.Fatalf("Create: %v", err)
	}

	var author sql.NullString
	if err := conn.QueryRow(`SELECT author FROM articles WHERE link = ?`, a.Link).Scan(&author); err != nil {
		t.Fatalf("query author: %v", err)
	}
	if author.Valid {
		t.Fatalf("author = %q, want NULL", author.String)
	}
}
