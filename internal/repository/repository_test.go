package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/iliyamo/blog-backend/internal/config"
	"github.com/iliyamo/blog-backend/internal/database"
	"github.com/iliyamo/blog-backend/internal/model"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	cfg := config.Config{DBDriver: config.DriverSQLite, DBPath: filepath.Join(t.TempDir(), "test.db")}
	db, err := database.Open(cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("db open: %v", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func strPtr(s string) *string { return &s }

func mustUser(t *testing.T, users *UserRepo, email string) *model.User {
	t.Helper()
	u := &model.User{Email: email, Name: "n", PasswordHash: "hash"}
	if err := users.Create(context.Background(), u); err != nil {
		t.Fatalf("create user %s: %v", email, err)
	}
	return u
}

func TestUserRepoCreateAndLookup(t *testing.T) {
	ctx := context.Background()
	users := NewUserRepo(newTestDB(t))

	u := mustUser(t, users, "  Alice@Example.COM ")
	if u.ID == 0 {
		t.Fatal("id not populated")
	}
	if u.Email != "alice@example.com" {
		t.Fatalf("email not normalized: %q", u.Email)
	}

	got, err := users.GetByEmail(ctx, "ALICE@example.com")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if got.ID != u.ID {
		t.Fatalf("id = %d, want %d", got.ID, u.ID)
	}

	if _, err := users.GetByID(ctx, u.ID); err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if _, err := users.GetByID(ctx, u.ID+100); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("missing id err = %v", err)
	}
	if _, err := users.GetByEmail(ctx, "nobody@example.com"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("missing email err = %v", err)
	}
}

func TestUserRepoDuplicateEmail(t *testing.T) {
	users := NewUserRepo(newTestDB(t))
	mustUser(t, users, "dup@example.com")

	err := users.Create(context.Background(), &model.User{Email: "DUP@example.com", Name: "x", PasswordHash: "h"})
	if !errors.Is(err, ErrEmailExists) {
		t.Fatalf("err = %v, want ErrEmailExists", err)
	}
}

func TestPostRepoLifecycle(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	users := NewUserRepo(db)
	posts := NewPostRepo(db)

	alice := mustUser(t, users, "alice@example.com")
	bob := mustUser(t, users, "bob@example.com")

	draft := &model.Post{Title: "draft", Content: strPtr("wip"), AuthorID: alice.ID}
	live := &model.Post{Title: "live", Content: strPtr("hello"), Published: true, AuthorID: alice.ID}
	other := &model.Post{Title: "bob's", Content: strPtr("hi"), Published: true, AuthorID: bob.ID}
	for _, p := range []*model.Post{draft, live, other} {
		if err := posts.Create(ctx, p); err != nil {
			t.Fatalf("create post: %v", err)
		}
	}
	if draft.Published {
		t.Fatal("published should default to false")
	}

	published, err := posts.ListPublished(ctx)
	if err != nil {
		t.Fatalf("list published: %v", err)
	}
	if len(published) != 2 {
		t.Fatalf("published count = %d, want 2", len(published))
	}

	mine, err := posts.ListByAuthor(ctx, alice.ID)
	if err != nil {
		t.Fatalf("list by author: %v", err)
	}
	if len(mine) != 2 {
		t.Fatalf("alice posts = %d, want 2", len(mine))
	}

	got, err := posts.GetWithAuthor(ctx, live.ID)
	if err != nil {
		t.Fatalf("get with author: %v", err)
	}
	if got.Author == nil || got.Author.ID != alice.ID {
		t.Fatalf("author not preloaded: %+v", got.Author)
	}
	if _, err := posts.GetWithAuthor(ctx, 9999); !errors.Is(err, ErrPostNotFound) {
		t.Fatalf("missing post err = %v", err)
	}

	if err := posts.Update(ctx, draft.ID, PostUpdate{Title: "done", Content: "final", Published: true}); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ = posts.GetWithAuthor(ctx, draft.ID)
	if got.Title != "done" || got.Content == nil || *got.Content != "final" || !got.Published {
		t.Fatalf("update not applied: %+v", got)
	}
	if err := posts.Update(ctx, live.ID, PostUpdate{Title: "live", Content: "hello", Published: false}); err != nil {
		t.Fatalf("unpublish: %v", err)
	}
	got, _ = posts.GetWithAuthor(ctx, live.ID)
	if got.Published {
		t.Fatal("published=false was not written")
	}
	if err := posts.Update(ctx, 9999, PostUpdate{Title: "x", Content: "y"}); !errors.Is(err, ErrPostNotFound) {
		t.Fatalf("update missing err = %v", err)
	}

	n, err := posts.DeleteByIDAndAuthor(ctx, other.ID, alice.ID)
	if err != nil || n != 0 {
		t.Fatalf("cross-author delete n=%d err=%v", n, err)
	}
	if _, err := posts.GetWithAuthor(ctx, other.ID); err != nil {
		t.Fatalf("bob's post should survive: %v", err)
	}
	n, err = posts.DeleteByIDAndAuthor(ctx, other.ID, bob.ID)
	if err != nil || n != 1 {
		t.Fatalf("owner delete n=%d err=%v", n, err)
	}
}
