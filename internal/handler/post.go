package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/blog-backend/internal/httperr"
	"github.com/iliyamo/blog-backend/internal/middleware"
	"github.com/iliyamo/blog-backend/internal/model"
	"github.com/iliyamo/blog-backend/internal/queue"
	"github.com/iliyamo/blog-backend/internal/repository"
)

// PostHandler serves the /posts endpoints.
type PostHandler struct {
	Posts  *repository.PostRepo
	Events queue.Publisher
	Log    *zap.Logger
}

func NewPostHandler(posts *repository.PostRepo, ev queue.Publisher, log *zap.Logger) *PostHandler {
	return &PostHandler{Posts: posts, Events: ev, Log: log}
}

// optionalString remembers whether its key was present and whether it held
// null, which a plain *string cannot tell apart.
type optionalString struct {
	Set   bool
	Null  bool
	Value string
}

func (o *optionalString) UnmarshalJSON(b []byte) error {
	o.Set = true
	if string(b) == "null" {
		o.Null = true
		return nil
	}
	return json.Unmarshal(b, &o.Value)
}

// createPostReq has no authorId or published: the author is always the
// caller and a new post starts as a draft.
type createPostReq struct {
	Title   string         `json:"title" validate:"required,max=255"`
	Content optionalString `json:"content"`
}

type updatePostReq struct {
	Title     string         `json:"title" validate:"required,max=255"`
	Content   optionalString `json:"content"`
	Published *bool          `json:"published" validate:"required"`
}

// validateWithContent runs the struct validator and adds the content
// presence rule.  A null content is a 400, a missing one a 422.
func validateWithContent(c echo.Context, req any, content optionalString) error {
	if content.Null {
		return echo.NewHTTPError(http.StatusBadRequest, "content must not be null")
	}
	err := c.Validate(req)
	if content.Set {
		return err
	}
	var verr *httperr.ValidationError
	if err == nil {
		verr = &httperr.ValidationError{Fields: map[string]string{}}
	} else if !errors.As(err, &verr) {
		return err
	}
	verr.Fields["content"] = "required"
	return verr
}

// ListPublished returns every published post.
func (h *PostHandler) ListPublished(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	posts, err := h.Posts.ListPublished(ctx)
	if err != nil {
		return fmt.Errorf("list published: %w", err)
	}
	return c.JSON(http.StatusOK, posts)
}

// ListByAuthor returns every post of one author, drafts included.
func (h *PostHandler) ListByAuthor(c echo.Context) error {
	authorID, err := httperr.PathID(c, "userId")
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	posts, err := h.Posts.ListByAuthor(ctx, authorID)
	if err != nil {
		return fmt.Errorf("list posts of %d: %w", authorID, err)
	}
	return c.JSON(http.StatusOK, posts)
}

// Get returns one post with its author embedded.
func (h *PostHandler) Get(c echo.Context) error {
	id, err := httperr.PathID(c, "postId")
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	p, err := h.Posts.GetWithAuthor(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrPostNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "post not found"})
		}
		return fmt.Errorf("get post %d: %w", id, err)
	}
	return c.JSON(http.StatusOK, p)
}

// Create stores a post authored by the authenticated caller.
func (h *PostHandler) Create(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "access token required"})
	}

	var req createPostReq
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := validateWithContent(c, &req, req.Content); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	content := req.Content.Value
	p := &model.Post{Title: req.Title, Content: &content, AuthorID: uid}
	if err := h.Posts.Create(ctx, p); err != nil {
		return fmt.Errorf("create post: %w", err)
	}

	publishAsync(h.Events, h.Log, queue.Event{
		Type: queue.PostCreated, UserID: uid, PostID: p.ID, Title: p.Title, Published: p.Published,
	})
	return c.JSON(http.StatusCreated, p)
}

// Update overwrites title, content and published.  RequireSameUser has
// already matched :userId against the caller; the stored author is not
// consulted.
func (h *PostHandler) Update(c echo.Context) error {
	uid, err := httperr.PathID(c, "userId")
	if err != nil {
		return err
	}
	id, err := httperr.PathID(c, "postId")
	if err != nil {
		return err
	}

	var req updatePostReq
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := validateWithContent(c, &req, req.Content); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	upd := repository.PostUpdate{Title: req.Title, Content: req.Content.Value, Published: *req.Published}
	if err := h.Posts.Update(ctx, id, upd); err != nil {
		if errors.Is(err, repository.ErrPostNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "post not found"})
		}
		return fmt.Errorf("update post %d: %w", id, err)
	}

	publishAsync(h.Events, h.Log, queue.Event{
		Type: queue.PostUpdated, UserID: uid, PostID: id, Title: upd.Title, Published: upd.Published,
	})
	return c.NoContent(http.StatusNoContent)
}

// Delete removes the post only when the caller wrote it.  Deleting a post
// that is absent or someone else's is a silent no-op.
func (h *PostHandler) Delete(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "access token required"})
	}
	id, err := httperr.PathID(c, "postId")
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	n, err := h.Posts.DeleteByIDAndAuthor(ctx, id, uid)
	if err != nil {
		return fmt.Errorf("delete post %d: %w", id, err)
	}
	if n > 0 {
		publishAsync(h.Events, h.Log, queue.Event{Type: queue.PostDeleted, UserID: uid, PostID: id})
	}
	return c.NoContent(http.StatusNoContent)
}
