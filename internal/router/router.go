package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iliyamo/blog-backend/internal/handler"
)

// RegisterRoutes registers the operational endpoints that sit outside the
// blog API: the liveness probe and the Prometheus scrape target.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RegisterUsers mounts the /users endpoints.  limit guards the credential
// endpoints (register and login) against brute force.  None of these routes
// needs a bearer token: logout takes the token to revoke in its body.
func RegisterUsers(e *echo.Echo, u *handler.UserHandler, limit echo.MiddlewareFunc) {
	g := e.Group("/users")
	limit = orNext(limit)
	g.POST("/register", u.Register, limit)
	g.POST("/login", u.Login, limit)
	g.POST("/logout", u.Logout)
	g.GET("/:userId", u.GetUser)
}

// PostMiddleware is the middleware set wrapped around the /posts endpoints.
// Nil entries are skipped.
type PostMiddleware struct {
	Auth       echo.MiddlewareFunc // bearer token check (JWTAuth)
	SameUser   echo.MiddlewareFunc // :userId must be the caller (RequireSameUser)
	Cache      echo.MiddlewareFunc // response cache for public reads
	PurgeCache echo.MiddlewareFunc // drops cached reads after a successful write
}

func orNext(m echo.MiddlewareFunc) echo.MiddlewareFunc {
	if m == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return m
}

// RegisterPosts mounts the /posts endpoints.  Reads are public and cached;
// writes require a bearer token, and update/delete also require the caller
// to be the :userId in the path.
func RegisterPosts(e *echo.Echo, p *handler.PostHandler, mw PostMiddleware) {
	auth, same, cache, purge := orNext(mw.Auth), orNext(mw.SameUser), orNext(mw.Cache), orNext(mw.PurgeCache)
	g := e.Group("/posts")

	g.GET("", p.ListPublished, cache)
	g.GET("/user/:userId/posts", p.ListByAuthor, cache)
	g.GET("/post/:postId", p.Get, cache)

	g.POST("", p.Create, auth, purge)
	g.PUT("/user/:userId/post/:postId", p.Update, auth, same, purge)
	g.DELETE("/user/:userId/post/:postId", p.Delete, auth, same, purge)
}
