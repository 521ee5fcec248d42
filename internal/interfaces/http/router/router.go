// Package router layers named, prefix-scoped route groups on top of gin
// and defers their registration until the application assembles the
// engine.
package router

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// RouteRegistrar is anything able to attach routes to a gin group.
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// Router collects registrars and middleware, then mounts them under the
// API prefix in one Setup pass.
type Router struct {
	engine     *gin.Engine
	prefix     string
	middleware []gin.HandlerFunc
	registrars []RouteRegistrar
}

// RouterOption adjusts the Router during construction.
type RouterOption func(*Router)

// WithPrefix overrides the base path for API routes, normally sourced
// from the http.api_prefix setting. The value is normalized to carry a
// leading slash and no trailing one; an empty value keeps the default.
func WithPrefix(prefix string) RouterOption {
	return func(r *Router) {
		if prefix == "" {
			return
		}
		if !strings.HasPrefix(prefix, "/") {
			prefix = "/" + prefix
		}
		r.prefix = strings.TrimRight(prefix, "/")
	}
}

// NewRouter wraps the engine with route collection under /api/v1,
// unless an option overrides the prefix.
func NewRouter(engine *gin.Engine, opts ...RouterOption) *Router {
	r := &Router{engine: engine, prefix: "/api/v1"}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Use appends middleware that will run for every route under the prefix.
func (r *Router) Use(middleware ...gin.HandlerFunc) *Router {
	r.middleware = append(r.middleware, middleware...)
	return r
}

// Register queues a registrar for the next Setup call.
func (r *Router) Register(registrar RouteRegistrar) *Router {
	r.registrars = append(r.registrars, registrar)
	return r
}

// Prefix reports the base path routes are mounted under.
func (r *Router) Prefix() string {
	return r.prefix
}

// Setup mounts the collected middleware and registrars on the engine.
// Middleware attaches before any routes so it covers them all.
func (r *Router) Setup() {
	api := r.engine.Group(r.prefix)

	if len(r.middleware) > 0 {
		api.Use(r.middleware...)
	}
	for _, registrar := range r.registrars {
		registrar.RegisterRoutes(api)
	}
}

// DomainGroup is a declarative route group for one domain area. Routes
// and subgroups accumulate until RegisterRoutes attaches them to gin.
type DomainGroup struct {
	name       string
	prefix     string
	routes     []route
	subgroups  []*DomainGroup
	middleware []gin.HandlerFunc
}

type route struct {
	method   string
	path     string
	handlers []gin.HandlerFunc
}

// NewDomainGroup names a group and fixes its path prefix.
func NewDomainGroup(name, prefix string) *DomainGroup {
	return &DomainGroup{name: name, prefix: prefix}
}

// Use appends middleware scoped to this group and its subgroups.
func (dg *DomainGroup) Use(middleware ...gin.HandlerFunc) *DomainGroup {
	dg.middleware = append(dg.middleware, middleware...)
	return dg
}

// GET queues a GET route.
func (dg *DomainGroup) GET(path string, handlers ...gin.HandlerFunc) *DomainGroup {
	return dg.handle(http.MethodGet, path, handlers)
}

// POST queues a POST route.
func (dg *DomainGroup) POST(path string, handlers ...gin.HandlerFunc) *DomainGroup {
	return dg.handle(http.MethodPost, path, handlers)
}

// PUT queues a PUT route.
func (dg *DomainGroup) PUT(path string, handlers ...gin.HandlerFunc) *DomainGroup {
	return dg.handle(http.MethodPut, path, handlers)
}

// PATCH queues a PATCH route.
func (dg *DomainGroup) PATCH(path string, handlers ...gin.HandlerFunc) *DomainGroup {
	return dg.handle(http.MethodPatch, path, handlers)
}

// DELETE queues a DELETE route.
func (dg *DomainGroup) DELETE(path string, handlers ...gin.HandlerFunc) *DomainGroup {
	return dg.handle(http.MethodDelete, path, handlers)
}

func (dg *DomainGroup) handle(method, path string, handlers []gin.HandlerFunc) *DomainGroup {
	dg.routes = append(dg.routes, route{method: method, path: path, handlers: handlers})
	return dg
}

// Group nests a subgroup under this one's prefix.
func (dg *DomainGroup) Group(name, prefix string) *DomainGroup {
	sub := NewDomainGroup(name, prefix)
	dg.subgroups = append(dg.subgroups, sub)
	return sub
}

// RegisterRoutes attaches the queued routes, then recurses into the
// subgroups. It satisfies RouteRegistrar so groups can be handed to a
// Router directly.
func (dg *DomainGroup) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group(dg.prefix)

	if len(dg.middleware) > 0 {
		group.Use(dg.middleware...)
	}
	for _, rt := range dg.routes {
		group.Handle(rt.method, rt.path, rt.handlers...)
	}
	for _, sub := range dg.subgroups {
		sub.RegisterRoutes(group)
	}
}

// Name reports the group's name.
func (dg *DomainGroup) Name() string { return dg.name }

// Prefix reports the group's path prefix.
func (dg *DomainGroup) Prefix() string { return dg.prefix }
