// Package handler holds the generic list/create/retrieve/update/destroy
// orchestrators shared by every resource. A resource declares its filters,
// pagination and service calls once in a ResourceConfig; the orchestrators
// sequence body decoding, storage, filtering and pagination, and turn every
// outcome into a response envelope.
package handler

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/orders-api/internal/repository"
	apperrors "github.com/jwalitptl/orders-api/pkg/errors"
	"github.com/jwalitptl/orders-api/pkg/filter"
	"github.com/jwalitptl/orders-api/pkg/httputil"
	"github.com/jwalitptl/orders-api/pkg/metrics"
	"github.com/jwalitptl/orders-api/pkg/pagination"
)

// DefaultFilterPrefix marks the query parameters handed to the filter validator.
const DefaultFilterPrefix = "filter_"

const msgInvalidID = "Invalid id."

// ResourceConfig declares one resource. T is the read representation and W
// the write schema decoded from request bodies.
type ResourceConfig[T any, W any] struct {
	Name string

	Filters      *filter.Spec
	Remap        filter.RemapTable
	FilterPrefix string
	// ExactFilters forces equality for every declared filter field.
	ExactFilters bool
	// StrictFilters answers 400 on an invalid filter instead of listing unfiltered.
	StrictFilters bool

	Pagination pagination.Config
	Classifier httputil.Classifier
	Metrics    *metrics.Metrics

	List   func(ctx context.Context, q repository.ListQuery) ([]T, int, error)
	Get    func(ctx context.Context, id int64) (T, error)
	Create func(ctx context.Context, in W) (T, error)
	Update func(ctx context.Context, id int64, in W, partial bool) (T, error)
	Delete func(ctx context.Context, id int64) error
}

// Resource serves the five orchestrators for one resource. It is safe for
// concurrent use; its configuration is never modified after NewResource.
type Resource[T any, W any] struct {
	cfg ResourceConfig[T, W]
}

// NewResource checks cfg and fills in defaults. A resource without a name
// or without any service call is a programming error and panics.
func NewResource[T any, W any](cfg ResourceConfig[T, W]) *Resource[T, W] {
	if cfg.Name == "" {
		panic("handler: resource name is required")
	}
	if cfg.List == nil || cfg.Get == nil || cfg.Create == nil || cfg.Update == nil || cfg.Delete == nil {
		panic(fmt.Sprintf("handler: resource %q is missing a service call", cfg.Name))
	}
	if cfg.Filters == nil {
		cfg.Filters = filter.NewSpec()
	}
	if cfg.FilterPrefix == "" {
		cfg.FilterPrefix = DefaultFilterPrefix
	}
	if cfg.Pagination.PageParam == "" {
		defaults := pagination.DefaultConfig()
		defaults.Sortable = cfg.Pagination.Sortable
		defaults.Composite = cfg.Pagination.Composite
		defaults.DefaultOrder = cfg.Pagination.DefaultOrder
		cfg.Pagination = defaults
	}
	return &Resource[T, W]{cfg: cfg}
}

// RegisterRoutes mounts the orchestrators under path.
func (h *Resource[T, W]) RegisterRoutes(r *gin.RouterGroup, path string) {
	g := r.Group(path)
	{
		g.GET("", h.List)
		g.POST("", h.Create)
		g.GET("/:id", h.Retrieve)
		g.PUT("/:id", h.Update)
		g.PATCH("/:id", h.PartialUpdate)
		g.DELETE("/:id", h.Destroy)
	}
}

func (h *Resource[T, W]) List(c *gin.Context) {
	ctx := c.Request.Context()
	q := c.Request.URL.Query()

	pred, err := h.predicate(ctx, q)
	if err != nil {
		h.fail(c, httputil.OpList, err)
		return
	}

	page, err := h.cfg.Pagination.Parse(q)
	if err != nil {
		h.fail(c, httputil.OpList, err)
		return
	}

	items, count, err := h.cfg.List(ctx, repository.ListQuery{
		Filter: pred,
		Order:  page.Order,
		Limit:  page.Limit(),
		Offset: page.Offset(),
		Count:  page.Enabled,
	})
	if err != nil {
		h.fail(c, httputil.OpList, err)
		return
	}
	if err := page.Check(count); err != nil {
		h.fail(c, httputil.OpList, err)
		return
	}
	if items == nil {
		items = []T{}
	}

	h.succeed(httputil.OpList)
	if !page.Enabled {
		httputil.RespondWithList(c, items, nil)
		return
	}
	httputil.RespondWithList(c, items, &httputil.Pagination{Count: count})
}

func (h *Resource[T, W]) Create(c *gin.Context) {
	var in W
	if err := httputil.BindBody(c, &in); err != nil {
		h.fail(c, httputil.OpCreate, err)
		return
	}

	obj, err := h.cfg.Create(c.Request.Context(), in)
	if err != nil {
		h.fail(c, httputil.OpCreate, err)
		return
	}

	h.succeed(httputil.OpCreate)
	httputil.RespondWithData(c, http.StatusCreated, obj)
}

func (h *Resource[T, W]) Retrieve(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		h.fail(c, httputil.OpRetrieve, err)
		return
	}

	obj, err := h.cfg.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, httputil.OpRetrieve, err)
		return
	}

	h.succeed(httputil.OpRetrieve)
	httputil.RespondWithData(c, http.StatusOK, obj)
}

// Update replaces every writable field.
func (h *Resource[T, W]) Update(c *gin.Context) {
	h.update(c, false)
}

// PartialUpdate writes only the fields present in the body.
func (h *Resource[T, W]) PartialUpdate(c *gin.Context) {
	h.update(c, true)
}

func (h *Resource[T, W]) update(c *gin.Context, partial bool) {
	id, err := parseID(c)
	if err != nil {
		h.fail(c, httputil.OpUpdate, err)
		return
	}

	var in W
	if err := httputil.BindBody(c, &in); err != nil {
		h.fail(c, httputil.OpUpdate, err)
		return
	}

	obj, err := h.cfg.Update(c.Request.Context(), id, in, partial)
	if err != nil {
		h.fail(c, httputil.OpUpdate, err)
		return
	}

	h.succeed(httputil.OpUpdate)
	httputil.RespondWithData(c, http.StatusOK, obj)
}

func (h *Resource[T, W]) Destroy(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		h.fail(c, httputil.OpDestroy, err)
		return
	}

	if err := h.cfg.Delete(c.Request.Context(), id); err != nil {
		h.fail(c, httputil.OpDestroy, err)
		return
	}

	h.succeed(httputil.OpDestroy)
	httputil.RespondWithEnvelope(c, http.StatusNoContent, httputil.Envelope{})
}

// predicate validates the prefixed filter parameters and builds the list
// predicate. An invalid filter is only reported in strict mode; otherwise it
// is logged and the list is served unfiltered.
func (h *Resource[T, W]) predicate(ctx context.Context, q url.Values) (*filter.Predicate, error) {
	raw := filter.FromQuery(q, h.cfg.FilterPrefix)
	if len(raw) == 0 {
		return nil, nil
	}

	values, err := h.cfg.Filters.Validate(raw)
	if err != nil {
		if h.cfg.StrictFilters {
			return nil, err
		}
		zerolog.Ctx(ctx).Warn().
			Err(err).
			Str("resource", h.cfg.Name).
			Interface("filters", raw).
			Msg("ignoring invalid filter parameters")
		h.cfg.Metrics.FilterRejected(h.cfg.Name)
		return nil, nil
	}

	return filter.Build(values, h.cfg.Remap, h.cfg.ExactFilters), nil
}

func (h *Resource[T, W]) succeed(op httputil.Operation) {
	h.cfg.Metrics.Outcome(h.cfg.Name, op.String(), "")
}

func (h *Resource[T, W]) fail(c *gin.Context, op httputil.Operation, err error) {
	status, env := h.cfg.Classifier.Classify(op, err)
	h.cfg.Metrics.Outcome(h.cfg.Name, op.String(), env.ErrorType)

	logger := zerolog.Ctx(c.Request.Context())
	event := logger.Warn()
	switch {
	case status >= http.StatusInternalServerError:
		event = logger.Error()
	case !env.IsError():
		event = logger.Info()
	}
	event.Err(err).
		Str("resource", h.cfg.Name).
		Str("operation", op.String()).
		Str("error_type", env.ErrorType).
		Int("status", status).
		Msg("request finished with a classified outcome")

	_ = c.Error(err)
	httputil.RespondWithEnvelope(c, status, env)
}

func parseID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		return 0, apperrors.NotFoundMessage(msgInvalidID)
	}
	return id, nil
}
