// Package order declares the order resource: its filters, sort keys and
// routes on top of the generic orchestrators.
package order

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/orders-api/internal/config"
	"github.com/jwalitptl/orders-api/internal/handler"
	"github.com/jwalitptl/orders-api/internal/model"
	orderService "github.com/jwalitptl/orders-api/internal/service/order"
	"github.com/jwalitptl/orders-api/pkg/filter"
	"github.com/jwalitptl/orders-api/pkg/httputil"
	"github.com/jwalitptl/orders-api/pkg/metrics"
	"github.com/jwalitptl/orders-api/pkg/pagination"
)

const resourceName = "orders"

// Filters accepted by GET /orders, without the query prefix.
func Filters() *filter.Spec {
	return filter.NewSpec().
		Exact("id", filter.TypeInteger).
		Text("customer").
		Range("amount", filter.TypeNumber).
		Range("price", filter.TypeNumber).
		Range("date_created", filter.TypeDate).
		Exact("deleted", filter.TypeBool).
		Text("user__first_name").
		Text("user__last_name").
		Custom("user", filter.TypeText, userNameContains)
}

// Remap points relation filters at the joined user columns.
var Remap = filter.RemapTable{
	"user__first_name": "user.first_name",
	"user__last_name":  "user.last_name",
}

// userNameContains matches orders whose user has value in either name.
func userNameContains(p *filter.Predicate, _ string, value interface{}) *filter.Predicate {
	return p.And(filter.AnyOf(
		filter.IContains("user.first_name", value),
		filter.IContains("user.last_name", value),
	))
}

// Pagination returns the sort keys and page sizes for the order list.
func Pagination(cfg config.PaginationConfig) pagination.Config {
	pg := pagination.DefaultConfig()
	if cfg.DefaultPageSize > 0 {
		pg.DefaultPageSize = cfg.DefaultPageSize
	}
	if cfg.MaxPageSize > 0 {
		pg.MaxPageSize = cfg.MaxPageSize
	}
	pg.Sortable = map[string]string{
		"id":               "id",
		"customer":         "customer",
		"amount":           "amount",
		"price":            "price",
		"date_created":     "date_created",
		"deleted":          "deleted",
		"user__first_name": "user.first_name",
		"user__last_name":  "user.last_name",
	}
	pg.Composite = map[string]pagination.CompositeKey{
		"number": {Year: "number_year", Sequence: "number_seq"},
	}
	pg.DefaultOrder = []pagination.OrderTerm{{Column: "id", Desc: true}}
	return pg
}

type Options struct {
	Filters    config.FiltersConfig
	Pagination config.PaginationConfig
	Envelope   config.EnvelopeConfig
	Metrics    *metrics.Metrics
}

type Handler struct {
	resource *handler.Resource[*model.Order, model.OrderInput]
}

func NewHandler(service orderService.OrderServicer, opts Options) *Handler {
	return &Handler{
		resource: handler.NewResource(handler.ResourceConfig[*model.Order, model.OrderInput]{
			Name:          resourceName,
			Filters:       Filters(),
			Remap:         Remap,
			FilterPrefix:  opts.Filters.Prefix,
			StrictFilters: opts.Filters.Strict,
			Pagination:    Pagination(opts.Pagination),
			Classifier:    httputil.Classifier{UniformNotFound: opts.Envelope.UniformNotFound},
			Metrics:       opts.Metrics,
			List:          service.ListOrders,
			Get:           service.GetOrder,
			Create:        service.CreateOrder,
			Update:        service.UpdateOrder,
			Delete:        service.DeleteOrder,
		}),
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	h.resource.RegisterRoutes(r, "/orders")
}
