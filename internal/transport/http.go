package transport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/ramenya/ordering-service/internal/catalog"
	"github.com/ramenya/ordering-service/internal/handler"
	"github.com/ramenya/ordering-service/internal/order"
	"github.com/ramenya/ordering-service/internal/ws"
)

// NewRouter assembles the HTTP surface over the already-constructed services.
func NewRouter(orderSvc order.Service, catalogSvc catalog.Service, hub *ws.Hub) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	orderHandler := handler.NewOrderHandler(orderSvc)
	catalogHandler := handler.NewCatalogHandler(catalogSvc)

	r.Route("/orders", func(r chi.Router) {
		r.Post("/", orderHandler.CreateOrder)
		r.Get("/", orderHandler.ListOrders)
		r.Get("/{orderID}", orderHandler.GetOrderByID)
		r.Post("/{orderID}/pay", orderHandler.Pay)
		r.Put("/{orderID}/status", orderHandler.UpdateOrderStatus)
	})

	r.Route("/order-groups", func(r chi.Router) {
		r.Post("/{groupID}/prepare", orderHandler.PrepareGroup)
		r.Post("/{groupID}/ready", orderHandler.ReadyGroup)
		r.Put("/{groupID}/status", orderHandler.UpdateGroupStatus)
	})

	r.Route("/merchandise", func(r chi.Router) {
		r.Post("/", catalogHandler.CreateItem)
		r.Get("/", catalogHandler.ListItems)
		r.Get("/{itemID}", catalogHandler.GetItem)
		r.Put("/{itemID}", catalogHandler.UpdateItem)
		r.Delete("/{itemID}", catalogHandler.DeleteItem)
		r.Put("/{itemID}/price", catalogHandler.SetPrice)
		r.Post("/{itemID}/toggle", catalogHandler.ToggleAvailability)
	})

	if hub != nil {
		r.Get("/ws", ws.ServeWS(hub))
	}

	return r
}
