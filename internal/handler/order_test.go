package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid"
	"github.com/ramenya/ordering-service/internal/handler"
	"github.com/ramenya/ordering-service/internal/order"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockOrderService struct {
	createOrderFunc       func(ctx context.Context, input order.CreateOrderInput) (*order.Order, error)
	getOrderByIDFunc      func(ctx context.Context, id uuid.UUID) (*order.Order, error)
	listOrdersFunc        func(ctx context.Context, opts order.ListOptions) ([]order.Order, error)
	payFunc               func(ctx context.Context, orderID uuid.UUID) (*order.Order, error)
	updateOrderStatusFunc func(ctx context.Context, orderID uuid.UUID, status order.OrderStatus) (*order.Order, error)
	setGroupStatusFunc    func(ctx context.Context, groupID uuid.UUID, status order.GroupStatus) error
}

func (m *mockOrderService) CreateOrder(ctx context.Context, input order.CreateOrderInput) (*order.Order, error) {
	return m.createOrderFunc(ctx, input)
}

func (m *mockOrderService) GetOrderByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	return m.getOrderByIDFunc(ctx, id)
}

func (m *mockOrderService) ListOrders(ctx context.Context, opts order.ListOptions) ([]order.Order, error) {
	return m.listOrdersFunc(ctx, opts)
}

func (m *mockOrderService) Pay(ctx context.Context, orderID uuid.UUID) (*order.Order, error) {
	return m.payFunc(ctx, orderID)
}

func (m *mockOrderService) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status order.OrderStatus) (*order.Order, error) {
	return m.updateOrderStatusFunc(ctx, orderID, status)
}

func (m *mockOrderService) SetGroupStatus(ctx context.Context, groupID uuid.UUID, status order.GroupStatus) error {
	return m.setGroupStatusFunc(ctx, groupID, status)
}

func (m *mockOrderService) Prepare(ctx context.Context, groupID uuid.UUID) error {
	return m.setGroupStatusFunc(ctx, groupID, order.GroupPreparing)
}

func (m *mockOrderService) MarkReady(ctx context.Context, groupID uuid.UUID) error {
	return m.setGroupStatusFunc(ctx, groupID, order.GroupReady)
}

func newOrderRouter(svc order.Service) *chi.Mux {
	h := handler.NewOrderHandler(svc)
	r := chi.NewRouter()
	r.Route("/orders", func(r chi.Router) {
		r.Post("/", h.CreateOrder)
		r.Get("/", h.ListOrders)
		r.Get("/{orderID}", h.GetOrderByID)
		r.Post("/{orderID}/pay", h.Pay)
		r.Put("/{orderID}/status", h.UpdateOrderStatus)
	})
	r.Route("/order-groups", func(r chi.Router) {
		r.Post("/{groupID}/prepare", h.PrepareGroup)
		r.Post("/{groupID}/ready", h.ReadyGroup)
		r.Put("/{groupID}/status", h.UpdateGroupStatus)
	})
	return r
}

type errorBody struct {
	Errors []string `json:"errors"`
}

func doRequest(t *testing.T, router http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestOrderHandler_CreateOrder(t *testing.T) {
	orderID := "aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa"
	merchID := "11111111-1111-1111-1111-111111111111"
	missingID := "99999999-9999-9999-9999-999999999999"

	t.Run("created", func(t *testing.T) {
		svc := &mockOrderService{
			createOrderFunc: func(_ context.Context, input order.CreateOrderInput) (*order.Order, error) {
				require.Len(t, input.Groups, 1)
				id, _ := uuid.FromString(orderID)
				return &order.Order{ID: id, CallNum: 4, Status: order.StatusOrdered}, nil
			},
		}

		body := `{"groups":[{"items":[{"merchandise_id":"` + merchID + `"}]}]}`
		rec := doRequest(t, newOrderRouter(svc), http.MethodPost, "/orders", body)

		require.Equal(t, http.StatusCreated, rec.Code)
		var got order.Order
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, 4, got.CallNum)
		assert.Equal(t, order.StatusOrdered, got.Status)
	})

	t.Run("validation_failure_returns_every_message", func(t *testing.T) {
		missing, err := uuid.FromString(missingID)
		require.NoError(t, err)

		svc := &mockOrderService{
			createOrderFunc: func(context.Context, order.CreateOrderInput) (*order.Order, error) {
				return nil, errors.Join(
					&order.CompositionError{Violations: []string{
						"group 1 must contain at most one BASE_ITEM",
						"group 2: a TOPPING or DISCOUNT requires a BASE_ITEM in the same group",
					}},
					&order.NotFoundError{IDs: []uuid.UUID{missing}},
				)
			},
		}

		body := `{"groups":[{"items":[{"merchandise_id":"` + merchID + `"}]}]}`
		rec := doRequest(t, newOrderRouter(svc), http.MethodPost, "/orders", body)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		var got errorBody
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		require.Len(t, got.Errors, 3)
		assert.Contains(t, got.Errors[0], "at most one BASE_ITEM")
		assert.Contains(t, got.Errors[1], "requires a BASE_ITEM")
		assert.Contains(t, got.Errors[2], missingID)
	})

	t.Run("malformed_body", func(t *testing.T) {
		rec := doRequest(t, newOrderRouter(&mockOrderService{}), http.MethodPost, "/orders", "{not json")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("infrastructure_failure", func(t *testing.T) {
		svc := &mockOrderService{
			createOrderFunc: func(context.Context, order.CreateOrderInput) (*order.Order, error) {
				return nil, assert.AnError
			},
		}
		rec := doRequest(t, newOrderRouter(svc), http.MethodPost, "/orders", `{"groups":[]}`)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestOrderHandler_GetOrderByID(t *testing.T) {
	orderID := "aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa"

	t.Run("found", func(t *testing.T) {
		svc := &mockOrderService{
			getOrderByIDFunc: func(_ context.Context, id uuid.UUID) (*order.Order, error) {
				assert.Equal(t, orderID, id.String())
				return &order.Order{ID: id, CallNum: 9, Status: order.StatusPaid}, nil
			},
		}
		rec := doRequest(t, newOrderRouter(svc), http.MethodGet, "/orders/"+orderID, "")
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("not_found", func(t *testing.T) {
		svc := &mockOrderService{
			getOrderByIDFunc: func(context.Context, uuid.UUID) (*order.Order, error) {
				return nil, order.ErrOrderNotFound
			},
		}
		rec := doRequest(t, newOrderRouter(svc), http.MethodGet, "/orders/"+orderID, "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("invalid_id", func(t *testing.T) {
		rec := doRequest(t, newOrderRouter(&mockOrderService{}), http.MethodGet, "/orders/not-a-uuid", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestOrderHandler_ListOrders(t *testing.T) {
	t.Run("passes_filters", func(t *testing.T) {
		var gotOpts order.ListOptions
		svc := &mockOrderService{
			listOrdersFunc: func(_ context.Context, opts order.ListOptions) ([]order.Order, error) {
				gotOpts = opts
				return []order.Order{}, nil
			},
		}
		rec := doRequest(t, newOrderRouter(svc), http.MethodGet, "/orders?status=PAID&limit=20&offset=40", "")

		require.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, gotOpts.Status)
		assert.Equal(t, order.StatusPaid, *gotOpts.Status)
		assert.Equal(t, 20, gotOpts.Limit)
		assert.Equal(t, 40, gotOpts.Offset)
	})

	t.Run("rejects_unknown_status", func(t *testing.T) {
		rec := doRequest(t, newOrderRouter(&mockOrderService{}), http.MethodGet, "/orders?status=COOKING", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestOrderHandler_Pay(t *testing.T) {
	orderID := "aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa"

	t.Run("paid", func(t *testing.T) {
		svc := &mockOrderService{
			payFunc: func(_ context.Context, id uuid.UUID) (*order.Order, error) {
				return &order.Order{ID: id, CallNum: 9, Status: order.StatusPaid}, nil
			},
		}
		rec := doRequest(t, newOrderRouter(svc), http.MethodPost, "/orders/"+orderID+"/pay", "")

		require.Equal(t, http.StatusOK, rec.Code)
		var got order.Order
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, order.StatusPaid, got.Status)
	})

	t.Run("not_found", func(t *testing.T) {
		svc := &mockOrderService{
			payFunc: func(context.Context, uuid.UUID) (*order.Order, error) {
				return nil, order.ErrOrderNotFound
			},
		}
		rec := doRequest(t, newOrderRouter(svc), http.MethodPost, "/orders/"+orderID+"/pay", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestOrderHandler_UpdateOrderStatus(t *testing.T) {
	orderID := "aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa"

	t.Run("updated", func(t *testing.T) {
		svc := &mockOrderService{
			updateOrderStatusFunc: func(_ context.Context, id uuid.UUID, status order.OrderStatus) (*order.Order, error) {
				assert.Equal(t, order.StatusReady, status)
				return &order.Order{ID: id, Status: status}, nil
			},
		}
		rec := doRequest(t, newOrderRouter(svc), http.MethodPut, "/orders/"+orderID+"/status", `{"status":"READY"}`)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("rejects_unknown_status", func(t *testing.T) {
		rec := doRequest(t, newOrderRouter(&mockOrderService{}), http.MethodPut, "/orders/"+orderID+"/status", `{"status":"DONE"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestOrderHandler_GroupEndpoints(t *testing.T) {
	groupID := "bbbbbbbb-bbbb-bbbb-bbbb-bbbbbbbbbbbb"

	t.Run("prepare", func(t *testing.T) {
		var gotStatus order.GroupStatus
		svc := &mockOrderService{
			setGroupStatusFunc: func(_ context.Context, _ uuid.UUID, status order.GroupStatus) error {
				gotStatus = status
				return nil
			},
		}
		rec := doRequest(t, newOrderRouter(svc), http.MethodPost, "/order-groups/"+groupID+"/prepare", "")

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, order.GroupPreparing, gotStatus)
	})

	t.Run("ready", func(t *testing.T) {
		var gotStatus order.GroupStatus
		svc := &mockOrderService{
			setGroupStatusFunc: func(_ context.Context, _ uuid.UUID, status order.GroupStatus) error {
				gotStatus = status
				return nil
			},
		}
		rec := doRequest(t, newOrderRouter(svc), http.MethodPost, "/order-groups/"+groupID+"/ready", "")

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, order.GroupReady, gotStatus)
	})

	t.Run("explicit_status_write", func(t *testing.T) {
		var gotStatus order.GroupStatus
		svc := &mockOrderService{
			setGroupStatusFunc: func(_ context.Context, _ uuid.UUID, status order.GroupStatus) error {
				gotStatus = status
				return nil
			},
		}
		rec := doRequest(t, newOrderRouter(svc), http.MethodPut, "/order-groups/"+groupID+"/status", `{"status":"NOT_READY"}`)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, order.GroupNotReady, gotStatus)
	})

	t.Run("rejects_unknown_status", func(t *testing.T) {
		rec := doRequest(t, newOrderRouter(&mockOrderService{}), http.MethodPut, "/order-groups/"+groupID+"/status", `{"status":"BURNT"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("group_not_found", func(t *testing.T) {
		svc := &mockOrderService{
			setGroupStatusFunc: func(context.Context, uuid.UUID, order.GroupStatus) error {
				return order.ErrGroupNotFound
			},
		}
		rec := doRequest(t, newOrderRouter(svc), http.MethodPost, "/order-groups/"+groupID+"/ready", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
