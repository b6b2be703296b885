package order_test

import (
	"context"
	"sort"
	"testing"

	"github.com/gofrs/uuid"
	"github.com/ramenya/ordering-service/internal/catalog"
	"github.com/ramenya/ordering-service/internal/order"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRepo keeps orders in memory with the same call-number and
// advancement semantics as the postgres repository.
type fakeRepo struct {
	items  map[uuid.UUID]catalog.Item
	orders map[uuid.UUID]*order.Order
}

func newFakeRepo(items ...catalog.Item) *fakeRepo {
	byID := make(map[uuid.UUID]catalog.Item, len(items))
	for _, it := range items {
		byID[it.ID] = it
	}
	return &fakeRepo{
		items:  byID,
		orders: make(map[uuid.UUID]*order.Order),
	}
}

func (f *fakeRepo) CreateOrder(_ context.Context, input order.CreateOrderInput) (uuid.UUID, error) {
	orderID, err := uuid.NewV4()
	if err != nil {
		return uuid.Nil, err
	}

	o := &order.Order{
		ID:      orderID,
		CallNum: f.nextCallNum(),
		Status:  order.StatusOrdered,
	}
	for _, spec := range input.Groups {
		groupID, err := uuid.NewV4()
		if err != nil {
			return uuid.Nil, err
		}
		g := order.Group{ID: groupID, OrderID: orderID, Status: order.GroupNotReady}
		for _, item := range spec.Items {
			merch := f.items[item.MerchandiseID]
			g.Items = append(g.Items, order.Item{
				GroupID:       groupID,
				MerchandiseID: item.MerchandiseID,
				Merchandise:   &merch,
			})
		}
		o.Groups = append(o.Groups, g)
	}

	f.orders[orderID] = o
	return orderID, nil
}

func (f *fakeRepo) nextCallNum() int {
	max := 0
	for _, o := range f.orders {
		if o.CallNum > max {
			max = o.CallNum
		}
	}
	return max + 1
}

func (f *fakeRepo) GetOrderByID(_ context.Context, id uuid.UUID) (*order.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return nil, order.ErrOrderNotFound
	}
	copied := *o
	return &copied, nil
}

func (f *fakeRepo) ListOrders(_ context.Context, opts order.ListOptions) ([]order.Order, error) {
	var out []order.Order
	for _, o := range f.orders {
		if opts.Status != nil && o.Status != *opts.Status {
			continue
		}
		out = append(out, *o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CallNum > out[j].CallNum })
	return out, nil
}

func (f *fakeRepo) UpdateOrderStatus(_ context.Context, orderID uuid.UUID, status order.OrderStatus) error {
	o, ok := f.orders[orderID]
	if !ok {
		return order.ErrOrderNotFound
	}
	o.Status = status
	return nil
}

func (f *fakeRepo) UpdateGroupStatus(_ context.Context, groupID uuid.UUID, status order.GroupStatus) (*order.GroupStatusChange, error) {
	for _, o := range f.orders {
		for i := range o.Groups {
			if o.Groups[i].ID != groupID {
				continue
			}
			o.Groups[i].Status = status

			change := &order.GroupStatusChange{
				OrderID:      o.ID,
				GroupID:      groupID,
				GroupStatus:  status,
				OrderStatus:  o.Status,
				OrderCallNum: o.CallNum,
			}
			if status == order.GroupReady {
				statuses := make([]order.GroupStatus, 0, len(o.Groups))
				for _, g := range o.Groups {
					statuses = append(statuses, g.Status)
				}
				if order.ShouldAdvanceToReady(o.Status, statuses) {
					o.Status = order.StatusReady
					change.OrderStatus = order.StatusReady
					change.OrderAdvanced = true
				}
			}
			return change, nil
		}
	}
	return nil, order.ErrGroupNotFound
}

// A table order from placement to pickup: ramen with an extra egg plus a
// standalone side, paid midway, groups finished one at a time.
func TestOrderLifecycle(t *testing.T) {
	ctx := context.Background()

	ramenID := mustUUID(t, "11111111-1111-1111-1111-111111111111")
	eggID := mustUUID(t, "22222222-2222-2222-2222-222222222222")
	gyozaID := mustUUID(t, "33333333-3333-3333-3333-333333333333")
	couponID := mustUUID(t, "44444444-4444-4444-4444-444444444444")

	items := []catalog.Item{
		{ID: ramenID, Name: "Shoyu Ramen", Price: 900, Type: catalog.TypeBaseItem, IsAvailable: true},
		{ID: eggID, Name: "Ajitama", Price: 120, Type: catalog.TypeTopping, IsAvailable: true},
		{ID: gyozaID, Name: "Gyoza", Price: 450, Type: catalog.TypeBaseItem, IsAvailable: true},
		{ID: couponID, Name: "Lunch Coupon", Price: -100, Type: catalog.TypeDiscount, IsAvailable: true},
	}

	repo := newFakeRepo(items...)
	emitter := &captureEmitter{}
	svc := order.NewService(repo, order.NewValidator(fixedCatalog(items...)), emitter)

	created, err := svc.CreateOrder(ctx, order.CreateOrderInput{Groups: []order.GroupSpec{
		{Items: []order.ItemSpec{
			{MerchandiseID: ramenID},
			{MerchandiseID: eggID},
			{MerchandiseID: couponID},
		}},
		{Items: []order.ItemSpec{{MerchandiseID: gyozaID}}},
	}})
	require.NoError(t, err)
	assert.Equal(t, 1, created.CallNum)
	assert.Equal(t, order.StatusOrdered, created.Status)
	assert.Equal(t, int64(900+120-100+450), created.Total())

	ramenGroup := created.Groups[0].ID
	gyozaGroup := created.Groups[1].ID

	// Kitchen starts before the customer pays.
	require.NoError(t, svc.Prepare(ctx, ramenGroup))
	require.NoError(t, svc.Prepare(ctx, gyozaGroup))

	paid, err := svc.Pay(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusPaid, paid.Status)

	// First group finishing does not complete the order.
	require.NoError(t, svc.MarkReady(ctx, gyozaGroup))
	mid, err := svc.GetOrderByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusPaid, mid.Status)

	require.NoError(t, svc.MarkReady(ctx, ramenGroup))
	done, err := svc.GetOrderByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusReady, done.Status)

	assert.Equal(t, []string{
		"order-created",
		"group-status-updated", // ramen preparing
		"group-status-updated", // gyoza preparing
		"order-paid",
		"order-status-updated", // paid
		"group-status-updated", // gyoza ready
		"group-status-updated", // ramen ready
		"order-ready",
		"order-status-updated", // ready
	}, emitter.names())

	// A second order the same day takes the next call number.
	next, err := svc.CreateOrder(ctx, order.CreateOrderInput{Groups: []order.GroupSpec{
		{Items: []order.ItemSpec{{MerchandiseID: gyozaID}}},
	}})
	require.NoError(t, err)
	assert.Equal(t, 2, next.CallNum)
}

// Finishing every group while the order is unpaid leaves it ORDERED; the
// later payment does not retroactively complete it either, the next READY
// write does.
func TestOrderLifecycle_CompletionRequiresPayment(t *testing.T) {
	ctx := context.Background()

	ramenID := mustUUID(t, "11111111-1111-1111-1111-111111111111")
	items := []catalog.Item{
		{ID: ramenID, Name: "Shoyu Ramen", Price: 900, Type: catalog.TypeBaseItem, IsAvailable: true},
	}

	repo := newFakeRepo(items...)
	svc := order.NewService(repo, order.NewValidator(fixedCatalog(items...)), &captureEmitter{})

	created, err := svc.CreateOrder(ctx, order.CreateOrderInput{Groups: []order.GroupSpec{
		{Items: []order.ItemSpec{{MerchandiseID: ramenID}}},
	}})
	require.NoError(t, err)

	groupID := created.Groups[0].ID
	require.NoError(t, svc.MarkReady(ctx, groupID))

	unpaid, err := svc.GetOrderByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusOrdered, unpaid.Status)

	paid, err := svc.Pay(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusPaid, paid.Status)

	// Re-asserting the group status after payment completes the order.
	require.NoError(t, svc.MarkReady(ctx, groupID))
	done, err := svc.GetOrderByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusReady, done.Status)
}
