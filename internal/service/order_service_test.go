package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jafarshop/storefront/internal/domain"
	"github.com/jafarshop/storefront/pkg/errors"
)

var (
	orderCreated = time.Date(2026, 2, 10, 9, 30, 0, 0, time.UTC)
	orderUpdated = time.Date(2026, 2, 12, 18, 0, 0, 0, time.UTC)
)

func testOrder(id string, status domain.OrderStatus) domain.Order {
	return domain.Order{
		ID:        id,
		OrderID:   "ORD-" + id,
		Product:   domain.Product{ID: "p-1", Name: "Snake Plant"},
		Quantity:  1,
		Price:     499,
		Status:    status,
		CreatedAt: orderCreated,
		UpdatedAt: orderUpdated,
	}
}

func newOrderFixture(t *testing.T, orders ...domain.Order) (*fakeBackend, *orderService) {
	t.Helper()
	fb, client := newFakeBackend(t, domain.Customer{ID: "cust-1"})
	fb.handle(http.MethodGet, "/order/customers/cust-1", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]interface{}{
			"success":    true,
			"data":       orders,
			"pagination": map[string]interface{}{"page": 1, "totalPages": 1},
		})
	})
	return fb, NewOrderService(client, setupTestRepos(t), zap.NewNop())
}

func titles(steps []TimelineStep) []string {
	out := make([]string, 0, len(steps))
	for _, s := range steps {
		out = append(out, s.Title)
	}
	return out
}

func TestTimeline_ShippedWithoutHistory(t *testing.T) {
	steps := Timeline(testOrder("o-1", domain.OrderStatusShipped))

	require.Len(t, steps, 6)
	created := orderCreated.Format(time.RFC3339)

	assert.Equal(t, created, steps[0].Date)
	assert.True(t, steps[0].Completed)
	assert.Equal(t, created, steps[1].Date)
	assert.True(t, steps[1].Completed)

	assert.Equal(t, "Shipped", steps[2].Title)
	assert.True(t, steps[2].Active)
	assert.False(t, steps[2].Completed)
	assert.Equal(t, "In Progress", steps[2].Date)

	for _, s := range steps[3:] {
		assert.Equal(t, "Pending", s.Date)
		assert.False(t, s.Active)
		assert.False(t, s.Completed)
	}
}

func TestTimeline_UsesTrackingHistory(t *testing.T) {
	order := testOrder("o-1", domain.OrderStatusInTransit)
	order.Shipping.TrackingHistory = []domain.TrackingEntry{
		{Status: "Shipped", Timestamp: "2026-02-11T08:00:00Z", Description: "Picked up by courier"},
		{Action: "In Transit", Date: "2026-02-12"},
		{Status: "Delivered", Date: "next week"},
	}

	steps := Timeline(order)
	require.Len(t, steps, 6)

	assert.Equal(t, "2026-02-11T08:00:00Z", steps[2].Date)
	assert.Equal(t, "Picked up by courier", steps[2].Desc)

	assert.True(t, steps[3].Active)
	assert.True(t, steps[3].Completed)
	assert.Equal(t, "2026-02-12T00:00:00Z", steps[3].Date)

	assert.False(t, steps[4].Completed)
	assert.Equal(t, "Pending", steps[4].Date)

	// A scan ahead of the order status still counts as done, with its raw date
	assert.True(t, steps[5].Completed)
	assert.Equal(t, "next week", steps[5].Date)
}

func TestTimeline_Delivered(t *testing.T) {
	steps := Timeline(testOrder("o-1", domain.OrderStatusDelivered))
	require.Len(t, steps, 6)
	for _, s := range steps[:5] {
		assert.True(t, s.Completed, s.Title)
	}
	assert.True(t, steps[5].Active)
	assert.Equal(t, "In Progress", steps[5].Date)
	assert.Equal(t, "Completed", steps[2].Date)
}

func TestTimeline_CancelledShowsOnlyReachedSteps(t *testing.T) {
	order := testOrder("o-1", domain.OrderStatusCancelled)
	order.Shipping.TrackingHistory = []domain.TrackingEntry{
		{Status: "Confirmed", Date: "2026-02-10"},
	}

	steps := Timeline(order)
	assert.Equal(t, []string{"Order Confirmed", "Cancelled"}, titles(steps))

	last := steps[len(steps)-1]
	assert.True(t, last.IsError)
	assert.True(t, last.Active)
	assert.Equal(t, orderUpdated.Format(time.RFC3339), last.Date)
}

func TestTimeline_RTO(t *testing.T) {
	steps := Timeline(testOrder("o-1", domain.OrderStatusRTO))
	assert.Equal(t, []string{"RTO (Return to Origin)"}, titles(steps))
	assert.Equal(t, domain.OrderStatusRTO, steps[0].Status)
}

func TestOrderService_List(t *testing.T) {
	fb, svc := newOrderFixture(t,
		testOrder("o-1", domain.OrderStatusProcessing),
		testOrder("o-2", domain.OrderStatusShipped),
	)

	page, err := svc.List(context.Background(), "cust-1", 0)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 1, page.TotalPages)
	require.Len(t, page.Orders, 2)
	assert.True(t, page.Orders[0].CanCancel)
	assert.False(t, page.Orders[1].CanCancel)
	assert.Len(t, page.Orders[0].Timeline, 6)

	calls := fb.calls(http.MethodGet, "/order/customers/cust-1")
	require.Len(t, calls, 1)
	assert.Equal(t, "limit=10&page=1", calls[0].Query)
}

func TestOrderService_Cancel(t *testing.T) {
	fb, svc := newOrderFixture(t,
		testOrder("o-1", domain.OrderStatusProcessing),
		testOrder("o-2", domain.OrderStatusShipped),
	)
	ctx := context.Background()

	err := svc.Cancel(ctx, testSession, "cust-1", "ORD-o-1", "  ")
	var validation *errors.ErrValidation
	require.ErrorAs(t, err, &validation)

	err = svc.Cancel(ctx, testSession, "cust-1", "o-2", "Changed my mind")
	var transition *errors.ErrInvalidStateTransition
	require.ErrorAs(t, err, &transition)
	assert.Equal(t, domain.OrderStatusShipped, transition.From)

	err = svc.Cancel(ctx, testSession, "cust-1", "missing", "Changed my mind")
	var nf *errors.ErrNotFound
	require.ErrorAs(t, err, &nf)

	require.NoError(t, svc.Cancel(ctx, testSession, "cust-1", "ORD-o-1", "Changed my mind"))

	updates := fb.calls(http.MethodPut, "/order/o-1")
	require.Len(t, updates, 1)
	assert.Equal(t, "Cancelled", updates[0].Body["status"])
	assert.Equal(t, "Changed my mind", updates[0].Body["cancelReason"])

	events, err := svc.repos.Event.ListBySession(ctx, testSession, 1)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, EventOrderCancelled, events[0].EventType)
}

func TestOrderService_CancelConfirmedOrderRefused(t *testing.T) {
	fb, svc := newOrderFixture(t, testOrder("o-1", domain.OrderStatusConfirmed))

	page, err := svc.List(context.Background(), "cust-1", 1)
	require.NoError(t, err)
	require.Len(t, page.Orders, 1)
	assert.False(t, page.Orders[0].CanCancel)

	err = svc.Cancel(context.Background(), testSession, "cust-1", "o-1", "Changed my mind")
	var transition *errors.ErrInvalidStateTransition
	require.ErrorAs(t, err, &transition)
	assert.Equal(t, domain.OrderStatusConfirmed, transition.From)
	assert.Equal(t, domain.OrderStatusCancelled, transition.To)
	assert.Empty(t, fb.calls(http.MethodPut, "/order/o-1"))
}

func TestOrderService_CancelBackendRefusal(t *testing.T) {
	fb, svc := newOrderFixture(t, testOrder("o-1", domain.OrderStatusProcessing))
	fb.handle(http.MethodPut, "/order/o-1", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]interface{}{"success": false})
	})

	err := svc.Cancel(context.Background(), testSession, "cust-1", "o-1", "Ordered twice")
	var upstream *errors.ErrUpstream
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, "Failed to cancel order", upstream.Message)
}

func TestOrderService_Track(t *testing.T) {
	_, svc := newOrderFixture(t, testOrder("o-1", domain.OrderStatusOutForDelivery))

	steps, err := svc.Track(context.Background(), "cust-1", "o-1")
	require.NoError(t, err)
	require.Len(t, steps, 6)
	assert.True(t, steps[4].Active)
}
