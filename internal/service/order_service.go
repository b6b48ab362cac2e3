package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jafarshop/storefront/internal/backend"
	"github.com/jafarshop/storefront/internal/domain"
	"github.com/jafarshop/storefront/internal/repository"
	"github.com/jafarshop/storefront/pkg/errors"
)

const (
	// OrdersPageSize is the order history page size
	OrdersPageSize = 10

	lookupPageSize = 50
)

// TimelineStep is one row of the order tracker
type TimelineStep struct {
	Title     string             `json:"title"`
	Date      string             `json:"date"`
	Desc      string             `json:"desc"`
	Active    bool               `json:"active"`
	Completed bool               `json:"completed"`
	Status    domain.OrderStatus `json:"status"`
	IsError   bool               `json:"is_error,omitempty"`
}

// OrderView is an order with what the history page needs to render it
type OrderView struct {
	Order     domain.Order   `json:"order"`
	CanCancel bool           `json:"can_cancel"`
	Timeline  []TimelineStep `json:"timeline"`
}

// OrderPage is one page of order history
type OrderPage struct {
	Orders     []OrderView `json:"orders"`
	Page       int         `json:"page"`
	TotalPages int         `json:"total_pages"`
}

type flowStep struct {
	key   domain.OrderStatus
	title string
	desc  string
}

// deliveryFlow is the path of an order that is not cancelled or returned
var deliveryFlow = []flowStep{
	{domain.OrderStatusProcessing, "Order Processing", "We are processing your order"},
	{domain.OrderStatusConfirmed, "Order Confirmed", "Your order has been confirmed"},
	{domain.OrderStatusShipped, "Shipped", "Your item has been shipped"},
	{domain.OrderStatusInTransit, "In Transit", "Your item is on the way"},
	{domain.OrderStatusOutForDelivery, "Out for Delivery", "Your item is out for delivery"},
	{domain.OrderStatusDelivered, "Delivered", "Item delivered successfully"},
}

type orderService struct {
	client *backend.Client
	repos  *repository.Repositories
	logger *zap.Logger
}

// NewOrderService creates a new order service
func NewOrderService(client *backend.Client, repos *repository.Repositories, logger *zap.Logger) *orderService {
	return &orderService{
		client: client,
		repos:  repos,
		logger: logger,
	}
}

// List returns one page of the customer's orders
func (s *orderService) List(ctx context.Context, customerID string, page int) (*OrderPage, error) {
	if page < 1 {
		page = 1
	}
	list, err := s.client.CustomerOrders(ctx, customerID, page, OrdersPageSize)
	if err != nil {
		return nil, err
	}

	orders := make([]OrderView, 0, len(list.Data))
	for _, o := range list.Data {
		orders = append(orders, OrderView{
			Order:     o,
			CanCancel: o.Status.CanTransitionTo(domain.OrderStatusCancelled),
			Timeline:  Timeline(o),
		})
	}

	return &OrderPage{
		Orders:     orders,
		Page:       page,
		TotalPages: list.Pagination.TotalPages,
	}, nil
}

// Cancel cancels an order the seller has not confirmed yet
func (s *orderService) Cancel(ctx context.Context, sessionID, customerID, orderID, reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return &errors.ErrValidation{
			Message: "Please provide a reason for cancellation",
			Fields:  map[string]string{"reason": "required"},
		}
	}

	order, err := s.find(ctx, customerID, orderID)
	if err != nil {
		return err
	}

	// Validate state transition
	if !order.Status.CanTransitionTo(domain.OrderStatusCancelled) {
		return &errors.ErrInvalidStateTransition{
			From: order.Status,
			To:   domain.OrderStatusCancelled,
		}
	}

	if err := s.client.UpdateOrder(ctx, order.ID, backend.UpdateOrderRequest{
		Status:       domain.OrderStatusCancelled,
		CancelReason: reason,
	}); err != nil {
		return err
	}

	recordEvent(ctx, s.repos, s.logger, sessionID, customerID, EventOrderCancelled, map[string]interface{}{
		"order_id": order.OrderID,
		"from":     order.Status,
		"to":       domain.OrderStatusCancelled,
		"reason":   reason,
	})

	return nil
}

// Track returns the tracker timeline of one order
func (s *orderService) Track(ctx context.Context, customerID, orderID string) ([]TimelineStep, error) {
	order, err := s.find(ctx, customerID, orderID)
	if err != nil {
		return nil, err
	}
	return Timeline(*order), nil
}

// find looks an order up by its _id or orderId in the customer's history
func (s *orderService) find(ctx context.Context, customerID, orderID string) (*domain.Order, error) {
	for page := 1; ; page++ {
		list, err := s.client.CustomerOrders(ctx, customerID, page, lookupPageSize)
		if err != nil {
			return nil, err
		}
		for i := range list.Data {
			if list.Data[i].ID == orderID || list.Data[i].OrderID == orderID {
				return &list.Data[i], nil
			}
		}
		if len(list.Data) == 0 || page >= list.Pagination.TotalPages {
			break
		}
	}
	return nil, &errors.ErrNotFound{Resource: "order", ID: orderID}
}

// Timeline rebuilds the tracker steps of an order from its status and tracking history
func Timeline(order domain.Order) []TimelineStep {
	history := order.Shipping.TrackingHistory

	current := -1
	for i, step := range deliveryFlow {
		if step.key == order.Status {
			current = i
			break
		}
	}
	failed := order.Status.IsTerminalFailure()

	steps := make([]TimelineStep, 0, len(deliveryFlow)+1)
	for i, step := range deliveryFlow {
		entry := matchHistory(history, step)

		var date string
		if entry != nil {
			date = entryDate(*entry)
		}
		if date == "" {
			if step.key == domain.OrderStatusProcessing {
				date = formatTime(order.CreatedAt)
			}
			if step.key == domain.OrderStatusConfirmed && i <= current {
				date = formatTime(order.CreatedAt)
			}
		}

		active := current == i
		completed := current > i || entry != nil

		if completed || active || current >= i {
			if date == "" {
				if active {
					date = "In Progress"
				} else {
					date = "Completed"
				}
			}
			desc := step.desc
			if entry != nil && entry.Description != "" {
				desc = entry.Description
			}
			steps = append(steps, TimelineStep{
				Title:     step.title,
				Date:      date,
				Desc:      desc,
				Active:    active,
				Completed: completed,
				Status:    step.key,
			})
			continue
		}

		if !failed {
			steps = append(steps, TimelineStep{
				Title:  step.title,
				Date:   "Pending",
				Desc:   "Pending",
				Status: step.key,
			})
		}
	}

	switch order.Status {
	case domain.OrderStatusCancelled:
		steps = append(steps, TimelineStep{
			Title:     "Cancelled",
			Date:      formatTime(order.UpdatedAt),
			Desc:      "Order has been cancelled",
			Active:    true,
			Completed: true,
			Status:    domain.OrderStatusCancelled,
			IsError:   true,
		})
	case domain.OrderStatusRTO:
		steps = append(steps, TimelineStep{
			Title:     "RTO (Return to Origin)",
			Date:      formatTime(order.UpdatedAt),
			Desc:      "Order is being returned to origin",
			Active:    true,
			Completed: true,
			Status:    domain.OrderStatusRTO,
			IsError:   true,
		})
	}

	return steps
}

func matchHistory(history []domain.TrackingEntry, step flowStep) *domain.TrackingEntry {
	key := string(step.key)
	for i := range history {
		e := &history[i]
		if e.Status == key || e.Status == step.title || e.Action == key || e.Action == step.title {
			return e
		}
	}
	return nil
}

// entryDate prefers the scan timestamp over the date, normalizing parseable values
func entryDate(e domain.TrackingEntry) string {
	raw := e.Timestamp
	if raw == "" {
		raw = e.Date
	}
	if raw == "" {
		return ""
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return formatTime(t)
		}
	}
	return raw
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
