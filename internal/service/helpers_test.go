package service

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/jafarshop/storefront/internal/backend"
	"github.com/jafarshop/storefront/internal/config"
	"github.com/jafarshop/storefront/internal/domain"
	"github.com/jafarshop/storefront/internal/repository"
	"github.com/jafarshop/storefront/internal/repository/logsink"
	redisrepo "github.com/jafarshop/storefront/internal/repository/redis"
)

// setupTestRepos wires a miniredis session store and an in-memory event log
func setupTestRepos(t *testing.T) *repository.Repositories {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})

	return &repository.Repositories{
		Session: redisrepo.NewSessionRepository(client, time.Hour, zap.NewNop()),
		Event:   logsink.NewEventRepository(zap.NewNop()),
	}
}

type recordedRequest struct {
	Method string
	Path   string
	Query  string
	Body   map[string]interface{}
}

// fakeBackend is an in-memory stand-in for the storefront REST API. Cart
// writes apply to customer.Cart so refreshes observe them.
type fakeBackend struct {
	t *testing.T

	mu       sync.Mutex
	customer domain.Customer
	requests []recordedRequest
	// fail maps "METHOD /path" to a status code to answer with
	fail     map[string]int
	handlers map[string]http.HandlerFunc
}

func newFakeBackend(t *testing.T, customer domain.Customer) (*fakeBackend, *backend.Client) {
	t.Helper()
	fb := &fakeBackend{
		t:        t,
		customer: customer,
		fail:     map[string]int{},
		handlers: map[string]http.HandlerFunc{},
	}
	srv := httptest.NewServer(http.HandlerFunc(fb.serve))
	t.Cleanup(srv.Close)
	return fb, backend.NewClient(config.BackendConfig{BaseURL: srv.URL, Timeout: 5 * time.Second}, zap.NewNop())
}

func (fb *fakeBackend) handle(method, path string, h http.HandlerFunc) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.handlers[method+" "+path] = h
}

func (fb *fakeBackend) failWith(method, path string, status int) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.fail[method+" "+path] = status
}

func (fb *fakeBackend) clearFailure(method, path string) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	delete(fb.fail, method+" "+path)
}

func (fb *fakeBackend) calls(method, path string) []recordedRequest {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	var out []recordedRequest
	for _, r := range fb.requests {
		if r.Method == method && r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

func (fb *fakeBackend) cart() []domain.CartLineItem {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return append([]domain.CartLineItem{}, fb.customer.Cart...)
}

func (fb *fakeBackend) serve(w http.ResponseWriter, r *http.Request) {
	var body map[string]interface{}
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)
	}

	fb.mu.Lock()
	key := r.Method + " " + r.URL.Path
	fb.requests = append(fb.requests, recordedRequest{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery, Body: body})
	status, failing := fb.fail[key]
	h := fb.handlers[key]
	fb.mu.Unlock()

	if failing {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"message":"backend unavailable"}`))
		return
	}
	if h != nil {
		h(w, r)
		return
	}

	cartPath := "/customer/" + fb.customer.ID + "/cart"
	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/customer/me":
		fb.mu.Lock()
		data, _ := json.Marshal(fb.customer)
		fb.mu.Unlock()
		_, _ = w.Write(data)
	case r.Method == http.MethodPost && r.URL.Path == cartPath:
		fb.applyDelta(body)
		_, _ = w.Write([]byte(`{"message":"ok"}`))
	case r.Method == http.MethodDelete && r.URL.Path == cartPath:
		fb.removeLine(body)
		_, _ = w.Write([]byte(`{"message":"removed"}`))
	default:
		_, _ = w.Write([]byte(`{"success":true}`))
	}
}

func (fb *fakeBackend) applyDelta(body map[string]interface{}) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	productID, _ := body["productId"].(string)
	variantID, _ := body["variantId"].(string)
	delta := int(body["quantity"].(float64))
	for i := range fb.customer.Cart {
		if fb.customer.Cart[i].Matches(productID, variantID) {
			fb.customer.Cart[i].Quantity += delta
			return
		}
	}
	fb.customer.Cart = append(fb.customer.Cart, domain.CartLineItem{
		ProductID: domain.ProductRef{ID: productID, Product: &domain.Product{ID: productID, Stock: 10, MRP: 100, Price: 100}},
		Quantity:  delta,
	})
}

func (fb *fakeBackend) removeLine(body map[string]interface{}) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	productID, _ := body["productId"].(string)
	variantID, _ := body["variantId"].(string)
	for i := range fb.customer.Cart {
		if fb.customer.Cart[i].Matches(productID, variantID) {
			fb.customer.Cart = append(fb.customer.Cart[:i], fb.customer.Cart[i+1:]...)
			return
		}
	}
}

func testProduct(id string, mrp, price, discount float64, stock int) *domain.Product {
	return &domain.Product{ID: id, Slug: id, Name: "Product " + id, MRP: mrp, Price: price, Discount: discount, Stock: stock}
}

func cartLine(p *domain.Product, qty int) domain.CartLineItem {
	return domain.CartLineItem{
		ProductID:   domain.ProductRef{ID: p.ID, Product: p},
		Quantity:    qty,
		PriceAtTime: p.Price,
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
