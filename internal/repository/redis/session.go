package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jafarshop/storefront/internal/domain"
	"github.com/jafarshop/storefront/pkg/errors"
)

const (
	DefaultPrefix = "storefront:"

	fieldCartView        = "cart_view"
	fieldCartSnapshot    = "cart_snapshot"
	fieldBuyNow          = "buy_now"
	fieldCheckout        = "checkout"
	fieldOTP             = "otp"
	fieldSelectedAddress = "selected_address"
	fieldAppliedCoupon   = "applied_coupon"
	fieldBackendCookie   = "backend_cookie"
)

// unlockScript deletes the lock only if it still holds our token
var unlockScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type sessionRepository struct {
	client *goredis.Client
	ttl    time.Duration
	prefix string
	logger *zap.Logger
}

// NewSessionRepository creates a Redis-backed session repository.
// Every write refreshes the session TTL.
func NewSessionRepository(client *goredis.Client, ttl time.Duration, logger *zap.Logger) *sessionRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &sessionRepository{
		client: client,
		ttl:    ttl,
		prefix: DefaultPrefix,
		logger: logger,
	}
}

// NewClient parses a redis:// URL and verifies the connection
func NewClient(ctx context.Context, redisURL string) (*goredis.Client, error) {
	opt, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := goredis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

func (r *sessionRepository) sessionKey(sessionID string) string {
	return r.prefix + "session:" + sessionID
}

func (r *sessionRepository) lockKey(sessionID string) string {
	return r.prefix + "lock:" + sessionID
}

// getJSON loads a hash field into out; found is false when the field is absent
func (r *sessionRepository) getJSON(ctx context.Context, sessionID, field string, out interface{}) (bool, error) {
	raw, err := r.client.HGet(ctx, r.sessionKey(sessionID), field).Result()
	if err == goredis.Nil {
		return false, nil
	}
	if err != nil {
		r.logger.Error("Failed to read session field", zap.String("field", field), zap.Error(err))
		return false, fmt.Errorf("failed to read session %s: %w", field, err)
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return false, fmt.Errorf("failed to decode session %s: %w", field, err)
	}
	return true, nil
}

func (r *sessionRepository) setJSON(ctx context.Context, sessionID, field string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode session %s: %w", field, err)
	}
	return r.setRaw(ctx, sessionID, field, string(data))
}

func (r *sessionRepository) setRaw(ctx context.Context, sessionID, field, value string) error {
	key := r.sessionKey(sessionID)

	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, key, field, value)
	pipe.Expire(ctx, key, r.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.Error("Failed to write session field", zap.String("field", field), zap.Error(err))
		return fmt.Errorf("failed to write session %s: %w", field, err)
	}
	return nil
}

func (r *sessionRepository) clear(ctx context.Context, sessionID, field string) error {
	if err := r.client.HDel(ctx, r.sessionKey(sessionID), field).Err(); err != nil {
		return fmt.Errorf("failed to clear session %s: %w", field, err)
	}
	return nil
}

func (r *sessionRepository) GetCartView(ctx context.Context, sessionID string) ([]domain.CartLineItem, bool, error) {
	var items []domain.CartLineItem
	found, err := r.getJSON(ctx, sessionID, fieldCartView, &items)
	return items, found, err
}

func (r *sessionRepository) SaveCartView(ctx context.Context, sessionID string, items []domain.CartLineItem) error {
	if items == nil {
		items = []domain.CartLineItem{}
	}
	return r.setJSON(ctx, sessionID, fieldCartView, items)
}

func (r *sessionRepository) GetCartSnapshot(ctx context.Context, sessionID string) ([]domain.CartLineItem, bool, error) {
	var items []domain.CartLineItem
	found, err := r.getJSON(ctx, sessionID, fieldCartSnapshot, &items)
	return items, found, err
}

func (r *sessionRepository) SaveCartSnapshot(ctx context.Context, sessionID string, items []domain.CartLineItem) error {
	if items == nil {
		items = []domain.CartLineItem{}
	}
	return r.setJSON(ctx, sessionID, fieldCartSnapshot, items)
}

func (r *sessionRepository) GetBuyNow(ctx context.Context, sessionID string) (*domain.BuyNowItem, error) {
	var item domain.BuyNowItem
	found, err := r.getJSON(ctx, sessionID, fieldBuyNow, &item)
	if err != nil || !found {
		return nil, err
	}
	return &item, nil
}

func (r *sessionRepository) SaveBuyNow(ctx context.Context, sessionID string, item *domain.BuyNowItem) error {
	return r.setJSON(ctx, sessionID, fieldBuyNow, item)
}

func (r *sessionRepository) ClearBuyNow(ctx context.Context, sessionID string) error {
	return r.clear(ctx, sessionID, fieldBuyNow)
}

func (r *sessionRepository) GetCheckout(ctx context.Context, sessionID string) (*domain.CheckoutState, error) {
	var state domain.CheckoutState
	found, err := r.getJSON(ctx, sessionID, fieldCheckout, &state)
	if err != nil || !found {
		return nil, err
	}
	return &state, nil
}

func (r *sessionRepository) SaveCheckout(ctx context.Context, sessionID string, state *domain.CheckoutState) error {
	return r.setJSON(ctx, sessionID, fieldCheckout, state)
}

func (r *sessionRepository) GetOTPState(ctx context.Context, sessionID string) (*domain.OTPState, error) {
	var state domain.OTPState
	found, err := r.getJSON(ctx, sessionID, fieldOTP, &state)
	if err != nil || !found {
		return nil, err
	}
	return &state, nil
}

func (r *sessionRepository) SaveOTPState(ctx context.Context, sessionID string, state *domain.OTPState) error {
	return r.setJSON(ctx, sessionID, fieldOTP, state)
}

func (r *sessionRepository) ClearOTPState(ctx context.Context, sessionID string) error {
	return r.clear(ctx, sessionID, fieldOTP)
}

func (r *sessionRepository) GetSelectedAddress(ctx context.Context, sessionID string) (string, error) {
	v, err := r.client.HGet(ctx, r.sessionKey(sessionID), fieldSelectedAddress).Result()
	if err == goredis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read selected address: %w", err)
	}
	return v, nil
}

func (r *sessionRepository) SaveSelectedAddress(ctx context.Context, sessionID string, addressID string) error {
	return r.setRaw(ctx, sessionID, fieldSelectedAddress, addressID)
}

func (r *sessionRepository) GetAppliedCoupon(ctx context.Context, sessionID string) (*domain.AppliedCoupon, error) {
	var applied domain.AppliedCoupon
	found, err := r.getJSON(ctx, sessionID, fieldAppliedCoupon, &applied)
	if err != nil || !found {
		return nil, err
	}
	return &applied, nil
}

func (r *sessionRepository) SaveAppliedCoupon(ctx context.Context, sessionID string, coupon *domain.AppliedCoupon) error {
	return r.setJSON(ctx, sessionID, fieldAppliedCoupon, coupon)
}

func (r *sessionRepository) ClearAppliedCoupon(ctx context.Context, sessionID string) error {
	return r.clear(ctx, sessionID, fieldAppliedCoupon)
}

func (r *sessionRepository) GetBackendCookie(ctx context.Context, sessionID string) (string, error) {
	v, err := r.client.HGet(ctx, r.sessionKey(sessionID), fieldBackendCookie).Result()
	if err == goredis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read backend cookie: %w", err)
	}
	return v, nil
}

func (r *sessionRepository) SaveBackendCookie(ctx context.Context, sessionID string, cookie string) error {
	return r.setRaw(ctx, sessionID, fieldBackendCookie, cookie)
}

func (r *sessionRepository) Lock(ctx context.Context, sessionID string, ttl time.Duration) (func(), error) {
	key := r.lockKey(sessionID)
	token := uuid.New().String()

	ok, err := r.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire session lock: %w", err)
	}
	if !ok {
		return nil, &errors.ErrConflict{Message: "another cart update is in progress"}
	}

	return func() {
		// Released with a fresh context so a cancelled request still frees the lock
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := unlockScript.Run(releaseCtx, r.client, []string{key}, token).Err(); err != nil && err != goredis.Nil {
			r.logger.Warn("Failed to release session lock", zap.String("session_id", sessionID), zap.Error(err))
		}
	}, nil
}

func (r *sessionRepository) Dump(ctx context.Context, sessionID string) (map[string]string, error) {
	result, err := r.client.HGetAll(ctx, r.sessionKey(sessionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to dump session: %w", err)
	}
	if len(result) == 0 {
		return nil, &errors.ErrNotFound{Resource: "session", ID: sessionID}
	}
	delete(result, fieldBackendCookie)
	return result, nil
}

func (r *sessionRepository) Destroy(ctx context.Context, sessionID string) error {
	pipe := r.client.Pipeline()
	pipe.Del(ctx, r.sessionKey(sessionID))
	pipe.Del(ctx, r.lockKey(sessionID))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
