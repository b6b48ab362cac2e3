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

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newAuthFixture(t *testing.T) (*fakeBackend, *authService, *fakeClock) {
	t.Helper()
	fb, client := newFakeBackend(t, domain.Customer{ID: "cust-1", Mobile: "9876543210"})
	clock := &fakeClock{t: testNow}
	svc := NewAuthService(client, setupTestRepos(t), 10*time.Minute, zap.NewNop())
	svc.now = clock.now

	fb.handle(http.MethodPost, "/customer/send-otp", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]interface{}{"success": true, "message": "OTP sent"})
	})
	return fb, svc, clock
}

func TestAuthService_SendOTPStartsCooldown(t *testing.T) {
	fb, svc, clock := newAuthFixture(t)
	ctx := context.Background()

	state, err := svc.SendOTP(ctx, testSession, " 9876543210 ")
	require.NoError(t, err)
	assert.Equal(t, domain.LoginStepOTP, state.Step)
	assert.Equal(t, 600, state.CooldownSeconds)
	assert.Equal(t, "10:00", state.CooldownDisplay)

	sent := fb.calls(http.MethodPost, "/customer/send-otp")
	require.Len(t, sent, 1)
	assert.Equal(t, "9876543210", sent[0].Body["mobile"])

	clock.advance(90*time.Second + 500*time.Millisecond)
	_, err = svc.SendOTP(ctx, testSession, "9876543210")
	var cooldown *errors.ErrCooldown
	require.ErrorAs(t, err, &cooldown)
	assert.Equal(t, 509*time.Second, cooldown.Remaining)

	current, err := svc.State(ctx, testSession)
	require.NoError(t, err)
	assert.Equal(t, domain.LoginStepOTP, current.Step)
	assert.Equal(t, "9876543210", current.Mobile)
	assert.Equal(t, "8:29", current.CooldownDisplay)
}

func TestAuthService_CooldownClearsAtZero(t *testing.T) {
	_, svc, clock := newAuthFixture(t)
	ctx := context.Background()

	_, err := svc.SendOTP(ctx, testSession, "9876543210")
	require.NoError(t, err)

	clock.advance(10 * time.Minute)
	remaining, err := svc.Cooldown(ctx, testSession)
	require.NoError(t, err)
	assert.Zero(t, remaining)

	stored, err := svc.repos.Session.GetOTPState(ctx, testSession)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Nil(t, stored.CooldownUntil)
	assert.Equal(t, domain.LoginStepOTP, stored.Step)

	_, err = svc.SendOTP(ctx, testSession, "9876543210")
	assert.NoError(t, err)
}

func TestAuthService_SendOTPValidation(t *testing.T) {
	fb, svc, _ := newAuthFixture(t)

	for _, mobile := range []string{"", "12345", "98765432101", "98765abcde"} {
		_, err := svc.SendOTP(context.Background(), testSession, mobile)
		var validation *errors.ErrValidation
		assert.ErrorAs(t, err, &validation, mobile)
	}
	assert.Empty(t, fb.calls(http.MethodPost, "/customer/send-otp"))
}

func TestAuthService_SendOTPBackendRefusal(t *testing.T) {
	fb, svc, _ := newAuthFixture(t)
	fb.handle(http.MethodPost, "/customer/send-otp", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]interface{}{"success": false, "message": "Too many attempts"})
	})

	_, err := svc.SendOTP(context.Background(), testSession, "9876543210")
	var upstream *errors.ErrUpstream
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, "Too many attempts", upstream.Message)

	state, err := svc.State(context.Background(), testSession)
	require.NoError(t, err)
	assert.Equal(t, domain.LoginStepMobile, state.Step)
	assert.Zero(t, state.CooldownSeconds)
}

func TestAuthService_VerifyOTPBindsBackendCookie(t *testing.T) {
	fb, svc, _ := newAuthFixture(t)
	ctx := context.Background()
	fb.handle(http.MethodPost, "/customer/verify-otp", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "token", Value: "abc123", Path: "/", HttpOnly: true})
		writeJSON(w, map[string]interface{}{
			"success":   true,
			"isNewUser": true,
			"customer":  map[string]interface{}{"_id": "cust-1", "mobile": "9876543210"},
		})
	})

	_, err := svc.VerifyOTP(ctx, testSession, VerifyOTPRequest{OTP: "123456"})
	var validation *errors.ErrValidation
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "Request an OTP first", validation.Message)

	_, err = svc.SendOTP(ctx, testSession, "9876543210")
	require.NoError(t, err)

	result, err := svc.VerifyOTP(ctx, testSession, VerifyOTPRequest{OTP: "123456"})
	require.NoError(t, err)
	assert.True(t, result.IsNewUser)
	assert.False(t, result.ForceLogout)
	assert.Equal(t, "cust-1", result.Customer.ID)

	verify := fb.calls(http.MethodPost, "/customer/verify-otp")
	require.Len(t, verify, 1)
	assert.Equal(t, "9876543210", verify[0].Body["mobile"])

	cookie, err := svc.repos.Session.GetBackendCookie(ctx, testSession)
	require.NoError(t, err)
	assert.Equal(t, "token=abc123", cookie)

	stored, err := svc.repos.Session.GetOTPState(ctx, testSession)
	require.NoError(t, err)
	assert.Nil(t, stored)

	events, err := svc.repos.Event.ListBySession(ctx, testSession, 1)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, EventLogin, events[0].EventType)
}

func TestAuthService_VerifyOTPRejected(t *testing.T) {
	fb, svc, _ := newAuthFixture(t)
	ctx := context.Background()
	fb.handle(http.MethodPost, "/customer/verify-otp", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]interface{}{"success": false, "message": "Invalid OTP"})
	})

	_, err := svc.SendOTP(ctx, testSession, "9876543210")
	require.NoError(t, err)

	_, err = svc.VerifyOTP(ctx, testSession, VerifyOTPRequest{OTP: "000000"})
	var unauthorized *errors.ErrUnauthorized
	require.ErrorAs(t, err, &unauthorized)

	// Still waiting for the right code
	state, err := svc.State(ctx, testSession)
	require.NoError(t, err)
	assert.Equal(t, domain.LoginStepOTP, state.Step)
}

func TestAuthService_VerifyUpdateMobile(t *testing.T) {
	fb, svc, _ := newAuthFixture(t)
	ctx := context.Background()
	fb.handle(http.MethodPost, "/customer/verify-update-mobile-otp", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "token", Value: "fresh", Path: "/"})
		writeJSON(w, map[string]interface{}{"success": true, "message": "Mobile updated"})
	})

	_, err := svc.SendOTP(ctx, testSession, "9123456780")
	require.NoError(t, err)

	result, err := svc.VerifyOTP(ctx, testSession, VerifyOTPRequest{OTP: "654321", UpdateMobile: true})
	require.NoError(t, err)
	assert.False(t, result.ForceLogout)

	calls := fb.calls(http.MethodPost, "/customer/verify-update-mobile-otp")
	require.Len(t, calls, 1)
	assert.Equal(t, "update-mobile", calls[0].Body["mode"])
	assert.Empty(t, fb.calls(http.MethodPost, "/customer/verify-otp"))

	cookie, err := svc.repos.Session.GetBackendCookie(ctx, testSession)
	require.NoError(t, err)
	assert.Equal(t, "token=fresh", cookie)
}

func TestAuthService_VerifyForcedLogoutBindsNoCookie(t *testing.T) {
	fb, svc, _ := newAuthFixture(t)
	ctx := context.Background()
	fb.handle(http.MethodPost, "/customer/verify-update-mobile-otp", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "token", Value: "stale", Path: "/"})
		writeJSON(w, map[string]interface{}{"success": true, "forceLogout": true})
	})

	_, err := svc.SendOTP(ctx, testSession, "9123456780")
	require.NoError(t, err)

	result, err := svc.VerifyOTP(ctx, testSession, VerifyOTPRequest{OTP: "654321", UpdateMobile: true})
	require.NoError(t, err)
	assert.True(t, result.ForceLogout)

	cookie, err := svc.repos.Session.GetBackendCookie(ctx, testSession)
	require.NoError(t, err)
	assert.Empty(t, cookie)
}

func TestAuthService_LogoutDestroysSession(t *testing.T) {
	fb, svc, _ := newAuthFixture(t)
	ctx := context.Background()

	require.NoError(t, svc.repos.Session.SaveBackendCookie(ctx, testSession, "token=abc"))
	require.NoError(t, svc.repos.Session.SaveSelectedAddress(ctx, testSession, "addr-1"))
	fb.failWith(http.MethodPost, "/customer/logout", http.StatusInternalServerError)

	require.NoError(t, svc.Logout(ctx, testSession, "cust-1"))

	cookie, err := svc.repos.Session.GetBackendCookie(ctx, testSession)
	require.NoError(t, err)
	assert.Empty(t, cookie)
	assert.Len(t, fb.calls(http.MethodPost, "/customer/logout"), 1)
}

func TestFormatCooldown(t *testing.T) {
	tests := []struct {
		seconds int
		want    string
	}{
		{600, "10:00"},
		{509, "8:29"},
		{59, "0:59"},
		{0, "0:00"},
		{-4, "0:00"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatCooldown(tt.seconds))
	}
}

func TestCookieHeader(t *testing.T) {
	got := cookieHeader([]string{
		"token=abc; Path=/; HttpOnly",
		"refresh=xyz; Max-Age=3600",
		"",
	})
	assert.Equal(t, "token=abc; refresh=xyz", got)
	assert.Empty(t, cookieHeader(nil))
}
