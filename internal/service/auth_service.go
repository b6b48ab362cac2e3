package service

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jafarshop/storefront/internal/backend"
	"github.com/jafarshop/storefront/internal/domain"
	"github.com/jafarshop/storefront/internal/repository"
	"github.com/jafarshop/storefront/pkg/errors"
)

var (
	mobilePattern = regexp.MustCompile(`^\d{10}$`)
	otpPattern    = regexp.MustCompile(`^\d{6}$`)
	pinPattern    = regexp.MustCompile(`^\d{6}$`)
)

// LoginState is the login page model
type LoginState struct {
	Step            domain.LoginStep `json:"step"`
	Mobile          string           `json:"mobile,omitempty"`
	CooldownSeconds int              `json:"cooldown_seconds"`
	CooldownDisplay string           `json:"cooldown_display,omitempty"`
}

// LoginResult is returned once the OTP is accepted
type LoginResult struct {
	Customer    *domain.Customer `json:"customer"`
	IsNewUser   bool             `json:"is_new_user"`
	ForceLogout bool             `json:"force_logout"`
	Message     string           `json:"message,omitempty"`
}

type authService struct {
	client   *backend.Client
	repos    *repository.Repositories
	cooldown time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// NewAuthService creates a new OTP login service
func NewAuthService(client *backend.Client, repos *repository.Repositories, cooldown time.Duration, logger *zap.Logger) *authService {
	return &authService{
		client:   client,
		repos:    repos,
		cooldown: cooldown,
		logger:   logger,
		now:      time.Now,
	}
}

// State returns the session's position in the login flow
func (s *authService) State(ctx context.Context, sessionID string) (*LoginState, error) {
	state, err := s.repos.Session.GetOTPState(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	remaining, err := s.Cooldown(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	out := &LoginState{Step: domain.LoginStepMobile, CooldownSeconds: remaining}
	if state != nil {
		if state.Step != "" {
			out.Step = state.Step
		}
		out.Mobile = state.Mobile
	}
	if remaining > 0 {
		out.CooldownDisplay = FormatCooldown(remaining)
	}
	return out, nil
}

// SendOTP requests an OTP for mobile unless the resend cooldown is running
func (s *authService) SendOTP(ctx context.Context, sessionID, mobile string) (*LoginState, error) {
	mobile = strings.TrimSpace(mobile)
	if !mobilePattern.MatchString(mobile) {
		return nil, &errors.ErrValidation{
			Message: "Enter a valid 10 digit mobile number",
			Fields:  map[string]string{"mobile": "10 digits"},
		}
	}

	remaining, err := s.Cooldown(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if remaining > 0 {
		return nil, &errors.ErrCooldown{Remaining: time.Duration(remaining) * time.Second}
	}

	resp, err := s.client.SendOTP(ctx, mobile)
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		msg := resp.Message
		if msg == "" {
			msg = "Failed to send OTP"
		}
		return nil, &errors.ErrUpstream{Status: http.StatusOK, Message: msg}
	}

	until := s.now().Add(s.cooldown)
	if err := s.repos.Session.SaveOTPState(ctx, sessionID, &domain.OTPState{
		Step:          domain.LoginStepOTP,
		Mobile:        mobile,
		CooldownUntil: &until,
	}); err != nil {
		return nil, err
	}

	seconds := int(s.cooldown / time.Second)
	return &LoginState{
		Step:            domain.LoginStepOTP,
		Mobile:          mobile,
		CooldownSeconds: seconds,
		CooldownDisplay: FormatCooldown(seconds),
	}, nil
}

// VerifyOTP checks otp for the mobile the session requested it for and binds
// the backend session cookie to the storefront session. A backend that asks
// for a forced logout gets no cookie bound.
func (s *authService) VerifyOTP(ctx context.Context, sessionID string, req VerifyOTPRequest) (*LoginResult, error) {
	otp := strings.TrimSpace(req.OTP)
	if !otpPattern.MatchString(otp) {
		return nil, &errors.ErrValidation{
			Message: "Enter the 6 digit OTP",
			Fields:  map[string]string{"otp": "6 digits"},
		}
	}

	state, err := s.repos.Session.GetOTPState(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if state == nil || state.Step != domain.LoginStepOTP || state.Mobile == "" {
		return nil, &errors.ErrValidation{Message: "Request an OTP first"}
	}

	var resp *backend.VerifyOTPResponse
	if req.UpdateMobile {
		resp, err = s.client.VerifyUpdateMobileOTP(ctx, state.Mobile, otp)
	} else {
		resp, err = s.client.VerifyOTP(ctx, state.Mobile, otp)
	}
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		msg := resp.Message
		if msg == "" {
			msg = "Invalid OTP"
		}
		return nil, &errors.ErrUnauthorized{Message: msg}
	}

	if cookie := cookieHeader(resp.SetCookie); cookie != "" && !resp.ForceLogout {
		if err := s.repos.Session.SaveBackendCookie(ctx, sessionID, cookie); err != nil {
			return nil, err
		}
	}
	if err := s.repos.Session.ClearOTPState(ctx, sessionID); err != nil {
		return nil, err
	}

	var customerID string
	if resp.Customer != nil {
		customerID = resp.Customer.ID
	}
	recordEvent(ctx, s.repos, s.logger, sessionID, customerID, EventLogin, map[string]interface{}{
		"is_new_user":   resp.IsNewUser,
		"update_mobile": req.UpdateMobile,
	})

	return &LoginResult{
		Customer:    resp.Customer,
		IsNewUser:   resp.IsNewUser,
		ForceLogout: resp.ForceLogout,
		Message:     resp.Message,
	}, nil
}

// Cooldown returns the whole seconds left before another OTP may be sent.
// The stored deadline is cleared once it has passed.
func (s *authService) Cooldown(ctx context.Context, sessionID string) (int, error) {
	state, err := s.repos.Session.GetOTPState(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	if state == nil || state.CooldownUntil == nil {
		return 0, nil
	}

	remaining := int(state.CooldownUntil.Sub(s.now()) / time.Second)
	if remaining > 0 {
		return remaining, nil
	}

	state.CooldownUntil = nil
	if err := s.repos.Session.SaveOTPState(ctx, sessionID, state); err != nil {
		return 0, err
	}
	return 0, nil
}

// Reset returns the session to the mobile step and drops the cooldown
func (s *authService) Reset(ctx context.Context, sessionID string) error {
	return s.repos.Session.ClearOTPState(ctx, sessionID)
}

// Logout ends the backend session and forgets everything held for this browser
func (s *authService) Logout(ctx context.Context, sessionID, customerID string) error {
	if err := s.client.Logout(ctx); err != nil {
		s.logger.Warn("Backend logout failed", zap.String("session_id", sessionID), zap.Error(err))
	}
	recordEvent(ctx, s.repos, s.logger, sessionID, customerID, EventLogout, nil)
	return s.repos.Session.Destroy(ctx, sessionID)
}

// FormatCooldown renders seconds as m:ss
func FormatCooldown(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

// cookieHeader turns Set-Cookie values into a Cookie request header value
func cookieHeader(setCookies []string) string {
	parts := make([]string, 0, len(setCookies))
	for _, sc := range setCookies {
		pair := strings.TrimSpace(strings.SplitN(sc, ";", 2)[0])
		if pair != "" {
			parts = append(parts, pair)
		}
	}
	return strings.Join(parts, "; ")
}
