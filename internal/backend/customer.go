package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/jafarshop/storefront/internal/domain"
)

// SendOTPResponse is the reply to an OTP request
type SendOTPResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// VerifyOTPResponse is the reply to an OTP verification
type VerifyOTPResponse struct {
	Success     bool             `json:"success"`
	Customer    *domain.Customer `json:"customer"`
	Message     string           `json:"message"`
	IsNewUser   bool             `json:"isNewUser"`
	ForceLogout bool             `json:"forceLogout,omitempty"`

	// SetCookie holds the backend session cookies issued on login
	SetCookie []string `json:"-"`
}

// SendOTP handles POST /customer/send-otp
func (c *Client) SendOTP(ctx context.Context, mobile string) (*SendOTPResponse, error) {
	resp, err := c.do(ctx, http.MethodPost, "/customer/send-otp", nil, map[string]string{"mobile": mobile})
	if err != nil {
		return nil, err
	}
	var out SendOTPResponse
	if err := decode(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifyOTP handles POST /customer/verify-otp
func (c *Client) VerifyOTP(ctx context.Context, mobile, otp string) (*VerifyOTPResponse, error) {
	return c.verify(ctx, "/customer/verify-otp", map[string]string{
		"mobile": mobile,
		"otp":    otp,
	})
}

// VerifyUpdateMobileOTP handles POST /customer/verify-update-mobile-otp
func (c *Client) VerifyUpdateMobileOTP(ctx context.Context, mobile, otp string) (*VerifyOTPResponse, error) {
	return c.verify(ctx, "/customer/verify-update-mobile-otp", map[string]string{
		"mobile": mobile,
		"otp":    otp,
		"mode":   "update-mobile",
	})
}

func (c *Client) verify(ctx context.Context, path string, body map[string]string) (*VerifyOTPResponse, error) {
	resp, err := c.do(ctx, http.MethodPost, path, nil, body)
	if err != nil {
		return nil, err
	}
	var out VerifyOTPResponse
	if err := decode(resp, &out); err != nil {
		return nil, err
	}
	out.SetCookie = resp.SetCookie
	return &out, nil
}

// Me handles GET /customer/me
func (c *Client) Me(ctx context.Context) (*domain.Customer, error) {
	resp, err := c.do(ctx, http.MethodGet, "/customer/me", nil, nil)
	if err != nil {
		return nil, err
	}
	var out domain.Customer
	if err := decode(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout handles POST /customer/logout
func (c *Client) Logout(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodPost, "/customer/logout", nil, map[string]string{})
	return err
}

// ProfileUpdate carries editable profile fields
type ProfileUpdate struct {
	Name   string `json:"name,omitempty"`
	Email  string `json:"email,omitempty"`
	Gender string `json:"gender,omitempty"`
}

// UpdateProfile handles PUT /customer/:id
func (c *Client) UpdateProfile(ctx context.Context, customerID string, update ProfileUpdate) (*domain.Customer, error) {
	path := fmt.Sprintf("/customer/%s", url.PathEscape(customerID))
	resp, err := c.do(ctx, http.MethodPut, path, nil, update)
	if err != nil {
		return nil, err
	}
	var out struct {
		Customer *domain.Customer `json:"customer"`
	}
	if err := decode(resp, &out); err != nil {
		return nil, err
	}
	return out.Customer, nil
}

type addressResponse struct {
	Address *domain.Address `json:"address"`
}

// AddAddress handles POST /customer/:id/address
func (c *Client) AddAddress(ctx context.Context, customerID string, addr domain.Address) (*domain.Address, error) {
	path := fmt.Sprintf("/customer/%s/address", url.PathEscape(customerID))
	return c.address(ctx, http.MethodPost, path, addr)
}

// UpdateAddress handles PUT /customer/:id/address/:addressId
func (c *Client) UpdateAddress(ctx context.Context, customerID string, addr domain.Address) (*domain.Address, error) {
	path := fmt.Sprintf("/customer/%s/address/%s", url.PathEscape(customerID), url.PathEscape(addr.ID))
	return c.address(ctx, http.MethodPut, path, addr)
}

func (c *Client) address(ctx context.Context, method, path string, addr domain.Address) (*domain.Address, error) {
	resp, err := c.do(ctx, method, path, nil, addr)
	if err != nil {
		return nil, err
	}
	var out addressResponse
	if err := decode(resp, &out); err != nil {
		return nil, err
	}
	if out.Address == nil {
		return nil, fmt.Errorf("backend returned no address")
	}
	return out.Address, nil
}

// DeleteAddress handles DELETE /customer/:id/address/:addressId
func (c *Client) DeleteAddress(ctx context.Context, customerID, addressID string) error {
	path := fmt.Sprintf("/customer/%s/address/%s", url.PathEscape(customerID), url.PathEscape(addressID))
	_, err := c.do(ctx, http.MethodDelete, path, nil, nil)
	return err
}
