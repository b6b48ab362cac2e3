package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/jafarshop/storefront/pkg/errors"
)

// Courier is the courier the backend picked for a pincode
type Courier struct {
	CourierName string  `json:"courier_name"`
	Rate        float64 `json:"rate"`
	ETD         string  `json:"etd"`
}

// ServiceabilityResponse is the reply to a pincode serviceability check
type ServiceabilityResponse struct {
	Success     bool     `json:"success"`
	Message     string   `json:"message,omitempty"`
	BestCourier *Courier `json:"best_courier,omitempty"`
}

// Serviceability handles POST /shiprocket/serviceability
func (c *Client) Serviceability(ctx context.Context, pincode string) (*ServiceabilityResponse, error) {
	resp, err := c.do(ctx, http.MethodPost, "/shiprocket/serviceability", nil, map[string]string{
		"delivery_postcode": pincode,
	})
	if err != nil {
		return nil, err
	}
	var out ServiceabilityResponse
	if err := decode(resp, &out); err != nil {
		return nil, err
	}
	if !out.Success {
		msg := out.Message
		if msg == "" {
			msg = "Service not available at this location"
		}
		return nil, &errors.ErrUpstream{Status: resp.StatusCode, Message: msg}
	}
	return &out, nil
}

// PostOffice is one postal office record for a pincode
type PostOffice struct {
	Name     string `json:"Name"`
	District string `json:"District"`
	State    string `json:"State"`
}

type pincodeRecord struct {
	PostOffice []PostOffice `json:"PostOffice"`
}

// PincodeLocation handles GET /pickup/location/:pin.
// The upstream answers either with a record or with a one-element array of records.
func (c *Client) PincodeLocation(ctx context.Context, pin string) ([]PostOffice, error) {
	resp, err := c.do(ctx, http.MethodGet, "/pickup/location/"+url.PathEscape(pin), nil, nil)
	if err != nil {
		return nil, err
	}

	var rec pincodeRecord
	if err := json.Unmarshal(resp.Body, &rec); err == nil && len(rec.PostOffice) > 0 {
		return rec.PostOffice, nil
	}
	var recs []pincodeRecord
	if err := json.Unmarshal(resp.Body, &recs); err == nil && len(recs) > 0 {
		return recs[0].PostOffice, nil
	}
	return nil, nil
}
