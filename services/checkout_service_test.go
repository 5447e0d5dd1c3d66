package services

import (
	"errors"
	"net/url"
	"testing"

	"github.com/vulca/torneos/models"
)

func TestHostedCheckout_CheckoutURL(t *testing.T) {
	reg := &models.Registration{ID: 7, Amount: ptr(12.5), TeamName: ptr("Los Tigres")}
	tour := &models.Tournament{Name: "Copa Vulca"}

	if _, err := NewHostedCheckoutService("", "").CheckoutURL(reg, tour); !errors.Is(err, ErrCheckoutDisabled) {
		t.Fatalf("empty base url: error = %v, want ErrCheckoutDisabled", err)
	}

	raw, err := NewHostedCheckoutService("https://pay.example.com/c?merchant=vulca", "").CheckoutURL(reg, tour)
	if err != nil {
		t.Fatalf("CheckoutURL() error = %v", err)
	}
	u, _ := url.Parse(raw)
	q := u.Query()
	checks := map[string]string{
		"merchant":    "vulca",
		"reference":   "vulca-reg-7",
		"amount":      "12.50",
		"description": "Copa Vulca - Los Tigres",
	}
	for k, want := range checks {
		if got := q.Get(k); got != want {
			t.Errorf("query %s = %q, want %q", k, got, want)
		}
	}
	if q.Has("return_url") {
		t.Error("return_url must be omitted when not configured")
	}

	if _, err := NewHostedCheckoutService("https://pay.example.com", "").CheckoutURL(&models.Registration{ID: 1}, tour); err == nil {
		t.Error("registration without amount must fail")
	}
}
