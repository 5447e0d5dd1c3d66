package services

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/vulca/torneos/models"
)

var ErrCheckoutDisabled = errors.New("hosted checkout is not configured")

// CheckoutService строит ссылку на внешнюю страницу оплаты. Сама оплата
// здесь не обрабатывается.
type CheckoutService interface {
	CheckoutURL(reg *models.Registration, tournament *models.Tournament) (string, error)
}

type hostedCheckout struct {
	baseURL   string
	returnURL string
}

func NewHostedCheckoutService(baseURL, returnURL string) CheckoutService {
	return &hostedCheckout{baseURL: baseURL, returnURL: returnURL}
}

func (c *hostedCheckout) CheckoutURL(reg *models.Registration, tournament *models.Tournament) (string, error) {
	if c.baseURL == "" {
		return "", ErrCheckoutDisabled
	}
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid checkout base url: %w", err)
	}
	if reg.Amount == nil {
		return "", fmt.Errorf("registration %d has no amount to charge", reg.ID)
	}

	q := u.Query()
	q.Set("reference", "vulca-reg-"+strconv.Itoa(reg.ID))
	q.Set("amount", strconv.FormatFloat(*reg.Amount, 'f', 2, 64))
	q.Set("description", fmt.Sprintf("%s - %s", tournament.Name, displayName(reg)))
	if c.returnURL != "" {
		q.Set("return_url", c.returnURL)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
