package outbox

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bookline/ballast/internal/domain/entity"
	"github.com/bookline/ballast/internal/infra/resilience"
)

// AccountingClient forwards invoice events to the accounting system before
// they are published. Invoicing must not lag behind the event stream.
type AccountingClient struct {
	baseURL  string
	token    string
	client   *http.Client
	breakers *resilience.BreakerGroup
}

// NewAccountingClient builds the client. breakers may be nil to post without
// circuit breaking.
func NewAccountingClient(baseURL, token string, breakers *resilience.BreakerGroup) *AccountingClient {
	return &AccountingClient{
		baseURL:  strings.TrimRight(baseURL, "/"),
		token:    token,
		client:   &http.Client{Timeout: 10 * time.Second},
		breakers: breakers,
	}
}

func (c *AccountingClient) CreateInvoice(ctx context.Context, payload []byte) error {
	if c.breakers != nil {
		return c.breakers.Do(resilience.TargetForURL(c.baseURL), func() error {
			return c.createInvoice(ctx, payload)
		})
	}
	return c.createInvoice(ctx, payload)
}

func (c *AccountingClient) createInvoice(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/invoices", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))

	if resp.StatusCode >= 300 {
		return fmt.Errorf("accounting: unexpected status %d", resp.StatusCode)
	}
	return nil
}

// InvoiceHook adapts the client into a dispatch hook for
// invoice.create_requested events.
func InvoiceHook(client *AccountingClient) Hook {
	return func(ctx context.Context, event entity.OutboxEvent) error {
		return client.CreateInvoice(ctx, event.Payload)
	}
}
