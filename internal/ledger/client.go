package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/meridian-erp/meridian/internal/entries"
)

// Client posts approved adjusting entries to the general ledger service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs a new client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Ping checks if the remote ledger service is available.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/health", c.baseURL), nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("ledger returned status %d", resp.StatusCode)
	}
	return nil
}

type postRequest struct {
	Reference     string `json:"reference"`
	Description   string `json:"description"`
	DebitAccount  string `json:"debit_account"`
	CreditAccount string `json:"credit_account"`
	Amount        string `json:"amount"`
	Currency      string `json:"currency"`
}

type postResponse struct {
	TransactionID string `json:"transaction_id"`
}

// PostEntry submits an entry to the ledger and returns the assigned
// transaction identifier. It satisfies the poster contract used by the
// entries service.
func (c *Client) PostEntry(ctx context.Context, entry entries.Entry) (string, error) {
	body, err := json.Marshal(postRequest{
		Reference:     entry.Reference.String(),
		Description:   entry.Description,
		DebitAccount:  entry.DebitAccount,
		CreditAccount: entry.CreditAccount,
		Amount:        entry.Amount.String(),
		Currency:      entry.Currency,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/transactions", c.baseURL), bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("ledger post failed with status %d", resp.StatusCode)
	}

	var out postResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if out.TransactionID == "" {
		return "", fmt.Errorf("ledger post returned empty transaction id")
	}
	return out.TransactionID, nil
}
