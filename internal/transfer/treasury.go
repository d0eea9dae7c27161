// internal/transfer/treasury.go
package transfer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TreasuryClient pays out through the treasury rail. The treasury applies
// the payout atomically: a non-2xx response means no value moved.
type TreasuryClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewTreasuryClient(baseURL, apiKey string, logger *zap.Logger) *TreasuryClient {
	return &TreasuryClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

type payoutRequest struct {
	Reference string `json:"reference"`
	ToAddress string `json:"to_address"`
	Amount    uint64 `json:"amount"`
	Timestamp int64  `json:"timestamp"`
}

func (c *TreasuryClient) Transfer(ctx context.Context, toAddress string, amount uint64) error {
	payout := payoutRequest{
		Reference: uuid.New().String(),
		ToAddress: toAddress,
		Amount:    amount,
		Timestamp: time.Now().Unix(),
	}

	payload, err := json.Marshal(payout)
	if err != nil {
		return fmt.Errorf("failed to marshal payout: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/payouts", bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("failed to create payout request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", c.apiKey)

	c.logger.Info("sending payout to treasury",
		zap.String("reference", payout.Reference),
		zap.String("to_address", toAddress),
		zap.Uint64("amount", amount))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("treasury request failed",
			zap.String("reference", payout.Reference),
			zap.Error(err))
		return fmt.Errorf("failed to reach treasury: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Error("treasury rejected payout",
			zap.String("reference", payout.Reference),
			zap.Int("status_code", resp.StatusCode),
			zap.String("response", string(body)))
		return fmt.Errorf("treasury returned status %d: %s", resp.StatusCode, string(body))
	}

	c.logger.Info("payout accepted",
		zap.String("reference", payout.Reference),
		zap.String("to_address", toAddress),
		zap.Uint64("amount", amount))
	return nil
}
