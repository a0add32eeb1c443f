package withdraw

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/chisomo-dev/coachpay/internal/config"
)

// Static operator map used when the live lookup fails or finds no match,
// keyed by the leading digits of the subscriber number.
var fallbackOperators = map[string]string{
	"99": "AIRTEL_MW",
	"88": "TNM_MW",
}

// networkNames maps subscriber prefixes to the operator name fragment used
// to match the live operator list.
var networkNames = map[string]string{
	"99": "airtel",
	"98": "airtel",
	"88": "tnm",
}

// PayoutResult carries the provider references recorded on completion.
type PayoutResult struct {
	Ref     string
	TransID string
}

// Client calls the PayChangu mobile-money API.
type Client struct {
	apiURL string
	secret string
	http   *http.Client
	log    *zap.Logger
}

func NewClient(cfg config.PayChanguConfig, logger *zap.Logger) *Client {
	return &Client{
		apiURL: strings.TrimRight(cfg.APIURL, "/"),
		secret: cfg.SecretKey,
		http:   &http.Client{Timeout: 30 * time.Second},
		log:    logger,
	}
}

type operatorListResponse struct {
	Status string `json:"status"`
	Data   []struct {
		RefID   string `json:"ref_id"`
		Name    string `json:"name"`
		Country string `json:"country"`
	} `json:"data"`
}

type payoutRequest struct {
	OperatorRefID string `json:"mobile_money_operator_ref_id"`
	Mobile        string `json:"mobile"`
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency"`
	Reason        string `json:"reason"`
	ChargeID      string `json:"charge_id"`
}

type payoutResponse struct {
	Status string `json:"status"`
	Data   struct {
		Transaction struct {
			Status  string `json:"status"`
			RefID   string `json:"ref_id"`
			TransID string `json:"trans_id"`
		} `json:"transaction"`
	} `json:"data"`
}

// Execute resolves the destination operator and initiates the payout. Both
// the outer response status and the nested transaction status must report
// success; anything else is a failure.
func (c *Client) Execute(ctx context.Context, mobile string, amountMWK int64, chargeID string) (*PayoutResult, error) {
	operatorRef := c.resolveOperator(ctx, mobile)
	if operatorRef == "" {
		return nil, fmt.Errorf("no mobile money operator for number %s", redactMobile(mobile))
	}

	body := payoutRequest{
		OperatorRefID: operatorRef,
		Mobile:        mobile,
		Amount:        amountMWK,
		Currency:      "MWK",
		Reason:        "Coach credit withdrawal",
		ChargeID:      chargeID,
	}
	b, _ := json.Marshal(body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/mobile-money/payouts/initialize", bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.secret)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("payout request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("payout rejected: status=%d body=%s", resp.StatusCode, truncate(string(raw), 200))
	}

	var pr payoutResponse
	if err := json.Unmarshal(raw, &pr); err != nil {
		return nil, fmt.Errorf("payout response malformed: %w", err)
	}
	if pr.Status != "success" || pr.Data.Transaction.Status != "success" {
		return nil, fmt.Errorf("payout not successful: status=%s transaction=%s", pr.Status, pr.Data.Transaction.Status)
	}

	c.log.Info("payout initiated",
		zap.String("mobile", redactMobile(mobile)),
		zap.Int64("amount_mwk", amountMWK),
		zap.String("payout_ref", pr.Data.Transaction.RefID))

	return &PayoutResult{Ref: pr.Data.Transaction.RefID, TransID: pr.Data.Transaction.TransID}, nil
}

// resolveOperator asks the provider for its operator list and matches by
// network name plus country, case-insensitively. On any failure it falls
// back to the static prefix map.
func (c *Client) resolveOperator(ctx context.Context, mobile string) string {
	prefix := mobile[:2]
	network := networkNames[prefix]

	ref, err := c.lookupOperator(ctx, network)
	if err != nil || ref == "" {
		if err != nil {
			c.log.Warn("operator lookup failed, using fallback map",
				zap.String("mobile", redactMobile(mobile)), zap.Error(err))
		}
		return fallbackOperators[prefix]
	}
	return ref
}

func (c *Client) lookupOperator(ctx context.Context, network string) (string, error) {
	if network == "" {
		return "", fmt.Errorf("unknown network prefix")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+"/mobile-money", nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.secret)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("operator lookup status=%d", resp.StatusCode)
	}

	var list operatorListResponse
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return "", err
	}

	for _, op := range list.Data {
		if strings.Contains(strings.ToLower(op.Name), network) &&
			strings.Contains(strings.ToLower(op.Country), "malawi") {
			return op.RefID, nil
		}
	}
	return "", nil
}

// redactMobile masks all but the last two digits for logging.
func redactMobile(mobile string) string {
	if len(mobile) <= 2 {
		return "**"
	}
	return strings.Repeat("*", len(mobile)-2) + mobile[len(mobile)-2:]
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
