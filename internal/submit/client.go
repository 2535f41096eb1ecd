package submit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"pos-service/internal/models"
	"pos-service/internal/util"
)

// ErrorKind classifies a failed submission. The client never retries on its
// own; the reconciliation engine decides what each kind means for the queue.
type ErrorKind int

const (
	// KindTransient covers network failures and 5xx responses. The sale
	// stays queued and is retried on the next drain.
	KindTransient ErrorKind = iota
	// KindValidation covers structured rejections such as insufficient
	// stock or an unknown item. Retrying with the same payload cannot
	// succeed.
	KindValidation
	// KindAuth covers 401/403. Fatal for the session; a drain aborts.
	KindAuth
)

// Error is a failed sale submission.
type Error struct {
	Kind    ErrorKind
	Status  int
	Message string
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindValidation:
		return fmt.Sprintf("sale rejected: %s", e.Message)
	case KindAuth:
		return fmt.Sprintf("not authorized: %s", e.Message)
	default:
		return fmt.Sprintf("submission failed: %s", e.Message)
	}
}

// KindOf extracts the error kind, defaulting to transient for anything that
// is not a submit.Error (plain transport errors included).
func KindOf(err error) ErrorKind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindTransient
}

// Client sends completed sales to the ledger's transactional endpoint. One
// call per sale; the same bill ID is reused on every retry so the ledger can
// deduplicate.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	logger  *zap.Logger
}

// NewClient creates a submission client for the given ledger
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: timeout},
		logger:  util.GetLogger(),
	}
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// Submit sends one sale and returns the server-assigned sale ID. A duplicate
// bill is reported as success because the ledger already holds it.
func (c *Client) Submit(ctx context.Context, record *models.SaleRecord) (string, error) {
	ctx, span := util.StartSpan(ctx, "SubmitClient.Submit")
	defer span.End()

	start := time.Now()
	defer func() {
		util.SubmitLatency.Observe(time.Since(start).Seconds())
	}()

	body, err := json.Marshal(record)
	if err != nil {
		return "", &Error{Kind: KindValidation, Message: fmt.Sprintf("marshal sale: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/sales", bytes.NewReader(body))
	if err != nil {
		return "", &Error{Kind: KindTransient, Message: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &Error{Kind: KindTransient, Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated {
		var sr models.SubmitResponse
		if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
			return "", &Error{Kind: KindTransient, Message: fmt.Sprintf("decode response: %v", err)}
		}
		if sr.Duplicate {
			c.logger.Info("Ledger already holds bill",
				zap.String("bill_id", record.BillID),
				zap.String("sale_id", sr.SaleID))
		}
		return sr.SaleID, nil
	}

	msg := fmt.Sprintf("status %d", resp.StatusCode)
	if data, err := io.ReadAll(io.LimitReader(resp.Body, 4096)); err == nil && len(data) > 0 {
		var er errorResponse
		if json.Unmarshal(data, &er) == nil && er.Error != "" {
			msg = er.Error
			if er.Details != "" {
				msg += ": " + er.Details
			}
		}
	}

	return "", &Error{Kind: classifyStatus(resp.StatusCode), Status: resp.StatusCode, Message: msg}
}

func classifyStatus(status int) ErrorKind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindAuth
	case status >= 400 && status < 500:
		return KindValidation
	default:
		return KindTransient
	}
}
