package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/freightbid/internal/models"

	"github.com/google/uuid"
)

var (
	ErrConfigInvalid   = errors.New("settlement config invalid")
	ErrRequestFailed   = errors.New("settlement request failed")
	ErrResponseInvalid = errors.New("settlement response invalid")
)

// Gateway 授标后的结算协作方
type Gateway interface {
	OnAward(ctx context.Context, input AwardInput) (*AwardResult, error)
}

// AwardInput 授标结算请求
type AwardInput struct {
	ShipmentID uint
	ShipmentNo string
	BidID      uint
	CarrierID  uint
	Amount     models.Money
}

// AwardResult 结算结果
type AwardResult struct {
	TransactionID string
	Raw           map[string]interface{}
}

// Config 结算网关配置
type Config struct {
	SettlementURL string
	Secret        string
	Timeout       time.Duration
}

// NewGateway 配置了地址时使用 HTTP 网关，否则使用本地网关
func NewGateway(cfg Config) Gateway {
	if strings.TrimSpace(cfg.SettlementURL) == "" {
		return LocalGateway{}
	}
	return NewHTTPGateway(cfg)
}

// LocalGateway 本地结算，直接生成流水号
type LocalGateway struct{}

// OnAward 实现 Gateway
func (LocalGateway) OnAward(_ context.Context, input AwardInput) (*AwardResult, error) {
	if input.ShipmentID == 0 || input.BidID == 0 {
		return nil, ErrConfigInvalid
	}
	return &AwardResult{TransactionID: "local-" + uuid.NewString()}, nil
}

// HTTPGateway 调用外部结算服务
type HTTPGateway struct {
	cfg    Config
	client *http.Client
}

// NewHTTPGateway 创建 HTTP 结算网关
func NewHTTPGateway(cfg Config) *HTTPGateway {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPGateway{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

type awardRequest struct {
	ShipmentID uint   `json:"shipment_id"`
	ShipmentNo string `json:"shipment_no"`
	BidID      uint   `json:"bid_id"`
	CarrierID  uint   `json:"carrier_id"`
	Amount     string `json:"amount"`
	Timestamp  int64  `json:"timestamp"`
}

type awardResponse struct {
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
	Message       string `json:"message"`
}

// OnAward 实现 Gateway
func (g *HTTPGateway) OnAward(ctx context.Context, input AwardInput) (*AwardResult, error) {
	if g == nil || strings.TrimSpace(g.cfg.SettlementURL) == "" {
		return nil, ErrConfigInvalid
	}
	body, err := json.Marshal(awardRequest{
		ShipmentID: input.ShipmentID,
		ShipmentNo: input.ShipmentNo,
		BidID:      input.BidID,
		CarrierID:  input.CarrierID,
		Amount:     input.Amount.String(),
		Timestamp:  time.Now().Unix(),
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.SettlementURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	// 同一授标重试时使用同一个幂等键
	req.Header.Set("Idempotency-Key", fmt.Sprintf("award-%d-%d", input.ShipmentID, input.BidID))
	if g.cfg.Secret != "" {
		req.Header.Set("X-Signature", Sign(body, g.cfg.Secret))
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: http status %d", ErrRequestFailed, resp.StatusCode)
	}

	var parsed awardResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResponseInvalid, err)
	}
	if strings.TrimSpace(parsed.TransactionID) == "" {
		return nil, fmt.Errorf("%w: missing transaction_id", ErrResponseInvalid)
	}
	result := &AwardResult{TransactionID: parsed.TransactionID}
	_ = json.Unmarshal(raw, &result.Raw)
	return result, nil
}

// Sign HMAC-SHA256 请求签名
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
