package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"toolx/config"
	"toolx/entity"
	"toolx/pkg/logger"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/shopspring/decimal"
)

// ErrBotNotConfigured is returned when the bot URL or chat id is missing.
var ErrBotNotConfigured = errors.New("bot notifier is not configured")

// BotError is a non-2xx reply from the bot API.
type BotError struct {
	Status   int
	Message  string
	Response interface{}
}

func (e *BotError) Error() string {
	return fmt.Sprintf("bot returned %d: %s", e.Status, e.Message)
}

var cycleLabels = map[string]string{
	"day":   "Theo ngày",
	"month": "Theo tháng",
	"year":  "Theo năm",
}

type botMessage struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

// BotNotifier posts renewal confirmations to a chat bot.
type BotNotifier struct {
	cfg      config.Bot
	location *time.Location
	client   *retryablehttp.Client
	logger   *logger.Logger
}

// NewBotNotifier creates a notifier. Times in messages are rendered in loc.
func NewBotNotifier(cfg config.Bot, loc *time.Location, logger *logger.Logger) *BotNotifier {
	if loc == nil {
		loc = time.UTC
	}
	return &BotNotifier{
		cfg:      cfg,
		location: loc,
		client:   newRetryableClient(cfg.Timeout, 2),
		logger:   logger,
	}
}

// SendConfirmNotification sends the order summary and returns the bot's decoded reply.
func (n *BotNotifier) SendConfirmNotification(ctx context.Context, order *entity.Order) (interface{}, error) {
	if n.cfg.SendURL == "" || n.cfg.ChatID == "" {
		return nil, ErrBotNotConfigured
	}

	text := BuildConfirmText(order, n.location)
	n.logger.Debugw("Bot message built", "text", text)

	body, err := json.Marshal(botMessage{ChatID: n.cfg.ChatID, Text: text})
	if err != nil {
		return nil, fmt.Errorf("failed to encode bot message: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, n.cfg.SendURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build bot request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call bot: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read bot response: %w", err)
	}

	var data interface{} = string(raw)
	if strings.Contains(strings.ToLower(resp.Header.Get("Content-Type")), "application/json") {
		var decoded interface{}
		if err := json.Unmarshal(raw, &decoded); err == nil {
			data = decoded
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		botErr := &BotError{Status: resp.StatusCode, Message: "Failed to send bot message", Response: data}
		switch v := data.(type) {
		case string:
			if v != "" {
				botErr.Message = v
			}
		case map[string]interface{}:
			if desc, ok := v["description"].(string); ok && desc != "" {
				botErr.Message = desc
			}
		}
		n.logger.Warnw("Bot rejected message", "status", resp.StatusCode, "error", botErr.Message)
		return nil, botErr
	}

	return data, nil
}

// BuildConfirmText renders the order summary sent to the bot.
func BuildConfirmText(order *entity.Order, loc *time.Location) string {
	if order == nil {
		order = &entity.Order{}
	}

	submitted := order.Time
	if t, err := time.Parse(time.RFC3339, order.Time); err == nil {
		submitted = t.In(loc).Format("15:04:05 2/1/2006")
	}

	cycle := order.Item.Cycle
	if label, ok := cycleLabels[cycle]; ok {
		cycle = label
	}

	prevExpiry := order.PrevExpiry
	if prevExpiry == "" {
		prevExpiry = order.Item.NextBillingDate
	}
	if t, err := time.Parse(billingDateLayout, prevExpiry); err == nil {
		prevExpiry = t.Format("2/1/2006")
	}

	amount := ""
	if order.Total != nil {
		amount = formatVND(*order.Total)
	}

	return strings.Join([]string{
		"Bạn có đơn hàng cần gia hạn:",
		" Email: " + order.Email,
		" Thời gian submit: " + submitted,
		" Tên dịch vụ: " + order.Item.Name,
		" Loại dịch vụ: " + cycle,
		" Ngày hết hạn trước đó: " + prevExpiry,
		" Giá tiền: " + amount,
	}, "\n")
}

// formatVND groups thousands with dots and uses a comma before decimals, e.g. 1.250.000 VND.
// Rounding happens once, to three decimals, before the integer part is split off.
func formatVND(amount decimal.Decimal) string {
	amount = amount.Round(3)

	sign := ""
	if amount.IsNegative() {
		sign = "-"
		amount = amount.Neg()
	}

	intPart := amount.Truncate(0).String()
	frac := amount.Sub(amount.Truncate(0))

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}

	out := sign + b.String()
	if !frac.IsZero() {
		out += "," + strings.TrimPrefix(frac.String(), "0.")
	}
	return out + " VND"
}
