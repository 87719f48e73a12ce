package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/donaldgifford/float-tracker/internal/metrics"
	domain "github.com/donaldgifford/float-tracker/pkg/types"
)

const (
	colorNew  = 0x2ECC71
	colorDrop = 0x27AE60
	colorRise = 0xE67E22

	listingURLPrefix = "https://csfloat.com/item/"
	footerText       = "float-tracker"
	defaultSymbol    = "€"
)

// DiscordNotifier implements Notifier via Discord webhook.
type DiscordNotifier struct {
	webhookURL string
	userID     string
	symbol     string
	client     *http.Client
}

// NewDiscordNotifier creates a new DiscordNotifier.
func NewDiscordNotifier(webhookURL string, opts ...DiscordOption) *DiscordNotifier {
	d := &DiscordNotifier{
		webhookURL: webhookURL,
		symbol:     defaultSymbol,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DiscordOption configures a DiscordNotifier.
type DiscordOption func(*DiscordNotifier)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) DiscordOption {
	return func(d *DiscordNotifier) {
		d.client = c
	}
}

// WithMention pings the given Discord user on every alert.
func WithMention(userID string) DiscordOption {
	return func(d *DiscordNotifier) {
		d.userID = userID
	}
}

// WithCurrencySymbol sets the suffix used for display-currency amounts.
func WithCurrencySymbol(s string) DiscordOption {
	return func(d *DiscordNotifier) {
		if s != "" {
			d.symbol = s
		}
	}
}

// discordWebhookPayload is the Discord webhook JSON structure.
type discordWebhookPayload struct {
	Content string         `json:"content,omitempty"`
	Embeds  []discordEmbed `json:"embeds"`
}

type discordEmbed struct {
	Title       string              `json:"title"`
	URL         string              `json:"url,omitempty"`
	Color       int                 `json:"color"`
	Description string              `json:"description,omitempty"`
	Fields      []discordEmbedField `json:"fields,omitempty"`
	Footer      *discordFooter      `json:"footer,omitempty"`
}

type discordEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type discordFooter struct {
	Text string `json:"text"`
}

// NotifyNewListing sends one embed announcing a new listing.
func (d *DiscordNotifier) NotifyNewListing(ctx context.Context, ev *domain.NewListingEvent) error {
	embed := discordEmbed{
		Title:       "🆕 New offer detected!",
		Description: fmt.Sprintf("**%s**", ev.Target.Name),
		URL:         listingURLPrefix + ev.Observation.ID,
		Color:       colorNew,
		Fields: []discordEmbedField{
			{Name: "💰 Price", Value: d.money(ev.DisplayPrice, ev.Observation.Price), Inline: true},
			{Name: "💎 Float", Value: formatFloat(ev.Observation.FloatValue), Inline: true},
		},
		Footer: &discordFooter{Text: footerText},
	}
	embed.Fields = appendOptional(embed.Fields, ev.Tier, ev.Note)

	return d.post(ctx, d.payload(embed))
}

// NotifyPriceChange sends one embed announcing a price move.
func (d *DiscordNotifier) NotifyPriceChange(ctx context.Context, ev *domain.PriceChangeEvent) error {
	color := colorRise
	verb, sign := "Increase", "+"
	if ev.Delta.Direction == domain.DirectionDown {
		color = colorDrop
		verb, sign = "Decrease", "-"
	}

	change := fmt.Sprintf("%s of **%s%s** (%s%s%%)",
		verb,
		ev.Delta.Amount.StringFixed(2), d.symbol,
		sign, ev.Delta.Percent.StringFixed(2),
	)

	embed := discordEmbed{
		Title:       "🔄 Price change detected!",
		Description: fmt.Sprintf("**%s**", ev.Target.Name),
		URL:         listingURLPrefix + ev.Observation.ID,
		Color:       color,
		Fields: []discordEmbedField{
			{Name: "Previous price", Value: d.money(ev.Delta.Previous, ev.Previous.Price), Inline: true},
			{Name: "New price", Value: d.money(ev.Delta.Current, ev.Observation.Price), Inline: true},
			{Name: "Change", Value: change, Inline: false},
			{Name: "💎 Float", Value: formatFloat(ev.Observation.FloatValue), Inline: true},
		},
		Footer: &discordFooter{Text: footerText},
	}
	embed.Fields = appendOptional(embed.Fields, ev.Tier, ev.Note)

	return d.post(ctx, d.payload(embed))
}

func (d *DiscordNotifier) payload(embed discordEmbed) discordWebhookPayload {
	p := discordWebhookPayload{Embeds: []discordEmbed{embed}}
	if d.userID != "" {
		p.Content = fmt.Sprintf("<@%s>", d.userID)
	}
	return p
}

// money renders "**12.34€** (**$14.25**)".
func (d *DiscordNotifier) money(display decimal.Decimal, cents int64) string {
	return fmt.Sprintf("**%s%s** (**$%s**)",
		display.StringFixed(2), d.symbol,
		decimal.New(cents, -2).StringFixed(2),
	)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func appendOptional(fields []discordEmbedField, tier string, note *string) []discordEmbedField {
	if tier != "" {
		fields = append(fields, discordEmbedField{Name: "🏅 Tier", Value: tier, Inline: true})
	}
	if note != nil {
		fields = append(fields, discordEmbedField{Name: "📝 Note", Value: *note, Inline: true})
	}
	return fields
}

func (d *DiscordNotifier) post(ctx context.Context, payload discordWebhookPayload) error {
	start := time.Now()
	defer func() {
		metrics.NotificationDuration.Observe(time.Since(start).Seconds())
	}()

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling discord payload: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		d.webhookURL,
		bytes.NewReader(body),
	)
	if err != nil {
		return fmt.Errorf("creating discord request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending discord webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("discord rate limited (429)")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return fmt.Errorf("discord returned %d (body unreadable)", resp.StatusCode)
		}
		return fmt.Errorf("discord returned %d: %s", resp.StatusCode, respBody)
	}

	return nil
}
