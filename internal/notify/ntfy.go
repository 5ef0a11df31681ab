// Package notify delivers price change alerts through the ntfy push service.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sajowo/price-watch/internal/model"
)

const defaultBaseURL = "https://ntfy.sh"

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Ntfy publishes change notifications to an ntfy topic. With no topic
// configured it silently drops everything, so the orchestrator never has to
// care whether push is set up.
type Ntfy struct {
	client  HTTPClient
	baseURL string
	topic   string
	log     *slog.Logger
}

// New creates an Ntfy sender for the given topic.
func New(client HTTPClient, topic string, log *slog.Logger) *Ntfy {
	return &Ntfy{
		client:  client,
		baseURL: defaultBaseURL,
		topic:   topic,
		log:     log,
	}
}

// NotifyPriceChanges publishes one push message summarizing the given deltas.
func (n *Ntfy) NotifyPriceChanges(ctx context.Context, changes []model.PriceChange) error {
	if n.topic == "" || len(changes) == 0 {
		return nil
	}

	title, body := Format(changes)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		n.baseURL+"/"+n.topic, strings.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Title", title)
	req.Header.Set("Priority", "high")
	req.Header.Set("Tags", "moneybag")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("push notification: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ntfy status %d", resp.StatusCode)
	}
	n.log.Info("sent price change notification", "topic", n.topic, "changes", len(changes))
	return nil
}

// Format renders a notification title and body for a set of changes.
func Format(changes []model.PriceChange) (title, body string) {
	drops, increases, stock := 0, 0, 0
	var b strings.Builder
	for _, c := range changes {
		delta := c.Delta()

		if delta.IsZero() {
			stock++
			fmt.Fprintf(&b, "! %s (%s): %s at %s\n",
				c.ProductName, c.StoreName,
				availabilityText(c.NewAvailability), c.NewPrice.StringFixed(2))
			continue
		}

		arrow, sign := "↑", "+"
		if delta.IsNegative() {
			arrow, sign = "↓", ""
			drops++
		} else {
			increases++
		}
		fmt.Fprintf(&b, "%s %s (%s): %s -> %s (%s%s, %s%%)",
			arrow, c.ProductName, c.StoreName,
			c.OldPrice.StringFixed(2), c.NewPrice.StringFixed(2),
			sign, delta.StringFixed(2), c.PercentChange().StringFixed(1))
		if c.AvailabilityChanged() {
			fmt.Fprintf(&b, ", %s", availabilityText(c.NewAvailability))
		}
		b.WriteString("\n")
	}

	switch {
	case drops > 0 && increases == 0 && stock == 0:
		title = fmt.Sprintf("Price drop (%d)", drops)
	case increases > 0 && drops == 0 && stock == 0:
		title = fmt.Sprintf("Price increase (%d)", increases)
	case stock == len(changes):
		title = fmt.Sprintf("Stock change (%d)", stock)
	default:
		title = fmt.Sprintf("Price changes (%d down / %d up)", drops, increases)
	}
	return title, b.String()
}

func availabilityText(a model.Availability) string {
	switch a {
	case model.InStock:
		return "back in stock"
	case model.OutOfStock:
		return "out of stock"
	default:
		return "availability unknown"
	}
}
