package toolcall

import (
	"fmt"
	"strings"
	"time"
)

// FormatSearch renders search hits as a numbered-source markdown block.
// Output is deterministic for a given result list.
func FormatSearch(query string, results []SearchResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Web search results for %q:\n\n", query)
	if len(results) == 0 {
		b.WriteString("No results found.\n")
		return b.String()
	}
	for i, r := range results {
		fmt.Fprintf(&b, "%d. **%s** — %s\n   %s\n", i+1, r.Title, r.URL, r.Snippet)
	}
	return b.String()
}

// FormatQuotes renders symbol/price/change rows.
func FormatQuotes(quotes []Quote) string {
	var b strings.Builder
	b.WriteString("Latest quotes:\n\n")
	if len(quotes) == 0 {
		b.WriteString("No quotes available.\n")
		return b.String()
	}
	b.WriteString("| Symbol | Price | Change | Change % |\n")
	b.WriteString("| --- | --- | --- | --- |\n")
	for _, q := range quotes {
		currency := q.Currency
		if currency == "" {
			currency = "USD"
		}
		fmt.Fprintf(&b, "| %s | %.2f %s | %+.2f | %+.2f%% |\n",
			q.Symbol, q.Price, currency, q.Change, q.ChangePct)
	}
	if t := latestMarketTime(quotes); !t.IsZero() {
		fmt.Fprintf(&b, "\nAs of %s.\n", t.UTC().Format("2006-01-02 15:04 MST"))
	}
	return b.String()
}

// FormatWeather renders name/temperature/condition.
func FormatWeather(w *Weather) string {
	desc := w.Description
	if desc == "" {
		desc = "conditions unavailable"
	}
	return fmt.Sprintf("Current weather for %s: %.1f°C, %s.\n", w.Name, w.Temp, desc)
}

func latestMarketTime(quotes []Quote) time.Time {
	var latest int64
	for _, q := range quotes {
		if q.MarketTime > latest {
			latest = q.MarketTime
		}
	}
	if latest == 0 {
		return time.Time{}
	}
	return time.Unix(latest, 0)
}
