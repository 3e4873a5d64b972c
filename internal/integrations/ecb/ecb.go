package ecb

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Rates is one day's EUR reference table: units of currency per 1 EUR,
// EUR itself included at 1.
type Rates struct {
	Date   string                     `json:"date"`
	Values map[string]decimal.Decimal `json:"values"`
}

// Client fetches the European Central Bank daily reference rates
type Client struct {
	url    string
	client *http.Client
	log    *logrus.Logger
}

// NewClient initializes a new ECB client
func NewClient(url string, log *logrus.Logger) *Client {
	return &Client{
		url: url,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		log: log,
	}
}

// sendRequest downloads the daily reference-rate XML
func (c *Client) sendRequest(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %v", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %v", err)
	}

	// Log the raw XML response for debugging
	c.log.Debugf("ECB XML response: %s", string(body))

	return body, nil
}

// parseXMLResponse extracts the rate table from the eurofxref document
func (c *Client) parseXMLResponse(rawBody []byte) (*Rates, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(rawBody); err != nil {
		return nil, fmt.Errorf("failed to parse XML: %v", err)
	}

	dayCube := doc.FindElement("//Cube/Cube")
	if dayCube == nil {
		return nil, fmt.Errorf("no rate data found in XML")
	}

	rates := &Rates{
		Date:   dayCube.SelectAttrValue("time", ""),
		Values: map[string]decimal.Decimal{"EUR": decimal.NewFromInt(1)},
	}

	for _, el := range doc.FindElements("//Cube/Cube/Cube") {
		currency := el.SelectAttrValue("currency", "")
		rateText := el.SelectAttrValue("rate", "")
		if currency == "" || rateText == "" {
			continue
		}
		rate, err := decimal.NewFromString(rateText)
		if err != nil {
			return nil, fmt.Errorf("failed to parse rate for %s: %v", currency, err)
		}
		rates.Values[currency] = rate
	}

	if len(rates.Values) == 1 {
		return nil, fmt.Errorf("no currency rates found in XML")
	}

	return rates, nil
}

// FetchDailyRates retrieves the current EUR reference rates from the ECB
func (c *Client) FetchDailyRates(ctx context.Context) (*Rates, error) {
	body, err := c.sendRequest(ctx)
	if err != nil {
		return nil, err
	}

	rates, err := c.parseXMLResponse(body)
	if err != nil {
		return nil, err
	}

	c.log.Infof("Retrieved %d ECB reference rates for %s", len(rates.Values)-1, rates.Date)
	return rates, nil
}
