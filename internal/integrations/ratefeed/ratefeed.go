// Package ratefeed fetches a published base lending rate from an XML feed.
// It only seeds the default interest rate at startup; the configured flat
// rate always stands as the fallback.
package ratefeed

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/beevik/etree"
	"github.com/sirupsen/logrus"

	"github.com/msbfinance/loan-office/internal/config"
)

// Client retrieves the base rate from the configured feed.
type Client struct {
	url    string
	margin float64
	client *http.Client
	log    *logrus.Logger
}

// NewClient initializes a new rate feed client
func NewClient(cfg *config.Config, log *logrus.Logger) *Client {
	return &Client{
		url:    cfg.RateFeedURL,
		margin: cfg.RateFeedMargin,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		log: log,
	}
}

// Enabled reports whether a feed URL is configured.
func (c *Client) Enabled() bool { return c.url != "" }

func (c *Client) fetch() ([]byte, error) {
	resp, err := c.client.Get(c.url)
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

	c.log.Debugf("rate feed XML response: %s", string(body))
	return body, nil
}

// parseXMLResponse extracts the most recent rate element from the feed.
func (c *Client) parseXMLResponse(rawBody []byte) (float64, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(rawBody); err != nil {
		return 0, fmt.Errorf("failed to parse XML: %v", err)
	}

	elements := doc.FindElements("//Rates/Rate")
	if len(elements) == 0 {
		return 0, fmt.Errorf("no rate data found in XML")
	}

	var rate float64
	if _, err := fmt.Sscanf(elements[0].Text(), "%f", &rate); err != nil {
		return 0, fmt.Errorf("failed to parse rate: %v", err)
	}
	return rate, nil
}

// LendingRate returns the feed's base rate plus the configured margin.
func (c *Client) LendingRate() (float64, error) {
	body, err := c.fetch()
	if err != nil {
		return 0, err
	}

	rate, err := c.parseXMLResponse(body)
	if err != nil {
		return 0, err
	}

	rate += c.margin
	c.log.Infof("Retrieved base rate: %.2f%% (including %.2f%% margin)", rate, c.margin)
	return rate, nil
}
