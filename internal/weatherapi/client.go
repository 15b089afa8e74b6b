package weatherapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/evanhutnik/weatherstate-service/internal/common"
	"github.com/evanhutnik/weatherstate-service/internal/types"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const path = "/api/weather"

type ClientOption func(*Client)

type Client struct {
	baseUrl string
	hc      *http.Client
}

func BaseUrlOption(baseUrl string) ClientOption {
	return func(c *Client) {
		c.baseUrl = strings.TrimRight(baseUrl, "/")
	}
}

func HttpClientOption(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.hc = hc
	}
}

func New(opts ...ClientOption) *Client {
	c := &Client{}

	for _, opt := range opts {
		opt(c)
	}

	if c.baseUrl == "" {
		panic("Missing baseUrl in weather client")
	}
	return c
}

// GetWeather returns the current weather payload for a position without
// interpreting it beyond checking that it is JSON.
func (c Client) GetWeather(ctx context.Context, lat float64, lng float64) (types.WeatherData, error) {
	req, err := url.Parse(c.baseUrl + path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse baseUrl %s: %w", c.baseUrl, err)
	}

	q := req.Query()
	q.Add("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Add("lng", strconv.FormatFloat(lng, 'f', -1, 64))
	req.RawQuery = q.Encode()

	ctxReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build weather request: %w", err)
	}
	ctxReq.Header.Set("Accept", "application/json")

	resp, err := common.Get(c.hc, ctxReq, "weather")
	if err != nil {
		return nil, err
	}

	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading body of response: %w", err)
	}

	if !json.Valid(body) {
		return nil, errors.New("error unmarshalling response from weather: invalid JSON")
	}
	return types.WeatherData(body), nil
}
