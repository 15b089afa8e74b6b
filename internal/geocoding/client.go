package geocoding

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/evanhutnik/weatherstate-service/internal/common"
	t "github.com/evanhutnik/weatherstate-service/internal/types"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const path = "/api/geocoding"

var placeReplacer = strings.NewReplacer(" ", "+", ",", "+")

type ClientOption func(*Client)

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

type Client struct {
	baseUrl string
	hc      *http.Client
}

func New(opts ...ClientOption) *Client {
	c := &Client{}
	for _, opt := range opts {
		opt(c)
	}

	if c.baseUrl == "" {
		panic("Missing baseUrl in geocoding client")
	}
	return c
}

// FormatPlace turns a free-text place into the '+' delimited form the
// geocoding endpoint expects.
func FormatPlace(name string) string {
	return placeReplacer.Replace(name)
}

// placeQuery escapes each segment but keeps the '+' delimiters literal.
func placeQuery(formatted string) string {
	parts := strings.Split(formatted, "+")
	for i, p := range parts {
		parts[i] = url.QueryEscape(p)
	}
	return "place=" + strings.Join(parts, "+")
}

func (c *Client) GeoCode(ctx context.Context, name string) (*t.Coordinates, error) {
	info, err := c.Lookup(ctx, name)
	if err != nil {
		return nil, err
	}
	return CoordsFromGeocodingInfo(info)
}

func (c *Client) Lookup(ctx context.Context, name string) (*t.GeocodingInfo, error) {
	req, err := url.Parse(c.baseUrl + path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse geocoding baseUrl %s: %w", c.baseUrl, err)
	}
	req.RawQuery = placeQuery(FormatPlace(name))

	ctxReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build geocoding request: %w", err)
	}
	ctxReq.Header.Set("Accept", "application/json")

	resp, err := common.Get(c.hc, ctxReq, "geocoding")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading geocoding response body: %w", err)
	}

	var respObj t.GeocodingInfo
	if err := json.Unmarshal(body, &respObj); err != nil {
		return nil, fmt.Errorf("error unmarshalling response from geocoding: %w", err)
	}
	return &respObj, nil
}

// CoordsFromGeocodingInfo extracts the first result's location. The formatted
// address becomes the coordinates' name.
func CoordsFromGeocodingInfo(info *t.GeocodingInfo) (*t.Coordinates, error) {
	if info == nil {
		return nil, fmt.Errorf("empty geocoding response")
	}
	if info.Status != "" && info.Status != StatusOK {
		return nil, fmt.Errorf("geocoding returned status %s", info.Status)
	}
	if len(info.Results) == 0 {
		return nil, fmt.Errorf("no geocoding results")
	}
	loc := info.Results[0].Geometry.Location
	return &t.Coordinates{
		Name:      info.Results[0].FormattedAddress,
		Latitude:  loc.Lat,
		Longitude: loc.Lng,
	}, nil
}
