// Package api provides the client for the Osservaprezzi Carburanti registry.
//
// The registry exposes two classes of endpoints with different failure
// policies. Reference listings (region, province, town) collapse any
// transport or status failure into an empty option set: an empty picker is a
// valid state and never an error. The area search and the station detail
// fetch propagate failures, because their callers must tell "failed" apart
// from "succeeded with zero matches".
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/osservaprezzi/fuelwatch/internal/models"
	"github.com/osservaprezzi/fuelwatch/internal/resolver"
)

const userAgent = "fuelwatch (+https://github.com/osservaprezzi/fuelwatch)"

// Client talks to the Osservaprezzi registry API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     zerolog.Logger
}

// New creates a new registry client. baseURL is the API root without a
// trailing slash, e.g. "https://carburanti.mise.gov.it/ospzApi".
func New(baseURL string, timeout time.Duration, logger zerolog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger.With().Str("component", "api").Logger(),
	}
}

// StationDetails fetches the raw detail payload for one station. The payload
// is returned loosely typed; the field resolver owns normalization.
func (c *Client) StationDetails(ctx context.Context, stationID int) (map[string]any, error) {
	endpoint := fmt.Sprintf("%s/registry/servicearea/%d", c.baseURL, stationID)

	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("fetching station %d: %w", stationID, err)
	}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("parsing station %d payload: %w", stationID, err)
	}

	c.logger.Debug().Int("station", stationID).Int("bytes", len(body)).Msg("fetched station details")
	return payload, nil
}

// Regions lists all regions. Failures yield an empty list.
func (c *Client) Regions(ctx context.Context) []models.Option {
	return c.listOptions(ctx, c.baseURL+"/registry/region", nil)
}

// Provinces lists the provinces of a region. Failures yield an empty list.
func (c *Client) Provinces(ctx context.Context, regionID string) []models.Option {
	return c.listOptions(ctx, c.baseURL+"/registry/province", url.Values{"regionId": {regionID}})
}

// Towns lists the towns of a province. Failures yield an empty list.
func (c *Client) Towns(ctx context.Context, provinceID string) []models.Option {
	return c.listOptions(ctx, c.baseURL+"/registry/town", url.Values{"province": {provinceID}})
}

func (c *Client) listOptions(ctx context.Context, endpoint string, params url.Values) []models.Option {
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	body, err := c.get(ctx, endpoint)
	if err != nil {
		c.logger.Warn().Err(err).Str("url", endpoint).Msg("listing failed, returning no options")
		return nil
	}

	var wrapped struct {
		Results []map[string]any `json:"results"`
	}
	if err := json.Unmarshal(body, &wrapped); err != nil {
		c.logger.Warn().Err(err).Str("url", endpoint).Msg("malformed listing, returning no options")
		return nil
	}

	options := make([]models.Option, 0, len(wrapped.Results))
	for _, row := range wrapped.Results {
		opt := models.Option{
			ID:    resolver.StringField(row, "id"),
			Label: resolver.StringField(row, "description", "nome", "name", "label"),
		}
		if opt.ID == "" {
			continue
		}
		options = append(options, opt)
	}
	return options
}

// SearchByArea searches stations within a region/province/town triple.
// Unlike the listings, failures propagate: the caller must distinguish a
// failed search from an empty result.
func (c *Client) SearchByArea(ctx context.Context, regionID, provinceID, townID string) ([]models.StationCandidate, error) {
	// The upstream expects the region id as a number.
	var region any = regionID
	if n, err := strconv.Atoi(regionID); err == nil {
		region = n
	}
	payload, err := json.Marshal(map[string]any{
		"regione":   region,
		"provincia": provinceID,
		"comune":    townID,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding search payload: %w", err)
	}

	endpoint := c.baseURL + "/search/area"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating search request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("search returned status %d: %s", resp.StatusCode, truncate(body, 200))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading search response: %w", err)
	}

	rows, err := decodeStationList(body)
	if err != nil {
		return nil, err
	}

	candidates := make([]models.StationCandidate, 0, len(rows))
	for _, row := range rows {
		id, ok := resolver.IntField(row, "id")
		if !ok {
			continue
		}
		rec := resolver.Resolve(row)
		candidates = append(candidates, models.StationCandidate{
			ID:      id,
			Name:    rec.Name,
			Brand:   rec.Brand,
			Address: rec.Address,
			Company: rec.Company,
		})
	}

	c.logger.Info().
		Str("region", regionID).
		Str("province", provinceID).
		Str("town", townID).
		Int("count", len(candidates)).
		Msg("area search completed")

	return candidates, nil
}

// decodeStationList accepts both a bare list and a results-wrapped list.
func decodeStationList(body []byte) ([]map[string]any, error) {
	var bare []map[string]any
	if err := json.Unmarshal(body, &bare); err == nil {
		return bare, nil
	}

	var wrapped struct {
		Results []map[string]any `json:"results"`
	}
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, fmt.Errorf("parsing search response: %w", err)
	}
	return wrapped.Results, nil
}

// brandEntry is one brand in the logos response, carrying zero or more
// image markers. The first marker is used.
type brandEntry struct {
	BandieraID *int64        `json:"bandieraId"`
	Bandiera   string        `json:"bandiera"`
	Marker     []brandMarker `json:"marker"`
}

type brandMarker struct {
	Content    string `json:"content"`
	Estensione string `json:"estensione"`
}

// BrandLogos fetches all brand logos. Image content is base64; a data-URI
// media-type prefix is added when the upstream omits it.
func (c *Client) BrandLogos(ctx context.Context) ([]models.BrandLogo, error) {
	endpoint := c.baseURL + "/registry/alllogos"

	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("fetching brand logos: %w", err)
	}

	var wrapped struct {
		Loghi []brandEntry `json:"loghi"`
	}
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, fmt.Errorf("parsing brand logos: %w", err)
	}

	logos := make([]models.BrandLogo, 0, len(wrapped.Loghi))
	for _, entry := range wrapped.Loghi {
		if len(entry.Marker) == 0 {
			continue
		}
		marker := entry.Marker[0]
		if marker.Content == "" {
			continue
		}

		content := marker.Content
		if !strings.HasPrefix(content, "data:") {
			ext := marker.Estensione
			if ext == "" {
				ext = "png"
			}
			content = fmt.Sprintf("data:image/%s;base64,%s", ext, content)
		}

		var id string
		if entry.BandieraID != nil {
			id = strconv.FormatInt(*entry.BandieraID, 10)
		}
		logos = append(logos, models.BrandLogo{
			ID:    id,
			Name:  entry.Bandiera,
			Image: content,
		})
	}

	c.logger.Debug().Int("count", len(logos)).Msg("fetched brand logos")
	return logos, nil
}

func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, truncate(body, 200))
	}

	return io.ReadAll(resp.Body)
}

func truncate(body []byte, max int) string {
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}
