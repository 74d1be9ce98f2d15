// Package osrm is a thin client for the OSRM table and route services. Both
// calls are single-attempt with a fixed timeout; callers are expected to fall
// back to geodesic estimates when they fail.
package osrm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"fleetopt/internal/geo"
)

// DefaultRadiusM is the snap radius sent for every coordinate.
const DefaultRadiusM = 35000

// Table holds square duration and distance matrices indexed like the request
// coordinate list. Cells are nil for unreachable pairs.
type Table struct {
	Durations [][]*float64
	Distances [][]*float64
}

type Client struct {
	baseURL string
	httpc   *http.Client
	limiter *rate.Limiter
	log     logrus.FieldLogger
}

// NewClient builds a client for the OSRM instance at baseURL. The limiter
// keeps request bursts polite toward shared instances.
func NewClient(baseURL string, timeout time.Duration, log logrus.FieldLogger) *Client {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(5), 2),
		log:     log.WithField("component", "osrm"),
	}
}

func coordPath(points []geo.Point) (coords, radiuses string) {
	cs := make([]string, len(points))
	rs := make([]string, len(points))
	for i, p := range points {
		cs[i] = fmt.Sprintf("%f,%f", p.Lng, p.Lat)
		rs[i] = fmt.Sprintf("%d", DefaultRadiusM)
	}
	return strings.Join(cs, ";"), strings.Join(rs, ";")
}

type tableResponse struct {
	Code      string       `json:"code"`
	Message   string       `json:"message,omitempty"`
	Durations [][]*float64 `json:"durations"`
	Distances [][]*float64 `json:"distances"`
}

// Table fetches the all-pairs duration/distance matrices for points. Any
// transport error, non-200 status, or non-"Ok" payload code is returned as an
// error; the caller decides how to recover.
func (c *Client) Table(ctx context.Context, points []geo.Point) (*Table, error) {
	coords, radiuses := coordPath(points)
	url := fmt.Sprintf("%s/table/v1/car/%s?annotations=duration,distance&radiuses=%s",
		c.baseURL, coords, radiuses)

	var tr tableResponse
	if err := c.getJSON(ctx, url, &tr); err != nil {
		return nil, fmt.Errorf("table request: %w", err)
	}
	if tr.Code != "Ok" {
		return nil, fmt.Errorf("table response code %q: %s", tr.Code, tr.Message)
	}
	n := len(points)
	if len(tr.Durations) != n || len(tr.Distances) != n {
		return nil, fmt.Errorf("table response not %dx%d", n, n)
	}
	for i := range tr.Durations {
		if len(tr.Durations[i]) != n || len(tr.Distances[i]) != n {
			return nil, fmt.Errorf("table row %d not %d wide", i, n)
		}
	}
	return &Table{Durations: tr.Durations, Distances: tr.Distances}, nil
}

type routeResponse struct {
	Code   string `json:"code"`
	Routes []struct {
		Geometry string `json:"geometry"`
	} `json:"routes"`
}

// Route fetches an encoded polyline for the ordered coordinate sequence.
func (c *Client) Route(ctx context.Context, points []geo.Point) (string, error) {
	if len(points) < 2 {
		return "", fmt.Errorf("route needs at least 2 points, got %d", len(points))
	}
	coords, radiuses := coordPath(points)
	url := fmt.Sprintf("%s/route/v1/car/%s?alternatives=false&steps=false&overview=full&continue_straight=false&radiuses=%s",
		c.baseURL, coords, radiuses)

	var rr routeResponse
	if err := c.getJSON(ctx, url, &rr); err != nil {
		return "", fmt.Errorf("route request: %w", err)
	}
	if rr.Code != "Ok" || len(rr.Routes) == 0 {
		return "", fmt.Errorf("route response code %q with %d routes", rr.Code, len(rr.Routes))
	}
	return rr.Routes[0].Geometry, nil
}

func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	start := time.Now()
	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.log.WithFields(logrus.Fields{"status": resp.StatusCode, "dur_ms": time.Since(start).Milliseconds()}).
			Warn("osrm non-200 response")
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
