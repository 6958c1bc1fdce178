package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/netip"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/amirphl/Susanoo/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"
)

const (
	defaultIPInfoBaseURL = "https://ipinfo.io"
	defaultIPAPIBaseURL  = "http://ip-api.com"
	ipAPIFields          = "status,message,country,countryCode,city,region,regionName,isp,org,as,query,lat,lon,mobile,proxy,hosting"
	maxGeoResponseBytes  = 64 << 10
)

var geoLookups = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "susanoo_geo_lookups_total",
		Help: "Geolocation provider calls by provider and result",
	},
	[]string{"provider", "result"},
)

// GeoLocation is the provider independent lookup result.
type GeoLocation struct {
	Country      string
	City         string
	Region       string
	Latitude     *float64
	Longitude    *float64
	Organization string
	Source       string
}

// GeoProvider resolves an IP address to a location.
type GeoProvider interface {
	Name() string
	Lookup(ctx context.Context, ip string) (*GeoLocation, error)
}

// GeoLocator is what enrichment depends on: a lookup that already handles
// provider fallback.
type GeoLocator interface {
	Lookup(ctx context.Context, ip string) (*GeoLocation, error)
}

// GeoChain tries providers in order, each under its own timeout, and
// returns the first success.
type GeoChain struct {
	providers []GeoProvider
	timeout   time.Duration
}

func NewGeoChain(timeout time.Duration, providers ...GeoProvider) *GeoChain {
	return &GeoChain{providers: providers, timeout: timeout}
}

// NewGeoChainFromConfig builds the ipinfo then ip-api chain.
func NewGeoChainFromConfig(cfg config.GeolocationConfig) *GeoChain {
	client := &http.Client{Timeout: cfg.Timeout}
	return NewGeoChain(cfg.Timeout,
		NewIPInfoProvider(cfg.IPInfoBaseURL, cfg.IPInfoToken, client),
		NewIPAPIProvider(cfg.IPAPIBaseURL, client),
	)
}

func (c *GeoChain) Lookup(ctx context.Context, ip string) (*GeoLocation, error) {
	if len(c.providers) == 0 {
		return nil, errors.New("no geolocation providers configured")
	}

	var errs []error
	for _, p := range c.providers {
		loc, err := c.lookupOne(ctx, p, ip)
		if err == nil {
			geoLookups.WithLabelValues(p.Name(), "success").Inc()
			return loc, nil
		}
		geoLookups.WithLabelValues(p.Name(), "failure").Inc()
		logrus.WithError(err).WithFields(logrus.Fields{"provider": p.Name(), "ip": ip}).Debug("geolocation provider failed")
		errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))

		if ctx.Err() != nil {
			break
		}
	}
	return nil, errors.Join(errs...)
}

func (c *GeoChain) lookupOne(ctx context.Context, p GeoProvider, ip string) (*GeoLocation, error) {
	if c.timeout <= 0 {
		return p.Lookup(ctx, ip)
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return p.Lookup(ctx, ip)
}

// IsPublicIP reports whether ip is worth a geolocation lookup. Loopback,
// private, link-local, unspecified and unparsable addresses are not.
func IsPublicIP(ip string) bool {
	addr, err := netip.ParseAddr(strings.TrimSpace(ip))
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	return !(addr.IsLoopback() ||
		addr.IsPrivate() ||
		addr.IsUnspecified() ||
		addr.IsLinkLocalUnicast() ||
		addr.IsLinkLocalMulticast() ||
		addr.IsMulticast())
}

// IPInfoProvider queries ipinfo.io.
type IPInfoProvider struct {
	baseURL string
	token   string
	client  *http.Client
}

func NewIPInfoProvider(baseURL, token string, client *http.Client) *IPInfoProvider {
	if baseURL == "" {
		baseURL = defaultIPInfoBaseURL
	}
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &IPInfoProvider{baseURL: strings.TrimRight(baseURL, "/"), token: token, client: client}
}

func (p *IPInfoProvider) Name() string { return "ipinfo" }

type ipInfoResponse struct {
	IP       string `json:"ip"`
	City     string `json:"city"`
	Region   string `json:"region"`
	Country  string `json:"country"`
	Loc      string `json:"loc"`
	Org      string `json:"org"`
	Hostname string `json:"hostname"`
	Bogon    bool   `json:"bogon"`
}

func (p *IPInfoProvider) Lookup(ctx context.Context, ip string) (*GeoLocation, error) {
	endpoint := fmt.Sprintf("%s/%s/json", p.baseURL, url.PathEscape(ip))
	if p.token != "" {
		endpoint += "?token=" + url.QueryEscape(p.token)
	}

	var body ipInfoResponse
	if err := getJSON(ctx, p.client, endpoint, &body); err != nil {
		return nil, err
	}
	if body.Bogon {
		return nil, fmt.Errorf("address %s is not routable", ip)
	}
	if body.Country == "" {
		return nil, errors.New("response has no country")
	}

	loc := &GeoLocation{
		Country:      body.Country,
		City:         body.City,
		Region:       body.Region,
		Organization: body.Org,
		Source:       p.Name(),
	}
	loc.Latitude, loc.Longitude = parseLatLon(body.Loc)
	return loc, nil
}

// IPAPIProvider queries ip-api.com.
type IPAPIProvider struct {
	baseURL string
	client  *http.Client
}

func NewIPAPIProvider(baseURL string, client *http.Client) *IPAPIProvider {
	if baseURL == "" {
		baseURL = defaultIPAPIBaseURL
	}
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &IPAPIProvider{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

func (p *IPAPIProvider) Name() string { return "ip-api" }

type ipAPIResponse struct {
	Status     string   `json:"status"`
	Message    string   `json:"message"`
	Country    string   `json:"country"`
	City       string   `json:"city"`
	RegionName string   `json:"regionName"`
	Lat        *float64 `json:"lat"`
	Lon        *float64 `json:"lon"`
	ISP        string   `json:"isp"`
	Org        string   `json:"org"`
}

func (p *IPAPIProvider) Lookup(ctx context.Context, ip string) (*GeoLocation, error) {
	endpoint := fmt.Sprintf("%s/json/%s?fields=%s", p.baseURL, url.PathEscape(ip), ipAPIFields)

	var body ipAPIResponse
	if err := getJSON(ctx, p.client, endpoint, &body); err != nil {
		return nil, err
	}
	if body.Status != "success" {
		return nil, fmt.Errorf("lookup status %q: %s", body.Status, body.Message)
	}

	org := body.Org
	if org == "" {
		org = body.ISP
	}
	return &GeoLocation{
		Country:      body.Country,
		City:         body.City,
		Region:       body.RegionName,
		Latitude:     body.Lat,
		Longitude:    body.Lon,
		Organization: org,
		Source:       p.Name(),
	}, nil
}

func getJSON(ctx context.Context, client *http.Client, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("http status: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxGeoResponseBytes))
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// parseLatLon splits ipinfo's "lat,lon" string.
func parseLatLon(s string) (*float64, *float64) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return nil, nil
	}
	lat, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lon, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err1 != nil || err2 != nil {
		return nil, nil
	}
	return &lat, &lon
}
