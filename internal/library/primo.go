package library

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/BerylCAtieno/syllabus-analyzer/internal/config"
	"github.com/BerylCAtieno/syllabus-analyzer/internal/flex"
	"github.com/BerylCAtieno/syllabus-analyzer/internal/utils"
)

const (
	// Hits requested per search; only the top maxRecords are kept.
	searchLimit = 5
	maxRecords  = 3

	itemAvailable = "available"
	unknown       = "Unknown"
)

type PrimoConfig struct {
	BaseURL string
	APIKey  string
	VID     string
	Tab     string
	Scope   string
	// Timeout bounds a single search request.
	Timeout time.Duration
	// RateLimit caps searches per second across all sessions; 0 disables.
	RateLimit float64
}

// PrimoCatalog searches an Ex Libris Primo instance through its REST API.
type PrimoCatalog struct {
	cfg     PrimoConfig
	limiter *rate.Limiter
	logger  *utils.Logger
}

func NewPrimoCatalog(cfg PrimoConfig, logger *utils.Logger) *PrimoCatalog {
	if logger == nil {
		logger = utils.NopLogger()
	}
	c := &PrimoCatalog{
		cfg:    cfg,
		logger: logger,
	}
	if cfg.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}
	return c
}

// FromConfig returns nil when no API key is configured; the matcher then
// reports every searchable item as not found.
func FromConfig(cfg *config.Config, logger *utils.Logger) Catalog {
	if cfg.PrimoAPIKey == "" {
		return nil
	}
	return NewPrimoCatalog(PrimoConfig{
		BaseURL:   cfg.PrimoBaseURL,
		APIKey:    cfg.PrimoAPIKey,
		VID:       cfg.PrimoVID,
		Tab:       cfg.PrimoTab,
		Scope:     cfg.PrimoScope,
		Timeout:   cfg.PrimoTimeout,
		RateLimit: cfg.PrimoRateLimit,
	}, logger)
}

// Open starts a session with its own connection pool, released by Close.
func (c *PrimoCatalog) Open(_ context.Context) (Session, error) {
	if c.cfg.BaseURL == "" {
		return nil, eris.New("primo base url is not configured")
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	return &primoSession{
		catalog: c,
		client:  &http.Client{Transport: transport},
	}, nil
}

type primoSession struct {
	catalog *PrimoCatalog
	client  *http.Client
}

func (s *primoSession) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

// Search makes exactly one request. Errors are returned, never retried.
func (s *primoSession) Search(ctx context.Context, q Query) ([]Record, error) {
	cfg := s.catalog.cfg

	if s.catalog.limiter != nil {
		if err := s.catalog.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "rate limit wait")
		}
	}
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	params := url.Values{}
	params.Set("apikey", cfg.APIKey)
	params.Set("q", BuildQuery(q))
	params.Set("tab", cfg.Tab)
	params.Set("scope", cfg.Scope)
	params.Set("vid", cfg.VID)
	params.Set("lang", "en")
	params.Set("offset", "0")
	params.Set("limit", fmt.Sprint(searchLimit))
	params.Set("sort", "rank")

	endpoint := strings.TrimRight(cfg.BaseURL, "/") + "/search?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, eris.Wrap(err, "build search request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "search request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "read search response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("search failed with status %d: %s", resp.StatusCode, snippet(body))
	}

	var sr searchResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, eris.Wrap(err, "decode search response")
	}

	s.catalog.logger.Debug("primo search", "query", params.Get("q"), "docs", len(sr.Docs))
	return sr.records(), nil
}

func snippet(body []byte) string {
	const limit = 200
	s := strings.TrimSpace(string(body))
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}

// Wire shapes. Primo returns most fields either as a list or as a scalar
// depending on the record, so everything goes through flex.

type searchResponse struct {
	Docs []primoDoc `json:"docs"`
}

type primoDoc struct {
	PNX struct {
		Display struct {
			Title   flex.Strings `json:"title"`
			Creator flex.Strings `json:"creator"`
			Type    flex.Strings `json:"type"`
		} `json:"display"`
		Addata struct {
			Date      flex.Strings `json:"date"`
			ISBN      flex.Strings `json:"isbn"`
			ISSN      flex.Strings `json:"issn"`
			Publisher flex.Strings `json:"pub"`
		} `json:"addata"`
	} `json:"pnx"`
	Delivery struct {
		Category json.RawMessage `json:"delcategory"`
		Link     flex.Objects    `json:"link"`
	} `json:"delivery"`
	Holdings flex.Objects `json:"holdings"`
}

type primoLink struct {
	URL   flex.String `json:"linkURL"`
	Label flex.String `json:"displayLabel"`
	Type  flex.String `json:"linkType"`
}

type primoHolding struct {
	Location struct {
		MainLocation flex.String `json:"mainLocation"`
	} `json:"location"`
	CallNumber flex.String  `json:"callNumber"`
	Items      flex.Objects `json:"items"`
}

type primoItem struct {
	Availability flex.String `json:"availability"`
	CallNumber   flex.String `json:"callNumber"`
}

func (sr searchResponse) records() []Record {
	docs := sr.Docs
	if len(docs) > maxRecords {
		docs = docs[:maxRecords]
	}
	out := make([]Record, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.record())
	}
	return out
}

func (d primoDoc) record() Record {
	display, addata := d.PNX.Display, d.PNX.Addata
	r := Record{
		Title:     orUnknown(display.Title.First()),
		Creator:   orUnknown(display.Creator.First()),
		Type:      orUnknown(display.Type.First()),
		Date:      orUnknown(addata.Date.First()),
		ISBN:      addata.ISBN.Values(),
		ISSN:      addata.ISSN.Values(),
		Publisher: addata.Publisher.Values(),
		Links:     []Link{},
	}

	for _, raw := range d.Delivery.Link {
		var l primoLink
		if json.Unmarshal(raw, &l) != nil || l.URL == "" {
			continue
		}
		r.Links = append(r.Links, Link{
			URL:   string(l.URL),
			Label: firstOr(string(l.Label), "Access Resource"),
			Type:  firstOr(string(l.Type), "unknown"),
		})
	}

	r.Availability, r.CallNumber = d.judge()
	return r
}

// judge decides availability: any delivery category, any delivery link or
// any holding item marked available.
func (d primoDoc) judge() (Availability, string) {
	a := Availability{Locations: []string{}}
	if flex.Present(d.Delivery.Category) {
		var categories flex.Strings
		_ = json.Unmarshal(d.Delivery.Category, &categories)
		a.DeliveryCategory = categories.Values()
		a.Available = true
	}
	if len(d.Delivery.Link) > 0 {
		a.OnlineAccess = true
		a.Available = true
	}

	var callNumber string
	seen := map[string]bool{}
	for _, raw := range d.Holdings {
		var h primoHolding
		if json.Unmarshal(raw, &h) != nil {
			continue
		}
		if loc := string(h.Location.MainLocation); loc != "" && !seen[loc] {
			seen[loc] = true
			a.Locations = append(a.Locations, loc)
		}
		if callNumber == "" {
			callNumber = string(h.CallNumber)
		}
		for _, rawItem := range h.Items {
			var it primoItem
			if json.Unmarshal(rawItem, &it) != nil {
				continue
			}
			if string(it.Availability) == itemAvailable {
				a.PhysicalCopies++
				a.Available = true
			}
			if callNumber == "" {
				callNumber = string(it.CallNumber)
			}
		}
	}
	return a, callNumber
}

func orUnknown(s string) string {
	return firstOr(s, unknown)
}

func firstOr(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
