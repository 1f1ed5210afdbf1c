package library

import (
	"context"
	"errors"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"

	"github.com/BerylCAtieno/syllabus-analyzer/internal/syllabus"
	"github.com/BerylCAtieno/syllabus-analyzer/internal/utils"
)

// Match scores.
const (
	ScorePreResolved = 1.0
	ScoreFound       = 0.8
	ScoreNotFound    = 0.0
)

const (
	StatusAvailable   = "available"
	StatusUnavailable = "unavailable"

	formatOnline   = "Online Resource"
	locationOnline = "Online"
)

// ErrNoReadingMaterials is reported for metadata without a reading list.
var ErrNoReadingMaterials = errors.New("no reading materials found in metadata")

// MatchResult is the outcome for one reading list item. An empty Matches
// with a zero score means "not found".
type MatchResult struct {
	OriginalQuery string         `json:"original_query"`
	MatchScore    float64        `json:"match_score"`
	Matches       []LibraryMatch `json:"matches"`
}

type LibraryMatch struct {
	Title        string       `json:"title"`
	Authors      []string     `json:"authors"`
	Availability string       `json:"availability"`
	Format       string       `json:"format"`
	Location     string       `json:"location"`
	Link         *string      `json:"link"`
	CallNumber   *string      `json:"call_number"`
	DueDate      *string      `json:"due_date"`
	CoverImage   *string      `json:"cover_image"`
	Date         string       `json:"date,omitempty"`
	ISBN         []string     `json:"isbn,omitempty"`
	ISSN         []string     `json:"issn,omitempty"`
	Publisher    []string     `json:"publisher,omitempty"`
	Details      Availability `json:"details"`
}

// AvailabilityReport aggregates the matches of one metadata record.
// TotalMaterials is the raw reading list length, equipment included;
// EvaluatedMaterials counts the items that produced a MatchResult.
type AvailabilityReport struct {
	Found              bool              `json:"found"`
	TotalMaterials     int               `json:"total_materials"`
	EvaluatedMaterials int               `json:"evaluated_materials"`
	FoundMaterials     int               `json:"found_materials"`
	LibraryMatches     []MatchResult     `json:"library_matches"`
	Metadata           syllabus.Metadata `json:"metadata"`
	Error              string            `json:"error,omitempty"`
}

// Matcher checks reading lists against a catalog. A nil catalog stands for
// "no credential": every searchable item is reported as not found.
type Matcher struct {
	catalog     Catalog
	concurrency int
	logger      *utils.Logger
}

// NewMatcher bounds the searches in flight per record by concurrency.
func NewMatcher(catalog Catalog, concurrency int, logger *utils.Logger) *Matcher {
	if concurrency < 1 {
		concurrency = 1
	}
	if logger == nil {
		logger = utils.NopLogger()
	}
	return &Matcher{catalog: catalog, concurrency: concurrency, logger: logger}
}

// Match never fails. Failures are reported in the result.
func (m *Matcher) Match(ctx context.Context, md syllabus.Metadata) AvailabilityReport {
	if len(md.ReadingMaterials) == 0 {
		return failedReport(md, ErrNoReadingMaterials)
	}

	session := m.open(ctx)
	defer closeSession(session, m.logger)

	return m.matchRecord(ctx, session, md)
}

// MatchBatch matches records concurrently over one shared session and
// returns the reports in input order.
func (m *Matcher) MatchBatch(ctx context.Context, records []syllabus.Metadata) []AvailabilityReport {
	reports := make([]AvailabilityReport, len(records))
	if len(records) == 0 {
		return reports
	}

	session := m.open(ctx)
	defer closeSession(session, m.logger)

	var g errgroup.Group
	g.SetLimit(m.concurrency)
	for i, md := range records {
		g.Go(func() error {
			if len(md.ReadingMaterials) == 0 {
				reports[i] = failedReport(md, ErrNoReadingMaterials)
				return nil
			}
			reports[i] = m.matchRecord(ctx, session, md)
			return nil
		})
	}
	_ = g.Wait()
	return reports
}

// open returns nil when searching is impossible; items are then not found.
// A panicking catalog counts as one that could not be opened.
func (m *Matcher) open(ctx context.Context) (session Session) {
	if m.catalog == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("catalog session open panicked", "panic", r)
			session = nil
		}
	}()

	session, err := m.catalog.Open(ctx)
	if err != nil {
		m.logger.Error("failed to open catalog session", "error", err)
		return nil
	}
	return session
}

func closeSession(s Session, logger *utils.Logger) {
	if s == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			logger.Error("catalog session close panicked", "panic", r)
		}
	}()
	if err := s.Close(); err != nil {
		logger.Warn("failed to close catalog session", "error", err)
	}
}

func (m *Matcher) matchRecord(ctx context.Context, session Session, md syllabus.Metadata) (report AvailabilityReport) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("availability matching panicked", "filename", md.Filename, "panic", r)
			report = failedReport(md, eris.Errorf("availability matching failed: %v", r))
		}
	}()

	type outcome struct {
		result  MatchResult
		ok      bool
		queried bool
	}
	outcomes := make([]outcome, len(md.ReadingMaterials))

	var g errgroup.Group
	g.SetLimit(m.concurrency)
	for i, item := range md.ReadingMaterials {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					m.logger.Error("reading item matching panicked", "title", item.Title, "panic", r)
					outcomes[i] = outcome{
						result: MatchResult{OriginalQuery: item.Title, MatchScore: ScoreNotFound, Matches: []LibraryMatch{}},
						ok:     true,
					}
				}
			}()
			res, ok, queried := m.matchItem(ctx, session, item)
			outcomes[i] = outcome{result: res, ok: ok, queried: queried}
			return nil
		})
	}
	_ = g.Wait()

	report = AvailabilityReport{
		TotalMaterials: len(md.ReadingMaterials),
		LibraryMatches: []MatchResult{},
		Metadata:       md,
	}
	for _, o := range outcomes {
		if !o.ok {
			continue
		}
		report.LibraryMatches = append(report.LibraryMatches, o.result)
		report.EvaluatedMaterials++
		if len(o.result.Matches) > 0 {
			report.FoundMaterials++
			if o.queried {
				report.Found = true
			}
		}
	}
	return report
}

// matchItem applies the skip, pre-resolved and search rules in order. ok is
// false for items that produce no result at all.
func (m *Matcher) matchItem(ctx context.Context, session Session, item syllabus.ReadingMaterial) (res MatchResult, ok, queried bool) {
	if item.IsEquipment() {
		return MatchResult{}, false, false
	}

	title := strings.TrimSpace(item.Title)
	if u, resolved := item.ResolvedURL(); resolved {
		return preResolved(item, title, u), true, false
	}
	if syllabus.IsPlaceholder(title) {
		return MatchResult{}, false, false
	}

	res = MatchResult{OriginalQuery: title, MatchScore: ScoreNotFound, Matches: []LibraryMatch{}}
	if session == nil {
		return res, true, false
	}

	records, err := m.search(ctx, session, buildSearchQuery(item))
	if err != nil {
		m.logger.Warn("library search failed", "title", title, "error", err)
		return res, true, true
	}
	if len(records) == 0 {
		return res, true, true
	}

	res.MatchScore = ScoreFound
	for _, r := range records {
		res.Matches = append(res.Matches, fromRecord(r))
	}
	return res, true, true
}

// search turns a panicking session into a failed search for this item only.
func (m *Matcher) search(ctx context.Context, session Session, q Query) (records []Record, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = eris.Errorf("search panicked: %v", r)
		}
	}()
	return session.Search(ctx, q)
}

func buildSearchQuery(item syllabus.ReadingMaterial) Query {
	q := Query{Title: CleanTerm(item.Title)}
	if q.Title == "" {
		q.Title = strings.Join(strings.Fields(item.Title), " ")
	}
	if creator := strings.TrimSpace(item.Creator); creator != "" && creator != syllabus.Unknown {
		q.Creator = CleanTerm(creator)
	}
	return q
}

func preResolved(item syllabus.ReadingMaterial, title, link string) MatchResult {
	return MatchResult{
		OriginalQuery: title,
		MatchScore:    ScorePreResolved,
		Matches: []LibraryMatch{{
			Title:        title,
			Authors:      authors(item.Creator),
			Availability: StatusAvailable,
			Format:       formatOnline,
			Location:     locationOnline,
			Link:         &link,
			Details:      Availability{Available: true, OnlineAccess: true, Locations: []string{}},
		}},
	}
}

func fromRecord(r Record) LibraryMatch {
	lm := LibraryMatch{
		Title:        r.Title,
		Authors:      authors(r.Creator),
		Availability: StatusUnavailable,
		Format:       r.Type,
		Location:     unknown,
		Date:         r.Date,
		ISBN:         r.ISBN,
		ISSN:         r.ISSN,
		Publisher:    r.Publisher,
		Details:      r.Availability,
	}
	if r.Availability.Available || r.Availability.OnlineAccess {
		lm.Availability = StatusAvailable
	}
	switch {
	case len(r.Availability.Locations) > 0:
		lm.Location = r.Availability.Locations[0]
	case r.Availability.OnlineAccess:
		lm.Location = locationOnline
	}
	if len(r.Links) > 0 {
		link := r.Links[0].URL
		lm.Link = &link
	}
	if r.CallNumber != "" {
		cn := r.CallNumber
		lm.CallNumber = &cn
	}
	return lm
}

func authors(creator string) []string {
	creator = strings.TrimSpace(creator)
	if creator == "" || creator == unknown {
		return []string{}
	}
	return []string{creator}
}

func failedReport(md syllabus.Metadata, err error) AvailabilityReport {
	return AvailabilityReport{
		TotalMaterials: len(md.ReadingMaterials),
		LibraryMatches: []MatchResult{},
		Metadata:       md,
		Error:          err.Error(),
	}
}
