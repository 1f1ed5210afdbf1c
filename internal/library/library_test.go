package library

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BerylCAtieno/syllabus-analyzer/internal/config"
	"github.com/BerylCAtieno/syllabus-analyzer/internal/syllabus"
)

type fakeCatalog struct {
	mu       sync.Mutex
	results  map[string][]Record
	errs     map[string]error
	queries  []Query
	opened   int32
	closed   int32
	openErr  error
	panicsOn string
}

func (c *fakeCatalog) Open(context.Context) (Session, error) {
	if c.openErr != nil {
		return nil, c.openErr
	}
	atomic.AddInt32(&c.opened, 1)
	return &fakeSession{c: c}, nil
}

type fakeSession struct{ c *fakeCatalog }

func (s *fakeSession) Search(_ context.Context, q Query) ([]Record, error) {
	s.c.mu.Lock()
	s.c.queries = append(s.c.queries, q)
	s.c.mu.Unlock()

	if q.Title == s.c.panicsOn && q.Title != "" {
		panic("decoder bug")
	}
	if err := s.c.errs[q.Title]; err != nil {
		return nil, err
	}
	return s.c.results[q.Title], nil
}

func (s *fakeSession) Close() error {
	atomic.AddInt32(&s.c.closed, 1)
	return nil
}

type panickyCatalog struct{}

func (panickyCatalog) Open(context.Context) (Session, error) {
	panic("boom")
}

func (c *fakeCatalog) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queries)
}

func book(title string) Record {
	return Record{
		Title: title, Creator: "Myers", Type: "book", Date: "2020",
		Links: []Link{}, CallNumber: "BF121 .M98",
		Availability: Availability{Available: true, PhysicalCopies: 2, Locations: []string{"Main Library"}},
	}
}

func metadata(items ...syllabus.ReadingMaterial) syllabus.Metadata {
	return syllabus.Metadata{Filename: "psy.pdf", ReadingMaterials: items}
}

func TestMatch_SkipsEquipment(t *testing.T) {
	cat := &fakeCatalog{results: map[string][]Record{"Psychology": {book("Psychology")}}}
	m := NewMatcher(cat, 2, nil)

	report := m.Match(context.Background(), metadata(
		syllabus.ReadingMaterial{Title: "TI-84 calculator", Requirement: "Equipment"},
		syllabus.ReadingMaterial{Title: "Lab goggles", MediaType: "equipment"},
		syllabus.ReadingMaterial{Title: "Psychology"},
	))

	assert.Equal(t, 3, report.TotalMaterials)
	assert.Equal(t, 1, report.EvaluatedMaterials)
	assert.Equal(t, 1, report.FoundMaterials)
	require.Len(t, report.LibraryMatches, 1)
	assert.Equal(t, "Psychology", report.LibraryMatches[0].OriginalQuery)
	assert.Equal(t, 1, cat.calls())
}

func TestMatch_PreResolvedURLMakesNoCall(t *testing.T) {
	cat := &fakeCatalog{}
	m := NewMatcher(cat, 2, nil)

	report := m.Match(context.Background(), metadata(
		syllabus.ReadingMaterial{Title: "Open Textbook", Creator: "OpenStax", URL: "https://example.com/book"},
	))

	assert.Equal(t, 0, cat.calls())
	require.Len(t, report.LibraryMatches, 1)
	res := report.LibraryMatches[0]
	assert.Equal(t, ScorePreResolved, res.MatchScore)
	require.Len(t, res.Matches, 1)
	match := res.Matches[0]
	assert.Equal(t, StatusAvailable, match.Availability)
	assert.Equal(t, "Online Resource", match.Format)
	assert.Equal(t, "Online", match.Location)
	require.NotNil(t, match.Link)
	assert.Equal(t, "https://example.com/book", *match.Link)
	assert.Equal(t, []string{"OpenStax"}, match.Authors)
	assert.Equal(t, 1, report.FoundMaterials)
	assert.False(t, report.Found)
}

func TestMatch_PlaceholderURLsAreSearched(t *testing.T) {
	cat := &fakeCatalog{}
	m := NewMatcher(cat, 1, nil)

	m.Match(context.Background(), metadata(
		syllabus.ReadingMaterial{Title: "A", URL: "Unknown"},
		syllabus.ReadingMaterial{Title: "B", URL: "none"},
		syllabus.ReadingMaterial{Title: "C", URL: "  "},
	))
	assert.Equal(t, 3, cat.calls())
}

func TestMatch_EmptyDocsIsNotFound(t *testing.T) {
	cat := &fakeCatalog{}
	m := NewMatcher(cat, 2, nil)

	report := m.Match(context.Background(), metadata(
		syllabus.ReadingMaterial{Title: "Obscure Monograph"},
		syllabus.ReadingMaterial{Title: "Calculator", Requirement: "equipment"},
	))

	require.Len(t, report.LibraryMatches, 1)
	assert.Equal(t, ScoreNotFound, report.LibraryMatches[0].MatchScore)
	assert.Empty(t, report.LibraryMatches[0].Matches)
	assert.NotNil(t, report.LibraryMatches[0].Matches)
	assert.False(t, report.Found)
	assert.Equal(t, 0, report.FoundMaterials)
	assert.Equal(t, 1, report.EvaluatedMaterials)
	assert.Equal(t, 2, report.TotalMaterials)
	assert.Empty(t, report.Error)
}

func TestMatch_ItemFailuresAreIsolated(t *testing.T) {
	cat := &fakeCatalog{
		results:  map[string][]Record{"Good Book": {book("Good Book")}},
		errs:     map[string]error{"Flaky Book": errors.New("connection reset")},
		panicsOn: "Cursed Book",
	}
	m := NewMatcher(cat, 3, nil)

	report := m.Match(context.Background(), metadata(
		syllabus.ReadingMaterial{Title: "Flaky Book"},
		syllabus.ReadingMaterial{Title: "Good Book"},
		syllabus.ReadingMaterial{Title: "Cursed Book"},
	))

	require.Len(t, report.LibraryMatches, 3)
	assert.Equal(t, []string{"Flaky Book", "Good Book", "Cursed Book"}, []string{
		report.LibraryMatches[0].OriginalQuery,
		report.LibraryMatches[1].OriginalQuery,
		report.LibraryMatches[2].OriginalQuery,
	})
	assert.Equal(t, ScoreNotFound, report.LibraryMatches[0].MatchScore)
	assert.Equal(t, ScoreFound, report.LibraryMatches[1].MatchScore)
	assert.Equal(t, ScoreNotFound, report.LibraryMatches[2].MatchScore)
	assert.True(t, report.Found)
	assert.Equal(t, 1, report.FoundMaterials)
	assert.Empty(t, report.Error)
}

func TestMatch_SearchHitBecomesLibraryMatch(t *testing.T) {
	cat := &fakeCatalog{results: map[string][]Record{"Psychology": {book("Psychology")}}}
	m := NewMatcher(cat, 1, nil)

	report := m.Match(context.Background(), metadata(
		syllabus.ReadingMaterial{Title: "Psychology, 5th edition, by Pearson", Creator: "Myers"},
	))

	require.Len(t, cat.queries, 1)
	assert.Equal(t, Query{Title: "Psychology", Creator: "Myers"}, cat.queries[0])

	res := report.LibraryMatches[0]
	assert.Equal(t, "Psychology, 5th edition, by Pearson", res.OriginalQuery)
	assert.Equal(t, ScoreFound, res.MatchScore)
	match := res.Matches[0]
	assert.Equal(t, StatusAvailable, match.Availability)
	assert.Equal(t, "Main Library", match.Location)
	assert.Equal(t, "book", match.Format)
	assert.Nil(t, match.Link)
	require.NotNil(t, match.CallNumber)
	assert.Equal(t, "BF121 .M98", *match.CallNumber)
	assert.Equal(t, 2, match.Details.PhysicalCopies)
}

func TestMatch_UnknownCreatorIsNotSearched(t *testing.T) {
	cat := &fakeCatalog{}
	NewMatcher(cat, 1, nil).Match(context.Background(), metadata(
		syllabus.ReadingMaterial{Title: "Cognition", Creator: syllabus.Unknown},
	))
	require.Len(t, cat.queries, 1)
	assert.Equal(t, "", cat.queries[0].Creator)
}

func TestMatch_NoCatalogMeansNotFound(t *testing.T) {
	m := NewMatcher(nil, 2, nil)

	report := m.Match(context.Background(), metadata(
		syllabus.ReadingMaterial{Title: "Psychology"},
		syllabus.ReadingMaterial{Title: "Web page", URL: "https://example.com"},
	))

	require.Len(t, report.LibraryMatches, 2)
	assert.Equal(t, ScoreNotFound, report.LibraryMatches[0].MatchScore)
	assert.Equal(t, ScorePreResolved, report.LibraryMatches[1].MatchScore)
	assert.Empty(t, report.Error)
}

func TestMatch_OpenFailureMeansNotFound(t *testing.T) {
	cat := &fakeCatalog{openErr: errors.New("dns failure")}
	report := NewMatcher(cat, 2, nil).Match(context.Background(), metadata(syllabus.ReadingMaterial{Title: "X"}))

	require.Len(t, report.LibraryMatches, 1)
	assert.Equal(t, ScoreNotFound, report.LibraryMatches[0].MatchScore)
}

func TestMatch_OpenPanicMeansNotFound(t *testing.T) {
	m := NewMatcher(panickyCatalog{}, 2, nil)

	var report AvailabilityReport
	assert.NotPanics(t, func() {
		report = m.Match(context.Background(), metadata(syllabus.ReadingMaterial{Title: "Psychology"}))
	})
	require.Len(t, report.LibraryMatches, 1)
	assert.False(t, report.Found)
	assert.Equal(t, ScoreNotFound, report.LibraryMatches[0].MatchScore)

	var reports []AvailabilityReport
	assert.NotPanics(t, func() {
		reports = m.MatchBatch(context.Background(), []syllabus.Metadata{
			metadata(syllabus.ReadingMaterial{Title: "Psychology"}),
			metadata(syllabus.ReadingMaterial{Title: "Web page", URL: "https://example.com"}),
		})
	})
	require.Len(t, reports, 2)
	assert.Equal(t, ScoreNotFound, reports[0].LibraryMatches[0].MatchScore)
	assert.Equal(t, ScorePreResolved, reports[1].LibraryMatches[0].MatchScore)
	assert.Equal(t, 1, reports[1].FoundMaterials)
}

func TestMatch_PlaceholderTitlesAreNotSearched(t *testing.T) {
	cat := &fakeCatalog{results: map[string][]Record{"Unknown": {book("Unknown")}}}
	m := NewMatcher(cat, 2, nil)

	report := m.Match(context.Background(), metadata(
		syllabus.ReadingMaterial{Title: "Unknown"},
		syllabus.ReadingMaterial{Title: " none "},
		syllabus.ReadingMaterial{Title: ""},
	))

	assert.Equal(t, 0, cat.calls())
	assert.False(t, report.Found)
	assert.Empty(t, report.LibraryMatches)
	assert.Equal(t, 3, report.TotalMaterials)
	assert.Equal(t, 0, report.EvaluatedMaterials)
}

func TestMatch_ScalarReadingListFindsNothing(t *testing.T) {
	cat := &fakeCatalog{results: map[string][]Record{"Unknown": {book("Unknown")}}}
	m := NewMatcher(cat, 2, nil)

	for _, raw := range []string{
		`{"filename":"a.pdf","reading_materials":"Unknown"}`,
		`{"filename":"a.pdf","reading_materials":["Unknown","None"]}`,
		`{"filename":"a.pdf","reading_materials":{"title":"Unknown"}}`,
	} {
		var md syllabus.Metadata
		require.NoError(t, json.Unmarshal([]byte(raw), &md), raw)

		report := m.Match(context.Background(), md.Normalize())

		assert.False(t, report.Found, raw)
		assert.Empty(t, report.LibraryMatches, raw)
		assert.Equal(t, ErrNoReadingMaterials.Error(), report.Error, raw)
	}
	assert.Equal(t, 0, cat.calls())
}

func TestMatch_EmptyReadingList(t *testing.T) {
	md := metadata()
	md.Instructor = "Jane Doe"

	report := NewMatcher(&fakeCatalog{}, 2, nil).Match(context.Background(), md)

	assert.False(t, report.Found)
	assert.Equal(t, ErrNoReadingMaterials.Error(), report.Error)
	assert.Equal(t, md, report.Metadata)
	assert.NotNil(t, report.LibraryMatches)
}

func TestMatch_ReleasesSession(t *testing.T) {
	cat := &fakeCatalog{panicsOn: "boom"}
	m := NewMatcher(cat, 2, nil)

	m.Match(context.Background(), metadata(syllabus.ReadingMaterial{Title: "boom"}, syllabus.ReadingMaterial{Title: "fine"}))

	assert.Equal(t, int32(1), atomic.LoadInt32(&cat.opened))
	assert.Equal(t, int32(1), atomic.LoadInt32(&cat.closed))
}

func TestMatchBatch_OneSessionInputOrder(t *testing.T) {
	cat := &fakeCatalog{results: map[string][]Record{
		"Book 1": {book("Book 1")},
		"Book 3": {book("Book 3")},
	}}
	m := NewMatcher(cat, 4, nil)

	records := []syllabus.Metadata{
		{Filename: "1.pdf", ReadingMaterials: []syllabus.ReadingMaterial{{Title: "Book 1"}}},
		{Filename: "2.pdf"},
		{Filename: "3.pdf", ReadingMaterials: []syllabus.ReadingMaterial{{Title: "Book 3"}}},
		{Filename: "4.pdf", ReadingMaterials: []syllabus.ReadingMaterial{{Title: "Book 4"}}},
	}

	reports := m.MatchBatch(context.Background(), records)

	require.Len(t, reports, 4)
	for i, r := range reports {
		assert.Equal(t, records[i].Filename, r.Metadata.Filename)
	}
	assert.True(t, reports[0].Found)
	assert.Equal(t, ErrNoReadingMaterials.Error(), reports[1].Error)
	assert.True(t, reports[2].Found)
	assert.False(t, reports[3].Found)

	assert.Equal(t, int32(1), atomic.LoadInt32(&cat.opened))
	assert.Equal(t, int32(1), atomic.LoadInt32(&cat.closed))
}

func TestCleanTerm(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Psychology, 5th edition, by Pearson", "Psychology"},
		{"Introduction to Psychology by Myers", "Introduction to Psychology"},
		{"Campbell Biology 11th ed.", "Campbell Biology"},
		{"Calculus  ISBN: 978-0-13-469154-4  Early Transcendentals", "Calculus Early Transcendentals"},
		{"Cognitive Psychology published by Cengage", "Cognitive Psychology"},
		{"  Plain   Title ", "Plain Title"},
		{"Learning by Doing", "Learning by Doing"},
		{"Stand by Me", "Stand by Me"},
		{"Cognitive Psychology, by Cengage", "Cognitive Psychology"},
		{"Teaching by Principles (by Brown)", "Teaching by Principles"},
	}
	for _, tt := range tests {
		got := CleanTerm(tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	cleaned := CleanTerm("Psychology, 5th edition, by Pearson")
	assert.Contains(t, cleaned, "Psychology")
	assert.NotContains(t, cleaned, "edition")
	assert.NotContains(t, cleaned, "by Pearson")
}

func TestBuildQuery(t *testing.T) {
	assert.Equal(t, "title,contains,Psychology", BuildQuery(Query{Title: "Psychology"}))
	assert.Equal(t, "title,contains,Psychology;AND;creator,contains,Myers", BuildQuery(Query{Title: "Psychology", Creator: "Myers"}))
}

const primoResponse = `{
  "info": {"total": 4},
  "docs": [
    {
      "pnx": {
        "display": {"title": ["Psychology"], "creator": ["Myers, David G."], "type": ["book"]},
        "addata": {"date": ["2018"], "isbn": ["9781319050627", "1319050623"], "pub": "Worth"}
      },
      "delivery": {"delcategory": ["Alma-P"], "link": []},
      "holdings": [
        {"location": {"mainLocation": "Marston Science"}, "callNumber": "BF121 .M98 2018",
         "items": [{"availability": "available"}, {"availability": "checked_out"}]},
        {"location": {"mainLocation": "Marston Science"}, "items": [{"availability": "available"}]}
      ]
    },
    {
      "pnx": {"display": {"title": "Psychology (ebook)", "creator": "Myers"}, "addata": {}},
      "delivery": {"link": [{"linkURL": "https://ebooks.example.edu/psy", "displayLabel": "Online access"}]}
    },
    {
      "pnx": {"display": {}, "addata": {}},
      "delivery": {}
    },
    {
      "pnx": {"display": {"title": ["Fourth hit"]}}
    }
  ]
}`

func TestPrimoSession_Search(t *testing.T) {
	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/primo/v1/search", r.URL.Path)
		gotQuery = map[string]string{}
		for k := range r.URL.Query() {
			gotQuery[k] = r.URL.Query().Get(k)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(primoResponse))
	}))
	defer srv.Close()

	cat := NewPrimoCatalog(PrimoConfig{
		BaseURL: srv.URL + "/primo/v1/", APIKey: "secret", VID: "01UFL", Tab: "Everything", Scope: "MyInst",
	}, nil)
	session, err := cat.Open(context.Background())
	require.NoError(t, err)
	defer session.Close()

	records, err := session.Search(context.Background(), Query{Title: "Psychology", Creator: "Myers"})
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"apikey": "secret",
		"q":      "title,contains,Psychology;AND;creator,contains,Myers",
		"tab":    "Everything",
		"scope":  "MyInst",
		"vid":    "01UFL",
		"lang":   "en",
		"offset": "0",
		"limit":  "5",
		"sort":   "rank",
	}, gotQuery)

	require.Len(t, records, 3)

	printed := records[0]
	assert.Equal(t, "Psychology", printed.Title)
	assert.Equal(t, "Myers, David G.", printed.Creator)
	assert.Equal(t, "2018", printed.Date)
	assert.Equal(t, []string{"9781319050627", "1319050623"}, printed.ISBN)
	assert.Equal(t, []string{"Worth"}, printed.Publisher)
	assert.Equal(t, "BF121 .M98 2018", printed.CallNumber)
	assert.Equal(t, Availability{
		Available:        true,
		PhysicalCopies:   2,
		Locations:        []string{"Marston Science"},
		DeliveryCategory: []string{"Alma-P"},
	}, printed.Availability)

	ebook := records[1]
	assert.Equal(t, "Psychology (ebook)", ebook.Title)
	assert.True(t, ebook.Availability.Available)
	assert.True(t, ebook.Availability.OnlineAccess)
	assert.Equal(t, 0, ebook.Availability.PhysicalCopies)
	require.Len(t, ebook.Links, 1)
	assert.Equal(t, "https://ebooks.example.edu/psy", ebook.Links[0].URL)

	empty := records[2]
	assert.Equal(t, "Unknown", empty.Title)
	assert.Equal(t, "Unknown", empty.Creator)
	assert.False(t, empty.Availability.Available)
	assert.Empty(t, empty.ISBN)

	lm := fromRecord(ebook)
	assert.Equal(t, StatusAvailable, lm.Availability)
	assert.Equal(t, "Online", lm.Location)
	require.NotNil(t, lm.Link)

	lm = fromRecord(empty)
	assert.Equal(t, StatusUnavailable, lm.Availability)
	assert.Equal(t, "Unknown", lm.Location)
	assert.Empty(t, lm.Authors)
}

func TestPrimoSession_NonOKIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid apikey", http.StatusUnauthorized)
	}))
	defer srv.Close()

	session, err := NewPrimoCatalog(PrimoConfig{BaseURL: srv.URL, APIKey: "bad"}, nil).Open(context.Background())
	require.NoError(t, err)
	defer session.Close()

	_, err = session.Search(context.Background(), Query{Title: "X"})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "401"))
}

func TestMatch_OverPrimo(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if strings.Contains(r.URL.Query().Get("q"), "Missing") {
			_, _ = w.Write([]byte(`{"docs": []}`))
			return
		}
		_, _ = w.Write([]byte(primoResponse))
	}))
	defer srv.Close()

	cat := NewPrimoCatalog(PrimoConfig{BaseURL: srv.URL, APIKey: "k", RateLimit: 1000}, nil)
	report := NewMatcher(cat, 2, nil).Match(context.Background(), metadata(
		syllabus.ReadingMaterial{Title: "Psychology"},
		syllabus.ReadingMaterial{Title: "Missing Book"},
		syllabus.ReadingMaterial{Title: "Microscope", MediaType: "equipment"},
	))

	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.True(t, report.Found)
	assert.Equal(t, 1, report.FoundMaterials)
	assert.Equal(t, 2, report.EvaluatedMaterials)
	assert.Equal(t, 3, report.TotalMaterials)
	require.Len(t, report.LibraryMatches[0].Matches, 3)
	assert.Equal(t, ScoreNotFound, report.LibraryMatches[1].MatchScore)
}

func TestFromConfig(t *testing.T) {
	assert.Nil(t, FromConfig(&config.Config{}, nil))
	assert.NotNil(t, FromConfig(&config.Config{PrimoAPIKey: "k", PrimoBaseURL: "http://x"}, nil))
}
