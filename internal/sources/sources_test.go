package sources

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/mmcdole/gofeed"

	"github.com/IshaanNene/NewsCatcher/internal/config"
	"github.com/IshaanNene/NewsCatcher/internal/fetcher"
	"github.com/IshaanNene/NewsCatcher/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func newTestHTTP(t *testing.T, cfg *config.Config) *fetcher.HTTPFetcher {
	t.Helper()
	f, err := fetcher.NewHTTPFetcher(cfg, testLogger)
	if err != nil {
		t.Fatalf("NewHTTPFetcher: %v", err)
	}
	t.Cleanup(func() { f.Close() })
	return f
}

func rssItem(i int, title, desc string) string {
	return fmt.Sprintf(`<item><title>%s</title><link>https://example.com/story-%d</link>`+
		`<description><![CDATA[%s]]></description><pubDate>Mon, 02 Jan 2006 15:04:05 -0700</pubDate></item>`, title, i, desc)
}

func rssFeed(items ...string) string {
	return `<?xml version="1.0"?><rss version="2.0"><channel><title>Local</title>` + strings.Join(items, "") + `</channel></rss>`
}

func TestClassify(t *testing.T) {
	feed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(rssFeed()))
	}))
	defer feed.Close()
	sniffed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte(rssFeed()))
	}))
	defer sniffed.Close()
	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html><body>hello</body></html>"))
	}))
	defer page.Close()
	down := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	downURL := down.URL
	down.Close()

	cfg := config.DefaultConfig()
	c := NewClassifier(newTestHTTP(t, cfg), cfg, testLogger)

	tests := []struct {
		url  string
		want types.SourceKind
	}{
		{"https://newsapi.org/v2/everything?q=Northport", types.SourceAPI},
		{"https://patch.com/new-york/huntington/rss.xml", types.SourceRSS},
		{"https://example.com/news.RSS?x=1", types.SourceRSS},
		{feed.URL + "/latest", types.SourceRSS},
		{sniffed.URL + "/latest", types.SourceRSS},
		{page.URL, types.SourceWebsite},
		{downURL, types.SourceWebsite},
	}
	for _, tt := range tests {
		if got := c.Classify(context.Background(), tt.url); got != tt.want {
			t.Errorf("Classify(%q) = %s, want %s", tt.url, got, tt.want)
		}
	}
}

func TestRSSFetchCapsEntries(t *testing.T) {
	var items []string
	for i := 0; i < 25; i++ {
		items = append(items, rssItem(i, fmt.Sprintf("Story %d", i), "<p>Summary</p>"))
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(rssFeed(items...)))
	}))
	defer srv.Close()

	cfg := config.DefaultConfig()
	f := NewRSSFetcher(newTestHTTP(t, cfg), cfg, testLogger)
	src := types.SourceDescriptor{Name: "Patch", URL: srv.URL, Category: types.CategoryEvent, Location: "Northport, NY"}
	got, err := f.Fetch(context.Background(), src)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(got) != 20 {
		t.Fatalf("got %d candidates, want 20", len(got))
	}
	first := got[0]
	if first.URL != "https://example.com/story-0" || first.Title != "Story 0" {
		t.Errorf("unexpected candidate %+v", first)
	}
	if first.Text != "Story 0\n\nSummary\n\nSummary" {
		t.Errorf("text = %q", first.Text)
	}
	if first.Published.IsZero() || first.Published.Year() != 2006 {
		t.Errorf("published = %v", first.Published)
	}
	if first.SourceName != "Patch" || first.DefaultLocation != "Northport, NY" || first.CategoryHint != types.CategoryEvent {
		t.Errorf("descriptor fields not carried: %+v", first)
	}
}

func TestRSSFetchRetriesWithBrowserRequest(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/rss+xml")
		if r.Header.Get("Accept-Language") == "" {
			w.Write([]byte(rssFeed()))
			return
		}
		w.Write([]byte(rssFeed(rssItem(1, "Harbor cleanup", "Volunteers needed"))))
	}))
	defer srv.Close()

	cfg := config.DefaultConfig()
	got, err := NewRSSFetcher(newTestHTTP(t, cfg), cfg, testLogger).Fetch(context.Background(), types.SourceDescriptor{URL: srv.URL})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if calls != 2 || len(got) != 1 {
		t.Errorf("calls=%d candidates=%d, want 2 and 1", calls, len(got))
	}
}

func TestRSSFetchNon2xxYieldsNothing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	cfg := config.DefaultConfig()
	got, err := NewRSSFetcher(newTestHTTP(t, cfg), cfg, testLogger).Fetch(context.Background(), types.SourceDescriptor{URL: srv.URL})
	if err != nil || len(got) != 0 {
		t.Errorf("Fetch = %d candidates, %v; want none and no error", len(got), err)
	}
}

func TestEntryText(t *testing.T) {
	item := &gofeed.Item{
		Title:       "Title",
		Description: "<p>Short &amp; sweet</p>",
		Content:     "<div>Body <b>bold</b><script>x()</script></div>",
	}
	if got := EntryText(item); got != "Title\n\nShort & sweet\n\nBody bold" {
		t.Errorf("EntryText = %q", got)
	}
	item.Content = ""
	if got := EntryText(item); got != "Title\n\nShort & sweet\n\nShort & sweet" {
		t.Errorf("EntryText without content = %q", got)
	}
}

type fakeBrowser struct {
	pages  map[string]string
	opened int
	closed int
}

func (b *fakeBrowser) NewContext(context.Context) (fetcher.PageContext, error) {
	b.opened++
	return &fakePage{b: b}, nil
}

type fakePage struct{ b *fakeBrowser }

func (p *fakePage) Render(_ context.Context, rawURL string) (*types.Response, error) {
	body, ok := p.b.pages[rawURL]
	if !ok {
		return nil, &types.FetchError{URL: rawURL, Err: types.ErrTimeout}
	}
	req, err := types.NewRequest(rawURL)
	if err != nil {
		return nil, err
	}
	return types.NewRenderedResponse(req, []byte(body), rawURL, 0), nil
}

func (p *fakePage) Close() error {
	p.b.closed++
	return nil
}

func TestWebsiteFetch(t *testing.T) {
	const site = "https://news.example.com"
	var listing strings.Builder
	listing.WriteString("<html><body>")
	for i := 1; i <= 12; i++ {
		fmt.Fprintf(&listing, `<div class="news-item"><a href="/story-%d">Story %d</a></div>`, i, i)
	}
	listing.WriteString("</body></html>")

	pages := map[string]string{site + "/": listing.String()}
	for i := 1; i <= 12; i++ {
		if i == 3 {
			continue
		}
		pages[fmt.Sprintf("%s/story-%d", site, i)] = fmt.Sprintf(
			`<html><head><title>Story %d</title></head><body><nav>Menu</nav><article><h1>Story %d</h1>`+
				`<p>The village board approved the new park plan on Tuesday evening.</p></article></body></html>`, i, i)
	}
	pages[site+"/story-5"] = `<html><head><title>Story 5</title></head><body>` +
		`<div>Short line</div><div>Residents gathered downtown for the annual harbor festival.</div>` +
		`<div>This site uses Cookie settings to improve your experience here.</div></body></html>`

	b := &fakeBrowser{pages: pages}
	cfg := config.DefaultConfig()
	w := NewWebsiteFetcher(b, nil, cfg, testLogger)
	got, err := w.Fetch(context.Background(), types.SourceDescriptor{Name: "Village", URL: site + "/", Location: "Huntington, NY"})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if b.opened != 1 || b.closed != 1 {
		t.Errorf("contexts opened=%d closed=%d, want 1 and 1", b.opened, b.closed)
	}
	// ten links followed, story-3 fails to load
	if len(got) != 9 {
		t.Fatalf("got %d candidates, want 9", len(got))
	}
	for _, c := range got {
		if c.URL == site+"/story-11" || c.URL == site+"/story-12" {
			t.Errorf("link beyond cap followed: %s", c.URL)
		}
		if c.Published.IsZero() || c.SourceName != "Village" || c.DefaultLocation != "Huntington, NY" {
			t.Errorf("unexpected candidate %+v", c)
		}
		if !strings.Contains(c.Title, "Story") {
			t.Errorf("title = %q", c.Title)
		}
	}
	for _, c := range got {
		if c.URL != site+"/story-5" {
			continue
		}
		if c.Text != "Residents gathered downtown for the annual harbor festival." {
			t.Errorf("body text = %q", c.Text)
		}
	}
	if !strings.Contains(got[0].Text, "park plan") {
		t.Errorf("container text = %q", got[0].Text)
	}
}

func TestWebsiteFetchClosesContextOnError(t *testing.T) {
	b := &fakeBrowser{pages: map[string]string{}}
	w := NewWebsiteFetcher(b, nil, config.DefaultConfig(), testLogger)
	_, err := w.Fetch(context.Background(), types.SourceDescriptor{URL: "https://down.example.com/"})
	if !errors.Is(err, types.ErrTimeout) {
		t.Errorf("expected timeout error, got %v", err)
	}
	if b.closed != 1 {
		t.Errorf("context closed %d times, want 1", b.closed)
	}
}

func TestNewsAPIBuildQuery(t *testing.T) {
	c := NewNewsAPIClient(nil, config.DefaultConfig(), testLogger)
	q := c.BuildQuery("huntington")
	if !strings.HasPrefix(q, `"Huntington Long Island" OR "Huntington NY"`) {
		t.Errorf("region query = %q", q)
	}
	if !strings.Contains(q, " AND (local OR community OR news") {
		t.Errorf("region query missing keywords: %q", q)
	}
	if got := c.BuildQuery("Northport"); got != "Northport AND (local OR community OR neighborhood)" {
		t.Errorf("generic query = %q", got)
	}
}

func TestNewsAPICandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/everything" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("X-Api-Key") != "key" {
			t.Errorf("api key header = %q", r.Header.Get("X-Api-Key"))
		}
		q := r.URL.Query()
		if q.Get("pageSize") != "100" || q.Get("sortBy") != "relevancy" || q.Get("language") != "en" || q.Get("from") == "" {
			t.Errorf("unexpected params %v", q)
		}
		w.Write([]byte(`{"status":"ok","totalResults":4,"articles":[
			{"source":{"name":"Surf Daily"},"title":"Huntington Beach surf contest","description":"Big waves in Long Island style","url":"https://a/1","publishedAt":"2024-05-01T10:00:00Z"},
			{"source":{"name":"Newsday"},"author":"J. Doe","title":"Library expands hours","description":"Town of Huntington library news","content":"More hours","url":"https://a/2","publishedAt":"2024-05-02T10:00:00Z"},
			{"source":{"name":"Other"},"title":"Huntington mention","description":"nothing regional","url":"https://a/3"},
			{"source":{"name":"Other"},"title":"Many people in Huntington","description":"any day now","url":"https://a/4"}
		]}`))
	}))
	defer srv.Close()

	cfg := config.DefaultConfig()
	cfg.NewsAPI.Endpoint = srv.URL
	cfg.NewsAPI.APIKey = "key"
	c := NewNewsAPIClient(newTestHTTP(t, cfg), cfg, testLogger)

	got, err := c.Candidates(context.Background(), "Huntington")
	if err != nil {
		t.Fatalf("Candidates: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d candidates, want 1: %+v", len(got), got)
	}
	cand := got[0]
	if cand.URL != "https://a/2" || cand.SourceName != "Newsday" || cand.DefaultLocation != "Huntington, NY" {
		t.Errorf("unexpected candidate %+v", cand)
	}
	want := "Title: Library expands hours\nSource: Newsday\nAuthor: J. Doe\nPublished: 2024-05-02T10:00:00Z\nDescription: Town of Huntington library news\nContent: More hours"
	if cand.Text != want {
		t.Errorf("text = %q", cand.Text)
	}
	if cand.Published.Day() != 2 {
		t.Errorf("published = %v", cand.Published)
	}
}

func TestNewsAPIErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"status":"error","code":"apiKeyInvalid","message":"Your API key is invalid"}`))
	}))
	defer srv.Close()

	cfg := config.DefaultConfig()
	cfg.NewsAPI.Endpoint = srv.URL
	cfg.NewsAPI.APIKey = "bad"
	_, err := NewNewsAPIClient(newTestHTTP(t, cfg), cfg, testLogger).Everything(context.Background(), "Northport")
	var pe *types.ProviderError
	if !errors.As(err, &pe) || !strings.Contains(err.Error(), "invalid") {
		t.Errorf("expected provider error, got %v", err)
	}
}

func TestNewsAPIFetchWithoutKey(t *testing.T) {
	c := NewNewsAPIClient(nil, config.DefaultConfig(), testLogger)
	got, err := c.Fetch(context.Background(), types.SourceDescriptor{Name: "Huntington", URL: "https://newsapi.org/"})
	if err != nil || got != nil {
		t.Errorf("Fetch without key = %v, %v", got, err)
	}
}

func TestSearchLocation(t *testing.T) {
	tests := []struct {
		src  types.SourceDescriptor
		want string
	}{
		{types.SourceDescriptor{Name: "x", URL: "https://newsapi.org/v2/everything?q=Northport"}, "Northport"},
		{types.SourceDescriptor{Name: "x", URL: "https://newsapi.org/?location=Greenlawn&q=ignored"}, "Greenlawn"},
		{types.SourceDescriptor{Name: "Huntington", URL: "https://newsapi.org/"}, "Huntington"},
	}
	for _, tt := range tests {
		if got := SearchLocation(tt.src); got != tt.want {
			t.Errorf("SearchLocation(%s) = %q, want %q", tt.src.URL, got, tt.want)
		}
	}
}

func TestLocalFeedsCollect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		switch {
		case strings.HasPrefix(r.URL.Path, "/patch/huntington/"):
			w.Write([]byte(rssFeed(
				rssItem(1, "Village parade this weekend", "Main Street closes"),
				rssItem(2, "School budget passes", "Voters approve"),
			)))
		case r.URL.Path == "/newsday":
			w.Write([]byte(rssFeed(
				rssItem(3, "Centerport restaurant opens", "A new Long Island spot"),
				rssItem(4, "Yankees win", "Bronx baseball"),
				rssItem(5, "Suffolk police arrest suspect", "No local names here"),
			)))
		case r.URL.Path == "/google":
			if r.URL.Query().Get("q") != "Huntington NY" {
				t.Errorf("google query = %q", r.URL.Query().Get("q"))
			}
			w.Write([]byte(rssFeed(
				`<item><title>Huntington Beach pier closes</title><link>https://www.ocregister.com/x</link></item>`,
				`<item><title>Northport harbor cleanup</title><link>https://www.newsday.com/y</link><description>volunteer drive</description></item>`,
			)))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	cfg := config.DefaultConfig()
	cfg.LocalFeeds.PatchTemplate = srv.URL + "/patch/%s/rss"
	cfg.LocalFeeds.NewsdayURL = srv.URL + "/newsday"
	cfg.LocalFeeds.GoogleNewsTemplate = srv.URL + "/google?q=%s"
	l := NewLocalFeeds(NewRSSFetcher(newTestHTTP(t, cfg), cfg, testLogger), cfg, testLogger)

	got, err := l.Collect(context.Background(), "Huntington")
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	var titles []string
	for _, c := range got {
		titles = append(titles, c.Title)
	}
	want := []string{"Village parade this weekend", "School budget passes", "Centerport restaurant opens", "Northport harbor cleanup"}
	if strings.Join(titles, "|") != strings.Join(want, "|") {
		t.Fatalf("titles = %v, want %v", titles, want)
	}
	if got[0].SourceName != "Patch.com" || got[0].CategoryHint != types.CategoryEvent || got[0].DefaultLocation != "Huntington, NY" {
		t.Errorf("patch candidate %+v", got[0])
	}
	if got[2].SourceName != "Newsday" || got[2].DefaultLocation != "Centerport" || got[2].CategoryHint != types.CategoryBusiness {
		t.Errorf("newsday candidate %+v", got[2])
	}
	if got[3].SourceName != "Newsday" || got[3].CategoryHint != types.CategoryCause {
		t.Errorf("google candidate %+v", got[3])
	}
}

func TestLocalFeedsAllFailing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	base := srv.URL
	srv.Close()

	cfg := config.DefaultConfig()
	cfg.LocalFeeds.PatchTemplate = base + "/patch/%s/rss"
	cfg.LocalFeeds.GoogleNewsTemplate = base + "/google?q=%s"
	l := NewLocalFeeds(NewRSSFetcher(newTestHTTP(t, cfg), cfg, testLogger), cfg, testLogger)
	if _, err := l.Collect(context.Background(), "Greenlawn"); err == nil {
		t.Error("expected error when every feed fails")
	}
}

func TestGuessCategory(t *testing.T) {
	tests := []struct {
		title, content string
		want           types.Category
	}{
		{"Summer concert series", "", types.CategoryEvent},
		{"New bakery", "grand opening on Main", types.CategoryBusiness},
		{"Police investigate", "", types.CategoryCrime},
		{"Food pantry", "needs volunteer help", types.CategoryCause},
		{"Budget vote", "board approves", types.CategoryNews},
	}
	for _, tt := range tests {
		if got := GuessCategory(tt.title, tt.content); got != tt.want {
			t.Errorf("GuessCategory(%q, %q) = %q, want %q", tt.title, tt.content, got, tt.want)
		}
	}
}

func TestSourceFromLink(t *testing.T) {
	tests := map[string]string{
		"https://www.newsday.com/long-island/x": "Newsday",
		"https://patch.com/new-york/huntington":  "Patch",
		"not a url":                              "Unknown Source",
	}
	for in, want := range tests {
		if got := SourceFromLink(in); got != want {
			t.Errorf("SourceFromLink(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRelevantAndExtractLocation(t *testing.T) {
	l := NewLocalFeeds(nil, config.DefaultConfig(), testLogger)
	if l.Relevant("Huntington Beach surf", "in California") {
		t.Error("namesake place should not be relevant")
	}
	if !l.Relevant("Greenlawn fair", "") {
		t.Error("local place should be relevant")
	}
	if got := l.ExtractLocation("Fire in East Northport", ""); got != "East Northport" {
		t.Errorf("ExtractLocation = %q", got)
	}
	if got := l.ExtractLocation("County news", ""); got != "Huntington, NY" {
		t.Errorf("default location = %q", got)
	}
}
