package types

import (
	"bytes"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Response is the result of fetching a Request.
type Response struct {
	StatusCode  int
	Headers     http.Header
	Body        []byte
	Request     *Request
	ContentType string

	// FinalURL is the URL after any redirects.
	FinalURL string

	FetchDuration time.Duration
	FetchedAt     time.Time

	doc *goquery.Document
}

// NewResponse creates a Response from an http.Response and its decoded body.
func NewResponse(req *Request, httpResp *http.Response, body []byte, duration time.Duration) *Response {
	final := req.URLString()
	if httpResp.Request != nil && httpResp.Request.URL != nil {
		final = httpResp.Request.URL.String()
	}
	return &Response{
		StatusCode:    httpResp.StatusCode,
		Headers:       httpResp.Header,
		Body:          body,
		Request:       req,
		ContentType:   httpResp.Header.Get("Content-Type"),
		FinalURL:      final,
		FetchDuration: duration,
		FetchedAt:     time.Now(),
	}
}

// Document returns a parsed goquery document, parsing the body on first use.
func (r *Response) Document() (*goquery.Document, error) {
	if r.doc != nil {
		return r.doc, nil
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(r.Body))
	if err != nil {
		return nil, err
	}
	r.doc = doc
	return doc, nil
}

// IsSuccess returns true if the response status is 2xx.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// LooksLikeFeed reports whether the content type or the body prefix indicates RSS or Atom.
func (r *Response) LooksLikeFeed() bool {
	ct := strings.ToLower(r.ContentType)
	if strings.Contains(ct, "rss") || strings.Contains(ct, "xml") {
		return true
	}
	head := r.Body
	if len(head) > 100 {
		head = head[:100]
	}
	if !bytes.Contains(head, []byte("<?xml")) {
		return false
	}
	return bytes.Contains(r.Body, []byte("<rss")) || bytes.Contains(r.Body, []byte("<feed"))
}

// NewRenderedResponse creates a Response from headless browser output.
func NewRenderedResponse(req *Request, body []byte, finalURL string, duration time.Duration) *Response {
	return &Response{
		StatusCode:    http.StatusOK,
		Headers:       make(http.Header),
		Body:          body,
		Request:       req,
		ContentType:   "text/html",
		FinalURL:      finalURL,
		FetchDuration: duration,
		FetchedAt:     time.Now(),
	}
}
