package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/sirupsen/logrus"
)

// Record is one raw organization object as decoded from a source API page.
type Record map[string]any

// Fetcher walks a paginated JSON endpoint and streams records to a
// callback. Pagination is iterative: each page yields all its records
// before the next link is followed, and relative next links are resolved
// against the URL of the page that produced them.
type Fetcher struct {
	client     *http.Client
	nextKey    string
	resultsKey string
	hasMeta    bool
	log        logrus.FieldLogger
}

func NewFetcher(client *http.Client, cfg Config, log logrus.FieldLogger) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &Fetcher{
		client:     client,
		nextKey:    cfg.NextKey,
		resultsKey: cfg.ResultsKey,
		hasMeta:    cfg.HasMeta,
		log:        log,
	}
}

// Fetch visits every record of every page starting at rawURL. A callback
// error aborts the walk immediately and is returned unchanged.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, fn func(Record) error) error {
	pageURL := rawURL
	for pageURL != "" {
		payload, err := f.getJSON(ctx, pageURL)
		if err != nil {
			return err
		}

		records, err := f.pageRecords(pageURL, payload)
		if err != nil {
			return err
		}
		for _, rec := range records {
			if err := fn(rec); err != nil {
				return err
			}
		}
		pagesFetched.Inc()

		next, err := f.nextLink(pageURL, payload)
		if err != nil {
			return err
		}
		pageURL = next
	}
	return nil
}

// LinkData fetches the JSON document behind a link-typed field value,
// resolving ref against the endpoint URL the import started from.
func (f *Fetcher) LinkData(ctx context.Context, base, ref string) (any, error) {
	target, err := resolveURL(base, ref)
	if err != nil {
		return nil, err
	}
	linkFetches.Inc()
	return f.getJSON(ctx, target)
}

func (f *Fetcher) getJSON(ctx context.Context, rawURL string) (any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Cause: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Cause: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{URL: rawURL, StatusCode: resp.StatusCode}
	}

	var payload any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, &FetchError{URL: rawURL, Cause: fmt.Errorf("decode response: %w", err)}
	}
	return payload, nil
}

func (f *Fetcher) pageRecords(pageURL string, payload any) ([]Record, error) {
	var items []any
	if f.resultsKey == "" {
		list, ok := payload.([]any)
		if !ok {
			return nil, &FetchError{URL: pageURL, Cause: fmt.Errorf("expected a JSON array, got %T", payload)}
		}
		items = list
	} else {
		page, ok := payload.(map[string]any)
		if !ok {
			return nil, &FetchError{URL: pageURL, Cause: fmt.Errorf("expected a JSON object, got %T", payload)}
		}
		list, ok := page[f.resultsKey].([]any)
		if !ok {
			return nil, &FetchError{URL: pageURL, Cause: fmt.Errorf("results key %q missing or not an array", f.resultsKey)}
		}
		items = list
	}

	records := make([]Record, 0, len(items))
	for _, item := range items {
		rec, ok := item.(map[string]any)
		if !ok {
			return nil, &FetchError{URL: pageURL, Cause: fmt.Errorf("expected record object, got %T", item)}
		}
		records = append(records, Record(rec))
	}
	return records, nil
}

func (f *Fetcher) nextLink(pageURL string, payload any) (string, error) {
	if f.nextKey == "" {
		return "", nil
	}
	page, ok := payload.(map[string]any)
	if !ok {
		return "", nil
	}
	container := page
	if f.hasMeta {
		meta, ok := page["meta"].(map[string]any)
		if !ok {
			return "", nil
		}
		container = meta
	}
	next, ok := container[f.nextKey].(string)
	if !ok || next == "" {
		return "", nil
	}
	resolved, err := resolveURL(pageURL, next)
	if err != nil {
		return "", err
	}
	if f.log != nil && resolved != next {
		f.log.WithField("next", resolved).Debug("resolved relative next link")
	}
	return resolved, nil
}

func resolveURL(base, ref string) (string, error) {
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", &FetchError{URL: base, Cause: err}
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return "", &FetchError{URL: ref, Cause: err}
	}
	return baseURL.ResolveReference(refURL).String(), nil
}
