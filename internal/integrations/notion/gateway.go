package notion

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/jomei/notionapi"

	"github.com/ccccccarachen/content-collection-skill/internal/domain"
	"github.com/ccccccarachen/content-collection-skill/internal/retry"
)

// Database property names. The target database must carry exactly this
// schema; anything else is ErrSchema.
const (
	propTitle     = "Title"
	propCategory  = "Category"
	propAddedTime = "Added Time"
	propContent   = "Content"
)

const (
	defaultAttempts   = 3
	retryInitialDelay = 500 * time.Millisecond
)

// Each failure mode has its own remediation: a 401 means the integration
// token is wrong or the database was never shared with it, a 404 means the
// database id is wrong, a schema mismatch means the database properties were
// renamed or retyped.
var (
	ErrUnauthorized = errors.New("notion unauthorized: check the integration token and database sharing")
	ErrNotFound     = errors.New("notion not found: check the database id")
	ErrSchema       = errors.New("notion schema mismatch: database needs Title/Category/Added Time/Content properties")
)

// Gateway owns all traffic to the one Notion database holding the records.
// The category vocabulary lives in the database's Category select options and
// is re-read on every operation, never cached, so external edits take effect
// immediately.
type Gateway struct {
	client     *notionapi.Client
	databaseID notionapi.DatabaseID
	attempts   int
}

func NewGateway(token, databaseID string, httpClient *http.Client) *Gateway {
	return &Gateway{
		client:     notionapi.NewClient(notionapi.Token(token), notionapi.WithHTTPClient(httpClient)),
		databaseID: notionapi.DatabaseID(databaseID),
		attempts:   defaultAttempts,
	}
}

// Categories returns the live category labels in select-option order. The
// order is part of the contract: it drives the numbered correction menu.
func (g *Gateway) Categories(ctx context.Context) ([]string, error) {
	var categories []string
	err := retry.Do(ctx, "notion categories", g.attempts, retryInitialDelay, func() error {
		db, err := g.client.Database.Get(ctx, g.databaseID)
		if err != nil {
			return g.mapErr(err)
		}
		config, ok := db.Properties[propCategory].(*notionapi.SelectPropertyConfig)
		if !ok {
			return retry.Permanent(fmt.Errorf("%w: %s is not a select property", ErrSchema, propCategory))
		}
		if len(config.Select.Options) == 0 {
			return retry.Permanent(fmt.Errorf("%w: %s select has no options", ErrSchema, propCategory))
		}
		categories = categories[:0]
		for _, option := range config.Select.Options {
			categories = append(categories, option.Name)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return categories, nil
}

// Create persists a new record page and returns the store-assigned id.
func (g *Gateway) Create(ctx context.Context, rec domain.Record) (string, error) {
	added := notionapi.Date(rec.AddedTime)
	request := &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: g.databaseID,
		},
		Properties: notionapi.Properties{
			propTitle: notionapi.TitleProperty{
				Title: []notionapi.RichText{{Text: &notionapi.Text{Content: rec.Title}}},
			},
			propCategory: notionapi.SelectProperty{
				Select: notionapi.Option{Name: rec.Category},
			},
			propAddedTime: notionapi.DateProperty{
				Date: &notionapi.DateObject{Start: &added},
			},
			propContent: notionapi.RichTextProperty{
				RichText: []notionapi.RichText{{Text: &notionapi.Text{Content: rec.Content}}},
			},
		},
	}

	var id string
	err := retry.Do(ctx, "notion create", g.attempts, retryInitialDelay, func() error {
		page, err := g.client.Page.Create(ctx, request)
		if err != nil {
			return g.mapErr(err)
		}
		id = string(page.ID)
		return nil
	})
	if err != nil {
		return "", err
	}
	log.Printf("notion page created id=%s category=%s", id, rec.Category)
	return id, nil
}

// UpdateCategory rewrites only the Category select of an existing page.
func (g *Gateway) UpdateCategory(ctx context.Context, id, category string) error {
	request := &notionapi.PageUpdateRequest{
		Properties: notionapi.Properties{
			propCategory: notionapi.SelectProperty{
				Select: notionapi.Option{Name: category},
			},
		},
	}
	err := retry.Do(ctx, "notion update category", g.attempts, retryInitialDelay, func() error {
		if _, err := g.client.Page.Update(ctx, notionapi.PageID(id), request); err != nil {
			return g.mapErr(err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	log.Printf("notion category updated id=%s category=%s", id, category)
	return nil
}

// Get reads one record page back into the domain shape.
func (g *Gateway) Get(ctx context.Context, id string) (domain.Record, error) {
	var page *notionapi.Page
	err := retry.Do(ctx, "notion get", g.attempts, retryInitialDelay, func() error {
		p, err := g.client.Page.Get(ctx, notionapi.PageID(id))
		if err != nil {
			return g.mapErr(err)
		}
		page = p
		return nil
	})
	if err != nil {
		return domain.Record{}, err
	}
	return recordFromPage(page)
}

func recordFromPage(page *notionapi.Page) (domain.Record, error) {
	rec := domain.Record{ID: string(page.ID)}

	title, ok := page.Properties[propTitle].(*notionapi.TitleProperty)
	if !ok {
		return domain.Record{}, fmt.Errorf("%w: page has no %s title property", ErrSchema, propTitle)
	}
	rec.Title = richTextPlain(title.Title)

	sel, ok := page.Properties[propCategory].(*notionapi.SelectProperty)
	if !ok {
		return domain.Record{}, fmt.Errorf("%w: page has no %s select property", ErrSchema, propCategory)
	}
	rec.Category = sel.Select.Name

	if date, ok := page.Properties[propAddedTime].(*notionapi.DateProperty); ok && date.Date != nil && date.Date.Start != nil {
		rec.AddedTime = time.Time(*date.Date.Start)
	}
	if content, ok := page.Properties[propContent].(*notionapi.RichTextProperty); ok {
		rec.Content = richTextPlain(content.RichText)
	}
	return rec, nil
}

func richTextPlain(parts []notionapi.RichText) string {
	var out string
	for _, part := range parts {
		if part.PlainText != "" {
			out += part.PlainText
			continue
		}
		if part.Text != nil {
			out += part.Text.Content
		}
	}
	return out
}

// mapErr sorts API failures into retryable and permanent. Rate limits and
// server errors stay retryable; auth, missing objects, and validation
// failures are permanent and carry their typed sentinel.
func (g *Gateway) mapErr(err error) error {
	var apiErr *notionapi.Error
	if !errors.As(err, &apiErr) {
		// Transport failure, DNS, timeout. Worth another attempt.
		return err
	}
	switch {
	case apiErr.Status == 401 || apiErr.Status == 403:
		return retry.Permanent(fmt.Errorf("%w: %s", ErrUnauthorized, apiErr.Message))
	case apiErr.Status == 404:
		return retry.Permanent(fmt.Errorf("%w: %s", ErrNotFound, apiErr.Message))
	case apiErr.Status == 429 || apiErr.Status >= 500:
		return err
	case apiErr.Status == 400:
		return retry.Permanent(fmt.Errorf("%w: %s", ErrSchema, apiErr.Message))
	default:
		return retry.Permanent(err)
	}
}
