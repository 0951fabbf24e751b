package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// Some sites serve empty shells to unknown agents; a browser UA gets the
// same markup a person would.
const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

const oembedEndpoint = "https://publish.twitter.com/oembed"

var tweetURLPattern = regexp.MustCompile(`(?:twitter\.com|x\.com)/\w+/status/\d+`)

// Fetcher derives a short descriptive string from a submitted URL so the
// classifier sees more than the bare address. Every failure here is
// recoverable: callers degrade to classifying the URL string itself.
type Fetcher struct {
	client *http.Client
}

func New(client *http.Client) *Fetcher {
	return &Fetcher{client: client}
}

// IsTweetURL reports whether u points at a tweet on twitter.com or x.com.
func IsTweetURL(u string) bool {
	return tweetURLPattern.MatchString(u)
}

// PageContext returns descriptive text for the page behind pageURL. Tweet
// URLs go through the oembed API; everything else is fetched directly and
// mined for description meta tags.
func (f *Fetcher) PageContext(ctx context.Context, pageURL string) (string, error) {
	if IsTweetURL(pageURL) {
		text, err := f.tweetContext(ctx, pageURL)
		if err == nil {
			return text, nil
		}
		log.Printf("fetch oembed failed url=%s err=%v", pageURL, err)
	}
	return f.metaContext(ctx, pageURL)
}

type oembedResponse struct {
	HTML       string `json:"html"`
	AuthorName string `json:"author_name"`
}

func (f *Fetcher) tweetContext(ctx context.Context, tweetURL string) (string, error) {
	reqURL := oembedEndpoint + "?url=" + url.QueryEscape(tweetURL)
	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("executing request: %w", err)
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != 200 {
		return "", fmt.Errorf("oembed API returned %d: %s", resp.StatusCode, string(body))
	}

	var embed oembedResponse
	if err := json.Unmarshal(body, &embed); err != nil {
		return "", fmt.Errorf("parsing response: %w", err)
	}
	if text := tweetTextFromEmbed(embed.HTML); text != "" {
		return text, nil
	}
	if embed.AuthorName != "" {
		return "Tweet by " + embed.AuthorName, nil
	}
	return "", fmt.Errorf("oembed response had no usable text")
}

// tweetTextFromEmbed pulls the paragraph text out of the blockquote markup
// the oembed API returns.
func tweetTextFromEmbed(embedHTML string) string {
	doc, err := html.Parse(strings.NewReader(embedHTML))
	if err != nil {
		return ""
	}

	var paragraphs []string
	var traverse func(n *html.Node, inBlockquote bool)
	traverse = func(n *html.Node, inBlockquote bool) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "blockquote":
				inBlockquote = true
			case "p":
				if inBlockquote {
					if text := strings.TrimSpace(nodeText(n)); text != "" {
						paragraphs = append(paragraphs, text)
					}
					return
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			traverse(c, inBlockquote)
		}
	}
	traverse(doc, false)

	return strings.Join(paragraphs, " ")
}

func (f *Fetcher) metaContext(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", browserUserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("executing request: %w", err)
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != 200 {
		return "", fmt.Errorf("page returned %d", resp.StatusCode)
	}

	desc := pageDescription(body)
	if desc == "" {
		return "", fmt.Errorf("no descriptive tags in page")
	}
	return desc, nil
}

// pageDescription mines the page for the best short description, in order:
// og:description, twitter:description, meta description, og:title, <title>.
func pageDescription(body []byte) string {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return ""
	}

	meta := map[string]string{}
	var title string
	var traverse func(*html.Node)
	traverse = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "meta":
				var name, content string
				for _, a := range n.Attr {
					switch a.Key {
					case "property", "name":
						name = a.Val
					case "content":
						content = a.Val
					}
				}
				if name != "" && content != "" {
					if _, seen := meta[name]; !seen {
						meta[name] = content
					}
				}
			case "title":
				if title == "" {
					title = strings.TrimSpace(nodeText(n))
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			traverse(c)
		}
	}
	traverse(doc)

	for _, key := range []string{"og:description", "twitter:description", "description", "og:title"} {
		if meta[key] != "" {
			return meta[key]
		}
	}
	return title
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
