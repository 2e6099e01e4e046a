package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"photovault/application/pipeline"
	"photovault/domain/models"
	"photovault/pkg/config"
	"photovault/pkg/errs"
	"photovault/pkg/logger"
)

// AIGenConnector pulls finished generations from the AI image
// service's JSON API. The cursor is the last generation id seen.
type AIGenConnector struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewAIGenConnector creates the connector.
func NewAIGenConnector(cfg config.AIGenConfig) *AIGenConnector {
	return &AIGenConnector{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

func (c *AIGenConnector) Name() string {
	return SourceAIGen
}

type generationPage struct {
	Generations []generation `json:"generations"`
	HasMore     bool         `json:"has_more"`
}

type generation struct {
	ID       string                 `json:"id"`
	ImageURL string                 `json:"image_url"`
	Fields   map[string]interface{} `json:"-"`
}

// UnmarshalJSON keeps every field of the generation object so the
// normalizer receives the full raw shape, not just what we address
// here.
func (g *generation) UnmarshalJSON(data []byte) error {
	var fields map[string]interface{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	g.Fields = fields
	if id, ok := fields["id"].(string); ok {
		g.ID = id
	}
	if u, ok := fields["image_url"].(string); ok {
		g.ImageURL = u
	}
	return nil
}

func (c *AIGenConnector) Fetch(ctx context.Context, cursor string, limit int) (*Batch, error) {
	if limit <= 0 {
		limit = 100
	}

	endpoint := fmt.Sprintf("%s/api/v1/generations?limit=%d", c.baseURL, limit)
	if cursor != "" {
		endpoint += "&after=" + url.QueryEscape(cursor)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errs.Wrap(errs.ErrSourceFetch, "build generations request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errs.Wrap(errs.ErrSourceFetch, "list generations", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, errs.New(errs.ErrSourceFetch, fmt.Sprintf("generations api status %d: %s", resp.StatusCode, string(body)))
	}

	var page generationPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, errs.Wrap(errs.ErrSourceFetch, "decode generations response", err)
	}

	batch := &Batch{HasMore: page.HasMore}
	for _, gen := range page.Generations {
		if gen.ID == "" {
			continue
		}
		batch.Assets = append(batch.Assets, c.buildAsset(gen))
		batch.NextCursor = gen.ID
	}
	if batch.NextCursor == "" {
		batch.NextCursor = cursor
		batch.HasMore = false
	}

	logger.Source("aigen_fetch", "fetched generations page", map[string]interface{}{
		"assets":   len(batch.Assets),
		"has_more": batch.HasMore,
	})
	return batch, nil
}

func (c *AIGenConnector) buildAsset(gen generation) RawAsset {
	imageURL := gen.ImageURL
	name := gen.ID + ".png"
	if title, ok := gen.Fields["title"].(string); ok && title != "" {
		name = title
	}

	return RawAsset{
		SourceID: gen.ID,
		Name:     name,
		Metadata: map[string]interface{}{"generation": gen.Fields},
		Renditions: []pipeline.Rendition{{
			Tag:         models.VersionOriginal,
			Ext:         ".png",
			ContentType: "image/png",
			Open: func() (io.ReadCloser, error) {
				req, err := http.NewRequest(http.MethodGet, imageURL, nil)
				if err != nil {
					return nil, err
				}
				req.Header.Set("Authorization", "Bearer "+c.apiKey)
				resp, err := c.httpClient.Do(req)
				if err != nil {
					return nil, err
				}
				if resp.StatusCode != http.StatusOK {
					resp.Body.Close()
					return nil, fmt.Errorf("download generation image: status %d", resp.StatusCode)
				}
				return resp.Body, nil
			},
		}},
	}
}
