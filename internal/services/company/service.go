// Package company extracts company metadata from a website URL. The
// extraction itself is mocked; a production deployment would crawl the
// site, but the derived record and its persistence are real.
package company

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/brandscope/internal/interfaces"
	"github.com/ternarybob/brandscope/internal/models"
)

// Service extracts and caches company metadata keyed by URL
type Service struct {
	kvStorage interfaces.KeyValueStorage
	logger    arbor.ILogger
}

// NewService creates a company metadata service
func NewService(kvStorage interfaces.KeyValueStorage, logger arbor.ILogger) *Service {
	return &Service{
		kvStorage: kvStorage,
		logger:    logger,
	}
}

// Extract derives company metadata from a website URL. Repeated calls
// for the same URL return the cached record.
func (s *Service) Extract(ctx context.Context, rawURL string) (*models.Company, error) {
	if rawURL == "" {
		return nil, fmt.Errorf("url is required")
	}

	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Hostname() == "" {
		return nil, fmt.Errorf("invalid url: %s", rawURL)
	}

	cacheKey := "company:" + strings.ToLower(parsed.Hostname())

	if cached, err := s.kvStorage.Get(ctx, cacheKey); err == nil {
		var existing models.Company
		if err := json.Unmarshal([]byte(cached), &existing); err == nil {
			return &existing, nil
		}
	} else if !errors.Is(err, interfaces.ErrKeyNotFound) {
		return nil, fmt.Errorf("failed to read company cache: %w", err)
	}

	extracted := extractFromURL(rawURL, parsed)
	extracted.CreatedAt = time.Now()

	data, err := json.Marshal(extracted)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize company: %w", err)
	}
	if err := s.kvStorage.Set(ctx, cacheKey, string(data), "extracted company metadata"); err != nil {
		return nil, fmt.Errorf("failed to cache company: %w", err)
	}

	s.logger.Info().
		Str("company", extracted.Name).
		Str("url", rawURL).
		Msg("Company metadata extracted")

	return extracted, nil
}

// extractFromURL builds a mocked metadata record from the URL alone
func extractFromURL(rawURL string, parsed *url.URL) *models.Company {
	domain := strings.TrimPrefix(parsed.Hostname(), "www.")
	name := domain
	if i := strings.Index(domain, "."); i > 0 {
		name = domain[:i]
	}
	if name != "" {
		name = strings.ToUpper(name[:1]) + name[1:]
	}

	return &models.Company{
		ID:          "company_" + uuid.New().String(),
		Name:        name + " Solutions",
		URL:         rawURL,
		Description: fmt.Sprintf("Leading provider of innovative solutions in the %s industry.", strings.ToLower(name)),
		Industry:    "Technology",
		Founded:     "2018",
		Employees:   "100-500",
	}
}
