// Package discovery implements the AI-assisted import: it walks the
// provider's public coverage directory, pulls each city's subtree and stages
// the candidates for review. A failing city never aborts the rest of the
// batch.
package discovery

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/coverhub/geostaging/internal/domain"
	"github.com/coverhub/geostaging/internal/domain/dto"
	"github.com/coverhub/geostaging/internal/pkg/logger"
	"github.com/coverhub/geostaging/internal/pkg/opguard"
	"github.com/coverhub/geostaging/internal/pkg/store"
	"github.com/coverhub/geostaging/internal/service/provider"
	"golang.org/x/sync/errgroup"
)

const (
	sourceAiImport = "ai_import"

	fetchConcurrency = 8
)

type Result struct {
	BatchID      string            `json:"batch_id"`
	StagedCities []string          `json:"staged_cities"`
	FailedCities map[string]string `json:"failed_cities,omitempty"`
}

type Service struct {
	store      store.Store
	client     provider.Client
	guard      *opguard.Guard
	baseURL    string
	httpClient *http.Client
}

func NewService(store store.Store, client provider.Client, guard *opguard.Guard, baseURL string) *Service {
	return &Service{
		store:      store,
		client:     client,
		guard:      guard,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// StartAiImport runs the import in the background under the given batch id.
// Fails fast with ErrBusy while another import is in flight.
func (s *Service) StartAiImport(ctx context.Context, batchID string) error {
	release, err := s.guard.Acquire(domain.OperationAiImport, batchID)
	if err != nil {
		return err
	}

	go func() {
		defer release()

		bgCtx := context.Background()
		if _, err := s.runImport(bgCtx, batchID); err != nil {
			logger.Errorf(bgCtx, "ai import, batch_id-%s: %s", batchID, err.Error())
		}
	}()

	return nil
}

// RunAiImport is the synchronous variant.
func (s *Service) RunAiImport(ctx context.Context, batchID string) (*Result, error) {
	release, err := s.guard.Acquire(domain.OperationAiImport, batchID)
	if err != nil {
		return nil, err
	}
	defer release()

	return s.runImport(ctx, batchID)
}

func (s *Service) runImport(ctx context.Context, batchID string) (*Result, error) {
	op, err := s.store.StartOperation(ctx, domain.OperationAiImport, batchID)
	if err != nil {
		return nil, fmt.Errorf("store.StartOperation: %w", err)
	}

	result, err := s.importCities(ctx, batchID)
	if err != nil {
		if finishErr := s.store.FinishOperation(ctx, op.ID, domain.OperationFailed, domain.Details{"error": err.Error()}); finishErr != nil {
			logger.Errorf(ctx, "finish ai_import operation: %s", finishErr.Error())
		}
		return nil, err
	}

	details := domain.Details{
		"staged_cities": result.StagedCities,
		"failed_cities": result.FailedCities,
	}
	status := domain.OperationSuccess
	if len(result.StagedCities) == 0 && len(result.FailedCities) > 0 {
		status = domain.OperationFailed
	}
	if err = s.store.FinishOperation(ctx, op.ID, status, details); err != nil {
		logger.Errorf(ctx, "finish ai_import operation: %s", err.Error())
	}

	return result, nil
}

func (s *Service) importCities(ctx context.Context, batchID string) (*Result, error) {
	refs, err := s.scrapeDirectory(ctx)
	if err != nil {
		return nil, fmt.Errorf("scrapeDirectory: %w", err)
	}

	result := &Result{
		BatchID:      batchID,
		StagedCities: make([]string, 0, len(refs)),
		FailedCities: make(map[string]string),
	}
	resultMx := sync.Mutex{}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(fetchConcurrency)

	for _, ref := range refs {
		ref := ref
		eg.Go(func() error {
			candidate, cityErr := s.fetchCandidate(egCtx, ref)
			if cityErr == nil {
				_, cityErr = s.store.UpsertStagingCity(egCtx, candidate)
			}

			resultMx.Lock()
			defer resultMx.Unlock()
			if cityErr != nil {
				// isolate the failure to this city and keep going
				logger.Errorf(egCtx, "ai import, city-%s: %s", ref.externalID, cityErr.Error())
				result.FailedCities[ref.externalID] = cityErr.Error()
				return nil
			}
			result.StagedCities = append(result.StagedCities, ref.externalID)

			logger.Infof(egCtx, "staged candidate city %s (%s)", ref.name, ref.externalID)
			return nil
		})
	}

	if err = eg.Wait(); err != nil {
		return nil, fmt.Errorf("err in goroutine: %w", err)
	}

	return result, nil
}

// fetchCandidate prefers the structured API; when a directory city is not
// exposed there yet it falls back to scraping the city page, staging names
// without geometry.
func (s *Service) fetchCandidate(ctx context.Context, ref cityRef) (*domain.StagingCity, error) {
	city, err := s.client.FetchCity(ctx, ref.externalID)
	if err == nil {
		city.CountryCode = ref.countryCode
		if city.Name == "" {
			city.Name = ref.name
		}
		return city.ToStaging(sourceAiImport)
	}

	logger.Warnf(ctx, "ai import: api fetch failed for %s, scraping page: %s", ref.externalID, err.Error())

	discovered, err := s.scrapeCityPage(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("scrapeCityPage: %w", err)
	}

	return discovered.ToStaging(sourceAiImport), nil
}

type cityRef struct {
	externalID  string
	name        string
	countryCode string
	href        string
}

func (s *Service) scrapeDirectory(ctx context.Context) ([]cityRef, error) {
	doc, err := s.getDocument(ctx, s.baseURL+"/coverage")
	if err != nil {
		return nil, err
	}

	var refs []cityRef
	doc.Find("section.country").Each(func(_ int, section *goquery.Selection) {
		countryCode, _ := section.Attr("data-country")

		section.Find("ul.cities li a").Each(func(_ int, a *goquery.Selection) {
			href, ok := a.Attr("href")
			if !ok {
				return
			}

			parts := strings.Split(strings.TrimRight(href, "/"), "/")
			refs = append(refs, cityRef{
				externalID:  parts[len(parts)-1],
				name:        strings.TrimSpace(a.Text()),
				countryCode: countryCode,
				href:        href,
			})
		})
	})

	if len(refs) == 0 {
		return nil, fmt.Errorf("no cities found in coverage directory")
	}

	return refs, nil
}

func (s *Service) scrapeCityPage(ctx context.Context, ref cityRef) (*dto.DiscoveredCity, error) {
	doc, err := s.getDocument(ctx, s.baseURL+ref.href)
	if err != nil {
		return nil, err
	}

	city := &dto.DiscoveredCity{
		ExternalID:  ref.externalID,
		Name:        ref.name,
		CountryCode: ref.countryCode,
	}

	doc.Find("div.district").Each(func(_ int, div *goquery.Selection) {
		districtName := strings.TrimSpace(div.Find("h3").First().Text())
		if districtName == "" {
			return
		}

		district := city.GetDistrict(districtName)
		div.Find("ul.areas li").Each(func(_ int, li *goquery.Selection) {
			areaName := strings.TrimSpace(li.Text())
			if areaName == "" {
				return
			}

			_, hasDelivery := li.Attr("data-delivery")
			district.PutArea(dto.DiscoveredArea{
				Name:       areaName,
				IsDelivery: hasDelivery,
			})
		})
	})

	if len(city.Districts) == 0 {
		return nil, fmt.Errorf("no districts found on city page %s", ref.href)
	}

	return city, nil
}

func (s *Service) getDocument(ctx context.Context, url string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status code error: %d %s", resp.StatusCode, resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("goquery.NewDocumentFromReader: %w", err)
	}

	return doc, nil
}
