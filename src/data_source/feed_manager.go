package datasource

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/lucasbarnes96/truenorth-index/src/helpers"
	"github.com/lucasbarnes96/truenorth-index/src/interfaces"
	"github.com/lucasbarnes96/truenorth-index/src/logger"
	"github.com/lucasbarnes96/truenorth-index/src/models"
)

// CollectResult is one day's harvest across all category chains. Health
// entries are raw collection outcomes; RecomputeHealth turns them into final
// statuses with ages and carry-forward.
type CollectResult struct {
	Observations []models.MObservation
	Health       []models.MSourceHealth
	Rejections   []models.MRejection
}

// categoryHarvest keeps one chain's output so results can be flattened in
// registry order regardless of goroutine completion order.
type categoryHarvest struct {
	observations []models.MObservation
	health       []models.MSourceHealth
	rejections   []models.MRejection
}

// -----------------------------------------------------------------------------

// FeedManager owns the configured feed providers and runs the per-category
// fallback chains. Providers are attempted in registry order until the first
// produces normalized observations; the winner is recorded in the source
// health detail.
type FeedManager struct {
	Config    *models.MConfig
	Providers map[string]interfaces.IFeedProvider
	Logger    *logger.Logger
	mu        sync.RWMutex
}

// -----------------------------------------------------------------------------

func NewFeedManager(cfg *models.MConfig, netMgr interfaces.INetworkManager, log *logger.Logger) (*FeedManager, error) {
	m := &FeedManager{
		Config:    cfg,
		Providers: make(map[string]interfaces.IFeedProvider),
		Logger:    log,
	}

	for _, category := range cfg.Categories {
		for _, spec := range category.Providers {
			if _, exists := m.Providers[spec.Name]; exists {
				continue // one source can serve several categories
			}
			provider, err := BuildProvider(spec, netMgr, log)
			if err != nil {
				return nil, err
			}
			m.Providers[spec.Name] = provider
		}
	}

	return m, nil
}

// -----------------------------------------------------------------------------

// AddProvider registers a provider that is not part of the category registry.
func (m *FeedManager) AddProvider(provider interfaces.IFeedProvider) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	name := provider.Name()
	if _, exists := m.Providers[name]; exists {
		return fmt.Errorf("provider %s already exists", name)
	}
	m.Providers[name] = provider
	return nil
}

// -----------------------------------------------------------------------------

// Provider retrieves a registered provider by source name.
func (m *FeedManager) Provider(name string) (interfaces.IFeedProvider, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	provider, exists := m.Providers[name]
	if !exists {
		return nil, helpers.NewSourceUnavailable(name, nil)
	}
	return provider, nil
}

// -----------------------------------------------------------------------------

// Collect fans out over the category registry and walks each fallback chain.
// A provider failure degrades that chain, never the run: the only error
// returned is context cancellation.
func (m *FeedManager) Collect(ctx context.Context, asOfDate string) (*CollectResult, error) {
	harvests := make([]categoryHarvest, len(m.Config.Categories))

	group, groupCtx := errgroup.WithContext(ctx)
	limit := m.Config.Network.ConcurrentRequests
	if limit <= 0 {
		limit = 4
	}
	group.SetLimit(limit)

	for i := range m.Config.Categories {
		group.Go(func() error {
			harvests[i] = m.collectCategory(groupCtx, &m.Config.Categories[i], asOfDate)
			return groupCtx.Err()
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	// Flatten in registry order; one health entry per source, a success
	// from any chain wins over a failure in another.
	result := &CollectResult{}
	healthBySource := make(map[string]int)
	for _, harvest := range harvests {
		result.Observations = append(result.Observations, harvest.observations...)
		result.Rejections = append(result.Rejections, harvest.rejections...)
		for _, entry := range harvest.health {
			if at, seen := healthBySource[entry.Source]; seen {
				if result.Health[at].LastSuccess == "" && entry.LastSuccess != "" {
					result.Health[at] = entry
				}
				continue
			}
			healthBySource[entry.Source] = len(result.Health)
			result.Health = append(result.Health, entry)
		}
	}

	m.Logger.Info("Collected %d observations from %d categories (%d rejected)",
		len(result.Observations), len(m.Config.Categories), len(result.Rejections))
	return result, nil
}

// -----------------------------------------------------------------------------

// collectCategory tries the chain in priority order until one provider
// yields normalized observations.
func (m *FeedManager) collectCategory(ctx context.Context, spec *models.MCategorySpec, asOfDate string) categoryHarvest {
	harvest := categoryHarvest{}
	winner := ""

	for i := range spec.Providers {
		providerSpec := &spec.Providers[i]

		if winner != "" {
			harvest.health = append(harvest.health, models.MSourceHealth{
				Source: providerSpec.Name,
				Detail: fmt.Sprintf("Not attempted; %s already satisfied %s.", winner, spec.Name),
			})
			continue
		}

		provider, err := m.Provider(providerSpec.Name)
		if err != nil {
			harvest.health = append(harvest.health, models.MSourceHealth{
				Source: providerSpec.Name,
				Detail: "Provider not registered.",
			})
			continue
		}

		records, err := provider.Fetch(ctx)
		if err != nil {
			m.Logger.Warning("Fetch failed for %s (%s): %v", providerSpec.Name, spec.Name, err)
			harvest.health = append(harvest.health, models.MSourceHealth{
				Source: providerSpec.Name,
				Detail: fmt.Sprintf("Fetch failed: %v", err),
			})
			continue
		}

		observations, rejections := Normalize(providerSpec, spec.Name, asOfDate, records)
		harvest.rejections = append(harvest.rejections, rejections...)
		if len(observations) == 0 {
			harvest.health = append(harvest.health, models.MSourceHealth{
				Source: providerSpec.Name,
				Detail: fmt.Sprintf("Produced no usable records (%d raw).", len(records)),
			})
			continue
		}

		winner = providerSpec.Name
		harvest.observations = append(harvest.observations, observations...)
		harvest.health = append(harvest.health, models.MSourceHealth{
			Source:      providerSpec.Name,
			LastSuccess: asOfDate,
			Detail:      fmt.Sprintf("Collected %d records for %s (chain position %d).", len(observations), spec.Name, i+1),
		})
	}

	if winner == "" && len(spec.Providers) > 0 {
		m.Logger.Warning("No provider in the %s chain produced data", spec.Name)
	}
	return harvest
}
