package ebird

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"bird_alerts/internal/domain"
)

// Taxonomy resolves species codes against the eBird reference taxonomy.
// The taxonomy is loaded from the API once, on first use; concurrent first
// callers share a single in-flight load.
type Taxonomy struct {
	source *Source
	logger *slog.Logger

	group  singleflight.Group
	mu     sync.RWMutex
	byCode map[string]domain.Species
}

// NewTaxonomy creates a taxonomy lookup backed by the given source.
func NewTaxonomy(source *Source, logger *slog.Logger) *Taxonomy {
	return &Taxonomy{
		source: source,
		logger: logger.With("component", "taxonomy"),
	}
}

// Lookup resolves a species code to its taxonomy entry.
func (t *Taxonomy) Lookup(ctx context.Context, code string) (domain.Species, error) {
	if err := t.ensureLoaded(ctx); err != nil {
		return domain.Species{}, err
	}

	t.mu.RLock()
	sp, ok := t.byCode[strings.ToLower(code)]
	t.mu.RUnlock()

	if !ok {
		return domain.Species{}, fmt.Errorf("%w: %s", domain.ErrUnknownSpecies, code)
	}
	return sp, nil
}

// Search returns up to limit species whose common or scientific name
// contains the query, case-insensitively.
func (t *Taxonomy) Search(ctx context.Context, query string, limit int) ([]domain.Species, error) {
	if err := t.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil, nil
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	var matches []domain.Species
	for _, sp := range t.byCode {
		if strings.Contains(strings.ToLower(sp.CommonName), query) ||
			strings.Contains(strings.ToLower(sp.ScientificName), query) {
			matches = append(matches, sp)
			if len(matches) >= limit {
				break
			}
		}
	}
	return matches, nil
}

func (t *Taxonomy) ensureLoaded(ctx context.Context) error {
	t.mu.RLock()
	loaded := t.byCode != nil
	t.mu.RUnlock()
	if loaded {
		return nil
	}

	_, err, _ := t.group.Do("load", func() (any, error) {
		return nil, t.load(ctx)
	})
	return err
}

func (t *Taxonomy) load(ctx context.Context) error {
	t.mu.RLock()
	loaded := t.byCode != nil
	t.mu.RUnlock()
	if loaded {
		return nil
	}

	endpoint := fmt.Sprintf("%s/ref/taxonomy/ebird?fmt=json", t.source.baseURL)

	var raw []taxon
	if _, err := t.source.getJSON(ctx, endpoint, &raw); err != nil {
		return fmt.Errorf("load taxonomy: %w", err)
	}

	byCode := make(map[string]domain.Species, len(raw))
	for _, tx := range raw {
		// Hybrids, subspecies and the like are not subscribable.
		if tx.Category != "species" {
			continue
		}
		byCode[strings.ToLower(tx.SpeciesCode)] = domain.Species{
			Code:           tx.SpeciesCode,
			CommonName:     tx.ComName,
			ScientificName: tx.SciName,
		}
	}

	t.mu.Lock()
	t.byCode = byCode
	t.mu.Unlock()

	t.logger.Info("taxonomy loaded", "species", len(byCode))
	return nil
}
