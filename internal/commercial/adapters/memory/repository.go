package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dejobratic/centralcompras/internal/commercial/domain"
	"github.com/dejobratic/centralcompras/internal/commercial/ports"
)

// ConditionRepository provides an in-memory store useful for local development and tests.
type ConditionRepository struct {
	mu         sync.RWMutex
	nextID     int64
	conditions map[int64]domain.Condition
}

// NewConditionRepository constructs an empty repository.
func NewConditionRepository() *ConditionRepository {
	return &ConditionRepository{conditions: make(map[int64]domain.Condition)}
}

func (r *ConditionRepository) Create(_ context.Context, cond domain.Condition) (*domain.Condition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.conditions {
		if existing.SupplierID == cond.SupplierID && existing.State == cond.State {
			return nil, ports.ErrConditionExists
		}
	}

	r.nextID++
	now := time.Now().UTC()
	cond.ID = r.nextID
	cond.CreatedAt = now
	cond.UpdatedAt = now
	r.conditions[cond.ID] = cond

	created := cond
	return &created, nil
}

func (r *ConditionRepository) GetByID(_ context.Context, id int64) (*domain.Condition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cond, ok := r.conditions[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return &cond, nil
}

// ListBySupplier returns the supplier's conditions ordered by state.
func (r *ConditionRepository) ListBySupplier(_ context.Context, supplierID int64) ([]domain.Condition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := []domain.Condition{}
	for _, cond := range r.conditions {
		if cond.SupplierID == supplierID {
			result = append(result, cond)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].State < result[j].State
	})
	return result, nil
}

func (r *ConditionRepository) FindBySupplierAndState(_ context.Context, supplierID int64, state string) (*domain.Condition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, cond := range r.conditions {
		if cond.SupplierID == supplierID && cond.State == state {
			found := cond
			return &found, nil
		}
	}
	return nil, ports.ErrNotFound
}

func (r *ConditionRepository) Update(_ context.Context, id int64, patch domain.ConditionPatch) (*domain.Condition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cond, ok := r.conditions[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	cond = patch.Apply(cond)
	cond.UpdatedAt = time.Now().UTC()
	r.conditions[id] = cond

	updated := cond
	return &updated, nil
}

func (r *ConditionRepository) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conditions[id]; !ok {
		return ports.ErrNotFound
	}
	delete(r.conditions, id)
	return nil
}

// CampaignRepository provides an in-memory campaign store.
type CampaignRepository struct {
	mu        sync.RWMutex
	nextID    int64
	campaigns map[int64]domain.Campaign
}

// NewCampaignRepository constructs an empty repository.
func NewCampaignRepository() *CampaignRepository {
	return &CampaignRepository{campaigns: make(map[int64]domain.Campaign)}
}

func (r *CampaignRepository) Create(_ context.Context, campaign domain.Campaign) (*domain.Campaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	now := time.Now().UTC()
	campaign.ID = r.nextID
	campaign.CreatedAt = now
	campaign.UpdatedAt = now
	r.campaigns[campaign.ID] = campaign

	created := campaign
	return &created, nil
}

func (r *CampaignRepository) GetByID(_ context.Context, id int64) (*domain.Campaign, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	campaign, ok := r.campaigns[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return &campaign, nil
}

// ListBySupplier returns the supplier's campaigns, newest first.
func (r *CampaignRepository) ListBySupplier(_ context.Context, supplierID int64) ([]domain.Campaign, error) {
	return r.filter(func(c domain.Campaign) bool { return c.SupplierID == supplierID }, true), nil
}

// ListActive returns campaigns of every supplier active at now, newest first.
func (r *CampaignRepository) ListActive(_ context.Context, now time.Time) ([]domain.Campaign, error) {
	return r.filter(func(c domain.Campaign) bool { return c.ActiveAt(now) }, true), nil
}

// FindActiveBySupplier returns the supplier's campaigns active at now in creation order.
func (r *CampaignRepository) FindActiveBySupplier(_ context.Context, supplierID int64, now time.Time) ([]domain.Campaign, error) {
	return r.filter(func(c domain.Campaign) bool {
		return c.SupplierID == supplierID && c.ActiveAt(now)
	}, false), nil
}

func (r *CampaignRepository) Update(_ context.Context, id int64, patch domain.CampaignPatch) (*domain.Campaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	campaign, ok := r.campaigns[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	campaign = patch.Apply(campaign)
	campaign.UpdatedAt = time.Now().UTC()
	r.campaigns[id] = campaign

	updated := campaign
	return &updated, nil
}

func (r *CampaignRepository) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.campaigns[id]; !ok {
		return ports.ErrNotFound
	}
	delete(r.campaigns, id)
	return nil
}

func (r *CampaignRepository) filter(keep func(domain.Campaign) bool, newestFirst bool) []domain.Campaign {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := []domain.Campaign{}
	for _, c := range r.campaigns {
		if keep(c) {
			result = append(result, c)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if newestFirst {
			return result[i].ID > result[j].ID
		}
		return result[i].ID < result[j].ID
	})
	return result
}
