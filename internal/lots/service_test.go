package lots

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type memoryLotRepo struct {
	lot       Lot
	getErr    error
	total     int
	weighed   int
	countErr  error
	markErr   error
	completed int
}

func (r *memoryLotRepo) Get(ctx context.Context, lotID, tenantID int64) (Lot, error) {
	return r.lot, r.getErr
}

func (r *memoryLotRepo) BagCounts(ctx context.Context, lotID int64) (int, int, error) {
	return r.total, r.weighed, r.countErr
}

func (r *memoryLotRepo) MarkCompleted(ctx context.Context, lotID, tenantID int64) error {
	if r.markErr != nil {
		return r.markErr
	}
	r.completed++
	return nil
}

func TestAutoCompleteTransitionsWhenReady(t *testing.T) {
	repo := &memoryLotRepo{
		lot:     Lot{ID: 1, TenantID: 1, LotPrice: 2000, Status: LotStatusActive},
		total:   10,
		weighed: 10,
	}
	svc := NewService(repo, nil)
	svc.AutoComplete(context.Background(), 1, 1)
	require.Equal(t, 1, repo.completed)
}

func TestAutoCompleteSkips(t *testing.T) {
	cases := map[string]*memoryLotRepo{
		"already completed": {
			lot: Lot{ID: 1, LotPrice: 2000, Status: LotStatusCompleted}, total: 10, weighed: 10,
		},
		"unpriced": {
			lot: Lot{ID: 1, Status: LotStatusActive}, total: 10, weighed: 10,
		},
		"partial weights": {
			lot: Lot{ID: 1, LotPrice: 2000, Status: LotStatusActive}, total: 10, weighed: 7,
		},
		"no bags": {
			lot: Lot{ID: 1, LotPrice: 2000, Status: LotStatusActive}, total: 0, weighed: 0,
		},
	}
	for name, repo := range cases {
		t.Run(name, func(t *testing.T) {
			svc := NewService(repo, nil)
			svc.AutoComplete(context.Background(), 1, 1)
			require.Zero(t, repo.completed)
		})
	}
}

func TestAutoCompleteSwallowsErrors(t *testing.T) {
	boom := errors.New("boom")
	for name, repo := range map[string]*memoryLotRepo{
		"load":  {getErr: boom},
		"count": {lot: Lot{ID: 1, LotPrice: 2000, Status: LotStatusActive}, countErr: boom},
		"mark":  {lot: Lot{ID: 1, LotPrice: 2000, Status: LotStatusActive}, total: 2, weighed: 2, markErr: boom},
	} {
		t.Run(name, func(t *testing.T) {
			svc := NewService(repo, nil)
			// Must not panic or propagate; CRUD writes never block on the rule.
			svc.AutoComplete(context.Background(), 1, 1)
			require.Zero(t, repo.completed)
		})
	}
}
