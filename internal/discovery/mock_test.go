package discovery

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/DockeryAI/competitor-intel/internal/model"
)

type mockDiscoverer struct {
	mock.Mock
}

func (m *mockDiscoverer) Discover(ctx context.Context, brand *model.BrandContext) ([]model.DiscoveredCompetitor, error) {
	args := m.Called(ctx, brand)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.DiscoveredCompetitor), args.Error(1)
}

type mockStore struct {
	mock.Mock
}

func (m *mockStore) GetCompetitors(ctx context.Context, brandID string) ([]model.CompetitorProfile, error) {
	args := m.Called(ctx, brandID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.CompetitorProfile), args.Error(1)
}

func (m *mockStore) GetCompetitor(ctx context.Context, id string) (*model.CompetitorProfile, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CompetitorProfile), args.Error(1)
}

func (m *mockStore) AddCompetitor(ctx context.Context, profile *model.CompetitorProfile) error {
	return m.Called(ctx, profile).Error(0)
}

func (m *mockStore) UpdateCompetitor(ctx context.Context, profile *model.CompetitorProfile) error {
	return m.Called(ctx, profile).Error(0)
}

func (m *mockStore) RemoveCompetitor(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockStore) GetGaps(ctx context.Context, brandID string) ([]model.CompetitorGap, error) {
	args := m.Called(ctx, brandID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.CompetitorGap), args.Error(1)
}

func (m *mockStore) SaveGaps(ctx context.Context, gaps []model.CompetitorGap) error {
	return m.Called(ctx, gaps).Error(0)
}

func (m *mockStore) SetGapStarred(ctx context.Context, id string, starred bool) error {
	return m.Called(ctx, id, starred).Error(0)
}

func (m *mockStore) SetGapDismissed(ctx context.Context, id string, dismissed bool) error {
	return m.Called(ctx, id, dismissed).Error(0)
}

func (m *mockStore) DeleteGapsForBrand(ctx context.Context, brandID string) error {
	return m.Called(ctx, brandID).Error(0)
}

func (m *mockStore) DeleteGapsForCompetitor(ctx context.Context, competitorID string) error {
	return m.Called(ctx, competitorID).Error(0)
}

func (m *mockStore) SaveScanRecord(ctx context.Context, rec *model.ScanRecord) error {
	return m.Called(ctx, rec).Error(0)
}

func (m *mockStore) DeleteScansForBrand(ctx context.Context, brandID string) error {
	return m.Called(ctx, brandID).Error(0)
}

func (m *mockStore) Migrate(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockStore) Close() error {
	return m.Called().Error(0)
}
