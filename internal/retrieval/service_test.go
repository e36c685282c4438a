package retrieval_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"matchmail/backend/internal/retrieval"
	"matchmail/backend/internal/settings"
)

type MockEmbedder struct{ mock.Mock }

func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

type MockStore struct{ mock.Mock }

func (m *MockStore) SearchFragments(ctx context.Context, vector []float32, userID string, limit int) ([]retrieval.ScoredFragment, error) {
	args := m.Called(ctx, vector, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]retrieval.ScoredFragment), args.Error(1)
}

type MockSettingsRepo struct{ mock.Mock }

func (m *MockSettingsRepo) Get(ctx context.Context) (*settings.Settings, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*settings.Settings), args.Error(1)
}

func (m *MockSettingsRepo) Update(ctx context.Context, s *settings.Settings) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func frag(id string, dist float32) retrieval.ScoredFragment {
	return retrieval.ScoredFragment{ID: id, UserID: "u@x.dev", Type: "project", Content: "c-" + id, Distance: dist}
}

func TestFuse_DedupFirstSeen(t *testing.T) {
	// Same fragment appears in both lists; the first occurrence survives even
	// though the later one scored better.
	combined := []retrieval.ScoredFragment{
		frag("a", 0.3),
		frag("b", 0.5),
		frag("a", 0.1),
	}

	res := retrieval.Fuse(combined, retrieval.DedupFirstSeen, 5)
	assert.Len(t, res, 2)
	assert.Equal(t, "a", res[0].ID)
	assert.Equal(t, float32(0.3), res[0].Distance)
	assert.Equal(t, "b", res[1].ID)
}

func TestFuse_DedupBestDistance(t *testing.T) {
	combined := []retrieval.ScoredFragment{
		frag("a", 0.3),
		frag("b", 0.5),
		frag("a", 0.1),
	}

	res := retrieval.Fuse(combined, retrieval.DedupBestDistance, 5)
	assert.Len(t, res, 2)
	assert.Equal(t, "a", res[0].ID)
	assert.Equal(t, float32(0.1), res[0].Distance)
}

func TestFuse_SortsAscendingAndTruncates(t *testing.T) {
	combined := []retrieval.ScoredFragment{
		frag("a", 0.9),
		frag("b", 0.2),
		frag("c", 0.7),
		frag("d", 0.1),
		frag("e", 0.5),
		frag("f", 0.4),
	}

	res := retrieval.Fuse(combined, retrieval.DedupFirstSeen, 5)
	assert.Len(t, res, 5)
	for i := 1; i < len(res); i++ {
		assert.LessOrEqual(t, res[i-1].Distance, res[i].Distance)
	}
	assert.Equal(t, "d", res[0].ID)
}

func TestFuse_DropsUnknownTypes(t *testing.T) {
	combined := []retrieval.ScoredFragment{
		frag("a", 0.2),
		{ID: "x", Type: "education", Content: "should not surface", Distance: 0.1},
	}

	res := retrieval.Fuse(combined, retrieval.DedupFirstSeen, 5)
	assert.Len(t, res, 1)
	assert.Equal(t, "a", res[0].ID)
}

func TestFuse_Empty(t *testing.T) {
	res := retrieval.Fuse(nil, retrieval.DedupFirstSeen, 5)
	assert.Empty(t, res)
}

func TestService_Retrieve(t *testing.T) {
	e := new(MockEmbedder)
	s := new(MockStore)
	setRepo := new(MockSettingsRepo)

	setRepo.On("Get", mock.Anything).Return(&settings.Settings{RetrievalTopK: 5, DedupPolicy: "first_seen"}, nil)
	e.On("Embed", mock.Anything, "Responsibilities: build APIs, ship features.").Return([]float32{0.1}, nil)
	e.On("Embed", mock.Anything, "Required skills: Go, SQL.").Return([]float32{0.2}, nil)
	s.On("SearchFragments", mock.Anything, []float32{0.1}, "u@x.dev", 5).
		Return([]retrieval.ScoredFragment{frag("a", 0.4), frag("b", 0.2)}, nil)
	s.On("SearchFragments", mock.Anything, []float32{0.2}, "u@x.dev", 5).
		Return([]retrieval.ScoredFragment{frag("a", 0.1), frag("c", 0.6)}, nil)

	svc := retrieval.NewService(e, s, settings.NewService(setRepo), nil)
	res, err := svc.Retrieve(context.Background(), "u@x.dev", retrieval.JobQuery{
		Responsibilities: []string{"build APIs", "ship features"},
		SkillNames:       []string{"Go", "SQL"},
	}, 0)

	assert.NoError(t, err)
	assert.Len(t, res, 3)
	// first_seen keeps a@0.4 from the responsibilities list
	assert.Equal(t, "b", res[0].ID)
	assert.Equal(t, "a", res[1].ID)
	assert.Equal(t, float32(0.4), res[1].Distance)
	assert.Equal(t, "c", res[2].ID)

	e.AssertExpectations(t)
	s.AssertExpectations(t)
}

func TestService_Retrieve_BestDistancePolicy(t *testing.T) {
	e := new(MockEmbedder)
	s := new(MockStore)
	setRepo := new(MockSettingsRepo)

	setRepo.On("Get", mock.Anything).Return(&settings.Settings{RetrievalTopK: 5, DedupPolicy: "best_distance"}, nil)
	e.On("Embed", mock.Anything, mock.Anything).Return([]float32{0.1}, nil)
	s.On("SearchFragments", mock.Anything, mock.Anything, "u@x.dev", 5).
		Return([]retrieval.ScoredFragment{frag("a", 0.4)}, nil).Once()
	s.On("SearchFragments", mock.Anything, mock.Anything, "u@x.dev", 5).
		Return([]retrieval.ScoredFragment{frag("a", 0.1)}, nil).Once()

	svc := retrieval.NewService(e, s, settings.NewService(setRepo), nil)
	res, err := svc.Retrieve(context.Background(), "u@x.dev", retrieval.JobQuery{}, 0)

	assert.NoError(t, err)
	assert.Len(t, res, 1)
	assert.Equal(t, float32(0.1), res[0].Distance)
}

func TestService_Retrieve_EmptyIndex(t *testing.T) {
	e := new(MockEmbedder)
	s := new(MockStore)
	setRepo := new(MockSettingsRepo)

	setRepo.On("Get", mock.Anything).Return(&settings.Settings{RetrievalTopK: 5}, nil)
	e.On("Embed", mock.Anything, mock.Anything).Return([]float32{0.1}, nil)
	s.On("SearchFragments", mock.Anything, mock.Anything, "u@x.dev", 5).
		Return([]retrieval.ScoredFragment{}, nil)

	svc := retrieval.NewService(e, s, settings.NewService(setRepo), nil)
	res, err := svc.Retrieve(context.Background(), "u@x.dev", retrieval.JobQuery{}, 0)

	assert.NoError(t, err)
	assert.Empty(t, res)
}

func TestService_Retrieve_EmbedderError(t *testing.T) {
	e := new(MockEmbedder)
	s := new(MockStore)
	setRepo := new(MockSettingsRepo)

	setRepo.On("Get", mock.Anything).Return(&settings.Settings{RetrievalTopK: 5}, nil)
	e.On("Embed", mock.Anything, mock.Anything).Return(nil, errors.New("embed error"))

	svc := retrieval.NewService(e, s, settings.NewService(setRepo), nil)
	_, err := svc.Retrieve(context.Background(), "u@x.dev", retrieval.JobQuery{}, 0)
	assert.Error(t, err)
}

func TestService_Retrieve_StoreError(t *testing.T) {
	e := new(MockEmbedder)
	s := new(MockStore)
	setRepo := new(MockSettingsRepo)

	setRepo.On("Get", mock.Anything).Return(&settings.Settings{RetrievalTopK: 5}, nil)
	e.On("Embed", mock.Anything, mock.Anything).Return([]float32{0.1}, nil)
	s.On("SearchFragments", mock.Anything, mock.Anything, "u@x.dev", 5).
		Return(nil, errors.New("store error"))

	svc := retrieval.NewService(e, s, settings.NewService(setRepo), nil)
	_, err := svc.Retrieve(context.Background(), "u@x.dev", retrieval.JobQuery{}, 0)
	assert.Error(t, err)
}

func TestService_Retrieve_SettingsErrorFallback(t *testing.T) {
	e := new(MockEmbedder)
	s := new(MockStore)
	setRepo := new(MockSettingsRepo)

	setRepo.On("Get", mock.Anything).Return(nil, errors.New("settings error"))
	e.On("Embed", mock.Anything, mock.Anything).Return([]float32{0.1}, nil)
	// Expect default top-k 5
	s.On("SearchFragments", mock.Anything, mock.Anything, "u@x.dev", 5).
		Return([]retrieval.ScoredFragment{}, nil)

	svc := retrieval.NewService(e, s, settings.NewService(setRepo), nil)
	res, err := svc.Retrieve(context.Background(), "u@x.dev", retrieval.JobQuery{}, 0)
	assert.NoError(t, err)
	assert.Empty(t, res)
	s.AssertExpectations(t)
}

func TestService_Retrieve_Logging(t *testing.T) {
	e := new(MockEmbedder)
	s := new(MockStore)
	setRepo := new(MockSettingsRepo)

	setRepo.On("Get", mock.Anything).Return(&settings.Settings{RetrievalTopK: 5}, nil)
	e.On("Embed", mock.Anything, mock.Anything).Return([]float32{0.1}, nil)
	s.On("SearchFragments", mock.Anything, mock.Anything, "u@x.dev", 5).
		Return([]retrieval.ScoredFragment{frag("a", 0.2)}, nil)

	var buf bytes.Buffer
	logger := retrieval.NewQueryLogger(&buf)
	svc := retrieval.NewService(e, s, settings.NewService(setRepo), logger)

	_, err := svc.Retrieve(context.Background(), "u@x.dev", retrieval.JobQuery{
		Responsibilities: []string{"build"},
		SkillNames:       []string{"Go"},
	}, 0)
	assert.NoError(t, err)

	var entry retrieval.QueryLogEntry
	assert.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "u@x.dev", entry.UserID)
	assert.Len(t, entry.Queries, 2)
	assert.Equal(t, 1, entry.NumResults)
}
