package profile_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"matchmail/backend/features/profile"
	"matchmail/backend/internal/config"
)

type MockRepo struct{ mock.Mock }

func (m *MockRepo) Get(ctx context.Context, email string) (*profile.CandidateProfile, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*profile.CandidateProfile), args.Error(1)
}

func (m *MockRepo) Upsert(ctx context.Context, prof *profile.CandidateProfile) error {
	return m.Called(ctx, prof).Error(0)
}

func (m *MockRepo) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

type MockExtractor struct{ mock.Mock }

func (m *MockExtractor) ExtractResume(ctx context.Context, rawText string) (*profile.CandidateProfile, error) {
	args := m.Called(ctx, rawText)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*profile.CandidateProfile), args.Error(1)
}

type MockPublisher struct{ mock.Mock }

func (m *MockPublisher) Publish(topic string, body []byte) error {
	return m.Called(topic, body).Error(0)
}

func TestSubmitResume(t *testing.T) {
	repo := new(MockRepo)
	extractor := new(MockExtractor)
	pub := new(MockPublisher)

	extracted := &profile.CandidateProfile{Name: "Jane", Email: "claimed@other.dev"}
	extractor.On("ExtractResume", mock.Anything, "raw text").Return(extracted, nil)
	repo.On("Upsert", mock.Anything, mock.MatchedBy(func(p *profile.CandidateProfile) bool {
		// Token identity wins over whatever the resume text claims.
		return p.Email == "u@x.dev"
	})).Return(nil)
	pub.On("Publish", config.TopicResumeIndex, mock.Anything).Return(nil)

	svc := profile.NewService(repo, extractor, pub)
	prof, err := svc.SubmitResume(context.Background(), "u@x.dev", "raw text")

	assert.NoError(t, err)
	assert.Equal(t, "u@x.dev", prof.Email)
	repo.AssertExpectations(t)
	pub.AssertExpectations(t)

	payload := pub.Calls[0].Arguments.Get(1).([]byte)
	var task map[string]string
	assert.NoError(t, json.Unmarshal(payload, &task))
	assert.Equal(t, "u@x.dev", task["user_id"])
}

func TestSubmitResume_ExtractionError(t *testing.T) {
	repo := new(MockRepo)
	extractor := new(MockExtractor)
	pub := new(MockPublisher)

	extractor.On("ExtractResume", mock.Anything, "raw text").Return(nil, errors.New("llm down"))

	svc := profile.NewService(repo, extractor, pub)
	_, err := svc.SubmitResume(context.Background(), "u@x.dev", "raw text")

	assert.ErrorIs(t, err, profile.ErrExtraction)
	repo.AssertNotCalled(t, "Upsert")
	pub.AssertNotCalled(t, "Publish")
}

func TestSubmitResume_PublishError(t *testing.T) {
	repo := new(MockRepo)
	extractor := new(MockExtractor)
	pub := new(MockPublisher)

	extractor.On("ExtractResume", mock.Anything, "raw text").Return(&profile.CandidateProfile{}, nil)
	repo.On("Upsert", mock.Anything, mock.Anything).Return(nil)
	pub.On("Publish", config.TopicResumeIndex, mock.Anything).Return(errors.New("nsq down"))

	svc := profile.NewService(repo, extractor, pub)
	_, err := svc.SubmitResume(context.Background(), "u@x.dev", "raw text")
	assert.Error(t, err)
}

func TestGet(t *testing.T) {
	repo := new(MockRepo)
	expected := &profile.CandidateProfile{Email: "u@x.dev"}
	repo.On("Get", mock.Anything, "u@x.dev").Return(expected, nil)

	svc := profile.NewService(repo, new(MockExtractor), new(MockPublisher))
	prof, err := svc.Get(context.Background(), "u@x.dev")
	assert.NoError(t, err)
	assert.Equal(t, expected, prof)
}
