package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/ieltsprep/ielts-backend/internal/config"
	"github.com/ieltsprep/ielts-backend/internal/model"
	"github.com/ieltsprep/ielts-backend/internal/repository"
)

const paperCacheTTL = 10 * time.Minute

// TestService serves test definitions to candidates.
type TestService struct {
	testRepo *repository.TestRepository
	rdb      *redis.Client
	log      zerolog.Logger
}

// NewTestService creates a new TestService.
func NewTestService(testRepo *repository.TestRepository, rdb *redis.Client, log zerolog.Logger) *TestService {
	return &TestService{
		testRepo: testRepo,
		rdb:      rdb,
		log:      log.With().Str("component", "test_service").Logger(),
	}
}

// Paper is the candidate-facing test payload: the full question tree with
// every answer key stripped.
type Paper struct {
	Test model.Test      `json:"test"`
	Type *model.TestType `json:"test_type"`
}

// List returns the active tests.
func (s *TestService) List(ctx context.Context) ([]model.Test, error) {
	return s.testRepo.ListActive(ctx)
}

// Paper returns the candidate payload for one test, cached in Redis so a
// room full of candidates starting together hits PostgreSQL once.
func (s *TestService) Paper(ctx context.Context, testID uuid.UUID) (*Paper, error) {
	cacheKey := config.CacheKey.TestPayloadKey(testID.String())
	if cached, err := s.rdb.Get(ctx, cacheKey).Result(); err == nil {
		var paper Paper
		if err := json.Unmarshal([]byte(cached), &paper); err == nil {
			return &paper, nil
		}
		// Stale or corrupt cache entry, rebuild it.
		s.rdb.Del(ctx, cacheKey)
	}

	test, err := s.testRepo.GetTest(ctx, testID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTestNotFound
		}
		return nil, err
	}
	if !test.IsActive {
		return nil, ErrTestInactive
	}
	testType, err := s.testRepo.GetTestType(ctx, test.TestTypeID)
	if err != nil {
		return nil, err
	}

	stripAnswerKeys(test)
	paper := &Paper{Test: *test, Type: testType}

	if raw, err := json.Marshal(paper); err == nil {
		s.rdb.Set(ctx, cacheKey, raw, paperCacheTTL)
		s.rdb.Set(ctx, config.CacheKey.TestDurationKey(testID.String()), testType.TimeLimitMinutes, paperCacheTTL)
	}
	return paper, nil
}

// stripAnswerKeys removes correct-answer data before the payload leaves
// the server.
func stripAnswerKeys(test *model.Test) {
	for pi := range test.Parts {
		for si := range test.Parts[pi].Sections {
			qs := test.Parts[pi].Sections[si].Questions
			for qi := range qs {
				qs[qi].Answer = nil
			}
		}
	}
}
