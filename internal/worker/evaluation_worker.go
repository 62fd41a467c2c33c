package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/ieltsprep/ielts-backend/internal/config"
	"github.com/ieltsprep/ielts-backend/internal/evaluator"
	"github.com/ieltsprep/ielts-backend/internal/repository"
)

// Writing evaluation is retried a bounded number of times; a poisonous
// payload is dropped rather than wedging the queue.
const maxEvaluationAttempts = 3

// EvaluationWorker consumes writing_evaluation_queue, asks the AI
// examiner for a band score and stores the verdict on the response row.
type EvaluationWorker struct {
	responses *repository.ResponseRepository
	ai        *evaluator.Client
	rdb       *redis.Client
	log       zerolog.Logger
}

// NewEvaluationWorker creates a new EvaluationWorker.
func NewEvaluationWorker(responses *repository.ResponseRepository, ai *evaluator.Client, rdb *redis.Client, log zerolog.Logger) *EvaluationWorker {
	return &EvaluationWorker{
		responses: responses,
		ai:        ai,
		rdb:       rdb,
		log:       log.With().Str("component", "evaluation_worker").Logger(),
	}
}

// EvaluationPayload is one queued essay awaiting evaluation.
type EvaluationPayload struct {
	ResponseID   string `json:"response_id"`
	QuestionText string `json:"question_text"`
	Essay        string `json:"essay"`
	Attempts     int    `json:"attempts,omitempty"`
}

// Start begins the infinite worker loop. Call in a goroutine.
func (w *EvaluationWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Worker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopped")
			return
		default:
			w.processNext(ctx)
		}
	}
}

func (w *EvaluationWorker) processNext(ctx context.Context) {
	result, err := w.rdb.BLPop(ctx, time.Second, config.WorkerKey.WritingEvaluationQueue).Result()
	if err != nil {
		if err != redis.Nil && ctx.Err() == nil {
			w.log.Error().Err(err).Msg("BLPop error")
		}
		return
	}

	if len(result) < 2 {
		return
	}

	var payload EvaluationPayload
	if err := json.Unmarshal([]byte(result[1]), &payload); err != nil {
		w.log.Error().Err(err).Msg("Unmarshal error")
		return
	}

	if err := w.evaluate(ctx, &payload); err != nil {
		payload.Attempts++
		if payload.Attempts >= maxEvaluationAttempts {
			w.log.Error().Err(err).
				Str("response_id", payload.ResponseID).
				Int("attempts", payload.Attempts).
				Msg("Evaluation abandoned")
			return
		}
		w.log.Warn().Err(err).
			Str("response_id", payload.ResponseID).
			Int("attempts", payload.Attempts).
			Msg("Evaluation failed, requeueing")
		if raw, merr := json.Marshal(payload); merr == nil {
			w.rdb.RPush(ctx, config.WorkerKey.WritingEvaluationQueue, raw)
		}
		time.Sleep(5 * time.Second)
	}
}

func (w *EvaluationWorker) evaluate(ctx context.Context, p *EvaluationPayload) error {
	responseID, err := uuid.Parse(p.ResponseID)
	if err != nil {
		return err
	}

	eval, err := w.ai.Evaluate(ctx, p.QuestionText, p.Essay)
	if err != nil {
		return err
	}

	if err := w.responses.UpdateEvaluation(ctx, responseID, eval.BandScore, eval.Feedback); err != nil {
		return err
	}

	w.log.Info().
		Str("response_id", p.ResponseID).
		Str("band_score", eval.BandScore).
		Int("words", evaluator.WordCount(p.Essay)).
		Msg("Essay evaluated")
	return nil
}
