package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// DeadLetter is a job parked after it could not complete. Entries live in
// the Redis list returned by deadLetterKey, newest at the head.
type DeadLetter struct {
	Queue    string          `json:"queue"`
	JobType  string          `json:"job_type"`
	Payload  json.RawMessage `json:"payload"`
	Reason   string          `json:"reason"`
	Attempts int             `json:"attempts"`
	FailedAt time.Time       `json:"failed_at"`
}

func deadLetterKey(queue string) string { return "dlq:" + queue }

// SendToDLQ parks a job. Failures are only logged since the caller has
// nothing left to do with the job.
func SendToDLQ(ctx context.Context, rdb *redis.Client, queue, jobType string, payload json.RawMessage, reason string, attempts int) {
	logger := log.With().Str("queue", queue).Str("job_type", jobType).Logger()
	if rdb == nil {
		logger.Error().Str("reason", reason).Msg("dlq: no redis client, job dropped")
		return
	}
	data, err := json.Marshal(DeadLetter{
		Queue:    queue,
		JobType:  jobType,
		Payload:  payload,
		Reason:   reason,
		Attempts: attempts,
		FailedAt: time.Now().UTC(),
	})
	if err == nil {
		err = rdb.LPush(ctx, deadLetterKey(queue), data).Err()
	}
	if err != nil {
		logger.Error().Err(err).Msg("dlq: could not park job")
		return
	}
	logger.Warn().Str("reason", reason).Int("attempts", attempts).Msg("dlq: job parked")
}

func DLQLength(ctx context.Context, rdb *redis.Client, queue string) (int64, error) {
	return rdb.LLen(ctx, deadLetterKey(queue)).Result()
}

// DLQPeek returns up to n entries, newest first, leaving them in place.
// Entries that no longer decode are skipped.
func DLQPeek(ctx context.Context, rdb *redis.Client, queue string, n int64) ([]DeadLetter, error) {
	raw, err := rdb.LRange(ctx, deadLetterKey(queue), 0, n-1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]DeadLetter, 0, len(raw))
	for _, r := range raw {
		var d DeadLetter
		if json.Unmarshal([]byte(r), &d) == nil {
			out = append(out, d)
		}
	}
	return out, nil
}

// DLQRequeue moves up to n of the oldest entries back onto their source
// queue as fresh jobs and reports how many were moved.
func DLQRequeue(ctx context.Context, rdb *redis.Client, queue string, n int) (int, error) {
	moved := 0
	for moved < n {
		raw, err := rdb.RPop(ctx, deadLetterKey(queue)).Bytes()
		if errors.Is(err, redis.Nil) {
			break
		}
		if err != nil {
			return moved, err
		}
		var d DeadLetter
		if err := json.Unmarshal(raw, &d); err != nil {
			log.Warn().Err(err).Str("queue", queue).Msg("dlq: discarding undecodable entry")
			continue
		}
		job, _ := json.Marshal(Job{Type: d.JobType, Payload: d.Payload})
		if err := rdb.LPush(ctx, queue, job).Err(); err != nil {
			// put it back so the entry is not lost
			_ = rdb.RPush(ctx, deadLetterKey(queue), raw).Err()
			return moved, err
		}
		moved++
	}
	return moved, nil
}
