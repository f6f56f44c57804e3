package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/tippyhq/tracking/internal/pkg/constants"
	"github.com/tippyhq/tracking/internal/pkg/database"
	"github.com/tippyhq/tracking/internal/pkg/models"
)

// PositionRepo keeps the latest sample per (job, party role) in a Redis hash
type PositionRepo struct {
	redis *database.RedisClient
	ttl   time.Duration
}

// NewPositionRepo creates a position repository with the given retention TTL
func NewPositionRepo(redis *database.RedisClient, ttl time.Duration) *PositionRepo {
	return &PositionRepo{
		redis: redis,
		ttl:   ttl,
	}
}

func positionKey(jobID string, role models.PartyRole) string {
	return fmt.Sprintf(constants.KeyJobPosition, jobID, string(role))
}

// Insert stores the sample as the latest for its (job, role) slot. Samples
// older than the stored one are skipped so out-of-order writes never move
// the slot backwards.
func (r *PositionRepo) Insert(ctx context.Context, sample *models.PositionSample) error {
	if err := sample.Validate(); err != nil {
		return fmt.Errorf("invalid position sample: %w", err)
	}

	key := positionKey(sample.JobID, sample.PartyRole)

	stored, err := r.QueryLatest(ctx, sample.JobID, sample.PartyRole)
	if err != nil {
		return err
	}
	if stored != nil && sample.CapturedAt.Before(stored.CapturedAt) {
		return nil
	}

	values := map[string]interface{}{
		constants.FieldPartyID:    sample.PartyID,
		constants.FieldLatitude:   sample.Latitude,
		constants.FieldLongitude:  sample.Longitude,
		constants.FieldAccuracy:   sample.Accuracy,
		constants.FieldCapturedAt: sample.CapturedAt.UnixMilli(),
	}
	if sample.Heading != nil {
		values[constants.FieldHeading] = *sample.Heading
	}
	if sample.Speed != nil {
		values[constants.FieldSpeed] = *sample.Speed
	}

	if err := r.redis.HSet(ctx, key, values); err != nil {
		return fmt.Errorf("failed to store position: %w", err)
	}
	if err := r.redis.Expire(ctx, key, r.ttl); err != nil {
		return fmt.Errorf("failed to set position TTL: %w", err)
	}
	return nil
}

// QueryLatest returns the latest stored sample for the slot, or (nil, nil)
// when nothing has been stored
func (r *PositionRepo) QueryLatest(ctx context.Context, jobID string, role models.PartyRole) (*models.PositionSample, error) {
	key := positionKey(jobID, role)

	values, err := r.redis.HMGet(ctx, key,
		constants.FieldPartyID,
		constants.FieldLatitude,
		constants.FieldLongitude,
		constants.FieldAccuracy,
		constants.FieldHeading,
		constants.FieldSpeed,
		constants.FieldCapturedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch position: %w", err)
	}
	if values[0] == nil {
		return nil, nil
	}

	sample := &models.PositionSample{
		JobID:     jobID,
		PartyRole: role,
	}

	var parseErr error
	sample.PartyID = asString(values[0])
	sample.Latitude = asFloat(values[1], &parseErr)
	sample.Longitude = asFloat(values[2], &parseErr)
	sample.Accuracy = asFloat(values[3], &parseErr)
	if values[4] != nil {
		heading := asFloat(values[4], &parseErr)
		sample.Heading = &heading
	}
	if values[5] != nil {
		speed := asFloat(values[5], &parseErr)
		sample.Speed = &speed
	}
	capturedMilli := asInt64(values[6], &parseErr)
	if parseErr != nil {
		return nil, fmt.Errorf("corrupt position record for %s: %w", key, parseErr)
	}
	sample.CapturedAt = time.UnixMilli(capturedMilli).UTC()

	return sample, nil
}

// Delete removes the stored slots for both parties of a job
func (r *PositionRepo) Delete(ctx context.Context, jobID string) error {
	for _, role := range []models.PartyRole{models.PartyRoleProvider, models.PartyRoleCustomer} {
		if err := r.redis.Delete(ctx, positionKey(jobID, role)); err != nil {
			return fmt.Errorf("failed to delete position for %s: %w", role, err)
		}
	}
	return nil
}

func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}

func asFloat(v interface{}, parseErr *error) float64 {
	s, ok := v.(string)
	if !ok {
		*parseErr = fmt.Errorf("unexpected field type %T", v)
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*parseErr = err
	}
	return f
}

func asInt64(v interface{}, parseErr *error) int64 {
	s, ok := v.(string)
	if !ok {
		*parseErr = fmt.Errorf("unexpected field type %T", v)
		return 0
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		*parseErr = err
	}
	return n
}
