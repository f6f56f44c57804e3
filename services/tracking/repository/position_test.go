package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tippyhq/tracking/internal/pkg/database"
	"github.com/tippyhq/tracking/internal/pkg/models"
)

func setupPositionRepo(t *testing.T) (*PositionRepo, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewPositionRepo(&database.RedisClient{Client: client}, 24*time.Hour), mr
}

func sampleFixture(capturedAt time.Time) *models.PositionSample {
	heading := 90.0
	speed := 8.5
	return &models.PositionSample{
		PartyID:    "provider-1",
		PartyRole:  models.PartyRoleProvider,
		Latitude:   37.7749,
		Longitude:  -122.4194,
		Accuracy:   5,
		Heading:    &heading,
		Speed:      &speed,
		CapturedAt: capturedAt,
		JobID:      "job-1",
	}
}

func TestPositionRepo_InsertAndQueryLatest(t *testing.T) {
	repo, _ := setupPositionRepo(t)
	ctx := context.Background()

	capturedAt := time.Now().UTC().Truncate(time.Millisecond)
	require.NoError(t, repo.Insert(ctx, sampleFixture(capturedAt)))

	got, err := repo.QueryLatest(ctx, "job-1", models.PartyRoleProvider)
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, "provider-1", got.PartyID)
	assert.Equal(t, models.PartyRoleProvider, got.PartyRole)
	assert.Equal(t, 37.7749, got.Latitude)
	assert.Equal(t, -122.4194, got.Longitude)
	assert.Equal(t, 5.0, got.Accuracy)
	require.NotNil(t, got.Heading)
	assert.Equal(t, 90.0, *got.Heading)
	require.NotNil(t, got.Speed)
	assert.Equal(t, 8.5, *got.Speed)
	assert.True(t, got.CapturedAt.Equal(capturedAt))
}

func TestPositionRepo_QueryLatest_Empty(t *testing.T) {
	repo, _ := setupPositionRepo(t)

	got, err := repo.QueryLatest(context.Background(), "unknown-job", models.PartyRoleCustomer)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestPositionRepo_Insert_KeepsNewestSample(t *testing.T) {
	repo, _ := setupPositionRepo(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Millisecond)
	newer := sampleFixture(now)
	newer.Latitude = 37.78
	require.NoError(t, repo.Insert(ctx, newer))

	older := sampleFixture(now.Add(-time.Minute))
	older.Latitude = 37.70
	require.NoError(t, repo.Insert(ctx, older))

	got, err := repo.QueryLatest(ctx, "job-1", models.PartyRoleProvider)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 37.78, got.Latitude)
	assert.True(t, got.CapturedAt.Equal(now))
}

func TestPositionRepo_Insert_OmitsOptionalFields(t *testing.T) {
	repo, _ := setupPositionRepo(t)
	ctx := context.Background()

	sample := sampleFixture(time.Now().UTC())
	sample.Heading = nil
	sample.Speed = nil
	require.NoError(t, repo.Insert(ctx, sample))

	got, err := repo.QueryLatest(ctx, "job-1", models.PartyRoleProvider)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Nil(t, got.Heading)
	assert.Nil(t, got.Speed)
}

func TestPositionRepo_Insert_RejectsInvalidSample(t *testing.T) {
	repo, _ := setupPositionRepo(t)

	sample := sampleFixture(time.Now().UTC())
	sample.Latitude = 120

	err := repo.Insert(context.Background(), sample)
	assert.Error(t, err)
}

func TestPositionRepo_Insert_SetsTTL(t *testing.T) {
	repo, mr := setupPositionRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, sampleFixture(time.Now().UTC())))

	ttl := mr.TTL("tracking:position:job-1:PROVIDER")
	assert.Equal(t, 24*time.Hour, ttl)
}

func TestPositionRepo_Delete(t *testing.T) {
	repo, _ := setupPositionRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, sampleFixture(time.Now().UTC())))
	require.NoError(t, repo.Delete(ctx, "job-1"))

	got, err := repo.QueryLatest(ctx, "job-1", models.PartyRoleProvider)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestPositionRepo_RolesAreIndependent(t *testing.T) {
	repo, _ := setupPositionRepo(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Millisecond)
	provider := sampleFixture(now)
	require.NoError(t, repo.Insert(ctx, provider))

	customer := sampleFixture(now)
	customer.PartyID = "customer-1"
	customer.PartyRole = models.PartyRoleCustomer
	customer.Latitude = 37.80
	require.NoError(t, repo.Insert(ctx, customer))

	gotProvider, err := repo.QueryLatest(ctx, "job-1", models.PartyRoleProvider)
	require.NoError(t, err)
	gotCustomer, err := repo.QueryLatest(ctx, "job-1", models.PartyRoleCustomer)
	require.NoError(t, err)

	assert.Equal(t, "provider-1", gotProvider.PartyID)
	assert.Equal(t, "customer-1", gotCustomer.PartyID)
	assert.Equal(t, 37.80, gotCustomer.Latitude)
}
