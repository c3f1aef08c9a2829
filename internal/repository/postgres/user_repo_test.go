package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/dom/foodorder-backend/internal/domain"
	"github.com/dom/foodorder-backend/internal/repository/postgres"
	"github.com/dom/foodorder-backend/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestUserRepository_Create(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repo := postgres.NewUserRepository(testDB.DB)
	ctx := context.Background()

	hash := "hashedpassword"

	tests := []struct {
		name    string
		user    *domain.User
		wantErr error
	}{
		{
			name: "successful creation",
			user: &domain.User{
				ID:           uuid.New(),
				Email:        "create@example.com",
				PasswordHash: &hash,
				CreatedAt:    time.Now(),
				UpdatedAt:    time.Now(),
			},
		},
		{
			name: "duplicate email",
			user: &domain.User{
				ID:           uuid.New(),
				Email:        "create@example.com", // Same as above
				PasswordHash: &hash,
				CreatedAt:    time.Now(),
				UpdatedAt:    time.Now(),
			},
			wantErr: gorm.ErrDuplicatedKey,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := repo.Create(ctx, tt.user)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestUserRepository_GetByEmail(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repo := postgres.NewUserRepository(testDB.DB)
	ctx := context.Background()

	user, _ := testutil.NewUserBuilder().
		WithEmail("getbyemail@example.com").
		WithFullName("Get By Email").
		Build(t, testDB.DB)

	tests := []struct {
		name    string
		email   string
		wantErr error
	}{
		{name: "existing user", email: "getbyemail@example.com"},
		{name: "non-existent user", email: "missing@example.com", wantErr: gorm.ErrRecordNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.GetByEmail(ctx, tt.email)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, user.ID, got.ID)
			require.NotNil(t, got.FullName)
			assert.Equal(t, "Get By Email", *got.FullName)
			assert.True(t, got.HasPassword())
		})
	}
}

func TestUserRepository_Update(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repo := postgres.NewUserRepository(testDB.DB)
	ctx := context.Background()

	user, _ := testutil.NewUserBuilder().Build(t, testDB.DB)
	assert.False(t, user.HasGoogleID())

	googleID := "google-42"
	user.GoogleID = &googleID
	require.NoError(t, repo.Update(ctx, user))

	got, err := repo.GetByEmail(ctx, user.Email)
	require.NoError(t, err)
	require.NotNil(t, got.GoogleID)
	assert.Equal(t, "google-42", *got.GoogleID)
}
