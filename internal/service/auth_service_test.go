package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"modtracker/internal/auth"
	"modtracker/internal/model"
)

func TestAuthService_Register(t *testing.T) {
	tests := []struct {
		name          string
		username      string
		password      string
		role          model.Role
		setupMock     func(*MockUserRepository)
		expectedRole  model.Role
		expectedError error
	}{
		{
			name:     "successful registration defaults to operator",
			username: "Alice",
			password: "password123",
			setupMock: func(m *MockUserRepository) {
				m.On("FindByUsername", mock.Anything, "Alice").Return(nil, gorm.ErrRecordNotFound)
				m.On("Create", mock.Anything, mock.AnythingOfType("*model.User")).Return(nil)
			},
			expectedRole: model.RoleOperator,
		},
		{
			name:     "admin may be created explicitly",
			username: "root",
			password: "password123",
			role:     model.RoleAdmin,
			setupMock: func(m *MockUserRepository) {
				m.On("FindByUsername", mock.Anything, "root").Return(nil, gorm.ErrRecordNotFound)
				m.On("Create", mock.Anything, mock.AnythingOfType("*model.User")).Return(nil)
			},
			expectedRole: model.RoleAdmin,
		},
		{
			name:     "user already exists",
			username: "Bob",
			password: "password123",
			setupMock: func(m *MockUserRepository) {
				m.On("FindByUsername", mock.Anything, "Bob").Return(&model.User{Username: "Bob"}, nil)
			},
			expectedError: ErrUserAlreadyExists,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockUserRepository)
			tt.setupMock(mockRepo)

			service := NewAuthService(mockRepo, auth.NewJWTService("test-secret"), new(MockTokenStore), fixedClock(testNow))
			user, err := service.Register(context.Background(), tt.username, tt.password, tt.role)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Nil(t, user)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.username, user.Username)
				assert.Equal(t, tt.username, user.AvatarSeed)
				assert.Equal(t, tt.expectedRole, user.Role)
				assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(tt.password)))
			}

			mockRepo.AssertExpectations(t)
		})
	}
}

func TestAuthService_Login(t *testing.T) {
	hashed, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)
	userID := uuid.New()

	tests := []struct {
		name          string
		username      string
		password      string
		setupMock     func(*MockUserRepository, *MockTokenStore)
		expectedError error
	}{
		{
			name:     "successful login",
			username: "Alice",
			password: "password123",
			setupMock: func(mRepo *MockUserRepository, mToken *MockTokenStore) {
				mRepo.On("FindByUsername", mock.Anything, "Alice").Return(&model.User{
					ID:           userID,
					Username:     "Alice",
					PasswordHash: string(hashed),
					Role:         model.RoleOperator,
				}, nil)
				mRepo.On("UpdateLastLogin", mock.Anything, userID, testNow).Return(nil)
				mToken.On("StoreRefreshToken", mock.Anything, mock.Anything,
					auth.RefreshSession{UserID: userID.String(), Username: "Alice"}, auth.RefreshTokenExpiry).Return(nil)
			},
		},
		{
			name:     "invalid credentials - user not found",
			username: "nobody",
			password: "password123",
			setupMock: func(mRepo *MockUserRepository, mToken *MockTokenStore) {
				mRepo.On("FindByUsername", mock.Anything, "nobody").Return(nil, gorm.ErrRecordNotFound)
			},
			expectedError: ErrInvalidCredentials,
		},
		{
			name:     "invalid credentials - wrong password",
			username: "Alice",
			password: "wrong",
			setupMock: func(mRepo *MockUserRepository, mToken *MockTokenStore) {
				mRepo.On("FindByUsername", mock.Anything, "Alice").Return(&model.User{
					ID:           userID,
					Username:     "Alice",
					PasswordHash: string(hashed),
				}, nil)
			},
			expectedError: ErrInvalidCredentials,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockUserRepository)
			mockTokenStore := new(MockTokenStore)
			tt.setupMock(mockRepo, mockTokenStore)

			service := NewAuthService(mockRepo, auth.NewJWTService("test-secret"), mockTokenStore, fixedClock(testNow))
			result, err := service.Login(context.Background(), tt.username, tt.password)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Nil(t, result)
			} else {
				require.NoError(t, err)
				assert.NotEmpty(t, result.AccessToken)
				assert.NotEmpty(t, result.RefreshToken)
				require.NotNil(t, result.User.LastLoginAt)
				assert.Equal(t, testNow, *result.User.LastLoginAt)
			}

			mockRepo.AssertExpectations(t)
			mockTokenStore.AssertExpectations(t)
		})
	}
}

func TestAuthService_RefreshToken(t *testing.T) {
	jwtService := auth.NewJWTService("test-secret")
	userID := uuid.New().String()
	tokenID, refresh, err := jwtService.GenerateRefreshToken(userID, "Alice", string(model.RoleOperator))
	require.NoError(t, err)

	t.Run("known session issues access token", func(t *testing.T) {
		store := new(MockTokenStore)
		store.On("GetRefreshToken", mock.Anything, tokenID).Return(auth.RefreshSession{UserID: userID, Username: "Alice"}, nil)

		service := NewAuthService(new(MockUserRepository), jwtService, store, nil)
		access, err := service.RefreshToken(context.Background(), refresh)

		require.NoError(t, err)
		claims, err := jwtService.ValidateToken(access)
		require.NoError(t, err)
		assert.Equal(t, userID, claims.UserID)
		assert.Equal(t, string(model.RoleOperator), claims.Role)
	})

	t.Run("revoked session is rejected", func(t *testing.T) {
		store := new(MockTokenStore)
		store.On("GetRefreshToken", mock.Anything, tokenID).Return(auth.RefreshSession{}, assert.AnError)

		service := NewAuthService(new(MockUserRepository), jwtService, store, nil)
		_, err := service.RefreshToken(context.Background(), refresh)

		assert.ErrorIs(t, err, ErrInvalidRefreshToken)
	})

	t.Run("garbage token is rejected", func(t *testing.T) {
		service := NewAuthService(new(MockUserRepository), jwtService, new(MockTokenStore), nil)
		_, err := service.RefreshToken(context.Background(), "not-a-jwt")

		assert.ErrorIs(t, err, ErrInvalidRefreshToken)
	})
}

func TestAuthService_LogoutRevokesBothTokens(t *testing.T) {
	jwtService := auth.NewJWTService("test-secret")
	userID := uuid.New().String()
	refreshID, refresh, err := jwtService.GenerateRefreshToken(userID, "Alice", "OPERATOR")
	require.NoError(t, err)
	_, access, err := jwtService.GenerateAccessToken(userID, "Alice", "OPERATOR")
	require.NoError(t, err)
	accessClaims, err := jwtService.ValidateToken(access)
	require.NoError(t, err)

	now := accessClaims.IssuedAt.Time.Add(5 * time.Minute)
	store := new(MockTokenStore)
	store.On("DeleteRefreshToken", mock.Anything, refreshID).Return(nil)
	store.On("BlacklistAccessToken", mock.Anything, accessClaims.ID, 10*time.Minute).Return(nil)
	store.On("IsAccessTokenBlacklisted", mock.Anything, accessClaims.ID).Return(true, nil)

	service := NewAuthService(new(MockUserRepository), jwtService, store, fixedClock(now))

	require.NoError(t, service.Logout(context.Background(), refresh, accessClaims))
	assert.True(t, service.IsRevoked(context.Background(), accessClaims.ID))
	store.AssertExpectations(t)
}
