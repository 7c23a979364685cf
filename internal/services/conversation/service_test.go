package conversation_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/steelcopilot/chat-service/internal/core/cache"
	"github.com/steelcopilot/chat-service/internal/core/docdb"
	domainerrors "github.com/steelcopilot/chat-service/internal/domain/errors"
	"github.com/steelcopilot/chat-service/internal/domain/models"
	rediscache "github.com/steelcopilot/chat-service/internal/infrastructure/cache/redis"
	"github.com/steelcopilot/chat-service/internal/pkg/encryption"
	"github.com/steelcopilot/chat-service/internal/services/conversation"
	"github.com/steelcopilot/chat-service/internal/testutil/mocks"
)

const testKey = "0123456789abcdef0123456789abcdef"

func setupRedis(t *testing.T) (*miniredis.Miniredis, cache.Cache) {
	t.Helper()

	mr := miniredis.RunT(t)
	c, err := rediscache.NewCache(rediscache.Config{Host: mr.Host(), Port: mr.Port()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return mr, c
}

func newService(t *testing.T, store *mocks.MockChatSessionsCollection, c cache.Cache) conversation.Service {
	t.Helper()

	sealer, err := encryption.NewAESSealer(testKey)
	require.NoError(t, err)

	svc, err := conversation.NewService(&conversation.Config{
		Store:  store,
		Cache:  c,
		Sealer: sealer,
		TTL:    time.Minute,
	})
	require.NoError(t, err)
	return svc
}

func errorCode(t *testing.T, err error) string {
	t.Helper()
	domainErr, ok := domainerrors.GetDomainError(err)
	require.True(t, ok, "expected a domain error, got %v", err)
	return domainErr.Code
}

func storedSession(id, userID string) *models.ChatSession {
	return models.NewChatSession(id, userID, "operator", "supply-planning", nil, nil,
		models.NewChatMessage("hello", false))
}

func TestNewService_Validation(t *testing.T) {
	tests := []struct {
		name   string
		cfg    *conversation.Config
		errMsg string
	}{
		{name: "nil config", cfg: nil, errMsg: "config is required"},
		{name: "nil store", cfg: &conversation.Config{}, errMsg: "session store is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := conversation.NewService(tt.cfg)

			require.Error(t, err)
			assert.Nil(t, svc)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestNewService_CacheAndSealerOptional(t *testing.T) {
	svc, err := conversation.NewService(&conversation.Config{Store: &mocks.MockChatSessionsCollection{}})

	require.NoError(t, err)
	assert.NotNil(t, svc)
}

func TestWelcomeMessage(t *testing.T) {
	agent := 3

	assert.Equal(t,
		"Hello! I'm your Steel Ecosystem Co-Pilot. How can I help you with steel operations today?",
		conversation.WelcomeMessage("", nil))
	assert.Equal(t,
		"Hello! I'm your Steel Ecosystem Co-Pilot. How can I help you with steel supply planning today?",
		conversation.WelcomeMessage("supply-planning", nil))
	assert.Equal(t,
		"Hello! I'm Agent #3. How can I assist with your steel operations today?",
		conversation.WelcomeMessage("supply-planning", &agent))

	zero := 0
	assert.Equal(t,
		"Hello! I'm your Steel Ecosystem Co-Pilot. How can I help you with steel supply planning today?",
		conversation.WelcomeMessage("supply-planning", &zero))
}

func TestRecentTurns(t *testing.T) {
	session := storedSession("s1", "u1")
	session.Messages = append(session.Messages,
		models.NewChatMessage("q1", true),
		models.NewChatMessage("a1", false),
	)

	turns := conversation.RecentTurns(session, 2)

	require.Len(t, turns, 2)
	assert.Equal(t, models.Turn{Role: models.RoleUser, Content: "q1"}, turns[0])
	assert.Equal(t, models.Turn{Role: models.RoleAssistant, Content: "a1"}, turns[1])
	assert.Len(t, conversation.RecentTurns(session, 0), 3)
}

func TestService_CreateSession_StoresWelcome(t *testing.T) {
	store := &mocks.MockChatSessionsCollection{}
	store.On("Create", mock.Anything, mock.MatchedBy(func(s *models.ChatSession) bool {
		return s.UserID == "u1" && len(s.Messages) == 1 && !s.Messages[0].IsUser
	})).Return(nil)
	svc := newService(t, store, nil)

	session, err := svc.CreateSession(context.Background(), conversation.CreateSessionInput{
		UserID:   "u1",
		Username: "operator",
		Module:   "supply-planning",
	})

	require.NoError(t, err)
	assert.NotEmpty(t, session.ID)
	assert.Equal(t, "supply-planning", session.Module)
	assert.Contains(t, session.Messages[0].Text, "steel supply planning")
	store.AssertExpectations(t)
}

func TestService_CreateSession_RequiresUser(t *testing.T) {
	svc := newService(t, &mocks.MockChatSessionsCollection{}, nil)

	_, err := svc.CreateSession(context.Background(), conversation.CreateSessionInput{})

	require.Error(t, err)
	assert.Equal(t, domainerrors.ErrCodeValidation, errorCode(t, err))
}

func TestService_CreateSession_StoreError(t *testing.T) {
	store := &mocks.MockChatSessionsCollection{}
	store.On("Create", mock.Anything, mock.Anything).Return(errors.New("write failed"))
	svc := newService(t, store, nil)

	_, err := svc.CreateSession(context.Background(), conversation.CreateSessionInput{UserID: "u1"})

	require.Error(t, err)
	assert.Equal(t, domainerrors.ErrCodeInternal, errorCode(t, err))
}

func TestService_GetSession_ReadsThroughCache(t *testing.T) {
	mr, c := setupRedis(t)
	store := &mocks.MockChatSessionsCollection{}
	store.On("Get", mock.Anything, "s1").Return(storedSession("s1", "u1"), nil).Once()
	svc := newService(t, store, c)

	first, err := svc.GetSession(context.Background(), "s1", "u1")
	require.NoError(t, err)
	second, err := svc.GetSession(context.Background(), "s1", "u1")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "hello", second.Messages[0].Text)
	assert.True(t, mr.Exists(rediscache.DefaultKeyPrefix+"session:s1"))
	store.AssertNumberOfCalls(t, "Get", 1)
}

func TestService_GetSession_CachedPayloadIsSealed(t *testing.T) {
	mr, c := setupRedis(t)
	store := &mocks.MockChatSessionsCollection{}
	store.On("Get", mock.Anything, "s1").Return(storedSession("s1", "u1"), nil)
	svc := newService(t, store, c)

	_, err := svc.GetSession(context.Background(), "s1", "u1")
	require.NoError(t, err)

	raw, err := mr.Get(rediscache.DefaultKeyPrefix + "session:s1")
	require.NoError(t, err)
	assert.NotContains(t, raw, "hello")
}

func TestService_GetSession_CorruptCacheFallsBack(t *testing.T) {
	mr, c := setupRedis(t)
	require.NoError(t, mr.Set(rediscache.DefaultKeyPrefix+"session:s1", "garbage"))
	store := &mocks.MockChatSessionsCollection{}
	store.On("Get", mock.Anything, "s1").Return(storedSession("s1", "u1"), nil).Once()
	svc := newService(t, store, c)

	session, err := svc.GetSession(context.Background(), "s1", "u1")

	require.NoError(t, err)
	assert.Equal(t, "s1", session.ID)
	store.AssertExpectations(t)
}

func TestService_GetSession_CacheErrorsAreNotFatal(t *testing.T) {
	mockCache := &mocks.MockCache{}
	mockCache.On("Get", mock.Anything, "session:s1").Return(nil, errors.New("redis down"))
	mockCache.On("Set", mock.Anything, "session:s1", mock.Anything, time.Minute).Return(errors.New("redis down"))
	store := &mocks.MockChatSessionsCollection{}
	store.On("Get", mock.Anything, "s1").Return(storedSession("s1", "u1"), nil)
	svc := newService(t, store, mockCache)

	session, err := svc.GetSession(context.Background(), "s1", "u1")

	require.NoError(t, err)
	assert.Equal(t, "s1", session.ID)
	mockCache.AssertExpectations(t)
}

func TestService_GetSession_Errors(t *testing.T) {
	tests := []struct {
		name    string
		stored  *models.ChatSession
		err     error
		userID  string
		errCode string
	}{
		{name: "missing", stored: nil, userID: "u1", errCode: domainerrors.ErrCodeNotFound},
		{name: "other owner", stored: storedSession("s1", "u2"), userID: "u1", errCode: domainerrors.ErrCodeForbidden},
		{name: "store failure", err: errors.New("timeout"), userID: "u1", errCode: domainerrors.ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &mocks.MockChatSessionsCollection{}
			if tt.stored == nil {
				store.On("Get", mock.Anything, "s1").Return(nil, tt.err)
			} else {
				store.On("Get", mock.Anything, "s1").Return(tt.stored, tt.err)
			}
			svc := newService(t, store, nil)

			_, err := svc.GetSession(context.Background(), "s1", tt.userID)

			require.Error(t, err)
			assert.Equal(t, tt.errCode, errorCode(t, err))
		})
	}
}

func TestService_AppendMessages_InvalidatesCache(t *testing.T) {
	mr, c := setupRedis(t)
	store := &mocks.MockChatSessionsCollection{}
	store.On("Get", mock.Anything, "s1").Return(storedSession("s1", "u1"), nil)
	store.On("AppendMessages", mock.Anything, "s1", mock.Anything).Return(true, nil)
	svc := newService(t, store, c)

	_, err := svc.GetSession(context.Background(), "s1", "u1")
	require.NoError(t, err)
	require.True(t, mr.Exists(rediscache.DefaultKeyPrefix+"session:s1"))

	err = svc.AppendMessages(context.Background(), "s1", models.NewChatMessage("q", true))

	require.NoError(t, err)
	assert.False(t, mr.Exists(rediscache.DefaultKeyPrefix+"session:s1"))
}

func TestService_AppendMessages_UnknownSession(t *testing.T) {
	store := &mocks.MockChatSessionsCollection{}
	store.On("AppendMessages", mock.Anything, "missing", mock.Anything).Return(false, nil)
	svc := newService(t, store, nil)

	err := svc.AppendMessages(context.Background(), "missing", models.NewChatMessage("q", true))

	require.Error(t, err)
	assert.Equal(t, domainerrors.ErrCodeNotFound, errorCode(t, err))
}

func TestService_AppendMessages_NothingToAppend(t *testing.T) {
	store := &mocks.MockChatSessionsCollection{}
	svc := newService(t, store, nil)

	require.NoError(t, svc.AppendMessages(context.Background(), "s1"))
	store.AssertNotCalled(t, "AppendMessages", mock.Anything, mock.Anything, mock.Anything)
}

func TestService_ListUserSessions(t *testing.T) {
	store := &mocks.MockChatSessionsCollection{}
	sessions := []*models.ChatSession{storedSession("s1", "u1"), storedSession("s2", "u1")}
	store.On("List", mock.Anything, mock.MatchedBy(func(opts *docdb.ListSessionsOptions) bool {
		return opts.UserID == "u1" && opts.OrderBy == docdb.SortOrderDesc
	})).Return(sessions, nil)
	svc := newService(t, store, nil)

	got, err := svc.ListUserSessions(context.Background(), "u1")

	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestService_GetOrCreateSession_ReturnsLatestForModule(t *testing.T) {
	store := &mocks.MockChatSessionsCollection{}
	latest := storedSession("s2", "u1")
	store.On("List", mock.Anything, mock.MatchedBy(func(opts *docdb.ListSessionsOptions) bool {
		return opts.UserID == "u1" && opts.Module == "supply-planning" && opts.WithoutAgent &&
			opts.AgentID == nil && opts.Limit == 1 && opts.OrderBy == docdb.SortOrderDesc
	})).Return([]*models.ChatSession{latest}, nil)
	svc := newService(t, store, nil)

	session, created, err := svc.GetOrCreateSession(context.Background(), conversation.CreateSessionInput{
		UserID: "u1",
		Module: "supply-planning",
	})

	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "s2", session.ID)
	store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestService_GetOrCreateSession_CreatesForAgent(t *testing.T) {
	store := &mocks.MockChatSessionsCollection{}
	agent := 9
	store.On("List", mock.Anything, mock.MatchedBy(func(opts *docdb.ListSessionsOptions) bool {
		return opts.UserID == "u1" && opts.AgentID != nil && *opts.AgentID == 9 && opts.Module == ""
	})).Return([]*models.ChatSession{}, nil)
	store.On("Create", mock.Anything, mock.MatchedBy(func(s *models.ChatSession) bool {
		return s.AgentID != nil && *s.AgentID == 9
	})).Return(nil)
	svc := newService(t, store, nil)

	session, created, err := svc.GetOrCreateSession(context.Background(), conversation.CreateSessionInput{
		UserID:  "u1",
		AgentID: &agent,
	})

	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "Hello! I'm Agent #9. How can I assist with your steel operations today?", session.Messages[0].Text)
	store.AssertExpectations(t)
}

func TestService_GetOrCreateSession_Errors(t *testing.T) {
	tests := []struct {
		name    string
		userID  string
		listErr error
		errCode string
	}{
		{name: "user required", userID: "", errCode: domainerrors.ErrCodeValidation},
		{name: "store failure", userID: "u1", listErr: errors.New("db down"), errCode: domainerrors.ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &mocks.MockChatSessionsCollection{}
			store.On("List", mock.Anything, mock.Anything).Return(nil, tt.listErr)
			svc := newService(t, store, nil)

			_, created, err := svc.GetOrCreateSession(context.Background(), conversation.CreateSessionInput{UserID: tt.userID})

			require.Error(t, err)
			assert.False(t, created)
			assert.Equal(t, tt.errCode, errorCode(t, err))
		})
	}
}

func TestService_DeleteSession(t *testing.T) {
	mr, c := setupRedis(t)
	store := &mocks.MockChatSessionsCollection{}
	store.On("Get", mock.Anything, "s1").Return(storedSession("s1", "u1"), nil)
	store.On("Delete", mock.Anything, "s1").Return(true, nil)
	svc := newService(t, store, c)

	err := svc.DeleteSession(context.Background(), "s1", "u1")

	require.NoError(t, err)
	assert.False(t, mr.Exists(rediscache.DefaultKeyPrefix+"session:s1"))
	store.AssertExpectations(t)
}

func TestService_DeleteSession_OtherOwner(t *testing.T) {
	store := &mocks.MockChatSessionsCollection{}
	store.On("Get", mock.Anything, "s1").Return(storedSession("s1", "u2"), nil)
	svc := newService(t, store, nil)

	err := svc.DeleteSession(context.Background(), "s1", "u1")

	require.Error(t, err)
	assert.Equal(t, domainerrors.ErrCodeForbidden, errorCode(t, err))
	store.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}
