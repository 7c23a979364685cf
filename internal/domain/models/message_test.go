package models_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steelcopilot/chat-service/internal/domain/models"
)

func TestNewChatSession_EmptyMessages(t *testing.T) {
	session := models.NewChatSession("s1", "u1", "", "", nil, nil)

	assert.NotNil(t, session.Messages)
	assert.Empty(t, session.Messages)
	assert.Equal(t, session.CreatedAt, session.UpdatedAt)
}

func TestChatSession_Turns(t *testing.T) {
	session := models.NewChatSession("s1", "u1", "", "", nil, nil,
		models.NewChatMessage("welcome", false),
		models.NewChatMessage("question", true),
	)

	turns := session.Turns()

	require.Len(t, turns, 2)
	assert.Equal(t, models.Turn{Role: models.RoleAssistant, Content: "welcome"}, turns[0])
	assert.Equal(t, models.Turn{Role: models.RoleUser, Content: "question"}, turns[1])
}

func TestChatSession_TurnsNil(t *testing.T) {
	var session *models.ChatSession

	assert.Nil(t, session.Turns())
}
