package chat

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTitleFromContent(t *testing.T) {
	assert.Equal(t, "Paris trip", TitleFromContent("Paris trip"))

	exact := strings.Repeat("a", 30)
	assert.Equal(t, exact, TitleFromContent(exact))

	long := strings.Repeat("b", 31)
	assert.Equal(t, strings.Repeat("b", 30)+"...", TitleFromContent(long))

	// characters, not bytes
	kyoto := strings.Repeat("京", 31)
	assert.Equal(t, strings.Repeat("京", 30)+"...", TitleFromContent(kyoto))
}

func TestTitleFromMessages(t *testing.T) {
	assert.Empty(t, TitleFromMessages(nil))

	msgs := []Message{
		NewMessage(ChatRoleAssistant, "hello"),
		NewMessage(ChatRoleUser, "Plan three days in Rome"),
		NewMessage(ChatRoleUser, "and Naples"),
	}
	assert.Equal(t, "Plan three days in Rome", TitleFromMessages(msgs))
}

func TestNewSession(t *testing.T) {
	s := NewSession("")
	assert.Equal(t, DefaultTitle, s.Title)
	assert.NotEmpty(t, s.ID)
	assert.False(t, s.LastUpdated.IsZero())

	other := NewSession("Rome")
	assert.NotEqual(t, s.ID, other.ID)
	assert.Equal(t, "Rome", other.Title)
}
