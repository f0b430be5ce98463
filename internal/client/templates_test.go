package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender_KnownEvent(t *testing.T) {
	msg, ok := Render("request.path_assigned", map[string]any{
		"request_title":   "Faster onboarding",
		"department_name": "Engineering",
	})
	require.True(t, ok)

	assert.Equal(t, "Request Faster onboarding was routed to Engineering for review.", msg.BodyEn)
	assert.Contains(t, msg.BodyAr, "Faster onboarding")
	assert.Contains(t, msg.BodyAr, "Engineering")
	assert.NotEmpty(t, msg.TitleAr)
	assert.NotEmpty(t, msg.TitleEn)
}

func TestRender_UnknownEvent(t *testing.T) {
	_, ok := Render("request.no_such_event", nil)
	assert.False(t, ok)
}

func TestRender_MissingKeysBecomeEmpty(t *testing.T) {
	msg, ok := Render("request.rejected", map[string]any{
		"request_title": "Faster onboarding",
		// comments deliberately absent
	})
	require.True(t, ok)

	assert.Equal(t, "Your request Faster onboarding was rejected. Reason: ", msg.BodyEn)
	assert.NotContains(t, msg.BodyEn, "{comments}", "unresolved tokens must never reach a recipient")
}

func TestRender_NonStringValues(t *testing.T) {
	msg, ok := Render("sla.dept_a_assign_path", map[string]any{
		"request_title": "Faster onboarding",
		"days_waiting":  4,
		"sla_days":      3,
	})
	require.True(t, ok)

	assert.Equal(t, "Request Faster onboarding has awaited a workflow path for 4 days (limit 3).", msg.BodyEn)
}

func TestSubstitute(t *testing.T) {
	t.Run("multiple tokens", func(t *testing.T) {
		got := substitute("{a} and {b} and {a}", map[string]any{"a": "x", "b": "y"})
		assert.Equal(t, "x and y and x", got)
	})

	t.Run("nil value renders empty", func(t *testing.T) {
		got := substitute("v={v}!", map[string]any{"v": nil})
		assert.Equal(t, "v=!", got)
	})

	t.Run("unterminated brace is kept literally", func(t *testing.T) {
		got := substitute("broken {token", map[string]any{"token": "x"})
		assert.Equal(t, "broken {token", got)
	})

	t.Run("no tokens", func(t *testing.T) {
		got := substitute("plain text", nil)
		assert.Equal(t, "plain text", got)
	})
}

func TestTemplates_AllEventTypesBilingual(t *testing.T) {
	for eventType, tpl := range templates {
		assert.NotEmpty(t, tpl.TitleAr, "%s missing Arabic title", eventType)
		assert.NotEmpty(t, tpl.TitleEn, "%s missing English title", eventType)
		assert.NotEmpty(t, tpl.BodyAr, "%s missing Arabic body", eventType)
		assert.NotEmpty(t, tpl.BodyEn, "%s missing English body", eventType)
	}
}
