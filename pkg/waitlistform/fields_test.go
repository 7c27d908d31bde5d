package waitlistform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFields_InitializesEveryKey(t *testing.T) {
	def := DefaultDefinition()
	fields := NewFields(def)

	assert.Equal(t, len(def.Fields)+1, fields.Len())
	for _, key := range def.Keys() {
		assert.Equal(t, "", fields.Get(key), key)
	}
}

func TestFields_WithIsCopyOnWrite(t *testing.T) {
	original := NewFields(DefaultDefinition())

	updated, err := original.With("name", "Zoë 山田 <script>")
	require.NoError(t, err)

	assert.Equal(t, "", original.Get("name"))
	assert.Equal(t, "Zoë 山田 <script>", updated.Get("name"))

	m := updated.Map()
	m["name"] = "mutated"
	assert.Equal(t, "Zoë 山田 <script>", updated.Get("name"))
}

func TestFields_WithRejectsUnknownKeys(t *testing.T) {
	_, err := NewFields(DefaultDefinition()).With("admin", "true")
	assert.ErrorContains(t, err, `unknown field "admin"`)
}

func TestIsValidEmail(t *testing.T) {
	valid := []string{"a@b.co", "  jane@example.com ", "x+tag@sub.domain.io", "\u00A0jane@example.com\uFEFF", "\u00fcser@b\u00fccher.de"}
	invalid := []string{
		"", "plain", "a@b", "a b@c.com", "@b.com", "a@@b.com", "a@b.",
		"a\vb@c.de", "a\u00A0b@c.de", "a\u2003b@c.de", "jo\u2028e@x.io", "a@b\u3000c.de", "a@c.d\uFEFFe",
	}

	for _, e := range valid {
		assert.True(t, IsValidEmail(e), e)
	}
	for _, e := range invalid {
		assert.False(t, IsValidEmail(e), e)
	}
}
