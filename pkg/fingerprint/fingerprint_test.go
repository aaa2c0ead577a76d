package fingerprint

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestText(t *testing.T) {
	a := Text("<iati-activity><iati-identifier>GB-1-123</iati-identifier></iati-activity>")
	b := Text("<iati-activity><iati-identifier>GB-1-123</iati-identifier></iati-activity>")
	c := Text("<iati-activity><iati-identifier>GB-1-124</iati-identifier></iati-activity>")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}

func TestTextWhitespaceSensitive(t *testing.T) {
	a := Text("<iati-activity />")
	b := Text("<iati-activity/>")
	assert.NotEqual(t, a, b)
}

func TestHasChanged(t *testing.T) {
	assert.False(t, HasChanged("abc", "abc"))
	assert.True(t, HasChanged("abc", "abd"))
}
