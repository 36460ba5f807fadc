package handler

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSanitizeQuery(t *testing.T) {
	require.Equal(t, "update O'Brien's email", sanitizeQuery("  update O'Brien's email  "))
	require.Equal(t, "list students", sanitizeQuery("<b>list</b> students"))
	require.Equal(t, "count students", sanitizeQuery("<script>drop()</script>count students"))
	require.Equal(t, "cs & math departments", sanitizeQuery("cs & math departments"))
	require.Empty(t, sanitizeQuery("<img src=x onerror=alert(1)>"))
}
