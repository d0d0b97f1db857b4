package env

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestReaders(t *testing.T) {
	t.Setenv("CHATKIT_TEST_BOOL", "true")
	t.Setenv("CHATKIT_TEST_INT", "42")
	t.Setenv("CHATKIT_TEST_BAD_INT", "forty-two")
	t.Setenv("CHATKIT_TEST_FLOAT", "0.38")
	t.Setenv("CHATKIT_TEST_STRING", "us-west-2")
	t.Setenv("CHATKIT_TEST_SECONDS", "90")
	t.Setenv("CHATKIT_TEST_DURATION", "2m")

	require.True(t, Bool("CHATKIT_TEST_BOOL", false))
	require.True(t, Bool("CHATKIT_TEST_UNSET", true))
	require.Equal(t, 42, Int("CHATKIT_TEST_INT", 1))
	require.Equal(t, 1, Int("CHATKIT_TEST_BAD_INT", 1))
	require.InDelta(t, 0.38, Float64("CHATKIT_TEST_FLOAT", 0), 1e-9)
	require.Equal(t, "us-west-2", String("CHATKIT_TEST_STRING", "us-east-1"))
	require.Equal(t, "us-east-1", String("CHATKIT_TEST_UNSET", "us-east-1"))
	require.Equal(t, 90*time.Second, Duration("CHATKIT_TEST_SECONDS", time.Minute))
	require.Equal(t, 2*time.Minute, Duration("CHATKIT_TEST_DURATION", time.Minute))
	require.Equal(t, time.Minute, Duration("CHATKIT_TEST_UNSET", time.Minute))
}
