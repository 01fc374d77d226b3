//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestDetectActor returns the current host and user.
func TestDetectActor(t *testing.T) {
	t.Parallel()

	actor, err := DetectActor()
	require.NoError(t, err)
	require.NotEmpty(t, actor.Hostname)
	require.NotEmpty(t, actor.Username)
	require.Equal(t, actor.Username+"@"+actor.Hostname, actor.String())
}
