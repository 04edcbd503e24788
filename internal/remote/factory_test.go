package remote

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bianoble/crowdin-sync/internal/config"
	"github.com/bianoble/crowdin-sync/internal/syncerr"
)

func TestFromConfigRequiresToken(t *testing.T) {
	_, err := FromConfig(&config.Config{ProjectID: "1"}, "", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoToken)
	assert.Equal(t, syncerr.KindAuth, syncerr.KindOf(err))
}

func TestFromConfig(t *testing.T) {
	c, err := FromConfig(&config.Config{ProjectID: "1", APIToken: "tok", Organization: "acme"}, "test", nil)
	require.NoError(t, err)
	assert.NotNil(t, c)
}
