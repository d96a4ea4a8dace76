package connections

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compozy/flowctl/pkg/dialogs"
)

func TestConnectionInput(t *testing.T) {
	t.Run("Should read the app and fields from the flags", func(t *testing.T) {
		c := CreateCmd()
		require.NoError(t, c.ParseFlags([]string{
			"--app", "@activepieces/piece-slack",
			"--name", "team",
			"--type", dialogs.AuthBasic,
			"--value", "username=u,password=p",
		}))

		app, in, err := connectionInput(c)

		require.NoError(t, err)
		assert.Equal(t, "@activepieces/piece-slack", app)
		assert.Equal(t, dialogs.ConnectionInput{
			Name:  "team",
			Type:  dialogs.AuthBasic,
			Value: map[string]string{"username": "u", "password": "p"},
		}, in)
	})

	t.Run("Should return the error when the type flag cannot be read", func(t *testing.T) {
		c := CreateCmd()
		c.ResetFlags()
		c.Flags().String("app", "", "")
		c.Flags().String("name", "", "")
		c.Flags().Bool("type", false, "")

		_, _, err := connectionInput(c)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to get type flag")
	})
}
