package bootstrap

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
)

func TestModuleGraph(t *testing.T) {
	err := fx.ValidateApp(
		fx.Supply(ConfigPath("")),
		Module,
		fx.NopLogger,
	)
	require.NoError(t, err)
}
