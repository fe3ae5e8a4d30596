package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	t.Run("version flag", func(t *testing.T) {
		resetFlags(t)
		cmd := GetRootCmd()
		cmd.SetArgs([]string{"--version"})

		output := &bytes.Buffer{}
		cmd.SetOut(output)

		err := cmd.Execute()
		require.NoError(t, err)

		assert.Contains(t, output.String(), "autokudos version")
		assert.Contains(t, output.String(), GetVersion())
	})

	t.Run("help flag", func(t *testing.T) {
		resetFlags(t)
		cmd := GetRootCmd()
		cmd.SetArgs([]string{"--help"})

		output := &bytes.Buffer{}
		cmd.SetOut(output)

		err := cmd.Execute()
		require.NoError(t, err)

		helpText := output.String()
		assert.Contains(t, helpText, "Kudos")
		assert.Contains(t, helpText, "supo<N>")
	})

	t.Run("global flags", func(t *testing.T) {
		cmd := GetRootCmd()

		configFlag := cmd.PersistentFlags().Lookup("config")
		require.NotNil(t, configFlag)
		assert.Equal(t, "", configFlag.DefValue)

		for _, name := range []string{"log-level", "dir", "template-path", "headless"} {
			assert.NotNil(t, cmd.PersistentFlags().Lookup(name), name)
		}
		assert.Equal(t, "true", cmd.PersistentFlags().Lookup("headless").DefValue)
		assert.NotNil(t, cmd.Flags().Lookup("force"))
	})

	t.Run("subcommands", func(t *testing.T) {
		names := make(map[string]bool)
		for _, c := range GetRootCmd().Commands() {
			names[c.Name()] = true
		}
		for _, want := range []string{"login", "assemble", "rows", "configure", "status"} {
			assert.True(t, names[want], "%s command should exist", want)
		}
	})

	t.Run("rejects positional arguments", func(t *testing.T) {
		resetFlags(t)
		cmd := GetRootCmd()
		cmd.SetArgs([]string{"Thermodynamics/supo3"})
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})

		assert.Error(t, cmd.Execute())
	})
}

func TestGetVersion(t *testing.T) {
	version := GetVersion()
	assert.NotEmpty(t, version)
	assert.True(t, strings.HasPrefix(version, "0."))
}
