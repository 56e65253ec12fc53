// internal/browser/profile_test.go
package browser

import (
	"os"
	"path/filepath"
	"testing"

	json "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/pageload-cli/api/schemas"
)

func readJSONFile(t *testing.T, path string) map[string]interface{} {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func TestWriteProfile(t *testing.T) {
	t.Run("DANE proxy and netmonitor", func(t *testing.T) {
		dir := t.TempDir()
		policy, prefs := BuildPolicy(schemas.MeasurementRequest{DANE: true, ProxyHost: "dane-proxy"})
		require.NoError(t, WriteProfile(dir, policy, prefs))

		p := readJSONFile(t, filepath.Join(dir, "Default", "Preferences"))
		assert.Equal(t, map[string]interface{}{"mode": "fixed_servers", "server": "dane-proxy:8080"}, p["proxy"])

		devtools := p["devtools"].(map[string]interface{})
		panel := devtools["preferences"].(map[string]interface{})
		assert.Equal(t, `"network"`, panel["panel-selectedTab"])

		ls := readJSONFile(t, filepath.Join(dir, "Local State"))
		assert.Equal(t, map[string]interface{}{"mode": "off"}, ls["dns_over_https"])
	})

	t.Run("no proxy section without proxy", func(t *testing.T) {
		dir := t.TempDir()
		policy, prefs := BuildPolicy(schemas.MeasurementRequest{DANE: true})
		require.NoError(t, WriteProfile(dir, policy, prefs))

		p := readJSONFile(t, filepath.Join(dir, "Default", "Preferences"))
		assert.NotContains(t, p, "proxy")
		assert.Contains(t, p, "devtools")
	})

	t.Run("unwritable directory", func(t *testing.T) {
		base := t.TempDir()
		blocker := filepath.Join(base, "file")
		require.NoError(t, os.WriteFile(blocker, nil, 0o600))

		policy, prefs := BuildPolicy(schemas.MeasurementRequest{})
		assert.Error(t, WriteProfile(blocker, policy, prefs))
	})
}
