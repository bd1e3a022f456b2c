package pricing

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	c := DefaultCatalog()
	assert.True(t, c.ContractSize("EURUSD").Equal(d("1")))
	assert.True(t, c.ContractSize("XAUUSD").Equal(d("100")))
	assert.True(t, c.ContractSize("UNKNOWN").Equal(d("1")), "unknown symbols default to contract size 1")
	assert.Equal(t, 5, c.Precision("EURUSD"))
	assert.Equal(t, 5, c.Precision("UNKNOWN"))
}

func TestLoadCatalogOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "instruments.yaml")
	body := `instruments:
  - symbol: xauusd
    contract_size: "50"
    precision: 3
  - symbol: NAS100
    contract_size: "20"
    precision: 1
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	c, err := LoadCatalog(path)
	require.NoError(t, err)
	assert.True(t, c.ContractSize("XAUUSD").Equal(d("50")), "file overrides default")
	assert.True(t, c.ContractSize("NAS100").Equal(d("20")))
	assert.True(t, c.ContractSize("EURUSD").Equal(d("1")), "defaults survive")
	assert.Equal(t, 3, c.Precision("xauusd"))
}

func TestLoadCatalogMissingFile(t *testing.T) {
	_, err := LoadCatalog("/does/not/exist.yaml")
	assert.Error(t, err)

	c, err := LoadCatalog("")
	require.NoError(t, err)
	assert.NotNil(t, c)
}

func TestRequiredMargin(t *testing.T) {
	c := DefaultCatalog()

	// Non-contract instrument: size * price / leverage.
	got := c.RequiredMargin("EURUSD", d("10"), d("1.10"), d("100"))
	assert.True(t, got.Equal(d("0.11")), "got %s", got)

	// Contract instrument: contract size scales the notional.
	got = c.RequiredMargin("XAUUSD", d("1"), d("2000"), d("100"))
	assert.True(t, got.Equal(d("2000")), "got %s", got)

	// Leverage <= 0 treated as 1.
	got = c.RequiredMargin("EURUSD", d("10"), d("1.10"), d("0"))
	assert.True(t, got.Equal(d("11")), "got %s", got)

	assert.True(t, c.RequiredMargin("EURUSD", d("0"), d("1.10"), d("100")).IsZero())
	assert.True(t, c.RequiredMargin("EURUSD", d("10"), d("0"), d("100")).IsZero())
}
