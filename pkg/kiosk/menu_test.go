package kiosk

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMenu(t *testing.T) {
	path := filepath.Join(t.TempDir(), "menu.yaml")
	require.NoError(t, os.WriteFile(path, []byte("drinks:\n  - key: mango\n    label: Badham Juice\n    price: 80\n"), 0644))

	m, err := LoadMenu(path)
	require.NoError(t, err)
	d, ok := m.Lookup("mango")
	require.True(t, ok)
	assert.Equal(t, "Badham Juice", d.Label)
	assert.Equal(t, 80.0, d.Price)
	assert.True(t, d.Available())

	_, ok = m.Lookup("kiwi")
	assert.False(t, ok)
}

func TestParseMenu_Available(t *testing.T) {
	m := testMenu(t)
	var keys []string
	for _, d := range m.Available() {
		keys = append(keys, d.Key)
	}
	assert.Equal(t, []string{"mango", "orange"}, keys)

	lime, _ := m.Lookup("lime")
	assert.Equal(t, "lime", lime.Label, "label defaults to key")
}

func TestParseMenu_Invalid(t *testing.T) {
	for name, doc := range map[string]string{
		"no key":    "drinks:\n  - label: x\n",
		"duplicate": "drinks:\n  - key: a\n  - key: a\n",
		"negative":  "drinks:\n  - key: a\n    price: -1\n",
		"not yaml":  "drinks: [\n",
	} {
		_, err := ParseMenu([]byte(doc))
		assert.Error(t, err, name)
	}
}
