package extract

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lead-pipeline/internal/model"
)

func writeCatalog(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaultCatalog_SixGroupsFourCategories(t *testing.T) {
	c := DefaultCatalog()
	require.Len(t, c.Services, 6)

	cats := make(map[model.ServiceCategory]bool)
	for _, g := range c.Services {
		cats[g.Category] = true
		assert.False(t, g.Category.IsDefault(), g.Name)
	}
	assert.Len(t, cats, 4)
}

func TestCatalog_Detect(t *testing.T) {
	c := DefaultCatalog()

	tests := []struct {
		text     string
		want     model.ServiceCategory
		keywords []string
	}{
		{"I need a Shopify store", model.ServiceWebDevelopment, []string{"shopify"}},
		{"our WiFi keeps dropping", model.ServiceNetworking, []string{"wifi"}},
		{"we got hit by ransomware", model.ServiceITServices, []string{"ransomware"}},
		{"can you build a chatbot", model.ServiceAISolutions, []string{"chatbot"}},
		{"the email said hi", model.ServiceGeneralInquiry, []string{}},
		// Tie between web design and networking goes to the earlier group.
		{"website and network", model.ServiceWebDevelopment, []string{"website", "network"}},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, kws := c.Detect(tt.text)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.keywords, kws)
		})
	}
}

func TestLoadCatalog(t *testing.T) {
	path := writeCatalog(t, `
catalog:
  services:
    - name: drones
      category: AI Solutions
      keywords: [drone, uav]
    - name: cabling
      category: networking
      keywords: [fiber]
  spam_vocabulary: [crypto giveaway]
`)
	c, err := LoadCatalog(path)
	require.NoError(t, err)
	require.Len(t, c.Services, 2)
	assert.Equal(t, model.ServiceAISolutions, c.Services[0].Category)
	assert.Equal(t, []string{"crypto giveaway"}, c.SpamVocabulary)

	got, kws := c.Detect("we fly a UAV over fiber runs, one drone")
	assert.Equal(t, model.ServiceAISolutions, got)
	assert.Equal(t, []string{"uav", "fiber", "drone"}, kws)
}

func TestLoadCatalog_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"no services", "catalog:\n  services: []\n", "defines no services"},
		{"bad category", "catalog:\n  services:\n    - name: x\n      category: plumbing\n      keywords: [pipe]\n", "no usable category"},
		{"no keywords", "catalog:\n  services:\n    - name: x\n      category: networking\n", "has no keywords"},
		{"bad yaml", "catalog: [", "parse catalog"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadCatalog(writeCatalog(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	_, err := LoadCatalog(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read catalog")
}
