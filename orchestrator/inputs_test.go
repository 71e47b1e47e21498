package orchestrator

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mensylisir/xmrecipe/pipeline/ending"
)

func TestParseInputs(t *testing.T) {
	tests := []struct {
		name  string
		data  string
		urls  []string
		sites []string
	}{
		{
			name:  "text",
			data:  "# seeds\nhttps://www.a.test/one\n\n  https://b.test/two  \n",
			urls:  []string{"https://www.a.test/one", "https://b.test/two"},
			sites: []string{"a.test", "b.test"},
		},
		{
			name:  "sites object",
			data:  `{"sites":[{"domain":"a.test","urls":["https://a.test/1","https://a.test/2"]},{"urls":["https://www.c.test/3"]}]}`,
			urls:  []string{"https://a.test/1", "https://a.test/2", "https://www.c.test/3"},
			sites: []string{"a.test", "a.test", "c.test"},
		},
		{
			name:  "top level array",
			data:  `[{"domain":"d.test","urls":["https://d.test/x",""]}]`,
			urls:  []string{"https://d.test/x"},
			sites: []string{"d.test"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inputs, err := ParseInputs([]byte(tt.data))
			require.NoError(t, err)
			require.Len(t, inputs, len(tt.urls))
			for i, in := range inputs {
				assert.Equal(t, i, in.Index)
				assert.Equal(t, tt.urls[i], in.URL)
				assert.Equal(t, tt.sites[i], in.Site)
			}
		})
	}
}

func TestParseInputs_Errors(t *testing.T) {
	_, err := ParseInputs([]byte(`{"sites": [`))
	assert.Error(t, err)
	_, err = ParseInputs([]byte(`{"urls": []}`))
	assert.Error(t, err)
}

func TestLoadInputs_FilterAndLimit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "urls.txt")
	content := "https://a.test/1\nhttps://b.test/2\nhttps://a.test/3\nhttps://a.test/4\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	inputs, err := LoadInputs(path, "a.test", 2)
	require.NoError(t, err)
	require.Len(t, inputs, 2)
	assert.Equal(t, "https://a.test/1", inputs[0].URL)
	assert.Equal(t, "https://a.test/3", inputs[1].URL)
	assert.Equal(t, 1, inputs[1].Index)

	_, err = LoadInputs(filepath.Join(t.TempDir(), "missing.txt"), "", 0)
	assert.Error(t, err)
}

func TestStats_SitesOrderedByRate(t *testing.T) {
	s := newStats()
	add := func(site string, status ending.FinalStatus) {
		s.Add(URLReport{Site: site, Status: status}, nil)
	}
	add("b.test", ending.Succeeded())
	add("b.test", ending.FailedAt("fetch_html"))
	add("a.test", ending.Succeeded())
	add("c.test", ending.Succeeded())
	add("d.test", ending.Skipped())

	var domains []string
	for _, site := range s.Sites() {
		domains = append(domains, site.Domain)
	}
	assert.Equal(t, []string{"a.test", "c.test", "b.test", "d.test"}, domains)
	assert.Equal(t, 5, s.Total)
	assert.Equal(t, 1, s.Skipped)
	assert.Equal(t, 1, s.FailedByStep["fetch_html"])
}

func TestWriteSummary_TruncatesSites(t *testing.T) {
	s := newStats()
	for i := 0; i < 12; i++ {
		s.Add(URLReport{Site: string(rune('a'+i)) + ".test", Status: ending.Succeeded()}, nil)
	}
	s.Add(URLReport{Site: "a.test", Status: ending.FailedAt("save_recipe")}, nil)

	var buf bytes.Buffer
	WriteSummary(&buf, &Report{Stats: s, RunDir: "/tmp/run"})
	out := buf.String()
	assert.Contains(t, out, "... and 2 more sites")
	assert.Contains(t, out, "save_recipe")
	assert.Contains(t, out, "Succeeded:  12 (92.3%)")
	assert.Contains(t, out, "Artifacts saved to: /tmp/run")
}
