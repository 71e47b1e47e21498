package orchestrator

import (
	"bufio"
	"bytes"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"

	"github.com/mensylisir/xmrecipe/httpcache"
)

// Input is one URL of a batch. Index is its position in the loaded list
// and survives shuffling.
type Input struct {
	Index      int    `json:"index"`
	URL        string `json:"url"`
	Site       string `json:"site"`
	StagedPath string `json:"staged_path,omitempty"`
}

// LoadInputs reads a URL list. The file is either JSON shaped like
// {"sites":[{"domain":"a.com","urls":["..."]}]} or plain text with one URL
// per line, where blank lines and lines starting with '#' are ignored.
// site keeps only domains containing it; limit > 0 truncates the list.
func LoadInputs(path, site string, limit int) ([]Input, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read url list %s", path)
	}
	inputs, err := ParseInputs(data)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse url list %s", path)
	}
	return FilterInputs(inputs, site, limit), nil
}

// ParseInputs parses the contents of a URL list file.
func ParseInputs(data []byte) ([]Input, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		return parseJSONInputs(trimmed)
	}
	var inputs []Input
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		inputs = append(inputs, Input{URL: line, Site: httpcache.SourceName(line)})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return reindex(inputs), nil
}

func parseJSONInputs(data []byte) ([]Input, error) {
	if !gjson.ValidBytes(data) {
		return nil, errors.New("invalid JSON")
	}
	doc := gjson.ParseBytes(data)
	sites := doc.Get("sites")
	if doc.IsArray() {
		sites = doc
	}
	if !sites.IsArray() {
		return nil, errors.New(`expected a "sites" array`)
	}
	var inputs []Input
	sites.ForEach(func(_, s gjson.Result) bool {
		domain := s.Get("domain").String()
		s.Get("urls").ForEach(func(_, u gjson.Result) bool {
			url := strings.TrimSpace(u.String())
			if url == "" {
				return true
			}
			site := domain
			if site == "" {
				site = httpcache.SourceName(url)
			}
			inputs = append(inputs, Input{URL: url, Site: site})
			return true
		})
		return true
	})
	return reindex(inputs), nil
}

// FilterInputs applies the site filter and limit, then renumbers.
func FilterInputs(inputs []Input, site string, limit int) []Input {
	out := make([]Input, 0, len(inputs))
	for _, in := range inputs {
		if site != "" && !strings.Contains(in.Site, site) {
			continue
		}
		out = append(out, in)
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return reindex(out)
}

// InputsFromURLs wraps bare URLs.
func InputsFromURLs(urls ...string) []Input {
	inputs := make([]Input, 0, len(urls))
	for _, u := range urls {
		inputs = append(inputs, Input{URL: u, Site: httpcache.SourceName(u)})
	}
	return reindex(inputs)
}

func reindex(inputs []Input) []Input {
	for i := range inputs {
		inputs[i].Index = i
	}
	return inputs
}
