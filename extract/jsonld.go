package extract

import (
	"sort"
	"strings"
	"unicode"

	"github.com/Jeffail/gabs/v2"
	"github.com/tidwall/gjson"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

func fromJSONLD(doc *html.Node, sourceURL string) (*RawRecipe, error) {
	scripts := findAll(doc, func(n *html.Node) bool {
		if n.DataAtom != atom.Script {
			return false
		}
		typ, _ := nodeAttr(n, "type")
		return strings.EqualFold(strings.TrimSpace(typ), "application/ld+json")
	})

	for _, script := range scripts {
		raw := scriptText(script)
		parsed, err := gabs.ParseJSON([]byte(sanitizeJSON(raw)))
		if err != nil {
			continue
		}
		if recipe := findRecipe(parsed); recipe != nil {
			return recipeFromJSON(recipe.Bytes(), sourceURL)
		}
	}
	return nil, ErrNoRecipe
}

func scriptText(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	return b.String()
}

// sanitizeJSON escapes raw newlines and tabs inside string literals and drops
// other control characters there. Many sites emit them unescaped.
func sanitizeJSON(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inString := false
	escaped := false
	for _, r := range s {
		if !inString {
			if r == '"' {
				inString = true
			}
			b.WriteRune(r)
			continue
		}
		switch {
		case escaped:
			escaped = false
			b.WriteRune(r)
		case r == '\\':
			escaped = true
			b.WriteRune(r)
		case r == '"':
			inString = false
			b.WriteRune(r)
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\r':
			b.WriteString(`\r`)
		case r == '\t':
			b.WriteString(`\t`)
		case unicode.IsControl(r):
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isRecipeType(v interface{}) bool {
	switch t := v.(type) {
	case string:
		return t == "Recipe"
	case []interface{}:
		for _, item := range t {
			if s, ok := item.(string); ok && s == "Recipe" {
				return true
			}
		}
	}
	return false
}

// findRecipe searches depth first for an object typed Recipe, looking into
// @graph before other keys.
func findRecipe(c *gabs.Container) *gabs.Container {
	switch v := c.Data().(type) {
	case map[string]interface{}:
		if isRecipeType(v["@type"]) {
			return c
		}
		children := c.ChildrenMap()
		if graph, ok := children["@graph"]; ok {
			if found := findRecipe(graph); found != nil {
				return found
			}
		}
		keys := make([]string, 0, len(children))
		for k := range children {
			if k != "@graph" {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		for _, k := range keys {
			if found := findRecipe(children[k]); found != nil {
				return found
			}
		}
	case []interface{}:
		for _, child := range c.Children() {
			if found := findRecipe(child); found != nil {
				return found
			}
		}
	}
	return nil
}

func recipeFromJSON(data []byte, sourceURL string) (*RawRecipe, error) {
	name := gjson.GetBytes(data, "name")
	if name.Type != gjson.String || strings.TrimSpace(name.Str) == "" {
		return nil, missingField("name")
	}

	ingredients, err := jsonIngredients(gjson.GetBytes(data, "recipeIngredient"))
	if err != nil {
		return nil, err
	}
	instructions, err := jsonInstructions(gjson.GetBytes(data, "recipeInstructions"))
	if err != nil {
		return nil, err
	}

	description := gjson.GetBytes(data, "description")
	recipe := &RawRecipe{
		Title:        strings.TrimSpace(name.Str),
		Ingredients:  ingredients,
		Instructions: instructions,
		ImageURLs:    jsonImages(gjson.GetBytes(data, "image")),
		SourceURL:    sourceURL,
		SourceName:   SourceName(sourceURL),
	}
	if description.Type == gjson.String {
		recipe.Description = strings.TrimSpace(description.Str)
	}
	return recipe, nil
}

func jsonIngredients(v gjson.Result) (string, error) {
	if !v.Exists() {
		return "", missingField("recipeIngredient")
	}
	if !v.IsArray() {
		return "", invalidJSON("recipeIngredient is not an array")
	}
	var lines []string
	for _, item := range v.Array() {
		if item.Type != gjson.String {
			continue
		}
		if s := strings.TrimSpace(item.Str); s != "" {
			lines = append(lines, s)
		}
	}
	if len(lines) == 0 {
		return "", missingField("recipeIngredient (empty)")
	}
	return strings.Join(lines, "\n"), nil
}

func jsonInstructions(v gjson.Result) (string, error) {
	if !v.Exists() {
		return "", missingField("recipeInstructions")
	}
	if v.Type == gjson.String {
		if s := strings.TrimSpace(v.Str); s != "" {
			return s, nil
		}
		return "", missingField("recipeInstructions (empty)")
	}
	if !v.IsArray() {
		return "", invalidJSON("recipeInstructions is not a string or array")
	}

	var steps []string
	for _, item := range v.Array() {
		if text := item.Get("text"); text.Type == gjson.String {
			steps = append(steps, strings.TrimSpace(text.Str))
			continue
		}
		if item.Type == gjson.String {
			steps = append(steps, strings.TrimSpace(item.Str))
			continue
		}
		// HowToSection
		var section []string
		for _, sub := range item.Get("itemListElement").Array() {
			if text := sub.Get("text"); text.Type == gjson.String {
				section = append(section, strings.TrimSpace(text.Str))
			}
		}
		if len(section) > 0 {
			steps = append(steps, strings.Join(section, "\n"))
		}
	}
	if len(steps) == 0 {
		return "", missingField("recipeInstructions (empty)")
	}
	return strings.Join(steps, "\n\n"), nil
}

func jsonImages(v gjson.Result) []string {
	urls := []string{}
	switch {
	case v.Type == gjson.String:
		urls = append(urls, v.Str)
	case v.IsArray():
		for _, item := range v.Array() {
			if item.Type == gjson.String {
				urls = append(urls, item.Str)
			} else if u := item.Get("url"); u.Type == gjson.String {
				urls = append(urls, u.Str)
			}
		}
	case v.IsObject():
		if u := v.Get("url"); u.Type == gjson.String {
			urls = append(urls, u.Str)
		}
	}
	return urls
}
