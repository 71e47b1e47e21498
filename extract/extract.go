package extract

import (
	"strings"
	"unicode"

	"github.com/pkg/errors"
	"golang.org/x/net/html"

	"github.com/mensylisir/xmrecipe/httpcache"
)

// Recipe runs every strategy in order and returns the first success. When
// all fail, the error of the most informative attempt is returned: a
// strategy that found a recipe but rejected it beats ErrNoRecipe.
func Recipe(page string, sourceURL string) (*Result, error) {
	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse html")
	}

	var attempts []Attempt
	var best error
	for _, method := range Methods {
		var recipe *RawRecipe
		switch method {
		case MethodJSONLD:
			recipe, err = fromJSONLD(doc, sourceURL)
		case MethodMicrodata:
			recipe, err = fromMicrodata(doc, sourceURL)
		}
		if err == nil {
			attempts = append(attempts, Attempt{Method: method, Success: true})
			_, stats := ParseIngredients(recipe.Ingredients)
			return &Result{
				RawRecipe:   *recipe,
				MethodUsed:  method,
				AllAttempts: attempts,
				Ingredients: stats,
			}, nil
		}
		attempts = append(attempts, Attempt{Method: method, Error: err.Error()})
		if best == nil || errors.Is(best, ErrNoRecipe) {
			best = err
		}
	}
	return &Result{AllAttempts: attempts}, best
}

// SourceName is the capitalized host of url without "www.", e.g.
// "Seriouseats.com".
func SourceName(url string) string {
	host := httpcache.SourceName(url)
	if host == "" {
		return ""
	}
	r := []rune(host)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

func nodeAttr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val, true
		}
	}
	return "", false
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}

// findAll returns every element below root, root included, matching pred in
// document order.
func findAll(root *html.Node, pred func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && pred(n) {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return out
}
