package extract

import (
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/lead-pipeline/internal/model"
)

// ServiceGroup is a named keyword set that maps onto a service category.
type ServiceGroup struct {
	Name     string                `yaml:"name"`
	Category model.ServiceCategory `yaml:"category"`
	Keywords []string              `yaml:"keywords"`
}

// Catalog holds the keyword groups used for service detection and,
// optionally, a spam vocabulary that overrides the protection default.
type Catalog struct {
	Services       []ServiceGroup `yaml:"services"`
	SpamVocabulary []string       `yaml:"spam_vocabulary"`

	compiled []compiledGroup
}

type compiledGroup struct {
	group ServiceGroup
	re    *regexp.Regexp
}

// DefaultCatalog returns the built-in keyword groups. Order matters: ties
// go to the earlier group.
func DefaultCatalog() *Catalog {
	c := &Catalog{Services: []ServiceGroup{
		{
			Name:     "web-design",
			Category: model.ServiceWebDevelopment,
			Keywords: []string{"website", "web site", "web design", "web development", "web app",
				"landing page", "redesign", "wordpress", "webflow", "frontend", "seo"},
		},
		{
			Name:     "e-commerce",
			Category: model.ServiceWebDevelopment,
			Keywords: []string{"e-commerce", "ecommerce", "online store", "online shop", "shopify",
				"woocommerce", "shopping cart", "checkout"},
		},
		{
			Name:     "networking",
			Category: model.ServiceNetworking,
			Keywords: []string{"network", "networking", "wifi", "wi-fi", "router", "routers",
				"cabling", "vpn", "lan", "wan", "access point", "access points"},
		},
		{
			Name:     "it-support",
			Category: model.ServiceITServices,
			Keywords: []string{"it support", "tech support", "help desk", "helpdesk", "managed it",
				"computers", "laptops", "server", "servers", "backup", "backups", "microsoft 365", "office 365"},
		},
		{
			Name:     "cybersecurity",
			Category: model.ServiceITServices,
			Keywords: []string{"cybersecurity", "cyber security", "security audit", "firewall",
				"malware", "ransomware", "phishing", "penetration test", "compliance"},
		},
		{
			Name:     "ai",
			Category: model.ServiceAISolutions,
			Keywords: []string{"ai", "artificial intelligence", "machine learning", "chatbot",
				"automation", "automate", "llm", "gpt", "predictive"},
		},
	}}
	c.compile()
	return c
}

// LoadCatalog reads a YAML keyword catalog. The file has a top-level
// "catalog" key holding "services" and "spam_vocabulary".
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "extract: read catalog %s", path)
	}

	var wrapper struct {
		Catalog Catalog `yaml:"catalog"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "extract: parse catalog")
	}

	c := &wrapper.Catalog
	if len(c.Services) == 0 {
		return nil, eris.Errorf("extract: catalog %s defines no services", path)
	}
	for i, g := range c.Services {
		cat := model.ParseService(string(g.Category))
		if cat.IsDefault() {
			return nil, eris.Errorf("extract: catalog group %q has no usable category %q", g.Name, g.Category)
		}
		if len(g.Keywords) == 0 {
			return nil, eris.Errorf("extract: catalog group %q has no keywords", g.Name)
		}
		c.Services[i].Category = cat
	}
	c.compile()
	return c, nil
}

func (c *Catalog) compile() {
	c.compiled = make([]compiledGroup, 0, len(c.Services))
	for _, g := range c.Services {
		kws := make([]string, 0, len(g.Keywords))
		for _, kw := range g.Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw != "" {
				kws = append(kws, regexp.QuoteMeta(kw))
			}
		}
		if len(kws) == 0 {
			continue
		}
		// Longest first so "web site" wins over a shorter alternative.
		sort.SliceStable(kws, func(i, j int) bool { return len(kws[i]) > len(kws[j]) })
		c.compiled = append(c.compiled, compiledGroup{
			group: g,
			re:    regexp.MustCompile(`(?i)\b(?:` + strings.Join(kws, "|") + `)\b`),
		})
	}
}

// Detect returns the category of the group with the most keyword hits in
// text and every distinct keyword found, in order of first appearance. No
// hits yields the default category. Catalogs must come from DefaultCatalog,
// LoadCatalog or NewHeuristic so that the keyword patterns are compiled.
func (c *Catalog) Detect(text string) (model.ServiceCategory, []string) {
	best := model.ServiceGeneralInquiry
	bestHits := 0
	type hit struct {
		pos int
		kw  string
	}
	var hits []hit
	seen := make(map[string]bool)

	for _, cg := range c.compiled {
		locs := cg.re.FindAllStringIndex(text, -1)
		if len(locs) > bestHits {
			best, bestHits = cg.group.Category, len(locs)
		}
		for _, loc := range locs {
			kw := strings.ToLower(text[loc[0]:loc[1]])
			if !seen[kw] {
				seen[kw] = true
				hits = append(hits, hit{pos: loc[0], kw: kw})
			}
		}
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })
	keywords := make([]string, len(hits))
	for i, h := range hits {
		keywords[i] = h.kw
	}
	return best, keywords
}
