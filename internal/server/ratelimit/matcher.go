package ratelimit

import "strings"

// exempt lists "METHOD path" pairs that are never limited.
var exempt = map[string]bool{
	"GET /health": true,
}

// MatchEndpoint returns the rule for a request, or nil to use the default limit.
// An exact path wins over prefix rules (paths ending in "/"), and the longest
// matching prefix wins among those. Exempt endpoints get a zero-limit rule.
func MatchEndpoint(path string, method string, configs []EndpointConfig) *EndpointConfig {
	if exempt[method+" "+path] {
		return &EndpointConfig{Path: path, Method: method}
	}

	var best *EndpointConfig
	for i := range configs {
		rule := &configs[i]
		if rule.Method != method {
			continue
		}
		if rule.Path == path {
			return rule
		}
		if strings.HasSuffix(rule.Path, "/") && strings.HasPrefix(path, rule.Path) &&
			(best == nil || len(rule.Path) > len(best.Path)) {
			best = rule
		}
	}
	return best
}
