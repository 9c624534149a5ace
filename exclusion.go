package split

import (
	"regexp"
)

// excluder decides whether a visitor is kept out of experiments.
type excluder struct {
	exactIPs   map[string]struct{}
	ipPatterns []*regexp.Regexp
	robot      *regexp.Regexp
	filter     func(vc *VisitorContext) bool
}

// newExcluder compiles the exclusion rules of cfg. cfg must be validated.
func newExcluder(cfg *Config, filter func(vc *VisitorContext) bool) *excluder {
	e := &excluder{
		exactIPs: make(map[string]struct{}),
		robot:    regexp.MustCompile(cfg.RobotRegex),
		filter:   filter,
	}
	for _, ip := range cfg.IgnoreIPAddresses {
		if pattern, ok := ipPattern(ip); ok {
			e.ipPatterns = append(e.ipPatterns, regexp.MustCompile(pattern))
			continue
		}
		e.exactIPs[ip] = struct{}{}
	}

	return e
}

// excluded reports whether the visitor is filtered, comes from an ignored
// IP, or is a robot. A visitor without request metadata is only subject to
// the filter.
func (e *excluder) excluded(vc *VisitorContext, req *Request) bool {
	if e.filter != nil && e.filter(vc) {
		return true
	}
	if req == nil {
		return false
	}

	return e.ignoredIP(req.IP) || e.robot.MatchString(req.UserAgent)
}

func (e *excluder) ignoredIP(ip string) bool {
	if ip == "" {
		return false
	}
	if _, ok := e.exactIPs[ip]; ok {
		return true
	}
	for _, re := range e.ipPatterns {
		if re.MatchString(ip) {
			return true
		}
	}

	return false
}
