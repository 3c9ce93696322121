package spam

import (
	"regexp"
	"strings"

	"github.com/tarqumi/agency-api/pkg/models"
)

// Heuristic penalties applied on top of configured patterns.
const (
	// urlCountLimit is how many URL-ish substrings a message may carry
	// before the link-stuffing penalty kicks in.
	urlCountLimit   = 3
	urlPenalty      = 2
	minMessageLen   = 10
	shortMsgPenalty = 1
)

var urlRegex = regexp.MustCompile(`(?i)(https?://|www\.)`)

// Input carries the submission fields the scorer evaluates.
type Input struct {
	Name    string
	Email   string
	Message string
	IP      string
}

// Match records one configured pattern that fired.
type Match struct {
	PatternID uint   `json:"pattern_id"`
	Pattern   string `json:"pattern"`
	Type      string `json:"type"`
	Weight    int    `json:"weight"`
}

// Result is the outcome of scoring a single submission.
type Result struct {
	Score    int     `json:"score"`
	Matches  []Match `json:"matches,omitempty"`
	URLCount int     `json:"url_count"`
	TooShort bool    `json:"too_short"`
}

// Scorer computes spam scores from a weighted pattern set. Scoring is
// deterministic and side-effect free; the only tunables are the pattern
// weights and the classification threshold.
type Scorer struct {
	threshold int
}

// NewScorer creates a scorer with the given classification threshold.
func NewScorer(threshold int) *Scorer {
	return &Scorer{threshold: threshold}
}

// Threshold returns the classification threshold.
func (s *Scorer) Threshold() int {
	return s.threshold
}

// matcher tests one pattern kind against the submission.
type matcher func(pattern string, in Input) bool

// matcherFor maps a pattern kind to its match test. Unknown kinds get a
// nil matcher and never fire.
func matcherFor(kind string) matcher {
	switch kind {
	case models.PatternKeyword:
		return matchKeyword
	case models.PatternEmail:
		return matchEmail
	case models.PatternURL:
		return matchURL
	case models.PatternIP:
		return matchIP
	default:
		return nil
	}
}

func matchKeyword(pattern string, in Input) bool {
	return strings.Contains(strings.ToLower(in.Message), strings.ToLower(pattern))
}

func matchEmail(pattern string, in Input) bool {
	return strings.Contains(strings.ToLower(in.Email), strings.ToLower(pattern))
}

func matchURL(pattern string, in Input) bool {
	re, err := regexp.Compile(`(?i)` + regexp.QuoteMeta(pattern))
	if err != nil {
		return false
	}
	return re.MatchString(in.Message)
}

func matchIP(pattern string, in Input) bool {
	return in.IP != "" && in.IP == pattern
}

// Score evaluates the submission against the active patterns and the
// built-in heuristics.
func (s *Scorer) Score(patterns []models.SpamPattern, in Input) Result {
	res := Result{}

	for _, p := range patterns {
		if !p.IsActive {
			continue
		}
		match := matcherFor(p.Type)
		if match == nil || !match(p.Pattern, in) {
			continue
		}
		res.Score += p.Weight
		res.Matches = append(res.Matches, Match{
			PatternID: p.ID,
			Pattern:   p.Pattern,
			Type:      p.Type,
			Weight:    p.Weight,
		})
	}

	res.URLCount = len(urlRegex.FindAllString(in.Message, -1))
	if res.URLCount > urlCountLimit {
		res.Score += urlPenalty
	}

	if len(strings.TrimSpace(in.Message)) < minMessageLen {
		res.TooShort = true
		res.Score += shortMsgPenalty
	}

	return res
}

// IsSpam reports whether a result crosses the classification threshold.
func (s *Scorer) IsSpam(res Result) bool {
	return res.Score >= s.threshold
}
