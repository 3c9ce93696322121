package spam

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tarqumi/agency-api/pkg/models"
)

func pattern(id uint, kind, value string, weight int) models.SpamPattern {
	return models.SpamPattern{
		ID:       id,
		Pattern:  value,
		Type:     kind,
		Weight:   weight,
		IsActive: true,
	}
}

func TestScoreNoPatternsCleanMessage(t *testing.T) {
	s := NewScorer(5)

	res := s.Score(nil, Input{
		Name:    "Layla Hassan",
		Email:   "layla@example.com",
		Message: "Hello, I would like to discuss a website redesign project for our company.",
	})

	assert.Equal(t, 0, res.Score)
	assert.Empty(t, res.Matches)
	assert.False(t, s.IsSpam(res))
}

func TestScoreKeywordMatchIsCaseInsensitive(t *testing.T) {
	s := NewScorer(5)
	patterns := []models.SpamPattern{
		pattern(1, models.PatternKeyword, "Free Money", 3),
	}

	res := s.Score(patterns, Input{
		Message: "get your FREE MONEY today, no strings attached whatsoever",
	})

	assert.Equal(t, 3, res.Score)
	assert.Len(t, res.Matches, 1)
	assert.Equal(t, uint(1), res.Matches[0].PatternID)
	assert.False(t, s.IsSpam(res))
}

func TestScoreSumsAllMatchingPatternWeights(t *testing.T) {
	s := NewScorer(5)
	patterns := []models.SpamPattern{
		pattern(1, models.PatternKeyword, "casino", 3),
		pattern(2, models.PatternKeyword, "winnings", 2),
		pattern(3, models.PatternKeyword, "unrelated", 4),
	}

	res := s.Score(patterns, Input{
		Message: "visit our casino and collect your winnings right away friends",
	})

	assert.Equal(t, 5, res.Score)
	assert.Len(t, res.Matches, 2)
	assert.True(t, s.IsSpam(res))
}

func TestScoreIgnoresInactivePatterns(t *testing.T) {
	s := NewScorer(5)
	p := pattern(1, models.PatternKeyword, "casino", 10)
	p.IsActive = false

	res := s.Score([]models.SpamPattern{p}, Input{
		Message: "the casino renovation project needs a new landing page design",
	})

	assert.Equal(t, 0, res.Score)
	assert.Empty(t, res.Matches)
}

func TestScoreEmailPatternMatchesSubmitterAddress(t *testing.T) {
	s := NewScorer(5)
	patterns := []models.SpamPattern{
		pattern(1, models.PatternEmail, "@spamdomain.ru", 5),
	}

	res := s.Score(patterns, Input{
		Email:   "promo@SpamDomain.ru",
		Message: "this message body is long enough and says nothing suspicious",
	})

	assert.Equal(t, 5, res.Score)
	assert.True(t, s.IsSpam(res))
}

func TestScoreIPPatternExactMatchOnly(t *testing.T) {
	s := NewScorer(5)
	patterns := []models.SpamPattern{
		pattern(1, models.PatternIP, "203.0.113.7", 5),
	}

	hit := s.Score(patterns, Input{
		IP:      "203.0.113.7",
		Message: "a perfectly ordinary message body of sufficient length here",
	})
	miss := s.Score(patterns, Input{
		IP:      "203.0.113.70",
		Message: "a perfectly ordinary message body of sufficient length here",
	})

	assert.Equal(t, 5, hit.Score)
	assert.Equal(t, 0, miss.Score)
}

func TestScoreURLStuffingPenalty(t *testing.T) {
	s := NewScorer(5)

	// Three links: at the limit, no penalty.
	atLimit := s.Score(nil, Input{
		Message: "see http://a.example http://b.example and www.c.example for details",
	})
	assert.Equal(t, 3, atLimit.URLCount)
	assert.Equal(t, 0, atLimit.Score)

	// Four links: over the limit, penalty applies.
	overLimit := s.Score(nil, Input{
		Message: "see http://a.example http://b.example https://c.example www.d.example now",
	})
	assert.Equal(t, 4, overLimit.URLCount)
	assert.Equal(t, 2, overLimit.Score)
}

func TestScoreURLPenaltyPlusKeywordCrossesThreshold(t *testing.T) {
	s := NewScorer(5)
	patterns := []models.SpamPattern{
		pattern(1, models.PatternKeyword, "viagra", 3),
	}

	res := s.Score(patterns, Input{
		Message: "buy viagra at http://a.example http://b.example http://c.example http://d.example",
	})

	assert.Equal(t, 5, res.Score)
	assert.True(t, s.IsSpam(res))
}

func TestScoreShortMessagePenalty(t *testing.T) {
	s := NewScorer(5)

	res := s.Score(nil, Input{Message: "hi there"})

	assert.True(t, res.TooShort)
	assert.Equal(t, 1, res.Score)
}

func TestScoreWhitespaceOnlyMessageIsShort(t *testing.T) {
	s := NewScorer(5)

	res := s.Score(nil, Input{Message: strings.Repeat(" ", 50)})

	assert.True(t, res.TooShort)
}

func TestScoreURLPatternLiteralNotRegex(t *testing.T) {
	s := NewScorer(5)
	// Dots in the pattern must not act as regex wildcards.
	patterns := []models.SpamPattern{
		pattern(1, models.PatternURL, "bad.site", 5),
	}

	miss := s.Score(patterns, Input{
		Message: "our badasite project page needs some copywriting work done",
	})
	hit := s.Score(patterns, Input{
		Message: "check out bad.site for all your discount pharmaceutical needs",
	})

	assert.Equal(t, 0, miss.Score)
	assert.Equal(t, 5, hit.Score)
}

func TestScoreUnknownPatternKindNeverFires(t *testing.T) {
	s := NewScorer(5)
	patterns := []models.SpamPattern{
		pattern(1, "regex", ".*", 10),
	}

	res := s.Score(patterns, Input{
		Message: "an ordinary inquiry about your branding services and pricing",
	})

	assert.Equal(t, 0, res.Score)
}

func TestIsSpamThresholdBoundary(t *testing.T) {
	s := NewScorer(5)

	assert.False(t, s.IsSpam(Result{Score: 4}))
	assert.True(t, s.IsSpam(Result{Score: 5}))
	assert.True(t, s.IsSpam(Result{Score: 6}))
}
