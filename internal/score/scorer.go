package score

import (
	"strings"

	"github.com/jonreiter/govader"

	"github.com/ppiankov/reportwatch/internal/model"
)

// Compound scores beyond these bounds read as positive or negative
const (
	positiveThreshold = 0.05
	negativeThreshold = -0.05
)

// Scorer computes VADER polarity scores for report text.
// The analyzer lexicon is loaded once; Score is safe for concurrent use.
type Scorer struct {
	analyzer *govader.SentimentIntensityAnalyzer
}

// NewScorer creates a new scorer
func NewScorer() *Scorer {
	return &Scorer{
		analyzer: govader.NewSentimentIntensityAnalyzer(),
	}
}

// Score returns the polarity of text. Blank text scores zero everywhere.
func (s *Scorer) Score(text string) model.SentimentScore {
	if strings.TrimSpace(text) == "" {
		return model.SentimentScore{}
	}
	p := s.analyzer.PolarityScores(text)
	return model.SentimentScore{
		Negative: p.Negative,
		Neutral:  p.Neutral,
		Positive: p.Positive,
		Compound: p.Compound,
	}
}

// Label classifies a score as "positive", "negative" or "neutral"
func Label(score model.SentimentScore) string {
	switch {
	case score.Compound >= positiveThreshold:
		return "positive"
	case score.Compound <= negativeThreshold:
		return "negative"
	default:
		return "neutral"
	}
}
