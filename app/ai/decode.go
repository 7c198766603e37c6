package ai

import (
	"encoding/json"
	"math"
	"strings"
)

const (
	StageEvaluate = "evaluate"
	StageGenerate = "generate"

	MaxKeyPoints = 4
)

type judgmentReply struct {
	ShouldPublish  *bool    `json:"should_publish"`
	Category       *string  `json:"category"`
	EvergreenScore *float64 `json:"evergreen_score"`
	EstimatedRPM   *float64 `json:"estimated_rpm"`
	Reason         string   `json:"reason"`
}

type articleReply struct {
	Title     string   `json:"title"`
	Slug      string   `json:"slug"`
	Excerpt   string   `json:"excerpt"`
	KeyPoints []string `json:"key_points"`
	Content   string   `json:"content"`
	Tags      []string `json:"tags"`
	ReadTime  *float64 `json:"read_time"`
}

// DecodeJudgment validates an evaluation reply. An unknown category is replaced by fallbackCategory.
func DecodeJudgment(reply, fallbackCategory string) (*Judgment, error) {
	var r judgmentReply
	if err := decodeObject(reply, StageEvaluate, &r); err != nil {
		return nil, err
	}

	if r.ShouldPublish == nil {
		return nil, contractError(StageEvaluate, "should_publish is missing")
	}
	if r.EvergreenScore == nil {
		return nil, contractError(StageEvaluate, "evergreen_score is missing")
	}
	if r.EstimatedRPM == nil {
		return nil, contractError(StageEvaluate, "estimated_rpm is missing")
	}
	if !inRange(*r.EvergreenScore) {
		return nil, contractError(StageEvaluate, "evergreen_score %v outside 1-10", *r.EvergreenScore)
	}
	if !inRange(*r.EstimatedRPM) {
		return nil, contractError(StageEvaluate, "estimated_rpm %v outside 1-10", *r.EstimatedRPM)
	}

	category := fallbackCategory
	if r.Category != nil {
		if c := strings.ToLower(strings.TrimSpace(*r.Category)); knownCategory(c) {
			category = c
		}
	}

	return &Judgment{
		ShouldPublish:  *r.ShouldPublish,
		Category:       category,
		EvergreenScore: *r.EvergreenScore,
		EstimatedRPM:   *r.EstimatedRPM,
		Reason:         strings.TrimSpace(r.Reason),
	}, nil
}

// DecodeArticle validates a generation reply. Title, slug and content are required.
func DecodeArticle(reply string) (*GeneratedArticle, error) {
	var r articleReply
	if err := decodeObject(reply, StageGenerate, &r); err != nil {
		return nil, err
	}

	article := &GeneratedArticle{
		Title:     strings.TrimSpace(r.Title),
		Slug:      strings.TrimSpace(r.Slug),
		Excerpt:   strings.TrimSpace(r.Excerpt),
		KeyPoints: compact(r.KeyPoints),
		Content:   strings.TrimSpace(r.Content),
		Tags:      compact(r.Tags),
	}

	switch {
	case article.Title == "":
		return nil, contractError(StageGenerate, "title is missing")
	case article.Slug == "":
		return nil, contractError(StageGenerate, "slug is missing")
	case article.Content == "":
		return nil, contractError(StageGenerate, "content is missing")
	}

	if len(article.KeyPoints) > MaxKeyPoints {
		article.KeyPoints = article.KeyPoints[:MaxKeyPoints]
	}
	if r.ReadTime != nil && *r.ReadTime > 0 {
		article.ReadTimeMinutes = int(math.Ceil(*r.ReadTime))
	}

	return article, nil
}

// decodeObject strips code fences, extracts the outermost JSON object and decodes it into v.
func decodeObject(reply, stage string, v any) error {
	text := strings.TrimSpace(reply)
	if text == "" {
		return contractError(stage, "reply is empty")
	}

	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return contractError(stage, "reply contains no JSON object")
	}

	if err := json.Unmarshal([]byte(text[start:end+1]), v); err != nil {
		return contractError(stage, "invalid JSON: %v", err)
	}

	return nil
}

func inRange(score float64) bool {
	return score >= 1 && score <= 10
}

func knownCategory(category string) bool {
	for _, c := range Categories {
		if c == category {
			return true
		}
	}
	return false
}

func compact(values []string) []string {
	result := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			result = append(result, v)
		}
	}
	return result
}
