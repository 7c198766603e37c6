// Package pipeline turns a queued content job into a published article through
// evaluation, generation and persistence.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lysyi3m/newsroom/app/ai"
	"github.com/lysyi3m/newsroom/app/database"
	"github.com/lysyi3m/newsroom/app/queue"
	"github.com/lysyi3m/newsroom/app/scoring"
)

type State string

const (
	StateReceived         State = "received"
	StateEvaluating       State = "evaluating"
	StateRejected         State = "rejected"
	StateEvaluated        State = "evaluated"
	StateGenerating       State = "generating"
	StateGenerationFailed State = "generation_failed"
	StateGenerated        State = "generated"
	StatePersisting       State = "persisting"
	StatePublished        State = "published"
)

const (
	wordsPerMinute  = 200
	maxSlugAttempts = 5
	imageURLPattern = "https://picsum.photos/seed/%s/800/600"
)

// Outcome is the terminal state of one run.
type Outcome struct {
	State     State
	ArticleID string
	Slug      string
	Reason    string
}

type ArticleStore interface {
	Publish(ctx context.Context, article database.Article) error
}

type AuthorStore interface {
	ListAuthors(ctx context.Context) ([]database.Author, error)
}

type Pipeline struct {
	capability ai.Capability
	articles   ArticleStore
	authors    AuthorStore
	pick       AuthorPicker
	now        func() time.Time
}

func New(capability ai.Capability, articles ArticleStore, authors AuthorStore) *Pipeline {
	return &Pipeline{
		capability: capability,
		articles:   articles,
		authors:    authors,
		pick:       PickAuthor,
		now:        time.Now,
	}
}

// WithAuthorPicker replaces the uniform random byline policy.
func (p *Pipeline) WithAuthorPicker(pick AuthorPicker) *Pipeline {
	p.pick = pick
	return p
}

// HandleJob is the content queue handler. Rejections complete the job; transport
// and store failures are returned for retry.
func (p *Pipeline) HandleJob(ctx context.Context, job *queue.Job) error {
	var payload ContentJob
	if err := job.Decode(&payload); err != nil {
		return err
	}

	outcome, err := p.Run(ctx, payload)
	if err != nil {
		return err
	}

	slog.Debug("Content job finished", "job_id", job.ID, "state", outcome.State, "slug", outcome.Slug)
	return nil
}

// Run drives one job through the state machine. A non-nil error means the job should be retried.
func (p *Pipeline) Run(ctx context.Context, job ContentJob) (Outcome, error) {
	title := job.ResolveTitle()
	log := slog.With("url", job.SourceURL, "source", job.SourceName)

	judgment, err := p.capability.Evaluate(ctx, title, job.SourceContent, job.Category)
	if err != nil {
		var contractErr *ai.ContractError
		if errors.As(err, &contractErr) {
			log.Warn("Article rejected", "state", StateEvaluating, "reason", contractErr.Reason)
			return Outcome{State: StateRejected, Reason: contractErr.Error()}, nil
		}
		return Outcome{State: StateEvaluating}, err
	}

	if !judgment.ShouldPublish {
		log.Info("Article rejected", "reason", judgment.Reason)
		return Outcome{State: StateRejected, Reason: judgment.Reason}, nil
	}

	generated, err := p.capability.Generate(ctx, title, job.SourceContent, job.SourceName, judgment.Category)
	if err != nil {
		var contractErr *ai.ContractError
		if errors.As(err, &contractErr) {
			log.Warn("Article generation failed", "reason", contractErr.Reason)
			return Outcome{State: StateGenerationFailed, Reason: contractErr.Error()}, nil
		}
		return Outcome{State: StateGenerating}, err
	}

	article, err := p.buildArticle(ctx, job, judgment, generated)
	if err != nil {
		return Outcome{State: StatePersisting}, err
	}

	if err := p.persist(ctx, &article, NormalizeSlug(generated.Slug)); err != nil {
		return Outcome{State: StatePersisting}, err
	}

	log.Info("Article published", "slug", article.Slug, "category", article.Category, "rpm", article.RPMScore)
	return Outcome{State: StatePublished, ArticleID: article.ID, Slug: article.Slug}, nil
}

func (p *Pipeline) buildArticle(ctx context.Context, job ContentJob, judgment *ai.Judgment, generated *ai.GeneratedArticle) (database.Article, error) {
	pool, err := p.authors.ListAuthors(ctx)
	if err != nil {
		return database.Article{}, fmt.Errorf("failed to load author pool: %w", err)
	}

	var authorID string
	if author := p.pick(pool); author != nil {
		authorID = author.ID
	}

	wordCount := len(strings.Fields(generated.Content))
	readTime := generated.ReadTimeMinutes
	if readTime <= 0 {
		readTime = int(math.Ceil(float64(wordCount) / wordsPerMinute))
	}

	return database.Article{
		ID:              uuid.NewString(),
		Title:           generated.Title,
		Excerpt:         generated.Excerpt,
		Content:         generated.Content,
		KeyPoints:       generated.KeyPoints,
		Category:        judgment.Category,
		Tags:            generated.Tags,
		AuthorID:        authorID,
		SourceURL:       job.SourceURL,
		SourceName:      job.SourceName,
		ReadTimeMinutes: readTime,
		WordCount:       wordCount,
		RPMScore:        RPMScore(judgment),
		Status:          database.ArticleStatusPublished,
	}, nil
}

// persist stores the article, moving the slug suffix forward on each collision.
func (p *Pipeline) persist(ctx context.Context, article *database.Article, base string) error {
	now := p.now().UTC()
	article.PublishedAt = now

	for attempt := 0; attempt < maxSlugAttempts; attempt++ {
		article.Slug = SuffixSlug(base, now, attempt)
		article.ImageURL = fmt.Sprintf(imageURLPattern, article.Slug)

		err := p.articles.Publish(ctx, *article)
		if errors.Is(err, database.ErrSlugTaken) {
			slog.Debug("Slug taken, retrying", "slug", article.Slug)
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to publish article: %w", err)
		}
		return nil
	}

	return fmt.Errorf("failed to publish article: no free slug for %s after %d attempts", base, maxSlugAttempts)
}

// RPMScore averages the two judged scores with the category revenue constant.
func RPMScore(judgment *ai.Judgment) float64 {
	return (judgment.EstimatedRPM + judgment.EvergreenScore + scoring.CategoryRPM(judgment.Category)) / 3
}
