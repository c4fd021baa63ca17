package service

import (
	"context"
	"errors"

	"github.com/timmy/foodlens/internal/domain"
	"github.com/timmy/foodlens/internal/fetcher"
	"github.com/timmy/foodlens/internal/imaging"
	"github.com/timmy/foodlens/internal/logger"
	"github.com/timmy/foodlens/internal/repository"
)

// ImageFetcher acquires image bytes from a remote URL.
type ImageFetcher interface {
	Fetch(ctx context.Context, rawURL string) (*fetcher.ImageAsset, error)
}

// VisionAnalyzer produces an assessment for a normalized image. It must
// never fail; degraded results are expressed inside the assessment.
type VisionAnalyzer interface {
	Analyze(ctx context.Context, img *imaging.Normalized) *domain.FoodAssessment
}

// AssetArchiver uploads original bytes and returns a URL, falling back to
// fallbackURL on failure.
type AssetArchiver interface {
	Archive(ctx context.Context, data []byte, folder, fallbackURL string) string
}

// MealStore accepts candidate history records.
type MealStore interface {
	Create(ctx context.Context, meal *domain.Meal) error
}

// Result is the unified response shape for both analysis entry points.
type Result struct {
	Message   string                 `json:"message"`
	Filename  string                 `json:"filename"`
	Size      int64                  `json:"size"`
	ImageURL  string                 `json:"image_url"`
	Analysis  *domain.FoodAssessment `json:"analysis"`
	SourceURL string                 `json:"source_url,omitempty"`
}

// AnalysisService composes fetch, normalize, analyze, archive, and
// persistence into one request-scoped pipeline. Only fetch-stage errors
// abort; everything past "we have pixels" degrades instead of failing.
type AnalysisService struct {
	fetcher  ImageFetcher
	analyzer VisionAnalyzer
	archiver AssetArchiver
	meals    MealStore
	log      *logger.Logger
}

// NewAnalysisService wires the pipeline components together.
func NewAnalysisService(
	imageFetcher ImageFetcher,
	analyzer VisionAnalyzer,
	archiver AssetArchiver,
	meals MealStore,
	log *logger.Logger,
) *AnalysisService {
	return &AnalysisService{
		fetcher:  imageFetcher,
		analyzer: analyzer,
		archiver: archiver,
		meals:    meals,
		log:      log,
	}
}

// AnalyzeUpload runs the pipeline for directly uploaded bytes.
func (s *AnalysisService) AnalyzeUpload(ctx context.Context, data []byte, filename string) *Result {
	return s.run(ctx, data, filename, "")
}

// AnalyzeURL fetches the image at rawURL and runs the pipeline on it.
// Fetch-stage errors (invalid URL, download failure, non-image content,
// oversize payload) are returned to the caller; nothing downstream fails.
func (s *AnalysisService) AnalyzeURL(ctx context.Context, rawURL string) (*Result, error) {
	asset, err := s.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logger.Fields{
		logger.FieldSourceURL: rawURL,
		logger.FieldSize:      asset.Size(),
		"content_type":        asset.ContentType,
	}).Info("Downloaded image")

	return s.run(ctx, asset.Data, "URL: "+rawURL, rawURL), nil
}

// run executes normalize/analyze with archival in parallel, assembles the
// result, then hands the record to the store without waiting on it.
func (s *AnalysisService) run(ctx context.Context, data []byte, filename, sourceURL string) *Result {
	folder := FolderUploads
	fallbackURL := ""
	message := "Analyzed"
	if sourceURL != "" {
		folder = FolderURLs
		fallbackURL = sourceURL
		message = "URL Analyzed"
	}

	// Archive only needs the original bytes, so it runs concurrently with
	// normalization and analysis. It cannot fail the pipeline either way.
	archived := make(chan string, 1)
	go func() {
		archived <- s.archiver.Archive(ctx, data, folder, fallbackURL)
	}()

	var assessment *domain.FoodAssessment
	normalized, err := imaging.Normalize(data)
	if err != nil {
		s.log.WithError(err).Warn("Image normalization failed - skipping inference")
		assessment = domain.FallbackAssessment("Analysis failed: " + err.Error())
	} else {
		assessment = s.analyzer.Analyze(ctx, normalized)
	}

	imageURL := <-archived

	result := &Result{
		Message:   message,
		Filename:  filename,
		Size:      int64(len(data)),
		ImageURL:  imageURL,
		Analysis:  assessment,
		SourceURL: sourceURL,
	}

	s.saveAsync(ctx, result)

	return result
}

// saveAsync persists the meal record in a detached goroutine. The response
// never waits on it and its failure is logged only.
func (s *AnalysisService) saveAsync(ctx context.Context, r *Result) {
	bg := context.WithoutCancel(ctx)
	meal := &domain.Meal{
		Filename:  r.Filename,
		Food:      r.Analysis.Food,
		Health:    r.Analysis.Health,
		Reason:    r.Analysis.Reason,
		NextMeal:  r.Analysis.NextMeal,
		Size:      r.Size,
		ImageURL:  r.ImageURL,
		SourceURL: r.SourceURL,
	}

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				s.log.WithField("panic", rec).Error("Meal save panicked (non-critical)")
			}
		}()

		if err := s.meals.Create(bg, meal); err != nil {
			if errors.Is(err, repository.ErrUnavailable) {
				s.log.Info("Database not connected - skipping save")
				return
			}
			s.log.WithError(err).Error("Meal save failed (non-critical)")
			return
		}
		s.log.WithField("meal_id", meal.ID).Info("Meal saved to history")
	}()
}
