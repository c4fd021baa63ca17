package service

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timmy/foodlens/internal/domain"
	"github.com/timmy/foodlens/internal/fetcher"
	"github.com/timmy/foodlens/internal/imaging"
	"github.com/timmy/foodlens/internal/repository"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 16), G: uint8(y * 16), B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

type fakeFetcher struct {
	asset *fetcher.ImageAsset
	err   error
}

func (f *fakeFetcher) Fetch(ctx context.Context, rawURL string) (*fetcher.ImageAsset, error) {
	return f.asset, f.err
}

type fakeAnalyzer struct {
	assessment *domain.FoodAssessment
	called     bool
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, img *imaging.Normalized) *domain.FoodAssessment {
	f.called = true
	return f.assessment
}

type fakeArchiver struct {
	url         string
	useFallback bool
	lastFolder  string
}

func (f *fakeArchiver) Archive(ctx context.Context, data []byte, folder, fallbackURL string) string {
	f.lastFolder = folder
	if f.useFallback {
		return fallbackURL
	}
	return f.url
}

type fakeMealStore struct {
	mu    sync.Mutex
	err   error
	meals []*domain.Meal
	saved chan struct{}
}

func newFakeMealStore(err error) *fakeMealStore {
	return &fakeMealStore{err: err, saved: make(chan struct{}, 1)}
}

func (f *fakeMealStore) Create(ctx context.Context, meal *domain.Meal) error {
	f.mu.Lock()
	f.meals = append(f.meals, meal)
	f.mu.Unlock()
	select {
	case f.saved <- struct{}{}:
	default:
	}
	return f.err
}

func (f *fakeMealStore) waitSaved(t *testing.T) *domain.Meal {
	t.Helper()
	select {
	case <-f.saved:
	case <-time.After(2 * time.Second):
		t.Fatal("store was never called")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.meals[len(f.meals)-1]
}

func healthyAssessment() *domain.FoodAssessment {
	return &domain.FoodAssessment{
		Food:     "avocado toast",
		Health:   domain.HealthHealthy,
		Reason:   "Good fats and whole grains.",
		NextMeal: "A protein-heavy dinner.",
	}
}

func newTestService(f *fakeFetcher, an *fakeAnalyzer, ar *fakeArchiver, st MealStore) *AnalysisService {
	return NewAnalysisService(f, an, ar, st, testLogger())
}

func TestAnalyzeUpload(t *testing.T) {
	an := &fakeAnalyzer{assessment: healthyAssessment()}
	ar := &fakeArchiver{url: "https://cdn.test/bucket/food-uploads/abc.jpg"}
	store := newFakeMealStore(nil)
	svc := newTestService(nil, an, ar, store)

	data := pngBytes(t)
	res := svc.AnalyzeUpload(context.Background(), data, "lunch.png")

	assert.Equal(t, "Analyzed", res.Message)
	assert.Equal(t, "lunch.png", res.Filename)
	assert.Equal(t, int64(len(data)), res.Size)
	assert.Equal(t, "https://cdn.test/bucket/food-uploads/abc.jpg", res.ImageURL)
	assert.Equal(t, "avocado toast", res.Analysis.Food)
	assert.Empty(t, res.SourceURL)
	assert.True(t, an.called)
	assert.Equal(t, FolderUploads, ar.lastFolder)

	meal := store.waitSaved(t)
	assert.Equal(t, "lunch.png", meal.Filename)
	assert.Equal(t, "avocado toast", meal.Food)
	assert.Equal(t, domain.HealthHealthy, meal.Health)
	assert.Equal(t, int64(len(data)), meal.Size)
	assert.Equal(t, res.ImageURL, meal.ImageURL)
}

func TestAnalyzeURL(t *testing.T) {
	data := pngBytes(t)
	f := &fakeFetcher{asset: &fetcher.ImageAsset{Data: data, ContentType: "image/png"}}
	an := &fakeAnalyzer{assessment: healthyAssessment()}
	ar := &fakeArchiver{url: "https://cdn.test/bucket/food-urls/def.jpg"}
	store := newFakeMealStore(nil)
	svc := newTestService(f, an, ar, store)

	res, err := svc.AnalyzeURL(context.Background(), "https://site.test/meal.png")
	require.NoError(t, err)

	assert.Equal(t, "URL Analyzed", res.Message)
	assert.Equal(t, "URL: https://site.test/meal.png", res.Filename)
	assert.Equal(t, "https://site.test/meal.png", res.SourceURL)
	assert.Equal(t, "https://cdn.test/bucket/food-urls/def.jpg", res.ImageURL)
	assert.Equal(t, FolderURLs, ar.lastFolder)

	meal := store.waitSaved(t)
	assert.Equal(t, "https://site.test/meal.png", meal.SourceURL)
}

func TestAnalyzeURL_FetchErrorPropagates(t *testing.T) {
	f := &fakeFetcher{err: fetcher.ErrNotAnImage}
	an := &fakeAnalyzer{assessment: healthyAssessment()}
	store := newFakeMealStore(nil)
	svc := newTestService(f, an, &fakeArchiver{}, store)

	res, err := svc.AnalyzeURL(context.Background(), "https://site.test/page.html")
	assert.Nil(t, res)
	assert.ErrorIs(t, err, fetcher.ErrNotAnImage)
	assert.False(t, an.called)
}

func TestAnalyzeURL_ArchiveFallsBackToSource(t *testing.T) {
	data := pngBytes(t)
	f := &fakeFetcher{asset: &fetcher.ImageAsset{Data: data, ContentType: "image/png"}}
	ar := &fakeArchiver{useFallback: true}
	store := newFakeMealStore(nil)
	svc := newTestService(f, &fakeAnalyzer{assessment: healthyAssessment()}, ar, store)

	res, err := svc.AnalyzeURL(context.Background(), "https://site.test/meal.png")
	require.NoError(t, err)
	assert.Equal(t, "https://site.test/meal.png", res.ImageURL)
}

func TestAnalyzeUpload_NormalizationFailure(t *testing.T) {
	an := &fakeAnalyzer{assessment: healthyAssessment()}
	store := newFakeMealStore(nil)
	svc := newTestService(nil, an, &fakeArchiver{}, store)

	res := svc.AnalyzeUpload(context.Background(), []byte("not an image"), "junk.bin")

	assert.False(t, an.called, "analyzer must be skipped when normalization fails")
	assert.Equal(t, "unknown", res.Analysis.Food)
	assert.Equal(t, domain.HealthUncertain, res.Analysis.Health)
	assert.Contains(t, res.Analysis.Reason, "Analysis failed")

	meal := store.waitSaved(t)
	assert.Equal(t, "unknown", meal.Food)
}

func TestAnalyzeUpload_StoreUnavailableIsAbsorbed(t *testing.T) {
	store := newFakeMealStore(repository.ErrUnavailable)
	svc := newTestService(nil, &fakeAnalyzer{assessment: healthyAssessment()}, &fakeArchiver{}, store)

	res := svc.AnalyzeUpload(context.Background(), pngBytes(t), "lunch.png")
	assert.Equal(t, "Analyzed", res.Message)
	store.waitSaved(t)
}

func TestAnalyzeUpload_ResponseDoesNotWaitOnStore(t *testing.T) {
	block := make(chan struct{})
	store := newFakeMealStore(nil)
	slow := &blockingMealStore{inner: store, release: block}
	svc := newTestService(nil, &fakeAnalyzer{assessment: healthyAssessment()}, &fakeArchiver{}, slow)

	done := make(chan *Result, 1)
	go func() {
		done <- svc.AnalyzeUpload(context.Background(), pngBytes(t), "lunch.png")
	}()

	select {
	case res := <-done:
		assert.NotNil(t, res.Analysis)
	case <-time.After(2 * time.Second):
		t.Fatal("response blocked on the meal store")
	}

	close(block)
	store.waitSaved(t)
}

type blockingMealStore struct {
	inner   *fakeMealStore
	release chan struct{}
}

func (b *blockingMealStore) Create(ctx context.Context, meal *domain.Meal) error {
	<-b.release
	return b.inner.Create(ctx, meal)
}
