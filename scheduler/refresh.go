package scheduler

import (
	"errors"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"modelmatch/models"
	"modelmatch/repository"
	"modelmatch/scraper"
)

const (
	refreshMaxAge    = 12 * time.Hour
	refreshBatchSize = 20
)

// PriceRefresher periodically re-captures price-history snapshots for
// stored models, oldest first. It reuses the stored source URL and skips
// the search stage.
type PriceRefresher struct {
	cron        *cron.Cron
	productRepo *repository.ProductRepository
	pipeline    *scraper.Pipeline
}

func NewPriceRefresher(pipeline *scraper.Pipeline) *PriceRefresher {
	return &PriceRefresher{
		cron:        cron.New(cron.WithSeconds()),
		productRepo: repository.NewProductRepository(),
		pipeline:    pipeline,
	}
}

// Start schedules the refresh every 12 hours and runs one pass on
// startup.
func (pr *PriceRefresher) Start() {
	_, err := pr.cron.AddFunc("0 0 */12 * * *", pr.refreshStaleModels)
	if err != nil {
		log.Printf("Failed to schedule price refresher: %v", err)
		return
	}

	go pr.refreshStaleModels()

	pr.cron.Start()
	log.Println("Price refresher scheduled to run every 12 hours")
}

// Stop stops the scheduler. The shared pipeline is owned by main and is
// not closed here.
func (pr *PriceRefresher) Stop() {
	if pr.cron != nil {
		pr.cron.Stop()
	}
}

func (pr *PriceRefresher) refreshStaleModels() {
	staleModels, err := pr.productRepo.GetModelsForRefresh(refreshMaxAge, refreshBatchSize)
	if err != nil {
		log.Printf("Failed to get models for refresh: %v", err)
		return
	}
	if len(staleModels) == 0 {
		log.Println("No stale price snapshots to refresh")
		return
	}

	log.Printf("Refreshing price snapshots for %d models", len(staleModels))

	// Sequential on purpose: each refresh holds a browser page, and
	// lookup traffic from the API has priority over background refresh.
	for _, model := range staleModels {
		if err := pr.refreshModel(model); errors.Is(err, scraper.ErrBotChallenge) {
			log.Printf("Bot challenge while refreshing model %d, stopping this pass", model.ID)
			return
		}
	}
}

func (pr *PriceRefresher) refreshModel(model models.ProductModel) error {
	summary, err := pr.pipeline.RefreshPriceHistory(model.SourceURL)
	if err != nil {
		if errors.Is(err, scraper.ErrBotChallenge) {
			return err
		}
		log.Printf("Failed to refresh model %d (%s): %v", model.ID, model.SourceURL, err)
		return nil
	}
	if summary == nil {
		log.Printf("No price history found for model %d (%s)", model.ID, model.SourceURL)
		return nil
	}

	if err := pr.productRepo.AddSnapshot(model.ID, summary); err != nil {
		log.Printf("Failed to store snapshot for model %d: %v", model.ID, err)
		return nil
	}
	log.Printf("Refreshed price snapshot for model %d", model.ID)
	return nil
}
