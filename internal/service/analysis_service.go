package service

import (
	"context"

	"web_accessibility_analyzer/internal/domain/adaptors"
	"web_accessibility_analyzer/internal/domain/models"
	"web_accessibility_analyzer/internal/pkg/errors"

	log "github.com/sirupsen/logrus"
)

// AnalysisStarter kicks off background processing without waiting for it.
type AnalysisStarter interface {
	Start(analysisID, url string)
}

// AnalysisService implements create/list/get/delete over the store and hands
// new analyses to the starter.
type AnalysisService struct {
	store    adaptors.AnalysisStore
	starter  AnalysisStarter
	notifier adaptors.AnalysisNotifier
	log      *log.Logger
}

func NewAnalysisService(store adaptors.AnalysisStore, starter AnalysisStarter, notifier adaptors.AnalysisNotifier, log *log.Logger) *AnalysisService {
	if notifier == nil {
		notifier = adaptors.NopNotifier{}
	}
	return &AnalysisService{
		store:    store,
		starter:  starter,
		notifier: notifier,
		log:      log,
	}
}

// Create persists a processing analysis for url and starts it in the background.
func (s *AnalysisService) Create(ctx context.Context, url string) (*models.Analysis, error) {
	a, err := s.store.Create(ctx, url)
	if err != nil {
		if errors.IsValidation(err) {
			return nil, err
		}
		return nil, errors.Wrap(err, `failed to create analysis`)
	}

	s.log.WithFields(log.Fields{`analysis_id`: a.ID, `url`: a.URL}).Info(`analysis created`)
	s.notifier.Notify(adaptors.EventAnalysisCreated, a)
	s.starter.Start(a.ID, a.URL)
	return a, nil
}

func (s *AnalysisService) List(ctx context.Context) ([]*models.Analysis, error) {
	return s.store.List(ctx)
}

func (s *AnalysisService) Get(ctx context.Context, id string) (*models.Analysis, error) {
	return s.store.Get(ctx, id)
}

// Delete removes the analysis. A background run for it is not cancelled;
// its final write is dropped by the lifecycle manager.
func (s *AnalysisService) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.log.WithField(`analysis_id`, id).Info(`analysis deleted`)
	s.notifier.Notify(adaptors.EventAnalysisDeleted, &models.Analysis{ID: id})
	return nil
}

func (s *AnalysisService) Ready(ctx context.Context) error {
	return s.store.Ping(ctx)
}
