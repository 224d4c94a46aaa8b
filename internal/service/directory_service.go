package service

import (
	"context"
	"sync"
	"time"

	"appointly/internal/domain"
	"appointly/internal/models"

	"github.com/rs/zerolog"
)

// DirectoryService caches the directory lists in memory for ttl. A failed
// refresh keeps serving the previous lists.
type DirectoryService struct {
	source domain.Directory
	ttl    time.Duration
	logger *zerolog.Logger
	now    func() time.Time

	mu        sync.RWMutex
	employees []models.Employee
	clients   []models.Client
	services  []models.Service
	loadedAt  time.Time
}

func NewDirectoryService(source domain.Directory, ttl time.Duration, logger *zerolog.Logger) *DirectoryService {
	if ttl <= 0 {
		ttl = models.DirectoryCacheTTL * time.Second
	}
	return &DirectoryService{source: source, ttl: ttl, logger: logger, now: time.Now}
}

func (s *DirectoryService) Refresh(ctx context.Context) error {
	employees, err := s.source.ListEmployees(ctx)
	if err != nil {
		return err
	}
	clients, err := s.source.ListClients(ctx)
	if err != nil {
		return err
	}
	services, err := s.source.ListServices(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.employees = employees
	s.clients = clients
	s.services = services
	s.loadedAt = s.now()
	return nil
}

func (s *DirectoryService) ensureFresh(ctx context.Context) error {
	s.mu.RLock()
	loaded := !s.loadedAt.IsZero()
	fresh := loaded && s.now().Sub(s.loadedAt) < s.ttl
	s.mu.RUnlock()
	if fresh {
		return nil
	}

	if err := s.Refresh(ctx); err != nil {
		if loaded {
			s.logger.Warn().Err(err).Msg("directory refresh failed, serving cached lists")
			return nil
		}
		return err
	}
	return nil
}

func (s *DirectoryService) ListEmployees(ctx context.Context) ([]models.Employee, error) {
	if err := s.ensureFresh(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Employee(nil), s.employees...), nil
}

func (s *DirectoryService) ListClients(ctx context.Context) ([]models.Client, error) {
	if err := s.ensureFresh(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Client(nil), s.clients...), nil
}

func (s *DirectoryService) ListServices(ctx context.Context) ([]models.Service, error) {
	if err := s.ensureFresh(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Service(nil), s.services...), nil
}

// Labels resolves display names. Unknown ids are shown as is.
func (s *DirectoryService) Labels(ctx context.Context, b models.ConfirmedBooking) domain.BookingLabels {
	if err := s.ensureFresh(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("directory unavailable, labels fall back to ids")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var labels domain.BookingLabels
	for _, id := range partyIDs(b.EmployeeID, b.EmployeeIDs) {
		labels.Employees = append(labels.Employees, employeeName(s.employees, id))
	}
	for _, id := range partyIDs(b.ClientID, b.ClientIDs) {
		labels.Clients = append(labels.Clients, clientName(s.clients, id))
	}
	if b.ServiceID != "" {
		labels.Service = b.ServiceID
		for _, svc := range s.services {
			if svc.ID == b.ServiceID {
				labels.Service = svc.Name
				break
			}
		}
	}
	return labels
}

func partyIDs(primary string, all []string) []string {
	if len(all) > 0 {
		return all
	}
	if primary != "" {
		return []string{primary}
	}
	return nil
}

func employeeName(list []models.Employee, id string) string {
	for _, e := range list {
		if e.ID == id {
			return e.Name
		}
	}
	return id
}

func clientName(list []models.Client, id string) string {
	for _, c := range list {
		if c.ID == id {
			return c.Name
		}
	}
	return id
}
