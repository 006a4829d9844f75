package gatt

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Registry tracks the services currently registered with a Platform, keyed by UUID
// in registration order. It holds references only; the platform owns the services.
//
// All methods are safe for concurrent use. Platform calls are made while the
// registry lock is held so that the registry and the platform never disagree.
type Registry struct {
	mu       sync.Mutex
	platform Platform
	services *orderedmap.OrderedMap[UUID, *Service]
	logger   *logrus.Logger
}

// NewRegistry creates an empty registry in front of platform.
func NewRegistry(platform Platform, logger *logrus.Logger) *Registry {
	if logger == nil {
		logger = logrus.New()
	}
	return &Registry{
		platform: platform,
		services: orderedmap.New[UUID, *Service](),
		logger:   logger,
	}
}

// Register hands svc to the platform and records it on success.
// A platform rejection is returned as RegistrationFailed and leaves the registry
// unchanged. The characteristics of a rejected service are detached, so either
// svc or a rebuilt service carrying them may be registered again.
func (r *Registry) Register(svc *Service) error {
	if svc == nil {
		return missingField("service")
	}
	for i, c := range svc.characteristics {
		if c.owner != nil && c.owner != svc {
			return &Error{Kind: AlreadyAttached, Field: fmt.Sprintf("characteristics[%d]", i),
				Msg: fmt.Sprintf("characteristic %s belongs to service %s", c.uuid, c.owner.uuid)}
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.platform == nil {
		svc.Detach()
		return &Error{Kind: RegistrationFailed, Msg: "platform BLE stack unavailable"}
	}
	svc.attach()
	if err := r.platform.AdvertiseService(svc); err != nil {
		svc.Detach()
		r.logger.WithFields(logrus.Fields{
			"service": svc.uuid,
			"error":   err,
		}).Debug("Platform rejected service")
		return &Error{Kind: RegistrationFailed, Msg: string(svc.uuid), Err: err}
	}

	if _, present := r.services.Get(svc.uuid); present {
		r.logger.WithField("service", svc.uuid).Warn("Platform accepted a duplicate service UUID; replacing registry entry")
	}
	r.services.Set(svc.uuid, svc)

	r.logger.WithFields(logrus.Fields{
		"service":         svc.uuid,
		"primary":         svc.primary,
		"characteristics": len(svc.characteristics),
	}).Debug("Service registered")
	return nil
}

// Remove withdraws the service registered under uuid.
// Returns ServiceNotFound, with the registry unchanged, if there is none.
func (r *Registry) Remove(uuid UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	svc, ok := r.services.Get(uuid)
	if !ok {
		return &Error{Kind: ServiceNotFound, Msg: string(uuid)}
	}
	if err := r.platform.WithdrawService(svc); err != nil {
		return &Error{Kind: RegistrationFailed, Msg: "withdraw " + string(uuid), Err: err}
	}
	r.services.Delete(uuid)

	r.logger.WithField("service", uuid).Debug("Service removed")
	return nil
}

// RemoveAll withdraws every registered service with a single platform call and
// clears the registry. On an empty registry it does nothing.
func (r *Registry) RemoveAll() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.services.Len() == 0 {
		return nil
	}
	if err := r.platform.WithdrawAllServices(); err != nil {
		return &Error{Kind: RegistrationFailed, Msg: "withdraw all", Err: err}
	}

	r.logger.WithField("services", r.services.Len()).Debug("All services removed")
	r.services = orderedmap.New[UUID, *Service]()
	return nil
}

// Get returns the service registered under uuid.
func (r *Registry) Get(uuid UUID) (*Service, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.services.Get(uuid)
}

// Services returns the registered services in registration order.
func (r *Registry) Services() []*Service {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := make([]*Service, 0, r.services.Len())
	for pair := r.services.Oldest(); pair != nil; pair = pair.Next() {
		result = append(result, pair.Value)
	}
	return result
}

// Len returns the number of registered services.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.services.Len()
}

// Restore replaces the registry contents with the services the platform reports
// as still registered after a state restoration. Entries the platform no longer
// lists are dropped. No platform call is made.
func (r *Registry) Restore(services []*Service) {
	r.mu.Lock()
	defer r.mu.Unlock()

	restored := orderedmap.New[UUID, *Service]()
	for _, svc := range services {
		if svc != nil {
			restored.Set(svc.uuid, svc)
		}
	}
	dropped := 0
	for pair := r.services.Oldest(); pair != nil; pair = pair.Next() {
		if _, ok := restored.Get(pair.Key); !ok {
			dropped++
		}
	}
	r.services = restored
	r.logger.WithFields(logrus.Fields{
		"services": restored.Len(),
		"dropped":  dropped,
	}).Debug("Registry restored")
}

// Reset forgets every entry without calling the platform. Used on stack teardown,
// when the platform has already dropped its services.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.services = orderedmap.New[UUID, *Service]()
}
