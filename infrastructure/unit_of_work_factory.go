package infrastructure

import (
	"channelpoints/application"
	"channelpoints/database"
	"channelpoints/domain/events"
	"channelpoints/domain/interfaces"
	"channelpoints/repository"
)

// localHandlerRegistrar is implemented by publishers that can run handlers in-process
type localHandlerRegistrar interface {
	RegisterLocalHandler(eventType events.EventType, handler EventHandler)
}

// UnitOfWorkFactory creates units of work that own a database transaction
// and a transactional event publisher
type UnitOfWorkFactory struct {
	repoFactory interface {
		CreateWithPublisher(publisher interfaces.EventPublisher) application.UnitOfWork
	}
	eventPublisher interfaces.EventPublisher
}

// NewUnitOfWorkFactory creates a new UnitOfWorkFactory
func NewUnitOfWorkFactory(db *database.DB, eventPublisher interfaces.EventPublisher) *UnitOfWorkFactory {
	return &UnitOfWorkFactory{
		repoFactory:    repository.NewUnitOfWorkFactory(db),
		eventPublisher: eventPublisher,
	}
}

// RegisterLocalHandler registers a handler invoked in this process after commit
func (f *UnitOfWorkFactory) RegisterLocalHandler(eventType events.EventType, handler EventHandler) {
	if registrar, ok := f.eventPublisher.(localHandlerRegistrar); ok {
		registrar.RegisterLocalHandler(eventType, handler)
	}
}

// Create creates a new UnitOfWork with its own transactional publisher
func (f *UnitOfWorkFactory) Create() application.UnitOfWork {
	transactionalPublisher := NewTransactionalPublisher(f.eventPublisher)
	return &unitOfWork{
		inner:                  f.repoFactory.CreateWithPublisher(transactionalPublisher),
		transactionalPublisher: transactionalPublisher,
	}
}

var _ application.UnitOfWorkFactory = (*UnitOfWorkFactory)(nil)
