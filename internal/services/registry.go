package services

import (
	"cabinet_tracker/internal/cache"
	"cabinet_tracker/internal/imagepipeline"
	"cabinet_tracker/internal/queue"
	"cabinet_tracker/internal/repositories"
	"cabinet_tracker/internal/storage"
)

// ServiceContainer holds every application service.
type ServiceContainer struct {
	ImageService ImageService
	Storage      storage.Storage
	Pipeline     *imagepipeline.Pipeline
}

// Dependencies are the infrastructure pieces services are built from.
type Dependencies struct {
	Pipeline *imagepipeline.Pipeline
	Storage  storage.Storage
	Cache    cache.Cache
	Queue    queue.Enqueuer
	Images   ImageServiceConfig
}

func NewServiceContainer(deps Dependencies) *ServiceContainer {
	return &ServiceContainer{
		ImageService: NewImageService(
			deps.Pipeline,
			repositories.NewImageRepository(),
			deps.Storage,
			deps.Cache,
			deps.Queue,
			deps.Images,
		),
		Storage:  deps.Storage,
		Pipeline: deps.Pipeline,
	}
}
