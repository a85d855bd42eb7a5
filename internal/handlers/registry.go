package handlers

// AppHandlers holds every HTTP handler of the application.
type AppHandlers struct {
	ImageHandler *ImageHandler
	FileHandler  *FileHandler
}
