// @title           Cabinet Tracker Image API
// @version         1.0
// @description     Image ingestion, validation and file serving for the telecom cabinet tracking system.
// @license.name    MIT
// @license.url     https://opensource.org/licenses/MIT
// @host            localhost:4000
// @BasePath        /api/v1

package main

import "cabinet_tracker/internal/app"

func main() {
	app.Run()
}
