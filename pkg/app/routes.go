package app

func (a *App) initRouter() {
	a.router.HandleFunc("/healthz", a.HealthCheckHandler).Methods("GET")
	a.router.HandleFunc("/api/jobs/{id:[0-9]+}", a.JobStatusHandler).Methods("GET")
	a.router.HandleFunc("/api/sync", a.SyncFolderHandler).Methods("POST")
	a.router.HandleFunc("/api/scan", a.FullScanHandler).Methods("POST")
	a.router.HandleFunc("/api/metadata", a.MetadataScanHandler).Methods("POST")
	a.router.HandleFunc("/api/cleanup", a.CleanupHandler).Methods("POST")
}
