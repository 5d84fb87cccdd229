package models

// Health represents the health status of the service.
type Health struct {
	Status  HealthStatus           `json:"status"`
	Time    Timestamp              `json:"time"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// SystemStatus reports the loaded dataset and the state of guarded components.
type SystemStatus struct {
	Status     HealthStatus      `json:"status"`
	Time       Timestamp         `json:"time"`
	Dataset    *DatasetStatus    `json:"dataset,omitempty"`
	Cache      *CacheStatus      `json:"cache,omitempty"`
	Components []ComponentStatus `json:"components"`

	// ActiveDegradationFlags lists feature flags that reduce scoring fidelity.
	ActiveDegradationFlags []string `json:"activeDegradationFlags,omitempty"`
}

// DatasetStatus summarizes the active dataset session.
type DatasetStatus struct {
	Routes      int       `json:"routes"`
	GridPoints  int       `json:"gridPoints"`
	Bulletins   int       `json:"bulletins"`
	Neighbors   int       `json:"neighbors"`
	ModelLoaded bool      `json:"modelLoaded"`
	FirstDay    string    `json:"firstDay,omitempty"`
	LastDay     string    `json:"lastDay,omitempty"`
	LoadedAt    Timestamp `json:"loadedAt"`
}

// CacheStatus reports weather memoization counters.
type CacheStatus struct {
	DailyEntries  int   `json:"dailyEntries"`
	WindowEntries int   `json:"windowEntries"`
	Hits          int64 `json:"hits"`
	Misses        int64 `json:"misses"`
}

// ComponentStatus is the circuit-breaker view of one component.
type ComponentStatus struct {
	Name                string       `json:"name"`
	Status              HealthStatus `json:"status"`
	State               string       `json:"state"`
	ConsecutiveFailures uint32       `json:"consecutiveFailures"`
	LastSuccessAt       *Timestamp   `json:"lastSuccessAt,omitempty"`
	LastFailureAt       *Timestamp   `json:"lastFailureAt,omitempty"`
}

// ReloadResponse is returned after an admin-triggered dataset reload.
type ReloadResponse struct {
	Dataset  DatasetStatus `json:"dataset"`
	Duration string        `json:"duration"`
}
