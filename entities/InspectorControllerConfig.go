package entities

// InspectorControllerConfig
// HTTP control API settings
type InspectorControllerConfig struct {
	APIkey         string
	ProductionMode bool
}

// DatagramLogConfig
// datagram log database connection settings, an empty driver turns the log off
type DatagramLogConfig struct {
	Driver   string
	Host     string
	Port     int
	User     string
	Password string
	DbName   string
}
