package config

type AppConfig struct {
	Server  ServerConfig
	Tracker TrackerConfig
	Log     LogConfig
}

func LoadApp() (AppConfig, error) {
	logCfg, err := LoadLog()
	if err != nil {
		return AppConfig{}, err
	}
	serverCfg, err := LoadServer()
	if err != nil {
		return AppConfig{}, err
	}
	trackerCfg, err := LoadTracker()
	if err != nil {
		return AppConfig{}, err
	}
	return AppConfig{
		Server:  serverCfg,
		Tracker: trackerCfg,
		Log:     logCfg,
	}, nil
}
