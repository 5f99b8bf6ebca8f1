package ctl

// Config fetches and prints melvind's effective configuration as JSON.
func Config(baseURL string) error {
	var cfg map[string]any
	if err := getJSON(baseURL, "/api/config", &cfg); err != nil {
		return err
	}
	return printJSON(cfg)
}
