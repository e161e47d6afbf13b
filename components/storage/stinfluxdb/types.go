package stinfluxdb

// DBParams provides various configuration options for influxDB.
type DBParams struct {
	URL    string `yaml:"url"`
	Org    string `yaml:"org"`
	Token  string `yaml:"token"`
	Bucket string `yaml:"bucket"`
}
