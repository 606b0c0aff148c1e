package tracksim

// Config defines the configuration structure for the tracker simulator
type Config struct {
	Server string `mapstructure:"server"`
	Sim    struct {
		Interval  int  `mapstructure:"interval"` // seconds between position fixes
		Heartbeat int  `mapstructure:"heartbeat"`
		Debug     bool `mapstructure:"debug"`
	} `mapstructure:"sim"`
	Zone struct {
		Name   string `mapstructure:"name"`
		Points []struct {
			Lat float64 `mapstructure:"lat"`
			Lng float64 `mapstructure:"lng"`
		} `mapstructure:"points"`
	} `mapstructure:"zone"`
	Students []struct {
		Id      string  `mapstructure:"id"`
		Name    string  `mapstructure:"name"`
		BaseLat float64 `mapstructure:"base_lat"`
		BaseLng float64 `mapstructure:"base_lng"`
	} `mapstructure:"students"`
}
