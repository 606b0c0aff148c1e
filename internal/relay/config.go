package relay

// Config defines the configuration structure for the tracker relay daemon
type Config struct {
	Http struct {
		ServerName string `mapstructure:"server_name"`
		Listen     string `mapstructure:"listen"`
		BasicAuth  bool   `mapstructure:"basic_auth"`
		Debug      bool   `mapstructure:"debug"`
		Users      []struct {
			User     string `mapstructure:"user"`
			Password string `mapstructure:"password"`
		} `mapstructure:"users"`
	} `mapstructure:"http"`
	Relay struct {
		SendQueue      int  `mapstructure:"send_queue"`      // outbound frames buffered per connection
		ParentPush     int  `mapstructure:"parent_push"`     // seconds between bulk pushes to parent clients
		HealthInterval int  `mapstructure:"health_interval"` // seconds between connection health stamps
		Debug          bool `mapstructure:"debug"`
	} `mapstructure:"relay"`
}

const (
	defaultSendQueue      = 64
	defaultParentPush     = 15
	defaultHealthInterval = 30
)

func (c *Config) applyDefaults() {
	if c.Relay.SendQueue <= 0 {
		c.Relay.SendQueue = defaultSendQueue
	}
	if c.Relay.ParentPush <= 0 {
		c.Relay.ParentPush = defaultParentPush
	}
	if c.Relay.HealthInterval <= 0 {
		c.Relay.HealthInterval = defaultHealthInterval
	}
	if c.Http.Listen == "" {
		c.Http.Listen = ":3000"
	}
	if c.Http.ServerName == "" {
		c.Http.ServerName = "MindFlow Tracker"
	}
}
