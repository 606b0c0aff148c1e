package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/backtoubuntu-glitch/MindFlow-AI/internal/relay"
)

func main() {
	var err error
	var configFile string
	var config relay.Config

	rootCmd := &cobra.Command{
		Use:   "relayd",
		Short: "Real-time presence and location relay for student trackers",
		// Main Entry Point
		Run: func(c *cobra.Command, args []string) {
			// Init
			e := relay.New(config)

			err = e.Run()
			if err != nil {
				log.Fatalf("Failed on start: %v", err)
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "config.json", "Path to configuration")

	// Defaults
	viper.SetDefault("http.listen", ":3000")
	viper.SetDefault("http.server_name", "MindFlow Tracker")
	viper.SetDefault("relay.send_queue", 64)
	viper.SetDefault("relay.parent_push", 15)
	viper.SetDefault("relay.health_interval", 30)

	// Read Configuration File Before Start
	cobra.OnInitialize(func() {
		_, err := os.Stat(configFile)
		if os.IsNotExist(err) {
			envConfFile := os.Getenv("CONFIG_FILE")
			if envConfFile != "" {
				_, err := os.Stat(envConfFile)
				if os.IsNotExist(err) {
					log.Fatalf("Config file %s does not exist!", envConfFile)
				}

				configFile = envConfFile
			} else {
				log.Fatalf("Config file %s does not exist!", configFile)
			}
		}

		viper.SetConfigFile(configFile)
		viper.SetConfigType("json")
		err = viper.ReadInConfig()
		if err != nil {
			log.Fatalf("Failed to read config: %v", err)
		}

		err = viper.Unmarshal(&config)
		if err != nil {
			log.Fatalf("Failed to parse config: %v", err)
		}

		log.Printf("Loaded config file: %s", configFile)
	})

	// Launch (cobra.OnInitialize -> rootCmd.Run)
	err = rootCmd.Execute()
	if err != nil {
		log.Fatal(err)
	}
}
